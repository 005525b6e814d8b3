package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pathlight-hq/pathlight-backend/internal/services"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type ProgressHandler struct {
	svc services.ProgressService
}

func NewProgressHandler(svc services.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

type applyProgressRequest struct {
	LearnerID       string   `json:"learner_id" binding:"required"`
	CourseID        string   `json:"course_id" binding:"required"`
	LessonID        string   `json:"lesson_id" binding:"required"`
	Origin          string   `json:"origin"`
	PositionMS      *int64   `json:"position_ms,omitempty"`
	PercentComplete *float64 `json:"percent_complete,omitempty"`
	Completed       *bool    `json:"completed,omitempty"`
}

// POST /api/progress
func (h *ProgressHandler) ApplyProgress(c *gin.Context) {
	var req applyProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	learnerID, err := uuid.Parse(req.LearnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid learner id"})
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}
	lessonID, err := uuid.Parse(req.LessonID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
		return
	}

	result, err := h.svc.ApplyProgress(c.Request.Context(), nil, services.ProgressInput{
		LearnerID:       learnerID,
		CourseID:        courseID,
		LessonID:        lessonID,
		Origin:          types.EnrollmentOrigin(req.Origin),
		PositionMS:      req.PositionMS,
		PercentComplete: req.PercentComplete,
		Completed:       req.Completed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress":              result.Progress,
		"lesson_just_completed": result.LessonJustCompleted,
		"course_just_completed": result.CourseJustCompleted,
	})
}

// GET /api/learners/:id/courses/:course_id/progress
func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
	learnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid learner id"})
		return
	}
	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}

	progress, err := h.svc.GetCourseProgress(c.Request.Context(), nil, learnerID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}
