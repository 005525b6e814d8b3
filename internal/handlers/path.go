package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pathlight-hq/pathlight-backend/internal/services"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type PathHandler struct {
	rollup  services.RollupService
	catalog services.CatalogService
}

func NewPathHandler(rollup services.RollupService, catalog services.CatalogService) *PathHandler {
	return &PathHandler{rollup: rollup, catalog: catalog}
}

type startPathRequest struct {
	LearnerID string `json:"learner_id" binding:"required"`
	Origin    string `json:"origin"`
}

// POST /api/paths/:id/start
func (h *PathHandler) StartPath(c *gin.Context) {
	pathID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path id"})
		return
	}
	var req startPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	learnerID, err := uuid.Parse(req.LearnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid learner id"})
		return
	}

	progress, err := h.rollup.StartPath(c.Request.Context(), nil, learnerID, pathID, types.EnrollmentOrigin(req.Origin))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

type publishPathRequest struct {
	Courses []services.PublishCourseInput `json:"courses" binding:"required"`
}

// POST /api/paths/:id/publish
func (h *PathHandler) PublishPath(c *gin.Context) {
	pathID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path id"})
		return
	}
	var req publishPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path, err := h.catalog.PublishPath(c.Request.Context(), nil, pathID, req.Courses)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path})
}

// GET /api/learners/:id/paths/:path_id/progress
func (h *PathHandler) GetPathProgress(c *gin.Context) {
	learnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid learner id"})
		return
	}
	pathID, err := uuid.Parse(c.Param("path_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path id"})
		return
	}

	progress, err := h.rollup.GetPathProgress(c.Request.Context(), nil, learnerID, pathID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}
