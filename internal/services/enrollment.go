package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/repos"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type EnrollmentService interface {
	// Enroll creates the learner's course progress record on first call.
	// Re-enrollment returns the existing record unmodified except for
	// activity timestamps: progress, percent, and completion state are
	// never reset.
	Enroll(ctx context.Context, tx *gorm.DB, learnerID, courseID uuid.UUID, origin types.EnrollmentOrigin) (*types.CourseProgress, error)
}

type enrollmentService struct {
	db           *gorm.DB
	log          *logger.Logger
	progressRepo repos.CourseProgressRepo
	catalog      repos.CatalogRepo
}

func NewEnrollmentService(db *gorm.DB, baseLog *logger.Logger, progressRepo repos.CourseProgressRepo, catalog repos.CatalogRepo) EnrollmentService {
	return &enrollmentService{
		db:           db,
		log:          baseLog.With("service", "EnrollmentService"),
		progressRepo: progressRepo,
		catalog:      catalog,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, tx *gorm.DB, learnerID, courseID uuid.UUID, origin types.EnrollmentOrigin) (*types.CourseProgress, error) {
	if !origin.Valid() {
		origin = types.OriginSelfEnrolled
	}
	now := time.Now().UTC()

	existing, err := s.progressRepo.GetByLearnerAndCourse(ctx, tx, learnerID, courseID)
	if err != nil && !errors.Is(err, repos.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		existing.LastAccessedAt = &now
		existing.UpdatedAt = now
		if err := s.progressRepo.Save(ctx, tx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	// Seed an entry per lesson the course has right now. The course percent
	// is averaged over entries in the map, so lessons present at enrollment
	// count toward the denominator from day one, while lessons added to the
	// course later only start counting once the learner touches them.
	seeded := map[string]*types.LessonProgress{}
	lessons, err := s.catalog.ListLessonsByCourse(ctx, tx, courseID)
	if err != nil {
		s.log.Warn("lesson lookup failed, enrolling with empty lesson map", "course_id", courseID, "error", err)
	}
	for _, lesson := range lessons {
		seeded[lesson.ID.String()] = &types.LessonProgress{}
	}

	row := &types.CourseProgress{
		ID:              uuid.New(),
		LearnerID:       learnerID,
		CourseID:        courseID,
		Origin:          origin,
		EnrolledAt:      now,
		LessonMap:       seeded,
		PercentComplete: 0,
		Completed:       false,
		LastAccessedAt:  &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.progressRepo.Save(ctx, tx, row); err != nil {
		return nil, err
	}
	s.log.Debug("enrolled learner", "learner_id", learnerID, "course_id", courseID, "origin", origin)
	return row, nil
}
