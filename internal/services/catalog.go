package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/repos"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type PublishCourseInput struct {
	CourseID uuid.UUID `json:"course_id"`
	Required *bool     `json:"required,omitempty"`
}

type CatalogService interface {
	GetPath(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) (*types.Path, error)
	GetCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error)
	ListLessons(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Lesson, error)
	// PublishPath persists the path's ordered course list, marks it
	// published, and reconciles the course→path reverse index.
	PublishPath(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, courses []PublishCourseInput) (*types.Path, error)
}

type catalogService struct {
	db    *gorm.DB
	log   *logger.Logger
	repo  repos.CatalogRepo
	index PathIndexService
}

func NewCatalogService(db *gorm.DB, baseLog *logger.Logger, repo repos.CatalogRepo, index PathIndexService) CatalogService {
	return &catalogService{
		db:    db,
		log:   baseLog.With("service", "CatalogService"),
		repo:  repo,
		index: index,
	}
}

func (s *catalogService) GetPath(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) (*types.Path, error) {
	return s.repo.GetPath(ctx, tx, pathID)
}

func (s *catalogService) GetCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	return s.repo.GetCourse(ctx, tx, courseID)
}

func (s *catalogService) ListLessons(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Lesson, error) {
	return s.repo.ListLessonsByCourse(ctx, tx, courseID)
}

func (s *catalogService) PublishPath(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, courses []PublishCourseInput) (*types.Path, error) {
	if _, err := s.repo.GetPath(ctx, tx, pathID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	seen := make(map[uuid.UUID]bool, len(courses))
	rows := make([]*types.PathCourse, 0, len(courses))
	courseIDs := make([]uuid.UUID, 0, len(courses))
	for i, in := range courses {
		if in.CourseID == uuid.Nil {
			return nil, fmt.Errorf("course id required at position %d", i)
		}
		if seen[in.CourseID] {
			continue
		}
		seen[in.CourseID] = true
		required := true
		if in.Required != nil {
			required = *in.Required
		}
		rows = append(rows, &types.PathCourse{
			ID:        uuid.New(),
			PathID:    pathID,
			CourseID:  in.CourseID,
			Position:  len(rows),
			Required:  required,
			CreatedAt: now,
			UpdatedAt: now,
		})
		courseIDs = append(courseIDs, in.CourseID)
	}

	if err := s.repo.ReplacePathCourses(ctx, tx, pathID, rows); err != nil {
		return nil, err
	}
	if err := s.repo.SetPathStatus(ctx, tx, pathID, types.PathStatusPublished); err != nil {
		return nil, err
	}
	if err := s.index.SyncForPublishedPath(ctx, tx, pathID, courseIDs); err != nil {
		return nil, fmt.Errorf("sync reverse index: %w", err)
	}

	s.log.Info("path published", "path_id", pathID, "courses", len(rows))
	return s.repo.GetPath(ctx, tx, pathID)
}
