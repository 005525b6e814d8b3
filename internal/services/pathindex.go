package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/repos"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

// MaxPathLookupLimit is the system pagination ceiling; lookup limits are
// clamped to it regardless of what the caller asks for.
const MaxPathLookupLimit = 200

type PathIndexService interface {
	// SyncForPublishedPath reconciles the course→path reverse index with
	// the path's published course set: entries for removed courses are
	// deleted, entries for present courses upserted. Runs at publish time
	// only, never on the learner hot path. The deletes and upserts are not
	// one atomic write; the index is a derived cache and a republish
	// rebuilds it.
	SyncForPublishedPath(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, courseIDs []uuid.UUID) error
	LookupPublishedPathIDs(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, limit int) ([]uuid.UUID, error)
}

type pathIndexService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.PathIndexRepo
}

func NewPathIndexService(db *gorm.DB, baseLog *logger.Logger, repo repos.PathIndexRepo) PathIndexService {
	return &pathIndexService{
		db:   db,
		log:  baseLog.With("service", "PathIndexService"),
		repo: repo,
	}
}

func (s *pathIndexService) SyncForPublishedPath(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, courseIDs []uuid.UUID) error {
	wanted := make(map[uuid.UUID]bool, len(courseIDs))
	deduped := make([]uuid.UUID, 0, len(courseIDs))
	for _, id := range courseIDs {
		if id == uuid.Nil || wanted[id] {
			continue
		}
		wanted[id] = true
		deduped = append(deduped, id)
	}

	existing, err := s.repo.ListByPath(ctx, tx, pathID)
	if err != nil {
		return err
	}
	var removed []uuid.UUID
	for _, row := range existing {
		if !wanted[row.CourseID] {
			removed = append(removed, row.CourseID)
		}
	}
	if err := s.repo.DeleteByPathAndCourses(ctx, tx, pathID, removed); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, courseID := range deduped {
		row := &types.PathCourseIndex{
			ID:         uuid.New(),
			CourseID:   courseID,
			PathID:     pathID,
			PathStatus: types.PathStatusPublished,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Upsert(ctx, tx, row); err != nil {
			return err
		}
	}

	s.log.Info("reverse index synced", "path_id", pathID, "courses", len(deduped), "removed", len(removed))
	return nil
}

func (s *pathIndexService) LookupPublishedPathIDs(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, limit int) ([]uuid.UUID, error) {
	if limit <= 0 || limit > MaxPathLookupLimit {
		limit = MaxPathLookupLimit
	}
	return s.repo.ListPathIDsByCourse(ctx, tx, courseID, limit)
}
