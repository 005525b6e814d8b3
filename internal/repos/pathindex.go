package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type PathIndexRepo interface {
	ListByPath(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) ([]*types.PathCourseIndex, error)
	ListPathIDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, limit int) ([]uuid.UUID, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.PathCourseIndex) error
	DeleteByPathAndCourses(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, courseIDs []uuid.UUID) error
}

type pathIndexRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPathIndexRepo(db *gorm.DB, baseLog *logger.Logger) PathIndexRepo {
	repoLog := baseLog.With("repo", "PathIndexRepo")
	return &pathIndexRepo{db: db, log: repoLog}
}

func (r *pathIndexRepo) ListByPath(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) ([]*types.PathCourseIndex, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PathCourseIndex
	if pathID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("path_id = ?", pathID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListPathIDsByCourse reads by course_id only; this is the query that keeps
// course-completion events off the path table.
func (r *pathIndexRepo) ListPathIDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, limit int) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var pathIDs []uuid.UUID
	if courseID == uuid.Nil {
		return pathIDs, nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.PathCourseIndex{}).
		Where("course_id = ? AND path_status = ?", courseID, types.PathStatusPublished).
		Limit(limit).
		Pluck("path_id", &pathIDs).Error; err != nil {
		return nil, err
	}
	return pathIDs, nil
}

func (r *pathIndexRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.PathCourseIndex) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	// Upsert on the unique (course_id, path_id) pair; existing rows keep
	// their id.
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "path_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"path_status", "updated_at"}),
		}).
		Create(row).Error; err != nil {
		return err
	}
	return nil
}

func (r *pathIndexRepo) DeleteByPathAndCourses(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, courseIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if pathID == uuid.Nil || len(courseIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("path_id = ? AND course_id IN ?", pathID, courseIDs).
		Delete(&types.PathCourseIndex{}).Error; err != nil {
		return err
	}
	return nil
}
