package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

// CatalogRepo is the read side of the course/path catalog plus the one write
// the engine needs: publishing a path's course list.
type CatalogRepo interface {
	GetLearner(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Learner, error)
	GetCourse(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error)
	GetPath(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Path, error)
	ListLessonsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Lesson, error)
	ReplacePathCourses(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, rows []*types.PathCourse) error
	SetPathStatus(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, status string) error
}

type catalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) CatalogRepo {
	repoLog := baseLog.With("repo", "CatalogRepo")
	return &catalogRepo{db: db, log: repoLog}
}

func (r *catalogRepo) GetLearner(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Learner, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Learner
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *catalogRepo) GetCourse(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Course
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *catalogRepo) GetPath(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Path, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Path
	if err := transaction.WithContext(ctx).
		Preload("Courses", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *catalogRepo) ListLessonsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Lesson
	if courseID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *catalogRepo) ReplacePathCourses(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, rows []*types.PathCourse) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if pathID == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.
			Where("path_id = ?", pathID).
			Delete(&types.PathCourse{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return inner.Create(&rows).Error
	})
}

func (r *catalogRepo) SetPathStatus(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Path{}).
		Where("id = ?", pathID).
		Update("status", status).Error; err != nil {
		return err
	}
	return nil
}
