package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type PathProgressRepo interface {
	GetByLearnerAndPath(ctx context.Context, tx *gorm.DB, learnerID, pathID uuid.UUID) (*types.PathProgress, error)
	ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.PathProgress, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.PathProgress) error
}

type pathProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPathProgressRepo(db *gorm.DB, baseLog *logger.Logger) PathProgressRepo {
	repoLog := baseLog.With("repo", "PathProgressRepo")
	return &pathProgressRepo{db: db, log: repoLog}
}

func (r *pathProgressRepo) GetByLearnerAndPath(ctx context.Context, tx *gorm.DB, learnerID, pathID uuid.UUID) (*types.PathProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.PathProgress
	if err := transaction.WithContext(ctx).
		Where("learner_id = ? AND path_id = ?", learnerID, pathID).
		First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *pathProgressRepo) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.PathProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PathProgress
	if learnerID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *pathProgressRepo) Save(ctx context.Context, tx *gorm.DB, row *types.PathProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	// Upsert on the unique (learner_id, path_id) pair. UpdateAll keeps
	// NULLable columns like next_course_id and completed_at writable on the
	// update path.
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "path_id"}},
			UpdateAll: true,
		}).
		Create(row).Error; err != nil {
		return err
	}
	return nil
}
