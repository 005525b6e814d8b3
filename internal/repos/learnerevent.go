package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type LearnerEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.LearnerEvent) error
}

type learnerEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearnerEventRepo(db *gorm.DB, baseLog *logger.Logger) LearnerEventRepo {
	repoLog := baseLog.With("repo", "LearnerEventRepo")
	return &learnerEventRepo{db: db, log: repoLog}
}

func (r *learnerEventRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.LearnerEvent) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}
	return nil
}
