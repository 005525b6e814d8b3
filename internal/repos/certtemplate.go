package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type CertificateTemplateRepo interface {
	// ListActiveFor returns templates applying to the target: those bound
	// to it plus type-wide templates with no target.
	ListActiveFor(ctx context.Context, tx *gorm.DB, completionType types.CompletionType, targetID uuid.UUID) ([]*types.CertificateTemplate, error)
	Create(ctx context.Context, tx *gorm.DB, row *types.CertificateTemplate) error
}

type certificateTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateTemplateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateTemplateRepo {
	repoLog := baseLog.With("repo", "CertificateTemplateRepo")
	return &certificateTemplateRepo{db: db, log: repoLog}
}

func (r *certificateTemplateRepo) ListActiveFor(ctx context.Context, tx *gorm.DB, completionType types.CompletionType, targetID uuid.UUID) ([]*types.CertificateTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CertificateTemplate
	if err := transaction.WithContext(ctx).
		Where("completion_type = ? AND active = ? AND (target_id IS NULL OR target_id = ?)", completionType, true, targetID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificateTemplateRepo) Create(ctx context.Context, tx *gorm.DB, row *types.CertificateTemplate) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	return nil
}
