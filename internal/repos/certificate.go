package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type CertificateRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.IssuedCertificate, error)
	ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.IssuedCertificate, error)
	// CreateIfAbsent inserts the row unless its id already exists. Returns
	// ErrConflict when a concurrent writer got there first; the row is
	// never overwritten.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.IssuedCertificate) error
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	repoLog := baseLog.With("repo", "CertificateRepo")
	return &certificateRepo{db: db, log: repoLog}
}

func (r *certificateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.IssuedCertificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.IssuedCertificate
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *certificateRepo) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.IssuedCertificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.IssuedCertificate
	if learnerID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("issued_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificateRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.IssuedCertificate) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
