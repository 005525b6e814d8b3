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

type CertificateService interface {
	// Issue creates the certificate for (learner, template, target) exactly
	// once. Repeat calls return the original record with isNew=false; the
	// snapshot captured at first issuance is never overwritten, whatever
	// data later callers supply.
	Issue(ctx context.Context, tx *gorm.DB, learnerID, templateID uuid.UUID, completionType types.CompletionType, targetID uuid.UUID, data types.CertificateData) (*types.IssuedCertificate, bool, error)
	// IssueForCompletion fans out over every active template applying to
	// the completed target, independently idempotent per template.
	IssueForCompletion(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, completionType types.CompletionType, targetID uuid.UUID, completedAt time.Time) ([]*types.IssuedCertificate, error)
	ListForLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.IssuedCertificate, error)
}

type certificateService struct {
	db        *gorm.DB
	log       *logger.Logger
	repo      repos.CertificateRepo
	templates repos.CertificateTemplateRepo
	catalog   repos.CatalogRepo
	notifier  ProgressNotifier
}

func NewCertificateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.CertificateRepo,
	templates repos.CertificateTemplateRepo,
	catalog repos.CatalogRepo,
	notifier ProgressNotifier,
) CertificateService {
	return &certificateService{
		db:        db,
		log:       baseLog.With("service", "CertificateService"),
		repo:      repo,
		templates: templates,
		catalog:   catalog,
		notifier:  notifier,
	}
}

func (s *certificateService) Issue(ctx context.Context, tx *gorm.DB, learnerID, templateID uuid.UUID, completionType types.CompletionType, targetID uuid.UUID, data types.CertificateData) (*types.IssuedCertificate, bool, error) {
	id := types.CertificateID(learnerID, templateID, completionType, targetID)

	existing, err := s.repo.GetByID(ctx, tx, id)
	if err != nil && !errors.Is(err, repos.ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	raw, err := types.EncodeCertificateData(data)
	if err != nil {
		return nil, false, err
	}
	now := time.Now().UTC()
	row := &types.IssuedCertificate{
		ID:             id,
		LearnerID:      learnerID,
		TemplateID:     templateID,
		CompletionType: completionType,
		TargetID:       targetID,
		IssuedAt:       now,
		Data:           raw,
		CreatedAt:      now,
	}

	err = s.repo.CreateIfAbsent(ctx, tx, row)
	if errors.Is(err, repos.ErrConflict) {
		// Lost the conditional write to a concurrent issuer; their record
		// is the certificate.
		winner, rerr := s.repo.GetByID(ctx, tx, id)
		if rerr != nil {
			return nil, false, rerr
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if s.notifier != nil {
		targetCopy := targetID
		evt := Event{
			Type:       EventCertificateIssued,
			LearnerID:  learnerID,
			OccurredAt: now,
			Data:       map[string]any{"certificate_id": id.String(), "template_id": templateID.String()},
		}
		if completionType == types.CompletionPath {
			evt.PathID = &targetCopy
		} else {
			evt.CourseID = &targetCopy
		}
		s.notifier.Publish(ctx, evt)
	}

	s.log.Info("certificate issued", "learner_id", learnerID, "template_id", templateID, "completion_type", completionType, "target_id", targetID)
	return row, true, nil
}

func (s *certificateService) IssueForCompletion(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, completionType types.CompletionType, targetID uuid.UUID, completedAt time.Time) ([]*types.IssuedCertificate, error) {
	templates, err := s.templates.ListActiveFor(ctx, tx, completionType, targetID)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, nil
	}

	learner, err := s.catalog.GetLearner(ctx, tx, learnerID)
	if err != nil {
		return nil, err
	}
	targetTitle, err := s.targetTitle(ctx, tx, completionType, targetID)
	if err != nil {
		return nil, err
	}

	var issued []*types.IssuedCertificate
	var issueErr error
	for _, tmpl := range templates {
		title := tmpl.Title
		if title == "" {
			title = targetTitle
		}
		data := types.CertificateData{
			RecipientName:  learner.Name,
			Title:          title,
			CompletionDate: completedAt,
			BadgeText:      tmpl.BadgeText,
			Signatory:      tmpl.Signatory,
			IssuedCopy:     tmpl.Body,
		}
		cert, _, err := s.Issue(ctx, tx, learnerID, tmpl.ID, completionType, targetID, data)
		if err != nil {
			s.log.Warn("template issuance failed", "template_id", tmpl.ID, "learner_id", learnerID, "error", err)
			issueErr = errors.Join(issueErr, err)
			continue
		}
		issued = append(issued, cert)
	}
	return issued, issueErr
}

func (s *certificateService) ListForLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.IssuedCertificate, error) {
	return s.repo.ListByLearner(ctx, tx, learnerID)
}

func (s *certificateService) targetTitle(ctx context.Context, tx *gorm.DB, completionType types.CompletionType, targetID uuid.UUID) (string, error) {
	switch completionType {
	case types.CompletionPath:
		path, err := s.catalog.GetPath(ctx, tx, targetID)
		if err != nil {
			return "", err
		}
		return path.Title, nil
	default:
		course, err := s.catalog.GetCourse(ctx, tx, targetID)
		if err != nil {
			return "", err
		}
		return course.Title, nil
	}
}
