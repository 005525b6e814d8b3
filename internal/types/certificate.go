package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CompletionType string

const (
	CompletionCourse CompletionType = "course"
	CompletionPath   CompletionType = "path"
)

// certificateNamespace seeds deterministic certificate ids. Fixed forever:
// changing it would re-issue every certificate under a new identity.
var certificateNamespace = uuid.MustParse("3f2d9c41-88be-4f05-b0c5-5a2a4c7d9e11")

// CertificateID derives the certificate identity from the issuance triple.
// Issuing twice for the same triple always addresses the same record.
func CertificateID(learnerID, templateID uuid.UUID, completionType CompletionType, targetID uuid.UUID) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%s|%s", learnerID, templateID, completionType, targetID)
	return uuid.NewSHA1(certificateNamespace, []byte(name))
}

// CertificateData is the snapshot captured at issuance time. Immutable after
// the first write; re-issuance attempts never overwrite it.
type CertificateData struct {
	RecipientName  string    `json:"recipient_name"`
	Title          string    `json:"title"`
	CompletionDate time.Time `json:"completion_date"`
	BadgeText      string    `json:"badge_text,omitempty"`
	Signatory      string    `json:"signatory,omitempty"`
	IssuedCopy     string    `json:"issued_copy,omitempty"`
}

type IssuedCertificate struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"learner_id"`
	TemplateID     uuid.UUID      `gorm:"type:uuid;not null" json:"template_id"`
	CompletionType CompletionType `gorm:"column:completion_type;not null" json:"completion_type"`
	TargetID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"target_id"`
	IssuedAt       time.Time      `gorm:"column:issued_at;not null" json:"issued_at"`
	Data           datatypes.JSON `gorm:"type:jsonb;column:data" json:"data"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (IssuedCertificate) TableName() string { return "issued_certificate" }

func (c *IssuedCertificate) DecodeData() (CertificateData, error) {
	var data CertificateData
	if len(c.Data) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(c.Data, &data); err != nil {
		return data, fmt.Errorf("decode certificate data: %w", err)
	}
	return data, nil
}

func EncodeCertificateData(data CertificateData) (datatypes.JSON, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode certificate data: %w", err)
	}
	return datatypes.JSON(b), nil
}

// CertificateTemplate applies to a single target when TargetID is set, or to
// every target of its completion type when nil.
type CertificateTemplate struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CompletionType CompletionType `gorm:"column:completion_type;not null;index" json:"completion_type"`
	TargetID       *uuid.UUID     `gorm:"type:uuid;index" json:"target_id,omitempty"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	BadgeText      string         `gorm:"column:badge_text" json:"badge_text"`
	Signatory      string         `gorm:"column:signatory" json:"signatory"`
	Body           string         `gorm:"column:body" json:"body"`
	Active         bool           `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CertificateTemplate) TableName() string { return "certificate_template" }
