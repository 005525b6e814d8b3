package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EnrollmentOrigin string

const (
	OriginSelfEnrolled EnrollmentOrigin = "self_enrolled"
	OriginAssigned     EnrollmentOrigin = "assigned"
	OriginRequired     EnrollmentOrigin = "required"
	OriginRecommended  EnrollmentOrigin = "recommended"
)

func (o EnrollmentOrigin) Valid() bool {
	switch o {
	case OriginSelfEnrolled, OriginAssigned, OriginRequired, OriginRecommended:
		return true
	}
	return false
}

// LessonProgress is a JSON value inside CourseProgress.Lessons, keyed by
// lesson id. Completed implies PercentComplete == 100 and never reverts.
type LessonProgress struct {
	PercentComplete   float64    `json:"percent_complete"`
	Completed         bool       `json:"completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CurrentPositionMS int64      `json:"current_position_ms,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	LastAccessedAt    *time.Time `json:"last_accessed_at,omitempty"`
}

type CourseProgress struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID       uuid.UUID        `gorm:"type:uuid;not null;index:idx_learner_course,unique" json:"learner_id"`
	CourseID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_learner_course,unique" json:"course_id"`
	Origin          EnrollmentOrigin `gorm:"column:origin;not null;default:'self_enrolled'" json:"origin"`
	EnrolledAt      time.Time        `gorm:"column:enrolled_at;not null" json:"enrolled_at"`
	Lessons         datatypes.JSON   `gorm:"type:jsonb;column:lessons" json:"lessons"`
	PercentComplete float64          `gorm:"column:percent_complete;not null;default:0" json:"percent_complete"`
	Completed       bool             `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletedAt     *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CurrentLessonID *uuid.UUID       `gorm:"type:uuid;column:current_lesson_id" json:"current_lesson_id,omitempty"`
	LastPositionMS  int64            `gorm:"column:last_position_ms;not null;default:0" json:"last_position_ms"`
	StartedAt       *time.Time       `gorm:"column:started_at" json:"started_at,omitempty"`
	LastAccessedAt  *time.Time       `gorm:"column:last_accessed_at" json:"last_accessed_at,omitempty"`
	CreatedAt       time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null;default:now()" json:"updated_at"`

	// LessonMap is the decoded form of Lessons. Repos decode on read and
	// encode on write; everything above the store works with this map.
	LessonMap map[string]*LessonProgress `gorm:"-" json:"-"`
}

func (CourseProgress) TableName() string { return "course_progress" }

// lessonProgressRecord tolerates legacy field names still present in rows
// written by the pre-rollup schema.
type lessonProgressRecord struct {
	LessonProgress
	LegacyPercent    *float64 `json:"percent,omitempty"`
	LegacyPositionMS *int64   `json:"position_ms,omitempty"`
	LegacyDone       *bool    `json:"done,omitempty"`
}

// DecodeLessonMap is the single schema-migration point for the lesson map.
// Legacy aliases are folded into canonical fields, percentages are clamped,
// and completed entries are forced to 100.
func DecodeLessonMap(raw datatypes.JSON) (map[string]*LessonProgress, error) {
	out := map[string]*LessonProgress{}
	if len(raw) == 0 {
		return out, nil
	}
	var records map[string]*lessonProgressRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode lesson map: %w", err)
	}
	for id, rec := range records {
		if rec == nil {
			continue
		}
		lp := rec.LessonProgress
		if rec.LegacyPercent != nil && lp.PercentComplete == 0 {
			lp.PercentComplete = *rec.LegacyPercent
		}
		if rec.LegacyPositionMS != nil && lp.CurrentPositionMS == 0 {
			lp.CurrentPositionMS = *rec.LegacyPositionMS
		}
		if rec.LegacyDone != nil && *rec.LegacyDone {
			lp.Completed = true
		}
		lp.PercentComplete = ClampPercent(lp.PercentComplete)
		if lp.Completed {
			lp.PercentComplete = 100
		}
		out[id] = &lp
	}
	return out, nil
}

func EncodeLessonMap(lessons map[string]*LessonProgress) (datatypes.JSON, error) {
	if lessons == nil {
		lessons = map[string]*LessonProgress{}
	}
	b, err := json.Marshal(lessons)
	if err != nil {
		return nil, fmt.Errorf("encode lesson map: %w", err)
	}
	return datatypes.JSON(b), nil
}

func ClampPercent(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
