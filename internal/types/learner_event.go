package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LearnerEvent is the append-only audit row mirroring outbound progress
// notifications. Written best-effort by the notifier.
type LearnerEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID uuid.UUID      `gorm:"type:uuid;not null;index" json:"learner_id"`
	CourseID  *uuid.UUID     `gorm:"type:uuid;index" json:"course_id,omitempty"`
	PathID    *uuid.UUID     `gorm:"type:uuid;index" json:"path_id,omitempty"`
	LessonID  *uuid.UUID     `gorm:"type:uuid" json:"lesson_id,omitempty"`
	Type      string         `gorm:"column:type;not null;index" json:"type"`
	Data      datatypes.JSON `gorm:"type:jsonb;column:data" json:"data"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (LearnerEvent) TableName() string { return "learner_event" }
