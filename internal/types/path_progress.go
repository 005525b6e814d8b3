package types

import (
	"time"

	"github.com/google/uuid"
)

type PathStatus string

const (
	PathNotStarted PathStatus = "not_started"
	PathInProgress PathStatus = "in_progress"
	PathCompleted  PathStatus = "completed"
)

type PathProgress struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_learner_path,unique" json:"learner_id"`
	PathID           uuid.UUID        `gorm:"type:uuid;not null;index:idx_learner_path,unique" json:"path_id"`
	Origin           EnrollmentOrigin `gorm:"column:origin;not null;default:'self_enrolled'" json:"origin"`
	EnrolledAt       time.Time        `gorm:"column:enrolled_at;not null" json:"enrolled_at"`
	TotalCourses     int              `gorm:"column:total_courses;not null;default:0" json:"total_courses"`
	CompletedCourses int              `gorm:"column:completed_courses;not null;default:0" json:"completed_courses"`
	PercentComplete  int              `gorm:"column:percent_complete;not null;default:0" json:"percent_complete"`
	Status           PathStatus       `gorm:"column:status;not null;default:'not_started'" json:"status"`
	CompletedAt      *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	NextCourseID     *uuid.UUID       `gorm:"type:uuid;column:next_course_id" json:"next_course_id,omitempty"`
	StartedAt        *time.Time       `gorm:"column:started_at" json:"started_at,omitempty"`
	LastActivityAt   *time.Time       `gorm:"column:last_activity_at" json:"last_activity_at,omitempty"`
	CreatedAt        time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null;default:now()" json:"updated_at"`
}

func (PathProgress) TableName() string { return "path_progress" }

func (p *PathProgress) IsCompleted() bool { return p != nil && p.Status == PathCompleted }
