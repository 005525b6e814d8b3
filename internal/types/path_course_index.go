package types

import (
	"time"

	"github.com/google/uuid"
)

// PathCourseIndex is the course→path reverse index. One row per course in a
// published path's course set; rows for removed courses are deleted when the
// path is republished. Derived cache, rebuildable by republishing.
type PathCourseIndex struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID   uuid.UUID `gorm:"type:uuid;not null;index:idx_course_path,unique;index" json:"course_id"`
	PathID     uuid.UUID `gorm:"type:uuid;not null;index:idx_course_path,unique" json:"path_id"`
	PathStatus string    `gorm:"column:path_status;not null;default:'published'" json:"path_status"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PathCourseIndex) TableName() string { return "path_course_index" }
