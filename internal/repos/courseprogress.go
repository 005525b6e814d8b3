package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type CourseProgressRepo interface {
	GetByLearnerAndCourse(ctx context.Context, tx *gorm.DB, learnerID, courseID uuid.UUID) (*types.CourseProgress, error)
	GetByLearnerAndCourseIDs(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, courseIDs []uuid.UUID) ([]*types.CourseProgress, error)
	ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.CourseProgress, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.CourseProgress) error
}

type courseProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseProgressRepo(db *gorm.DB, baseLog *logger.Logger) CourseProgressRepo {
	repoLog := baseLog.With("repo", "CourseProgressRepo")
	return &courseProgressRepo{db: db, log: repoLog}
}

// decode materializes LessonMap from the stored JSONB. This is the single
// read-boundary migration point; rows written by the legacy schema are
// normalized here.
func (r *courseProgressRepo) decode(row *types.CourseProgress) error {
	lessons, err := types.DecodeLessonMap(row.Lessons)
	if err != nil {
		return err
	}
	row.LessonMap = lessons
	return nil
}

func (r *courseProgressRepo) GetByLearnerAndCourse(ctx context.Context, tx *gorm.DB, learnerID, courseID uuid.UUID) (*types.CourseProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.CourseProgress
	if err := transaction.WithContext(ctx).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		First(&row).Error; err != nil {
		return nil, translate(err)
	}
	if err := r.decode(&row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *courseProgressRepo) GetByLearnerAndCourseIDs(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, courseIDs []uuid.UUID) ([]*types.CourseProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CourseProgress
	if learnerID == uuid.Nil || len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("learner_id = ? AND course_id IN ?", learnerID, courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	for _, row := range results {
		if err := r.decode(row); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (r *courseProgressRepo) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.CourseProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CourseProgress
	if learnerID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	for _, row := range results {
		if err := r.decode(row); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (r *courseProgressRepo) Save(ctx context.Context, tx *gorm.DB, row *types.CourseProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	raw, err := types.EncodeLessonMap(row.LessonMap)
	if err != nil {
		return err
	}
	row.Lessons = raw

	// Upsert on the unique (learner_id, course_id) pair. UpdateAll keeps
	// NULLable columns like completed_at writable on the update path.
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "course_id"}},
			UpdateAll: true,
		}).
		Create(row).Error; err != nil {
		return err
	}
	return nil
}
