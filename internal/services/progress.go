package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	redisclient "github.com/pathlight-hq/pathlight-backend/internal/clients/redis"
	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/repos"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

var progressTracer = otel.Tracer("pathlight/progress")

// emitWindow rate-limits "progress changed" notifications per
// (learner, course, lesson). Completion events are never suppressed.
const emitWindow = 30 * time.Second

type ProgressInput struct {
	LearnerID       uuid.UUID
	CourseID        uuid.UUID
	LessonID        uuid.UUID
	Origin          types.EnrollmentOrigin
	PositionMS      *int64
	PercentComplete *float64
	Completed       *bool
}

type ProgressResult struct {
	Progress            *types.CourseProgress
	ShouldEmitEvent     bool
	LessonJustCompleted bool
	CourseJustCompleted bool
}

// CompletionCascade is the best-effort fan-out run after a course completes:
// certificate issuance plus rollup recomputation for affected published
// paths. Implementations swallow their own errors; a cascade failure never
// fails the progress write that triggered it.
type CompletionCascade interface {
	OnCourseCompleted(ctx context.Context, learnerID, courseID uuid.UUID, completedAt time.Time)
}

type ProgressService interface {
	ApplyProgress(ctx context.Context, tx *gorm.DB, in ProgressInput) (ProgressResult, error)
	GetCourseProgress(ctx context.Context, tx *gorm.DB, learnerID, courseID uuid.UUID) (*types.CourseProgress, error)
}

type progressService struct {
	db         *gorm.DB
	log        *logger.Logger
	enrollment EnrollmentService
	repo       repos.CourseProgressRepo
	throttle   redisclient.Throttle
	notifier   ProgressNotifier
	cascade    CompletionCascade
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	enrollment EnrollmentService,
	repo repos.CourseProgressRepo,
	throttle redisclient.Throttle,
	notifier ProgressNotifier,
	cascade CompletionCascade,
) ProgressService {
	return &progressService{
		db:         db,
		log:        baseLog.With("service", "ProgressService"),
		enrollment: enrollment,
		repo:       repo,
		throttle:   throttle,
		notifier:   notifier,
		cascade:    cascade,
	}
}

// ApplyProgress applies one lesson telemetry event. Inputs are clamped, never
// rejected, and completion state is monotonic, so duplicate or reordered
// deliveries of the same event converge on the same stored state.
func (s *progressService) ApplyProgress(ctx context.Context, tx *gorm.DB, in ProgressInput) (ProgressResult, error) {
	ctx, span := progressTracer.Start(ctx, "ApplyProgress")
	defer span.End()
	span.SetAttributes(
		attribute.String("course_id", in.CourseID.String()),
		attribute.String("lesson_id", in.LessonID.String()),
	)

	if in.LearnerID == uuid.Nil || in.CourseID == uuid.Nil || in.LessonID == uuid.Nil {
		return ProgressResult{}, fmt.Errorf("learner, course and lesson ids are required")
	}

	row, err := s.enrollment.Enroll(ctx, tx, in.LearnerID, in.CourseID, in.Origin)
	if err != nil {
		return ProgressResult{}, err
	}
	if row.LessonMap == nil {
		row.LessonMap = map[string]*types.LessonProgress{}
	}

	now := time.Now().UTC()
	lessonKey := in.LessonID.String()
	lesson := row.LessonMap[lessonKey]
	if lesson == nil {
		lesson = &types.LessonProgress{StartedAt: &now}
		row.LessonMap[lessonKey] = lesson
	}
	if lesson.StartedAt == nil {
		lesson.StartedAt = &now
	}
	lesson.LastAccessedAt = &now

	lessonJustCompleted := false
	switch {
	case lesson.Completed:
		// Re-reporting a finished lesson can never un-finish it.
		lesson.PercentComplete = 100
	case in.Completed != nil && *in.Completed:
		lesson.PercentComplete = 100
		lesson.Completed = true
		lesson.CompletedAt = &now
		lessonJustCompleted = true
	case in.PercentComplete != nil:
		lesson.PercentComplete = types.ClampPercent(*in.PercentComplete)
	}

	if in.PositionMS != nil {
		lesson.CurrentPositionMS = *in.PositionMS
		row.LastPositionMS = *in.PositionMS
	}

	lessonID := in.LessonID
	row.CurrentLessonID = &lessonID
	if row.StartedAt == nil {
		row.StartedAt = &now
	}
	row.LastAccessedAt = &now
	row.UpdatedAt = now

	// Course percent is the mean over lessons recorded in the map: the set
	// seeded at enrollment plus any touched since. Lessons added to the
	// course after enrollment do not count as zero until touched.
	pct := meanLessonPercent(row.LessonMap)
	courseJustCompleted := false
	if row.Completed {
		pct = 100
	} else if pct >= 100 && len(row.LessonMap) > 0 {
		row.Completed = true
		row.CompletedAt = &now
		courseJustCompleted = true
	}
	row.PercentComplete = pct

	throttleKey := fmt.Sprintf("%s:%s:%s", in.LearnerID, in.CourseID, in.LessonID)
	shouldEmit := lessonJustCompleted || courseJustCompleted
	if s.throttle != nil {
		if s.throttle.Allow(ctx, throttleKey, emitWindow) {
			shouldEmit = true
		}
	} else {
		shouldEmit = true
	}

	if err := s.repo.Save(ctx, tx, row); err != nil {
		return ProgressResult{}, err
	}

	s.emit(ctx, in, row, shouldEmit, lessonJustCompleted, courseJustCompleted, now)

	if courseJustCompleted && s.cascade != nil {
		s.cascade.OnCourseCompleted(ctx, in.LearnerID, in.CourseID, now)
	}

	return ProgressResult{
		Progress:            row,
		ShouldEmitEvent:     shouldEmit,
		LessonJustCompleted: lessonJustCompleted,
		CourseJustCompleted: courseJustCompleted,
	}, nil
}

func (s *progressService) GetCourseProgress(ctx context.Context, tx *gorm.DB, learnerID, courseID uuid.UUID) (*types.CourseProgress, error) {
	return s.repo.GetByLearnerAndCourse(ctx, tx, learnerID, courseID)
}

func (s *progressService) emit(ctx context.Context, in ProgressInput, row *types.CourseProgress, shouldEmit, lessonJustCompleted, courseJustCompleted bool, now time.Time) {
	if s.notifier == nil {
		return
	}
	courseID := in.CourseID
	lessonID := in.LessonID
	if shouldEmit {
		s.notifier.Publish(ctx, Event{
			Type:       EventProgressChanged,
			LearnerID:  in.LearnerID,
			CourseID:   &courseID,
			LessonID:   &lessonID,
			Percent:    row.PercentComplete,
			OccurredAt: now,
		})
	}
	if lessonJustCompleted {
		s.notifier.Publish(ctx, Event{
			Type:       EventLessonCompleted,
			LearnerID:  in.LearnerID,
			CourseID:   &courseID,
			LessonID:   &lessonID,
			Percent:    100,
			OccurredAt: now,
		})
	}
	if courseJustCompleted {
		s.notifier.Publish(ctx, Event{
			Type:       EventCourseCompleted,
			LearnerID:  in.LearnerID,
			CourseID:   &courseID,
			Percent:    100,
			OccurredAt: now,
		})
	}
}

func meanLessonPercent(lessons map[string]*types.LessonProgress) float64 {
	if len(lessons) == 0 {
		return 0
	}
	var sum float64
	for _, lp := range lessons {
		if lp == nil {
			continue
		}
		sum += lp.PercentComplete
	}
	return sum / float64(len(lessons))
}
