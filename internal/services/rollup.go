package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/repos"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

var rollupTracer = otel.Tracer("pathlight/rollup")

// rollupFanOutLimit bounds concurrent path recomputations per completion
// event.
const rollupFanOutLimit = 4

// PathRollup is the derived path-level state. Producing it is pure; the
// timestamp fields already carry the preservation rules applied against the
// existing record, so persisting it never corrupts history on recompute.
type PathRollup struct {
	TotalCourses     int
	CompletedCourses int
	PercentComplete  int
	Status           types.PathStatus
	NextCourseID     *uuid.UUID
	StartedAt        *time.Time
	CompletedAt      *time.Time
	LastActivityAt   *time.Time
}

// ComputeRollup derives path state from the path's ordered course list and
// the learner's per-course progress. Absent progress counts as not started.
// Idempotent: same snapshots in, same rollup out.
func ComputeRollup(pathCourses []*types.PathCourse, progressByCourse map[uuid.UUID]*types.CourseProgress, existing *types.PathProgress, now time.Time) PathRollup {
	r := PathRollup{TotalCourses: len(pathCourses)}

	anyStarted := false
	for _, pc := range pathCourses {
		cp := progressByCourse[pc.CourseID]
		if cp == nil {
			continue
		}
		if cp.Completed {
			r.CompletedCourses++
		}
		if cp.StartedAt != nil || cp.PercentComplete > 0 || cp.Completed {
			anyStarted = true
		}
		if cp.StartedAt != nil && (r.StartedAt == nil || cp.StartedAt.Before(*r.StartedAt)) {
			startedAt := *cp.StartedAt
			r.StartedAt = &startedAt
		}
		if cp.LastAccessedAt != nil && (r.LastActivityAt == nil || cp.LastAccessedAt.After(*r.LastActivityAt)) {
			lastActivity := *cp.LastAccessedAt
			r.LastActivityAt = &lastActivity
		}
	}

	if r.TotalCourses > 0 {
		r.PercentComplete = int(math.Round(100 * float64(r.CompletedCourses) / float64(r.TotalCourses)))
	}

	switch {
	case r.TotalCourses > 0 && r.CompletedCourses == r.TotalCourses:
		r.Status = types.PathCompleted
	case anyStarted:
		r.Status = types.PathInProgress
	default:
		r.Status = types.PathNotStarted
	}

	for _, pc := range pathCourses {
		if !pc.Required {
			continue
		}
		cp := progressByCourse[pc.CourseID]
		if cp == nil || !cp.Completed {
			courseID := pc.CourseID
			r.NextCourseID = &courseID
			break
		}
	}

	// Timestamps already set on the existing record are never recomputed.
	if existing != nil {
		if existing.StartedAt != nil {
			r.StartedAt = existing.StartedAt
		}
		if existing.LastActivityAt != nil && (r.LastActivityAt == nil || existing.LastActivityAt.After(*r.LastActivityAt)) {
			r.LastActivityAt = existing.LastActivityAt
		}
	}
	if existing != nil && existing.CompletedAt != nil {
		r.CompletedAt = existing.CompletedAt
	} else if r.Status == types.PathCompleted {
		completedAt := now
		r.CompletedAt = &completedAt
	}

	return r
}

type RollupService interface {
	StartPath(ctx context.Context, tx *gorm.DB, learnerID, pathID uuid.UUID, origin types.EnrollmentOrigin) (*types.PathProgress, error)
	RecomputePath(ctx context.Context, tx *gorm.DB, learnerID, pathID uuid.UUID) (*types.PathProgress, error)
	GetPathProgress(ctx context.Context, tx *gorm.DB, learnerID, pathID uuid.UUID) (*types.PathProgress, error)

	// CompletionCascade
	OnCourseCompleted(ctx context.Context, learnerID, courseID uuid.UUID, completedAt time.Time)
}

type rollupService struct {
	db           *gorm.DB
	log          *logger.Logger
	catalog      repos.CatalogRepo
	pathRepo     repos.PathProgressRepo
	progressRepo repos.CourseProgressRepo
	index        PathIndexService
	certs        CertificateService
	notifier     ProgressNotifier
}

func NewRollupService(
	db *gorm.DB,
	baseLog *logger.Logger,
	catalog repos.CatalogRepo,
	pathRepo repos.PathProgressRepo,
	progressRepo repos.CourseProgressRepo,
	index PathIndexService,
	certs CertificateService,
	notifier ProgressNotifier,
) RollupService {
	return &rollupService{
		db:           db,
		log:          baseLog.With("service", "RollupService"),
		catalog:      catalog,
		pathRepo:     pathRepo,
		progressRepo: progressRepo,
		index:        index,
		certs:        certs,
		notifier:     notifier,
	}
}

func (s *rollupService) StartPath(ctx context.Context, tx *gorm.DB, learnerID, pathID uuid.UUID, origin types.EnrollmentOrigin) (*types.PathProgress, error) {
	if !origin.Valid() {
		origin = types.OriginSelfEnrolled
	}
	row, err := s.recompute(ctx, tx, learnerID, pathID, origin)
	if err != nil {
		return nil, err
	}
	if row.StartedAt == nil {
		now := time.Now().UTC()
		row.StartedAt = &now
		if err := s.pathRepo.Save(ctx, tx, row); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (s *rollupService) RecomputePath(ctx context.Context, tx *gorm.DB, learnerID, pathID uuid.UUID) (*types.PathProgress, error) {
	return s.recompute(ctx, tx, learnerID, pathID, types.OriginSelfEnrolled)
}

func (s *rollupService) GetPathProgress(ctx context.Context, tx *gorm.DB, learnerID, pathID uuid.UUID) (*types.PathProgress, error) {
	return s.pathRepo.GetByLearnerAndPath(ctx, tx, learnerID, pathID)
}

func (s *rollupService) recompute(ctx context.Context, tx *gorm.DB, learnerID, pathID uuid.UUID, origin types.EnrollmentOrigin) (*types.PathProgress, error) {
	ctx, span := rollupTracer.Start(ctx, "RecomputePath")
	defer span.End()
	span.SetAttributes(attribute.String("path_id", pathID.String()))

	path, err := s.catalog.GetPath(ctx, tx, pathID)
	if err != nil {
		return nil, err
	}

	existing, err := s.pathRepo.GetByLearnerAndPath(ctx, tx, learnerID, pathID)
	if err != nil && !errors.Is(err, repos.ErrNotFound) {
		return nil, err
	}

	courseIDs := make([]uuid.UUID, 0, len(path.Courses))
	for _, pc := range path.Courses {
		courseIDs = append(courseIDs, pc.CourseID)
	}
	progresses, err := s.progressRepo.GetByLearnerAndCourseIDs(ctx, tx, learnerID, courseIDs)
	if err != nil {
		return nil, err
	}
	progressByCourse := make(map[uuid.UUID]*types.CourseProgress, len(progresses))
	for _, cp := range progresses {
		progressByCourse[cp.CourseID] = cp
	}

	now := time.Now().UTC()
	rollup := ComputeRollup(path.Courses, progressByCourse, existing, now)

	row := existing
	if row == nil {
		row = &types.PathProgress{
			ID:         uuid.New(),
			LearnerID:  learnerID,
			PathID:     pathID,
			Origin:     origin,
			EnrolledAt: now,
			CreatedAt:  now,
		}
	}
	justCompleted := rollup.Status == types.PathCompleted && (existing == nil || existing.Status != types.PathCompleted)

	row.TotalCourses = rollup.TotalCourses
	row.CompletedCourses = rollup.CompletedCourses
	row.PercentComplete = rollup.PercentComplete
	row.Status = rollup.Status
	row.NextCourseID = rollup.NextCourseID
	row.StartedAt = rollup.StartedAt
	row.CompletedAt = rollup.CompletedAt
	row.LastActivityAt = rollup.LastActivityAt
	row.UpdatedAt = now

	if err := s.pathRepo.Save(ctx, tx, row); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, Event{
			Type:       EventPathProgressChanged,
			LearnerID:  learnerID,
			PathID:     &pathID,
			Percent:    float64(row.PercentComplete),
			OccurredAt: now,
		})
		if justCompleted {
			s.notifier.Publish(ctx, Event{
				Type:       EventPathCompleted,
				LearnerID:  learnerID,
				PathID:     &pathID,
				Percent:    100,
				OccurredAt: now,
			})
		}
	}

	if justCompleted && s.certs != nil {
		if _, err := s.certs.IssueForCompletion(ctx, tx, learnerID, types.CompletionPath, pathID, now); err != nil {
			s.log.Warn("path certificate issuance failed", "learner_id", learnerID, "path_id", pathID, "error", err)
		}
	}

	return row, nil
}

// OnCourseCompleted runs the completion cascade. Everything here is
// best-effort: the course progress write already succeeded, so failures are
// logged and swallowed rather than surfaced to the caller.
func (s *rollupService) OnCourseCompleted(ctx context.Context, learnerID, courseID uuid.UUID, completedAt time.Time) {
	if s.certs != nil {
		if _, err := s.certs.IssueForCompletion(ctx, nil, learnerID, types.CompletionCourse, courseID, completedAt); err != nil {
			s.log.Warn("course certificate issuance failed", "learner_id", learnerID, "course_id", courseID, "error", err)
		}
	}

	pathIDs, err := s.index.LookupPublishedPathIDs(ctx, nil, courseID, MaxPathLookupLimit)
	if err != nil {
		s.log.Warn("reverse index lookup failed", "course_id", courseID, "error", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rollupFanOutLimit)
	for _, pathID := range pathIDs {
		pathID := pathID
		g.Go(func() error {
			if _, err := s.RecomputePath(gctx, nil, learnerID, pathID); err != nil {
				s.log.Warn("path rollup recompute failed", "learner_id", learnerID, "path_id", pathID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
