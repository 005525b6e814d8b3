package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/repos"
	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

func testLogger(t interface{ Fatalf(string, ...interface{}) }) *logger.Logger {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func progressKey(learnerID, courseID uuid.UUID) string {
	return learnerID.String() + "|" + courseID.String()
}

// fakeCourseProgressRepo round-trips rows the way the real store does:
// Save encodes the lesson map into the JSONB column of a stored copy, reads
// decode into a fresh copy. Nothing the caller mutates after Save reaches
// the store, so tests assert on persisted state, not shared pointers.
type fakeCourseProgressRepo struct {
	mu   sync.Mutex
	rows map[string]*types.CourseProgress
}

func newFakeCourseProgressRepo() *fakeCourseProgressRepo {
	return &fakeCourseProgressRepo{rows: map[string]*types.CourseProgress{}}
}

func (f *fakeCourseProgressRepo) materialize(row *types.CourseProgress) (*types.CourseProgress, error) {
	out := *row
	lessons, err := types.DecodeLessonMap(row.Lessons)
	if err != nil {
		return nil, err
	}
	out.LessonMap = lessons
	return &out, nil
}

func (f *fakeCourseProgressRepo) GetByLearnerAndCourse(ctx context.Context, tx *gorm.DB, learnerID, courseID uuid.UUID) (*types.CourseProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[progressKey(learnerID, courseID)]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return f.materialize(row)
}

func (f *fakeCourseProgressRepo) GetByLearnerAndCourseIDs(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, courseIDs []uuid.UUID) ([]*types.CourseProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.CourseProgress
	for _, courseID := range courseIDs {
		row, ok := f.rows[progressKey(learnerID, courseID)]
		if !ok {
			continue
		}
		got, err := f.materialize(row)
		if err != nil {
			return nil, err
		}
		out = append(out, got)
	}
	return out, nil
}

func (f *fakeCourseProgressRepo) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.CourseProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.CourseProgress
	for _, row := range f.rows {
		if row.LearnerID != learnerID {
			continue
		}
		got, err := f.materialize(row)
		if err != nil {
			return nil, err
		}
		out = append(out, got)
	}
	return out, nil
}

func (f *fakeCourseProgressRepo) Save(ctx context.Context, tx *gorm.DB, row *types.CourseProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := types.EncodeLessonMap(row.LessonMap)
	if err != nil {
		return err
	}
	stored := *row
	stored.Lessons = raw
	stored.LessonMap = nil
	f.rows[progressKey(row.LearnerID, row.CourseID)] = &stored
	return nil
}

type fakePathProgressRepo struct {
	mu   sync.Mutex
	rows map[string]*types.PathProgress
}

func newFakePathProgressRepo() *fakePathProgressRepo {
	return &fakePathProgressRepo{rows: map[string]*types.PathProgress{}}
}

func (f *fakePathProgressRepo) GetByLearnerAndPath(ctx context.Context, tx *gorm.DB, learnerID, pathID uuid.UUID) (*types.PathProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[progressKey(learnerID, pathID)]
	if !ok {
		return nil, repos.ErrNotFound
	}
	out := *row
	return &out, nil
}

func (f *fakePathProgressRepo) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.PathProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.PathProgress
	for _, row := range f.rows {
		if row.LearnerID == learnerID {
			rowCopy := *row
			out = append(out, &rowCopy)
		}
	}
	return out, nil
}

func (f *fakePathProgressRepo) Save(ctx context.Context, tx *gorm.DB, row *types.PathProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *row
	f.rows[progressKey(row.LearnerID, row.PathID)] = &stored
	return nil
}

type fakePathIndexRepo struct {
	mu   sync.Mutex
	rows map[string]*types.PathCourseIndex
}

func newFakePathIndexRepo() *fakePathIndexRepo {
	return &fakePathIndexRepo{rows: map[string]*types.PathCourseIndex{}}
}

func indexKey(courseID, pathID uuid.UUID) string {
	return courseID.String() + "|" + pathID.String()
}

func (f *fakePathIndexRepo) ListByPath(ctx context.Context, tx *gorm.DB, pathID uuid.UUID) ([]*types.PathCourseIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.PathCourseIndex
	for _, row := range f.rows {
		if row.PathID == pathID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakePathIndexRepo) ListPathIDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for _, row := range f.rows {
		if row.CourseID == courseID && row.PathStatus == types.PathStatusPublished {
			out = append(out, row.PathID)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakePathIndexRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.PathCourseIndex) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[indexKey(row.CourseID, row.PathID)] = row
	return nil
}

func (f *fakePathIndexRepo) DeleteByPathAndCourses(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, courseIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, courseID := range courseIDs {
		delete(f.rows, indexKey(courseID, pathID))
	}
	return nil
}

type fakeCertificateRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.IssuedCertificate

	// conflictOnce makes the next CreateIfAbsent lose the conditional
	// write after storing a competing row, simulating a concurrent issuer.
	conflictOnce bool
}

func newFakeCertificateRepo() *fakeCertificateRepo {
	return &fakeCertificateRepo{rows: map[uuid.UUID]*types.IssuedCertificate{}}
}

func (f *fakeCertificateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.IssuedCertificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return row, nil
}

func (f *fakeCertificateRepo) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.IssuedCertificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.IssuedCertificate
	for _, row := range f.rows {
		if row.LearnerID == learnerID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeCertificateRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, row *types.IssuedCertificate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictOnce {
		f.conflictOnce = false
		winner := *row
		winner.IssuedAt = row.IssuedAt.Add(-time.Second)
		f.rows[row.ID] = &winner
		return repos.ErrConflict
	}
	if _, ok := f.rows[row.ID]; ok {
		return repos.ErrConflict
	}
	f.rows[row.ID] = row
	return nil
}

type fakeTemplateRepo struct {
	templates []*types.CertificateTemplate
}

func (f *fakeTemplateRepo) ListActiveFor(ctx context.Context, tx *gorm.DB, completionType types.CompletionType, targetID uuid.UUID) ([]*types.CertificateTemplate, error) {
	var out []*types.CertificateTemplate
	for _, tmpl := range f.templates {
		if !tmpl.Active || tmpl.CompletionType != completionType {
			continue
		}
		if tmpl.TargetID != nil && *tmpl.TargetID != targetID {
			continue
		}
		out = append(out, tmpl)
	}
	return out, nil
}

func (f *fakeTemplateRepo) Create(ctx context.Context, tx *gorm.DB, row *types.CertificateTemplate) error {
	f.templates = append(f.templates, row)
	return nil
}

type fakeCatalogRepo struct {
	learners map[uuid.UUID]*types.Learner
	courses  map[uuid.UUID]*types.Course
	paths    map[uuid.UUID]*types.Path
	lessons  map[uuid.UUID][]*types.Lesson
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		learners: map[uuid.UUID]*types.Learner{},
		courses:  map[uuid.UUID]*types.Course{},
		paths:    map[uuid.UUID]*types.Path{},
		lessons:  map[uuid.UUID][]*types.Lesson{},
	}
}

func (f *fakeCatalogRepo) GetLearner(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Learner, error) {
	row, ok := f.learners[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return row, nil
}

func (f *fakeCatalogRepo) GetCourse(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error) {
	row, ok := f.courses[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return row, nil
}

func (f *fakeCatalogRepo) GetPath(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Path, error) {
	row, ok := f.paths[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return row, nil
}

func (f *fakeCatalogRepo) ListLessonsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Lesson, error) {
	return f.lessons[courseID], nil
}

func (f *fakeCatalogRepo) ReplacePathCourses(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, rows []*types.PathCourse) error {
	path, ok := f.paths[pathID]
	if !ok {
		return repos.ErrNotFound
	}
	path.Courses = rows
	return nil
}

func (f *fakeCatalogRepo) SetPathStatus(ctx context.Context, tx *gorm.DB, pathID uuid.UUID, status string) error {
	path, ok := f.paths[pathID]
	if !ok {
		return repos.ErrNotFound
	}
	path.Status = status
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeNotifier) Publish(ctx context.Context, evt Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

func (f *fakeNotifier) byType(eventType string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, evt := range f.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// fakeThrottle denies unless allow is set, and records keys it saw.
type fakeThrottle struct {
	mu    sync.Mutex
	allow bool
	keys  []string
}

func (f *fakeThrottle) Allow(ctx context.Context, key string, window time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return f.allow
}

type fakeCascade struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (f *fakeCascade) OnCourseCompleted(ctx context.Context, learnerID, courseID uuid.UUID, completedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, courseID)
}
