package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/pathlight-hq/pathlight-backend/internal/types"
)

type progressFixture struct {
	svc      ProgressService
	repo     *fakeCourseProgressRepo
	catalog  *fakeCatalogRepo
	notifier *fakeNotifier
	cascade  *fakeCascade
}

func newProgressFixture(t *testing.T, throttle *fakeThrottle) progressFixture {
	log := testLogger(t)
	repo := newFakeCourseProgressRepo()
	catalog := newFakeCatalogRepo()
	enrollment := NewEnrollmentService(nil, log, repo, catalog)
	notifier := &fakeNotifier{}
	cascade := &fakeCascade{}
	svc := NewProgressService(nil, log, enrollment, repo, throttle, notifier, cascade)
	return progressFixture{svc: svc, repo: repo, catalog: catalog, notifier: notifier, cascade: cascade}
}

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }
func int64Ptr(i int64) *int64     { return &i }

func TestApplyProgressClampsPercent(t *testing.T) {
	svc := newProgressFixture(t, &fakeThrottle{allow: true}).svc
	learnerID := uuid.New()
	courseID := uuid.New()
	lessonID := uuid.New()

	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"negative", -20, 0},
		{"in range", 42.5, 42.5},
		{"over 100", 180, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.ApplyProgress(context.Background(), nil, ProgressInput{
				LearnerID:       learnerID,
				CourseID:        courseID,
				LessonID:        lessonID,
				PercentComplete: floatPtr(tc.in),
			})
			if err != nil {
				t.Fatalf("ApplyProgress: %v", err)
			}
			got := res.Progress.LessonMap[lessonID.String()].PercentComplete
			if got != tc.want {
				t.Fatalf("lesson percent = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestApplyProgressMonotonicLessonCompletion(t *testing.T) {
	svc := newProgressFixture(t, &fakeThrottle{allow: true}).svc
	learnerID := uuid.New()
	courseID := uuid.New()
	lessonID := uuid.New()

	res, err := svc.ApplyProgress(context.Background(), nil, ProgressInput{
		LearnerID: learnerID,
		CourseID:  courseID,
		LessonID:  lessonID,
		Completed: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !res.LessonJustCompleted {
		t.Fatalf("first completion not flagged")
	}
	lesson := res.Progress.LessonMap[lessonID.String()]
	if !lesson.Completed || lesson.PercentComplete != 100 || lesson.CompletedAt == nil {
		t.Fatalf("completion state wrong: %+v", lesson)
	}
	completedAt := *lesson.CompletedAt

	// Re-reporting low progress, or completed=false, can never un-finish.
	attacks := []ProgressInput{
		{LearnerID: learnerID, CourseID: courseID, LessonID: lessonID, PercentComplete: floatPtr(10)},
		{LearnerID: learnerID, CourseID: courseID, LessonID: lessonID, Completed: boolPtr(false)},
		{LearnerID: learnerID, CourseID: courseID, LessonID: lessonID, Completed: boolPtr(true), PercentComplete: floatPtr(5)},
	}
	for i, in := range attacks {
		res, err := svc.ApplyProgress(context.Background(), nil, in)
		if err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
		lesson := res.Progress.LessonMap[lessonID.String()]
		if !lesson.Completed || lesson.PercentComplete != 100 {
			t.Fatalf("replay %d reverted completion: %+v", i, lesson)
		}
		if !lesson.CompletedAt.Equal(completedAt) {
			t.Fatalf("replay %d moved completed_at", i)
		}
		if res.LessonJustCompleted {
			t.Fatalf("replay %d re-flagged completion", i)
		}
	}
}

func TestApplyProgressCourseCompletionScenario(t *testing.T) {
	// Two-lesson course: finish lesson 1 (50%), finish lesson 2 (100%,
	// course completes), then re-submit lesson 1 at 10%.
	fix := newProgressFixture(t, &fakeThrottle{allow: true})
	svc, notifier, cascade := fix.svc, fix.notifier, fix.cascade
	learnerID := uuid.New()
	courseID := uuid.New()
	lesson1 := uuid.New()
	lesson2 := uuid.New()
	fix.catalog.lessons[courseID] = []*types.Lesson{
		{ID: lesson1, CourseID: courseID, Position: 0},
		{ID: lesson2, CourseID: courseID, Position: 1},
	}

	res, err := svc.ApplyProgress(context.Background(), nil, ProgressInput{
		LearnerID: learnerID, CourseID: courseID, LessonID: lesson1, Completed: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("lesson 1: %v", err)
	}
	if res.Progress.PercentComplete != 50 {
		t.Fatalf("after lesson 1: percent = %v, want 50", res.Progress.PercentComplete)
	}
	if res.Progress.Completed || res.CourseJustCompleted {
		t.Fatalf("course completed early")
	}

	res, err = svc.ApplyProgress(context.Background(), nil, ProgressInput{
		LearnerID: learnerID, CourseID: courseID, LessonID: lesson2, Completed: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("lesson 2 complete: %v", err)
	}
	if res.Progress.PercentComplete != 100 || !res.Progress.Completed {
		t.Fatalf("course not completed: percent=%v completed=%v", res.Progress.PercentComplete, res.Progress.Completed)
	}
	if !res.CourseJustCompleted {
		t.Fatalf("course completion not flagged")
	}
	if res.Progress.CompletedAt == nil {
		t.Fatalf("course completed_at not set")
	}
	completedAt := *res.Progress.CompletedAt

	if len(cascade.calls) != 1 || cascade.calls[0] != courseID {
		t.Fatalf("cascade calls = %v, want one for course", cascade.calls)
	}
	if got := notifier.byType(EventCourseCompleted); len(got) != 1 {
		t.Fatalf("course completed events = %d, want 1", len(got))
	}

	// Re-submit lesson 1 at 10%: course stays 100%/completed.
	res, err = svc.ApplyProgress(context.Background(), nil, ProgressInput{
		LearnerID: learnerID, CourseID: courseID, LessonID: lesson1, PercentComplete: floatPtr(10),
	})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if res.Progress.PercentComplete != 100 || !res.Progress.Completed {
		t.Fatalf("resubmit reverted course: percent=%v completed=%v", res.Progress.PercentComplete, res.Progress.Completed)
	}
	if !res.Progress.CompletedAt.Equal(completedAt) {
		t.Fatalf("resubmit moved course completed_at")
	}
	if res.CourseJustCompleted {
		t.Fatalf("resubmit re-flagged course completion")
	}
	if len(cascade.calls) != 1 {
		t.Fatalf("cascade re-ran on resubmit")
	}
}

func TestApplyProgressThrottlesEmission(t *testing.T) {
	throttle := &fakeThrottle{allow: false}
	fix := newProgressFixture(t, throttle)
	svc, notifier := fix.svc, fix.notifier
	learnerID := uuid.New()
	courseID := uuid.New()
	lessonID := uuid.New()

	res, err := svc.ApplyProgress(context.Background(), nil, ProgressInput{
		LearnerID: learnerID, CourseID: courseID, LessonID: lessonID, PercentComplete: floatPtr(30),
	})
	if err != nil {
		t.Fatalf("ApplyProgress: %v", err)
	}
	if res.ShouldEmitEvent {
		t.Fatalf("emission not throttled")
	}
	if got := notifier.byType(EventProgressChanged); len(got) != 0 {
		t.Fatalf("progress events = %d, want 0 while throttled", len(got))
	}
	if len(throttle.keys) != 1 {
		t.Fatalf("throttle consulted %d times, want 1", len(throttle.keys))
	}

	// Completion is never suppressed, throttled or not.
	res, err = svc.ApplyProgress(context.Background(), nil, ProgressInput{
		LearnerID: learnerID, CourseID: courseID, LessonID: lessonID, Completed: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !res.ShouldEmitEvent || !res.LessonJustCompleted {
		t.Fatalf("completion suppressed: %+v", res)
	}
	if got := notifier.byType(EventLessonCompleted); len(got) != 1 {
		t.Fatalf("lesson completed events = %d, want 1", len(got))
	}
}

func TestApplyProgressRecordsPosition(t *testing.T) {
	svc := newProgressFixture(t, &fakeThrottle{allow: true}).svc
	learnerID := uuid.New()
	courseID := uuid.New()
	lessonID := uuid.New()

	res, err := svc.ApplyProgress(context.Background(), nil, ProgressInput{
		LearnerID:  learnerID,
		CourseID:   courseID,
		LessonID:   lessonID,
		PositionMS: int64Ptr(93500),
	})
	if err != nil {
		t.Fatalf("ApplyProgress: %v", err)
	}
	lesson := res.Progress.LessonMap[lessonID.String()]
	if lesson.CurrentPositionMS != 93500 {
		t.Fatalf("lesson position = %d", lesson.CurrentPositionMS)
	}
	if res.Progress.LastPositionMS != 93500 {
		t.Fatalf("course last position = %d", res.Progress.LastPositionMS)
	}
	if lesson.StartedAt == nil {
		t.Fatalf("first touch did not stamp started_at")
	}
	if res.Progress.CurrentLessonID == nil || *res.Progress.CurrentLessonID != lessonID {
		t.Fatalf("current lesson = %v", res.Progress.CurrentLessonID)
	}
}

func TestApplyProgressPersistsAcrossReloads(t *testing.T) {
	// Assert on what a fresh read returns, not on the row ApplyProgress
	// handed back: completion state must survive the write-encode-read
	// round trip through the store.
	fix := newProgressFixture(t, &fakeThrottle{allow: true})
	learnerID := uuid.New()
	courseID := uuid.New()
	lessonID := uuid.New()

	if _, err := fix.svc.ApplyProgress(context.Background(), nil, ProgressInput{
		LearnerID: learnerID, CourseID: courseID, LessonID: lessonID,
		Completed: boolPtr(true), PositionMS: int64Ptr(4200),
	}); err != nil {
		t.Fatalf("ApplyProgress: %v", err)
	}

	reloaded, err := fix.repo.GetByLearnerAndCourse(context.Background(), nil, learnerID, courseID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PercentComplete != 100 || !reloaded.Completed {
		t.Fatalf("completion lost on reload: percent=%v completed=%v", reloaded.PercentComplete, reloaded.Completed)
	}
	if reloaded.CompletedAt == nil {
		t.Fatalf("completed_at lost on reload")
	}
	lesson := reloaded.LessonMap[lessonID.String()]
	if lesson == nil {
		t.Fatalf("lesson entry lost on reload")
	}
	if !lesson.Completed || lesson.PercentComplete != 100 || lesson.CurrentPositionMS != 4200 {
		t.Fatalf("lesson state lost on reload: %+v", lesson)
	}

	// Mutating the returned row must not leak into the store.
	reloaded.Completed = false
	reloaded.LessonMap[lessonID.String()].PercentComplete = 1
	again, err := fix.repo.GetByLearnerAndCourse(context.Background(), nil, learnerID, courseID)
	if err != nil {
		t.Fatalf("second reload: %v", err)
	}
	if !again.Completed || again.LessonMap[lessonID.String()].PercentComplete != 100 {
		t.Fatalf("store shares state with callers: %+v", again.LessonMap[lessonID.String()])
	}
}

func TestApplyProgressAutoEnrolls(t *testing.T) {
	fix := newProgressFixture(t, &fakeThrottle{allow: true})
	svc, repo := fix.svc, fix.repo
	learnerID := uuid.New()
	courseID := uuid.New()

	res, err := svc.ApplyProgress(context.Background(), nil, ProgressInput{
		LearnerID:       learnerID,
		CourseID:        courseID,
		LessonID:        uuid.New(),
		PercentComplete: floatPtr(15),
	})
	if err != nil {
		t.Fatalf("ApplyProgress: %v", err)
	}
	if res.Progress.Origin != types.OriginSelfEnrolled {
		t.Fatalf("auto-enroll origin = %s", res.Progress.Origin)
	}
	if _, err := repo.GetByLearnerAndCourse(context.Background(), nil, learnerID, courseID); err != nil {
		t.Fatalf("enrollment row missing: %v", err)
	}
}
