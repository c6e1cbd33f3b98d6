package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/auth"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/infra/memory"
)

const (
	testQuiz  = "quiz-1"
	testGroup = "g1"
	testToken = "tok-u1"
	testUser  = "u1"
)

type fixture struct {
	clock     *testClock
	loader    *memory.StaticQuizLoader
	quizzes   *memory.QuizRepository
	mappings  *memory.MappingStore
	snapshots *countingSnapshots
	recorder  *flakyRecorder
	sessions  auth.StaticVerifier
	engine    *app.MappingEngine
	service   *app.AttemptService
}

func newFixture(t *testing.T, questions int, quiz domain.Quiz) *fixture {
	t.Helper()

	f := &fixture{
		clock:     &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		loader:    memory.NewStaticQuizLoader(map[string]domain.Quiz{quiz.ID: quiz}),
		snapshots: &countingSnapshots{SnapshotStore: memory.NewSnapshotStore()},
		recorder:  &flakyRecorder{inner: memory.NewSubmissionRecorder()},
		sessions:  auth.StaticVerifier{testToken: testUser},
	}
	f.quizzes = memory.NewQuizRepository(f.loader, time.Minute)
	f.mappings = memory.NewMappingStore().OnCountChange(f.loader.SetQuestionCount)
	f.engine = app.NewMappingEngine(bankFor(questions), f.quizzes, f.mappings)

	submitter := app.NewSubmitter(f.sessions, f.recorder)
	f.service = app.NewAttemptService(f.quizzes, f.mappings, f.snapshots, f.sessions, submitter).
		WithClock(f.clock.Now)
	return f
}

// mapAll maps every bank question to the quiz with the given marks.
func (f *fixture) mapAll(t *testing.T, marks, negative float64) domain.MappingResult {
	t.Helper()
	pool, err := f.engine.FetchAssignable(context.Background(), testQuiz, testGroup, "")
	if err != nil {
		t.Fatalf("fetch assignable: %v", err)
	}
	set := app.NewSelectionSet()
	for _, q := range pool.Unmapped {
		set.Select(q.ID)
	}
	set.SetAllMarks(marks)
	set.SetAllNegativeMarks(negative)
	res, err := f.engine.MapSelected(context.Background(), testQuiz, testGroup, set.Selections())
	if err != nil {
		t.Fatalf("map selected: %v", err)
	}
	return res
}

func (f *fixture) start(t *testing.T) *app.Attempt {
	t.Helper()
	attempt, _, err := f.service.Start(context.Background(), testToken, testQuiz)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return attempt
}

func (f *fixture) storedSnapshot(t *testing.T) *domain.AttemptSnapshot {
	t.Helper()
	snap, err := app.UserSnapshots(f.snapshots, testUser).Load(context.Background(), domain.AttemptKey(testQuiz))
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return snap
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:              testQuiz,
		GroupID:         testGroup,
		Title:           "Fractions",
		DurationMinutes: 10,
		NegativeMarking: true,
		Visible:         true,
	}
}

// sampleQuestions builds q1..qn; option "b" is always the correct one. Odd questions are
// level "easy", even ones "hard".
func sampleQuestions(n int) []domain.Question {
	out := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		level := "easy"
		if i%2 == 0 {
			level = "hard"
		}
		out = append(out, domain.Question{
			ID:      fmt.Sprintf("q%d", i),
			Text:    fmt.Sprintf("Question %d", i),
			GroupID: testGroup,
			LevelID: level,
			Kind:    domain.KindSingle,
			Options: []domain.Option{
				{ID: "a", Text: "wrong"},
				{ID: "b", Text: "right", Correct: true},
				{ID: "c", Text: "also wrong"},
			},
		})
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingSnapshots struct {
	app.SnapshotStore
	mu     sync.Mutex
	clears int
}

func (s *countingSnapshots) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
	return s.SnapshotStore.Clear(ctx, key)
}

func (s *countingSnapshots) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

var errBrokerDown = errors.New("connection refused")

type flakyRecorder struct {
	inner *memory.SubmissionRecorder
	mu    sync.Mutex
	fail  bool
	calls int
	// entered/release let a test hold a submission in flight.
	entered chan struct{}
	release chan struct{}
}

func (r *flakyRecorder) RecordSubmission(ctx context.Context, quizID, userID string, answers []domain.AnswerRecord) (domain.SubmissionAck, error) {
	r.mu.Lock()
	r.calls++
	fail := r.fail
	entered, release := r.entered, r.release
	r.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}
	if fail {
		return domain.SubmissionAck{}, errBrokerDown
	}
	return r.inner.RecordSubmission(ctx, quizID, userID, answers)
}

func (r *flakyRecorder) setFail(fail bool) {
	r.mu.Lock()
	r.fail = fail
	r.mu.Unlock()
}

func (r *flakyRecorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() { close(t.stopped) }

func bankFor(n int) *memory.QuestionBank {
	return memory.NewQuestionBank(sampleQuestions(n)...)
}
