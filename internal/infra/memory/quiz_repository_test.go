package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-assessment-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.Calls() != 1 {
		t.Fatalf("expected loader once, got %d", loader.Calls())
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.Calls() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.Calls())
	}

	repo.Invalidate(context.Background(), "quiz-1")
	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 3: %v", err)
	}
	if loader.Calls() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.Calls())
	}
}

func TestQuizRepositoryCollapsesConcurrentMisses(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}),
		delay:      20 * time.Millisecond,
	}
	repo := NewQuizRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
				t.Errorf("get quiz: %v", err)
			}
		}()
	}
	wg.Wait()
	if loader.Calls() != 1 {
		t.Fatalf("expected a single load, got %d", loader.Calls())
	}
}

func TestQuizRepositoryMissing(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStaticLoaderTracksQuestionCount(t *testing.T) {
	ctx := context.Background()
	loader := NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()})
	store := NewMappingStore().OnCountChange(loader.SetQuestionCount)

	if _, err := store.CommitMappings(ctx, "quiz-1", []domain.Mapping{{ID: "m1", QuizID: "quiz-1", QuestionID: "q1"}}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	quizzes, err := loader.LoadQuizzes(ctx)
	if err != nil {
		t.Fatalf("load quizzes: %v", err)
	}
	if len(quizzes) != 1 || quizzes[0].QuestionCount != 1 {
		t.Fatalf("expected question count 1, got %+v", quizzes)
	}
}

type countingLoader struct {
	QuizLoader
	delay time.Duration

	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func (l *countingLoader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:              "quiz-1",
		GroupID:         "g1",
		Title:           "Arithmetic",
		DurationMinutes: 15,
		Visible:         true,
	}
}
