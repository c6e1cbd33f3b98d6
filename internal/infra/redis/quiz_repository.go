package redis

import (
	"context"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/infra/memory"
)

// QuizRepository caches quiz metadata in Redis (one hash per quiz) and falls back to a loader
// on cache miss:
//
//	HSET quiz:{quizID}:meta group {groupID} title {title} duration {minutes} ...
type QuizRepository struct {
	client *redis.Client
	loader memory.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := metaKey(quizID)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return quizFromHash(quizID, fields), nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return quizFromHash(quizID, fields), nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key, quizToHash(quiz))
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// ListQuizzes reads through to the loader; only single quizzes are cached.
func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return r.loader.LoadQuizzes(ctx)
}

// Invalidate drops the cached hash after the quiz's mappings changed.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) {
	if err := r.client.Del(ctx, metaKey(quizID)).Err(); err != nil {
		log.Printf("invalidate quiz %s: %v", quizID, err)
	}
}

func metaKey(quizID string) string {
	return "quiz:" + quizID + ":meta"
}

func quizToHash(q domain.Quiz) map[string]interface{} {
	return map[string]interface{}{
		"group":    q.GroupID,
		"title":    q.Title,
		"duration": q.DurationMinutes,
		"negative": strconv.FormatBool(q.NegativeMarking),
		"visible":  strconv.FormatBool(q.Visible),
		"start":    formatTime(q.StartAt),
		"end":      formatTime(q.EndAt),
		"count":    q.QuestionCount,
	}
}

func quizFromHash(quizID string, fields map[string]string) domain.Quiz {
	duration, _ := strconv.Atoi(fields["duration"])
	count, _ := strconv.Atoi(fields["count"])
	negative, _ := strconv.ParseBool(fields["negative"])
	visible, _ := strconv.ParseBool(fields["visible"])
	return domain.Quiz{
		ID:              quizID,
		GroupID:         fields["group"],
		Title:           fields["title"],
		DurationMinutes: duration,
		NegativeMarking: negative,
		Visible:         visible,
		StartAt:         parseTime(fields["start"]),
		EndAt:           parseTime(fields["end"]),
		QuestionCount:   count,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
