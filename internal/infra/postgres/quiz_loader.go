package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-assessment-service/internal/domain"
)

const quizColumns = `id, group_id, title, duration_minutes, negative_marking, start_at, end_at, visible, question_count`

// QuizLoader loads quiz metadata from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, quizID)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("quiz %s: %w", quizID, domain.ErrQuizNotFound)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

func (l *QuizLoader) LoadQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := l.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY group_id, start_at NULLS FIRST, id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		quiz         domain.Quiz
		startAt, end *time.Time
	)
	err := row.Scan(&quiz.ID, &quiz.GroupID, &quiz.Title, &quiz.DurationMinutes, &quiz.NegativeMarking,
		&startAt, &end, &quiz.Visible, &quiz.QuestionCount)
	if err != nil {
		return domain.Quiz{}, err
	}
	if startAt != nil {
		quiz.StartAt = startAt.UTC()
	}
	if end != nil {
		quiz.EndAt = end.UTC()
	}
	return quiz, nil
}
