package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-assessment-service/internal/domain"
)

// QuestionBank reads questions from Postgres. Options are a JSONB array of {id,text}; the
// correct answer column is either a JSON array or the legacy "a | b" text form.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

type storedOption struct {
	ID   json.RawMessage `json:"id"`
	Text string          `json:"text"`
}

func (b *QuestionBank) ListQuestions(ctx context.Context, groupID, levelID string) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id, group_id, level_id, text, kind, options, correct_answer
		FROM questions
		WHERE group_id = $1 AND ($2 = '' OR level_id = $2)
		ORDER BY id`, groupID, levelID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var (
			q       domain.Question
			kind    string
			options []byte
			correct string
		)
		if err := rows.Scan(&q.ID, &q.GroupID, &q.LevelID, &q.Text, &kind, &options, &correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Kind = domain.QuestionKind(kind)
		if q.Options, err = decodeOptions(options, parseCorrect(correct)); err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func decodeOptions(raw []byte, correct domain.OptionSet) ([]domain.Option, error) {
	var stored []storedOption
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	out := make([]domain.Option, 0, len(stored))
	for _, opt := range stored {
		// Ids may be numbers in older rows.
		var ids domain.OptionSet
		if err := json.Unmarshal(opt.ID, &ids); err != nil || ids.Len() != 1 {
			return nil, fmt.Errorf("option id %s", string(opt.ID))
		}
		out = append(out, domain.Option{ID: ids[0], Text: opt.Text, Correct: correct.Contains(ids[0])})
	}
	return out, nil
}

func parseCorrect(raw string) domain.OptionSet {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var set domain.OptionSet
		if err := json.Unmarshal([]byte(raw), &set); err == nil {
			return set
		}
	}
	return domain.ParseOptionSet(raw)
}
