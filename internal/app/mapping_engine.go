package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quiz-assessment-service/internal/domain"
)

// QuestionBank lists questions of a group, optionally filtered by level (empty levelID = all levels).
type QuestionBank interface {
	ListQuestions(ctx context.Context, groupID, levelID string) ([]domain.Question, error)
}

// QuizDirectory loads quiz definitions (from cache/backing store).
type QuizDirectory interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// MappingStore persists question-to-quiz mappings. Commit and revoke batches are all-or-nothing.
type MappingStore interface {
	// ListMappings returns the live mappings of a quiz ordered by position.
	ListMappings(ctx context.Context, quizID string) ([]domain.Mapping, error)
	// CommitMappings inserts the batch and returns the quiz's new question count.
	// It fails with domain.ErrMappingConflict if any question is already mapped to the quiz.
	CommitMappings(ctx context.Context, quizID string, batch []domain.Mapping) (int, error)
	// RevokeMappings removes the ids that still exist and returns them with the new question count.
	// Unknown ids are skipped, not treated as an error.
	RevokeMappings(ctx context.Context, quizID string, mappingIDs []string) ([]domain.Mapping, int, error)
}

// quizInvalidator is implemented by quiz caches that must drop a quiz after its mapping changes.
type quizInvalidator interface {
	Invalidate(ctx context.Context, quizID string)
}

// MappingEngine assigns bank questions to quizzes.
type MappingEngine struct {
	questions QuestionBank
	quizzes   QuizDirectory
	store     MappingStore
	now       func() time.Time
	newID     func() string
}

func NewMappingEngine(questions QuestionBank, quizzes QuizDirectory, store MappingStore) *MappingEngine {
	return &MappingEngine{
		questions: questions,
		quizzes:   quizzes,
		store:     store,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// FetchAssignable returns the group/level questions not yet mapped to the quiz, plus the quiz's
// current mappings for that level. It never writes.
func (e *MappingEngine) FetchAssignable(ctx context.Context, quizID, groupID, levelID string) (domain.Assignable, error) {
	var (
		quiz      domain.Quiz
		questions []domain.Question
		mappings  []domain.Mapping
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quiz, err = e.quizzes.GetQuiz(gctx, quizID)
		return err
	})
	g.Go(func() error {
		var err error
		questions, err = e.questions.ListQuestions(gctx, groupID, levelID)
		return err
	})
	g.Go(func() error {
		var err error
		mappings, err = e.store.ListMappings(gctx, quizID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Assignable{}, err
	}
	if quiz.GroupID != groupID {
		return domain.Assignable{}, domain.Invalid("groupId", fmt.Sprintf("quiz %s draws from group %s", quizID, quiz.GroupID))
	}

	mapped := make(map[string]struct{}, len(mappings))
	already := make([]domain.MappedQuestion, 0, len(mappings))
	for _, m := range mappings {
		mapped[m.QuestionID] = struct{}{}
		if levelID == "" || m.LevelID == levelID {
			already = append(already, m.MappedQuestion())
		}
	}

	unmapped := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if _, ok := mapped[q.ID]; ok {
			continue
		}
		unmapped = append(unmapped, q)
	}

	return domain.Assignable{
		QuizID:        quizID,
		GroupID:       groupID,
		LevelID:       levelID,
		Unmapped:      unmapped,
		AlreadyMapped: already,
	}, nil
}

// MapSelected maps every selected question to the quiz in one atomic batch.
func (e *MappingEngine) MapSelected(ctx context.Context, quizID, groupID string, selections []domain.Selection) (domain.MappingResult, error) {
	if len(selections) == 0 {
		return domain.MappingResult{}, domain.Invalid("selections", "select at least one question")
	}

	quiz, err := e.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.MappingResult{}, err
	}
	if quiz.GroupID != groupID {
		return domain.MappingResult{}, domain.Invalid("groupId", fmt.Sprintf("quiz %s draws from group %s", quizID, quiz.GroupID))
	}

	bank, err := e.questions.ListQuestions(ctx, groupID, "")
	if err != nil {
		return domain.MappingResult{}, err
	}
	byID := make(map[string]domain.Question, len(bank))
	for _, q := range bank {
		byID[q.ID] = q
	}

	// Early duplicate check for a clear error; the store re-checks inside its transaction.
	existing, err := e.store.ListMappings(ctx, quizID)
	if err != nil {
		return domain.MappingResult{}, err
	}
	mapped := make(map[string]struct{}, len(existing))
	nextPos := 0
	for _, m := range existing {
		mapped[m.QuestionID] = struct{}{}
		if m.Position >= nextPos {
			nextPos = m.Position + 1
		}
	}

	now := e.now().UTC()
	seen := make(map[string]struct{}, len(selections))
	batch := make([]domain.Mapping, 0, len(selections))
	for _, sel := range selections {
		if sel.QuestionID == "" {
			return domain.MappingResult{}, domain.Invalid("questionId", "required")
		}
		if _, dup := seen[sel.QuestionID]; dup {
			return domain.MappingResult{}, domain.Invalid("questionId", fmt.Sprintf("question %s selected twice", sel.QuestionID))
		}
		seen[sel.QuestionID] = struct{}{}

		q, ok := byID[sel.QuestionID]
		if !ok {
			return domain.MappingResult{}, domain.Invalid("questionId", fmt.Sprintf("question %s is not in group %s", sel.QuestionID, groupID))
		}
		if err := q.Validate(); err != nil {
			return domain.MappingResult{}, err
		}
		marks, negative := sel.Resolved()
		if marks < 0 || negative < 0 {
			return domain.MappingResult{}, domain.Invalid("marks", fmt.Sprintf("question %s: marks must be >= 0", q.ID))
		}
		if _, ok := mapped[q.ID]; ok {
			return domain.MappingResult{}, fmt.Errorf("question %s: %w", q.ID, domain.ErrMappingConflict)
		}

		batch = append(batch, domain.Mapping{
			ID:            e.newID(),
			QuizID:        quizID,
			QuestionID:    q.ID,
			GroupID:       groupID,
			LevelID:       q.LevelID,
			TotalMarks:    marks,
			NegativeMarks: negative,
			Position:      nextPos + len(batch),
			Question:      q,
			CreatedAt:     now,
		})
	}

	count, err := e.store.CommitMappings(ctx, quizID, batch)
	if err != nil {
		return domain.MappingResult{}, err
	}
	e.invalidate(ctx, quizID)
	log.Printf("mapped %d questions to quiz %s (count=%d)", len(batch), quizID, count)

	return domain.MappingResult{QuizID: quizID, Mapped: batch, QuestionCount: count}, nil
}

// UnmapSelected removes the given mappings in one batch. Ids that no longer exist are reported
// per item with domain.ErrNotFound and do not abort the rest of the batch.
func (e *MappingEngine) UnmapSelected(ctx context.Context, quizID string, mappingIDs []string) (domain.UnmapResult, error) {
	if len(mappingIDs) == 0 {
		return domain.UnmapResult{}, domain.Invalid("mappingIds", "select at least one mapping")
	}

	ids := make([]string, 0, len(mappingIDs))
	seen := make(map[string]struct{}, len(mappingIDs))
	for _, id := range mappingIDs {
		if id == "" {
			return domain.UnmapResult{}, domain.Invalid("mappingIds", "empty id")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	removed, count, err := e.store.RevokeMappings(ctx, quizID, ids)
	if err != nil {
		return domain.UnmapResult{}, err
	}
	e.invalidate(ctx, quizID)

	byID := make(map[string]domain.Mapping, len(removed))
	for _, m := range removed {
		byID[m.ID] = m
	}

	result := domain.UnmapResult{
		QuizID:        quizID,
		Outcomes:      make([]domain.UnmapOutcome, 0, len(ids)),
		Restored:      make([]domain.Question, 0, len(removed)),
		QuestionCount: count,
	}
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			err := fmt.Errorf("mapping %s: %w", id, domain.ErrNotFound)
			result.Outcomes = append(result.Outcomes, domain.UnmapOutcome{MappingID: id, Err: err, Error: err.Error()})
			continue
		}
		result.Outcomes = append(result.Outcomes, domain.UnmapOutcome{MappingID: id, Removed: true})
		result.Restored = append(result.Restored, m.Question)
		result.Removed++
	}
	log.Printf("unmapped %d/%d mappings from quiz %s (count=%d)", result.Removed, len(ids), quizID, count)
	return result, nil
}

func (e *MappingEngine) invalidate(ctx context.Context, quizID string) {
	if inv, ok := e.quizzes.(quizInvalidator); ok {
		inv.Invalidate(ctx, quizID)
	}
}
