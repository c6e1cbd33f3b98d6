package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quiz-assessment-service/internal/domain"
)

// MappingStore is an in-memory implementation of app.MappingStore. A single mutex makes every
// batch atomic.
type MappingStore struct {
	mu       sync.Mutex
	mappings map[string][]domain.Mapping
	onCount  func(quizID string, count int)
}

func NewMappingStore() *MappingStore {
	return &MappingStore{mappings: make(map[string][]domain.Mapping)}
}

// OnCountChange registers a hook called with the new question count after each batch.
func (s *MappingStore) OnCountChange(fn func(quizID string, count int)) *MappingStore {
	s.onCount = fn
	return s
}

func (s *MappingStore) ListMappings(_ context.Context, quizID string) ([]domain.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Mapping, len(s.mappings[quizID]))
	copy(out, s.mappings[quizID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *MappingStore) CommitMappings(_ context.Context, quizID string, batch []domain.Mapping) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[string]struct{}, len(s.mappings[quizID])+len(batch))
	for _, m := range s.mappings[quizID] {
		live[m.QuestionID] = struct{}{}
	}
	for _, m := range batch {
		if m.QuizID != quizID {
			return 0, domain.Invalid("quizId", fmt.Sprintf("mapping %s belongs to quiz %s", m.ID, m.QuizID))
		}
		if _, ok := live[m.QuestionID]; ok {
			return 0, fmt.Errorf("question %s: %w", m.QuestionID, domain.ErrMappingConflict)
		}
		live[m.QuestionID] = struct{}{}
	}

	s.mappings[quizID] = append(s.mappings[quizID], batch...)
	count := len(s.mappings[quizID])
	if s.onCount != nil {
		s.onCount(quizID, count)
	}
	return count, nil
}

func (s *MappingStore) RevokeMappings(_ context.Context, quizID string, mappingIDs []string) ([]domain.Mapping, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	revoke := make(map[string]struct{}, len(mappingIDs))
	for _, id := range mappingIDs {
		revoke[id] = struct{}{}
	}

	var removed []domain.Mapping
	kept := make([]domain.Mapping, 0, len(s.mappings[quizID]))
	for _, m := range s.mappings[quizID] {
		if _, ok := revoke[m.ID]; ok {
			removed = append(removed, m)
			continue
		}
		kept = append(kept, m)
	}
	s.mappings[quizID] = kept
	if s.onCount != nil && len(removed) > 0 {
		s.onCount(quizID, len(kept))
	}
	return removed, len(kept), nil
}
