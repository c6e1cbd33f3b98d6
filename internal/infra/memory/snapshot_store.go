package memory

import (
	"context"
	"encoding/json"
	"sync"

	"quiz-assessment-service/internal/domain"
)

// SnapshotStore keeps attempt snapshots in process memory. Snapshots are stored encoded so
// callers never share state with the store. It does not survive restarts; use the Redis or
// SQLite store outside tests.
type SnapshotStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{items: make(map[string][]byte)}
}

func (s *SnapshotStore) Load(_ context.Context, key string) (*domain.AttemptSnapshot, error) {
	s.mu.RLock()
	raw, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var snap domain.AttemptSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SnapshotStore) Save(_ context.Context, key string, snapshot domain.AttemptSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *SnapshotStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}
