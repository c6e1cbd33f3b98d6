package app

import (
	"context"

	"quiz-assessment-service/internal/domain"
)

// SnapshotStore persists attempt snapshots (in-memory, Redis, SQLite). Load returns nil, nil
// when no snapshot exists under key.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (*domain.AttemptSnapshot, error)
	Save(ctx context.Context, key string, snapshot domain.AttemptSnapshot) error
	Clear(ctx context.Context, key string) error
}

type userSnapshots struct {
	store  SnapshotStore
	prefix string
}

// UserSnapshots scopes a shared snapshot store to one user so that several users attempting
// the same quiz do not share the quiz_attempt_{quizId} key.
func UserSnapshots(store SnapshotStore, userID string) SnapshotStore {
	if userID == "" {
		return store
	}
	return userSnapshots{store: store, prefix: "user:" + userID + ":"}
}

func (s userSnapshots) Load(ctx context.Context, key string) (*domain.AttemptSnapshot, error) {
	return s.store.Load(ctx, s.prefix+key)
}

func (s userSnapshots) Save(ctx context.Context, key string, snapshot domain.AttemptSnapshot) error {
	return s.store.Save(ctx, s.prefix+key, snapshot)
}

func (s userSnapshots) Clear(ctx context.Context, key string) error {
	return s.store.Clear(ctx, s.prefix+key)
}
