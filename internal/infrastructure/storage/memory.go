// Package storage implements the snapshot gateway over Redis, Postgres or memory.
package storage

import (
	"context"
	"sync"

	"WeeklyTop/internal/domain"
	"WeeklyTop/internal/ports"
)

// MemoryStore keeps the snapshot in process. Used for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	payload []byte
}

var _ ports.SnapshotStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores an encoded copy so callers cannot mutate the stored value.
func (s *MemoryStore) Save(_ context.Context, snapshot domain.WeeklySnapshot) error {
	payload, err := encode(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.payload = payload
	s.mu.Unlock()
	return nil
}

// Current decodes the last saved snapshot; found is false before the first Save.
func (s *MemoryStore) Current(_ context.Context) (domain.WeeklySnapshot, bool, error) {
	s.mu.RLock()
	payload := s.payload
	s.mu.RUnlock()
	if payload == nil {
		return domain.WeeklySnapshot{}, false, nil
	}
	snap, ok := decode(payload)
	return snap, ok, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
