package conversation

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when no conversation exists for an id.
	ErrNotFound = errors.New("conversation not found")
	// ErrVersionConflict is returned when a Put carries a stale Version
	// stamp, meaning another writer got there first.
	ErrVersionConflict = errors.New("conversation version conflict")
)

// Store persists conversations keyed by id. Put performs an optimistic
// concurrency check: the record's Version must match the stored
// version, and the store bumps it on success.
type Store interface {
	Get(ctx context.Context, id string) (*Conversation, error)
	Put(ctx context.Context, conv *Conversation) error
}

// MemoryStore keeps conversations in a map. Useful for tests and for
// running without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*Conversation)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return conv.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.convs[conv.ID]
	if ok && existing.Version != conv.Version {
		return ErrVersionConflict
	}

	stored := conv.Clone()
	stored.Version++
	s.convs[conv.ID] = stored
	conv.Version = stored.Version
	return nil
}
