// Package portrait owns listener portraits: building them from an artist
// list and storing them for the conversation and recommendation pipelines.
package portrait

import (
	"context"
	"errors"
	"sync"

	"github.com/crateguide/crateguide/pkg/models"
)

// ErrNotFound is returned when no portrait exists for the given id.
var ErrNotFound = errors.New("portrait not found")

// Store is durable keyed portrait lookup.
type Store interface {
	Get(ctx context.Context, portraitID string) (*models.Portrait, error)
	Put(ctx context.Context, portrait *models.Portrait) error
}

// MemoryStore is an in-process Store used in tests and single-node
// deployments without Postgres.
type MemoryStore struct {
	mu        sync.RWMutex
	portraits map[string]models.Portrait
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{portraits: make(map[string]models.Portrait)}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, portraitID string) (*models.Portrait, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portraits[portraitID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := p
	copied.Normalize()
	return &copied, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, portrait *models.Portrait) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.portraits[portrait.ID] = *portrait
	return nil
}
