package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facegate/facegate/internal/identity"
)

// MemoryStore is a mutex-guarded in-process store. It backs tests and the
// "memory" driver for single-shot CLI runs; nothing survives the process.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []identity.Identity
	contacts map[string]struct{}
	dim      int // 0 until the first insert
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contacts: make(map[string]struct{}),
	}
}

// Insert appends a record after enforcing contact uniqueness and the
// store dimensionality. The lock makes the check-and-insert atomic.
func (s *MemoryStore) Insert(ctx context.Context, rec identity.Identity) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.contacts[rec.Contact]; taken {
		return identity.Identity{}, ErrDuplicateIdentity
	}
	if s.dim != 0 && len(rec.Embedding) != s.dim {
		return identity.Identity{}, ErrDimensionMismatch
	}

	rec.ID = uuid.New()
	rec.CreatedAt = time.Now().UTC()
	rec.Embedding = append([]float32(nil), rec.Embedding...)

	if s.dim == 0 {
		s.dim = len(rec.Embedding)
	}
	s.contacts[rec.Contact] = struct{}{}
	s.records = append(s.records, rec)

	return rec, nil
}

// List returns a copy of the current records in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]identity.Identity, len(s.records))
	copy(snapshot, s.records)
	return snapshot, nil
}

// Get returns the identity with the given ID, or nil if not enrolled.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.records {
		if s.records[i].ID == id {
			rec := s.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// Count returns the number of enrolled identities.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
