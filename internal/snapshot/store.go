package snapshot

import (
	"context"
	"sync"

	"github.com/luminoshop/cartsync/pkg/types"
)

// Store persists the advisory LocalCartSnapshot for one profile. Save must
// drop writes that carry an older timestamp than the stored value; the
// broadcast bus makes no ordering promise, so monotonicity is enforced here.
type Store interface {
	Load(ctx context.Context) (types.LocalCartSnapshot, bool, error)
	Save(ctx context.Context, snap types.LocalCartSnapshot) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the snapshot in process memory. It is the degraded mode
// when durable storage fails: cross-client sync and pre-load badge hinting
// are lost, the authoritative cart flow is unaffected.
type MemoryStore struct {
	mu    sync.Mutex
	snap  types.LocalCartSnapshot
	found bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored snapshot, if any.
func (s *MemoryStore) Load(_ context.Context) (types.LocalCartSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.found, nil
}

// Save stores the snapshot unless it is older than the current one.
func (s *MemoryStore) Save(_ context.Context, snap types.LocalCartSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.found && !snap.Supersedes(s.snap) {
		return nil
	}
	s.snap = snap
	s.found = true
	return nil
}

// Clear drops the stored snapshot.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = types.LocalCartSnapshot{}
	s.found = false
	return nil
}
