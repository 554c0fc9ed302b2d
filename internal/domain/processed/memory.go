package processed

import (
	"context"
	"sync"
)

// MemoryStore keeps the snapshot in memory. Used by tests and dry runs
// that have no persistence configured.
type MemoryStore struct {
	mu    sync.Mutex
	snap  Snapshot
	saves int

	// SaveErr, when set, is returned by Save
	SaveErr error
}

// NewMemoryStore creates a store pre-populated with ids
func NewMemoryStore(ids ...string) *MemoryStore {
	return &MemoryStore{snap: Snapshot{IDs: append([]string(nil), ids...)}}
}

// Load returns a copy of the stored snapshot
func (m *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{IDs: append([]string(nil), m.snap.IDs...), LastUpdated: m.snap.LastUpdated}, nil
}

// Save replaces the stored snapshot
func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.snap = Snapshot{IDs: append([]string(nil), snap.IDs...), LastUpdated: snap.LastUpdated}
	m.saves++
	return nil
}

// SaveCount returns how many successful saves happened
func (m *MemoryStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

var _ Store = (*MemoryStore)(nil)
