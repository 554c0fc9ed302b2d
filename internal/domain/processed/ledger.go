package processed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// Snapshot is the persisted form of the ledger.
type Snapshot struct {
	IDs         []string
	LastUpdated time.Time
}

// Store persists the processed id set. A store whose backing file or table
// does not exist yet must return an empty Snapshot, not an error.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Ledger is the in-memory set of processed transaction ids backed by a
// Store. Ids are only ever added.
//
// Ledger is not safe for concurrent use; a batch reads and mutates it from
// a single goroutine.
type Ledger struct {
	store  Store
	ids    map[string]struct{}
	now    func() time.Time
	dirty  bool
	loaded bool
}

// NewLedger creates a ledger bound to store. The persisted ids are read on
// the first EnsureLoaded or Save, so a Save never drops ids it has not seen.
func NewLedger(store Store) *Ledger {
	return &Ledger{
		store: store,
		ids:   make(map[string]struct{}),
		now:   time.Now,
	}
}

// Load reads the persisted ids and merges them into the in-memory set.
// Ids already marked in memory are kept.
func (l *Ledger) Load(ctx context.Context) (map[string]struct{}, error) {
	snap, err := l.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load processed ledger: %w", err)
	}
	for _, id := range snap.IDs {
		l.ids[id] = struct{}{}
	}
	l.loaded = true
	return l.copyIDs(), nil
}

// EnsureLoaded loads the persisted ids unless a Load already happened.
func (l *Ledger) EnsureLoaded(ctx context.Context) error {
	if l.loaded {
		return nil
	}
	_, err := l.Load(ctx)
	return err
}

// Save merges the persisted ids if they were never loaded, then writes the
// full id set with a fresh last-updated timestamp.
func (l *Ledger) Save(ctx context.Context) error {
	if err := l.EnsureLoaded(ctx); err != nil {
		return err
	}
	snap := Snapshot{IDs: l.IDs(), LastUpdated: l.now().UTC()}
	if err := l.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save processed ledger: %w", err)
	}
	l.dirty = false
	return nil
}

// Contains reports whether id was processed in this or an earlier run
func (l *Ledger) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// MarkProcessed adds id to the set. Marking an id twice is a no-op.
func (l *Ledger) MarkProcessed(id string) {
	if id == "" || l.Contains(id) {
		return
	}
	l.ids[id] = struct{}{}
	l.dirty = true
}

// Dirty reports whether ids were added since the last Save
func (l *Ledger) Dirty() bool {
	return l.dirty
}

// Len returns the number of processed ids
func (l *Ledger) Len() int {
	return len(l.ids)
}

// IDs returns the processed ids in sorted order.
func (l *Ledger) IDs() []string {
	ids := make([]string, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Name identifies the check in logs
func (l *Ledger) Name() string {
	return "idempotence-by-id"
}

// AlreadyProcessed implements IdempotenceCheck using the id set.
func (l *Ledger) AlreadyProcessed(tx model.Transaction) bool {
	return l.Contains(tx.ID)
}

func (l *Ledger) copyIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(l.ids))
	for id := range l.ids {
		out[id] = struct{}{}
	}
	return out
}

var _ IdempotenceCheck = (*Ledger)(nil)
