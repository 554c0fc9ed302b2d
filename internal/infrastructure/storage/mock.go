package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu        sync.Mutex
	runs      map[string]*Run
	runOrder  []string
	records   []MatchRecord
	processed *processed.MemoryStore
	nextID    int64

	// Hooks for test assertions
	StartRunCalled    bool
	CompleteRunCalled bool
	LastCompletedRun  *Run

	// Error injection for testing error paths
	StartRunErr        error
	CompleteRunErr     error
	SaveMatchRecordErr error
	ListRunsErr        error
	GetStatsErr        error
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs:      make(map[string]*Run),
		processed: processed.NewMemoryStore(),
		nextID:    1,
	}
}

// Close is a no-op
func (m *MockRepository) Close() error {
	return nil
}

// StartRun records a run
func (m *MockRepository) StartRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return m.StartRunErr
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	stored := *run
	m.runs[run.ID] = &stored
	m.runOrder = append(m.runOrder, run.ID)
	return nil
}

// CompleteRun overwrites the stored run
func (m *MockRepository) CompleteRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteRunCalled = true
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}
	if _, ok := m.runs[run.ID]; !ok {
		return ErrNotFound
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now().UTC()
	}
	if run.Status == "" || run.Status == RunStatusRunning {
		run.Status = RunStatusCompleted
	}
	stored := *run
	m.runs[run.ID] = &stored
	m.LastCompletedRun = &stored
	return nil
}

// ListRuns returns runs newest first
func (m *MockRepository) ListRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListRunsErr != nil {
		return nil, m.ListRunsErr
	}

	runs := make([]Run, 0, len(m.runOrder))
	for i := len(m.runOrder) - 1; i >= 0; i-- {
		runs = append(runs, *m.runs[m.runOrder[i]])
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRun retrieves a run by ID
func (m *MockRepository) GetRun(_ context.Context, id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *run
	return &copied, nil
}

// SaveMatchRecord appends a record
func (m *MockRepository) SaveMatchRecord(_ context.Context, record *MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveMatchRecordErr != nil {
		return m.SaveMatchRecordErr
	}
	record.ID = m.nextID
	m.nextID++
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	m.records = append(m.records, *record)
	return nil
}

// ListMatchRecords returns the records of one run
func (m *MockRepository) ListMatchRecords(_ context.Context, runID string) ([]MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []MatchRecord
	for _, r := range m.records {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ProcessedStore returns the in-memory processed store
func (m *MockRepository) ProcessedStore() processed.Store {
	return m.processed
}

// GetStats aggregates over stored runs
func (m *MockRepository) GetStats(ctx context.Context) (*Stats, error) {
	m.mu.Lock()
	if m.GetStatsErr != nil {
		m.mu.Unlock()
		return nil, m.GetStatsErr
	}
	stats := &Stats{TotalRuns: len(m.runs)}
	for _, run := range m.runs {
		if run.DryRun {
			stats.DryRuns++
		}
		stats.TotalUpdated += run.Updated
		stats.TotalFailed += run.Failed
		stats.TotalMatches += run.Matches
		if run.StartedAt.After(stats.LastRunAt) {
			stats.LastRunAt = run.StartedAt
		}
	}
	m.mu.Unlock()

	snap, err := m.processed.Load(ctx)
	if err != nil {
		return nil, err
	}
	stats.ProcessedCount = len(snap.IDs)
	return stats, nil
}

// AllMatchRecords returns every stored record
func (m *MockRepository) AllMatchRecords() []MatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MatchRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Reset clears all stored data and hooks
func (m *MockRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = make(map[string]*Run)
	m.runOrder = nil
	m.records = nil
	m.processed = processed.NewMemoryStore()
	m.nextID = 1
	m.StartRunCalled = false
	m.CompleteRunCalled = false
	m.LastCompletedRun = nil
	m.StartRunErr = nil
	m.CompleteRunErr = nil
	m.SaveMatchRecordErr = nil
	m.ListRunsErr = nil
	m.GetStatsErr = nil
}
