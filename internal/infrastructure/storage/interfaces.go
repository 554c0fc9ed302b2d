package storage

import (
	"context"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory mock)
// and makes testing with mocks straightforward.
type Repository interface {
	RunRepository
	MatchRecordRepository

	// ProcessedStore returns the backing store for the processed ledger
	ProcessedStore() processed.Store

	// GetStats returns aggregate statistics across all runs
	GetStats(ctx context.Context) (*Stats, error)

	Close() error
}

// RunRepository handles reconciliation run tracking
type RunRepository interface {
	// StartRun records the start of a run. The run ID is set by the caller.
	StartRun(ctx context.Context, run *Run) error

	// CompleteRun stores the final counts and status of a run
	CompleteRun(ctx context.Context, run *Run) error

	// ListRuns returns the most recent runs first
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// GetRun retrieves a run by ID, returning ErrNotFound if absent
	GetRun(ctx context.Context, id string) (*Run, error)
}

// MatchRecordRepository handles the match audit trail
type MatchRecordRepository interface {
	// SaveMatchRecord appends one audit row per matched transaction
	SaveMatchRecord(ctx context.Context, record *MatchRecord) error

	// ListMatchRecords returns the records of a run in insertion order
	ListMatchRecords(ctx context.Context, runID string) ([]MatchRecord, error)
}
