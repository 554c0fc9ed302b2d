package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents one reconciliation batch
type Run struct {
	ID                  string    `json:"id"`
	StartedAt           time.Time `json:"started_at"`
	CompletedAt         time.Time `json:"completed_at,omitempty"`
	LookbackDays        int       `json:"lookback_days"`
	DryRun              bool      `json:"dry_run"`
	TransactionsFetched int       `json:"transactions_fetched"`
	OrdersFetched       int       `json:"orders_fetched"`
	Candidates          int       `json:"candidates"`
	Matches             int       `json:"matches"`
	Updated             int       `json:"updated"`
	HighConfidence      int       `json:"high_confidence"`
	MediumConfidence    int       `json:"medium_confidence"`
	LowConfidence       int       `json:"low_confidence"`
	Failed              int       `json:"failed"`
	Status              string    `json:"status"`
	ErrorMessage        string    `json:"error_message,omitempty"`
}

// MatchRecord is the audit row written for every matched transaction,
// whether or not its memo was applied
type MatchRecord struct {
	ID              int64     `json:"id"`
	RunID           string    `json:"run_id"`
	TransactionID   string    `json:"transaction_id"`
	OrderID         string    `json:"order_id"`
	Retailer        string    `json:"retailer"`
	Kind            string    `json:"kind"`
	ChargeIndex     int       `json:"charge_index"`
	ChargeCount     int       `json:"charge_count"`
	Confidence      float64   `json:"confidence"`
	ConfidenceClass string    `json:"confidence_class"`
	ProposedMemo    string    `json:"proposed_memo"`
	Applied         bool      `json:"applied"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Stats contains aggregate statistics
type Stats struct {
	TotalRuns      int       `json:"total_runs"`
	DryRuns        int       `json:"dry_runs"`
	TotalUpdated   int       `json:"total_updated"`
	TotalFailed    int       `json:"total_failed"`
	TotalMatches   int       `json:"total_matches"`
	ProcessedCount int       `json:"processed_count"`
	LastRunAt      time.Time `json:"last_run_at,omitempty"`
}
