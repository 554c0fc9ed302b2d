package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// RunResponse represents a reconcile run in API responses.
type RunResponse struct {
	ID                  string `json:"id"`
	StartedAt           string `json:"started_at"`
	CompletedAt         string `json:"completed_at,omitempty"`
	LookbackDays        int    `json:"lookback_days"`
	DryRun              bool   `json:"dry_run"`
	TransactionsFetched int    `json:"transactions_fetched"`
	OrdersFetched       int    `json:"orders_fetched"`
	Candidates          int    `json:"candidates"`
	Matches             int    `json:"matches"`
	Updated             int    `json:"updated"`
	HighConfidence      int    `json:"high_confidence"`
	MediumConfidence    int    `json:"medium_confidence"`
	LowConfidence       int    `json:"low_confidence"`
	Failed              int    `json:"failed"`
	Status              string `json:"status"`
	ErrorMessage        string `json:"error_message,omitempty"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// MatchRecordResponse is one audited transaction of a run.
type MatchRecordResponse struct {
	TransactionID   string  `json:"transaction_id"`
	OrderID         string  `json:"order_id"`
	Retailer        string  `json:"retailer"`
	Kind            string  `json:"kind"`
	ChargeIndex     int     `json:"charge_index"`
	ChargeCount     int     `json:"charge_count"`
	Confidence      float64 `json:"confidence"`
	ConfidenceClass string  `json:"confidence_class"`
	ProposedMemo    string  `json:"proposed_memo"`
	Applied         bool    `json:"applied"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// MatchRecordListResponse is returned when listing the matches of a run.
type MatchRecordListResponse struct {
	RunID   string                `json:"run_id"`
	Matches []MatchRecordResponse `json:"matches"`
	Count   int                   `json:"count"`
}

// StatsResponse contains aggregate statistics.
type StatsResponse struct {
	TotalRuns      int    `json:"total_runs"`
	DryRuns        int    `json:"dry_runs"`
	TotalUpdated   int    `json:"total_updated"`
	TotalFailed    int    `json:"total_failed"`
	TotalMatches   int    `json:"total_matches"`
	ProcessedCount int    `json:"processed_count"`
	LastRunAt      string `json:"last_run_at,omitempty"`
}

// ProcessedResponse lists the processed transaction ids.
type ProcessedResponse struct {
	TransactionIDs []string `json:"transaction_ids"`
	Count          int      `json:"count"`
	LastUpdated    string   `json:"last_updated,omitempty"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// FormatTime renders t as RFC3339, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
