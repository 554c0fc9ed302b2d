package dto

import "errors"

// StartReconcileRequest is the body of POST /api/reconcile.
type StartReconcileRequest struct {
	DryRun       bool `json:"dry_run"`
	LookbackDays int  `json:"lookback_days"`
	MaxOrders    int  `json:"max_orders"`
}

// Validate checks the request fields.
func (r StartReconcileRequest) Validate() error {
	if r.LookbackDays < 0 {
		return errors.New("lookback_days must not be negative")
	}
	if r.MaxOrders < 0 {
		return errors.New("max_orders must not be negative")
	}
	return nil
}

// StartReconcileResponse is returned when a job is accepted.
type StartReconcileResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResultResponse holds the counts of a finished job.
type JobResultResponse struct {
	RunID               string `json:"run_id,omitempty"`
	TransactionsFetched int    `json:"transactions_fetched"`
	OrdersFetched       int    `json:"orders_fetched"`
	Candidates          int    `json:"candidates"`
	Updated             int    `json:"updated"`
	HighConfidence      int    `json:"high_confidence"`
	MediumConfidence    int    `json:"medium_confidence"`
	LowConfidence       int    `json:"low_confidence"`
	Failed              int    `json:"failed"`
}

// JobResponse represents a reconcile job.
type JobResponse struct {
	JobID        string             `json:"job_id"`
	Status       string             `json:"status"`
	DryRun       bool               `json:"dry_run"`
	LookbackDays int                `json:"lookback_days"`
	StartedAt    string             `json:"started_at"`
	CompletedAt  string             `json:"completed_at,omitempty"`
	Result       *JobResultResponse `json:"result,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// JobListResponse is returned when listing jobs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}
