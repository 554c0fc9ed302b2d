package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
)

// StartRun records the start of a run
func (s *Storage) StartRun(ctx context.Context, run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconcile_runs (id, started_at, lookback_days, dry_run, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.LookbackDays, run.DryRun, run.Status)
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", run.ID, err)
	}
	return nil
}

// CompleteRun stores the final counts and status of a run
func (s *Storage) CompleteRun(ctx context.Context, run *Run) error {
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now().UTC()
	}
	if run.Status == "" || run.Status == RunStatusRunning {
		run.Status = RunStatusCompleted
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE reconcile_runs SET
			completed_at = ?, transactions_fetched = ?, orders_fetched = ?,
			candidates = ?, matches = ?, updated = ?,
			high_confidence = ?, medium_confidence = ?, low_confidence = ?,
			failed = ?, status = ?, error_message = ?
		WHERE id = ?
	`, run.CompletedAt, run.TransactionsFetched, run.OrdersFetched,
		run.Candidates, run.Matches, run.Updated,
		run.HighConfidence, run.MediumConfidence, run.LowConfidence,
		run.Failed, run.Status, run.ErrorMessage, run.ID)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to complete run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

const runColumns = `id, started_at, completed_at, lookback_days, dry_run,
	transactions_fetched, orders_fetched, candidates, matches, updated,
	high_confidence, medium_confidence, low_confidence, failed, status, error_message`

// ListRuns returns the most recent runs first
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM reconcile_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM reconcile_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var completedAt sql.NullTime
	err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&completedAt,
		&run.LookbackDays,
		&run.DryRun,
		&run.TransactionsFetched,
		&run.OrdersFetched,
		&run.Candidates,
		&run.Matches,
		&run.Updated,
		&run.HighConfidence,
		&run.MediumConfidence,
		&run.LowConfidence,
		&run.Failed,
		&run.Status,
		&run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}
	return &run, nil
}

// SaveMatchRecord appends an audit row
func (s *Storage) SaveMatchRecord(ctx context.Context, record *MatchRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO match_records
		(run_id, transaction_id, order_id, retailer, kind, charge_index, charge_count,
		 confidence, confidence_class, proposed_memo, applied, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.RunID, record.TransactionID, record.OrderID, record.Retailer, record.Kind,
		record.ChargeIndex, record.ChargeCount, record.Confidence, record.ConfidenceClass,
		record.ProposedMemo, record.Applied, record.ErrorMessage, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save match record for %s: %w", record.TransactionID, err)
	}

	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// ListMatchRecords returns the records of a run in insertion order
func (s *Storage) ListMatchRecords(ctx context.Context, runID string) ([]MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, transaction_id, order_id, retailer, kind, charge_index, charge_count,
		       confidence, confidence_class, proposed_memo, applied, error_message, created_at
		FROM match_records WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list match records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []MatchRecord
	for rows.Next() {
		var r MatchRecord
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.TransactionID, &r.OrderID, &r.Retailer, &r.Kind,
			&r.ChargeIndex, &r.ChargeCount, &r.Confidence, &r.ConfidenceClass,
			&r.ProposedMemo, &r.Applied, &r.ErrorMessage, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetStats returns aggregate statistics across all runs
func (s *Storage) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var lastRun sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN dry_run THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(updated), 0),
		       COALESCE(SUM(failed), 0),
		       COALESCE(SUM(matches), 0),
		       MAX(started_at)
		FROM reconcile_runs
	`).Scan(&stats.TotalRuns, &stats.DryRuns, &stats.TotalUpdated, &stats.TotalFailed, &stats.TotalMatches, &lastRun)
	if err != nil {
		return nil, fmt.Errorf("failed to get run stats: %w", err)
	}
	if lastRun.Valid {
		stats.LastRunAt = parseSQLiteTime(lastRun.String)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed_transactions`).Scan(&stats.ProcessedCount); err != nil {
		return nil, fmt.Errorf("failed to count processed transactions: %w", err)
	}

	return stats, nil
}

// ProcessedStore returns the SQLite-backed processed ledger store
func (s *Storage) ProcessedStore() processed.Store {
	return NewSQLiteStore(s.db)
}

// parseSQLiteTime parses the text form go-sqlite3 uses for aggregated
// timestamps, which lose their column type
func parseSQLiteTime(v string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
