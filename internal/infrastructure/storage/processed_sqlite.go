package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
)

// SQLiteStore keeps processed transaction ids in the
// processed_transactions table. Ids are only ever inserted.
type SQLiteStore struct {
	db *sql.DB
}

var _ processed.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store on a migrated database
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns every processed id. An empty table is an empty snapshot.
func (s *SQLiteStore) Load(ctx context.Context) (processed.Snapshot, error) {
	var snap processed.Snapshot

	rows, err := s.db.QueryContext(ctx, `SELECT transaction_id FROM processed_transactions ORDER BY transaction_id`)
	if err != nil {
		return snap, fmt.Errorf("failed to query processed transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return snap, err
		}
		snap.IDs = append(snap.IDs, id)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	var lastUpdated sql.NullTime
	err = s.db.QueryRowContext(ctx, `SELECT last_updated FROM processed_meta WHERE id = 1`).Scan(&lastUpdated)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return snap, fmt.Errorf("failed to read processed metadata: %w", err)
	}
	if lastUpdated.Valid {
		snap.LastUpdated = lastUpdated.Time
	}

	return snap, nil
}

// Save inserts any ids not yet stored and records the update time, in a
// single transaction
func (s *SQLiteStore) Save(ctx context.Context, snap processed.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO processed_transactions (transaction_id) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range snap.IDs {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to insert processed id %s: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO processed_meta (id, last_updated) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_updated = excluded.last_updated
	`, snap.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to update processed metadata: %w", err)
	}

	return tx.Commit()
}
