package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(createTempDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMigrations_FreshDatabase(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	for _, table := range []string{"processed_transactions", "processed_meta", "reconcile_runs", "match_records", "goose_db_version"} {
		err := store.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(new(int))
		assert.NoError(t, err, "%s table should exist", table)
	}
}

func TestMigrations_Idempotency(t *testing.T) {
	path := createTempDB(t)

	store, err := NewStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStorage(path)
	require.NoError(t, err)
	defer store.Close()

	var count int
	err = store.DB().QueryRow("SELECT COUNT(*) FROM goose_db_version WHERE is_applied = 1 AND version_id > 0").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestNewStorage_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "reconciler.db")
	store, err := NewStorage(path)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestStorage_RunLifecycle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	run := &Run{ID: "run-1", LookbackDays: 14, DryRun: true}
	require.NoError(t, store.StartRun(ctx, run))
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.True(t, got.DryRun)
	assert.True(t, got.CompletedAt.IsZero())

	run.TransactionsFetched = 10
	run.OrdersFetched = 4
	run.Candidates = 6
	run.Matches = 3
	run.Updated = 2
	run.HighConfidence = 2
	run.MediumConfidence = 1
	run.Failed = 0
	require.NoError(t, store.CompleteRun(ctx, run))

	got, err = store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, 10, got.TransactionsFetched)
	assert.Equal(t, 4, got.OrdersFetched)
	assert.Equal(t, 2, got.Updated)
	assert.Equal(t, 1, got.MediumConfidence)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestStorage_GetRun_NotFound(t *testing.T) {
	store := newTestStorage(t)
	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_CompleteRun_Unknown(t *testing.T) {
	store := newTestStorage(t)
	err := store.CompleteRun(context.Background(), &Run{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_ListRuns_NewestFirst(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.StartRun(ctx, &Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestStorage_MatchRecords(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.StartRun(ctx, &Run{ID: "run-1"}))

	first := &MatchRecord{
		RunID: "run-1", TransactionID: "tx1", OrderID: "o1", Retailer: "Amazon",
		Kind: "single", ChargeIndex: 1, ChargeCount: 1, Confidence: 1.0,
		ConfidenceClass: "high", ProposedMemo: "Lamp", Applied: true,
	}
	second := &MatchRecord{
		RunID: "run-1", TransactionID: "tx2", OrderID: "o2", Retailer: "Amazon",
		Kind: "group", ChargeIndex: 2, ChargeCount: 2, Confidence: 0.7,
		ConfidenceClass: "medium", ProposedMemo: "Amazon Order: o2 (Charge 2 of 2) - Bulbs",
	}
	require.NoError(t, store.SaveMatchRecord(ctx, first))
	require.NoError(t, store.SaveMatchRecord(ctx, second))
	assert.NotZero(t, first.ID)

	records, err := store.ListMatchRecords(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "tx1", records[0].TransactionID)
	assert.True(t, records[0].Applied)
	assert.Equal(t, "group", records[1].Kind)
	assert.Equal(t, 2, records[1].ChargeCount)
	assert.False(t, records[1].Applied)

	none, err := store.ListMatchRecords(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStorage_GetStats(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	empty, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalRuns)
	assert.True(t, empty.LastRunAt.IsZero())

	started := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	live := &Run{ID: "live", StartedAt: started}
	require.NoError(t, store.StartRun(ctx, live))
	live.Updated, live.Matches, live.Failed = 3, 4, 1
	require.NoError(t, store.CompleteRun(ctx, live))
	require.NoError(t, store.StartRun(ctx, &Run{ID: "dry", DryRun: true, StartedAt: started.Add(-time.Hour)}))

	require.NoError(t, store.ProcessedStore().Save(ctx, snapshotOf("tx1", "tx2")))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.DryRuns)
	assert.Equal(t, 3, stats.TotalUpdated)
	assert.Equal(t, 4, stats.TotalMatches)
	assert.Equal(t, 1, stats.TotalFailed)
	assert.Equal(t, 2, stats.ProcessedCount)
	assert.True(t, started.Equal(stats.LastRunAt), "got %v", stats.LastRunAt)
}
