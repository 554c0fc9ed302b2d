package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

// setChiURLParam sets a chi URL parameter in the request context.
func setChiURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.RouteContext(ctx)
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

// seedRun stores a completed run started at the given offset from a fixed base time.
func seedRun(t *testing.T, repo *storage.MockRepository, id string, offset time.Duration, run storage.Run) {
	t.Helper()
	base := time.Date(2023, 5, 15, 6, 0, 0, 0, time.UTC)
	run.ID = id
	run.StartedAt = base.Add(offset)
	require.NoError(t, repo.StartRun(context.Background(), &run))
	run.CompletedAt = run.StartedAt.Add(time.Minute)
	require.NoError(t, repo.CompleteRun(context.Background(), &run))
}
