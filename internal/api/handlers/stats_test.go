package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/ledger-reconciler/internal/api/dto"
	"github.com/eshaffer321/ledger-reconciler/internal/api/handlers"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

func TestStatsHandler_Get(t *testing.T) {
	t.Run("aggregates runs and processed ids", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedRun(t, repo, "run-1", 0, storage.Run{Updated: 2, Matches: 3, Failed: 1})
		seedRun(t, repo, "run-2", time.Hour, storage.Run{DryRun: true, Matches: 2})
		require.NoError(t, repo.ProcessedStore().Save(context.Background(), processed.Snapshot{IDs: []string{"a", "b"}}))

		rec := httptest.NewRecorder()
		handlers.NewStatsHandler(repo).Get(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.StatsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 2, response.TotalRuns)
		assert.Equal(t, 1, response.DryRuns)
		assert.Equal(t, 2, response.TotalUpdated)
		assert.Equal(t, 1, response.TotalFailed)
		assert.Equal(t, 5, response.TotalMatches)
		assert.Equal(t, 2, response.ProcessedCount)
		assert.Equal(t, "2023-05-15T07:00:00Z", response.LastRunAt)
	})

	t.Run("omits last run for an empty history", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handlers.NewStatsHandler(storage.NewMockRepository()).Get(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "last_run_at")
	})

	t.Run("returns 500 when storage fails", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.GetStatsErr = errors.New("no such table: runs")

		rec := httptest.NewRecorder()
		handlers.NewStatsHandler(repo).Get(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
