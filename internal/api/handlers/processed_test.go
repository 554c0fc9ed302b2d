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
)

type failingStore struct{}

func (failingStore) Load(context.Context) (processed.Snapshot, error) {
	return processed.Snapshot{}, errors.New("permission denied")
}

func (failingStore) Save(context.Context, processed.Snapshot) error { return nil }

func TestProcessedHandler_Get(t *testing.T) {
	t.Run("returns sorted ids with last updated", func(t *testing.T) {
		store := processed.NewMemoryStore()
		updated := time.Date(2023, 5, 20, 9, 30, 0, 0, time.UTC)
		require.NoError(t, store.Save(context.Background(), processed.Snapshot{
			IDs:         []string{"tx-3", "tx-1", "tx-2"},
			LastUpdated: updated,
		}))

		rec := httptest.NewRecorder()
		handlers.NewProcessedHandler(store).Get(rec, httptest.NewRequest(http.MethodGet, "/api/processed", nil))

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.ProcessedResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, []string{"tx-1", "tx-2", "tx-3"}, response.TransactionIDs)
		assert.Equal(t, 3, response.Count)
		assert.Equal(t, "2023-05-20T09:30:00Z", response.LastUpdated)
	})

	t.Run("empty store returns an empty array", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handlers.NewProcessedHandler(processed.NewMemoryStore()).Get(rec, httptest.NewRequest(http.MethodGet, "/api/processed", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"transaction_ids":[]`)
	})

	t.Run("returns 500 when the store fails", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handlers.NewProcessedHandler(failingStore{}).Get(rec, httptest.NewRequest(http.MethodGet, "/api/processed", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
