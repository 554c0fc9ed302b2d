package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	calls atomic.Int32
}

func (o *recordingObserver) ObserveLedgerRequest(string, int, time.Duration) {
	o.calls.Add(1)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) (*Client, *recordingObserver) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	obs := &recordingObserver{}
	client := NewClient(Config{
		BaseURL:    server.URL,
		Token:      "secret",
		BudgetID:   "budget-1",
		MaxRetries: retries,
	}, nil, obs)
	client.http.RetryWaitMin = time.Millisecond
	client.http.RetryWaitMax = 5 * time.Millisecond
	return client, obs
}

func TestClient_FetchTransactions(t *testing.T) {
	client, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/budgets/budget-1/transactions", r.URL.Path)
		assert.Equal(t, "2023-05-01", r.URL.Query().Get("since_date"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		_, _ = io.WriteString(w, `{"data":{"transactions":[
			{"id":"tx1","date":"2023-05-15","amount":-25990,"payee_name":"AMAZON.COM","memo":null},
			{"id":"tx2","date":"not-a-date","amount":null,"payee_name":"Coffee","memo":"latte"},
			{"id":"tx3","date":"2023-05-16","amount":-1000,"payee_name":"Gone","deleted":true}
		]}}`)
	}, 0)

	txs, err := client.FetchTransactions(context.Background(), time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "tx1", txs[0].ID)
	assert.Equal(t, civil.Date{Year: 2023, Month: 5, Day: 15}, txs[0].Date)
	require.True(t, txs[0].HasAmount())
	assert.Equal(t, "-25.99", txs[0].Amount.Decimal.String())
	assert.Equal(t, "", txs[0].Memo)

	assert.False(t, txs[1].Date.IsValid())
	assert.False(t, txs[1].HasAmount())
	assert.Equal(t, "latte", txs[1].Memo)

	assert.Equal(t, int32(1), obs.calls.Load())
}

func TestClient_UpdateMemo(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/budgets/budget-1/transactions/tx1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req updateTransactionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Wireless Headphones", req.Transaction.Memo)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"transaction": map[string]any{"id": "tx1", "memo": req.Transaction.Memo},
			},
		})
	}, 0)

	ok, err := client.UpdateMemo(context.Background(), "tx1", "Wireless Headphones")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_UpdateMemo_NotApplied(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"transaction":{"id":"tx1","memo":"something else"}}}`)
	}, 0)

	ok, err := client.UpdateMemo(context.Background(), "tx1", "Lamp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		substr  string
	}{
		{"not found", http.StatusNotFound, `{}`, ErrNotFound, ""},
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrUnauthorized, ""},
		{"api error body", http.StatusBadRequest, `{"error":{"id":"400","name":"bad_request","detail":"memo too long"}}`, nil, "memo too long"},
		{"plain error body", http.StatusConflict, `conflict`, nil, "status 409"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, 0)

			_, err := client.UpdateMemo(context.Background(), "tx1", "memo")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.substr != "" {
				assert.Contains(t, err.Error(), tt.substr)
			}
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"transactions":[]}}`)
	}, 2)

	txs, err := client.FetchTransactions(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, 1)

	_, err := client.FetchTransactions(context.Background(), time.Time{})
	assert.Error(t, err)
}

func TestClient_CancelledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"transactions":[]}}`)
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchTransactions(ctx, time.Time{})
	assert.Error(t, err)
}
