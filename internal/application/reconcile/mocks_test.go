package reconcile

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/eshaffer321/ledger-reconciler/internal/adapters/providers"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// MockLedger is a mock implementation of LedgerFetcher and LedgerUpdater
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) FetchTransactions(ctx context.Context, since time.Time) ([]model.Transaction, error) {
	args := m.Called(ctx, since)
	txs, _ := args.Get(0).([]model.Transaction)
	return txs, args.Error(1)
}

func (m *MockLedger) UpdateMemo(ctx context.Context, transactionID, memo string) (bool, error) {
	args := m.Called(ctx, transactionID, memo)
	return args.Bool(0), args.Error(1)
}

// MockSources is a mock implementation of OrderFetcher
type MockSources struct {
	mock.Mock
}

func (m *MockSources) FetchAll(ctx context.Context, opts providers.FetchOptions) []providers.FetchResult {
	args := m.Called(ctx, opts)
	results, _ := args.Get(0).([]providers.FetchResult)
	return results
}
