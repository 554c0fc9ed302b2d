package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/ledger-reconciler/internal/adapters/providers"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/memo"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/metrics"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

var baseDate = civil.Date{Year: 2023, Month: time.May, Day: 15}

func amazonEngine() Engine {
	return NewEngine(model.DefaultAmazonSpec(), matcher.DefaultConfig(), memo.Options{}, nil)
}

func makeTx(id, amount string, offset int, payee, memoText string) model.Transaction {
	return model.Transaction{
		ID:        id,
		Date:      baseDate.AddDays(offset),
		Amount:    model.MustAmount(amount),
		PayeeName: payee,
		Memo:      memoText,
	}
}

func makeOrder(id, total string, items ...string) model.Order {
	o := model.Order{
		OrderID:     id,
		Retailer:    "Amazon",
		OrderDate:   baseDate,
		TotalAmount: model.MustAmount(total),
	}
	for _, title := range items {
		o.Items = append(o.Items, model.OrderItem{Title: title, UnitPrice: decimal.Zero, Quantity: 1})
	}
	return o
}

type fixture struct {
	orch   *Orchestrator
	ledger *MockLedger
	store  *processed.MemoryStore
	book   *processed.Ledger
}

func newFixture(t *testing.T, processedIDs ...string) *fixture {
	t.Helper()
	store := processed.NewMemoryStore(processedIDs...)
	book := processed.NewLedger(store)
	_, err := book.Load(context.Background())
	require.NoError(t, err)

	ledger := new(MockLedger)
	orch := NewOrchestrator(Deps{Updater: ledger, Fetcher: ledger, Ledger: book}, amazonEngine())
	return &fixture{orch: orch, ledger: ledger, store: store, book: book}
}

func TestReconcile_AppliesHighConfidenceMatch(t *testing.T) {
	f := newFixture(t)
	f.ledger.On("UpdateMemo", mock.Anything, "tx1", "Wireless Headphones").Return(true, nil)

	txs := []model.Transaction{makeTx("tx1", "-25.99", 0, "AMAZON.COM", "")}
	orders := []model.Order{makeOrder("123", "25.99", "Wireless Headphones")}

	result, err := f.orch.Reconcile(context.Background(), txs, orders, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.HighConfidence)
	assert.Equal(t, 0, result.MediumConfidence)
	assert.Equal(t, 0, result.LowConfidence)
	assert.Equal(t, 1, result.Candidates)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, 1.0, result.Matches[0].Match.Confidence)
	assert.True(t, result.Matches[0].Members[0].Applied)

	assert.True(t, f.book.Contains("tx1"))
	assert.Equal(t, 1, f.store.SaveCount())
	f.ledger.AssertExpectations(t)
}

func TestReconcile_DryRun(t *testing.T) {
	f := newFixture(t)

	txs := []model.Transaction{makeTx("tx1", "-25.99", 0, "AMAZON.COM", "")}
	orders := []model.Order{makeOrder("123", "25.99", "Wireless Headphones")}

	result, err := f.orch.Reconcile(context.Background(), txs, orders, Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.HighConfidence, "dry runs classify the same way")
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, "Wireless Headphones", result.Matches[0].Members[0].Memo)

	f.ledger.AssertNotCalled(t, "UpdateMemo", mock.Anything, mock.Anything, mock.Anything)
	assert.False(t, f.book.Contains("tx1"))
	assert.Equal(t, 0, f.store.SaveCount())
}

func TestReconcile_SkipsProcessedTransactions(t *testing.T) {
	f := newFixture(t, "tx1")

	txs := []model.Transaction{makeTx("tx1", "-25.99", 0, "AMAZON.COM", "")}
	orders := []model.Order{makeOrder("123", "25.99", "Wireless Headphones")}

	result, err := f.orch.Reconcile(context.Background(), txs, orders, Options{})
	require.NoError(t, err)

	assert.Empty(t, result.Matches)
	assert.Equal(t, 0, result.Candidates)
	assert.Equal(t, 0, f.store.SaveCount(), "nothing new to persist")
	f.ledger.AssertNotCalled(t, "UpdateMemo", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_SkipsAnnotatedMemos(t *testing.T) {
	f := newFixture(t)

	txs := []model.Transaction{makeTx("tx1", "-25.99", 0, "AMAZON.COM", "2 items: Lamp, Bulbs")}
	orders := []model.Order{makeOrder("123", "25.99", "Wireless Headphones")}

	result, err := f.orch.Reconcile(context.Background(), txs, orders, Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestReconcile_MediumAndLowAreNotApplied(t *testing.T) {
	f := newFixture(t)

	split := makeOrder("G", "50.00", "Tent")
	split.SplitChargeAmounts = []decimal.Decimal{decimal.RequireFromString("30"), decimal.RequireFromString("20")}

	txs := []model.Transaction{
		// memo signal only, a week late: 0.70
		makeTx("medium", "-40.00", 7, "CARD PURCHASE", "amazon"),
		// group without payee matches, no date credit: 0.50
		makeTx("low-a", "-30.00", 7, "CARD PURCHASE", "amzn"),
		makeTx("low-b", "-20.00", 8, "CARD PURCHASE", "amzn"),
	}
	orders := []model.Order{makeOrder("M", "40.00", "Book"), split}

	result, err := f.orch.Reconcile(context.Background(), txs, orders, Options{})
	require.NoError(t, err)

	require.Len(t, result.Matches, 2)
	assert.Equal(t, Medium, result.Matches[0].Class)
	assert.Equal(t, Low, result.Matches[1].Class)
	assert.True(t, result.Matches[1].Match.IsGroup())

	assert.Equal(t, 0, result.HighConfidence)
	assert.Equal(t, 1, result.MediumConfidence)
	assert.Equal(t, 1, result.LowConfidence)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Failed)

	f.ledger.AssertNotCalled(t, "UpdateMemo", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.book.Len())
}

func TestReconcile_FailedUpdateDoesNotAbortBatch(t *testing.T) {
	f := newFixture(t)
	f.ledger.On("UpdateMemo", mock.Anything, "a", "Item A").Return(false, errors.New("503 from ledger"))
	f.ledger.On("UpdateMemo", mock.Anything, "b", "Item B").Return(true, nil)
	f.ledger.On("UpdateMemo", mock.Anything, "c", "Item C").Return(false, nil)

	txs := []model.Transaction{
		makeTx("a", "-10.00", 0, "AMAZON.COM", ""),
		makeTx("b", "-20.00", 0, "AMAZON.COM", ""),
		makeTx("c", "-30.00", 0, "AMAZON.COM", ""),
	}
	orders := []model.Order{
		makeOrder("A", "10.00", "Item A"),
		makeOrder("B", "20.00", "Item B"),
		makeOrder("C", "30.00", "Item C"),
	}

	result, err := f.orch.Reconcile(context.Background(), txs, orders, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.HighConfidence)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 2, result.Failed)

	assert.False(t, f.book.Contains("a"))
	assert.True(t, f.book.Contains("b"))
	assert.False(t, f.book.Contains("c"), "unapplied memos are not marked")
	assert.Error(t, result.Matches[2].Members[0].Err)
	f.ledger.AssertExpectations(t)
}

func TestReconcile_AppliesGroupMatch(t *testing.T) {
	f := newFixture(t)
	wantMemo := func(k int) string {
		return fmt.Sprintf("Amazon Order: 112-555 (Charge %d of 2) - 2 items: Desk Lamp, LED Bulbs", k)
	}
	f.ledger.On("UpdateMemo", mock.Anything, "tx-100", wantMemo(1)).Return(true, nil)
	f.ledger.On("UpdateMemo", mock.Anything, "tx-50", wantMemo(2)).Return(true, nil)

	order := makeOrder("112-555", "150.00", "Desk Lamp", "LED Bulbs")
	order.SplitChargeAmounts = []decimal.Decimal{decimal.RequireFromString("100.00"), decimal.RequireFromString("50.00")}

	txs := []model.Transaction{
		makeTx("tx-50", "-50.00", 1, "AMAZON.COM", ""),
		makeTx("tx-100", "-100.00", 0, "AMAZON.COM", ""),
	}

	result, err := f.orch.Reconcile(context.Background(), txs, []model.Order{order}, Options{})
	require.NoError(t, err)

	require.Len(t, result.Matches, 1)
	assert.True(t, result.Matches[0].Match.IsGroup())
	assert.Equal(t, High, result.Matches[0].Class)
	assert.Equal(t, 1, result.HighConfidence, "a group counts as one match")
	assert.Equal(t, 2, result.Updated, "every member is updated")
	assert.True(t, f.book.Contains("tx-100"))
	assert.True(t, f.book.Contains("tx-50"))
	f.ledger.AssertExpectations(t)
}

func TestReconcile_SaveFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	f.store.SaveErr = errors.New("disk full")
	f.ledger.On("UpdateMemo", mock.Anything, "tx1", mock.Anything).Return(true, nil)

	txs := []model.Transaction{makeTx("tx1", "-25.99", 0, "AMAZON.COM", "")}
	orders := []model.Order{makeOrder("123", "25.99", "Wireless Headphones")}

	result, err := f.orch.Reconcile(context.Background(), txs, orders, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Updated)
}

func TestReconcile_EnginesRouteByRetailer(t *testing.T) {
	store := processed.NewMemoryStore()
	ledger := new(MockLedger)
	target := NewEngine(model.RetailerSpec{Name: "Target", PayeeAliases: []string{"target"}},
		matcher.DefaultConfig(), memo.Options{}, nil)
	orch := NewOrchestrator(Deps{Updater: ledger, Ledger: processed.NewLedger(store)}, amazonEngine(), target)

	ledger.On("UpdateMemo", mock.Anything, "amz", "Headphones").Return(true, nil)
	ledger.On("UpdateMemo", mock.Anything, "tgt", "Towels").Return(true, nil)

	targetOrder := makeOrder("T-1", "25.99", "Towels")
	targetOrder.Retailer = "Target"
	txs := []model.Transaction{
		makeTx("amz", "-25.99", 0, "AMAZON.COM", ""),
		makeTx("tgt", "-25.99", 0, "TARGET 00012", ""),
	}
	orders := []model.Order{makeOrder("A-1", "25.99", "Headphones"), targetOrder}

	result, err := orch.Reconcile(context.Background(), txs, orders, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Updated)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "A-1", result.Matches[0].Match.Order.OrderID)
	assert.Equal(t, "T-1", result.Matches[1].Match.Order.OrderID)
	ledger.AssertExpectations(t)
}

func TestRun_TracksRunAndRecords(t *testing.T) {
	now := time.Date(2023, 5, 20, 9, 0, 0, 0, time.UTC)
	since := now.AddDate(0, 0, -14)

	repo := storage.NewMockRepository()
	ledger := new(MockLedger)
	sources := new(MockSources)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	orch := NewOrchestrator(Deps{
		Fetcher:  ledger,
		Updater:  ledger,
		Sources:  sources,
		Ledger:   processed.NewLedger(repo.ProcessedStore()),
		Recorder: repo,
		Metrics:  m,
	}, amazonEngine())
	orch.now = func() time.Time { return now }

	ledger.On("FetchTransactions", mock.Anything, since).
		Return([]model.Transaction{makeTx("tx1", "-25.99", 0, "AMAZON.COM", "")}, nil)
	ledger.On("UpdateMemo", mock.Anything, "tx1", "Wireless Headphones").Return(true, nil)
	sources.On("FetchAll", mock.Anything, providers.FetchOptions{StartDate: since, EndDate: now}).
		Return([]providers.FetchResult{
			{Source: "amazon", Orders: []model.Order{makeOrder("123", "25.99", "Wireless Headphones")}},
			{Source: "csv", Err: errors.New("file vanished")},
		})

	result, err := orch.Run(context.Background(), Options{LookbackDays: 14})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.TransactionsFetched)
	assert.Equal(t, 1, result.OrdersFetched)
	assert.Equal(t, 1, result.Updated)
	require.Contains(t, result.SourceErrors, "csv")

	require.NotNil(t, repo.LastCompletedRun)
	assert.Equal(t, result.RunID, repo.LastCompletedRun.ID)
	assert.Equal(t, storage.RunStatusCompleted, repo.LastCompletedRun.Status)
	assert.Equal(t, 1, repo.LastCompletedRun.Updated)
	assert.Equal(t, 1, repo.LastCompletedRun.Matches)

	records, err := repo.ListMatchRecords(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tx1", records[0].TransactionID)
	assert.Equal(t, "high", records[0].ConfidenceClass)
	assert.True(t, records[0].Applied)

	snap, err := repo.ProcessedStore().Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tx1"}, snap.IDs)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `reconcile_memo_updates_total{result="applied"} 1`)
	assert.Contains(t, rec.Body.String(), `order_source_failures_total{source="csv"} 1`)

	ledger.AssertExpectations(t)
	sources.AssertExpectations(t)
}

func TestRun_FetchFailureMarksRunFailed(t *testing.T) {
	repo := storage.NewMockRepository()
	ledger := new(MockLedger)
	sources := new(MockSources)

	orch := NewOrchestrator(Deps{Fetcher: ledger, Updater: ledger, Sources: sources, Recorder: repo}, amazonEngine())
	ledger.On("FetchTransactions", mock.Anything, mock.Anything).Return(nil, errors.New("unauthorized"))

	result, err := orch.Run(context.Background(), Options{LookbackDays: 7})
	require.Error(t, err)
	assert.Nil(t, result)

	require.NotNil(t, repo.LastCompletedRun)
	assert.Equal(t, storage.RunStatusFailed, repo.LastCompletedRun.Status)
	assert.Contains(t, repo.LastCompletedRun.ErrorMessage, "unauthorized")
	sources.AssertNotCalled(t, "FetchAll", mock.Anything, mock.Anything)
}

func TestRun_RequiresFetcherAndSources(t *testing.T) {
	orch := NewOrchestrator(Deps{}, amazonEngine())
	_, err := orch.Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestReconcile_UnloadedLedgerKeepsEarlierIDs(t *testing.T) {
	store := processed.NewMemoryStore("earlier-tx")
	book := processed.NewLedger(store)
	ledger := new(MockLedger)
	orch := NewOrchestrator(Deps{Updater: ledger, Ledger: book}, amazonEngine())

	ledger.On("UpdateMemo", mock.Anything, "tx2", "Desk Lamp").Return(true, nil)

	txs := []model.Transaction{
		makeTx("earlier-tx", "-25.99", 0, "AMAZON.COM", ""),
		makeTx("tx2", "-40.00", 1, "AMAZON.COM", ""),
	}
	orders := []model.Order{
		makeOrder("111", "25.99", "Wireless Headphones"),
		makeOrder("222", "40.00", "Desk Lamp"),
	}

	result, err := orch.Reconcile(context.Background(), txs, orders, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated, "an id from an earlier run is not updated again")
	ledger.AssertNotCalled(t, "UpdateMemo", mock.Anything, "earlier-tx", mock.Anything)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"earlier-tx", "tx2"}, snap.IDs)
}
