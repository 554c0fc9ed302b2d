// Package reconcile runs a reconciliation batch: it filters ledger
// transactions, matches them to retailer orders, gates matches by
// confidence and applies the high-confidence memos.
//
// A batch moves through
//
//	FETCHED → FILTERED → SINGLE_MATCHED → GROUP_MATCHED → GATED → APPLIED|SKIPPED → PERSISTED
//
// Run performs the whole sequence; Reconcile starts from already fetched
// transactions and orders.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/ledger-reconciler/internal/adapters/providers"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/metrics"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

// Deps are the collaborators of an Orchestrator. Fetcher and Sources are
// only needed by Run; Recorder and Metrics are optional.
type Deps struct {
	Fetcher  LedgerFetcher
	Updater  LedgerUpdater
	Sources  OrderFetcher
	Ledger   *processed.Ledger
	Recorder RunRecorder
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Orchestrator runs reconciliation batches
type Orchestrator struct {
	fetcher  LedgerFetcher
	updater  LedgerUpdater
	sources  OrderFetcher
	ledger   *processed.Ledger
	recorder RunRecorder
	metrics  *metrics.Metrics
	engines  []Engine
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator matching with engines in order;
// a transaction claimed by one engine is not offered to the next
func NewOrchestrator(deps Deps, engines ...Engine) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.NewNop()
	}
	ledger := deps.Ledger
	if ledger == nil {
		ledger = processed.NewLedger(processed.NewMemoryStore())
	}
	return &Orchestrator{
		fetcher:  deps.Fetcher,
		updater:  deps.Updater,
		sources:  deps.Sources,
		ledger:   ledger,
		recorder: deps.Recorder,
		metrics:  m,
		engines:  engines,
		logger:   logger,
		now:      time.Now,
	}
}

// Run fetches transactions and orders for the lookback window and
// reconciles them. The run is tracked through the recorder when one is
// configured.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	if o.fetcher == nil || o.sources == nil {
		return nil, fmt.Errorf("reconcile: Run needs a ledger fetcher and order sources")
	}

	started := o.now()
	run := &storage.Run{
		ID:           uuid.NewString(),
		StartedAt:    started.UTC(),
		LookbackDays: opts.LookbackDays,
		DryRun:       opts.DryRun,
		Status:       storage.RunStatusRunning,
	}
	o.startRun(ctx, run)

	result, err := o.run(ctx, run.ID, opts, started)
	o.completeRun(ctx, run, result, err)
	o.metrics.ObserveRun(opts.DryRun, o.now().Sub(started))

	return result, err
}

func (o *Orchestrator) run(ctx context.Context, runID string, opts Options, started time.Time) (*Result, error) {
	if _, err := o.ledger.Load(ctx); err != nil {
		return nil, err
	}

	// FETCHED
	since := started.AddDate(0, 0, -opts.LookbackDays)
	txs, err := o.fetcher.FetchTransactions(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	orders, sourceErrors := o.fetchOrders(ctx, providers.FetchOptions{
		StartDate: since,
		EndDate:   started,
		MaxOrders: opts.MaxOrders,
	})

	result, err := o.reconcile(ctx, runID, txs, orders, opts)
	if result != nil {
		result.SourceErrors = sourceErrors
	}
	return result, err
}

func (o *Orchestrator) fetchOrders(ctx context.Context, opts providers.FetchOptions) ([]model.Order, map[string]error) {
	var orders []model.Order
	var failures map[string]error

	for _, res := range o.sources.FetchAll(ctx, opts) {
		if res.Err != nil {
			o.metrics.ObserveSourceFailure(res.Source)
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[res.Source] = res.Err
			continue
		}
		o.metrics.ObserveOrdersFetched(res.Source, len(res.Orders))
		o.logger.Debug("fetched orders", slog.String("source", res.Source), slog.Int("count", len(res.Orders)))
		orders = append(orders, res.Orders...)
	}
	return orders, failures
}

// Reconcile matches txs against orders, applies high-confidence memos and
// saves the processed ledger. Dry runs classify and count the same way but
// never call the updater, mutate the ledger or save it.
//
// Failed memo updates are counted and logged; only a failure to persist
// the ledger is returned as an error, together with the result. Reconcile
// does not write run tracking; use Run for that.
func (o *Orchestrator) Reconcile(ctx context.Context, txs []model.Transaction, orders []model.Order, opts Options) (*Result, error) {
	return o.reconcile(ctx, "", txs, orders, opts)
}

func (o *Orchestrator) reconcile(ctx context.Context, runID string, txs []model.Transaction, orders []model.Order, opts Options) (*Result, error) {
	result := &Result{
		RunID:               runID,
		TransactionsFetched: len(txs),
		OrdersFetched:       len(orders),
	}
	if err := o.ledger.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	o.logger.Info("reconciling",
		slog.String("run_id", runID),
		slog.Int("transactions", len(txs)),
		slog.Int("orders", len(orders)),
		slog.Bool("dry_run", opts.DryRun))

	// FILTERED: the id ledger is authoritative; the content heuristic is
	// applied per retailer by the matchers
	pool := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		if o.ledger.AlreadyProcessed(tx) {
			continue
		}
		pool = append(pool, tx)
	}
	if skipped := len(txs) - len(pool); skipped > 0 {
		o.logger.Debug("skipping processed transactions",
			slog.String("check", o.ledger.Name()),
			slog.Int("count", skipped))
	}

	// SINGLE_MATCHED, GROUP_MATCHED
	var matches []model.Match
	for _, engine := range o.engines {
		found, candidates := engine.match(pool, orders)
		result.Candidates += candidates
		matches = append(matches, found...)
		pool = unclaimed(pool, found)

		o.logger.Debug("retailer matched",
			slog.String("retailer", engine.Retailer.Name()),
			slog.Int("candidates", candidates),
			slog.Int("matches", len(found)))
	}

	// GATED, APPLIED | SKIPPED
	for _, match := range matches {
		outcome := o.apply(ctx, match, opts.DryRun)
		result.count(outcome.Class)
		for _, member := range outcome.Members {
			switch {
			case member.Applied:
				result.Updated++
			case member.Err != nil:
				result.Failed++
			}
		}
		result.Matches = append(result.Matches, outcome)
		o.record(ctx, runID, outcome)
	}

	o.logger.Info("reconcile finished",
		slog.String("run_id", runID),
		slog.Group("counts",
			slog.Int("matches", len(matches)),
			slog.Int("updated", result.Updated),
			slog.Int("high", result.HighConfidence),
			slog.Int("medium", result.MediumConfidence),
			slog.Int("low", result.LowConfidence),
			slog.Int("failed", result.Failed)))

	// PERSISTED
	if opts.DryRun || !o.ledger.Dirty() {
		return result, nil
	}
	if err := o.ledger.Save(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// apply classifies a match and, for high-confidence matches outside a dry
// run, writes each member's memo
func (o *Orchestrator) apply(ctx context.Context, match model.Match, dryRun bool) MatchOutcome {
	class := Classify(match.Confidence)
	outcome := MatchOutcome{Match: match, Class: class}
	o.metrics.ObserveMatch(string(match.Kind), class.String())

	o.logger.Debug("match",
		slog.String("order_id", match.Order.OrderID),
		slog.String("kind", string(match.Kind)),
		slog.Float64("confidence", match.Confidence),
		slog.String("class", class.String()),
		slog.Any("reasons", match.Reasons))

	for _, member := range match.Members {
		mo := MemberOutcome{TransactionID: member.Transaction.ID, Memo: member.ProposedMemo}

		if !class.Applies() || dryRun || o.updater == nil {
			o.metrics.ObserveMemoUpdate(metrics.UpdateSkipped)
			outcome.Members = append(outcome.Members, mo)
			continue
		}

		ok, err := o.updater.UpdateMemo(ctx, member.Transaction.ID, member.ProposedMemo)
		switch {
		case err != nil:
			mo.Err = err
		case !ok:
			mo.Err = fmt.Errorf("ledger did not apply memo to %s", member.Transaction.ID)
		default:
			mo.Applied = true
			o.ledger.MarkProcessed(member.Transaction.ID)
		}

		if mo.Err != nil {
			o.metrics.ObserveMemoUpdate(metrics.UpdateFailed)
			o.logger.Warn("memo update failed",
				slog.String("transaction_id", member.Transaction.ID),
				slog.String("order_id", match.Order.OrderID),
				slog.String("error", mo.Err.Error()))
		} else {
			o.metrics.ObserveMemoUpdate(metrics.UpdateApplied)
			o.logger.Info("memo updated",
				slog.String("transaction_id", member.Transaction.ID),
				slog.String("order_id", match.Order.OrderID),
				slog.String("memo", member.ProposedMemo))
		}
		outcome.Members = append(outcome.Members, mo)
	}
	return outcome
}

// unclaimed returns the transactions of pool not used by matches
func unclaimed(pool []model.Transaction, matches []model.Match) []model.Transaction {
	used := make(map[string]bool)
	for _, m := range matches {
		for _, member := range m.Members {
			used[member.Transaction.ID] = true
		}
	}
	out := make([]model.Transaction, 0, len(pool))
	for _, tx := range pool {
		if !used[tx.ID] {
			out = append(out, tx)
		}
	}
	return out
}
