package reconcile

import (
	"context"
	"time"

	"github.com/eshaffer321/ledger-reconciler/internal/adapters/providers"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

// LedgerFetcher lists ledger transactions dated on or after since
type LedgerFetcher interface {
	FetchTransactions(ctx context.Context, since time.Time) ([]model.Transaction, error)
}

// LedgerUpdater writes a memo to one ledger transaction. false with a nil
// error means the ledger accepted the call but did not apply the memo.
type LedgerUpdater interface {
	UpdateMemo(ctx context.Context, transactionID, memo string) (bool, error)
}

// OrderFetcher fetches orders from every configured source
type OrderFetcher interface {
	FetchAll(ctx context.Context, opts providers.FetchOptions) []providers.FetchResult
}

// RunRecorder persists run tracking and the match audit trail
type RunRecorder interface {
	StartRun(ctx context.Context, run *storage.Run) error
	CompleteRun(ctx context.Context, run *storage.Run) error
	SaveMatchRecord(ctx context.Context, record *storage.MatchRecord) error
}

// Options holds reconcile configuration
type Options struct {
	DryRun       bool
	LookbackDays int
	MaxOrders    int
}

// MemberOutcome is what happened to one transaction of a match
type MemberOutcome struct {
	TransactionID string
	Memo          string
	Applied       bool
	Err           error
}

// MatchOutcome is a gated match together with its per-member results
type MatchOutcome struct {
	Match   model.Match
	Class   ConfidenceClass
	Members []MemberOutcome
}

// Result holds batch results. Updated and Failed count transactions; the
// confidence counts count matches.
type Result struct {
	RunID               string
	TransactionsFetched int
	OrdersFetched       int
	Candidates          int
	Updated             int
	HighConfidence      int
	MediumConfidence    int
	LowConfidence       int
	Failed              int
	Matches             []MatchOutcome
	SourceErrors        map[string]error
}

func (r *Result) count(class ConfidenceClass) {
	switch class {
	case High:
		r.HighConfidence++
	case Medium:
		r.MediumConfidence++
	default:
		r.LowConfidence++
	}
}
