package reconcile

import (
	"context"
	"log/slog"

	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

// Recording keeps the run table and match audit trail in step with a
// batch. Storage errors are logged and never fail the batch.

func (o *Orchestrator) startRun(ctx context.Context, run *storage.Run) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.StartRun(ctx, run); err != nil {
		o.logger.Error("failed to record run start", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) completeRun(ctx context.Context, run *storage.Run, result *Result, runErr error) {
	if o.recorder == nil {
		return
	}

	run.CompletedAt = o.now().UTC()
	run.Status = storage.RunStatusCompleted
	if runErr != nil {
		run.Status = storage.RunStatusFailed
		run.ErrorMessage = runErr.Error()
	}
	if result != nil {
		run.TransactionsFetched = result.TransactionsFetched
		run.OrdersFetched = result.OrdersFetched
		run.Candidates = result.Candidates
		run.Matches = len(result.Matches)
		run.Updated = result.Updated
		run.HighConfidence = result.HighConfidence
		run.MediumConfidence = result.MediumConfidence
		run.LowConfidence = result.LowConfidence
		run.Failed = result.Failed
	}

	// the batch context may already be cancelled; the final row is still written
	if err := o.recorder.CompleteRun(context.WithoutCancel(ctx), run); err != nil {
		o.logger.Error("failed to record run completion", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}
}

// record writes one audit row per member of a match
func (o *Orchestrator) record(ctx context.Context, runID string, outcome MatchOutcome) {
	if o.recorder == nil || runID == "" {
		return
	}

	match := outcome.Match
	for i, member := range outcome.Members {
		rec := &storage.MatchRecord{
			RunID:           runID,
			TransactionID:   member.TransactionID,
			OrderID:         match.Order.OrderID,
			Retailer:        match.Order.Retailer,
			Kind:            string(match.Kind),
			ChargeIndex:     i + 1,
			ChargeCount:     len(outcome.Members),
			Confidence:      match.Confidence,
			ConfidenceClass: outcome.Class.String(),
			ProposedMemo:    member.Memo,
			Applied:         member.Applied,
			CreatedAt:       o.now().UTC(),
		}
		if member.Err != nil {
			rec.ErrorMessage = member.Err.Error()
		}
		if err := o.recorder.SaveMatchRecord(ctx, rec); err != nil {
			o.logger.Error("failed to save match record",
				slog.String("run_id", runID),
				slog.String("transaction_id", member.TransactionID),
				slog.String("error", err.Error()))
		}
	}
}
