package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/eshaffer321/ledger-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "ledger-reconciler (%s mode)\n", mode)
}

// PrintConfiguration prints the run configuration
func PrintConfiguration(w io.Writer, sources []string, opts reconcile.Options) {
	fmt.Fprintf(w, "Sources: %s | Lookback: %d days", strings.Join(sources, ", "), opts.LookbackDays)
	if opts.MaxOrders > 0 {
		fmt.Fprintf(w, " | Max orders: %d", opts.MaxOrders)
	}
	fmt.Fprint(w, "\n\n")
}

// PrintMatches prints one line per matched transaction
func PrintMatches(w io.Writer, result *reconcile.Result) {
	for _, outcome := range result.Matches {
		for _, member := range outcome.Members {
			status := "skipped"
			switch {
			case member.Applied:
				status = "applied"
			case member.Err != nil:
				status = "failed"
			}
			fmt.Fprintf(w, "  [%s] %-7s %.2f %s -> %s\n",
				outcome.Class, status, outcome.Match.Confidence, member.TransactionID, member.Memo)
		}
	}
}

// PrintSummary prints the run result summary. stats may be nil.
func PrintSummary(w io.Writer, result *reconcile.Result, stats *storage.Stats, dryRun bool) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Transactions=%d Orders=%d Candidates=%d\n",
		result.TransactionsFetched,
		result.OrdersFetched,
		result.Candidates)
	fmt.Fprintf(w, "Matches: High=%d Medium=%d Low=%d | Updated=%d Failed=%d\n",
		result.HighConfidence,
		result.MediumConfidence,
		result.LowConfidence,
		result.Updated,
		result.Failed)

	if len(result.SourceErrors) > 0 {
		names := make([]string, 0, len(result.SourceErrors))
		for name := range result.SourceErrors {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w, "\nSource errors:")
		for _, name := range names {
			fmt.Fprintf(w, "  - %s: %v\n", name, result.SourceErrors[name])
		}
	}

	if stats != nil && stats.TotalRuns > 0 {
		fmt.Fprintf(w, "\nAll-Time Stats: Runs=%d Updated=%d Matches=%d Processed=%d\n",
			stats.TotalRuns,
			stats.TotalUpdated,
			stats.TotalMatches,
			stats.ProcessedCount)
	}

	if dryRun {
		fmt.Fprintln(w, "\nDry run: no memos were written.")
	} else if result.Updated > 0 {
		fmt.Fprintln(w, "\nReconcile completed successfully.")
	}
}
