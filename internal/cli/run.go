package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/eshaffer321/ledger-reconciler/internal/adapters/clients"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/logging"
)

// Exit codes of the command line tools
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

// ExitCode maps a command error to a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrNoSourceConfigured),
		errors.Is(err, clients.ErrMissingLedgerToken),
		errors.Is(err, errInvalidConfig):
		return ExitConfigError
	default:
		return ExitFailure
	}
}

var errInvalidConfig = errors.New("invalid configuration")

// NewCommandLogger builds the logger of a command; verbose forces debug
func NewCommandLogger(cfg *config.Config, system string, verbose bool) *slog.Logger {
	loggingCfg := cfg.Observability.Logging
	if verbose {
		loggingCfg.Level = "debug"
	}
	return logging.NewLoggerWithSystem(loggingCfg, system)
}

// RunReconcile executes one reconcile batch and prints its summary to out
func RunReconcile(ctx context.Context, cfg *config.Config, flags *ReconcileFlags, out io.Writer) error {
	logger := NewCommandLogger(cfg, "reconcile", flags.Verbose)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close storage", slog.Any("error", err))
		}
	}()

	opts := flags.ToOptions(cfg.Sources.Amazon.LookbackDays)

	PrintHeader(out, opts.DryRun)
	PrintConfiguration(out, app.Clients.Sources.Names(), opts)

	result, err := app.Orchestrator.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	if flags.Verbose {
		PrintMatches(out, result)
	}

	stats, err := app.Repo.GetStats(ctx)
	if err != nil {
		logger.Warn("failed to load stats", slog.Any("error", err))
		stats = nil
	}
	PrintSummary(out, result, stats, opts.DryRun)

	return nil
}
