// Package clients builds the external collaborators of a reconcile run
// (the ledger API client and the order sources) from configuration.
package clients

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/ledger-reconciler/internal/adapters/ledger"
	"github.com/eshaffer321/ledger-reconciler/internal/adapters/providers"
	"github.com/eshaffer321/ledger-reconciler/internal/adapters/providers/amazon"
	"github.com/eshaffer321/ledger-reconciler/internal/adapters/providers/csv"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/metrics"
)

// ErrMissingLedgerToken is returned when no ledger API token is configured
var ErrMissingLedgerToken = errors.New("ledger API token not configured")

// Clients holds the external systems a run talks to
type Clients struct {
	Ledger  *ledger.Client
	Sources *providers.Registry
}

// NewClients creates the ledger client and registers every enabled order
// source. m may be nil.
func NewClients(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Clients, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ledgerClient, err := NewLedgerClient(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	sources, err := NewSources(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Clients{
		Ledger:  ledgerClient,
		Sources: sources,
	}, nil
}

// NewLedgerClient creates the ledger API client. The token falls back to
// the LEDGER_TOKEN and YNAB_TOKEN environment variables.
func NewLedgerClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*ledger.Client, error) {
	token := cfg.GetAPIKey(cfg.Ledger.APIKey, "LEDGER_TOKEN", "YNAB_TOKEN")
	if token == "" {
		return nil, ErrMissingLedgerToken
	}

	minInterval, err := parseDuration("ledger.rate_limit", cfg.Ledger.RateLimit)
	if err != nil {
		return nil, err
	}
	timeout, err := parseDuration("ledger.timeout", cfg.Ledger.Timeout)
	if err != nil {
		return nil, err
	}

	var observer ledger.RequestObserver
	if m != nil {
		observer = m
	}

	return ledger.NewClient(ledger.Config{
		BaseURL:     cfg.Ledger.BaseURL,
		Token:       token,
		BudgetID:    cfg.Ledger.BudgetID,
		MaxRetries:  cfg.Ledger.MaxRetries,
		Timeout:     timeout,
		MinInterval: minInterval,
	}, logger, observer), nil
}

// NewSources registers the enabled order sources in config order
func NewSources(cfg *config.Config, logger *slog.Logger) (*providers.Registry, error) {
	registry := providers.NewRegistry(logger)

	if a := cfg.Sources.Amazon; a.Enabled {
		source := amazon.NewSource(logger, &amazon.Config{
			Profile:      a.AccountName,
			Headless:     a.Headless,
			LookbackDays: a.LookbackDays,
			OrdersFile:   a.OrdersFile,
			Retailer:     a.Retailer.Name,
		})
		if err := registry.Register(source); err != nil {
			return nil, err
		}
	}

	if c := cfg.Sources.CSV; c.Enabled {
		source := csv.NewSource(logger, csv.Config{
			Path:     c.Path,
			Retailer: c.Retailer.Name,
		})
		if err := registry.Register(source); err != nil {
			return nil, err
		}
	}

	if registry.Len() == 0 {
		return nil, config.ErrNoSourceConfigured
	}
	return registry, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}
