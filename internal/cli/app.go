package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eshaffer321/ledger-reconciler/internal/adapters/clients"
	"github.com/eshaffer321/ledger-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/metrics"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

// App is a fully wired reconciler: storage, clients, metrics and the
// orchestrator. Close releases the database.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Repo         storage.Repository
	Processed    processed.Store
	Clients      *clients.Clients
	Orchestrator *reconcile.Orchestrator
}

// NewApp validates cfg and wires every collaborator
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	m := metrics.New(prometheus.NewRegistry())

	c, err := clients.NewClients(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	engines, err := BuildEngines(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	procStore, err := ProcessedStore(cfg.Storage, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	orchestrator := reconcile.NewOrchestrator(reconcile.Deps{
		Fetcher:  c.Ledger,
		Updater:  c.Ledger,
		Sources:  c.Sources,
		Ledger:   processed.NewLedger(procStore),
		Recorder: store,
		Metrics:  m,
		Logger:   logger.With(slog.String("system", "reconcile")),
	}, engines...)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Metrics:      m,
		Repo:         store,
		Processed:    procStore,
		Clients:      c,
		Orchestrator: orchestrator,
	}, nil
}

// ProcessedStore selects the processed-id backend
func ProcessedStore(sc config.StorageConfig, repo storage.Repository) (processed.Store, error) {
	switch sc.ProcessedBackend {
	case "", "json":
		return storage.NewJSONFileStore(sc.ProcessedPath), nil
	case "sqlite":
		return repo.ProcessedStore(), nil
	default:
		return nil, fmt.Errorf("unknown processed backend %q", sc.ProcessedBackend)
	}
}

// Close releases the database
func (a *App) Close() error {
	if a.Repo == nil {
		return nil
	}
	return a.Repo.Close()
}
