package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/ledger-reconciler/internal/api"
	"github.com/eshaffer321/ledger-reconciler/internal/application/service"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/config"
)

const (
	jobSweepInterval = 5 * time.Minute
	jobRetention     = 24 * time.Hour
	shutdownTimeout  = 30 * time.Second
)

// APIConfig builds the server configuration. A non-empty addr overrides
// the configured listen address.
func APIConfig(cfg *config.Config, addr string) api.Config {
	apiCfg := api.DefaultConfig()
	if cfg.API.Addr != "" {
		apiCfg.Addr = cfg.API.Addr
	}
	if addr != "" {
		apiCfg.Addr = addr
	}
	if len(cfg.API.AllowedOrigins) > 0 {
		apiCfg.AllowedOrigins = cfg.API.AllowedOrigins
	}
	if cfg.Sources.Amazon.LookbackDays > 0 {
		apiCfg.DefaultLookbackDays = cfg.Sources.Amazon.LookbackDays
	}
	return apiCfg
}

// RunServe runs the API server until SIGINT or SIGTERM.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	logger := NewCommandLogger(cfg, "api", flags.Verbose)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	jobs := service.NewReconcileService(app.Orchestrator, logger.With(slog.String("component", "jobs")))

	server := api.NewServer(APIConfig(cfg, flags.Addr), api.Deps{
		Repo:      app.Repo,
		Processed: app.Processed,
		Reconcile: jobs,
		Metrics:   app.Metrics,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepJobs(ctx, jobs, logger)

	// Handle graceful shutdown
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	for _, job := range jobs.ListJobs() {
		if job.Status == service.StatusRunning || job.Status == service.StatusPending {
			_ = jobs.CancelJob(job.ID)
		}
	}
	jobs.Wait()
	logger.Info("server stopped")
	return nil
}

// sweepJobs fails stuck jobs and forgets old ones until ctx is done
func sweepJobs(ctx context.Context, jobs *service.ReconcileService, logger *slog.Logger) {
	ticker := time.NewTicker(jobSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale := jobs.MarkStaleJobsAsFailed(service.DefaultJobMaxDuration)
			removed := jobs.CleanupOldJobs(jobRetention)
			if stale > 0 || removed > 0 {
				logger.Info("swept reconcile jobs",
					slog.Int("stale", stale),
					slog.Int("removed", removed),
				)
			}
		}
	}
}
