// Package service runs reconciliation batches as background jobs for the
// status API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/ledger-reconciler/internal/application/reconcile"
)

// JobStatus represents the current state of a reconcile job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// DefaultJobMaxDuration is how long a job may run before MarkStaleJobsAsFailed
// cancels it.
const DefaultJobMaxDuration = 30 * time.Minute

var (
	// ErrJobNotFound is returned for an unknown job id
	ErrJobNotFound = errors.New("job not found")

	// ErrJobRunning is returned when a batch is already in flight. The
	// processed ledger is shared, so batches never overlap.
	ErrJobRunning = errors.New("reconcile job already running")
)

// Runner runs one reconciliation batch
type Runner interface {
	Run(ctx context.Context, opts reconcile.Options) (*reconcile.Result, error)
}

// Job represents a running or completed reconcile job.
type Job struct {
	ID          string
	Status      JobStatus
	Options     reconcile.Options
	StartedAt   time.Time
	CompletedAt *time.Time
	Result      *reconcile.Result
	Error       error
	cancelFunc  context.CancelFunc
}

// ReconcileService manages background reconcile jobs.
type ReconcileService struct {
	runner Runner
	logger *slog.Logger

	jobs      map[string]*Job
	jobsMutex sync.RWMutex
	active    string

	// done is closed when the active job finishes; tests wait on it
	done chan struct{}
}

// NewReconcileService creates a new reconcile service.
func NewReconcileService(runner Runner, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{
		runner: runner,
		logger: logger,
		jobs:   make(map[string]*Job),
	}
}

// StartJob starts a reconcile job asynchronously and returns its id.
// The passed context is NOT the parent of the job: the batch outlives the
// HTTP request that started it. Use CancelJob to stop it.
func (s *ReconcileService) StartJob(_ context.Context, opts reconcile.Options) (string, error) {
	if s.runner == nil {
		return "", fmt.Errorf("reconcile service has no runner")
	}

	s.jobsMutex.Lock()
	if s.active != "" {
		s.jobsMutex.Unlock()
		return "", ErrJobRunning
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:         uuid.NewString(),
		Status:     StatusPending,
		Options:    opts,
		StartedAt:  time.Now(),
		cancelFunc: cancel,
	}
	s.jobs[job.ID] = job
	s.active = job.ID
	s.done = make(chan struct{})
	done := s.done
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, job, done)

	s.logger.Info("reconcile job started",
		"job_id", job.ID,
		"dry_run", opts.DryRun,
		"lookback_days", opts.LookbackDays,
	)
	return job.ID, nil
}

// GetJob returns a snapshot of a job.
func (s *ReconcileService) GetJob(jobID string) (Job, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return *job, nil
}

// ListJobs returns snapshots of all jobs, newest first.
func (s *ReconcileService) ListJobs() []Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	return jobs
}

// CancelJob cancels a pending or running job.
func (s *ReconcileService) CancelJob(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now

	s.logger.Info("reconcile job cancelled", "job_id", jobID)
	return nil
}

// Wait blocks until the active job, if any, has finished.
func (s *ReconcileService) Wait() {
	s.jobsMutex.RLock()
	done := s.done
	s.jobsMutex.RUnlock()
	if done != nil {
		<-done
	}
}

func (s *ReconcileService) runJob(ctx context.Context, job *Job, done chan struct{}) {
	defer close(done)
	defer job.cancelFunc()

	s.setStatus(job.ID, StatusRunning)

	result, err := s.runner.Run(ctx, job.Options)

	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	s.active = ""
	// cancelled or marked stale while running
	if job.Status != StatusRunning {
		job.Result = result
		return
	}

	now := time.Now()
	job.CompletedAt = &now
	job.Result = result
	if err != nil {
		job.Status = StatusFailed
		job.Error = err
		s.logger.Error("reconcile job failed", "job_id", job.ID, "error", err)
		return
	}

	job.Status = StatusCompleted
	s.logger.Info("reconcile job completed",
		"job_id", job.ID,
		"updated", result.Updated,
		"high", result.HighConfidence,
		"failed", result.Failed,
	)
}

func (s *ReconcileService) setStatus(jobID string, status JobStatus) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists && job.Status == StatusPending {
		job.Status = status
	}
}

// CleanupOldJobs removes finished jobs that completed before maxAge ago.
func (s *ReconcileService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			continue
		}
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old reconcile jobs", "removed", removed)
	}
	return removed
}

// MarkStaleJobsAsFailed cancels and fails jobs running longer than maxDuration.
func (s *ReconcileService) MarkStaleJobsAsFailed(maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0
	for id, job := range s.jobs {
		if job.Status != StatusRunning && job.Status != StatusPending {
			continue
		}
		if now.Sub(job.StartedAt) <= maxDuration {
			continue
		}

		job.cancelFunc()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = fmt.Errorf("job exceeded max duration of %v", maxDuration)
		marked++

		s.logger.Warn("marked stale job as failed", "job_id", id, "started_at", job.StartedAt)
	}
	return marked
}
