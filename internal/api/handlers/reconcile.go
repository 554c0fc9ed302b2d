package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/ledger-reconciler/internal/api/dto"
	"github.com/eshaffer321/ledger-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconciler/internal/application/service"
)

// ReconcileHandler starts and inspects background reconcile jobs.
type ReconcileHandler struct {
	*Base
	service             *service.ReconcileService
	defaultLookbackDays int
}

// NewReconcileHandler creates a new reconcile handler. Requests without a
// lookback use defaultLookbackDays.
func NewReconcileHandler(svc *service.ReconcileService, defaultLookbackDays int) *ReconcileHandler {
	return &ReconcileHandler{
		Base:                NewBase(nil),
		service:             svc,
		defaultLookbackDays: defaultLookbackDays,
	}
}

// Start handles POST /api/reconcile - starts a new job. An empty body runs
// with the defaults.
func (h *ReconcileHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.WriteError(w, r, dto.BadRequestError("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		h.WriteError(w, r, dto.ValidationError(err.Error()))
		return
	}
	if req.LookbackDays == 0 {
		req.LookbackDays = h.defaultLookbackDays
	}

	jobID, err := h.service.StartJob(r.Context(), reconcile.Options{
		DryRun:       req.DryRun,
		LookbackDays: req.LookbackDays,
		MaxOrders:    req.MaxOrders,
	})
	if errors.Is(err, service.ErrJobRunning) {
		h.WriteError(w, r, dto.ConflictError(err.Error()))
		return
	}
	if err != nil {
		h.WriteError(w, r, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartReconcileResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
	})
}

// Get handles GET /api/reconcile/{jobId}.
func (h *ReconcileHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.GetJob(chi.URLParam(r, "jobId"))
	if err != nil {
		h.WriteError(w, r, dto.NotFoundError("reconcile job"))
		return
	}
	h.WriteJSON(w, http.StatusOK, toJobResponse(job))
}

// List handles GET /api/reconcile - lists all jobs, newest first.
func (h *ReconcileHandler) List(w http.ResponseWriter, _ *http.Request) {
	jobs := h.service.ListJobs()

	response := dto.JobListResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Cancel handles DELETE /api/reconcile/{jobId}.
func (h *ReconcileHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	err := h.service.CancelJob(chi.URLParam(r, "jobId"))
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		h.WriteError(w, r, dto.NotFoundError("reconcile job"))
		return
	case err != nil:
		h.WriteError(w, r, dto.ConflictError(err.Error()))
		return
	}

	job, err := h.service.GetJob(chi.URLParam(r, "jobId"))
	if err != nil {
		h.WriteError(w, r, dto.NotFoundError("reconcile job"))
		return
	}
	h.WriteJSON(w, http.StatusOK, toJobResponse(job))
}

func toJobResponse(job service.Job) dto.JobResponse {
	response := dto.JobResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		DryRun:       job.Options.DryRun,
		LookbackDays: job.Options.LookbackDays,
		StartedAt:    dto.FormatTime(job.StartedAt),
	}
	if job.CompletedAt != nil {
		response.CompletedAt = dto.FormatTime(*job.CompletedAt)
	}
	if job.Result != nil {
		response.Result = &dto.JobResultResponse{
			RunID:               job.Result.RunID,
			TransactionsFetched: job.Result.TransactionsFetched,
			OrdersFetched:       job.Result.OrdersFetched,
			Candidates:          job.Result.Candidates,
			Updated:             job.Result.Updated,
			HighConfidence:      job.Result.HighConfidence,
			MediumConfidence:    job.Result.MediumConfidence,
			LowConfidence:       job.Result.LowConfidence,
			Failed:              job.Result.Failed,
		}
	}
	if job.Error != nil {
		response.Error = job.Error.Error()
	}
	return response
}
