package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/ledger-reconciler/internal/api/dto"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

// maxRunsLimit caps the page size of GET /api/runs
const maxRunsLimit = 200

// RunsHandler handles reconcile run HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns the most recent runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseIntParam(r, "limit", 20)
	if err != nil {
		h.WriteError(w, r, dto.ValidationError(err.Error()))
		return
	}
	if limit <= 0 || limit > maxRunsLimit {
		h.WriteError(w, r, dto.ValidationError("limit must be between 1 and 200"))
		return
	}

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.WriteError(w, r, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single run.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, toRunResponse(*run))
}

// Matches handles GET /api/runs/{id}/matches - returns the audit trail of a run.
func (h *RunsHandler) Matches(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}

	records, err := h.repo.ListMatchRecords(r.Context(), run.ID)
	if err != nil {
		h.WriteError(w, r, dto.InternalError())
		return
	}

	response := dto.MatchRecordListResponse{
		RunID:   run.ID,
		Matches: make([]dto.MatchRecordResponse, 0, len(records)),
		Count:   len(records),
	}
	for _, rec := range records {
		response.Matches = append(response.Matches, toMatchRecordResponse(rec))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// lookup resolves the {id} URL parameter, writing the error response itself
// when the run cannot be returned.
func (h *RunsHandler) lookup(w http.ResponseWriter, r *http.Request) (*storage.Run, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, r, dto.BadRequestError("run ID is required"))
		return nil, false
	}

	run, err := h.repo.GetRun(r.Context(), id)
	if err != nil {
		h.WriteStorageError(w, r, err, "run")
		return nil, false
	}
	return run, true
}

func toRunResponse(run storage.Run) dto.RunResponse {
	return dto.RunResponse{
		ID:                  run.ID,
		StartedAt:           dto.FormatTime(run.StartedAt),
		CompletedAt:         dto.FormatTime(run.CompletedAt),
		LookbackDays:        run.LookbackDays,
		DryRun:              run.DryRun,
		TransactionsFetched: run.TransactionsFetched,
		OrdersFetched:       run.OrdersFetched,
		Candidates:          run.Candidates,
		Matches:             run.Matches,
		Updated:             run.Updated,
		HighConfidence:      run.HighConfidence,
		MediumConfidence:    run.MediumConfidence,
		LowConfidence:       run.LowConfidence,
		Failed:              run.Failed,
		Status:              run.Status,
		ErrorMessage:        run.ErrorMessage,
	}
}

func toMatchRecordResponse(rec storage.MatchRecord) dto.MatchRecordResponse {
	return dto.MatchRecordResponse{
		TransactionID:   rec.TransactionID,
		OrderID:         rec.OrderID,
		Retailer:        rec.Retailer,
		Kind:            rec.Kind,
		ChargeIndex:     rec.ChargeIndex,
		ChargeCount:     rec.ChargeCount,
		Confidence:      rec.Confidence,
		ConfidenceClass: rec.ConfidenceClass,
		ProposedMemo:    rec.ProposedMemo,
		Applied:         rec.Applied,
		ErrorMessage:    rec.ErrorMessage,
		CreatedAt:       dto.FormatTime(rec.CreatedAt),
	}
}
