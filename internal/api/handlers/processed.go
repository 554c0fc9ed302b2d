package handlers

import (
	"net/http"
	"sort"

	"github.com/eshaffer321/ledger-reconciler/internal/api/dto"
	"github.com/eshaffer321/ledger-reconciler/internal/domain/processed"
)

// ProcessedHandler serves the processed transaction ledger.
type ProcessedHandler struct {
	*Base
	store processed.Store
}

// NewProcessedHandler creates a handler reading from store.
func NewProcessedHandler(store processed.Store) *ProcessedHandler {
	return &ProcessedHandler{
		Base:  NewBase(nil),
		store: store,
	}
}

// Get handles GET /api/processed - returns the processed ids, sorted.
func (h *ProcessedHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Load(r.Context())
	if err != nil {
		h.WriteError(w, r, dto.InternalError())
		return
	}

	ids := append([]string{}, snap.IDs...)
	sort.Strings(ids)

	h.WriteJSON(w, http.StatusOK, dto.ProcessedResponse{
		TransactionIDs: ids,
		Count:          len(ids),
		LastUpdated:    dto.FormatTime(snap.LastUpdated),
	})
}
