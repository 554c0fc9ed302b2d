package handlers

import (
	"net/http"

	"github.com/eshaffer321/ledger-reconciler/internal/api/dto"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

// StatsHandler handles stats-related HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats - returns aggregate statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		h.WriteError(w, r, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		TotalRuns:      stats.TotalRuns,
		DryRuns:        stats.DryRuns,
		TotalUpdated:   stats.TotalUpdated,
		TotalFailed:    stats.TotalFailed,
		TotalMatches:   stats.TotalMatches,
		ProcessedCount: stats.ProcessedCount,
		LastRunAt:      dto.FormatTime(stats.LastRunAt),
	})
}
