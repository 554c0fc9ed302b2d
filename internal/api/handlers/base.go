package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eshaffer321/ledger-reconciler/internal/api/dto"
	"github.com/eshaffer321/ledger-reconciler/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler. repo may be nil for handlers that
// do not read run history.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes apiErr with its own status, tagged with the request id.
func (b *Base) WriteError(w http.ResponseWriter, r *http.Request, apiErr dto.APIError) {
	apiErr.RequestID = chimw.GetReqID(r.Context())
	b.WriteJSON(w, apiErr.Status, apiErr)
}

// WriteStorageError maps a repository error: ErrNotFound is a 404 for
// resource, anything else a 500.
func (b *Base) WriteStorageError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	if errors.Is(err, storage.ErrNotFound) {
		b.WriteError(w, r, dto.NotFoundError(resource))
		return
	}
	b.WriteError(w, r, dto.InternalError())
}

// ParseIntParam parses an integer query parameter. An absent parameter
// yields defaultVal; a malformed one is an error.
func ParseIntParam(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return parsed, nil
}
