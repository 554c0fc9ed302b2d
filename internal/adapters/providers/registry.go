package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// maxConcurrentFetches bounds how many sources are fetched at once
const maxConcurrentFetches = 4

// FetchResult is the outcome of one source fetch
type FetchResult struct {
	Source string
	Orders []model.Order
	Err    error
}

// Registry manages all registered order sources
type Registry struct {
	sources []OrderSource
	byName  map[string]OrderSource
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewRegistry creates a new source registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byName: make(map[string]OrderSource),
		logger: logger,
	}
}

// Register adds a source to the registry
func (r *Registry) Register(source OrderSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := source.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("order source %s already registered", name)
	}

	r.byName[name] = source
	r.sources = append(r.sources, source)
	r.logger.Info("registered order source",
		slog.String("source", name),
		slog.String("retailer", source.Retailer()),
	)
	return nil
}

// Get returns a source by name
func (r *Registry) Get(name string) (OrderSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, exists := r.byName[name]
	if !exists {
		return nil, fmt.Errorf("order source %s not found", name)
	}
	return source, nil
}

// All returns every source in registration order
func (r *Registry) All() []OrderSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]OrderSource, len(r.sources))
	copy(out, r.sources)
	return out
}

// Names returns the source names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for _, source := range r.sources {
		names = append(names, source.Name())
	}
	return names
}

// Len returns the number of registered sources
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// FetchAll fetches every source concurrently. A failing source does not
// stop the others; its error is reported in its FetchResult. Results are
// in registration order.
func (r *Registry) FetchAll(ctx context.Context, opts FetchOptions) []FetchResult {
	sources := r.All()
	results := make([]FetchResult, len(sources))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	for i, source := range sources {
		g.Go(func() error {
			orders, err := source.FetchOrders(ctx, opts)
			results[i] = FetchResult{Source: source.Name(), Orders: orders, Err: err}
			if err != nil {
				r.logger.Warn("order source fetch failed",
					slog.String("source", source.Name()),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
