// Package providers defines the order sources the reconciler pulls
// purchase records from.
package providers

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/eshaffer321/ledger-reconciler/internal/domain/model"
)

// FetchOptions configures how orders are fetched
type FetchOptions struct {
	StartDate time.Time
	EndDate   time.Time
	MaxOrders int
}

// OrderSource is the interface that all order sources must implement
type OrderSource interface {
	// Name is the source identifier ("amazon", "csv")
	Name() string

	// Retailer is the display name stamped on every order ("Amazon")
	Retailer() string

	// FetchOrders returns orders dated within the requested range
	FetchOrders(ctx context.Context, opts FetchOptions) ([]model.Order, error)

	// HealthCheck verifies the source can be read
	HealthCheck(ctx context.Context) error
}

// InRange reports whether d falls inside the optional start/end bounds,
// compared by calendar day
func (o FetchOptions) InRange(d civil.Date) bool {
	if !o.StartDate.IsZero() && d.Before(civil.DateOf(o.StartDate)) {
		return false
	}
	if !o.EndDate.IsZero() && d.After(civil.DateOf(o.EndDate)) {
		return false
	}
	return true
}
