// Package store defines the persistence contracts the engine needs for
// tracking records and market-shift alerts, with in-memory and Postgres
// implementations.
package store

import (
	"context"
	"time"

	"github.com/carworth/carworth/internal/domain"
)

// TrackingStore persists per-vehicle refresh scheduling state.
type TrackingStore interface {
	// Get returns the record or domain.ErrNotTracked.
	Get(ctx context.Context, vehicleID string) (*domain.RefreshTrackingRecord, error)
	// Put upserts a record keyed by vehicle ID.
	Put(ctx context.Context, rec *domain.RefreshTrackingRecord) error
	Delete(ctx context.Context, vehicleID string) error
	ListByUser(ctx context.Context, userID string) ([]*domain.RefreshTrackingRecord, error)
	// ListDue returns records with nextScheduledRefreshAt <= now, ordered by
	// priority flag descending then due time ascending, capped at limit.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.RefreshTrackingRecord, error)
	// ListByScope returns records whose vehicle matches the make/model and
	// year range of a shift alert.
	ListByScope(ctx context.Context, make, model string, yearStart, yearEnd int) ([]*domain.RefreshTrackingRecord, error)
}

// AlertStore persists market-shift alerts.
type AlertStore interface {
	// FindActive returns the active, unexpired alert for a make/model scope,
	// or nil when none exists.
	FindActive(ctx context.Context, make, model string, now time.Time) (*domain.MarketShiftAlert, error)
	Get(ctx context.Context, id string) (*domain.MarketShiftAlert, error)
	// Put upserts an alert keyed by ID.
	Put(ctx context.Context, alert *domain.MarketShiftAlert) error
	// ListActive returns all active, unexpired alerts.
	ListActive(ctx context.Context, now time.Time) ([]domain.MarketShiftAlert, error)
}
