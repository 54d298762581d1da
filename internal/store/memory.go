package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carworth/carworth/internal/domain"
)

// MemoryTracking is an in-process TrackingStore for tests and single-node
// runs.
type MemoryTracking struct {
	mu      sync.RWMutex
	records map[string]domain.RefreshTrackingRecord
}

// NewMemoryTracking returns an empty tracking store.
func NewMemoryTracking() *MemoryTracking {
	return &MemoryTracking{records: make(map[string]domain.RefreshTrackingRecord)}
}

func (m *MemoryTracking) Get(_ context.Context, vehicleID string) (*domain.RefreshTrackingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[vehicleID]
	if !ok {
		return nil, domain.ErrNotTracked
	}
	out := rec
	return &out, nil
}

func (m *MemoryTracking) Put(_ context.Context, rec *domain.RefreshTrackingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.VehicleID] = *rec
	return nil
}

func (m *MemoryTracking) Delete(_ context.Context, vehicleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[vehicleID]; !ok {
		return domain.ErrNotTracked
	}
	delete(m.records, vehicleID)
	return nil
}

func (m *MemoryTracking) ListByUser(_ context.Context, userID string) ([]*domain.RefreshTrackingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.RefreshTrackingRecord
	for _, rec := range m.records {
		if rec.UserID == userID {
			copied := rec
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

func (m *MemoryTracking) ListDue(_ context.Context, now time.Time, limit int) ([]*domain.RefreshTrackingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []*domain.RefreshTrackingRecord
	for _, rec := range m.records {
		if rec.Due(now) {
			copied := rec
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].PriorityFlag != due[j].PriorityFlag {
			return due[i].PriorityFlag
		}
		return due[i].NextScheduledRefreshAt.Before(due[j].NextScheduledRefreshAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MemoryTracking) ListByScope(_ context.Context, mk, model string, yearStart, yearEnd int) ([]*domain.RefreshTrackingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.RefreshTrackingRecord
	for _, rec := range m.records {
		n := rec.Vehicle.Normalized()
		if strings.EqualFold(n.Make, mk) && strings.EqualFold(n.Model, model) &&
			n.Year >= yearStart && n.Year <= yearEnd {
			copied := rec
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}

// MemoryAlerts is an in-process AlertStore.
type MemoryAlerts struct {
	mu     sync.RWMutex
	alerts map[string]domain.MarketShiftAlert
}

// NewMemoryAlerts returns an empty alert store.
func NewMemoryAlerts() *MemoryAlerts {
	return &MemoryAlerts{alerts: make(map[string]domain.MarketShiftAlert)}
}

func (m *MemoryAlerts) FindActive(_ context.Context, mk, model string, now time.Time) (*domain.MarketShiftAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, alert := range m.alerts {
		if alert.IsActive && !alert.Expired(now) &&
			strings.EqualFold(alert.Make, mk) && strings.EqualFold(alert.Model, model) {
			copied := alert
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryAlerts) Get(_ context.Context, id string) (*domain.MarketShiftAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	alert, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	copied := alert
	return &copied, nil
}

func (m *MemoryAlerts) Put(_ context.Context, alert *domain.MarketShiftAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = *alert
	return nil
}

func (m *MemoryAlerts) ListActive(_ context.Context, now time.Time) ([]domain.MarketShiftAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.MarketShiftAlert
	for _, alert := range m.alerts {
		if alert.IsActive && !alert.Expired(now) {
			out = append(out, alert)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.Before(out[j].DetectedAt) })
	return out, nil
}
