// Package scheduler owns per-vehicle refresh cadence: tier assignment,
// manual-refresh eligibility, plan changes, and the scheduled batch driver.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carworth/carworth/internal/clock"
	"github.com/carworth/carworth/internal/domain"
	"github.com/carworth/carworth/internal/metrics"
	"github.com/carworth/carworth/internal/store"
)

// PlanProvider supplies the read-only per-user resource limits.
type PlanProvider interface {
	GetLimits(ctx context.Context, userID string) (domain.PlanLimits, error)
}

// Config tunes the scheduler.
type Config struct {
	BatchSize         int
	Workers           int
	ShiftThresholdPct float64
}

// DefaultConfig bounds batches at 100 vehicles and 4 concurrent valuations,
// sharing the provider quota with the on-demand path.
func DefaultConfig() Config {
	return Config{
		BatchSize:         100,
		Workers:           4,
		ShiftThresholdPct: 1.5,
	}
}

// Scheduler decides when each tracked vehicle is refreshed.
type Scheduler struct {
	tracking store.TrackingStore
	plans    PlanProvider
	clock    clock.Clock
	config   Config

	valuator Valuator
	observer ShiftObserver
	metrics  *metrics.Registry
}

// New builds a scheduler. Valuator and observer are attached separately to
// break the construction cycle with the engine.
func New(tracking store.TrackingStore, plans PlanProvider, clk clock.Clock, config Config) *Scheduler {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.ShiftThresholdPct <= 0 {
		config.ShiftThresholdPct = 1.5
	}
	return &Scheduler{tracking: tracking, plans: plans, clock: clk, config: config}
}

// SetValuator attaches the valuation path used by batch and shift refreshes.
func (s *Scheduler) SetValuator(v Valuator) { s.valuator = v }

// SetShiftObserver attaches the market-shift detector.
func (s *Scheduler) SetShiftObserver(o ShiftObserver) { s.observer = o }

// SetMetrics attaches the batch counters. Optional; nil disables them.
func (s *Scheduler) SetMetrics(m *metrics.Registry) { s.metrics = m }

// InitTracking starts refresh tracking for a vehicle. Tier assignment happens
// here and on plan change: the user gets a daily slot if the plan still has
// one free, weekly otherwise.
func (s *Scheduler) InitTracking(ctx context.Context, userID, vehicleID string, desc domain.VehicleDescriptor) (*domain.RefreshTrackingRecord, error) {
	limits, err := s.plans.GetLimits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get plan limits: %w", err)
	}

	existing, err := s.tracking.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tracked vehicles: %w", err)
	}
	if limits.MaxVehicles > 0 && len(existing) >= limits.MaxVehicles {
		return nil, fmt.Errorf("%w: plan allows at most %d tracked vehicles",
			domain.ErrInvalidInput, limits.MaxVehicles)
	}

	now := s.clock.Now()
	tier := domain.TierWeekly
	priority := limits.DailyRefreshSlots > 0
	if limits.DailyRefreshSlots > 0 && countTier(existing, domain.TierDaily) < limits.DailyRefreshSlots {
		tier = domain.TierDaily
	}

	rec := &domain.RefreshTrackingRecord{
		VehicleID:              vehicleID,
		UserID:                 userID,
		Vehicle:                desc.Normalized(),
		Tier:                   tier,
		PriorityFlag:           priority,
		NextScheduledRefreshAt: now.Add(tier.Interval()),
		AddedAt:                now,
	}
	if err := s.tracking.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store tracking record: %w", err)
	}

	log.Info().Str("vehicle_id", vehicleID).Str("user_id", userID).
		Str("tier", string(tier)).Bool("priority", priority).
		Msg("tracking initialized")
	return rec, nil
}

// RemoveTracking deletes the scheduling state for a vehicle.
func (s *Scheduler) RemoveTracking(ctx context.Context, vehicleID string) error {
	return s.tracking.Delete(ctx, vehicleID)
}

// CheckManualEligibility reports whether the user may run a manual refresh
// right now. Ineligibility is a normal outcome carried in the result, never
// an error. Scheduled auto-refreshes do not touch the manual window.
func (s *Scheduler) CheckManualEligibility(ctx context.Context, userID, vehicleID string) (domain.RefreshEligibility, error) {
	limits, err := s.plans.GetLimits(ctx, userID)
	if err != nil {
		return domain.RefreshEligibility{}, fmt.Errorf("get plan limits: %w", err)
	}

	rec, err := s.tracking.Get(ctx, vehicleID)
	if err == domain.ErrNotTracked {
		return domain.RefreshEligibility{CanRefresh: true}, nil
	}
	if err != nil {
		return domain.RefreshEligibility{}, fmt.Errorf("get tracking record: %w", err)
	}

	return s.eligibility(rec, limits), nil
}

func (s *Scheduler) eligibility(rec *domain.RefreshTrackingRecord, limits domain.PlanLimits) domain.RefreshEligibility {
	now := s.clock.Now()
	window := time.Duration(limits.ManualRefreshIntervalDays) * 24 * time.Hour

	if rec.ManualRefreshWindowResetAt.IsZero() || now.Sub(rec.ManualRefreshWindowResetAt) >= window {
		return domain.RefreshEligibility{CanRefresh: true}
	}
	if rec.ManualRefreshesUsedInWindow < 1 {
		return domain.RefreshEligibility{CanRefresh: true}
	}

	next := rec.ManualRefreshWindowResetAt.Add(window)
	return domain.RefreshEligibility{
		CanRefresh:      false,
		Reason:          fmt.Sprintf("manual refresh already used; next available in %d-day window", limits.ManualRefreshIntervalDays),
		NextAvailableAt: &next,
	}
}

// GrantManualRefresh consumes the manual-refresh slot. The caller runs the
// valuation path and records the new value separately.
func (s *Scheduler) GrantManualRefresh(ctx context.Context, userID, vehicleID string) error {
	limits, err := s.plans.GetLimits(ctx, userID)
	if err != nil {
		return fmt.Errorf("get plan limits: %w", err)
	}
	rec, err := s.tracking.Get(ctx, vehicleID)
	if err != nil {
		return err
	}
	if elig := s.eligibility(rec, limits); !elig.CanRefresh {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, elig.Reason)
	}

	now := s.clock.Now()
	rec.ManualRefreshWindowResetAt = now
	rec.ManualRefreshesUsedInWindow = 1
	rec.LastManualRefreshAt = now
	return s.tracking.Put(ctx, rec)
}

// ManualRefresh consumes the manual slot and immediately revalues the
// vehicle. The scheduled cadence is left untouched; only the value fields and
// the manual window move.
func (s *Scheduler) ManualRefresh(ctx context.Context, userID, vehicleID string) (float64, error) {
	if s.valuator == nil {
		return 0, fmt.Errorf("manual refresh: no valuator attached")
	}
	if err := s.GrantManualRefresh(ctx, userID, vehicleID); err != nil {
		return 0, err
	}
	rec, err := s.tracking.Get(ctx, vehicleID)
	if err != nil {
		return 0, err
	}

	value, err := s.valuator.RevalueTracked(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("manual refresh valuation: %w", err)
	}
	rec.PreviousValue = rec.LastValue
	rec.LastValue = value
	if err := s.tracking.Put(ctx, rec); err != nil {
		return 0, err
	}
	return value, nil
}

// ApplyPlanChange reassigns tiers after an upgrade or downgrade. Upgrades
// give the most-recently-added vehicles the daily slots and set the priority
// flag on everything; downgrades push everything to weekly and clear it.
func (s *Scheduler) ApplyPlanChange(ctx context.Context, userID string, limits domain.PlanLimits) error {
	records, err := s.tracking.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list tracked vehicles: %w", err)
	}

	now := s.clock.Now()
	upgrade := limits.DailyRefreshSlots > 0

	// Most recently added first for daily-slot assignment.
	sort.Slice(records, func(i, j int) bool { return records[i].AddedAt.After(records[j].AddedAt) })

	for i, rec := range records {
		if upgrade {
			rec.PriorityFlag = true
			if i < limits.DailyRefreshSlots {
				rec.Tier = domain.TierDaily
			} else {
				rec.Tier = domain.TierWeekly
			}
		} else {
			rec.Tier = domain.TierWeekly
			rec.PriorityFlag = false
		}

		// Pull the next refresh in when the new cadence is shorter.
		if soonest := now.Add(rec.Tier.Interval()); rec.NextScheduledRefreshAt.After(soonest) {
			rec.NextScheduledRefreshAt = soonest
		}
		if err := s.tracking.Put(ctx, rec); err != nil {
			return fmt.Errorf("update tracking record %s: %w", rec.VehicleID, err)
		}
	}

	log.Info().Str("user_id", userID).Bool("upgrade", upgrade).
		Int("vehicles", len(records)).Msg("plan change applied")
	return nil
}

func countTier(records []*domain.RefreshTrackingRecord, tier domain.RefreshTier) int {
	count := 0
	for _, rec := range records {
		if rec.Tier == tier {
			count++
		}
	}
	return count
}
