// Package marketshift watches valuation deltas across refreshes and raises
// scoped, time-boxed alerts that can trigger refreshes outside the normal
// cadence.
package marketshift

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/carworth/carworth/internal/clock"
	"github.com/carworth/carworth/internal/domain"
	"github.com/carworth/carworth/internal/metrics"
	"github.com/carworth/carworth/internal/scheduler"
	"github.com/carworth/carworth/internal/store"
)

// Detector defaults.
const (
	DefaultThresholdPct = 1.5
	DefaultLifetime     = 7 * 24 * time.Hour
	DefaultRefreshCap   = 50

	// yearRangeSpread widens an alert's scope to model years near the
	// triggering vehicle, since adjacent years move together.
	yearRangeSpread = 2
)

// Config tunes the detector.
type Config struct {
	ThresholdPct float64
	Lifetime     time.Duration
	RefreshCap   int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ThresholdPct: DefaultThresholdPct,
		Lifetime:     DefaultLifetime,
		RefreshCap:   DefaultRefreshCap,
	}
}

// Detector raises and expires market-shift alerts.
type Detector struct {
	alerts   store.AlertStore
	tracking store.TrackingStore
	clock    clock.Clock
	config   Config

	valuator scheduler.Valuator
	sink     AlertSink
	metrics  *metrics.Registry
}

// AlertSink receives newly raised alerts, typically for push delivery.
type AlertSink interface {
	PublishAlert(alert domain.MarketShiftAlert)
}

// New builds a detector over the alert and tracking stores.
func New(alerts store.AlertStore, tracking store.TrackingStore, clk clock.Clock, config Config) *Detector {
	if config.ThresholdPct <= 0 {
		config.ThresholdPct = DefaultThresholdPct
	}
	if config.Lifetime <= 0 {
		config.Lifetime = DefaultLifetime
	}
	if config.RefreshCap <= 0 {
		config.RefreshCap = DefaultRefreshCap
	}
	return &Detector{alerts: alerts, tracking: tracking, clock: clk, config: config}
}

// SetValuator attaches the valuation path used by triggered refreshes.
func (d *Detector) SetValuator(v scheduler.Valuator) { d.valuator = v }

// SetAlertSink attaches a push destination for new alerts.
func (d *Detector) SetAlertSink(s AlertSink) { d.sink = s }

// SetMetrics attaches the active-alert gauge. Optional; nil disables it.
func (d *Detector) SetMetrics(m *metrics.Registry) { d.metrics = m }

// Observe handles one refresh delta. Deltas below threshold are ignored; a
// matching active alert is incremented, otherwise a new alert is raised with
// a fixed expiry.
func (d *Detector) Observe(ctx context.Context, vehicle domain.VehicleDescriptor, deltaPct float64) {
	if math.Abs(deltaPct) < d.config.ThresholdPct {
		return
	}

	now := d.clock.Now()
	n := vehicle.Normalized()

	existing, err := d.alerts.FindActive(ctx, n.Make, n.Model, now)
	if err != nil {
		log.Error().Err(err).Str("vehicle", vehicle.String()).Msg("alert lookup failed")
		return
	}
	if existing != nil {
		existing.AffectedVehiclesCount++
		if err := d.alerts.Put(ctx, existing); err != nil {
			log.Error().Err(err).Str("alert_id", existing.ID).Msg("alert update failed")
		}
		return
	}

	direction := domain.ShiftUp
	if deltaPct < 0 {
		direction = domain.ShiftDown
	}
	alert := &domain.MarketShiftAlert{
		ID:                    uuid.NewString(),
		Make:                  n.Make,
		Model:                 n.Model,
		YearStart:             n.Year - yearRangeSpread,
		YearEnd:               n.Year + yearRangeSpread,
		ShiftPercent:          deltaPct,
		Direction:             direction,
		IsActive:              true,
		AffectedVehiclesCount: 1,
		DetectedAt:            now,
		ExpiresAt:             now.Add(d.config.Lifetime),
	}
	if err := d.alerts.Put(ctx, alert); err != nil {
		log.Error().Err(err).Str("vehicle", vehicle.String()).Msg("alert create failed")
		return
	}
	log.Info().Str("alert_id", alert.ID).Str("make", alert.Make).Str("model", alert.Model).
		Float64("shift_pct", deltaPct).Str("direction", string(direction)).
		Msg("market shift alert raised")
	if d.metrics != nil {
		d.metrics.ActiveShiftAlerts.Inc()
	}
	if d.sink != nil {
		d.sink.PublishAlert(*alert)
	}
}

// ExpireAlerts sweeps active alerts past their lifetime through the expire
// transition. Matching deltas never extend an alert, so expiry is purely
// time-based.
func (d *Detector) ExpireAlerts(ctx context.Context) (int, error) {
	now := d.clock.Now()
	active, err := d.alerts.ListActive(ctx, now.Add(-d.config.Lifetime))
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range active {
		alert := &active[i]
		if !alert.Expired(now) {
			continue
		}
		lc := newLifecycle(alert)
		if err := lc.Expire(ctx); err != nil {
			log.Warn().Err(err).Str("alert_id", alert.ID).Msg("alert expire transition rejected")
			continue
		}
		if err := d.alerts.Put(ctx, alert); err != nil {
			return expired, err
		}
		expired++
	}
	if d.metrics != nil && expired > 0 {
		d.metrics.ActiveShiftAlerts.Sub(float64(expired))
	}
	return expired, nil
}

// TriggerRefresh re-runs the valuation path for vehicles in the alert's
// scope, up to the refresh cap. It deliberately leaves the scheduler's
// cadence and manual-window timers untouched.
func (d *Detector) TriggerRefresh(ctx context.Context, alertID string) (int, error) {
	alert, err := d.alerts.Get(ctx, alertID)
	if err != nil {
		return 0, err
	}
	if alert == nil {
		return 0, fmt.Errorf("alert %s not found", alertID)
	}
	now := d.clock.Now()
	if !alert.IsActive || alert.Expired(now) {
		return 0, fmt.Errorf("alert %s is no longer active", alertID)
	}
	if d.valuator == nil {
		return 0, fmt.Errorf("no valuator attached")
	}

	vehicles, err := d.tracking.ListByScope(ctx, alert.Make, alert.Model, alert.YearStart, alert.YearEnd)
	if err != nil {
		return 0, err
	}
	if len(vehicles) > d.config.RefreshCap {
		vehicles = vehicles[:d.config.RefreshCap]
	}

	refreshed := 0
	for _, rec := range vehicles {
		value, err := d.valuator.RevalueTracked(ctx, rec)
		if err != nil {
			log.Warn().Err(err).Str("vehicle_id", rec.VehicleID).
				Msg("shift-triggered refresh failed")
			continue
		}
		rec.PreviousValue = rec.LastValue
		rec.LastValue = value
		if err := d.tracking.Put(ctx, rec); err != nil {
			log.Warn().Err(err).Str("vehicle_id", rec.VehicleID).
				Msg("shift-triggered refresh not persisted")
			continue
		}
		refreshed++
	}

	alert.RefreshesTriggered += refreshed
	if err := d.alerts.Put(ctx, alert); err != nil {
		return refreshed, err
	}

	log.Info().Str("alert_id", alertID).Int("refreshed", refreshed).
		Msg("shift-triggered refreshes complete")
	return refreshed, nil
}

// ActiveAlerts returns the alerts whose scope matches the descriptor.
func (d *Detector) ActiveAlerts(ctx context.Context, vehicle domain.VehicleDescriptor) ([]domain.MarketShiftAlert, error) {
	active, err := d.alerts.ListActive(ctx, d.clock.Now())
	if err != nil {
		return nil, err
	}
	var matched []domain.MarketShiftAlert
	for _, alert := range active {
		if alert.Matches(vehicle) {
			matched = append(matched, alert)
		}
	}
	return matched, nil
}
