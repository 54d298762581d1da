// Package engine is the orchestrating facade over the valuation pipeline:
// depreciation model, listings aggregation, blending, projection, scheduling
// and market-shift detection.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carworth/carworth/internal/cache"
	"github.com/carworth/carworth/internal/clock"
	"github.com/carworth/carworth/internal/depreciation"
	"github.com/carworth/carworth/internal/domain"
	"github.com/carworth/carworth/internal/listings"
	"github.com/carworth/carworth/internal/marketshift"
	"github.com/carworth/carworth/internal/metrics"
	"github.com/carworth/carworth/internal/projection"
	"github.com/carworth/carworth/internal/provider"
	"github.com/carworth/carworth/internal/scheduler"
	"github.com/carworth/carworth/internal/segment"
	"github.com/carworth/carworth/internal/valuation"
)

// ValuationCacheTTL is how long a blended estimate stays valid.
const ValuationCacheTTL = 30 * 24 * time.Hour

// earliestModelYear bounds input validation.
const earliestModelYear = 1950

// PriceSource looks up MSRP/price quotes; failures are degraded from, never
// surfaced to the valuation caller.
type PriceSource interface {
	Lookup(ctx context.Context, desc domain.VehicleDescriptor, mileage int) (provider.PriceQuote, error)
}

// Engine wires the valuation pipeline together.
type Engine struct {
	classifier *segment.Classifier
	model      *depreciation.Model
	aggregator *listings.Aggregator
	blender    *valuation.Blender
	projector  *projection.Projector
	scheduler  *scheduler.Scheduler
	detector   *marketshift.Detector
	prices     PriceSource
	valCache   cache.Store
	clock      clock.Clock
	metrics    *metrics.Registry
}

// New builds the engine and attaches it as the valuator behind the scheduler
// and the shift detector.
func New(
	aggregator *listings.Aggregator,
	prices PriceSource,
	sched *scheduler.Scheduler,
	detector *marketshift.Detector,
	valCache cache.Store,
	clk clock.Clock,
	m *metrics.Registry,
) *Engine {
	e := &Engine{
		classifier: segment.New(),
		model:      depreciation.NewModel(),
		aggregator: aggregator,
		blender:    valuation.NewBlender(),
		projector:  projection.NewProjector(),
		scheduler:  sched,
		detector:   detector,
		prices:     prices,
		valCache:   valCache,
		clock:      clk,
		metrics:    m,
	}
	sched.SetValuator(e)
	sched.SetShiftObserver(detector)
	sched.SetMetrics(m)
	detector.SetValuator(e)
	detector.SetMetrics(m)
	return e
}

// Valuate runs the full on-demand valuation path. Upstream unavailability
// never fails the call; it produces a degraded, low-confidence estimate.
func (e *Engine) Valuate(ctx context.Context, desc domain.VehicleDescriptor, usage domain.VehicleUsage, finance *domain.FinanceData) (*domain.ValuationResult, error) {
	started := e.clock.Now()
	if err := validate(desc, usage, started); err != nil {
		return nil, err
	}

	estimate, momentum := e.blendedEstimate(ctx, desc, usage, true)

	in := projection.Input{
		CurrentValue:   estimate.EstimatedValue,
		CurrentMileage: usage.CurrentMileage,
		AnnualMileage:  usage.AnnualMileageEstimate,
		Segment:        estimate.Segment,
		Momentum:       momentum,
		Now:            started,
	}

	result := &domain.ValuationResult{
		Estimate:    estimate,
		Projections: e.projector.ProjectHorizons(in),
		SellWindow:  e.projector.FindOptimalSellWindow(in, finance),
	}
	if finance != nil && finance.LoanBalance > 0 {
		equity := e.projector.CalculateEquityProjection(in, *finance)
		result.Equity = &equity
	}

	alerts, err := e.detector.ActiveAlerts(ctx, desc)
	if err != nil {
		log.Warn().Err(err).Str("vehicle", desc.String()).Msg("alert lookup failed")
	} else {
		result.ActiveAlerts = alerts
	}

	e.observeValuation("on_demand", estimate, started)
	return result, nil
}

// RevalueTracked re-runs the blended estimate for a tracked vehicle,
// bypassing the valuation cache so the refresh actually refreshes. Mileage is
// approximated from vehicle age because tracked records carry no odometer.
func (e *Engine) RevalueTracked(ctx context.Context, rec *domain.RefreshTrackingRecord) (float64, error) {
	usage := domain.VehicleUsage{
		CurrentMileage: approximateMileage(rec.Vehicle.Year, e.clock.Now()),
		Condition:      domain.ConditionGood,
	}
	estimate, _ := e.blendedEstimate(ctx, rec.Vehicle, usage, false)
	if estimate.EstimatedValue <= 0 {
		return 0, fmt.Errorf("refresh produced no value for %s", rec.Vehicle.String())
	}
	e.observeValuation("refresh", estimate, e.clock.Now())
	return estimate.EstimatedValue, nil
}

// CheckRefreshEligibility reports manual refresh availability.
func (e *Engine) CheckRefreshEligibility(ctx context.Context, userID, vehicleID string) (domain.RefreshEligibility, error) {
	return e.scheduler.CheckManualEligibility(ctx, userID, vehicleID)
}

// InitTracking starts refresh tracking for a vehicle.
func (e *Engine) InitTracking(ctx context.Context, userID, vehicleID string, desc domain.VehicleDescriptor) (*domain.RefreshTrackingRecord, error) {
	return e.scheduler.InitTracking(ctx, userID, vehicleID, desc)
}

// RemoveTracking stops tracking a vehicle.
func (e *Engine) RemoveTracking(ctx context.Context, vehicleID string) error {
	return e.scheduler.RemoveTracking(ctx, vehicleID)
}

// ManualRefresh runs a user-initiated refresh if the plan window allows it.
func (e *Engine) ManualRefresh(ctx context.Context, userID, vehicleID string) (float64, error) {
	return e.scheduler.ManualRefresh(ctx, userID, vehicleID)
}

// Scheduler exposes the batch driver to the cron collaborator.
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.scheduler }

// Detector exposes the market-shift operations.
func (e *Engine) Detector() *marketshift.Detector { return e.detector }

// blendedEstimate is the shared cache-aware valuation core.
func (e *Engine) blendedEstimate(ctx context.Context, desc domain.VehicleDescriptor, usage domain.VehicleUsage, useCache bool) (domain.ValuationEstimate, domain.MomentumSign) {
	now := e.clock.Now()
	key := cache.ValuationKey(desc, usage.CurrentMileage)

	if useCache {
		if cached, ok := e.cachedEstimate(ctx, key, usage.CurrentMileage, now); ok {
			e.countCache("valuation", true)
			return cached.Estimate, cached.Momentum
		}
		e.countCache("valuation", false)
	}

	seg := e.classifier.Classify(desc)
	age := float64(now.Year() - desc.Year)

	msrp, msrpReason := e.resolveMSRP(ctx, desc, usage.CurrentMileage, seg)
	theoretical := e.model.Estimate(seg, usage, msrp, age)
	stats := e.aggregator.Statistics(ctx, desc, usage.Region)

	if stats.Available() {
		// Listings carry the estimate; an MSRP fallback alone is not a
		// degraded outcome.
		msrpReason = domain.DegradedNone
	}

	estimate := e.blender.Blend(valuation.Input{
		Theoretical: theoretical,
		Stats:       stats,
		Segment:     seg,
		Mileage:     usage.CurrentMileage,
		Urban:       isUrban(usage.Region),
		Degraded:    msrpReason,
		Now:         now,
	})

	e.storeEstimate(ctx, key, estimate, stats.Momentum)
	return estimate, stats.Momentum
}

// resolveMSRP asks the price source, degrading to the segment formula when
// the source or every credential is down.
func (e *Engine) resolveMSRP(ctx context.Context, desc domain.VehicleDescriptor, mileage int, seg domain.Segment) (float64, domain.DegradedReason) {
	if e.prices == nil {
		return depreciation.FallbackMSRP(seg), domain.DegradedNone
	}
	quote, err := e.prices.Lookup(ctx, desc, mileage)
	if err == nil && quote.Price > 0 {
		return quote.Price, domain.DegradedNone
	}

	reason := domain.DegradedMSRPUnavailable
	if errors.Is(err, domain.ErrAllKeysExhausted) {
		reason = domain.DegradedKeysExhausted
	}
	log.Warn().Err(err).Str("vehicle", desc.String()).
		Msg("msrp lookup failed, using segment fallback")
	return depreciation.FallbackMSRP(seg), reason
}

type cachedValuation struct {
	Estimate domain.ValuationEstimate `json:"estimate"`
	Momentum domain.MomentumSign      `json:"momentum"`
}

func (e *Engine) cachedEstimate(ctx context.Context, key string, mileage int, now time.Time) (cachedValuation, bool) {
	raw, found, err := e.valCache.Get(ctx, key)
	if err != nil || !found {
		return cachedValuation{}, false
	}
	var cached cachedValuation
	if err := json.Unmarshal(raw, &cached); err != nil {
		return cachedValuation{}, false
	}
	if now.Sub(cached.Estimate.GeneratedAt) >= ValuationCacheTTL {
		return cachedValuation{}, false
	}
	// A cache hit with a very different odometer is no hit at all.
	if abs(mileage-cached.Estimate.Mileage) > cache.ValuationMileageDrift {
		return cachedValuation{}, false
	}
	return cached, true
}

func (e *Engine) storeEstimate(ctx context.Context, key string, estimate domain.ValuationEstimate, momentum domain.MomentumSign) {
	raw, err := json.Marshal(cachedValuation{Estimate: estimate, Momentum: momentum})
	if err != nil {
		return
	}
	if err := e.valCache.Set(ctx, key, raw, ValuationCacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("valuation cache write failed")
	}
}

func validate(desc domain.VehicleDescriptor, usage domain.VehicleUsage, now time.Time) error {
	if strings.TrimSpace(desc.Make) == "" || strings.TrimSpace(desc.Model) == "" {
		return fmt.Errorf("%w: make and model are required", domain.ErrInvalidInput)
	}
	if desc.Year < earliestModelYear || desc.Year > now.Year()+1 {
		return fmt.Errorf("%w: model year %d out of range", domain.ErrInvalidInput, desc.Year)
	}
	if usage.CurrentMileage < 0 {
		return fmt.Errorf("%w: mileage cannot be negative", domain.ErrInvalidInput)
	}
	if usage.AnnualMileageEstimate < 0 {
		return fmt.Errorf("%w: annual mileage cannot be negative", domain.ErrInvalidInput)
	}
	if usage.Condition != "" && !usage.Condition.Valid() {
		return fmt.Errorf("%w: unknown condition %q", domain.ErrInvalidInput, usage.Condition)
	}
	return nil
}

func (e *Engine) observeValuation(path string, estimate domain.ValuationEstimate, started time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.ValuationDuration.WithLabelValues(path).Observe(e.clock.Now().Sub(started).Seconds())
	e.metrics.ValuationsTotal.WithLabelValues(string(estimate.Confidence)).Inc()
	if estimate.Degraded {
		e.metrics.DegradedTotal.WithLabelValues(string(estimate.DegradedReason)).Inc()
	}
}

func (e *Engine) countCache(cacheType string, hit bool) {
	if e.metrics == nil {
		return
	}
	if hit {
		e.metrics.CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		e.metrics.CacheMisses.WithLabelValues(cacheType).Inc()
	}
}

func approximateMileage(modelYear int, now time.Time) int {
	age := now.Year() - modelYear
	if age < 0 {
		age = 0
	}
	return age * 12_000
}

var urbanRegions = map[string]bool{
	"urban": true,
	"city":  true,
	"metro": true,
}

func isUrban(region string) bool {
	return urbanRegions[strings.ToLower(strings.TrimSpace(region))]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
