// Package projection simulates blended valuations forward in time: monthly
// future values, the optimal sell window, and loan-equity trajectories.
package projection

import (
	"fmt"
	"math"
	"time"

	"github.com/carworth/carworth/internal/depreciation"
	"github.com/carworth/carworth/internal/domain"
	"github.com/carworth/carworth/internal/valuation"
)

// Horizons are the standard forecast horizons, in months.
var Horizons = []int{3, 6, 12, 24}

// monthlyDepreciation is the compounding per-month value decay by segment.
var monthlyDepreciation = map[domain.Segment]float64{
	domain.SegmentEconomy:    0.011,
	domain.SegmentMainstream: 0.010,
	domain.SegmentPremium:    0.011,
	domain.SegmentLuxury:     0.013,
	domain.SegmentTruck:      0.007,
	domain.SegmentSUV:        0.009,
	domain.SegmentSports:     0.006,
	domain.SegmentEV:         0.016,
	domain.SegmentExotic:     0.004,
}

// momentumMonthly is the per-month multiplicative drift applied for each unit
// of market momentum sign.
const momentumMonthly = 0.002

// projectionCliffPenalty mirrors the depreciation model's per-threshold drop.
const projectionCliffPenalty = 0.05

// Projection range half-widths (±8% above, 92% below).
const (
	projRangeLow  = 0.92
	projRangeHigh = 1.08
)

// defaultAnnualMileage is assumed when no annual estimate is supplied.
const defaultAnnualMileage = 12_000

// Projector simulates future values from a current blended estimate.
type Projector struct{}

// NewProjector returns a projector.
func NewProjector() *Projector { return &Projector{} }

// Input describes the starting point of a simulation.
type Input struct {
	CurrentValue   float64
	CurrentMileage int
	AnnualMileage  int
	Segment        domain.Segment
	Momentum       domain.MomentumSign
	Now            time.Time
}

// ProjectFutureValue simulates monthsAhead months of compounding segment
// depreciation and momentum drift, applies any mileage cliff crossed strictly
// within the window, and adjusts for the target month's seasonality.
func (p *Projector) ProjectFutureValue(in Input, monthsAhead int) domain.FutureProjection {
	annual := in.AnnualMileage
	if annual <= 0 {
		annual = defaultAnnualMileage
	}
	projectedMileage := in.CurrentMileage + annual*monthsAhead/12

	rate := monthlyRate(in.Segment)
	value := in.CurrentValue * math.Pow(1-rate, float64(monthsAhead))
	value *= math.Pow(1+momentumMonthly*float64(in.Momentum), float64(monthsAhead))

	var factors []string
	for _, threshold := range depreciation.CliffsBetween(in.CurrentMileage, projectedMileage) {
		value *= 1 - projectionCliffPenalty
		factors = append(factors, fmt.Sprintf("crosses %dk-mile threshold", threshold/1000))
	}

	targetMonth := in.Now.AddDate(0, monthsAhead, 0).Month()
	seasonal := valuation.SeasonalMultiplier(in.Segment, targetMonth)
	value *= seasonal
	if seasonal >= 1.02 {
		factors = append(factors, fmt.Sprintf("seasonal demand peak in %s", targetMonth))
	} else if seasonal <= 0.98 {
		factors = append(factors, fmt.Sprintf("seasonal demand dip in %s", targetMonth))
	}

	return domain.FutureProjection{
		MonthsAhead:      monthsAhead,
		Value:            round2(value),
		RangeLow:         round2(value * projRangeLow),
		RangeHigh:        round2(value * projRangeHigh),
		Delta:            round2(value - in.CurrentValue),
		ProjectedMileage: projectedMileage,
		Factors:          factors,
	}
}

// ProjectHorizons runs the standard 3/6/12/24-month forecasts.
func (p *Projector) ProjectHorizons(in Input) []domain.FutureProjection {
	out := make([]domain.FutureProjection, 0, len(Horizons))
	for _, months := range Horizons {
		out = append(out, p.ProjectFutureValue(in, months))
	}
	return out
}

func monthlyRate(seg domain.Segment) float64 {
	if rate, ok := monthlyDepreciation[seg]; ok {
		return rate
	}
	return monthlyDepreciation[domain.SegmentMainstream]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
