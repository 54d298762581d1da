// Package depreciation implements the theoretical depreciation model: segment
// curves, mileage adjustment with cliff penalties, condition and regional
// multipliers. Everything here is pure and deterministic.
package depreciation

import (
	"strings"

	"github.com/carworth/carworth/internal/domain"
)

// defaultAnnualMileage is assumed when the caller supplies no annual estimate.
const defaultAnnualMileage = 12_000

// valueFloorFraction clamps the output to a fraction of the base MSRP. Even a
// poor-condition high-mileage vehicle retains scrap-plus value.
const valueFloorFraction = 0.30

// mileageBonusCap limits how much below-expected mileage can inflate value.
const mileageBonusCap = 0.10

// Model computes theoretical vehicle values from MSRP, age, mileage,
// condition and region.
type Model struct{}

// NewModel returns a depreciation model.
func NewModel() *Model { return &Model{} }

// Estimate computes the floor-clamped theoretical value for a vehicle of the
// given age in years. MSRP must be resolved by the caller (lookup or
// FallbackMSRP).
func (m *Model) Estimate(seg domain.Segment, usage domain.VehicleUsage, msrp, age float64) float64 {
	if msrp <= 0 {
		msrp = FallbackMSRP(seg)
	}
	if age < 0 {
		age = 0
	}

	value := msrp * CurveMultiplier(seg, age)

	value = m.applyMileage(value, usage, age)

	for i := 0; i < CliffsCrossed(usage.CurrentMileage); i++ {
		value *= 1 - cliffPenalty
	}

	if mult, ok := conditionMultipliers[usage.Condition]; ok {
		value *= mult
	}
	value *= RegionalMultiplier(seg, usage.Region)

	if floor := msrp * valueFloorFraction; value < floor {
		value = floor
	}
	return value
}

// applyMileage adjusts value for the deviation between actual and
// age-expected mileage, at a per-mile rate scaled to the vehicle's value tier.
func (m *Model) applyMileage(value float64, usage domain.VehicleUsage, age float64) float64 {
	annual := usage.AnnualMileageEstimate
	if annual <= 0 {
		annual = defaultAnnualMileage
	}
	expected := age * float64(annual)
	deviation := float64(usage.CurrentMileage) - expected

	adjusted := value - deviation*perMileRate(value)

	// Below-expected mileage helps, but only so far.
	if ceiling := value * (1 + mileageBonusCap); adjusted > ceiling {
		adjusted = ceiling
	}
	if adjusted < 0 {
		adjusted = 0
	}
	return adjusted
}

// perMileRate returns the dollars-per-mile rate for a vehicle value tier.
// Expensive vehicles shed more per excess mile.
func perMileRate(value float64) float64 {
	switch {
	case value >= 120_000:
		return 0.35
	case value >= 60_000:
		return 0.20
	case value >= 30_000:
		return 0.12
	case value >= 15_000:
		return 0.08
	default:
		return 0.05
	}
}

// RegionalMultiplier returns the segment-by-region demand skew, defaulting
// to 1.0 for unknown regions.
func RegionalMultiplier(seg domain.Segment, region string) float64 {
	byRegion, ok := regionalDemand[seg]
	if !ok {
		return 1.0
	}
	if mult, ok := byRegion[strings.ToLower(strings.TrimSpace(region))]; ok {
		return mult
	}
	return 1.0
}
