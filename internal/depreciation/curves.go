package depreciation

import "github.com/carworth/carworth/internal/domain"

// curvePoints is the number of yearly multipliers per segment curve
// (year 0 through year 10+).
const curvePoints = 11

// depreciationCurves holds the fraction of original value retained at each
// whole year of age. Non-integer ages interpolate linearly between the two
// bracketing points; ages past year 10 decay a further 3% per year.
var depreciationCurves = map[domain.Segment][curvePoints]float64{
	domain.SegmentEconomy: {
		1.00, 0.78, 0.69, 0.62, 0.55, 0.49, 0.44, 0.39, 0.35, 0.31, 0.28,
	},
	domain.SegmentMainstream: {
		1.00, 0.80, 0.72, 0.67, 0.61, 0.55, 0.50, 0.45, 0.41, 0.37, 0.34,
	},
	domain.SegmentPremium: {
		1.00, 0.77, 0.68, 0.61, 0.54, 0.48, 0.43, 0.38, 0.34, 0.31, 0.28,
	},
	domain.SegmentLuxury: {
		1.00, 0.74, 0.63, 0.55, 0.48, 0.42, 0.37, 0.32, 0.29, 0.26, 0.23,
	},
	domain.SegmentTruck: {
		1.00, 0.85, 0.78, 0.73, 0.68, 0.63, 0.58, 0.54, 0.50, 0.46, 0.43,
	},
	domain.SegmentSUV: {
		1.00, 0.82, 0.74, 0.69, 0.63, 0.57, 0.52, 0.47, 0.43, 0.39, 0.36,
	},
	domain.SegmentSports: {
		1.00, 0.84, 0.77, 0.72, 0.67, 0.63, 0.59, 0.56, 0.53, 0.50, 0.48,
	},
	domain.SegmentEV: {
		1.00, 0.70, 0.58, 0.49, 0.42, 0.36, 0.31, 0.27, 0.24, 0.21, 0.19,
	},
	domain.SegmentExotic: {
		1.00, 0.90, 0.85, 0.81, 0.78, 0.75, 0.73, 0.71, 0.69, 0.68, 0.67,
	},
}

// beyondCurveDecay is the additional per-year decay applied to the last curve
// point for ages past year 10.
const beyondCurveDecay = 0.03

// MileageCliffs are the odometer thresholds at which vehicles lose value in a
// discrete step beyond smooth per-mile depreciation. Penalties are cumulative.
var MileageCliffs = []int{
	30_000, 40_000, 50_000, 60_000, 75_000, 90_000, 100_000, 125_000, 150_000,
}

// cliffPenalty is the fractional drop applied for each threshold crossed.
const cliffPenalty = 0.05

// conditionMultipliers adjust value for the physical state of the vehicle.
var conditionMultipliers = map[domain.Condition]float64{
	domain.ConditionExcellent: 1.08,
	domain.ConditionGood:      1.00,
	domain.ConditionFair:      0.90,
	domain.ConditionPoor:      0.75,
}

// regionalDemand captures segment-by-region demand skew. Missing entries
// default to 1.0.
var regionalDemand = map[domain.Segment]map[string]float64{
	domain.SegmentTruck: {
		"south":   1.06,
		"midwest": 1.05,
		"west":    0.98,
	},
	domain.SegmentEV: {
		"west":      1.08,
		"northeast": 1.03,
		"midwest":   0.94,
	},
	domain.SegmentSUV: {
		"northeast": 1.04,
		"midwest":   1.02,
	},
	domain.SegmentSports: {
		"west":  1.04,
		"south": 1.02,
	},
	domain.SegmentExotic: {
		"west":  1.05,
		"south": 1.03,
	},
}

// fallbackMSRP provides a rough original price by segment for vehicles whose
// MSRP could not be looked up.
var fallbackMSRP = map[domain.Segment]float64{
	domain.SegmentEconomy:    22_000,
	domain.SegmentMainstream: 32_000,
	domain.SegmentPremium:    42_000,
	domain.SegmentLuxury:     62_000,
	domain.SegmentTruck:      48_000,
	domain.SegmentSUV:        40_000,
	domain.SegmentSports:     55_000,
	domain.SegmentEV:         50_000,
	domain.SegmentExotic:     250_000,
}

// CurveMultiplier interpolates the retained-value fraction for a segment at
// the given (possibly fractional) age in years.
func CurveMultiplier(seg domain.Segment, age float64) float64 {
	curve, ok := depreciationCurves[seg]
	if !ok {
		curve = depreciationCurves[domain.SegmentMainstream]
	}
	if age <= 0 {
		return curve[0]
	}

	last := float64(curvePoints - 1)
	if age >= last {
		mult := curve[curvePoints-1]
		extra := age - last
		mult *= pow1m(beyondCurveDecay, extra)
		return mult
	}

	lo := int(age)
	hi := lo + 1
	frac := age - float64(lo)
	return curve[lo] + (curve[hi]-curve[lo])*frac
}

// pow1m computes (1-rate)^years without pulling in math.Pow for the common
// fractional case.
func pow1m(rate, years float64) float64 {
	mult := 1.0
	whole := int(years)
	for i := 0; i < whole; i++ {
		mult *= 1 - rate
	}
	if frac := years - float64(whole); frac > 0 {
		mult *= 1 - rate*frac
	}
	return mult
}

// FallbackMSRP estimates an original price for a segment when no MSRP lookup
// is available.
func FallbackMSRP(seg domain.Segment) float64 {
	if msrp, ok := fallbackMSRP[seg]; ok {
		return msrp
	}
	return fallbackMSRP[domain.SegmentMainstream]
}

// CliffsCrossed returns how many mileage thresholds the odometer has reached.
func CliffsCrossed(mileage int) int {
	crossed := 0
	for _, threshold := range MileageCliffs {
		if mileage >= threshold {
			crossed++
		}
	}
	return crossed
}

// CliffsBetween returns the thresholds crossed strictly within (from, to].
func CliffsBetween(from, to int) []int {
	var crossed []int
	for _, threshold := range MileageCliffs {
		if from < threshold && to >= threshold {
			crossed = append(crossed, threshold)
		}
	}
	return crossed
}
