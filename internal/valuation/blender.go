// Package valuation blends the theoretical depreciation value with
// comparable-listings statistics into a single graded estimate.
package valuation

import (
	"time"

	"github.com/carworth/carworth/internal/domain"
)

// Estimate range half-widths.
const (
	rangeLowFactor  = 0.92
	rangeHighFactor = 1.08
)

// priceTier holds the trade-in/instant/private-party factors for one value
// bracket. Expensive cars trade in thinner, less elastic markets: dealers
// discount them less and private buyers pay more of the premium.
type priceTier struct {
	floor        float64
	tradeIn      float64
	instantOffer float64
	privateParty float64
}

var priceTiers = []priceTier{
	{floor: 150_000, tradeIn: 0.93, instantOffer: 0.91, privateParty: 1.10},
	{floor: 75_000, tradeIn: 0.91, instantOffer: 0.88, privateParty: 1.08},
	{floor: 40_000, tradeIn: 0.89, instantOffer: 0.86, privateParty: 1.05},
	{floor: 0, tradeIn: 0.86, instantOffer: 0.82, privateParty: 1.03},
}

// Input carries everything the blender needs for one estimate.
type Input struct {
	Theoretical float64
	Stats       domain.ListingsStatistics
	Segment     domain.Segment
	Mileage     int
	Urban       bool
	Degraded    domain.DegradedReason
	Now         time.Time
}

// Blender combines model and market values.
type Blender struct{}

// NewBlender returns a blender.
func NewBlender() *Blender { return &Blender{} }

// Blend produces the graded estimate. When statistics are unavailable the
// result is the pure theoretical value, marked degraded with confidence
// forced to low.
func (b *Blender) Blend(in Input) domain.ValuationEstimate {
	listingsWeight, modelWeight := CalculateBlendWeights(in.Segment, in.Stats.SampleSize, in.Urban)

	blended := in.Theoretical * modelWeight
	if in.Stats.Available() {
		blended += b.mileageAdjustedMean(in) * listingsWeight
	}

	blended *= SeasonalMultiplier(in.Segment, in.Now.Month())

	confidence := GradeConfidence(in.Stats, in.Now)
	degraded := in.Degraded != domain.DegradedNone || !in.Stats.Available()
	reason := in.Degraded
	if degraded {
		confidence = domain.ConfidenceLow
		if reason == domain.DegradedNone {
			reason = domain.DegradedNoListings
		}
	}

	tier := tierFor(blended)
	return domain.ValuationEstimate{
		EstimatedValue: round2(blended),
		TradeIn:        round2(blended * tier.tradeIn),
		InstantOffer:   round2(blended * tier.instantOffer),
		PrivateParty:   round2(blended * tier.privateParty),
		RangeLow:       round2(blended * rangeLowFactor),
		RangeHigh:      round2(blended * rangeHighFactor),
		Confidence:     confidence,
		Segment:        in.Segment,
		ListingsCount:  in.Stats.SampleSize,
		ListingsWeight: listingsWeight,
		Mileage:        in.Mileage,
		Degraded:       degraded,
		DegradedReason: reason,
		GeneratedAt:    in.Now,
	}
}

// mileageAdjustedMean moves the sample mean to the subject vehicle's odometer
// using the regression slope, so a low-mileage car is not priced against a
// high-mileage sample as-is.
func (b *Blender) mileageAdjustedMean(in Input) float64 {
	adjusted := in.Stats.TrimmedMean -
		in.Stats.PricePerMile*(float64(in.Mileage)-in.Stats.AvgMileage)
	if adjusted < 0 {
		adjusted = 0
	}
	return adjusted
}

func tierFor(value float64) priceTier {
	for _, tier := range priceTiers {
		if value >= tier.floor {
			return tier
		}
	}
	return priceTiers[len(priceTiers)-1]
}

func round2(v float64) float64 {
	if v < 0 {
		return 0
	}
	return float64(int64(v*100+0.5)) / 100
}
