package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carworth/carworth/internal/domain"
)

func freshStats(sampleSize int, now time.Time) domain.ListingsStatistics {
	return domain.ListingsStatistics{
		SampleSize:      sampleSize,
		TrimmedMean:     21_000,
		MedianPrice:     21_000,
		PriceLow:        19_000,
		PriceHigh:       23_000,
		AvgMileage:      45_000,
		AvgDaysOnMarket: 35,
		PricePerMile:    0.10,
		FetchedAt:       now,
	}
}

func TestBlend_WeightedCombination(t *testing.T) {
	b := NewBlender()
	// May has neutral seasonality for mainstream, keeping the math plain.
	now := time.Date(2026, time.May, 15, 0, 0, 0, 0, time.UTC)

	stats := freshStats(10, now)
	estimate := b.Blend(Input{
		Theoretical: 20_000,
		Stats:       stats,
		Segment:     domain.SegmentMainstream,
		Mileage:     45_000, // matches the sample, no mileage adjustment
		Now:         now,
	})

	// Mainstream at 10 listings blends 80/20 market/model.
	want := 20_000*0.20 + 21_000*0.80
	assert.InDelta(t, want, estimate.EstimatedValue, 0.01)
	assert.Equal(t, 0.80, estimate.ListingsWeight)
	assert.False(t, estimate.Degraded)
}

func TestBlend_MileageAdjustsSampleMean(t *testing.T) {
	b := NewBlender()
	now := time.Date(2026, time.May, 15, 0, 0, 0, 0, time.UTC)

	stats := freshStats(10, now)
	lowMiles := b.Blend(Input{
		Theoretical: 20_000,
		Stats:       stats,
		Segment:     domain.SegmentMainstream,
		Mileage:     30_000, // 15k under the sample average
		Now:         now,
	})
	highMiles := b.Blend(Input{
		Theoretical: 20_000,
		Stats:       stats,
		Segment:     domain.SegmentMainstream,
		Mileage:     60_000,
		Now:         now,
	})

	assert.Greater(t, lowMiles.EstimatedValue, highMiles.EstimatedValue)
	// 15k miles at $0.10/mile, carried at 80% weight.
	assert.InDelta(t, 15_000*0.10*0.80*2, lowMiles.EstimatedValue-highMiles.EstimatedValue, 0.01)
}

func TestBlend_NoListingsDegrades(t *testing.T) {
	b := NewBlender()
	now := time.Now()

	estimate := b.Blend(Input{
		Theoretical: 20_000,
		Stats:       domain.ListingsStatistics{},
		Segment:     domain.SegmentMainstream,
		Mileage:     45_000,
		Now:         now,
	})

	assert.True(t, estimate.Degraded)
	assert.Equal(t, domain.DegradedNoListings, estimate.DegradedReason)
	assert.Equal(t, domain.ConfidenceLow, estimate.Confidence)
	assert.Equal(t, 0.0, estimate.ListingsWeight)
}

func TestBlend_PriceTierFactors(t *testing.T) {
	b := NewBlender()
	now := time.Date(2026, time.May, 15, 0, 0, 0, 0, time.UTC)

	cheap := b.Blend(Input{Theoretical: 20_000, Segment: domain.SegmentMainstream, Mileage: 45_000, Now: now})
	require.Less(t, cheap.EstimatedValue, 40_000.0)
	assert.InDelta(t, cheap.EstimatedValue*0.86, cheap.TradeIn, 0.01)
	assert.InDelta(t, cheap.EstimatedValue*1.03, cheap.PrivateParty, 0.01)

	pricey := b.Blend(Input{Theoretical: 200_000, Segment: domain.SegmentExotic, Mileage: 10_000, Now: now})
	require.Greater(t, pricey.EstimatedValue, 150_000.0)
	assert.InDelta(t, pricey.EstimatedValue*0.93, pricey.TradeIn, 0.01)
	assert.InDelta(t, pricey.EstimatedValue*1.10, pricey.PrivateParty, 0.01)
}

func TestBlend_RangeBracketsEstimate(t *testing.T) {
	b := NewBlender()
	now := time.Now()

	estimate := b.Blend(Input{
		Theoretical: 20_000,
		Stats:       freshStats(10, now),
		Segment:     domain.SegmentMainstream,
		Mileage:     45_000,
		Now:         now,
	})

	assert.Less(t, estimate.RangeLow, estimate.EstimatedValue)
	assert.Greater(t, estimate.RangeHigh, estimate.EstimatedValue)
	assert.InDelta(t, estimate.EstimatedValue*0.92, estimate.RangeLow, 0.01)
	assert.InDelta(t, estimate.EstimatedValue*1.08, estimate.RangeHigh, 0.01)
}

func TestGradeConfidence(t *testing.T) {
	now := time.Now()

	// 20+ fresh listings with an exact trim match is as good as it gets.
	strong := freshStats(25, now)
	strong.ExactTrimMatch = true
	assert.Equal(t, domain.ConfidenceHigh, GradeConfidence(strong, now))

	// 10 listings, fresh: 2+2 points lands on medium.
	assert.Equal(t, domain.ConfidenceMedium, GradeConfidence(freshStats(10, now), now))

	// Same sample but two weeks stale loses the freshness points.
	stale := freshStats(10, now.Add(-15*24*time.Hour))
	stale.FetchedAt = now.Add(-15 * 24 * time.Hour)
	assert.Equal(t, domain.ConfidenceLow, GradeConfidence(stale, now))

	// Tiny sample never grades above low without help.
	assert.Equal(t, domain.ConfidenceLow, GradeConfidence(freshStats(4, now), now))
}
