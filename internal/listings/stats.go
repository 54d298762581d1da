package listings

import (
	"sort"
	"strings"
	"time"

	"github.com/carworth/carworth/internal/domain"
)

const (
	// trimFraction is the share of the price-sorted sample discarded from
	// each end before any statistic is computed.
	trimFraction = 0.10

	// fallbackPricePerMile is used when the price-on-mileage regression is
	// undefined (fewer than 2 points or zero mileage variance).
	fallbackPricePerMile = 0.10

	// Days-on-market boundaries for the momentum sign.
	momentumFastDays = 25
	momentumSlowDays = 50
)

// Reduce computes outlier-trimmed statistics over a comparable-listings
// sample. The exact-trim flag is set when every surviving listing carries the
// requested trim.
func Reduce(records []domain.ListingRecord, requestedTrim string, fetchedAt time.Time) domain.ListingsStatistics {
	if len(records) == 0 {
		return domain.ListingsStatistics{FetchedAt: fetchedAt}
	}

	sorted := make([]domain.ListingRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	trimmed := trimOutliers(sorted)

	var priceSum, mileageSum, domSum float64
	exactTrim := requestedTrim != ""
	for _, rec := range trimmed {
		priceSum += rec.Price
		mileageSum += float64(rec.Mileage)
		domSum += float64(rec.DaysOnMarket)
		if !strings.EqualFold(rec.Trim, requestedTrim) {
			exactTrim = false
		}
	}
	n := float64(len(trimmed))

	stats := domain.ListingsStatistics{
		SampleSize:      len(trimmed),
		TrimmedMean:     priceSum / n,
		MedianPrice:     trimmed[len(trimmed)/2].Price,
		PriceLow:        trimmed[0].Price,
		PriceHigh:       trimmed[len(trimmed)-1].Price,
		AvgMileage:      mileageSum / n,
		AvgDaysOnMarket: domSum / n,
		PricePerMile:    priceSlope(trimmed),
		ExactTrimMatch:  exactTrim,
		FetchedAt:       fetchedAt,
	}
	stats.Momentum = momentum(stats.AvgDaysOnMarket)
	return stats
}

// trimOutliers drops the symmetric top and bottom 10% of a price-sorted
// sample. Small samples where trimming would leave nothing are kept whole.
func trimOutliers(sorted []domain.ListingRecord) []domain.ListingRecord {
	cut := int(float64(len(sorted)) * trimFraction)
	if len(sorted)-2*cut < 1 {
		return sorted
	}
	return sorted[cut : len(sorted)-cut]
}

// priceSlope estimates dollars lost per mile via ordinary least squares of
// price on mileage. The sign convention is positive-loss: a market where
// higher mileage means lower price yields a positive slope.
func priceSlope(records []domain.ListingRecord) float64 {
	if len(records) < 2 {
		return fallbackPricePerMile
	}

	var sumX, sumY float64
	for _, rec := range records {
		sumX += float64(rec.Mileage)
		sumY += rec.Price
	}
	n := float64(len(records))
	meanX := sumX / n
	meanY := sumY / n

	var covXY, varX float64
	for _, rec := range records {
		dx := float64(rec.Mileage) - meanX
		covXY += dx * (rec.Price - meanY)
		varX += dx * dx
	}
	if varX == 0 {
		return fallbackPricePerMile
	}
	return -(covXY / varX)
}

// momentum maps average days-on-market to a direction sign: fast-moving
// inventory suggests rising prices, stale inventory the opposite.
func momentum(avgDaysOnMarket float64) domain.MomentumSign {
	switch {
	case avgDaysOnMarket < momentumFastDays:
		return domain.MomentumRising
	case avgDaysOnMarket > momentumSlowDays:
		return domain.MomentumFalling
	default:
		return domain.MomentumNeutral
	}
}
