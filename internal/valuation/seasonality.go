package valuation

import (
	"time"

	"github.com/carworth/carworth/internal/domain"
)

// seasonality is the segment-by-calendar-month demand multiplier. Convertible
// weather lifts sports cars in spring, snow lifts trucks and SUVs in late
// fall, tax-refund season lifts the cheap end of the market in early spring.
var seasonality = map[domain.Segment][12]float64{
	domain.SegmentEconomy: {
		1.01, 1.02, 1.03, 1.02, 1.00, 0.99, 0.98, 0.98, 0.99, 1.00, 1.00, 0.99,
	},
	domain.SegmentMainstream: {
		1.00, 1.01, 1.02, 1.01, 1.00, 1.00, 0.99, 0.99, 0.99, 1.00, 1.00, 0.99,
	},
	domain.SegmentSports: {
		0.95, 0.96, 1.02, 1.05, 1.06, 1.05, 1.03, 1.02, 1.00, 0.97, 0.95, 0.94,
	},
	domain.SegmentTruck: {
		1.01, 1.00, 1.00, 1.00, 1.00, 1.00, 1.00, 1.00, 1.01, 1.03, 1.04, 1.03,
	},
	domain.SegmentSUV: {
		1.02, 1.01, 1.00, 0.99, 0.99, 0.99, 0.99, 1.00, 1.01, 1.03, 1.04, 1.03,
	},
	domain.SegmentEV: {
		1.00, 1.00, 1.01, 1.01, 1.01, 1.00, 1.00, 1.00, 1.00, 1.00, 1.00, 1.00,
	},
	domain.SegmentExotic: {
		0.98, 0.99, 1.01, 1.02, 1.03, 1.02, 1.01, 1.00, 1.00, 0.99, 0.98, 0.98,
	},
}

// SeasonalMultiplier returns the demand multiplier for a segment in the given
// calendar month. Segments without a curve get 1.0 year-round.
func SeasonalMultiplier(seg domain.Segment, month time.Month) float64 {
	curve, ok := seasonality[seg]
	if !ok {
		return 1.0
	}
	return curve[int(month)-1]
}
