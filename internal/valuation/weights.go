package valuation

import "github.com/carworth/carworth/internal/domain"

// Data-availability clamps on the listings weight.
const (
	thinMarketCount     = 5
	thinMarketMaxWeight = 0.30
	deepMarketCount     = 30
	deepMarketMinWeight = 0.75
)

// CalculateBlendWeights returns (listingsWeight, modelWeight), always summing
// to 1.0. Base weights reflect how much each segment's market is worth
// trusting over the theoretical curve; the clamps then bound the weight by
// how much data actually came back.
func CalculateBlendWeights(seg domain.Segment, listingsCount int, urban bool) (float64, float64) {
	if listingsCount <= 0 {
		return 0, 1
	}

	var listings float64
	switch seg {
	case domain.SegmentEV:
		// EV prices move too fast for any static curve.
		listings = 0.90
	case domain.SegmentExotic, domain.SegmentLuxury:
		// Thin markets: individual asks are noisy.
		listings = 0.30
	case domain.SegmentMainstream, domain.SegmentTruck:
		listings = 0.80
	default:
		if urban {
			listings = 0.70
		} else {
			listings = 0.40
		}
	}

	if listingsCount < thinMarketCount && listings > thinMarketMaxWeight {
		listings = thinMarketMaxWeight
	}
	if listingsCount >= deepMarketCount && listings < deepMarketMinWeight {
		listings = deepMarketMinWeight
	}

	return listings, 1 - listings
}
