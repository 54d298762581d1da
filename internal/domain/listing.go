package domain

import "time"

// SellerType classifies the party behind a comparable listing.
type SellerType string

const (
	SellerDealer  SellerType = "dealer"
	SellerPrivate SellerType = "private"
	SellerAuction SellerType = "auction"
)

// ListingRecord is one comparable sale or asking price returned by the
// listings source. Records are ephemeral and only survive inside the
// listings cache.
type ListingRecord struct {
	Price         float64    `json:"price"`
	Mileage       int        `json:"mileage"`
	DaysOnMarket  int        `json:"days_on_market"`
	SellerType    SellerType `json:"seller_type"`
	DistanceMiles float64    `json:"distance_miles,omitempty"`
	Trim          string     `json:"trim,omitempty"`
	Year          int        `json:"year"`
	Source        string     `json:"source,omitempty"`
}

// MomentumSign is the direction the comparable market appears to be moving,
// inferred from how quickly listings sell.
type MomentumSign int

const (
	MomentumFalling MomentumSign = -1
	MomentumNeutral MomentumSign = 0
	MomentumRising  MomentumSign = 1
)

// ListingsStatistics is the robust reduction of a comparable-listings sample.
// All price statistics are computed from the inner 80% of the price-sorted
// sample; see the listings package for the trimming rules.
type ListingsStatistics struct {
	SampleSize      int          `json:"sample_size"`
	TrimmedMean     float64      `json:"trimmed_mean"`
	MedianPrice     float64      `json:"median_price"`
	PriceLow        float64      `json:"price_low"`
	PriceHigh       float64      `json:"price_high"`
	AvgMileage      float64      `json:"avg_mileage"`
	AvgDaysOnMarket float64      `json:"avg_days_on_market"`
	PricePerMile    float64      `json:"price_per_mile"`
	Momentum        MomentumSign `json:"momentum"`
	ExactTrimMatch  bool         `json:"exact_trim_match"`
	FetchedAt       time.Time    `json:"fetched_at"`
}

// Available reports whether the statistics carry any usable sample. Empty
// statistics are the degraded outcome when the upstream source is down.
func (s ListingsStatistics) Available() bool {
	return s.SampleSize > 0
}

// Age returns how old the underlying sample is at the given instant.
func (s ListingsStatistics) Age(now time.Time) time.Duration {
	if s.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}
