package domain

import "time"

// Confidence grades how reliable a valuation is. It is a function of listings
// volume, data freshness and trim-match quality, never of the price itself.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DegradedReason explains why a valuation fell back to the pure-formula path.
type DegradedReason string

const (
	DegradedNone            DegradedReason = ""
	DegradedNoListings      DegradedReason = "no_listings_available"
	DegradedKeysExhausted   DegradedReason = "api_keys_exhausted"
	DegradedMSRPUnavailable DegradedReason = "msrp_lookup_unavailable"
	DegradedUpstreamFailure DegradedReason = "upstream_failure"
)

// ValuationEstimate is the blended result of the depreciation model and the
// comparable-listings statistics.
type ValuationEstimate struct {
	EstimatedValue float64    `json:"estimated_value"`
	TradeIn        float64    `json:"trade_in"`
	PrivateParty   float64    `json:"private_party"`
	InstantOffer   float64    `json:"instant_offer"`
	RangeLow       float64    `json:"range_low"`
	RangeHigh      float64    `json:"range_high"`
	Confidence     Confidence `json:"confidence"`

	Segment        Segment        `json:"segment"`
	ListingsCount  int            `json:"listings_count"`
	ListingsWeight float64        `json:"listings_weight"`
	Mileage        int            `json:"mileage"`
	Degraded       bool           `json:"degraded"`
	DegradedReason DegradedReason `json:"degraded_reason,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// FutureProjection is the simulated value of a vehicle at one horizon.
type FutureProjection struct {
	MonthsAhead      int      `json:"months_ahead"`
	Value            float64  `json:"value"`
	RangeLow         float64  `json:"range_low"`
	RangeHigh        float64  `json:"range_high"`
	Delta            float64  `json:"delta"`
	ProjectedMileage int      `json:"projected_mileage"`
	Factors          []string `json:"factors,omitempty"`
}

// OptimalSellWindow is the result of simulating months 0..24 and locating the
// contiguous run of months within 5% of the peak metric. Both the raw-value
// and the equity peak are exposed so callers can pick either optimization.
type OptimalSellWindow struct {
	PeakMonth      int     `json:"peak_month"`
	WindowStart    int     `json:"window_start"`
	WindowEnd      int     `json:"window_end"`
	PeakValue      float64 `json:"peak_value"`
	PeakEquity     float64 `json:"peak_equity,omitempty"`
	Metric         string  `json:"metric"` // "value" or "equity"
	ValuePeakMonth int     `json:"value_peak_month"`
	Recommendation string  `json:"recommendation"`
}

// FinanceData describes an outstanding loan on the vehicle.
type FinanceData struct {
	LoanBalance    float64 `json:"loan_balance"`
	MonthlyPayment float64 `json:"monthly_payment"`
	AnnualRate     float64 `json:"annual_rate"`
}

// EquityProjection tracks projected vehicle value against the amortizing loan
// balance. Month fields are -1 when the bounded search found nothing.
type EquityProjection struct {
	CurrentEquity        float64 `json:"current_equity"`
	MonthlyDepreciation  float64 `json:"monthly_depreciation"`
	MonthlyPrincipal     float64 `json:"monthly_principal"`
	IsNegativeEquityRisk bool    `json:"is_negative_equity_risk"`
	BreakEvenMonth       int     `json:"break_even_month"`
	TurnsNegativeMonth   int     `json:"turns_negative_month"`
}

// ValuationResult is the full payload returned to callers of Valuate.
type ValuationResult struct {
	Estimate     ValuationEstimate  `json:"estimate"`
	Projections  []FutureProjection `json:"projections"`
	SellWindow   OptimalSellWindow  `json:"sell_window"`
	Equity       *EquityProjection  `json:"equity,omitempty"`
	ActiveAlerts []MarketShiftAlert `json:"active_alerts,omitempty"`
}
