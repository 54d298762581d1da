package projection

import (
	"math"

	"github.com/carworth/carworth/internal/domain"
)

// Sell-window simulation parameters.
const (
	sellWindowMonths = 24
	// A month belongs to the window when its metric is within 5% of peak.
	sellWindowBand = 0.05
	// Share of each loan payment assumed to reduce principal in the
	// simplified amortization used by the window search.
	principalShare = 0.70
)

// FindOptimalSellWindow simulates months 0..24 and locates the peak month and
// the maximal contiguous run of months within 5% of the peak. With loan data
// present the search optimizes projected equity; the raw-value peak month is
// always reported alongside so callers wanting value optimization get both.
func (p *Projector) FindOptimalSellWindow(in Input, finance *domain.FinanceData) domain.OptimalSellWindow {
	values := make([]float64, sellWindowMonths+1)
	metric := make([]float64, sellWindowMonths+1)

	balance := 0.0
	if finance != nil {
		balance = finance.LoanBalance
	}

	for month := 0; month <= sellWindowMonths; month++ {
		if month == 0 {
			values[0] = in.CurrentValue
		} else {
			values[month] = p.ProjectFutureValue(in, month).Value
			if finance != nil {
				balance -= finance.MonthlyPayment * principalShare
				if balance < 0 {
					balance = 0
				}
			}
		}
		if finance != nil {
			metric[month] = values[month] - balance
		} else {
			metric[month] = values[month]
		}
	}

	peak := argmax(metric)
	valuePeak := argmax(values)

	start, end := windowAround(metric, peak)

	window := domain.OptimalSellWindow{
		PeakMonth:      peak,
		WindowStart:    start,
		WindowEnd:      end,
		PeakValue:      values[peak],
		Metric:         "value",
		ValuePeakMonth: valuePeak,
		Recommendation: recommendation(peak),
	}
	if finance != nil {
		window.Metric = "equity"
		window.PeakEquity = round2(metric[peak])
	}
	return window
}

// windowAround expands outward from the peak in both directions, stopping at
// the first month that falls below the 95% band.
func windowAround(metric []float64, peak int) (int, int) {
	floor := metric[peak] - sellWindowBand*math.Abs(metric[peak])

	start := peak
	for start > 0 && metric[start-1] >= floor {
		start--
	}
	end := peak
	for end < len(metric)-1 && metric[end+1] >= floor {
		end++
	}
	return start, end
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func recommendation(peakMonth int) string {
	switch {
	case peakMonth <= 1:
		return "Sell now: the market value is at or near its peak."
	case peakMonth <= 3:
		return "Consider selling within the next few months before values soften."
	case peakMonth <= 6:
		return "A favorable sell window opens within six months."
	default:
		return "Hold: value is projected to stay strong for now."
	}
}
