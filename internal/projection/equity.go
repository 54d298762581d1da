package projection

import (
	"math"

	"github.com/carworth/carworth/internal/domain"
)

// equitySearchCapMonths bounds the break-even and turns-negative searches so
// they always terminate.
const equitySearchCapMonths = 60

// monthNotFound marks a bounded equity search that found no crossing.
const monthNotFound = -1

// CalculateEquityProjection compares monthly depreciation against monthly
// principal reduction under simple-interest amortization (interest =
// balance × rate / 12, principal = payment − interest) and locates, within a
// 60-month cap, the break-even month for negative-equity loans or the month a
// currently-positive position turns negative.
func (p *Projector) CalculateEquityProjection(in Input, finance domain.FinanceData) domain.EquityProjection {
	monthlyInterest := finance.LoanBalance * finance.AnnualRate / 12
	monthlyPrincipal := finance.MonthlyPayment - monthlyInterest
	if monthlyPrincipal < 0 {
		monthlyPrincipal = 0
	}
	monthlyDep := in.CurrentValue * monthlyRate(in.Segment)

	proj := domain.EquityProjection{
		CurrentEquity:        round2(in.CurrentValue - finance.LoanBalance),
		MonthlyDepreciation:  round2(monthlyDep),
		MonthlyPrincipal:     round2(monthlyPrincipal),
		IsNegativeEquityRisk: monthlyDep > monthlyPrincipal,
		BreakEvenMonth:       monthNotFound,
		TurnsNegativeMonth:   monthNotFound,
	}

	switch {
	case proj.CurrentEquity < 0:
		proj.BreakEvenMonth = p.searchCrossing(in, finance, func(value, balance float64) bool {
			return value >= balance
		})
	case proj.IsNegativeEquityRisk:
		proj.TurnsNegativeMonth = p.searchCrossing(in, finance, func(value, balance float64) bool {
			return value < balance
		})
	}
	return proj
}

// searchCrossing walks month by month, amortizing the balance with simple
// interest and decaying the value, until the predicate holds or the cap is
// reached. Returns the month index or monthNotFound.
func (p *Projector) searchCrossing(in Input, finance domain.FinanceData, crossed func(value, balance float64) bool) int {
	balance := finance.LoanBalance
	rate := monthlyRate(in.Segment)

	for month := 1; month <= equitySearchCapMonths; month++ {
		interest := balance * finance.AnnualRate / 12
		principal := finance.MonthlyPayment - interest
		if principal < 0 {
			principal = 0
		}
		balance = math.Max(0, balance-principal)

		value := in.CurrentValue * math.Pow(1-rate, float64(month))
		if crossed(value, balance) {
			return month
		}
	}
	return monthNotFound
}
