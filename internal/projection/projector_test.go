package projection

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carworth/carworth/internal/domain"
)

func baseInput() Input {
	return Input{
		CurrentValue:   22_000,
		CurrentMileage: 36_000,
		AnnualMileage:  12_000,
		Segment:        domain.SegmentMainstream,
		Momentum:       domain.MomentumNeutral,
		Now:            time.Date(2026, time.May, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestProjectFutureValue_CompoundingDecay(t *testing.T) {
	p := NewProjector()
	in := baseInput()
	in.AnnualMileage = 1 // stay clear of the 40k cliff

	proj := p.ProjectFutureValue(in, 3)

	// Three months of 1%/mo decay, landing in August (0.99 seasonality).
	want := 22_000 * math.Pow(0.99, 3) * 0.99
	assert.InDelta(t, want, proj.Value, 0.01)
	assert.Equal(t, 3, proj.MonthsAhead)
	assert.Negative(t, proj.Delta)
}

func TestProjectFutureValue_CliffInsideWindow(t *testing.T) {
	p := NewProjector()
	in := baseInput() // 36k miles at 12k/yr crosses 40k within 6 months

	with := p.ProjectFutureValue(in, 6)
	require.Equal(t, 42_000, with.ProjectedMileage)
	assert.Contains(t, with.Factors, "crosses 40k-mile threshold")

	in.AnnualMileage = 1
	without := p.ProjectFutureValue(in, 6)
	assert.NotContains(t, without.Factors, "crosses 40k-mile threshold")

	// The cliff costs 5% on top of the smooth decay.
	assert.InDelta(t, without.Value*0.95, with.Value, 0.01)
}

func TestProjectFutureValue_MomentumDrift(t *testing.T) {
	p := NewProjector()

	in := baseInput()
	in.AnnualMileage = 1

	in.Momentum = domain.MomentumRising
	rising := p.ProjectFutureValue(in, 12)
	in.Momentum = domain.MomentumFalling
	falling := p.ProjectFutureValue(in, 12)
	in.Momentum = domain.MomentumNeutral
	neutral := p.ProjectFutureValue(in, 12)

	assert.Greater(t, rising.Value, neutral.Value)
	assert.Less(t, falling.Value, neutral.Value)
}

func TestProjectHorizons(t *testing.T) {
	p := NewProjector()
	projections := p.ProjectHorizons(baseInput())

	require.Len(t, projections, 4)
	assert.Equal(t, []int{3, 6, 12, 24}, []int{
		projections[0].MonthsAhead, projections[1].MonthsAhead,
		projections[2].MonthsAhead, projections[3].MonthsAhead,
	})
	// Values decline monotonically across horizons for a neutral market.
	for i := 1; i < len(projections); i++ {
		assert.Less(t, projections[i].Value, projections[i-1].Value)
	}
}

func TestFindOptimalSellWindow_DecliningValuePeaksNow(t *testing.T) {
	p := NewProjector()
	window := p.FindOptimalSellWindow(baseInput(), nil)

	assert.Equal(t, "value", window.Metric)
	assert.Equal(t, 0, window.WindowStart)
	assert.LessOrEqual(t, window.WindowStart, window.PeakMonth)
	assert.GreaterOrEqual(t, window.WindowEnd, window.PeakMonth)
	assert.Contains(t, window.Recommendation, "Sell now")
}

func TestFindOptimalSellWindow_EquityMetricWithLoan(t *testing.T) {
	p := NewProjector()
	finance := &domain.FinanceData{
		LoanBalance:    18_000,
		MonthlyPayment: 450,
		AnnualRate:     0.06,
	}

	window := p.FindOptimalSellWindow(baseInput(), finance)

	assert.Equal(t, "equity", window.Metric)
	assert.NotZero(t, window.PeakEquity)
	// Equity peaks later than raw value when principal paydown outruns
	// depreciation.
	assert.GreaterOrEqual(t, window.PeakMonth, window.ValuePeakMonth)
	assert.LessOrEqual(t, window.WindowStart, window.PeakMonth)
	assert.GreaterOrEqual(t, window.WindowEnd, window.PeakMonth)
}

func TestCalculateEquityProjection_PositiveEquity(t *testing.T) {
	p := NewProjector()
	finance := domain.FinanceData{
		LoanBalance:    10_000,
		MonthlyPayment: 500,
		AnnualRate:     0.05,
	}

	proj := p.CalculateEquityProjection(baseInput(), finance)

	assert.InDelta(t, 12_000, proj.CurrentEquity, 0.01)
	// Principal of ~458/mo dwarfs ~220/mo depreciation.
	assert.False(t, proj.IsNegativeEquityRisk)
	assert.Equal(t, -1, proj.BreakEvenMonth)
	assert.Equal(t, -1, proj.TurnsNegativeMonth)
}

func TestCalculateEquityProjection_UnderwaterFindsBreakEven(t *testing.T) {
	p := NewProjector()
	finance := domain.FinanceData{
		LoanBalance:    26_000, // 4k underwater
		MonthlyPayment: 600,
		AnnualRate:     0.07,
	}

	proj := p.CalculateEquityProjection(baseInput(), finance)

	assert.Negative(t, proj.CurrentEquity)
	assert.Greater(t, proj.BreakEvenMonth, 0)
	assert.LessOrEqual(t, proj.BreakEvenMonth, 60)
}

func TestCalculateEquityProjection_HopelessLoanStaysNotFound(t *testing.T) {
	p := NewProjector()
	// Interest-only payment: principal never moves, value keeps falling.
	finance := domain.FinanceData{
		LoanBalance:    30_000,
		MonthlyPayment: 30_000 * 0.08 / 12,
		AnnualRate:     0.08,
	}

	proj := p.CalculateEquityProjection(baseInput(), finance)

	assert.Negative(t, proj.CurrentEquity)
	assert.Equal(t, -1, proj.BreakEvenMonth)
}
