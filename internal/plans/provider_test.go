package plans

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carworth/carworth/internal/domain"
)

func TestStatic_DefaultAndAssigned(t *testing.T) {
	free := domain.PlanLimits{MaxVehicles: 2, ManualRefreshIntervalDays: 7}
	pro := domain.PlanLimits{MaxVehicles: 25, DailyRefreshSlots: 10, ManualRefreshIntervalDays: 1}

	p := NewStatic(free)
	ctx := context.Background()

	got, err := p.GetLimits(ctx, "unknown-user")
	require.NoError(t, err)
	assert.Equal(t, free, got)

	p.Assign("pro-user", pro)
	got, err = p.GetLimits(ctx, "pro-user")
	require.NoError(t, err)
	assert.Equal(t, pro, got)

	// Other users are unaffected by the assignment.
	got, err = p.GetLimits(ctx, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, free, got)
}
