package marketshift

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carworth/carworth/internal/clock"
	"github.com/carworth/carworth/internal/domain"
	"github.com/carworth/carworth/internal/metrics"
	"github.com/carworth/carworth/internal/store"
)

type countingValuator struct {
	calls int
	value float64
}

func (c *countingValuator) RevalueTracked(ctx context.Context, rec *domain.RefreshTrackingRecord) (float64, error) {
	c.calls++
	return c.value, nil
}

func civic(year int) domain.VehicleDescriptor {
	return domain.VehicleDescriptor{Year: year, Make: "Honda", Model: "Civic"}
}

func newTestDetector(clk clock.Clock) (*Detector, *store.MemoryAlerts, *store.MemoryTracking) {
	alerts := store.NewMemoryAlerts()
	tracking := store.NewMemoryTracking()
	return New(alerts, tracking, clk, DefaultConfig()), alerts, tracking
}

func TestObserve_BelowThresholdIgnored(t *testing.T) {
	clk := clock.NewFixed(time.Now())
	d, alerts, _ := newTestDetector(clk)
	ctx := context.Background()

	d.Observe(ctx, civic(2021), 1.0)

	active, err := alerts.ListActive(ctx, clk.Now())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestObserve_RaisesThenIncrements(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	d, alerts, _ := newTestDetector(clk)
	ctx := context.Background()

	// Two vehicles in the same make/model shift together; one alert.
	d.Observe(ctx, civic(2021), 4.0)
	d.Observe(ctx, civic(2022), 3.0)

	active, err := alerts.ListActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 1)

	alert := active[0]
	assert.Equal(t, "honda", alert.Make)
	assert.Equal(t, 2, alert.AffectedVehiclesCount)
	assert.Equal(t, domain.ShiftUp, alert.Direction)
	assert.Equal(t, 2019, alert.YearStart)
	assert.Equal(t, 2023, alert.YearEnd)
	assert.Equal(t, now.Add(7*24*time.Hour), alert.ExpiresAt)
}

func TestObserve_DownwardShiftDirection(t *testing.T) {
	clk := clock.NewFixed(time.Now())
	d, alerts, _ := newTestDetector(clk)
	ctx := context.Background()

	d.Observe(ctx, civic(2021), -2.5)

	active, err := alerts.ListActive(ctx, clk.Now())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.ShiftDown, active[0].Direction)
}

func TestExpireAlerts(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	d, alerts, _ := newTestDetector(clk)
	ctx := context.Background()

	d.Observe(ctx, civic(2021), 4.0)

	// Inside the lifetime nothing expires.
	expired, err := d.ExpireAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	clk.Advance(7*24*time.Hour + time.Minute)
	expired, err = d.ExpireAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	active, err := alerts.ListActive(ctx, clk.Now())
	require.NoError(t, err)
	assert.Empty(t, active)

	// A fresh matching delta raises a new alert rather than reviving the
	// expired one.
	d.Observe(ctx, civic(2021), 3.0)
	active, err = alerts.ListActive(ctx, clk.Now())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestTriggerRefresh_CappedAndCadencePreserved(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	d, alerts, tracking := newTestDetector(clk)
	ctx := context.Background()

	// 60 tracked Civics in scope; the cap is 50.
	next := now.Add(24 * time.Hour)
	for i := 0; i < 60; i++ {
		require.NoError(t, tracking.Put(ctx, &domain.RefreshTrackingRecord{
			VehicleID:              fmt.Sprintf("veh-%03d", i),
			UserID:                 "user-1",
			Vehicle:                civic(2021).Normalized(),
			Tier:                   domain.TierDaily,
			LastValue:              20_000,
			NextScheduledRefreshAt: next,
			AddedAt:                now,
		}))
	}

	d.Observe(ctx, civic(2021), 4.0)
	active, err := alerts.ListActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 1)

	valuator := &countingValuator{value: 20_900}
	d.SetValuator(valuator)

	refreshed, err := d.TriggerRefresh(ctx, active[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, refreshed)
	assert.Equal(t, 50, valuator.calls)

	// Values moved, cadence did not.
	rec, err := tracking.Get(ctx, "veh-000")
	require.NoError(t, err)
	assert.Equal(t, 20_900.0, rec.LastValue)
	assert.Equal(t, 20_000.0, rec.PreviousValue)
	assert.Equal(t, next, rec.NextScheduledRefreshAt)

	updated, err := alerts.Get(ctx, active[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, updated.RefreshesTriggered)
}

func TestTriggerRefresh_RejectsExpiredAlert(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	d, alerts, _ := newTestDetector(clk)
	ctx := context.Background()

	d.Observe(ctx, civic(2021), 4.0)
	active, err := alerts.ListActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 1)

	clk.Advance(8 * 24 * time.Hour)
	_, err = d.TriggerRefresh(ctx, active[0].ID)
	assert.Error(t, err)
}

func TestActiveAlerts_ScopeMatching(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	d, _, _ := newTestDetector(clk)
	ctx := context.Background()

	d.Observe(ctx, civic(2021), 4.0)

	inScope, err := d.ActiveAlerts(ctx, civic(2023)) // within the ±2 year spread
	require.NoError(t, err)
	assert.Len(t, inScope, 1)

	outOfScope, err := d.ActiveAlerts(ctx, civic(2015))
	require.NoError(t, err)
	assert.Empty(t, outOfScope)

	otherModel, err := d.ActiveAlerts(ctx, domain.VehicleDescriptor{Year: 2021, Make: "Honda", Model: "Accord"})
	require.NoError(t, err)
	assert.Empty(t, otherModel)
}

func TestLifecycle_ExpireIsOneWay(t *testing.T) {
	alert := &domain.MarketShiftAlert{ID: "a1", IsActive: true}
	lc := newLifecycle(alert)

	require.NoError(t, lc.Expire(context.Background()))
	assert.False(t, alert.IsActive)

	// A second expire is rejected by the state machine.
	assert.Error(t, newLifecycle(alert).Expire(context.Background()))
}

func TestActiveAlertGaugeTracksRaiseAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	d, _, _ := newTestDetector(clk)
	m := metrics.NewRegistry(prometheus.NewRegistry())
	d.SetMetrics(m)
	ctx := context.Background()

	d.Observe(ctx, civic(2021), 4.0)
	// The matching increment reuses the alert, so the gauge stays put.
	d.Observe(ctx, civic(2022), 3.0)
	d.Observe(ctx, domain.VehicleDescriptor{Year: 2022, Make: "Toyota", Model: "Camry"}, -2.0)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveShiftAlerts))

	clk.Advance(DefaultLifetime + time.Minute)
	expired, err := d.ExpireAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveShiftAlerts))
}
