package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carworth/carworth/internal/cache"
	"github.com/carworth/carworth/internal/clock"
	"github.com/carworth/carworth/internal/domain"
	"github.com/carworth/carworth/internal/engine"
	"github.com/carworth/carworth/internal/listings"
	"github.com/carworth/carworth/internal/marketshift"
	"github.com/carworth/carworth/internal/plans"
	"github.com/carworth/carworth/internal/provider"
	"github.com/carworth/carworth/internal/scheduler"
	"github.com/carworth/carworth/internal/store"
)

type staticPrices struct{ price float64 }

func (s staticPrices) Lookup(context.Context, domain.VehicleDescriptor, int) (provider.PriceQuote, error) {
	return provider.PriceQuote{Price: s.price}, nil
}

type staticListings struct{ records []domain.ListingRecord }

func (s staticListings) Search(context.Context, domain.VehicleDescriptor, string) ([]domain.ListingRecord, error) {
	return s.records, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	records := make([]domain.ListingRecord, 20)
	for i := range records {
		records[i] = domain.ListingRecord{
			Price:        21_000 + float64(i*100),
			Mileage:      40_000 + i*500,
			DaysOnMarket: 35,
			SellerType:   domain.SellerDealer,
			Year:         2023,
		}
	}

	clk := clock.NewFixed(time.Date(2026, time.May, 15, 12, 0, 0, 0, time.UTC))
	tracking := store.NewMemoryTracking()
	sched := scheduler.New(tracking, plans.NewStatic(domain.PlanLimits{
		MaxVehicles:               5,
		ManualRefreshIntervalDays: 7,
	}), clk, scheduler.DefaultConfig())
	detector := marketshift.New(store.NewMemoryAlerts(), tracking, clk, marketshift.DefaultConfig())
	agg := listings.NewAggregator(staticListings{records}, cache.NewMemory(0), clk)
	eng := engine.New(agg, staticPrices{price: 32_000}, sched, detector, cache.NewMemory(0), clk, nil)

	return NewServer(DefaultServerConfig(), eng, prometheus.NewRegistry())
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestValuationEndpoint(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, "POST", "/valuations", ValuationRequest{
		Vehicle: domain.VehicleDescriptor{Year: 2023, Make: "Honda", Model: "Civic"},
		Usage:   domain.VehicleUsage{CurrentMileage: 36_000, AnnualMileageEstimate: 12_000, Condition: domain.ConditionGood},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var result domain.ValuationResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Greater(t, result.Estimate.EstimatedValue, 0.0)
	assert.Len(t, result.Projections, 4)
}

func TestValuationEndpoint_Errors(t *testing.T) {
	s := newTestServer(t)

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/valuations", bytes.NewBufferString("{broken"))
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid vehicle", func(t *testing.T) {
		rr := doJSON(t, s, "POST", "/valuations", ValuationRequest{
			Vehicle: domain.VehicleDescriptor{Year: 2023, Make: "Honda"},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
		assert.NotEmpty(t, errResp.Message)
		assert.NotEmpty(t, errResp.RequestID)
	})
}

func TestTrackingEndpoints(t *testing.T) {
	s := newTestServer(t)
	vehicle := domain.VehicleDescriptor{Year: 2023, Make: "Honda", Model: "Civic"}

	rr := doJSON(t, s, "POST", "/tracking", TrackingRequest{
		UserID: "user-1", VehicleID: "veh-1", Vehicle: vehicle,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var rec domain.RefreshTrackingRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "veh-1", rec.VehicleID)

	rr = doJSON(t, s, "GET", "/tracking/veh-1/eligibility?user_id=user-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var elig domain.RefreshEligibility
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &elig))
	assert.True(t, elig.CanRefresh)

	rr = doJSON(t, s, "POST", "/tracking/veh-1/refresh?user_id=user-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, s, "DELETE", "/tracking/veh-1", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, s, "DELETE", "/tracking/veh-1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTrackingEndpoints_Validation(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s, "POST", "/tracking", TrackingRequest{VehicleID: "veh-1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, s, "GET", "/tracking/veh-1/eligibility", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "user_id query parameter is required")
}

func TestAlertsEndpoint(t *testing.T) {
	s := newTestServer(t)
	civic := domain.VehicleDescriptor{Year: 2023, Make: "Honda", Model: "Civic"}
	s.handlers.engine.Detector().Observe(context.Background(), civic, -4.0)

	rr := doJSON(t, s, "GET", "/alerts?make=Honda&model=Civic&year=2023", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Alerts []domain.MarketShiftAlert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Len(t, payload.Alerts, 1)
	assert.Equal(t, domain.ShiftDown, payload.Alerts[0].Direction)

	rr = doJSON(t, s, "GET", "/alerts?make=Honda&model=Civic", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "year is required")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, "GET", "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
