package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/carworth/carworth/internal/domain"
)

// HTTPApi talks to the vehicle-data vendor's REST API. It implements both
// ListingsAPI and PriceAPI; credential and quota failures are mapped onto the
// sentinel errors the client rotates on.
type HTTPApi struct {
	baseURL string
	http    *http.Client
}

// NewHTTPApi builds the adapter for the given vendor base URL.
func NewHTTPApi(baseURL string) *HTTPApi {
	return &HTTPApi{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type listingsResponse struct {
	Listings []domain.ListingRecord `json:"listings"`
}

// Search fetches comparable active listings.
func (a *HTTPApi) Search(ctx context.Context, apiKey string, desc domain.VehicleDescriptor, location string) ([]domain.ListingRecord, error) {
	q := url.Values{}
	q.Set("make", desc.Make)
	q.Set("model", desc.Model)
	q.Set("year", strconv.Itoa(desc.Year))
	if desc.Trim != "" {
		q.Set("trim", desc.Trim)
	}
	if location != "" {
		q.Set("location", location)
	}

	var resp listingsResponse
	if err := a.get(ctx, apiKey, "/v2/search/car/active", q, &resp); err != nil {
		return nil, err
	}
	return resp.Listings, nil
}

// Lookup fetches the vendor's price estimate for one vehicle.
func (a *HTTPApi) Lookup(ctx context.Context, apiKey string, desc domain.VehicleDescriptor, mileage int) (PriceQuote, error) {
	q := url.Values{}
	q.Set("make", desc.Make)
	q.Set("model", desc.Model)
	q.Set("year", strconv.Itoa(desc.Year))
	if desc.Trim != "" {
		q.Set("trim", desc.Trim)
	}
	if mileage > 0 {
		q.Set("miles", strconv.Itoa(mileage))
	}

	var quote PriceQuote
	if err := a.get(ctx, apiKey, "/v2/predict/car/price", q, &quote); err != nil {
		return PriceQuote{}, err
	}
	return quote, nil
}

func (a *HTTPApi) get(ctx context.Context, apiKey, path string, q url.Values, out interface{}) error {
	q.Set("api_key", apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrInvalidCredential, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		return fmt.Errorf("%w: status %d", ErrQuotaExhausted, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
