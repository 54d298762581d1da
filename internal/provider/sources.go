package provider

import (
	"context"

	"github.com/carworth/carworth/internal/domain"
)

// Endpoint names used for rate limiting.
const (
	endpointListings = "listings.search"
	endpointPrice    = "price.lookup"
)

// PriceQuote is the MSRP/price source's answer for one vehicle.
type PriceQuote struct {
	Price      float64 `json:"price"`
	RangeLow   float64 `json:"range_low"`
	RangeHigh  float64 `json:"range_high"`
	Confidence string  `json:"confidence"`
}

// ListingsAPI is the raw upstream listings operation, called with one
// concrete credential. The wire format behind it is the adapter's business.
type ListingsAPI interface {
	Search(ctx context.Context, apiKey string, desc domain.VehicleDescriptor, location string) ([]domain.ListingRecord, error)
}

// PriceAPI is the raw upstream MSRP/price lookup.
type PriceAPI interface {
	Lookup(ctx context.Context, apiKey string, desc domain.VehicleDescriptor, mileage int) (PriceQuote, error)
}

// ListingsSource is the rate-limited, key-rotating listings source handed to
// the aggregator.
type ListingsSource struct {
	client *Client
	api    ListingsAPI
}

// NewListingsSource wraps a raw listings API with the shared client.
func NewListingsSource(client *Client, api ListingsAPI) *ListingsSource {
	return &ListingsSource{client: client, api: api}
}

// Search fetches comparable listings under the shared quota.
func (s *ListingsSource) Search(ctx context.Context, desc domain.VehicleDescriptor, location string) ([]domain.ListingRecord, error) {
	var records []domain.ListingRecord
	err := s.client.Do(ctx, endpointListings, func(ctx context.Context, apiKey string) error {
		found, err := s.api.Search(ctx, apiKey, desc, location)
		if err != nil {
			return err
		}
		records = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// PriceSource is the rate-limited, key-rotating MSRP source.
type PriceSource struct {
	client *Client
	api    PriceAPI
}

// NewPriceSource wraps a raw price API with the shared client.
func NewPriceSource(client *Client, api PriceAPI) *PriceSource {
	return &PriceSource{client: client, api: api}
}

// Lookup fetches an MSRP/price quote under the shared quota.
func (s *PriceSource) Lookup(ctx context.Context, desc domain.VehicleDescriptor, mileage int) (PriceQuote, error) {
	var quote PriceQuote
	err := s.client.Do(ctx, endpointPrice, func(ctx context.Context, apiKey string) error {
		found, err := s.api.Lookup(ctx, apiKey, desc, mileage)
		if err != nil {
			return err
		}
		quote = found
		return nil
	})
	if err != nil {
		return PriceQuote{}, err
	}
	return quote, nil
}
