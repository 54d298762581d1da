// Package listings fetches comparable listings and reduces them to robust
// statistics, with cache-first semantics and graceful degradation when the
// upstream source is unavailable.
package listings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carworth/carworth/internal/cache"
	"github.com/carworth/carworth/internal/clock"
	"github.com/carworth/carworth/internal/domain"
)

// CacheTTL is how long a fetched sample stays eligible for cache hits.
const CacheTTL = 7 * 24 * time.Hour

// Source returns raw comparable listings for a vehicle. Implementations are
// expected to be rate-limited; see the provider package.
type Source interface {
	Search(ctx context.Context, desc domain.VehicleDescriptor, location string) ([]domain.ListingRecord, error)
}

// cachedSample is the JSON payload stored in the listings cache.
type cachedSample struct {
	Listings  []domain.ListingRecord `json:"listings"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// Aggregator resolves a vehicle to ListingsStatistics via cache, falling back
// to the live source and writing through on miss.
type Aggregator struct {
	source Source
	store  cache.Store
	clock  clock.Clock
}

// NewAggregator wires an aggregator over a listings source and cache store.
func NewAggregator(source Source, store cache.Store, clk clock.Clock) *Aggregator {
	return &Aggregator{source: source, store: store, clock: clk}
}

// Statistics returns the trimmed statistics for a descriptor and optional
// location. Upstream failures degrade to empty statistics rather than an
// error; the blender renders those as a low-confidence formula estimate.
func (a *Aggregator) Statistics(ctx context.Context, desc domain.VehicleDescriptor, location string) domain.ListingsStatistics {
	now := a.clock.Now()
	key := cache.ListingsKey(desc, location)

	if sample, ok := a.cachedFresh(ctx, key, now); ok {
		return Reduce(sample.Listings, desc.Trim, sample.FetchedAt)
	}

	records, err := a.source.Search(ctx, desc, location)
	if err != nil {
		log.Warn().Err(err).Str("vehicle", desc.String()).
			Msg("listings fetch failed, degrading to empty statistics")
		return domain.ListingsStatistics{}
	}

	a.writeThrough(ctx, key, records, now)
	return Reduce(records, desc.Trim, now)
}

func (a *Aggregator) cachedFresh(ctx context.Context, key string, now time.Time) (cachedSample, bool) {
	raw, found, err := a.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("listings cache read failed")
		return cachedSample{}, false
	}
	if !found {
		return cachedSample{}, false
	}

	var sample cachedSample
	if err := json.Unmarshal(raw, &sample); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("corrupt listings cache entry")
		return cachedSample{}, false
	}
	// TTL is enforced here, not by the store.
	if now.Sub(sample.FetchedAt) >= CacheTTL {
		return cachedSample{}, false
	}
	return sample, true
}

func (a *Aggregator) writeThrough(ctx context.Context, key string, records []domain.ListingRecord, now time.Time) {
	raw, err := json.Marshal(cachedSample{Listings: records, FetchedAt: now})
	if err != nil {
		return
	}
	if err := a.store.Set(ctx, key, raw, CacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("listings cache write failed")
	}
}
