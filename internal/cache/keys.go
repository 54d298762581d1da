package cache

import (
	"fmt"
	"strings"

	"github.com/carworth/carworth/internal/domain"
)

// MileageBucketSize groups valuation cache entries by odometer band. A cached
// estimate is also invalidated when the requested mileage drifts more than
// ValuationMileageDrift from the cached one.
const (
	MileageBucketSize     = 5_000
	ValuationMileageDrift = 5_000
)

// ListingsKey builds the listings cache key for a descriptor and coarse
// location bucket.
func ListingsKey(d domain.VehicleDescriptor, location string) string {
	n := d.Normalized()
	trim := n.Trim
	if trim == "" {
		trim = "any"
	}
	return fmt.Sprintf("listings:%s:%s:%d:%s:%s",
		keyPart(n.Make), keyPart(n.Model), n.Year, keyPart(trim), LocationBucket(location))
}

// ValuationKey builds the valuation cache key, bucketing mileage so nearby
// odometer readings share an entry.
func ValuationKey(d domain.VehicleDescriptor, mileage int) string {
	n := d.Normalized()
	trim := n.Trim
	if trim == "" {
		trim = "any"
	}
	return fmt.Sprintf("valuation:%s:%s:%d:%s:%d",
		keyPart(n.Make), keyPart(n.Model), n.Year, keyPart(trim), mileage/MileageBucketSize)
}

// LocationBucket reduces a free-form location to a coarse grouping key.
func LocationBucket(location string) string {
	location = strings.ToLower(strings.TrimSpace(location))
	if location == "" {
		return "national"
	}
	return keyPart(location)
}

func keyPart(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, ":", "-"), " ", "-")
}
