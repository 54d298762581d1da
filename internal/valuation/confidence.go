package valuation

import (
	"time"

	"github.com/carworth/carworth/internal/domain"
)

// Confidence point thresholds. The grade depends on listings volume, data
// freshness and trim-match exactness only, never on the price.
const (
	highConfidenceScore   = 5
	mediumConfidenceScore = 3
)

// GradeConfidence scores a statistics sample and maps it to a grade.
func GradeConfidence(stats domain.ListingsStatistics, now time.Time) domain.Confidence {
	score := 0

	switch {
	case stats.SampleSize >= 20:
		score += 3
	case stats.SampleSize >= 10:
		score += 2
	case stats.SampleSize >= 5:
		score++
	}

	if stats.Available() {
		switch age := stats.Age(now); {
		case age <= 7*24*time.Hour:
			score += 2
		case age <= 14*24*time.Hour:
			score++
		}
		if stats.ExactTrimMatch {
			score += 2
		}
	}

	switch {
	case score >= highConfidenceScore:
		return domain.ConfidenceHigh
	case score >= mediumConfidenceScore:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
