package domain

import "time"

// ShiftDirection is the sign of a detected market-wide price movement.
type ShiftDirection string

const (
	ShiftUp   ShiftDirection = "up"
	ShiftDown ShiftDirection = "down"
)

// MarketShiftAlert records a detected, scoped, time-boxed price movement for
// a make/model/year-range group of vehicles. Matching deltas within the alert
// lifetime increment the existing alert instead of creating duplicates.
type MarketShiftAlert struct {
	ID        string `json:"id" db:"id"`
	Make      string `json:"make" db:"make"`
	Model     string `json:"model" db:"model"`
	YearStart int    `json:"year_start" db:"year_start"`
	YearEnd   int    `json:"year_end" db:"year_end"`

	ShiftPercent float64        `json:"shift_percent" db:"shift_percent"`
	Direction    ShiftDirection `json:"direction" db:"direction"`
	IsActive     bool           `json:"is_active" db:"is_active"`

	AffectedVehiclesCount int `json:"affected_vehicles_count" db:"affected_vehicles"`
	RefreshesTriggered    int `json:"refreshes_triggered" db:"refreshes_triggered"`

	DetectedAt time.Time `json:"detected_at" db:"detected_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the alert lifetime has elapsed.
func (a *MarketShiftAlert) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// Matches reports whether a vehicle falls inside the alert scope.
func (a *MarketShiftAlert) Matches(d VehicleDescriptor) bool {
	n := d.Normalized()
	return n.Make == a.Make && n.Model == a.Model &&
		n.Year >= a.YearStart && n.Year <= a.YearEnd
}
