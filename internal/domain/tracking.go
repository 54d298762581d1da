package domain

import "time"

// RefreshTier is the cadence a tracked vehicle is refreshed on.
type RefreshTier string

const (
	TierDaily  RefreshTier = "daily"
	TierWeekly RefreshTier = "weekly"
)

// Interval returns the cadence between scheduled refreshes for the tier.
func (t RefreshTier) Interval() time.Duration {
	if t == TierDaily {
		return 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// RefreshTrackingRecord is the per-vehicle scheduling state. It is created
// when a vehicle is first tracked, mutated by every refresh, and deleted when
// the vehicle is removed.
type RefreshTrackingRecord struct {
	VehicleID string            `json:"vehicle_id" db:"vehicle_id"`
	UserID    string            `json:"user_id" db:"user_id"`
	Vehicle   VehicleDescriptor `json:"vehicle"`

	Tier         RefreshTier `json:"tier" db:"tier"`
	PriorityFlag bool        `json:"priority_flag" db:"priority_flag"`

	LastAutoRefreshAt      time.Time `json:"last_auto_refresh_at" db:"last_auto_refresh_at"`
	NextScheduledRefreshAt time.Time `json:"next_scheduled_refresh_at" db:"next_scheduled_refresh_at"`

	LastManualRefreshAt         time.Time `json:"last_manual_refresh_at" db:"last_manual_refresh_at"`
	ManualRefreshesUsedInWindow int       `json:"manual_refreshes_used_in_window" db:"manual_used_in_window"`
	ManualRefreshWindowResetAt  time.Time `json:"manual_refresh_window_reset_at" db:"manual_window_reset_at"`

	LastValue     float64   `json:"last_value" db:"last_value"`
	PreviousValue float64   `json:"previous_value" db:"previous_value"`
	AddedAt       time.Time `json:"added_at" db:"added_at"`
}

// Due reports whether the record is due for a scheduled refresh.
func (r *RefreshTrackingRecord) Due(now time.Time) bool {
	return !r.NextScheduledRefreshAt.After(now)
}

// PlanLimits is the read-only per-subscription resource envelope supplied by
// the plan collaborator.
type PlanLimits struct {
	MaxVehicles               int `json:"max_vehicles" yaml:"max_vehicles"`
	DailyRefreshSlots         int `json:"daily_refresh_slots" yaml:"daily_refresh_slots"`
	ManualRefreshIntervalDays int `json:"manual_refresh_interval_days" yaml:"manual_refresh_interval_days"`
}

// RefreshEligibility is the outcome of a manual-refresh eligibility check.
// An ineligible result is a normal outcome, not an error.
type RefreshEligibility struct {
	CanRefresh      bool       `json:"can_refresh"`
	Reason          string     `json:"reason,omitempty"`
	NextAvailableAt *time.Time `json:"next_available_at,omitempty"`
}
