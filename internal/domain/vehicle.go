package domain

import (
	"fmt"
	"strings"
)

// Segment is the coarse vehicle category that selects depreciation and
// seasonality curves.
type Segment string

const (
	SegmentEconomy    Segment = "economy"
	SegmentMainstream Segment = "mainstream"
	SegmentPremium    Segment = "premium"
	SegmentLuxury     Segment = "luxury"
	SegmentTruck      Segment = "truck"
	SegmentSUV        Segment = "suv"
	SegmentSports     Segment = "sports"
	SegmentEV         Segment = "ev"
	SegmentExotic     Segment = "exotic"
)

// Condition describes the physical state of a vehicle.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

// Valid reports whether the condition is one of the known values.
func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// VehicleDescriptor is the immutable identity of a vehicle. It doubles as a
// cache and grouping key, so all string fields are compared case-insensitively.
type VehicleDescriptor struct {
	Year       int    `json:"year" db:"year"`
	Make       string `json:"make" db:"make"`
	Model      string `json:"model" db:"model"`
	Trim       string `json:"trim,omitempty" db:"trim"`
	FuelType   string `json:"fuel_type,omitempty" db:"fuel_type"`
	Drivetrain string `json:"drivetrain,omitempty" db:"drivetrain"`
}

// Normalized returns a copy with all identity fields lower-cased and trimmed,
// suitable for use as a cache or grouping key.
func (d VehicleDescriptor) Normalized() VehicleDescriptor {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return VehicleDescriptor{
		Year:       d.Year,
		Make:       norm(d.Make),
		Model:      norm(d.Model),
		Trim:       norm(d.Trim),
		FuelType:   norm(d.FuelType),
		Drivetrain: norm(d.Drivetrain),
	}
}

// String renders the descriptor for logs.
func (d VehicleDescriptor) String() string {
	if d.Trim != "" {
		return fmt.Sprintf("%d %s %s %s", d.Year, d.Make, d.Model, d.Trim)
	}
	return fmt.Sprintf("%d %s %s", d.Year, d.Make, d.Model)
}

// VehicleUsage holds the mutable facts about a vehicle. It is supplied fresh
// on every valuation call and never persisted by the engine.
type VehicleUsage struct {
	CurrentMileage        int       `json:"current_mileage"`
	AnnualMileageEstimate int       `json:"annual_mileage_estimate"`
	Condition             Condition `json:"condition"`
	Region                string    `json:"region,omitempty"`
}
