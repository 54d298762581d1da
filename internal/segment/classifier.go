// Package segment maps vehicle identity to the coarse market segment that
// drives depreciation and seasonality curve selection.
package segment

import (
	"strings"

	"github.com/carworth/carworth/internal/domain"
)

var exoticMakes = map[string]bool{
	"ferrari":      true,
	"lamborghini":  true,
	"mclaren":      true,
	"bugatti":      true,
	"rolls-royce":  true,
	"bentley":      true,
	"aston martin": true,
	"koenigsegg":   true,
	"maserati":     true,
	"lotus":        true,
}

var luxuryMakes = map[string]bool{
	"mercedes-benz": true,
	"mercedes":      true,
	"bmw":           true,
	"audi":          true,
	"lexus":         true,
	"genesis":       true,
	"cadillac":      true,
	"lincoln":       true,
	"land rover":    true,
	"jaguar":        true,
	"infiniti":      true,
	"acura":         true,
	"volvo":         true,
}

var premiumMakes = map[string]bool{
	"alfa romeo": true,
	"mini":       true,
	"tesla":      true, // fuel type usually wins first
}

var economyMakes = map[string]bool{
	"mitsubishi": true,
	"suzuki":     true,
	"fiat":       true,
	"smart":      true,
}

var truckModels = []string{
	"f-150", "f-250", "f-350", "silverado", "sierra", "ram", "tundra",
	"tacoma", "ranger", "colorado", "frontier", "titan", "ridgeline",
	"gladiator", "maverick",
}

var sportsModels = []string{
	"corvette", "mustang", "camaro", "challenger", "911", "cayman",
	"boxster", "miata", "mx-5", "supra", "gt-r", "gtr", "z4", "m3", "m4",
	"brz", "gr86", "wrx", "type r", "amg gt", "viper",
}

var suvModels = []string{
	"explorer", "tahoe", "suburban", "expedition", "highlander", "pilot",
	"4runner", "pathfinder", "traverse", "telluride", "palisade", "cx-9",
	"cx-90", "grand cherokee", "wrangler", "bronco", "yukon", "escalade",
	"navigator", "sequoia", "armada", "atlas", "ascent", "outback",
	"rav4", "cr-v", "crv", "escape", "equinox", "rogue", "tucson",
	"santa fe", "sorento", "sportage", "forester", "edge", "blazer",
	"murano", "passport", "x5", "x3", "gx", "lx", "rx", "q5", "q7", "gle", "glc",
}

// Classifier resolves a vehicle descriptor to its segment.
type Classifier struct{}

// New returns a segment classifier.
func New() *Classifier { return &Classifier{} }

// Classify maps (make, model, fuel type) to a segment. Electric drivetrains
// win over make/model heuristics because EV resale behaves unlike anything
// else in the same showroom.
func (c *Classifier) Classify(d domain.VehicleDescriptor) domain.Segment {
	n := d.Normalized()

	if n.FuelType == "electric" || n.FuelType == "ev" {
		return domain.SegmentEV
	}
	if exoticMakes[n.Make] {
		return domain.SegmentExotic
	}

	if containsAny(n.Model, sportsModels) {
		return domain.SegmentSports
	}
	if containsAny(n.Model, truckModels) {
		return domain.SegmentTruck
	}

	if luxuryMakes[n.Make] {
		return domain.SegmentLuxury
	}
	if containsAny(n.Model, suvModels) {
		return domain.SegmentSUV
	}
	if premiumMakes[n.Make] {
		return domain.SegmentPremium
	}
	if economyMakes[n.Make] {
		return domain.SegmentEconomy
	}

	return domain.SegmentMainstream
}

func containsAny(model string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(model, needle) {
			return true
		}
	}
	return false
}
