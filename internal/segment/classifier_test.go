package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carworth/carworth/internal/domain"
)

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		desc domain.VehicleDescriptor
		want domain.Segment
	}{
		{"electric fuel wins over make", domain.VehicleDescriptor{Make: "Ford", Model: "F-150 Lightning", FuelType: "Electric"}, domain.SegmentEV},
		{"tesla is an ev by fuel type", domain.VehicleDescriptor{Make: "Tesla", Model: "Model 3", FuelType: "electric"}, domain.SegmentEV},
		{"exotic make", domain.VehicleDescriptor{Make: "Ferrari", Model: "Roma"}, domain.SegmentExotic},
		{"sports model beats luxury make", domain.VehicleDescriptor{Make: "BMW", Model: "M3"}, domain.SegmentSports},
		{"pickup", domain.VehicleDescriptor{Make: "Ford", Model: "F-150"}, domain.SegmentTruck},
		{"luxury make", domain.VehicleDescriptor{Make: "Lexus", Model: "ES 350"}, domain.SegmentLuxury},
		{"mainstream suv", domain.VehicleDescriptor{Make: "Toyota", Model: "RAV4"}, domain.SegmentSUV},
		{"economy make", domain.VehicleDescriptor{Make: "Mitsubishi", Model: "Mirage"}, domain.SegmentEconomy},
		{"default mainstream", domain.VehicleDescriptor{Make: "Toyota", Model: "Camry"}, domain.SegmentMainstream},
		{"case insensitive", domain.VehicleDescriptor{Make: "CHEVROLET", Model: "Silverado 1500"}, domain.SegmentTruck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.desc))
		})
	}
}
