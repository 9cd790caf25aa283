package catalog

import (
	"context"
	"errors"
	"fmt"
)

// DemoProducts returns the demo catalog used to bootstrap an empty
// deployment. Mesh identifiers match the node names in the demo facility
// model, so seeded products bind to visual templates without extra mapping.
func DemoProducts() []Product {
	f := func(v float64) *float64 { return &v }
	return []Product{
		{
			ProductCode:    "GALAXY_VL_500",
			Name:           "Galaxy VL UPS",
			Type:           "Uninterruptible Power Supply",
			Category:       "Power Protection",
			ModelNumber:    "Galaxy VL 500",
			PowerRating:    f(500.0),
			Voltage:        "400V",
			Dimensions:     map[string]float64{"width": 600, "height": 2000, "depth": 1000},
			Weight:         f(850.0),
			ModelFile:      "/models/galaxy_vl.glb",
			MeshIdentifier: "Galaxy_VL",
			WarrantyYears:  3,
			Price:          f(125000.0),
			Description:    "High-efficiency scalable 3-phase UPS for critical applications",
		},
		{
			ProductCode:    "NETSHELTER_SX_AR3100",
			Name:           "NetShelter SX Rack",
			Type:           "Server Rack Enclosure",
			Category:       "Infrastructure",
			ModelNumber:    "AR3100",
			Dimensions:     map[string]float64{"width": 600, "height": 2000, "depth": 1070},
			Weight:         f(125.0),
			ModelFile:      "/models/netshelter.glb",
			MeshIdentifier: "NetShelter_SX",
			WarrantyYears:  2,
			Price:          f(2500.0),
			Description:    "Standard enclosure for low to medium density applications",
		},
		{
			ProductCode:    "PREMSET_15KV",
			Name:           "Premset Switchgear",
			Type:           "MV Switchgear",
			Category:       "Power Distribution",
			ModelNumber:    "Premset 15kV",
			Voltage:        "15kV",
			Dimensions:     map[string]float64{"width": 800, "height": 2200, "depth": 1500},
			Weight:         f(1200.0),
			ModelFile:      "/models/premset.glb",
			MeshIdentifier: "Premset_SG",
			WarrantyYears:  5,
			Price:          f(85000.0),
			Description:    "Shielded Solid Insulation System (2SIS) switchgear",
		},
		{
			ProductCode:    "ION9000",
			Name:           "PowerLogic ION9000",
			Type:           "Power Quality Meter",
			Category:       "Monitoring",
			ModelNumber:    "ION9000",
			Dimensions:     map[string]float64{"width": 200, "height": 300, "depth": 150},
			Weight:         f(5.0),
			ModelFile:      "/models/ion9000.glb",
			MeshIdentifier: "PowerLogic_ION",
			WarrantyYears:  2,
			Price:          f(3500.0),
			Description:    "Class 0.1S accuracy power quality analyzer",
		},
		{
			ProductCode:    "EVLINK_PRO_AC",
			Name:           "EVlink Pro AC",
			Type:           "EV Charging Station",
			Category:       "E-Mobility",
			ModelNumber:    "EVlink Pro",
			PowerRating:    f(22.0),
			Voltage:        "400V",
			Dimensions:     map[string]float64{"width": 400, "height": 1200, "depth": 200},
			Weight:         f(35.0),
			ModelFile:      "/models/evlink.glb",
			MeshIdentifier: "EVlink_Pro",
			WarrantyYears:  3,
			Price:          f(4200.0),
			Description:    "Smart charging for fleets and commercial buildings",
		},
		{
			ProductCode:    "CONEXT_CL",
			Name:           "EcoStruxure Solar",
			Type:           "Solar Inverter",
			Category:       "Renewable Energy",
			ModelNumber:    "Conext CL",
			PowerRating:    f(100.0),
			Dimensions:     map[string]float64{"width": 600, "height": 800, "depth": 300},
			Weight:         f(65.0),
			ModelFile:      "/models/solar.glb",
			MeshIdentifier: "Roof_Solar_Array",
			WarrantyYears:  10,
			Price:          f(8500.0),
			Description:    "Rooftop photovoltaic inverter system",
		},
	}
}

// Seed inserts the demo products that are not already registered and
// returns the codes it created. Safe to call repeatedly.
func Seed(ctx context.Context, repo Repository) ([]string, error) {
	var created []string
	for _, p := range DemoProducts() {
		product := p
		err := repo.Create(ctx, &product)
		if errors.Is(err, ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seeding product %s: %w", p.ProductCode, err)
		}
		created = append(created, product.ProductCode)
	}
	return created, nil
}
