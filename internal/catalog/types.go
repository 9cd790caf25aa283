// Package catalog holds the master product catalog: the equipment models a
// facility can install, each carrying the mesh identifier that binds a
// persisted device to its visual template in the loaded scene.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// DefaultManufacturer is applied when a product does not name one.
const DefaultManufacturer = "Schneider Electric"

// DefaultWarrantyYears is applied when a product does not specify a
// warranty period.
const DefaultWarrantyYears = 3

// Product is one catalog entry.
type Product struct {
	ID             int64              `json:"id"`
	ProductCode    string             `json:"product_code"`
	Name           string             `json:"name"`
	Type           string             `json:"type"`
	Manufacturer   string             `json:"manufacturer"`
	ModelNumber    string             `json:"model_number,omitempty"`
	Category       string             `json:"category,omitempty"`
	PowerRating    *float64           `json:"power_rating,omitempty"`
	Voltage        string             `json:"voltage,omitempty"`
	Dimensions     map[string]float64 `json:"dimensions,omitempty"`
	Weight         *float64           `json:"weight,omitempty"`
	ModelFile      string             `json:"model_file,omitempty"`
	MeshIdentifier string             `json:"mesh_identifier,omitempty"`
	WarrantyYears  int                `json:"warranty_years"`
	Price          *float64           `json:"price,omitempty"`
	Description    string             `json:"description,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Normalize fills catalog defaults.
func (p *Product) Normalize() {
	if strings.TrimSpace(p.Manufacturer) == "" {
		p.Manufacturer = DefaultManufacturer
	}
	if p.WarrantyYears <= 0 {
		p.WarrantyYears = DefaultWarrantyYears
	}
}

// Validate checks a product before persistence.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ProductCode) == "" {
		return fmt.Errorf("%w: product_code cannot be empty", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("%w: type cannot be empty", ErrInvalidProduct)
	}
	return nil
}

// SerialPrefix returns the three-character prefix used when generating
// serial numbers for devices of this product, taken from the product code.
func (p *Product) SerialPrefix() string {
	code := strings.ToUpper(strings.TrimSpace(p.ProductCode))
	if len(code) >= 3 {
		return code[:3]
	}
	if code == "" {
		return "DEV"
	}
	return (code + "XXX")[:3]
}
