package facility

import (
	"fmt"
	"strings"
	"time"
)

// DefaultFloorHeight is the vertical span of one floor in metres when a
// facility record does not specify one.
const DefaultFloorHeight = 6.0

const maxNameLength = 100

// Facility represents one physical building mirrored by the twin.
type Facility struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CustomerName string    `json:"customer_name"`
	Location     string    `json:"location,omitempty"`
	NumFloors    int       `json:"num_floors"`
	FloorHeight  float64   `json:"floor_height"`
	TotalArea    *float64  `json:"total_area,omitempty"`
	ModelFile    *string   `json:"model_file,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Normalize fills defaults for optional geometry fields.
func (f *Facility) Normalize() {
	if f.NumFloors <= 0 {
		f.NumFloors = 1
	}
	if f.FloorHeight <= 0 {
		f.FloorHeight = DefaultFloorHeight
	}
}

// Validate checks a facility record before persistence.
func (f *Facility) Validate() error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidFacility)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidFacility, maxNameLength)
	}
	if f.NumFloors < 1 {
		return fmt.Errorf("%w: num_floors must be at least 1", ErrInvalidFacility)
	}
	if f.FloorHeight <= 0 {
		return fmt.Errorf("%w: floor_height must be positive", ErrInvalidFacility)
	}
	return nil
}
