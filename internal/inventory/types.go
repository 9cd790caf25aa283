package inventory

import (
	"fmt"
	"time"

	"github.com/ardenmarsh/twincore/internal/status"
)

// Device is one installed unit of a catalog product.
type Device struct {
	ID               int64      `json:"id"`
	FacilityID       int64      `json:"facility_id"`
	ProductID        int64      `json:"product_id"`
	SerialNumber     string     `json:"serial_number"`
	InstallationDate time.Time  `json:"installation_date"`
	WarrantyExpiry   time.Time  `json:"warranty_expiry"`
	FloorNumber      int        `json:"floor_number"`
	PositionX        float64    `json:"position_x"`
	PositionY        float64    `json:"position_y"`
	PositionZ        float64    `json:"position_z"`
	RotationY        float64    `json:"rotation_y"`
	HealthScore      int        `json:"health_score"`
	Status           string     `json:"status"`
	LastMaintenance  *time.Time `json:"last_maintenance,omitempty"`
	NextMaintenance  *time.Time `json:"next_maintenance,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Update carries a partial device mutation; nil fields are left untouched.
type Update struct {
	FloorNumber     *int       `json:"floor_number,omitempty"`
	PositionX       *float64   `json:"position_x,omitempty"`
	PositionY       *float64   `json:"position_y,omitempty"`
	PositionZ       *float64   `json:"position_z,omitempty"`
	RotationY       *float64   `json:"rotation_y,omitempty"`
	HealthScore     *int       `json:"health_score,omitempty"`
	Status          *string    `json:"status,omitempty"`
	LastMaintenance *time.Time `json:"last_maintenance,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u Update) Empty() bool {
	return u.FloorNumber == nil && u.PositionX == nil && u.PositionY == nil &&
		u.PositionZ == nil && u.RotationY == nil && u.HealthScore == nil &&
		u.Status == nil && u.LastMaintenance == nil && u.Notes == nil
}

// ExpiringDevice is a warranty-alert row: the device joined with its
// product name for display.
type ExpiringDevice struct {
	Device
	ProductName string `json:"product_name"`
}

// Alert is the warranty-alert wire shape.
type Alert struct {
	DeviceID       int64     `json:"device_id"`
	SerialNumber   string    `json:"serial_number"`
	ProductName    string    `json:"product_name"`
	WarrantyExpiry time.Time `json:"warranty_expiry"`
	DaysRemaining  int       `json:"days_remaining"`
	Status         string    `json:"status"`
}

// AlertFor derives the wire alert for an expiring device at a given instant.
func AlertFor(d ExpiringDevice, now time.Time) Alert {
	days := status.DaysRemaining(d.WarrantyExpiry, now)
	return Alert{
		DeviceID:       d.ID,
		SerialNumber:   d.SerialNumber,
		ProductName:    d.ProductName,
		WarrantyExpiry: d.WarrantyExpiry,
		DaysRemaining:  days,
		Status:         status.AlertStatus(days),
	}
}

// Validate checks a device record before persistence.
func (d *Device) Validate() error {
	if d.FacilityID == 0 {
		return fmt.Errorf("%w: facility_id is required", ErrInvalidDevice)
	}
	if d.ProductID == 0 {
		return fmt.Errorf("%w: product_id is required", ErrInvalidDevice)
	}
	if d.SerialNumber == "" {
		return fmt.Errorf("%w: serial_number is required", ErrInvalidDevice)
	}
	if d.HealthScore < 0 || d.HealthScore > 100 {
		return fmt.Errorf("%w: health_score must be within [0,100]", ErrInvalidDevice)
	}
	if d.FloorNumber < 1 {
		return fmt.Errorf("%w: floor_number must be at least 1", ErrInvalidDevice)
	}
	return nil
}
