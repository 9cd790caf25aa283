package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardenmarsh/twincore/internal/catalog"
	"github.com/ardenmarsh/twincore/internal/facility"
	"github.com/ardenmarsh/twincore/internal/inventory"
	"github.com/ardenmarsh/twincore/internal/status"
)

// DefaultNotes is recorded on imported devices that carry no notes column.
const DefaultNotes = "Imported from Excel"

// Installer turns parsed plan rows into installed-device records.
type Installer struct {
	products catalog.Repository
	devices  inventory.Repository
}

// NewInstaller creates an installer over the given repositories.
func NewInstaller(products catalog.Repository, devices inventory.Repository) *Installer {
	return &Installer{products: products, devices: devices}
}

// Install processes every plan row against a facility. Failures are
// collected per row; one bad row never aborts the rows that succeed.
// Quantity expands into that many devices, suffixing any explicit serial
// with -1..-N so each unit stays unique.
func (ins *Installer) Install(ctx context.Context, fac *facility.Facility, plan *Plan, now time.Time) *Result {
	result := &Result{
		Success: true,
		Errors:  append([]string{}, plan.Errors...),
		Devices: []string{},
	}

	for _, row := range plan.Rows {
		matches, err := ins.products.FindByName(ctx, row.ComponentName)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row.Number, err))
			continue
		}
		if len(matches) == 0 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Row %d: Product '%s' not found in catalog", row.Number, row.ComponentName))
			continue
		}
		product := matches[0]

		for unit := 0; unit < row.Quantity; unit++ {
			serial := row.Serial
			if serial != "" && row.Quantity > 1 {
				serial = fmt.Sprintf("%s-%d", serial, unit+1)
			}
			if serial == "" {
				serial = inventory.GenerateSerial(product.SerialPrefix())
			}

			x, y, z := placeRow(row, fac.FloorHeight)
			score := status.ClampScore(row.HealthScore)
			notes := row.Notes
			if notes == "" {
				notes = DefaultNotes
			}

			device := inventory.Device{
				FacilityID:       fac.ID,
				ProductID:        product.ID,
				SerialNumber:     serial,
				InstallationDate: now,
				WarrantyExpiry:   inventory.WarrantyExpiry(now, product.WarrantyYears),
				FloorNumber:      row.FloorNumber,
				PositionX:        x,
				PositionY:        y,
				PositionZ:        z,
				HealthScore:      score,
				Status:           status.HealthTier(score).Label(),
				Notes:            notes,
				IsActive:         true,
			}
			if err := ins.devices.Create(ctx, &device); err != nil {
				if errors.Is(err, inventory.ErrDuplicateSerial) {
					result.Errors = append(result.Errors,
						fmt.Sprintf("Row %d: serial '%s' already exists", row.Number, serial))
				} else {
					result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row.Number, err))
				}
				continue
			}

			result.Devices = append(result.Devices, device.SerialNumber)
			result.InstalledCount++
		}
	}

	return result
}

// placeRow resolves a row's world position. Rows with explicit X and Z use
// them, deriving Y from the floor when absent; rows without a usable X/Z
// pair land at the floor's origin for manual positioning.
func placeRow(row Row, floorHeight float64) (x, y, z float64) {
	if row.PositionX != nil && row.PositionZ != nil {
		x = *row.PositionX
		z = *row.PositionZ
		if row.PositionY != nil {
			y = *row.PositionY
		} else {
			y = facility.FloorBaseY(row.FloorNumber, floorHeight)
		}
		return x, y, z
	}
	return 0, facility.FloorBaseY(row.FloorNumber, floorHeight), 0
}
