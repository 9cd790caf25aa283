package twin

import (
	"math"
	"time"

	"github.com/ardenmarsh/twincore/internal/status"
)

// Vec3 is a position in facility world space, measured in metres.
// Y is vertical; floors stack along it.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Origin records where a view-model came from.
type Origin string

const (
	// OriginPersisted marks a device backed by a facilityd record.
	OriginPersisted Origin = "persisted"

	// OriginTemplate marks a local-only device (catalogue preview,
	// placement draft) with no backing record. Bulk reloads leave
	// these untouched.
	OriginTemplate Origin = "template"
)

// DeviceViewModel is the display-side record for one physical device.
// It carries everything both views need to render the device; anything
// derivable (floor, health tier, warranty tier) is computed on demand
// rather than stored, so the two views can never disagree.
//
// View-models are owned by the Registry. All copies handed out are deep
// copies; mutating one never touches registry state.
type DeviceViewModel struct {
	// Key is the stable registry identity, independent of any backing
	// record. Instances, selection and hit-testing all reference it.
	Key string

	// BackingID is the facilityd record id, nil for template-origin
	// devices that exist only in this session.
	BackingID *int64

	DisplayName     string
	TypeTag         string
	Serial          string
	HealthScore     int
	LastMaintenance *time.Time
	WorldPosition   Vec3
	RotationY       float64
	WarrantyExpiry  *time.Time
	Notes           string
	Origin          Origin
}

// DeviceData is the draft used to create or update a view-model via
// Registry.Upsert. Origin is derived: a draft with a BackingID becomes
// persisted, one without becomes template-origin.
type DeviceData struct {
	BackingID       *int64
	DisplayName     string
	TypeTag         string
	Serial          string
	HealthScore     int
	LastMaintenance *time.Time
	Position        Vec3
	RotationY       float64
	WarrantyExpiry  *time.Time
	Notes           string
}

// DeepCopy returns a copy sharing no pointers with the original.
func (m *DeviceViewModel) DeepCopy() *DeviceViewModel {
	cp := *m
	if m.BackingID != nil {
		id := *m.BackingID
		cp.BackingID = &id
	}
	if m.LastMaintenance != nil {
		ts := *m.LastMaintenance
		cp.LastMaintenance = &ts
	}
	if m.WarrantyExpiry != nil {
		ts := *m.WarrantyExpiry
		cp.WarrantyExpiry = &ts
	}
	return &cp
}

// HealthTier derives the severity band for the current health score.
func (m *DeviceViewModel) HealthTier() status.Tier {
	return status.HealthTier(m.HealthScore)
}

// WarrantyTier derives the warranty band at the given instant.
// Devices without an expiry date report healthy.
func (m *DeviceViewModel) WarrantyTier(now time.Time) status.Tier {
	if m.WarrantyExpiry == nil {
		return status.TierHealthy
	}
	return status.WarrantyTierAt(*m.WarrantyExpiry, now)
}

// Floor derives the floor number from the vertical position.
func (m *DeviceViewModel) Floor(floorHeight float64) int {
	return FloorOf(m.WorldPosition.Y, floorHeight)
}

// FloorOf maps a world-space height to a 1-based floor number.
// A device at exactly floorHeight sits on floor 2: floors span
// [(n-1)·h, n·h).
func FloorOf(y, floorHeight float64) int {
	if floorHeight <= 0 {
		return 1
	}
	return int(math.Floor(y/floorHeight)) + 1
}
