package twin

import (
	"time"

	"github.com/ardenmarsh/twincore/internal/status"
)

// Camera framing modes carried in snapshots. The engine never drives a
// real camera; it publishes intent and the rendering client honours it.
const (
	CameraHome  = "home"  // default framing of the whole facility
	CameraFocus = "focus" // framing the selected device
	CameraFree  = "free"  // user-controlled, no pending intent
)

// CameraState is the 3D framing intent for the current frame.
type CameraState struct {
	Mode   string `json:"mode"`
	Target *Vec3  `json:"target,omitempty"`
}

// ViewportState is the published 2D pan/zoom.
type ViewportState struct {
	PanX  float64 `json:"pan_x"`
	PanY  float64 `json:"pan_y"`
	Scale float64 `json:"scale"`
}

// SnapshotDevice is one device as both views render it for a frame:
// world transform for the 3D view, projected point for the 2D plan, and
// the derived tiers both tint from.
type SnapshotDevice struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	TypeTag     string      `json:"type_tag,omitempty"`
	Serial      string      `json:"serial"`
	Floor       int         `json:"floor"`
	Position    Vec3        `json:"position"`
	RotationY   float64     `json:"rotation_y"`
	Projected   Point2      `json:"projected"`
	HealthScore int         `json:"health_score"`
	HealthTier  status.Tier `json:"health_tier"`
	HealthColor string      `json:"health_color"`

	// WarrantyTier is set only when the device carries an expiry date.
	WarrantyTier status.Tier `json:"warranty_tier,omitempty"`

	// Indicator reports whether the warranty ring is attached.
	Indicator bool `json:"indicator"`

	// Visible is the floor filter's verdict for this frame.
	Visible bool `json:"visible"`

	// Instanced is false while the device waits in the pending spawn
	// queue for its template.
	Instanced bool `json:"instanced"`

	Selected bool    `json:"selected"`
	Scale    float64 `json:"scale"`
}

// Snapshot is one published frame: everything a display client needs to
// draw both views without further queries. Snapshots are immutable once
// built; the engine hands each one out by value to every consumer.
type Snapshot struct {
	Sequence     uint64           `json:"sequence"`
	Timestamp    time.Time        `json:"timestamp"`
	FacilityID   int64            `json:"facility_id"`
	FacilityName string           `json:"facility_name,omitempty"`
	Floors       int              `json:"floors"`
	FloorHeight  float64          `json:"floor_height"`
	ActiveFloor  *int             `json:"active_floor"` // nil when all floors show
	Devices      []SnapshotDevice `json:"devices"`
	Pending      int              `json:"pending"`
	Selected     *PanelData       `json:"selected,omitempty"`
	Camera       CameraState      `json:"camera"`
	Viewport     ViewportState    `json:"viewport"`
}
