package twin

import (
	"context"
	"io"
	"time"
)

// FacilityInfo is the facility record the engine mirrors.
type FacilityInfo struct {
	ID           int64
	Name         string
	CustomerName string
	Location     string
	Floors       int
	FloorHeight  float64
	TotalArea    float64
	ModelFile    string
}

// ProductInfo is one catalogue entry. The engine joins it against
// device records for display names, and its TypeTag (the model-file
// mesh identifier) drives template lookup.
type ProductInfo struct {
	ID       int64
	Code     string
	Name     string
	Category string
	TypeTag  string
}

// RemoteDevice is one installed-device record as the persistence
// service returns it. Floor is the stored value; the display side
// always re-derives floor from the vertical position.
type RemoteDevice struct {
	ID               int64
	ProductID        int64
	Serial           string
	Floor            int
	Position         Vec3
	RotationY        float64
	HealthScore      int
	Status           string
	InstallationDate *time.Time
	WarrantyExpiry   *time.Time
	LastMaintenance  *time.Time
	Notes            string
}

// DeviceDraft is a new-device request. Serial may be empty; the
// persistence service generates one. Floor is filled in by the engine
// from the position before the draft is sent.
type DeviceDraft struct {
	ProductID int64
	Serial    string
	Floor     int
	Position  Vec3
	RotationY float64
	Notes     string
}

// FacilityDraft is a new-facility request from the setup flow.
type FacilityDraft struct {
	Name         string
	CustomerName string
	Location     string
	Floors       int
	FloorHeight  float64
	TotalArea    float64
	ModelFile    string

	// SeedDemo asks setup to seed the demo product catalogue after the
	// facility is created.
	SeedDemo bool
}

// ImportOutcome is the result of a bulk installation-plan import.
type ImportOutcome struct {
	InstalledCount int
	Errors         []string
	Serials        []string
}

// WarrantyAlert is one expiring-warranty entry from the persistence
// service.
type WarrantyAlert struct {
	DeviceID      int64
	Serial        string
	ProductName   string
	Expiry        time.Time
	DaysRemaining int
	Status        string
}

// Gateway is the engine's port to the persistence service: one
// operation per remote effect, no automatic retries. Implementations
// surface failures through a small taxonomy the engine and its callers
// check with errors.Is — network errors, validation rejections and
// not-found are distinguishable.
//
// The engine applies each mutation to its local state only after the
// matching call returns successfully.
type Gateway interface {
	GetFacility(ctx context.Context, id int64) (*FacilityInfo, error)
	CreateFacility(ctx context.Context, draft FacilityDraft) (*FacilityInfo, error)
	SeedDemoData(ctx context.Context) ([]string, error)

	ListProducts(ctx context.Context) ([]ProductInfo, error)

	ListDevices(ctx context.Context, facilityID int64) ([]RemoteDevice, error)
	CreateDevice(ctx context.Context, facilityID int64, draft DeviceDraft) (*RemoteDevice, error)
	UpdatePosition(ctx context.Context, id int64, pos Vec3, rotationY float64, floor int) error
	UpdateHealth(ctx context.Context, id int64, score int, statusLabel string) error
	RemoveDevice(ctx context.Context, id int64) error

	BulkImport(ctx context.Context, facilityID int64, filename string, file io.Reader) (*ImportOutcome, error)
	WarrantyAlerts(ctx context.Context, facilityID int64, thresholdDays int) ([]WarrantyAlert, error)
}
