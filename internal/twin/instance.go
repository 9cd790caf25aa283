package twin

import (
	"time"

	"github.com/ardenmarsh/twincore/internal/status"
)

// Geometry is the mesh data an instance renders. Cloned from a template
// at spawn; the clone is owned by the instance and released on dispose.
type Geometry struct {
	Mesh     string
	Vertices int
}

// Material is per-instance surface state. Because every instance clones
// its own material, selection highlight and health tint can never leak
// from one device to another.
type Material struct {
	// Tint is the hex fill derived from the health tier.
	Tint string

	// Emissive is the highlight glow; empty when not selected.
	Emissive string

	Opacity float64

	// Clip points at the floor filter's shared boundary. All materials
	// reference the same object, so one filter update is visible
	// everywhere at once.
	Clip *ClipBoundary
}

// Indicator is the warranty status child attached to an instance whose
// warranty tier is not healthy.
type Indicator struct {
	Tier  status.Tier
	Color string
}

// Template is a spawnable prototype built from one model-file mesh.
// Geometry and material are prototypes: Spawn copies them, never hands
// them out.
type Template struct {
	Tag      string
	Geometry Geometry
	Material Material
}

// TemplateIndex maps type tags to templates. Built once after asset
// load; lookups are exact map hits.
type TemplateIndex map[string]*Template

const (
	highlightEmissive = "#ffffff"
	highlightScale    = 1.15
	defaultOpacity    = 1.0
)

// Instance is the live render object for one view-model. It never
// outlives its view-model: removal of either disposes the other within
// the same operation.
//
// Instances are owned by the pool and are not individually locked;
// all mutation flows through the pool, selection controller and engine,
// which serialise access.
type Instance struct {
	// Key is the registry back-reference, lookup only.
	Key string

	Tag       string
	Geometry  Geometry
	Material  Material
	Position  Vec3
	RotationY float64
	Scale     float64
	Indicator *Indicator

	persisted   bool
	highlighted bool
	disposed    bool

	// snapshot of material and scale taken when highlight is applied
	restoreMaterial Material
	restoreScale    float64
}

// newInstance clones template resources for one view-model and applies
// its transform, tint and warranty indicator.
func newInstance(vm *DeviceViewModel, tpl *Template, clip *ClipBoundary, tracker *ResourceTracker, now time.Time) *Instance {
	inst := &Instance{
		Key:       vm.Key,
		Tag:       tpl.Tag,
		Geometry:  tpl.Geometry,
		Material:  tpl.Material,
		Scale:     1,
		persisted: vm.Origin == OriginPersisted,
	}
	tracker.Acquire(ResourceGeometry)
	tracker.Acquire(ResourceMaterial)

	inst.Material.Clip = clip
	if inst.Material.Opacity == 0 {
		inst.Material.Opacity = defaultOpacity
	}
	inst.apply(vm, tracker, now)
	return inst
}

// apply refreshes transform, tint and warranty indicator from the
// view-model. Safe to call while highlighted: tint lands in both the
// live material and the restore snapshot, so deselect keeps the new
// colour.
func (i *Instance) apply(vm *DeviceViewModel, tracker *ResourceTracker, now time.Time) {
	i.Position = vm.WorldPosition
	i.RotationY = vm.RotationY

	tint := vm.HealthTier().Color()
	i.Material.Tint = tint
	if i.highlighted {
		i.restoreMaterial.Tint = tint
	}

	i.setWarranty(vm.WarrantyTier(now), tracker)
}

// setWarranty attaches, updates or detaches the warranty indicator so
// it exists exactly when the tier is not healthy.
func (i *Instance) setWarranty(tier status.Tier, tracker *ResourceTracker) {
	if tier == status.TierHealthy {
		if i.Indicator != nil {
			i.Indicator = nil
			tracker.Release(ResourceIndicator)
		}
		return
	}
	if i.Indicator == nil {
		tracker.Acquire(ResourceIndicator)
	}
	i.Indicator = &Indicator{Tier: tier, Color: tier.Color()}
}

// highlight snapshots the current material and scale, then applies the
// selection look. Idempotent while already highlighted.
func (i *Instance) highlight() {
	if i.highlighted {
		return
	}
	i.restoreMaterial = i.Material
	i.restoreScale = i.Scale
	i.Material.Emissive = highlightEmissive
	i.Scale = highlightScale
	i.highlighted = true
}

// restoreLook puts the pre-highlight material and scale back.
func (i *Instance) restoreLook() {
	if !i.highlighted {
		return
	}
	i.Material = i.restoreMaterial
	i.Scale = i.restoreScale
	i.highlighted = false
}

// release frees every tracked allocation. Idempotent.
func (i *Instance) release(tracker *ResourceTracker) {
	if i.disposed {
		return
	}
	i.disposed = true
	tracker.Release(ResourceGeometry)
	tracker.Release(ResourceMaterial)
	if i.Indicator != nil {
		i.Indicator = nil
		tracker.Release(ResourceIndicator)
	}
}
