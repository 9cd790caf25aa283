package twin

import "sync"

// ClipBoundary is the shared horizontal cut plane for the 3D view.
// Every instance material points at the same object, so a single update
// here changes what every mesh renders. Height is the world-Y ceiling
// of the active floor; Enabled is false when all floors are shown.
//
// Fields are mutated only by the FloorFilter under its lock; readers go
// through the engine, which serialises against filter updates.
type ClipBoundary struct {
	Enabled bool
	Height  float64
}

// FloorFilter narrows both views to a single floor, or shows all.
//
// The 3D side is the shared ClipBoundary; the 2D side is the Admits
// predicate. Both derive from the same floor height, sourced once from
// the loaded facility record, so the views can never cut at different
// heights.
//
// All methods are thread-safe.
type FloorFilter struct {
	mu          sync.RWMutex
	floorHeight float64
	active      int // 0 = all floors
	clip        *ClipBoundary
}

// NewFloorFilter creates a filter showing all floors.
func NewFloorFilter(floorHeight float64) *FloorFilter {
	return &FloorFilter{
		floorHeight: floorHeight,
		clip:        &ClipBoundary{},
	}
}

// SetFloorHeight updates the floor height from a loaded facility record
// and recomputes the clip boundary if a floor is active.
func (f *FloorFilter) SetFloorHeight(h float64) {
	if h <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.floorHeight = h
	if f.active > 0 {
		f.clip.Height = float64(f.active) * h
	}
}

// FloorHeight returns the configured floor height in metres.
func (f *FloorFilter) FloorHeight() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.floorHeight
}

// SetActiveFloor narrows both views to the given 1-based floor.
func (f *FloorFilter) SetActiveFloor(n int) {
	if n < 1 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = n
	f.clip.Enabled = true
	f.clip.Height = float64(n) * f.floorHeight
}

// ShowAllFloors widens both views back to the whole facility.
func (f *FloorFilter) ShowAllFloors() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = 0
	f.clip.Enabled = false
}

// ActiveFloor returns the active floor, or false when all floors show.
func (f *FloorFilter) ActiveFloor() (int, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.active, f.active > 0
}

// SharedBoundary returns the clip object instance materials reference.
func (f *FloorFilter) SharedBoundary() *ClipBoundary {
	return f.clip
}

// Clip returns a copy of the current clip state.
func (f *FloorFilter) Clip() ClipBoundary {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return *f.clip
}

// Admits reports whether a device at world height y is visible under
// the current filter. This is the 2D view's predicate; it and the clip
// boundary always agree because both derive from the same floor height.
func (f *FloorFilter) Admits(y float64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.active == 0 {
		return true
	}
	return FloorOf(y, f.floorHeight) == f.active
}
