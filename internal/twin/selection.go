package twin

import (
	"math"
	"sync"
	"time"

	"github.com/ardenmarsh/twincore/internal/status"
)

const (
	// pulseSpeed is the pulse angular velocity in radians per second
	// (one full cycle per second).
	pulseSpeed = 2 * math.Pi

	// pulseAmplitude scales the highlight breathing around the
	// highlight scale.
	pulseAmplitude = 0.05
)

// Pulse is the per-selection animation handle. The controller owns it
// and the engine's frame tick advances it; starting a new pulse always
// stops the previous one first, so exactly one can ever be running.
type Pulse struct {
	key     string
	phase   float64
	stopped bool
}

// Key returns the registry key the pulse animates.
func (p *Pulse) Key() string { return p.key }

// Stopped reports whether the pulse has been stopped.
func (p *Pulse) Stopped() bool { return p.stopped }

// stop halts the pulse. Idempotent.
func (p *Pulse) stop() {
	p.stopped = true
}

// advance moves the animation forward and writes the breathing scale
// onto the instance.
func (p *Pulse) advance(dt time.Duration, inst *Instance) {
	if p.stopped {
		return
	}
	p.phase += pulseSpeed * dt.Seconds()
	inst.Scale = highlightScale + pulseAmplitude*math.Sin(p.phase)
}

// PanelData is the info-panel contract populated on selection: what
// the detail panel shows for the selected device.
type PanelData struct {
	Key             string      `json:"key"`
	Name            string      `json:"name"`
	Serial          string      `json:"serial"`
	HealthScore     int         `json:"health_score"`
	HealthTier      status.Tier `json:"health_tier"`
	LastMaintenance *time.Time  `json:"last_maintenance,omitempty"`

	// WarrantyDays is the remaining-days countdown, present only when
	// the device has a warranty expiry on record.
	WarrantyDays *int        `json:"warranty_days,omitempty"`
	WarrantyTier status.Tier `json:"warranty_tier,omitempty"`
}

// SelectionController manages the single-device selection: idle, or
// exactly one selected key. Selecting a new device always restores the
// previous one first (material and scale back, pulse stopped), so two
// devices can never be highlighted at once.
//
// All public methods are thread-safe; the engine additionally
// serialises selection against mutations.
type SelectionController struct {
	mu       sync.Mutex
	reg      *Registry
	pool     *InstancePool
	filter   *FloorFilter
	viewport *Viewport

	selected string
	pulse    *Pulse
}

// NewSelectionController creates an idle controller.
func NewSelectionController(reg *Registry, pool *InstancePool, filter *FloorFilter, viewport *Viewport) *SelectionController {
	return &SelectionController{reg: reg, pool: pool, filter: filter, viewport: viewport}
}

// Select highlights the device with the given key, restoring any
// previous selection first, and follows it with the floor filter.
// Unknown or uninstantiated keys are no-ops; returns whether the
// selection changed.
func (s *SelectionController) Select(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == key {
		return false
	}
	vm, ok := s.reg.Get(key)
	if !ok {
		return false
	}
	inst, ok := s.pool.Get(key)
	if !ok {
		// Pending spawn or filtered out of the pool: nothing to
		// highlight yet.
		return false
	}

	s.restoreLocked()

	inst.highlight()
	s.selected = key
	s.pulse = &Pulse{key: key}
	s.filter.SetActiveFloor(vm.Floor(s.filter.FloorHeight()))
	return true
}

// Deselect restores the current selection, if any. resetCamera also
// returns the 2D viewport to home framing; the 3D camera intent is
// carried by the engine snapshot.
func (s *SelectionController) Deselect(resetCamera bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreLocked()
	if resetCamera {
		s.viewport.Reset()
	}
}

// Forget drops the selection without camera intent if the given key is
// currently selected. Called when a device is removed; the instance is
// restored before the pool disposes it.
func (s *SelectionController) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == key {
		s.restoreLocked()
	}
}

// Selected returns the selected key, or false when idle.
func (s *SelectionController) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// ActivePulse returns the running pulse handle, or nil when idle.
func (s *SelectionController) ActivePulse() *Pulse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulse
}

// Panel builds the info-panel contract for the current selection from
// live registry state, or nil when idle. Built fresh on every call so
// health or maintenance updates show without reselecting.
func (s *SelectionController) Panel(now time.Time) *PanelData {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return nil
	}
	vm, ok := s.reg.Get(s.selected)
	if !ok {
		return nil
	}

	panel := &PanelData{
		Key:             vm.Key,
		Name:            vm.DisplayName,
		Serial:          vm.Serial,
		HealthScore:     vm.HealthScore,
		HealthTier:      vm.HealthTier(),
		LastMaintenance: vm.LastMaintenance,
	}
	if vm.WarrantyExpiry != nil {
		days := status.DaysRemaining(*vm.WarrantyExpiry, now)
		panel.WarrantyDays = &days
		panel.WarrantyTier = status.WarrantyTier(days)
	}
	return panel
}

// Advance drives the selection pulse by one frame interval.
func (s *SelectionController) Advance(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pulse == nil || s.pulse.stopped {
		return
	}
	inst, ok := s.pool.Get(s.pulse.key)
	if !ok {
		return
	}
	s.pulse.advance(dt, inst)
}

// Reset restores any selection and returns the controller to idle.
func (s *SelectionController) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreLocked()
}

// restoreLocked puts the selected instance back to its pre-highlight
// look and stops the pulse. Restore runs before the pulse stops so the
// handle never animates a restored instance.
func (s *SelectionController) restoreLocked() {
	if s.selected == "" {
		return
	}
	if inst, ok := s.pool.Get(s.selected); ok {
		inst.restoreLook()
	}
	if s.pulse != nil {
		s.pulse.stop()
		s.pulse = nil
	}
	s.selected = ""
}
