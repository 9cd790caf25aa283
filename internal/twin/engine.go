package twin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardenmarsh/twincore/internal/infrastructure/config"
	"github.com/ardenmarsh/twincore/internal/status"
)

// Logger defines the logging interface used by the twin package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AssetProvider loads a facility model file and builds the template
// index the pool spawns from. Tags are the catalogue's mesh
// identifiers; the provider matches model mesh names against them.
type AssetProvider interface {
	Load(ctx context.Context, modelFile string, tags []string) (TemplateIndex, error)
}

// Broadcaster fans twin events and frame snapshots out to display
// clients. Broadcast must not block; slow consumers are the
// implementation's problem, never the engine's.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// HistoryRecorder receives health and position changes for time-series
// storage. Implementations must not block the calling goroutine.
type HistoryRecorder interface {
	RecordHealth(key, serial string, score int, tier status.Tier)
	RecordPosition(key, serial string, pos Vec3, floor int)
}

// MutationState tags a key with its in-flight remote mutation. A new
// mutating call on a key that is not idle fails fast with
// ErrDeviceBusy instead of racing the earlier one.
type MutationState string

const (
	MutationIdle     MutationState = "idle"
	MutationSaving   MutationState = "saving"
	MutationDeleting MutationState = "deleting"
)

// defaultFloorHeight matches the facility record default and is only
// used until a facility is loaded.
const defaultFloorHeight = 6.0

// Engine orchestrates the digital twin: it owns the registry, instance
// pool, selection, floor filter, projector and viewport, keeps them
// synchronised with the persistence service through the gateway, and
// publishes frame snapshots at a fixed rate.
//
// All public operations are serialised by one mutex, so a frame never
// observes a partially applied update. Remote calls happen outside the
// lock; the per-key mutation state protects a key while its call is in
// flight, and every mutation is applied locally only after the remote
// call confirms.
type Engine struct {
	mu sync.Mutex

	cfg           config.TwinConfig
	frameInterval time.Duration
	logger        Logger
	gw            Gateway
	assets        AssetProvider
	hub           Broadcaster
	recorder      HistoryRecorder
	state         *StateStore

	reg       *Registry
	pool      *InstancePool
	selection *SelectionController
	filter    *FloorFilter
	projector Projector
	viewport  *Viewport
	tracker   *ResourceTracker

	facilityID int64
	facility   *FacilityInfo
	products   map[int64]ProductInfo
	setup      *SetupConfig
	savedView  *ViewState
	mutations  map[string]MutationState
	camera     CameraState
	seq        uint64
	lastTick   time.Time
}

// Deps bundles the engine's dependencies.
type Deps struct {
	// Config supplies the facility id, frame rate, projection scale and
	// viewport bounds.
	Config config.TwinConfig

	// Gateway is the persistence client. Required.
	Gateway Gateway

	// Assets builds the template index from the facility model file.
	// Optional; without it every device stays in the pending queue.
	Assets AssetProvider

	// Hub receives frames and twin events. Optional.
	Hub Broadcaster

	// Recorder receives health and position history. Optional.
	Recorder HistoryRecorder

	// State is the local state file. Optional; without it nothing is
	// persisted between runs.
	State *StateStore

	// Logger is the logger. Optional; defaults to a no-op logger.
	Logger Logger
}

// NewEngine wires the twin components together. The most recent locally
// saved facility takes precedence over the configured default, so a
// restart lands back where setup left it.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Gateway == nil {
		return nil, fmt.Errorf("twin: gateway is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	tracker := NewResourceTracker()
	reg := NewRegistry()
	pool := NewInstancePool(reg, tracker)
	pool.SetLogger(logger)
	filter := NewFloorFilter(defaultFloorHeight)
	pool.SetClipBoundary(filter.SharedBoundary())
	viewport := NewViewport(deps.Config.MinScale, deps.Config.MaxScale)

	e := &Engine{
		cfg:           deps.Config,
		frameInterval: deps.Config.FrameInterval(),
		logger:        logger,
		gw:            deps.Gateway,
		assets:        deps.Assets,
		hub:           deps.Hub,
		recorder:      deps.Recorder,
		state:         deps.State,
		reg:           reg,
		pool:          pool,
		selection:     NewSelectionController(reg, pool, filter, viewport),
		filter:        filter,
		projector:     NewProjector(deps.Config.MetersToPixels),
		viewport:      viewport,
		tracker:       tracker,
		facilityID:    deps.Config.FacilityID,
		products:      make(map[int64]ProductInfo),
		mutations:     make(map[string]MutationState),
		camera:        CameraState{Mode: CameraHome},
	}

	if deps.State != nil {
		st, err := deps.State.Load()
		switch {
		case err != nil:
			logger.Warn("loading local state failed", "error", err)
		case st != nil:
			if st.FacilityID > 0 {
				e.facilityID = st.FacilityID
			}
			e.setup = st.Setup
			e.savedView = st.View
		}
	}

	reg.Subscribe(e.onRegistryEvent)
	return e, nil
}

// onRegistryEvent keeps the pool in step with the registry and pushes
// edge events to display clients. Runs synchronously on the mutating
// goroutine, after the registry releases its lock.
func (e *Engine) onRegistryEvent(ev Event) {
	switch ev.Kind {
	case EventUpserted:
		if !ev.Created {
			e.pool.Apply(ev.Device)
			return
		}
		_, pending := e.pool.Spawn(ev.Device)
		if e.hub != nil {
			e.hub.Broadcast("device_spawned", map[string]any{
				"key":     ev.Key,
				"pending": pending,
			})
		}
	case EventRemoved:
		e.selection.Forget(ev.Key)
		e.pool.Dispose(ev.Key)
		if e.hub != nil {
			e.hub.Broadcast("device_removed", map[string]any{"key": ev.Key})
		}
	case EventReloaded:
		e.pool.ReplacePersisted(e.reg.All())
	}
}

// Run publishes frame snapshots at the configured rate and advances the
// selection pulse until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.frameInterval)
	defer ticker.Stop()

	e.logger.Info("twin engine running", "frame_interval", e.frameInterval.String())

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("twin engine stopping")
			return ctx.Err()
		case now := <-ticker.C:
			e.tick(now.UTC())
		}
	}
}

// tick advances one frame: pulse animation, then a snapshot for the
// hub.
func (e *Engine) tick(now time.Time) {
	e.mu.Lock()
	var dt time.Duration
	if !e.lastTick.IsZero() {
		dt = now.Sub(e.lastTick)
	}
	e.lastTick = now

	e.selection.Advance(dt)
	snap := e.snapshotLocked(now)
	e.mu.Unlock()

	if e.hub != nil {
		e.hub.Broadcast("frame", snap)
	}
}

// Snapshot builds a frame on demand, outside the tick cadence.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(time.Now().UTC())
}

func (e *Engine) snapshotLocked(now time.Time) *Snapshot {
	e.seq++
	snap := &Snapshot{
		Sequence:  e.seq,
		Timestamp: now,
		Pending:   e.pool.PendingLen(),
		Selected:  e.selection.Panel(now),
		Camera:    e.camera,
	}
	if e.facility != nil {
		snap.FacilityID = e.facility.ID
		snap.FacilityName = e.facility.Name
		snap.Floors = e.facility.Floors
		snap.FloorHeight = e.facility.FloorHeight
	}
	if floor, ok := e.filter.ActiveFloor(); ok {
		snap.ActiveFloor = &floor
	}
	panX, panY, scale := e.viewport.State()
	snap.Viewport = ViewportState{PanX: panX, PanY: panY, Scale: scale}

	floorHeight := e.filter.FloorHeight()
	selectedKey, _ := e.selection.Selected()

	vms := e.reg.All()
	snap.Devices = make([]SnapshotDevice, 0, len(vms))
	for _, vm := range vms {
		tier := vm.HealthTier()
		dev := SnapshotDevice{
			Key:         vm.Key,
			Name:        vm.DisplayName,
			TypeTag:     vm.TypeTag,
			Serial:      vm.Serial,
			Floor:       vm.Floor(floorHeight),
			Position:    vm.WorldPosition,
			RotationY:   vm.RotationY,
			Projected:   e.viewport.Apply(e.projector.ToTopDown(vm.WorldPosition)),
			HealthScore: vm.HealthScore,
			HealthTier:  tier,
			HealthColor: tier.Color(),
			Visible:     e.filter.Admits(vm.WorldPosition.Y),
			Selected:    vm.Key == selectedKey,
			Scale:       1,
		}
		if vm.WarrantyExpiry != nil {
			dev.WarrantyTier = vm.WarrantyTier(now)
		}
		if inst, ok := e.pool.Get(vm.Key); ok {
			dev.Instanced = true
			dev.Indicator = inst.Indicator != nil
			dev.Scale = inst.Scale
		}
		snap.Devices = append(snap.Devices, dev)
	}
	return snap
}

// Select highlights a device and frames the camera on it. Unknown or
// uninstantiated keys are no-ops; returns whether the selection
// changed.
func (e *Engine) Select(key string) bool {
	e.mu.Lock()
	changed := e.selection.Select(key)
	if changed {
		e.camera = CameraState{Mode: CameraFocus}
		if inst, ok := e.pool.Get(key); ok {
			target := inst.Position
			e.camera.Target = &target
		}
	}
	e.mu.Unlock()

	if changed && e.hub != nil {
		e.hub.Broadcast("selection_changed", map[string]any{"key": key})
	}
	return changed
}

// Deselect clears the selection. With resetCamera the views return to
// home framing; without it they stay where the user left them.
func (e *Engine) Deselect(resetCamera bool) {
	e.mu.Lock()
	_, had := e.selection.Selected()
	e.selection.Deselect(resetCamera)
	if resetCamera {
		e.camera = CameraState{Mode: CameraHome}
	} else {
		e.camera = CameraState{Mode: CameraFree}
	}
	e.mu.Unlock()

	if had && e.hub != nil {
		e.hub.Broadcast("selection_changed", map[string]any{"key": nil})
	}
}

// SetActiveFloor narrows both views to one floor of the loaded
// facility.
func (e *Engine) SetActiveFloor(n int) error {
	e.mu.Lock()
	if n < 1 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrInvalidFloor, n)
	}
	if e.facility != nil && n > e.facility.Floors {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrInvalidFloor, n, e.facility.Floors)
	}
	e.filter.SetActiveFloor(n)
	e.mu.Unlock()

	if e.hub != nil {
		e.hub.Broadcast("floor_changed", map[string]any{"floor": n})
	}
	return nil
}

// ShowAllFloors widens both views back to the whole facility.
func (e *Engine) ShowAllFloors() {
	e.mu.Lock()
	e.filter.ShowAllFloors()
	e.mu.Unlock()

	if e.hub != nil {
		e.hub.Broadcast("floor_changed", map[string]any{"floor": "all"})
	}
}

// SetViewport replaces the 2D pan and zoom; the zoom is clamped to the
// configured bounds.
func (e *Engine) SetViewport(panX, panY, scale float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewport.Set(panX, panY, scale)
}

// HitTest picks the device nearest the cursor in the top-down view,
// honouring the floor filter. Pending devices are pickable: the 2D plan
// draws from view-model data, not from spawned instances.
func (e *Engine) HitTest(cursor Point2, radiusPx float64) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var candidates []*DeviceViewModel
	for _, vm := range e.reg.All() {
		if e.filter.Admits(vm.WorldPosition.Y) {
			candidates = append(candidates, vm)
		}
	}
	return e.projector.HitTest(candidates, e.viewport, cursor, radiusPx)
}

// FacilityID returns the id of the facility this engine mirrors. The
// locally saved choice wins over the configured default, so the value is
// meaningful even before a load succeeds.
func (e *Engine) FacilityID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.facilityID
}

// Facility returns a copy of the loaded facility record.
func (e *Engine) Facility() (*FacilityInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.facility == nil {
		return nil, false
	}
	fac := *e.facility
	return &fac, true
}

// Teardown saves local state, disposes every instance, clears the
// registry and pending queue and resets selection, filter and viewport.
// After it returns the resource tracker reads zero live allocations; a
// nonzero count is logged as an error.
func (e *Engine) Teardown() {
	e.mu.Lock()

	var st *LocalState
	if e.state != nil && e.facilityID > 0 {
		floor, _ := e.filter.ActiveFloor()
		panX, panY, scale := e.viewport.State()
		st = &LocalState{
			FacilityID: e.facilityID,
			Setup:      e.setup,
			View:       &ViewState{ActiveFloor: floor, PanX: panX, PanY: panY, Scale: scale},
		}
	}

	e.selection.Reset()
	e.pool.Teardown()
	e.reg.Clear()
	e.filter.ShowAllFloors()
	e.viewport.Reset()
	e.camera = CameraState{Mode: CameraHome}
	e.mutations = make(map[string]MutationState)
	e.facility = nil

	if live := e.tracker.Live(); live > 0 {
		e.logger.Error("live render allocations after teardown", "count", live)
	}
	e.mu.Unlock()

	if st != nil {
		if err := e.state.Save(st); err != nil {
			e.logger.Warn("saving local state failed", "error", err)
		}
	}
}
