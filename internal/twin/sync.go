package twin

import (
	"context"
	"fmt"
	"io"

	"github.com/ardenmarsh/twincore/internal/status"
)

// LoadFacility fetches the facility, product catalogue and device list
// from the persistence service, rebuilds the registry and pool from
// them, and kicks the asynchronous asset load. Safe to call again for a
// re-sync; backing ids keep their keys.
func (e *Engine) LoadFacility(ctx context.Context) error {
	e.mu.Lock()
	facilityID := e.facilityID
	e.mu.Unlock()

	if facilityID < 1 {
		return ErrNoFacility
	}

	fac, err := e.gw.GetFacility(ctx, facilityID)
	if err != nil {
		return fmt.Errorf("loading facility %d: %w", facilityID, err)
	}
	products, err := e.gw.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("loading product catalogue: %w", err)
	}
	devices, err := e.gw.ListDevices(ctx, facilityID)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	tags := templateTags(products)

	e.mu.Lock()
	e.facility = fac
	e.products = make(map[int64]ProductInfo, len(products))
	for _, p := range products {
		e.products[p.ID] = p
	}
	e.filter.SetFloorHeight(fac.FloorHeight)

	drafts := make([]DeviceData, 0, len(devices))
	for _, rec := range devices {
		drafts = append(drafts, e.draftFromRemoteLocked(rec))
	}
	e.reg.ReplacePersisted(drafts)
	e.restoreViewLocked()
	pending := e.pool.PendingLen()
	e.mu.Unlock()

	e.logger.Info("facility loaded",
		"facility_id", fac.ID,
		"name", fac.Name,
		"devices", len(devices),
		"pending", pending,
	)
	if e.hub != nil {
		e.hub.Broadcast("facility_loaded", map[string]any{
			"facility_id": fac.ID,
			"name":        fac.Name,
			"devices":     len(devices),
			"pending":     pending,
		})
	}

	// Detached from the caller: a request-scoped context must not abort
	// the model load mid-flight.
	go e.loadAssets(context.WithoutCancel(ctx), fac.ModelFile, tags)

	e.saveState()
	return nil
}

// SetupFacility creates a facility, optionally seeds the demo
// catalogue, then loads the new facility into the twin. The choice is
// remembered locally so restarts land in the same facility.
func (e *Engine) SetupFacility(ctx context.Context, draft FacilityDraft) (*FacilityInfo, error) {
	if draft.FloorHeight <= 0 {
		draft.FloorHeight = defaultFloorHeight
	}

	fac, err := e.gw.CreateFacility(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("creating facility: %w", err)
	}
	if draft.SeedDemo {
		if _, err := e.gw.SeedDemoData(ctx); err != nil {
			return nil, fmt.Errorf("seeding demo catalogue: %w", err)
		}
	}

	e.mu.Lock()
	e.facilityID = fac.ID
	e.setup = &SetupConfig{
		FacilityName: draft.Name,
		CustomerName: draft.CustomerName,
		Location:     draft.Location,
		Floors:       draft.Floors,
		FloorHeight:  draft.FloorHeight,
		TotalArea:    draft.TotalArea,
		ModelFile:    draft.ModelFile,
		SeededDemo:   draft.SeedDemo,
	}
	e.mu.Unlock()

	e.logger.Info("facility setup complete", "facility_id", fac.ID, "name", fac.Name)

	if err := e.LoadFacility(ctx); err != nil {
		return nil, err
	}
	return fac, nil
}

// InstallTemplates hands a template index to the pool, draining the
// pending spawn queue, and announces asset readiness.
func (e *Engine) InstallTemplates(index TemplateIndex) {
	e.mu.Lock()
	spawned := e.pool.InstallTemplates(index)
	e.mu.Unlock()

	e.logger.Info("asset templates installed", "templates", len(index), "spawned", spawned)
	if e.hub != nil {
		e.hub.Broadcast("assets_ready", map[string]any{
			"templates": len(index),
			"spawned":   spawned,
		})
	}
}

func (e *Engine) loadAssets(ctx context.Context, modelFile string, tags []string) {
	if e.assets == nil {
		e.logger.Debug("no asset provider; devices stay pending")
		return
	}
	index, err := e.assets.Load(ctx, modelFile, tags)
	if err != nil {
		e.logger.Error("asset load failed; queued devices stay pending",
			"model_file", modelFile,
			"error", err,
		)
		return
	}
	e.InstallTemplates(index)
}

// AddDevice creates a device remotely, then mirrors it into the twin.
// The draft's floor is derived from its position before sending.
// Returns the new registry key.
func (e *Engine) AddDevice(ctx context.Context, draft DeviceDraft) (string, error) {
	e.mu.Lock()
	if e.facility == nil {
		e.mu.Unlock()
		return "", ErrNoFacility
	}
	facilityID := e.facility.ID
	draft.Floor = FloorOf(draft.Position.Y, e.filter.FloorHeight())
	e.mu.Unlock()

	rec, err := e.gw.CreateDevice(ctx, facilityID, draft)
	if err != nil {
		return "", fmt.Errorf("creating device: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	key := e.reg.Upsert(e.draftFromRemoteLocked(*rec))
	e.logger.Info("device added", "key", key, "serial", rec.Serial, "device_id", rec.ID)
	return key, nil
}

// MoveDevice persists a new position and rotation, then applies it to
// the twin. Fails fast with ErrDeviceBusy while another mutation is in
// flight for the key; if the key vanishes while saving, the confirmed
// result is discarded without error.
func (e *Engine) MoveDevice(ctx context.Context, key string, pos Vec3, rotationY float64) error {
	vm, err := e.beginMutation(key, MutationSaving)
	if err != nil {
		return err
	}

	if vm.BackingID == nil {
		// Local-only device: nothing to persist.
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.mutations, key)
		e.applyPositionLocked(key, pos, rotationY)
		return nil
	}

	e.mu.Lock()
	floor := FloorOf(pos.Y, e.filter.FloorHeight())
	e.mu.Unlock()

	gwErr := e.gw.UpdatePosition(ctx, *vm.BackingID, pos, rotationY, floor)

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.mutations, key)
	if gwErr != nil {
		return fmt.Errorf("updating position: %w", gwErr)
	}
	e.applyPositionLocked(key, pos, rotationY)
	return nil
}

// SetHealth persists a new health score, then applies it to the twin:
// tint, warranty ring and stored status all follow the derived tier.
func (e *Engine) SetHealth(ctx context.Context, key string, score int) error {
	vm, err := e.beginMutation(key, MutationSaving)
	if err != nil {
		return err
	}

	score = status.ClampScore(score)
	tier := status.HealthTier(score)

	if vm.BackingID == nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.mutations, key)
		e.applyHealthLocked(key, score, tier)
		return nil
	}

	gwErr := e.gw.UpdateHealth(ctx, *vm.BackingID, score, tier.Label())

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.mutations, key)
	if gwErr != nil {
		return fmt.Errorf("updating health: %w", gwErr)
	}
	e.applyHealthLocked(key, score, tier)
	return nil
}

// ApplyHealthTelemetry routes a telemetry sample to the device with the
// given serial number. Unknown serials return ErrUnknownDevice; busy
// devices return ErrDeviceBusy. Both are expected during normal
// operation and safe to skip.
func (e *Engine) ApplyHealthTelemetry(ctx context.Context, serial string, score int) error {
	e.mu.Lock()
	var key string
	for _, vm := range e.reg.All() {
		if vm.Serial == serial {
			key = vm.Key
			break
		}
	}
	e.mu.Unlock()

	if key == "" {
		return fmt.Errorf("%w: serial %q", ErrUnknownDevice, serial)
	}
	return e.SetHealth(ctx, key, score)
}

// DeleteDevice removes the device remotely, then from the twin:
// selection is dropped, the instance disposed and the view-model
// removed in the same operation.
func (e *Engine) DeleteDevice(ctx context.Context, key string) error {
	vm, err := e.beginMutation(key, MutationDeleting)
	if err != nil {
		return err
	}

	if vm.BackingID == nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.mutations, key)
		e.reg.Remove(key)
		return nil
	}

	gwErr := e.gw.RemoveDevice(ctx, *vm.BackingID)

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.mutations, key)
	if gwErr != nil {
		return fmt.Errorf("removing device: %w", gwErr)
	}
	e.reg.Remove(key)
	e.logger.Info("device removed", "key", key, "serial", vm.Serial)
	return nil
}

// ImportDevices streams an installation plan to the persistence service
// and reloads the device list so every imported device appears in the
// twin. The outcome is returned even when the follow-up reload fails.
func (e *Engine) ImportDevices(ctx context.Context, filename string, file io.Reader) (*ImportOutcome, error) {
	e.mu.Lock()
	if e.facility == nil {
		e.mu.Unlock()
		return nil, ErrNoFacility
	}
	facilityID := e.facility.ID
	e.mu.Unlock()

	outcome, err := e.gw.BulkImport(ctx, facilityID, filename, file)
	if err != nil {
		return nil, fmt.Errorf("bulk import: %w", err)
	}

	devices, err := e.gw.ListDevices(ctx, facilityID)
	if err != nil {
		return outcome, fmt.Errorf("reloading devices after import: %w", err)
	}

	e.mu.Lock()
	drafts := make([]DeviceData, 0, len(devices))
	for _, rec := range devices {
		drafts = append(drafts, e.draftFromRemoteLocked(rec))
	}
	e.reg.ReplacePersisted(drafts)
	e.mu.Unlock()

	e.logger.Info("import completed",
		"filename", filename,
		"installed", outcome.InstalledCount,
		"errors", len(outcome.Errors),
	)
	if e.hub != nil {
		e.hub.Broadcast("import_completed", map[string]any{
			"installed_count": outcome.InstalledCount,
			"errors":          outcome.Errors,
		})
	}
	return outcome, nil
}

// WarrantyAlerts fetches expiring-warranty alerts for the loaded
// facility. A threshold of zero or less uses the default alert window.
func (e *Engine) WarrantyAlerts(ctx context.Context, thresholdDays int) ([]WarrantyAlert, error) {
	e.mu.Lock()
	if e.facility == nil {
		e.mu.Unlock()
		return nil, ErrNoFacility
	}
	facilityID := e.facility.ID
	e.mu.Unlock()

	if thresholdDays <= 0 {
		thresholdDays = status.DefaultAlertWindowDays
	}
	alerts, err := e.gw.WarrantyAlerts(ctx, facilityID, thresholdDays)
	if err != nil {
		return nil, fmt.Errorf("fetching warranty alerts: %w", err)
	}
	return alerts, nil
}

// beginMutation checks the key exists and is idle, then tags it with
// the in-flight state. Returns a copy of the view-model as it was at
// the start of the mutation.
func (e *Engine) beginMutation(key string, state MutationState) (*DeviceViewModel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vm, ok := e.reg.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, key)
	}
	if cur, ok := e.mutations[key]; ok && cur != MutationIdle {
		return nil, fmt.Errorf("%w: %s in progress", ErrDeviceBusy, cur)
	}
	e.mutations[key] = state
	return vm, nil
}

// applyPositionLocked writes a confirmed position into the registry.
// Callers hold e.mu. A vanished key is a safe no-op.
func (e *Engine) applyPositionLocked(key string, pos Vec3, rotationY float64) {
	cur, ok := e.reg.Get(key)
	if !ok {
		return
	}
	data := draftFromModel(cur)
	data.Position = pos
	data.RotationY = rotationY
	e.reg.Upsert(data)

	if e.recorder != nil {
		e.recorder.RecordPosition(key, cur.Serial, pos, FloorOf(pos.Y, e.filter.FloorHeight()))
	}
}

// applyHealthLocked writes a confirmed health score into the registry.
// Callers hold e.mu. A vanished key is a safe no-op.
func (e *Engine) applyHealthLocked(key string, score int, tier status.Tier) {
	cur, ok := e.reg.Get(key)
	if !ok {
		return
	}
	data := draftFromModel(cur)
	data.HealthScore = score
	e.reg.Upsert(data)

	if e.recorder != nil {
		e.recorder.RecordHealth(key, cur.Serial, score, tier)
	}
}

// draftFromRemoteLocked joins a device record with the product
// catalogue. Callers hold e.mu for the product index.
func (e *Engine) draftFromRemoteLocked(rec RemoteDevice) DeviceData {
	id := rec.ID
	data := DeviceData{
		BackingID:       &id,
		DisplayName:     rec.Serial,
		Serial:          rec.Serial,
		HealthScore:     rec.HealthScore,
		LastMaintenance: rec.LastMaintenance,
		Position:        rec.Position,
		RotationY:       rec.RotationY,
		WarrantyExpiry:  rec.WarrantyExpiry,
		Notes:           rec.Notes,
	}
	if p, ok := e.products[rec.ProductID]; ok {
		data.DisplayName = p.Name
		data.TypeTag = p.TypeTag
	}
	return data
}

// templateTags collects the catalogue's distinct mesh identifiers in
// catalogue order.
func templateTags(products []ProductInfo) []string {
	seen := make(map[string]struct{}, len(products))
	tags := make([]string, 0, len(products))
	for _, p := range products {
		if p.TypeTag == "" {
			continue
		}
		if _, ok := seen[p.TypeTag]; ok {
			continue
		}
		seen[p.TypeTag] = struct{}{}
		tags = append(tags, p.TypeTag)
	}
	return tags
}

// draftFromModel converts a view-model back into an upsert draft,
// preserving its identity.
func draftFromModel(vm *DeviceViewModel) DeviceData {
	return DeviceData{
		BackingID:       vm.BackingID,
		DisplayName:     vm.DisplayName,
		TypeTag:         vm.TypeTag,
		Serial:          vm.Serial,
		HealthScore:     vm.HealthScore,
		LastMaintenance: vm.LastMaintenance,
		Position:        vm.WorldPosition,
		RotationY:       vm.RotationY,
		WarrantyExpiry:  vm.WarrantyExpiry,
		Notes:           vm.Notes,
	}
}

// restoreViewLocked applies the locally saved floor and viewport once
// after the first facility load. Callers hold e.mu.
func (e *Engine) restoreViewLocked() {
	if e.savedView == nil {
		return
	}
	v := e.savedView
	e.savedView = nil

	if v.ActiveFloor > 0 && (e.facility == nil || v.ActiveFloor <= e.facility.Floors) {
		e.filter.SetActiveFloor(v.ActiveFloor)
	}
	if v.Scale > 0 {
		e.viewport.Set(v.PanX, v.PanY, v.Scale)
	}
}

// saveState writes facility choice, setup and view state to the local
// state file. Callers must not hold e.mu.
func (e *Engine) saveState() {
	if e.state == nil {
		return
	}
	e.mu.Lock()
	floor, _ := e.filter.ActiveFloor()
	panX, panY, scale := e.viewport.State()
	st := &LocalState{
		FacilityID: e.facilityID,
		Setup:      e.setup,
		View:       &ViewState{ActiveFloor: floor, PanX: panX, PanY: panY, Scale: scale},
	}
	e.mu.Unlock()

	if err := e.state.Save(st); err != nil {
		e.logger.Warn("saving local state failed", "error", err)
	}
}
