package twin

import (
	"sync"

	"github.com/google/uuid"
)

// EventKind identifies a registry change notification.
type EventKind string

const (
	// EventUpserted fires when a single view-model is created or
	// updated in place.
	EventUpserted EventKind = "upserted"

	// EventRemoved fires when a view-model is removed.
	EventRemoved EventKind = "removed"

	// EventReloaded fires once after a bulk replace of the persisted
	// set. Subscribers should resynchronise from All() rather than
	// diff individual keys.
	EventReloaded EventKind = "reloaded"
)

// Event describes one registry change. Device is a deep copy (nil for
// removed and reloaded events); subscribers may keep or mutate it.
type Event struct {
	Kind    EventKind
	Key     string
	Created bool // upserted only: true for a new key, false for update
	Device  *DeviceViewModel
}

// Registry is the in-memory store of device view-models: the single
// source of truth both views render from. It preserves insertion order
// (hit-testing tie-breaks depend on it) and indexes by backing record
// id so re-syncs keep stable keys.
//
// All public methods are thread-safe. Returned view-models are deep
// copies; callers can safely modify them. Subscribers are notified
// synchronously after the internal lock is released, in the order they
// subscribed.
type Registry struct {
	mu        sync.RWMutex
	models    map[string]*DeviceViewModel
	order     []string
	byBacking map[int64]string
	subs      []func(Event)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		models:    make(map[string]*DeviceViewModel),
		byBacking: make(map[int64]string),
	}
}

// Subscribe registers a change listener. Subscribe before first use;
// listeners cannot be removed.
func (r *Registry) Subscribe(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// Upsert creates or updates a view-model and returns its key.
//
// Idempotent by backing id: a second upsert for the same backing record
// updates the existing view-model in place and returns the same key,
// preserving its insertion position. Drafts without a backing id always
// create a new template-origin model.
func (r *Registry) Upsert(data DeviceData) string {
	r.mu.Lock()

	var (
		key     string
		created bool
	)
	if data.BackingID != nil {
		if existing, ok := r.byBacking[*data.BackingID]; ok {
			key = existing
		}
	}
	if key == "" {
		key = uuid.NewString()
		created = true
		r.order = append(r.order, key)
	}

	vm := modelFromData(key, data)
	r.models[key] = vm
	if vm.BackingID != nil {
		r.byBacking[*vm.BackingID] = key
	}

	ev := Event{Kind: EventUpserted, Key: key, Created: created, Device: vm.DeepCopy()}
	subs := r.subscribers()
	r.mu.Unlock()

	notify(subs, ev)
	return key
}

// Remove deletes a view-model by key. Returns false if the key is
// unknown; removal of an unknown key has no effect.
func (r *Registry) Remove(key string) bool {
	r.mu.Lock()

	vm, ok := r.models[key]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.models, key)
	if vm.BackingID != nil {
		delete(r.byBacking, *vm.BackingID)
	}
	r.order = removeKey(r.order, key)

	ev := Event{Kind: EventRemoved, Key: key}
	subs := r.subscribers()
	r.mu.Unlock()

	notify(subs, ev)
	return true
}

// Get retrieves a view-model by key.
// The returned view-model is a deep copy; callers can safely modify it.
func (r *Registry) Get(key string) (*DeviceViewModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vm, ok := r.models[key]
	if !ok {
		return nil, false
	}
	return vm.DeepCopy(), true
}

// All returns every view-model in insertion order.
// The returned view-models are deep copies; callers can safely modify them.
func (r *Registry) All() []*DeviceViewModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*DeviceViewModel, 0, len(r.order))
	for _, key := range r.order {
		if vm, ok := r.models[key]; ok {
			out = append(out, vm.DeepCopy())
		}
	}
	return out
}

// Len returns the number of view-models held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// KeyForBacking resolves a backing record id to its registry key.
func (r *Registry) KeyForBacking(id int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byBacking[id]
	return key, ok
}

// ReplacePersisted swaps the persisted set for the given drafts in one
// operation: backing ids already present keep their key and insertion
// position, new ones append, persisted models absent from the drafts
// are removed. Template-origin models are left untouched. Emits a
// single reloaded event.
//
// Returns the keys of the new persisted set, in draft order.
func (r *Registry) ReplacePersisted(data []DeviceData) []string {
	r.mu.Lock()

	seen := make(map[int64]bool, len(data))
	keys := make([]string, 0, len(data))
	for _, d := range data {
		if d.BackingID == nil {
			continue
		}
		seen[*d.BackingID] = true

		key, ok := r.byBacking[*d.BackingID]
		if !ok {
			key = uuid.NewString()
			r.order = append(r.order, key)
			r.byBacking[*d.BackingID] = key
		}
		r.models[key] = modelFromData(key, d)
		keys = append(keys, key)
	}

	// Drop persisted models whose backing record vanished.
	for id, key := range r.byBacking {
		if seen[id] {
			continue
		}
		delete(r.byBacking, id)
		delete(r.models, key)
		r.order = removeKey(r.order, key)
	}

	ev := Event{Kind: EventReloaded}
	subs := r.subscribers()
	r.mu.Unlock()

	notify(subs, ev)
	return keys
}

// Clear drops every view-model without notifying subscribers. Used
// during teardown, where the caller resets dependent state itself.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = make(map[string]*DeviceViewModel)
	r.byBacking = make(map[int64]string)
	r.order = nil
}

// subscribers returns a snapshot of the listener list. Callers must
// hold the lock.
func (r *Registry) subscribers() []func(Event) {
	if len(r.subs) == 0 {
		return nil
	}
	out := make([]func(Event), len(r.subs))
	copy(out, r.subs)
	return out
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

func modelFromData(key string, data DeviceData) *DeviceViewModel {
	origin := OriginTemplate
	if data.BackingID != nil {
		origin = OriginPersisted
	}
	vm := &DeviceViewModel{
		Key:             key,
		BackingID:       data.BackingID,
		DisplayName:     data.DisplayName,
		TypeTag:         data.TypeTag,
		Serial:          data.Serial,
		HealthScore:     data.HealthScore,
		LastMaintenance: data.LastMaintenance,
		WorldPosition:   data.Position,
		RotationY:       data.RotationY,
		WarrantyExpiry:  data.WarrantyExpiry,
		Notes:           data.Notes,
		Origin:          origin,
	}
	return vm.DeepCopy() // own all pointers; the draft stays caller-owned
}

func removeKey(order []string, key string) []string {
	for i, k := range order {
		if k == key {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
