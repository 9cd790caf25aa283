package twin

import (
	"errors"
	"sync"
	"time"
)

// InstancePool owns the live render instances. It spawns one instance
// per view-model, cloning template geometry and material through the
// resource tracker, and queues view-models whose template has not
// arrived yet.
//
// All public methods are thread-safe.
type InstancePool struct {
	mu        sync.Mutex
	reg       *Registry
	tracker   *ResourceTracker
	clip      *ClipBoundary
	templates TemplateIndex
	instances map[string]*Instance
	pending   []string
	logger    Logger
}

// NewInstancePool creates an empty pool. The registry is consulted when
// draining the pending queue, so queued entries always spawn from fresh
// view-model state.
func NewInstancePool(reg *Registry, tracker *ResourceTracker) *InstancePool {
	return &InstancePool{
		reg:       reg,
		tracker:   tracker,
		instances: make(map[string]*Instance),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the pool.
func (p *InstancePool) SetLogger(logger Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
}

// SetClipBoundary wires the floor filter's shared clip object into
// every material cloned from now on. Call once before spawning.
func (p *InstancePool) SetClipBoundary(clip *ClipBoundary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clip = clip
}

// Spawn creates an instance for the view-model, or refreshes the
// existing one. When no template matches the type tag the view-model's
// key is queued and (nil, true) is returned; pending is not an error.
func (p *InstancePool) Spawn(vm *DeviceViewModel) (*Instance, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spawnLocked(vm)
}

func (p *InstancePool) spawnLocked(vm *DeviceViewModel) (*Instance, bool) {
	if inst, ok := p.instances[vm.Key]; ok {
		inst.apply(vm, p.tracker, time.Now().UTC())
		return inst, false
	}

	inst, err := p.instantiate(vm)
	if err != nil {
		if errors.Is(err, ErrNoTemplate) {
			p.queueLocked(vm.Key)
			return nil, true
		}
		return nil, false
	}
	p.instances[vm.Key] = inst
	return inst, false
}

// instantiate builds an instance or reports ErrNoTemplate.
func (p *InstancePool) instantiate(vm *DeviceViewModel) (*Instance, error) {
	tpl, ok := p.templates[vm.TypeTag]
	if !ok {
		return nil, ErrNoTemplate
	}
	return newInstance(vm, tpl, p.clip, p.tracker, time.Now().UTC()), nil
}

func (p *InstancePool) queueLocked(key string) {
	for _, queued := range p.pending {
		if queued == key {
			return
		}
	}
	p.pending = append(p.pending, key)
}

// InstallTemplates installs the template index built from the loaded
// model file, replacing any previous one, and drains the pending queue
// exactly once per entry: entries whose template now matches spawn,
// entries whose key vanished are dropped silently, and entries with no
// matching template are dropped with a warning (the index is built once
// per model file, so they can never be satisfied by waiting).
//
// Returns the number of instances spawned from the queue.
func (p *InstancePool) InstallTemplates(index TemplateIndex) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.templates = index
	queued := p.pending
	p.pending = nil

	spawned := 0
	for _, key := range queued {
		vm, ok := p.reg.Get(key)
		if !ok {
			continue
		}
		if _, ok := p.templates[vm.TypeTag]; !ok {
			p.logger.Warn("dropping queued device with no template",
				"key", key,
				"type_tag", vm.TypeTag,
			)
			continue
		}
		if _, pending := p.spawnLocked(vm); !pending {
			spawned++
		}
	}

	p.logger.Debug("templates installed",
		"templates", len(index),
		"spawned", spawned,
	)
	return spawned
}

// HasTemplates reports whether a template index has been installed.
func (p *InstancePool) HasTemplates() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.templates != nil
}

// Get retrieves a live instance by registry key.
func (p *InstancePool) Get(key string) (*Instance, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	inst, ok := p.instances[key]
	return inst, ok
}

// Apply refreshes an existing instance from its view-model: transform,
// health tint and warranty indicator. Unknown keys are no-ops.
func (p *InstancePool) Apply(vm *DeviceViewModel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if inst, ok := p.instances[vm.Key]; ok {
		inst.apply(vm, p.tracker, time.Now().UTC())
	}
}

// Dispose synchronously releases an instance's geometry, material and
// indicator, then detaches it. Double-dispose and unknown keys are
// no-ops; a queued key is unqueued.
func (p *InstancePool) Dispose(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = removeKey(p.pending, key)

	inst, ok := p.instances[key]
	if !ok {
		return false
	}
	inst.release(p.tracker)
	delete(p.instances, key)
	return true
}

// ReplacePersisted disposes and respawns every persisted-origin
// instance from the given view-models, leaving template-origin
// instances untouched. Used after a bulk reload. Returns the number of
// instances spawned.
func (p *InstancePool) ReplacePersisted(vms []*DeviceViewModel) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, inst := range p.instances {
		if inst.persisted {
			inst.release(p.tracker)
			delete(p.instances, key)
		}
	}

	// Queued persisted keys respawn (or requeue) below; drop stale ones.
	kept := p.pending[:0]
	for _, key := range p.pending {
		vm, ok := p.reg.Get(key)
		if ok && vm.Origin == OriginTemplate {
			kept = append(kept, key)
		}
	}
	p.pending = kept

	spawned := 0
	for _, vm := range vms {
		if vm.Origin != OriginPersisted {
			continue
		}
		if _, pending := p.spawnLocked(vm); !pending {
			spawned++
		}
	}
	return spawned
}

// Len returns the number of live instances.
func (p *InstancePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.instances)
}

// PendingLen returns the number of queued keys awaiting templates.
func (p *InstancePool) PendingLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Teardown disposes every instance, drops the template index and clears
// the pending queue, logging any entries that never found a template.
// The tracker reads zero for pool-owned allocations afterwards.
func (p *InstancePool) Teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, inst := range p.instances {
		inst.release(p.tracker)
		delete(p.instances, key)
	}
	if len(p.pending) > 0 {
		p.logger.Warn("dropping pending spawns at teardown", "count", len(p.pending))
	}
	p.pending = nil
	p.templates = nil
}
