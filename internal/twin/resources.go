package twin

import "sync"

// ResourceKind labels a tracked render allocation.
type ResourceKind string

const (
	ResourceGeometry  ResourceKind = "geometry"
	ResourceMaterial  ResourceKind = "material"
	ResourceIndicator ResourceKind = "indicator"
)

// ResourceTracker counts live per-instance render allocations so
// teardown can prove nothing leaked. Every clone an instance takes is
// acquired here and released on dispose; after a full teardown the
// tracker must read zero.
//
// All methods are thread-safe.
type ResourceTracker struct {
	mu   sync.Mutex
	live map[ResourceKind]int
}

// NewResourceTracker creates an empty tracker.
func NewResourceTracker() *ResourceTracker {
	return &ResourceTracker{live: make(map[ResourceKind]int)}
}

// Acquire records one live allocation of the given kind.
func (t *ResourceTracker) Acquire(kind ResourceKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[kind]++
}

// Release records one disposal of the given kind. Releasing below zero
// is clamped; dispose paths check instance liveness before releasing,
// so a negative count would indicate a bookkeeping bug upstream.
func (t *ResourceTracker) Release(kind ResourceKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live[kind] > 0 {
		t.live[kind]--
	}
}

// Live returns the total number of live allocations across all kinds.
func (t *ResourceTracker) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, n := range t.live {
		total += n
	}
	return total
}

// LiveByKind returns the live count for one kind.
func (t *ResourceTracker) LiveByKind(kind ResourceKind) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live[kind]
}
