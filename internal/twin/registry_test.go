package twin

import (
	"testing"
	"time"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

func backedDraft(id int64, serial, tag string) DeviceData {
	backing := id
	return DeviceData{
		BackingID:   &backing,
		DisplayName: tag,
		TypeTag:     tag,
		Serial:      serial,
		HealthScore: 100,
		Position:    Vec3{X: 1, Y: 1, Z: 1},
	}
}

// ─── Upsert ─────────────────────────────────────────────────────────────────

func TestRegistry_UpsertAssignsOrigin(t *testing.T) {
	reg := NewRegistry()

	persistedKey := reg.Upsert(backedDraft(1, "SN-GAL-000001", "galaxy_ups"))
	templateKey := reg.Upsert(DeviceData{DisplayName: "Preview", TypeTag: "galaxy_ups", Serial: "draft"})

	vm, ok := reg.Get(persistedKey)
	if !ok {
		t.Fatalf("Get(%q) not found", persistedKey)
	}
	if vm.Origin != OriginPersisted {
		t.Errorf("origin = %q, want %q", vm.Origin, OriginPersisted)
	}

	vm, ok = reg.Get(templateKey)
	if !ok {
		t.Fatalf("Get(%q) not found", templateKey)
	}
	if vm.Origin != OriginTemplate {
		t.Errorf("origin = %q, want %q", vm.Origin, OriginTemplate)
	}
	if vm.BackingID != nil {
		t.Errorf("template-origin BackingID = %v, want nil", *vm.BackingID)
	}
}

func TestRegistry_UpsertIdempotentByBacking(t *testing.T) {
	reg := NewRegistry()

	first := reg.Upsert(backedDraft(7, "SN-GAL-000007", "galaxy_ups"))
	reg.Upsert(backedDraft(8, "SN-NET-000008", "netshelter_rack"))

	updated := backedDraft(7, "SN-GAL-000007", "galaxy_ups")
	updated.HealthScore = 45
	second := reg.Upsert(updated)

	if first != second {
		t.Errorf("second upsert returned key %q, want %q", second, first)
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}

	vm, _ := reg.Get(first)
	if vm.HealthScore != 45 {
		t.Errorf("HealthScore = %d, want 45", vm.HealthScore)
	}

	// Update in place keeps the insertion position.
	all := reg.All()
	if len(all) != 2 || all[0].Key != first {
		t.Errorf("All()[0].Key = %q, want %q (insertion position preserved)", all[0].Key, first)
	}
}

func TestRegistry_KeyForBacking(t *testing.T) {
	reg := NewRegistry()
	key := reg.Upsert(backedDraft(42, "SN-ION-000042", "ion_meter"))

	got, ok := reg.KeyForBacking(42)
	if !ok || got != key {
		t.Errorf("KeyForBacking(42) = (%q, %v), want (%q, true)", got, ok, key)
	}
	if _, ok := reg.KeyForBacking(99); ok {
		t.Error("KeyForBacking(99) found a key for an unknown backing id")
	}
}

// ─── Remove ─────────────────────────────────────────────────────────────────

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry()
	key := reg.Upsert(backedDraft(1, "SN-GAL-000001", "galaxy_ups"))

	if !reg.Remove(key) {
		t.Fatal("Remove() = false for a known key")
	}
	if _, ok := reg.Get(key); ok {
		t.Error("Get() still finds a removed key")
	}
	if _, ok := reg.KeyForBacking(1); ok {
		t.Error("KeyForBacking() still resolves a removed backing id")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	if reg.Remove(key) {
		t.Error("Remove() = true for an already removed key")
	}
}

// ─── Ordering and copies ────────────────────────────────────────────────────

func TestRegistry_AllPreservesInsertionOrder(t *testing.T) {
	reg := NewRegistry()
	k1 := reg.Upsert(backedDraft(1, "SN-A", "a"))
	k2 := reg.Upsert(backedDraft(2, "SN-B", "b"))
	k3 := reg.Upsert(backedDraft(3, "SN-C", "c"))

	all := reg.All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d models, want 3", len(all))
	}
	want := []string{k1, k2, k3}
	for i, vm := range all {
		if vm.Key != want[i] {
			t.Errorf("All()[%d].Key = %q, want %q", i, vm.Key, want[i])
		}
	}
}

func TestRegistry_DeepCopyOut(t *testing.T) {
	reg := NewRegistry()
	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	draft := backedDraft(1, "SN-GAL-000001", "galaxy_ups")
	draft.WarrantyExpiry = &expiry
	key := reg.Upsert(draft)

	vm, _ := reg.Get(key)
	vm.HealthScore = 0
	vm.Serial = "tampered"
	*vm.WarrantyExpiry = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	fresh, _ := reg.Get(key)
	if fresh.HealthScore != 100 || fresh.Serial != "SN-GAL-000001" {
		t.Error("mutating a returned view-model leaked into the registry")
	}
	if !fresh.WarrantyExpiry.Equal(expiry) {
		t.Error("mutating a returned pointer field leaked into the registry")
	}
}

// ─── Events ─────────────────────────────────────────────────────────────────

func TestRegistry_Events(t *testing.T) {
	reg := NewRegistry()
	var events []Event
	reg.Subscribe(func(ev Event) { events = append(events, ev) })

	key := reg.Upsert(backedDraft(1, "SN-GAL-000001", "galaxy_ups"))
	reg.Upsert(backedDraft(1, "SN-GAL-000001", "galaxy_ups"))
	reg.Remove(key)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Kind != EventUpserted || !events[0].Created {
		t.Errorf("event 0 = %+v, want created upsert", events[0])
	}
	if events[0].Device == nil || events[0].Device.Key != key {
		t.Error("created upsert event is missing its view-model copy")
	}
	if events[1].Kind != EventUpserted || events[1].Created {
		t.Errorf("event 1 = %+v, want non-created upsert", events[1])
	}
	if events[2].Kind != EventRemoved || events[2].Key != key {
		t.Errorf("event 2 = %+v, want removed for %q", events[2], key)
	}
}

func TestRegistry_ReplacePersistedEmitsSingleReload(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(backedDraft(1, "SN-A", "a"))

	var kinds []EventKind
	reg.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	reg.ReplacePersisted([]DeviceData{backedDraft(1, "SN-A", "a"), backedDraft(2, "SN-B", "b")})

	if len(kinds) != 1 || kinds[0] != EventReloaded {
		t.Errorf("events = %v, want exactly one reloaded", kinds)
	}
}

// ─── Bulk replace ───────────────────────────────────────────────────────────

func TestRegistry_ReplacePersisted(t *testing.T) {
	reg := NewRegistry()
	k1 := reg.Upsert(backedDraft(1, "SN-A", "a"))
	k2 := reg.Upsert(backedDraft(2, "SN-B", "b"))
	preview := reg.Upsert(DeviceData{DisplayName: "Preview", TypeTag: "a", Serial: "draft"})

	updated := backedDraft(2, "SN-B", "b")
	updated.HealthScore = 60
	keys := reg.ReplacePersisted([]DeviceData{updated, backedDraft(3, "SN-C", "c")})

	if len(keys) != 2 {
		t.Fatalf("ReplacePersisted returned %d keys, want 2", len(keys))
	}
	if keys[0] != k2 {
		t.Errorf("backing 2 got key %q after reload, want stable key %q", keys[0], k2)
	}
	if _, ok := reg.Get(k1); ok {
		t.Error("backing 1 survived a reload that dropped it")
	}
	if vm, ok := reg.Get(k2); !ok || vm.HealthScore != 60 {
		t.Error("backing 2 was not updated in place")
	}
	if _, ok := reg.Get(keys[1]); !ok {
		t.Error("backing 3 was not added")
	}
	if vm, ok := reg.Get(preview); !ok || vm.Origin != OriginTemplate {
		t.Error("template-origin model did not survive the reload")
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", reg.Len())
	}
}
