package twin

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStateStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twin-state.json")
	store := NewStateStore(path)

	saved := &LocalState{
		FacilityID: 7,
		Setup: &SetupConfig{
			FacilityName: "Birmingham DC",
			Floors:       3,
			FloorHeight:  6,
			SeededDemo:   true,
		},
		View: &ViewState{ActiveFloor: 2, PanX: 120, PanY: -40, Scale: 1.5},
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if saved.SavedAt.IsZero() {
		t.Error("Save() did not stamp SavedAt")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load() = nil for an existing file")
	}
	if loaded.FacilityID != 7 {
		t.Errorf("facility id = %d, want 7", loaded.FacilityID)
	}
	if loaded.Setup == nil || loaded.Setup.FacilityName != "Birmingham DC" || loaded.Setup.Floors != 3 {
		t.Errorf("setup = %+v", loaded.Setup)
	}
	if loaded.View == nil || loaded.View.ActiveFloor != 2 || loaded.View.Scale != 1.5 {
		t.Errorf("view = %+v", loaded.View)
	}
}

func TestStateStore_MissingFile(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "never-written.json"))

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error for a missing file: %v", err)
	}
	if state != nil {
		t.Errorf("Load() = %+v for a missing file, want nil", state)
	}
}

func TestStateStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twin-state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStateStore(path).Load(); err == nil {
		t.Error("Load() of a corrupt file succeeded")
	}
}

func TestStateStore_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "state.json")
	store := NewStateStore(path)

	if err := store.Save(&LocalState{FacilityID: 1}); err != nil {
		t.Fatalf("Save() into a missing directory: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("state file not created: %v", err)
	}
}

func TestStateStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twin-state.json")
	store := NewStateStore(path)

	if err := store.Clear(); err != nil {
		t.Errorf("Clear() of a missing file: %v", err)
	}

	if err := store.Save(&LocalState{FacilityID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if state, err := store.Load(); err != nil || state != nil {
		t.Errorf("Load() after Clear() = %+v, %v, want nil, nil", state, err)
	}
}
