package twin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SetupConfig is the facility setup the operator chose, kept locally so
// a restart lands back in the same facility without re-running setup.
type SetupConfig struct {
	FacilityName string  `json:"facility_name"`
	CustomerName string  `json:"customer_name,omitempty"`
	Location     string  `json:"location,omitempty"`
	Floors       int     `json:"floors"`
	FloorHeight  float64 `json:"floor_height"`
	TotalArea    float64 `json:"total_area,omitempty"`
	ModelFile    string  `json:"model_file,omitempty"`
	SeededDemo   bool    `json:"seeded_demo"`
}

// ViewState is the session view state worth keeping across restarts.
type ViewState struct {
	ActiveFloor int     `json:"active_floor"` // 0 = all floors
	PanX        float64 `json:"pan_x"`
	PanY        float64 `json:"pan_y"`
	Scale       float64 `json:"scale"`
}

// LocalState is the engine's client-side persisted state: which
// facility to load plus how the operator left the views. Device data is
// never stored here; it is always reloaded fresh from facilityd.
type LocalState struct {
	FacilityID int64        `json:"facility_id"`
	Setup      *SetupConfig `json:"setup_config,omitempty"`
	View       *ViewState   `json:"view_state,omitempty"`
	SavedAt    time.Time    `json:"saved_at"`
}

// StateStore reads and writes the engine's local state file as JSON.
//
// All methods are thread-safe.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a store backed by the given file path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the backing file path.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file is not an error; it returns
// (nil, nil) so first runs fall through to configuration defaults.
func (s *StateStore) Load() (*LocalState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state LocalState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	return &state, nil
}

// Save writes the state file, creating parent directories as needed.
func (s *StateStore) Save(state *LocalState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.SavedAt = time.Now().UTC()
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// Clear removes the state file. Missing files are ignored.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}
