package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
twin:
  facility_id: 7
  frame_rate: 60
  meters_to_pixels: 12.5
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
facility_api:
  host: "0.0.0.0"
  port: 8000
view_api:
  host: "0.0.0.0"
  port: 8080
persistence:
  base_url: "http://facilityd:8000"
  request_timeout: 5
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Twin.FacilityID != 7 {
		t.Errorf("Twin.FacilityID = %d, want 7", cfg.Twin.FacilityID)
	}

	if cfg.Twin.FrameRate != 60 {
		t.Errorf("Twin.FrameRate = %d, want 60", cfg.Twin.FrameRate)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.Persistence.BaseURL != "http://facilityd:8000" {
		t.Errorf("Persistence.BaseURL = %q, want %q", cfg.Persistence.BaseURL, "http://facilityd:8000")
	}

	// Values absent from the file keep their defaults.
	if cfg.Twin.MinScale != 0.5 {
		t.Errorf("Twin.MinScale = %v, want default 0.5", cfg.Twin.MinScale)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
twin:
  facility_id: 0
database:
  path: "/tmp/test.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for facility_id 0, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// validJWTSecret is a secret that meets the 32-character minimum requirement
	validJWTSecret := "test-secret-key-at-least-32-chars!"

	// valid returns a config that passes validation; tests mutate one field.
	valid := func() *Config {
		return &Config{
			Twin: TwinConfig{
				FacilityID:     1,
				FrameRate:      30,
				MetersToPixels: 10,
				MinScale:       0.5,
				MaxScale:       4.0,
			},
			Database:    DatabaseConfig{Path: "/data/facility.db"},
			FacilityAPI: FacilityAPIConfig{Port: 8000},
			ViewAPI:     ViewAPIConfig{Port: 8080},
			Persistence: PersistenceConfig{BaseURL: "http://localhost:8000"},
			MQTT:        MQTTConfig{QoS: 1},
			Security:    SecurityConfig{JWT: JWTConfig{Secret: validJWTSecret}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "facility id zero",
			mutate:  func(c *Config) { c.Twin.FacilityID = 0 },
			wantErr: true,
		},
		{
			name:    "frame rate zero",
			mutate:  func(c *Config) { c.Twin.FrameRate = 0 },
			wantErr: true,
		},
		{
			name:    "frame rate too high",
			mutate:  func(c *Config) { c.Twin.FrameRate = 500 },
			wantErr: true,
		},
		{
			name:    "meters_to_pixels zero",
			mutate:  func(c *Config) { c.Twin.MetersToPixels = 0 },
			wantErr: true,
		},
		{
			name:    "max scale below min scale",
			mutate:  func(c *Config) { c.Twin.MaxScale = 0.1 },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid facility_api port",
			mutate:  func(c *Config) { c.FacilityAPI.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid view_api port",
			mutate:  func(c *Config) { c.ViewAPI.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "missing persistence base URL",
			mutate:  func(c *Config) { c.Persistence.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "empty JWT secret runs open",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "" },
			wantErr: false,
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPITimeoutConfig_Durations(t *testing.T) {
	timeouts := APITimeoutConfig{
		Read:  30,
		Write: 45,
		Idle:  60,
	}

	if got := timeouts.ReadTimeout().Seconds(); got != 30 {
		t.Errorf("ReadTimeout() = %v, want 30", got)
	}

	if got := timeouts.WriteTimeout().Seconds(); got != 45 {
		t.Errorf("WriteTimeout() = %v, want 45", got)
	}

	if got := timeouts.IdleTimeout().Seconds(); got != 60 {
		t.Errorf("IdleTimeout() = %v, want 60", got)
	}
}

func TestTwinConfig_FrameInterval(t *testing.T) {
	twin := TwinConfig{FrameRate: 30}

	if got := twin.FrameInterval().Milliseconds(); got != 33 {
		t.Errorf("FrameInterval() = %vms, want 33ms", got)
	}

	twin.FrameRate = 10
	if got := twin.FrameInterval().Milliseconds(); got != 100 {
		t.Errorf("FrameInterval() = %vms, want 100ms", got)
	}

	twin.FrameRate = 0
	if got := twin.FrameInterval().Milliseconds(); got != 33 {
		t.Errorf("FrameInterval() with zero rate = %vms, want 33ms", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("TWINCORE_FACILITY_ID", "42")
	t.Setenv("TWINCORE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("TWINCORE_PERSISTENCE_BASE_URL", "http://facilityd.internal:8000")
	t.Setenv("TWINCORE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("TWINCORE_MQTT_USERNAME", "testuser")
	t.Setenv("TWINCORE_MQTT_PASSWORD", "testpass")
	t.Setenv("TWINCORE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("TWINCORE_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	if cfg.Twin.FacilityID != 42 {
		t.Errorf("Twin.FacilityID = %d, want 42", cfg.Twin.FacilityID)
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.Persistence.BaseURL != "http://facilityd.internal:8000" {
		t.Errorf("Persistence.BaseURL = %q, want %q", cfg.Persistence.BaseURL, "http://facilityd.internal:8000")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
}

func TestApplyEnvOverrides_BadFacilityID(t *testing.T) {
	cfg := defaultConfig()
	original := cfg.Twin.FacilityID

	t.Setenv("TWINCORE_FACILITY_ID", "not-a-number")

	applyEnvOverrides(cfg)

	if cfg.Twin.FacilityID != original {
		t.Errorf("Twin.FacilityID = %d, want unchanged %d", cfg.Twin.FacilityID, original)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Twin.FacilityID < 1 {
		t.Error("defaultConfig should have a positive Twin.FacilityID")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.FacilityAPI.Port != 8000 {
		t.Errorf("defaultConfig FacilityAPI.Port = %d, want 8000", cfg.FacilityAPI.Port)
	}

	if cfg.ViewAPI.Port != 8080 {
		t.Errorf("defaultConfig ViewAPI.Port = %d, want 8080", cfg.ViewAPI.Port)
	}

	if cfg.ViewAPI.WebSocket.Path != "/ws" {
		t.Errorf("defaultConfig ViewAPI.WebSocket.Path = %q, want /ws", cfg.ViewAPI.WebSocket.Path)
	}
}
