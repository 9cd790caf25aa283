package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure shared by the twincore engine
// and the facilityd persistence service. All configuration is loaded from
// YAML and can be overridden by environment variables. Each daemon reads
// only the sections it needs; unknown sections are ignored.
type Config struct {
	Twin        TwinConfig        `yaml:"twin"`
	Database    DatabaseConfig    `yaml:"database"`
	FacilityAPI FacilityAPIConfig `yaml:"facility_api"`
	ViewAPI     ViewAPIConfig     `yaml:"view_api"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Assets      AssetsConfig      `yaml:"assets"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Security    SecurityConfig    `yaml:"security"`
}

// TwinConfig contains settings for the twin engine itself: which facility
// it mirrors and how the dual-view projection behaves.
type TwinConfig struct {
	// FacilityID is the backing facility this engine instance mirrors.
	FacilityID int64 `yaml:"facility_id"`

	// FrameRate is the snapshot publish rate in frames per second.
	FrameRate int `yaml:"frame_rate"`

	// MetersToPixels scales world metres to top-down view pixels.
	MetersToPixels float64 `yaml:"meters_to_pixels"`

	// MinScale and MaxScale bound the top-down viewport zoom.
	MinScale float64 `yaml:"min_scale"`
	MaxScale float64 `yaml:"max_scale"`

	// StateFile is where session view state (floor, viewport) is kept
	// between runs. Empty disables local state persistence.
	StateFile string `yaml:"state_file"`
}

// DatabaseConfig contains SQLite database settings for facilityd.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// FacilityAPIConfig contains HTTP server settings for the facilityd REST API.
type FacilityAPIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// ViewAPIConfig contains HTTP server settings for the engine's view API,
// including the WebSocket frame feed.
type ViewAPIConfig struct {
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// ReadTimeout returns the read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// PersistenceConfig tells the engine's sync gateway where facilityd lives.
type PersistenceConfig struct {
	BaseURL        string `yaml:"base_url"`
	RequestTimeout int    `yaml:"request_timeout"`
}

// AssetsConfig contains 3D model asset settings.
type AssetsConfig struct {
	// ModelDir is the directory holding glTF/GLB facility and device models.
	ModelDir string `yaml:"model_dir"`
}

// MQTTConfig contains MQTT broker connection settings for the telemetry feed.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings. AccessTokenTTL is in minutes;
// TicketTTL (short-lived WebSocket tickets) is in seconds.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
	TicketTTL      int    `yaml:"ticket_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TWINCORE_SECTION_KEY
// For example: TWINCORE_DATABASE_PATH, TWINCORE_PERSISTENCE_BASE_URL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Twin: TwinConfig{
			FacilityID:     1,
			FrameRate:      30,
			MetersToPixels: 10,
			MinScale:       0.5,
			MaxScale:       4.0,
			StateFile:      "./data/twincore-state.json",
		},
		Database: DatabaseConfig{
			Path:        "./data/facility.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		FacilityAPI: FacilityAPIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		ViewAPI: ViewAPIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				Path:           "/ws",
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Persistence: PersistenceConfig{
			BaseURL:        "http://localhost:8000",
			RequestTimeout: 10,
		},
		Assets: AssetsConfig{
			ModelDir: "./assets/models",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "twincore-engine",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
				TicketTTL:      30,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TWINCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Twin
	if v := os.Getenv("TWINCORE_FACILITY_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Twin.FacilityID = id
		}
	}

	// Database
	if v := os.Getenv("TWINCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Persistence
	if v := os.Getenv("TWINCORE_PERSISTENCE_BASE_URL"); v != "" {
		cfg.Persistence.BaseURL = v
	}

	// MQTT
	if v := os.Getenv("TWINCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TWINCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TWINCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("TWINCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("TWINCORE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Twin validation
	if c.Twin.FacilityID < 1 {
		errs = append(errs, "twin.facility_id must be a positive integer")
	}
	if c.Twin.FrameRate < 1 || c.Twin.FrameRate > 240 {
		errs = append(errs, "twin.frame_rate must be between 1 and 240")
	}
	if c.Twin.MetersToPixels <= 0 {
		errs = append(errs, "twin.meters_to_pixels must be positive")
	}
	if c.Twin.MinScale <= 0 {
		errs = append(errs, "twin.min_scale must be positive")
	}
	if c.Twin.MaxScale < c.Twin.MinScale {
		errs = append(errs, "twin.max_scale must not be less than twin.min_scale")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// API validation
	if c.FacilityAPI.Port < 1 || c.FacilityAPI.Port > 65535 {
		errs = append(errs, "facility_api.port must be between 1 and 65535")
	}
	if c.ViewAPI.Port < 1 || c.ViewAPI.Port > 65535 {
		errs = append(errs, "view_api.port must be between 1 and 65535")
	}

	// Persistence validation
	if c.Persistence.BaseURL == "" {
		errs = append(errs, "persistence.base_url is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Security validation. An empty secret runs the view API open, for
	// single-operator deployments on trusted networks. A short secret is
	// worse than none: it looks protected while being forgeable, so it is
	// rejected outright.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters when set (leave empty to run the view API open)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// FrameInterval returns the twin snapshot period derived from frame_rate.
func (c TwinConfig) FrameInterval() time.Duration {
	if c.FrameRate < 1 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.FrameRate)
}

