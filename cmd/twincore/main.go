// Twincore - Facility Digital Twin Engine
//
// This is the main entry point for the twincore engine daemon. It mirrors
// one facility's installed devices into an interactive digital twin:
//   - In-memory device registry synchronised with facilityd
//   - Visual instance lifecycle for the 3D scene and 2D node graph
//   - Confirm-then-apply mutations (persistence always wins)
//   - View API (REST + WebSocket frame feed) for display clients
//   - Optional MQTT health telemetry ingest and InfluxDB history
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ardenmarsh/twincore/internal/assets"
	"github.com/ardenmarsh/twincore/internal/auth"
	"github.com/ardenmarsh/twincore/internal/bridges/healthfeed"
	"github.com/ardenmarsh/twincore/internal/infrastructure/config"
	"github.com/ardenmarsh/twincore/internal/infrastructure/influxdb"
	"github.com/ardenmarsh/twincore/internal/infrastructure/logging"
	"github.com/ardenmarsh/twincore/internal/infrastructure/mqtt"
	"github.com/ardenmarsh/twincore/internal/status"
	"github.com/ardenmarsh/twincore/internal/twin"
	"github.com/ardenmarsh/twincore/internal/twin/gateway"
	"github.com/ardenmarsh/twincore/internal/viewapi"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	mintSubject := flag.String("mint-token", "",
		"print a view API bearer token for the given subject and exit")
	flag.Parse()

	if *mintSubject != "" {
		if err := mintToken(*mintSubject); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting twincore engine",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, "twincore", version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Persistence gateway. An unreachable facilityd is not fatal: the
	// engine is built for unreliable links and re-syncs when it can.
	gw := gateway.New(cfg.Persistence)
	if err := gw.HealthCheck(ctx); err != nil {
		log.Warn("facilityd not reachable yet",
			"base_url", cfg.Persistence.BaseURL,
			"error", err,
		)
	} else {
		log.Info("facilityd reachable", "base_url", cfg.Persistence.BaseURL)
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var recorder twin.HistoryRecorder
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder = &historyRecorder{influx: influxClient}
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Local view state between runs
	var state *twin.StateStore
	if cfg.Twin.StateFile != "" {
		state = twin.NewStateStore(cfg.Twin.StateFile)
	}

	// One hub shared by the engine (its broadcaster) and the view API
	// server. The engine needs it before the server starts, so the main
	// owns its lifecycle.
	hub := viewapi.NewHub(cfg.ViewAPI.WebSocket, log)
	go hub.Run(ctx)

	engine, err := twin.NewEngine(twin.Deps{
		Config:   cfg.Twin,
		Gateway:  gw,
		Assets:   assets.New(cfg.Assets),
		Hub:      hub,
		Recorder: recorder,
		State:    state,
		Logger:   log.With("component", "twin"),
	})
	if err != nil {
		return fmt.Errorf("creating twin engine: %w", err)
	}
	defer engine.Teardown()

	// Mirror the facility. A failure here is not fatal either: on first
	// boot no facility exists until POST /setup, and facilityd may still
	// be coming up.
	if loadErr := engine.LoadFacility(ctx); loadErr != nil {
		log.Warn("facility not loaded; waiting for setup or facilityd",
			"facility_id", engine.FacilityID(),
			"error", loadErr,
		)
	}

	go func() {
		if runErr := engine.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			log.Error("twin engine stopped unexpectedly", "error", runErr)
		}
	}()

	// Connect to MQTT and start the telemetry bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		// The bridge binds to the engine's resolved facility for this
		// process; a facility change via setup takes effect on restart.
		bridge, bridgeErr := healthfeed.New(healthfeed.Options{
			FacilityID: engine.FacilityID(),
			Client:     mqttClient,
			Engine:     engine,
			Logger:     log,
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating health telemetry bridge: %w", bridgeErr)
		}
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting health telemetry bridge: %w", startErr)
		}
		defer func() {
			stats := bridge.Stats()
			log.Info("stopping health telemetry bridge",
				"received", stats.Received,
				"applied", stats.Applied,
				"skipped", stats.Skipped,
			)
			bridge.Stop()
		}()
	} else {
		log.Info("MQTT disabled")
	}

	server, err := viewapi.New(viewapi.Deps{
		Config:      cfg.ViewAPI,
		Security:    cfg.Security,
		Logger:      log,
		Engine:      engine,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating view API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting view API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing view API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, server, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse order:
	// 1. View API server (stop accepting requests)
	// 2. Telemetry bridge (stop ingesting)
	// 3. MQTT (disconnect)
	// 4. Engine teardown (save local state, dispose instances)
	// 5. InfluxDB (flush batched history)

	log.Info("twincore engine stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TWINCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TWINCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// mintToken prints a view API bearer token for the given subject, for
// out-of-band use (curl, dashboards, the telemetry simulator).
func mintToken(subject string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return fmt.Errorf("security.jwt.secret is empty; the view API runs open and needs no token")
	}

	token, err := auth.GenerateAccessToken(subject, cfg.Security.JWT.Secret, cfg.Security.JWT.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

// healthCheck verifies the engine's connections are healthy before it
// reports ready. The persistence gateway is deliberately excluded: the
// engine must boot without facilityd.
func healthCheck(ctx context.Context, server *viewapi.Server, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("view api: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// historyRecorder adapts the InfluxDB client to the engine's
// HistoryRecorder interface. Writes are batched and non-blocking; the
// client's error callback reports failed flushes.
type historyRecorder struct {
	influx *influxdb.Client
}

// RecordHealth implements twin.HistoryRecorder.
func (r *historyRecorder) RecordHealth(key, serial string, score int, tier status.Tier) {
	r.influx.WriteHealthSample(key, serial, score, string(tier))
}

// RecordPosition implements twin.HistoryRecorder.
func (r *historyRecorder) RecordPosition(key, serial string, pos twin.Vec3, floor int) {
	r.influx.WritePositionChange(key, serial, pos.X, pos.Y, pos.Z, floor)
}
