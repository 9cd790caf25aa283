// Package influxdb provides InfluxDB connectivity for twincore.
//
// It wraps the official influxdb-client-go v2 library with the service's
// patterns for connection management, history writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series history for the twin:
//   - Device health samples (confirmed score changes with their tier)
//   - Device position changes (movement audit trail per floor)
//
// History recording is optional; when disabled in config the engine simply
// runs without a recorder.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "twincore",
//	    Bucket:  "twin_history",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteHealthSample("a1b2c3", "SRV-2024-001", 87, "healthy")
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This keeps high-frequency telemetry off the engine's critical path.
package influxdb
