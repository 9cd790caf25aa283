// Package config handles loading and validating twincore configuration.
//
// A single YAML file configures both daemons: the twin engine (twincore)
// reads the twin, persistence, assets, view_api, mqtt and influxdb
// sections; the persistence service (facilityd) reads database and
// facility_api. Logging and security apply to both.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (TWINCORE_* pattern)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - An empty JWT secret runs the view API without authentication; set a
//     32+ character secret before exposing it beyond a trusted network
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Twin.FacilityID)
package config
