// Package gateway is the twin engine's HTTP client for facilityd, the
// persistence service that owns facility, catalogue and installed-device
// records.
//
// The engine never mutates its local twin until facilityd confirms, so
// this client is deliberately plain: one request per remote effect, no
// retries, no caching. What it adds is error classification — every
// failure comes back wrapped in one of three sentinels so callers can
// branch with errors.Is:
//
//   - ErrNetwork: facilityd unreachable, timed out, or 5xx
//   - ErrValidation: request rejected (4xx other than 404), or a
//     response body that would not decode
//   - ErrNotFound: the record does not exist (404)
//
// # Usage
//
//	client := gateway.New(cfg.Persistence)
//	if err := client.HealthCheck(ctx); err != nil {
//	    log.Warn("facilityd not reachable yet", "error", err)
//	}
//	devices, err := client.ListDevices(ctx, facilityID)
//
// Responses decode into the same structs facilityd serialises
// (facility, catalog, inventory, importer packages), then convert to
// the engine's twin types, so the two sides of the wire cannot drift.
package gateway
