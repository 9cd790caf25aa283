// Package api implements the facilityd HTTP REST API.
//
// This package provides:
//   - Facility CRUD and the floor-geometry fields the twin projects from
//   - Product catalog endpoints (lookup by ID and by product code)
//   - Installed-device endpoints: install, list per facility, partial
//     update, soft delete, warranty alerts
//   - Bulk installation from uploaded spreadsheet plans
//   - Demo catalog seeding
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//
// # Architecture
//
// facilityd is the system of record. The twin engine's sync gateway is its
// primary consumer: every mutation the engine makes round-trips through
// these endpoints before the in-memory twin is updated. The API is
// deliberately unauthenticated - it binds to an internal interface and the
// engine's own view API fronts all external access.
//
// # Conventions
//
// Collection responses wrap the items with a count:
//
//	{"devices": [...], "count": 12}
//
// Errors use a structured envelope with a machine-readable code. Soft
// deletes keep the device row (is_active=0) so serial numbers stay
// reserved and history survives.
package api
