// Package viewapi implements the twin engine's HTTP and WebSocket surface.
//
// This package provides:
//   - Twin view operations: snapshot, select/deselect, floor filter,
//     viewport, hit testing
//   - Device mutations routed through the engine (create, move, health,
//     remove, bulk import, warranty alerts)
//   - Facility setup for first-run provisioning
//   - A WebSocket hub that pushes frame snapshots each tick plus discrete
//     twin events to connected display clients
//   - Middleware stack (request ID, logging, recovery, CORS, body limits,
//     optional bearer auth)
//
// # Architecture
//
// The display clients - the 3D facility view and the 2D floor plan - are
// thin: they render frames and forward user intent. Every mutation goes
// through the engine, which confirms it against facilityd before the twin
// changes, so what a client renders is always persisted state. The
// WebSocket feed carries the same Snapshot the REST snapshot endpoint
// returns; clients fetch one snapshot on connect and then ride the feed.
//
// # Authentication
//
// With security.jwt.secret configured, REST routes (bar the health check)
// require a bearer access token and the WebSocket upgrade requires a
// short-lived ticket from POST /auth/ws-ticket - browsers cannot set an
// Authorization header on a WebSocket dial. With no secret the API runs
// open, for single-operator deployments on a trusted network.
package viewapi
