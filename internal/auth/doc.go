// Package auth provides token signing and verification for the view API.
//
// Two token kinds share one HS256 secret:
//   - Access tokens: bearer tokens for REST calls, minted out-of-band
//     (twincore -mint-token) and validated by signature only.
//   - Tickets: ~30-second tokens for the WebSocket handshake. Browsers
//     cannot set an Authorization header when opening a WebSocket, so a
//     client exchanges its bearer token for a ticket and passes that in
//     the query string instead.
//
// A ticket inherits the session id of the bearer token that requested it,
// keeping WebSocket connections attributable. Parsing is kind-checked:
// ParseAccessToken rejects tickets and ParseTicket rejects bearer tokens.
//
// When no secret is configured the view API runs open and this package
// is not consulted.
package auth
