package viewapi

import (
	"net/http"

	"github.com/ardenmarsh/twincore/internal/auth"
)

// handleWSTicket issues a short-lived WebSocket ticket. The client
// exchanges its bearer token for the ticket and dials the WebSocket with
// it as a query parameter, keeping the long-lived token out of URLs and
// access logs.
//
// The ticket inherits the caller's subject and session from the bearer
// claims. With the API running open an empty ticket is returned and the
// WebSocket accepts connections without one.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	secret := s.secCfg.JWT.Secret
	if secret == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"ticket":     "",
			"expires_in": 0,
		})
		return
	}

	claims := claimsFrom(r.Context())
	if claims == nil {
		// authMiddleware guarantees claims when a secret is set.
		writeUnauthorized(w, "bearer token is required")
		return
	}

	ttl := s.secCfg.JWT.TicketTTL
	if ttl <= 0 {
		ttl = auth.DefaultTicketTTLSeconds
	}

	ticket, err := auth.GenerateTicket(claims.Subject, claims.SessionID, secret, ttl)
	if err != nil {
		s.logger.Error("ticket generation failed", "error", err)
		writeInternalError(w, "failed to generate ticket")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": ttl,
	})
}
