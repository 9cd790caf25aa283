package viewapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires a bearer token - the ticket inherits the
			// caller's identity
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Twin view operations
			r.Route("/twin", func(r chi.Router) {
				r.Get("/snapshot", s.handleSnapshot)
				r.Post("/select", s.handleSelect)
				r.Post("/deselect", s.handleDeselect)
				r.Post("/floor", s.handleFloor)
				r.Post("/viewport", s.handleViewport)
				r.Post("/hit", s.handleHit)
			})

			// Device mutations, all confirmed by facilityd before the twin
			// changes
			r.Route("/devices", func(r chi.Router) {
				r.Post("/", s.handleCreateDevice)
				r.Post("/import", s.handleImportDevices)
				r.Get("/warranty-alerts", s.handleWarrantyAlerts)

				r.Route("/{key}", func(r chi.Router) {
					r.Put("/position", s.handleMoveDevice)
					r.Put("/health", s.handleSetHealth)
					r.Delete("/", s.handleDeleteDevice)
				})
			})

			// First-run facility provisioning
			r.Post("/setup", s.handleSetup)
		})

		// WebSocket (auth via ticket, validated in handler)
		wsPath := s.wsCfg.Path
		if wsPath == "" {
			wsPath = "/ws"
		}
		r.Get(wsPath, s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
		"clients": 0,
	}
	if s.hub != nil {
		resp["clients"] = s.hub.ClientCount()
	}
	if fac, ok := s.engine.Facility(); ok {
		resp["facility_id"] = fac.ID
	}
	writeJSON(w, http.StatusOK, resp)
}
