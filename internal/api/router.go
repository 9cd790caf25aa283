package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Route shapes mirror the paths the twin engine's gateway calls; static
// segments (facility, warranty-alerts, upload-excel) take precedence over
// the {id} parameter in chi's trie.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check
	r.Get("/health", s.handleHealth)

	// Facility endpoints
	r.Route("/facility", func(r chi.Router) {
		r.Post("/", s.handleCreateFacility)
		r.Get("/", s.handleListFacilities)
		r.Get("/{id}", s.handleGetFacility)
		r.Put("/{id}", s.handleUpdateFacility)
	})

	// Installed-device endpoints
	r.Route("/devices", func(r chi.Router) {
		r.Post("/", s.handleInstallDevice)
		r.Get("/facility/{facilityID}", s.handleListFacilityDevices)
		r.Get("/warranty-alerts/{facilityID}", s.handleWarrantyAlerts)
		r.Post("/upload-excel/{facilityID}", s.handleUploadExcel)
		r.Get("/{id}", s.handleGetDevice)
		r.Put("/{id}", s.handleUpdateDevice)
		r.Delete("/{id}", s.handleRemoveDevice)
	})

	// Product catalog endpoints
	r.Route("/products", func(r chi.Router) {
		r.Post("/", s.handleCreateProduct)
		r.Get("/", s.handleListProducts)
		r.Get("/code/{code}", s.handleGetProductByCode)
		r.Get("/{id}", s.handleGetProduct)
	})

	// Demo data seeding
	r.Route("/seed-data", func(r chi.Router) {
		r.Post("/", s.handleSeedData)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			dbStatus = "unreachable"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"database": dbStatus,
	})
}
