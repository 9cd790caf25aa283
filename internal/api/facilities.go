package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ardenmarsh/twincore/internal/facility"
)

// handleCreateFacility registers a new facility record.
func (s *Server) handleCreateFacility(w http.ResponseWriter, r *http.Request) {
	var f facility.Facility
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.facilities.Create(r.Context(), &f); err != nil {
		if errors.Is(err, facility.ErrInvalidFacility) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to create facility", "error", err, "name", f.Name)
		writeInternalError(w, "failed to create facility")
		return
	}

	s.logger.Info("facility created", "facility_id", f.ID, "name", f.Name)
	writeJSON(w, http.StatusCreated, f)
}

// handleListFacilities returns all registered facilities.
func (s *Server) handleListFacilities(w http.ResponseWriter, r *http.Request) {
	facilities, err := s.facilities.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list facilities", "error", err)
		writeInternalError(w, "failed to list facilities")
		return
	}
	if facilities == nil {
		facilities = []facility.Facility{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"facilities": facilities, "count": len(facilities)})
}

// handleGetFacility returns a single facility by ID.
func (s *Server) handleGetFacility(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	f, err := s.facilities.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, facility.ErrNotFound) {
			writeNotFound(w, "Facility not found")
			return
		}
		s.logger.Error("failed to get facility", "error", err, "facility_id", id)
		writeInternalError(w, "failed to get facility")
		return
	}

	writeJSON(w, http.StatusOK, f)
}

// handleUpdateFacility rewrites an existing facility record.
func (s *Server) handleUpdateFacility(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var f facility.Facility
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	f.ID = id

	if err := s.facilities.Update(r.Context(), &f); err != nil {
		switch {
		case errors.Is(err, facility.ErrNotFound):
			writeNotFound(w, "Facility not found")
		case errors.Is(err, facility.ErrInvalidFacility):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("failed to update facility", "error", err, "facility_id", id)
			writeInternalError(w, "failed to update facility")
		}
		return
	}

	updated, err := s.facilities.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to reload facility after update", "error", err, "facility_id", id)
		writeInternalError(w, "failed to update facility")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// parseID parses a positive integer URL parameter, writing a 400 on failure.
func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeBadRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}
