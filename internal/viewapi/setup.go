package viewapi

import (
	"encoding/json"
	"net/http"

	"github.com/ardenmarsh/twincore/internal/twin"
)

// SetupRequest is the request body for POST /setup.
type SetupRequest struct {
	Name         string  `json:"name"`
	CustomerName string  `json:"customer_name,omitempty"`
	Location     string  `json:"location,omitempty"`
	Floors       int     `json:"floors"`
	FloorHeight  float64 `json:"floor_height,omitempty"`
	TotalArea    float64 `json:"total_area,omitempty"`
	ModelFile    string  `json:"model_file,omitempty"`
	SeedDemo     bool    `json:"seed_demo,omitempty"`
}

// facilityResponse is the facility record as the view API returns it.
type facilityResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	CustomerName string  `json:"customer_name,omitempty"`
	Location     string  `json:"location,omitempty"`
	Floors       int     `json:"floors"`
	FloorHeight  float64 `json:"floor_height"`
	TotalArea    float64 `json:"total_area,omitempty"`
	ModelFile    string  `json:"model_file,omitempty"`
}

// handleSetup provisions a facility and loads it into the twin: create
// via facilityd, optionally seed the demo catalogue, then a full sync.
// The facility choice is persisted locally so restarts land back in it.
//
// Field validation is facilityd's job; a rejected draft comes back 422.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	fac, err := s.engine.SetupFacility(r.Context(), twin.FacilityDraft{
		Name:         req.Name,
		CustomerName: req.CustomerName,
		Location:     req.Location,
		Floors:       req.Floors,
		FloorHeight:  req.FloorHeight,
		TotalArea:    req.TotalArea,
		ModelFile:    req.ModelFile,
		SeedDemo:     req.SeedDemo,
	})
	if err != nil {
		s.writeTwinError(w, err)
		return
	}

	s.logger.Info("facility setup via view API", "facility_id", fac.ID, "name", fac.Name)
	writeJSON(w, http.StatusCreated, facilityResponse{
		ID:           fac.ID,
		Name:         fac.Name,
		CustomerName: fac.CustomerName,
		Location:     fac.Location,
		Floors:       fac.Floors,
		FloorHeight:  fac.FloorHeight,
		TotalArea:    fac.TotalArea,
		ModelFile:    fac.ModelFile,
	})
}
