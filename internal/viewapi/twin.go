package viewapi

import (
	"encoding/json"
	"net/http"

	"github.com/ardenmarsh/twincore/internal/twin"
)

// defaultHitRadiusPx is the pick radius when the client does not send one.
// Sized for touch: a fingertip on the floor plan, not a mouse pixel.
const defaultHitRadiusPx = 16.0

// handleSnapshot returns a full frame built on demand. Display clients
// fetch one on connect, then follow the WebSocket feed.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// handleSelect highlights a device in both views and frames the camera
// on it. Selecting an unknown key is a no-op, not an error: the plan
// view fires selects straight from pointer events and a device can
// vanish between the click and the request.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Key == "" {
		writeBadRequest(w, "key is required")
		return
	}

	changed := s.engine.Select(req.Key)
	writeJSON(w, http.StatusOK, map[string]any{
		"key":     req.Key,
		"changed": changed,
	})
}

// handleDeselect clears the selection. With reset_camera the views
// return to home framing; without it they stay put.
func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResetCamera bool `json:"reset_camera"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.engine.Deselect(req.ResetCamera)
	writeJSON(w, http.StatusOK, map[string]string{"message": "selection cleared"})
}

// handleFloor narrows both views to one floor, or widens them back to
// the whole facility with the literal "all".
func (s *Server) handleFloor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Floor json.RawMessage `json:"floor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Floor) == 0 {
		writeBadRequest(w, `floor must be a number or "all"`)
		return
	}

	var all string
	if err := json.Unmarshal(req.Floor, &all); err == nil {
		if all != "all" {
			writeBadRequest(w, `floor must be a number or "all"`)
			return
		}
		s.engine.ShowAllFloors()
		writeJSON(w, http.StatusOK, map[string]any{"floor": "all"})
		return
	}

	var n int
	if err := json.Unmarshal(req.Floor, &n); err != nil {
		writeBadRequest(w, `floor must be a number or "all"`)
		return
	}
	if err := s.engine.SetActiveFloor(n); err != nil {
		s.writeTwinError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"floor": n})
}

// handleViewport replaces the floor plan's pan and zoom. The engine
// clamps the zoom to its configured bounds; the next frame carries the
// applied state.
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PanX  float64 `json:"pan_x"`
		PanY  float64 `json:"pan_y"`
		Scale float64 `json:"scale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.engine.SetViewport(req.PanX, req.PanY, req.Scale)
	writeJSON(w, http.StatusOK, map[string]string{"message": "viewport applied"})
}

// hitResponse is the response body for POST /twin/hit.
type hitResponse struct {
	Hit bool   `json:"hit"`
	Key string `json:"key,omitempty"`
}

// handleHit picks the device nearest a cursor position on the floor
// plan, honouring the active floor filter.
func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X      float64  `json:"x"`
		Y      float64  `json:"y"`
		Radius *float64 `json:"radius"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	radius := defaultHitRadiusPx
	if req.Radius != nil && *req.Radius > 0 {
		radius = *req.Radius
	}

	key, hit := s.engine.HitTest(twin.Point2{X: req.X, Y: req.Y}, radius)
	writeJSON(w, http.StatusOK, hitResponse{Hit: hit, Key: key})
}
