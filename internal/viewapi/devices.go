package viewapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ardenmarsh/twincore/internal/status"
	"github.com/ardenmarsh/twincore/internal/twin"
)

// CreateDeviceRequest is the request body for POST /devices.
//
// Serial is optional; facilityd generates one from the product code when
// absent. The floor number is derived from the position's Y by the
// engine, never taken from the client.
type CreateDeviceRequest struct {
	ProductID int64     `json:"product_id"`
	Serial    string    `json:"serial,omitempty"`
	Position  twin.Vec3 `json:"position"`
	RotationY float64   `json:"rotation_y"`
	Notes     string    `json:"notes,omitempty"`
}

// handleCreateDevice creates a device through the engine: persisted by
// facilityd first, mirrored into the twin on confirmation.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req CreateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	key, err := s.engine.AddDevice(r.Context(), twin.DeviceDraft{
		ProductID: req.ProductID,
		Serial:    req.Serial,
		Position:  req.Position,
		RotationY: req.RotationY,
		Notes:     req.Notes,
	})
	if err != nil {
		s.writeTwinError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// handleMoveDevice persists a new position and rotation, then applies it
// to the twin. A second move while one is saving gets 409.
func (s *Server) handleMoveDevice(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req struct {
		Position  twin.Vec3 `json:"position"`
		RotationY float64   `json:"rotation_y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.engine.MoveDevice(r.Context(), key, req.Position, req.RotationY); err != nil {
		s.writeTwinError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"key":        key,
		"position":   req.Position,
		"rotation_y": req.RotationY,
	})
}

// handleSetHealth persists a new health score, then applies it to the
// twin. The response carries the clamped score and the tier both views
// will tint with.
func (s *Server) handleSetHealth(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req struct {
		HealthScore int `json:"health_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.engine.SetHealth(r.Context(), key, req.HealthScore); err != nil {
		s.writeTwinError(w, err)
		return
	}

	score := status.ClampScore(req.HealthScore)
	tier := status.HealthTier(score)
	writeJSON(w, http.StatusOK, map[string]any{
		"key":          key,
		"health_score": score,
		"health_tier":  tier,
		"health_color": tier.Color(),
	})
}

// handleDeleteDevice removes a device remotely and from the twin in one
// operation: selection dropped, instance disposed, view-model gone.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := s.engine.DeleteDevice(r.Context(), key); err != nil {
		s.writeTwinError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Device removed successfully"})
}

// importResponse is the response body for POST /devices/import.
type importResponse struct {
	InstalledCount int      `json:"installed_count"`
	Errors         []string `json:"errors"`
	Serials        []string `json:"serials"`
}

// handleImportDevices streams an uploaded installation plan through the
// engine to facilityd, then reloads the device list so every imported
// device appears in the twin.
//
// Request: multipart/form-data with "file" field containing the workbook.
// The import outcome is returned even when the follow-up reload fails;
// the twin catches up on the next sync.
func (s *Server) handleImportDevices(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBodySize); err != nil {
		writeBadRequest(w, "failed to parse multipart form: file may be too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "missing required 'file' field in form data")
		return
	}
	defer file.Close() //nolint:errcheck // read-only upload

	outcome, err := s.engine.ImportDevices(r.Context(), header.Filename, file)
	if outcome == nil {
		s.writeTwinError(w, err)
		return
	}
	if err != nil {
		s.logger.Warn("device reload after import failed", "error", err)
	}

	resp := importResponse{
		InstalledCount: outcome.InstalledCount,
		Errors:         outcome.Errors,
		Serials:        outcome.Serials,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if resp.Serials == nil {
		resp.Serials = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// warrantyAlertResponse is one expiring-warranty entry.
type warrantyAlertResponse struct {
	DeviceID      int64     `json:"device_id"`
	Serial        string    `json:"serial"`
	ProductName   string    `json:"product_name"`
	Expiry        time.Time `json:"expiry"`
	DaysRemaining int       `json:"days_remaining"`
	Status        string    `json:"status"`
}

// handleWarrantyAlerts returns devices whose warranty ends within the
// lookahead window.
//
// Query parameters:
//   - days: lookahead in days (default 90)
func (s *Server) handleWarrantyAlerts(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "invalid days")
			return
		}
		days = n
	}

	alerts, err := s.engine.WarrantyAlerts(r.Context(), days)
	if err != nil {
		s.writeTwinError(w, err)
		return
	}

	resp := make([]warrantyAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		resp = append(resp, warrantyAlertResponse{
			DeviceID:      a.DeviceID,
			Serial:        a.Serial,
			ProductName:   a.ProductName,
			Expiry:        a.Expiry,
			DaysRemaining: a.DaysRemaining,
			Status:        a.Status,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": resp, "count": len(resp)})
}
