package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ardenmarsh/twincore/internal/catalog"
	"github.com/ardenmarsh/twincore/internal/facility"
	"github.com/ardenmarsh/twincore/internal/inventory"
	"github.com/ardenmarsh/twincore/internal/status"
)

// fullHealth is the score assigned to every new installation.
const fullHealth = 100

// InstallDeviceRequest is the request body for installing a device.
//
// Serial numbers are optional; when absent one is generated from the
// product code. Installation date, warranty expiry, health score, and
// status are always assigned server-side.
type InstallDeviceRequest struct {
	FacilityID   int64   `json:"facility_id"`
	ProductID    int64   `json:"product_id"`
	SerialNumber string  `json:"serial_number,omitempty"`
	FloorNumber  int     `json:"floor_number"`
	PositionX    float64 `json:"position_x"`
	PositionY    float64 `json:"position_y"`
	PositionZ    float64 `json:"position_z"`
	RotationY    float64 `json:"rotation_y"`
	Notes        string  `json:"notes,omitempty"`
}

// handleInstallDevice installs a new device in a facility.
//
// New installations always start at full health regardless of anything the
// client sends; health only degrades afterwards through telemetry or updates.
func (s *Server) handleInstallDevice(w http.ResponseWriter, r *http.Request) {
	var req InstallDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()

	if _, err := s.facilities.Get(ctx, req.FacilityID); err != nil {
		if errors.Is(err, facility.ErrNotFound) {
			writeNotFound(w, "Facility not found")
			return
		}
		s.logger.Error("failed to verify facility", "error", err, "facility_id", req.FacilityID)
		writeInternalError(w, "failed to install device")
		return
	}

	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeNotFound(w, "Product not found")
			return
		}
		s.logger.Error("failed to verify product", "error", err, "product_id", req.ProductID)
		writeInternalError(w, "failed to install device")
		return
	}

	serial := req.SerialNumber
	if serial == "" {
		serial = inventory.GenerateSerial(product.SerialPrefix())
	}
	if req.FloorNumber < 1 {
		req.FloorNumber = 1
	}

	now := time.Now().UTC()
	device := inventory.Device{
		FacilityID:       req.FacilityID,
		ProductID:        req.ProductID,
		SerialNumber:     serial,
		InstallationDate: now,
		WarrantyExpiry:   inventory.WarrantyExpiry(now, product.WarrantyYears),
		FloorNumber:      req.FloorNumber,
		PositionX:        req.PositionX,
		PositionY:        req.PositionY,
		PositionZ:        req.PositionZ,
		RotationY:        req.RotationY,
		HealthScore:      fullHealth,
		Status:           status.HealthTier(fullHealth).Label(),
		Notes:            req.Notes,
		IsActive:         true,
	}

	if err := s.devices.Create(ctx, &device); err != nil {
		switch {
		case errors.Is(err, inventory.ErrDuplicateSerial):
			writeConflict(w, "serial number already exists")
		case errors.Is(err, inventory.ErrInvalidDevice):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("failed to install device", "error", err, "serial", serial)
			writeInternalError(w, "failed to install device")
		}
		return
	}

	s.logger.Info("device installed",
		"device_id", device.ID,
		"serial", device.SerialNumber,
		"facility_id", device.FacilityID,
	)
	writeJSON(w, http.StatusCreated, device)
}

// handleListFacilityDevices returns the active devices of a facility.
func (s *Server) handleListFacilityDevices(w http.ResponseWriter, r *http.Request) {
	facilityID, ok := parseID(w, chi.URLParam(r, "facilityID"))
	if !ok {
		return
	}

	devices, err := s.devices.ListByFacility(r.Context(), facilityID)
	if err != nil {
		s.logger.Error("failed to list devices", "error", err, "facility_id", facilityID)
		writeInternalError(w, "failed to list devices")
		return
	}
	if devices == nil {
		devices = []inventory.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID, active or not.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	device, err := s.devices.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeNotFound(w, "Device not found")
			return
		}
		s.logger.Error("failed to get device", "error", err, "device_id", id)
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, device)
}

// handleUpdateDevice applies a partial update to a device. Fields absent
// from the body are left untouched.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var upd inventory.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	device, err := s.devices.Update(r.Context(), id, upd)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrNotFound):
			writeNotFound(w, "Device not found")
		case errors.Is(err, inventory.ErrEmptyUpdate):
			writeBadRequest(w, "update contains no fields")
		default:
			s.logger.Error("failed to update device", "error", err, "device_id", id)
			writeInternalError(w, "failed to update device")
		}
		return
	}

	writeJSON(w, http.StatusOK, device)
}

// handleRemoveDevice soft-deletes a device. The row survives so the serial
// number stays reserved and history remains queryable.
func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := s.devices.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeNotFound(w, "Device not found")
			return
		}
		s.logger.Error("failed to remove device", "error", err, "device_id", id)
		writeInternalError(w, "failed to remove device")
		return
	}

	s.logger.Info("device removed", "device_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Device removed successfully"})
}

// handleWarrantyAlerts returns warranty alerts for a facility's active
// devices whose coverage ends within the threshold window.
//
// Query parameters:
//   - days_threshold: lookahead in days (default 90)
func (s *Server) handleWarrantyAlerts(w http.ResponseWriter, r *http.Request) {
	facilityID, ok := parseID(w, chi.URLParam(r, "facilityID"))
	if !ok {
		return
	}

	threshold := status.DefaultAlertWindowDays
	if raw := r.URL.Query().Get("days_threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "invalid days_threshold")
			return
		}
		threshold = n
	}

	now := time.Now().UTC()
	cutoff := now.Add(time.Duration(threshold) * 24 * time.Hour)
	expiring, err := s.devices.ListExpiring(r.Context(), facilityID, cutoff)
	if err != nil {
		s.logger.Error("failed to list expiring devices", "error", err, "facility_id", facilityID)
		writeInternalError(w, "failed to list warranty alerts")
		return
	}

	alerts := make([]inventory.Alert, 0, len(expiring))
	for _, e := range expiring {
		alerts = append(alerts, inventory.AlertFor(e, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}
