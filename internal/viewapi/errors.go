package viewapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ardenmarsh/twincore/internal/twin"
	"github.com/ardenmarsh/twincore/internal/twin/gateway"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeValidation   = "validation_error"
	ErrCodeUpstream     = "upstream_error"
	ErrCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeTwinError maps an engine or gateway failure to an HTTP response.
//
// The engine's own taxonomy covers twin state (unknown key, busy key,
// no facility, bad floor); the gateway taxonomy distinguishes what the
// persistence service said from not reaching it at all. Anything outside
// the taxonomy is a bug and logged as such.
func (s *Server) writeTwinError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, twin.ErrUnknownDevice), errors.Is(err, gateway.ErrNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, twin.ErrDeviceBusy):
		writeConflict(w, err.Error())
	case errors.Is(err, twin.ErrNoFacility):
		writeConflict(w, "no facility loaded; run setup first")
	case errors.Is(err, twin.ErrInvalidFloor):
		writeBadRequest(w, err.Error())
	case errors.Is(err, gateway.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case errors.Is(err, gateway.ErrNetwork):
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "persistence service unavailable")
	default:
		s.logger.Error("unexpected twin operation error", "error", err)
		writeInternalError(w, "internal server error")
	}
}
