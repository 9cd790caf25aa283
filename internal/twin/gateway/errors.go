package gateway

import "errors"

// Sentinel errors for persistence-service calls.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, gateway.ErrNetwork) {
//	    // facilityd unreachable — local twin state is untouched
//	}
var (
	// ErrNetwork indicates the persistence service could not be reached,
	// timed out, or answered with a server-side failure.
	ErrNetwork = errors.New("gateway: persistence service unavailable")

	// ErrValidation indicates the persistence service rejected the
	// request, or returned a payload the client could not decode.
	ErrValidation = errors.New("gateway: request rejected")

	// ErrNotFound indicates the requested record does not exist remotely.
	ErrNotFound = errors.New("gateway: record not found")
)
