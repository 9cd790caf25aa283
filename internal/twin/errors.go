package twin

import "errors"

// Domain errors for the twin package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, twin.ErrDeviceBusy) {
//	    // a mutation is already in flight for this key
//	}
var (
	// ErrDeviceBusy is returned when a mutating operation targets a key
	// that already has a mutation in flight. The caller should retry
	// once the earlier operation settles.
	ErrDeviceBusy = errors.New("twin: device busy")

	// ErrUnknownDevice is returned when a mutating operation targets a
	// key the registry does not hold.
	ErrUnknownDevice = errors.New("twin: unknown device")

	// ErrNoFacility is returned when an operation needs a loaded
	// facility and none has been loaded yet.
	ErrNoFacility = errors.New("twin: no facility loaded")

	// ErrInvalidFloor is returned when a floor selection is outside the
	// loaded facility's range.
	ErrInvalidFloor = errors.New("twin: invalid floor")

	// ErrNoTemplate signals that no template matches a view-model's
	// type tag. Instance construction reports it; Spawn translates it
	// into a pending queue entry rather than a failure.
	ErrNoTemplate = errors.New("twin: no template for type tag")
)
