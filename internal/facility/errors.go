package facility

import "errors"

var (
	// ErrNotFound is returned when a facility ID does not exist.
	ErrNotFound = errors.New("facility not found")

	// ErrInvalidFacility is returned when a facility record fails validation.
	ErrInvalidFacility = errors.New("invalid facility")
)
