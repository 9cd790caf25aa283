package inventory

import "errors"

var (
	// ErrNotFound is returned when a device ID does not exist.
	ErrNotFound = errors.New("device not found")

	// ErrDuplicateSerial is returned when a serial number is already
	// registered to another device.
	ErrDuplicateSerial = errors.New("serial number already exists")

	// ErrInvalidDevice is returned when a device record fails validation.
	ErrInvalidDevice = errors.New("invalid device")

	// ErrEmptyUpdate is returned when a partial update names no fields.
	ErrEmptyUpdate = errors.New("update contains no fields")
)
