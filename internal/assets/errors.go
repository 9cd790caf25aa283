package assets

import "errors"

// Sentinel errors for model loading.
var (
	// ErrInvalidModel indicates the file is not a parseable glTF or GLB
	// document.
	ErrInvalidModel = errors.New("invalid model file")

	// ErrUnsupportedVersion indicates a GLB container version other than 2.
	ErrUnsupportedVersion = errors.New("unsupported glTF version")

	// ErrModelTooLarge indicates the file exceeds the size limit.
	ErrModelTooLarge = errors.New("model exceeds maximum size limit")
)
