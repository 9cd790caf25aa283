package catalog

import "errors"

var (
	// ErrNotFound is returned when a product ID or code does not exist.
	ErrNotFound = errors.New("product not found")

	// ErrDuplicateCode is returned when creating a product whose code is
	// already registered.
	ErrDuplicateCode = errors.New("product code already exists")

	// ErrInvalidProduct is returned when a product fails validation.
	ErrInvalidProduct = errors.New("invalid product")
)
