package importer

import "errors"

// Sentinel errors for installation-plan imports.
var (
	// ErrInvalidFile indicates the upload is not a readable workbook.
	ErrInvalidFile = errors.New("invalid spreadsheet file")

	// ErrFileTooLarge indicates the upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")

	// ErrNoRows indicates the workbook has no data rows.
	ErrNoRows = errors.New("no data rows found in spreadsheet")

	// ErrMissingComponentColumn indicates no component-name column exists.
	ErrMissingComponentColumn = errors.New("component name column not found")
)
