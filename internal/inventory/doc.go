// Package inventory manages installed-device records: which catalog
// products are mounted where in a facility, with serials, warranty windows
// and health state.
//
// Records are soft-deleted. A removed device keeps its row with is_active
// false so serial history survives, and facility listings only ever return
// active rows. World position is stored exactly as placed in the twin; the
// floor_number column is derived from position_y at save time and kept only
// for reporting queries.
//
// The package provides a Repository interface with a SQLite implementation.
package inventory
