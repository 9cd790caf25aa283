package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for installed-device persistence.
type Repository interface {
	// Create inserts a new device and assigns its generated ID.
	// Returns ErrDuplicateSerial if the serial number is taken.
	Create(ctx context.Context, d *Device) error

	// Get returns a device by ID, active or not.
	Get(ctx context.Context, id int64) (*Device, error)

	// ListByFacility returns the active devices of a facility in
	// installation order.
	ListByFacility(ctx context.Context, facilityID int64) ([]Device, error)

	// Update applies a partial mutation and returns the updated record.
	Update(ctx context.Context, id int64, upd Update) (*Device, error)

	// SoftDelete marks a device inactive. The row survives.
	SoftDelete(ctx context.Context, id int64) error

	// ListExpiring returns active devices of a facility whose warranty
	// ends on or before the cutoff, joined with their product names.
	ListExpiring(ctx context.Context, facilityID int64, cutoff time.Time) ([]ExpiringDevice, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed device repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, facility_id, product_id, serial_number,
	installation_date, warranty_expiry, floor_number,
	position_x, position_y, position_z, rotation_y,
	health_score, status, last_maintenance, next_maintenance,
	notes, is_active, created_at, updated_at`

// Create inserts a new installed device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	if err := d.Validate(); err != nil {
		return err
	}

	const query = `INSERT INTO installed_devices (facility_id, product_id,
		serial_number, installation_date, warranty_expiry, floor_number,
		position_x, position_y, position_z, rotation_y,
		health_score, status, last_maintenance, next_maintenance, notes, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		d.FacilityID, d.ProductID, d.SerialNumber,
		formatTime(d.InstallationDate), formatTime(d.WarrantyExpiry), d.FloorNumber,
		d.PositionX, d.PositionY, d.PositionZ, d.RotationY,
		d.HealthScore, d.Status,
		nullableTime(d.LastMaintenance), nullableTime(d.NextMaintenance),
		d.Notes, boolToInt(d.IsActive))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateSerial
		}
		return fmt.Errorf("inserting device %s: %w", d.SerialNumber, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("resolving device id: %w", err)
	}
	d.ID = id
	return nil
}

// Get returns a device by ID regardless of its active flag.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM installed_devices WHERE id = ?`
	return scanDevice(r.db.QueryRowContext(ctx, query, id))
}

// ListByFacility returns all active devices of a facility.
func (r *SQLiteRepository) ListByFacility(ctx context.Context, facilityID int64) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM installed_devices
		WHERE facility_id = ? AND is_active = 1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, facilityID)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return devices, nil
}

// Update applies the non-nil fields of upd to a device.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, upd Update) (*Device, error) {
	if upd.Empty() {
		return nil, ErrEmptyUpdate
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if upd.FloorNumber != nil {
		add("floor_number", *upd.FloorNumber)
	}
	if upd.PositionX != nil {
		add("position_x", *upd.PositionX)
	}
	if upd.PositionY != nil {
		add("position_y", *upd.PositionY)
	}
	if upd.PositionZ != nil {
		add("position_z", *upd.PositionZ)
	}
	if upd.RotationY != nil {
		add("rotation_y", *upd.RotationY)
	}
	if upd.HealthScore != nil {
		add("health_score", *upd.HealthScore)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.LastMaintenance != nil {
		add("last_maintenance", formatTime(*upd.LastMaintenance))
	}
	if upd.Notes != nil {
		add("notes", *upd.Notes)
	}
	sets = append(sets, "updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')")

	query := "UPDATE installed_devices SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating device %d: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

// SoftDelete flags a device inactive without removing the row.
func (r *SQLiteRepository) SoftDelete(ctx context.Context, id int64) error {
	const query = `UPDATE installed_devices SET is_active = 0,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now') WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivating device %d: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpiring returns active devices whose warranty ends by the cutoff.
func (r *SQLiteRepository) ListExpiring(ctx context.Context, facilityID int64, cutoff time.Time) ([]ExpiringDevice, error) {
	query := `SELECT d.id, d.facility_id, d.product_id, d.serial_number,
		d.installation_date, d.warranty_expiry, d.floor_number,
		d.position_x, d.position_y, d.position_z, d.rotation_y,
		d.health_score, d.status, d.last_maintenance, d.next_maintenance,
		d.notes, d.is_active, d.created_at, d.updated_at, p.name
		FROM installed_devices d
		JOIN products p ON p.id = d.product_id
		WHERE d.facility_id = ? AND d.is_active = 1 AND d.warranty_expiry <= ?
		ORDER BY d.warranty_expiry`
	rows, err := r.db.QueryContext(ctx, query, facilityID, formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("querying expiring devices: %w", err)
	}
	defer rows.Close()

	var expiring []ExpiringDevice
	for rows.Next() {
		var e ExpiringDevice
		var installedAt, expiresAt string
		var lastMaint, nextMaint sql.NullString
		var notes sql.NullString
		var active int
		var createdAt, updatedAt string

		err := rows.Scan(&e.ID, &e.FacilityID, &e.ProductID, &e.SerialNumber,
			&installedAt, &expiresAt, &e.FloorNumber,
			&e.PositionX, &e.PositionY, &e.PositionZ, &e.RotationY,
			&e.HealthScore, &e.Status, &lastMaint, &nextMaint,
			&notes, &active, &createdAt, &updatedAt, &e.ProductName)
		if err != nil {
			return nil, fmt.Errorf("scanning expiring device row: %w", err)
		}
		e.InstallationDate = parseTime(installedAt)
		e.WarrantyExpiry = parseTime(expiresAt)
		e.LastMaintenance = parseNullableTime(lastMaint)
		e.NextMaintenance = parseNullableTime(nextMaint)
		if notes.Valid {
			e.Notes = notes.String
		}
		e.IsActive = active != 0
		e.CreatedAt = parseTime(createdAt)
		e.UpdatedAt = parseTime(updatedAt)
		expiring = append(expiring, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expiring device rows: %w", err)
	}
	return expiring, nil
}

// scanDevice scans a single row into a Device (for QueryRow).
func scanDevice(row *sql.Row) (*Device, error) {
	var d Device
	var installedAt, expiresAt string
	var lastMaint, nextMaint sql.NullString
	var notes sql.NullString
	var active int
	var createdAt, updatedAt string

	err := row.Scan(&d.ID, &d.FacilityID, &d.ProductID, &d.SerialNumber,
		&installedAt, &expiresAt, &d.FloorNumber,
		&d.PositionX, &d.PositionY, &d.PositionZ, &d.RotationY,
		&d.HealthScore, &d.Status, &lastMaint, &nextMaint,
		&notes, &active, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}
	applyDeviceTimes(&d, installedAt, expiresAt, lastMaint, nextMaint, createdAt, updatedAt)
	if notes.Valid {
		d.Notes = notes.String
	}
	d.IsActive = active != 0
	return &d, nil
}

// scanDeviceRow scans a device from a Rows cursor.
func scanDeviceRow(rows *sql.Rows) (*Device, error) {
	var d Device
	var installedAt, expiresAt string
	var lastMaint, nextMaint sql.NullString
	var notes sql.NullString
	var active int
	var createdAt, updatedAt string

	err := rows.Scan(&d.ID, &d.FacilityID, &d.ProductID, &d.SerialNumber,
		&installedAt, &expiresAt, &d.FloorNumber,
		&d.PositionX, &d.PositionY, &d.PositionZ, &d.RotationY,
		&d.HealthScore, &d.Status, &lastMaint, &nextMaint,
		&notes, &active, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning device row: %w", err)
	}
	applyDeviceTimes(&d, installedAt, expiresAt, lastMaint, nextMaint, createdAt, updatedAt)
	if notes.Valid {
		d.Notes = notes.String
	}
	d.IsActive = active != 0
	return &d, nil
}

// applyDeviceTimes parses the timestamp columns onto a Device.
func applyDeviceTimes(d *Device, installedAt, expiresAt string, lastMaint, nextMaint sql.NullString, createdAt, updatedAt string) {
	d.InstallationDate = parseTime(installedAt)
	d.WarrantyExpiry = parseTime(expiresAt)
	d.LastMaintenance = parseNullableTime(lastMaint)
	d.NextMaintenance = parseNullableTime(nextMaint)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
}

// formatTime stores a timestamp as RFC 3339 UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// nullableTime returns a sql.NullString for an optional timestamp.
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// parseNullableTime parses an optional timestamp column.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

// parseTime parses an ISO 8601 timestamp from SQLite.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05Z", s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
