package facility

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository defines the interface for facility persistence operations.
type Repository interface {
	Create(ctx context.Context, f *Facility) error
	Get(ctx context.Context, id int64) (*Facility, error)
	List(ctx context.Context) ([]Facility, error)
	Update(ctx context.Context, f *Facility) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed facility repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new facility and assigns its generated ID.
func (r *SQLiteRepository) Create(ctx context.Context, f *Facility) error {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return err
	}
	const query = `INSERT INTO facilities (name, customer_name, location,
		num_floors, floor_height, total_area, model_file)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		f.Name, f.CustomerName, f.Location,
		f.NumFloors, f.FloorHeight, nullFloat(f.TotalArea), nullStr(f.ModelFile))
	if err != nil {
		return fmt.Errorf("inserting facility %s: %w", f.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("resolving facility id: %w", err)
	}
	f.ID = id
	return nil
}

// Get returns a single facility by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*Facility, error) {
	const query = `SELECT id, name, customer_name, location, num_floors,
		floor_height, total_area, model_file, created_at, updated_at
		FROM facilities WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanFacility(row)
}

// List returns all facilities ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Facility, error) {
	const query = `SELECT id, name, customer_name, location, num_floors,
		floor_height, total_area, model_file, created_at, updated_at
		FROM facilities ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying facilities: %w", err)
	}
	defer rows.Close()

	var facilities []Facility
	for rows.Next() {
		f, err := scanFacilityRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning facility row: %w", err)
		}
		facilities = append(facilities, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating facility rows: %w", err)
	}
	return facilities, nil
}

// Update rewrites an existing facility record.
func (r *SQLiteRepository) Update(ctx context.Context, f *Facility) error {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return err
	}
	const query = `UPDATE facilities SET name = ?, customer_name = ?,
		location = ?, num_floors = ?, floor_height = ?, total_area = ?,
		model_file = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		f.Name, f.CustomerName, f.Location,
		f.NumFloors, f.FloorHeight, nullFloat(f.TotalArea), nullStr(f.ModelFile),
		f.ID)
	if err != nil {
		return fmt.Errorf("updating facility %d: %w", f.ID, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanFacility scans a single row into a Facility (for QueryRow).
func scanFacility(row *sql.Row) (*Facility, error) {
	var f Facility
	var totalArea sql.NullFloat64
	var modelFile sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&f.ID, &f.Name, &f.CustomerName, &f.Location,
		&f.NumFloors, &f.FloorHeight, &totalArea, &modelFile,
		&createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning facility: %w", err)
	}
	if totalArea.Valid {
		f.TotalArea = &totalArea.Float64
	}
	if modelFile.Valid {
		f.ModelFile = &modelFile.String
	}
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

// scanFacilityRow scans a facility from a Rows cursor.
func scanFacilityRow(rows *sql.Rows) (*Facility, error) {
	var f Facility
	var totalArea sql.NullFloat64
	var modelFile sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(&f.ID, &f.Name, &f.CustomerName, &f.Location,
		&f.NumFloors, &f.FloorHeight, &totalArea, &modelFile,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning facility row: %w", err)
	}
	if totalArea.Valid {
		f.TotalArea = &totalArea.Float64
	}
	if modelFile.Valid {
		f.ModelFile = &modelFile.String
	}
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

// nullStr converts a *string to sql.NullString for nullable columns.
func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullFloat converts a *float64 to sql.NullFloat64 for nullable columns.
func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
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
