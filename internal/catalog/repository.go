package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for product catalog persistence.
type Repository interface {
	// Create inserts a new product and assigns its generated ID.
	// Returns ErrDuplicateCode if the product code is already registered.
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id int64) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	// FindByName returns products whose name contains the fragment,
	// case-insensitively. Used by the spreadsheet importer's fuzzy match.
	FindByName(ctx context.Context, fragment string) ([]Product, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed catalog repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const productColumns = `id, product_code, name, type, manufacturer,
	model_number, category, power_rating, voltage, dimensions, weight,
	model_file, mesh_identifier, warranty_years, price, description, created_at`

// Create inserts a new product into the catalog.
func (r *SQLiteRepository) Create(ctx context.Context, p *Product) error {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}

	dims := "{}"
	if p.Dimensions != nil {
		if b, err := json.Marshal(p.Dimensions); err == nil {
			dims = string(b)
		}
	}

	const query = `INSERT INTO products (product_code, name, type, manufacturer,
		model_number, category, power_rating, voltage, dimensions, weight,
		model_file, mesh_identifier, warranty_years, price, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		p.ProductCode, p.Name, p.Type, p.Manufacturer,
		p.ModelNumber, p.Category, nullFloat(p.PowerRating), p.Voltage,
		dims, nullFloat(p.Weight), p.ModelFile, p.MeshIdentifier,
		p.WarrantyYears, nullFloat(p.Price), p.Description)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("inserting product %s: %w", p.ProductCode, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("resolving product id: %w", err)
	}
	p.ID = id
	return nil
}

// Get returns a single product by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return scanProduct(r.db.QueryRowContext(ctx, query, id))
}

// GetByCode returns a single product by its unique code.
func (r *SQLiteRepository) GetByCode(ctx context.Context, code string) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE product_code = ?`
	return scanProduct(r.db.QueryRowContext(ctx, query, code))
}

// List returns all products ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY name`
	return r.queryProducts(ctx, query)
}

// FindByName returns products matching a case-insensitive name fragment.
func (r *SQLiteRepository) FindByName(ctx context.Context, fragment string) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE name LIKE ? COLLATE NOCASE ORDER BY name`
	pattern := "%" + strings.TrimSpace(fragment) + "%"
	return r.queryProducts(ctx, query, pattern)
}

// queryProducts executes a query and returns a slice of Product.
func (r *SQLiteRepository) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}
	return products, nil
}

// scanProduct scans a single row into a Product (for QueryRow).
func scanProduct(row *sql.Row) (*Product, error) {
	var p Product
	var powerRating, weight, price sql.NullFloat64
	var modelNumber, category, voltage, modelFile, meshID, description sql.NullString
	var dimsJSON string
	var createdAt string

	err := row.Scan(&p.ID, &p.ProductCode, &p.Name, &p.Type, &p.Manufacturer,
		&modelNumber, &category, &powerRating, &voltage, &dimsJSON, &weight,
		&modelFile, &meshID, &p.WarrantyYears, &price, &description, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning product: %w", err)
	}
	applyProductNullables(&p, modelNumber, category, voltage, modelFile, meshID, description,
		powerRating, weight, price)
	p.Dimensions = parseDimensions(dimsJSON)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// scanProductRow scans a product from a Rows cursor.
func scanProductRow(rows *sql.Rows) (*Product, error) {
	var p Product
	var powerRating, weight, price sql.NullFloat64
	var modelNumber, category, voltage, modelFile, meshID, description sql.NullString
	var dimsJSON string
	var createdAt string

	err := rows.Scan(&p.ID, &p.ProductCode, &p.Name, &p.Type, &p.Manufacturer,
		&modelNumber, &category, &powerRating, &voltage, &dimsJSON, &weight,
		&modelFile, &meshID, &p.WarrantyYears, &price, &description, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scanning product row: %w", err)
	}
	applyProductNullables(&p, modelNumber, category, voltage, modelFile, meshID, description,
		powerRating, weight, price)
	p.Dimensions = parseDimensions(dimsJSON)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// applyProductNullables copies nullable columns onto a Product.
func applyProductNullables(p *Product,
	modelNumber, category, voltage, modelFile, meshID, description sql.NullString,
	powerRating, weight, price sql.NullFloat64,
) {
	if modelNumber.Valid {
		p.ModelNumber = modelNumber.String
	}
	if category.Valid {
		p.Category = category.String
	}
	if voltage.Valid {
		p.Voltage = voltage.String
	}
	if modelFile.Valid {
		p.ModelFile = modelFile.String
	}
	if meshID.Valid {
		p.MeshIdentifier = meshID.String
	}
	if description.Valid {
		p.Description = description.String
	}
	if powerRating.Valid {
		p.PowerRating = &powerRating.Float64
	}
	if weight.Valid {
		p.Weight = &weight.Float64
	}
	if price.Valid {
		p.Price = &price.Float64
	}
}

// parseDimensions deserializes the dimensions JSON column.
func parseDimensions(s string) map[string]float64 {
	if s == "" || s == "{}" {
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
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

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
