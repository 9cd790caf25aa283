package importer

import "time"

// Plan is a parsed installation plan.
type Plan struct {
	// ImportID is a unique identifier for this parse session.
	ImportID string `json:"import_id"`

	// SourceFile is the original filename.
	SourceFile string `json:"source_file"`

	// ParsedAt is when the file was parsed.
	ParsedAt time.Time `json:"parsed_at"`

	// Rows are the usable data rows in sheet order.
	Rows []Row `json:"rows"`

	// Errors lists rows the parser had to skip, as "Row N: reason"
	// messages keyed to the spreadsheet's own row numbers.
	Errors []string `json:"errors,omitempty"`
}

// Row is one installation request from the plan.
type Row struct {
	// Number is the 1-based spreadsheet row (header is row 1), the
	// number a planner sees when they open the file.
	Number int `json:"number"`

	ComponentName string   `json:"component_name"`
	Quantity      int      `json:"quantity"`
	FloorNumber   int      `json:"floor_number"`
	PositionX     *float64 `json:"position_x,omitempty"`
	PositionY     *float64 `json:"position_y,omitempty"`
	PositionZ     *float64 `json:"position_z,omitempty"`
	Serial        string   `json:"serial,omitempty"`
	HealthScore   int      `json:"health_score"`
	Notes         string   `json:"notes,omitempty"`
}

// Result summarises an install run.
type Result struct {
	// Success is true when the run completed, even with row errors.
	Success bool `json:"success"`

	// InstalledCount is the number of devices created.
	InstalledCount int `json:"installed_count"`

	// Errors lists rows that could not be installed.
	Errors []string `json:"errors"`

	// Devices lists the serial numbers created, in install order.
	Devices []string `json:"devices"`
}
