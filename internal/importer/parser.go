package importer

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Parser configuration constants.
const (
	// MaxFileSize is the maximum allowed workbook size (10MB).
	MaxFileSize = 10 * 1024 * 1024

	// importIDBytes is the number of random bytes for import IDs.
	importIDBytes = 8

	defaultQuantity    = 1
	defaultFloor       = 1
	defaultHealthScore = 100
)

// Canonical column keys after header normalization.
const (
	colComponent = "componentname"
	colQuantity  = "quantity"
	colFloor     = "floornumber"
	colPosX      = "positionx"
	colPosY      = "positiony"
	colPosZ      = "positionz"
	colSerial    = "serial"
	colHealth    = "healthscore"
	colNotes     = "notes"
)

// Parser reads installation plans from workbook uploads.
type Parser struct{}

// NewParser creates a plan parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the first sheet of a workbook. Rows the parser cannot make
// sense of are reported in Plan.Errors and skipped; the remaining rows are
// returned in sheet order.
func (p *Parser) Parse(r io.Reader, filename string) (*Plan, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer book.Close() //nolint:errcheck // read-only workbook

	sheet := book.GetSheetName(0)
	if sheet == "" {
		return nil, ErrInvalidFile
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	columns := mapColumns(rows[0])
	if _, ok := columns[colComponent]; !ok {
		return nil, ErrMissingComponentColumn
	}

	plan := &Plan{
		ImportID:   generateImportID(),
		SourceFile: filepath.Base(filename),
		ParsedAt:   time.Now().UTC(),
	}

	for i, raw := range rows[1:] {
		number := i + 2 // 1-based sheet row, header is row 1
		cell := func(key string) string {
			idx, ok := columns[key]
			if !ok || idx >= len(raw) {
				return ""
			}
			return strings.TrimSpace(raw[idx])
		}

		if isBlankRow(raw) {
			continue
		}

		name := cell(colComponent)
		if name == "" {
			plan.Errors = append(plan.Errors, fmt.Sprintf("Row %d: Missing component name", number))
			continue
		}

		row := Row{Number: number, ComponentName: name}

		row.Quantity, err = parseIntCell(cell(colQuantity), defaultQuantity)
		if err != nil {
			plan.Errors = append(plan.Errors, fmt.Sprintf("Row %d: invalid quantity %q", number, cell(colQuantity)))
			continue
		}
		if row.Quantity < 0 {
			row.Quantity = 0
		}

		row.FloorNumber, err = parseIntCell(cell(colFloor), defaultFloor)
		if err != nil {
			plan.Errors = append(plan.Errors, fmt.Sprintf("Row %d: invalid floor number %q", number, cell(colFloor)))
			continue
		}
		if row.FloorNumber < 1 {
			row.FloorNumber = 1
		}

		row.HealthScore, err = parseIntCell(cell(colHealth), defaultHealthScore)
		if err != nil {
			plan.Errors = append(plan.Errors, fmt.Sprintf("Row %d: invalid health score %q", number, cell(colHealth)))
			continue
		}

		var bad bool
		for _, axis := range []struct {
			key  string
			dest **float64
		}{
			{colPosX, &row.PositionX},
			{colPosY, &row.PositionY},
			{colPosZ, &row.PositionZ},
		} {
			*axis.dest, err = parseFloatCell(cell(axis.key))
			if err != nil {
				plan.Errors = append(plan.Errors, fmt.Sprintf("Row %d: invalid coordinate %q", number, cell(axis.key)))
				bad = true
				break
			}
		}
		if bad {
			continue
		}

		row.Serial = cell(colSerial)
		row.Notes = cell(colNotes)

		plan.Rows = append(plan.Rows, row)
	}

	return plan, nil
}

// mapColumns resolves header cells to canonical column keys.
func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for idx, cell := range header {
		key := normalizeHeader(cell)
		if key == "" {
			continue
		}
		if _, dup := columns[key]; !dup {
			columns[key] = idx
		}
	}
	return columns
}

// normalizeHeader folds a header cell to its canonical key: lower-cased
// with spaces, underscores and hyphens removed.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isBlankRow reports whether every cell in the row is empty.
func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseIntCell parses an integer cell, tolerating the "3.0" formatting
// spreadsheet tools emit for numeric cells.
func parseIntCell(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

// parseFloatCell parses an optional float cell; empty means absent.
func parseFloatCell(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// generateImportID returns a random hex identifier for a parse session.
func generateImportID() string {
	b := make([]byte, importIDBytes)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("import-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
