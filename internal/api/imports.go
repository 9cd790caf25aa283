package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ardenmarsh/twincore/internal/facility"
	"github.com/ardenmarsh/twincore/internal/importer"
)

// handleUploadExcel installs devices from an uploaded installation plan.
//
// Request: multipart/form-data with "file" field containing the workbook.
// Response: importer.Result with per-row errors; a bad row never aborts
// the rows that succeed.
func (s *Server) handleUploadExcel(w http.ResponseWriter, r *http.Request) {
	facilityID, ok := parseID(w, chi.URLParam(r, "facilityID"))
	if !ok {
		return
	}

	fac, err := s.facilities.Get(r.Context(), facilityID)
	if err != nil {
		if errors.Is(err, facility.ErrNotFound) {
			writeNotFound(w, "Facility not found")
			return
		}
		s.logger.Error("failed to verify facility", "error", err, "facility_id", facilityID)
		writeInternalError(w, "failed to process upload")
		return
	}

	if err := r.ParseMultipartForm(importer.MaxFileSize); err != nil {
		writeBadRequest(w, "failed to parse multipart form: file may be too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "missing required 'file' field in form data")
		return
	}
	defer file.Close() //nolint:errcheck // read-only upload

	plan, err := s.parser.Parse(file, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrFileTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large",
				"file exceeds maximum size of 10MB")
		case errors.Is(err, importer.ErrInvalidFile):
			writeBadRequest(w, "invalid file format: expected .xlsx workbook")
		case errors.Is(err, importer.ErrNoRows):
			writeBadRequest(w, "no data rows found in spreadsheet")
		case errors.Is(err, importer.ErrMissingComponentColumn):
			writeBadRequest(w, "component name column not found")
		default:
			s.logger.Error("plan parse failed", "error", err, "filename", header.Filename)
			writeInternalError(w, "failed to parse installation plan")
		}
		return
	}

	result := s.installer.Install(r.Context(), fac, plan, time.Now().UTC())

	s.logger.Info("installation plan processed",
		"import_id", plan.ImportID,
		"filename", header.Filename,
		"facility_id", facilityID,
		"installed", result.InstalledCount,
		"errors", len(result.Errors),
	)

	writeJSON(w, http.StatusOK, result)
}
