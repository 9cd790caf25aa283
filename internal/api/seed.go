package api

import (
	"net/http"

	"github.com/ardenmarsh/twincore/internal/catalog"
)

// handleSeedData inserts the demo product catalog. Products already
// registered are skipped, so the endpoint is safe to call repeatedly.
func (s *Server) handleSeedData(w http.ResponseWriter, r *http.Request) {
	created, err := catalog.Seed(r.Context(), s.products)
	if err != nil {
		s.logger.Error("failed to seed demo catalog", "error", err)
		writeInternalError(w, "failed to seed demo catalog")
		return
	}

	if created == nil {
		created = []string{}
	}
	s.logger.Info("demo catalog seeded", "created", len(created))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Demo catalog seeded",
		"created": created,
		"count":   len(created),
	})
}
