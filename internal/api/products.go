package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ardenmarsh/twincore/internal/catalog"
)

// handleCreateProduct registers a new catalog product.
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.products.Create(r.Context(), &p); err != nil {
		switch {
		case errors.Is(err, catalog.ErrDuplicateCode):
			writeConflict(w, "product code already exists")
		case errors.Is(err, catalog.ErrInvalidProduct):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("failed to create product", "error", err, "product_code", p.ProductCode)
			writeInternalError(w, "failed to create product")
		}
		return
	}

	s.logger.Info("product created", "product_id", p.ID, "product_code", p.ProductCode)
	writeJSON(w, http.StatusCreated, p)
}

// handleListProducts returns the full catalog.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list products", "error", err)
		writeInternalError(w, "failed to list products")
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products, "count": len(products)})
}

// handleGetProduct returns a single product by ID.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	p, err := s.products.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeNotFound(w, "Product not found")
			return
		}
		s.logger.Error("failed to get product", "error", err, "product_id", id)
		writeInternalError(w, "failed to get product")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// handleGetProductByCode returns a single product by its unique code.
func (s *Server) handleGetProductByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeBadRequest(w, "product code is required")
		return
	}

	p, err := s.products.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeNotFound(w, "Product not found")
			return
		}
		s.logger.Error("failed to get product by code", "error", err, "product_code", code)
		writeInternalError(w, "failed to get product")
		return
	}

	writeJSON(w, http.StatusOK, p)
}
