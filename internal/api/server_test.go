package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xuri/excelize/v2"

	"github.com/ardenmarsh/twincore/internal/catalog"
	"github.com/ardenmarsh/twincore/internal/facility"
	"github.com/ardenmarsh/twincore/internal/infrastructure/config"
	"github.com/ardenmarsh/twincore/internal/infrastructure/logging"
	"github.com/ardenmarsh/twincore/internal/inventory"
)

// testServer creates a Server over repositories backed by in-memory SQLite.
func testServer(t *testing.T) *Server {
	t.Helper()

	db := setupTestDB(t)
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test", "dev")

	srv, err := New(Deps{
		Config: config.FacilityAPIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Logger:     log,
		Facilities: facility.NewSQLiteRepository(db),
		Products:   catalog.NewSQLiteRepository(db),
		Devices:    inventory.NewSQLiteRepository(db),
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

// setupTestDB creates an in-memory SQLite database with the facilityd schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE facilities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			num_floors INTEGER NOT NULL DEFAULT 1,
			floor_height REAL NOT NULL DEFAULT 6.0,
			total_area REAL,
			model_file TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			manufacturer TEXT NOT NULL DEFAULT 'Schneider Electric',
			model_number TEXT,
			category TEXT,
			power_rating REAL,
			voltage TEXT,
			dimensions TEXT NOT NULL DEFAULT '{}',
			weight REAL,
			model_file TEXT,
			mesh_identifier TEXT,
			warranty_years INTEGER NOT NULL DEFAULT 3,
			price REAL,
			description TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE installed_devices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			facility_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			serial_number TEXT NOT NULL UNIQUE,
			installation_date TEXT NOT NULL,
			warranty_expiry TEXT NOT NULL,
			floor_number INTEGER NOT NULL DEFAULT 1,
			position_x REAL NOT NULL DEFAULT 0,
			position_y REAL NOT NULL DEFAULT 0,
			position_z REAL NOT NULL DEFAULT 0,
			rotation_y REAL NOT NULL DEFAULT 0,
			health_score INTEGER NOT NULL DEFAULT 100,
			status TEXT NOT NULL DEFAULT 'Healthy',
			last_maintenance TEXT,
			next_maintenance TEXT,
			notes TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (facility_id) REFERENCES facilities(id),
			FOREIGN KEY (product_id) REFERENCES products(id)
		) STRICT;
	`

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// seedFacility inserts a facility through the API and returns its record.
func seedFacility(t *testing.T, router http.Handler) facility.Facility {
	t.Helper()

	body := `{"name": "Birmingham DC", "customer_name": "Acme Logistics", "num_floors": 3, "floor_height": 6.0}`
	req := httptest.NewRequest(http.MethodPost, "/facility/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("seed facility status = %d; body: %s", w.Code, w.Body.String())
	}
	var f facility.Facility
	if err := json.Unmarshal(w.Body.Bytes(), &f); err != nil {
		t.Fatalf("unmarshal facility: %v", err)
	}
	return f
}

// seedCatalog runs the demo seed and returns the first product.
func seedCatalog(t *testing.T, router http.Handler) catalog.Product {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/seed-data/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("seed-data status = %d; body: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/products/code/GALAXY_VL_500", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get seeded product status = %d; body: %s", w.Code, w.Body.String())
	}
	var p catalog.Product
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal product: %v", err)
	}
	return p
}

// ─── Health & Middleware ───────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestHealth_ContentType(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
}

func TestRequestID_Generated(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestNotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Facility Endpoints ────────────────────────────────────────────

func TestCreateAndGetFacility(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	created := seedFacility(t, router)
	if created.ID == 0 {
		t.Fatal("expected facility ID to be assigned")
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/facility/%d", created.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var got facility.Facility
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "Birmingham DC" {
		t.Errorf("name = %q, want %q", got.Name, "Birmingham DC")
	}
	if got.NumFloors != 3 {
		t.Errorf("num_floors = %d, want 3", got.NumFloors)
	}
}

func TestCreateFacility_InvalidBody(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/facility/", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCreateFacility_MissingName(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/facility/", strings.NewReader(`{"num_floors": 2}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestGetFacility_NotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/facility/999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var apiErr Error
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if apiErr.Message != "Facility not found" {
		t.Errorf("message = %q, want %q", apiErr.Message, "Facility not found")
	}
}

func TestUpdateFacility(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	created := seedFacility(t, router)

	body := `{"name": "Birmingham DC North", "customer_name": "Acme Logistics", "num_floors": 4, "floor_height": 5.5}`
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/facility/%d", created.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d; body: %s", w.Code, w.Body.String())
	}

	var updated facility.Facility
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.Name != "Birmingham DC North" || updated.NumFloors != 4 {
		t.Errorf("updated facility = %+v", updated)
	}
	if updated.FloorHeight != 5.5 {
		t.Errorf("floor_height = %v, want 5.5", updated.FloorHeight)
	}
}

func TestListFacilities(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	seedFacility(t, router)

	req := httptest.NewRequest(http.MethodGet, "/facility/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if int(resp["count"].(float64)) != 1 {
		t.Errorf("count = %v, want 1", resp["count"])
	}
}

// ─── Product Endpoints ─────────────────────────────────────────────

func TestCreateProduct_DuplicateCode(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	body := `{"product_code": "TEST_UPS", "name": "Test UPS", "type": "UPS"}`
	req := httptest.NewRequest(http.MethodPost, "/products/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/products/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestCreateProduct_DefaultsApplied(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	body := `{"product_code": "BARE", "name": "Bare Product", "type": "Meter"}`
	req := httptest.NewRequest(http.MethodPost, "/products/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body: %s", w.Code, w.Body.String())
	}

	var p catalog.Product
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Manufacturer != catalog.DefaultManufacturer {
		t.Errorf("manufacturer = %q, want default", p.Manufacturer)
	}
	if p.WarrantyYears != catalog.DefaultWarrantyYears {
		t.Errorf("warranty_years = %d, want default", p.WarrantyYears)
	}
}

func TestSeedData_Idempotent(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/seed-data/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first seed status = %d; body: %s", w.Code, w.Body.String())
	}

	var first map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if int(first["count"].(float64)) != 6 {
		t.Errorf("first seed count = %v, want 6", first["count"])
	}

	// Second run creates nothing
	req = httptest.NewRequest(http.MethodPost, "/seed-data/", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("second seed status = %d", w.Code)
	}

	var second map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if int(second["count"].(float64)) != 0 {
		t.Errorf("second seed count = %v, want 0", second["count"])
	}

	// Catalog holds exactly the six demo products
	req = httptest.NewRequest(http.MethodGet, "/products/", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var list map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if int(list["count"].(float64)) != 6 {
		t.Errorf("catalog count = %v, want 6", list["count"])
	}
}

func TestGetProductByCode_NotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/products/code/NOPE", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Device Endpoints ──────────────────────────────────────────────

func TestInstallDevice(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)
	product := seedCatalog(t, router)

	body := fmt.Sprintf(`{"facility_id": %d, "product_id": %d, "floor_number": 2, "position_x": 4.5, "position_z": -2.0}`,
		fac.ID, product.ID)
	req := httptest.NewRequest(http.MethodPost, "/devices/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("install status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var dev inventory.Device
	if err := json.Unmarshal(w.Body.Bytes(), &dev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if dev.ID == 0 {
		t.Error("expected device ID to be assigned")
	}
	if !strings.HasPrefix(dev.SerialNumber, "SN-GAL-") {
		t.Errorf("serial = %q, want SN-GAL- prefix", dev.SerialNumber)
	}
	if dev.HealthScore != 100 || dev.Status != "Healthy" {
		t.Errorf("new install health = %d/%q, want 100/Healthy", dev.HealthScore, dev.Status)
	}
	if !dev.IsActive {
		t.Error("new install should be active")
	}

	wantExpiry := dev.InstallationDate.Add(time.Duration(product.WarrantyYears) * 365 * 24 * time.Hour)
	if !dev.WarrantyExpiry.Equal(wantExpiry) {
		t.Errorf("warranty_expiry = %v, want %v", dev.WarrantyExpiry, wantExpiry)
	}
}

func TestInstallDevice_KeepsProvidedSerial(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)
	product := seedCatalog(t, router)

	body := fmt.Sprintf(`{"facility_id": %d, "product_id": %d, "serial_number": "CUSTOM-001"}`, fac.ID, product.ID)
	req := httptest.NewRequest(http.MethodPost, "/devices/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("install status = %d; body: %s", w.Code, w.Body.String())
	}

	var dev inventory.Device
	if err := json.Unmarshal(w.Body.Bytes(), &dev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if dev.SerialNumber != "CUSTOM-001" {
		t.Errorf("serial = %q, want CUSTOM-001", dev.SerialNumber)
	}

	// Same serial again conflicts
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/devices/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate serial status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestInstallDevice_FacilityNotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	product := seedCatalog(t, router)

	body := fmt.Sprintf(`{"facility_id": 404, "product_id": %d}`, product.ID)
	req := httptest.NewRequest(http.MethodPost, "/devices/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var apiErr Error
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if apiErr.Message != "Facility not found" {
		t.Errorf("message = %q, want %q", apiErr.Message, "Facility not found")
	}
}

func TestInstallDevice_ProductNotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)

	body := fmt.Sprintf(`{"facility_id": %d, "product_id": 404}`, fac.ID)
	req := httptest.NewRequest(http.MethodPost, "/devices/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var apiErr Error
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if apiErr.Message != "Product not found" {
		t.Errorf("message = %q, want %q", apiErr.Message, "Product not found")
	}
}

func TestListFacilityDevices(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)
	product := seedCatalog(t, router)

	for i := 0; i < 2; i++ {
		body := fmt.Sprintf(`{"facility_id": %d, "product_id": %d}`, fac.ID, product.ID)
		req := httptest.NewRequest(http.MethodPost, "/devices/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("install %d status = %d; body: %s", i, w.Code, w.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/devices/facility/%d", fac.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if int(resp["count"].(float64)) != 2 {
		t.Errorf("count = %v, want 2", resp["count"])
	}
}

func TestUpdateDevice_Partial(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)
	product := seedCatalog(t, router)
	dev := installTestDevice(t, router, fac.ID, product.ID)

	body := `{"position_x": 7.25, "health_score": 45, "status": "Critical"}`
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/devices/%d", dev.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d; body: %s", w.Code, w.Body.String())
	}

	var updated inventory.Device
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.PositionX != 7.25 {
		t.Errorf("position_x = %v, want 7.25", updated.PositionX)
	}
	if updated.HealthScore != 45 || updated.Status != "Critical" {
		t.Errorf("health = %d/%q, want 45/Critical", updated.HealthScore, updated.Status)
	}
	// Untouched fields survive
	if updated.SerialNumber != dev.SerialNumber {
		t.Errorf("serial changed: %q -> %q", dev.SerialNumber, updated.SerialNumber)
	}
	if updated.PositionZ != dev.PositionZ {
		t.Errorf("position_z changed: %v -> %v", dev.PositionZ, updated.PositionZ)
	}
}

func TestUpdateDevice_EmptyBody(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)
	product := seedCatalog(t, router)
	dev := installTestDevice(t, router, fac.ID, product.ID)

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/devices/%d", dev.ID), strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRemoveDevice_SoftDelete(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)
	product := seedCatalog(t, router)
	dev := installTestDevice(t, router, fac.ID, product.ID)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/devices/%d", dev.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["message"] != "Device removed successfully" {
		t.Errorf("message = %q, want %q", resp["message"], "Device removed successfully")
	}

	// Gone from the facility listing
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/devices/facility/%d", fac.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var list map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if int(list["count"].(float64)) != 0 {
		t.Errorf("count after delete = %v, want 0", list["count"])
	}

	// Row survives: direct get still works, flagged inactive
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/devices/%d", dev.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get after delete status = %d", w.Code)
	}
	var got inventory.Device
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.IsActive {
		t.Error("device should be inactive after removal")
	}
}

func TestRemoveDevice_NotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodDelete, "/devices/999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// installTestDevice installs one device through the API.
func installTestDevice(t *testing.T, router http.Handler, facilityID, productID int64) inventory.Device {
	t.Helper()

	body := fmt.Sprintf(`{"facility_id": %d, "product_id": %d, "floor_number": 1, "position_z": -3.5}`, facilityID, productID)
	req := httptest.NewRequest(http.MethodPost, "/devices/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("install status = %d; body: %s", w.Code, w.Body.String())
	}

	var dev inventory.Device
	if err := json.Unmarshal(w.Body.Bytes(), &dev); err != nil {
		t.Fatalf("unmarshal device: %v", err)
	}
	return dev
}

// ─── Warranty Alerts ───────────────────────────────────────────────

func TestWarrantyAlerts(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)
	product := seedCatalog(t, router)

	// Bypass the install endpoint so warranty dates can be controlled.
	now := time.Now().UTC()
	seed := []struct {
		serial string
		expiry time.Time
	}{
		{"SN-EXPIRED", now.Add(-10 * 24 * time.Hour)},
		{"SN-CRITICAL", now.Add(10 * 24 * time.Hour)},
		{"SN-SOON", now.Add(60 * 24 * time.Hour)},
		{"SN-FAR", now.Add(400 * 24 * time.Hour)},
	}
	for _, s := range seed {
		d := &inventory.Device{
			FacilityID:       fac.ID,
			ProductID:        product.ID,
			SerialNumber:     s.serial,
			InstallationDate: now.Add(-365 * 24 * time.Hour),
			WarrantyExpiry:   s.expiry,
			FloorNumber:      1,
			HealthScore:      100,
			Status:           "Healthy",
			IsActive:         true,
		}
		if err := srv.devices.Create(context.Background(), d); err != nil {
			t.Fatalf("Create %s: %v", s.serial, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/devices/warranty-alerts/%d", fac.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("alerts status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Alerts []inventory.Alert `json:"alerts"`
		Count  int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3 (far-future device excluded)", resp.Count)
	}

	byStatus := make(map[string]string, len(resp.Alerts))
	for _, a := range resp.Alerts {
		byStatus[a.SerialNumber] = a.Status
		if a.ProductName != product.Name {
			t.Errorf("alert %s product = %q, want %q", a.SerialNumber, a.ProductName, product.Name)
		}
	}
	if byStatus["SN-EXPIRED"] != "expired" {
		t.Errorf("SN-EXPIRED status = %q, want expired", byStatus["SN-EXPIRED"])
	}
	if byStatus["SN-CRITICAL"] != "critical" {
		t.Errorf("SN-CRITICAL status = %q, want critical", byStatus["SN-CRITICAL"])
	}
	if byStatus["SN-SOON"] != "expiring_soon" {
		t.Errorf("SN-SOON status = %q, want expiring_soon", byStatus["SN-SOON"])
	}
}

func TestWarrantyAlerts_Threshold(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)
	product := seedCatalog(t, router)

	now := time.Now().UTC()
	d := &inventory.Device{
		FacilityID:       fac.ID,
		ProductID:        product.ID,
		SerialNumber:     "SN-WINDOW",
		InstallationDate: now,
		WarrantyExpiry:   now.Add(45 * 24 * time.Hour),
		FloorNumber:      1,
		HealthScore:      100,
		Status:           "Healthy",
		IsActive:         true,
	}
	if err := srv.devices.Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// 30-day window excludes a 45-day expiry
	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/devices/warranty-alerts/%d?days_threshold=30", fac.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if int(resp["count"].(float64)) != 0 {
		t.Errorf("30-day count = %v, want 0", resp["count"])
	}

	// Default 90-day window includes it
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/devices/warranty-alerts/%d", fac.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if int(resp["count"].(float64)) != 1 {
		t.Errorf("90-day count = %v, want 1", resp["count"])
	}
}

func TestWarrantyAlerts_BadThreshold(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/devices/warranty-alerts/1?days_threshold=soon", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── Spreadsheet Upload ────────────────────────────────────────────

// buildPlanUpload builds a multipart body holding a workbook with the
// given rows under the standard plan header.
func buildPlanUpload(t *testing.T, rows ...[]any) (*bytes.Buffer, string) {
	t.Helper()

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	header := []any{"Component Name", "Quantity", "Floor Number", "Position X", "Position Y", "Position Z", "Serial", "Health Score", "Notes"}
	all := append([][]any{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := book.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}
	workbook, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "plan.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(workbook.Bytes()); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestUploadExcel(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)
	seedCatalog(t, router)

	body, contentType := buildPlanUpload(t,
		[]any{"Galaxy VL", 2, 2, 4.5, nil, -2.0, "UPS-ROW", 95, "bay 4"},
		[]any{"Unknown Widget", 1, 1, nil, nil, nil, nil, nil, nil},
	)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/devices/upload-excel/%d", fac.ID), body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d; body: %s", w.Code, w.Body.String())
	}

	var result struct {
		Success        bool     `json:"success"`
		InstalledCount int      `json:"installed_count"`
		Errors         []string `json:"errors"`
		Devices        []string `json:"devices"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !result.Success {
		t.Error("expected success despite row errors")
	}
	if result.InstalledCount != 2 {
		t.Errorf("installed_count = %d, want 2", result.InstalledCount)
	}
	if len(result.Devices) != 2 || result.Devices[0] != "UPS-ROW-1" || result.Devices[1] != "UPS-ROW-2" {
		t.Errorf("devices = %v, want quantity-suffixed serials", result.Devices)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "Product 'Unknown Widget' not found in catalog") {
		t.Errorf("errors = %v", result.Errors)
	}

	// Both units landed in the facility
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/devices/facility/%d", fac.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var list map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if int(list["count"].(float64)) != 2 {
		t.Errorf("device count = %v, want 2", list["count"])
	}
}

func TestUploadExcel_MissingFile(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	fac := seedFacility(t, router)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("note", "no file here"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/devices/upload-excel/%d", fac.ID), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUploadExcel_FacilityNotFound(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	body, contentType := buildPlanUpload(t, []any{"Galaxy VL", 1, 1, nil, nil, nil, nil, nil, nil})

	req := httptest.NewRequest(http.MethodPost, "/devices/upload-excel/999", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
