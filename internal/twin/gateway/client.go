package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ardenmarsh/twincore/internal/catalog"
	"github.com/ardenmarsh/twincore/internal/facility"
	"github.com/ardenmarsh/twincore/internal/importer"
	"github.com/ardenmarsh/twincore/internal/infrastructure/config"
	"github.com/ardenmarsh/twincore/internal/inventory"
	"github.com/ardenmarsh/twincore/internal/twin"
)

const (
	// defaultRequestTimeout bounds a single facilityd call when the
	// config does not set one.
	defaultRequestTimeout = 10 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 10 << 20 // 10 MB
)

// Client is the engine's HTTP port to facilityd. One request per remote
// effect, no retries; failures come back classified so callers can
// distinguish an unreachable service from a rejected request with
// errors.Is.
//
// Thread Safety: the client holds no mutable state; all methods are
// safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ twin.Gateway = (*Client)(nil)

// New creates a client for the facilityd instance named in cfg. No
// network I/O happens here — facilityd may come up later; until it
// does, calls fail with ErrNetwork.
func New(cfg config.PersistenceConfig) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// HealthCheck verifies facilityd is reachable and answering.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("persistence health check: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrNetwork, resp.StatusCode)
	}

	return nil
}

// ─── Facility operations ────────────────────────────────────────────────────

// GetFacility fetches one facility record.
func (c *Client) GetFacility(ctx context.Context, id int64) (*twin.FacilityInfo, error) {
	var f facility.Facility
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/facility/%d", id), nil, &f); err != nil {
		return nil, err
	}
	return facilityInfo(f), nil
}

// CreateFacility registers a new facility from a setup draft. Seeding
// the demo catalogue is a separate call; the draft's SeedDemo flag is
// the caller's to act on.
func (c *Client) CreateFacility(ctx context.Context, draft twin.FacilityDraft) (*twin.FacilityInfo, error) {
	body := facility.Facility{
		Name:         draft.Name,
		CustomerName: draft.CustomerName,
		Location:     draft.Location,
		NumFloors:    draft.Floors,
		FloorHeight:  draft.FloorHeight,
	}
	if draft.TotalArea > 0 {
		body.TotalArea = &draft.TotalArea
	}
	if draft.ModelFile != "" {
		body.ModelFile = &draft.ModelFile
	}

	var created facility.Facility
	if err := c.doJSON(ctx, http.MethodPost, "/facility", body, &created); err != nil {
		return nil, err
	}
	return facilityInfo(created), nil
}

// SeedDemoData asks facilityd to seed the demo product catalogue and
// returns the product codes created. Safe to call repeatedly.
func (c *Client) SeedDemoData(ctx context.Context) ([]string, error) {
	var out struct {
		Created []string `json:"created"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/seed-data", nil, &out); err != nil {
		return nil, err
	}
	return out.Created, nil
}

// ─── Catalogue operations ───────────────────────────────────────────────────

// ListProducts fetches the full product catalogue.
func (c *Client) ListProducts(ctx context.Context) ([]twin.ProductInfo, error) {
	var out struct {
		Products []catalog.Product `json:"products"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}

	products := make([]twin.ProductInfo, 0, len(out.Products))
	for _, p := range out.Products {
		products = append(products, productInfo(p))
	}
	return products, nil
}

// ─── Device operations ──────────────────────────────────────────────────────

// ListDevices fetches every active device installed in a facility.
func (c *Client) ListDevices(ctx context.Context, facilityID int64) ([]twin.RemoteDevice, error) {
	var out struct {
		Devices []inventory.Device `json:"devices"`
	}
	path := fmt.Sprintf("/devices/facility/%d", facilityID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	devices := make([]twin.RemoteDevice, 0, len(out.Devices))
	for _, d := range out.Devices {
		devices = append(devices, remoteDevice(d))
	}
	return devices, nil
}

// installBody is the POST /devices request shape. Serial is omitted
// when empty so facilityd generates one.
type installBody struct {
	FacilityID   int64   `json:"facility_id"`
	ProductID    int64   `json:"product_id"`
	SerialNumber string  `json:"serial_number,omitempty"`
	FloorNumber  int     `json:"floor_number"`
	PositionX    float64 `json:"position_x"`
	PositionY    float64 `json:"position_y"`
	PositionZ    float64 `json:"position_z"`
	RotationY    float64 `json:"rotation_y"`
	Notes        string  `json:"notes,omitempty"`
}

// CreateDevice installs a new device and returns the record facilityd
// created, serial and warranty filled in.
func (c *Client) CreateDevice(ctx context.Context, facilityID int64, draft twin.DeviceDraft) (*twin.RemoteDevice, error) {
	body := installBody{
		FacilityID:   facilityID,
		ProductID:    draft.ProductID,
		SerialNumber: draft.Serial,
		FloorNumber:  draft.Floor,
		PositionX:    draft.Position.X,
		PositionY:    draft.Position.Y,
		PositionZ:    draft.Position.Z,
		RotationY:    draft.RotationY,
		Notes:        draft.Notes,
	}

	var created inventory.Device
	if err := c.doJSON(ctx, http.MethodPost, "/devices", body, &created); err != nil {
		return nil, err
	}
	d := remoteDevice(created)
	return &d, nil
}

// UpdatePosition persists a device move as a partial update.
func (c *Client) UpdatePosition(ctx context.Context, id int64, pos twin.Vec3, rotationY float64, floor int) error {
	update := inventory.Update{
		FloorNumber: &floor,
		PositionX:   &pos.X,
		PositionY:   &pos.Y,
		PositionZ:   &pos.Z,
		RotationY:   &rotationY,
	}
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/devices/%d", id), update, nil)
}

// UpdateHealth persists a device health score and its derived status label.
func (c *Client) UpdateHealth(ctx context.Context, id int64, score int, statusLabel string) error {
	update := inventory.Update{
		HealthScore: &score,
		Status:      &statusLabel,
	}
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/devices/%d", id), update, nil)
}

// RemoveDevice deactivates a device record.
func (c *Client) RemoveDevice(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/devices/%d", id), nil, nil)
}

// ─── Import and alerts ──────────────────────────────────────────────────────

// BulkImport uploads an installation-plan workbook for a facility. The
// file is streamed up as multipart form data; facilityd parses it and
// installs what it can, reporting per-row errors in the outcome.
func (c *Client) BulkImport(ctx context.Context, facilityID int64, filename string, file io.Reader) (*twin.ImportOutcome, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}

	var result importer.Result
	path := fmt.Sprintf("/devices/upload-excel/%d", facilityID)
	if err := c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), &result); err != nil {
		return nil, err
	}

	return &twin.ImportOutcome{
		InstalledCount: result.InstalledCount,
		Errors:         result.Errors,
		Serials:        result.Devices,
	}, nil
}

// WarrantyAlerts fetches devices whose warranty expires within the
// threshold. A non-positive threshold defers to the server default.
func (c *Client) WarrantyAlerts(ctx context.Context, facilityID int64, thresholdDays int) ([]twin.WarrantyAlert, error) {
	path := fmt.Sprintf("/devices/warranty-alerts/%d", facilityID)
	if thresholdDays > 0 {
		path = fmt.Sprintf("%s?days_threshold=%d", path, thresholdDays)
	}

	var out struct {
		Alerts []inventory.Alert `json:"alerts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	alerts := make([]twin.WarrantyAlert, 0, len(out.Alerts))
	for _, a := range out.Alerts {
		alerts = append(alerts, warrantyAlert(a))
	}
	return alerts, nil
}

// ─── Request plumbing ───────────────────────────────────────────────────────

// doJSON marshals payload (when non-nil) as a JSON body and executes
// the request via do.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

// do executes one request against facilityd and decodes a JSON
// response into out when out is non-nil. Non-2xx responses are
// classified into the package error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrValidation, err)
	}
	return nil
}

// wireError is the body facilityd sends with every failure status.
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps a failure response onto the package error taxonomy:
// 404 is ErrNotFound, other 4xx are ErrValidation, everything else
// (5xx, unexpected statuses) is ErrNetwork.
func classify(status int, body []byte) error {
	detail := fmt.Sprintf("HTTP %d", status)
	var e wireError
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		detail = fmt.Sprintf("HTTP %d: %s", status, e.Message)
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: %s", ErrValidation, detail)
	default:
		return fmt.Errorf("%w: %s", ErrNetwork, detail)
	}
}

// ─── Wire conversions ───────────────────────────────────────────────────────

func facilityInfo(f facility.Facility) *twin.FacilityInfo {
	info := &twin.FacilityInfo{
		ID:           f.ID,
		Name:         f.Name,
		CustomerName: f.CustomerName,
		Location:     f.Location,
		Floors:       f.NumFloors,
		FloorHeight:  f.FloorHeight,
	}
	if f.TotalArea != nil {
		info.TotalArea = *f.TotalArea
	}
	if f.ModelFile != nil {
		info.ModelFile = *f.ModelFile
	}
	return info
}

func productInfo(p catalog.Product) twin.ProductInfo {
	return twin.ProductInfo{
		ID:       p.ID,
		Code:     p.ProductCode,
		Name:     p.Name,
		Category: p.Category,
		TypeTag:  p.MeshIdentifier,
	}
}

func remoteDevice(d inventory.Device) twin.RemoteDevice {
	rd := twin.RemoteDevice{
		ID:              d.ID,
		ProductID:       d.ProductID,
		Serial:          d.SerialNumber,
		Floor:           d.FloorNumber,
		Position:        twin.Vec3{X: d.PositionX, Y: d.PositionY, Z: d.PositionZ},
		RotationY:       d.RotationY,
		HealthScore:     d.HealthScore,
		Status:          d.Status,
		LastMaintenance: d.LastMaintenance,
		Notes:           d.Notes,
	}
	if !d.InstallationDate.IsZero() {
		t := d.InstallationDate
		rd.InstallationDate = &t
	}
	if !d.WarrantyExpiry.IsZero() {
		t := d.WarrantyExpiry
		rd.WarrantyExpiry = &t
	}
	return rd
}

func warrantyAlert(a inventory.Alert) twin.WarrantyAlert {
	return twin.WarrantyAlert{
		DeviceID:      a.DeviceID,
		Serial:        a.SerialNumber,
		ProductName:   a.ProductName,
		Expiry:        a.WarrantyExpiry,
		DaysRemaining: a.DaysRemaining,
		Status:        a.Status,
	}
}
