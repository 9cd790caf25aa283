package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteHealthSample records one confirmed device health change.
//
// Every gateway-confirmed health mutation lands here, whether it came
// from the view API or the telemetry feed. The write is non-blocking;
// points are batched and sent asynchronously.
//
// Parameters:
//   - key: Twin instance key (stable across reloads)
//   - serial: Device serial number
//   - score: Health score 0-100
//   - tier: Derived severity band ("healthy", "warning", "critical")
//
// Example:
//
//	client.WriteHealthSample("a1b2c3", "SRV-2024-001", 87, "healthy")
func (c *Client) WriteHealthSample(key, serial string, score int, tier string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_health",
		map[string]string{
			"key":    key,
			"serial": serial,
			"tier":   tier,
		},
		map[string]interface{}{
			"score": score,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePositionChange records one confirmed device placement change.
//
// Used for movement audit trails: where a device was over time and which
// floor it sat on.
//
// Parameters:
//   - key: Twin instance key
//   - serial: Device serial number
//   - x, y, z: World position in metres
//   - floor: Floor number derived from world Y
func (c *Client) WritePositionChange(key, serial string, x, y, z float64, floor int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_position",
		map[string]string{
			"key":    key,
			"serial": serial,
		},
		map[string]interface{}{
			"x":     x,
			"y":     y,
			"z":     z,
			"floor": floor,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
