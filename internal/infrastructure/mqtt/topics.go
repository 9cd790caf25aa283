package mqtt

import "fmt"

// Topic prefixes for the twincore telemetry bus.
//
// Telemetry topics use the scheme: twincore/telemetry/{facility_id}/{serial}/health
// Monitoring agents on the building network publish there; the healthfeed
// bridge subscribes per facility and routes scores into the twin.
const (
	// TopicPrefix is the base for all twincore topics.
	TopicPrefix = "twincore"

	// TopicPrefixTelemetry is the base for device telemetry topics.
	TopicPrefixTelemetry = "twincore/telemetry"

	// TopicPrefixSystem is the base for service lifecycle topics.
	TopicPrefixSystem = "twincore/system"
)

// Topics provides builders for twincore MQTT topics.
// Using these helpers ensures consistent topic naming across services.
//
//	topics := mqtt.Topics{}
//	pattern := topics.FacilityHealth(42)
//	// Returns: "twincore/telemetry/42/+/health"
type Topics struct{}

// DeviceHealth returns the health telemetry topic for a single device.
//
// Example: twincore/telemetry/42/SRV-2024-001/health
func (Topics) DeviceHealth(facilityID int64, serial string) string {
	return fmt.Sprintf("%s/%d/%s/health", TopicPrefixTelemetry, facilityID, serial)
}

// SystemStatus returns the service status topic.
//
// The LWT and the online/offline lifecycle payloads are published here,
// retained, so dashboards see the last known service state.
//
// Example: twincore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// FacilityHealth returns a pattern matching health telemetry from every
// device in one facility. This is the healthfeed bridge's subscription.
//
// Pattern: twincore/telemetry/42/+/health
func (Topics) FacilityHealth(facilityID int64) string {
	return fmt.Sprintf("%s/%d/+/health", TopicPrefixTelemetry, facilityID)
}

// AllHealth returns a pattern matching health telemetry across all
// facilities.
//
// Pattern: twincore/telemetry/+/+/health
func (Topics) AllHealth() string {
	return fmt.Sprintf("%s/+/+/health", TopicPrefixTelemetry)
}

// AllTopics returns a pattern matching all twincore topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: twincore/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
