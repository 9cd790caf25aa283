// Package mqtt provides MQTT client connectivity for twincore.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the ingest path for live device health. Monitoring agents on the
// building network publish per-device scores, and the healthfeed bridge
// subscribes per facility and routes them into the twin engine.
//
//	Monitoring agents → MQTT Broker → twincore healthfeed bridge
//
// Topic scheme: twincore/telemetry/{facility_id}/{serial}/health
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to health telemetry for facility 42
//	err = client.Subscribe(mqtt.Topics{}.FacilityHealth(42), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
