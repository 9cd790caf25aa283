// Package healthfeed bridges MQTT health telemetry into the twin engine.
//
// Monitoring agents on the facility network publish health samples to
// twincore/telemetry/{facility_id}/{serial}/health. The bridge subscribes
// to the facility-wide pattern, validates each sample, and routes it
// through the engine so every score change is persisted before the view
// updates, the same as a score set from the panel.
//
// Samples for serials the twin has not adopted, and samples arriving
// while the target device has a mutation in flight, are dropped. Both
// are normal on a live feed and logged at debug level only.
package healthfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ardenmarsh/twincore/internal/infrastructure/logging"
	"github.com/ardenmarsh/twincore/internal/infrastructure/mqtt"
	"github.com/ardenmarsh/twincore/internal/twin"
)

// telemetryQoS is the subscription QoS. At-least-once is enough: a
// duplicated sample re-applies the same score, which is idempotent.
const telemetryQoS = 1

// topicSegments is the segment count of a device health topic:
// twincore/telemetry/{facility_id}/{serial}/health.
const topicSegments = 5

// MQTTClient is the broker surface the bridge needs.
// Satisfied by *mqtt.Client; allows mocking in tests.
type MQTTClient interface {
	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes the subscription for a topic pattern.
	Unsubscribe(topic string) error
}

// Engine is the twin surface the bridge routes samples into.
// Satisfied by *twin.Engine.
type Engine interface {
	// ApplyHealthTelemetry resolves a serial to a twin device and sets
	// its health score through the gateway.
	ApplyHealthTelemetry(ctx context.Context, serial string, score int) error
}

// Options holds configuration for creating a bridge.
type Options struct {
	// FacilityID scopes the subscription to one facility's telemetry.
	FacilityID int64

	// Client is the MQTT client implementation.
	Client MQTTClient

	// Engine receives validated samples.
	Engine Engine

	// Logger is the structured logger.
	Logger *logging.Logger
}

// Bridge subscribes to facility health telemetry and feeds the twin.
//
// Handlers run on the MQTT client's goroutines, possibly several at
// once, so the bridge keeps no mutable state beyond atomic counters.
type Bridge struct {
	facilityID int64
	client     MQTTClient
	engine     Engine
	logger     *logging.Logger

	topic string

	// Bridge-level context aborts in-flight engine calls on Stop.
	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once

	received atomic.Uint64
	applied  atomic.Uint64
	skipped  atomic.Uint64
}

// sample is the wire payload published by monitoring agents.
//
// HealthScore is a pointer so a missing field can be told apart from a
// legitimate score of zero.
type sample struct {
	Serial      string `json:"serial"`
	HealthScore *int   `json:"health_score"`
}

// New creates a bridge. Call Start to begin receiving telemetry.
func New(opts Options) (*Bridge, error) {
	if opts.FacilityID < 1 {
		return nil, fmt.Errorf("facility id is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Bridge{
		facilityID: opts.FacilityID,
		client:     opts.Client,
		engine:     opts.Engine,
		logger:     opts.Logger,
		topic:      mqtt.Topics{}.FacilityHealth(opts.FacilityID),
		ctx:        ctx,
		ctxCancel:  ctxCancel,
	}, nil
}

// Start subscribes to the facility's health telemetry pattern.
func (b *Bridge) Start() error {
	if err := b.client.Subscribe(b.topic, telemetryQoS, b.handleSample); err != nil {
		return fmt.Errorf("subscribe to telemetry: %w", err)
	}

	b.logger.Info("health telemetry bridge started",
		"facility_id", b.facilityID,
		"topic", b.topic)

	return nil
}

// Stop unsubscribes and aborts any in-flight engine call.
// Safe to call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()

		if err := b.client.Unsubscribe(b.topic); err != nil {
			b.logger.Warn("telemetry unsubscribe failed", "error", err)
		}

		b.logger.Info("health telemetry bridge stopped",
			"received", b.received.Load(),
			"applied", b.applied.Load(),
			"skipped", b.skipped.Load())
	})
}

// Stats is a point-in-time snapshot of the bridge counters.
type Stats struct {
	Received uint64
	Applied  uint64
	Skipped  uint64
}

// Stats reports how many samples the bridge has seen, applied, and
// dropped since start.
func (b *Bridge) Stats() Stats {
	return Stats{
		Received: b.received.Load(),
		Applied:  b.applied.Load(),
		Skipped:  b.skipped.Load(),
	}
}

// handleSample validates one telemetry message and routes it into the
// twin. Malformed messages are logged and dropped; telemetry is a
// firehose and one bad sample must never wedge the subscription.
func (b *Bridge) handleSample(topic string, payload []byte) error {
	if b.ctx.Err() != nil {
		return nil // shutting down
	}

	b.received.Add(1)

	parts := strings.Split(topic, "/")
	if len(parts) != topicSegments {
		b.skip("unexpected telemetry topic shape", "topic", topic)
		return nil
	}
	topicSerial := parts[3]

	var s sample
	if err := json.Unmarshal(payload, &s); err != nil {
		b.skip("malformed telemetry payload", "topic", topic, "error", err)
		return nil
	}
	if s.Serial == "" || s.HealthScore == nil {
		b.skip("incomplete telemetry payload", "topic", topic)
		return nil
	}
	// Agents address a device twice, in the topic and the payload. A
	// disagreement means a misconfigured agent, not a score to trust.
	if s.Serial != topicSerial {
		b.skip("telemetry serial does not match topic",
			"topic", topic, "serial", s.Serial)
		return nil
	}

	err := b.engine.ApplyHealthTelemetry(b.ctx, s.Serial, *s.HealthScore)
	switch {
	case err == nil:
		b.applied.Add(1)
		return nil
	case errors.Is(err, twin.ErrUnknownDevice):
		// Agents often report hardware the twin has not adopted yet.
		b.skipped.Add(1)
		b.logger.Debug("telemetry for unknown serial", "serial", s.Serial)
		return nil
	case errors.Is(err, twin.ErrDeviceBusy):
		// A mutation is in flight; the next sample wins.
		b.skipped.Add(1)
		b.logger.Debug("device busy, sample dropped", "serial", s.Serial)
		return nil
	case errors.Is(err, context.Canceled):
		b.skipped.Add(1)
		return nil // lost the race with Stop
	default:
		b.skipped.Add(1)
		return fmt.Errorf("apply telemetry for %s: %w", s.Serial, err)
	}
}

// skip logs a dropped sample at warn level and counts it.
func (b *Bridge) skip(msg string, args ...any) {
	b.skipped.Add(1)
	b.logger.Warn(msg, args...)
}
