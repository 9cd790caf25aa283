package viewapi

import (
	"encoding/json"
	"testing"

	"github.com/ardenmarsh/twincore/internal/infrastructure/config"
	"github.com/ardenmarsh/twincore/internal/infrastructure/logging"
)

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		Path:           "/ws",
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}
}

func newTestHub() *Hub {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test", "dev")
	return NewHub(testWSConfig(), log)
}

// hubClient builds a conn-less client for exercising hub bookkeeping.
// The buffer size controls how quickly broadcasts back up.
func hubClient(h *Hub, buffer int, channels ...string) *WSClient {
	c := &WSClient{
		hub:           h,
		send:          make(chan []byte, buffer),
		subscriptions: make(map[string]struct{}),
	}
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	return c
}

// readEnvelope drains one message from the client's send channel.
func readEnvelope(t *testing.T, c *WSClient) WSMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		return msg
	default:
		t.Fatal("no message queued")
	}
	return WSMessage{}
}

// ─── Registration ──────────────────────────────────────────────────

func TestHubRegisterUnregister(t *testing.T) {
	h := newTestHub()
	c := hubClient(h, 1)

	h.Register(c)
	if got := h.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}

	h.Unregister(c)
	if got := h.ClientCount(); got != 0 {
		t.Fatalf("ClientCount() = %d, want 0", got)
	}

	// Channel must be closed exactly once.
	if _, ok := <-c.send; ok {
		t.Error("send channel still open after Unregister")
	}
}

func TestHubUnregisterIdempotent(t *testing.T) {
	h := newTestHub()
	c := hubClient(h, 1)

	h.Register(c)
	h.Unregister(c)
	h.Unregister(c) // second call must not close the channel again
}

// ─── Broadcast ─────────────────────────────────────────────────────

func TestHubBroadcastToSubscriber(t *testing.T) {
	h := newTestHub()
	c := hubClient(h, 4, "frame")
	h.Register(c)

	h.Broadcast("frame", map[string]int{"sequence": 7})

	msg := readEnvelope(t, c)
	if msg.Type != WSTypeEvent {
		t.Errorf("Type = %q, want %q", msg.Type, WSTypeEvent)
	}
	if msg.EventType != "frame" {
		t.Errorf("EventType = %q, want frame", msg.EventType)
	}
	if msg.Timestamp == "" {
		t.Error("Timestamp is empty")
	}
	payload, ok := msg.Payload.(map[string]any)
	if !ok {
		t.Fatalf("Payload type %T, want map", msg.Payload)
	}
	if payload["sequence"] != float64(7) {
		t.Errorf("payload sequence = %v, want 7", payload["sequence"])
	}
}

func TestHubBroadcastSkipsUnsubscribed(t *testing.T) {
	h := newTestHub()
	frames := hubClient(h, 4, "frame")
	events := hubClient(h, 4, "device_removed")
	h.Register(frames)
	h.Register(events)

	h.Broadcast("device_removed", map[string]string{"key": "dev-1"})

	if len(frames.send) != 0 {
		t.Errorf("frame-only client got %d messages, want 0", len(frames.send))
	}
	msg := readEnvelope(t, events)
	if msg.EventType != "device_removed" {
		t.Errorf("EventType = %q, want device_removed", msg.EventType)
	}
}

func TestHubBroadcastNoClients(t *testing.T) {
	h := newTestHub()
	// Must not panic or block with nobody connected.
	h.Broadcast("frame", map[string]int{"sequence": 1})
}

// ─── Slow client handling ──────────────────────────────────────────

func TestHubDropsSlowClient(t *testing.T) {
	h := newTestHub()
	slow := hubClient(h, 1, "frame")
	h.Register(slow)

	// First broadcast fills the one-slot buffer.
	h.Broadcast("frame", map[string]int{"sequence": 1})
	if got := h.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d after one send, want 1", got)
	}

	// The client never drains. Each further broadcast is a strike; the
	// hub drops the client once the strikes run out.
	for i := 0; i < wsMaxSendStrikes; i++ {
		h.Broadcast("frame", map[string]int{"sequence": 2 + i})
	}

	if got := h.ClientCount(); got != 0 {
		t.Fatalf("ClientCount() = %d after sustained backpressure, want 0", got)
	}

	// The buffered message is still readable, then the channel is closed.
	if _, ok := <-slow.send; !ok {
		t.Fatal("expected one buffered message before close")
	}
	if _, ok := <-slow.send; ok {
		t.Error("send channel still open after drop")
	}
}

func TestHubStrikesResetOnDelivery(t *testing.T) {
	h := newTestHub()
	c := hubClient(h, 1, "frame")
	h.Register(c)

	// A client that keeps draining never accumulates enough strikes to
	// be dropped, however long the session runs.
	for i := 0; i < wsMaxSendStrikes*4; i++ {
		h.Broadcast("frame", map[string]int{"sequence": i})
		<-c.send
	}

	if got := h.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}
}

func TestHubBroadcastContinuesPastSlowClient(t *testing.T) {
	h := newTestHub()
	slow := hubClient(h, 1, "frame")
	fast := hubClient(h, 64, "frame")
	h.Register(slow)
	h.Register(fast)

	for i := 0; i < wsMaxSendStrikes+1; i++ {
		h.Broadcast("frame", map[string]int{"sequence": i})
	}

	// The healthy client got every message despite its slow peer.
	if got := len(fast.send); got != wsMaxSendStrikes+1 {
		t.Errorf("fast client got %d messages, want %d", got, wsMaxSendStrikes+1)
	}
	if got := h.ClientCount(); got != 1 {
		t.Errorf("ClientCount() = %d, want 1 (slow client dropped)", got)
	}
}

func TestTrySendClosedChannel(t *testing.T) {
	h := newTestHub()
	c := hubClient(h, 1)
	close(c.send)

	// Must absorb the send-on-closed-channel panic and report failure.
	if c.trySend([]byte("x")) {
		t.Error("trySend on closed channel returned true")
	}
}

// ─── Client protocol ───────────────────────────────────────────────

func TestClientSubscribeProtocol(t *testing.T) {
	h := newTestHub()
	c := hubClient(h, 4)
	h.Register(c)

	c.handleMessage([]byte(`{"type":"subscribe","id":"m1","payload":{"channels":["frame","floor_changed"]}}`))

	if !c.isSubscribed("frame") || !c.isSubscribed("floor_changed") {
		t.Error("subscriptions not recorded")
	}

	msg := readEnvelope(t, c)
	if msg.Type != WSTypeResponse {
		t.Errorf("Type = %q, want %q", msg.Type, WSTypeResponse)
	}
	if msg.ID != "m1" {
		t.Errorf("ID = %q, want m1", msg.ID)
	}
}

func TestClientUnsubscribeProtocol(t *testing.T) {
	h := newTestHub()
	c := hubClient(h, 4, "frame", "floor_changed")
	h.Register(c)

	c.handleMessage([]byte(`{"type":"unsubscribe","id":"m2","payload":{"channels":["frame"]}}`))

	if c.isSubscribed("frame") {
		t.Error("frame subscription survived unsubscribe")
	}
	if !c.isSubscribed("floor_changed") {
		t.Error("floor_changed subscription removed unexpectedly")
	}
}

func TestClientPingPong(t *testing.T) {
	h := newTestHub()
	c := hubClient(h, 4)
	h.Register(c)

	c.handleMessage([]byte(`{"type":"ping","id":"p1"}`))

	msg := readEnvelope(t, c)
	if msg.Type != WSTypePong {
		t.Errorf("Type = %q, want %q", msg.Type, WSTypePong)
	}
	if msg.ID != "p1" {
		t.Errorf("ID = %q, want p1", msg.ID)
	}
}

func TestClientUnknownMessageType(t *testing.T) {
	h := newTestHub()
	c := hubClient(h, 4)
	h.Register(c)

	c.handleMessage([]byte(`{"type":"teleport","id":"m3"}`))

	msg := readEnvelope(t, c)
	if msg.Type != WSTypeError {
		t.Errorf("Type = %q, want %q", msg.Type, WSTypeError)
	}
}

func TestClientInvalidJSON(t *testing.T) {
	h := newTestHub()
	c := hubClient(h, 4)
	h.Register(c)

	c.handleMessage([]byte(`{not json`))

	msg := readEnvelope(t, c)
	if msg.Type != WSTypeError {
		t.Errorf("Type = %q, want %q", msg.Type, WSTypeError)
	}
}
