package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types pushed from the server.
const (
	EventDeviceUpdate   = "device_update"
	EventTaskUpdate     = "task_update"
	EventCustomerUpdate = "customer_update"
	EventNotification   = "notification"

	eventAuthSuccess = "auth_success"
	eventError       = "error"
	eventPong        = "pong"
)

// Message types accepted from clients.
const (
	msgTypeAuth = "auth"
	msgTypePing = "ping"
)

// Event is the envelope broadcast to connected clients. Events are
// ephemeral: they are never persisted and never replayed to late joiners.
type Event struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent wraps a data payload in the canonical envelope.
func NewEvent(eventType string, data map[string]any, timestamp time.Time) Event {
	return Event{Type: eventType, Data: data, Timestamp: timestamp.UTC()}
}

// clientMessage is the shape of every frame a client may send. The first
// frame must carry type "auth" with a token; afterwards only "ping" is
// meaningful.
type clientMessage struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

// parseClientMessage decodes an inbound frame. A decode failure is an
// expected condition handled by the caller, not a fault to swallow.
func parseClientMessage(data []byte) (clientMessage, error) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return clientMessage{}, fmt.Errorf("malformed message: %w", err)
	}
	if msg.Type == "" {
		return clientMessage{}, fmt.Errorf("malformed message: missing type")
	}
	return msg, nil
}

// errorMessage is sent before closing a connection that violated the
// handshake protocol.
type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// authSuccessMessage acknowledges a completed handshake.
type authSuccessMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// pongMessage answers a client ping.
type pongMessage struct {
	Type string `json:"type"`
}
