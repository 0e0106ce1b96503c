package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/lekesiz/HECS/internal/metrics"
)

// TokenVerifier validates a handshake token and returns the subject it was
// issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// HandlerConfig carries the tunables of the websocket endpoint.
type HandlerConfig struct {
	// HandshakeTimeout bounds the wait for the first auth message. An
	// unauthenticated connection could otherwise hold resources forever.
	HandshakeTimeout time.Duration
	// SendBuffer is the per-connection outbound queue size.
	SendBuffer int
	// AllowedOrigins restricts websocket upgrades; "*" allows any origin.
	AllowedOrigins []string
}

// Handler runs the per-connection handshake protocol on GET /ws:
// connect, await exactly one auth message, verify the token, admit the
// connection, then serve ping/pong until the connection goes away.
type Handler struct {
	registry *Registry
	verifier TokenVerifier
	clock    clockwork.Clock
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(registry *Registry, verifier TokenVerifier, clock clockwork.Clock, cfg HandlerConfig) *Handler {
	h := &Handler{
		registry: registry,
		verifier: verifier,
		clock:    clock,
		cfg:      cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, origin := range allowed {
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		return false
	}
}

// Handle upgrades the connection and runs the handshake and receive loop.
// It only returns an error if the upgrade itself fails; everything after
// the upgrade is reported over the websocket, not over HTTP.
func (h *Handler) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}

	h.serve(conn)
	return nil
}

func (h *Handler) serve(conn *websocket.Conn) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Connection handler panic", "panic", r)
			h.closeWith(conn, websocket.CloseInternalServerErr, "internal error")
		}
		_ = conn.Close()
	}()

	client, ok := h.handshake(conn)
	if !ok {
		return
	}

	defer func() {
		h.registry.Remove(client)
		client.stop()
	}()

	h.receiveLoop(client)
}

// handshake waits for exactly one auth message and admits the connection
// on success. Any protocol violation or verification failure closes the
// connection with a policy-violation code; the handshake is never retried
// on the same connection.
func (h *Handler) handshake(conn *websocket.Conn) (*Client, bool) {
	_ = conn.SetReadDeadline(h.clock.Now().Add(h.cfg.HandshakeTimeout))

	_, data, err := conn.ReadMessage()
	if err != nil {
		metrics.HandshakeFailures.WithLabelValues("timeout").Inc()
		slog.Info("Connection closed before auth", "error", err)
		h.closeWith(conn, websocket.ClosePolicyViolation, "authentication timeout")
		return nil, false
	}

	msg, err := parseClientMessage(data)
	if err != nil || msg.Type != msgTypeAuth {
		metrics.HandshakeFailures.WithLabelValues("protocol").Inc()
		h.rejectHandshake(conn, "first message must be auth")
		return nil, false
	}

	if msg.Token == "" {
		metrics.HandshakeFailures.WithLabelValues("protocol").Inc()
		h.rejectHandshake(conn, "token required")
		return nil, false
	}

	userID, err := h.verifier.Verify(msg.Token)
	if err != nil {
		metrics.HandshakeFailures.WithLabelValues("auth").Inc()
		slog.Info("Token verification failed", "error", err)
		h.rejectHandshake(conn, "authentication failed")
		return nil, false
	}

	client := newClient(conn, userID, h.cfg.SendBuffer, h.clock)
	h.registry.Admit(client)

	ack := authSuccessMessage{
		Type:    eventAuthSuccess,
		Message: "Connected successfully",
		UserID:  userID,
	}
	if err := h.sendJSON(client, ack); err != nil {
		slog.Warn("Failed to send auth ack", "user_id", userID, "error", err)
		h.registry.Remove(client)
		client.stop()
		return nil, false
	}

	slog.Info("Websocket authenticated", "user_id", userID)
	return client, true
}

// receiveLoop drains the connection for control messages after admission.
// Pings get a pong; malformed or unknown frames are logged and dropped
// without closing the connection.
func (h *Handler) receiveLoop(client *Client) {
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			slog.Info("Websocket disconnected", "user_id", client.UserID(), "error", err)
			return
		}

		msg, err := parseClientMessage(data)
		if err != nil {
			slog.Warn("Dropping malformed message", "user_id", client.UserID(), "error", err)
			continue
		}

		switch msg.Type {
		case msgTypePing:
			if err := h.sendJSON(client, pongMessage{Type: eventPong}); err != nil {
				slog.Debug("Failed to send pong", "user_id", client.UserID(), "error", err)
			}
		default:
			slog.Debug("Ignoring unexpected message type", "user_id", client.UserID(), "type", msg.Type)
		}
	}
}

// rejectHandshake reports a protocol violation to the peer and closes the
// connection with a policy-violation code.
func (h *Handler) rejectHandshake(conn *websocket.Conn, reason string) {
	payload, err := json.Marshal(errorMessage{Type: eventError, Message: reason})
	if err == nil {
		_ = conn.SetWriteDeadline(h.clock.Now().Add(writeDeadline))
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
	h.closeWith(conn, websocket.ClosePolicyViolation, reason)
}

func (h *Handler) closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, h.clock.Now().Add(writeDeadline))
}

// sendJSON marshals a message and queues it on the client's writer.
func (h *Handler) sendJSON(client *Client, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return client.Send(data)
}
