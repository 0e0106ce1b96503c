package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 30 * time.Second
	pongDeadline  = 60 * time.Second
)

var (
	// ErrClientGone is returned by Send after the client's writer has stopped.
	ErrClientGone = errors.New("client connection closed")
	// ErrSendBufferFull is returned by Send when the client cannot keep up.
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client is one admitted websocket connection bound to a user. All writes
// to the underlying connection go through a single writer goroutine; Send
// never blocks on the peer.
type Client struct {
	id         uuid.UUID
	userID     string
	admittedAt time.Time

	conn  *websocket.Conn
	clock clockwork.Clock

	sendCh   chan []byte
	doneCh   chan struct{}
	deadCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newClient(conn *websocket.Conn, userID string, bufferSize int, clock clockwork.Clock) *Client {
	c := &Client{
		id:         uuid.New(),
		userID:     userID,
		admittedAt: clock.Now(),
		conn:       conn,
		clock:      clock,
		sendCh:     make(chan []byte, bufferSize),
		doneCh:     make(chan struct{}),
		deadCh:     make(chan struct{}),
	}
	c.configurePongHandler()
	c.wg.Add(1)
	go c.writeLoop()
	return c
}

// ID is the stable connection identifier used by the registry.
func (c *Client) ID() uuid.UUID { return c.id }

// UserID is the logical user the connection was bound to at admission.
func (c *Client) UserID() string { return c.userID }

// AdmittedAt is when the connection entered the registry.
func (c *Client) AdmittedAt() time.Time { return c.admittedAt }

// Send queues data for delivery. It fails fast instead of blocking: a full
// buffer or a stopped writer is a send failure, and the dispatcher treats
// the connection as dead.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.deadCh:
		return ErrClientGone
	default:
	}

	select {
	case c.sendCh <- data:
		return nil
	case <-c.deadCh:
		return ErrClientGone
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) writeLoop() {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.wg.Done()
	defer close(c.deadCh)

	for {
		select {
		case msg := <-c.sendCh:
			c.updateWriteDeadline()
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			c.updateWriteDeadline()
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.doneCh:
			return
		}
	}
}

// stop tears the connection down without a close frame. Safe to call
// multiple times; disposal happens exactly once.
func (c *Client) stop() {
	c.stopOnce.Do(func() {
		close(c.doneCh)
		_ = c.conn.Close()
	})
	c.wg.Wait()
}

// stopGraceful sends a close frame with the given code and reason first.
func (c *Client) stopGraceful(code int, reason string) {
	c.stopOnce.Do(func() {
		close(c.doneCh)
		c.wg.Wait()

		// The writer has exited, so this is the only writer left.
		msg := websocket.FormatCloseMessage(code, reason)
		c.updateWriteDeadline()
		_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
		_ = c.conn.Close()
	})
	c.wg.Wait()
}

func (c *Client) configurePongHandler() {
	c.updateReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.updateReadDeadline()
		return nil
	})
}

func (c *Client) updateWriteDeadline() {
	_ = c.conn.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
}

func (c *Client) updateReadDeadline() {
	_ = c.conn.SetReadDeadline(c.clock.Now().Add(pongDeadline))
}
