package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnLimits bounds one websocket connection.
type ConnLimits struct {
	MaxMessageSize int64
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBufferSize int
}

// Client is one live connection. The read pump runs the whole processing
// pipeline synchronously, which preserves per-connection arrival order; the
// write pump drains the send channel. Separating the two avoids head-of-line
// blocking when a browser is slow.
//
// The user field is an advisory cache of the last resolved identity. It is
// written by the pipeline and read on disconnect, both from the read pump
// goroutine, so it needs no lock — and it is never trusted for
// authorization, which happens fresh on every frame.
type Client struct {
	id       string
	hub      *Hub
	pipeline *Pipeline
	conn     *websocket.Conn
	log      *slog.Logger
	limits   ConnLimits

	send   chan []byte
	closed chan struct{}

	user *domain.User
}

func NewClient(hub *Hub, pipeline *Pipeline, conn *websocket.Conn, log *slog.Logger, limits ConnLimits) *Client {
	return &Client{
		id:       uuid.NewString(),
		hub:      hub,
		pipeline: pipeline,
		conn:     conn,
		log:      log,
		limits:   limits,
		send:     make(chan []byte, limits.SendBufferSize),
		closed:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Enqueue hands a marshaled frame to the write pump without blocking.
// It reports false once the client is closed or its buffer is full.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close releases the write pump. Safe to call more than once.
func (c *Client) Close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}

// ReadPump consumes inbound frames until the transport fails or closes.
// A frame that is not valid JSON is dropped; a frame without text is ignored
// by the pipeline. Disconnect handling runs exactly once on the way out.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.pipeline.HandleDisconnect(ctx, c)
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.limits.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.limits.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.limits.PongTimeout))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Connection read failed", "connection", c.id, "error", err)
			}
			return
		}

		var frame event.Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.log.Debug("Dropping malformed frame", "connection", c.id, "error", err)
			continue
		}

		c.pipeline.HandleFrame(ctx, c, frame)
	}
}

// WritePump drains the send channel to the websocket and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	// Ping a little more often than the pong deadline expires.
	ticker := time.NewTicker(c.limits.PongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(c.limits.WriteTimeout))
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.limits.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.limits.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
