package runtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// Hub owns the set of live connections and serializes registration and
// all-connection fan-out in a single loop. Origin-only deliveries bypass the
// loop and enqueue directly on the recipient.
type Hub struct {
	log        *slog.Logger
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	clients    map[*Client]struct{}
}

func NewHub(log *slog.Logger, bufferSize int) *Hub {
	return &Hub{
		log:        log,
		register:   make(chan *Client, bufferSize),
		unregister: make(chan *Client, bufferSize),
		broadcast:  make(chan []byte, bufferSize),
		clients:    make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client)   { h.register <- c }
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// BroadcastAll marshals the envelope once and fans it out to every live
// connection. Delivery to each client is best-effort: a slow client loses
// the frame rather than stalling everyone else.
func (h *Hub) BroadcastAll(env event.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Error("Failed to marshal broadcast envelope", "error", err)
		return
	}
	h.broadcast <- payload
}

// SendTo delivers the envelope to a single connection. A closed or saturated
// recipient drops the frame silently; in-flight pipelines may legitimately
// outlive their origin.
func (h *Hub) SendTo(r contract.Recipient, env event.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Error("Failed to marshal envelope", "error", err)
		return
	}
	if !r.Enqueue(payload) {
		h.log.Debug("Dropped frame for connection", "connection", r.ID())
	}
}

// Run drives the hub loop until the context is canceled, then closes every
// remaining client so their write pumps drain and exit.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				c.Close()
			}
			return nil
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.log.Debug("Connection registered", "connection", c.ID(), "total", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
				h.log.Debug("Connection unregistered", "connection", c.ID(), "total", len(h.clients))
			}
		case payload := <-h.broadcast:
			for c := range h.clients {
				if !c.Enqueue(payload) {
					h.log.Debug("Dropped broadcast frame", "connection", c.ID())
				}
			}
		}
	}
}
