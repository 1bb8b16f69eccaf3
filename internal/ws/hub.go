package ws

import (
	"context"
	"encoding/json"

	"github.com/sujalbistaa/crown/internal/logging"
)

// Message is the envelope pushed to every connected browser.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans forum events out to connected clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        logging.Logger
}

// NewHub returns a hub; call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logging.GetLogger("ws.hub"),
	}
}

// Run owns the client set until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow reader; drop it.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues msg for every client. It never blocks: when the queue is
// full the message is dropped.
func (h *Hub) Publish(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal ws message failed", "type", msg.Type, "error", err)
		return
	}

	select {
	case h.broadcast <- b:
	default:
		h.log.Warn("ws broadcast queue full, dropping message", "type", msg.Type)
	}
}
