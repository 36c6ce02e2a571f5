package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType defines the SSE event name.
type EventType string

const (
	EventCatalogProgress EventType = "catalog.progress"
	EventCatalogPage     EventType = "catalog.page"
	EventCatalogError    EventType = "catalog.error"
)

// StreamEventName is the SSE event name every catalog Event is sent under;
// the Event's own type travels inside the payload.
const StreamEventName = "catalog"

// Event is the payload broadcast to connected UI clients.
type Event struct {
	Event     EventType `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client represents a connected SSE client.
type Client struct {
	ID     string
	Events chan []byte
}

// Hub manages SSE client connections and broadcasts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client and returns it for streaming.
func (h *Hub) Register(clientID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:     clientID,
		Events: make(chan []byte, 64),
	}
	h.clients[clientID] = c
	log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client connected")
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		log.Info().Str("client_id", clientID).Int("total_clients", len(h.clients)).Msg("SSE client disconnected")
	}
}

// Encode renders event the way it is written to the stream.
func Encode(event *Event) ([]byte, error) {
	return json.Marshal(event)
}

// Broadcast sends an event to all connected clients.
// Non-blocking: drops message if client buffer is full.
func (h *Hub) Broadcast(event *Event) {
	data, err := Encode(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.Events <- data:
		default:
			log.Warn().Str("client_id", c.ID).Msg("SSE client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
