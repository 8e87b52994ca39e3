// file: internal/realtime/events.go
// version: 2.0.0
// guid: 9e8d7f6a-5c4b-3a21-0f9e-8d7c6b5a4392

package realtime

import (
	"sync"
	"time"

	"github.com/jdfalk/book-explorer/internal/logging"
)

// EventType defines the kind of state change being announced
type EventType string

const (
	EventReadingListResized EventType = "reading-list.resized"
	EventReadingListUpdated EventType = "reading-list.updated"
	EventRatingsChanged     EventType = "ratings.changed"
	EventGenresChanged      EventType = "preferences.genres"
	EventAuthorsChanged     EventType = "preferences.authors"
	EventPreferencesChanged EventType = "preferences.other"
	EventPremiumChanged     EventType = "premium.changed"
	EventHomeGenresChanged  EventType = "home-genres.changed"
	EventCoversChanged      EventType = "covers.changed"
	EventIdentityChanged    EventType = "identity.changed"
	EventSignedOut          EventType = "session.signed-out"
)

// Event is a state change published after the mutation has been applied.
type Event struct {
	Type      EventType      `json:"type"`
	Key       string         `json:"key"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

const clientBuffer = 64

// Client is one subscriber with its own buffered channel.
type Client struct {
	ID      string
	Channel chan *Event
	types   map[EventType]bool
	mu      sync.RWMutex
}

// NewClient creates a client interested in the given event types. With no
// types it receives every event.
func NewClient(id string, types ...EventType) *Client {
	c := &Client{
		ID:      id,
		Channel: make(chan *Event, clientBuffer),
		types:   make(map[EventType]bool, len(types)),
	}
	for _, t := range types {
		c.types[t] = true
	}
	return c
}

// Wants reports whether the client should receive events of type t.
func (c *Client) Wants(t EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types) == 0 || c.types[t]
}

// Subscribe adds an event type to the client's filter
func (c *Client) Subscribe(t EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[t] = true
}

// EventHub fans state-change events out to registered clients. Broadcast
// never blocks: a client whose buffer is full misses the event.
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	now     func() time.Time
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]*Client),
		now:     time.Now,
	}
}

// RegisterClient registers a new client
func (h *EventHub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	logging.Debug().Str("client", client.ID).Int("clients", len(h.clients)).Msg("event client registered")
}

// Subscribe registers a fresh client and returns it.
func (h *EventHub) Subscribe(id string, types ...EventType) *Client {
	c := NewClient(id, types...)
	h.RegisterClient(c)
	return c
}

// UnregisterClient removes a client and closes its channel
func (h *EventHub) UnregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		close(client.Channel)
		delete(h.clients, clientID)
	}
}

// Broadcast sends an event to every interested client.
func (h *EventHub) Broadcast(event *Event) {
	if h == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = h.now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !client.Wants(event.Type) {
			continue
		}
		select {
		case client.Channel <- event:
		default:
			logging.Warn().Str("client", client.ID).Str("event", string(event.Type)).Msg("client channel full, dropping event")
		}
	}
}

// Publish is shorthand for broadcasting a typed event for a storage key.
func (h *EventHub) Publish(t EventType, key string, data map[string]any) {
	h.Broadcast(&Event{Type: t, Key: key, Data: data})
}

// GetClientCount returns the number of registered clients
func (h *EventHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
