package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	UID() string
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections organized by user.
// It is safe for concurrent use.
type Hub struct {
	// users maps user ID to a map of client ID to client
	users map[string]map[string]ClientInterface
	mu    sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		users: make(map[string]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its user
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	uid := client.UID()
	clientID := client.ID()

	if h.users[uid] == nil {
		h.users[uid] = make(map[string]ClientInterface)
	}

	h.users[uid][clientID] = client

	log.Debug().
		Str("uid", uid).
		Str("client_id", clientID).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	uid := client.UID()
	clientID := client.ID()

	if clients, ok := h.users[uid]; ok {
		if _, exists := clients[clientID]; exists {
			delete(clients, clientID)

			// Clean up empty user maps
			if len(clients) == 0 {
				delete(h.users, uid)
			}

			log.Debug().
				Str("uid", uid).
				Str("client_id", clientID).
				Msg("WebSocket client unregistered")
		}
	}
}

// Broadcast sends an event to all clients of a specific user
func (h *Hub) Broadcast(uid string, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("uid", uid).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients, ok := h.users[uid]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy clients to avoid holding lock during send
	clientsCopy := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		clientsCopy = append(clientsCopy, client)
	}
	h.mu.RUnlock()

	// Send to each client asynchronously
	for _, client := range clientsCopy {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("uid", uid).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}
}

// Shutdown closes every connected client
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for uid, clients := range h.users {
		for _, client := range clients {
			if err := client.Close(); err != nil {
				log.Warn().
					Err(err).
					Str("uid", uid).
					Str("client_id", client.ID()).
					Msg("Failed to close client")
			}
		}
		delete(h.users, uid)
	}
}

// ClientCount returns the number of clients connected for a user
func (h *Hub) ClientCount(uid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.users[uid]; ok {
		return len(clients)
	}
	return 0
}
