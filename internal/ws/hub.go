package ws

import (
	"sync"

	"lms-consulting-portal/backend/pkg/logger"
)

// AdminRoom is the distinguished room every admin connection joins. It
// carries session-lifecycle notifications only, never message content.
const AdminRoom = "adminRoom"

// Hub is the in-process connection registry: it tracks live clients and
// their room memberships, and fans events out to rooms. Membership is
// append-only per connection lifetime; disconnect removes the client from
// every room.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	log        *logger.Logger
	metrics    *Metrics
}

// NewHub creates a new hub
func NewHub(log *logger.Logger, metrics *Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
		metrics:    metrics,
	}
}

// Run processes connection registration and teardown. Room joins and
// broadcasts happen on the callers' goroutines under the hub lock.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("Client registered")

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// Join adds a client to a room. Joining a room the client already belongs
// to is a no-op, so repeated joins never cause duplicate delivery.
func (h *Hub) Join(room string, client *Client) {
	if room == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[client] = true
}

// Broadcast delivers a payload to every connection currently in the room.
// Delivery is at-most-once: a client whose send buffer is full is skipped.
func (h *Hub) Broadcast(room string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		select {
		case client.send <- payload:
		default:
			h.metrics.BroadcastDropped()
			h.log.Warn("Dropped broadcast to slow client", "room", room)
		}
	}
}

// InRoom reports whether a client is a member of a room
func (h *Hub) InRoom(room string, client *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.rooms[room][client]
}

// RoomSize returns the number of connections in a room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[room])
}

// ActiveConnections returns the number of registered clients
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// remove tears down a client: drops it from every room, unregisters it and
// closes its send channel
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}

	delete(h.clients, client)
	close(client.send)
	h.log.Debug("Client unregistered")
}
