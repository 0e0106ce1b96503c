package realtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lekesiz/HECS/internal/metrics"
)

// Registry is the single source of truth for which connections are live
// and which user each one belongs to. Live handles are stored once, in the
// clients arena; the forward index (user to connection IDs) and reverse
// index (connection ID to user) only hold identifiers and are mutually
// consistent at every point outside a single locked update.
//
// The lock is never held across a send to a connection; readers get
// point-in-time snapshots.
type Registry struct {
	mu      sync.RWMutex
	users   map[string]map[uuid.UUID]struct{}
	owners  map[uuid.UUID]string
	clients map[uuid.UUID]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		users:   make(map[string]map[uuid.UUID]struct{}),
		owners:  make(map[uuid.UUID]string),
		clients: make(map[uuid.UUID]*Client),
	}
}

// Admit inserts a connection into its user's set, creating the set if
// absent. Admitting an already-admitted connection is a no-op.
func (r *Registry) Admit(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.owners[c.ID()]; exists {
		return
	}

	set, ok := r.users[c.UserID()]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		r.users[c.UserID()] = set
	}
	set[c.ID()] = struct{}{}
	r.owners[c.ID()] = c.UserID()
	r.clients[c.ID()] = c

	r.updateGauges()
	slog.Info("Connection admitted",
		"connection_id", c.ID().String(),
		"user_id", c.UserID(),
		"total_connections", len(r.owners),
	)
}

// Remove detaches a connection from the registry. Removing an unknown
// connection is a safe no-op. The reverse mapping is cleared even if the
// forward set did not contain the connection, so the two indexes can never
// drift apart under partial failure.
func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, known := r.owners[c.ID()]
	if known {
		if set, ok := r.users[userID]; ok {
			delete(set, c.ID())
			if len(set) == 0 {
				delete(r.users, userID)
			}
		}
	}
	delete(r.owners, c.ID())
	delete(r.clients, c.ID())

	if known {
		r.updateGauges()
		slog.Info("Connection removed",
			"connection_id", c.ID().String(),
			"user_id", userID,
			"total_connections", len(r.owners),
		)
	}
}

// ConnectionsFor returns a snapshot of one user's connections.
func (r *Registry) ConnectionsFor(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	snapshot := make([]*Client, 0, len(set))
	for id := range set {
		if c, ok := r.clients[id]; ok {
			snapshot = append(snapshot, c)
		}
	}
	return snapshot
}

// All returns a snapshot of every admitted connection grouped by user.
func (r *Registry) All() map[string][]*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string][]*Client, len(r.users))
	for userID, set := range r.users {
		clients := make([]*Client, 0, len(set))
		for id := range set {
			if c, ok := r.clients[id]; ok {
				clients = append(clients, c)
			}
		}
		snapshot[userID] = clients
	}
	return snapshot
}

// Counts reports the number of connections and of distinct users.
func (r *Registry) Counts() (connections, users int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners), len(r.users)
}

// Shutdown closes every connection with a going-away frame and empties the
// registry. Used during graceful process shutdown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.users = make(map[string]map[uuid.UUID]struct{})
	r.owners = make(map[uuid.UUID]string)
	r.clients = make(map[uuid.UUID]*Client)
	r.updateGauges()
	r.mu.Unlock()

	for _, c := range clients {
		c.stopGraceful(websocket.CloseGoingAway, "server shutting down")
	}

	slog.Info("Registry shut down", "disconnected_clients", len(clients))
}

// updateGauges must be called with the lock held.
func (r *Registry) updateGauges() {
	metrics.ActiveConnections.Set(float64(len(r.owners)))
	metrics.ConnectedUsers.Set(float64(len(r.users)))
}
