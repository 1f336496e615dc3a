package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// Connection is one live socket bound to an authenticated user.
type Connection interface {
	ID() string
	UserID() uuid.UUID
	// Send enqueues a frame without blocking and reports whether it was
	// accepted.
	Send(data []byte) bool
}

// Registry tracks the live connections of every user. A user is online
// while at least one connection is registered.
type Registry struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]map[string]Connection
	owner  map[string]uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[uuid.UUID]map[string]Connection),
		owner:  make(map[string]uuid.UUID),
	}
}

// Register adds conn to userID's set and reports whether it is the user's
// first live connection. Registering the same id twice is a no-op.
func (r *Registry) Register(userID uuid.UUID, conn Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owner[conn.ID()]; ok {
		return false
	}
	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]Connection)
		r.byUser[userID] = conns
	}
	conns[conn.ID()] = conn
	r.owner[conn.ID()] = userID
	return len(conns) == 1
}

// Unregister removes a connection. lastForUser is true when its user has no
// connections left. Unknown ids are ignored.
func (r *Registry) Unregister(connID string) (userID uuid.UUID, lastForUser bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owner[connID]
	if !ok {
		return uuid.Nil, false
	}
	delete(r.owner, connID)

	conns := r.byUser[userID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.byUser, userID)
		return userID, true
	}
	return userID, false
}

// ConnectionsFor returns a snapshot of the user's connections; empty for an
// offline user.
func (r *Registry) ConnectionsFor(userID uuid.UUID) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// IsOnlineString is IsOnline for string ids, as stored in Redis.
func (r *Registry) IsOnlineString(userID string) bool {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false
	}
	return r.IsOnline(id)
}

// ConnectionCount returns the number of live connections for userID.
func (r *Registry) ConnectionCount(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// Count returns the total number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owner)
}

// All returns a snapshot of every live connection.
func (r *Registry) All() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Connection, 0, len(r.owner))
	for _, conns := range r.byUser {
		for _, c := range conns {
			out = append(out, c)
		}
	}
	return out
}
