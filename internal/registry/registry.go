package registry

import (
	"sync"

	"chatrelay/pkg/interfaces"
)

// Registry is the bidirectional index between authenticated user IDs and live
// connection handles. It is owned by the relay process and never persisted.
//
// A user is modeled as having at most one active connection: registering a
// user who already has a connection silently replaces the user->connection
// mapping ("last authenticated connection wins"). The superseded connection
// is not closed; its handle keeps resolving to the user until it disconnects,
// but events addressed to the user go to the new connection. This is accepted
// behavior, not a bug.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]interfaces.Connection // userID -> connection
	byConn map[string]string                // connection handle -> userID
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]interfaces.Connection),
		byConn: make(map[string]string),
	}
}

// Register records conn as userID's active connection. Idempotent upsert;
// both views are updated under one lock so they stay mutually consistent.
func (r *Registry) Register(userID string, conn interfaces.Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUser[userID] = conn
	r.byConn[conn.ID()] = userID
}

// ConnectionForUser returns the active connection for a user.
func (r *Registry) ConnectionForUser(userID string) (interfaces.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.byUser[userID]
	return conn, exists
}

// UserForConnection returns the user a connection handle authenticated as.
func (r *Registry) UserForConnection(handle string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, exists := r.byConn[handle]
	return userID, exists
}

// Unregister removes a connection handle from both views. No-op if the handle
// is absent. The user->connection entry is only dropped when it still points
// at this handle, so an orphaned connection disconnecting later cannot evict
// the connection that superseded it.
func (r *Registry) Unregister(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, exists := r.byConn[handle]
	if !exists {
		return
	}
	delete(r.byConn, handle)

	if current, ok := r.byUser[userID]; ok && current.ID() == handle {
		delete(r.byUser, userID)
	}
}

// Connections returns every active (non-orphaned) authenticated connection,
// used for presence broadcasts.
func (r *Registry) Connections() []interfaces.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]interfaces.Connection, 0, len(r.byUser))
	for _, conn := range r.byUser {
		conns = append(conns, conn)
	}
	return conns
}

// Stats returns registry counters for the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"online_users":        len(r.byUser),
		"tracked_connections": len(r.byConn),
	}
}
