package rooms

import (
	"sync"

	"chatrelay/pkg/interfaces"
)

// Manager tracks which connections are members of which conversation rooms.
// Rooms are created implicitly on first join and dropped when their last
// member leaves; an empty room has no observable effect.
//
// Membership is per-connection, not per-user: a reconnecting user gets a new
// handle and must re-join explicitly.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]interfaces.Connection // roomID -> handle -> connection
	byConn map[string]map[string]struct{}              // handle -> set of roomIDs
}

// NewManager creates an empty room membership manager.
func NewManager() *Manager {
	return &Manager{
		rooms:  make(map[string]map[string]interfaces.Connection),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join adds a connection to a room, creating the room if needed. Re-joining
// an already-member connection is a no-op.
func (m *Manager) Join(roomID string, conn interfaces.Connection) {
	if conn == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rooms[roomID] == nil {
		m.rooms[roomID] = make(map[string]interfaces.Connection)
	}
	m.rooms[roomID][conn.ID()] = conn

	if m.byConn[conn.ID()] == nil {
		m.byConn[conn.ID()] = make(map[string]struct{})
	}
	m.byConn[conn.ID()][roomID] = struct{}{}
}

// Leave removes a connection from a room. Empty room and index entries are
// dropped to reclaim memory.
func (m *Manager) Leave(roomID, handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveLocked(roomID, handle)
}

// LeaveAll removes a connection from every room it belongs to. Used by
// disconnect teardown.
func (m *Manager) LeaveAll(handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for roomID := range m.byConn[handle] {
		m.leaveLocked(roomID, handle)
	}
}

func (m *Manager) leaveLocked(roomID, handle string) {
	if members, exists := m.rooms[roomID]; exists {
		delete(members, handle)
		if len(members) == 0 {
			delete(m.rooms, roomID)
		}
	}
	if joined, exists := m.byConn[handle]; exists {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(m.byConn, handle)
		}
	}
}

// MembersOf returns the current member connections of a room, possibly empty.
func (m *Manager) MembersOf(roomID string) []interfaces.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := m.rooms[roomID]
	conns := make([]interfaces.Connection, 0, len(members))
	for _, conn := range members {
		conns = append(conns, conn)
	}
	return conns
}

// IsMember reports whether a connection handle is in a room.
func (m *Manager) IsMember(roomID, handle string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.rooms[roomID][handle]
	return exists
}

// Stats returns membership counters for the health endpoint.
func (m *Manager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int{
		"active_rooms":       len(m.rooms),
		"joined_connections": len(m.byConn),
	}
}
