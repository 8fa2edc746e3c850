// Package realtime implements the server side of the event distribution
// layer: room membership, the fan-out hub, and the per-socket pumps.
package realtime

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TenantRoomKey returns the room key every connection of a tenant auto-joins.
func TenantRoomKey(tenantID uuid.UUID) string {
	return "tenant:" + tenantID.String()
}

// ProjectRoomKey returns the room key for a project. Keys embed the tenant so
// two tenants can never collide on a project id.
func ProjectRoomKey(tenantID, projectID uuid.UUID) string {
	return fmt.Sprintf("project:%s:%s", tenantID, projectID)
}

// Registry is the owned map from connection to room set (and its inverse).
// It holds no transport state, so fan-out logic can be exercised in tests
// with bare connections and no websocket behind them.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
	conns map[*Conn]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Conn]struct{}),
		conns: make(map[*Conn]map[string]struct{}),
	}
}

// Add joins a connection to a room.
func (r *Registry) Add(c *Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[*Conn]struct{})
	}
	r.rooms[room][c] = struct{}{}

	if r.conns[c] == nil {
		r.conns[c] = make(map[string]struct{})
	}
	r.conns[c][room] = struct{}{}
}

// RemoveConn removes a connection from every room it joined and returns the
// rooms it was in. Used on disconnect; there is no per-room leave operation.
func (r *Registry) RemoveConn(c *Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.conns[c]
	delete(r.conns, c)

	rooms := make([]string, 0, len(joined))
	for room := range joined {
		rooms = append(rooms, room)
		if members, ok := r.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	return rooms
}

// Members returns a snapshot of the connections in a room.
func (r *Registry) Members(room string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Conn, 0, len(r.rooms[room]))
	for c := range r.rooms[room] {
		members = append(members, c)
	}
	return members
}

// Rooms returns a snapshot of the rooms a connection has joined.
func (r *Registry) Rooms(c *Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.conns[c]))
	for room := range r.conns[c] {
		rooms = append(rooms, room)
	}
	return rooms
}

// InRoom reports whether the connection has joined the room.
func (r *Registry) InRoom(c *Conn, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conns[c][room]
	return ok
}

// ConnCount returns the number of tracked connections.
func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
