package chat

import "sync"

// Registry is the process-wide store of live connections. It doubles as the
// room membership index: a room is simply the set of connections sharing a
// room id, so a room with no connections ceases to exist.
//
// The zero Registry is not usable; construct one with NewRegistry and inject
// it into the Hub and Router. There is no ambient global instance.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	order []string // connection ids in registration order
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Register inserts or overwrites the entry for connID. Overwriting keeps the
// connection's original position in the registration order.
func (r *Registry) Register(connID, userID, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[connID]; ok {
		conn.UserID = userID
		conn.DisplayName = displayName
		return
	}
	r.conns[connID] = &Connection{
		ID:          connID,
		UserID:      userID,
		DisplayName: displayName,
		IsPresent:   true,
	}
	r.order = append(r.order, connID)
}

// UpdateRoom sets the connection's room; unknown connIDs are a no-op.
func (r *Registry) UpdateRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[connID]; ok {
		conn.RoomID = roomID
	}
}

// Lookup returns a copy of the connection for connID.
func (r *Registry) Lookup(connID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if conn, ok := r.conns[connID]; ok {
		return *conn, true
	}
	return Connection{}, false
}

// FindByUserID returns the first live connection (in registration order) for
// a user id. A user with multiple simultaneous sessions only ever resolves
// to its earliest one.
func (r *Registry) FindByUserID(userID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if conn := r.conns[id]; conn.UserID == userID {
			return *conn, true
		}
	}
	return Connection{}, false
}

// Remove deletes the entry for connID and returns it so callers can emit
// leave notifications from its last-known room. Removing an absent connID
// is a safe no-op.
func (r *Registry) Remove(connID string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return Connection{}, false
	}
	delete(r.conns, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return *conn, true
}

// MembersOf returns the room's connections in registration order.
func (r *Registry) MembersOf(roomID string) []Connection {
	if roomID == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []Connection
	for _, id := range r.order {
		if conn := r.conns[id]; conn.RoomID == roomID {
			members = append(members, *conn)
		}
	}
	return members
}

// Roster projects MembersOf for transmission.
func (r *Registry) Roster(roomID string) []RosterEntry {
	members := r.MembersOf(roomID)
	roster := make([]RosterEntry, 0, len(members))
	for _, conn := range members {
		roster = append(roster, RosterEntry{
			UserID:      conn.UserID,
			DisplayName: conn.DisplayName,
			RoomID:      conn.RoomID,
			IsPresent:   conn.IsPresent,
		})
	}
	return roster
}

// SetPresence flips the connection's presence flag and returns the updated
// projection for broadcast. Unknown connIDs report ok=false and the caller
// must skip broadcasting. Presence is independent of room membership.
func (r *Registry) SetPresence(connID string, isPresent bool) (RosterEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return RosterEntry{}, false
	}
	conn.IsPresent = isPresent
	return RosterEntry{
		UserID:      conn.UserID,
		DisplayName: conn.DisplayName,
		RoomID:      conn.RoomID,
		IsPresent:   conn.IsPresent,
	}, true
}
