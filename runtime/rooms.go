package runtime

import (
	"sort"
	"sync"

	"chat-presence/domain"

	"github.com/samber/lo"
)

// RoomRegistry maps a room to a per-user set of connections currently
// subscribed to it. Invariants: a room exists iff it has at least one member
// user, and every member's connection set is non-empty. Leaving an empty
// user entry behind is a defect.
//
// A reverse index from connection id to the rooms it joined keeps disconnect
// cleanup proportional to the rooms the connection was actually in instead
// of the whole registry.
type RoomRegistry struct {
	mu        sync.RWMutex
	rooms     map[domain.RoomID]map[domain.UserID]connSet
	connRooms map[domain.ConnID]map[domain.RoomID]struct{}
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:     make(map[domain.RoomID]map[domain.UserID]connSet),
		connRooms: make(map[domain.ConnID]map[domain.RoomID]struct{}),
	}
}

// Join ensures room and user entries exist and adds conn to the user's set.
func (r *RoomRegistry) Join(room domain.RoomID, user domain.UserID, conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[domain.UserID]connSet)
	}
	if _, ok := r.rooms[room][user]; !ok {
		r.rooms[room][user] = make(connSet)
	}
	r.rooms[room][user][conn] = struct{}{}

	if _, ok := r.connRooms[conn]; !ok {
		r.connRooms[conn] = make(map[domain.RoomID]struct{})
	}
	r.connRooms[conn][room] = struct{}{}
}

// Leave removes conn from user's set within room. An empty user entry is
// deleted, and a room whose table becomes empty is removed entirely.
// Returns whether the pair was present, and whether the room still exists
// afterwards.
func (r *RoomRegistry) Leave(room domain.RoomID, user domain.UserID, conn domain.ConnID) (changed, roomExists bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return false, false
	}
	conns, ok := members[user]
	if !ok {
		return false, true
	}
	if _, ok := conns[conn]; !ok {
		return false, true
	}

	delete(conns, conn)
	if len(conns) == 0 {
		delete(members, user)
	}
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	r.dropFromIndex(conn, room, members)

	_, roomExists = r.rooms[room]
	return true, roomExists
}

// dropFromIndex removes room from conn's reverse index once conn no longer
// holds any subscription in that room. Caller holds the write lock.
func (r *RoomRegistry) dropFromIndex(conn domain.ConnID, room domain.RoomID, members map[domain.UserID]connSet) {
	for _, conns := range members {
		if _, ok := conns[conn]; ok {
			return
		}
	}
	if rooms, ok := r.connRooms[conn]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.connRooms, conn)
		}
	}
}

// RemoveConnection strips conn from every room it joined, pruning empty
// user entries and empty rooms. Returns the ids of the affected rooms so the
// caller can re-broadcast member lists to the survivors.
func (r *RoomRegistry) RemoveConnection(conn domain.ConnID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomIDs := lo.Keys(r.connRooms[conn])
	for _, room := range roomIDs {
		members, ok := r.rooms[room]
		if !ok {
			continue
		}
		for user, conns := range members {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(members, user)
			}
		}
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	delete(r.connRooms, conn)

	sort.Slice(roomIDs, func(i, j int) bool { return roomIDs[i] < roomIDs[j] })
	return roomIDs
}

// Exists reports whether room has at least one member.
func (r *RoomRegistry) Exists(room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[room]
	return ok
}

// MembersOf returns a copy of room's membership table. Returns nil for an
// unknown room.
func (r *RoomRegistry) MembersOf(room domain.RoomID) map[domain.UserID][]domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	out := make(map[domain.UserID][]domain.ConnID, len(members))
	for user, conns := range members {
		out[user] = lo.Keys(conns)
	}
	return out
}

// RoomIDs returns every room currently known, sorted.
func (r *RoomRegistry) RoomIDs() []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := lo.Keys(r.rooms)
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// MemberIDs returns room's member user ids, sorted for deterministic
// broadcasts.
func (r *RoomRegistry) MemberIDs(room domain.RoomID) []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := lo.Keys(r.rooms[room])
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}
