package runtime

import (
	"testing"

	"chat-presence/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRoomRegistry_Join_CreatesRoomAndMember(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	conn := domain.ConnID(uuid.NewString())

	// When a user joins an unknown room
	registry.Join("r1", "alice", conn)

	// Then the room and the member entry exist
	req.True(registry.Exists("r1"))
	req.Equal([]domain.UserID{"alice"}, registry.MemberIDs("r1"))
	req.Equal([]domain.ConnID{conn}, registry.MembersOf("r1")["alice"])
}

func TestRoomRegistry_JoinLeave_RoundTripRestoresPriorState(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	conn := domain.ConnID(uuid.NewString())

	// Given the room did not exist
	req.False(registry.Exists("r1"))

	// When a join is followed by the matching leave
	registry.Join("r1", "alice", conn)
	changed, roomExists := registry.Leave("r1", "alice", conn)

	// Then the registry is back to its exact prior state
	req.True(changed)
	req.False(roomExists)
	req.False(registry.Exists("r1"))
	req.Empty(registry.RoomIDs())
}

func TestRoomRegistry_JoinLeave_RoundTripKeepsOtherMembers(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	connAlice := domain.ConnID(uuid.NewString())
	connBob := domain.ConnID(uuid.NewString())

	registry.Join("r1", "alice", connAlice)

	// When bob joins and leaves again
	registry.Join("r1", "bob", connBob)
	changed, roomExists := registry.Leave("r1", "bob", connBob)

	// Then the prior membership is unchanged
	req.True(changed)
	req.True(roomExists)
	req.Equal([]domain.UserID{"alice"}, registry.MemberIDs("r1"))
}

func TestRoomRegistry_Leave_UnknownPair_NoChange(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	conn := domain.ConnID(uuid.NewString())
	registry.Join("r1", "alice", conn)

	// When leaving with a connection that never joined
	changed, roomExists := registry.Leave("r1", "alice", domain.ConnID(uuid.NewString()))

	req.False(changed)
	req.True(roomExists)
	req.Equal([]domain.ConnID{conn}, registry.MembersOf("r1")["alice"])

	// And leaving an unknown room is a plain no-op
	changed, roomExists = registry.Leave("ghost", "alice", conn)
	req.False(changed)
	req.False(roomExists)
}

func TestRoomRegistry_Leave_LastConnectionPrunesUser(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	conn1 := domain.ConnID(uuid.NewString())
	conn2 := domain.ConnID(uuid.NewString())

	// Given alice subscribed twice and bob once
	registry.Join("r1", "alice", conn1)
	registry.Join("r1", "alice", conn2)
	registry.Join("r1", "bob", domain.ConnID(uuid.NewString()))

	// When alice's devices leave one by one
	registry.Leave("r1", "alice", conn1)
	req.Contains(registry.MemberIDs("r1"), domain.UserID("alice"))

	registry.Leave("r1", "alice", conn2)

	// Then no empty alice entry is left behind
	req.Equal([]domain.UserID{"bob"}, registry.MemberIDs("r1"))
}

func TestRoomRegistry_RemoveConnection_TargetedCleanup(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	conn := domain.ConnID(uuid.NewString())
	other := domain.ConnID(uuid.NewString())

	// Given one connection in two rooms, another in a third
	registry.Join("r1", "alice", conn)
	registry.Join("r2", "alice", conn)
	registry.Join("r2", "bob", other)
	registry.Join("r3", "bob", other)

	// When the connection goes away
	affected := registry.RemoveConnection(conn)

	// Then only the rooms it was in are reported
	req.Equal([]domain.RoomID{"r1", "r2"}, affected)

	// And pruning respects both invariants
	req.False(registry.Exists("r1"))
	req.Equal([]domain.UserID{"bob"}, registry.MemberIDs("r2"))
	req.True(registry.Exists("r3"))
}

func TestRoomRegistry_RemoveConnection_UnknownConn_NoRoomsAffected(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	registry.Join("r1", "alice", domain.ConnID(uuid.NewString()))

	affected := registry.RemoveConnection(domain.ConnID(uuid.NewString()))

	req.Empty(affected)
	req.True(registry.Exists("r1"))
}
