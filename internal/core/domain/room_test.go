package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoom_SlotAccounting(t *testing.T) {
	room := &Room{ID: "room-abcd1234"}
	assert.True(t, room.IsEmpty())
	assert.Equal(t, 0, room.Participants())

	role, free := room.FirstFreeSlot()
	assert.True(t, free)
	assert.Equal(t, RoleBroadcaster, role)

	room.Occupy(RoleBroadcaster, "client-1")
	assert.Equal(t, 1, room.Participants())
	assert.False(t, room.IsFull())

	role, free = room.FirstFreeSlot()
	assert.True(t, free)
	assert.Equal(t, RoleViewer, role)

	room.Occupy(RoleViewer, "client-2")
	assert.True(t, room.IsFull())
	assert.Equal(t, 2, room.Participants())

	_, free = room.FirstFreeSlot()
	assert.False(t, free)
}

func TestRoom_Counterpart(t *testing.T) {
	room := &Room{ID: "room-abcd1234", Broadcaster: "client-1", Viewer: "client-2"}

	id, role, ok := room.Counterpart("client-1")
	assert.True(t, ok)
	assert.Equal(t, ClientID("client-2"), id)
	assert.Equal(t, RoleViewer, role)

	id, role, ok = room.Counterpart("client-2")
	assert.True(t, ok)
	assert.Equal(t, ClientID("client-1"), id)
	assert.Equal(t, RoleBroadcaster, role)

	_, _, ok = room.Counterpart("client-3")
	assert.False(t, ok, "a stranger has no counterpart")

	room.Viewer = ""
	_, _, ok = room.Counterpart("client-1")
	assert.False(t, ok, "vacant opposite slot yields no counterpart")
}

func TestRoom_Vacate(t *testing.T) {
	room := &Room{ID: "room-abcd1234", Broadcaster: "client-1", Viewer: "client-2"}

	role, ok := room.Vacate("client-1")
	assert.True(t, ok)
	assert.Equal(t, RoleBroadcaster, role)
	assert.Empty(t, room.Broadcaster)
	assert.Equal(t, ClientID("client-2"), room.Viewer)

	_, ok = room.Vacate("client-1")
	assert.False(t, ok, "vacate is idempotent")

	role, ok = room.Vacate("client-2")
	assert.True(t, ok)
	assert.Equal(t, RoleViewer, role)
	assert.True(t, room.IsEmpty())
}

func TestRoom_Summary(t *testing.T) {
	room := &Room{ID: "room-abcd1234", Name: "movie", Broadcaster: "client-1"}

	summary := room.Summary()
	assert.Equal(t, RoomID("room-abcd1234"), summary.ID)
	assert.Equal(t, "movie", summary.Name)
	assert.Equal(t, 1, summary.Participants)
	assert.False(t, summary.IsFull)
}
