package domain

import "time"

type RoomID string

// ClientID is the server-assigned opaque label for one live connection,
// unique for the lifetime of the process.
type ClientID string

// Role names one of the two slots in a room.
type Role string

const (
	RoleBroadcaster Role = "broadcaster"
	RoleViewer      Role = "viewer"
)

// Room is a pairing context: a display name, a digest of the admission key and
// two slots. Slots hold connection labels only; the transport owns the
// connections themselves. The zero ClientID means the slot is vacant.
type Room struct {
	ID        RoomID
	Name      string
	KeyDigest []byte // SHA-256 of the admission key, set at creation, immutable

	Broadcaster ClientID
	Viewer      ClientID

	CreatedAt time.Time
	CleanupAt time.Time // zero unless a deferred cleanup is pending
}

// RoomSummary is the public shape of a room in room-list snapshots.
// It carries no secrets and no connection identities.
type RoomSummary struct {
	ID           RoomID `json:"id"`
	Name         string `json:"name"`
	Participants int    `json:"participants"`
	IsFull       bool   `json:"isFull"`
}

func (r *Room) Participants() int {
	n := 0
	if r.Broadcaster != "" {
		n++
	}
	if r.Viewer != "" {
		n++
	}
	return n
}

func (r *Room) IsFull() bool {
	return r.Broadcaster != "" && r.Viewer != ""
}

func (r *Room) IsEmpty() bool {
	return r.Broadcaster == "" && r.Viewer == ""
}

// SlotOf reports which slot the given connection occupies, if any.
func (r *Room) SlotOf(c ClientID) (Role, bool) {
	switch {
	case c != "" && r.Broadcaster == c:
		return RoleBroadcaster, true
	case c != "" && r.Viewer == c:
		return RoleViewer, true
	}
	return "", false
}

// Counterpart returns the occupant of the opposite slot relative to c.
func (r *Room) Counterpart(c ClientID) (ClientID, Role, bool) {
	role, ok := r.SlotOf(c)
	if !ok {
		return "", "", false
	}
	if role == RoleBroadcaster {
		if r.Viewer == "" {
			return "", "", false
		}
		return r.Viewer, RoleViewer, true
	}
	if r.Broadcaster == "" {
		return "", "", false
	}
	return r.Broadcaster, RoleBroadcaster, true
}

// FirstFreeSlot returns the slot a joining connection would take:
// broadcaster first, then viewer.
func (r *Room) FirstFreeSlot() (Role, bool) {
	if r.Broadcaster == "" {
		return RoleBroadcaster, true
	}
	if r.Viewer == "" {
		return RoleViewer, true
	}
	return "", false
}

// Occupy binds c to the given slot.
func (r *Room) Occupy(role Role, c ClientID) {
	if role == RoleBroadcaster {
		r.Broadcaster = c
		return
	}
	r.Viewer = c
}

// Vacate clears whichever slot c occupies and reports the cleared role.
func (r *Room) Vacate(c ClientID) (Role, bool) {
	role, ok := r.SlotOf(c)
	if !ok {
		return "", false
	}
	if role == RoleBroadcaster {
		r.Broadcaster = ""
	} else {
		r.Viewer = ""
	}
	return role, true
}

// Summary builds the public snapshot entry for this room.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:           r.ID,
		Name:         r.Name,
		Participants: r.Participants(),
		IsFull:       r.IsFull(),
	}
}
