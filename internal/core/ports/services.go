package ports

import (
	"context"

	"castlink/internal/core/domain"
)

// JoinResult reports the outcome of a successful join: the slot taken and the
// counterpart already present, if any.
type JoinResult struct {
	Room            *domain.Room
	Role            domain.Role
	CounterpartID   domain.ClientID // empty when the opposite slot is vacant
	CounterpartRole domain.Role
}

// LeaveResult reports the outcome of a leave: the slot cleared and the
// counterpart left behind, if any.
type LeaveResult struct {
	RoomID          domain.RoomID
	Role            domain.Role
	CounterpartID   domain.ClientID
	CounterpartRole domain.Role
	RoomEmpty       bool // both slots vacant; a deferred cleanup has been scheduled
}

// RoomService is the authoritative room store plus the per-room state machine:
// admission by key digest, slot assignment, deferred cleanup of empty rooms.
// All operations on the same room are mutually atomic.
type RoomService interface {
	// CreateRoom allocates a room, stores the key digest and places the
	// creator in the broadcaster slot. Fails with domain.ErrMaxRooms when the
	// cap is reached and domain.ErrAlreadyInRoom when the creator is bound.
	CreateRoom(ctx context.Context, creator domain.ClientID, name, key string) (*domain.Room, error)

	// JoinRoom admits a connection into the first free slot (broadcaster
	// first, then viewer) after checking the key digest, and cancels any
	// pending cleanup.
	JoinRoom(ctx context.Context, client domain.ClientID, roomID domain.RoomID, key string) (*JoinResult, error)

	// LeaveRoom vacates the client's slot. Fails with domain.ErrNotInRoom when
	// the client does not occupy a slot in the room; callers treat that as a
	// no-op to keep leave idempotent.
	LeaveRoom(ctx context.Context, client domain.ClientID, roomID domain.RoomID) (*LeaveResult, error)

	// Counterpart resolves the opposite slot of the client's room for relay.
	Counterpart(ctx context.Context, client domain.ClientID, roomID domain.RoomID) (domain.ClientID, domain.Role, error)

	// RoleOf reports the slot the client occupies in the room.
	RoleOf(ctx context.Context, client domain.ClientID, roomID domain.RoomID) (domain.Role, error)

	// Snapshot returns the public room-list summary, sorted by creation time.
	Snapshot(ctx context.Context) []domain.RoomSummary

	// SetNotifier registers the listener invoked after inventory changes.
	SetNotifier(n RoomListNotifier)

	// Close cancels all cleanup timers and destroys every room.
	Close()
}

// RoomListNotifier is invoked after any event that changes the room
// inventory: create, destroy, join, leave, cleanup fire.
type RoomListNotifier interface {
	RoomListChanged()
}
