package services

import (
	"context"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"castlink/internal/core/domain"
	"castlink/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var roomIDPattern = regexp.MustCompile(`^room-[0-9a-f]{8}$`)

type countingNotifier struct {
	calls atomic.Int64
}

func (n *countingNotifier) RoomListChanged() {
	n.calls.Add(1)
}

func newTestService(t *testing.T, maxRooms int, grace time.Duration) *roomService {
	t.Helper()
	svc := NewRoomService(memory.NewMemoryRoomRepository(), maxRooms, grace, zap.NewNop().Sugar())
	return svc.(*roomService)
}

func TestCreateRoom_PlacesCreatorInBroadcasterSlot(t *testing.T) {
	svc := newTestService(t, 5, time.Minute)

	room, err := svc.CreateRoom(context.Background(), "client-1", "movie", "hunter2")
	require.NoError(t, err)

	assert.Regexp(t, roomIDPattern, string(room.ID))
	assert.Equal(t, "movie", room.Name)
	assert.Equal(t, domain.ClientID("client-1"), room.Broadcaster)
	assert.Empty(t, room.Viewer)
	assert.NotEmpty(t, room.KeyDigest)
	assert.NotContains(t, string(room.KeyDigest), "hunter2")
	assert.Equal(t, 1, room.Participants())
}

func TestCreateRoom_MaxRoomsCap(t *testing.T) {
	svc := newTestService(t, 2, time.Minute)

	_, err := svc.CreateRoom(context.Background(), "client-1", "one", "k")
	require.NoError(t, err)
	_, err = svc.CreateRoom(context.Background(), "client-2", "two", "k")
	require.NoError(t, err)

	_, err = svc.CreateRoom(context.Background(), "client-3", "three", "k")
	assert.ErrorIs(t, err, domain.ErrMaxRooms)
	assert.Len(t, svc.Snapshot(context.Background()), 2)
}

func TestCreateRoom_RejectsBoundCreator(t *testing.T) {
	svc := newTestService(t, 5, time.Minute)

	_, err := svc.CreateRoom(context.Background(), "client-1", "one", "k")
	require.NoError(t, err)

	_, err = svc.CreateRoom(context.Background(), "client-1", "two", "k")
	assert.ErrorIs(t, err, domain.ErrAlreadyInRoom)
}

func TestJoinRoom_RoundTrip(t *testing.T) {
	svc := newTestService(t, 5, time.Minute)

	room, err := svc.CreateRoom(context.Background(), "client-1", "movie", "hunter2")
	require.NoError(t, err)

	result, err := svc.JoinRoom(context.Background(), "client-2", room.ID, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, result.Role)
	assert.Equal(t, domain.ClientID("client-1"), result.CounterpartID)
	assert.Equal(t, domain.RoleBroadcaster, result.CounterpartRole)
	assert.True(t, result.Room.IsFull())
}

func TestJoinRoom_WrongKey(t *testing.T) {
	svc := newTestService(t, 5, time.Minute)

	room, err := svc.CreateRoom(context.Background(), "client-1", "movie", "hunter2")
	require.NoError(t, err)

	_, err = svc.JoinRoom(context.Background(), "client-2", room.ID, "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)

	// The failed attempt must not change room state.
	role, err := svc.RoleOf(context.Background(), "client-1", room.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBroadcaster, role)
	assert.Equal(t, 1, svc.Snapshot(context.Background())[0].Participants)
}

func TestJoinRoom_UnknownRoom(t *testing.T) {
	svc := newTestService(t, 5, time.Minute)

	_, err := svc.JoinRoom(context.Background(), "client-1", "room-deadbeef", "k")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestJoinRoom_RoomFull(t *testing.T) {
	svc := newTestService(t, 5, time.Minute)

	room, err := svc.CreateRoom(context.Background(), "client-1", "movie", "hunter2")
	require.NoError(t, err)
	_, err = svc.JoinRoom(context.Background(), "client-2", room.ID, "hunter2")
	require.NoError(t, err)

	_, err = svc.JoinRoom(context.Background(), "client-3", room.ID, "hunter2")
	assert.ErrorIs(t, err, domain.ErrRoomFull)
}

func TestJoinRoom_BroadcasterSlotFirst(t *testing.T) {
	svc := newTestService(t, 5, time.Minute)

	room, err := svc.CreateRoom(context.Background(), "client-1", "movie", "hunter2")
	require.NoError(t, err)
	_, err = svc.JoinRoom(context.Background(), "client-2", room.ID, "hunter2")
	require.NoError(t, err)

	// The broadcaster drops; the room is viewer-only.
	leave, err := svc.LeaveRoom(context.Background(), "client-1", room.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBroadcaster, leave.Role)
	assert.Equal(t, domain.ClientID("client-2"), leave.CounterpartID)
	assert.False(t, leave.RoomEmpty)

	// The next join takes the vacant broadcaster slot.
	result, err := svc.JoinRoom(context.Background(), "client-3", room.ID, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBroadcaster, result.Role)
	assert.Equal(t, domain.ClientID("client-2"), result.CounterpartID)
	assert.Equal(t, domain.RoleViewer, result.CounterpartRole)
}

func TestLeaveRoom_Idempotent(t *testing.T) {
	svc := newTestService(t, 5, time.Minute)

	room, err := svc.CreateRoom(context.Background(), "client-1", "movie", "hunter2")
	require.NoError(t, err)

	_, err = svc.LeaveRoom(context.Background(), "client-1", room.ID)
	require.NoError(t, err)

	_, err = svc.LeaveRoom(context.Background(), "client-1", room.ID)
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
}

func TestLeaveRoom_SchedulesCleanup(t *testing.T) {
	svc := newTestService(t, 5, 30*time.Millisecond)

	room, err := svc.CreateRoom(context.Background(), "client-1", "movie", "hunter2")
	require.NoError(t, err)

	leave, err := svc.LeaveRoom(context.Background(), "client-1", room.ID)
	require.NoError(t, err)
	assert.True(t, leave.RoomEmpty)

	assert.Eventually(t, func() bool {
		return len(svc.Snapshot(context.Background())) == 0
	}, time.Second, 5*time.Millisecond, "empty room should be destroyed after the grace period")
}

func TestJoinRoom_CancelsPendingCleanup(t *testing.T) {
	svc := newTestService(t, 5, 50*time.Millisecond)

	room, err := svc.CreateRoom(context.Background(), "client-1", "movie", "hunter2")
	require.NoError(t, err)
	_, err = svc.LeaveRoom(context.Background(), "client-1", room.ID)
	require.NoError(t, err)

	// Revive the room inside the grace period.
	result, err := svc.JoinRoom(context.Background(), "client-2", room.ID, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBroadcaster, result.Role)

	time.Sleep(150 * time.Millisecond)
	snapshot := svc.Snapshot(context.Background())
	require.Len(t, snapshot, 1, "revived room must survive the old deadline")
	assert.Equal(t, 1, snapshot[0].Participants)
}

func TestSnapshot_PublicFieldsOnly(t *testing.T) {
	svc := newTestService(t, 5, time.Minute)

	room, err := svc.CreateRoom(context.Background(), "client-1", "movie", "hunter2")
	require.NoError(t, err)
	_, err = svc.JoinRoom(context.Background(), "client-2", room.ID, "hunter2")
	require.NoError(t, err)

	snapshot := svc.Snapshot(context.Background())
	require.Len(t, snapshot, 1)
	assert.Equal(t, room.ID, snapshot[0].ID)
	assert.Equal(t, "movie", snapshot[0].Name)
	assert.Equal(t, 2, snapshot[0].Participants)
	assert.True(t, snapshot[0].IsFull)
}

func TestNotifier_FiresOnInventoryChanges(t *testing.T) {
	svc := newTestService(t, 5, 20*time.Millisecond)
	notifier := &countingNotifier{}
	svc.SetNotifier(notifier)

	room, err := svc.CreateRoom(context.Background(), "client-1", "movie", "hunter2")
	require.NoError(t, err)
	after := notifier.calls.Load()
	assert.GreaterOrEqual(t, after, int64(1))

	_, err = svc.LeaveRoom(context.Background(), "client-1", room.ID)
	require.NoError(t, err)
	assert.Greater(t, notifier.calls.Load(), after)

	// The cleanup fire counts as an inventory change too.
	before := notifier.calls.Load()
	assert.Eventually(t, func() bool {
		return notifier.calls.Load() > before
	}, time.Second, 5*time.Millisecond)
}

func TestClose_DestroysEverything(t *testing.T) {
	svc := newTestService(t, 5, time.Minute)

	_, err := svc.CreateRoom(context.Background(), "client-1", "one", "k")
	require.NoError(t, err)
	_, err = svc.CreateRoom(context.Background(), "client-2", "two", "k")
	require.NoError(t, err)

	svc.Close()
	assert.Empty(t, svc.Snapshot(context.Background()))
}

func TestHashKey_StableAndSecretFree(t *testing.T) {
	a := HashKey("hunter2")
	b := HashKey("hunter2")
	c := HashKey("hunter3")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}
