package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"castlink/internal/core/domain"
	"castlink/internal/core/ports"
	"castlink/pkg/utils"

	"go.uber.org/zap"
)

// HashKey digests an admission key. Only the digest is ever stored; the
// plaintext lives on the stack of the admission call and nowhere else.
func HashKey(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

type roomService struct {
	repo         ports.RoomRepository
	maxRooms     int
	cleanupGrace time.Duration
	logger       *zap.SugaredLogger

	mu       sync.Mutex
	bindings map[domain.ClientID]domain.RoomID
	timers   map[domain.RoomID]*time.Timer
	notifier ports.RoomListNotifier
	closed   bool
}

// NewRoomService builds the room store with a hard cap on concurrent rooms
// and a grace period before empty rooms are destroyed.
func NewRoomService(repo ports.RoomRepository, maxRooms int, cleanupGrace time.Duration, logger *zap.SugaredLogger) ports.RoomService {
	return &roomService{
		repo:         repo,
		maxRooms:     maxRooms,
		cleanupGrace: cleanupGrace,
		logger:       logger,
		bindings:     make(map[domain.ClientID]domain.RoomID),
		timers:       make(map[domain.RoomID]*time.Timer),
	}
}

func (s *roomService) SetNotifier(n ports.RoomListNotifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

func (s *roomService) CreateRoom(ctx context.Context, creator domain.ClientID, name, key string) (*domain.Room, error) {
	s.mu.Lock()

	if _, bound := s.bindings[creator]; bound {
		s.mu.Unlock()
		return nil, domain.ErrAlreadyInRoom
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to count rooms: %w", err)
	}
	if count >= s.maxRooms {
		s.mu.Unlock()
		return nil, domain.ErrMaxRooms
	}

	room := &domain.Room{
		ID:          s.freshRoomID(ctx),
		Name:        name,
		KeyDigest:   HashKey(key),
		Broadcaster: creator,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.Create(ctx, room); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	s.bindings[creator] = room.ID
	s.mu.Unlock()

	s.logger.Infow("room created", "room_id", room.ID, "client_id", creator)
	s.notifyRoomListChanged()
	return room, nil
}

// freshRoomID draws ids until one is unused. Collisions on 4 random bytes are
// effectively impossible at a 5-room cap, but the loop costs nothing.
func (s *roomService) freshRoomID(ctx context.Context) domain.RoomID {
	for {
		id := domain.RoomID(utils.GenerateRoomID())
		if _, err := s.repo.GetByID(ctx, id); err == domain.ErrRoomNotFound {
			return id
		}
	}
}

func (s *roomService) JoinRoom(ctx context.Context, client domain.ClientID, roomID domain.RoomID, key string) (*ports.JoinResult, error) {
	s.mu.Lock()

	if _, bound := s.bindings[client]; bound {
		s.mu.Unlock()
		return nil, domain.ErrAlreadyInRoom
	}

	room, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		s.mu.Unlock()
		return nil, domain.ErrRoomNotFound
	}

	if subtle.ConstantTimeCompare(HashKey(key), room.KeyDigest) != 1 {
		s.mu.Unlock()
		return nil, domain.ErrInvalidKey
	}

	role, ok := room.FirstFreeSlot()
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrRoomFull
	}

	s.cancelCleanupLocked(room)
	room.Occupy(role, client)
	s.bindings[client] = room.ID

	result := &ports.JoinResult{Room: room, Role: role}
	if counterpart, counterpartRole, ok := room.Counterpart(client); ok {
		result.CounterpartID = counterpart
		result.CounterpartRole = counterpartRole
	}
	s.mu.Unlock()

	s.logger.Infow("client joined room", "room_id", room.ID, "client_id", client, "role", role)
	s.notifyRoomListChanged()
	return result, nil
}

func (s *roomService) LeaveRoom(ctx context.Context, client domain.ClientID, roomID domain.RoomID) (*ports.LeaveResult, error) {
	s.mu.Lock()

	if bound, ok := s.bindings[client]; !ok || bound != roomID {
		s.mu.Unlock()
		return nil, domain.ErrNotInRoom
	}

	room, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		// The binding is stale; drop it and report not-in-room.
		delete(s.bindings, client)
		s.mu.Unlock()
		return nil, domain.ErrNotInRoom
	}

	result := &ports.LeaveResult{RoomID: roomID}
	if counterpart, counterpartRole, ok := room.Counterpart(client); ok {
		result.CounterpartID = counterpart
		result.CounterpartRole = counterpartRole
	}

	role, ok := room.Vacate(client)
	if !ok {
		delete(s.bindings, client)
		s.mu.Unlock()
		return nil, domain.ErrNotInRoom
	}
	result.Role = role
	delete(s.bindings, client)

	if room.IsEmpty() {
		result.RoomEmpty = true
		s.scheduleCleanupLocked(room)
	}
	s.mu.Unlock()

	s.logger.Infow("client left room", "room_id", roomID, "client_id", client, "role", role)
	s.notifyRoomListChanged()
	return result, nil
}

func (s *roomService) Counterpart(ctx context.Context, client domain.ClientID, roomID domain.RoomID) (domain.ClientID, domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		return "", "", domain.ErrRoomNotFound
	}
	if _, ok := room.SlotOf(client); !ok {
		return "", "", domain.ErrNotInRoom
	}

	counterpart, role, ok := room.Counterpart(client)
	if !ok {
		// Opposite slot vacant; relay is intentionally lossy.
		return "", "", nil
	}
	return counterpart, role, nil
}

func (s *roomService) RoleOf(ctx context.Context, client domain.ClientID, roomID domain.RoomID) (domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		return "", domain.ErrRoomNotFound
	}
	role, ok := room.SlotOf(client)
	if !ok {
		return "", domain.ErrNotInRoom
	}
	return role, nil
}

func (s *roomService) Snapshot(ctx context.Context) []domain.RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Errorw("failed to list rooms for snapshot", "error", err)
		return []domain.RoomSummary{}
	}

	summaries := make([]domain.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, room.Summary())
	}
	return summaries
}

// scheduleCleanupLocked arms the deferred destruction of an empty room.
// Caller holds s.mu.
func (s *roomService) scheduleCleanupLocked(room *domain.Room) {
	if s.closed {
		return
	}
	room.CleanupAt = time.Now().Add(s.cleanupGrace)
	id := room.ID
	s.timers[id] = time.AfterFunc(s.cleanupGrace, func() {
		s.destroyIfStillEmpty(id)
	})
}

// cancelCleanupLocked disarms a pending cleanup. Caller holds s.mu.
func (s *roomService) cancelCleanupLocked(room *domain.Room) {
	room.CleanupAt = time.Time{}
	if t, ok := s.timers[room.ID]; ok {
		t.Stop()
		delete(s.timers, room.ID)
	}
}

// destroyIfStillEmpty runs when a cleanup deadline fires. A join racing the
// fire wins: it clears CleanupAt under the lock, so the fire observes the
// room as revived and does nothing.
func (s *roomService) destroyIfStillEmpty(id domain.RoomID) {
	s.mu.Lock()
	room, err := s.repo.GetByID(context.Background(), id)
	if err != nil || !room.IsEmpty() || room.CleanupAt.IsZero() {
		s.mu.Unlock()
		return
	}
	if err := s.repo.Delete(context.Background(), id); err != nil {
		s.logger.Errorw("failed to destroy room", "room_id", id, "error", err)
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.mu.Unlock()

	s.logger.Infow("empty room destroyed", "room_id", id)
	s.notifyRoomListChanged()
}

func (s *roomService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}

	rooms, err := s.repo.List(context.Background())
	if err == nil {
		for _, room := range rooms {
			s.repo.Delete(context.Background(), room.ID)
		}
	}
	s.bindings = make(map[domain.ClientID]domain.RoomID)
	s.mu.Unlock()
}

func (s *roomService) notifyRoomListChanged() {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	if n != nil {
		n.RoomListChanged()
	}
}
