package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"castlink/internal/core/domain"
	"castlink/internal/core/ports"
	"castlink/internal/infrastructure/monitoring"
	apperrors "castlink/pkg/errors"
	"castlink/pkg/tracing"
	"castlink/pkg/utils"
	"castlink/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // rooms are key-protected; origin policy is left to the deployment
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Options carries the transport tunables from configuration.
type Options struct {
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBufferSize int

	RateLimitEnabled  bool
	MessagesPerSecond float64
	Burst             int
	MaxMessageSize    int64
}

// WebSocketServer is the transport layer, the connection registry and the
// frame dispatcher in one: it accepts duplex text-frame connections, mints
// client ids, and routes every inbound frame through the room service.
type WebSocketServer struct {
	svc     ports.RoomService
	metrics *monitoring.PrometheusCollector
	opts    Options
	logger  *zap.SugaredLogger

	clients map[domain.ClientID]*Client
	mu      sync.RWMutex
	nextID  atomic.Uint64
	wg      sync.WaitGroup
}

func NewWebSocketServer(svc ports.RoomService, metrics *monitoring.PrometheusCollector, opts Options, logger *zap.SugaredLogger) *WebSocketServer {
	s := &WebSocketServer{
		svc:     svc,
		metrics: metrics,
		opts:    opts,
		logger:  logger,
		clients: make(map[domain.ClientID]*Client),
	}
	svc.SetNotifier(s)
	return s
}

// HandleWebSocket upgrades the request and runs the connection's read loop.
func (s *WebSocketServer) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(
		domain.ClientID(utils.FormatClientID(s.nextID.Add(1))),
		uuid.NewString(),
		conn,
		s.opts.SendBufferSize,
		s.opts.WriteTimeout,
		s.opts.PongTimeout,
		s.logger,
	)

	s.register(client)
	defer s.unregister(client)

	s.wg.Add(1)
	defer s.wg.Done()

	go client.writePump()

	// New clients receive the current room inventory immediately.
	client.enqueue(s.roomListFrame())

	s.readLoop(client)
}

func (s *WebSocketServer) register(client *Client) {
	s.mu.Lock()
	s.clients[client.ID] = client
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ConnectionOpened()
	}
	client.logger.Infow("client connected")
}

// unregister runs the transport-close path: the registry entry goes away and
// the leave sequence runs unconditionally.
func (s *WebSocketServer) unregister(client *Client) {
	s.mu.Lock()
	delete(s.clients, client.ID)
	s.mu.Unlock()

	s.leave(client)
	client.closeSend()

	if s.metrics != nil {
		s.metrics.ConnectionClosed()
	}
	client.logger.Infow("client disconnected")
}

func (s *WebSocketServer) readLoop(client *Client) {
	conn := client.conn
	if s.opts.RateLimitEnabled && s.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(s.opts.MaxMessageSize)
	}
	conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	var limiter *rate.Limiter
	if s.opts.RateLimitEnabled {
		limiter = rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.Burst)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				client.logger.Infow("read failed", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		if limiter != nil && !limiter.Allow() {
			client.logger.Warnw("message rate limit exceeded, dropping frame")
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			// Malformed frames are logged and discarded, never fatal.
			client.logger.Warnw("malformed frame discarded", "error", err)
			continue
		}

		s.dispatch(client, &env)
	}
}

// dispatch routes one inbound frame. The vocabulary is closed; unknown types
// fall through to the malformed case.
func (s *WebSocketServer) dispatch(client *Client, env *Envelope) {
	ctx, span := tracing.TraceSignalFrame(context.Background(), env.Type, string(client.ID))
	defer span.End()

	if s.metrics != nil {
		s.metrics.FrameReceived(env.Type)
	}

	switch env.Type {
	case TypePing:
		client.enqueue(PongFrame{Type: TypePong})

	case TypeCreateRoom:
		s.handleCreateRoom(ctx, client, env)

	case TypeJoinRoom:
		s.handleJoinRoom(ctx, client, env)

	case TypeLeaveRoom:
		if s.leave(client) {
			client.enqueue(RoomLeftFrame{Type: TypeRoomLeft})
		}

	case TypeGetRoomList:
		client.enqueue(s.roomListFrame())

	case TypeBroadcasterReady:
		s.handleBroadcasterReady(ctx, client)

	case TypeViewerJoin:
		s.handleViewerJoin(ctx, client)

	case TypeOffer:
		s.handleOffer(ctx, client, env)

	case TypeAnswer:
		s.handleAnswer(ctx, client, env)

	case TypeICECandidate:
		s.handleICECandidate(ctx, client, env)

	case TypeChatMessage:
		s.handleChatMessage(ctx, client, env)

	default:
		client.logger.Warnw("unknown frame type discarded", "frame_type", env.Type)
	}
}

func (s *WebSocketServer) handleCreateRoom(ctx context.Context, client *Client, env *Envelope) {
	if err := validation.ValidateRoomName(env.Name); err != nil {
		client.logger.Warnw("create-room discarded", "error", err)
		return
	}
	if err := validation.ValidateRoomKey(env.Key); err != nil {
		client.logger.Warnw("create-room discarded", "error", err)
		return
	}

	room, err := s.svc.CreateRoom(ctx, client.ID, env.Name, env.Key)
	if err != nil {
		s.sendRoomError(ctx, client, err)
		return
	}

	client.roomID = room.ID
	client.role = domain.RoleBroadcaster
	client.enqueue(RoomCreatedFrame{
		Type:   TypeRoomCreated,
		RoomID: string(room.ID),
		Name:   room.Name,
		Role:   string(domain.RoleBroadcaster),
	})
}

func (s *WebSocketServer) handleJoinRoom(ctx context.Context, client *Client, env *Envelope) {
	if err := validation.ValidateRoomID(env.RoomID); err != nil {
		s.sendRoomError(ctx, client, domain.ErrRoomNotFound)
		return
	}
	if err := validation.ValidateRoomKey(env.Key); err != nil {
		s.sendRoomError(ctx, client, domain.ErrInvalidKey)
		return
	}

	result, err := s.svc.JoinRoom(ctx, client.ID, domain.RoomID(env.RoomID), env.Key)
	if err != nil {
		s.sendRoomError(ctx, client, err)
		return
	}

	client.roomID = result.Room.ID
	client.role = result.Role
	client.enqueue(RoomJoinedFrame{
		Type:   TypeRoomJoined,
		RoomID: string(result.Room.ID),
		Name:   result.Room.Name,
		Role:   string(result.Role),
	})

	if result.CounterpartID == "" {
		return
	}
	switch result.Role {
	case domain.RoleViewer:
		s.sendTo(result.CounterpartID, ViewerJoinedFrame{Type: TypeViewerJoined, ViewerID: string(client.ID)})
	case domain.RoleBroadcaster:
		s.sendTo(result.CounterpartID, NotifyFrame{Type: TypeBroadcasterAvailable})
	}
}

// leave vacates the client's slot and notifies the counterpart. It reports
// whether any state actually changed, which keeps leave-room idempotent.
func (s *WebSocketServer) leave(client *Client) bool {
	if client.roomID == "" {
		return false
	}

	result, err := s.svc.LeaveRoom(context.Background(), client.ID, client.roomID)
	client.roomID = ""
	client.role = ""
	if err != nil {
		return false
	}

	if result.CounterpartID != "" {
		switch result.Role {
		case domain.RoleBroadcaster:
			s.sendTo(result.CounterpartID, NotifyFrame{Type: TypeBroadcasterLeft})
		case domain.RoleViewer:
			s.sendTo(result.CounterpartID, ViewerLeftFrame{Type: TypeViewerLeft, ViewerID: string(client.ID)})
		}
	}
	return true
}

// handleBroadcasterReady lets a broadcaster re-trigger its offer path after a
// restart: if a viewer is already present, the broadcaster gets the same
// viewer-joined it would have seen on the original join.
func (s *WebSocketServer) handleBroadcasterReady(ctx context.Context, client *Client) {
	if client.roomID == "" || client.role != domain.RoleBroadcaster {
		client.logger.Debugw("broadcaster-ready from non-broadcaster discarded")
		return
	}
	counterpart, _, err := s.svc.Counterpart(ctx, client.ID, client.roomID)
	if err != nil || counterpart == "" {
		return
	}
	client.enqueue(ViewerJoinedFrame{Type: TypeViewerJoined, ViewerID: string(counterpart)})
}

// handleViewerJoin re-notifies the broadcaster that this viewer is waiting,
// or tells the viewer nobody is broadcasting yet.
func (s *WebSocketServer) handleViewerJoin(ctx context.Context, client *Client) {
	if client.roomID == "" || client.role != domain.RoleViewer {
		client.logger.Debugw("viewer-join from non-viewer discarded")
		return
	}
	counterpart, _, err := s.svc.Counterpart(ctx, client.ID, client.roomID)
	if err != nil {
		return
	}
	if counterpart == "" {
		client.enqueue(NotifyFrame{Type: TypeNoBroadcaster})
		return
	}
	s.sendTo(counterpart, ViewerJoinedFrame{Type: TypeViewerJoined, ViewerID: string(client.ID)})
}

func (s *WebSocketServer) handleOffer(ctx context.Context, client *Client, env *Envelope) {
	if client.roomID == "" || client.role != domain.RoleBroadcaster || len(env.Offer) == 0 {
		client.logger.Debugw("offer discarded")
		return
	}
	counterpart, _, err := s.svc.Counterpart(ctx, client.ID, client.roomID)
	if err != nil || counterpart == "" {
		return
	}
	// The viewer id is stripped on delivery to the viewer; the payload itself
	// is forwarded untouched.
	s.sendTo(counterpart, OfferFrame{Type: TypeOffer, Offer: env.Offer})
	if s.metrics != nil {
		s.metrics.FrameRelayed(TypeOffer)
	}
}

func (s *WebSocketServer) handleAnswer(ctx context.Context, client *Client, env *Envelope) {
	if client.roomID == "" || client.role != domain.RoleViewer || len(env.Answer) == 0 {
		client.logger.Debugw("answer discarded")
		return
	}
	counterpart, _, err := s.svc.Counterpart(ctx, client.ID, client.roomID)
	if err != nil || counterpart == "" {
		return
	}
	// The broadcaster addresses viewers by id, so the sender's id rides along.
	s.sendTo(counterpart, AnswerFrame{Type: TypeAnswer, ViewerID: string(client.ID), Answer: env.Answer})
	if s.metrics != nil {
		s.metrics.FrameRelayed(TypeAnswer)
	}
}

func (s *WebSocketServer) handleICECandidate(ctx context.Context, client *Client, env *Envelope) {
	if client.roomID == "" || len(env.Candidate) == 0 {
		client.logger.Debugw("ice-candidate discarded")
		return
	}
	counterpart, _, err := s.svc.Counterpart(ctx, client.ID, client.roomID)
	if err != nil || counterpart == "" {
		return
	}

	frame := ICECandidateFrame{Type: TypeICECandidate, Candidate: env.Candidate}
	if client.role == domain.RoleViewer {
		frame.ViewerID = string(client.ID)
	}
	s.sendTo(counterpart, frame)
	if s.metrics != nil {
		s.metrics.FrameRelayed(TypeICECandidate)
	}
}

func (s *WebSocketServer) handleChatMessage(ctx context.Context, client *Client, env *Envelope) {
	if client.roomID == "" {
		client.logger.Debugw("chat-message from unbound connection discarded")
		return
	}
	if err := validation.ValidateChatMessage(env.Message); err != nil {
		client.logger.Warnw("chat-message discarded", "error", err)
		return
	}
	counterpart, _, err := s.svc.Counterpart(ctx, client.ID, client.roomID)
	if err != nil || counterpart == "" {
		return
	}

	// The sender is identified by the slot it occupies, never by anything in
	// the incoming frame.
	s.sendTo(counterpart, ChatBroadcastFrame{
		Type:      TypeChatBroadcast,
		Sender:    string(client.role),
		Message:   env.Message,
		Timestamp: time.Now().UnixMilli(),
	})
	if s.metrics != nil {
		s.metrics.FrameRelayed(TypeChatMessage)
	}
}

// sendRoomError maps a service error onto a room-error frame. The connection
// stays open; admission failures are never fatal.
func (s *WebSocketServer) sendRoomError(ctx context.Context, client *Client, err error) {
	var appErr *apperrors.AppError
	switch err {
	case domain.ErrRoomNotFound:
		appErr = apperrors.NewRoomNotFoundError()
	case domain.ErrInvalidKey:
		appErr = apperrors.NewInvalidKeyError()
	case domain.ErrRoomFull:
		appErr = apperrors.NewRoomFullError()
	case domain.ErrAlreadyInRoom:
		appErr = apperrors.NewAlreadyInRoomError()
	case domain.ErrMaxRooms:
		appErr = apperrors.NewMaxRoomsError(len(s.svc.Snapshot(ctx)))
	default:
		appErr = apperrors.NewInternalError("internal error")
		client.logger.Errorw("unexpected service error", "error", err)
	}

	tracing.RecordError(ctx, appErr)
	if s.metrics != nil {
		s.metrics.AdmissionFailure(string(appErr.Code))
	}
	client.enqueue(RoomErrorFrame{Type: TypeRoomError, Code: string(appErr.Code), Error: appErr.Message})
}

func (s *WebSocketServer) sendTo(id domain.ClientID, frame interface{}) {
	s.mu.RLock()
	client, ok := s.clients[id]
	s.mu.RUnlock()
	if !ok {
		// The transport's closed event is the authoritative cleanup trigger;
		// until it lands, writes to a vanished peer are simply dropped.
		return
	}
	client.enqueue(frame)
}

func (s *WebSocketServer) roomListFrame() RoomListFrame {
	snapshot := s.svc.Snapshot(context.Background())
	if s.metrics != nil {
		s.metrics.SetRoomsActive(len(snapshot))
	}
	return RoomListFrame{Type: TypeRoomList, Rooms: snapshot}
}

// RoomListChanged implements ports.RoomListNotifier: every inventory change
// pushes a fresh snapshot to every connected client.
func (s *WebSocketServer) RoomListChanged() {
	frame := s.roomListFrame()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		client.enqueue(frame)
	}
}

// ConnectionCount reports the number of live connections, for health checks.
func (s *WebSocketServer) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// CloseAll tears down every live connection and waits for their handlers to
// finish. Each close runs the ordinary leave path.
func (s *WebSocketServer) CloseAll() {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		client.conn.Close()
	}
	s.wg.Wait()
}
