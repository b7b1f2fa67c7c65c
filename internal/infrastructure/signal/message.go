package signal

import (
	"encoding/json"

	"castlink/internal/core/domain"
)

// Inbound frame types (client to server). The vocabulary is closed: anything
// else is treated as malformed and dropped.
const (
	TypePing             = "ping"
	TypeCreateRoom       = "create-room"
	TypeJoinRoom         = "join-room"
	TypeLeaveRoom        = "leave-room"
	TypeGetRoomList      = "get-room-list"
	TypeBroadcasterReady = "broadcaster-ready"
	TypeViewerJoin       = "viewer-join"
	TypeOffer            = "offer"
	TypeAnswer           = "answer"
	TypeICECandidate     = "ice-candidate"
	TypeChatMessage      = "chat-message"
)

// Outbound frame types (server to client).
const (
	TypePong                 = "pong"
	TypeRoomCreated          = "room-created"
	TypeRoomJoined           = "room-joined"
	TypeRoomLeft             = "room-left"
	TypeRoomError            = "room-error"
	TypeRoomList             = "room-list"
	TypeViewerJoined         = "viewer-joined"
	TypeViewerLeft           = "viewer-left"
	TypeBroadcasterAvailable = "broadcaster-available"
	TypeBroadcasterLeft      = "broadcaster-left"
	TypeNoBroadcaster        = "no-broadcaster"
	TypeChatBroadcast        = "chat-broadcast"
)

// Envelope is the single inbound frame shape. Every field except Type is
// optional; the dispatcher picks the ones relevant to the frame kind. The
// offer, answer and candidate payloads are opaque to the server and are
// forwarded byte-for-byte.
type Envelope struct {
	Type      string          `json:"type"`
	Name      string          `json:"name,omitempty"`
	Key       string          `json:"key,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
	ViewerID  string          `json:"viewerId,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Outbound frames, one struct per kind.

type PongFrame struct {
	Type string `json:"type"`
}

type RoomCreatedFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type RoomJoinedFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type RoomLeftFrame struct {
	Type string `json:"type"`
}

type RoomErrorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type RoomListFrame struct {
	Type  string               `json:"type"`
	Rooms []domain.RoomSummary `json:"rooms"`
}

type ViewerJoinedFrame struct {
	Type     string `json:"type"`
	ViewerID string `json:"viewerId"`
}

type ViewerLeftFrame struct {
	Type     string `json:"type"`
	ViewerID string `json:"viewerId"`
}

// NotifyFrame covers the bodyless notifications: broadcaster-available,
// broadcaster-left, no-broadcaster.
type NotifyFrame struct {
	Type string `json:"type"`
}

type OfferFrame struct {
	Type  string          `json:"type"`
	Offer json.RawMessage `json:"offer"`
}

type AnswerFrame struct {
	Type     string          `json:"type"`
	ViewerID string          `json:"viewerId"`
	Answer   json.RawMessage `json:"answer"`
}

type ICECandidateFrame struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
	ViewerID  string          `json:"viewerId,omitempty"`
}

type ChatBroadcastFrame struct {
	Type      string `json:"type"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
