package types

import "time"

// Event type discriminators for server-to-client frames.
const (
	EventConnected  = "connected"
	EventMessage    = "message"
	EventHeartbeat  = "heartbeat"
	EventRoomUpdate = "room_update"
)

// ActionClose is the client's request to end a talk channel cleanly.
const ActionClose = "close"

// ChatFrame is the client-to-server frame on the talk channel. Text carries
// the encrypted payload.
type ChatFrame struct {
	Action    string `json:"action,omitempty"`
	Text      string `json:"text,omitempty"`
	Username  string `json:"username,omitempty"`
	RoomId    string `json:"room_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type ConnectedEvent struct {
	Type      string    `json:"type"`
	RoomId    string    `json:"room_id"`
	UserCount int       `json:"user_count"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

type HeartbeatEvent struct {
	Type      string    `json:"type"`
	UserCount int       `json:"user_count"`
	Timestamp time.Time `json:"timestamp"`
}

type RoomSummary struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

type RoomUpdateEvent struct {
	Type           string      `json:"type"`
	Room           RoomSummary `json:"room"`
	RecentMessages []Message   `json:"recent_messages"`
	Timestamp      time.Time   `json:"timestamp"`
}

// ErrorFrame is an inline, non-fatal error on either channel.
type ErrorFrame struct {
	Error string `json:"error"`
}

// AckFrame confirms a stored message back to its sender only.
type AckFrame struct {
	Status    string `json:"status"`
	MessageId string `json:"message_id"`
}
