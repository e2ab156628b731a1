package types

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type MessageType string

const (
	TextMessage    MessageType = "text"
	SystemMessage  MessageType = "system"
	EmojiMessage   MessageType = "emoji"
	FileMessage    MessageType = "file"
	CommandMessage MessageType = "command"
)

func (mt MessageType) Valid() bool {
	switch mt {
	case TextMessage, SystemMessage, EmojiMessage, FileMessage, CommandMessage:
		return true
	}
	return false
}

type RoomType string

const (
	PublicRoom  RoomType = "public"
	PrivateRoom RoomType = "private"
	DirectRoom  RoomType = "direct"
)

func (rt RoomType) Valid() bool {
	switch rt {
	case PublicRoom, PrivateRoom, DirectRoom:
		return true
	}
	return false
}

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusAway    UserStatus = "away"
	StatusOffline UserStatus = "offline"
	StatusBusy    UserStatus = "busy"
)

const (
	MinUsernameLen = 2
	MaxUsernameLen = 20
	MaxRoomNameLen = 30
	MaxMessageLen  = 1000
	DefaultRoomCap = 50
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type User struct {
	Id       string     `json:"id"`
	Username string     `json:"username"`
	Status   UserStatus `json:"status"`
	JoinedAt time.Time  `json:"joined_at"`
	LastSeen time.Time  `json:"last_seen"`
	Addr     string     `json:"-"`
	IsAdmin  bool       `json:"is_admin,omitempty"`
}

// NewUser derives the user's identity from its source address and chosen
// name, so reconnects from the same address map to the same record.
func NewUser(addr, username string) (User, error) {
	if err := ValidateUsername(username); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	return User{
		Id:       addr + ":" + username,
		Username: username,
		Status:   StatusOnline,
		JoinedAt: now,
		LastSeen: now,
		Addr:     addr,
	}, nil
}

func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) < MinUsernameLen {
		return &ValidationError{Field: "username", Reason: "must be at least 2 characters"}
	}
	if len(username) > MaxUsernameLen {
		return &ValidationError{Field: "username", Reason: "must be at most 20 characters"}
	}
	if !usernameRe.MatchString(username) {
		return &ValidationError{Field: "username", Reason: "may only contain letters, numbers, underscores, and hyphens"}
	}
	return nil
}

type Room struct {
	Id           string    `json:"id"`
	Name         string    `json:"name"`
	Type         RoomType  `json:"type"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	Description  string    `json:"description"`
	IsActive     bool      `json:"is_active"`
	MemberCount  int       `json:"member_count"`
	MaxMembers   int       `json:"max_members"`
	PasswordHash string    `json:"-"`
}

// NewRoom validates and constructs a room. The password is only meaningful
// for private rooms and is stored as a bcrypt hash, never in the clear.
func NewRoom(id, name string, roomType RoomType, createdBy, description, password string) (Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Room{}, &ValidationError{Field: "name", Reason: "room name is required"}
	}
	if len(name) > MaxRoomNameLen {
		return Room{}, &ValidationError{Field: "name", Reason: "must be at most 30 characters"}
	}
	if roomType == "" {
		roomType = PublicRoom
	}
	if !roomType.Valid() {
		return Room{}, &ValidationError{Field: "type", Reason: "unknown room type"}
	}

	room := Room{
		Id:          id,
		Name:        name,
		Type:        roomType,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
		Description: description,
		IsActive:    true,
		MaxMembers:  DefaultRoomCap,
	}

	if roomType == PrivateRoom && password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return Room{}, err
		}
		room.PasswordHash = string(hash)
	}

	return room, nil
}

// CheckPassword reports whether the supplied password unlocks the room.
// Rooms without a password accept everyone.
func (r Room) CheckPassword(password string) bool {
	if r.PasswordHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(password)) == nil
}

type Message struct {
	Id          string      `json:"id"`
	RoomId      string      `json:"room_id"`
	UserId      string      `json:"user_id"`
	Username    string      `json:"username"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	Timestamp   time.Time   `json:"timestamp"`
	IsEncrypted bool        `json:"is_encrypted"`
	ReplyTo     string      `json:"reply_to,omitempty"`
	FileUrl     string      `json:"file_url,omitempty"`
}

// NewMessage validates and constructs a message. Messages are immutable
// once created.
func NewMessage(roomId, userId, username, content string, msgType MessageType) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, &ValidationError{Field: "content", Reason: "message cannot be empty"}
	}
	if len(content) > MaxMessageLen {
		return Message{}, &ValidationError{Field: "content", Reason: "message too long"}
	}
	if msgType == "" {
		msgType = TextMessage
	}
	if !msgType.Valid() {
		return Message{}, &ValidationError{Field: "message_type", Reason: "unknown message type"}
	}

	return Message{
		Id:          uuid.NewString(),
		RoomId:      roomId,
		UserId:      userId,
		Username:    username,
		Content:     content,
		MessageType: msgType,
		Timestamp:   time.Now().UTC(),
		IsEncrypted: msgType == TextMessage,
	}, nil
}

// NewSystemMessage builds a system notice attributed to the server itself.
func NewSystemMessage(roomId, content string) Message {
	return Message{
		Id:          uuid.NewString(),
		RoomId:      roomId,
		UserId:      "system",
		Username:    "System",
		Content:     content,
		MessageType: SystemMessage,
		Timestamp:   time.Now().UTC(),
	}
}

type ConnectionInfo struct {
	UserId      string    `json:"user_id"`
	RoomId      string    `json:"room_id"`
	ConnectedAt time.Time `json:"connected_at"`
	LastPing    time.Time `json:"last_ping"`
	IsActive    bool      `json:"is_active"`
}
