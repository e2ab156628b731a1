package server

import (
	"encoding/json"
	"time"

	"github.com/Knighty7-ciper/cmd-chat/internal/types"
)

// Marshal helpers for the frames defined in internal/types. Encoding these
// is infallible for the value shapes used here, so the helpers return bytes
// directly.

func connectedEvent(roomId string, userCount int) []byte {
	return mustMarshal(types.ConnectedEvent{
		Type:      types.EventConnected,
		RoomId:    roomId,
		UserCount: userCount,
		Timestamp: now(),
	})
}

func messageEvent(msg types.Message) []byte {
	return mustMarshal(types.MessageEvent{
		Type:    types.EventMessage,
		Message: msg,
	})
}

func heartbeatEvent(userCount int) []byte {
	return mustMarshal(types.HeartbeatEvent{
		Type:      types.EventHeartbeat,
		UserCount: userCount,
		Timestamp: now(),
	})
}

func roomUpdateEvent(room types.Room, recent []types.Message) []byte {
	if recent == nil {
		recent = []types.Message{}
	}
	return mustMarshal(types.RoomUpdateEvent{
		Type: types.EventRoomUpdate,
		Room: types.RoomSummary{
			Id:          room.Id,
			Name:        room.Name,
			MemberCount: room.MemberCount,
		},
		RecentMessages: recent,
		Timestamp:      now(),
	})
}

func errorFrame(msg string) []byte {
	return mustMarshal(types.ErrorFrame{Error: msg})
}

func ackFrame(messageId string) []byte {
	return mustMarshal(types.AckFrame{Status: "ok", MessageId: messageId})
}

func mustMarshal(v any) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return out
}

func now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
