package server

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Knighty7-ciper/cmd-chat/internal/types"
)

// TalkSession drives one sender's channel: it registers the socket, streams
// inbound frames into the registry, and fans the results back out. A frame
// error never terminates the session; only a close request, a socket error,
// or shutdown does.
type TalkSession struct {
	reg    *Registry
	conn   *Conn
	log    *log.Logger
	user   types.User
	roomId string
}

func NewTalkSession(reg *Registry, ws *websocket.Conn, logger *log.Logger, user types.User, roomId string) *TalkSession {
	return &TalkSession{
		reg:    reg,
		conn:   newConn(ws, logger),
		log:    logger,
		user:   user,
		roomId: roomId,
	}
}

// Run blocks until the session ends. Cleanup runs on every exit path.
func (s *TalkSession) Run() {
	go s.conn.writePump()

	defer func() {
		s.reg.UnregisterConnection(s.user.Id, s.roomId, s.conn)
		s.conn.Close()
		s.log.Printf("talk session for %q ended", s.user.Username)
	}()

	s.reg.RegisterConnection(s.user.Id, s.roomId, s.conn)
	s.conn.Queue(connectedEvent(s.roomId, s.reg.MemberCount(s.roomId)))

	ws := s.conn.ws
	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("talk read: %v", err)
			}
			return
		}

		var frame types.ChatFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.conn.Queue(errorFrame("invalid JSON"))
			continue
		}

		if frame.Action == types.ActionClose {
			return
		}

		s.handleFrame(frame)
	}
}

func (s *TalkSession) handleFrame(frame types.ChatFrame) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Printf("talk: error processing message from %q: %v", s.user.Username, r)
			s.conn.Queue(errorFrame("message processing failed"))
		}
	}()

	if !s.reg.AllowMessage(s.user.Id) {
		s.conn.Queue(errorFrame("rate limit exceeded"))
		return
	}

	msg, err := types.NewMessage(s.roomId, s.user.Id, s.user.Username, frame.Text, types.TextMessage)
	if err != nil {
		s.conn.Queue(errorFrame(err.Error()))
		return
	}

	s.reg.AppendMessage(s.roomId, msg)
	s.reg.Broadcast(s.roomId, messageEvent(msg))
	s.conn.Queue(ackFrame(msg.Id))
}
