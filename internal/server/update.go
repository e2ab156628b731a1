package server

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const snapshotSize = 50

// UpdateSession drives one subscriber's snapshot/heartbeat channel: a
// single room_update on subscribe, then a heartbeat with the live member
// count on a fixed interval until the peer goes away or a send fails.
type UpdateSession struct {
	reg      *Registry
	conn     *Conn
	log      *log.Logger
	roomId   string
	interval time.Duration
}

func NewUpdateSession(reg *Registry, ws *websocket.Conn, logger *log.Logger, roomId string, interval time.Duration) *UpdateSession {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &UpdateSession{
		reg:      reg,
		conn:     newConn(ws, logger),
		log:      logger,
		roomId:   roomId,
		interval: interval,
	}
}

// Run blocks until the session ends; the subscription is removed on every
// exit path.
func (s *UpdateSession) Run() {
	go s.conn.writePump()

	defer func() {
		s.reg.Unsubscribe(s.roomId, s.conn)
		s.conn.Close()
		s.log.Printf("update session for room %q ended", s.roomId)
	}()

	s.reg.Subscribe(s.roomId, s.conn)

	room, ok := s.reg.Room(s.roomId)
	if !ok {
		return
	}
	s.conn.Queue(roomUpdateEvent(room, s.reg.RecentMessages(s.roomId, snapshotSize)))

	// reader goroutine: processes control frames and notices the peer
	// closing the socket
	readClosed := make(chan struct{})
	go func() {
		defer close(readClosed)
		ws := s.conn.ws
		ws.SetReadLimit(maxMessageSize)
		ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			ws.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// first heartbeat goes out right away; the ticker only paces the rest
	if !s.conn.Queue(heartbeatEvent(s.reg.MemberCount(s.roomId))) {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !s.conn.Queue(heartbeatEvent(s.reg.MemberCount(s.roomId))) {
				return
			}
		case <-readClosed:
			return
		case <-s.conn.done:
			return
		}
	}
}
