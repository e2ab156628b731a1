package server

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 256
)

// CloseUnauthorized is the close code sent when the password check fails.
const CloseUnauthorized = 4001

// Conn is one registered socket: a buffered send queue drained by a single
// writer pump, so broadcasts never block on a slow peer and all writes go
// through one goroutine.
type Conn struct {
	ws        *websocket.Conn
	log       *log.Logger
	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn, logger *log.Logger) *Conn {
	return &Conn{
		ws:   ws,
		log:  logger,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// writePump serializes all writes on the socket and keeps it alive with
// periodic pings. It exits on the first write failure or on Close.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			if !c.write(websocket.TextMessage, payload) {
				return
			}
		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) write(msgType int, payload []byte) bool {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(msgType, payload); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

// Queue enqueues a payload for delivery, reporting false if the connection
// is closed or its queue is full. Callers treat false as a dead subscriber.
func (c *Conn) Queue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		c.log.Println("send queue full, dropping connection")
		return false
	}
}

// Close tears the socket down. Safe to call multiple times and from any
// goroutine.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// CloseWithCode sends a close control frame before tearing the socket
// down, used to reject an upgraded connection so the client sees a
// distinguishable code instead of a bare transport failure.
func CloseWithCode(ws *websocket.Conn, code int, reason string) {
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	ws.Close()
}
