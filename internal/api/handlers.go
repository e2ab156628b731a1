package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Knighty7-ciper/cmd-chat/internal/crypto"
	"github.com/Knighty7-ciper/cmd-chat/internal/server"
	"github.com/Knighty7-ciper/cmd-chat/internal/types"
)

const defaultUsername = "unknown"

type CreateRoomRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Description  string `json:"description"`
	RoomPassword string `json:"room_password"`
}

type RoomListResponse struct {
	Rooms []types.Room `json:"rooms"`
	Total int          `json:"total"`
}

type CreateRoomResponse struct {
	Success bool       `json:"success"`
	Room    types.Room `json:"room"`
}

type HealthResponse struct {
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"timestamp"`
	ActiveRooms       int       `json:"active_rooms"`
	TotalUsers        int       `json:"total_users"`
	ActiveConnections int       `json:"active_connections"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// checkPassword verifies the shared admin password. No configured password
// means the check always passes. The response never hints at which part of
// the credentials was wrong.
func (s *ChatApp) checkPassword(password string) bool {
	if s.cfg.AdminPassword == "" {
		return true
	}
	return password == s.cfg.AdminPassword
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// getKey is the key exchange endpoint: it seals the process-wide symmetric
// key under the caller's public key and returns the raw ciphertext.
func (s *ChatApp) getKey(w http.ResponseWriter, r *http.Request) {
	params := newRequestParams(r)

	if !s.checkPassword(params.String("password")) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pubkeyBytes := params.Bytes("pubkey")
	if len(pubkeyBytes) == 0 {
		errResp := NewBadRequestError("public key is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pub, err := crypto.ParsePublicKey(pubkeyBytes)
	if err != nil {
		errResp := NewBadRequestError("invalid public key")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	username := params.String("username")
	if username == "" {
		username = defaultUsername
	}
	if _, err := s.reg.EnsureUser(remoteHost(r), username); err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			errResp := NewBadRequestError(verr.Error())
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sealed, err := crypto.EncryptKey(pub, []byte(s.reg.Cipher().Key()))
	if err != nil {
		s.log.Printf("key exchange: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(sealed)
}

func (s *ChatApp) listRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := s.reg.Rooms()
	s.writeJson(w, http.StatusOK, RoomListResponse{
		Rooms: rooms,
		Total: len(rooms),
	})
}

func (s *ChatApp) createRoom(w http.ResponseWriter, r *http.Request) {
	params := newRequestParams(r)

	if !s.checkPassword(params.String("password")) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	req := CreateRoomRequest{
		Name:         params.String("name"),
		Type:         params.String("type"),
		Description:  params.String("description"),
		RoomPassword: params.String("room_password"),
	}

	createdBy := params.String("username")
	if createdBy == "" {
		createdBy = defaultUsername
	}

	room, err := s.reg.CreateRoom(req.Name, types.RoomType(req.Type), createdBy, req.Description, req.RoomPassword)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			errResp := NewBadRequestError(verr.Error())
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, CreateRoomResponse{
		Success: true,
		Room:    room,
	})
}

func (s *ChatApp) health(w http.ResponseWriter, _ *http.Request) {
	rooms, users, conns := s.reg.Counters()
	s.writeJson(w, http.StatusOK, HealthResponse{
		Status:            "healthy",
		Timestamp:         time.Now().UTC(),
		ActiveRooms:       rooms,
		TotalUsers:        users,
		ActiveConnections: conns,
	})
}

// serveTalk upgrades the sender channel. Auth failures close the socket
// with a distinguishable code rather than an HTTP error, so clients can
// tell a rejected password from a transport failure.
func (s *ChatApp) serveTalk(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	q := r.URL.Query()
	if !s.checkPassword(q.Get("password")) {
		server.CloseWithCode(conn, server.CloseUnauthorized, "unauthorized")
		return
	}

	username := q.Get("username")
	if username == "" {
		username = defaultUsername
	}

	user, err := s.reg.EnsureUser(remoteHost(r), username)
	if err != nil {
		server.CloseWithCode(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}

	roomId := s.reg.ResolveRoom(q.Get("room_id"))
	server.NewTalkSession(s.reg, conn, s.log, user, roomId).Run()
}

// serveUpdate upgrades the snapshot/heartbeat channel.
func (s *ChatApp) serveUpdate(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	q := r.URL.Query()
	if !s.checkPassword(q.Get("password")) {
		server.CloseWithCode(conn, server.CloseUnauthorized, "unauthorized")
		return
	}

	roomId := s.reg.ResolveRoom(q.Get("room_id"))
	server.NewUpdateSession(s.reg, conn, s.log, roomId, s.cfg.HeartbeatInterval).Run()
}
