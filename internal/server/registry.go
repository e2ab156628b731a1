package server

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/teris-io/shortid"

	"github.com/Knighty7-ciper/cmd-chat/internal/config"
	"github.com/Knighty7-ciper/cmd-chat/internal/crypto"
	"github.com/Knighty7-ciper/cmd-chat/internal/stats"
	"github.com/Knighty7-ciper/cmd-chat/internal/types"
)

// roomState bundles a room with everything the registry owns for it: the
// bounded history and the set of live sockets.
type roomState struct {
	room    types.Room
	history *History
	conns   map[*Conn]struct{}
}

// Registry is the central in-memory store of rooms, users, connections,
// histories, and the process-wide symmetric cipher. It is passed explicitly
// to every channel handler; all mutation goes through its lock.
type Registry struct {
	log     *log.Logger
	stats   stats.StatsProvider
	cipher  *crypto.Cipher
	limiter *RateLimiter

	historyLimit int

	mu          sync.RWMutex
	rooms       map[string]*roomState
	users       map[string]types.User
	connections map[string]types.ConnectionInfo
}

// Default rooms created at server start. Their names double as their ids so
// clients can subscribe by name without a lookup; they are never deleted.
var defaultRooms = []struct {
	name        string
	description string
}{
	{"general", "General chat room"},
	{"random", "Random discussions"},
	{"tech", "Technology discussions"},
}

func NewRegistry(logger *log.Logger, sp stats.StatsProvider, cipher *crypto.Cipher, cfg *config.Config) *Registry {
	r := &Registry{
		log:          logger,
		stats:        sp,
		cipher:       cipher,
		limiter:      NewRateLimiter(cfg.RateLimitCount, cfg.RateLimitWindow),
		historyLimit: cfg.HistoryLimit,
		rooms:        make(map[string]*roomState),
		users:        make(map[string]types.User),
		connections:  make(map[string]types.ConnectionInfo),
	}

	for _, dr := range defaultRooms {
		room, err := types.NewRoom(dr.name, dr.name, types.PublicRoom, "system", dr.description, "")
		if err != nil {
			// the defaults are compile-time constants and always valid
			panic(err)
		}
		r.rooms[room.Id] = &roomState{
			room:    room,
			history: NewHistory(r.historyLimit),
			conns:   make(map[*Conn]struct{}),
		}
		sp.Incr(stats.ActiveRooms)
	}

	return r
}

// Cipher returns the process-wide symmetric cipher handed out to clients
// via the key exchange.
func (r *Registry) Cipher() *crypto.Cipher {
	return r.cipher
}

// AllowMessage applies the per-user rate limit.
func (r *Registry) AllowMessage(userId string) bool {
	return r.limiter.Allow(userId)
}

// CreateRoom validates, assigns an identifier, and stores a new room with
// an empty history and connection set.
func (r *Registry) CreateRoom(name string, roomType types.RoomType, createdBy, description, password string) (types.Room, error) {
	id, err := shortid.Generate()
	if err != nil {
		return types.Room{}, err
	}

	room, err := types.NewRoom(id, name, roomType, createdBy, description, password)
	if err != nil {
		return types.Room{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rs := &roomState{
		room:    room,
		history: NewHistory(r.historyLimit),
		conns:   make(map[*Conn]struct{}),
	}
	// the notice is the first entry every subscriber sees in the snapshot
	rs.history.Append(types.NewSystemMessage(room.Id,
		fmt.Sprintf("Room %q created by %s", room.Name, createdBy)))

	r.rooms[room.Id] = rs
	r.stats.Incr(stats.ActiveRooms)
	r.stats.Incr(stats.TotalMessages)
	r.log.Printf("created room %q (%s)", room.Name, room.Id)

	return room, nil
}

// Room looks up a room by id, with its current member count filled in.
func (r *Registry) Room(id string) (types.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.rooms[id]
	if !ok {
		return types.Room{}, false
	}

	room := rs.room
	room.MemberCount = len(rs.conns)
	return room, true
}

// Rooms lists all active rooms with live member counts.
func (r *Registry) Rooms() []types.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Room, 0, len(r.rooms))
	for _, rs := range r.rooms {
		if !rs.room.IsActive {
			continue
		}
		room := rs.room
		room.MemberCount = len(rs.conns)
		out = append(out, room)
	}

	return out
}

// ResolveRoom returns roomId if it names a known room and the default room
// otherwise, so an unknown subscription never creates a partial room.
func (r *Registry) ResolveRoom(roomId string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.rooms[roomId]; ok {
		return roomId
	}
	return config.DefaultRoom
}

// EnsureUser returns the user record for the given address and name,
// creating it on first contact. Records are never explicitly destroyed.
func (r *Registry) EnsureUser(addr, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := addr + ":" + username
	if u, ok := r.users[id]; ok {
		u.LastSeen = time.Now().UTC()
		r.users[id] = u
		return u, nil
	}

	u, err := types.NewUser(addr, username)
	if err != nil {
		return types.User{}, err
	}

	r.users[id] = u
	r.stats.Incr(stats.TotalUsers)
	return u, nil
}

// RegisterConnection adds the socket to the room's active set and records
// the user's subscription, overwriting any previous one. Idempotent per
// socket.
func (r *Registry) RegisterConnection(userId, roomId string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[roomId]
	if !ok {
		return
	}

	if _, exists := rs.conns[c]; !exists {
		rs.conns[c] = struct{}{}
		r.stats.Incr(stats.ActiveConnections)
	}

	now := time.Now().UTC()
	r.connections[userId] = types.ConnectionInfo{
		UserId:      userId,
		RoomId:      roomId,
		ConnectedAt: now,
		LastPing:    now,
		IsActive:    true,
	}
}

// Subscribe adds a snapshot/heartbeat socket to the room's active set
// without recording a sender subscription.
func (r *Registry) Subscribe(roomId string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[roomId]
	if !ok {
		return
	}

	if _, exists := rs.conns[c]; !exists {
		rs.conns[c] = struct{}{}
		r.stats.Incr(stats.ActiveConnections)
	}
}

// UnregisterConnection removes the socket from the room's active set and
// clears the user's connection record. Safe to call repeatedly and on
// partially-initialized state.
func (r *Registry) UnregisterConnection(userId, roomId string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connections, userId)
	r.dropConnLocked(roomId, c)
}

// Unsubscribe removes a snapshot/heartbeat socket from the room's set.
func (r *Registry) Unsubscribe(roomId string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dropConnLocked(roomId, c)
}

func (r *Registry) dropConnLocked(roomId string, c *Conn) {
	rs, ok := r.rooms[roomId]
	if !ok || c == nil {
		return
	}

	if _, ok := rs.conns[c]; ok {
		delete(rs.conns, c)
		r.stats.Decr(stats.ActiveConnections)
	}
}

// AppendMessage adds a message to the room's history. Unknown rooms are a
// silent no-op; they must never create a partial room.
func (r *Registry) AppendMessage(roomId string, msg types.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[roomId]
	if !ok {
		return
	}

	rs.history.Append(msg)
	r.stats.Incr(stats.TotalMessages)
}

// Broadcast delivers the payload to every socket currently registered for
// the room. Sends are fire-and-forget per subscriber; a failing subscriber
// is removed and never blocks delivery to the rest.
func (r *Registry) Broadcast(roomId string, payload []byte) {
	r.mu.RLock()
	rs, ok := r.rooms[roomId]
	if !ok {
		r.mu.RUnlock()
		return
	}

	conns := make([]*Conn, 0, len(rs.conns))
	for c := range rs.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	var failed []*Conn
	for _, c := range conns {
		if !c.Queue(payload) {
			failed = append(failed, c)
		}
	}

	if len(failed) == 0 {
		return
	}

	r.mu.Lock()
	for _, c := range failed {
		r.log.Printf("dropping unresponsive subscriber in room %q", roomId)
		r.dropConnLocked(roomId, c)
		r.stats.Incr(stats.DroppedMessages)
		c.Close()
	}
	r.mu.Unlock()
}

// MemberCount reports the number of sockets registered to the room.
func (r *Registry) MemberCount(roomId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.rooms[roomId]
	if !ok {
		return 0
	}
	return len(rs.conns)
}

// RecentMessages returns the newest n messages retained for the room.
func (r *Registry) RecentMessages(roomId string, n int) []types.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.rooms[roomId]
	if !ok {
		return nil
	}
	return rs.history.Recent(n)
}

// Counters reports the aggregate numbers exposed by the health endpoint.
func (r *Registry) Counters() (activeRooms, totalUsers, activeConnections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rs := range r.rooms {
		if rs.room.IsActive {
			activeRooms++
		}
		activeConnections += len(rs.conns)
	}
	return activeRooms, len(r.users), activeConnections
}

// CloseAll tears down every registered socket, used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rs := range r.rooms {
		for c := range rs.conns {
			c.Close()
			delete(rs.conns, c)
			r.stats.Decr(stats.ActiveConnections)
		}
	}
	r.connections = make(map[string]types.ConnectionInfo)
}
