package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Knighty7-ciper/cmd-chat/internal/config"
	"github.com/Knighty7-ciper/cmd-chat/internal/crypto"
	"github.com/Knighty7-ciper/cmd-chat/internal/types"
)

const historyBuffer = 100

// DialFunc opens a websocket connection. Injected so tests can count and
// fail connection attempts without a server.
type DialFunc func(urlStr string) (*websocket.Conn, *http.Response, error)

// Manager owns the client's two channels: the talk socket messages go out
// on and the update socket events come in on. Each loops independently and
// reconnects on its own; shared state sits behind one mutex.
type Manager struct {
	cfg      *config.ClientConfig
	log      *log.Logger
	renderer Renderer
	http     *http.Client
	dial     DialFunc

	// wmu serializes writes on the talk socket; gorilla/websocket allows
	// only one concurrent writer, and Close sends a final frame from the
	// signal handler while the send loop may be mid-write.
	wmu sync.Mutex

	mu            sync.Mutex
	cipher        *crypto.Cipher
	username      string
	room          string
	talk          *websocket.Conn
	update        *websocket.Conn
	seen          map[string]struct{}
	history       []types.Message
	userCount     int
	messageCount  int
	lastHeartbeat time.Time
	connected     bool
	switching     bool
	theme         string

	startTime time.Time
	done      chan struct{}
	closeOnce sync.Once
}

func NewManager(cfg *config.ClientConfig, logger *log.Logger, renderer Renderer) *Manager {
	dialer := &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	return &Manager{
		cfg:      cfg,
		log:      logger,
		renderer: renderer,
		http:     &http.Client{Timeout: cfg.DialTimeout},
		dial: func(urlStr string) (*websocket.Conn, *http.Response, error) {
			return dialer.Dial(urlStr, nil)
		},
		username:  cfg.Username,
		room:      cfg.Room,
		theme:     "dark",
		seen:      make(map[string]struct{}),
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

func (m *Manager) baseUrl() string {
	return "http://" + m.cfg.ServerAddr
}

func (m *Manager) wsUrl(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := url.Values{}
	q.Set("password", m.cfg.Password)
	q.Set("username", m.username)
	q.Set("room_id", m.room)
	return "ws://" + m.cfg.ServerAddr + path + "?" + q.Encode()
}

// Handshake performs the key exchange: it generates a throwaway RSA
// keypair, posts the public half, and decrypts the returned symmetric key.
// The keypair is discarded once the cipher is built. The client cipher
// skips TTL checks so history replayed from the server stays readable.
func (m *Manager) Handshake() error {
	priv, err := crypto.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}

	pemBytes, err := crypto.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("pubkey", "public.pem")
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if _, err := fw.Write(pemBytes); err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	w.WriteField("username", m.username)
	w.WriteField("password", m.cfg.Password)
	if err := w.Close(); err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := m.http.Post(m.baseUrl()+"/get_key", w.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("key exchange request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("key exchange rejected: %s", resp.Status)
	}

	sealed, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read key exchange response: %w", err)
	}
	if len(sealed) == 0 {
		return fmt.Errorf("empty key exchange response")
	}

	keyBytes, err := crypto.DecryptKey(priv, sealed)
	if err != nil {
		return fmt.Errorf("unseal symmetric key: %w", err)
	}

	cipher, err := crypto.NewCipher(string(keyBytes), 0)
	if err != nil {
		return fmt.Errorf("build cipher: %w", err)
	}

	m.mu.Lock()
	m.cipher = cipher
	m.mu.Unlock()
	return nil
}

// connectWithRetry dials with exponential backoff. It gives up after
// MaxRetries attempts; the sleep between attempts is interruptible by
// Close.
func (m *Manager) connectWithRetry(path string) (*websocket.Conn, error) {
	var lastErr error

	for attempt := 0; attempt < m.cfg.MaxRetries; attempt++ {
		select {
		case <-m.done:
			return nil, fmt.Errorf("client closed")
		default:
		}

		conn, _, err := m.dial(m.wsUrl(path))
		if err == nil {
			m.setConnected(true)
			return conn, nil
		}
		lastErr = err
		m.setConnected(false)
		m.log.Printf("dial %s: %v", path, err)
		m.renderer.Error(fmt.Sprintf("connection failed (attempt %d/%d): %v",
			attempt+1, m.cfg.MaxRetries, err))

		if attempt < m.cfg.MaxRetries-1 {
			wait := m.cfg.BaseDelay * (1 << attempt)
			m.renderer.Info(fmt.Sprintf("retrying in %s...", wait))
			select {
			case <-time.After(wait):
			case <-m.done:
				return nil, fmt.Errorf("client closed")
			}
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", m.cfg.MaxRetries, lastErr)
}

func (m *Manager) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

// Run blocks reading chat input until the user quits, the input closes, or
// the talk channel cannot be re-established. The update channel runs in its
// own goroutine for the whole session.
func (m *Manager) Run(input io.Reader) error {
	go m.receiveLoop()

	talk, err := m.connectWithRetry("/talk")
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.talk = talk
	m.mu.Unlock()
	go m.drainTalk(talk)

	m.renderer.Info("connected, type /help for commands")

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		select {
		case <-m.done:
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, args := ParseCommand(line)
		if cmd != CmdNone {
			if !m.runCommand(cmd, args) {
				return nil
			}
			continue
		}

		if err := m.sendMessage(line); err != nil {
			m.renderer.Error(err.Error())
		}
	}
	return scanner.Err()
}

// sendMessage encrypts and writes one chat line. A dead socket triggers one
// transparent reconnect before the message is reported as failed.
func (m *Manager) sendMessage(text string) error {
	text = applyEmojiShortcuts(text)
	if len(text) > types.MaxMessageLen {
		return fmt.Errorf("message too long (max %d characters)", types.MaxMessageLen)
	}

	m.mu.Lock()
	cipher := m.cipher
	m.mu.Unlock()
	if cipher == nil {
		return fmt.Errorf("no session key, run the key exchange first")
	}

	token, err := cipher.Encrypt(text)
	if err != nil {
		return fmt.Errorf("encrypt message: %w", err)
	}

	m.mu.Lock()
	username, room := m.username, m.room
	m.mu.Unlock()

	frame := types.ChatFrame{
		Text:      token,
		Username:  username,
		RoomId:    room,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := m.writeTalk(frame); err == nil {
		m.mu.Lock()
		m.messageCount++
		m.mu.Unlock()
		return nil
	}

	m.renderer.Warn("connection lost, reconnecting...")
	m.dropTalk()
	talk, err := m.connectWithRetry("/talk")
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.talk = talk
	m.mu.Unlock()
	go m.drainTalk(talk)

	if err := m.writeTalk(frame); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	m.mu.Lock()
	m.messageCount++
	m.mu.Unlock()
	return nil
}

func (m *Manager) writeTalk(frame types.ChatFrame) error {
	m.mu.Lock()
	talk := m.talk
	m.mu.Unlock()
	if talk == nil {
		return fmt.Errorf("not connected")
	}

	m.wmu.Lock()
	defer m.wmu.Unlock()
	return talk.WriteJSON(frame)
}

// drainTalk reads server traffic off the talk socket. Messages and acks
// arrive via the update channel's path instead, but inline error frames
// (rate limiting, rejected content) are surfaced to the user here.
func (m *Manager) drainTalk(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ef types.ErrorFrame
		if json.Unmarshal(payload, &ef) == nil && ef.Error != "" {
			m.renderer.Warn(ef.Error)
		}
	}
}

func (m *Manager) dropTalk() {
	m.mu.Lock()
	if m.talk != nil {
		m.talk.Close()
		m.talk = nil
	}
	m.mu.Unlock()
}

// receiveLoop keeps the update channel alive for the life of the session,
// reconnecting whenever the read side fails.
func (m *Manager) receiveLoop() {
	for {
		select {
		case <-m.done:
			return
		default:
		}

		conn, err := m.connectWithRetry("/update")
		if err != nil {
			m.renderer.Error(err.Error())
			return
		}
		m.mu.Lock()
		m.update = conn
		m.mu.Unlock()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-m.done:
					return
				default:
				}
				m.mu.Lock()
				expected := m.switching
				m.switching = false
				m.mu.Unlock()
				if !expected {
					m.renderer.Warn("update channel lost, reconnecting...")
				}
				conn.Close()
				break
			}
			m.handleFrame(payload)
		}
	}
}

// handleFrame dispatches one server event. A malformed or unprocessable
// frame is reported and dropped; the channel stays up.
func (m *Manager) handleFrame(payload []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		m.log.Printf("invalid frame: %v", err)
		m.renderer.Warn("invalid frame received")
		return
	}

	switch envelope.Type {
	case types.EventMessage:
		var ev types.MessageEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			m.renderer.Warn("invalid message frame")
			return
		}
		m.deliver(ev.Message)
	case types.EventHeartbeat:
		var ev types.HeartbeatEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return
		}
		m.mu.Lock()
		m.lastHeartbeat = time.Now()
		m.userCount = ev.UserCount
		m.mu.Unlock()
	case types.EventRoomUpdate:
		var ev types.RoomUpdateEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			m.renderer.Warn("invalid room update frame")
			return
		}
		m.mu.Lock()
		m.userCount = ev.Room.MemberCount
		m.mu.Unlock()
		for _, msg := range ev.RecentMessages {
			m.deliver(msg)
		}
	}
}

// deliver decrypts, dedupes, records, and renders one message. Messages
// already seen (history replays after a reconnect) are silently skipped.
func (m *Manager) deliver(msg types.Message) {
	m.mu.Lock()
	if _, dup := m.seen[msg.Id]; dup {
		m.mu.Unlock()
		return
	}
	m.seen[msg.Id] = struct{}{}
	cipher := m.cipher
	username := m.username
	m.mu.Unlock()

	content := msg.Content
	if msg.IsEncrypted {
		if cipher == nil {
			m.renderer.Warn("encrypted message received before key exchange")
			return
		}
		plaintext, err := cipher.Decrypt(msg.Content)
		if err != nil {
			m.renderer.Warn(fmt.Sprintf("could not decrypt message from %s", msg.Username))
			return
		}
		content = plaintext
	}

	display := msg
	display.Content = content
	m.mu.Lock()
	m.history = append(m.history, display)
	if len(m.history) > historyBuffer {
		m.history = m.history[len(m.history)-historyBuffer:]
	}
	m.mu.Unlock()

	system := msg.MessageType == types.SystemMessage
	m.renderer.Message(msg.Username, content, msg.Timestamp, msg.Username == username, system)
}

// Close shuts both channels down. The talk socket gets a best-effort close
// request so the server ends the session cleanly.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)

		m.mu.Lock()
		talk, update := m.talk, m.update
		m.talk, m.update = nil, nil
		m.mu.Unlock()

		if talk != nil {
			m.wmu.Lock()
			talk.WriteJSON(types.ChatFrame{Action: types.ActionClose})
			m.wmu.Unlock()
			talk.Close()
		}
		if update != nil {
			update.Close()
		}
	})
}
