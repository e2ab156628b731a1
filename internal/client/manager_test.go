package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Knighty7-ciper/cmd-chat/internal/config"
	"github.com/Knighty7-ciper/cmd-chat/internal/crypto"
	"github.com/Knighty7-ciper/cmd-chat/internal/testutil"
	"github.com/Knighty7-ciper/cmd-chat/internal/types"
)

type fakeRenderer struct {
	mu       sync.Mutex
	messages []string
	infos    []string
	warns    []string
	errors   []string
}

func (r *fakeRenderer) Message(username, content string, _ time.Time, own, system bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, fmt.Sprintf("%s:%s:own=%t:system=%t", username, content, own, system))
}

func (r *fakeRenderer) Info(msg string)   { r.append(&r.infos, msg) }
func (r *fakeRenderer) Warn(msg string)   { r.append(&r.warns, msg) }
func (r *fakeRenderer) Error(msg string)  { r.append(&r.errors, msg) }
func (r *fakeRenderer) Status(msg string) {}
func (r *fakeRenderer) Clear()            {}

func (r *fakeRenderer) append(dst *[]string, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*dst = append(*dst, msg)
}

func (r *fakeRenderer) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func newTestManager(t *testing.T) (*Manager, *fakeRenderer) {
	t.Helper()

	cfg, err := config.NewClientConfig("localhost:9", "alice", "", "general")
	require.NoError(t, err)
	cfg.MaxRetries = 3
	cfg.BaseDelay = time.Millisecond

	renderer := &fakeRenderer{}
	return NewManager(cfg, testutil.TestLogger(t), renderer), renderer
}

func TestConnectWithRetry_ExhaustsAttempts(t *testing.T) {
	m, _ := newTestManager(t)
	m.cfg.MaxRetries = config.DefaultMaxRetries

	attempts := 0
	m.dial = func(string) (*websocket.Conn, *http.Response, error) {
		attempts++
		return nil, nil, errors.New("connection refused")
	}

	_, err := m.connectWithRetry("/talk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect after 5 attempts")
	assert.Equal(t, config.DefaultMaxRetries, attempts)
}

func TestConnectWithRetry_StopsOnClose(t *testing.T) {
	m, _ := newTestManager(t)
	m.cfg.BaseDelay = time.Hour

	m.dial = func(string) (*websocket.Conn, *http.Response, error) {
		return nil, nil, errors.New("connection refused")
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.connectWithRetry("/talk")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	m.Close()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("connectWithRetry did not stop on Close")
	}
}

func TestHandleFrame_MessageDecryptAndDedup(t *testing.T) {
	m, renderer := newTestManager(t)

	cipher, err := crypto.GenerateCipher(0)
	require.NoError(t, err)
	m.cipher = cipher

	token, err := cipher.Encrypt("hello")
	require.NoError(t, err)
	msg, err := types.NewMessage("general", "host:bob", "bob", token, types.TextMessage)
	require.NoError(t, err)

	payload, err := json.Marshal(types.MessageEvent{Type: types.EventMessage, Message: msg})
	require.NoError(t, err)

	m.handleFrame(payload)
	require.Equal(t, 1, renderer.messageCount())
	assert.Contains(t, renderer.messages[0], "bob:hello:own=false")

	// replays of the same message id are dropped
	m.handleFrame(payload)
	assert.Equal(t, 1, renderer.messageCount())
}

func TestHandleFrame_OwnMessageFlagged(t *testing.T) {
	m, renderer := newTestManager(t)

	cipher, err := crypto.GenerateCipher(0)
	require.NoError(t, err)
	m.cipher = cipher

	token, err := cipher.Encrypt("mine")
	require.NoError(t, err)
	msg, err := types.NewMessage("general", "host:alice", "alice", token, types.TextMessage)
	require.NoError(t, err)

	payload, err := json.Marshal(types.MessageEvent{Type: types.EventMessage, Message: msg})
	require.NoError(t, err)

	m.handleFrame(payload)
	require.Equal(t, 1, renderer.messageCount())
	assert.Contains(t, renderer.messages[0], "alice:mine:own=true")
}

func TestHandleFrame_Heartbeat(t *testing.T) {
	m, _ := newTestManager(t)

	payload, err := json.Marshal(types.HeartbeatEvent{
		Type:      types.EventHeartbeat,
		UserCount: 4,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	m.handleFrame(payload)
	assert.Equal(t, 4, m.userCount)
	assert.False(t, m.lastHeartbeat.IsZero())
}

func TestHandleFrame_RoomUpdateReplaysHistory(t *testing.T) {
	m, renderer := newTestManager(t)

	cipher, err := crypto.GenerateCipher(0)
	require.NoError(t, err)
	m.cipher = cipher

	token, err := cipher.Encrypt("old message")
	require.NoError(t, err)
	msg, err := types.NewMessage("general", "host:bob", "bob", token, types.TextMessage)
	require.NoError(t, err)

	payload, err := json.Marshal(types.RoomUpdateEvent{
		Type:           types.EventRoomUpdate,
		Room:           types.RoomSummary{Id: "general", Name: "general", MemberCount: 2},
		RecentMessages: []types.Message{msg},
		Timestamp:      time.Now().UTC(),
	})
	require.NoError(t, err)

	m.handleFrame(payload)
	assert.Equal(t, 1, renderer.messageCount())
	assert.Equal(t, 2, m.userCount)

	// replaying the snapshot after a reconnect renders nothing new
	m.handleFrame(payload)
	assert.Equal(t, 1, renderer.messageCount())
}

func TestHandleFrame_MalformedFrameSurvives(t *testing.T) {
	m, renderer := newTestManager(t)

	m.handleFrame([]byte("{not json"))
	m.handleFrame([]byte(`{"type":"message","message":"not an object"}`))

	assert.Empty(t, renderer.messages)
	assert.NotEmpty(t, renderer.warns)
}

func TestHandleFrame_UndecryptableMessageWarns(t *testing.T) {
	m, renderer := newTestManager(t)

	cipher, err := crypto.GenerateCipher(0)
	require.NoError(t, err)
	m.cipher = cipher

	msg, err := types.NewMessage("general", "host:bob", "bob", "not-a-fernet-token", types.TextMessage)
	require.NoError(t, err)
	payload, err := json.Marshal(types.MessageEvent{Type: types.EventMessage, Message: msg})
	require.NoError(t, err)

	m.handleFrame(payload)
	assert.Empty(t, renderer.messages)
	require.NotEmpty(t, renderer.warns)
	assert.Contains(t, renderer.warns[0], "could not decrypt")
}

func TestSendMessage_RequiresCipher(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.sendMessage("hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session key")
}

func TestClose_DuringSendIsSafe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	cfg, err := config.NewClientConfig(ts.Listener.Addr().String(), "alice", "", "general")
	require.NoError(t, err)
	cfg.MaxRetries = 1

	m := NewManager(cfg, testutil.TestLogger(t), &fakeRenderer{})
	cipher, err := crypto.GenerateCipher(0)
	require.NoError(t, err)
	m.cipher = cipher

	talk, err := m.connectWithRetry("/talk")
	require.NoError(t, err)
	m.mu.Lock()
	m.talk = talk
	m.mu.Unlock()

	// hammer the socket from the send path while Close fires from another
	// goroutine, as a SIGINT mid-send would
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if err := m.sendMessage("hello"); err != nil {
				return
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)
	m.Close()
	wg.Wait()
}

func TestHandshake_RoundTrip(t *testing.T) {
	serverCipher, err := crypto.GenerateCipher(time.Minute)
	require.NoError(t, err)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get_key", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "alice", r.MultipartForm.Value["username"][0])

		file, _, err := r.FormFile("pubkey")
		require.NoError(t, err)
		defer file.Close()

		pemBytes := make([]byte, 4096)
		n, _ := file.Read(pemBytes)
		pub, err := crypto.ParsePublicKey(pemBytes[:n])
		require.NoError(t, err)

		sealed, err := crypto.EncryptKey(pub, []byte(serverCipher.Key()))
		require.NoError(t, err)
		w.Write(sealed)
	}))
	defer ts.Close()

	cfg, err := config.NewClientConfig(ts.Listener.Addr().String(), "alice", "", "general")
	require.NoError(t, err)

	m := NewManager(cfg, testutil.TestLogger(t), &fakeRenderer{})
	require.NoError(t, m.Handshake())
	require.NotNil(t, m.cipher)

	// both sides now share the symmetric key
	token, err := serverCipher.Encrypt("shared secret")
	require.NoError(t, err)
	plaintext, err := m.cipher.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "shared secret", plaintext)
}

func TestHandshake_RejectedPassword(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cfg, err := config.NewClientConfig(ts.Listener.Addr().String(), "alice", "wrong", "general")
	require.NoError(t, err)

	m := NewManager(cfg, testutil.TestLogger(t), &fakeRenderer{})
	err = m.Handshake()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}
