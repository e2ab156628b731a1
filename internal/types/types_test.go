package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid", "alice", false},
		{"valid with digits and symbols", "alice_2-b", false},
		{"minimum length", "ab", false},
		{"maximum length", strings.Repeat("a", 20), false},
		{"too short", "a", true},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 21), true},
		{"illegal characters", "alice!", true},
		{"spaces", "alice b", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, err := NewUser("127.0.0.1", tc.username)
			if tc.wantErr {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "127.0.0.1:"+tc.username, u.Id, "user id should combine address and name")
			assert.Equal(t, StatusOnline, u.Status)
			assert.False(t, u.JoinedAt.IsZero())
		})
	}
}

func TestNewRoom(t *testing.T) {
	tests := []struct {
		name     string
		roomName string
		roomType RoomType
		wantErr  bool
	}{
		{"valid", "general", PublicRoom, false},
		{"single character", "a", PublicRoom, false},
		{"maximum length", strings.Repeat("r", 30), PublicRoom, false},
		{"empty name", "", PublicRoom, true},
		{"whitespace only", "   ", PublicRoom, true},
		{"too long", strings.Repeat("r", 31), PublicRoom, true},
		{"unknown type", "general", RoomType("group"), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewRoom("room-1", tc.roomName, tc.roomType, "system", "", "")
			if tc.wantErr {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}

			require.NoError(t, err)
			assert.True(t, r.IsActive)
			assert.Equal(t, DefaultRoomCap, r.MaxMembers)
		})
	}

	t.Run("defaults to public", func(t *testing.T) {
		r, err := NewRoom("room-1", "general", "", "system", "", "")
		require.NoError(t, err)
		assert.Equal(t, PublicRoom, r.Type)
	})

	t.Run("trims name", func(t *testing.T) {
		r, err := NewRoom("room-1", "  general  ", PublicRoom, "system", "", "")
		require.NoError(t, err)
		assert.Equal(t, "general", r.Name)
	})
}

func TestRoomPassword(t *testing.T) {
	r, err := NewRoom("room-1", "secret-club", PrivateRoom, "alice", "", "hunter2")
	require.NoError(t, err)

	assert.NotEmpty(t, r.PasswordHash)
	assert.NotContains(t, r.PasswordHash, "hunter2", "password must not be stored in the clear")
	assert.True(t, r.CheckPassword("hunter2"))
	assert.False(t, r.CheckPassword("wrong"))

	public, err := NewRoom("room-2", "open", PublicRoom, "alice", "", "")
	require.NoError(t, err)
	assert.True(t, public.CheckPassword("anything"), "rooms without a password accept everyone")
}

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msgType MessageType
		wantErr bool
	}{
		{"valid", "hello", TextMessage, false},
		{"maximum length", strings.Repeat("m", 1000), TextMessage, false},
		{"empty", "", TextMessage, true},
		{"whitespace only", "  \t ", TextMessage, true},
		{"too long", strings.Repeat("m", 1001), TextMessage, true},
		{"unknown type", "hello", MessageType("video"), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewMessage("room-1", "user-1", "alice", tc.content, tc.msgType)
			if tc.wantErr {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, m.Id)
			assert.True(t, m.IsEncrypted)
		})
	}

	t.Run("trims content", func(t *testing.T) {
		m, err := NewMessage("room-1", "user-1", "alice", "  hi  ", TextMessage)
		require.NoError(t, err)
		assert.Equal(t, "hi", m.Content)
	})

	t.Run("unique ids", func(t *testing.T) {
		a, err := NewMessage("room-1", "user-1", "alice", "one", TextMessage)
		require.NoError(t, err)
		b, err := NewMessage("room-1", "user-1", "alice", "two", TextMessage)
		require.NoError(t, err)
		assert.NotEqual(t, a.Id, b.Id)
	})
}

func TestNewSystemMessage(t *testing.T) {
	m := NewSystemMessage("room-1", "alice joined")
	assert.Equal(t, SystemMessage, m.MessageType)
	assert.Equal(t, "System", m.Username)
	assert.False(t, m.IsEncrypted)
}
