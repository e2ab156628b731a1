package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg, err := NewConfig("localhost:8000", "secret", []string{"http://localhost:3000"})
		require.NoError(t, err)
		assert.Equal(t, "localhost:8000", cfg.ServerAddr)
		assert.Equal(t, "secret", cfg.AdminPassword)
		assert.Equal(t, DefaultRateLimitCount, cfg.RateLimitCount)
		assert.Equal(t, DefaultRateLimitWindow, cfg.RateLimitWindow)
		assert.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit)
		assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	})

	t.Run("empty address", func(t *testing.T) {
		_, err := NewConfig("", "secret", nil)
		assert.Error(t, err)
	})

	t.Run("empty password is allowed", func(t *testing.T) {
		cfg, err := NewConfig("localhost:8000", "", nil)
		require.NoError(t, err)
		assert.Empty(t, cfg.AdminPassword)
	})
}

func TestNewClientConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg, err := NewClientConfig("localhost:8000", "alice", "secret", "tech")
		require.NoError(t, err)
		assert.Equal(t, "tech", cfg.Room)
		assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
		assert.Equal(t, DefaultBaseDelay, cfg.BaseDelay)
	})

	t.Run("defaults to general room", func(t *testing.T) {
		cfg, err := NewClientConfig("localhost:8000", "alice", "", "")
		require.NoError(t, err)
		assert.Equal(t, "general", cfg.Room)
	})

	t.Run("missing username", func(t *testing.T) {
		_, err := NewClientConfig("localhost:8000", "", "", "")
		assert.Error(t, err)
	})

	t.Run("missing address", func(t *testing.T) {
		_, err := NewClientConfig("", "alice", "", "")
		assert.Error(t, err)
	})
}
