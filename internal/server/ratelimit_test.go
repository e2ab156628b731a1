package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("rejects over limit within window", func(t *testing.T) {
		rl := NewRateLimiter(10, 60*time.Second)
		now := time.Now()
		rl.now = func() time.Time { return now }

		for i := 0; i < 10; i++ {
			assert.Truef(t, rl.Allow("user-1"), "call %d should be accepted", i+1)
		}
		assert.False(t, rl.Allow("user-1"), "11th call within the window must be rejected")
	})

	t.Run("accepts again after the window passes", func(t *testing.T) {
		rl := NewRateLimiter(10, 60*time.Second)
		now := time.Now()
		rl.now = func() time.Time { return now }

		for i := 0; i < 10; i++ {
			rl.Allow("user-1")
		}
		assert.False(t, rl.Allow("user-1"))

		now = now.Add(61 * time.Second)
		assert.True(t, rl.Allow("user-1"), "old timestamps must fall out of the window")
	})

	t.Run("rejections are not recorded", func(t *testing.T) {
		rl := NewRateLimiter(2, 60*time.Second)
		now := time.Now()
		rl.now = func() time.Time { return now }

		rl.Allow("user-1")
		rl.Allow("user-1")
		rl.Allow("user-1")
		assert.Len(t, rl.timestamps["user-1"], 2)
	})

	t.Run("users are independent", func(t *testing.T) {
		rl := NewRateLimiter(1, 60*time.Second)
		now := time.Now()
		rl.now = func() time.Time { return now }

		assert.True(t, rl.Allow("user-1"))
		assert.False(t, rl.Allow("user-1"))
		assert.True(t, rl.Allow("user-2"))
	})

	t.Run("defaults applied", func(t *testing.T) {
		rl := NewRateLimiter(0, 0)
		assert.Equal(t, DefaultRateLimit, rl.limit)
		assert.Equal(t, DefaultRateWindow, rl.window)
	})
}
