package webhook

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d should be allowed", i)
	}
	assert.False(t, rl.Allow("10.0.0.1"), "request over budget should be rejected")
}

func TestRateLimiter_TracksIPsIndependently(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// A different source still has its full budget
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	assert.Equal(t, 100, rl.burst)
	assert.Equal(t, time.Minute, rl.window)
}

func TestRateLimiter_PrunesIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)

	for i := 0; i < 1001; i++ {
		rl.Allow(fmt.Sprintf("10.0.%d.%d", i/255, i%255))
	}

	// Age out everything, then a single request triggers the prune
	rl.mu.Lock()
	for _, v := range rl.visitors {
		v.lastSeen = time.Now().Add(-3 * time.Minute)
	}
	rl.mu.Unlock()

	rl.Allow("10.1.0.1")

	rl.mu.Lock()
	remaining := len(rl.visitors)
	rl.mu.Unlock()
	assert.Equal(t, 1, remaining)
}
