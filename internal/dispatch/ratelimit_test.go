package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsBurst(t *testing.T) {
	limiter := NewLimiter(60, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(), "send %d should fit in the burst", i)
	}
	assert.False(t, limiter.Allow(), "burst exhausted")
}

func TestLimiterRefills(t *testing.T) {
	// 6000/min is 100 tokens per second, so a short sleep refills.
	limiter := NewLimiter(6000, 1)

	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, limiter.Allow())
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	// One send per minute; the next token cannot arrive inside the deadline.
	limiter := NewLimiter(1, 1)
	assert.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}

func TestLimiterDefaults(t *testing.T) {
	limiter := NewLimiter(0, 0)

	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow())
	}
	assert.False(t, limiter.Allow())
}
