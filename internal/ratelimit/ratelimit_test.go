package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hengadev/byok/internal/ratelimit"
)

func newLimiter(limit int, window time.Duration) *ratelimit.Limiter {
	return ratelimit.New(map[string]ratelimit.ClassConfig{
		"test": {Limit: limit, Window: window},
	})
}

func TestCheckBoundary(t *testing.T) {
	l := newLimiter(3, time.Minute)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	// Exactly limit calls succeed.
	for i := 0; i < 3; i++ {
		d := l.Check("test", "principal-1")
		assert.True(t, d.Allowed, "call %d within the window must be allowed", i+1)
	}

	// The limit+1-th call is denied with a positive retry-after.
	d := l.Check("test", "principal-1")
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestCheckWindowExpiryResetsCounter(t *testing.T) {
	l := newLimiter(2, time.Minute)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	l.Check("test", "principal-1")
	l.Check("test", "principal-1")
	assert.False(t, l.Check("test", "principal-1").Allowed)

	// After the window elapses the counter resets to 1.
	now = now.Add(61 * time.Second)
	l.SetClock(func() time.Time { return now })
	d := l.Check("test", "principal-1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining, "a fresh window starts counting from 1")
}

func TestCheckIsolatesPrincipalsAndClasses(t *testing.T) {
	l := ratelimit.New(map[string]ratelimit.ClassConfig{
		"mutation": {Limit: 1, Window: time.Minute},
		"read":     {Limit: 10, Window: time.Minute},
	})

	assert.True(t, l.Check("mutation", "a").Allowed)
	assert.False(t, l.Check("mutation", "a").Allowed)

	// Another principal's window is untouched.
	assert.True(t, l.Check("mutation", "b").Allowed)
	// Another class for the same principal has its own budget.
	assert.True(t, l.Check("read", "a").Allowed)
}

func TestCheckUnconfiguredClassIsUnlimited(t *testing.T) {
	l := ratelimit.New(nil)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Check("anything", "principal-1").Allowed)
	}
}

func TestCheckConcurrentIncrements(t *testing.T) {
	const limit = 50
	l := newLimiter(limit, time.Minute)

	var wg sync.WaitGroup
	results := make(chan bool, limit*2)
	for i := 0; i < limit*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.Check("test", "principal-1").Allowed
		}()
	}
	wg.Wait()
	close(results)

	allowed := 0
	for ok := range results {
		if ok {
			allowed++
		}
	}
	assert.Equal(t, limit, allowed, "racing increments must never overshoot the limit")
}

func TestReset(t *testing.T) {
	l := newLimiter(1, time.Minute)
	assert.True(t, l.Check("test", "principal-1").Allowed)
	assert.False(t, l.Check("test", "principal-1").Allowed)

	l.Reset()
	assert.True(t, l.Check("test", "principal-1").Allowed)
}
