package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// clock drives the limiter's time in tests.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time            { return c.t }
func (c *clock) advance(d time.Duration)   { c.t = c.t.Add(d) }
func newClock() *clock                     { return &clock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)} }
func withClock(l *Limiter, c *clock) *Limiter {
	l.now = c.now
	return l
}

func TestAllowSlidingWindow(t *testing.T) {
	c := newClock()
	l := withClock(New(3), c)

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("example.com"))
		l.RecordRequest("example.com")
		c.advance(time.Second)
	}
	assert.False(t, l.Allow("example.com"))

	// Other hosts are independent.
	assert.True(t, l.Allow("other.com"))

	// The window slides: after a minute the oldest entries fall out.
	c.advance(time.Minute)
	assert.True(t, l.Allow("example.com"))
}

func TestRecordErrorBackoff(t *testing.T) {
	c := newClock()
	l := withClock(New(100), c)

	// First error backs off one second, doubling per recent error.
	l.RecordError("example.com", 0)
	assert.Equal(t, time.Second, l.waitTime("example.com"))

	l.RecordError("example.com", 0)
	assert.Equal(t, 2*time.Second, l.waitTime("example.com"))

	l.RecordError("example.com", 0)
	assert.Equal(t, 4*time.Second, l.waitTime("example.com"))

	// Backoff clears once the time passes.
	c.advance(5 * time.Second)
	assert.True(t, l.Allow("example.com"))
}

func TestRecordErrorHonorsRetryAfter(t *testing.T) {
	c := newClock()
	l := withClock(New(100), c)

	l.RecordError("example.com", 30*time.Second)
	assert.Equal(t, 30*time.Second, l.waitTime("example.com"))
	assert.False(t, l.Allow("example.com"))
}

func TestWaitFor(t *testing.T) {
	t.Run("no wait needed", func(t *testing.T) {
		c := newClock()
		l := withClock(New(10), c)
		assert.NoError(t, l.WaitFor(context.Background(), "example.com", time.Second))
	})

	t.Run("sleeps for short waits", func(t *testing.T) {
		c := newClock()
		l := withClock(New(10), c)
		var slept time.Duration
		l.sleep = func(ctx context.Context, d time.Duration) error {
			slept = d
			c.advance(d)
			return nil
		}
		l.RecordError("example.com", 2*time.Second)

		require.NoError(t, l.WaitFor(context.Background(), "example.com", 10*time.Second))
		assert.Equal(t, 2*time.Second, slept)
	})

	t.Run("fails fast when wait exceeds budget", func(t *testing.T) {
		c := newClock()
		l := withClock(New(10), c)
		l.sleep = func(ctx context.Context, d time.Duration) error {
			t.Fatal("must not sleep")
			return nil
		}
		l.RecordError("example.com", time.Minute)

		err := l.WaitFor(context.Background(), "example.com", 5*time.Second)
		require.Error(t, err)
		assert.Equal(t, werrors.CodeRateLimited, werrors.CodeOf(err))
		assert.False(t, werrors.IsRetryable(err))
	})
}
