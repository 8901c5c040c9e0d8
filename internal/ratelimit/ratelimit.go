// Package ratelimit implements per-host admission control for the fetcher:
// a sliding one-minute window of request timestamps plus exponential backoff
// when a host starts returning errors.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

const (
	window     = time.Minute
	maxBackoff = 5 * time.Minute
)

type hostState struct {
	timestamps   []time.Time
	errors       []time.Time
	backoffUntil time.Time
}

// Limiter admits requests per host. Safe for concurrent use.
type Limiter struct {
	mu           sync.Mutex
	hosts        map[string]*hostState
	maxPerMinute int

	// now is stubbed in tests.
	now func() time.Time
	// sleep is stubbed in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a limiter admitting at most maxPerMinute requests per host.
func New(maxPerMinute int) *Limiter {
	return &Limiter{
		hosts:        make(map[string]*hostState),
		maxPerMinute: maxPerMinute,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (l *Limiter) state(host string) *hostState {
	s, ok := l.hosts[host]
	if !ok {
		s = &hostState{}
		l.hosts[host] = s
	}
	return s
}

// prune drops window entries older than one minute.
func (s *hostState) prune(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(s.timestamps) && s.timestamps[i].Before(cutoff) {
		i++
	}
	s.timestamps = s.timestamps[i:]
	j := 0
	for j < len(s.errors) && s.errors[j].Before(cutoff) {
		j++
	}
	s.errors = s.errors[j:]
}

// Allow reports whether a request to host may proceed right now.
func (l *Limiter) Allow(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	s := l.state(host)
	s.prune(now)
	return len(s.timestamps) < l.maxPerMinute && !now.Before(s.backoffUntil)
}

// RecordRequest appends the current timestamp to the host's window.
func (l *Limiter) RecordRequest(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	s := l.state(host)
	s.prune(now)
	s.timestamps = append(s.timestamps, now)
}

// RecordError registers a server error for the host. When the server supplied
// a Retry-After, the backoff honors it; otherwise the backoff doubles with
// each recent error, capped at five minutes.
func (l *Limiter) RecordError(host string, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	s := l.state(host)
	s.prune(now)
	recent := len(s.errors)
	s.errors = append(s.errors, now)

	var backoff time.Duration
	if retryAfter > 0 {
		backoff = retryAfter
	} else {
		exp := recent
		if exp > 6 {
			exp = 6
		}
		backoff = time.Second << exp
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	s.backoffUntil = now.Add(backoff)
}

// waitTime returns how long a caller must wait before host admits a request.
// Zero means the request may proceed immediately.
func (l *Limiter) waitTime(host string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	s := l.state(host)
	s.prune(now)

	var wait time.Duration
	if now.Before(s.backoffUntil) {
		wait = s.backoffUntil.Sub(now)
	}
	if len(s.timestamps) >= l.maxPerMinute {
		windowWait := s.timestamps[0].Add(window).Sub(now)
		if windowWait > wait {
			wait = windowWait
		}
	}
	return wait
}

// WaitFor blocks until host admits a request, up to maxWait. When the
// required wait exceeds maxWait it fails immediately with RATE_LIMITED.
func (l *Limiter) WaitFor(ctx context.Context, host string, maxWait time.Duration) error {
	wait := l.waitTime(host)
	if wait == 0 {
		return nil
	}
	if wait > maxWait {
		return werrors.Newf(werrors.CodeRateLimited,
			"host %s rate limited: need to wait %s, max %s", host, wait, maxWait).
			WithDetail("wait_ms", wait.Round(time.Millisecond).String())
	}
	if err := l.sleep(ctx, wait); err != nil {
		return werrors.Wrap(werrors.CodeFetchError, err)
	}
	return nil
}
