package contact

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Defaults of the contact rate limit: three accepted submissions per source
// in a fifteen minute window.
const (
	DefaultLimit  = 3
	DefaultWindow = 15 * time.Minute
)

// Limiter decides whether a source may submit. Allow counts the attempt when
// it is accepted and returns *RateLimitError otherwise; rejected attempts do
// not extend or refill the window.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

type window struct {
	count   int
	resetAt time.Time
}

// WindowLimiter is a fixed-window limiter kept in process memory. Each key
// is checked and incremented atomically. It is correct for a single process
// only; use RedisLimiter when several instances share traffic.
type WindowLimiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	windows *xsync.MapOf[string, window]
}

// LimiterOption customises a WindowLimiter.
type LimiterOption func(*WindowLimiter)

// WithLimit sets the number of accepted attempts per window.
func WithLimit(limit int) LimiterOption {
	return func(l *WindowLimiter) {
		if limit > 0 {
			l.limit = limit
		}
	}
}

// WithWindow sets the window length.
func WithWindow(d time.Duration) LimiterOption {
	return func(l *WindowLimiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithLimiterClock overrides the limiter clock.
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *WindowLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewWindowLimiter(opts ...LimiterOption) *WindowLimiter {
	l := &WindowLimiter{
		limit:   DefaultLimit,
		window:  DefaultWindow,
		now:     time.Now,
		windows: xsync.NewMapOf[string, window](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *WindowLimiter) Allow(_ context.Context, key string) error {
	var retryAfter time.Duration
	rejected := false
	l.windows.Compute(key, func(current window, loaded bool) (window, bool) {
		now := l.now()
		if !loaded || !now.Before(current.resetAt) {
			return window{count: 1, resetAt: now.Add(l.window)}, false
		}
		if current.count >= l.limit {
			rejected = true
			retryAfter = current.resetAt.Sub(now)
			return current, false
		}
		current.count++
		return current, false
	})
	if rejected {
		return &RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}

// Sweep drops expired windows and reports how many were removed.
func (l *WindowLimiter) Sweep(now time.Time) int {
	removed := 0
	l.windows.Range(func(key string, current window) bool {
		if !now.Before(current.resetAt) {
			l.windows.Compute(key, func(latest window, loaded bool) (window, bool) {
				if loaded && !now.Before(latest.resetAt) {
					removed++
					return latest, true
				}
				return latest, !loaded
			})
		}
		return true
	})
	return removed
}

// Len returns the number of tracked sources.
func (l *WindowLimiter) Len() int {
	return l.windows.Size()
}
