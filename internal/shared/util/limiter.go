package util

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket used to throttle repetitive log records. Events
// refused by Allow are counted so callers can report them once at the end.
type Limiter struct {
	inner      *rate.Limiter
	suppressed atomic.Int64
}

// NewLimiter creates a limiter refilling r tokens per second with burst b.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// Allow reports whether one more event may be emitted now.
func (l *Limiter) Allow() bool {
	if l.inner.AllowN(time.Now(), 1) {
		return true
	}
	l.suppressed.Add(1)
	return false
}

// Suppressed is the number of events refused so far.
func (l *Limiter) Suppressed() int64 {
	return l.suppressed.Load()
}
