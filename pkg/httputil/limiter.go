// Package httputil carries the small HTTP-side infrastructure for the
// nsguard server that does not belong in the pure engine packages.
package httputil

import (
	"context"
	"sync/atomic"
)

// Limiter bounds how many identifier evaluations run at once across all
// in-flight batch requests. The engine itself is pure and unbounded; the
// server uses this to keep a flood of large batches from starving the
// process.
type Limiter struct {
	slots    chan struct{}
	rejected atomic.Int64
}

// NewLimiter creates a limiter with the given capacity. Non-positive means
// the package default of 16.
func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = 16
	}
	return &Limiter{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is available or the context is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire grabs a slot without blocking. A false return is counted as a
// rejection for monitoring.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		return true
	default:
		l.rejected.Add(1)
		return false
	}
}

// Release returns a slot. Releasing without a prior acquire is a no-op.
func (l *Limiter) Release() {
	select {
	case <-l.slots:
	default:
	}
}

// Do runs fn inside a slot, waiting for one if needed.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// InUse returns the number of occupied slots.
func (l *Limiter) InUse() int { return len(l.slots) }

// Capacity returns the slot count.
func (l *Limiter) Capacity() int { return cap(l.slots) }

// Rejected returns how many TryAcquire calls found the limiter full.
func (l *Limiter) Rejected() int64 { return l.rejected.Load() }
