package types

import (
	"context"
	"sync"
	"time"
)

// Extend applies the renewal rule shared by subscriptions and capability
// tokens: a period that is still running extends from its current end, a
// lapsed one restarts from now.
func Extend(now, end time.Time, d time.Duration) time.Time {
	if now.After(end) {
		return now.Add(d)
	}
	return end.Add(d)
}

// Within reports whether now falls inside a period ending at end.
// The end instant itself is still inside.
func Within(now, end time.Time) bool {
	return !now.After(end)
}

// Remaining returns how much of a period ending at end is left at now,
// never negative.
func Remaining(now, end time.Time) time.Duration {
	if now.After(end) {
		return 0
	}
	return end.Sub(now)
}

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a ManualClock stopped at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type opTimeKey struct{}

// ContextWithTime pins the timestamp of one operation. Every component that
// takes part in the operation reads the same instant through OperationTime.
func ContextWithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, opTimeKey{}, t)
}

// OperationTime returns the timestamp pinned on ctx, or clock.Now().
func OperationTime(ctx context.Context, clock Clock) time.Time {
	if t, ok := ctx.Value(opTimeKey{}).(time.Time); ok {
		return t
	}
	return clock.Now()
}
