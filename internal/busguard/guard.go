// Package busguard tracks in-flight async bus callbacks during shutdown, so
// disconnect can drain outstanding work before disabling callbacks, per
// SPEC_FULL.md §4.7.
package busguard

import "sync/atomic"

// Counter is an in-flight-callback counter plus a stop flag, shared across
// every callback goroutine a bus client spawns.
type Counter struct {
	inFlight int64
	stop     int32
}

// Stop marks the counter as shutting down. New tokens acquired after Stop
// report ShouldSkip() == true; tokens already in flight keep whatever value
// they captured at Acquire time.
func (c *Counter) Stop() { atomic.StoreInt32(&c.stop, 1) }

// InFlight returns the number of tokens currently acquired and not yet
// released.
func (c *Counter) InFlight() int64 { return atomic.LoadInt64(&c.inFlight) }

// Token is a single callback's guard: acquired at callback entry, released
// (via Release, typically deferred) at callback exit. ShouldSkip is
// captured once, at Acquire time, so its value is stable for the token's
// lifetime even if Stop races concurrently.
type Token struct {
	counter    *Counter
	shouldSkip bool
}

// Acquire increments the in-flight counter and captures the current stop
// state. Callers defer Release immediately, before checking ShouldSkip,
// so an early return on ShouldSkip still releases the token.
func (c *Counter) Acquire() Token {
	shouldSkip := atomic.LoadInt32(&c.stop) != 0
	atomic.AddInt64(&c.inFlight, 1)
	return Token{counter: c, shouldSkip: shouldSkip}
}

// ShouldSkip reports whether the callback should early-return because
// shutdown was already in progress when this token was acquired.
func (t Token) ShouldSkip() bool { return t.shouldSkip }

// Release decrements the in-flight counter. Safe to call exactly once per
// Token, typically via defer.
func (t Token) Release() {
	if t.counter != nil {
		atomic.AddInt64(&t.counter.inFlight, -1)
	}
}
