// Package retry provides reconnect log damping and capped exponential
// backoff for the sync subsystem.
package retry

import (
	"math"
	"sync/atomic"
	"time"
)

// Damper tracks a monotonically increasing attempt counter and decides
// which attempts deserve a log line. Reconnection never gives up, so under
// a prolonged outage the attempt log would otherwise flood: the schedule
// logs every attempt for the first 10, then every 10th up to 100, then
// every 100th thereafter.
type Damper struct {
	attempts atomic.Int64
}

// NewDamper creates a damper with a zero attempt counter.
func NewDamper() *Damper {
	return &Damper{}
}

// Next increments the attempt counter and returns the new attempt number.
func (d *Damper) Next() int64 {
	return d.attempts.Add(1)
}

// Attempts returns the current attempt count.
func (d *Damper) Attempts() int64 {
	return d.attempts.Load()
}

// Reset zeroes the attempt counter. Called after a successful connection.
func (d *Damper) Reset() {
	d.attempts.Store(0)
}

// ShouldLog reports whether the given attempt number falls on the damped
// logging schedule.
func ShouldLog(attempt int64) bool {
	if attempt <= 10 {
		return true
	}
	if attempt <= 100 {
		return attempt%10 == 0
	}
	return attempt%100 == 0
}

// Backoff is a capped exponential delay schedule:
// delay = min(BaseDelay * Factor^attempt, MaxDelay).
type Backoff struct {
	BaseDelay time.Duration // Delay for the first failure
	MaxDelay  time.Duration // Upper bound on the delay
	Factor    float64       // Multiplier per consecutive failure
}

// DefaultBackoff returns the production default schedule:
// 30s doubling up to 30m.
func DefaultBackoff() Backoff {
	return Backoff{
		BaseDelay: 30 * time.Second,
		MaxDelay:  30 * time.Minute,
		Factor:    2.0,
	}
}

// Delay returns the wait before the next attempt after the given number of
// consecutive failures (1-based).
func (b Backoff) Delay(failures int) time.Duration {
	if failures <= 1 {
		return b.BaseDelay
	}

	delay := float64(b.BaseDelay) * math.Pow(b.Factor, float64(failures-1))
	if delay > float64(b.MaxDelay) {
		return b.MaxDelay
	}
	return time.Duration(delay)
}
