// Package telemetry handles best-effort failure reporting: windowed
// deduplication, the fire-and-forget sink client, and prometheus metrics.
package telemetry

import (
	"fmt"
	"sync"
	"time"
)

// Deduplicator suppresses repeated identical events inside a fixed
// window. It is a rate limiter, not a correctness mechanism: state is
// in-memory only and lost on restart, which is acceptable.
//
// Two independent instances run in practice, one for access-denied
// events and one for generic application errors, each with its own
// window and key space.
type Deduplicator struct {
	window  time.Duration
	channel string

	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewDeduplicator creates a deduplicator with the given window.
// The channel label only feeds the suppression metric.
func NewDeduplicator(window time.Duration, channel string) *Deduplicator {
	return &Deduplicator{
		window:  window,
		channel: channel,
		last:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// ShouldReport reports whether an event with this signature may go out,
// recording the report time when it answers true.
func (d *Deduplicator) ShouldReport(signature string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.last[signature]; ok && now.Sub(at) < d.window {
		EventsSuppressed.WithLabelValues(d.channel).Inc()
		return false
	}
	d.last[signature] = now
	return true
}

// Signature builds the dedupe key for a failure so that distinct
// failures on the same route are not conflated.
func Signature(op, route, code string, status int, message string) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s", op, route, code, status, message)
}
