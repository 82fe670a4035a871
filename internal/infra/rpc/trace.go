package rpc

import (
	"sync"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/core/domain"
)

// defaultTraceCap bounds diagnostic memory; oldest entries are evicted.
const defaultTraceCap = 200

// TraceRing keeps the most recent procedure/function call records.
type TraceRing struct {
	mu      sync.Mutex
	entries []domain.CallTrace
	next    int
	full    bool
}

// NewTraceRing creates a ring holding at most capacity entries.
func NewTraceRing(capacity int) *TraceRing {
	if capacity <= 0 {
		capacity = defaultTraceCap
	}
	return &TraceRing{entries: make([]domain.CallTrace, capacity)}
}

// Add records a call trace, evicting the oldest when full.
func (r *TraceRing) Add(t domain.CallTrace) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = t
	r.next++
	if r.next == len(r.entries) {
		r.next = 0
		r.full = true
	}
}

// Snapshot returns the recorded traces, most recent first.
func (r *TraceRing) Snapshot() []domain.CallTrace {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.entries)
	}

	out := make([]domain.CallTrace, 0, size)
	for i := 0; i < size; i++ {
		idx := (r.next - 1 - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out
}
