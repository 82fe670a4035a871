// Package outbox is the durable write queue for critical mutations.
//
// Entries live in one versioned JSON document on the KV store so a
// finalize that failed transiently survives a process restart. Every
// operation is best-effort: a storage failure degrades to
// nothing-persisted instead of failing the caller.
package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/core/domain"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/storage"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/telemetry"
)

// docKey is the fixed storage key, distinct from all other persisted data.
const docKey = "revo:outbox:finalize"

// docVersion guards against a future incompatible shape being misread.
const docVersion = 1

type document struct {
	Version int                 `json:"version"`
	Items   []domain.QueuedSale `json:"items"`
}

// Queue is the durable write queue.
type Queue struct {
	kv  storage.KV
	log *slog.Logger
	now func() time.Time
}

// New creates a queue over the given KV store.
func New(kv storage.KV, log *slog.Logger) *Queue {
	return &Queue{kv: kv, log: log, now: time.Now}
}

// Upsert inserts or replaces the entry for entityID, most-recent first.
// Replacing resets the attempt counter: a user resubmit is a fresh
// mutation, and replace semantics keep the queue bounded to one entry
// per entity.
func (q *Queue) Upsert(ctx context.Context, entityID, resourceRef string) {
	items := q.load(ctx)

	kept := make([]domain.QueuedSale, 0, len(items)+1)
	kept = append(kept, domain.QueuedSale{
		EntityID:    entityID,
		ResourceRef: resourceRef,
		CreatedAt:   q.now(),
	})
	for _, it := range items {
		if it.EntityID != entityID {
			kept = append(kept, it)
		}
	}

	q.save(ctx, kept)
}

// Remove drops the entry for entityID, if any.
func (q *Queue) Remove(ctx context.Context, entityID string) {
	items := q.load(ctx)

	kept := items[:0]
	for _, it := range items {
		if it.EntityID != entityID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		return
	}

	q.save(ctx, kept)
}

// List returns all pending entries, most-recent first.
func (q *Queue) List(ctx context.Context) []domain.QueuedSale {
	return q.load(ctx)
}

// BumpAttempt increments the attempt counter for entityID and records
// the error, keeping the entry queued.
func (q *Queue) BumpAttempt(ctx context.Context, entityID, lastError string) {
	items := q.load(ctx)

	changed := false
	for i := range items {
		if items[i].EntityID == entityID {
			items[i].Attempts++
			items[i].LastError = lastError
			changed = true
			break
		}
	}
	if !changed {
		return
	}

	q.save(ctx, items)
}

func (q *Queue) load(ctx context.Context) []domain.QueuedSale {
	data, err := q.kv.Get(ctx, docKey)
	if err != nil {
		q.log.Warn("outbox read failed, treating as empty", "error", err)
		return nil
	}
	if data == nil {
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		q.log.Warn("outbox document unreadable, treating as empty", "error", err)
		return nil
	}
	if doc.Version != docVersion {
		q.log.Warn("outbox document version mismatch, ignoring",
			"found", doc.Version, "want", docVersion)
		return nil
	}

	return doc.Items
}

func (q *Queue) save(ctx context.Context, items []domain.QueuedSale) {
	data, err := json.Marshal(document{Version: docVersion, Items: items})
	if err != nil {
		q.log.Warn("outbox marshal failed", "error", err)
		return
	}
	if err := q.kv.Set(ctx, docKey, data); err != nil {
		q.log.Warn("outbox write failed, entry not persisted", "error", err)
		return
	}
	telemetry.QueueDepth.Set(float64(len(items)))
}
