// Package sales coordinates the one mutation that must never be lost:
// finalizing a sale, which posts a financial transaction and may
// decrement inventory. The backend procedure is idempotent by sale id,
// which together with the queue's replace semantics guarantees at most
// one effective application on retry.
package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/core/domain"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/rpc"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/telemetry"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/outbox"
)

// ErrQueued is the distinguished outcome for a finalize that could not
// be confirmed but was durably queued. The UI shows it as "pending
// sync", visually distinct from both success and failure.
var ErrQueued = errors.New("finalize queued for retry")

const (
	finalizeProc = "finalize_sale"
	// legacyProc is the pre-rename procedure kept as a compatibility
	// fallback for backends that don't know the current shape yet.
	legacyProc = "finalizar_venda"
)

// Invoker is the slice of the call client the coordinator needs.
type Invoker interface {
	CallRPC(ctx context.Context, procedure string, params any) (json.RawMessage, error)
}

// FlushReport summarizes one queue drain.
type FlushReport struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Coordinator is the single call site deciding queue-or-propagate for
// the finalize mutation.
type Coordinator struct {
	client Invoker
	queue  *outbox.Queue
	log    *slog.Logger

	// flushing serializes FlushQueue; a concurrent second call is a no-op.
	flushing atomic.Bool
}

// NewCoordinator creates a coordinator over the call client and queue.
func NewCoordinator(client Invoker, queue *outbox.Queue, log *slog.Logger) *Coordinator {
	return &Coordinator{client: client, queue: queue, log: log}
}

// Finalize invokes the finalize procedure for saleID, posting to
// accountID and optionally applying the stock deduction.
//
// Success removes any stale queue entry and returns the refreshed sale
// state. A retryable failure queues the mutation and returns ErrQueued.
// A terminal failure propagates unchanged.
func (c *Coordinator) Finalize(ctx context.Context, saleID, accountID string, applyStock bool) (*domain.SaleResult, error) {
	body, err := c.invoke(ctx, saleID, accountID, applyStock)
	if err == nil {
		// Defensive cleanup: an earlier queued attempt may have landed.
		c.queue.Remove(ctx, saleID)

		var result domain.SaleResult
		if uerr := json.Unmarshal(body, &result); uerr != nil {
			return nil, fmt.Errorf("decode finalize result: %w", uerr)
		}
		return &result, nil
	}

	if rpc.Classify(err) == rpc.Retryable {
		c.queue.Upsert(ctx, saleID, accountID)
		c.log.Info("finalize queued for retry", "sale", saleID, "cause", err)
		return nil, fmt.Errorf("%w: sale %s", ErrQueued, saleID)
	}

	return nil, err
}

// FlushQueue drains the current queue snapshot once: each entry is
// retried, removed on success, bumped on failure. Serialized by an
// in-flight flag; a concurrent call returns a zero report immediately so
// overlapping triggers cannot double-submit entries.
func (c *Coordinator) FlushQueue(ctx context.Context) FlushReport {
	if !c.flushing.CompareAndSwap(false, true) {
		return FlushReport{}
	}
	defer c.flushing.Store(false)

	var report FlushReport
	for _, entry := range c.queue.List(ctx) {
		// Replay applies the stock effect; the backend skips it when the
		// original attempt already landed, by the idempotency contract.
		_, err := c.invoke(ctx, entry.EntityID, entry.ResourceRef, true)
		if err == nil {
			c.queue.Remove(ctx, entry.EntityID)
			report.Processed++
			telemetry.FlushResults.WithLabelValues("ok").Inc()
			continue
		}

		c.queue.BumpAttempt(ctx, entry.EntityID, err.Error())
		report.Failed++
		telemetry.FlushResults.WithLabelValues("failed").Inc()
		c.log.Warn("queued finalize still failing",
			"sale", entry.EntityID, "attempts", entry.Attempts+1, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	return report
}

// PendingCount returns the number of queued mutations.
func (c *Coordinator) PendingCount(ctx context.Context) int {
	return len(c.queue.List(ctx))
}

// invoke calls the current finalize shape, falling back once to the
// legacy shape when the backend doesn't recognize the procedure. The
// fallback is a compatibility shim for contract drift, not a retry.
func (c *Coordinator) invoke(ctx context.Context, saleID, accountID string, applyStock bool) (json.RawMessage, error) {
	body, err := c.client.CallRPC(ctx, finalizeProc, map[string]any{
		"sale_id":            saleID,
		"account_id":         accountID,
		"apply_stock_effect": applyStock,
	})
	if err == nil || !rpc.IsUnknownProcedure(err) {
		return body, err
	}

	c.log.Debug("finalize procedure unknown to backend, using legacy shape", "sale", saleID)
	return c.client.CallRPC(ctx, legacyProc, map[string]any{
		"sale_id":    saleID,
		"account_id": accountID,
	})
}
