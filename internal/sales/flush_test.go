package sales

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/storage/memory"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/outbox"
)

func TestFlushDrainsHealthyBackend(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	coord, q := newCoordinator(backend)

	q.Upsert(ctx, "sale-1", "acct-1")
	q.Upsert(ctx, "sale-2", "acct-2")

	report := coord.FlushQueue(ctx)
	if report.Processed != 2 || report.Failed != 0 {
		t.Fatalf("report = %+v, want {2 0}", report)
	}
	if items := q.List(ctx); len(items) != 0 {
		t.Fatalf("queue = %+v, want drained", items)
	}
}

func TestFlushBumpsFailingEntries(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{fail: serverError(503)}
	coord, q := newCoordinator(backend)

	q.Upsert(ctx, "sale-1", "acct-1")

	report := coord.FlushQueue(ctx)
	if report.Processed != 0 || report.Failed != 1 {
		t.Fatalf("report = %+v, want {0 1}", report)
	}

	items := q.List(ctx)
	if len(items) != 1 {
		t.Fatalf("queue = %+v, entry must survive a failed flush", items)
	}
	if items[0].Attempts != 1 || items[0].LastError == "" {
		t.Fatalf("entry = %+v, want bumped attempt with recorded error", items[0])
	}
}

func TestFlushAfterReload(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()

	// A failed finalize queues the entry.
	down := &fakeBackend{fail: serverError(503)}
	coord1 := NewCoordinator(down, outbox.New(kv, slog.Default()), slog.Default())
	if _, err := coord1.Finalize(ctx, "sale-1", "acct-9", true); !errors.Is(err, ErrQueued) {
		t.Fatalf("err = %v, want ErrQueued", err)
	}

	// New process over the same store, backend healthy again.
	healthy := &fakeBackend{}
	queue2 := outbox.New(kv, slog.Default())
	coord2 := NewCoordinator(healthy, queue2, slog.Default())

	if items := queue2.List(ctx); len(items) != 1 {
		t.Fatalf("queue after reload = %+v, want the sale-1 entry", items)
	}

	report := coord2.FlushQueue(ctx)
	if report.Processed != 1 || report.Failed != 0 {
		t.Fatalf("report = %+v, want {1 0}", report)
	}
	if items := queue2.List(ctx); len(items) != 0 {
		t.Fatalf("queue = %+v, want empty after successful flush", items)
	}
}

func TestFlushSerialized(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	coord, q := newCoordinator(backend)
	q.Upsert(ctx, "sale-1", "acct-1")

	var wg sync.WaitGroup
	wg.Add(1)
	var first FlushReport
	go func() {
		defer wg.Done()
		first = coord.FlushQueue(ctx)
	}()

	// Second flush issued while the first is mid-call must be a no-op.
	<-backend.started
	second := coord.FlushQueue(ctx)
	if second.Processed != 0 || second.Failed != 0 {
		t.Fatalf("concurrent flush report = %+v, want zero", second)
	}

	close(backend.release)
	wg.Wait()

	if first.Processed != 1 {
		t.Fatalf("first flush report = %+v, want {1 0}", first)
	}
	// Each entry retried at most once across both calls.
	if got := backend.callCount(); got != 1 {
		t.Fatalf("backend calls = %d, want 1", got)
	}
}

func TestFlushEmptyQueue(t *testing.T) {
	backend := &fakeBackend{}
	coord, _ := newCoordinator(backend)

	report := coord.FlushQueue(context.Background())
	if report.Processed != 0 || report.Failed != 0 {
		t.Fatalf("report = %+v, want zero", report)
	}
	if backend.callCount() != 0 {
		t.Fatal("flush of empty queue must not call the backend")
	}
}
