package sales

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/rpc"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/storage/memory"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/outbox"
)

// fakeBackend scripts CallRPC outcomes per procedure.
type fakeBackend struct {
	mu      sync.Mutex
	fail    error
	calls   []string
	started chan struct{} // closed on first call, when set
	release chan struct{} // blocks calls until closed, when set
}

func (f *fakeBackend) CallRPC(ctx context.Context, procedure string, params any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, procedure)
	started := f.started
	release := f.release
	fail := f.fail
	f.mu.Unlock()

	if started != nil {
		select {
		case <-started:
		default:
			close(started)
		}
	}
	if release != nil {
		<-release
	}
	if fail != nil {
		return nil, fail
	}
	return json.RawMessage(`{"sale_id":"sale-1","status":"finalized"}`), nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newCoordinator(backend Invoker) (*Coordinator, *outbox.Queue) {
	q := outbox.New(memory.NewStore(), slog.Default())
	return NewCoordinator(backend, q, slog.Default()), q
}

func serverError(status int) error {
	return &rpc.CallError{
		Kind:   rpc.KindServerError,
		Status: status,
		Op:     "finalize_sale",
		Route:  "/rpc/finalize_sale",
	}
}

func TestFinalizeSuccess(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	coord, q := newCoordinator(backend)

	res, err := coord.Finalize(ctx, "sale-1", "acct-9", true)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.SaleID != "sale-1" || res.Status != "finalized" {
		t.Fatalf("result = %+v", res)
	}
	if items := q.List(ctx); len(items) != 0 {
		t.Fatalf("queue = %+v, want empty after success", items)
	}
}

func TestFinalizeSuccessClearsStaleEntry(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	coord, q := newCoordinator(backend)

	q.Upsert(ctx, "sale-1", "acct-9")
	if _, err := coord.Finalize(ctx, "sale-1", "acct-9", false); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if items := q.List(ctx); len(items) != 0 {
		t.Fatalf("stale queue entry not removed: %+v", items)
	}
}

func TestFinalizeRetryableQueues(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{fail: serverError(503)}
	coord, q := newCoordinator(backend)

	_, err := coord.Finalize(ctx, "sale-1", "acct-9", true)
	if !errors.Is(err, ErrQueued) {
		t.Fatalf("err = %v, want ErrQueued", err)
	}

	items := q.List(ctx)
	if len(items) != 1 {
		t.Fatalf("queue = %+v, want one entry", items)
	}
	e := items[0]
	if e.EntityID != "sale-1" || e.ResourceRef != "acct-9" || e.Attempts != 0 {
		t.Fatalf("entry = %+v", e)
	}
}

func TestFinalizeTerminalPropagates(t *testing.T) {
	ctx := context.Background()
	original := &rpc.CallError{Kind: rpc.KindClientError, Status: 400, Message: "sale already finalized"}
	backend := &fakeBackend{fail: original}
	coord, q := newCoordinator(backend)

	_, err := coord.Finalize(ctx, "sale-1", "acct-9", true)
	if !errors.Is(err, original) {
		t.Fatalf("err = %v, want original error unchanged", err)
	}
	if errors.Is(err, ErrQueued) {
		t.Fatal("terminal failure must not be reported as queued")
	}
	if items := q.List(ctx); len(items) != 0 {
		t.Fatalf("queue = %+v, terminal failures are never queued", items)
	}
}

func TestFinalizeRepeatReplacesQueueEntry(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{fail: serverError(503)}
	coord, q := newCoordinator(backend)

	coord.Finalize(ctx, "sale-1", "acct-1", true)
	coord.Finalize(ctx, "sale-1", "acct-9", true)

	items := q.List(ctx)
	if len(items) != 1 {
		t.Fatalf("queue = %+v, want a single replaced entry", items)
	}
	if items[0].ResourceRef != "acct-9" {
		t.Fatalf("ResourceRef = %s, want acct-9", items[0].ResourceRef)
	}
}

func TestFinalizeLegacyFallback(t *testing.T) {
	ctx := context.Background()

	// Current shape rejected as unknown, legacy shape succeeds.
	unknown := &rpc.CallError{Kind: rpc.KindClientError, Status: 404, Code: "PGRST202", Route: "/rpc/finalize_sale"}
	scripted := &scriptedBackend{responses: map[string]error{
		"finalize_sale":   unknown,
		"finalizar_venda": nil,
	}}
	coord := NewCoordinator(scripted, outbox.New(memory.NewStore(), slog.Default()), slog.Default())

	res, err := coord.Finalize(ctx, "sale-1", "acct-9", true)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.Status != "finalized" {
		t.Fatalf("result = %+v", res)
	}
	if got := scripted.calls; len(got) != 2 || got[0] != "finalize_sale" || got[1] != "finalizar_venda" {
		t.Fatalf("calls = %v, want current shape then legacy shape", got)
	}
}

// scriptedBackend answers per procedure name.
type scriptedBackend struct {
	mu        sync.Mutex
	responses map[string]error
	calls     []string
}

func (s *scriptedBackend) CallRPC(ctx context.Context, procedure string, params any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, procedure)
	if err, ok := s.responses[procedure]; ok && err != nil {
		return nil, err
	}
	return json.RawMessage(`{"sale_id":"sale-1","status":"finalized"}`), nil
}
