// Package control wires the gateway together: storage, telemetry, the
// call client and the finalize coordinator, plus the HTTP surface and
// the opportunistic flush loop.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/core/config"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/core/tenant"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/rpc"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/storage"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/storage/memory"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/storage/postgres"
	redisstore "github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/storage/redis"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/telemetry"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/outbox"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/sales"
)

// healthChecker is implemented by stores with a reachable backend.
type healthChecker interface {
	Health(ctx context.Context) error
}

// Gateway is the running sync gateway.
type Gateway struct {
	cfg    *config.AppConfig
	log    *slog.Logger
	tenant *tenant.Context
	client *rpc.Client
	queue  *outbox.Queue
	coord  *sales.Coordinator
	sink   *telemetry.Sink
	server *http.Server

	store       storage.KV
	storeHealth healthChecker
	db          *postgres.DB
	redis       *redisstore.Store

	stopFlush context.CancelFunc
	wg        sync.WaitGroup
}

// NewGateway creates a gateway with all dependencies initialized.
func NewGateway(cfg *config.AppConfig, log *slog.Logger) (*Gateway, error) {
	g := &Gateway{cfg: cfg, log: log}

	if err := g.initStorage(); err != nil {
		return nil, err
	}

	g.tenant = tenant.NewContext()
	if cfg.Backend.TenantID != "" {
		g.tenant.Set(cfg.Backend.TenantID)
	}

	g.sink = telemetry.NewSink(cfg.Backend.BaseURL, log)
	g.client = rpc.NewClient(rpc.Config{
		BaseURL:        cfg.Backend.BaseURL,
		RPCTimeout:     cfg.Backend.RPCTimeout,
		RESTTimeout:    cfg.Backend.RESTTimeout,
		DeniedWindow:   cfg.Telemetry.DeniedWindow,
		AppErrorWindow: cfg.Telemetry.AppErrorWindow,
	}, g.tenant, g.sink, log)

	g.queue = outbox.New(g.store, log)
	g.coord = sales.NewCoordinator(g.client, g.queue, log)
	g.server = newServer(g, cfg.Server.Port)

	return g, nil
}

func (g *Gateway) initStorage() error {
	switch g.cfg.Storage.Driver {
	case "", "memory":
		g.store = memory.NewStore()
		g.log.Info("Using in-memory storage; queued mutations will not survive restarts")
	case "redis":
		store, err := redisstore.NewStore(g.cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to init redis: %w", err)
		}
		g.redis = store
		g.store = store
		g.storeHealth = store
		g.log.Info("Using redis storage")
	case "postgres":
		db, err := postgres.NewDB(context.Background(), g.cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(g.cfg.Database.MigrationsDir); err != nil {
			return err
		}
		g.db = db
		g.store = postgres.NewStore(db)
		g.storeHealth = db
		g.log.Info("Using PostgreSQL storage")
	default:
		return fmt.Errorf("unknown storage driver %q", g.cfg.Storage.Driver)
	}
	return nil
}

// Start launches the HTTP server and the flush loop.
func (g *Gateway) Start(ctx context.Context) error {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.log.Info("Gateway listening", "addr", g.server.Addr)
		if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("HTTP server failed", "error", err)
		}
	}()

	flushCtx, cancel := context.WithCancel(context.Background())
	g.stopFlush = cancel
	g.wg.Add(1)
	go g.flushLoop(flushCtx)

	return nil
}

// Stop shuts the gateway down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.stopFlush != nil {
		g.stopFlush()
	}

	var firstErr error
	if err := g.server.Shutdown(ctx); err != nil {
		firstErr = err
	}

	g.wg.Wait()
	g.sink.Wait()

	if g.redis != nil {
		if err := g.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if g.db != nil {
		if err := g.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Coordinator exposes the finalize coordinator for callers embedding the
// gateway (CLI commands, tests).
func (g *Gateway) Coordinator() *sales.Coordinator {
	return g.coord
}

// Client exposes the backend call client.
func (g *Gateway) Client() *rpc.Client {
	return g.client
}

// Queue exposes the durable write queue for read-only inspection.
func (g *Gateway) Queue() *outbox.Queue {
	return g.queue
}

// Tenant exposes the tenant context for the tenant-switch flow.
func (g *Gateway) Tenant() *tenant.Context {
	return g.tenant
}

// flushLoop retries queued mutations opportunistically: once at start,
// then on a fixed interval.
func (g *Gateway) flushLoop(ctx context.Context) {
	defer g.wg.Done()

	g.flushOnce(ctx)

	ticker := time.NewTicker(g.cfg.Flush.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.flushOnce(ctx)
		}
	}
}

func (g *Gateway) flushOnce(ctx context.Context) {
	if g.coord.PendingCount(ctx) == 0 {
		return
	}
	report := g.coord.FlushQueue(ctx)
	if report.Processed > 0 || report.Failed > 0 {
		g.log.Info("Flushed durable queue",
			"processed", report.Processed, "failed", report.Failed)
	}
}
