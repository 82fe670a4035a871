// Package rpc is the single choke point for every outbound backend call.
//
// The client injects the tenant and correlation headers, enforces a
// per-kind deadline racing the caller's own cancellation, measures the
// call, records capped traces, and routes failures through the windowed
// telemetry channels. It is transparent to business logic: the original
// response or error always reaches the caller unchanged.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/core/domain"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/core/tenant"
	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/infra/telemetry"
)

const (
	// HeaderTenant carries the active tenant id. Absent when no tenant
	// is selected; the backend answers with a recognizable permission error.
	HeaderTenant = "X-Tenant-ID"
	// HeaderCorrelation carries the per-call id joining client and server logs.
	HeaderCorrelation = "X-Correlation-ID"
)

// TelemetrySink receives deduplicated failure events. Implementations
// must be fire-and-forget: never block, never return an error.
type TelemetrySink interface {
	AccessDenied(ev telemetry.AccessDeniedEvent)
	AppError(ev telemetry.AppErrorEvent)
}

// Config holds client settings.
type Config struct {
	BaseURL string
	// RPCTimeout bounds procedure and function invocations.
	RPCTimeout time.Duration
	// RESTTimeout bounds plain resource calls; shorter than RPCTimeout.
	RESTTimeout time.Duration
	// DeniedWindow and AppErrorWindow are the dedupe windows for the two
	// telemetry channels.
	DeniedWindow   time.Duration
	AppErrorWindow time.Duration
}

func (c *Config) applyDefaults() {
	if c.RPCTimeout == 0 {
		c.RPCTimeout = 30 * time.Second
	}
	if c.RESTTimeout == 0 {
		c.RESTTimeout = 10 * time.Second
	}
	if c.DeniedWindow == 0 {
		c.DeniedWindow = 10 * time.Second
	}
	if c.AppErrorWindow == 0 {
		c.AppErrorWindow = 10 * time.Second
	}
}

// Client makes outbound backend calls with cross-cutting policy applied
// exactly once.
type Client struct {
	base        string
	httpClient  *http.Client
	tenant      *tenant.Context
	traces      *TraceRing
	deniedGate  *telemetry.Deduplicator
	appGate     *telemetry.Deduplicator
	sink        TelemetrySink
	rpcTimeout  time.Duration
	restTimeout time.Duration
	log         *slog.Logger
}

// NewClient creates a client for the backend at cfg.BaseURL.
func NewClient(cfg Config, tc *tenant.Context, sink TelemetrySink, log *slog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tenant:      tc,
		traces:      NewTraceRing(defaultTraceCap),
		deniedGate:  telemetry.NewDeduplicator(cfg.DeniedWindow, "access_denied"),
		appGate:     telemetry.NewDeduplicator(cfg.AppErrorWindow, "app_error"),
		sink:        sink,
		rpcTimeout:  cfg.RPCTimeout,
		restTimeout: cfg.RESTTimeout,
		log:         log,
	}
}

// CallRPC invokes a named remote procedure with a JSON body.
func (c *Client) CallRPC(ctx context.Context, procedure string, params any) (json.RawMessage, error) {
	return c.postJSON(ctx, c.base+"/rpc/"+procedure, params)
}

// CallFunction invokes a backend edge function with a JSON body.
func (c *Client) CallFunction(ctx context.Context, name string, params any) (json.RawMessage, error) {
	return c.postJSON(ctx, c.base+"/functions/v1/"+name, params)
}

// Get reads a plain resource path relative to the backend base URL.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, c.base+path, nil, nil)
}

// Traces returns the recent call records, most recent first.
func (c *Client) Traces() []domain.CallTrace {
	return c.traces.Snapshot()
}

func (c *Client) postJSON(ctx context.Context, rawURL string, params any) (json.RawMessage, error) {
	var body []byte
	if params != nil {
		var err error
		body, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	return c.Do(ctx, http.MethodPost, rawURL, body, hdr)
}

// Do executes one outbound call. Exactly one Do per physical attempt;
// retries create fresh correlation ids.
func (c *Client) Do(ctx context.Context, method, rawURL string, body []byte, hdr http.Header) (json.RawMessage, error) {
	kind, op, route := targetOf(rawURL)

	timeout := c.restTimeout
	if kind != domain.KindREST {
		timeout = c.rpcTimeout
	}

	// First-to-fire composition: the caller's signal and our deadline
	// race; whichever ends first aborts the in-flight call.
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	tenantPresent := c.injectHeaders(req)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		ce := transportError(ctx, op, route, err)
		c.observeFailure(ce, kind, duration, tenantPresent)
		return nil, ce
	}
	defer resp.Body.Close()

	// Body is read opportunistically; a read failure leaves it empty
	// rather than failing the call outcome.
	respBody := readAllBestEffort(resp)

	telemetry.CallLatency.WithLabelValues(string(kind)).Observe(duration.Seconds())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		telemetry.CallsTotal.WithLabelValues(string(kind), "success").Inc()
		if kind != domain.KindREST {
			c.traces.Add(domain.CallTrace{
				Name:     op,
				Kind:     kind,
				Status:   resp.StatusCode,
				Duration: duration,
				At:       start,
			})
		}
		return respBody, nil
	}

	remote := parseRemoteError(respBody)
	ce := &CallError{
		Kind:    kindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Code:    remote.Code,
		Message: remote.Message,
		Op:      op,
		Route:   route,
	}
	if ce.Message == "" {
		ce.Message = http.StatusText(resp.StatusCode)
	}

	c.observeFailure(ce, kind, duration, tenantPresent)
	return nil, ce
}

// injectHeaders sets the tenant header (when one is active and the
// caller didn't set it) and a fresh correlation id (when absent).
// Returns whether a tenant header ended up on the request.
func (c *Client) injectHeaders(req *http.Request) bool {
	if req.Header.Get(HeaderTenant) == "" {
		if id, ok := c.tenant.Get(); ok {
			req.Header.Set(HeaderTenant, id)
		}
	}
	if req.Header.Get(HeaderCorrelation) == "" {
		req.Header.Set(HeaderCorrelation, uuid.NewString())
	}
	return req.Header.Get(HeaderTenant) != ""
}

// transportError maps a request-level failure to its taxonomy kind. The
// caller's own cancellation is checked before the deadline so the two
// races stay distinguishable: the loser of the race is never reported.
func transportError(ctx context.Context, op, route string, err error) *CallError {
	ce := &CallError{Op: op, Route: route, Err: err}
	switch {
	case ctx.Err() == context.Canceled || errors.Is(err, context.Canceled):
		ce.Kind = KindCallerCancelled
	case errors.Is(err, context.DeadlineExceeded):
		ce.Kind = KindTimeout
	default:
		ce.Kind = KindTransport
	}
	return ce
}

// observeFailure emits metrics, traces and deduplicated telemetry for a
// failed call. Best-effort throughout: nothing here may reach the caller.
func (c *Client) observeFailure(ce *CallError, kind domain.CallKind, duration time.Duration, tenantPresent bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug("failure observation panicked", "panic", r)
		}
	}()

	telemetry.CallsTotal.WithLabelValues(string(kind), "error").Inc()
	telemetry.CallFailures.WithLabelValues(string(ce.Kind)).Inc()

	if kind != domain.KindREST {
		c.traces.Add(domain.CallTrace{
			Name:     ce.Op,
			Kind:     kind,
			Status:   ce.Status,
			Duration: duration,
			At:       time.Now().Add(-duration),
		})
	}

	// Authorization denials go through their own dedupe channel; they are
	// diagnostically distinct from generic application errors.
	if ce.Kind == KindAuthDenied {
		deniedKind := classifyDenied(ce, tenantPresent)
		sig := telemetry.Signature(ce.Op, ce.Route, ce.Code, ce.Status, ce.Message)
		if c.deniedGate.ShouldReport(sig) {
			tenantID, _ := c.tenant.Get()
			c.sink.AccessDenied(telemetry.AccessDeniedEvent{
				Kind:      deniedKind,
				Operation: ce.Op,
				Route:     ce.Route,
				Code:      ce.Code,
				Message:   ce.Message,
				TenantID:  tenantID,
			})
		}
		return
	}

	// Remote logging is only worth it for procedure/function targets with
	// an HTTP outcome; transport-level failures have no backend to log to.
	if kind == domain.KindREST || ce.Status == 0 {
		return
	}

	sig := telemetry.Signature(ce.Op, ce.Route, ce.Code, ce.Status, ce.Message)
	if c.appGate.ShouldReport(sig) {
		c.sink.AppError(telemetry.AppErrorEvent{
			Operation: ce.Op,
			Route:     ce.Route,
			Status:    ce.Status,
			Code:      ce.Code,
			Message:   ce.Message,
			Duration:  duration.Milliseconds(),
		})
	}
}

// classifyDenied separates missing-tenant and plan-entitlement denials
// from generic permission errors.
func classifyDenied(ce *CallError, tenantPresent bool) domain.AccessDeniedKind {
	switch {
	case ce.Code == "no_active_tenant" || !tenantPresent:
		return domain.DeniedMissingTenant
	case ce.Code == "plan_gated":
		return domain.DeniedPlanGated
	default:
		return domain.DeniedGeneric
	}
}

// targetOf derives the call kind, operation name and route from the URL shape.
func targetOf(rawURL string) (domain.CallKind, string, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.KindREST, rawURL, rawURL
	}
	path := u.Path

	if i := strings.Index(path, "/rpc/"); i >= 0 {
		op := strings.Trim(path[i+len("/rpc/"):], "/")
		if op != "" {
			return domain.KindRPC, op, path
		}
	}
	if i := strings.Index(path, "/functions/v1/"); i >= 0 {
		op := strings.Trim(path[i+len("/functions/v1/"):], "/")
		if op != "" {
			return domain.KindFunction, op, path
		}
	}
	return domain.KindREST, path, path
}

func parseRemoteError(body []byte) domain.RemoteError {
	var remote domain.RemoteError
	if len(body) == 0 {
		return remote
	}
	// Parse failures are swallowed: the body may be HTML or truncated.
	_ = json.Unmarshal(body, &remote)
	return remote
}

func readAllBestEffort(resp *http.Response) []byte {
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes()
}
