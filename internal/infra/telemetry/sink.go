package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/core/domain"
)

// AccessDeniedEvent is sent to the access-denial logging procedure.
type AccessDeniedEvent struct {
	Kind      domain.AccessDeniedKind `json:"kind"`
	Operation string                  `json:"operation"`
	Route     string                  `json:"route"`
	Code      string                  `json:"code"`
	Message   string                  `json:"message"`
	TenantID  string                  `json:"tenant_id,omitempty"`
}

// AppErrorEvent is sent to the generic client-error logging procedure.
type AppErrorEvent struct {
	Operation string `json:"operation"`
	Route     string `json:"route"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Duration  int64  `json:"duration_ms"`
}

// Sink posts telemetry events to the backend logging procedures.
// Every report is fire-and-forget: spawned off the caller's path, bounded
// by its own timeout, and swallowed on failure. A failure while reporting
// a failure must never reach the caller.
type Sink struct {
	deniedURL string
	errorURL  string
	client    *http.Client
	log       *slog.Logger

	// wg lets tests and shutdown wait for in-flight reports.
	wg sync.WaitGroup
}

// NewSink creates a sink posting to the two logging endpoints under base.
func NewSink(base string, log *slog.Logger) *Sink {
	return &Sink{
		deniedURL: base + "/rpc/log_access_denied",
		errorURL:  base + "/rpc/log_client_error",
		client:    &http.Client{Timeout: 5 * time.Second},
		log:       log,
	}
}

// AccessDenied reports an authorization failure. Never blocks, never fails.
func (s *Sink) AccessDenied(ev AccessDeniedEvent) {
	s.post(s.deniedURL, ev)
}

// AppError reports a generic application error. Never blocks, never fails.
func (s *Sink) AppError(ev AppErrorEvent) {
	s.post(s.errorURL, ev)
}

// Wait blocks until all spawned reports finish. Used by shutdown and tests.
func (s *Sink) Wait() {
	s.wg.Wait()
}

func (s *Sink) post(url string, ev any) {
	body, err := json.Marshal(ev)
	if err != nil {
		s.log.Debug("telemetry marshal failed", "error", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Debug("telemetry report panicked", "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			s.log.Debug("telemetry request failed", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Debug("telemetry post failed", "url", url, "error", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			s.log.Debug("telemetry post rejected", "url", url, "status", resp.StatusCode)
		}
	}()
}
