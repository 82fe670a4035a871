package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/core/domain"
)

func newServer(g *Gateway, port int) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/status", g.handleStatus)
	mux.HandleFunc("/flush", g.handleFlush)
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Storage: "ok"}
	code := http.StatusOK

	if g.storeHealth != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := g.storeHealth.Health(ctx); err != nil {
			resp.Status = "degraded"
			resp.Storage = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, resp)
}

type statusResponse struct {
	PendingSync []domain.QueuedSale `json:"pending_sync"`
	Traces      []domain.CallTrace  `json:"recent_calls"`
}

// handleStatus surfaces the "pending sync" state and recent call traces.
func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	items := g.queue.List(r.Context())
	if items == nil {
		items = []domain.QueuedSale{}
	}
	writeJSON(w, http.StatusOK, statusResponse{
		PendingSync: items,
		Traces:      g.client.Traces(),
	})
}

func (g *Gateway) handleFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	report := g.coord.FlushQueue(r.Context())
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
