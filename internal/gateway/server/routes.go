package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nexus/internal/gateway/middleware"
	"nexus/internal/gateway/rpc"
	"nexus/internal/gateway/ws"
)

type Routes struct {
	RPC     *rpc.Handler
	Reports *ws.ReportHandler
	// Metrics is served at /metrics when set.
	Metrics        prometheus.Gatherer
	AllowedOrigins []string
}

func NewMux(r Routes) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	if r.RPC != nil {
		r.RPC.Register(mux)
	}
	if r.Reports != nil {
		mux.Handle("/ws/report", r.Reports)
	}

	// Ops Handlers
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if r.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(r.Metrics, promhttp.HandlerOpts{}))
	}

	// Middleware
	return middleware.CORS(r.AllowedOrigins...)(mux)
}
