package server

import (
	"bytes"
	"context"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/gateway/rpc"
	"nexus/internal/gateway/ws"
	llmclient "nexus/internal/llm/client"
	"nexus/internal/nexus"
)

func routes(t *testing.T) http.Handler {
	t.Helper()
	logger := log.New(&bytes.Buffer{}, "", 0)
	svc := nexus.New(llmclient.NewFakeClient(), nil, logger)
	return NewMux(Routes{
		RPC:     rpc.NewHandler(svc, logger),
		Reports: ws.NewReportHandler(svc, logger),
		Metrics: prometheus.NewRegistry(),
	})
}

func TestHealthzAndPreflight(t *testing.T) {
	h := routes(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	req := httptest.NewRequest(http.MethodOptions, rpc.DiagnoseProcedure, nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutesServeRPCAndWebsocket(t *testing.T) {
	srv := httptest.NewServer(routes(t))
	t.Cleanup(srv.Close)

	caps, err := rpc.NewClient(srv.Client(), srv.URL).Capabilities(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, caps.Capabilities)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/report", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var out map[string]any
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "pong", out["type"])
}

func TestServerLifecycle(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := New(ln.Addr().String(), routes(t), log.New(&bytes.Buffer{}, "", 0))

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-done)
}
