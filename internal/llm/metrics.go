package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	llmclient "nexus/internal/llm/client"
)

// Metrics exposes Prometheus collectors for generation calls.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg. Registration errors panic,
// the same as promauto helpers.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Subsystem: "generation",
				Name:      "requests_total",
				Help:      "Generation calls by stage, mode and outcome.",
			},
			[]string{"stage", "mode", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nexus",
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Wall time of generation calls; streams are measured until the reader stops.",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"stage", "mode"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Subsystem: "generation",
				Name:      "output_bytes_total",
				Help:      "Bytes of generated output delivered to callers.",
			},
			[]string{"stage", "mode"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.bytes)
	return m
}

// Outcome classifies an error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case llmclient.IsNetwork(err):
		return "network_error"
	case llmclient.IsService(err):
		return "service_error"
	case llmclient.IsParse(err):
		return "parse_error"
	default:
		return "error"
	}
}

func (m *Metrics) observe(stage llmclient.Stage, mode string, start time.Time, n int, err error) {
	m.requests.WithLabelValues(string(stage), mode, Outcome(err)).Inc()
	m.duration.WithLabelValues(string(stage), mode).Observe(time.Since(start).Seconds())
	if n > 0 {
		m.bytes.WithLabelValues(string(stage), mode).Add(float64(n))
	}
}

// WithMetrics records every call on m. A nil m disables the middleware.
func WithMetrics(m *Metrics) Middleware {
	return func(next llmclient.Client) llmclient.Client {
		if m == nil {
			return next
		}
		return &metered{next: next, m: m}
	}
}

type metered struct {
	next llmclient.Client
	m    *Metrics
}

func (c *metered) Name() string { return c.next.Name() }
func (c *metered) Close() error { return c.next.Close() }

func (c *metered) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.next.GenerateJSON(ctx, req)
	c.m.observe(req.Stage, "json", start, len(raw), err)
	return raw, err
}

func (c *metered) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	start := time.Now()
	out, err := c.next.GenerateText(ctx, req)
	c.m.observe(req.Stage, "text", start, len(out), err)
	return out, err
}

func (c *metered) GenerateStream(ctx context.Context, req llmclient.Request) (llmclient.Stream, error) {
	start := time.Now()
	s, err := c.next.GenerateStream(ctx, req)
	if err != nil {
		c.m.observe(req.Stage, "stream", start, 0, err)
		return nil, err
	}
	return wrapStream(s, func(n int, err error) { c.m.observe(req.Stage, "stream", start, n, err) }), nil
}
