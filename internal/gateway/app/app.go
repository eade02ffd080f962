package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"nexus/internal/config"
	"nexus/internal/gateway/rpc"
	"nexus/internal/gateway/server"
	"nexus/internal/gateway/ws"
	"nexus/internal/grounding"
	"nexus/internal/llm"
	llmclient "nexus/internal/llm/client"
	"nexus/internal/nexus"
	"nexus/internal/session"
)

// App is the stateless generation gateway. It keeps no operator data.
type App struct {
	client  llmclient.Client
	handler http.Handler
	server  *server.Server
}

func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Dependencies
	client, err := BuildClient(context.Background(), cfg, logger, llm.MustNewMetrics(registry))
	if err != nil {
		return nil, err
	}
	svc := nexus.New(client, BuildSource(cfg, logger), logger)

	// Routing & Server
	handler := server.NewMux(server.Routes{
		RPC:            rpc.NewHandler(svc, logger),
		Reports:        ws.NewReportHandler(svc, logger),
		Metrics:        registry,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	return &App{
		client:  client,
		handler: handler,
		server:  server.New(cfg.Port, handler, logger),
	}, nil
}

func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Serve(ln net.Listener) error {
	return a.server.Serve(ln)
}

func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(a.server.Shutdown(ctx), a.client.Close())
}

// BuildClient creates the provider client named by cfg and wraps it with
// logging, prompt hooks, rate limiting, metrics and a per-call timeout.
// metrics may be nil.
func BuildClient(ctx context.Context, cfg *config.Config, logger *log.Logger, metrics *llm.Metrics) (llmclient.Client, error) {
	var inner llmclient.Client
	switch cfg.LLM.Provider {
	case "fake":
		inner = llmclient.NewFakeClient()
	case "gemini":
		if strings.TrimSpace(cfg.LLM.APIKey) == "" {
			return nil, errors.New("GEMINI_API_KEY is required for the gemini provider")
		}
		g, err := llmclient.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	mws := []llm.Middleware{llm.WithLogging(logger), llm.WithHooks()}
	if metrics != nil {
		mws = append(mws, llm.WithMetrics(metrics))
	}
	mws = append(mws, llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst))
	if cfg.LLM.Timeout > 0 {
		mws = append(mws, llm.WithTimeout(cfg.LLM.Timeout))
	}
	return llm.Wrap(inner, mws...), nil
}

// BuildSource returns the grounding source, or a static one when grounding
// is disabled or the provider is offline.
func BuildSource(cfg *config.Config, logger *log.Logger) grounding.Source {
	if cfg.Grounding.Disabled || cfg.LLM.Provider == "fake" {
		return grounding.Static{}
	}
	return grounding.NewFetcher(
		grounding.NewWorldBank(cfg.Grounding.WorldBankURL),
		grounding.NewComtrade(cfg.Grounding.ComtradeURL, cfg.Grounding.ComtradeKey),
		logger,
	)
}

// BuildGenerator returns the generator an operator session drives: the
// gateway at cfg.LLM.RemoteURL when set, otherwise an in-process service.
// The returned func releases the provider client.
func BuildGenerator(ctx context.Context, cfg *config.Config, logger *log.Logger) (session.Generator, func() error, error) {
	if url := strings.TrimSpace(cfg.LLM.RemoteURL); url != "" {
		return rpc.NewClient(nil, url), func() error { return nil }, nil
	}
	client, err := BuildClient(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return nexus.New(client, BuildSource(cfg, logger), logger), client.Close, nil
}
