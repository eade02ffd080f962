package rpc

import (
	"context"
	"log"
	"net/http"
	"time"

	"connectrpc.com/connect"

	llmclient "nexus/internal/llm/client"
	"nexus/internal/nexus"
	"nexus/internal/session"
	"nexus/internal/types"
)

// Handler exposes a generator as NexusService.
type Handler struct {
	svc    session.Generator
	logger *log.Logger
}

func NewHandler(svc session.Generator, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) logFailures() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			res, err := next(ctx, req)
			if err != nil {
				h.logger.Printf("rpc %s failed after %s: %v", req.Spec().Procedure, time.Since(start).Round(time.Millisecond), err)
			}
			return res, err
		}
	}
}

// Register mounts every procedure on mux.
func (h *Handler) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(h.logFailures()),
	}, opts...)

	mux.Handle(DiagnoseProcedure, connect.NewUnaryHandler(DiagnoseProcedure, h.diagnose, opts...))
	mux.Handle(SimulateProcedure, connect.NewUnaryHandler(SimulateProcedure, h.simulate, opts...))
	mux.Handle(ArchitectProcedure, connect.NewUnaryHandler(ArchitectProcedure, h.architect, opts...))
	mux.Handle(CapabilitiesProcedure, connect.NewUnaryHandler(CapabilitiesProcedure, h.capabilities, opts...))
	mux.Handle(InquireProcedure, connect.NewUnaryHandler(InquireProcedure, h.inquire, opts...))
	mux.Handle(EconomicDataProcedure, connect.NewUnaryHandler(EconomicDataProcedure, h.economicData, opts...))
	mux.Handle(RefineObjectiveProcedure, connect.NewUnaryHandler(RefineObjectiveProcedure, h.refineObjective, opts...))
	mux.Handle(ChatProcedure, connect.NewUnaryHandler(ChatProcedure, h.chat, opts...))
	mux.Handle(ReportProcedure, connect.NewServerStreamHandler(ReportProcedure, h.report, opts...))
	mux.Handle(LetterProcedure, connect.NewServerStreamHandler(LetterProcedure, h.letter, opts...))
}

func unary[T any](v T, err error) (*connect.Response[T], error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&v), nil
}

func (h *Handler) diagnose(ctx context.Context, req *connect.Request[DiagnoseRequest]) (*connect.Response[types.DiagnosticResult], error) {
	return unary(h.svc.Diagnose(ctx, req.Msg.Region, req.Msg.Objective))
}

func (h *Handler) simulate(ctx context.Context, req *connect.Request[SimulateRequest]) (*connect.Response[types.InterventionSimulation], error) {
	return unary(h.svc.Simulate(ctx, req.Msg.RROI, req.Msg.Intervention))
}

func (h *Handler) architect(ctx context.Context, req *connect.Request[ArchitectRequest]) (*connect.Response[types.EcosystemBlueprint], error) {
	return unary(h.svc.Architect(ctx, req.Msg.RROI, req.Msg.Objective))
}

func (h *Handler) capabilities(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[types.Capabilities], error) {
	return unary(h.svc.Capabilities(ctx))
}

func (h *Handler) inquire(ctx context.Context, req *connect.Request[nexus.ScopeRequest]) (*connect.Response[types.ScopeResult], error) {
	return unary(h.svc.Inquire(ctx, *req.Msg))
}

func (h *Handler) economicData(ctx context.Context, req *connect.Request[EconomicDataRequest]) (*connect.Response[types.EconomicData], error) {
	return unary(h.svc.EconomicData(ctx, req.Msg.Country))
}

func (h *Handler) refineObjective(ctx context.Context, req *connect.Request[RefineObjectiveRequest]) (*connect.Response[TextChunk], error) {
	text, err := h.svc.RefineObjective(ctx, req.Msg.Objective, req.Msg.EconomicData)
	return unary(TextChunk{Text: text}, err)
}

func (h *Handler) chat(ctx context.Context, req *connect.Request[ChatRequest]) (*connect.Response[TextChunk], error) {
	text, err := h.svc.Chat(ctx, req.Msg.Context, req.Msg.History)
	return unary(TextChunk{Text: text}, err)
}

func (h *Handler) report(ctx context.Context, req *connect.Request[types.ReportParameters], stream *connect.ServerStream[TextChunk]) error {
	src, err := h.svc.Report(ctx, *req.Msg)
	if err != nil {
		return toConnectError(err)
	}
	return forward(src, stream)
}

func (h *Handler) letter(ctx context.Context, req *connect.Request[types.ReportParameters], stream *connect.ServerStream[TextChunk]) error {
	src, err := h.svc.Letter(ctx, *req.Msg)
	if err != nil {
		return toConnectError(err)
	}
	return forward(src, stream)
}

func forward(src llmclient.Stream, stream *connect.ServerStream[TextChunk]) error {
	for frag, err := range src {
		if err != nil {
			return toConnectError(err)
		}
		if frag == "" {
			continue
		}
		if err := stream.Send(&TextChunk{Text: frag}); err != nil {
			return err
		}
	}
	return nil
}
