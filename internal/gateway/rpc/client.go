package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	llmclient "nexus/internal/llm/client"
	"nexus/internal/nexus"
	"nexus/internal/session"
	"nexus/internal/types"
)

// Client calls a remote NexusService. It satisfies session.Generator, so a
// workspace can run against a gateway instead of a local model.
type Client struct {
	diagnose        *connect.Client[DiagnoseRequest, types.DiagnosticResult]
	simulate        *connect.Client[SimulateRequest, types.InterventionSimulation]
	architect       *connect.Client[ArchitectRequest, types.EcosystemBlueprint]
	capabilities    *connect.Client[Empty, types.Capabilities]
	inquire         *connect.Client[nexus.ScopeRequest, types.ScopeResult]
	economicData    *connect.Client[EconomicDataRequest, types.EconomicData]
	refineObjective *connect.Client[RefineObjectiveRequest, TextChunk]
	chat            *connect.Client[ChatRequest, TextChunk]
	report          *connect.Client[types.ReportParameters, TextChunk]
	letter          *connect.Client[types.ReportParameters, TextChunk]
}

var _ session.Generator = (*Client)(nil)

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		diagnose:        connect.NewClient[DiagnoseRequest, types.DiagnosticResult](httpClient, baseURL+DiagnoseProcedure, opts...),
		simulate:        connect.NewClient[SimulateRequest, types.InterventionSimulation](httpClient, baseURL+SimulateProcedure, opts...),
		architect:       connect.NewClient[ArchitectRequest, types.EcosystemBlueprint](httpClient, baseURL+ArchitectProcedure, opts...),
		capabilities:    connect.NewClient[Empty, types.Capabilities](httpClient, baseURL+CapabilitiesProcedure, opts...),
		inquire:         connect.NewClient[nexus.ScopeRequest, types.ScopeResult](httpClient, baseURL+InquireProcedure, opts...),
		economicData:    connect.NewClient[EconomicDataRequest, types.EconomicData](httpClient, baseURL+EconomicDataProcedure, opts...),
		refineObjective: connect.NewClient[RefineObjectiveRequest, TextChunk](httpClient, baseURL+RefineObjectiveProcedure, opts...),
		chat:            connect.NewClient[ChatRequest, TextChunk](httpClient, baseURL+ChatProcedure, opts...),
		report:          connect.NewClient[types.ReportParameters, TextChunk](httpClient, baseURL+ReportProcedure, opts...),
		letter:          connect.NewClient[types.ReportParameters, TextChunk](httpClient, baseURL+LetterProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], op string, msg *Req) (Res, error) {
	res, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		var zero Res
		return zero, fromConnectError(op, err)
	}
	return *res.Msg, nil
}

func (c *Client) Diagnose(ctx context.Context, region, objective string) (types.DiagnosticResult, error) {
	return call(ctx, c.diagnose, "diagnose", &DiagnoseRequest{Region: region, Objective: objective})
}

func (c *Client) Simulate(ctx context.Context, rroi types.DiagnosticResult, intervention string) (types.InterventionSimulation, error) {
	return call(ctx, c.simulate, "simulate", &SimulateRequest{RROI: rroi, Intervention: intervention})
}

func (c *Client) Architect(ctx context.Context, rroi types.DiagnosticResult, objective string) (types.EcosystemBlueprint, error) {
	return call(ctx, c.architect, "architect", &ArchitectRequest{RROI: rroi, Objective: objective})
}

func (c *Client) Capabilities(ctx context.Context) (types.Capabilities, error) {
	return call(ctx, c.capabilities, "capabilities", &Empty{})
}

func (c *Client) Inquire(ctx context.Context, r nexus.ScopeRequest) (types.ScopeResult, error) {
	return call(ctx, c.inquire, "inquire", &r)
}

func (c *Client) EconomicData(ctx context.Context, country string) (types.EconomicData, error) {
	return call(ctx, c.economicData, "economic data", &EconomicDataRequest{Country: country})
}

func (c *Client) RefineObjective(ctx context.Context, objective string, econ types.EconomicData) (string, error) {
	out, err := call(ctx, c.refineObjective, "refine objective", &RefineObjectiveRequest{Objective: objective, EconomicData: econ})
	return out.Text, err
}

func (c *Client) Chat(ctx context.Context, cc types.ChatContext, history []types.ChatMessage) (string, error) {
	out, err := call(ctx, c.chat, "chat", &ChatRequest{Context: cc, History: history})
	return out.Text, err
}

func (c *Client) Report(ctx context.Context, p types.ReportParameters) (llmclient.Stream, error) {
	return openStream(ctx, c.report, "report", p)
}

func (c *Client) Letter(ctx context.Context, p types.ReportParameters) (llmclient.Stream, error) {
	return openStream(ctx, c.letter, "letter", p)
}

func openStream(ctx context.Context, c *connect.Client[types.ReportParameters, TextChunk], op string, p types.ReportParameters) (llmclient.Stream, error) {
	stream, err := c.CallServerStream(ctx, connect.NewRequest(&p))
	if err != nil {
		return nil, fromConnectError(op, err)
	}
	return llmclient.Once(func(yield func(string, error) bool) {
		defer stream.Close()
		for stream.Receive() {
			if !yield(stream.Msg().Text, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fromConnectError(op, err))
		}
	}), nil
}
