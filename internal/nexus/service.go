// Package nexus runs the generation calls behind every report feature.
package nexus

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"nexus/internal/grounding"
	llmclient "nexus/internal/llm/client"
	"nexus/internal/prompt"
	"nexus/internal/types"
)

// CapabilitiesTTL matches how long an assistant introduction stays fresh.
const CapabilitiesTTL = time.Hour

// Service validates requests locally, assembles prompts and decodes
// responses. It implements pipeline.Brain.
type Service struct {
	client llmclient.Client
	source grounding.Source
	logger *log.Logger

	capsCache *expirable.LRU[string, types.Capabilities]
	capsGroup singleflight.Group
}

func New(client llmclient.Client, source grounding.Source, logger *log.Logger) *Service {
	if source == nil {
		source = grounding.Static{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		client:    client,
		source:    source,
		logger:    logger,
		capsCache: expirable.NewLRU[string, types.Capabilities](1, nil, CapabilitiesTTL),
	}
}

func (s *Service) Client() llmclient.Client { return s.client }

func request(stage llmclient.Stage, p prompt.Payload, schema *llmclient.Schema, search bool) llmclient.Request {
	return llmclient.Request{Stage: stage, System: p.System, Prompt: p.Task, Schema: schema, Search: search}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return types.NewConfigurationError(field, "is required")
	}
	return nil
}

// Diagnose produces the regional resilience index for region.
func (s *Service) Diagnose(ctx context.Context, region, objective string) (types.DiagnosticResult, error) {
	if err := required("region", region); err != nil {
		return types.DiagnosticResult{}, err
	}
	req := request(llmclient.StageDiagnose, prompt.Diagnose(region, objective), prompt.DiagnosticSchema, true)
	res, err := llmclient.GenerateStructured[types.DiagnosticResult](ctx, s.client, req)
	if err != nil {
		return types.DiagnosticResult{}, err
	}
	if err := res.Validate(); err != nil {
		return types.DiagnosticResult{}, &llmclient.ParseError{Err: err}
	}
	return res, nil
}

// Simulate projects the effect of intervention on a prior diagnosis.
func (s *Service) Simulate(ctx context.Context, rroi types.DiagnosticResult, intervention string) (types.InterventionSimulation, error) {
	if err := required("intervention", intervention); err != nil {
		return types.InterventionSimulation{}, err
	}
	req := request(llmclient.StageSimulate, prompt.Simulate(rroi, intervention), prompt.SimulationSchema, true)
	return llmclient.GenerateStructured[types.InterventionSimulation](ctx, s.client, req)
}

// Architect designs a partner ecosystem for objective on a prior diagnosis.
// Partner types are normalized onto the known archetypes.
func (s *Service) Architect(ctx context.Context, rroi types.DiagnosticResult, objective string) (types.EcosystemBlueprint, error) {
	if err := required("objective", objective); err != nil {
		return types.EcosystemBlueprint{}, err
	}
	req := request(llmclient.StageArchitect, prompt.Architect(rroi, objective), prompt.BlueprintSchema, true)
	bp, err := llmclient.GenerateStructured[types.EcosystemBlueprint](ctx, s.client, req)
	if err != nil {
		return types.EcosystemBlueprint{}, err
	}
	for i := range bp.Partners {
		bp.Partners[i].Type = bp.Partners[i].Type.Archetype()
	}
	return bp, nil
}

// groundingFor fetches auxiliary data for the report. Failures are logged
// and yield nil so the prompt falls back to generic retrieval.
func (s *Service) groundingFor(ctx context.Context, region string) *types.GroundingData {
	if strings.TrimSpace(region) == "" {
		return nil
	}
	g, err := s.source.Grounding(ctx, region)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Printf("nexus: grounding for %q unavailable: %v", region, err)
		}
		return nil
	}
	return g
}

// Report streams the long-form document for p.
func (s *Service) Report(ctx context.Context, p types.ReportParameters) (llmclient.Stream, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g := s.groundingFor(ctx, p.Region)
	return s.client.GenerateStream(ctx, request(llmclient.StageReport, prompt.Report(p, g), nil, true))
}

// Letter streams an outreach letter for p.
func (s *Service) Letter(ctx context.Context, p types.ReportParameters) (llmclient.Stream, error) {
	var missing []types.FieldError
	for _, f := range [][2]string{{"region", p.Region}, {"problemStatement", p.ProblemStatement}} {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, types.FieldError{Field: f[0], Msg: "is required"})
		}
	}
	if len(missing) > 0 {
		return nil, &types.ConfigurationError{Fields: missing}
	}
	return s.client.GenerateStream(ctx, request(llmclient.StageLetter, prompt.Letter(p), nil, false))
}

// Capabilities returns the assistant introduction, cached for
// CapabilitiesTTL. Concurrent misses share one remote call.
func (s *Service) Capabilities(ctx context.Context) (types.Capabilities, error) {
	const key = "capabilities"
	if c, ok := s.capsCache.Get(key); ok {
		return c, nil
	}
	v, err, _ := s.capsGroup.Do(key, func() (any, error) {
		req := request(llmclient.StageCapabilities, prompt.Capabilities(), prompt.CapabilitiesSchema, false)
		c, err := llmclient.GenerateStructured[types.Capabilities](ctx, s.client, req)
		if err != nil {
			return nil, err
		}
		s.capsCache.Add(key, c)
		return c, nil
	})
	if err != nil {
		return types.Capabilities{}, err
	}
	return v.(types.Capabilities), nil
}

// ScopeRequest is a free-form research question with optional file context.
type ScopeRequest struct {
	Query       string `json:"query"`
	FileContent string `json:"fileContent,omitempty"`
}

// Inquire researches a goal and proposes report parameters.
func (s *Service) Inquire(ctx context.Context, r ScopeRequest) (types.ScopeResult, error) {
	if err := required("query", r.Query); err != nil {
		return types.ScopeResult{}, err
	}
	req := request(llmclient.StageScope, prompt.Scope(r.Query, r.FileContent), prompt.ScopeSchema, true)
	return llmclient.GenerateStructured[types.ScopeResult](ctx, s.client, req)
}

// EconomicData returns the latest indicators for country. Individual
// indicator failures leave gaps and set Incomplete.
func (s *Service) EconomicData(ctx context.Context, country string) (types.EconomicData, error) {
	if err := required("country", country); err != nil {
		return types.EconomicData{}, err
	}
	e, err := s.source.EconomicData(ctx, country)
	var unknown *grounding.UnknownCountryError
	if errors.As(err, &unknown) {
		return types.EconomicData{}, types.NewConfigurationError("country", "unsupported country "+unknown.Name)
	}
	return e, err
}

// Chat answers the latest question of a follow-up conversation about one
// finding of a generated document.
func (s *Service) Chat(ctx context.Context, c types.ChatContext, history []types.ChatMessage) (string, error) {
	if err := types.ValidateChat(c, history); err != nil {
		return "", err
	}
	out, err := s.client.GenerateText(ctx, request(llmclient.StageChat, prompt.Symbiosis(c, history), nil, true))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RefineObjective rewrites objective using economic indicators as context.
func (s *Service) RefineObjective(ctx context.Context, objective string, econ types.EconomicData) (string, error) {
	if err := required("objective", objective); err != nil {
		return "", err
	}
	out, err := s.client.GenerateText(ctx, request(llmclient.StageRefine, prompt.RefineObjective(objective, econ), nil, false))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
