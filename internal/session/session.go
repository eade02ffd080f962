// Package session is the single-writer workspace controller. Every mutation
// of the report configuration goes through a Session, which keeps the
// wizard, autosave, pipeline and archive consistent with it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"nexus/internal/artifact"
	llmclient "nexus/internal/llm/client"
	"nexus/internal/nexus"
	"nexus/internal/pipeline"
	"nexus/internal/quality"
	"nexus/internal/store"
	"nexus/internal/stream"
	"nexus/internal/types"
	"nexus/internal/wizard"
)

// ErrBusy is returned when a document is already being generated.
var ErrBusy = errors.New("session: generation already in progress")

// Generator is the generation surface a session drives. *nexus.Service
// runs it in process; the gateway's remote client runs it over the wire.
type Generator interface {
	pipeline.Brain
	Report(ctx context.Context, p types.ReportParameters) (llmclient.Stream, error)
	Letter(ctx context.Context, p types.ReportParameters) (llmclient.Stream, error)
	Capabilities(ctx context.Context) (types.Capabilities, error)
	Inquire(ctx context.Context, r nexus.ScopeRequest) (types.ScopeResult, error)
	EconomicData(ctx context.Context, country string) (types.EconomicData, error)
	RefineObjective(ctx context.Context, objective string, econ types.EconomicData) (string, error)
	Chat(ctx context.Context, c types.ChatContext, history []types.ChatMessage) (string, error)
}

var _ Generator = (*nexus.Service)(nil)

type Config struct {
	Generator Generator
	Store     *store.Store
	Archive   artifact.Store
	Logger    *log.Logger
	Debounce  time.Duration
	// Timeout bounds each pipeline stage when positive.
	StageTimeout time.Duration
	// Notify receives short operator-facing notices. It must not block.
	Notify func(string)
}

type Session struct {
	svc      Generator
	store    *store.Store
	archive  artifact.Store
	logger   *log.Logger
	notify   func(string)
	autosave *store.Debouncer
	pipeline *pipeline.Orchestrator

	mu        sync.Mutex
	params    types.ReportParameters
	wizard    *wizard.Wizard
	attention *wizard.Attention
	running   *stream.Accumulator
	last      stream.Snapshot
}

func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	st := cfg.Store
	if st == nil {
		st = store.New(nil)
	}
	s := &Session{
		svc:       cfg.Generator,
		store:     st,
		archive:   cfg.Archive,
		logger:    logger,
		notify:    cfg.Notify,
		autosave:  store.NewDebouncer(st, cfg.Debounce),
		pipeline:  pipeline.New(cfg.Generator, logger),
		params:    types.Default(),
		wizard:    wizard.New(),
		attention: wizard.NewAttention(),
	}
	s.pipeline.Timeout = cfg.StageTimeout
	s.autosave.OnError = func(err error) {
		s.logger.Printf("session: autosave failed: %v", err)
		s.toast("Error: " + err.Error())
	}
	return s
}

func (s *Session) toast(msg string) {
	if s.notify != nil {
		s.notify(msg)
	}
}

// Restore replaces the configuration with the autosaved one, if present.
// An autosave that holds only the defaults restores nothing.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	p, ok, err := s.store.LoadAutosave(ctx)
	if err != nil || !ok || p.IsDefault() {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
	s.attention.Observe(p)
	return true, nil
}

// Params returns a copy of the current configuration.
func (s *Session) Params() types.ReportParameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.Clone()
}

// set replaces the model and schedules an autosave. mu must be held.
func (s *Session) set(p types.ReportParameters) {
	s.params = p
	s.attention.Observe(p)
	s.autosave.Schedule(p)
}

// Update applies fn to a copy of the configuration and commits it.
func (s *Session) Update(fn func(*types.ReportParameters)) types.ReportParameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.params.Clone()
	fn(&p)
	s.set(p)
	return p.Clone()
}

// Field names a multi-select attribute of the configuration.
type Field string

const (
	FieldTier     Field = "tier"
	FieldPersona  Field = "aiPersona"
	FieldIndustry Field = "industry"
	FieldLens     Field = "analyticalLens"
	FieldTone     Field = "toneAndStyle"
	FieldModules  Field = "analyticalModules"
)

func toggle[T ~string](list []T, v T) []T {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(slices.Clone(list), v)
}

// Toggle adds or removes value from field. Removing the last tier,
// persona or industry is refused and reported as false.
func (s *Session) Toggle(field Field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.params.Clone()
	switch field {
	case FieldTier:
		p.Tier = toggle(p.Tier, types.TierID(value))
		if len(p.Tier) == 0 {
			return false, nil
		}
	case FieldPersona:
		p.AIPersona = toggle(p.AIPersona, types.PersonaID(value))
		if len(p.AIPersona) == 0 {
			return false, nil
		}
	case FieldIndustry:
		p.Industry = toggle(p.Industry, types.IndustryID(value))
		if len(p.Industry) == 0 {
			return false, nil
		}
	case FieldLens:
		p.AnalyticalLens = toggle(p.AnalyticalLens, value)
	case FieldTone:
		p.ToneAndStyle = toggle(p.ToneAndStyle, value)
	case FieldModules:
		p.AnalyticalModules = toggle(p.AnalyticalModules, types.ModuleID(value))
	default:
		return false, types.NewConfigurationError(string(field), "is not a multi-select field")
	}
	s.set(p)
	return true, nil
}

// ApplySuggestions merges research suggestions into the configuration.
func (s *Session) ApplySuggestions(sg types.Suggestions) types.ReportParameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := sg.Apply(s.params)
	s.set(p)
	return p.Clone()
}

// AddSuggestedPersona accepts the co-pilot persona suggestion, if any.
func (s *Session) AddSuggestedPersona() (types.PersonaID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := wizard.SuggestPersona(s.params)
	if !ok {
		return "", false
	}
	p := s.params.Clone()
	p.AIPersona = append(p.AIPersona, id)
	s.set(p)
	return id, true
}

// Reset starts a new configuration. The autosave slot is cleared rather
// than overwritten.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.autosave.Cancel()
	s.params = types.Default()
	s.wizard.Reset()
	s.attention.Reset()
	s.last = stream.Snapshot{}
	s.mu.Unlock()
	s.pipeline.Reset()

	if err := s.store.ClearAutosave(ctx); err != nil {
		s.toast("Error: " + err.Error())
		return err
	}
	s.toast("New blueprint started.")
	return nil
}

// Close writes any pending autosave.
func (s *Session) Close(ctx context.Context) error {
	return s.autosave.Flush(ctx)
}

// Wizard ---------------------------------------------------------------------

func (s *Session) Step() wizard.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wizard.Current()
}

func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wizard.Next(s.params)
}

func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wizard.Back()
}

func (s *Session) Quality() quality.Result {
	return quality.Score(s.Params())
}

// Guidance polls the attention automaton and returns the co-pilot message
// for the current step.
func (s *Session) Guidance() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attention.Poll()
	return s.attention.Guidance(s.wizard.Current())
}

// AnswerPrompt records that the operator responded to the idle prompt.
func (s *Session) AnswerPrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attention.Answer()
}

// Saved configurations -------------------------------------------------------

func (s *Session) Save(ctx context.Context) ([]types.ReportParameters, error) {
	p := s.Params()
	list, err := s.store.Save(ctx, p)
	if err != nil {
		s.toast("Error: " + err.Error())
		return nil, err
	}
	s.toast(fmt.Sprintf("Blueprint %q saved.", p.ReportName))
	return list, nil
}

// LoadSaved replaces the configuration wholesale with the saved one and
// restarts the wizard and pipeline.
func (s *Session) LoadSaved(ctx context.Context, name string) error {
	p, ok, err := s.store.Load(ctx, name)
	if err != nil {
		s.toast("Error: " + err.Error())
		return err
	}
	if !ok {
		return types.NewConfigurationError("reportName", fmt.Sprintf("no saved blueprint named %q", name))
	}
	s.mu.Lock()
	s.wizard.Reset()
	s.attention.Reset()
	s.set(p)
	s.last = stream.Snapshot{}
	s.mu.Unlock()
	// Stage results belong to the configuration they were derived from.
	s.pipeline.Reset()
	s.toast(fmt.Sprintf("Blueprint %q loaded.", name))
	return nil
}

func (s *Session) DeleteSaved(ctx context.Context, name string) ([]types.ReportParameters, error) {
	list, err := s.store.Delete(ctx, name)
	if err != nil {
		s.toast("Error: " + err.Error())
		return nil, err
	}
	s.toast(fmt.Sprintf("Blueprint %q deleted.", name))
	return list, nil
}

func (s *Session) Saved(ctx context.Context) ([]types.ReportParameters, error) {
	return s.store.List(ctx)
}
