package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nexus/internal/artifact"
	"nexus/internal/llm"
	llmclient "nexus/internal/llm/client"
	"nexus/internal/nexus"
	"nexus/internal/pipeline"
	"nexus/internal/stream"
	"nexus/internal/types"
)

// traced attaches a hook that tells the operator which model stage is being
// called. It fires only when generation runs in process.
func (s *Session) traced(ctx context.Context) context.Context {
	return llm.WithHook(ctx, llm.HookFuncs{
		BeforeFunc: func(_ context.Context, req llmclient.Request) {
			s.toast(fmt.Sprintf("Calling model: %s (%.1f KiB prompt).", req.Stage, float64(req.Size())/1024))
		},
		AfterFunc: func(_ context.Context, req llmclient.Request, _ string, err error) {
			if err != nil {
				s.logger.Printf("session: %s call failed: %v", req.Stage, err)
			}
		},
	})
}

// begin claims the single generation slot.
func (s *Session) begin() (types.ReportParameters, *stream.Accumulator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil {
		return types.ReportParameters{}, nil, ErrBusy
	}
	acc := stream.New()
	s.running = acc
	return s.params.Clone(), acc, nil
}

func (s *Session) end(snap stream.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = nil
	s.last = snap
}

// Cancel stops local accumulation of the running document. The remote
// service may keep producing.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil {
		s.running.Close()
	}
}

// Generating reports whether a document is being streamed.
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running != nil
}

// Last returns the most recent finished or failed document.
func (s *Session) Last() stream.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) consume(ctx context.Context, acc *stream.Accumulator, open func() (llmclient.Stream, error), onUpdate func(stream.Snapshot)) (string, error) {
	src, err := open()
	if err != nil {
		acc.Finish(err)
		s.end(acc.Snapshot())
		return "", err
	}
	err = acc.Consume(ctx, src, onUpdate)
	snap := acc.Snapshot()
	s.end(snap)
	return snap.Content, err
}

func (s *Session) archiveDocument(ctx context.Context, kind artifact.Kind, p types.ReportParameters, content string) {
	if s.archive == nil {
		return
	}
	doc, err := s.archive.Put(ctx, artifact.NewDocument(kind, p, content, time.Now()))
	if err != nil {
		s.logger.Printf("session: archive %s for %q failed: %v", kind, p.ReportName, err)
		return
	}
	s.logger.Printf("session: archived %s %s", kind, doc.ID)
}

// Submit streams the report for the current configuration. On success the
// autosave slot is cleared and the document archived. On failure the
// configuration and autosave are left untouched so the operator can retry.
func (s *Session) Submit(ctx context.Context, onUpdate func(stream.Snapshot)) (string, error) {
	if err := s.Params().Validate(); err != nil {
		return "", err
	}
	p, acc, err := s.begin()
	if err != nil {
		return "", err
	}
	gctx := s.traced(ctx)
	content, err := s.consume(ctx, acc, func() (llmclient.Stream, error) { return s.svc.Report(gctx, p) }, onUpdate)
	if err != nil {
		s.logger.Printf("session: report for %q failed: %v", p.ReportName, err)
		return content, err
	}

	s.mu.Lock()
	// Edits made while streaming belong to the next submission.
	unchanged := s.params.Equal(p)
	if unchanged {
		s.autosave.Cancel()
	}
	s.mu.Unlock()
	if unchanged {
		if err := s.store.ClearAutosave(ctx); err != nil {
			s.toast("Error: " + err.Error())
		}
	}
	s.archiveDocument(context.WithoutCancel(ctx), artifact.KindReport, p, content)
	return content, nil
}

// Letter streams an outreach letter for the current configuration.
func (s *Session) Letter(ctx context.Context, onUpdate func(stream.Snapshot)) (string, error) {
	p, acc, err := s.begin()
	if err != nil {
		return "", err
	}
	gctx := s.traced(ctx)
	content, err := s.consume(ctx, acc, func() (llmclient.Stream, error) { return s.svc.Letter(gctx, p) }, onUpdate)
	if err != nil {
		return content, err
	}
	s.archiveDocument(context.WithoutCancel(ctx), artifact.KindLetter, p, content)
	return content, nil
}

// Pipeline -------------------------------------------------------------------

// Diagnose runs the first brain stage against the configured region and
// objective.
func (s *Session) Diagnose(ctx context.Context) (types.DiagnosticResult, error) {
	p := s.Params()
	return s.pipeline.Diagnose(s.traced(ctx), p.Region, p.ProblemStatement)
}

func (s *Session) Simulate(ctx context.Context, intervention string) (types.InterventionSimulation, error) {
	return s.pipeline.Simulate(s.traced(ctx), intervention)
}

// Architect designs an ecosystem for objective, or for the configured
// objective when objective is blank.
func (s *Session) Architect(ctx context.Context, objective string) (types.EcosystemBlueprint, error) {
	if strings.TrimSpace(objective) == "" {
		objective = s.Params().ProblemStatement
	}
	return s.pipeline.Architect(s.traced(ctx), objective)
}

func (s *Session) Pipeline() *pipeline.Orchestrator { return s.pipeline }

// Research -------------------------------------------------------------------

func (s *Session) Inquire(ctx context.Context, r nexus.ScopeRequest) (types.ScopeResult, error) {
	return s.svc.Inquire(s.traced(ctx), r)
}

// RefineObjective rewrites the configured objective using economic data for
// the operator's country and commits the result.
func (s *Session) RefineObjective(ctx context.Context) (string, error) {
	p := s.Params()
	if strings.TrimSpace(p.ProblemStatement) == "" {
		return "", types.NewConfigurationError("problemStatement", "is required")
	}
	econ, err := s.svc.EconomicData(ctx, p.UserCountry)
	if err != nil {
		s.logger.Printf("session: economic data for %q unavailable: %v", p.UserCountry, err)
		econ = types.EconomicData{}
	}
	refined, err := s.svc.RefineObjective(s.traced(ctx), p.ProblemStatement, econ)
	if err != nil {
		return "", err
	}
	s.Update(func(m *types.ReportParameters) { m.ProblemStatement = refined })
	return refined, nil
}

// Chat continues a follow-up conversation. A context without report
// parameters is anchored to the current configuration.
func (s *Session) Chat(ctx context.Context, c types.ChatContext, history []types.ChatMessage) (string, error) {
	if c.ReportParameters == nil {
		p := s.Params()
		c.ReportParameters = &p
	}
	return s.svc.Chat(s.traced(ctx), c, history)
}

func (s *Session) Capabilities(ctx context.Context) (types.Capabilities, error) {
	return s.svc.Capabilities(ctx)
}

func (s *Session) EconomicData(ctx context.Context, country string) (types.EconomicData, error) {
	return s.svc.EconomicData(ctx, country)
}
