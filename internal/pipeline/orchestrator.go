// Package pipeline enforces the Diagnose -> {Simulate, Architect} stage graph.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"nexus/internal/types"
)

// Brain performs the remote stage calls.
type Brain interface {
	Diagnose(ctx context.Context, region, objective string) (types.DiagnosticResult, error)
	Simulate(ctx context.Context, rroi types.DiagnosticResult, intervention string) (types.InterventionSimulation, error)
	Architect(ctx context.Context, rroi types.DiagnosticResult, objective string) (types.EcosystemBlueprint, error)
}

type Stage string

const (
	StageDiagnose  Stage = "diagnose"
	StageSimulate  Stage = "simulate"
	StageArchitect Stage = "architect"
)

// PreconditionError reports a stage invoked before its predecessor completed.
// It is raised locally; the Brain is never contacted.
type PreconditionError struct {
	Stage    Stage
	Requires Stage
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("pipeline: %s requires a completed %s", e.Stage, e.Requires)
}

func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// ErrSuperseded is returned when a diagnosis replaced the one a running
// simulate or architect call was based on. The stale result is discarded.
var ErrSuperseded = errors.New("pipeline: diagnosis changed while the stage was running")

// State is a snapshot of what has been derived so far. Simulated and
// Architected are independent once Diagnosed.
type State struct {
	Diagnosed   bool `json:"diagnosed"`
	Simulated   bool `json:"simulated"`
	Architected bool `json:"architected"`
}

func (s State) String() string {
	if !s.Diagnosed {
		return "Idle"
	}
	parts := []string{"Diagnosed"}
	if s.Simulated {
		parts = append(parts, "Simulated")
	}
	if s.Architected {
		parts = append(parts, "Architected")
	}
	return strings.Join(parts, "+")
}

// Orchestrator records stage results. Remote calls run without holding the
// lock; results are committed only if the diagnosis they used is still current.
type Orchestrator struct {
	brain  Brain
	logger *log.Logger
	// Timeout bounds each stage call when positive.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
	diagnosis  *types.DiagnosticResult
	simulation *types.InterventionSimulation
	blueprint  *types.EcosystemBlueprint
}

func New(brain Brain, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{brain: brain, logger: logger}
}

func (o *Orchestrator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout > 0 {
		return context.WithTimeout(ctx, o.Timeout)
	}
	return context.WithCancel(ctx)
}

// Diagnose is valid from any state. Success replaces the diagnosis and
// invalidates any simulation or blueprint derived from the previous one.
func (o *Orchestrator) Diagnose(ctx context.Context, region, objective string) (types.DiagnosticResult, error) {
	if strings.TrimSpace(region) == "" {
		return types.DiagnosticResult{}, types.NewConfigurationError("region", "is required")
	}
	ctx, cancel := o.stageContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := o.brain.Diagnose(ctx, region, objective)
	if err != nil {
		o.logger.Printf("pipeline diagnose failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return types.DiagnosticResult{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	o.diagnosis = &res
	if o.simulation != nil || o.blueprint != nil {
		o.logger.Printf("pipeline re-diagnosed %q: dropping derived stages", region)
	}
	o.simulation = nil
	o.blueprint = nil
	return res, nil
}

// current returns the diagnosis a dependent stage runs against.
func (o *Orchestrator) current(stage Stage) (types.DiagnosticResult, uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.diagnosis == nil {
		return types.DiagnosticResult{}, 0, &PreconditionError{Stage: stage, Requires: StageDiagnose}
	}
	return *o.diagnosis, o.generation, nil
}

// Simulate requires a diagnosis.
func (o *Orchestrator) Simulate(ctx context.Context, intervention string) (types.InterventionSimulation, error) {
	rroi, gen, err := o.current(StageSimulate)
	if err != nil {
		return types.InterventionSimulation{}, err
	}
	if strings.TrimSpace(intervention) == "" {
		return types.InterventionSimulation{}, types.NewConfigurationError("intervention", "is required")
	}
	ctx, cancel := o.stageContext(ctx)
	defer cancel()

	res, err := o.brain.Simulate(ctx, rroi, intervention)
	if err != nil {
		o.logger.Printf("pipeline simulate failed: %v", err)
		return types.InterventionSimulation{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != gen {
		return types.InterventionSimulation{}, ErrSuperseded
	}
	o.simulation = &res
	return res, nil
}

// Architect requires a diagnosis.
func (o *Orchestrator) Architect(ctx context.Context, objective string) (types.EcosystemBlueprint, error) {
	rroi, gen, err := o.current(StageArchitect)
	if err != nil {
		return types.EcosystemBlueprint{}, err
	}
	if strings.TrimSpace(objective) == "" {
		return types.EcosystemBlueprint{}, types.NewConfigurationError("objective", "is required")
	}
	ctx, cancel := o.stageContext(ctx)
	defer cancel()

	res, err := o.brain.Architect(ctx, rroi, objective)
	if err != nil {
		o.logger.Printf("pipeline architect failed: %v", err)
		return types.EcosystemBlueprint{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != gen {
		return types.EcosystemBlueprint{}, ErrSuperseded
	}
	o.blueprint = &res
	return res, nil
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return State{Diagnosed: o.diagnosis != nil, Simulated: o.simulation != nil, Architected: o.blueprint != nil}
}

func (o *Orchestrator) Diagnosis() (types.DiagnosticResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.diagnosis == nil {
		return types.DiagnosticResult{}, false
	}
	return *o.diagnosis, true
}

func (o *Orchestrator) Simulation() (types.InterventionSimulation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.simulation == nil {
		return types.InterventionSimulation{}, false
	}
	return *o.simulation, true
}

func (o *Orchestrator) Blueprint() (types.EcosystemBlueprint, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.blueprint == nil {
		return types.EcosystemBlueprint{}, false
	}
	return *o.blueprint, true
}

// Reset drops every stage result and returns to Idle.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	o.diagnosis = nil
	o.simulation = nil
	o.blueprint = nil
}
