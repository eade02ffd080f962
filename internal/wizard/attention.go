package wizard

import (
	"strings"
	"time"

	"nexus/internal/types"
)

// AttentionState drives the co-pilot guidance message. It never blocks navigation.
type AttentionState string

const (
	Idle           AttentionState = "idle"
	Welcomed       AttentionState = "welcomed"
	Prompted       AttentionState = "prompted"
	AnsweredPrompt AttentionState = "answeredPrompt"
	Active         AttentionState = "active"
)

// DefaultIdleTimeout is how long a welcomed operator may pause before being prompted.
const DefaultIdleTimeout = 5 * time.Second

// Attention follows the operator's progress through the profile step.
// Time comes from Now so tests can drive it; call Poll periodically.
type Attention struct {
	Now     func() time.Time
	Timeout time.Duration

	state    AttentionState
	since    time.Time
	userName string
}

func NewAttention() *Attention {
	return &Attention{Now: time.Now, Timeout: DefaultIdleTimeout, state: Idle}
}

func (a *Attention) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *Attention) timeout() time.Duration {
	if a.Timeout <= 0 {
		return DefaultIdleTimeout
	}
	return a.Timeout
}

func (a *Attention) State() AttentionState {
	if a.state == "" {
		return Idle
	}
	return a.state
}

// Observe feeds the latest configuration into the automaton.
func (a *Attention) Observe(p types.ReportParameters) AttentionState {
	a.userName = strings.TrimSpace(p.UserName)
	if a.State() == Idle && a.userName != "" {
		a.state = Welcomed
		a.since = a.now()
	}
	// Both fields may arrive together, e.g. when a saved blueprint is loaded.
	switch a.State() {
	case Welcomed, Prompted, AnsweredPrompt:
		if strings.TrimSpace(p.ReportName) != "" {
			a.state = Active
		}
	}
	return a.Poll()
}

// Poll fires the idle timer: a welcomed operator who has not named the
// report within the timeout is prompted.
func (a *Attention) Poll() AttentionState {
	if a.State() == Welcomed && a.now().Sub(a.since) >= a.timeout() {
		a.state = Prompted
	}
	return a.State()
}

// Answer records the operator's response to the prompt.
func (a *Attention) Answer() {
	if a.State() == Prompted {
		a.state = AnsweredPrompt
	}
}

// Reset returns to Idle.
func (a *Attention) Reset() {
	a.state = Idle
	a.since = time.Time{}
	a.userName = ""
}

// Guidance is the message to show for the current state; step selects the
// help text once the operator is active.
func (a *Attention) Guidance(step Step) string {
	switch a.State() {
	case Welcomed:
		return "Hello, " + a.userName + ". What is the primary goal of your report? You can describe it in the 'Report Name' field to get started."
	case Prompted:
		return "It looks like you've paused. Do you want to tell me what you need assistance with?"
	case AnsweredPrompt:
		return "Understood. Please complete the required fields to continue."
	case Active:
		return HelpText(step)
	}
	return "I'm ready to assist. Start by entering your name in the profile section."
}
