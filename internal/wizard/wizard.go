// Package wizard gates the four-step report configuration flow.
package wizard

import (
	"fmt"

	"nexus/internal/types"
)

type Step int

const (
	Profile Step = iota + 1
	Opportunity
	Objective
	Review
)

func (s Step) String() string {
	switch s {
	case Profile:
		return "Profile"
	case Opportunity:
		return "Opportunity"
	case Objective:
		return "Objective"
	case Review:
		return "Review"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

var helpText = map[Step]string{
	Profile:     "Define your role and the high-level goal of your report.",
	Opportunity: "Detail the opportunity. Tell me about the region, industry, and ideal partner you have in mind.",
	Objective:   "Describe your core objective. What problem are you trying to solve? This is crucial for the AI Analyst.",
	Review:      "Review your blueprint. You can now use the Nexus Brain to run advanced analysis on your defined region and objective before generating the final report.",
}

// HelpText is the guidance shown for step.
func HelpText(s Step) string { return helpText[s] }

// Check returns the ConfigurationError that keeps step from being complete,
// or nil. Review has no requirements of its own.
func Check(s Step, p types.ReportParameters) error {
	switch s {
	case Profile:
		return p.CheckProfile()
	case Opportunity:
		return p.CheckOpportunity()
	case Objective:
		return p.CheckObjective()
	}
	return nil
}

// CanAdvance reports whether step is complete for p.
func CanAdvance(s Step, p types.ReportParameters) bool { return Check(s, p) == nil }

// CanSubmit reports whether steps 1-3 all hold.
func CanSubmit(p types.ReportParameters) bool {
	return CanAdvance(Profile, p) && CanAdvance(Opportunity, p) && CanAdvance(Objective, p)
}

// Wizard tracks the current step. The zero value starts at Profile.
type Wizard struct {
	step Step
}

func New() *Wizard { return &Wizard{step: Profile} }

func (w *Wizard) Current() Step {
	if w.step == 0 {
		return Profile
	}
	return w.step
}

// Next moves forward when the current step holds for p. It returns the
// blocking ConfigurationError otherwise and leaves the step unchanged.
func (w *Wizard) Next(p types.ReportParameters) error {
	cur := w.Current()
	if err := Check(cur, p); err != nil {
		return err
	}
	if cur < Review {
		w.step = cur + 1
	}
	return nil
}

// Back is always permitted and stops at Profile.
func (w *Wizard) Back() {
	if cur := w.Current(); cur > Profile {
		w.step = cur - 1
	}
}

// Reset returns to Profile.
func (w *Wizard) Reset() { w.step = Profile }
