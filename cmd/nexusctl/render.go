package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	llmclient "nexus/internal/llm/client"
	"nexus/internal/pipeline"
	"nexus/internal/quality"
	"nexus/internal/store"
	"nexus/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// renderMarkdown renders md for a terminal of width columns. Rendering
// failures fall back to the raw text.
func renderMarkdown(md string, width int) string {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// renderError turns the service error taxonomy into operator wording.
func renderError(err error) string {
	var (
		cfg *types.ConfigurationError
		svc *llmclient.ServiceError
		ve  *store.ValidationError
		pre *pipeline.PreconditionError
	)
	switch {
	case errors.As(err, &cfg):
		var b strings.Builder
		b.WriteString(errorStyle.Render("The blueprint is incomplete:"))
		for _, f := range cfg.Fields {
			fmt.Fprintf(&b, "\n  - %s %s", f.Field, f.Msg)
		}
		return b.String()
	case errors.As(err, &ve):
		return errorStyle.Render("Error: " + ve.Error())
	case errors.As(err, &pre):
		return errorStyle.Render(fmt.Sprintf("Run %s before %s.", pre.Requires, pre.Stage))
	case errors.As(err, &svc):
		return errorStyle.Render(fmt.Sprintf("The analysis service failed (%d): %s", svc.Status, svc.Message)) + retryHint(err)
	case llmclient.IsNetwork(err):
		return errorStyle.Render("The analysis service is unreachable: "+err.Error()) + retryHint(err)
	case llmclient.IsParse(err):
		return errorStyle.Render("The analysis service returned an unreadable answer.") + retryHint(err)
	}
	return errorStyle.Render("Error: " + err.Error())
}

func retryHint(err error) string {
	if !llmclient.Retryable(err) {
		return ""
	}
	return "\n" + labelStyle.Render("Nothing was changed; the same command can be run again.")
}

func renderQuality(r quality.Result) string {
	var b strings.Builder
	style := okStyle
	if r.Score < 70 {
		style = errorStyle
	}
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("Blueprint quality:"), style.Render(fmt.Sprintf("%d/100", r.Score)))
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "  - %s\n", rec)
	}
	return b.String()
}

func renderDiagnosis(d types.DiagnosticResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.0f/100\n%s\n\n", titleStyle.Render("Regional resilience index:"), d.OverallScore, d.Summary)
	for _, c := range d.Components.Named() {
		fmt.Fprintf(&b, "%s %3.0f  %s\n", labelStyle.Render(fmt.Sprintf("%-22s", c.Name)), c.Score, c.Analysis)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderSimulation(s types.InterventionSimulation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)\n%s\n", titleStyle.Render("Simulation:"), s.Intervention, s.Timeline, s.ImpactAnalysis)
	for _, o := range s.PredictedOutcomes {
		fmt.Fprintf(&b, "  %s %.1f -> %.1f\n", labelStyle.Render(o.Metric), o.StartValue, o.EndValue)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderBlueprint(bp types.EcosystemBlueprint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n%s\n", titleStyle.Render("Ecosystem:"), bp.StrategicObjective, bp.EcosystemSummary)
	for _, p := range bp.Partners {
		fmt.Fprintf(&b, "  %s %s: %s\n", labelStyle.Render(fmt.Sprintf("[%s]", p.Type)), p.Entity, p.Rationale)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
