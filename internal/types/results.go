package types

import (
	"fmt"
	"strings"
)

// Stage 1: diagnosis ----------------------------------------------------------

type Component struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Analysis string  `json:"analysis"`
}

type Components struct {
	HumanCapital        Component `json:"humanCapital"`
	Infrastructure      Component `json:"infrastructure"`
	Agglomeration       Component `json:"agglomeration"`
	EconomicComposition Component `json:"economicComposition"`
	Governance          Component `json:"governance"`
	QualityOfLife       Component `json:"qualityOfLife"`
}

// Named returns the six components in their canonical order, keyed by JSON name.
func (c Components) Named() []NamedComponent {
	return []NamedComponent{
		{"humanCapital", c.HumanCapital},
		{"infrastructure", c.Infrastructure},
		{"agglomeration", c.Agglomeration},
		{"economicComposition", c.EconomicComposition},
		{"governance", c.Governance},
		{"qualityOfLife", c.QualityOfLife},
	}
}

type NamedComponent struct {
	Key string
	Component
}

// DiagnosticResult is the regional resilience & opportunity index.
type DiagnosticResult struct {
	OverallScore float64    `json:"overallScore"`
	Summary      string     `json:"summary"`
	Components   Components `json:"components"`
}

func (d DiagnosticResult) Validate() error {
	var fe fieldErrors
	fe.require(inRange(d.OverallScore), "overallScore", fmt.Sprintf("%v is outside 0-100", d.OverallScore))
	fe.require(!blank(d.Summary), "summary", "is empty")
	for _, nc := range d.Components.Named() {
		fe.require(!blank(nc.Name), "components."+nc.Key, "is missing")
		fe.require(inRange(nc.Score), "components."+nc.Key+".score", fmt.Sprintf("%v is outside 0-100", nc.Score))
	}
	return fe.err()
}

func inRange(v float64) bool { return v >= 0 && v <= 100 }

// Stage 2: simulation ---------------------------------------------------------

type MetricDelta struct {
	Metric     string  `json:"metric"`
	StartValue float64 `json:"startValue"`
	EndValue   float64 `json:"endValue"`
}

type InterventionSimulation struct {
	Scenario          string        `json:"scenario"`
	Intervention      string        `json:"intervention"`
	Timeline          string        `json:"timeline"`
	ImpactAnalysis    string        `json:"impactAnalysis"`
	PredictedOutcomes []MetricDelta `json:"predictedOutcomes"`
}

// Stage 3: ecosystem blueprint ------------------------------------------------

type PartnerArchetype string

const (
	ArchetypeAnchor         PartnerArchetype = "Anchor"
	ArchetypeInnovation     PartnerArchetype = "Innovation"
	ArchetypeCapital        PartnerArchetype = "Capital"
	ArchetypeTalent         PartnerArchetype = "Talent"
	ArchetypeGovernment     PartnerArchetype = "Government"
	ArchetypeInfrastructure PartnerArchetype = "Infrastructure"
	ArchetypeOther          PartnerArchetype = "Other"
)

var archetypes = []PartnerArchetype{
	ArchetypeAnchor, ArchetypeInnovation, ArchetypeCapital, ArchetypeTalent,
	ArchetypeGovernment, ArchetypeInfrastructure,
}

// Archetype maps model-produced text like "Anchor Partner" onto a known role.
func (p PartnerArchetype) Archetype() PartnerArchetype {
	s := strings.ToLower(string(p))
	for _, a := range archetypes {
		if strings.Contains(s, strings.ToLower(string(a))) {
			return a
		}
	}
	return ArchetypeOther
}

type Partner struct {
	Type      PartnerArchetype `json:"type"`
	Entity    string           `json:"entity"`
	Rationale string           `json:"rationale"`
}

type EcosystemBlueprint struct {
	StrategicObjective string    `json:"strategicObjective"`
	EcosystemSummary   string    `json:"ecosystemSummary"`
	Partners           []Partner `json:"partners"`
}

// Auxiliary results -----------------------------------------------------------

type Capability struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

type Capabilities struct {
	Greeting     string       `json:"greeting"`
	Capabilities []Capability `json:"capabilities"`
}

type ScopeResult struct {
	Summary     string      `json:"summary"`
	Suggestions Suggestions `json:"suggestions"`
}

type Indicator struct {
	Value float64 `json:"value"`
	Year  string  `json:"year"`
}

// EconomicData holds the latest observation per indicator. A nil indicator
// failed or had no data; Incomplete is set when any fetch failed.
type EconomicData struct {
	GDP        *Indicator `json:"gdp,omitempty"`
	Population *Indicator `json:"population,omitempty"`
	Inflation  *Indicator `json:"inflation,omitempty"`
	FDI        *Indicator `json:"fdi,omitempty"`
	Incomplete bool       `json:"incomplete,omitempty"`
}

// Summary renders the present indicators as "gdp: 1 (2023), ...".
func (e EconomicData) Summary() string {
	var parts []string
	add := func(k string, in *Indicator) {
		if in != nil {
			parts = append(parts, fmt.Sprintf("%s: %v (%s)", k, in.Value, in.Year))
		}
	}
	add("gdp", e.GDP)
	add("population", e.Population)
	add("inflation", e.Inflation)
	add("fdi", e.FDI)
	return strings.Join(parts, ", ")
}
