package types

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// ReportParameters is the operator's report configuration. JSON names match
// the persisted blob layout so saved entries stay readable across versions.
type ReportParameters struct {
	ReportName          string       `json:"reportName"`
	Tier                []TierID     `json:"tier"`
	UserName            string       `json:"userName"`
	UserDepartment      string       `json:"userDepartment"`
	OrganizationType    string       `json:"organizationType"`
	UserCountry         string       `json:"userCountry"`
	AIPersona           []PersonaID  `json:"aiPersona"`
	CustomAIPersona     string       `json:"customAiPersona,omitempty"`
	AnalyticalLens      []string     `json:"analyticalLens,omitempty"`
	ToneAndStyle        []string     `json:"toneAndStyle,omitempty"`
	Region              string       `json:"region"`
	Industry            []IndustryID `json:"industry"`
	CustomIndustry      string       `json:"customIndustry,omitempty"`
	IdealPartnerProfile string       `json:"idealPartnerProfile"`
	ProblemStatement    string       `json:"problemStatement"`
	AnalysisTimeframe   Timeframe    `json:"analysisTimeframe"`
	AnalyticalModules   []ModuleID   `json:"analyticalModules"`
	LocalContext        string       `json:"localContext,omitempty"`
}

// DefaultUserCountry is the first entry of the sorted country list.
const DefaultUserCountry = "Algeria"

// Default returns the configuration a new session starts from.
func Default() ReportParameters {
	return ReportParameters{
		Tier:              []TierID{},
		OrganizationType:  OrganizationTypes[0],
		UserCountry:       DefaultUserCountry,
		AIPersona:         []PersonaID{Personas[0].ID},
		AnalyticalLens:    []string{AnalyticalLenses[0]},
		ToneAndStyle:      []string{TonesAndStyles[0]},
		Industry:          []IndustryID{Industries[0].ID},
		AnalysisTimeframe: TimeframeAny,
		AnalyticalModules: []ModuleID{},
	}
}

func (p ReportParameters) Clone() ReportParameters {
	out := p
	out.Tier = slices.Clone(p.Tier)
	out.AIPersona = slices.Clone(p.AIPersona)
	out.AnalyticalLens = slices.Clone(p.AnalyticalLens)
	out.ToneAndStyle = slices.Clone(p.ToneAndStyle)
	out.Industry = slices.Clone(p.Industry)
	out.AnalyticalModules = slices.Clone(p.AnalyticalModules)
	return out
}

// Equal compares the persisted form of two configurations.
func (p ReportParameters) Equal(o ReportParameters) bool {
	a, errA := json.Marshal(p)
	b, errB := json.Marshal(o)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func (p ReportParameters) IsDefault() bool { return p.Equal(Default()) }

func (p ReportParameters) HasCustomPersona() bool {
	return slices.Contains(p.AIPersona, PersonaCustom)
}

func (p ReportParameters) HasCustomIndustry() bool {
	return slices.Contains(p.Industry, IndustryCustom)
}

// Validation ----------------------------------------------------------------------

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// CheckProfile validates the identity fields.
func (p ReportParameters) CheckProfile() error {
	var fe fieldErrors
	fe.require(!blank(p.ReportName), "reportName", "is required")
	fe.require(!blank(p.UserName), "userName", "is required")
	return fe.err()
}

// CheckOpportunity validates the target description.
func (p ReportParameters) CheckOpportunity() error {
	var fe fieldErrors
	fe.require(len(p.Tier) > 0, "tier", "select at least one tier")
	fe.require(!blank(p.Region), "region", "is required")
	fe.require(len(p.Industry) > 0, "industry", "select at least one industry")
	fe.require(!blank(p.IdealPartnerProfile), "idealPartnerProfile", "is required")
	if p.HasCustomIndustry() {
		fe.require(!blank(p.CustomIndustry), "customIndustry", "is required when Custom industry is selected")
	}
	return fe.err()
}

// CheckObjective validates intent and AI framing.
func (p ReportParameters) CheckObjective() error {
	var fe fieldErrors
	fe.require(!blank(p.ProblemStatement), "problemStatement", "is required")
	fe.require(len(p.AIPersona) > 0, "aiPersona", "select at least one persona")
	if p.HasCustomPersona() {
		fe.require(!blank(p.CustomAIPersona), "customAiPersona", "is required when Custom persona is selected")
	}
	return fe.err()
}

// Validate checks everything a submission needs, including that every id is
// known.
func (p ReportParameters) Validate() error {
	var fe fieldErrors
	for _, check := range []func() error{p.CheckProfile, p.CheckOpportunity, p.CheckObjective} {
		if err := check(); err != nil {
			fe = append(fe, err.(*ConfigurationError).Fields...)
		}
	}
	for _, id := range p.Tier {
		if _, err := ParseTier(string(id)); err != nil {
			fe = append(fe, err.(*ConfigurationError).Fields...)
		}
	}
	for _, id := range p.AIPersona {
		if _, err := ParsePersona(string(id)); err != nil {
			fe = append(fe, err.(*ConfigurationError).Fields...)
		}
	}
	for _, id := range p.Industry {
		if _, err := ParseIndustry(string(id)); err != nil {
			fe = append(fe, err.(*ConfigurationError).Fields...)
		}
	}
	return fe.err()
}

// Suggestions -----------------------------------------------------------------

// Suggestions is a partial configuration proposed by the scoping call.
// Empty fields are left untouched when applied.
type Suggestions struct {
	ReportName          string   `json:"reportName,omitempty"`
	Region              string   `json:"region,omitempty"`
	Industry            string   `json:"industry,omitempty"`
	Tier                []string `json:"tier,omitempty"`
	AIPersona           []string `json:"aiPersona,omitempty"`
	IdealPartnerProfile string   `json:"idealPartnerProfile,omitempty"`
	ProblemStatement    string   `json:"problemStatement,omitempty"`
}

// Apply merges s into p. A free-text industry that matches no known industry
// becomes the Custom industry. Unknown tier and persona ids are dropped.
func (s Suggestions) Apply(p ReportParameters) ReportParameters {
	out := p.Clone()
	if s.ReportName != "" {
		out.ReportName = s.ReportName
	}
	if s.Region != "" {
		out.Region = s.Region
	}
	if s.IdealPartnerProfile != "" {
		out.IdealPartnerProfile = s.IdealPartnerProfile
	}
	if s.ProblemStatement != "" {
		out.ProblemStatement = s.ProblemStatement
	}
	if !blank(s.Industry) {
		if id, ok := MatchIndustry(s.Industry); ok {
			out.Industry = []IndustryID{id}
		} else {
			out.Industry = []IndustryID{IndustryCustom}
			out.CustomIndustry = strings.TrimSpace(s.Industry)
		}
	}
	var tiers []TierID
	for _, t := range s.Tier {
		if id, err := ParseTier(t); err == nil && !slices.Contains(tiers, id) {
			tiers = append(tiers, id)
		}
	}
	if len(tiers) > 0 {
		out.Tier = tiers
	}
	var personas []PersonaID
	for _, ps := range s.AIPersona {
		if id, err := ParsePersona(ps); err == nil && id != PersonaCustom && !slices.Contains(personas, id) {
			personas = append(personas, id)
		}
	}
	if len(personas) > 0 {
		out.AIPersona = personas
	}
	return out
}
