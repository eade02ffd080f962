package types

import "strings"

// Persona / industry / tier ids -----------------------------------------------

type PersonaID string
type IndustryID string
type TierID string
type ModuleID string
type Timeframe string

const (
	PersonaCustom  PersonaID  = "Custom"
	IndustryCustom IndustryID = "Custom"
)

const (
	PersonaRegionalEconomist      PersonaID = "Regional Economist"
	PersonaVentureCapitalist      PersonaID = "Venture Capitalist"
	PersonaGeopoliticalStrategist PersonaID = "Geopolitical Strategist"
	PersonaESGAnalyst             PersonaID = "ESG Analyst"
	PersonaInfrastructurePlanner  PersonaID = "Infrastructure Planner"
	PersonaSupplyChainAnalyst     PersonaID = "Supply Chain Analyst"
	PersonaWorkforceSpecialist    PersonaID = "Workforce Development Specialist"
)

const (
	TimeframeAny       Timeframe = "Any Time"
	TimeframeSixMonths Timeframe = "Last 6 Months"
	TimeframeYear      Timeframe = "Last 12 Months"
	TimeframeTwoYears  Timeframe = "Last 2 Years"
)

// Predictive modules get their own prompt section.
const (
	ModuleTrendForecasting   ModuleID = "trendForecasting"
	ModuleScenarioModeling   ModuleID = "scenarioModeling"
	ModuleDisruptionAnalysis ModuleID = "disruptionAnalysis"
)

type Persona struct {
	ID        PersonaID
	Title     string
	Directive string
}

type Industry struct {
	ID    IndustryID
	Title string
}

type Tier struct {
	ID    TierID
	Title string
	Desc  string
}

var Personas = []Persona{
	{PersonaRegionalEconomist, "Regional Economist", "You are a Regional Economist. Your analysis must focus on macroeconomic factors, supply chain implications, labor market impact, economic multipliers, long-term sustainable development, and public-private partnership models. Use economic and policy terminology."},
	{PersonaVentureCapitalist, "Venture Capitalist", "You are a Venture Capitalist. Your analysis must focus on market size, scalability, competitive landscape (Moat), revenue models, team strength, and potential return on investment (ROI). You are skeptical but opportunistic. Use business and finance terminology."},
	{PersonaGeopoliticalStrategist, "Geopolitical Strategist", "You are a Geopolitical Strategist. Your analysis must focus on international trade relations, political stability, regulatory risk, sovereign risk, regional power dynamics, and national security implications. Use diplomacy and international relations terminology."},
	{PersonaESGAnalyst, "ESG Analyst", "You are an ESG Analyst. Your analysis must focus on Environmental, Social, and Governance factors. Evaluate opportunities based on sustainability, climate impact, social responsibility, ethical supply chains, and alignment with global standards like GRI or SASB."},
	{PersonaInfrastructurePlanner, "Infrastructure Planner", "You are an Infrastructure & Urban Planner. Your analysis must focus on the physical and digital infrastructure of a region, including logistics, transportation networks (ports, rail, roads), utilities, smart city potential, and real estate development opportunities."},
	{PersonaSupplyChainAnalyst, "Supply Chain Analyst", "You are a Supply Chain & Logistics Analyst. Your analysis must focus on mapping value chains, identifying sourcing and manufacturing opportunities, analyzing logistical bottlenecks, assessing supply chain resilience, and the impact of trade corridors."},
	{PersonaWorkforceSpecialist, "Workforce Specialist", "You are a Workforce Development Specialist. Your analysis must focus on the human capital aspect, including available talent pools, existing skills gaps, education and training infrastructure, labor market dynamics, and migration patterns."},
}

var Industries = []Industry{
	{"Technology & Innovation", "Tech & Innovation"},
	{"Renewable Energy & Cleantech", "Renewable Energy"},
	{"Infrastructure & Construction", "Infrastructure"},
	{"Healthcare & Life Sciences", "Healthcare"},
	{"Advanced Manufacturing", "Manufacturing"},
	{"Agriculture & AgriTech", "AgriTech"},
	{"Financial Services & FinTech", "Financial Services"},
	{"Mining & Resources", "Mining & Resources"},
	{"Logistics & Supply Chain", "Logistics"},
	{"Tourism & Hospitality", "Tourism"},
	{"Education & EdTech", "EdTech"},
	{"Match Maker", "Match Maker"},
}

var (
	defaultTiers = []Tier{
		{"DirectMatchmaking", "Direct Matchmaking", "Finds and profiles one ideal foreign partner based on your detailed criteria."},
		{"CompetitiveLandscape", "Competitive Landscape", "Profiles up to three potential partners and analyzes their competitive positioning."},
		{"PartnershipFacilitator", "Partnership Facilitator", "In-depth analysis of three partners with contact strategy and simulated impact."},
		{"StrategicAllianceBlueprint", "Strategic Alliance Blueprint", "Outlines a joint venture or strategic alliance structure with a top partner."},
	}
	governmentTiers = []Tier{
		{"Policy Brief", "Policy Brief", "Analyzes an issue and provides policy recommendations."},
		{"FDI Attraction", "FDI Attraction Blueprint", "Identifies and profiles ideal foreign investors for a specific sector."},
		{"Economic Impact", "Economic Impact Analysis", "Models the potential economic effects of a major project or policy."},
		{"Workforce Plan", "Workforce Development Plan", "Analyzes skills gaps and proposes a strategy to build a future-ready workforce."},
		{"SupplyChainGap", "Supply Chain Gap Analysis", "Deep-dive into a value chain to find critical gaps and investment opportunities."},
		{"RegulatoryBenchmarking", "Regulatory Benchmarking", "Compares your region's policies against competitors to identify advantages."},
		{"SDGAlignment", "SDG Alignment Report", "Assesses a project's alignment with UN SDGs to attract impact-focused investment."},
	}
	enterpriseTiers = []Tier{
		{"Market Entry", "Market Entry Strategy", "Assesses a new market and outlines a strategic approach for entry."},
		{"Partner Vetting", "Partner Vetting Report", "Conducts deep-dive due diligence on potential local partners."},
		{"Supply Chain", "Supply Chain Resilience", "Maps a supply chain and identifies risks and optimization opportunities."},
		{"Tech Scout", "Technology Scouting", "Identifies emerging technologies and potential acquisition targets."},
		{"SiteSelection", "Site Selection Matrix", "Compares potential locations for a new facility based on critical factors."},
		{"CompetitiveIntel", "Competitive Intelligence", "Deep-dive on key competitors in a target market to inform strategy."},
		{"SDGAlignment", "SDG Alignment Report", "Assesses a project's alignment with UN SDGs to strengthen ESG credentials."},
	}
)

var AnalyticalLenses = []string{
	"Default Lens",
	"Technology Adoption & Innovation",
	"SME Growth & Development",
	"Foreign Direct Investment (FDI) Attraction",
	"Public-Private Partnerships (PPP)",
	"Regulatory & Compliance Framework",
	"Climate Impact & Adaptation",
}

var TonesAndStyles = []string{
	"Professional & Balanced (Default)",
	"Formal & Academic",
	"Action-Oriented Executive Briefing",
	"Skeptical & Critical",
	"Optimistic & Opportunistic",
	"Data-Heavy & Quantitative",
}

// OrganizationTypes is kept sorted; the first entry is the session default.
var OrganizationTypes = []string{
	"Academic / Research",
	"Financial Institution / Bank",
	"Government (Local/City)",
	"Government (National)",
	"Government (State/Provincial)",
	"Investment Promotion Agency",
	"Non-Profit / NGO",
	"Other",
	"Private Enterprise",
}

var Timeframes = []Timeframe{TimeframeAny, TimeframeSixMonths, TimeframeYear, TimeframeTwoYears}

// Lookups -------------------------------------------------------------------------

func LookupPersona(id PersonaID) (Persona, bool) {
	for _, p := range Personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// ParsePersona accepts a known persona id or the Custom sentinel.
func ParsePersona(s string) (PersonaID, error) {
	id := PersonaID(strings.TrimSpace(s))
	if id == PersonaCustom {
		return id, nil
	}
	if _, ok := LookupPersona(id); ok {
		return id, nil
	}
	return "", &ConfigurationError{Fields: []FieldError{{Field: "aiPersona", Msg: "unknown persona " + quote(s)}}}
}

func LookupIndustry(id IndustryID) (Industry, bool) {
	for _, in := range Industries {
		if in.ID == id {
			return in, true
		}
	}
	return Industry{}, false
}

// MatchIndustry resolves free text against industry ids and titles, case-insensitively.
func MatchIndustry(text string) (IndustryID, bool) {
	t := strings.TrimSpace(text)
	for _, in := range Industries {
		if strings.EqualFold(string(in.ID), t) || strings.EqualFold(in.Title, t) {
			return in.ID, true
		}
	}
	return "", false
}

func ParseIndustry(s string) (IndustryID, error) {
	id := IndustryID(strings.TrimSpace(s))
	if id == IndustryCustom {
		return id, nil
	}
	if _, ok := LookupIndustry(id); ok {
		return id, nil
	}
	return "", &ConfigurationError{Fields: []FieldError{{Field: "industry", Msg: "unknown industry " + quote(s)}}}
}

// TiersFor returns the tiers offered to an organization type.
func TiersFor(orgType string) []Tier {
	switch orgType {
	case "Government", "Government (National)", "Government (State/Provincial)", "Government (Local/City)",
		"Investment Promotion Agency", "Non-Profit / NGO", "Academic / Research":
		return governmentTiers
	case "Private Enterprise", "Financial Institution / Bank":
		return enterpriseTiers
	default:
		return defaultTiers
	}
}

func LookupTier(id TierID) (Tier, bool) {
	for _, group := range [][]Tier{defaultTiers, governmentTiers, enterpriseTiers} {
		for _, t := range group {
			if t.ID == id {
				return t, true
			}
		}
	}
	return Tier{}, false
}

func ParseTier(s string) (TierID, error) {
	id := TierID(strings.TrimSpace(s))
	if _, ok := LookupTier(id); ok {
		return id, nil
	}
	return "", &ConfigurationError{Fields: []FieldError{{Field: "tier", Msg: "unknown tier " + quote(s)}}}
}

func IsPredictive(id ModuleID) bool {
	switch id {
	case ModuleTrendForecasting, ModuleScenarioModeling, ModuleDisruptionAnalysis:
		return true
	}
	return false
}

func quote(s string) string { return "\"" + s + "\"" }
