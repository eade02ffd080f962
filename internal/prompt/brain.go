package prompt

import (
	"fmt"

	llmclient "nexus/internal/llm/client"
	"nexus/internal/types"
)

const diagnoseSystem = `You are the Nexus Brain's Diagnostic Engine. Act as a world-class regional economist. Use web search to gather data on the specified region's core economic, social, and structural attributes and synthesize it into the "Regional Resilience & Opportunity Index" (RROI), applying Location Quotient, Shift-Share, and Agglomeration theories. Your response MUST be a valid JSON object matching the RROI schema.`

const simulateSystem = `You are the Nexus Brain's Predictive Engine. Act as a strategic foresight analyst. Using the provided RROI diagnostic and a proposed intervention, simulate the potential long-term impact based on endogenous growth theory and path dependency. Your response MUST be a valid JSON object matching the simulation schema.`

const architectSystem = `You are the Nexus Brain's Prescriptive Engine. Act as a global strategy consultant. Based on a region's diagnosis (RROI) and a strategic objective, design a multi-partner "Symbiotic Ecosystem". Identify real-world organizations that fit the required archetypes (Anchor, Innovation, Capital, Talent, Government, Infrastructure) to create a virtuous cycle of development. Your response MUST be a valid JSON object matching the blueprint schema.`

const diagnoseSteps = `1. **Human Capital:** university presence, skilled workforce availability, brain drain or gain.
2. **Infrastructure:** physical (ports, airports, rail) and digital (broadband, data centers) connectivity.
3. **Agglomeration:** density of businesses, specialized services, knowledge spillovers.
4. **Economic Composition:** key industrial clusters by Location Quotient; growth drivers versus the national average by Shift-Share.
5. **Governance:** pro-business policy, stability, incentive structures.
6. **Quality of Life:** healthcare, education and amenities that attract and retain talent.

Synthesize these findings into the RROI JSON format. The analysis for each component should be a concise, insightful paragraph.`

func component(name string) *llmclient.Schema {
	return llmclient.Obj(name, map[string]*llmclient.Schema{
		"name":     llmclient.Str("Display name of the component."),
		"score":    llmclient.Num("Score from 0-100."),
		"analysis": llmclient.Str("One concise paragraph."),
	}, "name", "score", "analysis")
}

// DiagnosticSchema is the shape of a types.DiagnosticResult.
var DiagnosticSchema = llmclient.Obj("Regional Resilience & Opportunity Index", map[string]*llmclient.Schema{
	"overallScore": llmclient.Num("A weighted score from 0-100 representing the region's overall resilience and opportunity."),
	"summary":      llmclient.Str("A concise, 2-3 sentence executive summary of the region's strategic position."),
	"components": llmclient.Obj("", map[string]*llmclient.Schema{
		"humanCapital":        component("Human Capital"),
		"infrastructure":      component("Infrastructure"),
		"agglomeration":       component("Agglomeration"),
		"economicComposition": component("Economic Composition"),
		"governance":          component("Governance"),
		"qualityOfLife":       component("Quality of Life"),
	}, "humanCapital", "infrastructure", "agglomeration", "economicComposition", "governance", "qualityOfLife"),
}, "overallScore", "summary", "components")

// SimulationSchema is the shape of a types.InterventionSimulation.
var SimulationSchema = llmclient.Obj("Intervention simulation", map[string]*llmclient.Schema{
	"scenario":       llmclient.Str("A descriptive title for the simulation scenario."),
	"intervention":   llmclient.Str("A summary of the proposed intervention."),
	"timeline":       llmclient.Str("The timeline the simulation covers, e.g. '5-10 Years'."),
	"impactAnalysis": llmclient.Str("The likely causal chain of effects and feedback loops."),
	"predictedOutcomes": llmclient.Arr("", llmclient.Obj("", map[string]*llmclient.Schema{
		"metric":     llmclient.Str("The RROI component being impacted."),
		"startValue": llmclient.Num("The original score from the RROI."),
		"endValue":   llmclient.Num("The predicted score after the intervention."),
	}, "metric", "startValue", "endValue")),
}, "scenario", "intervention", "timeline", "impactAnalysis", "predictedOutcomes")

// BlueprintSchema is the shape of a types.EcosystemBlueprint.
var BlueprintSchema = llmclient.Obj("Symbiotic ecosystem blueprint", map[string]*llmclient.Schema{
	"strategicObjective": llmclient.Str("A refined version of the objective this ecosystem is designed to achieve."),
	"ecosystemSummary":   llmclient.Str("How the prescribed partners collectively solve the region's core challenges."),
	"partners": llmclient.Arr("", llmclient.Obj("", map[string]*llmclient.Schema{
		"type":      llmclient.Str("The partner archetype, e.g. 'Anchor' or 'Innovation'."),
		"entity":    llmclient.Str("The real-world organization, including its country of origin."),
		"rationale": llmclient.Str("Why this partner fits its role in the ecosystem."),
	}, "type", "entity", "rationale")),
}, "strategicObjective", "ecosystemSummary", "partners")

// Diagnose builds the stage one instruction.
func Diagnose(region, objective string) Payload {
	var d doc
	d.field("Region to Diagnose", quoted(region))
	d.field("User Goal Context", quoted(objective))
	d.blank()
	d.section("Your Task", diagnoseSteps)
	return Payload{System: diagnoseSystem, Task: d.String()}
}

// Simulate builds the stage two instruction from a prior diagnosis.
func Simulate(rroi types.DiagnosticResult, intervention string) Payload {
	var d doc
	d.section("Regional Diagnosis (RROI) Input", fencedJSON(rroi))
	d.section("Proposed Intervention", quoted(intervention))
	d.section("Your Task", "Based on the provided RROI, analyze the likely impact of the intervention over a 5-10 year period. Explain the causal effects and predict the changes to the relevant RROI component scores.")
	return Payload{System: simulateSystem, Task: d.String()}
}

// Architect builds the stage three instruction from a prior diagnosis.
func Architect(rroi types.DiagnosticResult, objective string) Payload {
	var d doc
	d.section("Regional Diagnosis (RROI) Input", fencedJSON(rroi))
	d.section("User's Strategic Objective", quoted(objective))
	d.section("Your Task", fmt.Sprintf("Design a symbiotic ecosystem to achieve the objective, addressing the weaknesses and leveraging the strengths identified in the RROI (overall score %v). Use web search to find real-world entities for each partner archetype.", rroi.OverallScore))
	return Payload{System: architectSystem, Task: d.String()}
}
