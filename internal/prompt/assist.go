package prompt

import (
	"fmt"
	"strings"

	llmclient "nexus/internal/llm/client"
	"nexus/internal/types"
)

const letterSystem = `You are a senior business development and communications strategist specializing in international investment promotion. Draft a formal, professional, and culturally-aware introductory letter from a government or economic development official to a potential foreign partner company.

**Directives:**
1. **Be Formal & Respectful:** official but inviting.
2. **Be Concise:** 3-4 short paragraphs.
3. **Highlight Synergy:** briefly state the alignment between the company's expertise and the region's opportunity.
4. **Clear Call to Action:** end with a low-pressure invitation for an exploratory discussion.
5. **Use Placeholders:** "[Your Name]" or "[Your Title]" for the sender's details.
6. **Do NOT Invent Facts:** use only the information provided.`

const capabilitiesSystem = `You are Nexus Inquire, an AI assistant for a strategic intelligence platform called BWGA Nexus AI. Your purpose is to help users generate complex intelligence reports by understanding their natural language goals.`

const capabilitiesTask = `Introduce yourself briefly and list 3 of your core capabilities that would be most helpful to a user (like a government official or business strategist).
Focus on how you help turn a simple idea into a detailed report.
For each capability, also provide a compelling example prompt a user could try.
Your response MUST be a valid JSON object. Do not include any markdown fences.`

const scopeSystem = `You are the Nexus Brain, an AI research partner for a strategic intelligence platform. Take the user's high-level goal, use web search to conduct preliminary research, and use that research to scope a full intelligence blueprint.

Your response MUST be a valid JSON object matching the provided schema.

**Process:**
1. Analyze the user's query and any attached context.
2. Search to understand the key players, challenges, opportunities and context of the query.
3. Synthesize your findings into a concise, professional summary of the most critical insights.
4. Populate the 'suggestions' object with the most logical parameters for a strategic report on this topic. Be thoughtful in your suggestions for tiers and personas.`

const refineSystem = `You are a strategic analysis synthesizer. Take a user's initial objective and supporting context, and synthesize a more detailed and actionable strategic objective suitable for a full, in-depth intelligence report.

**Directives:**
1. **Synthesize, Don't Just Copy:** combine the intent of the objective with the key facts of the context.
2. **Add Detail and Structure:** frame it as a goal for a strategic report.
3. **Be Objective-Oriented:** a clear, concise paragraph that could serve as the "Core Objective" of a report request.
4. **Output ONLY the refined objective text.** No conversational text, headings, or markdown.`

// refineContextLimit bounds the context quoted into a refine request.
const refineContextLimit = 1500

// CapabilitiesSchema is the shape of types.Capabilities.
var CapabilitiesSchema = llmclient.Obj("", map[string]*llmclient.Schema{
	"greeting": llmclient.Str("A brief, welcoming greeting from the assistant."),
	"capabilities": llmclient.Arr("A list of the assistant's core capabilities.", llmclient.Obj("", map[string]*llmclient.Schema{
		"title":       llmclient.Str("The title of the capability."),
		"description": llmclient.Str("A short description of the capability."),
		"prompt":      llmclient.Str("An example prompt a user can try."),
	}, "title", "description", "prompt")),
}, "greeting", "capabilities")

// ScopeSchema is the shape of types.ScopeResult. Suggestion fields are all optional.
var ScopeSchema = llmclient.Obj("", map[string]*llmclient.Schema{
	"summary": llmclient.Str("A few paragraphs of Markdown summarizing the initial research findings."),
	"suggestions": llmclient.Obj("The suggested parameters for the report generator.", map[string]*llmclient.Schema{
		"reportName":          llmclient.Str("A concise, descriptive name for the report."),
		"region":              llmclient.Str("The primary region, formatted as 'City, Country' or 'Country'."),
		"industry":            llmclient.Str("The single most relevant core industry."),
		"tier":                llmclient.Arr("Suggested report tier ids.", llmclient.Str("")),
		"aiPersona":           llmclient.Arr("Suggested analyst persona ids.", llmclient.Str("")),
		"idealPartnerProfile": llmclient.Str("A paragraph describing the ideal partner company."),
		"problemStatement":    llmclient.Str("A well-formed strategic objective."),
	}),
}, "summary", "suggestions")

// Letter builds the outreach letter instruction.
func Letter(p types.ReportParameters) Payload {
	var d doc
	d.line("**Context for Letter Generation:**")
	d.field("My Organization", join([]string{p.UserDepartment, p.UserCountry}))
	if obj := strings.TrimSpace(p.ProblemStatement); obj != "" {
		d.field("My Goal", "I am trying to achieve the following objective: "+quoted(obj))
	}
	opportunity := ""
	if region := strings.TrimSpace(p.Region); region != "" {
		opportunity = "We have a significant opportunity in our region, " + region
		if industry := industryLabel(p); industry != "" {
			opportunity += ", within the " + industry + " sector"
		}
		opportunity += "."
	}
	d.field("The Opportunity", opportunity)
	if profile := strings.TrimSpace(p.IdealPartnerProfile); profile != "" {
		d.field("The Ideal Partner Profile", "I am writing to a high-potential partner company that matches this profile: "+quoted(profile))
	}
	d.blank()
	d.section("Your Task", "Draft a formal introductory letter to a senior executive (e.g. CEO, Head of Strategy) at this target company. Introduce my organization, briefly mention the synergistic opportunity in our region without being overly detailed, and invite them to a preliminary, confidential discussion. The output should be only the text of the letter.")
	return Payload{System: letterSystem, Task: d.String()}
}

// Capabilities builds the assistant introduction request.
func Capabilities() Payload {
	example := types.Capabilities{
		Greeting: "Hello, I am the Nexus Inquire AI assistant...",
		Capabilities: []types.Capability{{
			Title:       "Translate Goals into Objectives",
			Description: "I can turn your high-level goals into a structured problem statement for a detailed report.",
			Prompt:      "I need to attract semiconductor manufacturing to Arizona, USA.",
		}},
	}
	return Payload{System: capabilitiesSystem, Task: capabilitiesTask + "\n\nExample Format:\n" + fencedJSON(example)}
}

// Scope builds the research-and-scope request. fileContent is optional.
func Scope(query, fileContent string) Payload {
	var d doc
	d.line("The user's high-level goal is: %s", quoted(query))
	if fc := strings.TrimSpace(fileContent); fc != "" {
		d.line("They have also provided the following context from a file:")
		d.line("---\n%s\n---", fc)
	}
	d.blank()
	d.line("Please perform your research and scope the intelligence blueprint now.")
	var tiers, personas []string
	for _, group := range types.OrganizationTypes {
		for _, t := range types.TiersFor(group) {
			tiers = appendUnique(tiers, string(t.ID))
		}
	}
	for _, p := range types.Personas {
		personas = append(personas, string(p.ID))
	}
	d.blank()
	d.line("Known tier ids: %s", strings.Join(tiers, ", "))
	d.line("Known persona ids: %s", strings.Join(personas, ", "))
	return Payload{System: scopeSystem, Task: d.String()}
}

// RefineObjective builds a request that rewrites objective using the
// economic indicators as context.
func RefineObjective(objective string, econ types.EconomicData) Payload {
	context := econ.Summary()
	if len(context) > refineContextLimit {
		context = context[:refineContextLimit] + "..."
	}
	var d doc
	d.section("User's Initial Objective", quoted(objective))
	if context != "" {
		d.section("Supporting Context", quoted(context))
	}
	d.section("Your Task", fmt.Sprintf("Based on the above, synthesize a refined strategic objective for a deep-dive report%s.", refineSuffix(context)))
	return Payload{System: refineSystem, Task: d.String()}
}

func refineSuffix(context string) string {
	if context == "" {
		return ""
	}
	return " that reflects the supporting context"
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
