package wizard

import (
	"slices"
	"strings"

	"nexus/internal/types"
)

const copilotMinLength = 30

var copilotRules = []struct {
	persona  types.PersonaID
	keywords []string
}{
	{types.PersonaGeopoliticalStrategist, []string{"policy", "risk", "stability"}},
	{types.PersonaVentureCapitalist, []string{"investment", "market", "roi", "scale"}},
	{types.PersonaRegionalEconomist, []string{"economic", "supply chain", "workforce", "gdp"}},
}

// SuggestPersona proposes a persona from keywords in the objective. The
// first matching rule wins; nothing is suggested for short objectives or
// when the persona is already selected.
func SuggestPersona(p types.ReportParameters) (types.PersonaID, bool) {
	if len(p.ProblemStatement) < copilotMinLength {
		return "", false
	}
	text := strings.ToLower(p.ProblemStatement)
	for _, rule := range copilotRules {
		if !slices.ContainsFunc(rule.keywords, func(k string) bool { return strings.Contains(text, k) }) {
			continue
		}
		if slices.Contains(p.AIPersona, rule.persona) {
			return "", false
		}
		return rule.persona, true
	}
	return "", false
}
