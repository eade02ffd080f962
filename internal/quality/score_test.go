package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"nexus/internal/types"
)

func TestScoreComplete(t *testing.T) {
	p := types.Default()
	p.ReportName = "Name"
	p.Tier = []types.TierID{"Policy Brief"}
	p.Region = "Nairobi, Kenya"
	p.IdealPartnerProfile = strings.Repeat("p", 51)
	p.ProblemStatement = strings.Repeat("o", 51)

	r := Score(p)
	assert.Equal(t, 100, r.Score)
	assert.Empty(t, r.Recommendations)
}

func TestScoreEmpty(t *testing.T) {
	r := Score(types.ReportParameters{})
	assert.Equal(t, 0, r.Score)
	assert.Equal(t, []string{
		"Provide a descriptive Report Name.",
		"Select at least one Report Tier to define the scope.",
		"Specify a Target Region for focused analysis.",
		"Choose a Core Industry to guide the search.",
		"Describe your Ideal Partner for effective matchmaking.",
		"Define a Core Objective to guide the AI's analysis.",
		"Select an AI Persona to frame the analysis.",
	}, r.Recommendations)
}

func TestScoreBriefText(t *testing.T) {
	p := types.Default()
	p.IdealPartnerProfile = strings.Repeat("p", 50)
	p.ProblemStatement = "   short   "

	r := Score(p)
	// industry 10 + persona 10 + partner 10 + objective 10
	assert.Equal(t, 40, r.Score)
	assert.Contains(t, r.Recommendations, "Your 'Ideal Partner Profile' is brief. More detail will improve partner matching.")
	assert.Contains(t, r.Recommendations, "Your 'Core Objective' is concise. Expanding on it can enhance strategic alignment.")
	assert.Len(t, r.Recommendations, 5)
}

func TestScoreWhitespaceIsEmpty(t *testing.T) {
	p := types.ReportParameters{ReportName: "  ", IdealPartnerProfile: "\n\t"}
	r := Score(p)
	assert.Equal(t, 0, r.Score)
	assert.Contains(t, r.Recommendations, "Describe your Ideal Partner for effective matchmaking.")
}

func TestScoreIsPure(t *testing.T) {
	p := types.Default()
	p.ReportName = "x"
	assert.Equal(t, Score(p), Score(p))
}

func TestScoreMissingTierOnly(t *testing.T) {
	p := types.Default()
	p.ReportName = "Name"
	p.Region = "Nairobi, Kenya"
	p.IdealPartnerProfile = strings.Repeat("p", 51)
	p.ProblemStatement = strings.Repeat("o", 51)

	r := Score(p)
	assert.Equal(t, 85, r.Score)
	assert.Equal(t, []string{"Select at least one Report Tier to define the scope."}, r.Recommendations)
}
