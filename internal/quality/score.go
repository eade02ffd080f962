// Package quality rates how complete a report configuration is.
package quality

import (
	"strings"

	"nexus/internal/types"
)

// detailThreshold is the length above which free text earns full points.
const detailThreshold = 50

type Result struct {
	Score           int      `json:"score"`
	Recommendations []string `json:"recommendations"`
}

// Score is pure: the same configuration always yields the same result.
func Score(p types.ReportParameters) Result {
	var r Result
	award := func(ok bool, points int, rec string) {
		if ok {
			r.Score += points
			return
		}
		r.Recommendations = append(r.Recommendations, rec)
	}

	award(strings.TrimSpace(p.ReportName) != "", 10, "Provide a descriptive Report Name.")
	award(len(p.Tier) > 0, 15, "Select at least one Report Tier to define the scope.")
	award(strings.TrimSpace(p.Region) != "", 10, "Specify a Target Region for focused analysis.")
	award(len(p.Industry) > 0, 10, "Choose a Core Industry to guide the search.")

	graded(&r, p.IdealPartnerProfile, 20,
		"Describe your Ideal Partner for effective matchmaking.",
		"Your 'Ideal Partner Profile' is brief. More detail will improve partner matching.")
	graded(&r, p.ProblemStatement, 25,
		"Define a Core Objective to guide the AI's analysis.",
		"Your 'Core Objective' is concise. Expanding on it can enhance strategic alignment.")

	award(len(p.AIPersona) > 0, 10, "Select an AI Persona to frame the analysis.")

	r.Score = min(r.Score, 100)
	return r
}

// graded awards full points for detailed text, 10 for brief text and
// nothing for empty text.
func graded(r *Result, text string, full int, missing, brief string) {
	n := len(strings.TrimSpace(text))
	switch {
	case n > detailThreshold:
		r.Score += full
	case n > 0:
		r.Score += 10
		r.Recommendations = append(r.Recommendations, brief)
	default:
		r.Recommendations = append(r.Recommendations, missing)
	}
}
