package wizard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/types"
)

func complete() types.ReportParameters {
	p := types.Default()
	p.ReportName = "Report"
	p.UserName = "Ana"
	p.Tier = []types.TierID{"Policy Brief"}
	p.Region = "Nairobi, Kenya"
	p.IdealPartnerProfile = "Logistics operator"
	p.ProblemStatement = "Grow agri exports"
	return p
}

func TestStepPredicates(t *testing.T) {
	p := complete()
	for _, s := range []Step{Profile, Opportunity, Objective, Review} {
		assert.True(t, CanAdvance(s, p), s.String())
	}

	p.Industry = []types.IndustryID{types.IndustryCustom}
	assert.False(t, CanAdvance(Opportunity, p))
	p.CustomIndustry = "Cacao"
	assert.True(t, CanAdvance(Opportunity, p))

	p.AIPersona = []types.PersonaID{types.PersonaCustom}
	p.CustomAIPersona = "   "
	assert.False(t, CanAdvance(Objective, p))
	assert.False(t, CanSubmit(p))

	assert.True(t, CanAdvance(Review, types.ReportParameters{}), "review has no requirements")
}

func TestNextBlocksInvalidStep(t *testing.T) {
	w := New()
	p := complete()
	p.UserName = ""
	err := w.Next(p)
	require.Error(t, err)
	var ce *types.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Has("userName"))
	assert.Equal(t, Profile, w.Current())
}

func TestNextAndBack(t *testing.T) {
	w := New()
	p := complete()
	for range 5 {
		require.NoError(t, w.Next(p))
	}
	assert.Equal(t, Review, w.Current(), "next stops at review")

	w.Back()
	assert.Equal(t, Objective, w.Current())

	// Back is allowed even when the current step is invalid.
	w.Back()
	w.Back()
	w.Back()
	assert.Equal(t, Profile, w.Current())

	var zero Wizard
	assert.Equal(t, Profile, zero.Current())
}

func TestHelpText(t *testing.T) {
	assert.Equal(t, "Define your role and the high-level goal of your report.", HelpText(Profile))
	assert.Contains(t, HelpText(Review), "Nexus Brain")
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time         { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newAttention(c *fakeClock) *Attention {
	a := NewAttention()
	a.Now = c.now
	return a
}

func TestAttentionHappyPath(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	a := newAttention(clk)
	assert.Equal(t, Idle, a.State())
	assert.Contains(t, a.Guidance(Profile), "Start by entering your name")

	p := types.Default()
	p.UserName = "Ana"
	assert.Equal(t, Welcomed, a.Observe(p))
	assert.Contains(t, a.Guidance(Profile), "Hello, Ana.")

	clk.advance(2 * time.Second)
	p.ReportName = "Report"
	assert.Equal(t, Active, a.Observe(p))
	assert.Equal(t, HelpText(Opportunity), a.Guidance(Opportunity))

	clk.advance(time.Minute)
	assert.Equal(t, Active, a.Poll(), "the timer has no effect once active")
}

func TestAttentionPromptsAfterIdleTimeout(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	a := newAttention(clk)
	p := types.Default()
	p.UserName = "Ana"
	a.Observe(p)

	clk.advance(4 * time.Second)
	assert.Equal(t, Welcomed, a.Poll())
	clk.advance(time.Second)
	assert.Equal(t, Prompted, a.Poll())
	assert.Contains(t, a.Guidance(Profile), "paused")

	a.Answer()
	assert.Equal(t, AnsweredPrompt, a.State())
	assert.Contains(t, a.Guidance(Profile), "Understood.")

	p.ReportName = "Report"
	assert.Equal(t, Active, a.Observe(p))
}

func TestAttentionBothFieldsAtOnce(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	a := newAttention(clk)
	p := types.Default()
	p.UserName = "Ana"
	p.ReportName = "Davao Cold Chain"

	assert.Equal(t, Active, a.Observe(p))
	clk.advance(6 * time.Second)
	assert.Equal(t, Active, a.Poll(), "an operator who filled both fields is never prompted")
	assert.Equal(t, HelpText(Profile), a.Guidance(Profile))
}

func TestAttentionAnswerOnlyFromPrompted(t *testing.T) {
	a := newAttention(&fakeClock{})
	a.Answer()
	assert.Equal(t, Idle, a.State())

	p := types.Default()
	p.ReportName = "Report"
	assert.Equal(t, Idle, a.Observe(p), "a report name without a user name keeps idle")

	a.Reset()
	assert.Equal(t, Idle, a.State())
}

func TestSuggestPersona(t *testing.T) {
	p := types.Default()
	p.AIPersona = []types.PersonaID{types.PersonaESGAnalyst}

	p.ProblemStatement = "Assess policy risk"
	_, ok := SuggestPersona(p)
	assert.False(t, ok, "short objectives get no suggestion")

	p.ProblemStatement = "Assess the regulatory POLICY landscape for wind farms"
	got, ok := SuggestPersona(p)
	require.True(t, ok)
	assert.Equal(t, types.PersonaGeopoliticalStrategist, got)

	p.ProblemStatement = "Find investment partners to scale solar manufacturing"
	got, ok = SuggestPersona(p)
	require.True(t, ok)
	assert.Equal(t, types.PersonaVentureCapitalist, got)

	p.ProblemStatement = "Strengthen the regional supply chain for batteries"
	p.AIPersona = []types.PersonaID{types.PersonaRegionalEconomist}
	_, ok = SuggestPersona(p)
	assert.False(t, ok, "already selected")

	p.ProblemStatement = "Nothing that matches any keyword at all here"
	_, ok = SuggestPersona(p)
	assert.False(t, ok)
}
