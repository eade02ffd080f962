package nexus

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/grounding"
	llmclient "nexus/internal/llm/client"
	"nexus/internal/pipeline"
	"nexus/internal/types"
)

var _ pipeline.Brain = (*Service)(nil)

type stubSource struct {
	g    *types.GroundingData
	err  error
	econ types.EconomicData
}

func (s stubSource) Grounding(context.Context, string) (*types.GroundingData, error) {
	return s.g, s.err
}

func (s stubSource) EconomicData(_ context.Context, country string) (types.EconomicData, error) {
	if country == "Atlantis" {
		return types.EconomicData{}, &grounding.UnknownCountryError{Name: country}
	}
	return s.econ, s.err
}

func params() types.ReportParameters {
	p := types.Default()
	p.ReportName = "Cold chain"
	p.UserName = "Ana"
	p.Tier = []types.TierID{"Policy Brief"}
	p.Region = "Davao City, Philippines"
	p.IdealPartnerProfile = "Cold chain operator"
	p.ProblemStatement = "Reduce post-harvest losses"
	return p
}

func newService(src grounding.Source) (*Service, *llmclient.FakeClient, *bytes.Buffer) {
	fake := llmclient.NewFakeClient()
	var logs bytes.Buffer
	return New(fake, src, log.New(&logs, "", 0)), fake, &logs
}

func TestDiagnoseDecodesSixComponents(t *testing.T) {
	svc, fake, _ := newService(nil)
	d, err := svc.Diagnose(context.Background(), "Davao City, Philippines", "agri")
	require.NoError(t, err)
	assert.Equal(t, float64(62), d.OverallScore)
	assert.Len(t, d.Components.Named(), 6)

	req, ok := fake.LastRequest(llmclient.StageDiagnose)
	require.True(t, ok)
	assert.True(t, req.Search)
	assert.NotNil(t, req.Schema)
}

func TestDiagnoseOutOfRangeScoreIsParseError(t *testing.T) {
	svc, fake, _ := newService(nil)
	comp := `{"name":"x","score":50,"analysis":"a"}`
	fake.SetRaw(llmclient.StageDiagnose, `{"overallScore":140,"summary":"s","components":{"humanCapital":`+comp+`,"infrastructure":`+comp+`,"agglomeration":`+comp+`,"economicComposition":`+comp+`,"governance":`+comp+`,"qualityOfLife":`+comp+`}}`)
	_, err := svc.Diagnose(context.Background(), "Davao", "")
	assert.True(t, llmclient.IsParse(err))
}

func TestDiagnoseEmptyRegionNeverReachesModel(t *testing.T) {
	svc, fake, _ := newService(nil)
	_, err := svc.Diagnose(context.Background(), " ", "x")
	assert.True(t, types.IsConfiguration(err))
	assert.Zero(t, fake.Calls(llmclient.StageDiagnose))
}

func TestArchitectNormalizesArchetypes(t *testing.T) {
	svc, fake, _ := newService(nil)
	fake.SetRaw(llmclient.StageArchitect, "```json\n"+`{"strategicObjective":"o","ecosystemSummary":"s","partners":[{"type":"Anchor Partner","entity":"A","rationale":"r"},{"type":"Media","entity":"B","rationale":"r"}]}`+"\n```")
	bp, err := svc.Architect(context.Background(), types.DiagnosticResult{}, "objective")
	require.NoError(t, err)
	require.Len(t, bp.Partners, 2)
	assert.Equal(t, types.ArchetypeAnchor, bp.Partners[0].Type)
	assert.Equal(t, types.ArchetypeOther, bp.Partners[1].Type)
}

func TestSimulateServiceErrorPassesThrough(t *testing.T) {
	svc, fake, _ := newService(nil)
	fake.SetError(llmclient.StageSimulate, &llmclient.ServiceError{Status: 500, Message: "boom"})
	_, err := svc.Simulate(context.Background(), types.DiagnosticResult{}, "port")
	var se *llmclient.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "boom", se.Message)
}

func TestReportUsesGroundingWhenAvailable(t *testing.T) {
	src := stubSource{g: &types.GroundingData{GDP: &types.Indicator{Value: 1000, Year: "2023"}}}
	svc, fake, _ := newService(src)
	s, err := svc.Report(context.Background(), params())
	require.NoError(t, err)
	text, err := llmclient.Collect(s)
	require.NoError(t, err)
	assert.Contains(t, text, "# Offline Report")

	req, _ := fake.LastRequest(llmclient.StageReport)
	assert.Contains(t, req.Prompt, "Latest World Bank GDP:** $1,000 (Year: 2023)")
}

func TestReportDegradesWhenGroundingFails(t *testing.T) {
	svc, fake, logs := newService(stubSource{err: errors.New("worldbank down")})
	s, err := svc.Report(context.Background(), params())
	require.NoError(t, err)
	_, err = llmclient.Collect(s)
	require.NoError(t, err)

	req, _ := fake.LastRequest(llmclient.StageReport)
	assert.NotContains(t, req.Prompt, "Authoritative Grounding Data")
	assert.Contains(t, req.Prompt, "Rely on web search")
	assert.Contains(t, logs.String(), "worldbank down")
}

func TestReportRejectsInvalidParameters(t *testing.T) {
	svc, fake, _ := newService(nil)
	p := params()
	p.Tier = nil
	_, err := svc.Report(context.Background(), p)
	var ce *types.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Has("tier"))
	assert.Zero(t, fake.Calls(llmclient.StageReport))
}

func TestLetterRequiresRegionAndObjective(t *testing.T) {
	svc, _, _ := newService(nil)
	_, err := svc.Letter(context.Background(), types.ReportParameters{})
	var ce *types.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "region", ce.Fields[0].Field)
	assert.Equal(t, "problemStatement", ce.Fields[1].Field)

	s, err := svc.Letter(context.Background(), params())
	require.NoError(t, err)
	text, err := llmclient.Collect(s)
	require.NoError(t, err)
	assert.Contains(t, text, "Dear [Recipient]")
}

func TestCapabilitiesCachedAndShared(t *testing.T) {
	svc, fake, _ := newService(nil)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := svc.Capabilities(context.Background())
			assert.NoError(t, err)
			assert.NotEmpty(t, c.Capabilities)
		}()
	}
	wg.Wait()
	_, err := svc.Capabilities(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, fake.Calls(llmclient.StageCapabilities), 8)

	before := fake.Calls(llmclient.StageCapabilities)
	_, err = svc.Capabilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, fake.Calls(llmclient.StageCapabilities), "served from cache")
}

func TestCapabilitiesErrorIsNotCached(t *testing.T) {
	svc, fake, _ := newService(nil)
	fake.SetError(llmclient.StageCapabilities, &llmclient.NetworkError{Op: "caps", Err: errors.New("offline")})
	_, err := svc.Capabilities(context.Background())
	assert.True(t, llmclient.IsNetwork(err))

	fake.SetError(llmclient.StageCapabilities, nil)
	_, err = svc.Capabilities(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, fake.Calls(llmclient.StageCapabilities))
}

func TestInquire(t *testing.T) {
	svc, fake, _ := newService(nil)
	_, err := svc.Inquire(context.Background(), ScopeRequest{})
	assert.True(t, types.IsConfiguration(err))
	assert.Zero(t, fake.Calls(llmclient.StageScope))

	res, err := svc.Inquire(context.Background(), ScopeRequest{Query: "AgriTech partners for Davao"})
	require.NoError(t, err)
	assert.Equal(t, "Davao City, Philippines", res.Suggestions.Region)
	applied := res.Suggestions.Apply(types.Default())
	assert.Equal(t, []types.IndustryID{"Agriculture & AgriTech"}, applied.Industry)
}

func TestEconomicData(t *testing.T) {
	src := stubSource{econ: types.EconomicData{GDP: &types.Indicator{Value: 5, Year: "2023"}, Incomplete: true}}
	svc, _, _ := newService(src)

	e, err := svc.EconomicData(context.Background(), "Kenya")
	require.NoError(t, err)
	assert.True(t, e.Incomplete)

	_, err = svc.EconomicData(context.Background(), "Atlantis")
	assert.True(t, types.IsConfiguration(err))
	_, err = svc.EconomicData(context.Background(), "")
	assert.True(t, types.IsConfiguration(err))
}

func TestRefineObjective(t *testing.T) {
	svc, fake, _ := newService(nil)
	out, err := svc.RefineObjective(context.Background(), "grow exports", types.EconomicData{GDP: &types.Indicator{Value: 1, Year: "2023"}})
	require.NoError(t, err)
	assert.Equal(t, "fake refined objective", out)
	req, _ := fake.LastRequest(llmclient.StageRefine)
	assert.Contains(t, req.Prompt, "gdp: 1 (2023)")
}

func TestChat(t *testing.T) {
	svc, fake, _ := newService(nil)
	ctx := context.Background()
	p := params()
	c := types.ChatContext{Topic: "Cold chain gaps", ReportParameters: &p}

	out, err := svc.Chat(ctx, c, []types.ChatMessage{{Sender: types.SenderUser, Text: "Anything new?"}})
	require.NoError(t, err)
	assert.Equal(t, "fake follow-up answer", out)
	req, ok := fake.LastRequest(llmclient.StageChat)
	require.True(t, ok)
	assert.True(t, req.Search, "follow-ups may need current data")
	assert.Contains(t, req.Prompt, "Davao City, Philippines")

	_, err = svc.Chat(ctx, types.ChatContext{}, nil)
	assert.True(t, types.IsConfiguration(err))
	assert.Equal(t, 1, fake.Calls(llmclient.StageChat), "invalid requests never reach the model")
}
