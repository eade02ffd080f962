package rpc

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "nexus/internal/llm/client"
	"nexus/internal/nexus"
	"nexus/internal/pipeline"
	"nexus/internal/types"
)

func newRemote(t *testing.T) (*Client, *llmclient.FakeClient) {
	t.Helper()
	fake := llmclient.NewFakeClient()
	logger := log.New(&bytes.Buffer{}, "", 0)
	mux := http.NewServeMux()
	NewHandler(nexus.New(fake, nil, logger), logger).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL), fake
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

func TestUnaryRoundTrip(t *testing.T) {
	c, fake := newRemote(t)
	ctx := context.Background()

	d, err := c.Diagnose(ctx, "Davao City, Philippines", "agri")
	require.NoError(t, err)
	assert.Equal(t, float64(62), d.OverallScore)
	assert.Len(t, d.Components.Named(), 6)

	sim, err := c.Simulate(ctx, d, "cold storage")
	require.NoError(t, err)
	assert.Equal(t, "5-10 Years", sim.Timeline)
	req, _ := fake.LastRequest(llmclient.StageSimulate)
	assert.Contains(t, req.Prompt, "cold storage")

	bp, err := c.Architect(ctx, d, "agri cluster")
	require.NoError(t, err)
	assert.Equal(t, types.ArchetypeAnchor, bp.Partners[0].Type)

	caps, err := c.Capabilities(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, caps.Capabilities)

	scope, err := c.Inquire(ctx, nexus.ScopeRequest{Query: "AgriTech in Davao"})
	require.NoError(t, err)
	assert.Equal(t, "Davao City, Philippines", scope.Suggestions.Region)

	text, err := c.RefineObjective(ctx, "grow exports", types.EconomicData{})
	require.NoError(t, err)
	assert.Equal(t, "fake refined objective", text)
}

func TestChatRoundTrip(t *testing.T) {
	c, fake := newRemote(t)
	ctx := context.Background()
	cc := types.ChatContext{Topic: "Cold chain gaps", OriginalContent: "Storage capacity is short by 40%."}
	history := []types.ChatMessage{
		{Sender: types.SenderAI, Text: "How can I elaborate?"},
		{Sender: types.SenderUser, Text: "Anything new since January?"},
	}

	answer, err := c.Chat(ctx, cc, history)
	require.NoError(t, err)
	assert.Equal(t, "fake follow-up answer", answer)
	req, ok := fake.LastRequest(llmclient.StageChat)
	require.True(t, ok)
	assert.True(t, req.Search)
	assert.Contains(t, req.Prompt, "- User: Anything new since January?")

	_, err = c.Chat(ctx, cc, history[:1])
	var ce *types.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Has("history"))
}

func TestRemoteBrainDrivesPipeline(t *testing.T) {
	c, _ := newRemote(t)
	var brain pipeline.Brain = c
	o := pipeline.New(brain, log.New(&bytes.Buffer{}, "", 0))
	_, err := o.Simulate(context.Background(), "port")
	assert.True(t, pipeline.IsPrecondition(err))
	_, err = o.Diagnose(context.Background(), "Nairobi, Kenya", "")
	require.NoError(t, err)
	_, err = o.Simulate(context.Background(), "port")
	require.NoError(t, err)
}

func TestConfigurationErrorKeepsFields(t *testing.T) {
	c, fake := newRemote(t)
	_, err := c.Diagnose(context.Background(), " ", "")
	var ce *types.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Has("region"))
	assert.Zero(t, fake.Calls(llmclient.StageDiagnose))
}

func TestServiceErrorsCrossTheWire(t *testing.T) {
	c, fake := newRemote(t)
	ctx := context.Background()

	fake.SetError(llmclient.StageDiagnose, &llmclient.ServiceError{Status: 503, Code: "UNAVAILABLE", Message: "model overloaded"})
	_, err := c.Diagnose(ctx, "Nairobi, Kenya", "")
	var se *llmclient.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 503, se.Status)
	assert.Equal(t, "UNAVAILABLE", se.Code)
	assert.Equal(t, "model overloaded", se.Message)

	fake.SetError(llmclient.StageDiagnose, nil)
	fake.SetRaw(llmclient.StageDiagnose, "definitely not json")
	_, err = c.Diagnose(ctx, "Nairobi, Kenya", "")
	assert.True(t, llmclient.IsParse(err))

	fake.SetError(llmclient.StageCapabilities, &llmclient.NetworkError{Op: "capabilities", Err: errors.New("dial tcp: refused")})
	_, err = c.Capabilities(ctx)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
}

func TestReportStream(t *testing.T) {
	c, fake := newRemote(t)
	fake.ChunkSize = 8

	s, err := c.Report(context.Background(), params())
	require.NoError(t, err)
	text, err := llmclient.Collect(s)
	require.NoError(t, err)
	assert.Contains(t, text, "# Offline Report")

	_, err = llmclient.Collect(s)
	assert.ErrorIs(t, err, llmclient.ErrStreamConsumed)

	s, err = c.Letter(context.Background(), params())
	require.NoError(t, err)
	text, err = llmclient.Collect(s)
	require.NoError(t, err)
	assert.Contains(t, text, "Dear [Recipient]")
}

func TestReportStreamErrors(t *testing.T) {
	c, fake := newRemote(t)
	p := params()
	p.Tier = nil
	s, err := c.Report(context.Background(), p)
	require.NoError(t, err)
	_, err = llmclient.Collect(s)
	assert.True(t, types.IsConfiguration(err))

	fake.SetError(llmclient.StageReport, &llmclient.ServiceError{Status: 500, Message: "boom"})
	s, err = c.Report(context.Background(), params())
	require.NoError(t, err)
	_, err = llmclient.Collect(s)
	assert.True(t, llmclient.IsService(err))
}

func TestUnreachableGatewayIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(nil, url)
	_, err := c.Diagnose(context.Background(), "Nairobi, Kenya", "")
	assert.True(t, llmclient.IsNetwork(err))
}

func TestToConnectErrorCodes(t *testing.T) {
	assert.Nil(t, toConnectError(nil))
	pre := &pipeline.PreconditionError{Stage: pipeline.StageSimulate, Requires: pipeline.StageDiagnose}
	assert.Equal(t, "failed_precondition", codeOf(toConnectError(pre)))
	assert.Equal(t, "resource_exhausted", codeOf(toConnectError(&llmclient.ServiceError{Status: 429, Message: "slow down"})))
	assert.Equal(t, "unavailable", codeOf(toConnectError(&llmclient.ServiceError{Status: 503})))
	assert.Equal(t, "canceled", codeOf(toConnectError(context.Canceled)))
	assert.Equal(t, "internal", codeOf(toConnectError(errors.New("x"))))
}

func codeOf(err error) string {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce.Code().String()
	}
	return ""
}

func TestCodecLeavesMarkdownUnescaped(t *testing.T) {
	var c jsonCodec
	b, err := c.Marshal(TextChunk{Text: "R&D <b>cold chain</b> -> ports"})
	require.NoError(t, err)
	assert.Contains(t, string(b), "R&D <b>cold chain</b> -> ports")

	var got TextChunk
	require.NoError(t, c.Unmarshal(b, &got))
	assert.Equal(t, "R&D <b>cold chain</b> -> ports", got.Text)
}
