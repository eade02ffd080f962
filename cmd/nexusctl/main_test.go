package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "nexus/internal/llm/client"
	"nexus/internal/types"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for k, v := range map[string]string{
		"NEXUS_CONFIG":           "",
		"NEXUS_LLM_PROVIDER":     "fake",
		"NEXUS_REMOTE_URL":       "",
		"GEMINI_API_KEY":         "",
		"API_KEY":                "",
		"NEXUS_STORE":            "file",
		"NEXUS_STORE_PATH":       filepath.Join(dir, "store"),
		"NEXUS_ARTIFACT_BACKEND": "memory",
		"NEXUS_LLM_RPS":          "0",
	} {
		t.Setenv(k, v)
	}
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := newCLI()
	c.root.SetOut(&out)
	c.root.SetErr(&errOut)
	err := c.execute(context.Background(), args...)
	return out.String(), errOut.String(), err
}

func show(t *testing.T, extra ...string) types.ReportParameters {
	t.Helper()
	out, _, err := run(t, append(extra, "show", "--json")...)
	require.NoError(t, err)
	var p types.ReportParameters
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	return p
}

func fillBlueprint(t *testing.T) {
	t.Helper()
	_, _, err := run(t, "set",
		"--name", "Davao Cold Chain",
		"--user", "Ana",
		"--tier", "Policy Brief",
		"--region", "Davao City, Philippines",
		"--partner", "Cold chain operator with regional reach",
		"--objective", "Reduce post-harvest losses across the supply chain",
	)
	require.NoError(t, err)
}

func TestEditsSurviveBetweenInvocations(t *testing.T) {
	setupEnv(t)
	fillBlueprint(t)

	p := show(t)
	assert.Equal(t, "Davao City, Philippines", p.Region)
	assert.Equal(t, []types.TierID{"Policy Brief"}, p.Tier)

	assert.Empty(t, show(t, "--fresh").Region)
	assert.Equal(t, "Davao City, Philippines", show(t).Region, "--fresh does not discard the autosave")
}

func TestSetRejectsUnknownIDs(t *testing.T) {
	setupEnv(t)
	_, _, err := run(t, "set", "--tier", "Moon Base")
	assert.True(t, types.IsConfiguration(err))

	_, _, err = run(t, "toggle", "region", "x")
	assert.True(t, types.IsConfiguration(err))
}

func TestReportClearsAutosave(t *testing.T) {
	setupEnv(t)
	_, _, err := run(t, "report", "--raw")
	require.Error(t, err)
	assert.Contains(t, renderError(err), "incomplete")

	fillBlueprint(t)
	out, _, err := run(t, "report", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "# Offline Report")
	assert.True(t, show(t).IsDefault(), "a successful submission clears the autosave")
}

func TestLetterToFile(t *testing.T) {
	setupEnv(t)
	fillBlueprint(t)
	path := filepath.Join(t.TempDir(), "letter.md")
	_, stderr, err := run(t, "letter", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+path)
	assert.FileExists(t, path)
}

func TestSavedBlueprints(t *testing.T) {
	setupEnv(t)
	fillBlueprint(t)

	_, stderr, err := run(t, "saved", "save")
	require.NoError(t, err)
	assert.Contains(t, stderr, `Blueprint "Davao Cold Chain" saved.`)

	_, _, err = run(t, "reset")
	require.NoError(t, err)
	assert.True(t, show(t).IsDefault())

	out, _, err := run(t, "saved", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Davao Cold Chain")

	_, _, err = run(t, "saved", "load", "Davao Cold Chain")
	require.NoError(t, err)
	assert.Equal(t, "Davao City, Philippines", show(t).Region)

	_, _, err = run(t, "saved", "delete", "Davao Cold Chain")
	require.NoError(t, err)
	out, _, err = run(t, "saved", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBrain(t *testing.T) {
	setupEnv(t)
	_, _, err := run(t, "brain")
	assert.True(t, types.IsConfiguration(err), "region is required")

	fillBlueprint(t)
	out, stderr, err := run(t, "brain", "--simulate", "cold storage network", "--architect", "--json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Calling model: diagnose")
	assert.Contains(t, stderr, "Calling model: architect")
	var res map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, res, "diagnosis")
	assert.Contains(t, res, "simulation")
	assert.Contains(t, res, "blueprint")

	out, _, err = run(t, "brain")
	require.NoError(t, err)
	assert.Contains(t, out, "Regional resilience index")
}

func TestInquireApply(t *testing.T) {
	setupEnv(t)
	_, _, err := run(t, "inquire", "AgriTech", "partners", "for", "Davao", "--apply")
	require.NoError(t, err)
	assert.Equal(t, "Davao City, Philippines", show(t).Region)
}

func TestRefineAndCaps(t *testing.T) {
	setupEnv(t)
	fillBlueprint(t)
	out, _, err := run(t, "refine")
	require.NoError(t, err)
	assert.Contains(t, out, "fake refined objective")
	assert.Equal(t, "fake refined objective", show(t).ProblemStatement)

	out, _, err = run(t, "caps")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestChatAnswersEachLine(t *testing.T) {
	setupEnv(t)
	fillBlueprint(t)

	var out, errOut bytes.Buffer
	c := newCLI()
	c.root.SetOut(&out)
	c.root.SetErr(&errOut)
	c.root.SetIn(strings.NewReader("Who operates cold storage there?\n\nAnything new this year?\n"))
	err := c.execute(context.Background(), "chat", "Cold", "chain", "gaps", "--finding", "Capacity is short.", "--raw")
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "You've selected the topic: **Cold chain gaps**")
	assert.Equal(t, 2, strings.Count(got, "fake follow-up answer"))
	assert.Contains(t, errOut.String(), "Calling model: chat")
}

func TestRenderErrorOffersRetry(t *testing.T) {
	const hint = "the same command can be run again"
	assert.Contains(t, renderError(&llmclient.NetworkError{Op: "dial", Err: errors.New("connection refused")}), hint)
	assert.Contains(t, renderError(&llmclient.ServiceError{Status: 503, Message: "overloaded"}), hint)
	assert.Contains(t, renderError(&llmclient.ParseError{Err: errors.New("bad json")}), hint)
	assert.NotContains(t, renderError(types.NewConfigurationError("region", "is required")), hint)
	assert.NotContains(t, renderError(errors.New("boom")), hint)
}
