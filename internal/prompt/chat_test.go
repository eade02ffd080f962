package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nexus/internal/types"
)

func TestSymbiosisCarriesContextAndHistory(t *testing.T) {
	p := filled()
	c := types.ChatContext{Topic: "Cold chain gaps", OriginalContent: "Storage capacity is short by 40%.", ReportParameters: &p}
	got := Symbiosis(c, []types.ChatMessage{
		{Sender: types.SenderAI, Text: "How can I elaborate?"},
		{Sender: types.SenderUser, Text: "Who are the main operators?"},
	})

	assert.Contains(t, got.System, "Symbiosis Chat")
	assert.Contains(t, got.Task, `- **Topic:** "Cold chain gaps"`)
	assert.Contains(t, got.Task, `- **Original Finding:** "Storage capacity is short by 40%."`)
	assert.Contains(t, got.Task, "- **From Report On:** Davao City, Philippines / Agriculture & AgriTech")
	assert.Contains(t, got.Task, "- Nexus AI: How can I elaborate?\n- User: Who are the main operators?")
	assert.Contains(t, got.Task, "provide the next response as Nexus AI")
}

func TestSymbiosisWithoutReportOrFinding(t *testing.T) {
	got := Symbiosis(types.ChatContext{Topic: "Ports"}, []types.ChatMessage{{Sender: types.SenderUser, Text: "Latest news?"}})
	assert.NotContains(t, got.Task, "Original Finding")
	assert.NotContains(t, got.Task, "From Report On")
}

func TestChatGreeting(t *testing.T) {
	assert.Equal(t,
		`Nexus Symbiosis activated. You've selected the topic: **Ports**. The original finding was: *"Congested."*. How can I elaborate or provide updated information on this specific point?`,
		ChatGreeting(types.ChatContext{Topic: "Ports", OriginalContent: "Congested."}))
	assert.NotContains(t, ChatGreeting(types.ChatContext{Topic: "Ports"}), "original finding")
}
