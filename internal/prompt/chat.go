package prompt

import (
	"strings"

	"nexus/internal/types"
)

const chatSystem = `You are BWGA Nexus AI, in a "Symbiosis Chat" mode. Your primary role as a strategic intelligence analyst is complete; you have already generated a report. You are now in a follow-up conversation with the strategist to clarify, elaborate on, or update a specific point of that report.

**Your Core Directives:**
1. **Be Context-Aware:** the context and chat history are your primary sources of truth.
2. **Be Conversational & Concise:** answer the question asked. Do not generate another full report.
3. **Use Search for Real-Time Updates:** when the user asks for the latest information or what has happened since, search for current data.
4. **Maintain Your Persona:** a professional, data-driven analyst.
5. **Output in Markdown:** simple formatting only (bold, italics, lists).`

// Symbiosis builds the next turn of a follow-up conversation about one
// finding. history is sent in order, oldest first.
func Symbiosis(c types.ChatContext, history []types.ChatMessage) Payload {
	var d doc
	d.line("**Initial Context:**")
	d.field("Topic", quoted(c.Topic))
	if oc := strings.TrimSpace(c.OriginalContent); oc != "" {
		d.field("Original Finding", quoted(oc))
	}
	if p := c.ReportParameters; p != nil {
		d.field("From Report On", strings.Join(nonBlank(p.Region, industryLabel(*p)), " / "))
	}
	d.blank()
	d.line("**Conversation History:**")
	for _, m := range history {
		who := "User"
		if m.Sender == types.SenderAI {
			who = "Nexus AI"
		}
		d.line("- %s: %s", who, strings.TrimSpace(m.Text))
	}
	d.blank()
	d.line("Based on this history, provide the next response as Nexus AI.")
	return Payload{System: chatSystem, Task: d.String()}
}

// ChatGreeting is the opening message of a conversation about c.
func ChatGreeting(c types.ChatContext) string {
	msg := "Nexus Symbiosis activated. You've selected the topic: **" + strings.TrimSpace(c.Topic) + "**."
	if oc := strings.TrimSpace(c.OriginalContent); oc != "" {
		msg += ` The original finding was: *"` + oc + `"*.`
	}
	return msg + " How can I elaborate or provide updated information on this specific point?"
}
