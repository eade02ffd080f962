package types

import "fmt"

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

type ChatMessage struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// ChatContext anchors a follow-up conversation to one finding of a
// generated document.
type ChatContext struct {
	Topic            string            `json:"topic"`
	OriginalContent  string            `json:"originalContent"`
	ReportParameters *ReportParameters `json:"reportParameters,omitempty"`
}

// ValidateChat requires a topic and a history that ends with an operator
// message still waiting for a reply.
func ValidateChat(c ChatContext, history []ChatMessage) error {
	var fe fieldErrors
	fe.require(!blank(c.Topic), "topic", "is required")
	if len(history) == 0 {
		fe.require(false, "history", "is empty")
		return fe.err()
	}
	for i, m := range history {
		fe.require(m.Sender == SenderUser || m.Sender == SenderAI, fmt.Sprintf("history[%d].sender", i), fmt.Sprintf("unknown sender %q", m.Sender))
	}
	last := history[len(history)-1]
	fe.require(last.Sender == SenderUser && !blank(last.Text), "history", "must end with a question")
	return fe.err()
}
