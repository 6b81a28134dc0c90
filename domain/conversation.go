package domain

import (
	"time"
)

// Message roles as sent to the completion collaborator.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role/content pair in a model request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// historyWindow is how many trailing messages are carried into each model
// request. Older messages stay in the in-memory log but are simply dropped
// from future requests; there is no summarization.
const historyWindow = 10

// Conversation is an explicitly owned, append-only session log. The caller
// creates it, passes it into each orchestrator call and controls its
// lifetime. It deliberately carries no lock: concurrent chat requests
// interleaving on a shared conversation can reorder the log, which is an
// accepted limitation of the request-per-call model.
type Conversation struct {
	turns           []Message
	lastInteraction time.Time
}

// NewConversation returns an empty session log.
func NewConversation() *Conversation {
	return &Conversation{turns: []Message{}}
}

// Append records a turn at the end of the log.
func (c *Conversation) Append(role, content string) {
	c.turns = append(c.turns, Message{Role: role, Content: content})
	c.lastInteraction = time.Now()
}

// Window returns the trailing messages carried into the next model request.
func (c *Conversation) Window() []Message {
	if len(c.turns) <= historyWindow {
		return append([]Message{}, c.turns...)
	}
	return append([]Message{}, c.turns[len(c.turns)-historyWindow:]...)
}

// Len reports the full log length, not the window size.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Clear empties the log.
func (c *Conversation) Clear() {
	c.turns = []Message{}
}

// ConversationSummary describes the state of a session log.
type ConversationSummary struct {
	MessageCount       int    `json:"message_count"`
	ConversationLength int    `json:"conversation_length"`
	LastInteraction    string `json:"last_interaction,omitempty"`
}

// Summary reports message count, total content length and the time of the
// last interaction.
func (c *Conversation) Summary() ConversationSummary {
	total := 0
	for _, t := range c.turns {
		total += len(t.Content)
	}
	s := ConversationSummary{
		MessageCount:       len(c.turns),
		ConversationLength: total,
	}
	if !c.lastInteraction.IsZero() && len(c.turns) > 0 {
		s.LastInteraction = c.lastInteraction.Format(time.RFC3339)
	}
	return s
}
