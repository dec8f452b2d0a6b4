// Package chat holds conversations and routes each user turn to the
// retrieval pipeline or the booking dialogue.
package chat

import (
	"sync"
	"time"

	"github.com/clinicdesk/booking-agent/booking"
	"github.com/clinicdesk/booking-agent/llm"
)

type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one user's dialogue. Its mutex serializes turns so a
// client that double-sends cannot interleave extraction and confirmation.
type Conversation struct {
	ID string

	mu       sync.Mutex
	Messages []Message
	Phase    booking.Phase
	Draft    *booking.Draft
}

// UIHints carries machine-readable turn metadata alongside the reply.
type UIHints struct {
	Phase          string   `json:"phase"`
	MissingFields  []string `json:"missing_fields,omitempty"`
	BookingID      int64    `json:"booking_id,omitempty"`
	SourceChunkIDs []string `json:"source_chunk_ids,omitempty"`
	Warning        string   `json:"warning,omitempty"`
}

// Response is what one turn returns to the caller.
type Response struct {
	ConversationID string  `json:"conversation_id"`
	Reply          string  `json:"reply"`
	Hints          UIHints `json:"hints"`
}

func (c *Conversation) append(role, text string) {
	c.Messages = append(c.Messages, Message{Role: role, Text: text, Timestamp: time.Now()})
}

// historyWindow converts the most recent messages to completion-service
// turns, bounded so long conversations keep prompts small.
func (c *Conversation) historyWindow(limit int) []llm.Message {
	msgs := c.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llm.Message{Role: m.Role, Content: m.Text})
	}
	return out
}

func missingFieldNames(draft *booking.Draft) []string {
	if draft == nil {
		return nil
	}
	missing := draft.Missing()
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(missing))
	for _, f := range missing {
		names = append(names, string(f))
	}
	return names
}
