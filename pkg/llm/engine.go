// Package llm wraps the eino model abstraction behind a round-event stream
// the chat responder can consume without knowing about providers, tool
// plumbing or streaming details.
package llm

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// RoundEvent is one item in the stream an Engine emits while answering.
// The sequence for a turn is: for each message, one NewMessage followed by
// zero or more ContentChunk, then RoundComplete after each model round.
// TurnError, when present, is the final event.
type RoundEvent interface {
	isRoundEvent()
}

// NewMessage announces that the engine persisted a new message and will
// stream into it. Role is "assistant" or "tool".
type NewMessage struct {
	MessageID string
	Role      string
}

// ContentChunk carries an increment of the current message's text.
type ContentChunk struct {
	Text string
}

// RoundComplete marks the end of one model invocation.
// ToolCalls reports how many tool invocations the round requested; zero
// means the round ended in plain text and the turn is over.
type RoundComplete struct {
	FinishReason string
	ToolCalls    int
}

// TurnError reports a failure. It is always the last event on the stream.
type TurnError struct {
	Err error
}

func (NewMessage) isRoundEvent()    {}
func (ContentChunk) isRoundEvent()  {}
func (RoundComplete) isRoundEvent() {}
func (TurnError) isRoundEvent()     {}

// Request describes one turn handed to the engine. The conversation must
// already contain the user's latest message; Instructions become the
// system message for this turn.
type Request struct {
	ChatID       string
	Instructions string
	Conversation []*schema.Message
	Tools        []tool.BaseTool
	MaxRounds    int
}

// Engine drives the language model for one turn and streams round events.
// The returned channel is closed when the turn is over; errors surface as
// a TurnError event, not as a second return value, so callers consume one
// stream for both outcomes. The setup error return covers failures before
// streaming could start at all.
type Engine interface {
	Respond(ctx context.Context, req Request) (<-chan RoundEvent, error)
}

// MessageStore persists the messages the engine creates during a turn.
// The responder observes final content through the same store.
type MessageStore interface {
	// CreateMessage inserts an empty message and returns its id.
	CreateMessage(chatID, role string) (string, error)
	// SetMessageContent overwrites a message's content.
	SetMessageContent(id, content string) error
}
