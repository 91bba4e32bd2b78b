package event

// ============================================================================
// Event Names (constants)
// ============================================================================

const (
	ChatMessageCreated   = "chat.message.created"
	ChatMessageContent   = "chat.message.content"
	ChatMessageFinalized = "chat.message.finalized"
	ChatPlaceholderGone  = "chat.placeholder.removed"
	ChatError            = "chat.error"

	TranscriptChunksRebuilt = "transcript.chunks.rebuilt"
	MeetingSummaryReady     = "meeting.summary.ready"
	MeetingActionItemsReady = "meeting.actionItems.ready"
)

// ============================================================================
// Chat streaming events
//
// For every visible message the published sequence is exactly:
// one created, zero or more content replacements, one finalized.
// ============================================================================

// MessageCreatedEvent appends a new message container to the visible list.
type MessageCreatedEvent struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
}

func (e MessageCreatedEvent) EventName() string { return ChatMessageCreated }
func (e MessageCreatedEvent) ChatScope() string { return e.ChatID }

// MessageContentEvent replaces the named message's content with the full
// accumulated text. Full replacement, never an append, so a client that
// misses an update still converges on the next one.
type MessageContentEvent struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

func (e MessageContentEvent) EventName() string { return ChatMessageContent }
func (e MessageContentEvent) ChatScope() string { return e.ChatID }

// MessageFinalizedEvent replaces the whole message element with its
// canonical rendering once streaming for that message is over.
type MessageFinalizedEvent struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

func (e MessageFinalizedEvent) EventName() string { return ChatMessageFinalized }
func (e MessageFinalizedEvent) ChatScope() string { return e.ChatID }

// PlaceholderRemovedEvent removes the turn's "thinking" indicator.
// Published exactly once per turn.
type PlaceholderRemovedEvent struct {
	ChatID string `json:"chat_id"`
}

func (e PlaceholderRemovedEvent) EventName() string { return ChatPlaceholderGone }
func (e PlaceholderRemovedEvent) ChatScope() string { return e.ChatID }

// ErrorEvent is a standalone failure notice appended to the message list
// when a turn fails before any assistant message existed.
type ErrorEvent struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

func (e ErrorEvent) EventName() string { return ChatError }
func (e ErrorEvent) ChatScope() string { return e.ChatID }

// ============================================================================
// Transcript / meeting events
// ============================================================================

// ChunksRebuiltEvent is emitted after a transcript's chunks were regenerated.
type ChunksRebuiltEvent struct {
	TranscriptID string `json:"transcript_id"`
	Count        int    `json:"count"`
}

func (e ChunksRebuiltEvent) EventName() string { return TranscriptChunksRebuilt }

// SummaryReadyEvent is emitted when a meeting summary was generated.
type SummaryReadyEvent struct {
	MeetingID string `json:"meeting_id"`
}

func (e SummaryReadyEvent) EventName() string { return MeetingSummaryReady }

// ActionItemsReadyEvent is emitted when action item extraction finished.
type ActionItemsReadyEvent struct {
	MeetingID string `json:"meeting_id"`
	Count     int    `json:"count"`
}

func (e ActionItemsReadyEvent) EventName() string { return MeetingActionItemsReady }
