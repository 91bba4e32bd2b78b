package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/db"
	"github.com/huddlehq/huddle/pkg/event"
	"github.com/huddlehq/huddle/pkg/llm"
	"github.com/huddlehq/huddle/pkg/transcript"
	"github.com/huddlehq/huddle/pkg/utils"
)

// ApologyMessage overwrites a broken assistant message so the UI reaches a
// terminal state instead of hanging on the thinking indicator.
const ApologyMessage = "I'm sorry, something went wrong while generating a response. Please try again."

// DefaultPublishInterval is the minimum spacing between content updates
// for one message.
const DefaultPublishInterval = 50 * time.Millisecond

// ResponderConfig carries the tunables of a Responder.
type ResponderConfig struct {
	PublishInterval time.Duration
	MaxToolRounds   int
	RetrievalLimit  int
	Prompts         Prompts
}

// Responder runs one chat turn end to end: cleans poisoned state, builds
// the system prompt (with RAG context for meeting chats), drives the
// completion engine, publishes streaming events with a bounded publish
// rate, and recovers from failures without leaving the chat corrupted.
type Responder struct {
	db      *gorm.DB
	store   *MessageStore
	engine  llm.Engine
	tools   []tool.BaseTool
	emitter *event.Emitter
	cfg     ResponderConfig
	logger  *slog.Logger

	// One turn at a time per chat. Concurrent turns would interleave
	// published events and fight over the system message.
	chatLocks sync.Map // chat id -> *sync.Mutex
}

func NewResponder(gdb *gorm.DB, engine llm.Engine, toolset []tool.BaseTool, emitter *event.Emitter, cfg ResponderConfig) *Responder {
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = DefaultPublishInterval
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = llm.DefaultMaxRounds
	}
	if cfg.RetrievalLimit <= 0 {
		cfg.RetrievalLimit = transcript.DefaultRetrievalLimit
	}
	if cfg.Prompts.Assistant == "" {
		cfg.Prompts = DefaultPrompts()
	}
	return &Responder{
		db:      gdb,
		store:   NewMessageStore(gdb),
		engine:  engine,
		tools:   toolset,
		emitter: emitter,
		cfg:     cfg,
		logger:  utils.GetLogger(),
	}
}

// turnState tracks one invocation's streaming progress. Owned by a single
// turn, never shared across calls.
type turnState struct {
	chatID             string
	currentID          string
	currentRole        string
	accumulated        string
	lastPublish        time.Time
	placeholderRemoved bool
	sawAssistant       bool
}

// Respond processes one turn for the chat whose latest user message is
// already persisted. It returns an error only for transient provider
// failures, so the queue can retry the whole turn; every other failure is
// resolved into a terminal user-visible state here.
func (r *Responder) Respond(ctx context.Context, chatID string) error {
	lock := r.lockFor(chatID)
	lock.Lock()
	defer lock.Unlock()

	st := &turnState{chatID: chatID}

	err := r.respond(ctx, chatID, st)
	if err == nil {
		return nil
	}

	r.logger.Error("chat turn failed", "chat_id", chatID, "error", err)
	r.recover(st, err)

	if llm.IsTransient(err) {
		return err
	}
	return nil
}

func (r *Responder) respond(ctx context.Context, chatID string, st *turnState) error {
	var chat db.Chat
	if err := r.db.WithContext(ctx).First(&chat, "id = ?", chatID).Error; err != nil {
		return fmt.Errorf("load chat %s: %w", chatID, err)
	}

	// Setup: clear poisoning from any previous failed turn
	if n, err := r.store.DeleteBlankAssistantMessages(chatID); err != nil {
		return err
	} else if n > 0 {
		r.logger.Info("removed poisoned assistant messages", "chat_id", chatID, "count", n)
	}

	instructions, err := r.buildInstructions(ctx, &chat)
	if err != nil {
		return err
	}

	conversation, err := r.buildConversation(chatID)
	if err != nil {
		return err
	}

	events, err := r.engine.Respond(ctx, llm.Request{
		ChatID:       chatID,
		Instructions: instructions,
		Conversation: conversation,
		Tools:        r.tools,
		MaxRounds:    r.cfg.MaxToolRounds,
	})
	if err != nil {
		return err
	}

	return r.consume(events, st)
}

// consume drives the streaming phase of the state machine.
func (r *Responder) consume(events <-chan llm.RoundEvent, st *turnState) error {
	for ev := range events {
		switch ev := ev.(type) {
		case llm.NewMessage:
			// Finalize the previous visible message before tracking the
			// next one; two messages are never mid-stream at once
			if st.currentID != "" && st.currentRole == db.RoleAssistant {
				r.finalize(st)
			}
			st.currentID = ev.MessageID
			st.currentRole = ev.Role
			st.accumulated = ""
			st.lastPublish = time.Time{}

			if ev.Role == db.RoleAssistant {
				st.sawAssistant = true
				r.removePlaceholderOnce(st)
				r.publish(st, event.MessageCreatedEvent{
					ChatID:    st.chatID,
					MessageID: ev.MessageID,
					Role:      ev.Role,
				})
			}

		case llm.ContentChunk:
			if st.currentRole != db.RoleAssistant {
				continue
			}
			st.accumulated += ev.Text
			if time.Since(st.lastPublish) >= r.cfg.PublishInterval {
				r.publishContent(st)
			}

		case llm.RoundComplete:
			// Round boundaries carry no publishing obligations of their own

		case llm.TurnError:
			return ev.Err
		}
	}

	// End of stream: close out whatever is still open
	if st.currentID != "" && st.currentRole == db.RoleAssistant {
		r.finalize(st)
		return nil
	}

	if !st.sawAssistant {
		// Pure tool-call turn with no trailing text: surface the last
		// assistant message on record so the UI is not left hanging
		r.removePlaceholderOnce(st)
		last, err := r.store.LastAssistantMessage(st.chatID)
		if err != nil {
			return err
		}
		if last != nil {
			st.currentID = last.ID
			st.currentRole = db.RoleAssistant
			st.accumulated = last.Content
			r.publish(st, event.MessageCreatedEvent{ChatID: st.chatID, MessageID: last.ID, Role: last.Role})
			r.finalize(st)
		}
		return nil
	}

	// The last tracked message was a tool message; the assistant message
	// before it was already finalized on transition
	r.removePlaceholderOnce(st)
	return nil
}

// finalize flushes pending content unconditionally, re-reads the persisted
// final content and publishes the terminal event for the current message.
func (r *Responder) finalize(st *turnState) {
	if st.currentID == "" {
		return
	}

	// Final flush is never throttled; the last partial state must not be
	// lost to the publish-rate policy
	r.publishContent(st)

	content := st.accumulated
	if msg, err := r.store.GetMessage(st.currentID); err == nil {
		content = msg.Content
	} else {
		r.logger.Warn("finalize could not re-read message", "chat_id", st.chatID,
			"message_id", st.currentID, "error", err)
	}

	r.publish(st, event.MessageFinalizedEvent{
		ChatID:    st.chatID,
		MessageID: st.currentID,
		Content:   content,
	})
	st.currentID = ""
	st.currentRole = ""
	st.accumulated = ""
}

func (r *Responder) publishContent(st *turnState) {
	if st.currentID == "" {
		return
	}
	r.publish(st, event.MessageContentEvent{
		ChatID:    st.chatID,
		MessageID: st.currentID,
		Content:   st.accumulated,
	})
	st.lastPublish = time.Now()
}

func (r *Responder) removePlaceholderOnce(st *turnState) {
	if st.placeholderRemoved {
		return
	}
	st.placeholderRemoved = true
	r.publish(st, event.PlaceholderRemovedEvent{ChatID: st.chatID})
}

// publish emits an event, swallowing panics from listeners. A failure to
// publish must never crash a turn, including during failure recovery.
func (r *Responder) publish(st *turnState, ev event.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("broadcast failed", "chat_id", st.chatID,
				"event", ev.EventName(), "panic", rec)
		}
	}()
	r.emitter.Emit(ev)
}

// recover implements the failure phase: identify the broken message,
// overwrite it with the apology and publish a terminal state. Errors here
// are logged and swallowed so a failure to report a failure cannot crash
// the worker.
func (r *Responder) recover(st *turnState, cause error) {
	r.logger.Warn("entering failure recovery", "chat_id", st.chatID, "cause", cause)

	messageID := ""
	if st.currentRole == db.RoleAssistant {
		messageID = st.currentID
	}
	if messageID == "" {
		// Failure before the engine produced any event: repair the most
		// recent empty assistant message if one exists
		if msg, err := r.store.LastEmptyAssistantMessage(st.chatID); err != nil {
			r.logger.Error("failure recovery lookup failed", "chat_id", st.chatID, "error", err)
		} else if msg != nil {
			messageID = msg.ID
		}
	}

	r.removePlaceholderOnce(st)

	if messageID == "" {
		// No message to repair; append a standalone error notice
		r.publish(st, event.ErrorEvent{ChatID: st.chatID, Message: ApologyMessage})
		return
	}

	if err := r.store.SetMessageContent(messageID, ApologyMessage); err != nil {
		r.logger.Error("failed to write apology message", "chat_id", st.chatID,
			"message_id", messageID, "error", err)
	}
	r.publish(st, event.MessageCreatedEvent{ChatID: st.chatID, MessageID: messageID, Role: db.RoleAssistant})
	r.publish(st, event.MessageFinalizedEvent{ChatID: st.chatID, MessageID: messageID, Content: ApologyMessage})
}

// buildInstructions chooses the prompt for this turn: meeting-scoped RAG
// when the chat references a meeting, cross-meeting tool agent otherwise.
func (r *Responder) buildInstructions(ctx context.Context, chat *db.Chat) (string, error) {
	now := time.Now()
	if chat.MeetingID == nil || *chat.MeetingID == "" {
		return r.cfg.Prompts.RenderAssistant(now), nil
	}

	var meeting db.Meeting
	if err := r.db.WithContext(ctx).First(&meeting, "id = ?", *chat.MeetingID).Error; err != nil {
		return "", fmt.Errorf("load meeting %s: %w", *chat.MeetingID, err)
	}

	section := transcriptUnavailableNote
	var tr db.Transcript
	err := r.db.WithContext(ctx).First(&tr, "meeting_id = ?", meeting.ID).Error
	if err == nil && tr.Completed() {
		var chunks []db.TranscriptChunk
		if err := r.db.WithContext(ctx).Where("transcript_id = ?", tr.ID).
			Order("position").Find(&chunks).Error; err != nil {
			return "", fmt.Errorf("load transcript chunks: %w", err)
		}
		query := ""
		if last, err := r.store.LastUserMessage(chat.ID); err == nil && last != nil {
			query = last.Content
		}
		if len(chunks) > 0 {
			section = buildTranscriptSection(chunks, query, r.cfg.RetrievalLimit)
		}
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("load transcript: %w", err)
	}

	return r.cfg.Prompts.RenderMeeting(&meeting, section, now), nil
}

// buildConversation converts the chat's visible history to engine
// messages. System messages are excluded; the turn's instructions replace
// them. Empty assistant messages never reach the provider.
func (r *Responder) buildConversation(chatID string) ([]*schema.Message, error) {
	history, err := r.store.History(chatID)
	if err != nil {
		return nil, err
	}

	out := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case db.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case db.RoleAssistant:
			if msg.Content != "" {
				out = append(out, schema.AssistantMessage(msg.Content, nil))
			}
		}
	}
	return out, nil
}

func (r *Responder) lockFor(chatID string) *sync.Mutex {
	v, _ := r.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
