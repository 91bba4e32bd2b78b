package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/db"
	"github.com/huddlehq/huddle/pkg/event"
	"github.com/huddlehq/huddle/pkg/llm"
	"github.com/huddlehq/huddle/pkg/queue"
	"github.com/huddlehq/huddle/pkg/utils"
)

// Queue lanes. Chat turns get their own lane so bulk work (chunking,
// insight extraction) cannot starve them.
const (
	LaneChat = "llm"
	LaneBulk = "bulk"
)

// DefaultRetryAttempts bounds queue-level retries of a transiently failed
// chat turn.
const DefaultRetryAttempts = 3

// ChatService owns chat CRUD and the synchronous half of a turn: the user
// message is persisted immediately, the assistant's response is produced
// by the Responder on a background lane.
type ChatService struct {
	db        *gorm.DB
	store     *MessageStore
	queue     *queue.Queue
	responder *Responder
	emitter   *event.Emitter
	attempts  int
	logger    *slog.Logger
}

func NewChatService(gdb *gorm.DB, q *queue.Queue, responder *Responder, emitter *event.Emitter, retryAttempts int) *ChatService {
	if retryAttempts <= 0 {
		retryAttempts = DefaultRetryAttempts
	}
	return &ChatService{
		db:        gdb,
		store:     NewMessageStore(gdb),
		queue:     q,
		responder: responder,
		emitter:   emitter,
		attempts:  retryAttempts,
		logger:    utils.GetLogger(),
	}
}

// CreateChat creates a chat, optionally scoped to a meeting.
func (s *ChatService) CreateChat(meetingID *string, title string) (*db.Chat, error) {
	if meetingID != nil && *meetingID != "" {
		var meeting db.Meeting
		if err := s.db.First(&meeting, "id = ?", *meetingID).Error; err != nil {
			return nil, fmt.Errorf("meeting %s not found: %w", *meetingID, err)
		}
	} else {
		meetingID = nil
	}
	if title == "" {
		title = "New Chat"
	}

	chat := db.Chat{
		ID:        uuid.New().String(),
		MeetingID: meetingID,
		Title:     title,
	}
	if err := s.db.Create(&chat).Error; err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return &chat, nil
}

// GetChat loads one chat.
func (s *ChatService) GetChat(id string) (*db.Chat, error) {
	var chat db.Chat
	if err := s.db.First(&chat, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("chat %s not found: %w", id, err)
	}
	return &chat, nil
}

// ListChats returns all chats, newest first.
func (s *ChatService) ListChats() ([]db.Chat, error) {
	var chats []db.Chat
	if err := s.db.Order("updated_at DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// ListMessages returns a chat's user-visible messages in order. System and
// tool messages stay internal.
func (s *ChatService) ListMessages(chatID string) ([]db.Message, error) {
	history, err := s.store.History(chatID)
	if err != nil {
		return nil, err
	}
	visible := make([]db.Message, 0, len(history))
	for _, msg := range history {
		if msg.Visible() {
			visible = append(visible, msg)
		}
	}
	return visible, nil
}

// DeleteChat removes a chat and its messages.
func (s *ChatService) DeleteChat(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&db.Message{}).Error; err != nil {
			return fmt.Errorf("delete chat messages: %w", err)
		}
		if err := tx.Delete(&db.Chat{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete chat: %w", err)
		}
		return nil
	})
}

// SendMessage persists the user message synchronously, so the caller can
// render it immediately, and enqueues the background turn that produces
// the assistant response. Transient provider errors retry with backoff.
func (s *ChatService) SendMessage(chatID, content string) (*db.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message content must not be empty")
	}

	chat, err := s.GetChat(chatID)
	if err != nil {
		return nil, err
	}

	msg := db.Message{
		ID:      uuid.New().String(),
		ChatID:  chat.ID,
		Role:    db.RoleUser,
		Content: content,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("create user message: %w", err)
	}
	s.db.Model(chat).Update("updated_at", time.Now())

	s.emitter.Emit(event.MessageCreatedEvent{ChatID: chat.ID, MessageID: msg.ID, Role: msg.Role})
	s.emitter.Emit(event.MessageFinalizedEvent{ChatID: chat.ID, MessageID: msg.ID, Content: msg.Content})

	s.queue.EnqueueWithRetry(LaneChat, "chat response "+chat.ID, queue.RetryPolicy{
		MaxAttempts: s.attempts,
		Backoff:     2 * time.Second,
		Retryable:   llm.IsTransient,
	}, func(ctx context.Context) error {
		return s.responder.Respond(ctx, chat.ID)
	})

	return &msg, nil
}
