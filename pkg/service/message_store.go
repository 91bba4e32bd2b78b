package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/db"
)

// MessageStore is the persistence layer for chat messages. It backs both
// the responder's reads and the engine's writes during a streaming turn.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(gdb *gorm.DB) *MessageStore {
	return &MessageStore{db: gdb}
}

// CreateMessage inserts an empty message and returns its id.
func (s *MessageStore) CreateMessage(chatID, role string) (string, error) {
	msg := db.Message{
		ID:     uuid.New().String(),
		ChatID: chatID,
		Role:   role,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return "", fmt.Errorf("create %s message: %w", role, err)
	}
	return msg.ID, nil
}

// SetMessageContent overwrites a message's content.
func (s *MessageStore) SetMessageContent(id, content string) error {
	err := s.db.Model(&db.Message{}).Where("id = ?", id).Update("content", content).Error
	if err != nil {
		return fmt.Errorf("set message content: %w", err)
	}
	return nil
}

// GetMessage reads one message by id.
func (s *MessageStore) GetMessage(id string) (*db.Message, error) {
	var msg db.Message
	if err := s.db.First(&msg, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return &msg, nil
}

// History returns a chat's messages in creation order.
func (s *MessageStore) History(chatID string) ([]db.Message, error) {
	var msgs []db.Message
	err := s.db.Where("chat_id = ?", chatID).Order("created_at, id").Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return msgs, nil
}

// DeleteBlankAssistantMessages removes assistant messages with empty
// content. Empty assistant messages are created before the provider
// responds; if a call fails they stay behind and make some providers
// reject every subsequent request for the chat.
func (s *MessageStore) DeleteBlankAssistantMessages(chatID string) (int64, error) {
	res := s.db.Where("chat_id = ? AND role = ? AND (content = '' OR content IS NULL)",
		chatID, db.RoleAssistant).Delete(&db.Message{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete blank assistant messages: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// LastAssistantMessage returns the most recent assistant message, or nil
// when the chat has none.
func (s *MessageStore) LastAssistantMessage(chatID string) (*db.Message, error) {
	var msg db.Message
	err := s.db.Where("chat_id = ? AND role = ?", chatID, db.RoleAssistant).
		Order("created_at DESC, id DESC").First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last assistant message: %w", err)
	}
	return &msg, nil
}

// LastEmptyAssistantMessage returns the most recent assistant message with
// empty content, or nil.
func (s *MessageStore) LastEmptyAssistantMessage(chatID string) (*db.Message, error) {
	var msg db.Message
	err := s.db.Where("chat_id = ? AND role = ? AND (content = '' OR content IS NULL)",
		chatID, db.RoleAssistant).
		Order("created_at DESC, id DESC").First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load empty assistant message: %w", err)
	}
	return &msg, nil
}

// LastUserMessage returns the most recent user message, or nil.
func (s *MessageStore) LastUserMessage(chatID string) (*db.Message, error) {
	var msg db.Message
	err := s.db.Where("chat_id = ? AND role = ?", chatID, db.RoleUser).
		Order("created_at DESC, id DESC").First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last user message: %w", err)
	}
	return &msg, nil
}
