// Database models for chats and messages
package db

import "time"

// Chat is one conversation. A chat optionally references a meeting: with
// a meeting the assistant answers from retrieved transcript context, without
// one it acts as a cross-meeting tool agent.
type Chat struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	MeetingID *string   `json:"meeting_id,omitempty" gorm:"index;size:36"`
	Title     string    `json:"title" gorm:"size:200;default:'New Chat'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Chat) TableName() string {
	return "chats"
}

// Message is one entry in a chat's conversation. Content is mutable: it
// grows while the assistant streams and is overwritten on failure.
//
// An assistant message with empty content is a transient in-progress
// marker. If one survives past the end of a turn it is poisoned and must
// be deleted before the next turn, because some providers reject
// conversations containing empty assistant content.
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	ChatID    string    `json:"chat_id" gorm:"index;size:36;not null"`
	Role      string    `json:"role" gorm:"size:20;not null"` // user, assistant, system, tool
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Visible reports whether this message may be shown to the user.
// System and tool messages are internal and never published.
func (m *Message) Visible() bool {
	return m.Role != RoleSystem && m.Role != RoleTool
}
