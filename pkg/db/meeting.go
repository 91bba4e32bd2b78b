// Database models for meetings and transcripts
package db

import "time"

// Meeting represents one recorded meeting owned by the upload pipeline.
type Meeting struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Title     string    `json:"title" gorm:"size:200;not null"`
	Status    string    `json:"status" gorm:"size:20;default:'uploading'"` // uploading, processing, ready, failed
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Meeting) TableName() string {
	return "meetings"
}

// Meeting status
const (
	MeetingStatusUploading  = "uploading"
	MeetingStatusProcessing = "processing"
	MeetingStatusReady      = "ready"
	MeetingStatusFailed     = "failed"
)

// Transcript belongs to a meeting. Segments are created once by the
// transcription import and never mutated afterwards.
type Transcript struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	MeetingID string    `json:"meeting_id" gorm:"uniqueIndex;size:36;not null"`
	Status    string    `json:"status" gorm:"size:20;default:'pending'"` // pending, processing, completed, failed
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Transcript) TableName() string {
	return "transcripts"
}

// Transcript status
const (
	TranscriptStatusPending    = "pending"
	TranscriptStatusProcessing = "processing"
	TranscriptStatusCompleted  = "completed"
	TranscriptStatusFailed     = "failed"
)

// Completed reports whether the transcript is ready for retrieval.
func (t *Transcript) Completed() bool {
	return t != nil && t.Status == TranscriptStatusCompleted
}

// TranscriptSegment is one utterance: speaker, text and time span,
// ordered by Position within its transcript.
type TranscriptSegment struct {
	ID           string   `json:"id" gorm:"primaryKey;size:36"`
	TranscriptID string   `json:"transcript_id" gorm:"index;size:36;not null"`
	Speaker      string   `json:"speaker" gorm:"size:100"`
	Content      string   `json:"content" gorm:"type:text;not null"`
	StartTime    *float64 `json:"start_time,omitempty"`
	EndTime      *float64 `json:"end_time,omitempty"`
	Position     int      `json:"position" gorm:"index;not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (TranscriptSegment) TableName() string {
	return "transcript_segments"
}

// TranscriptChunk is a derived, disposable span of formatted transcript
// text used as retrieval context. Chunks are deleted and recreated as a
// batch whenever chunking reruns; they are never patched in place.
// Embedding is an unused extension point for vector search.
type TranscriptChunk struct {
	ID           string   `json:"id" gorm:"primaryKey;size:36"`
	TranscriptID string   `json:"transcript_id" gorm:"index;size:36;not null"`
	Content      string   `json:"content" gorm:"type:text;not null"`
	StartTime    *float64 `json:"start_time,omitempty"`
	EndTime      *float64 `json:"end_time,omitempty"`
	Position     int      `json:"position" gorm:"index;not null"`
	Embedding    []byte   `json:"-" gorm:"type:blob"`

	CreatedAt time.Time `json:"created_at"`
}

func (TranscriptChunk) TableName() string {
	return "transcript_chunks"
}

// Summary is the AI-generated meeting summary.
type Summary struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	MeetingID string    `json:"meeting_id" gorm:"uniqueIndex;size:36;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	ModelUsed string    `json:"model_used" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
}

func (Summary) TableName() string {
	return "summaries"
}

// ActionItem is a task extracted from a meeting or created by the agent.
type ActionItem struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	MeetingID   string     `json:"meeting_id" gorm:"index;size:36;not null"`
	Description string     `json:"description" gorm:"type:text;not null"`
	Assignee    string     `json:"assignee,omitempty" gorm:"size:100"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `json:"status" gorm:"size:20;default:'open'"` // open, done
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (ActionItem) TableName() string {
	return "action_items"
}

// ActionItem status
const (
	ActionItemStatusOpen = "open"
	ActionItemStatusDone = "done"
)
