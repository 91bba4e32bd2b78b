// Package tools provides the capabilities the meeting assistant may invoke
// during a turn: meeting lookup, transcript search, action item management,
// contacts and follow-up email.
package tools

import (
	"log/slog"

	"github.com/cloudwego/eino/components/tool"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/utils"
)

// Registry holds the full tool set with its dependencies injected. The
// responder passes Tools() to the completion engine on every turn without
// per-turn filtering.
type Registry struct {
	db     *gorm.DB
	mailer Mailer
	logger *slog.Logger
}

// NewRegistry creates a registry over the given database and mailer.
func NewRegistry(gdb *gorm.DB, mailer Mailer) *Registry {
	if mailer == nil {
		mailer = NewLogMailer()
	}
	return &Registry{
		db:     gdb,
		mailer: mailer,
		logger: utils.GetLogger(),
	}
}

// Tools returns every registered tool.
func (r *Registry) Tools() []tool.BaseTool {
	return []tool.BaseTool{
		r.newMeetingLookupTool(),
		r.newMeetingParticipantsTool(),
		r.newMeetingSummaryTool(),
		r.newTranscriptSearchTool(),
		r.newActionItemsTool(),
		r.newCreateActionItemTool(),
		r.newCompleteActionItemTool(),
		r.newContactLookupTool(),
		r.newManageContactTool(),
		r.newSendSummaryEmailTool(),
		r.newSendActionItemEmailTool(),
	}
}
