package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/db"
	"github.com/huddlehq/huddle/pkg/transcript"
)

// ========== meeting_lookup ==========

type MeetingLookupInput struct {
	Query       string `json:"query,omitempty"`
	After       string `json:"after,omitempty"`
	Before      string `json:"before,omitempty"`
	Participant string `json:"participant,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

func (r *Registry) newMeetingLookupTool() tool.InvokableTool {
	gdb := r.db

	return utils.NewTool(&schema.ToolInfo{
		Name: "meeting_lookup",
		Desc: "Finds meetings by title, date range, or participant/speaker. Use this to identify which meetings to investigate further.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type: schema.String,
				Desc: "Search term for meeting titles",
			},
			"after": {
				Type: schema.String,
				Desc: "ISO date, only meetings after this date (e.g. '2026-01-15')",
			},
			"before": {
				Type: schema.String,
				Desc: "ISO date, only meetings before this date",
			},
			"participant": {
				Type: schema.String,
				Desc: "Speaker name to filter by",
			},
			"limit": {
				Type: schema.Integer,
				Desc: "Maximum results (default 10)",
			},
		}),
	}, func(ctx context.Context, input *MeetingLookupInput) (string, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 10
		}

		q := gdb.WithContext(ctx).Model(&db.Meeting{}).
			Where("meetings.status NOT IN ?", []string{db.MeetingStatusUploading, db.MeetingStatusFailed})

		if input.Query != "" {
			q = q.Where("meetings.title LIKE ?", "%"+input.Query+"%")
		}
		if input.After != "" {
			after, err := time.Parse("2006-01-02", input.After)
			if err != nil {
				return "Invalid 'after' date. Use YYYY-MM-DD.", nil
			}
			q = q.Where("meetings.created_at >= ?", after)
		}
		if input.Before != "" {
			before, err := time.Parse("2006-01-02", input.Before)
			if err != nil {
				return "Invalid 'before' date. Use YYYY-MM-DD.", nil
			}
			q = q.Where("meetings.created_at <= ?", before.Add(24*time.Hour-time.Nanosecond))
		}
		if input.Participant != "" {
			q = q.Joins("JOIN transcripts ON transcripts.meeting_id = meetings.id").
				Joins("JOIN transcript_segments ON transcript_segments.transcript_id = transcripts.id").
				Where("transcript_segments.speaker LIKE ?", "%"+input.Participant+"%").
				Distinct("meetings.*")
		}

		var meetings []db.Meeting
		if err := q.Order("meetings.created_at DESC").Limit(limit).Find(&meetings).Error; err != nil {
			return "", fmt.Errorf("lookup meetings: %w", err)
		}
		if len(meetings) == 0 {
			return "No meetings found matching your criteria.", nil
		}

		parts := make([]string, 0, len(meetings))
		for _, m := range meetings {
			parts = append(parts, formatMeeting(ctx, gdb, m))
		}
		return strings.Join(parts, "\n\n"), nil
	})
}

func formatMeeting(ctx context.Context, gdb *gorm.DB, m db.Meeting) string {
	speakers := meetingSpeakers(ctx, gdb, m.ID)
	speakerLine := "Unknown"
	if len(speakers) > 0 {
		speakerLine = strings.Join(speakers, ", ")
	}
	return fmt.Sprintf("ID: %s | %q\nDate: %s\nStatus: %s\nSpeakers: %s",
		m.ID, m.Title, m.CreatedAt.Format("2006-01-02 15:04"), m.Status, speakerLine)
}

func meetingSpeakers(ctx context.Context, gdb *gorm.DB, meetingID string) []string {
	var speakers []string
	gdb.WithContext(ctx).Model(&db.TranscriptSegment{}).
		Joins("JOIN transcripts ON transcripts.id = transcript_segments.transcript_id").
		Where("transcripts.meeting_id = ? AND transcript_segments.speaker <> ''", meetingID).
		Distinct("transcript_segments.speaker").
		Order("transcript_segments.speaker").
		Pluck("transcript_segments.speaker", &speakers)
	return speakers
}

// ========== meeting_participants ==========

type MeetingParticipantsInput struct {
	MeetingID string `json:"meeting_id"`
}

func (r *Registry) newMeetingParticipantsTool() tool.InvokableTool {
	gdb := r.db

	return utils.NewTool(&schema.ToolInfo{
		Name: "meeting_participants",
		Desc: "Lists a meeting's speakers with their contact info where known. Use this to find out who was in a meeting and their email addresses before sending emails.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"meeting_id": {
				Type:     schema.String,
				Desc:     "The meeting ID to get participants for",
				Required: true,
			},
		}),
	}, func(ctx context.Context, input *MeetingParticipantsInput) (string, error) {
		var meeting db.Meeting
		if err := gdb.WithContext(ctx).First(&meeting, "id = ?", input.MeetingID).Error; err != nil {
			return "Meeting not found.", nil
		}

		speakers := meetingSpeakers(ctx, gdb, meeting.ID)
		if len(speakers) == 0 {
			return "No participants linked to this meeting yet.", nil
		}

		lines := []string{fmt.Sprintf("Participants for %q:", meeting.Title), ""}
		for _, speaker := range speakers {
			line := "- " + speaker
			var contact db.Contact
			if err := gdb.WithContext(ctx).Where("name LIKE ?", "%"+speaker+"%").First(&contact).Error; err == nil {
				line = fmt.Sprintf("- %s <%s>", contact.Name, contact.Email)
			}
			lines = append(lines, line)
		}
		return strings.Join(lines, "\n"), nil
	})
}

// ========== meeting_summary ==========

type MeetingSummaryInput struct {
	MeetingID string `json:"meeting_id"`
}

func (r *Registry) newMeetingSummaryTool() tool.InvokableTool {
	gdb := r.db

	return utils.NewTool(&schema.ToolInfo{
		Name: "meeting_summary",
		Desc: "Retrieves the AI-generated summary for a specific meeting. If chatting within a meeting, use that meeting's ID directly. Otherwise, use the meeting_lookup tool first to find the meeting ID.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"meeting_id": {
				Type:     schema.String,
				Desc:     "The meeting ID to get the summary for",
				Required: true,
			},
		}),
	}, func(ctx context.Context, input *MeetingSummaryInput) (string, error) {
		var meeting db.Meeting
		if err := gdb.WithContext(ctx).First(&meeting, "id = ?", input.MeetingID).Error; err != nil {
			return "Meeting not found.", nil
		}

		var summary db.Summary
		if err := gdb.WithContext(ctx).First(&summary, "meeting_id = ?", meeting.ID).Error; err != nil {
			return fmt.Sprintf("No summary available yet for %q.", meeting.Title), nil
		}

		return fmt.Sprintf("Summary for %q (%s):\n\n%s",
			meeting.Title, meeting.CreatedAt.Format("2006-01-02"), summary.Content), nil
	})
}

// ========== transcript_search ==========

type TranscriptSearchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (r *Registry) newTranscriptSearchTool() tool.InvokableTool {
	gdb := r.db

	return utils.NewTool(&schema.ToolInfo{
		Name: "transcript_search",
		Desc: "Searches transcript content across all meetings. Use this to find what was discussed in any meeting by keyword or topic. Returns matching transcript excerpts with their meeting context.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "Search term or topic to find in transcripts",
				Required: true,
			},
			"limit": {
				Type: schema.Integer,
				Desc: "Maximum number of transcript chunks to return (default 10)",
			},
		}),
	}, func(ctx context.Context, input *TranscriptSearchInput) (string, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 10
		}

		var chunks []db.TranscriptChunk
		err := gdb.WithContext(ctx).
			Joins("JOIN transcripts ON transcripts.id = transcript_chunks.transcript_id").
			Where("transcripts.status = ?", db.TranscriptStatusCompleted).
			Find(&chunks).Error
		if err != nil {
			return "", fmt.Errorf("load transcript chunks: %w", err)
		}

		matched := transcript.Rank(chunks, input.Query, limit)
		if len(matched) == 0 {
			return fmt.Sprintf("No transcript content found matching %q.", input.Query), nil
		}

		parts := make([]string, 0, len(matched))
		for _, chunk := range matched {
			parts = append(parts, formatChunkWithMeeting(ctx, gdb, chunk))
		}
		return strings.Join(parts, "\n\n---\n\n"), nil
	})
}

func formatChunkWithMeeting(ctx context.Context, gdb *gorm.DB, chunk db.TranscriptChunk) string {
	var meeting db.Meeting
	err := gdb.WithContext(ctx).
		Joins("JOIN transcripts ON transcripts.meeting_id = meetings.id").
		Where("transcripts.id = ?", chunk.TranscriptID).
		First(&meeting).Error
	if err != nil {
		return chunk.Content
	}
	return fmt.Sprintf("Meeting: %q (ID: %s, %s)\nPosition: %d\n\n%s",
		meeting.Title, meeting.ID, meeting.CreatedAt.Format("2006-01-02"), chunk.Position, chunk.Content)
}
