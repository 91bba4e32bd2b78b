package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/db"
)

// ========== send_summary_email ==========

type SendSummaryEmailInput struct {
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name,omitempty"`
	MeetingID      string `json:"meeting_id"`
}

func (r *Registry) newSendSummaryEmailTool() tool.InvokableTool {
	gdb := r.db
	mailer := r.mailer

	return utils.NewTool(&schema.ToolInfo{
		Name: "send_summary_email",
		Desc: "Sends an email with the meeting summary to a recipient. This sends immediately without requiring confirmation. Use the meeting_participants or contact_lookup tool first to find email addresses.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"recipient_email": {
				Type:     schema.String,
				Desc:     "Recipient's email address",
				Required: true,
			},
			"recipient_name": {
				Type: schema.String,
				Desc: "Recipient's name for the greeting",
			},
			"meeting_id": {
				Type:     schema.String,
				Desc:     "Meeting ID to get the summary from",
				Required: true,
			},
		}),
	}, func(ctx context.Context, input *SendSummaryEmailInput) (string, error) {
		var meeting db.Meeting
		if err := gdb.WithContext(ctx).First(&meeting, "id = ?", input.MeetingID).Error; err != nil {
			return "Meeting not found.", nil
		}

		var summary db.Summary
		if err := gdb.WithContext(ctx).First(&summary, "meeting_id = ?", meeting.ID).Error; err != nil {
			return fmt.Sprintf("No summary available for %q. The meeting may still be processing.", meeting.Title), nil
		}

		subject := "Summary: " + meeting.Title
		body := composeEmailBody(input.RecipientName,
			fmt.Sprintf("Here is the summary from %q (%s):", meeting.Title, meeting.CreatedAt.Format("2006-01-02")),
			[]string{summary.Content})

		if err := mailer.Send(ctx, input.RecipientEmail, subject, body); err != nil {
			return fmt.Sprintf("Failed to send email: %v", err), nil
		}
		return fmt.Sprintf("Email sent to %s with summary of %q", input.RecipientEmail, meeting.Title), nil
	})
}

// ========== send_action_item_email ==========

type SendActionItemEmailInput struct {
	Action         string `json:"action"`
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name,omitempty"`
	MeetingID      string `json:"meeting_id"`
	Assignee       string `json:"assignee,omitempty"`
}

func (r *Registry) newSendActionItemEmailTool() tool.InvokableTool {
	gdb := r.db
	mailer := r.mailer

	return utils.NewTool(&schema.ToolInfo{
		Name: "send_action_item_email",
		Desc: "Drafts or sends an email with action items from a meeting. First call with action 'draft' to preview, then 'send' to deliver. Always draft first so the user can review before sending.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"action": {
				Type:     schema.String,
				Desc:     "Either 'draft' to preview or 'send' to deliver the email",
				Required: true,
				Enum:     []string{"draft", "send"},
			},
			"recipient_email": {
				Type:     schema.String,
				Desc:     "Recipient's email address",
				Required: true,
			},
			"recipient_name": {
				Type: schema.String,
				Desc: "Recipient's name for the greeting",
			},
			"meeting_id": {
				Type:     schema.String,
				Desc:     "Meeting ID to get action items from",
				Required: true,
			},
			"assignee": {
				Type: schema.String,
				Desc: "Filter action items by assignee name (optional)",
			},
		}),
	}, func(ctx context.Context, input *SendActionItemEmailInput) (string, error) {
		if input.Action != "draft" && input.Action != "send" {
			return fmt.Sprintf("Invalid action %q. Use 'draft' to preview or 'send' to deliver.", input.Action), nil
		}

		var meeting db.Meeting
		if err := gdb.WithContext(ctx).First(&meeting, "id = ?", input.MeetingID).Error; err != nil {
			return "Meeting not found.", nil
		}

		items, err := fetchActionItems(ctx, gdb, meeting.ID, input.Assignee)
		if err != nil {
			return "", err
		}
		if len(items) == 0 {
			return "No action items found for this meeting.", nil
		}

		subject := "Action items from " + meeting.Title
		if input.Assignee != "" {
			subject = fmt.Sprintf("Action items for %s from %s", input.Assignee, meeting.Title)
		}

		lines := make([]string, 0, len(items))
		for _, item := range items {
			line := "- " + item.Description
			var notes []string
			if item.DueDate != nil {
				notes = append(notes, "due: "+item.DueDate.Format("2006-01-02"))
			}
			if item.Assignee != "" {
				notes = append(notes, "assigned to: "+item.Assignee)
			}
			if len(notes) > 0 {
				line += " (" + strings.Join(notes, ", ") + ")"
			}
			lines = append(lines, line)
		}
		body := composeEmailBody(input.RecipientName,
			fmt.Sprintf("Here are the action items from %q (%s):", meeting.Title, meeting.CreatedAt.Format("2006-01-02")),
			lines)

		if input.Action == "draft" {
			return fmt.Sprintf("Subject: %s\n\n%s", subject, body), nil
		}

		if err := mailer.Send(ctx, input.RecipientEmail, subject, body); err != nil {
			return fmt.Sprintf("Failed to send email: %v", err), nil
		}
		return fmt.Sprintf("Email sent to %s with %d action items from %q",
			input.RecipientEmail, len(items), meeting.Title), nil
	})
}

func fetchActionItems(ctx context.Context, gdb *gorm.DB, meetingID, assignee string) ([]db.ActionItem, error) {
	q := gdb.WithContext(ctx).Where("meeting_id = ?", meetingID)
	if assignee != "" {
		q = q.Where("assignee LIKE ?", assignee)
	}
	var items []db.ActionItem
	if err := q.Order("created_at").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load action items: %w", err)
	}
	return items, nil
}

func composeEmailBody(recipientName, intro string, contentLines []string) string {
	greeting := "there"
	if recipientName != "" {
		greeting = recipientName
	}

	lines := []string{
		"Hi " + greeting + ",",
		"",
		intro,
		"",
	}
	lines = append(lines, contentLines...)
	lines = append(lines, "", "---", "Sent via Huddle")
	return strings.Join(lines, "\n")
}
