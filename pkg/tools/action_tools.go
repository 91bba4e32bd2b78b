package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/db"
)

// ========== action_items ==========

type ActionItemsInput struct {
	Assignee  string `json:"assignee,omitempty"`
	Status    string `json:"status,omitempty"`
	MeetingID string `json:"meeting_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (r *Registry) newActionItemsTool() tool.InvokableTool {
	gdb := r.db

	return utils.NewTool(&schema.ToolInfo{
		Name: "action_items",
		Desc: "Lists action items extracted from meetings. Can filter by assignee, completion status, or specific meeting.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"assignee": {
				Type: schema.String,
				Desc: "Filter by person assigned to the task",
			},
			"status": {
				Type: schema.String,
				Desc: "Filter: 'done' or 'open'",
				Enum: []string{db.ActionItemStatusOpen, db.ActionItemStatusDone},
			},
			"meeting_id": {
				Type: schema.String,
				Desc: "Filter by specific meeting ID",
			},
			"limit": {
				Type: schema.Integer,
				Desc: "Maximum results (default 20)",
			},
		}),
	}, func(ctx context.Context, input *ActionItemsInput) (string, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 20
		}

		q := gdb.WithContext(ctx).Model(&db.ActionItem{})
		if input.Assignee != "" {
			q = q.Where("assignee LIKE ?", "%"+input.Assignee+"%")
		}
		if input.Status != "" {
			q = q.Where("status = ?", input.Status)
		}
		if input.MeetingID != "" {
			q = q.Where("meeting_id = ?", input.MeetingID)
		}

		var items []db.ActionItem
		if err := q.Order("created_at DESC").Limit(limit).Find(&items).Error; err != nil {
			return "", fmt.Errorf("list action items: %w", err)
		}
		if len(items) == 0 {
			return "No action items found.", nil
		}

		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, formatActionItem(ctx, gdb, item))
		}
		return strings.Join(parts, "\n\n"), nil
	})
}

func formatActionItem(ctx context.Context, gdb *gorm.DB, item db.ActionItem) string {
	status := "[PENDING]"
	if item.Status == db.ActionItemStatusDone {
		status = "[DONE]"
	}
	line := status + " " + item.Description
	if item.Assignee != "" {
		line += fmt.Sprintf(" (assigned to: %s)", item.Assignee)
	}
	if item.DueDate != nil {
		line += " | Due: " + item.DueDate.Format("2006-01-02")
	}

	var meeting db.Meeting
	if err := gdb.WithContext(ctx).First(&meeting, "id = ?", item.MeetingID).Error; err == nil {
		line += fmt.Sprintf("\n  From: %q (%s)", meeting.Title, meeting.CreatedAt.Format("2006-01-02"))
	}
	return line
}

// ========== create_action_item ==========

type CreateActionItemInput struct {
	MeetingID   string `json:"meeting_id"`
	Description string `json:"description"`
	Assignee    string `json:"assignee,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

func (r *Registry) newCreateActionItemTool() tool.InvokableTool {
	gdb := r.db

	return utils.NewTool(&schema.ToolInfo{
		Name: "create_action_item",
		Desc: "Creates an action item for a meeting. Call once per action item. Use when the user asks to extract, add, or save action items.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"meeting_id": {
				Type:     schema.String,
				Desc:     "The meeting ID to add the action item to",
				Required: true,
			},
			"description": {
				Type:     schema.String,
				Desc:     "What needs to be done",
				Required: true,
			},
			"assignee": {
				Type: schema.String,
				Desc: "Person responsible for the task",
			},
			"due_date": {
				Type: schema.String,
				Desc: "Due date in YYYY-MM-DD format",
			},
		}),
	}, func(ctx context.Context, input *CreateActionItemInput) (string, error) {
		var meeting db.Meeting
		if err := gdb.WithContext(ctx).First(&meeting, "id = ?", input.MeetingID).Error; err != nil {
			return "Meeting not found.", nil
		}

		desc := strings.TrimSpace(input.Description)
		if desc == "" {
			return "Description must not be empty.", nil
		}

		var existing db.ActionItem
		err := gdb.WithContext(ctx).
			Where("meeting_id = ? AND description LIKE ?", meeting.ID, desc).
			First(&existing).Error
		if err == nil {
			return "Action item already exists: " + existing.Description, nil
		}

		var dueDate *time.Time
		if input.DueDate != "" {
			parsed, err := time.Parse("2006-01-02", input.DueDate)
			if err != nil {
				return "Invalid due date format. Use YYYY-MM-DD.", nil
			}
			dueDate = &parsed
		}

		item := db.ActionItem{
			ID:          uuid.New().String(),
			MeetingID:   meeting.ID,
			Description: desc,
			Assignee:    strings.TrimSpace(input.Assignee),
			DueDate:     dueDate,
			Status:      db.ActionItemStatusOpen,
		}
		if err := gdb.WithContext(ctx).Create(&item).Error; err != nil {
			return fmt.Sprintf("Failed to create action item: %v", err), nil
		}

		result := "Created action item: " + item.Description
		if item.Assignee != "" {
			result += fmt.Sprintf(" (assigned to %s)", item.Assignee)
		}
		if item.DueDate != nil {
			result += " due " + item.DueDate.Format("2006-01-02")
		}
		return result, nil
	})
}

// ========== complete_action_item ==========

type CompleteActionItemInput struct {
	ActionItemID string `json:"action_item_id,omitempty"`
	Description  string `json:"description,omitempty"`
	MeetingID    string `json:"meeting_id,omitempty"`
	Done         *bool  `json:"done,omitempty"`
}

func (r *Registry) newCompleteActionItemTool() tool.InvokableTool {
	gdb := r.db

	return utils.NewTool(&schema.ToolInfo{
		Name: "complete_action_item",
		Desc: "Marks an action item as done or pending. Use when the user says they finished a task or wants to undo completion. Provide either action_item_id or description + meeting_id to identify the item.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"action_item_id": {
				Type: schema.String,
				Desc: "The ID of the action item to update",
			},
			"description": {
				Type: schema.String,
				Desc: "Text to match against the action item description (case-insensitive substring match)",
			},
			"meeting_id": {
				Type: schema.String,
				Desc: "The meeting ID to search within (used with description)",
			},
			"done": {
				Type: schema.Boolean,
				Desc: "true to mark done, false to mark pending (default: true)",
			},
		}),
	}, func(ctx context.Context, input *CompleteActionItemInput) (string, error) {
		var item db.ActionItem
		switch {
		case input.ActionItemID != "":
			if err := gdb.WithContext(ctx).First(&item, "id = ?", input.ActionItemID).Error; err != nil {
				return "Action item not found.", nil
			}
		case input.Description != "":
			q := gdb.WithContext(ctx).Where("description LIKE ?", "%"+input.Description+"%")
			if input.MeetingID != "" {
				q = q.Where("meeting_id = ?", input.MeetingID)
			}
			if err := q.First(&item).Error; err != nil {
				return "Action item not found.", nil
			}
		default:
			return "Please provide either an action_item_id or a description to identify the action item.", nil
		}

		done := true
		if input.Done != nil {
			done = *input.Done
		}
		status := db.ActionItemStatusOpen
		word := "pending"
		if done {
			status = db.ActionItemStatusDone
			word = "done"
		}

		if err := gdb.WithContext(ctx).Model(&item).Update("status", status).Error; err != nil {
			return "", fmt.Errorf("update action item: %w", err)
		}
		return fmt.Sprintf("Marked action item as %s: %s", word, item.Description), nil
	})
}
