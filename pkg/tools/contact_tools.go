package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/db"
)

// ========== contact_lookup ==========

type ContactLookupInput struct {
	Name  string `json:"name,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

func (r *Registry) newContactLookupTool() tool.InvokableTool {
	gdb := r.db

	return utils.NewTool(&schema.ToolInfo{
		Name: "contact_lookup",
		Desc: "Looks up contacts from the address book. Use to find someone's email address before sending them an email.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"name": {
				Type: schema.String,
				Desc: "Name to search for (partial match supported)",
			},
			"limit": {
				Type: schema.Integer,
				Desc: "Maximum results (default 10)",
			},
		}),
	}, func(ctx context.Context, input *ContactLookupInput) (string, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 10
		}

		q := gdb.WithContext(ctx).Model(&db.Contact{})
		if input.Name != "" {
			q = q.Where("name LIKE ?", "%"+input.Name+"%")
		}

		var contacts []db.Contact
		if err := q.Order("name").Limit(limit).Find(&contacts).Error; err != nil {
			return "", fmt.Errorf("lookup contacts: %w", err)
		}
		if len(contacts) == 0 {
			return "No contacts found.", nil
		}

		lines := make([]string, 0, len(contacts))
		for _, c := range contacts {
			line := fmt.Sprintf("%s <%s>", c.Name, c.Email)
			if c.Notes != "" {
				line += " | " + c.Notes
			}
			lines = append(lines, line)
		}
		return strings.Join(lines, "\n"), nil
	})
}

// ========== manage_contact ==========

type ManageContactInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Notes string `json:"notes,omitempty"`
}

func (r *Registry) newManageContactTool() tool.InvokableTool {
	gdb := r.db

	return utils.NewTool(&schema.ToolInfo{
		Name: "manage_contact",
		Desc: "Creates or updates a contact in the address book. Use when you learn someone's email address to save it for future use.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"name": {
				Type:     schema.String,
				Desc:     "Contact's full name",
				Required: true,
			},
			"email": {
				Type:     schema.String,
				Desc:     "Contact's email address",
				Required: true,
			},
			"notes": {
				Type: schema.String,
				Desc: "Optional notes about the contact (role, team, etc.)",
			},
		}),
	}, func(ctx context.Context, input *ManageContactInput) (string, error) {
		email := strings.ToLower(strings.TrimSpace(input.Email))
		name := strings.TrimSpace(input.Name)
		if email == "" || name == "" {
			return "Both name and email are required.", nil
		}

		var contact db.Contact
		err := gdb.WithContext(ctx).Where("email = ?", email).First(&contact).Error
		switch {
		case err == nil:
			contact.Name = name
			if input.Notes != "" {
				contact.Notes = input.Notes
			}
			if err := gdb.WithContext(ctx).Save(&contact).Error; err != nil {
				return fmt.Sprintf("Failed to save contact: %v", err), nil
			}
			return fmt.Sprintf("Updated contact: %s <%s>", contact.Name, contact.Email), nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			contact = db.Contact{
				ID:    uuid.New().String(),
				Name:  name,
				Email: email,
				Notes: input.Notes,
			}
			if err := gdb.WithContext(ctx).Create(&contact).Error; err != nil {
				return fmt.Sprintf("Failed to save contact: %v", err), nil
			}
			return fmt.Sprintf("Saved contact: %s <%s>", contact.Name, contact.Email), nil

		default:
			return "", fmt.Errorf("find contact: %w", err)
		}
	})
}
