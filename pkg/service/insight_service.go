package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/db"
	"github.com/huddlehq/huddle/pkg/event"
	"github.com/huddlehq/huddle/pkg/utils"
)

const summaryPrompt = `You are a meeting summarizer. Given a meeting transcript with speaker labels and timestamps,
produce a clear, structured summary.

Your summary must include these sections:

## Meeting Overview
2-3 sentences describing what the meeting was about.

## Key Discussion Points
Bullet list of the main topics discussed.

## Decisions Made
Bullet list of any decisions that were made. If none, write "No explicit decisions were made."

## Next Steps
Bullet list of agreed-upon next steps. If none, write "No specific next steps were identified."

Be concise. Use the speakers' actual names/labels. Do not invent information not present in the transcript.`

const extractionPrompt = `You are a meeting action item extractor. Given a meeting transcript with speaker labels,
extract all action items mentioned.

Return a JSON array of action items. Each item should have:
- "description": A clear, concise description of the action item
- "assignee": The person responsible (use their speaker label or name if mentioned). Use null if unclear.
- "due_date": The due date in YYYY-MM-DD format if mentioned. Use null if no date was mentioned.

Rules:
- Only extract concrete, actionable items (not vague intentions)
- Use the exact speaker names/labels from the transcript
- Return ONLY the JSON array, no other text
- If there are no action items, return an empty array: []
- Do NOT extract duplicate action items. If the same task is mentioned multiple times
  (even with slightly different wording), include it only once with the most complete description.`

// Dedupe thresholds: assigned items merge on high word overlap; unassigned
// items need near-identical wording so genuinely different tasks that
// share words are not merged.
const (
	similarityThreshold           = 0.7
	unassignedSimilarityThreshold = 0.9
)

// extractedItem is the JSON shape the extraction prompt asks for.
type extractedItem struct {
	Description string  `json:"description"`
	Assignee    *string `json:"assignee"`
	DueDate     *string `json:"due_date"`
}

// InsightService generates meeting summaries and extracts action items
// from completed transcripts.
type InsightService struct {
	db         *gorm.DB
	model      einoModel.ToolCallingChatModel
	modelName  string
	transcript *TranscriptService
	emitter    *event.Emitter
	logger     *slog.Logger
}

func NewInsightService(gdb *gorm.DB, model einoModel.ToolCallingChatModel, modelName string, ts *TranscriptService, emitter *event.Emitter) *InsightService {
	return &InsightService{
		db:         gdb,
		model:      model,
		modelName:  modelName,
		transcript: ts,
		emitter:    emitter,
		logger:     utils.GetLogger(),
	}
}

// GenerateSummary produces and stores the meeting summary. A meeting that
// already has one is left alone.
func (s *InsightService) GenerateSummary(ctx context.Context, meetingID string) error {
	var meeting db.Meeting
	if err := s.db.WithContext(ctx).First(&meeting, "id = ?", meetingID).Error; err != nil {
		return fmt.Errorf("meeting %s not found: %w", meetingID, err)
	}

	var existing db.Summary
	if err := s.db.WithContext(ctx).First(&existing, "meeting_id = ?", meetingID).Error; err == nil {
		return nil
	}

	text, err := s.formattedTranscript(ctx, meetingID)
	if err != nil {
		return err
	}

	out, err := s.model.Generate(ctx, []*schema.Message{
		schema.UserMessage(summaryPrompt + "\n\n---\n\nTranscript:\n\n" + text),
	})
	if err != nil {
		s.markFailed(ctx, &meeting)
		return fmt.Errorf("generate summary: %w", err)
	}

	summary := db.Summary{
		ID:        uuid.New().String(),
		MeetingID: meetingID,
		Content:   out.Content,
		ModelUsed: s.modelName,
	}
	if err := s.db.WithContext(ctx).Create(&summary).Error; err != nil {
		return fmt.Errorf("save summary: %w", err)
	}

	s.emitter.Emit(event.SummaryReadyEvent{MeetingID: meetingID})
	return s.checkProcessingComplete(ctx, &meeting)
}

// ExtractActionItems asks the model for action items, deduplicates them
// and stores the survivors. A meeting that already has items is left
// alone.
func (s *InsightService) ExtractActionItems(ctx context.Context, meetingID string) error {
	var meeting db.Meeting
	if err := s.db.WithContext(ctx).First(&meeting, "id = ?", meetingID).Error; err != nil {
		return fmt.Errorf("meeting %s not found: %w", meetingID, err)
	}

	var count int64
	s.db.WithContext(ctx).Model(&db.ActionItem{}).Where("meeting_id = ?", meetingID).Count(&count)
	if count > 0 {
		return nil
	}

	text, err := s.formattedTranscript(ctx, meetingID)
	if err != nil {
		return err
	}

	out, err := s.model.Generate(ctx, []*schema.Message{
		schema.UserMessage(extractionPrompt + "\n\n---\n\nTranscript:\n\n" + text),
	})
	if err != nil {
		s.markFailed(ctx, &meeting)
		return fmt.Errorf("extract action items: %w", err)
	}

	items := parseActionItems(out.Content, s.logger)
	items = deduplicateItems(items)

	for _, item := range items {
		assignee := ""
		if item.Assignee != nil {
			assignee = strings.TrimSpace(*item.Assignee)
		}
		record := db.ActionItem{
			ID:          uuid.New().String(),
			MeetingID:   meetingID,
			Description: item.Description,
			Assignee:    assignee,
			DueDate:     parseDueDate(item.DueDate),
			Status:      db.ActionItemStatusOpen,
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("save action item: %w", err)
		}
	}

	s.emitter.Emit(event.ActionItemsReadyEvent{MeetingID: meetingID, Count: len(items)})
	return s.checkProcessingComplete(ctx, &meeting)
}

func (s *InsightService) formattedTranscript(ctx context.Context, meetingID string) (string, error) {
	var tr db.Transcript
	if err := s.db.WithContext(ctx).First(&tr, "meeting_id = ?", meetingID).Error; err != nil {
		return "", fmt.Errorf("transcript for meeting %s not found: %w", meetingID, err)
	}
	if !tr.Completed() {
		return "", fmt.Errorf("transcript %s is not completed", tr.ID)
	}
	return s.transcript.FormattedText(ctx, tr.ID)
}

// checkProcessingComplete marks the meeting ready once both insights
// exist.
func (s *InsightService) checkProcessingComplete(ctx context.Context, meeting *db.Meeting) error {
	var summaries, items int64
	s.db.WithContext(ctx).Model(&db.Summary{}).Where("meeting_id = ?", meeting.ID).Count(&summaries)
	s.db.WithContext(ctx).Model(&db.ActionItem{}).Where("meeting_id = ?", meeting.ID).Count(&items)
	if summaries == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(meeting).Update("status", db.MeetingStatusReady).Error
}

func (s *InsightService) markFailed(ctx context.Context, meeting *db.Meeting) {
	if err := s.db.WithContext(ctx).Model(meeting).Update("status", db.MeetingStatusFailed).Error; err != nil {
		s.logger.Error("failed to mark meeting failed", "meeting_id", meeting.ID, "error", err)
	}
}

// parseActionItems decodes the model's JSON array, tolerating a markdown
// code fence around it.
func parseActionItems(content string, logger *slog.Logger) []extractedItem {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var items []extractedItem
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		logger.Error("failed to parse action items JSON", "error", err)
		return nil
	}

	kept := items[:0]
	for _, item := range items {
		if strings.TrimSpace(item.Description) != "" {
			kept = append(kept, item)
		}
	}
	return kept
}

// deduplicateItems removes near-duplicates, keeping the longer (more
// detailed) description when two items collide.
func deduplicateItems(items []extractedItem) []extractedItem {
	var kept []extractedItem

	for _, item := range items {
		dupIdx := -1
		for i, existing := range kept {
			if similarItems(existing, item) {
				dupIdx = i
				break
			}
		}
		if dupIdx == -1 {
			kept = append(kept, item)
			continue
		}
		if len(item.Description) > len(kept[dupIdx].Description) {
			kept[dupIdx] = item
		}
	}
	return kept
}

// similarItems reports whether two items describe the same task: same
// normalized assignee and high word overlap between descriptions.
func similarItems(a, b extractedItem) bool {
	assigneeA := normalizeAssignee(a.Assignee)
	assigneeB := normalizeAssignee(b.Assignee)
	if assigneeA != assigneeB {
		return false
	}

	wordsA := normalizeWords(a.Description)
	wordsB := normalizeWords(b.Description)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	overlap := 0
	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}
	seen := make(map[string]bool)
	for _, w := range wordsB {
		if setA[w] && !seen[w] {
			overlap++
			seen[w] = true
		}
	}

	smaller := len(uniqueWords(wordsA))
	if n := len(uniqueWords(wordsB)); n < smaller {
		smaller = n
	}

	threshold := similarityThreshold
	if assigneeA == "" {
		threshold = unassignedSimilarityThreshold
	}
	return float64(overlap)/float64(smaller) > threshold
}

func normalizeWords(text string) []string {
	lower := strings.ToLower(text)
	var b strings.Builder
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

func uniqueWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := words[:0:0]
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func normalizeAssignee(assignee *string) string {
	if assignee == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*assignee))
}

func parseDueDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &parsed
}
