package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/huddlehq/huddle/pkg/db"
)

type recordingMailer struct {
	to      []string
	subject []string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, _ string) error {
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	return nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func createMeeting(t *testing.T, gdb *gorm.DB, title string) db.Meeting {
	t.Helper()
	m := db.Meeting{ID: uuid.New().String(), Title: title, Status: db.MeetingStatusReady}
	if err := gdb.Create(&m).Error; err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	return m
}

func runTool(t *testing.T, reg *Registry, name, args string) string {
	t.Helper()
	ctx := context.Background()
	for _, bt := range reg.Tools() {
		info, err := bt.Info(ctx)
		if err != nil {
			t.Fatalf("tool info: %v", err)
		}
		if info.Name != name {
			continue
		}
		inv, ok := bt.(tool.InvokableTool)
		if !ok {
			t.Fatalf("tool %q is not invokable", name)
		}
		out, err := inv.InvokableRun(ctx, args)
		if err != nil {
			t.Fatalf("run %q: %v", name, err)
		}
		return out
	}
	t.Fatalf("tool %q not registered", name)
	return ""
}

func TestRegistry_ToolNames(t *testing.T) {
	reg := NewRegistry(testDB(t), nil)
	ctx := context.Background()

	want := map[string]bool{
		"meeting_lookup": true, "meeting_participants": true, "meeting_summary": true,
		"transcript_search": true, "action_items": true, "create_action_item": true,
		"complete_action_item": true, "contact_lookup": true, "manage_contact": true,
		"send_summary_email": true, "send_action_item_email": true,
	}

	tools := reg.Tools()
	if len(tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(tools), len(want))
	}
	for _, bt := range tools {
		info, err := bt.Info(ctx)
		if err != nil {
			t.Fatalf("tool info: %v", err)
		}
		if !want[info.Name] {
			t.Fatalf("unexpected tool %q", info.Name)
		}
		delete(want, info.Name)
	}
}

func TestCreateActionItem_CreatesAndDedupes(t *testing.T) {
	gdb := testDB(t)
	reg := NewRegistry(gdb, nil)
	meeting := createMeeting(t, gdb, "Sprint Planning")

	args := `{"meeting_id":"` + meeting.ID + `","description":"Ship the beta","assignee":"Dana","due_date":"2026-09-15"}`
	out := runTool(t, reg, "create_action_item", args)
	if !strings.Contains(out, "Created action item: Ship the beta") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "assigned to Dana") || !strings.Contains(out, "due 2026-09-15") {
		t.Fatalf("missing annotations: %q", out)
	}

	out = runTool(t, reg, "create_action_item", args)
	if !strings.Contains(out, "already exists") {
		t.Fatalf("expected dedupe, got: %q", out)
	}

	var count int64
	gdb.Model(&db.ActionItem{}).Count(&count)
	if count != 1 {
		t.Fatalf("action item count = %d, want 1", count)
	}
}

func TestCreateActionItem_InvalidDate(t *testing.T) {
	gdb := testDB(t)
	reg := NewRegistry(gdb, nil)
	meeting := createMeeting(t, gdb, "Standup")

	out := runTool(t, reg, "create_action_item",
		`{"meeting_id":"`+meeting.ID+`","description":"Fix build","due_date":"next tuesday"}`)
	if !strings.Contains(out, "Invalid due date") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCompleteActionItem_ByDescription(t *testing.T) {
	gdb := testDB(t)
	reg := NewRegistry(gdb, nil)
	meeting := createMeeting(t, gdb, "Retro")

	item := db.ActionItem{
		ID: uuid.New().String(), MeetingID: meeting.ID,
		Description: "Update the runbook", Status: db.ActionItemStatusOpen,
	}
	if err := gdb.Create(&item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}

	out := runTool(t, reg, "complete_action_item",
		`{"description":"runbook","meeting_id":"`+meeting.ID+`"}`)
	if !strings.Contains(out, "Marked action item as done") {
		t.Fatalf("unexpected output: %q", out)
	}

	var updated db.ActionItem
	gdb.First(&updated, "id = ?", item.ID)
	if updated.Status != db.ActionItemStatusDone {
		t.Fatalf("status = %q, want done", updated.Status)
	}

	out = runTool(t, reg, "complete_action_item",
		`{"action_item_id":"`+item.ID+`","done":false}`)
	if !strings.Contains(out, "Marked action item as pending") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCompleteActionItem_RequiresIdentifier(t *testing.T) {
	reg := NewRegistry(testDB(t), nil)
	out := runTool(t, reg, "complete_action_item", `{}`)
	if !strings.Contains(out, "provide either") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestManageContact_CreateThenUpdate(t *testing.T) {
	gdb := testDB(t)
	reg := NewRegistry(gdb, nil)

	out := runTool(t, reg, "manage_contact",
		`{"name":"Dana Reyes","email":"Dana@Example.com","notes":"PM"}`)
	if !strings.Contains(out, "Saved contact: Dana Reyes <dana@example.com>") {
		t.Fatalf("unexpected output: %q", out)
	}

	out = runTool(t, reg, "manage_contact",
		`{"name":"Dana R.","email":"dana@example.com"}`)
	if !strings.Contains(out, "Updated contact: Dana R.") {
		t.Fatalf("unexpected output: %q", out)
	}

	var count int64
	gdb.Model(&db.Contact{}).Count(&count)
	if count != 1 {
		t.Fatalf("contact count = %d, want 1", count)
	}
}

func TestContactLookup_PartialMatch(t *testing.T) {
	gdb := testDB(t)
	reg := NewRegistry(gdb, nil)

	for _, c := range []db.Contact{
		{ID: uuid.New().String(), Name: "Dana Reyes", Email: "dana@example.com"},
		{ID: uuid.New().String(), Name: "Sam Ortiz", Email: "sam@example.com", Notes: "Eng lead"},
	} {
		if err := gdb.Create(&c).Error; err != nil {
			t.Fatalf("create contact: %v", err)
		}
	}

	out := runTool(t, reg, "contact_lookup", `{"name":"sam"}`)
	if !strings.Contains(out, "Sam Ortiz <sam@example.com>") {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Contains(out, "Dana") {
		t.Fatalf("unexpected contact in output: %q", out)
	}

	out = runTool(t, reg, "contact_lookup", `{"name":"nobody"}`)
	if out != "No contacts found." {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestMeetingSummary_MissingAndPresent(t *testing.T) {
	gdb := testDB(t)
	reg := NewRegistry(gdb, nil)
	meeting := createMeeting(t, gdb, "Q3 Review")

	out := runTool(t, reg, "meeting_summary", `{"meeting_id":"`+meeting.ID+`"}`)
	if !strings.Contains(out, "No summary available yet") {
		t.Fatalf("unexpected output: %q", out)
	}

	summary := db.Summary{ID: uuid.New().String(), MeetingID: meeting.ID, Content: "Revenue up 12%."}
	if err := gdb.Create(&summary).Error; err != nil {
		t.Fatalf("create summary: %v", err)
	}

	out = runTool(t, reg, "meeting_summary", `{"meeting_id":"`+meeting.ID+`"}`)
	if !strings.Contains(out, "Revenue up 12%.") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTranscriptSearch(t *testing.T) {
	gdb := testDB(t)
	reg := NewRegistry(gdb, nil)
	meeting := createMeeting(t, gdb, "Infra Sync")

	tr := db.Transcript{ID: uuid.New().String(), MeetingID: meeting.ID, Status: db.TranscriptStatusCompleted}
	if err := gdb.Create(&tr).Error; err != nil {
		t.Fatalf("create transcript: %v", err)
	}
	chunks := []db.TranscriptChunk{
		{ID: uuid.New().String(), TranscriptID: tr.ID, Content: "Alice [00:00:00]: The migration is on track.", Position: 0},
		{ID: uuid.New().String(), TranscriptID: tr.ID, Content: "Bob [00:05:00]: Lunch orders are in.", Position: 1},
	}
	for _, c := range chunks {
		if err := gdb.Create(&c).Error; err != nil {
			t.Fatalf("create chunk: %v", err)
		}
	}

	out := runTool(t, reg, "transcript_search", `{"query":"migration"}`)
	if !strings.Contains(out, "migration is on track") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, `Meeting: "Infra Sync"`) {
		t.Fatalf("missing meeting context: %q", out)
	}

	out = runTool(t, reg, "transcript_search", `{"query":"zzzzz"}`)
	if !strings.Contains(out, "No transcript content found") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSendSummaryEmail(t *testing.T) {
	gdb := testDB(t)
	mailer := &recordingMailer{}
	reg := NewRegistry(gdb, mailer)
	meeting := createMeeting(t, gdb, "Kickoff")

	out := runTool(t, reg, "send_summary_email",
		`{"recipient_email":"dana@example.com","meeting_id":"`+meeting.ID+`"}`)
	if !strings.Contains(out, "No summary available") {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(mailer.to) != 0 {
		t.Fatalf("email sent without a summary")
	}

	summary := db.Summary{ID: uuid.New().String(), MeetingID: meeting.ID, Content: "We agreed on scope."}
	if err := gdb.Create(&summary).Error; err != nil {
		t.Fatalf("create summary: %v", err)
	}

	out = runTool(t, reg, "send_summary_email",
		`{"recipient_email":"dana@example.com","meeting_id":"`+meeting.ID+`"}`)
	if !strings.Contains(out, "Email sent to dana@example.com") {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(mailer.to) != 1 || mailer.to[0] != "dana@example.com" {
		t.Fatalf("mailer.to = %v", mailer.to)
	}
	if mailer.subject[0] != "Summary: Kickoff" {
		t.Fatalf("subject = %q", mailer.subject[0])
	}
}

func TestSendActionItemEmail_DraftDoesNotSend(t *testing.T) {
	gdb := testDB(t)
	mailer := &recordingMailer{}
	reg := NewRegistry(gdb, mailer)
	meeting := createMeeting(t, gdb, "Planning")

	due := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	item := db.ActionItem{
		ID: uuid.New().String(), MeetingID: meeting.ID,
		Description: "Write the RFC", Assignee: "Sam", DueDate: &due,
		Status: db.ActionItemStatusOpen,
	}
	if err := gdb.Create(&item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}

	out := runTool(t, reg, "send_action_item_email",
		`{"action":"draft","recipient_email":"sam@example.com","meeting_id":"`+meeting.ID+`"}`)
	if !strings.Contains(out, "Subject: Action items from Planning") {
		t.Fatalf("unexpected draft: %q", out)
	}
	if !strings.Contains(out, "- Write the RFC (due: 2026-09-10, assigned to: Sam)") {
		t.Fatalf("missing item line: %q", out)
	}
	if len(mailer.to) != 0 {
		t.Fatalf("draft must not send email")
	}

	out = runTool(t, reg, "send_action_item_email",
		`{"action":"send","recipient_email":"sam@example.com","meeting_id":"`+meeting.ID+`"}`)
	if !strings.Contains(out, "Email sent to sam@example.com with 1 action items") {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(mailer.to) != 1 {
		t.Fatalf("expected one delivery, got %d", len(mailer.to))
	}
}

func TestMeetingLookup_FiltersStatusAndTitle(t *testing.T) {
	gdb := testDB(t)
	reg := NewRegistry(gdb, nil)

	ready := createMeeting(t, gdb, "Budget Review")
	uploading := db.Meeting{ID: uuid.New().String(), Title: "Budget Draft", Status: db.MeetingStatusUploading}
	if err := gdb.Create(&uploading).Error; err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	out := runTool(t, reg, "meeting_lookup", `{"query":"Budget"}`)
	if !strings.Contains(out, ready.ID) {
		t.Fatalf("ready meeting missing: %q", out)
	}
	if strings.Contains(out, uploading.ID) {
		t.Fatalf("uploading meeting should be excluded: %q", out)
	}

	out = runTool(t, reg, "meeting_lookup", `{"query":"Nonexistent"}`)
	if !strings.Contains(out, "No meetings found") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestMeetingParticipants_FromSpeakers(t *testing.T) {
	gdb := testDB(t)
	reg := NewRegistry(gdb, nil)
	meeting := createMeeting(t, gdb, "Design Review")

	tr := db.Transcript{ID: uuid.New().String(), MeetingID: meeting.ID, Status: db.TranscriptStatusCompleted}
	if err := gdb.Create(&tr).Error; err != nil {
		t.Fatalf("create transcript: %v", err)
	}
	for i, speaker := range []string{"Dana Reyes", "Sam Ortiz"} {
		seg := db.TranscriptSegment{
			ID: uuid.New().String(), TranscriptID: tr.ID,
			Speaker: speaker, Content: "hello", Position: i,
		}
		if err := gdb.Create(&seg).Error; err != nil {
			t.Fatalf("create segment: %v", err)
		}
	}
	contact := db.Contact{ID: uuid.New().String(), Name: "Dana Reyes", Email: "dana@example.com"}
	if err := gdb.Create(&contact).Error; err != nil {
		t.Fatalf("create contact: %v", err)
	}

	out := runTool(t, reg, "meeting_participants", `{"meeting_id":"`+meeting.ID+`"}`)
	if !strings.Contains(out, "Dana Reyes <dana@example.com>") {
		t.Fatalf("contact match missing: %q", out)
	}
	if !strings.Contains(out, "- Sam Ortiz") {
		t.Fatalf("plain speaker missing: %q", out)
	}
}
