package transcript

import (
	"strings"
	"testing"

	"github.com/huddlehq/huddle/pkg/db"
)

func seg(position int, speaker, content string, start, end float64) db.TranscriptSegment {
	return db.TranscriptSegment{
		TranscriptID: "t1",
		Speaker:      speaker,
		Content:      content,
		StartTime:    &start,
		EndTime:      &end,
		Position:     position,
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := Chunk(nil, 500); got != nil {
		t.Fatalf("Chunk(nil) = %v, want nil", got)
	}
}

func TestChunk_SingleChunkWhenUnderBudget(t *testing.T) {
	segments := []db.TranscriptSegment{
		seg(0, "Alice", "Good morning everyone.", 0, 4),
		seg(1, "Bob", "Morning, let's get started.", 5, 9),
	}

	chunks := Chunk(segments, 500)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}

	c := chunks[0]
	if c.Position != 0 {
		t.Fatalf("position = %d, want 0", c.Position)
	}
	if c.StartTime == nil || *c.StartTime != 0 {
		t.Fatalf("start_time = %v, want 0", c.StartTime)
	}
	if c.EndTime == nil || *c.EndTime != 9 {
		t.Fatalf("end_time = %v, want 9", c.EndTime)
	}
	want := "Alice [00:00:00]: Good morning everyone.\n\nBob [00:00:05]: Morning, let's get started."
	if c.Content != want {
		t.Fatalf("content = %q, want %q", c.Content, want)
	}
}

func TestChunk_OverlapInvariant(t *testing.T) {
	var segments []db.TranscriptSegment
	for i := 0; i < 12; i++ {
		segments = append(segments, seg(i, "Speaker", strings.Repeat("word ", 20), float64(i*10), float64(i*10+9)))
	}

	// Small budget forces multiple chunks
	chunks := Chunk(segments, 80)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want >= 2", len(chunks))
	}

	for i := 0; i < len(chunks)-1; i++ {
		prevLines := strings.Split(chunks[i].Content, "\n\n")
		nextLines := strings.Split(chunks[i+1].Content, "\n\n")
		last := prevLines[len(prevLines)-1]
		first := nextLines[0]
		if last != first {
			t.Fatalf("chunk %d last segment %q != chunk %d first segment %q", i, last, i+1, first)
		}
	}
}

func TestChunk_CompletenessInOrder(t *testing.T) {
	var segments []db.TranscriptSegment
	for i := 0; i < 10; i++ {
		segments = append(segments, seg(i, "S", strings.Repeat("x", 30+i), float64(i), float64(i)+0.5))
	}

	chunks := Chunk(segments, 30)

	// Every formatted segment appears exactly once after dropping each
	// chunk's overlap-duplicated first segment
	var all []string
	for i, c := range chunks {
		lines := strings.Split(c.Content, "\n\n")
		if i > 0 {
			lines = lines[1:]
		}
		all = append(all, lines...)
	}

	if len(all) != len(segments) {
		t.Fatalf("reconstructed %d segments, want %d", len(all), len(segments))
	}
	for i, s := range segments {
		if all[i] != FormatSegment(s) {
			t.Fatalf("segment %d = %q, want %q", i, all[i], FormatSegment(s))
		}
	}
}

func TestChunk_OversizedSegmentKeptWhole(t *testing.T) {
	big := seg(1, "Rambler", strings.Repeat("a", 5000), 10, 300)
	segments := []db.TranscriptSegment{
		seg(0, "Alice", "short", 0, 5),
		big,
		seg(2, "Bob", "also short", 310, 315),
	}

	chunks := Chunk(segments, 100)
	found := false
	for _, c := range chunks {
		if strings.Contains(c.Content, strings.Repeat("a", 5000)) {
			found = true
		}
	}
	if !found {
		t.Fatalf("oversized segment was not placed whole into a chunk")
	}
}

func TestChunk_SequentialPositions(t *testing.T) {
	var segments []db.TranscriptSegment
	for i := 0; i < 8; i++ {
		segments = append(segments, seg(i, "S", strings.Repeat("y", 60), float64(i), float64(i)))
	}

	chunks := Chunk(segments, 40)
	for i, c := range chunks {
		if c.Position != i {
			t.Fatalf("chunk %d position = %d", i, c.Position)
		}
		if c.TranscriptID != "t1" {
			t.Fatalf("chunk %d transcript_id = %q", i, c.TranscriptID)
		}
		if c.ID == "" {
			t.Fatalf("chunk %d has empty id", i)
		}
	}
}

func TestFormatSegment_NilStartTime(t *testing.T) {
	s := db.TranscriptSegment{Speaker: "Alice", Content: "hi"}
	if got, want := FormatSegment(s), "Alice [00:00:00]: hi"; got != want {
		t.Fatalf("FormatSegment = %q, want %q", got, want)
	}
}

func TestFormatSegment_Timestamp(t *testing.T) {
	start := 3725.9 // 01:02:05
	s := db.TranscriptSegment{Speaker: "Bob", Content: "ok", StartTime: &start}
	if got, want := FormatSegment(s), "Bob [01:02:05]: ok"; got != want {
		t.Fatalf("FormatSegment = %q, want %q", got, want)
	}
}
