// Package transcript implements chunking and retrieval over meeting
// transcripts. Chunks are the unit of RAG context: token-bounded spans of
// formatted utterances with one-segment overlap between neighbors.
package transcript

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/pkg/db"
)

const (
	// CharsPerToken approximates the token budget in characters.
	CharsPerToken = 4

	// DefaultMaxTokens is the chunk size budget when none is configured.
	DefaultMaxTokens = 500
)

// Chunk splits ordered segments into token-bounded chunks.
//
// Chunks respect segment boundaries (never splits mid-segment) and include
// a one-segment overlap between consecutive chunks for context continuity.
// Each chunk's content uses the "Speaker [HH:MM:SS]: text" format.
//
// Deterministic and side effect free: the same segments and budget always
// yield the same chunk sequence.
func Chunk(segments []db.TranscriptSegment, maxTokens int) []db.TranscriptChunk {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	maxChars := maxTokens * CharsPerToken

	if len(segments) == 0 {
		return nil
	}

	var chunks []db.TranscriptChunk
	var current []db.TranscriptSegment
	currentLen := 0

	for _, seg := range segments {
		segLen := len(FormatSegment(seg))

		if len(current) > 0 && currentLen+segLen > maxChars {
			chunks = append(chunks, buildChunk(current, len(chunks)))

			// Overlap: seed the next chunk with the last segment of the one
			// just closed
			overlap := current[len(current)-1]
			current = []db.TranscriptSegment{overlap}
			currentLen = len(FormatSegment(overlap))
		}

		current = append(current, seg)
		currentLen += segLen
	}

	if len(current) > 0 {
		chunks = append(chunks, buildChunk(current, len(chunks)))
	}

	return chunks
}

// FormatSegment renders one utterance as "Speaker [HH:MM:SS]: text".
func FormatSegment(seg db.TranscriptSegment) string {
	return fmt.Sprintf("%s [%s]: %s", seg.Speaker, formatTimestamp(seg.StartTime), seg.Content)
}

func formatTimestamp(seconds *float64) string {
	if seconds == nil {
		return "00:00:00"
	}
	s := int(*seconds)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

func buildChunk(segments []db.TranscriptSegment, position int) db.TranscriptChunk {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = FormatSegment(seg)
	}
	return db.TranscriptChunk{
		ID:           uuid.New().String(),
		TranscriptID: segments[0].TranscriptID,
		Content:      strings.Join(parts, "\n\n"),
		StartTime:    segments[0].StartTime,
		EndTime:      segments[len(segments)-1].EndTime,
		Position:     position,
	}
}
