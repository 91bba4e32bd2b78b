package transcript

import (
	"sort"
	"strings"
	"unicode"

	"github.com/huddlehq/huddle/pkg/db"
)

// DefaultRetrievalLimit caps how many chunks feed the meeting prompt.
const DefaultRetrievalLimit = 10

// ChunkSeparator joins selected chunks into one context block.
const ChunkSeparator = "\n\n---\n\n"

// Select returns the most relevant chunks for the query, at most limit.
//
// With a non-empty query every chunk is scored by term frequency weighted
// by query-term coverage over normalized text, and the top scorers are
// returned in descending score order. When nothing matches, or the query
// is empty, the first chunks by ascending position are returned instead,
// so the caller always gets context when chunks exist.
func Select(chunks []db.TranscriptChunk, query string, limit int) []db.TranscriptChunk {
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}
	if len(chunks) == 0 {
		return nil
	}

	if ranked := Rank(chunks, query, limit); len(ranked) > 0 {
		return ranked
	}

	// Fallback: first chunks by position
	byPos := make([]db.TranscriptChunk, len(chunks))
	copy(byPos, chunks)
	sort.SliceStable(byPos, func(i, j int) bool {
		return byPos[i].Position < byPos[j].Position
	})
	if len(byPos) > limit {
		byPos = byPos[:limit]
	}
	return byPos
}

// Rank scores every chunk against the query and returns those with a
// positive score, best first, at most limit. Unlike Select there is no
// positional fallback: an unmatched query yields nothing.
func Rank(chunks []db.TranscriptChunk, query string, limit int) []db.TranscriptChunk {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}
	type scored struct {
		chunk db.TranscriptChunk
		score float64
	}

	var hits []scored
	for _, c := range chunks {
		words := tokenize(c.Content)
		if len(words) == 0 {
			continue
		}
		freq := make(map[string]int, len(words))
		for _, w := range words {
			freq[w]++
		}

		matches := 0
		covered := 0
		for _, term := range terms {
			if n := freq[term]; n > 0 {
				matches += n
				covered++
			}
		}
		if matches == 0 {
			continue
		}

		// Term frequency normalized by chunk length, boosted by how many
		// distinct query terms the chunk covers
		tf := float64(matches) / float64(len(words))
		coverage := float64(covered) / float64(len(terms))
		hits = append(hits, scored{chunk: c, score: tf * (1 + coverage)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]db.TranscriptChunk, len(hits))
	for i, s := range hits {
		out[i] = s.chunk
	}
	return out
}

// JoinContext concatenates chunk contents into the prompt context block.
func JoinContext(chunks []db.TranscriptChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, ChunkSeparator)
}

// tokenize lowercases and splits text into alphanumeric words.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
