package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/db"
	"github.com/huddlehq/huddle/pkg/event"
	"github.com/huddlehq/huddle/pkg/queue"
	"github.com/huddlehq/huddle/pkg/transcript"
	"github.com/huddlehq/huddle/pkg/utils"
)

// SegmentInput is one utterance delivered by the transcription pipeline.
type SegmentInput struct {
	Speaker   string   `json:"speaker"`
	Content   string   `json:"content"`
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
}

// TranscriptService imports transcription output and maintains the derived
// retrieval chunks.
type TranscriptService struct {
	db             *gorm.DB
	queue          *queue.Queue
	emitter        *event.Emitter
	chunkMaxTokens int
	logger         *slog.Logger
}

func NewTranscriptService(gdb *gorm.DB, q *queue.Queue, emitter *event.Emitter, chunkMaxTokens int) *TranscriptService {
	if chunkMaxTokens <= 0 {
		chunkMaxTokens = transcript.DefaultMaxTokens
	}
	return &TranscriptService{
		db:             gdb,
		queue:          q,
		emitter:        emitter,
		chunkMaxTokens: chunkMaxTokens,
		logger:         utils.GetLogger(),
	}
}

// ImportSegments stores a meeting's transcription result. Segments are
// written once in delivery order and never mutated afterwards; chunk
// generation is enqueued as background work.
func (s *TranscriptService) ImportSegments(ctx context.Context, meetingID string, segments []SegmentInput) (*db.Transcript, error) {
	var meeting db.Meeting
	if err := s.db.WithContext(ctx).First(&meeting, "id = ?", meetingID).Error; err != nil {
		return nil, fmt.Errorf("meeting %s not found: %w", meetingID, err)
	}

	tr := db.Transcript{
		ID:        uuid.New().String(),
		MeetingID: meetingID,
		Status:    db.TranscriptStatusProcessing,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-import replaces the previous transcript wholesale
		var old db.Transcript
		if err := tx.First(&old, "meeting_id = ?", meetingID).Error; err == nil {
			if err := tx.Where("transcript_id = ?", old.ID).Delete(&db.TranscriptChunk{}).Error; err != nil {
				return fmt.Errorf("delete old chunks: %w", err)
			}
			if err := tx.Where("transcript_id = ?", old.ID).Delete(&db.TranscriptSegment{}).Error; err != nil {
				return fmt.Errorf("delete old segments: %w", err)
			}
			if err := tx.Delete(&old).Error; err != nil {
				return fmt.Errorf("delete old transcript: %w", err)
			}
		}

		if err := tx.Create(&tr).Error; err != nil {
			return fmt.Errorf("create transcript: %w", err)
		}
		for i, in := range segments {
			seg := db.TranscriptSegment{
				ID:           uuid.New().String(),
				TranscriptID: tr.ID,
				Speaker:      in.Speaker,
				Content:      in.Content,
				StartTime:    in.StartTime,
				EndTime:      in.EndTime,
				Position:     i,
			}
			if err := tx.Create(&seg).Error; err != nil {
				return fmt.Errorf("create segment %d: %w", i, err)
			}
		}

		tr.Status = db.TranscriptStatusCompleted
		if err := tx.Model(&tr).Update("status", tr.Status).Error; err != nil {
			return fmt.Errorf("mark transcript completed: %w", err)
		}
		return tx.Model(&meeting).Update("status", db.MeetingStatusProcessing).Error
	})
	if err != nil {
		return nil, err
	}

	s.queue.Enqueue(LaneBulk, "chunk transcript "+tr.ID, func(ctx context.Context) error {
		return s.RebuildChunks(ctx, tr.ID)
	})

	return &tr, nil
}

// RebuildChunks regenerates a transcript's retrieval chunks. The old set
// is deleted and the new set inserted in one transaction; chunks are never
// patched in place.
func (s *TranscriptService) RebuildChunks(ctx context.Context, transcriptID string) error {
	var tr db.Transcript
	if err := s.db.WithContext(ctx).First(&tr, "id = ?", transcriptID).Error; err != nil {
		return fmt.Errorf("transcript %s not found: %w", transcriptID, err)
	}

	var segments []db.TranscriptSegment
	if err := s.db.WithContext(ctx).Where("transcript_id = ?", tr.ID).
		Order("position").Find(&segments).Error; err != nil {
		return fmt.Errorf("load segments: %w", err)
	}

	chunks := transcript.Chunk(segments, s.chunkMaxTokens)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transcript_id = ?", tr.ID).Delete(&db.TranscriptChunk{}).Error; err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		for i := range chunks {
			if err := tx.Create(&chunks[i]).Error; err != nil {
				return fmt.Errorf("insert chunk %d: %w", chunks[i].Position, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("rebuilt transcript chunks", "transcript_id", tr.ID, "count", len(chunks))
	s.emitter.Emit(event.ChunksRebuiltEvent{TranscriptID: tr.ID, Count: len(chunks)})
	return nil
}

// GetSegments returns a transcript's segments in order.
func (s *TranscriptService) GetSegments(ctx context.Context, transcriptID string) ([]db.TranscriptSegment, error) {
	var segments []db.TranscriptSegment
	err := s.db.WithContext(ctx).Where("transcript_id = ?", transcriptID).
		Order("position").Find(&segments).Error
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	return segments, nil
}

// FormattedText renders the whole transcript as speaker-labeled text.
func (s *TranscriptService) FormattedText(ctx context.Context, transcriptID string) (string, error) {
	segments, err := s.GetSegments(ctx, transcriptID)
	if err != nil {
		return "", err
	}
	out := ""
	for i, seg := range segments {
		if i > 0 {
			out += "\n\n"
		}
		out += transcript.FormatSegment(seg)
	}
	return out, nil
}
