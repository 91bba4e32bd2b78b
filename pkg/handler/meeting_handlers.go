// Meeting and transcript HTTP handlers
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/db"
	"github.com/huddlehq/huddle/pkg/queue"
	"github.com/huddlehq/huddle/pkg/service"
)

// MeetingHandler handles meeting, transcript and insight HTTP requests
type MeetingHandler struct {
	db          *gorm.DB
	transcripts *service.TranscriptService
	insights    *service.InsightService
	queue       *queue.Queue
}

func NewMeetingHandler(gdb *gorm.DB, ts *service.TranscriptService, is *service.InsightService, q *queue.Queue) *MeetingHandler {
	return &MeetingHandler{db: gdb, transcripts: ts, insights: is, queue: q}
}

// RegisterRoutes registers meeting routes
func (h *MeetingHandler) RegisterRoutes(r *gin.RouterGroup) {
	meetings := r.Group("/meetings")
	{
		meetings.POST("", h.CreateMeeting)
		meetings.GET("", h.ListMeetings)
		meetings.GET(":id", h.GetMeeting)
		meetings.DELETE(":id", h.DeleteMeeting)

		meetings.POST(":id/transcript", h.ImportTranscript)
		meetings.GET(":id/transcript", h.GetTranscript)
		meetings.POST(":id/insights", h.GenerateInsights)
		meetings.GET(":id/summary", h.GetSummary)
		meetings.GET(":id/action-items", h.GetActionItems)
	}
}

// CreateMeeting creates a meeting record. The recording itself is handled
// by the upload pipeline; this only registers the meeting.
// POST /api/meetings
func (h *MeetingHandler) CreateMeeting(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meeting := db.Meeting{
		ID:     uuid.New().String(),
		Title:  req.Title,
		Status: db.MeetingStatusUploading,
	}
	if err := h.db.Create(&meeting).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, meeting)
}

// ListMeetings lists all meetings, newest first
// GET /api/meetings
func (h *MeetingHandler) ListMeetings(c *gin.Context) {
	var meetings []db.Meeting
	if err := h.db.Order("created_at DESC").Find(&meetings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

// GetMeeting gets a meeting by ID
// GET /api/meetings/:id
func (h *MeetingHandler) GetMeeting(c *gin.Context) {
	var meeting db.Meeting
	if err := h.db.First(&meeting, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, meeting)
}

// DeleteMeeting deletes a meeting and everything derived from it
// DELETE /api/meetings/:id
func (h *MeetingHandler) DeleteMeeting(c *gin.Context) {
	id := c.Param("id")
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var tr db.Transcript
		if err := tx.First(&tr, "meeting_id = ?", id).Error; err == nil {
			if err := tx.Where("transcript_id = ?", tr.ID).Delete(&db.TranscriptChunk{}).Error; err != nil {
				return err
			}
			if err := tx.Where("transcript_id = ?", tr.ID).Delete(&db.TranscriptSegment{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&tr).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("meeting_id = ?", id).Delete(&db.Summary{}).Error; err != nil {
			return err
		}
		if err := tx.Where("meeting_id = ?", id).Delete(&db.ActionItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Meeting{}, "id = ?", id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ImportTranscript stores the transcription result for a meeting and
// schedules chunk generation
// POST /api/meetings/:id/transcript
func (h *MeetingHandler) ImportTranscript(c *gin.Context) {
	var req struct {
		Segments []service.SegmentInput `json:"segments" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tr, err := h.transcripts.ImportSegments(c.Request.Context(), c.Param("id"), req.Segments)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tr)
}

// GetTranscript returns a meeting's transcript segments in order
// GET /api/meetings/:id/transcript
func (h *MeetingHandler) GetTranscript(c *gin.Context) {
	var tr db.Transcript
	if err := h.db.First(&tr, "meeting_id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transcript not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	segments, err := h.transcripts.GetSegments(c.Request.Context(), tr.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": tr, "segments": segments})
}

// GenerateInsights schedules summary generation and action item
// extraction as background work
// POST /api/meetings/:id/insights
func (h *MeetingHandler) GenerateInsights(c *gin.Context) {
	id := c.Param("id")

	var meeting db.Meeting
	if err := h.db.First(&meeting, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.queue.Enqueue(service.LaneBulk, "meeting summary "+id, func(ctx context.Context) error {
		return h.insights.GenerateSummary(ctx, id)
	})
	h.queue.Enqueue(service.LaneBulk, "meeting action items "+id, func(ctx context.Context) error {
		return h.insights.ExtractActionItems(ctx, id)
	})

	c.JSON(http.StatusAccepted, gin.H{"scheduled": true})
}

// GetSummary returns the stored summary for a meeting
// GET /api/meetings/:id/summary
func (h *MeetingHandler) GetSummary(c *gin.Context) {
	var summary db.Summary
	if err := h.db.First(&summary, "meeting_id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "summary not available"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetActionItems returns a meeting's action items
// GET /api/meetings/:id/action-items
func (h *MeetingHandler) GetActionItems(c *gin.Context) {
	var items []db.ActionItem
	if err := h.db.Where("meeting_id = ?", c.Param("id")).
		Order("created_at").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"action_items": items})
}
