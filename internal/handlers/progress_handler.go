package handlers

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AndrewDonelson/lyric-frame-studio/internal/database"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/services"
)

// KeepaliveInterval is how often an idle SSE stream is pinged
var KeepaliveInterval = 30 * time.Second

// ProgressHandler handles progress streaming
type ProgressHandler struct {
	broadcaster *services.ProgressBroadcaster
	videoRepo   *database.VideoJobRepository
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(broadcaster *services.ProgressBroadcaster, videoRepo *database.VideoJobRepository) *ProgressHandler {
	return &ProgressHandler{
		broadcaster: broadcaster,
		videoRepo:   videoRepo,
	}
}

// StreamProgress streams progress updates for every job via Server-Sent Events
func (h *ProgressHandler) StreamProgress(c *gin.Context) {
	h.stream(c, "")
}

// StreamJobProgress streams progress for a single video job
func (h *ProgressHandler) StreamJobProgress(c *gin.Context) {
	h.stream(c, c.Param("id"))
}

func (h *ProgressHandler) stream(c *gin.Context, jobID string) {
	// Set headers for SSE
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Subscribe to progress updates
	clientChan := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(clientChan)

	clientGone := c.Request.Context().Done()

	// Send initial connection confirmation
	c.Writer.Write([]byte(services.FormatSSE(services.ProgressUpdate{
		JobID:     jobID,
		Message:   "connected",
		Timestamp: time.Now(),
	})))
	c.Writer.Flush()

	keepalive := time.NewTicker(KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-clientGone:
			log.Println("Client disconnected from progress stream")
			return
		case update := <-clientChan:
			if jobID != "" && update.JobID != jobID {
				continue
			}
			data := services.FormatSSE(update)
			if data == "" {
				continue
			}
			if _, err := c.Writer.Write([]byte(data)); err != nil {
				if err != io.EOF {
					log.Printf("Error writing SSE data: %v", err)
				}
				return
			}
			c.Writer.Flush()
		case <-keepalive.C:
			c.Writer.Write([]byte(": keepalive\n\n"))
			c.Writer.Flush()
		}
	}
}

// GetStats returns broadcaster and queue statistics
func (h *ProgressHandler) GetStats(c *gin.Context) {
	counts, err := h.videoRepo.CountByStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sent, dropped := h.broadcaster.Stats()
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": h.broadcaster.ClientCount(),
		"updates_sent":      sent,
		"updates_dropped":   dropped,
		"video_jobs":        counts,
		"timestamp":         time.Now(),
	})
}
