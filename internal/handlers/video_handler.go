package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AndrewDonelson/lyric-frame-studio/internal/database"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/models"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/services"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/lyrics"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/video"
)

// VideoHandler queues lyric videos
type VideoHandler struct {
	repo               *database.VideoJobRepository
	broadcaster        *services.ProgressBroadcaster
	defaultCueDuration float64
}

func NewVideoHandler(repo *database.VideoJobRepository, broadcaster *services.ProgressBroadcaster, defaultCueDuration float64) *VideoHandler {
	return &VideoHandler{repo: repo, broadcaster: broadcaster, defaultCueDuration: defaultCueDuration}
}

type createVideoRequest struct {
	Name           string   `json:"name" binding:"required"`
	Format         string   `json:"format"`
	Framerate      float64  `json:"framerate"`
	Resolution     [2]int   `json:"resolution"`
	Lyrics         string   `json:"lyrics" binding:"required"`
	FontPath       string   `json:"font_path" binding:"required"`
	BackgroundPath string   `json:"background_path" binding:"required"`
	AudioPath      string   `json:"audio_path"`
	Opacity        *float64 `json:"opacity"`
	Priority       int      `json:"priority"`
}

func (r *createVideoRequest) applyDefaults() {
	if r.Format == "" {
		r.Format = "mp4"
	}
	if r.Framerate == 0 {
		r.Framerate = 30
	}
	if r.Resolution == [2]int{} {
		r.Resolution = [2]int{1920, 1080}
	}
}

// validate applies the assembly job rules before anything is queued, so a
// request the Sequencer would reject fails here rather than in the worker
func (r *createVideoRequest) validate() error {
	out := video.Job{Name: r.Name, Format: r.Format, Framerate: r.Framerate, Resolution: r.Resolution}
	if err := out.ValidateOutput(); err != nil {
		return err
	}
	if r.Opacity != nil && !(*r.Opacity >= 0 && *r.Opacity <= 1) {
		return fmt.Errorf("opacity must be in [0, 1], got %v", *r.Opacity)
	}
	return nil
}

// Create validates the lyric sheet and queues a video job
func (h *VideoHandler) Create(c *gin.Context) {
	var req createVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.applyDefaults()
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Reject malformed sheets now rather than after the job is picked up
	cues, err := lyrics.ParseSheet(req.Lyrics, lyrics.Options{DefaultDuration: h.defaultCueDuration})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lyrics: " + err.Error()})
		return
	}

	opacity := 1.0
	if req.Opacity != nil {
		opacity = *req.Opacity
	}

	job := &models.VideoJob{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Format:         req.Format,
		Framerate:      req.Framerate,
		Width:          req.Resolution[0],
		Height:         req.Resolution[1],
		Lyrics:         req.Lyrics,
		FontPath:       req.FontPath,
		BackgroundPath: req.BackgroundPath,
		AudioPath:      req.AudioPath,
		Opacity:        opacity,
		Priority:       req.Priority,
		Status:         models.StatusQueued,
		CurrentStep:    "Queued",
		FrameCount:     len(cues),
		QueuedAt:       time.Now().UTC(),
	}
	if err := h.repo.Create(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.broadcaster.BroadcastFromVideoJob(job, "Video queued")
	c.JSON(http.StatusCreated, job)
}

// GetAll returns video jobs, optionally filtered by ?status=
func (h *VideoHandler) GetAll(c *gin.Context) {
	jobs, err := h.repo.GetAll(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []models.VideoJob{}
	}

	c.JSON(http.StatusOK, jobs)
}

// GetByID returns a single video job
func (h *VideoHandler) GetByID(c *gin.Context) {
	job, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}
