package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AndrewDonelson/lyric-frame-studio/internal/database"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/models"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/utils"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/frame"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
)

// FrameHandler renders single frames on request
type FrameHandler struct {
	repo       *database.FrameJobRepository
	compositor *frame.Compositor
	frames     *storage.FileSink
	sink       storage.Sink
	ext        string
}

// NewFrameHandler creates a frame handler. Frames are saved to frames and,
// when mirror is set, copied there too.
func NewFrameHandler(repo *database.FrameJobRepository, compositor *frame.Compositor, frames *storage.FileSink, mirror storage.Sink, ext string) *FrameHandler {
	var sink storage.Sink = frames
	if mirror != nil {
		sink = storage.MultiSink{frames, mirror}
	}
	return &FrameHandler{repo: repo, compositor: compositor, frames: frames, sink: sink, ext: ext}
}

type createFrameRequest struct {
	Text           string   `json:"text"`
	FontPath       string   `json:"font_path" binding:"required"`
	BackgroundPath string   `json:"background_path" binding:"required"`
	Opacity        *float64 `json:"opacity"`
}

// Create renders one frame synchronously and records the result
func (h *FrameHandler) Create(c *gin.Context) {
	var req createFrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opacity := 1.0
	if req.Opacity != nil {
		opacity = *req.Opacity
	}

	id := uuid.NewString()
	job := &models.FrameJob{
		ID:             id,
		Text:           req.Text,
		FontPath:       req.FontPath,
		BackgroundPath: req.BackgroundPath,
		Opacity:        opacity,
		Status:         models.StatusProcessing,
		OutputKey:      utils.SingleFrameKey(id, h.ext),
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.repo.Create(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	fr, err := h.compositor.RenderTo(c.Request.Context(), frame.Request{
		Text:           req.Text,
		FontPath:       req.FontPath,
		BackgroundPath: req.BackgroundPath,
		Opacity:        opacity,
	}, h.sink, job.OutputKey)

	completed := time.Now().UTC()
	job.CompletedAt = &completed
	if err != nil {
		job.Status = models.StatusFailed
		job.ErrorKind = errorKind(err)
		job.ErrorMessage = err.Error()
		if uerr := h.repo.Update(job); uerr != nil {
			log.Printf("Error recording failed frame %s: %v", id, uerr)
		}
		c.JSON(renderStatus(err), gin.H{"error": err.Error(), "kind": job.ErrorKind, "frame": job})
		return
	}

	bounds := fr.Image.Bounds()
	job.Status = models.StatusCompleted
	job.OutputPath = h.frames.Path(job.OutputKey)
	job.Width = bounds.Dx()
	job.Height = bounds.Dy()
	job.LineCount = len(fr.Lines)
	if err := h.repo.Update(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetAll returns recent frame jobs
func (h *FrameHandler) GetAll(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	jobs, err := h.repo.GetAll(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []models.FrameJob{}
	}

	c.JSON(http.StatusOK, jobs)
}

// GetByID returns a single frame job
func (h *FrameHandler) GetByID(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetImage serves the rendered frame
func (h *FrameHandler) GetImage(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}
	if job.Status != models.StatusCompleted || job.OutputPath == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Frame has no image", "status": job.Status})
		return
	}
	c.File(job.OutputPath)
}

func (h *FrameHandler) lookup(c *gin.Context) (*models.FrameJob, bool) {
	job, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Frame not found"})
		return nil, false
	}
	return job, true
}

// renderStatus maps a render failure to an HTTP status
func renderStatus(err error) int {
	switch {
	case frame.IsResourceNotFound(err):
		return http.StatusNotFound
	case frame.IsLoadFailure(err), errors.Is(err, frame.ErrInvalidOptions):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func errorKind(err error) string {
	var re *frame.RenderError
	if errors.As(err, &re) {
		return re.Kind.String()
	}
	if errors.Is(err, frame.ErrInvalidOptions) {
		return "invalid options"
	}
	return "internal"
}
