package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/AndrewDonelson/lyric-frame-studio/config"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/database"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/models"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/services"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/utils"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/audio"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/frame"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/logger"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/lyrics"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/video"
)

// loggingSequencer is a Sequencer that can log into a job's render log
type loggingSequencer interface {
	WithLogger(l *logger.RenderLogger) video.Sequencer
}

// Processor runs the lyric video pipeline for one job
type Processor struct {
	repo        *database.VideoJobRepository
	broadcaster *services.ProgressBroadcaster
	config      *config.Config
	compositor  *frame.Compositor
	frames      *storage.FileSink
	sink        storage.Sink
	sequencer   video.Sequencer

	// ProbeDuration reads the audio length; replaced in tests
	ProbeDuration func(path string) (float64, error)
}

// NewProcessor creates a new processor. Frames are always written to frames
// so they can be assembled; mirror, if set, receives a copy of each frame.
func NewProcessor(
	repo *database.VideoJobRepository,
	broadcaster *services.ProgressBroadcaster,
	cfg *config.Config,
	compositor *frame.Compositor,
	frames *storage.FileSink,
	mirror storage.Sink,
	sequencer video.Sequencer,
) *Processor {
	var sink storage.Sink = frames
	if mirror != nil {
		sink = storage.MultiSink{frames, mirror}
	}
	return &Processor{
		repo:          repo,
		broadcaster:   broadcaster,
		config:        cfg,
		compositor:    compositor,
		frames:        frames,
		sink:          sink,
		sequencer:     sequencer,
		ProbeDuration: audio.ProbeDuration,
	}
}

// Process executes the full pipeline: lyrics, frames, prepare, assemble
func (p *Processor) Process(ctx context.Context, job *models.VideoJob) (err error) {
	log.Printf("Starting processing pipeline for video job %s (%s)", job.ID, job.Name)

	renderLog, lerr := logger.NewRenderLogger(p.config.StoragePath, job.ID, p.config.LogLevel)
	if lerr != nil {
		log.Printf("Warning: failed to create render logger: %v", lerr)
		renderLog = nil // Continue without logging
	}
	job.LogPath = renderLog.GetLogPath()

	renderLog.Info("Starting lyric video pipeline for: %s", job.Name)
	renderLog.Property("Job ID", job.ID)
	renderLog.Property("Format", job.Format)
	renderLog.Property("Resolution", fmt.Sprintf("%dx%d", job.Width, job.Height))
	renderLog.Property("Framerate", job.Framerate)
	defer func() {
		if r := recover(); r != nil {
			renderLog.Error("Pipeline panicked: %v", r)
			renderLog.Close(false, fmt.Sprintf("Panic: %v", r))
			err = fmt.Errorf("pipeline panicked: %v", r)
		}
	}()

	fail := func(phase string, err error) error {
		renderLog.Error("%s failed: %v", phase, err)
		renderLog.Close(false, err.Error())
		return fmt.Errorf("%s failed: %w", phase, err)
	}

	output := video.Job{Name: job.Name, Format: job.Format, Framerate: job.Framerate, Resolution: [2]int{job.Width, job.Height}}
	if err := output.ValidateOutput(); err != nil {
		return fail("job validation", err)
	}

	// Phase 1: Lyrics (0-10%)
	cues, err := p.processLyrics(job, renderLog)
	if err != nil {
		return fail("lyrics processing", err)
	}

	// Phase 2: Frames (10-80%)
	keys, err := p.renderFrames(ctx, job, cues, renderLog)
	if err != nil {
		return fail("frame rendering", err)
	}

	// Phase 3: Prepare (80-85%)
	prepared, err := p.prepareFrames(ctx, job, cues, keys, renderLog)
	if err != nil {
		return fail("frame preparation", err)
	}

	// Phase 4: Assemble (85-100%)
	if err := p.assemble(ctx, job, prepared, renderLog); err != nil {
		return fail("video assembly", err)
	}

	renderLog.Success("Lyric video pipeline completed successfully")
	renderLog.Close(true, "All phases completed without errors")
	return nil
}

// processLyrics turns the sheet into cues, probing the audio for the song length
func (p *Processor) processLyrics(job *models.VideoJob, renderLog *logger.RenderLogger) ([]lyrics.Cue, error) {
	renderLog.Phase("LYRICS PROCESSING", "Parsing and timing lyrics")
	renderLog.Property("Raw Lyrics Length", len(job.Lyrics))
	p.updateProgress(job, "Processing lyrics", 2, "Parsing lyric sheet")

	opts := lyrics.Options{DefaultDuration: p.config.DefaultCueDuration}
	if job.AudioPath != "" {
		p.updateProgress(job, "Processing lyrics", 4, "Probing audio duration")
		duration, err := p.ProbeDuration(job.AudioPath)
		if err != nil {
			return nil, fmt.Errorf("failed to probe audio: %w", err)
		}
		opts.TotalDuration = duration
		renderLog.Property("Audio Duration", fmt.Sprintf("%.2fs", duration))
	}

	cues, err := lyrics.ParseSheet(job.Lyrics, opts)
	if err != nil {
		return nil, err
	}
	for _, c := range cues {
		renderLog.Debug("  Cue %d: %.2fs +%.2fs [%s] %q", c.Index+1, c.Start, c.Duration, c.Section, c.Text)
	}
	renderLog.Success("Parsed %d cues (timed: %v)", len(cues), lyrics.HasTimestamps(job.Lyrics))

	job.FrameCount = len(cues)
	p.updateProgress(job, "Processing lyrics", 10, fmt.Sprintf("Parsed %d lyric lines", len(cues)))
	return cues, nil
}

// renderFrames renders one frame per cue in parallel and returns the frame keys in order
func (p *Processor) renderFrames(ctx context.Context, job *models.VideoJob, cues []lyrics.Cue, renderLog *logger.RenderLogger) ([]string, error) {
	renderLog.Phase("FRAME RENDERING", fmt.Sprintf("Rendering %d frames with %d workers", len(cues), p.config.Workers))

	tasks := make([]FrameTask, len(cues))
	for i, c := range cues {
		tasks[i] = FrameTask{
			Index: i,
			Key:   utils.FrameKey(job.ID, i, p.config.OutputExt),
			Request: frame.Request{
				Text:           c.Text,
				FontPath:       job.FontPath,
				BackgroundPath: job.BackgroundPath,
				Opacity:        job.Opacity,
			},
		}
	}

	compositor := p.compositor.WithLogger(renderLog)
	results := RenderBatch(ctx, compositor, p.sink, tasks, p.config.Workers, func(done int, r FrameResult) {
		progress := 10 + done*70/len(tasks)
		msg := fmt.Sprintf("Rendered frame %d/%d", done, len(tasks))
		if r.Err != nil {
			msg = fmt.Sprintf("Frame %d failed: %v", r.Index, r.Err)
		}
		job.FramesRendered = done
		p.updateProgress(job, "Rendering frames", progress, msg)
	})

	if first, failed := FirstError(results); failed {
		return nil, fmt.Errorf("%d of %d frames failed; frame %d: %w", FailedCount(results), len(results), first.Index, first.Err)
	}

	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.Key
	}
	renderLog.Success("Rendered %d frames", len(keys))
	return keys, nil
}

// prepareFrames builds the assembly job and brings every frame to the job resolution
func (p *Processor) prepareFrames(ctx context.Context, job *models.VideoJob, cues []lyrics.Cue, keys []string, renderLog *logger.RenderLogger) (*video.Job, error) {
	renderLog.Phase("FRAME PREPARATION", "Normalizing frames to the target resolution")
	p.updateProgress(job, "Preparing frames", 80, "Normalizing frame resolution")

	vj := &video.Job{
		Name:       job.Name,
		Format:     job.Format,
		Framerate:  job.Framerate,
		Resolution: [2]int{job.Width, job.Height},
		Audio:      job.AudioPath,
		Frames:     make([]video.FrameRef, len(cues)),
	}
	for i, c := range cues {
		vj.Frames[i] = video.FrameRef{Image: p.frames.Path(keys[i]), Duration: c.Duration}
	}

	tempDir := utils.JobTempDir(p.config.TempPath, job.ID)
	prepared, err := video.PrepareFrames(ctx, vj, filepath.Join(tempDir, "frames"))
	if err != nil {
		return nil, err
	}

	jobFile := filepath.Join(tempDir, "video.json")
	if err := prepared.Save(jobFile); err != nil {
		renderLog.Error("Failed to save %s: %v", jobFile, err)
	} else {
		renderLog.Debug("Assembly job written to %s", jobFile)
	}

	renderLog.Property("Total Duration", fmt.Sprintf("%.2fs", prepared.TotalDuration()))
	p.updateProgress(job, "Preparing frames", 85, "Frames ready for assembly")
	return prepared, nil
}

// assemble hands the prepared frames to the sequencer
func (p *Processor) assemble(ctx context.Context, job *models.VideoJob, prepared *video.Job, renderLog *logger.RenderLogger) error {
	renderLog.Phase("VIDEO ASSEMBLY", fmt.Sprintf("Encoding %s", prepared.OutputName()))
	p.updateProgress(job, "Assembling video", 86, "Encoding video")

	seq := p.sequencer
	if ls, ok := seq.(loggingSequencer); ok {
		seq = ls.WithLogger(renderLog)
	}

	outPath, err := seq.Assemble(ctx, prepared, p.config.VideosPath)
	if err != nil {
		return err
	}

	job.OutputPath = outPath
	if info, err := os.Stat(outPath); err == nil {
		job.OutputSize = info.Size()
	}
	renderLog.Success("Video written to %s (%d bytes)", outPath, job.OutputSize)
	p.updateProgress(job, "Assembling video", 99, "Video encoded")
	return nil
}

// updateProgress records and broadcasts the current step
func (p *Processor) updateProgress(job *models.VideoJob, step string, progress int, message string) {
	job.CurrentStep = step
	job.Progress = progress

	if err := p.repo.UpdateProgress(job.ID, step, progress, job.FramesRendered); err != nil {
		log.Printf("Warning: failed to save progress for job %s: %v", job.ID, err)
	}
	p.broadcaster.BroadcastFromVideoJob(job, message)

	log.Printf("[Job %s] %s: %d%% - %s", job.ID, step, progress, message)
}
