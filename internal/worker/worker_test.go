package worker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AndrewDonelson/lyric-frame-studio/config"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/database"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/models"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/services"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/fonts"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/frame"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/logger"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/video"
)

const testFont = fonts.BuiltinPrefix + "go-regular"

func writeBackground(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: uint8(x % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

type fakeSequencer struct {
	mu   sync.Mutex
	jobs []*video.Job
	err  error
}

func (f *fakeSequencer) Assemble(ctx context.Context, job *video.Job, outputDir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	out := filepath.Join(outputDir, job.OutputName())
	return out, os.WriteFile(out, []byte("video"), 0644)
}

type fixture struct {
	dir    string
	bg     string
	repo   *database.VideoJobRepository
	seq    *fakeSequencer
	worker *Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "data", "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		StoragePath:        dir,
		FramesPath:         filepath.Join(dir, "frames"),
		VideosPath:         filepath.Join(dir, "videos"),
		TempPath:           filepath.Join(dir, "temp"),
		LogsPath:           filepath.Join(dir, "logs"),
		Workers:            2,
		OutputExt:          ".png",
		DefaultCueDuration: 2,
		LogLevel:           logger.LevelDebug,
	}

	bg := filepath.Join(dir, "bg.png")
	writeBackground(t, bg, 320, 180)

	repo := database.NewVideoJobRepository(db)
	compositor := frame.NewCompositor(frame.Options{FontSize: 40, LineSpacing: 10, CanvasWidth: 640, WrapRatio: 0.9}, fonts.NewLibrary())
	seq := &fakeSequencer{}
	proc := NewProcessor(repo, services.NewProgressBroadcaster(), cfg, compositor, storage.NewFileSink(cfg.FramesPath), nil, seq)
	proc.ProbeDuration = func(path string) (float64, error) {
		if path == "missing.mp3" {
			return 0, errors.New("no such file")
		}
		return 5, nil
	}

	return &fixture{
		dir:    dir,
		bg:     bg,
		repo:   repo,
		seq:    seq,
		worker: NewWorker(repo, services.NewProgressBroadcaster(), proc, time.Hour),
	}
}

func (f *fixture) queue(t *testing.T, id, sheet, audio, bg string) {
	t.Helper()
	f.queueFormat(t, id, "mp4", sheet, audio, bg)
}

func (f *fixture) queueFormat(t *testing.T, id, format, sheet, audio, bg string) {
	t.Helper()
	err := f.repo.Create(&models.VideoJob{
		ID: id, Name: "song_" + id, Format: format, Framerate: 30, Width: 320, Height: 180,
		Lyrics: sheet, FontPath: testFont, BackgroundPath: bg, AudioPath: audio,
		Opacity: 1, Status: models.StatusQueued, QueuedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestWorkerProcessesTimedJob(t *testing.T) {
	f := newFixture(t)
	f.queue(t, "j1", "[Verse 1]\n[00:00.00]first line\n[00:02.00]second line of the song", "song.mp3", f.bg)

	if !f.worker.ProcessNext() {
		t.Fatal("expected a job to be processed")
	}

	job, err := f.repo.GetByID("j1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.StatusCompleted || job.Progress != 100 {
		t.Fatalf("job = %s %d%% (%s)", job.Status, job.Progress, job.ErrorMessage)
	}
	if job.FrameCount != 2 || job.FramesRendered != 2 {
		t.Errorf("frames %d/%d", job.FramesRendered, job.FrameCount)
	}
	if job.OutputPath != filepath.Join(f.dir, "videos", "song_j1.mp4") || job.OutputSize != int64(len("video")) {
		t.Errorf("output %s (%d bytes)", job.OutputPath, job.OutputSize)
	}
	if _, err := os.Stat(job.LogPath); err != nil {
		t.Errorf("render log missing: %v", err)
	}

	if len(f.seq.jobs) != 1 {
		t.Fatalf("sequencer called %d times", len(f.seq.jobs))
	}
	vj := f.seq.jobs[0]
	if vj.Frames[0].Duration != 2 || vj.Frames[1].Duration != 3 {
		t.Errorf("durations = %v, %v", vj.Frames[0].Duration, vj.Frames[1].Duration)
	}
	for i, ref := range vj.Frames {
		img, err := frame.DecodeImage(ref.Image)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 180 {
			t.Errorf("frame %d is %v, want job resolution", i, img.Bounds())
		}
	}
	if _, err := os.Stat(filepath.Join(f.dir, "frames", "j1", "0001.png")); err != nil {
		t.Errorf("rendered frame missing: %v", err)
	}

	if f.worker.ProcessNext() {
		t.Error("queue should be empty")
	}
}

func TestWorkerFailsJobWithBadFrames(t *testing.T) {
	f := newFixture(t)
	f.queue(t, "bad", "one\ntwo\nthree", "", filepath.Join(f.dir, "missing.png"))

	f.worker.ProcessNext()

	job, _ := f.repo.GetByID("bad")
	if job.Status != models.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "3 of 3 frames failed; frame 0") || job.RetryCount != 1 {
		t.Errorf("error %q retries %d", job.ErrorMessage, job.RetryCount)
	}
	if len(f.seq.jobs) != 0 {
		t.Error("sequencer must not run when frames failed")
	}
}

func TestWorkerFailsOnProbeAndSequencerErrors(t *testing.T) {
	f := newFixture(t)
	f.queue(t, "probe", "hello", "missing.mp3", f.bg)
	f.worker.ProcessNext()
	if job, _ := f.repo.GetByID("probe"); job.Status != models.StatusFailed || !strings.Contains(job.ErrorMessage, "probe audio") {
		t.Errorf("probe job = %s %q", job.Status, job.ErrorMessage)
	}

	f.seq.err = errors.New("encoder exploded")
	f.queue(t, "seq", "hello", "", f.bg)
	f.worker.ProcessNext()
	if job, _ := f.repo.GetByID("seq"); job.Status != models.StatusFailed || !strings.Contains(job.ErrorMessage, "encoder exploded") {
		t.Errorf("sequencer job = %s %q", job.Status, job.ErrorMessage)
	}
}

func TestWorkerRejectsEscapingFormat(t *testing.T) {
	f := newFixture(t)
	f.queueFormat(t, "esc", "mp4/../../../../tmp/escaped", "hello", "", f.bg)

	f.worker.ProcessNext()

	job, _ := f.repo.GetByID("esc")
	if job.Status != models.StatusFailed || !strings.Contains(job.ErrorMessage, "bare extension") {
		t.Fatalf("job = %s %q", job.Status, job.ErrorMessage)
	}
	if len(f.seq.jobs) != 0 || job.FramesRendered != 0 {
		t.Errorf("pipeline ran for an invalid job")
	}
}

func TestWorkerStartStop(t *testing.T) {
	f := newFixture(t)
	f.queue(t, "s1", "only line", "", f.bg)

	go f.worker.Start()
	deadline := time.Now().Add(10 * time.Second)
	for {
		job, _ := f.repo.GetByID("s1")
		if job.Status == models.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job not processed, status %s", job.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
	f.worker.Stop()
	f.worker.Stop()
}
