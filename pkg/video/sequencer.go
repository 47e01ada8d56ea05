package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/AndrewDonelson/lyric-frame-studio/pkg/logger"
)

// Sequencer concatenates ordered, already-normalized frames in time and
// muxes in the job's audio. It returns the path of the encoded video.
type Sequencer interface {
	Assemble(ctx context.Context, job *Job, outputDir string) (string, error)
}

// Runner executes a command and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpegSequencer assembles videos with the ffmpeg concat demuxer
type FFmpegSequencer struct {
	FFmpegPath string
	TempDir    string
	Logger     *logger.RenderLogger
	Run        Runner
}

// NewFFmpegSequencer creates a sequencer; an empty ffmpegPath uses "ffmpeg" from PATH
func NewFFmpegSequencer(ffmpegPath, tempDir string) *FFmpegSequencer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegSequencer{
		FFmpegPath: ffmpegPath,
		TempDir:    tempDir,
		Run:        execRunner,
	}
}

// WithLogger returns a copy of s that logs to l
func (s *FFmpegSequencer) WithLogger(l *logger.RenderLogger) Sequencer {
	cp := *s
	cp.Logger = l
	return &cp
}

// Assemble writes the concat list, runs ffmpeg and returns outputDir/{name}.{format}
func (s *FFmpegSequencer) Assemble(ctx context.Context, job *Job, outputDir string) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}
	if job.Audio != "" {
		if _, err := os.Stat(job.Audio); err != nil {
			return "", fmt.Errorf("audio file not found: %w", err)
		}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tempDir := s.TempDir
	if tempDir == "" {
		tempDir = outputDir
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	list, err := BuildConcatList(job)
	if err != nil {
		return "", err
	}
	listFile, err := os.CreateTemp(tempDir, job.Name+"-*.ffconcat")
	if err != nil {
		return "", fmt.Errorf("failed to create concat list: %w", err)
	}
	listPath := listFile.Name()
	defer os.Remove(listPath)
	if _, err := listFile.WriteString(list); err != nil {
		listFile.Close()
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}
	if err := listFile.Close(); err != nil {
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}

	outPath := filepath.Join(outputDir, job.OutputName())
	args := BuildArgs(job, listPath, outPath)

	s.Logger.Info("Assembling %d frames (%.2fs) into %s", len(job.Frames), job.TotalDuration(), outPath)
	s.Logger.Debug("Command: %s %s", s.FFmpegPath, strings.Join(args, " "))

	run := s.Run
	if run == nil {
		run = execRunner
	}
	output, err := run(ctx, s.FFmpegPath, args...)
	if err != nil {
		s.Logger.Error("ffmpeg output:\n%s", output)
		return "", fmt.Errorf("ffmpeg assemble failed: %w\nOutput: %s", err, string(output))
	}

	s.Logger.Info("✓ Video assembled: %s", outPath)
	return outPath, nil
}

// BuildConcatList renders the ffconcat script for job's frames. The last
// file is listed twice so the demuxer honors its duration.
func BuildConcatList(job *Job) (string, error) {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")

	var last string
	for i, f := range job.Frames {
		abs, err := filepath.Abs(f.Image)
		if err != nil {
			return "", fmt.Errorf("frame %d: %w", i, err)
		}
		fmt.Fprintf(&b, "file %s\nduration %s\n", quoteConcatPath(abs), formatSeconds(f.Duration))
		last = abs
	}
	if last != "" {
		fmt.Fprintf(&b, "file %s\n", quoteConcatPath(last))
	}
	return b.String(), nil
}

// BuildArgs returns the ffmpeg arguments that encode listPath (and the
// job's audio, if any) into outPath
func BuildArgs(job *Job, listPath, outPath string) []string {
	streams := []*ffmpeg.Stream{
		ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).Video(),
	}
	if job.Audio != "" {
		streams = append(streams, ffmpeg.Input(job.Audio).Audio())
	}

	kw := ffmpeg.KwArgs{
		"r": formatSeconds(job.Framerate),
		"t": formatSeconds(job.TotalDuration()),
	}
	for k, v := range codecArgs(job.Format, job.Audio != "") {
		kw[k] = v
	}

	return ffmpeg.Output(streams, outPath, kw).OverWriteOutput().GetArgs()
}

func codecArgs(format string, withAudio bool) ffmpeg.KwArgs {
	var kw ffmpeg.KwArgs
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "gif":
		return ffmpeg.KwArgs{}
	case "webm":
		kw = ffmpeg.KwArgs{"c:v": "libvpx-vp9", "pix_fmt": "yuv420p"}
		if withAudio {
			kw["c:a"] = "libopus"
		}
	default:
		kw = ffmpeg.KwArgs{"c:v": "libx264", "pix_fmt": "yuv420p"}
		if withAudio {
			kw["c:a"] = "aac"
			kw["b:a"] = "192k"
		}
	}
	return kw
}

func quoteConcatPath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
