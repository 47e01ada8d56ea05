// Command lyricframe renders lyric frames and assembles them into videos
// without running the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/AndrewDonelson/lyric-frame-studio/pkg/audio"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/fonts"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/frame"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/logger"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/lyrics"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/video"
)

const usage = `usage: lyricframe <command> [flags]

commands:
  render    render one lyric frame to an image file
  cues      print the cues parsed from a lyric sheet
  assemble  normalize the frames of a video.json job and encode the video
`

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	var err error
	switch args[0] {
	case "render":
		err = runRender(ctx, args[1:], stdout, stderr)
	case "cues":
		err = runCues(args[1:], stdout, stderr)
	case "assemble":
		err = runAssemble(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	var ue usageError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.As(err, &ue):
		fmt.Fprintln(stderr, "lyricframe:", err)
		return exitUsage
	default:
		fmt.Fprintln(stderr, "lyricframe:", err)
		return exitFailed
	}
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{err.Error()}
	}
	if fs.NArg() > 0 {
		return usageError{fmt.Sprintf("unexpected arguments: %v", fs.Args())}
	}
	return nil
}

func newLogger(level string, w io.Writer) (*logger.RenderLogger, error) {
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return nil, usageError{err.Error()}
	}
	return logger.New(w, lvl), nil
}

func runRender(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	defaults := frame.DefaultOptions()

	fs := newFlagSet("render", stderr)
	text := fs.String("text", "", "lyric text to render")
	fontPath := fs.String("font", fonts.BuiltinPrefix+"go-regular", "TrueType/OpenType font file, or builtin:go-regular / builtin:go-bold")
	background := fs.String("background", "", "background image")
	out := fs.String("out", "", "output image; .jpg/.jpeg writes JPEG, anything else PNG")
	opacity := fs.Float64("opacity", 1, "text opacity in [0, 1]")
	size := fs.Int("size", defaults.FontSize, "font size in points")
	spacing := fs.Int("spacing", defaults.LineSpacing, "pixels between lines")
	width := fs.Int("width", defaults.CanvasWidth, "canvas width in pixels")
	logLevel := fs.String("log-level", "error", "trace, debug, info or error")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *background == "" || *out == "" {
		return usageError{"render requires -background and -out"}
	}

	log, err := newLogger(*logLevel, stderr)
	if err != nil {
		return err
	}

	opts := defaults
	opts.FontSize = *size
	opts.LineSpacing = *spacing
	opts.CanvasWidth = *width
	opts.Logger = log

	c := frame.NewCompositor(opts, nil)
	sink := storage.NewFileSink(filepath.Dir(*out))
	fr, err := c.RenderTo(ctx, frame.Request{
		Text:           *text,
		FontPath:       *fontPath,
		BackgroundPath: *background,
		Opacity:        *opacity,
	}, sink, filepath.Base(*out))
	if err != nil {
		return err
	}

	b := fr.Image.Bounds()
	fmt.Fprintf(stdout, "%s: %dx%d, %d line(s)\n", *out, b.Dx(), b.Dy(), len(fr.Lines))
	return nil
}

func runCues(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("cues", stderr)
	sheet := fs.String("lyrics", "", "lyric sheet, plain or LRC-timed")
	audioPath := fs.String("audio", "", "audio file whose length spreads untimed lines")
	duration := fs.Float64("duration", lyrics.DefaultCueDuration, "seconds per line when no audio is given")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *sheet == "" {
		return usageError{"cues requires -lyrics"}
	}

	raw, err := os.ReadFile(*sheet)
	if err != nil {
		return err
	}

	opts := lyrics.Options{DefaultDuration: *duration}
	if *audioPath != "" {
		info, err := audio.Probe(*audioPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, info.Summary())
		opts.TotalDuration = info.DurationSeconds
	}

	cues, err := lyrics.ParseSheet(string(raw), opts)
	if err != nil {
		return err
	}
	for _, c := range cues {
		section := c.Section
		if section == "" {
			section = "-"
		}
		fmt.Fprintf(stdout, "%3d  %8.2f  %6.2f  %-12s %s\n", c.Index+1, c.Start, c.Duration, section, c.Text)
	}
	fmt.Fprintf(stdout, "%d cue(s), %.2fs\n", len(cues), lyrics.TotalDuration(cues))
	return nil
}

func runAssemble(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("assemble", stderr)
	jobPath := fs.String("job", "", "video.json job description")
	outDir := fs.String("out", "", "output directory (default: the job file's directory)")
	ffmpegPath := fs.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	logLevel := fs.String("log-level", "info", "trace, debug, info or error")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *jobPath == "" {
		return usageError{"assemble requires -job"}
	}

	log, err := newLogger(*logLevel, stderr)
	if err != nil {
		return err
	}

	job, err := video.LoadJob(*jobPath)
	if err != nil {
		return err
	}
	if *outDir == "" {
		*outDir = filepath.Dir(*jobPath)
	}

	tempDir, err := os.MkdirTemp("", "lyricframe-"+job.Name+"-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	log.Info("Preparing %d frames at %dx%d", len(job.Frames), job.Width(), job.Height())
	prepared, err := video.PrepareFrames(ctx, job, tempDir)
	if err != nil {
		return err
	}

	seq := video.NewFFmpegSequencer(*ffmpegPath, tempDir).WithLogger(log)
	outPath, err := seq.Assemble(ctx, prepared, *outDir)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, outPath)
	return nil
}
