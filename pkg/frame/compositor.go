// Package frame renders lyric text centered over a background image.
package frame

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"math"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/AndrewDonelson/lyric-frame-studio/pkg/fonts"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/layout"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/logger"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
)

const (
	DefaultFontSize    = 100
	DefaultLineSpacing = 10
	DefaultCanvasWidth = 1920
	DefaultWrapRatio   = 0.9
)

// Options holds the layout constants shared by every frame of a job
type Options struct {
	FontSize    int
	LineSpacing int
	CanvasWidth int
	WrapRatio   float64
	Logger      *logger.RenderLogger
}

// DefaultOptions returns the standard 1920px, 100pt layout
func DefaultOptions() Options {
	return Options{
		FontSize:    DefaultFontSize,
		LineSpacing: DefaultLineSpacing,
		CanvasWidth: DefaultCanvasWidth,
		WrapRatio:   DefaultWrapRatio,
	}
}

func (o Options) validate() error {
	switch {
	case o.FontSize <= 0:
		return fmt.Errorf("%w: font size must be positive, got %d", ErrInvalidOptions, o.FontSize)
	case o.LineSpacing < 0:
		return fmt.Errorf("%w: line spacing must not be negative, got %d", ErrInvalidOptions, o.LineSpacing)
	case o.CanvasWidth <= 0:
		return fmt.Errorf("%w: canvas width must be positive, got %d", ErrInvalidOptions, o.CanvasWidth)
	case o.WrapRatio <= 0 || o.WrapRatio > 1:
		return fmt.Errorf("%w: wrap ratio must be in (0, 1], got %v", ErrInvalidOptions, o.WrapRatio)
	}
	return nil
}

// Request describes one frame
type Request struct {
	Text           string  `json:"text"`
	FontPath       string  `json:"font_path"`
	BackgroundPath string  `json:"background_path"`
	Opacity        float64 `json:"opacity"`
}

// Frame is a finished, composited image plus the layout that produced it
type Frame struct {
	Image     *image.RGBA
	Lines     []layout.Line
	Placement Placement
}

// Compositor renders frames. It holds no per-render state, so one
// Compositor can serve concurrent renders.
type Compositor struct {
	opts  Options
	fonts *fonts.Library
}

// NewCompositor creates a compositor; lib may be nil to parse fonts on every render
func NewCompositor(opts Options, lib *fonts.Library) *Compositor {
	return &Compositor{opts: opts, fonts: lib}
}

// Options returns the compositor's layout options
func (c *Compositor) Options() Options {
	return c.opts
}

// WithLogger returns a copy of c that logs to l
func (c *Compositor) WithLogger(l *logger.RenderLogger) *Compositor {
	cp := *c
	cp.opts.Logger = l
	return &cp
}

// FillAlpha converts an opacity in [0,1] to the text fill alpha
func FillAlpha(opacity float64) uint8 {
	return uint8(math.Round(255 * opacity))
}

// Render loads the resources named in req and composites the text over the
// background. Nothing is returned unless the whole frame was produced.
func (c *Compositor) Render(req Request) (*Frame, error) {
	log := c.opts.Logger

	if err := c.opts.validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(req.Opacity) || req.Opacity < 0 || req.Opacity > 1 {
		return nil, fmt.Errorf("%w: opacity must be in [0, 1], got %v", ErrInvalidOptions, req.Opacity)
	}

	if err := checkBackground(req.BackgroundPath); err != nil {
		log.Error("Background image %q unavailable: %v", req.BackgroundPath, err)
		return nil, err
	}
	if err := checkFont(req.FontPath); err != nil {
		log.Error("Font file %q unavailable: %v", req.FontPath, err)
		return nil, err
	}

	log.Debug("Loading background image from %s", req.BackgroundPath)
	canvas, err := LoadCanvas(req.BackgroundPath, c.opts.CanvasWidth)
	if err != nil {
		return nil, loadFailure(ResourceBackground, req.BackgroundPath, err)
	}
	bounds := canvas.Bounds()
	log.Property("canvas_size", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()))

	log.Debug("Loading font from %s at %dpt", req.FontPath, c.opts.FontSize)
	face, err := c.openFont(req.FontPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(ResourceFont, req.FontPath, err)
		}
		return nil, loadFailure(ResourceFont, req.FontPath, err)
	}
	defer face.Close()

	layer := image.NewRGBA(bounds)

	maxWidth := MaxLineWidth(bounds.Dx(), c.opts.WrapRatio)
	log.Property("max_width", maxWidth)

	text := norm.NFC.String(req.Text)
	var wrapOpts []layout.Option
	if log.Enabled(logger.LevelTrace) {
		wrapOpts = append(wrapOpts, layout.WithTracer(log))
	}
	lines := layout.Wrap(text, face, maxWidth, wrapOpts...)

	placement := Place(lines, bounds.Dx(), bounds.Dy(), c.opts.FontSize, c.opts.LineSpacing)
	log.Debug("Total text height: %d, starting Y position: %d", placement.TotalHeight, placement.StartY)

	drawer := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: FillAlpha(req.Opacity)}),
		Face: face.Face(),
	}
	for i, line := range lines {
		origin := placement.Origins[i]
		drawer.Dot = fixed.Point26_6{
			X: fixed.I(origin.X),
			Y: fixed.I(origin.Y) + face.Ascent(),
		}
		log.Trace("Drawing line %d %q at (%d, %d)", i+1, line.Text, origin.X, origin.Y)
		drawer.DrawString(line.Text)
	}

	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, canvas, bounds.Min, draw.Src)
	draw.Draw(out, bounds, layer, bounds.Min, draw.Over)

	log.Debug("Composited %d lines onto %dx%d canvas", len(lines), bounds.Dx(), bounds.Dy())
	return &Frame{Image: out, Lines: lines, Placement: placement}, nil
}

// RenderTo renders req and stores the encoded frame in sink under key.
// The encoding follows the key's extension.
func (c *Compositor) RenderTo(ctx context.Context, req Request, sink storage.Sink, key string) (*Frame, error) {
	fr, err := c.Render(req)
	if err != nil {
		return nil, err
	}

	data, contentType, err := Encode(fr.Image, key)
	if err != nil {
		return nil, persistenceFailure(key, err)
	}

	c.opts.Logger.Debug("Saving frame to %s (%d bytes)", key, len(data))
	if err := sink.Put(ctx, key, data, contentType); err != nil {
		c.opts.Logger.Error("Saving frame to %s failed: %v", key, err)
		return nil, persistenceFailure(key, err)
	}
	c.opts.Logger.Info("Frame saved as %s", key)
	return fr, nil
}

func (c *Compositor) openFont(path string) (*fonts.Font, error) {
	if c.fonts != nil {
		return c.fonts.Open(path, c.opts.FontSize)
	}
	return fonts.Load(path, c.opts.FontSize)
}

func checkBackground(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(ResourceBackground, path, err)
		}
		return loadFailure(ResourceBackground, path, err)
	}
	return nil
}

func checkFont(path string) error {
	if err := fonts.Exists(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(ResourceFont, path, err)
		}
		return loadFailure(ResourceFont, path, err)
	}
	return nil
}
