package video

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/AndrewDonelson/lyric-frame-studio/pkg/frame"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
)

// PrepareFrames returns a copy of job whose frames are all at the job
// resolution. Frames that already match are referenced in place; the rest
// are rescaled and written as PNG into dir.
func PrepareFrames(ctx context.Context, job *Job, dir string) (*Job, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}

	prepared := *job
	prepared.Frames = make([]FrameRef, len(job.Frames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, ref := range job.Frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path, err := prepareFrame(ref.Image, i, job.Width(), job.Height(), dir)
			if err != nil {
				return fmt.Errorf("frame %d (%s): %w", i, ref.Image, err)
			}
			prepared.Frames[i] = FrameRef{Image: path, Duration: ref.Duration}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &prepared, nil
}

func prepareFrame(path string, index, w, h int, dir string) (string, error) {
	cfg, err := decodeConfig(path)
	if err != nil {
		return "", err
	}
	if cfg.Width == w && cfg.Height == h {
		return path, nil
	}

	img, err := frame.DecodeImage(path)
	if err != nil {
		return "", err
	}
	data, _, err := frame.Encode(frame.Normalize(img, w, h), ".png")
	if err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}
	out := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", index))
	if err := storage.WriteFileAtomic(out, data); err != nil {
		return "", err
	}
	return out, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}
