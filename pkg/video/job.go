// Package video describes lyric video assembly jobs and hands them to a Sequencer.
package video

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
)

// ErrInvalidJob wraps every validation failure
var ErrInvalidJob = errors.New("invalid video job")

// formatPattern matches a bare container extension such as mp4 or webm
var formatPattern = regexp.MustCompile(`^\.?[A-Za-z0-9]+$`)

// FrameRef is one entry of the frame sequence
type FrameRef struct {
	Image    string  `json:"image"`
	Duration float64 `json:"duration"` // seconds
}

// Job is the video.json assembly description. Frames play in slice order.
type Job struct {
	Name       string     `json:"name"`
	Format     string     `json:"format"`
	Framerate  float64    `json:"framerate"`
	Resolution [2]int     `json:"resolution"` // width, height
	Frames     []FrameRef `json:"frames"`
	Audio      string     `json:"audio,omitempty"`
}

// ParseJob decodes and validates a job
func ParseJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse video job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// LoadJob reads a job file. Relative frame and audio paths are resolved
// against the directory holding the file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read video job: %w", err)
	}
	job, err := ParseJob(data)
	if err != nil {
		return nil, err
	}
	job.resolve(filepath.Dir(path))
	return job, nil
}

func (j *Job) resolve(base string) {
	for i := range j.Frames {
		if !filepath.IsAbs(j.Frames[i].Image) {
			j.Frames[i].Image = filepath.Join(base, j.Frames[i].Image)
		}
	}
	if j.Audio != "" && !filepath.IsAbs(j.Audio) {
		j.Audio = filepath.Join(base, j.Audio)
	}
}

// Save writes the job as indented JSON
func (j *Job) Save(path string) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode video job: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}
	return storage.WriteFileAtomic(path, append(data, '\n'))
}

// Validate checks the contract a Sequencer relies on
func (j *Job) Validate() error {
	if err := j.ValidateOutput(); err != nil {
		return err
	}
	if len(j.Frames) == 0 {
		return fmt.Errorf("%w: at least one frame is required", ErrInvalidJob)
	}
	for i, f := range j.Frames {
		if f.Image == "" {
			return fmt.Errorf("%w: frame %d has no image", ErrInvalidJob, i)
		}
		if !(f.Duration > 0) {
			return fmt.Errorf("%w: frame %d duration must be positive, got %v", ErrInvalidJob, i, f.Duration)
		}
	}
	return nil
}

// ValidateOutput checks the name, format, framerate and resolution, which
// is everything Validate checks except the frames. OutputName of a job that
// passes stays inside the output directory.
func (j *Job) ValidateOutput() error {
	switch {
	case strings.TrimSpace(j.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidJob)
	case strings.ContainsAny(j.Name, `/\`) || j.Name == "." || j.Name == "..":
		return fmt.Errorf("%w: name %q must not contain path separators", ErrInvalidJob, j.Name)
	case strings.TrimSpace(j.Format) == "":
		return fmt.Errorf("%w: format is required", ErrInvalidJob)
	case !formatPattern.MatchString(j.Format):
		return fmt.Errorf("%w: format %q must be a bare extension such as mp4", ErrInvalidJob, j.Format)
	case j.Framerate <= 0:
		return fmt.Errorf("%w: framerate must be positive, got %v", ErrInvalidJob, j.Framerate)
	case j.Resolution[0] <= 0 || j.Resolution[1] <= 0:
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalidJob, j.Resolution[0], j.Resolution[1])
	case RequiresEvenDimensions(j.Format) && (j.Resolution[0]%2 != 0 || j.Resolution[1]%2 != 0):
		return fmt.Errorf("%w: %s needs even dimensions, got %dx%d", ErrInvalidJob, j.Format, j.Resolution[0], j.Resolution[1])
	}
	return nil
}

// RequiresEvenDimensions reports whether format is encoded as yuv420p,
// which subsamples chroma 2x2. Only gif is exempt.
func RequiresEvenDimensions(format string) bool {
	return strings.ToLower(strings.TrimPrefix(format, ".")) != "gif"
}

// OutputName is {name}.{format}
func (j *Job) OutputName() string {
	return fmt.Sprintf("%s.%s", j.Name, strings.TrimPrefix(j.Format, "."))
}

// TotalDuration is the sum of all frame durations
func (j *Job) TotalDuration() float64 {
	var total float64
	for _, f := range j.Frames {
		total += f.Duration
	}
	return total
}

// Width is the target frame width
func (j *Job) Width() int { return j.Resolution[0] }

// Height is the target frame height
func (j *Job) Height() int { return j.Resolution[1] }
