package models

import "time"

// Job statuses
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// FrameJob records one frame rendered through the API
type FrameJob struct {
	ID             string  `json:"id" db:"id"`
	Text           string  `json:"text" db:"text"`
	FontPath       string  `json:"font_path" db:"font_path"`
	BackgroundPath string  `json:"background_path" db:"background_path"`
	Opacity        float64 `json:"opacity" db:"opacity"`
	Status         string  `json:"status" db:"status"`

	OutputKey  string `json:"output_key" db:"output_key"`
	OutputPath string `json:"output_path,omitempty" db:"output_path"` // empty when stored remotely
	Width      int    `json:"width" db:"width"`
	Height     int    `json:"height" db:"height"`
	LineCount  int    `json:"line_count" db:"line_count"`

	ErrorKind    string `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// VideoJob is a queued lyric video: a sheet rendered to frames, then assembled
type VideoJob struct {
	ID        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Format    string  `json:"format" db:"format"`
	Framerate float64 `json:"framerate" db:"framerate"`
	Width     int     `json:"width" db:"width"`
	Height    int     `json:"height" db:"height"`

	Lyrics         string  `json:"lyrics" db:"lyrics"` // plain or LRC-timed sheet
	FontPath       string  `json:"font_path" db:"font_path"`
	BackgroundPath string  `json:"background_path" db:"background_path"`
	AudioPath      string  `json:"audio_path,omitempty" db:"audio_path"`
	Opacity        float64 `json:"opacity" db:"opacity"`
	Priority       int     `json:"priority" db:"priority"`

	Status         string `json:"status" db:"status"`
	CurrentStep    string `json:"current_step" db:"current_step"`
	Progress       int    `json:"progress" db:"progress"`
	FrameCount     int    `json:"frame_count" db:"frame_count"`
	FramesRendered int    `json:"frames_rendered" db:"frames_rendered"`
	ErrorMessage   string `json:"error_message,omitempty" db:"error_message"`
	RetryCount     int    `json:"retry_count" db:"retry_count"`

	OutputPath string `json:"output_path,omitempty" db:"output_path"`
	OutputSize int64  `json:"output_size" db:"output_size"`
	LogPath    string `json:"log_path,omitempty" db:"log_path"`

	QueuedAt    time.Time  `json:"queued_at" db:"queued_at"`
	StartedAt   *time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}
