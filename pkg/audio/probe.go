// Package audio reads song metadata needed to time lyric frames.
package audio

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeTimeout bounds a single ffprobe call
var ProbeTimeout = 30 * time.Second

// Info is the subset of ffprobe output used for timing
type Info struct {
	DurationSeconds float64 `json:"duration_seconds"`
	FormatName      string  `json:"format_name"`
	Codec           string  `json:"codec"`
	SampleRate      int     `json:"sample_rate"`
	Channels        int     `json:"channels"`
}

// Summary returns a human-readable one-liner
func (i *Info) Summary() string {
	return fmt.Sprintf("Duration: %.2fs | Format: %s | Codec: %s | %d Hz, %d ch",
		i.DurationSeconds, i.FormatName, i.Codec, i.SampleRate, i.Channels)
}

type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// Probe runs ffprobe on path
func Probe(path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}
	out, err := ffmpeg.ProbeWithTimeout(path, ProbeTimeout, ffmpeg.KwArgs{})
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	return ParseProbe([]byte(out))
}

// ProbeDuration returns the length of the audio at path in seconds
func ProbeDuration(path string) (float64, error) {
	info, err := Probe(path)
	if err != nil {
		return 0, err
	}
	return info.DurationSeconds, nil
}

// ParseProbe reads ffprobe's JSON (-show_format -show_streams).
// The container duration wins; the first audio stream's is the fallback.
func ParseProbe(data []byte) (*Info, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &Info{FormatName: out.Format.FormatName}
	duration := out.Format.Duration
	for _, s := range out.Streams {
		if s.CodecType != "audio" {
			continue
		}
		info.Codec = s.CodecName
		info.Channels = s.Channels
		info.SampleRate, _ = strconv.Atoi(s.SampleRate)
		if duration == "" || duration == "N/A" {
			duration = s.Duration
		}
		break
	}

	if duration == "" || duration == "N/A" {
		return nil, fmt.Errorf("ffprobe output has no duration")
	}
	seconds, err := strconv.ParseFloat(duration, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", duration, err)
	}
	if seconds <= 0 {
		return nil, fmt.Errorf("non-positive duration %v", seconds)
	}
	info.DurationSeconds = seconds
	return info, nil
}

// ParseProbeDuration extracts the duration in seconds from ffprobe JSON
func ParseProbeDuration(data []byte) (float64, error) {
	info, err := ParseProbe(data)
	if err != nil {
		return 0, err
	}
	return info.DurationSeconds, nil
}
