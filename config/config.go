package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AndrewDonelson/lyric-frame-studio/internal/utils"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/frame"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/logger"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
)

const envPrefix = "LYRICFRAME_"

// Config holds all application configuration
type Config struct {
	Environment string
	ServerPort  int
	DBPath      string

	// Storage paths
	StoragePath string
	FramesPath  string
	VideosPath  string
	TempPath    string
	LogsPath    string

	// Frame layout
	FontSize    int
	LineSpacing int
	CanvasWidth int
	WrapRatio   float64
	OutputExt   string

	// Worker
	Workers      int
	PollInterval time.Duration

	LogLevel           logger.Level
	FFmpegPath         string
	DefaultCueDuration float64

	// S3 target for rendered frames; empty bucket keeps frames on disk
	S3Bucket       string
	S3Region       string
	S3Prefix       string
	S3UsePathStyle bool
}

// LoadConfig loads .env (if present) and LYRICFRAME_* environment variables over defaults
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		Environment: r.str("ENV", "development"),
	}

	defaultStorage := "~/lyricframe-data"
	if cfg.Environment == "production" {
		defaultStorage = "/var/lib/lyricframe"
	}
	cfg.StoragePath = utils.ExpandHome(r.str("STORAGE_PATH", defaultStorage))
	cfg.DBPath = utils.ExpandHome(r.str("DB_PATH", filepath.Join(cfg.StoragePath, "data", "lyricframe.db")))
	cfg.ServerPort = r.int("PORT", 8080)

	// Derived storage paths
	cfg.FramesPath = filepath.Join(cfg.StoragePath, "frames")
	cfg.VideosPath = filepath.Join(cfg.StoragePath, "videos")
	cfg.TempPath = filepath.Join(cfg.StoragePath, "temp")
	cfg.LogsPath = filepath.Join(cfg.StoragePath, "logs")

	cfg.FontSize = r.int("FONT_SIZE", frame.DefaultFontSize)
	cfg.LineSpacing = r.int("LINE_SPACING", frame.DefaultLineSpacing)
	cfg.CanvasWidth = r.int("CANVAS_WIDTH", frame.DefaultCanvasWidth)
	cfg.WrapRatio = r.float("WRAP_RATIO", frame.DefaultWrapRatio)
	cfg.OutputExt = "." + strings.TrimPrefix(strings.ToLower(r.str("FRAME_FORMAT", "png")), ".")

	cfg.Workers = r.int("WORKERS", 4)
	cfg.PollInterval = r.duration("POLL_INTERVAL", 5*time.Second)

	level, err := logger.ParseLevel(r.str("LOG_LEVEL", "info"))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err))
	}
	cfg.LogLevel = level

	cfg.FFmpegPath = r.str("FFMPEG_PATH", "ffmpeg")
	cfg.DefaultCueDuration = r.float("DEFAULT_CUE_DURATION", 4.0)

	cfg.S3Bucket = r.str("S3_BUCKET", "")
	cfg.S3Region = r.str("S3_REGION", "")
	cfg.S3Prefix = r.str("S3_PREFIX", "frames")
	cfg.S3UsePathStyle = r.bool("S3_USE_PATH_STYLE", false)

	if len(r.errs) > 0 {
		return nil, r.errs[0]
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("Loaded configuration for environment: %s", cfg.Environment)
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Workers <= 0:
		return fmt.Errorf("%sWORKERS must be positive, got %d", envPrefix, c.Workers)
	case c.PollInterval <= 0:
		return fmt.Errorf("%sPOLL_INTERVAL must be positive, got %s", envPrefix, c.PollInterval)
	case c.DefaultCueDuration <= 0:
		return fmt.Errorf("%sDEFAULT_CUE_DURATION must be positive, got %v", envPrefix, c.DefaultCueDuration)
	case c.OutputExt != ".png" && c.OutputExt != ".jpg" && c.OutputExt != ".jpeg":
		return fmt.Errorf("%sFRAME_FORMAT must be png or jpg, got %q", envPrefix, strings.TrimPrefix(c.OutputExt, "."))
	}
	return nil
}

// FrameOptions returns the compositor options for this configuration
func (c *Config) FrameOptions() frame.Options {
	return frame.Options{
		FontSize:    c.FontSize,
		LineSpacing: c.LineSpacing,
		CanvasWidth: c.CanvasWidth,
		WrapRatio:   c.WrapRatio,
	}
}

// S3 returns the S3 sink settings; ok is false when no bucket is configured
func (c *Config) S3() (cfg storage.S3Config, ok bool) {
	if c.S3Bucket == "" {
		return storage.S3Config{}, false
	}
	return storage.S3Config{
		Bucket:       c.S3Bucket,
		Prefix:       c.S3Prefix,
		Region:       c.S3Region,
		UsePathStyle: c.S3UsePathStyle,
	}, true
}

// Directories lists every local directory the service writes to
func (c *Config) Directories() []string {
	return []string{filepath.Dir(c.DBPath), c.FramesPath, c.VideosPath, c.TempPath, c.LogsPath}
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(envPrefix + key)); v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: invalid integer %q", envPrefix, key, v))
		return def
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: invalid number %q", envPrefix, key, v))
		return def
	}
	return f
}

func (r *reader) bool(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: invalid boolean %q", envPrefix, key, v))
		return def
	}
	return b
}

// duration accepts Go durations ("750ms") or plain seconds ("5")
func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	r.errs = append(r.errs, fmt.Errorf("%s%s: invalid duration %q", envPrefix, key, v))
	return def
}
