package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AndrewDonelson/lyric-frame-studio/pkg/logger"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"LYRICFRAME_STORAGE_PATH": "/srv/lf"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Environment != "development" || cfg.ServerPort != 8080 {
		t.Errorf("env %q port %d", cfg.Environment, cfg.ServerPort)
	}
	if cfg.FontSize != 100 || cfg.LineSpacing != 10 || cfg.CanvasWidth != 1920 || cfg.WrapRatio != 0.9 {
		t.Errorf("layout defaults = %d/%d/%d/%v", cfg.FontSize, cfg.LineSpacing, cfg.CanvasWidth, cfg.WrapRatio)
	}
	if cfg.DBPath != filepath.Join("/srv/lf", "data", "lyricframe.db") {
		t.Errorf("DBPath = %s", cfg.DBPath)
	}
	if cfg.FramesPath != "/srv/lf/frames" || cfg.LogsPath != "/srv/lf/logs" {
		t.Errorf("derived paths %s %s", cfg.FramesPath, cfg.LogsPath)
	}
	if cfg.LogLevel != logger.LevelInfo || cfg.OutputExt != ".png" {
		t.Errorf("level %v ext %s", cfg.LogLevel, cfg.OutputExt)
	}
	if _, ok := cfg.S3(); ok {
		t.Error("S3 should be disabled without a bucket")
	}
	opts := cfg.FrameOptions()
	if opts.FontSize != 100 || opts.CanvasWidth != 1920 {
		t.Errorf("FrameOptions = %+v", opts)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"LYRICFRAME_ENV":               "production",
		"LYRICFRAME_PORT":              "9090",
		"LYRICFRAME_FONT_SIZE":         "72",
		"LYRICFRAME_WRAP_RATIO":        "0.8",
		"LYRICFRAME_POLL_INTERVAL":     "750ms",
		"LYRICFRAME_LOG_LEVEL":         "trace",
		"LYRICFRAME_FRAME_FORMAT":      "JPG",
		"LYRICFRAME_S3_BUCKET":         "lyrics",
		"LYRICFRAME_S3_USE_PATH_STYLE": "true",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StoragePath != "/var/lib/lyricframe" {
		t.Errorf("production storage = %s", cfg.StoragePath)
	}
	if cfg.ServerPort != 9090 || cfg.FontSize != 72 || cfg.WrapRatio != 0.8 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.PollInterval != 750*time.Millisecond || cfg.LogLevel != logger.LevelTrace || cfg.OutputExt != ".jpg" {
		t.Errorf("interval %s level %v ext %s", cfg.PollInterval, cfg.LogLevel, cfg.OutputExt)
	}
	s3cfg, ok := cfg.S3()
	if !ok || s3cfg.Bucket != "lyrics" || s3cfg.Prefix != "frames" || !s3cfg.UsePathStyle {
		t.Errorf("S3 = %+v, %v", s3cfg, ok)
	}
}

func TestFromEnvPlainSecondsInterval(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"LYRICFRAME_POLL_INTERVAL": "2"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %s", cfg.PollInterval)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"LYRICFRAME_FONT_SIZE":     {"LYRICFRAME_FONT_SIZE": "big"},
		"LYRICFRAME_LOG_LEVEL":     {"LYRICFRAME_LOG_LEVEL": "loud"},
		"LYRICFRAME_WORKERS":       {"LYRICFRAME_WORKERS": "0"},
		"LYRICFRAME_FRAME_FORMAT":  {"LYRICFRAME_FRAME_FORMAT": "gif"},
		"LYRICFRAME_POLL_INTERVAL": {"LYRICFRAME_POLL_INTERVAL": "soon"},
	}
	for want, env := range tests {
		t.Run(want, func(t *testing.T) {
			_, err := FromEnv(envMap(env))
			if err == nil || !strings.Contains(err.Error(), want) {
				t.Errorf("expected error naming %s, got %v", want, err)
			}
		})
	}
}
