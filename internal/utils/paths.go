package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading ~/ to the user's home directory
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// FrameKey is the storage key of one rendered frame, relative to a sink root
func FrameKey(jobID string, index int, ext string) string {
	if ext == "" {
		ext = ".png"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(jobID, fmt.Sprintf("%04d%s", index+1, ext))
}

// SingleFrameKey is the storage key of a frame rendered on its own
func SingleFrameKey(jobID, ext string) string {
	if ext == "" {
		ext = ".png"
	}
	return filepath.Join("single", jobID+ext)
}

// JobTempDir returns the scratch directory of a video job
func JobTempDir(tempPath, jobID string) string {
	return filepath.Join(tempPath, jobID)
}

// EnsureDirectories creates every directory in dirs
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
