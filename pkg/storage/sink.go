// Package storage persists rendered frames and other artifacts.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink stores an encoded artifact under a key
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// FileSink writes artifacts to the local filesystem.
// Keys are joined to Root; an empty Root uses keys as plain paths.
type FileSink struct {
	Root string
}

// NewFileSink creates a sink rooted at dir
func NewFileSink(root string) *FileSink {
	return &FileSink{Root: root}
}

// Path returns where key is stored
func (s *FileSink) Path(key string) string {
	if s.Root == "" {
		return key
	}
	return filepath.Join(s.Root, key)
}

// Put writes data atomically: a failed write leaves any existing file intact
func (s *FileSink) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file next to path, then renames it into place
func WriteFileAtomic(path string, data []byte) (err error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if name == "" {
		return fmt.Errorf("invalid output path %q", path)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}
