// Package fonts loads TrueType/OpenType fonts into per-render handles.
//
// Parsed font data is immutable and shared through a Library. Each Font
// handle owns its own face, because rasterization state is not reentrant,
// and must be closed by the render that opened it.
package fonts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// BuiltinPrefix marks font paths served from the bundled Go fonts
const BuiltinPrefix = "builtin:"

// ErrInvalidFont is returned when font bytes cannot be parsed
var ErrInvalidFont = errors.New("invalid font data")

var builtins = map[string][]byte{
	"go-regular": goregular.TTF,
	"go-bold":    gobold.TTF,
}

// IsBuiltin reports whether path names a bundled font
func IsBuiltin(path string) bool {
	return strings.HasPrefix(path, BuiltinPrefix)
}

// Exists reports whether a font path can be resolved without reading it.
// The error is wrapped fs.ErrNotExist for missing files.
func Exists(path string) error {
	if IsBuiltin(path) {
		if _, ok := builtins[strings.TrimPrefix(path, BuiltinPrefix)]; !ok {
			return fmt.Errorf("builtin font %q: %w", path, fs.ErrNotExist)
		}
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return nil
}

// ReadFont returns the raw bytes behind a font path
func ReadFont(path string) ([]byte, error) {
	if IsBuiltin(path) {
		data, ok := builtins[strings.TrimPrefix(path, BuiltinPrefix)]
		if !ok {
			return nil, fmt.Errorf("builtin font %q: %w", path, fs.ErrNotExist)
		}
		return data, nil
	}
	return os.ReadFile(path)
}

// Font is a face bound to one path and size
type Font struct {
	Path string
	Size int
	face font.Face
}

// Face exposes the underlying face for drawing
func (f *Font) Face() font.Face {
	return f.face
}

// Measure returns the ink bounding box of s in whole pixels
func (f *Font) Measure(s string) (width, height int) {
	if s == "" {
		return 0, 0
	}
	bounds, _ := font.BoundString(f.face, s)
	if bounds.Max.X <= bounds.Min.X {
		return 0, 0
	}
	width = bounds.Max.X.Ceil() - bounds.Min.X.Floor()
	height = bounds.Max.Y.Ceil() - bounds.Min.Y.Floor()
	return width, height
}

// Ascent is the distance from the top of a line box to its baseline
func (f *Font) Ascent() fixed.Int26_6 {
	return f.face.Metrics().Ascent
}

// Close releases the face
func (f *Font) Close() error {
	if f == nil || f.face == nil {
		return nil
	}
	err := f.face.Close()
	f.face = nil
	return err
}

func newFont(parsed *opentype.Font, path string, size int) (*Font, error) {
	if size <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %d", size)
	}
	// At 72 DPI one point is one pixel.
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face for %s at %dpt: %w", path, size, err)
	}
	return &Font{Path: path, Size: size, face: face}, nil
}

// Load parses the font at path and opens it at size
func Load(path string, size int) (*Font, error) {
	parsed, err := parse(path)
	if err != nil {
		return nil, err
	}
	return newFont(parsed, path, size)
}

func parse(path string) (*opentype.Font, error) {
	data, err := ReadFont(path)
	if err != nil {
		return nil, err
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFont, path, err)
	}
	return parsed, nil
}

// Library caches parsed fonts by path. A file whose size or modification
// time changes is parsed again on the next Open. It is safe for concurrent use.
type Library struct {
	mu     sync.Mutex
	parsed map[string]cachedFont
}

type cachedFont struct {
	size    int64
	modTime time.Time
	font    *opentype.Font
}

// NewLibrary creates an empty font library
func NewLibrary() *Library {
	return &Library{parsed: make(map[string]cachedFont)}
}

// Open returns a new handle for path at size, parsing each version of the file only once
func (l *Library) Open(path string, size int) (*Font, error) {
	var stamp cachedFont
	if !IsBuiltin(path) {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		stamp.size, stamp.modTime = info.Size(), info.ModTime()
	}

	l.mu.Lock()
	cached, ok := l.parsed[path]
	l.mu.Unlock()

	if ok && cached.size == stamp.size && cached.modTime.Equal(stamp.modTime) {
		return newFont(cached.font, path, size)
	}

	parsed, err := parse(path)
	if err != nil {
		return nil, err
	}
	stamp.font = parsed
	l.mu.Lock()
	l.parsed[path] = stamp
	l.mu.Unlock()

	return newFont(parsed, path, size)
}

// Len returns the number of cached fonts
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.parsed)
}
