// Package layout breaks lyric text into lines that fit a pixel width.
package layout

import "strings"

// Measurer reports the rendered pixel size of a string under one font
type Measurer interface {
	Measure(s string) (width, height int)
}

// Tracer receives per-candidate wrap decisions
type Tracer interface {
	Trace(format string, args ...interface{})
}

// Line is one row of space-joined tokens and its measured size
type Line struct {
	Text   string `json:"text"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Option configures Wrap
type Option func(*wrapper)

// WithTracer sends every candidate and decision to t
func WithTracer(t Tracer) Option {
	return func(w *wrapper) { w.tracer = t }
}

type wrapper struct {
	m      Measurer
	tracer Tracer
}

func (w *wrapper) trace(format string, args ...interface{}) {
	if w.tracer != nil {
		w.tracer.Trace(format, args...)
	}
}

func (w *wrapper) line(text string) Line {
	width, height := w.m.Measure(text)
	return Line{Text: text, Width: width, Height: height}
}

// Wrap greedily fills lines with whitespace-separated tokens.
//
// A token is appended to the current line when the joined candidate measures
// no wider than maxWidth; otherwise the current line is closed and the token
// starts the next one. Tokens are never split, so a token wider than maxWidth
// sits alone on its own line and overflows. Empty or all-whitespace text
// yields no lines.
func Wrap(text string, m Measurer, maxWidth int, opts ...Option) []Line {
	w := &wrapper{m: m}
	for _, opt := range opts {
		opt(w)
	}

	tokens := strings.Fields(text)
	lines := make([]Line, 0, 4)
	if len(tokens) == 0 {
		w.trace("no tokens to wrap")
		return lines
	}

	w.trace("wrapping %d tokens with max width %d", len(tokens), maxWidth)

	current := tokens[0]
	for i, token := range tokens[1:] {
		candidate := current + " " + token
		width, _ := m.Measure(candidate)
		w.trace("token %d: candidate %q width %d", i+1, candidate, width)

		if width <= maxWidth {
			current = candidate
			continue
		}

		w.trace("token %d: closing line %q", i+1, current)
		lines = append(lines, w.line(current))
		current = token
	}

	lines = append(lines, w.line(current))
	w.trace("wrapped into %d lines", len(lines))
	return lines
}

// Texts returns the text of each line
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
