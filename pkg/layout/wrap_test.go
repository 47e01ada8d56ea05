package layout

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

// monoMeasurer gives every rune the same advance.
type monoMeasurer struct{ advance int }

func (m monoMeasurer) Measure(s string) (int, int) {
	return utf8.RuneCountInString(s) * m.advance, 10
}

type traceRecorder struct{ lines []string }

func (r *traceRecorder) Trace(format string, args ...interface{}) {
	r.lines = append(r.lines, format)
}

func TestWrap(t *testing.T) {
	m := monoMeasurer{advance: 10}
	cases := []struct {
		name     string
		text     string
		maxWidth int
		want     []string
	}{
		{"empty", "", 100, []string{}},
		{"whitespace only", " \t\n ", 100, []string{}},
		{"single token", "hello", 100, []string{"hello"}},
		{"fits on one line", "aa bb cc", 80, []string{"aa bb cc"}},
		{"exact fit is kept", "aaaa bbbb", 90, []string{"aaaa bbbb"}},
		{"one over breaks", "aaaa bbbb", 89, []string{"aaaa", "bbbb"}},
		{"greedy fill", "aa bb cc dd ee", 50, []string{"aa bb", "cc dd", "ee"}},
		{"collapses whitespace", "aa \t bb\n\ncc", 200, []string{"aa bb cc"}},
		{"oversized first token", "abcdefghijkl xy", 50, []string{"abcdefghijkl", "xy"}},
		{"oversized middle token", "ab abcdefghijkl xy", 50, []string{"ab", "abcdefghijkl", "xy"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Texts(Wrap(c.text, m, c.maxWidth))
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("Wrap(%q, %d) = %q; want %q", c.text, c.maxWidth, got, c.want)
			}
		})
	}
}

func TestWrapProperties(t *testing.T) {
	m := monoMeasurer{advance: 7}
	texts := []string{
		"This is a sample lyric text that will be wrapped and centered.",
		"short",
		"a b c d e f g h i j k l m n o p q r s t u v w x y z",
		"supercalifragilisticexpialidocious is a word that is far too long",
	}

	for _, text := range texts {
		for _, maxWidth := range []int{30, 70, 140, 400} {
			lines := Wrap(text, m, maxWidth)

			// Tokens survive in order.
			joined := strings.Join(Texts(lines), " ")
			if !reflect.DeepEqual(strings.Fields(joined), strings.Fields(text)) {
				t.Fatalf("tokens changed: %q -> %q", text, joined)
			}

			for _, l := range lines {
				w, _ := m.Measure(l.Text)
				if w != l.Width {
					t.Fatalf("line %q width %d; measured %d", l.Text, l.Width, w)
				}
				if l.Width > maxWidth && len(strings.Fields(l.Text)) != 1 {
					t.Fatalf("multi-token line %q exceeds %d (width %d)", l.Text, maxWidth, l.Width)
				}
			}

			// Deterministic.
			again := Wrap(text, m, maxWidth)
			if !reflect.DeepEqual(lines, again) {
				t.Fatalf("Wrap not deterministic for %q", text)
			}
		}
	}
}

func TestWrapOversizedTokenIsNotSplit(t *testing.T) {
	m := monoMeasurer{advance: 10}
	lines := Wrap("go supercalifragilistic go", m, 60)
	want := []string{"go", "supercalifragilistic", "go"}
	if got := Texts(lines); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q; want %q", got, want)
	}
	if lines[1].Width <= 60 {
		t.Fatalf("oversized token should overflow, width %d", lines[1].Width)
	}
}

func TestWrapTracer(t *testing.T) {
	rec := &traceRecorder{}
	Wrap("aa bb cc", monoMeasurer{advance: 10}, 50, WithTracer(rec))
	if len(rec.lines) == 0 {
		t.Fatalf("tracer received nothing")
	}
}
