// Package lyrics turns a lyric sheet into timed cues, one cue per frame.
package lyrics

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultCueDuration is used per line when a sheet has no timing and no total is known
const DefaultCueDuration = 4.0

// ErrNoLyrics is returned when a sheet holds no lyric lines
var ErrNoLyrics = errors.New("no valid lyrics lines found")

const sectionNames = `(?:intro|verse|pre-?chorus|chorus|bridge|hook|refrain|interlude|breakdown|instrumental|outro)`

var (
	// [mm:ss], [mm:ss.xx] or [mm:ss:xx]; several may prefix one line
	timestampPattern = regexp.MustCompile(`^\[(\d{1,3}):(\d{1,2}(?:[.:]\d{1,3})?)\]`)
	// [Verse 1], [Chorus: Both], Pre-Chorus, Bridge:, Verse 2
	sectionPattern = regexp.MustCompile(`(?i)^(?:\[\s*` + sectionNames + `\b[^\]]*\]|` + sectionNames + `(?:\s*\d+)?\s*:?)$`)
	// LRC header tags such as [ar:Artist] or [offset:+200]
	tagPattern = regexp.MustCompile(`^\[[a-zA-Z]+:[^\]]*\]$`)
)

// Cue is one lyric line with its display window, in seconds
type Cue struct {
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Section  string  `json:"section,omitempty"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Line     int     `json:"line"` // 1-based line in the source sheet
}

// End returns when the cue stops showing
func (c Cue) End() float64 {
	return c.Start + c.Duration
}

// Options controls how untimed and trailing cues are timed
type Options struct {
	// TotalDuration is the song length; zero when unknown
	TotalDuration float64
	// DefaultDuration is the per-cue fallback; zero means DefaultCueDuration
	DefaultDuration float64
}

func (o Options) defaultDuration() float64 {
	if o.DefaultDuration > 0 {
		return o.DefaultDuration
	}
	return DefaultCueDuration
}

type sheetLine struct {
	number  int
	text    string
	section string
	stamps  []float64
}

// ParseSheet parses raw lyrics into ordered cues.
//
// Lines carrying LRC timestamps start at those times and last until the next
// timestamp; the final cue runs to TotalDuration when it is known. Sheets
// without timestamps are spread evenly over TotalDuration, or get
// DefaultDuration per line. Section markers and blank lines produce no cue.
func ParseSheet(raw string, opts Options) ([]Cue, error) {
	if opts.TotalDuration < 0 || opts.DefaultDuration < 0 {
		return nil, fmt.Errorf("durations must not be negative")
	}

	lines, timed := scan(raw)
	if len(lines) == 0 {
		return nil, ErrNoLyrics
	}
	if timed {
		return timedCues(lines, opts)
	}
	return untimedCues(lines, opts), nil
}

// HasTimestamps reports whether any line of raw carries an LRC timestamp
func HasTimestamps(raw string) bool {
	_, timed := scan(raw)
	return timed
}

// Texts returns the text of each cue
func Texts(cues []Cue) []string {
	texts := make([]string, len(cues))
	for i, c := range cues {
		texts[i] = c.Text
	}
	return texts
}

// TotalDuration returns the end of the last cue
func TotalDuration(cues []Cue) float64 {
	if len(cues) == 0 {
		return 0
	}
	return cues[len(cues)-1].End()
}

func scan(raw string) ([]sheetLine, bool) {
	var lines []sheetLine
	section := ""
	timed := false

	for i, rawLine := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		stamps, rest := splitTimestamps(line)
		if len(stamps) > 0 {
			timed = true
		}

		if sectionPattern.MatchString(rest) {
			section = normalizeSection(rest)
			continue
		}
		if len(stamps) == 0 && tagPattern.MatchString(rest) {
			continue
		}
		// A timed line with no text clears the screen; it only ends the previous cue.
		lines = append(lines, sheetLine{number: i + 1, text: rest, section: section, stamps: stamps})
	}
	return lines, timed
}

func splitTimestamps(line string) ([]float64, string) {
	var stamps []float64
	for {
		m := timestampPattern.FindStringSubmatch(line)
		if m == nil {
			break
		}
		minutes, _ := strconv.Atoi(m[1])
		seconds, err := strconv.ParseFloat(strings.Replace(m[2], ":", ".", 1), 64)
		if err != nil {
			break
		}
		stamps = append(stamps, float64(minutes)*60+seconds)
		line = strings.TrimSpace(line[len(m[0]):])
	}
	return stamps, line
}

func normalizeSection(marker string) string {
	s := strings.Trim(marker, "[]: ")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

type stampedLine struct {
	start float64
	line  sheetLine
}

func timedCues(lines []sheetLine, opts Options) ([]Cue, error) {
	var stamped []stampedLine
	for _, l := range lines {
		if len(l.stamps) == 0 {
			return nil, fmt.Errorf("line %d %q has no timestamp in a timed sheet", l.number, l.text)
		}
		for _, s := range l.stamps {
			stamped = append(stamped, stampedLine{start: s, line: l})
		}
	}
	sort.SliceStable(stamped, func(i, j int) bool { return stamped[i].start < stamped[j].start })

	var cues []Cue
	for i, s := range stamped {
		if s.line.text == "" {
			continue
		}

		var end float64
		switch {
		case i+1 < len(stamped):
			end = stamped[i+1].start
		case opts.TotalDuration > s.start:
			end = opts.TotalDuration
		default:
			end = s.start + opts.defaultDuration()
		}

		duration := end - s.start
		if duration <= 0 {
			return nil, fmt.Errorf("line %d %q has non-positive duration %.3fs", s.line.number, s.line.text, duration)
		}
		cues = append(cues, Cue{
			Index:    len(cues),
			Text:     s.line.text,
			Section:  s.line.section,
			Start:    s.start,
			Duration: duration,
			Line:     s.line.number,
		})
	}
	if len(cues) == 0 {
		return nil, ErrNoLyrics
	}
	return cues, nil
}

func untimedCues(lines []sheetLine, opts Options) []Cue {
	perLine := opts.defaultDuration()
	if opts.TotalDuration > 0 {
		perLine = opts.TotalDuration / float64(len(lines))
	}
	return distributeEvenly(lines, perLine)
}

// distributeEvenly gives every line the same slot, back to back
func distributeEvenly(lines []sheetLine, perLine float64) []Cue {
	cues := make([]Cue, 0, len(lines))
	for i, l := range lines {
		cues = append(cues, Cue{
			Index:    i,
			Text:     l.text,
			Section:  l.section,
			Start:    float64(i) * perLine,
			Duration: perLine,
			Line:     l.number,
		})
	}
	return cues
}
