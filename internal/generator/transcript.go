package generator

import (
	"fmt"
	"strings"
)

// Level is the severity of a transcript entry.
type Level string

const (
	LevelInfo Level = "INFO"
	LevelWarn Level = "WARN"
)

// Stage names the part of the pipeline an entry came from.
type Stage string

const (
	StageDecode   Stage = "decode"
	StageParse    Stage = "parse"
	StageLocator  Stage = "locator"
	StageClassify Stage = "classify"
	StageRender   Stage = "render"
	StageStore    Stage = "store"
)

// Entry is one line of a generation transcript.
type Entry struct {
	Level   Level
	Stage   Stage
	Line    int    // source line, 0 when not tied to one
	Group   string // "band/scope", empty when not tied to a map
	Message string
}

func (e Entry) String() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.Level))
	b.WriteString("] ")
	b.WriteString(string(e.Stage))
	if e.Group != "" {
		b.WriteString(" ")
		b.WriteString(e.Group)
	}
	b.WriteString(": ")
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Message)
	return b.String()
}

// Transcript collects the diagnostics of one generation in the order they
// were produced. It is not safe for concurrent use; workers keep their own
// entries and the pipeline merges them by group index.
type Transcript struct {
	entries []Entry
}

func (t *Transcript) add(e Entry) {
	t.entries = append(t.entries, e)
}

// Info records an informational entry.
func (t *Transcript) Info(stage Stage, format string, args ...any) {
	t.add(Entry{Level: LevelInfo, Stage: stage, Message: fmt.Sprintf(format, args...)})
}

// Warn records a warning.
func (t *Transcript) Warn(stage Stage, format string, args ...any) {
	t.add(Entry{Level: LevelWarn, Stage: stage, Message: fmt.Sprintf(format, args...)})
}

// WarnLine records a warning tied to a source line.
func (t *Transcript) WarnLine(stage Stage, line int, format string, args ...any) {
	t.add(Entry{Level: LevelWarn, Stage: stage, Line: line, Message: fmt.Sprintf(format, args...)})
}

// Append adds entries produced elsewhere.
func (t *Transcript) Append(entries ...Entry) {
	t.entries = append(t.entries, entries...)
}

// Warnings counts WARN entries.
func (t *Transcript) Warnings() int {
	n := 0
	for _, e := range t.entries {
		if e.Level == LevelWarn {
			n++
		}
	}
	return n
}

// String renders the transcript one entry per line.
func (t *Transcript) String() string {
	lines := make([]string, len(t.entries))
	for i, e := range t.entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}
