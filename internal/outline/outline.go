// Package outline builds the heading tree of a markdown document. The scan is
// code-fence aware: nothing inside a fence contributes a heading.
package outline

import (
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
)

// fenceState tracks whether the scan is inside a code fence. A fence opens on
// three or more backticks or tildes and closes only on a fence of the same
// character with equal or greater length.
type fenceState struct {
	open  bool
	char  byte
	width int
}

// Observe updates the state for one line and reports whether the line itself
// is a fence delimiter.
func (f *fenceState) Observe(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	char, width := fenceOf(trimmed)
	if width < 3 {
		return false
	}
	if !f.open {
		f.open = true
		f.char = char
		f.width = width
		return true
	}
	if char == f.char && width >= f.width && strings.TrimSpace(trimmed[width:]) == "" {
		f.open = false
		return true
	}
	return false
}

// Inside reports whether the scan is currently inside a fence.
func (f *fenceState) Inside() bool { return f.open }

func fenceOf(s string) (byte, int) {
	if s == "" {
		return 0, 0
	}
	c := s[0]
	if c != '`' && c != '~' {
		return 0, 0
	}
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return c, n
}

// headingOf parses an ATX heading line outside a fence. Level zero means the
// line is not a heading.
func headingOf(line string) (level int, text string) {
	i := 0
	for i < len(line) && i < 6 && line[i] == '#' {
		i++
	}
	if i == 0 || i >= len(line) || (line[i] != ' ' && line[i] != '\t') {
		return 0, ""
	}
	return i, strings.TrimSpace(strings.TrimRight(strings.TrimSpace(line[i:]), "#"))
}

// pathStack maintains the ancestor headings during a scan.
type pathStack struct {
	entries []packet.OutlineEntry
}

// Push records a heading of the given level, popping entries of equal or
// deeper level first.
func (p *pathStack) Push(level int, text string) {
	for len(p.entries) > 0 && p.entries[len(p.entries)-1].Level >= level {
		p.entries = p.entries[:len(p.entries)-1]
	}
	p.entries = append(p.entries, packet.OutlineEntry{Level: level, Text: text})
}

// Path joins the stacked heading texts with " > ".
func (p *pathStack) Path() string {
	parts := make([]string, len(p.entries))
	for i, e := range p.entries {
		parts[i] = e.Text
	}
	return strings.Join(parts, " > ")
}

// Generate returns the document's outline in order. Each entry's path is the
// composition of its strictly-higher-level ancestors plus itself.
func Generate(md string) []packet.OutlineEntry {
	var out []packet.OutlineEntry
	var fence fenceState
	var stack pathStack

	for _, line := range strings.Split(md, "\n") {
		if fence.Observe(line) || fence.Inside() {
			continue
		}
		level, text := headingOf(line)
		if level == 0 || text == "" {
			continue
		}
		stack.Push(level, text)
		out = append(out, packet.OutlineEntry{Level: level, Text: text, Path: stack.Path()})
	}
	return out
}

// FindHeadingPath replays the scan and returns the heading stack in effect at
// charPos: the path of the last heading at or before that position.
func FindHeadingPath(md string, charPos int) []string {
	var fence fenceState
	var stack pathStack
	pos := 0

	for _, line := range strings.Split(md, "\n") {
		if pos > charPos {
			break
		}
		isFence := fence.Observe(line)
		if !isFence && !fence.Inside() {
			if level, text := headingOf(line); level > 0 && text != "" {
				stack.Push(level, text)
			}
		}
		pos += len(line) + 1
	}

	parts := make([]string, len(stack.entries))
	for i, e := range stack.entries {
		parts[i] = e.Text
	}
	return parts
}
