package normalize

import (
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
)

// SplitKeyBlocks runs the fence-aware state machine that types contiguous
// markdown ranges. Heading blocks are single lines flushed eagerly; code
// blocks span fence to matching fence inclusive; list, quote, and table
// blocks accumulate their line kinds; everything else gathers into
// paragraphs. A blank line flushes any non-code block.
func SplitKeyBlocks(md string) []packet.KeyBlock {
	var blocks []packet.KeyBlock
	var buf []string
	var kind packet.BlockKind

	flush := func() {
		if len(buf) == 0 {
			return
		}
		text := strings.Join(buf, "\n")
		blocks = append(blocks, packet.KeyBlock{
			BlockID: "b" + strconv.Itoa(len(blocks)),
			Kind:    kind,
			Text:    text,
			CharLen: len(text),
		})
		buf = nil
	}

	var fenceChar byte
	var fenceWidth int
	inCode := false

	for _, line := range strings.Split(md, "\n") {
		if inCode {
			buf = append(buf, line)
			if c, w := fenceMarker(line); c == fenceChar && w >= fenceWidth && restIsBlank(line, w) {
				inCode = false
				flush()
			}
			continue
		}

		if c, w := fenceMarker(line); w >= 3 {
			flush()
			kind = packet.BlockCode
			fenceChar, fenceWidth = c, w
			inCode = true
			buf = append(buf, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		// Indented continuation lines stay with their list item.
		if len(buf) > 0 && kind == packet.BlockList &&
			(strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t")) && !isListLine(trimmed) {
			buf = append(buf, line)
			continue
		}

		lineKind := classifyLine(line, trimmed)
		if lineKind == packet.BlockHeading {
			flush()
			kind = packet.BlockHeading
			buf = append(buf, line)
			flush()
			continue
		}

		if len(buf) > 0 && kind != lineKind {
			flush()
		}
		kind = lineKind
		buf = append(buf, line)
	}

	// An unterminated code fence ends with the document.
	flush()
	return blocks
}

// fenceMarker returns the fence character and run length of a line that
// starts (after indentation) with backticks or tildes.
func fenceMarker(line string) (byte, int) {
	s := strings.TrimLeft(line, " \t")
	if s == "" || (s[0] != '`' && s[0] != '~') {
		return 0, 0
	}
	c := s[0]
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	if n < 3 {
		return 0, 0
	}
	return c, n
}

func restIsBlank(line string, width int) bool {
	s := strings.TrimLeft(line, " \t")
	return strings.TrimSpace(s[width:]) == ""
}

var listMarkers = []string{"- ", "* ", "+ "}

func classifyLine(line, trimmed string) packet.BlockKind {
	if isHeadingLine(trimmed) {
		return packet.BlockHeading
	}
	if strings.HasPrefix(trimmed, ">") {
		return packet.BlockQuote
	}
	if strings.HasPrefix(trimmed, "|") {
		return packet.BlockTable
	}
	if isListLine(trimmed) {
		return packet.BlockList
	}
	return packet.BlockParagraph
}

func isHeadingLine(trimmed string) bool {
	i := 0
	for i < len(trimmed) && i <= 6 && trimmed[i] == '#' {
		i++
	}
	return i >= 1 && i <= 6 && i < len(trimmed) && (trimmed[i] == ' ' || trimmed[i] == '\t')
}

func isListLine(trimmed string) bool {
	for _, m := range listMarkers {
		if strings.HasPrefix(trimmed, m) {
			return true
		}
	}
	// Ordered list: digits then "." or ")" then space.
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i > 0 && i < len(trimmed)-1 && (trimmed[i] == '.' || trimmed[i] == ')') && trimmed[i+1] == ' ' {
		return true
	}
	return false
}

// headingLevel returns the ATX level of a heading block's text, or zero.
func headingLevel(text string) int {
	trimmed := strings.TrimSpace(text)
	i := 0
	for i < len(trimmed) && i < 6 && trimmed[i] == '#' {
		i++
	}
	if i == 0 || i >= len(trimmed) || (trimmed[i] != ' ' && trimmed[i] != '\t') {
		return 0
	}
	return i
}

// headingText strips the ATX markers from a heading block's text.
func headingText(text string) string {
	trimmed := strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimRight(strings.TrimLeft(trimmed, "#"), "#"))
}
