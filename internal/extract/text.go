package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	underlineRe   = regexp.MustCompile(`^(=+|-+)\s*$`)
	bulletRe      = regexp.MustCompile(`^\s*([-*+•]|\d+[.)])\s+`)
	numberedRe    = regexp.MustCompile(`^\s*\d+[.)]\s+`)
	codeIndicator = regexp.MustCompile(`(\{|\}|;$|^\s*(func|def|class|import|return|var|const|if|for|while)\b|=>|::|</?\w+>)`)
)

// ExtractText infers structure from plain text: ALL-CAPS headings, setext
// style underlines, bullet and numbered lists, and indented code blocks.
func ExtractText(in Input) (*Content, error) {
	lines := strings.Split(in.Text, "\n")
	var b strings.Builder
	var codeBuf []string
	title := ""

	flushCode := func() {
		if len(codeBuf) == 0 {
			return
		}
		b.WriteString("```\n" + strings.Join(codeBuf, "\n") + "\n```\n\n")
		codeBuf = nil
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		trimmed := strings.TrimSpace(line)

		// Indented code block: four spaces or a tab, and code-like content.
		if (strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")) && trimmed != "" {
			codeBuf = append(codeBuf, strings.TrimPrefix(strings.TrimPrefix(line, "\t"), "    "))
			continue
		}
		flushCode()

		if trimmed == "" {
			b.WriteString("\n")
			continue
		}

		// Setext underline: the previous emitted line becomes a heading.
		if i+1 < len(lines) && underlineRe.MatchString(strings.TrimSpace(lines[i+1])) && len(trimmed) <= 80 {
			level := "## "
			if strings.HasPrefix(strings.TrimSpace(lines[i+1]), "=") {
				level = "# "
			}
			b.WriteString(level + trimmed + "\n\n")
			if title == "" {
				title = trimmed
			}
			i++
			continue
		}

		if isAllCapsHeading(trimmed) {
			b.WriteString("## " + titleCaseOf(trimmed) + "\n\n")
			if title == "" {
				title = titleCaseOf(trimmed)
			}
			continue
		}

		if bulletRe.MatchString(line) {
			if numberedRe.MatchString(line) {
				b.WriteString(strings.TrimSpace(line) + "\n")
			} else {
				b.WriteString("- " + bulletRe.ReplaceAllString(trimmed, "") + "\n")
			}
			continue
		}

		b.WriteString(trimmed + "\n")
	}
	flushCode()

	md := tidyMarkdown(b.String())
	if looksLikeCode(in.Text) {
		md = "```\n" + strings.TrimRight(in.Text, "\n") + "\n```"
	}

	return &Content{
		Title:       title,
		Markdown:    md,
		TextContent: in.Text,
		Excerpt:     excerptOf(strings.TrimSpace(in.Text)),
	}, nil
}

// isAllCapsHeading reports whether a short line is written entirely in
// capitals, as section headings in plain text often are.
func isAllCapsHeading(s string) bool {
	if len(s) < 3 || len(s) > 80 {
		return false
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters >= 3
}

// titleCaseOf converts an ALL-CAPS heading to title case.
func titleCaseOf(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// looksLikeCode scores the whole input against a short indicator list.
func looksLikeCode(s string) bool {
	lines := strings.Split(s, "\n")
	if len(lines) < 3 {
		return false
	}
	hits := 0
	checked := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		checked++
		if codeIndicator.MatchString(line) {
			hits++
		}
	}
	return checked > 0 && float64(hits)/float64(checked) > 0.5
}
