package compact

import (
	"regexp"
	"strings"
	"unicode"
)

// sentenceKind distinguishes structural lines kept whole from prose split at
// sentence boundaries.
type sentenceKind int

const (
	kindProse sentenceKind = iota
	kindHeading
	kindList
	kindCode
)

// sentence is one scoring unit with its position in the source.
type sentence struct {
	text  string
	index int
	kind  sentenceKind
	score float64
}

// splitSentences splits markdown into scoring units. Headings and list lines
// are kept as single units, fenced code blocks are never split, and prose is
// cut at terminal punctuation.
func splitSentences(md string) []sentence {
	var out []sentence
	add := func(text string, kind sentenceKind) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		out = append(out, sentence{text: text, index: len(out), kind: kind})
	}

	var fence []string
	var fenceChar byte
	var fenceWidth int
	inCode := false

	for _, line := range strings.Split(md, "\n") {
		if inCode {
			fence = append(fence, line)
			if c, w := fenceRun(line); c == fenceChar && w >= fenceWidth {
				inCode = false
				add(strings.Join(fence, "\n"), kindCode)
				fence = nil
			}
			continue
		}
		if c, w := fenceRun(line); w >= 3 {
			inCode = true
			fenceChar, fenceWidth = c, w
			fence = append(fence, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case isHeading(trimmed):
			add(trimmed, kindHeading)
		case isListItem(trimmed):
			add(trimmed, kindList)
		default:
			for _, s := range splitProse(trimmed) {
				add(s, kindProse)
			}
		}
	}
	if len(fence) > 0 {
		add(strings.Join(fence, "\n"), kindCode)
	}
	return out
}

// splitProse cuts a text run at ". ", "! ", "? " boundaries.
func splitProse(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && (i+1 >= len(runes) || runes[i+1] == ' ') {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func fenceRun(line string) (byte, int) {
	s := strings.TrimLeft(line, " \t")
	if s == "" || (s[0] != '`' && s[0] != '~') {
		return 0, 0
	}
	n := 0
	for n < len(s) && s[n] == s[0] {
		n++
	}
	if n < 3 {
		return 0, 0
	}
	return s[0], n
}

func isHeading(trimmed string) bool {
	i := 0
	for i < len(trimmed) && i < 6 && trimmed[i] == '#' {
		i++
	}
	return i >= 1 && i < len(trimmed) && (trimmed[i] == ' ' || trimmed[i] == '\t')
}

func isListItem(trimmed string) bool {
	for _, m := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(trimmed, m) {
			return true
		}
	}
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(trimmed) && (trimmed[i] == '.' || trimmed[i] == ')') && trimmed[i+1] == ' '
}

var (
	numberMarkerRe = regexp.MustCompile(`\d`)
	dateMarkerRe   = regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})\b`)
	// Two or more adjacent capitalized words read as a proper name.
	nameMarkerRe       = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)
	definitionMarkerRe = regexp.MustCompile(`(?i)\b(?:is a|is an|is the|refers to|is defined as|means that|consists of)\b`)
	procedureMarkerRe  = regexp.MustCompile(`(?i)\b(?:first|second|then|next|finally|step \d|must|should)\b`)
	currencyPercentRe  = regexp.MustCompile(`[$€£¥%]`)
)

// scoreSentenceSalience scores one unit: structural bonuses, length
// penalties, preserve-class markers, and attribution/figure phrase bonuses.
func scoreSentenceSalience(s sentence, preserve map[string]bool) float64 {
	score := 0.0
	switch s.kind {
	case kindHeading:
		score += 2
	case kindList:
		score += 1
	}

	n := len(s.text)
	if n < 20 {
		score -= 1
	}
	if n > 400 {
		score -= 1
	}

	if preserve["numbers"] && numberMarkerRe.MatchString(s.text) {
		score += 1
	}
	if preserve["dates"] && dateMarkerRe.MatchString(s.text) {
		score += 1
	}
	if preserve["names"] && nameMarkerRe.MatchString(s.text) {
		score += 1
	}
	if preserve["definitions"] && definitionMarkerRe.MatchString(s.text) {
		score += 1
	}
	if preserve["procedures"] && procedureMarkerRe.MatchString(s.text) {
		score += 1
	}

	lower := strings.ToLower(s.text)
	if strings.Contains(lower, "according to") {
		score += 1
	}
	if currencyPercentRe.MatchString(s.text) {
		score += 1
	}
	return score
}

// normalizeSentence lowercases and strips punctuation for dedupe keys.
func normalizeSentence(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
