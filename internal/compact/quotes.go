package compact

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
)

const (
	maxKeyPoints   = 10
	maxQuotes      = 5
	minQuoteChars  = 20
	maxQuoteChars  = 200
	keyPointCutoff = 2.0
)

// extractKeyPoints keeps up to ten summary sentences scoring at least 2,
// deduped by normalized form, each cited to the first containing key block.
func extractKeyPoints(summary string, preserve map[string]bool, blocks []packet.KeyBlock) []packet.CitedText {
	points := []packet.CitedText{}
	seen := map[string]bool{}
	for _, s := range splitSentences(summary) {
		if len(points) >= maxKeyPoints {
			break
		}
		if s.kind == kindCode {
			continue
		}
		if scoreSentenceSalience(s, preserve) < keyPointCutoff {
			continue
		}
		key := normalizeSentence(s.text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		points = append(points, packet.CitedText{
			Text:     s.text,
			Citation: findCitation(blocks, s.text),
		})
	}
	return points
}

var (
	quoteRe      = regexp.MustCompile(`"([^"]{20,200})"`)
	inlineCodeRe = regexp.MustCompile("`[^`]*`")
	urlRe        = regexp.MustCompile(`https?://`)
)

// extractQuotes scans the original content, not the summary, for quoted
// spans that read as natural language. Code, table, and meta blocks are
// skipped, as are JSON-looking lines.
func extractQuotes(content string, blocks []packet.KeyBlock) []packet.CitedText {
	var sources []string
	if len(blocks) > 0 {
		for _, b := range blocks {
			switch b.Kind {
			case packet.BlockCode, packet.BlockTable, packet.BlockMeta:
				continue
			}
			sources = append(sources, b.Text)
		}
	} else {
		sources = []string{content}
	}

	quotes := []packet.CitedText{}
	seen := map[string]bool{}
	for _, src := range sources {
		if len(quotes) >= maxQuotes {
			break
		}
		src = stripCode(src)
		for _, line := range strings.Split(src, "\n") {
			if looksLikeJSON(line) {
				continue
			}
			for _, m := range quoteRe.FindAllStringSubmatch(line, -1) {
				if len(quotes) >= maxQuotes {
					break
				}
				q := strings.TrimSpace(m[1])
				if !isNaturalLanguage(q) {
					continue
				}
				key := normalizeSentence(q)
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				quotes = append(quotes, packet.CitedText{
					Text:     q,
					Citation: findCitation(blocks, q),
				})
			}
		}
	}
	return quotes
}

// stripCode removes fenced blocks and inline code spans.
func stripCode(text string) string {
	var out []string
	inCode := false
	var fenceChar byte
	var fenceWidth int
	for _, line := range strings.Split(text, "\n") {
		if inCode {
			if c, w := fenceRun(line); c == fenceChar && w >= fenceWidth {
				inCode = false
			}
			continue
		}
		if c, w := fenceRun(line); w >= 3 {
			inCode = true
			fenceChar, fenceWidth = c, w
			continue
		}
		out = append(out, inlineCodeRe.ReplaceAllString(line, ""))
	}
	return strings.Join(out, "\n")
}

func looksLikeJSON(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		return true
	}
	// Key-value pair inside a JSON object body.
	return strings.HasPrefix(t, `"`) && strings.Contains(t, `":`)
}

// isNaturalLanguage requires at least four words, ten letters, under 20%
// symbol density, no escape sequences, and no URLs.
func isNaturalLanguage(q string) bool {
	if len(q) < minQuoteChars || len(q) > maxQuoteChars {
		return false
	}
	if len(strings.Fields(q)) < 4 {
		return false
	}
	if strings.Contains(q, `\n`) || strings.Contains(q, `\t`) || urlRe.MatchString(q) {
		return false
	}
	letters, symbols, total := 0, 0, 0
	for _, r := range q {
		total++
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsSpace(r) || unicode.IsDigit(r):
		case r == '.' || r == ',' || r == '\'' || r == '-':
		default:
			symbols++
		}
	}
	if letters < 10 {
		return false
	}
	return symbols*5 < total
}

// findCitation returns the block id of the first key block containing the
// text, trying an exact then a normalized substring match. Empty when the
// packet has no key blocks or nothing matches.
func findCitation(blocks []packet.KeyBlock, text string) string {
	if len(blocks) == 0 {
		return ""
	}
	for _, b := range blocks {
		if strings.Contains(b.Text, text) {
			return b.BlockID
		}
	}
	norm := normalizeSentence(text)
	if norm == "" {
		return ""
	}
	for _, b := range blocks {
		if strings.Contains(normalizeSentence(b.Text), norm) {
			return b.BlockID
		}
	}
	return ""
}
