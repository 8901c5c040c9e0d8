package chunk

import (
	"strings"
	"unicode/utf8"
)

// Token counts are heuristic: CJK text runs near 1.5 characters per token,
// code near 3.0, and prose near 3.5. No exact tokenizer is consulted.
const (
	cjkCharsPerToken   = 1.5
	codeCharsPerToken  = 3.0
	proseCharsPerToken = 3.5
)

var codeHints = []string{
	"```", "{", "};", "=>", "();", "def ", "func ", "class ", "import ",
	"return ", "</", "/>",
}

// EstimateTokens estimates the token count of text: CJK characters are
// counted separately at ~1.5 chars/token; the remainder divides by 3.5, or
// 3.0 when the text scores as code.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	cjk := 0
	rest := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			rest++
		}
	}

	perToken := proseCharsPerToken
	if looksLikeCode(text) {
		perToken = codeCharsPerToken
	}

	tokens := float64(cjk)/cjkCharsPerToken + float64(rest)/perToken
	n := int(tokens + 0.5)
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}

func isCJK(r rune) bool {
	switch {
	case r >= 0x3040 && r <= 0x30FF: // Hiragana and Katakana
		return true
	case r >= 0x3400 && r <= 0x9FFF: // CJK ideographs, extensions A
		return true
	case r >= 0xAC00 && r <= 0xD7AF: // Hangul syllables
		return true
	case r >= 0xF900 && r <= 0xFAFF: // CJK compatibility ideographs
		return true
	case r >= 0xFF00 && r <= 0xFFEF: // Full-width forms
		return true
	default:
		return false
	}
}

// looksLikeCode scores text against a short indicator list.
func looksLikeCode(text string) bool {
	hits := 0
	for _, hint := range codeHints {
		if strings.Contains(text, hint) {
			hits++
		}
	}
	return hits >= 2
}

// TruncateResult is the outcome of a token-budget truncation.
type TruncateResult struct {
	Text      string
	Truncated bool
}

// TruncateToTokens cuts text to roughly maxTokens, preferring a paragraph,
// sentence, or line boundary that lands within 80-90% of the target
// character count.
func TruncateToTokens(text string, maxTokens int) TruncateResult {
	if EstimateTokens(text) <= maxTokens {
		return TruncateResult{Text: text}
	}

	perToken := proseCharsPerToken
	if looksLikeCode(text) {
		perToken = codeCharsPerToken
	}
	targetChars := int(float64(maxTokens) * perToken)
	if targetChars >= len(text) {
		targetChars = len(text) - 1
	}
	low := targetChars * 80 / 100
	high := targetChars * 90 / 100

	cut := -1
	for _, boundary := range []string{"\n\n", ". ", "\n"} {
		idx := strings.LastIndex(text[:high], boundary)
		if idx >= low {
			cut = idx + len(boundary)
			break
		}
	}
	if cut < 0 {
		cut = high
	}
	for cut > 0 && cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return TruncateResult{
		Text:      strings.TrimRight(text[:cut], " \n"),
		Truncated: true,
	}
}
