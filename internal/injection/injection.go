// Package injection detects prompt-injection markers in extracted content.
// Detections are surfaced as annotations on the packet; the content itself is
// never modified.
package injection

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
)

const contextWindow = 50

type pattern struct {
	re     *regexp.Regexp
	reason string
}

// catalogue is the fixed set of case-insensitive patterns, each tagged with
// the reason reported on a hit.
var catalogue = []pattern{
	// Instruction override.
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|commands?|directives?)`), "instruction override attempt"},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?)`), "instruction override attempt"},
	{regexp.MustCompile(`(?i)forget\s+(everything|all)\s+(you\s+know|you('ve| have)\s+been\s+told|above)`), "instruction override attempt"},

	// Role reassignment.
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+an?\s+\w+`), "role reassignment attempt"},
	{regexp.MustCompile(`(?i)\bact\s+as\s+(an?\s+)?\w+`), "role reassignment attempt"},
	{regexp.MustCompile(`(?i)\bpretend\s+to\s+be\b`), "role reassignment attempt"},

	// Mode switching.
	{regexp.MustCompile(`(?i)\benter\s+\w+\s+mode\b`), "mode switching attempt"},
	{regexp.MustCompile(`(?i)\benable\s+(developer|admin|root|sudo|god)\s+mode\b`), "mode switching attempt"},

	// System prompt extraction.
	{regexp.MustCompile(`(?i)(show|reveal|print|tell)\s+(me\s+)?your\s+(system\s+)?prompt`), "system prompt extraction attempt"},
	{regexp.MustCompile(`(?i)repeat\s+your\s+(initial|original|system)\s+(instructions?|prompt)`), "system prompt extraction attempt"},

	// Known jailbreaks.
	{regexp.MustCompile(`(?i)\bDAN\s+mode\b`), "known jailbreak pattern"},
	{regexp.MustCompile(`(?i)\bdo\s+anything\s+now\b`), "known jailbreak pattern"},
	{regexp.MustCompile(`(?i)\bjailbreak\b`), "known jailbreak pattern"},

	// Safety bypass.
	{regexp.MustCompile(`(?i)bypass\s+(your\s+)?(safety|restrictions?|filters?|guidelines?|guardrails?)`), "safety bypass attempt"},

	// Fake delimiters.
	{regexp.MustCompile(`(?i)\[SYSTEM\]`), "fake system delimiter"},
	{regexp.MustCompile(`(?i)<\|?system\|?>`), "fake system delimiter"},
	{regexp.MustCompile(`(?i)###\s*System\s*###`), "fake system delimiter"},
	{regexp.MustCompile(`(?im)^(Human|Assistant|System):\s`), "fake conversation delimiter"},

	// Tool call injection.
	{regexp.MustCompile(`(?i)<tool_call>`), "tool call injection"},
	{regexp.MustCompile(`\{"function":\s*"`), "tool call injection"},

	// Structured output tag injection.
	{regexp.MustCompile(`(?i)<thinking>`), "structured output tag injection"},
	{regexp.MustCompile(`(?i)<answer>`), "structured output tag injection"},

	// Conditional injection.
	{regexp.MustCompile(`(?i)when\s+(the\s+)?(AI|assistant|model|LLM)\s+(reads|sees|processes)\s+this`), "conditional injection"},

	// Secret exfiltration.
	{regexp.MustCompile(`(?i)(leak|exfiltrate|extract|steal)\s+(the\s+)?(api\s*key|password|token|secret|credential)s?`), "secret exfiltration attempt"},
}

// Detect scans markdown for injection markers. Each (match, reason) pair is
// reported once, with up to 50 characters of context on either side.
func Detect(content string) []packet.InjectionDetection {
	var out []packet.InjectionDetection
	seen := make(map[string]struct{})

	for _, p := range catalogue {
		for _, loc := range p.re.FindAllStringIndex(content, -1) {
			match := content[loc[0]:loc[1]]
			key := strings.ToLower(match) + "\x00" + p.reason
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, packet.InjectionDetection{
				Text:   contextAround(content, loc[0], loc[1]),
				Reason: p.reason,
			})
		}
	}
	return out
}

// contextAround returns the match with a ±50 character window, marking
// truncation with ellipses.
func contextAround(content string, start, end int) string {
	from := start - contextWindow
	if from < 0 {
		from = 0
	}
	to := end + contextWindow
	if to > len(content) {
		to = len(content)
	}
	// Avoid splitting multibyte runes at the window edges.
	for from > 0 && from < len(content) && !isRuneStart(content[from]) {
		from--
	}
	for to < len(content) && !isRuneStart(content[to]) {
		to++
	}

	text := content[from:to]
	if from > 0 {
		text = "..." + text
	}
	if to < len(content) {
		text += "..."
	}
	return text
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
