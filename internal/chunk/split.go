package chunk

import (
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
)

// splitBlockByKind splits one over-budget block into budget-sized parts,
// respecting the block's structure: code keeps its fences on every part,
// lists split at item boundaries, tables repeat the header row.
func splitBlockByKind(b packet.KeyBlock, budget int) []string {
	switch b.Kind {
	case packet.BlockCode:
		return splitCode(b.Text, budget)
	case packet.BlockList:
		return splitList(b.Text, budget)
	case packet.BlockTable:
		return splitTable(b.Text, budget)
	default:
		return splitText(b.Text, budget)
	}
}

// splitCode splits fenced code at line boundaries, re-wrapping every part in
// the original fences. A single line beyond the budget falls back to text
// splitting.
func splitCode(text string, budget int) []string {
	lines := strings.Split(text, "\n")
	open := "```"
	closing := "```"
	inner := lines
	if len(lines) >= 2 {
		if _, w := codeFenceOf(lines[0]); w >= 3 {
			open = lines[0]
			inner = lines[1:]
			if _, w := codeFenceOf(inner[len(inner)-1]); w >= 3 {
				closing = inner[len(inner)-1]
				inner = inner[:len(inner)-1]
			}
		}
	}

	wrapTokens := EstimateTokens(open + "\n" + closing)
	var parts []string
	var cur []string
	curTokens := wrapTokens

	flush := func() {
		if len(cur) == 0 {
			return
		}
		parts = append(parts, open+"\n"+strings.Join(cur, "\n")+"\n"+closing)
		cur = nil
		curTokens = wrapTokens
	}

	for _, line := range inner {
		lt := EstimateTokens(line + "\n")
		if lt+wrapTokens > budget {
			// One line alone blows the budget; split it as text.
			flush()
			for _, piece := range splitText(line, budget-wrapTokens) {
				parts = append(parts, open+"\n"+piece+"\n"+closing)
			}
			continue
		}
		if curTokens+lt > budget {
			flush()
		}
		cur = append(cur, line)
		curTokens += lt
	}
	flush()
	return parts
}

func codeFenceOf(line string) (byte, int) {
	s := strings.TrimLeft(line, " \t")
	if s == "" || (s[0] != '`' && s[0] != '~') {
		return 0, 0
	}
	n := 0
	for n < len(s) && s[n] == s[0] {
		n++
	}
	return s[0], n
}

// splitList splits at list-item boundaries; indented continuation lines stay
// with their item.
func splitList(text string, budget int) []string {
	lines := strings.Split(text, "\n")
	var items []string
	var cur []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isListItemStart(trimmed) && len(cur) > 0 {
			items = append(items, strings.Join(cur, "\n"))
			cur = nil
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		items = append(items, strings.Join(cur, "\n"))
	}

	var parts []string
	var acc []string
	accTokens := 0
	flush := func() {
		if len(acc) == 0 {
			return
		}
		parts = append(parts, strings.Join(acc, "\n"))
		acc = nil
		accTokens = 0
	}
	for _, item := range items {
		it := EstimateTokens(item + "\n")
		if it > budget {
			flush()
			parts = append(parts, splitText(item, budget)...)
			continue
		}
		if accTokens+it > budget {
			flush()
		}
		acc = append(acc, item)
		accTokens += it
	}
	flush()
	return parts
}

func isListItemStart(trimmed string) bool {
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

// splitTable splits by rows, repeating the header and separator rows in
// every part. When even header plus one row exceeds the budget, it falls
// back to text splitting.
func splitTable(text string, budget int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return splitText(text, budget)
	}
	header := lines[:2]
	rows := lines[2:]
	headerTokens := EstimateTokens(strings.Join(header, "\n") + "\n")
	if headerTokens >= budget {
		return splitText(text, budget)
	}

	var parts []string
	var cur []string
	curTokens := headerTokens
	flush := func() {
		if len(cur) == 0 {
			return
		}
		parts = append(parts, strings.Join(append(append([]string{}, header...), cur...), "\n"))
		cur = nil
		curTokens = headerTokens
	}
	for _, row := range rows {
		rt := EstimateTokens(row + "\n")
		if headerTokens+rt > budget {
			return splitText(text, budget)
		}
		if curTokens+rt > budget {
			flush()
		}
		cur = append(cur, row)
		curTokens += rt
	}
	flush()
	if len(parts) == 0 {
		return splitText(text, budget)
	}
	return parts
}

// splitText splits free text to the budget, preferring paragraph breaks,
// then sentence boundaries, then lines, then a hard cut. Target characters
// approximate tokens at 3.5 chars each.
func splitText(text string, budget int) []string {
	if budget < 1 {
		budget = 1
	}
	if EstimateTokens(text) <= budget {
		return []string{text}
	}
	targetChars := int(float64(budget) * proseCharsPerToken)
	if targetChars < 1 {
		targetChars = 1
	}

	var parts []string
	rest := text
	for len(rest) > 0 {
		if EstimateTokens(rest) <= budget {
			parts = append(parts, rest)
			break
		}
		cut := findSplitPoint(rest, targetChars)
		parts = append(parts, strings.TrimRight(rest[:cut], " \n"))
		rest = strings.TrimLeft(rest[cut:], " \n")
	}
	return parts
}

func findSplitPoint(text string, targetChars int) int {
	if targetChars >= len(text) {
		return len(text)
	}
	window := text[:targetChars]
	minCut := targetChars / 2
	for _, boundary := range []string{"\n\n", ". ", "! ", "? ", "\n"} {
		if idx := strings.LastIndex(window, boundary); idx >= minCut {
			return idx + len(boundary)
		}
	}
	// Hard cut at a rune boundary.
	cut := targetChars
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	if cut == 0 {
		cut = targetChars
	}
	return cut
}
