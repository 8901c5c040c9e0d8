package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
)

const (
	maxTopics       = 5
	maxNumbers      = 5
	maxDates        = 3
	numberScanBytes = 2048
	wordsPerMinute  = 225
)

var (
	numberRe = regexp.MustCompile(`\b\d[\d,]*(?:\.\d+)?%?\b`)
	// Month-name, M/D/YY(YY), and ISO date mentions.
	dateRe = regexp.MustCompile(`(?i)\b(?:(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},?\s+\d{4}|\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2})\b`)
)

// buildSourceSummary produces the short human-readable fact list: top-level
// topics, distinct numbers from the document head, date mentions, and the
// word count.
func buildSourceSummary(md string, outline []packet.OutlineEntry) []string {
	var facts []string

	var topics []string
	for _, e := range outline {
		if e.Level <= 2 && len(topics) < maxTopics {
			topics = append(topics, e.Text)
		}
	}
	if len(topics) > 0 {
		facts = append(facts, "Topics: "+strings.Join(topics, "; "))
	}

	head := md
	if len(head) > numberScanBytes {
		head = head[:numberScanBytes]
	}
	var numbers []string
	seen := map[string]struct{}{}
	for _, n := range numberRe.FindAllString(head, -1) {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		numbers = append(numbers, n)
		if len(numbers) >= maxNumbers {
			break
		}
	}
	if len(numbers) > 0 {
		facts = append(facts, "Key numbers: "+strings.Join(numbers, ", "))
	}

	var dates []string
	seenDates := map[string]struct{}{}
	for _, d := range dateRe.FindAllString(md, -1) {
		if _, dup := seenDates[d]; dup {
			continue
		}
		seenDates[d] = struct{}{}
		dates = append(dates, d)
		if len(dates) >= maxDates {
			break
		}
	}
	if len(dates) > 0 {
		facts = append(facts, "Date mentions: "+strings.Join(dates, ", "))
	}

	facts = append(facts, fmt.Sprintf("Word count: %d", len(strings.Fields(md))))
	return facts
}

// readingTimeMin is ceil(words/225), minimum one minute.
func readingTimeMin(words int) int {
	t := (words + wordsPerMinute - 1) / wordsPerMinute
	if t < 1 {
		t = 1
	}
	return t
}
