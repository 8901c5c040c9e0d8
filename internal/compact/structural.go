package compact

import (
	"sort"
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/chunk"
)

// summarizeMinBudget is the smallest remaining budget worth spending on an
// in-section summary instead of recording an omission.
const summarizeMinBudget = 40

// section is a heading-delimited slice of the document.
type section struct {
	heading string
	body    string
	index   int
	score   float64
}

func (s section) text() string {
	switch {
	case s.heading == "":
		return s.body
	case s.body == "":
		return s.heading
	default:
		return s.heading + "\n\n" + s.body
	}
}

func (s section) label() string {
	if s.heading != "" {
		return strings.TrimSpace(strings.TrimLeft(s.heading, "# "))
	}
	label := s.body
	if len(label) > 60 {
		label = label[:60] + "..."
	}
	return strings.Join(strings.Fields(label), " ")
}

// structuralCompaction keeps whole sections by score. A section too large
// for the remaining budget is summarized in place when at least 40 tokens
// remain; otherwise it is recorded as an omission.
func structuralCompaction(content string, budget int, preserve map[string]bool) (string, []string) {
	sections := splitSections(content)
	for i := range sections {
		sections[i].score = scoreSection(sections[i], preserve)
	}

	byScore := append([]section(nil), sections...)
	sort.SliceStable(byScore, func(i, j int) bool {
		if byScore[i].score != byScore[j].score {
			return byScore[i].score > byScore[j].score
		}
		return byScore[i].index < byScore[j].index
	})

	remaining := budget
	var included []section
	var omissions []string
	for _, s := range byScore {
		t := chunk.EstimateTokens(s.text())
		switch {
		case t <= remaining:
			included = append(included, s)
			remaining -= t
		case remaining >= summarizeMinBudget:
			summarized := summarizeSection(s, remaining, preserve)
			st := chunk.EstimateTokens(summarized.text())
			if st <= remaining {
				included = append(included, summarized)
				remaining -= st
				continue
			}
			omissions = append(omissions, s.label())
		default:
			omissions = append(omissions, s.label())
		}
	}

	sort.Slice(included, func(i, j int) bool { return included[i].index < included[j].index })
	parts := make([]string, len(included))
	for i, s := range included {
		parts[i] = s.text()
	}
	return strings.Join(parts, "\n\n"), omissions
}

// splitSections cuts at heading lines, fence-aware. A leading run before the
// first heading forms a headingless section.
func splitSections(content string) []section {
	var sections []section
	var heading string
	var body []string

	flush := func() {
		bodyText := strings.TrimSpace(strings.Join(body, "\n"))
		if heading == "" && bodyText == "" {
			body = nil
			return
		}
		sections = append(sections, section{heading: heading, body: bodyText, index: len(sections)})
		heading = ""
		body = nil
	}

	var fenceChar byte
	var fenceWidth int
	inCode := false
	for _, line := range strings.Split(content, "\n") {
		if inCode {
			body = append(body, line)
			if c, w := fenceRun(line); c == fenceChar && w >= fenceWidth {
				inCode = false
			}
			continue
		}
		if c, w := fenceRun(line); w >= 3 {
			inCode = true
			fenceChar, fenceWidth = c, w
			body = append(body, line)
			continue
		}
		trimmed := strings.TrimSpace(line)
		if isHeading(trimmed) {
			flush()
			heading = trimmed
			continue
		}
		body = append(body, line)
	}
	flush()
	return sections
}

func scoreSection(s section, preserve map[string]bool) float64 {
	score := 0.0
	if s.heading != "" {
		score += 2
	}
	if n := len(s.body); n >= 100 && n <= 2000 {
		score += 1
	}
	if preserve["numbers"] && numberMarkerRe.MatchString(s.body) {
		score += 1
	}
	if preserve["dates"] && dateMarkerRe.MatchString(s.body) {
		score += 1
	}
	if preserve["names"] && nameMarkerRe.MatchString(s.body) {
		score += 1
	}
	if preserve["definitions"] && definitionMarkerRe.MatchString(s.body) {
		score += 1
	}
	if preserve["procedures"] && procedureMarkerRe.MatchString(s.body) {
		score += 1
	}
	if strings.Contains(s.body, "```") || strings.Contains(s.body, "~~~") {
		score += 1
	}
	for _, line := range strings.Split(s.body, "\n") {
		if isListItem(strings.TrimSpace(line)) {
			score += 1
			break
		}
	}
	return score
}

// summarizeSection sentence-scores the body into the remaining budget,
// keeping the heading line.
func summarizeSection(s section, budget int, preserve map[string]bool) section {
	bodyBudget := budget - chunk.EstimateTokens(s.heading)
	if bodyBudget < 1 {
		bodyBudget = 1
	}
	sentences := splitSentences(s.body)
	for i := range sentences {
		sentences[i].score = scoreSentenceSalience(sentences[i], preserve)
	}
	return section{
		heading: s.heading,
		body:    formatSentences(selectWithinBudget(sentences, bodyBudget)),
		index:   s.index,
	}
}
