package compact

import (
	"sort"
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/chunk"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "can": true, "did": true, "do": true,
	"does": true, "for": true, "from": true, "had": true, "has": true,
	"have": true, "how": true, "i": true, "if": true, "in": true, "is": true,
	"it": true, "its": true, "my": true, "not": true, "of": true, "on": true,
	"or": true, "our": true, "that": true, "the": true, "their": true,
	"there": true, "these": true, "they": true, "this": true, "to": true,
	"was": true, "we": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "who": true, "why": true, "will": true,
	"with": true, "would": true, "you": true, "your": true,
}

// stemSuffixes are tried longest first; the first applicable strip wins.
var stemSuffixes = []string{
	"ations", "ation", "ments", "ment", "tions", "tion", "ings", "ing",
	"ers", "er", "ed", "es", "s",
}

// stemTerm applies the light suffix stripper used for query matching.
func stemTerm(word string) string {
	if strings.HasSuffix(word, "ies") && len(word) > 4 {
		return word[:len(word)-3] + "y"
	}
	for _, suf := range stemSuffixes {
		if strings.HasSuffix(word, suf) && len(word)-len(suf) >= 3 {
			return word[:len(word)-len(suf)]
		}
	}
	return word
}

// buildQueryTerms extracts stemmed, stop-word-filtered terms from a question.
func buildQueryTerms(question string) []string {
	var terms []string
	seen := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(question)) {
		w = strings.Trim(w, ".,!?\"'()[]{}:;")
		if len(w) < 2 || stopWords[w] {
			continue
		}
		t := stemTerm(w)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}

// termMatches counts distinct query terms whose stem appears in the sentence.
func termMatches(s string, terms []string) int {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		words[stemTerm(strings.Trim(w, ".,!?\"'()[]{}:;"))] = true
	}
	n := 0
	for _, t := range terms {
		if words[t] {
			n++
		}
	}
	return n
}

// questionFocusedCompaction scores sentences by salience plus query-term
// matches, with a small bonus for matches in neighboring sentences. The
// second return reports a fallback to plain salience: no question, no
// usable terms, or zero matches anywhere.
func questionFocusedCompaction(content, question string, budget int, preserve map[string]bool) (string, bool) {
	terms := buildQueryTerms(question)
	if len(terms) == 0 {
		return salienceCompaction(content, budget, preserve), true
	}

	sentences := splitSentences(content)
	matches := make([]int, len(sentences))
	anyMatch := false
	for i := range sentences {
		matches[i] = termMatches(sentences[i].text, terms)
		if matches[i] > 0 {
			anyMatch = true
		}
	}
	if !anyMatch {
		return salienceCompaction(content, budget, preserve), true
	}

	for i := range sentences {
		neighbor := 0
		if i > 0 {
			neighbor += matches[i-1]
		}
		if i+1 < len(sentences) {
			neighbor += matches[i+1]
		}
		if neighbor > 2 {
			neighbor = 2
		}
		sentences[i].score = scoreSentenceSalience(sentences[i], preserve) +
			3*float64(matches[i]) + float64(neighbor)
	}

	byScore := append([]sentence(nil), sentences...)
	sort.SliceStable(byScore, func(i, j int) bool {
		if byScore[i].score != byScore[j].score {
			return byScore[i].score > byScore[j].score
		}
		if matches[byScore[i].index] != matches[byScore[j].index] {
			return matches[byScore[i].index] > matches[byScore[j].index]
		}
		return byScore[i].index < byScore[j].index
	})

	used := 0
	taken := map[int]bool{}
	var selected []sentence
	for _, s := range byScore {
		t := chunk.EstimateTokens(s.text) + 1
		if used+t > budget {
			continue
		}
		used += t
		taken[s.index] = true
		selected = append(selected, s)
	}

	// A thin result means the question barely matched; pad with salience.
	if used*10 < budget*7 {
		bySalience := append([]sentence(nil), sentences...)
		for i := range bySalience {
			bySalience[i].score = scoreSentenceSalience(bySalience[i], preserve)
		}
		sort.SliceStable(bySalience, func(i, j int) bool {
			if bySalience[i].score != bySalience[j].score {
				return bySalience[i].score > bySalience[j].score
			}
			return bySalience[i].index < bySalience[j].index
		})
		for _, s := range bySalience {
			if taken[s.index] {
				continue
			}
			t := chunk.EstimateTokens(s.text) + 1
			if used+t > budget {
				continue
			}
			used += t
			taken[s.index] = true
			selected = append(selected, s)
		}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].index < selected[j].index })
	return formatSentences(selected), false
}
