package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// readability implements a scoring pass that locates the main article
// candidate of a page. The decision between the readability candidate and a
// structural fallback is made by chooseContent's word-count rule.

var blockContainers = map[atom.Atom]struct{}{
	atom.Div: {}, atom.Article: {}, atom.Section: {}, atom.Main: {},
	atom.Td: {}, atom.Blockquote: {},
}

// readabilityCandidate scores block containers by the paragraph text they
// hold and returns the best one. Returns nil when nothing scores.
func readabilityCandidate(doc *html.Node) *html.Node {
	scores := make(map[*html.Node]float64)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.P || n.DataAtom == atom.Pre || n.DataAtom == atom.Li) {
			text := strings.TrimSpace(textOf(n))
			if len(text) >= 25 {
				score := 1.0 + float64(strings.Count(text, ","))
				if len(text) > 100 {
					score += float64(min(len(text)/100, 3))
				}
				for p := n.Parent; p != nil; p = p.Parent {
					if p.Type != html.ElementNode {
						continue
					}
					if _, ok := blockContainers[p.DataAtom]; ok {
						scores[p] += score
						// Grandparents get half credit, then stop.
						if gp := containerAbove(p); gp != nil {
							scores[gp] += score / 2
						}
						break
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var best *html.Node
	bestScore := 0.0
	for n, s := range scores {
		s *= 1.0 - linkDensity(n)
		if s > bestScore {
			best = n
			bestScore = s
		}
	}
	return best
}

func containerAbove(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			if _, ok := blockContainers[p.DataAtom]; ok {
				return p
			}
		}
	}
	return nil
}

// fallbackCandidate selects main, article, [role=main], or body.
func fallbackCandidate(doc *html.Node) *html.Node {
	if n := findFirst(doc, atom.Main, atom.Article); n != nil {
		return n
	}
	if n := findByRole(doc, "main"); n != nil {
		return n
	}
	return findFirst(doc, atom.Body)
}

func findByRole(n *html.Node, role string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(attrValue(n, "role"), role) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByRole(c, role); found != nil {
			return found
		}
	}
	return nil
}

// chooseContent runs the readability pass on a clone of the sanitized
// document and compares it with the structural fallback. Readability wins
// only when its word count is positive and it has not discarded too much of
// a substantial page.
func chooseContent(doc *html.Node) *html.Node {
	fallback := fallbackCandidate(doc)
	candidate := readabilityCandidate(cloneTree(doc))

	if candidate == nil {
		return fallback
	}
	rw := wordCount(textOf(candidate))
	if rw == 0 {
		return fallback
	}
	if fallback != nil {
		fw := wordCount(textOf(fallback))
		if fw >= 600 && float64(rw)/float64(fw) < 0.35 {
			return fallback
		}
		if fw >= 300 && rw < 120 {
			return fallback
		}
	}
	return candidate
}

// textOf returns the concatenated text content of a subtree.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		switch n.DataAtom {
		case atom.P, atom.Div, atom.Br, atom.Li, atom.Tr,
			atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			b.WriteByte('\n')
		}
	}
	walk(n)
	return b.String()
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// linkDensity is the share of a node's text that sits inside links.
func linkDensity(n *html.Node) float64 {
	total := len(strings.TrimSpace(textOf(n)))
	if total == 0 {
		return 0
	}
	linked := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			linked += len(strings.TrimSpace(textOf(n)))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	d := float64(linked) / float64(total)
	if d > 1 {
		d = 1
	}
	return d
}
