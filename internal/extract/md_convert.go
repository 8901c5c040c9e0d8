package extract

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlToMarkdown renders a sanitized HTML subtree as Markdown: ATX headings,
// fenced code blocks with the language taken from class="language-X",
// GitHub-flavored tables with pipe escaping.
func htmlToMarkdown(root *html.Node) string {
	var b strings.Builder
	renderChildren(&b, root, renderState{})
	return tidyMarkdown(b.String())
}

type renderState struct {
	listDepth  int
	ordered    bool
	itemIndex  int
	inPre      bool
	quoteDepth int
}

func renderChildren(b *strings.Builder, n *html.Node, st renderState) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(b, c, st)
	}
}

func renderNode(b *strings.Builder, n *html.Node, st renderState) {
	switch n.Type {
	case html.TextNode:
		if st.inPre {
			b.WriteString(n.Data)
		} else {
			b.WriteString(collapseSpace(n.Data))
		}
		return
	case html.ElementNode:
	default:
		renderChildren(b, n, st)
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		text := strings.TrimSpace(inlineText(n))
		if text != "" {
			b.WriteString("\n\n" + strings.Repeat("#", level) + " " + text + "\n\n")
		}
	case atom.P:
		b.WriteString("\n\n")
		renderChildren(b, n, st)
		b.WriteString("\n\n")
	case atom.Br:
		b.WriteString("\n")
	case atom.Hr:
		b.WriteString("\n\n---\n\n")
	case atom.Strong, atom.B:
		wrapInline(b, n, st, "**")
	case atom.Em, atom.I:
		wrapInline(b, n, st, "*")
	case atom.Del, atom.S:
		wrapInline(b, n, st, "~~")
	case atom.Code:
		if st.inPre {
			renderChildren(b, n, st)
		} else {
			b.WriteString("`" + strings.TrimSpace(textOf(n)) + "`")
		}
	case atom.Pre:
		lang := codeLanguage(n)
		code := strings.TrimRight(preText(n), "\n")
		fence := "```"
		for strings.Contains(code, fence) {
			fence += "`"
		}
		b.WriteString("\n\n" + fence + lang + "\n" + code + "\n" + fence + "\n\n")
	case atom.A:
		text := strings.TrimSpace(inlineText(n))
		href := attrValue(n, "href")
		switch {
		case text == "":
		case href == "":
			b.WriteString(text)
		default:
			b.WriteString("[" + text + "](" + href + ")")
		}
	case atom.Img:
		alt := attrValue(n, "alt")
		src := attrValue(n, "src")
		if src != "" {
			b.WriteString("![" + alt + "](" + src + ")")
		}
	case atom.Ul, atom.Ol:
		st.listDepth++
		st.ordered = n.DataAtom == atom.Ol
		st.itemIndex = 0
		b.WriteString("\n")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Li {
				st.itemIndex++
				renderListItem(b, c, st)
			}
		}
		b.WriteString("\n")
	case atom.Blockquote:
		var inner strings.Builder
		renderChildren(&inner, n, st)
		b.WriteString("\n\n")
		for _, line := range strings.Split(strings.TrimSpace(tidyMarkdown(inner.String())), "\n") {
			b.WriteString("> " + line + "\n")
		}
		b.WriteString("\n")
	case atom.Table:
		renderTable(b, n)
	case atom.Head, atom.Title, atom.Meta, atom.Link:
		// Non-content.
	default:
		renderChildren(b, n, st)
	}
}

func wrapInline(b *strings.Builder, n *html.Node, st renderState, marker string) {
	text := strings.TrimSpace(inlineText(n))
	if text == "" {
		return
	}
	b.WriteString(marker + text + marker)
}

func renderListItem(b *strings.Builder, li *html.Node, st renderState) {
	indent := strings.Repeat("  ", st.listDepth-1)
	marker := "- "
	if st.ordered {
		marker = strconv.Itoa(st.itemIndex) + ". "
	}

	var inner strings.Builder
	renderChildren(&inner, li, st)
	lines := strings.Split(strings.TrimSpace(tidyMarkdown(inner.String())), "\n")
	for i, line := range lines {
		if i == 0 {
			b.WriteString(indent + marker + line + "\n")
		} else if strings.TrimSpace(line) != "" {
			b.WriteString(indent + strings.Repeat(" ", len(marker)) + line + "\n")
		}
	}
}

// renderTable emits a GFM table: first row as header, pipes escaped in cells.
func renderTable(b *strings.Builder, table *html.Node) {
	var rows [][]string
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			var row []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					cell := strings.TrimSpace(collapseSpace(textOf(c)))
					cell = strings.ReplaceAll(cell, "|", `\|`)
					cell = strings.ReplaceAll(cell, "\n", " ")
					row = append(row, cell)
				}
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(table)

	if len(rows) == 0 {
		return
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	b.WriteString("\n\n")
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 {
			sep := make([]string, width)
			for j := range sep {
				sep[j] = "---"
			}
			b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
		}
	}
	b.WriteString("\n")
}

var languageClassRe = regexp.MustCompile(`(?i)\blanguage-([\w+-]+)`)

// codeLanguage reads class="language-X" from a pre element or its code child.
func codeLanguage(pre *html.Node) string {
	for _, n := range []*html.Node{pre, findFirst(pre, atom.Code)} {
		if n == nil {
			continue
		}
		if m := languageClassRe.FindStringSubmatch(attrValue(n, "class")); m != nil {
			return strings.ToLower(m[1])
		}
	}
	return ""
}

func preText(pre *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(pre)
	return b.String()
}

// inlineText renders a node's inline content (links flattened to their text).
func inlineText(n *html.Node) string {
	return collapseSpace(textOf(n))
}

var spaceRe = regexp.MustCompile(`[ \t\r\n]+`)

func collapseSpace(s string) string {
	return spaceRe.ReplaceAllString(s, " ")
}

var blankRunsRe = regexp.MustCompile(`\n{3,}`)

// tidyMarkdown collapses blank-line runs and trims the document.
func tidyMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")
	s = blankRunsRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
