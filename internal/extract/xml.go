package extract

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

const (
	maxFeedItems    = 20
	maxTreeDepth    = 4
	maxTreeChildren = 10
)

// xmlNode is a lightweight parsed element tree.
type xmlNode struct {
	name     string
	text     string
	children []*xmlNode
}

// ExtractXML renders RSS and Atom feeds as item lists; any other XML gets a
// bounded tree summary.
func ExtractXML(in Input) (*Content, error) {
	root, err := parseXMLTree(in.Text)
	if err != nil {
		return nil, werrors.Wrap(werrors.CodeExtractionFailed, err)
	}
	if root == nil {
		return nil, werrors.New(werrors.CodeExtractionFailed, "empty XML document")
	}

	switch {
	case strings.EqualFold(root.name, "rss"):
		if channel := root.child("channel"); channel != nil {
			return feedContent(channel, channel.childText("title"), "item"), nil
		}
	case strings.EqualFold(root.name, "feed"):
		return feedContent(root, root.childText("title"), "entry"), nil
	}

	var b strings.Builder
	b.WriteString("# XML Document\n\nRoot element: `" + root.name + "`\n\n```\n")
	writeXMLTree(&b, root, 0)
	b.WriteString("```\n")
	return &Content{
		Title:       "XML Document",
		Markdown:    b.String(),
		TextContent: root.flatText(),
		Excerpt:     excerptOf(root.flatText()),
	}, nil
}

func parseXMLTree(text string) (*xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose

	var root *xmlNode
	var stack []*xmlNode
	for {
		tok, err := dec.Token()
		if err != nil {
			if root != nil {
				// Tolerate trailing garbage once a root was parsed.
				return root, nil
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name.Local}
			if len(stack) == 0 {
				if root != nil {
					return root, nil
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 && root != nil {
				return root, nil
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
}

func (n *xmlNode) child(name string) *xmlNode {
	for _, c := range n.children {
		if strings.EqualFold(c.name, name) {
			return c
		}
	}
	return nil
}

func (n *xmlNode) childText(name string) string {
	if c := n.child(name); c != nil {
		return strings.TrimSpace(c.text)
	}
	return ""
}

func (n *xmlNode) flatText() string {
	var b strings.Builder
	var walk func(n *xmlNode)
	walk = func(n *xmlNode) {
		if t := strings.TrimSpace(n.text); t != "" {
			b.WriteString(t + "\n")
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// feedContent renders a feed-oriented Markdown of up to 20 items.
func feedContent(container *xmlNode, title, itemName string) *Content {
	var b strings.Builder
	if title == "" {
		title = "Feed"
	}
	b.WriteString("# " + title + "\n\n")
	if desc := firstNonEmpty(container.childText("description"), container.childText("subtitle")); desc != "" {
		b.WriteString(desc + "\n\n")
	}

	count := 0
	for _, c := range container.children {
		if !strings.EqualFold(c.name, itemName) {
			continue
		}
		if count >= maxFeedItems {
			break
		}
		count++

		itemTitle := firstNonEmpty(c.childText("title"), "(untitled)")
		link := c.childText("link")
		if link == "" {
			// Atom links live in the href attribute, which this light tree
			// does not keep; fall back to id.
			link = c.childText("id")
		}
		b.WriteString("## " + itemTitle + "\n\n")
		if date := firstNonEmpty(c.childText("pubDate"), c.childText("published"), c.childText("updated")); date != "" {
			b.WriteString("*" + date + "*\n\n")
		}
		if summary := firstNonEmpty(c.childText("description"), c.childText("summary")); summary != "" {
			b.WriteString(strings.TrimSpace(summary) + "\n\n")
		}
		if link != "" {
			b.WriteString("[" + link + "](" + link + ")\n\n")
		}
	}

	md := tidyMarkdown(b.String())
	return &Content{
		Title:       title,
		Markdown:    md,
		TextContent: container.flatText(),
		Excerpt:     excerptOf(container.flatText()),
	}
}

// writeXMLTree prints the element tree, depth-limited to 4 levels and 10
// children per node.
func writeXMLTree(b *strings.Builder, n *xmlNode, depth int) {
	indent := strings.Repeat("  ", depth)
	text := strings.TrimSpace(n.text)
	if len(text) > 80 {
		text = text[:80] + "..."
	}
	if text != "" {
		fmt.Fprintf(b, "%s<%s> %q\n", indent, n.name, text)
	} else {
		fmt.Fprintf(b, "%s<%s>\n", indent, n.name)
	}
	if depth+1 >= maxTreeDepth {
		if len(n.children) > 0 {
			fmt.Fprintf(b, "%s  ... (%d children)\n", indent, len(n.children))
		}
		return
	}
	for i, c := range n.children {
		if i >= maxTreeChildren {
			fmt.Fprintf(b, "%s  ... (%d more)\n", indent, len(n.children)-maxTreeChildren)
			break
		}
		writeXMLTree(b, c, depth+1)
	}
}
