package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// paywallMarkers match against class and id values of surviving elements.
var paywallMarkers = []string{
	"paywall", "subscription-required", "premium-content", "meteredcontent",
	"piano-offer", "regwall",
}

// paywallPhrases are scanned in the page text, case-insensitively.
var paywallPhrases = []string{
	"subscribe to continue reading",
	"subscribe to read the full article",
	"this content is for subscribers",
	"premium subscribers only",
	"already a subscriber? sign in",
	"to continue reading, subscribe",
	"create a free account to continue",
}

// ExtractHTML parses, sanitizes, and reduces an HTML page to its main
// content, rendered as Markdown with document metadata attached.
func ExtractHTML(in Input) (*Content, error) {
	doc, err := html.Parse(strings.NewReader(in.Text))
	if err != nil {
		return nil, werrors.Wrap(werrors.CodeExtractionFailed, err)
	}

	out := &Content{}
	collectMetadata(doc, out)

	Sanitize(doc)

	if detectPaywall(doc) {
		out.Warnings = append(out.Warnings, packet.Warning{
			Type:    packet.WarningPaywalled,
			Message: "page appears to be behind a paywall; content may be incomplete",
		})
	}

	main := chooseContent(doc)
	if main == nil {
		main = doc
	}
	out.Markdown = htmlToMarkdown(main)
	out.TextContent = strings.TrimSpace(collapseSpace(textOf(main)))
	out.Excerpt = excerptOf(out.TextContent)

	if out.Title == "" {
		if h1 := findFirst(main, atom.H1); h1 != nil {
			out.Title = strings.TrimSpace(inlineText(h1))
		}
	}
	return out, nil
}

// collectMetadata pulls title, byline, site name, language, and publish time
// from the head before sanitization removes anything.
func collectMetadata(doc *html.Node, out *Content) {
	if htmlNode := findFirst(doc, atom.Html); htmlNode != nil {
		out.Lang = attrValue(htmlNode, "lang")
	}
	if title := findFirst(doc, atom.Title); title != nil {
		out.Title = strings.TrimSpace(collapseSpace(textOf(title)))
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			name := strings.ToLower(attrValue(n, "name"))
			prop := strings.ToLower(attrValue(n, "property"))
			content := strings.TrimSpace(attrValue(n, "content"))
			if content == "" {
				return
			}
			switch {
			case prop == "og:title" && out.Title == "":
				out.Title = content
			case prop == "og:site_name":
				out.SiteName = content
			case name == "author" || prop == "article:author":
				if out.Byline == "" {
					out.Byline = content
				}
			case prop == "article:published_time" || name == "date" || name == "publish-date":
				if out.PublishedTime == "" {
					out.PublishedTime = content
				}
			case name == "description" && out.Excerpt == "":
				out.Excerpt = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

// detectPaywall checks surviving elements for paywall selectors and the page
// text for subscription phrases.
func detectPaywall(doc *html.Node) bool {
	found := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode {
			marker := strings.ToLower(attrValue(n, "class") + " " + attrValue(n, "id"))
			for _, m := range paywallMarkers {
				if strings.Contains(marker, m) {
					found = true
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if found {
		return true
	}

	text := strings.ToLower(textOf(doc))
	for _, phrase := range paywallPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

const excerptLen = 280

func excerptOf(text string) string {
	if len(text) <= excerptLen {
		return text
	}
	cut := text[:excerptLen]
	if i := strings.LastIndexByte(cut, ' '); i > excerptLen/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
