package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// deniedTags are removed from the document wholesale, subtrees included.
var deniedTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "iframe": {}, "frame": {},
	"object": {}, "embed": {}, "applet": {}, "svg": {}, "math": {},
	"canvas": {}, "audio": {}, "video": {}, "source": {}, "track": {},
	"map": {}, "area": {}, "template": {}, "slot": {}, "portal": {},
}

// boilerplateTags are structural elements that carry navigation and chrome
// rather than content.
var boilerplateTags = map[string]struct{}{
	"nav": {}, "footer": {},
}

// boilerplateMarkers match against class and id values, substring,
// case-insensitive.
var boilerplateMarkers = []string{
	"cookie", "consent", "advert", "ads-", "-ads", "adsbygoogle", "sponsor",
	"share-", "social-share", "sharing", "comments", "comment-section",
	"popup", "modal", "newsletter-signup", "paywall-prompt", "sidebar-promo",
	"breadcrumb", "skip-link",
}

// boilerplateRoles match the role attribute exactly.
var boilerplateRoles = map[string]struct{}{
	"banner": {}, "navigation": {}, "complementary": {}, "contentinfo": {},
}

// deniedSchemes are stripped from URL-carrying attributes.
var deniedSchemes = []string{"javascript:", "data:", "vbscript:", "file:"}

// urlAttrs are the attributes subject to scheme filtering.
var urlAttrs = map[string]struct{}{
	"href": {}, "src": {}, "action": {}, "formaction": {},
}

// Sanitize removes unsafe and boilerplate nodes in place: the tag deny list,
// boilerplate selectors, hidden elements, comments, event handler and style
// attributes, and URL attributes with dangerous schemes.
func Sanitize(doc *html.Node) {
	sanitizeNode(doc)
}

func sanitizeNode(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if shouldRemove(c) {
			n.RemoveChild(c)
			continue
		}
		if c.Type == html.ElementNode {
			cleanAttributes(c)
		}
		sanitizeNode(c)
	}
}

func shouldRemove(n *html.Node) bool {
	switch n.Type {
	case html.CommentNode:
		return true
	case html.ElementNode:
	default:
		return false
	}

	tag := n.Data
	if _, ok := deniedTags[tag]; ok {
		return true
	}
	if _, ok := boilerplateTags[tag]; ok {
		return true
	}

	if role := attrValue(n, "role"); role != "" {
		if _, ok := boilerplateRoles[strings.ToLower(role)]; ok {
			return true
		}
	}
	if strings.EqualFold(attrValue(n, "aria-hidden"), "true") {
		return true
	}

	marker := strings.ToLower(attrValue(n, "class") + " " + attrValue(n, "id"))
	for _, m := range boilerplateMarkers {
		if strings.Contains(marker, m) {
			return true
		}
	}

	if isHiddenByStyle(attrValue(n, "style")) {
		return true
	}
	return false
}

func isHiddenByStyle(style string) bool {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(s, "display:none") ||
		strings.Contains(s, "visibility:hidden") ||
		strings.Contains(s, "opacity:0;") ||
		strings.HasSuffix(s, "opacity:0")
}

// cleanAttributes strips event handlers, inline styles, and dangerous URL
// schemes from one element.
func cleanAttributes(n *html.Node) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") || key == "style" {
			continue
		}
		if _, isURL := urlAttrs[key]; isURL && hasDeniedScheme(a.Val) {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func hasDeniedScheme(val string) bool {
	v := strings.ToLower(strings.TrimSpace(val))
	// Strip control characters that browsers ignore inside scheme names.
	v = strings.Map(func(r rune) rune {
		if r <= 0x20 {
			return -1
		}
		return r
	}, v)
	for _, s := range deniedSchemes {
		if strings.HasPrefix(v, s) {
			return true
		}
	}
	return false
}

// attrValue returns the first value of the named attribute, or empty.
func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// cloneTree deep-copies a parsed document so the readability pass can score
// and prune without disturbing the sanitized original.
func cloneTree(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneTree(child))
	}
	return c
}

// findFirst returns the first element matching any of the given atoms in
// document order.
func findFirst(n *html.Node, atoms ...atom.Atom) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range atoms {
			if n.DataAtom == a {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, atoms...); found != nil {
			return found
		}
	}
	return nil
}
