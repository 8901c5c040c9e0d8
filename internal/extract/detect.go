package extract

import (
	"bytes"
	"mime"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const sniffWindow = 1024

// DetectType maps a Content-Type header to a content kind, falling back to
// sniffing the first kilobyte when the header is missing, unknown, or plain
// text. Returns the kind and the declared charset (empty when unspecified).
func DetectType(contentType string, body []byte) (Kind, string) {
	kind := KindUnknown
	charset := ""

	if contentType != "" {
		mediaType, params, err := mime.ParseMediaType(contentType)
		if err == nil {
			charset = strings.ToLower(params["charset"])
			kind = kindOfMediaType(mediaType)
		}
	}

	if kind == KindUnknown || kind == KindText {
		if sniffed := sniffKind(body); sniffed != KindUnknown {
			// A text/plain declaration only upgrades to a sniffed kind; the
			// sniffer never downgrades a concrete declaration.
			if kind == KindUnknown || sniffed != KindText {
				kind = sniffed
			}
		} else if kind == KindUnknown {
			kind = KindText
		}
	}
	return kind, charset
}

func kindOfMediaType(mediaType string) Kind {
	mt := strings.ToLower(mediaType)
	switch {
	case mt == "text/html" || mt == "application/xhtml+xml":
		return KindHTML
	case mt == "text/markdown" || mt == "text/x-markdown":
		return KindMarkdown
	case mt == "application/pdf":
		return KindPDF
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return KindJSON
	case mt == "text/xml" || mt == "application/xml" || strings.HasSuffix(mt, "+xml"):
		return KindXML
	case mt == "text/plain":
		return KindText
	default:
		return KindUnknown
	}
}

var (
	htmlHintRe     = regexp.MustCompile(`(?i)<\s*(!doctype\s+html|html|head|body)[\s>]`)
	xmlHintRe      = regexp.MustCompile(`(?i)<\s*(\?xml|rss|feed|atom)[\s>]`)
	markdownLinkRe = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)
)

// sniffKind inspects the first kilobyte of the body.
func sniffKind(body []byte) Kind {
	window := body
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}
	trimmed := bytes.TrimLeft(window, " \t\r\n\xef\xbb\xbf")

	if bytes.HasPrefix(trimmed, []byte("%PDF-")) {
		return KindPDF
	}
	if htmlHintRe.Match(trimmed) {
		return KindHTML
	}
	if xmlHintRe.Match(trimmed) {
		return KindXML
	}
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		// A leading brace is only JSON if the whole body parses.
		if gjson.ValidBytes(body) {
			return KindJSON
		}
	}
	if looksLikeMarkdown(string(trimmed)) {
		return KindMarkdown
	}
	return KindUnknown
}

func looksLikeMarkdown(s string) bool {
	if strings.HasPrefix(s, "---\n") || strings.HasPrefix(s, "---\r\n") {
		return true
	}
	if strings.HasPrefix(s, "# ") || strings.Contains(s, "\n# ") || strings.Contains(s, "\n## ") {
		return true
	}
	return markdownLinkRe.MatchString(s)
}
