// Package extract converts fetched bodies into a common intermediate form:
// a Markdown rendering plus document metadata. One extractor exists per
// detected content kind (HTML, Markdown, PDF, JSON, XML, plain text).
package extract

import "github.com/fyrsmithlabs/webfetchd/internal/packet"

// Kind is the detected content kind driving extractor selection.
type Kind string

const (
	KindHTML     Kind = "html"
	KindMarkdown Kind = "markdown"
	KindPDF      Kind = "pdf"
	KindJSON     Kind = "json"
	KindXML      Kind = "xml"
	KindText     Kind = "text"
	KindUnknown  Kind = "unknown"
)

// Content is the common intermediate produced by every extractor.
type Content struct {
	// Title of the document, empty when undeterminable.
	Title string

	// Markdown is the normalized rendering used by the rest of the pipeline.
	Markdown string

	// TextContent is the plain text of the main content.
	TextContent string

	// Excerpt is a short lead-in, when one can be derived.
	Excerpt string

	Byline        string
	SiteName      string
	Lang          string
	PublishedTime string

	// Warnings collected during extraction (paywall, scanned PDF, charset
	// fallback). Non-fatal.
	Warnings []packet.Warning
}

// Input carries the decoded request body into an extractor.
type Input struct {
	// Body is the raw decoded response body.
	Body []byte

	// Text is the charset-decoded body, when textual.
	Text string

	// ContentType is the MIME type without parameters.
	ContentType string

	// URL is the final URL, used to resolve relative links.
	URL string

	// DisablePDF makes PDF bodies fail extraction instead of being parsed.
	DisablePDF bool
}
