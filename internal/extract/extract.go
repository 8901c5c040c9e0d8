package extract

import (
	"github.com/fyrsmithlabs/webfetchd/internal/packet"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// Extract decodes the body per the declared charset and dispatches to the
// extractor for the detected kind.
func Extract(in Input) (*Content, Kind, error) {
	kind, charset := DetectType(in.ContentType, in.Body)

	if kind == KindPDF && in.DisablePDF {
		return nil, kind, werrors.New(werrors.CodeExtractionFailed, "pdf extraction is disabled")
	}

	var charsetWarning *packet.Warning
	if kind != KindPDF {
		text, fallback := DecodeText(in.Body, charset)
		in.Text = text
		if fallback {
			charsetWarning = &packet.Warning{
				Type:    packet.WarningExtractionFallback,
				Message: "unsupported charset " + charset + "; decoded as UTF-8",
			}
		}
	}

	var (
		out *Content
		err error
	)
	switch kind {
	case KindHTML:
		out, err = ExtractHTML(in)
	case KindMarkdown:
		out, err = ExtractMarkdown(in)
	case KindPDF:
		out, err = ExtractPDF(in)
	case KindJSON:
		out, err = ExtractJSON(in)
	case KindXML:
		out, err = ExtractXML(in)
	case KindText:
		out, err = ExtractText(in)
	default:
		out, err = ExtractText(in)
		kind = KindText
	}
	if err != nil {
		return nil, kind, err
	}
	if out == nil {
		return nil, kind, werrors.New(werrors.CodeExtractionFailed, "extractor returned no content")
	}
	if charsetWarning != nil {
		out.Warnings = append(out.Warnings, *charsetWarning)
	}
	return out, kind, nil
}
