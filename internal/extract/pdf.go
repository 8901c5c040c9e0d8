package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

const (
	// Below this average the text layer is assumed to be missing (scanned).
	minAvgCharsPerPage = 100
	maxEmptyPageRatio  = 0.5
)

// ExtractPDF pulls the embedded text layer per page. Documents with too
// little text are flagged scanned_pdf; no OCR is attempted.
func ExtractPDF(in Input) (*Content, error) {
	reader, err := pdf.NewReader(bytes.NewReader(in.Body), int64(len(in.Body)))
	if err != nil {
		return nil, werrors.Wrap(werrors.CodeExtractionFailed, err)
	}

	total := reader.NumPage()
	var pages []string
	empty := 0
	chars := 0

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			empty++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			empty++
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			empty++
			continue
		}
		chars += len(text)
		pages = append(pages, text)
	}

	out := &Content{}
	if total > 0 {
		avg := float64(chars) / float64(total)
		emptyRatio := float64(empty) / float64(total)
		if avg < minAvgCharsPerPage || emptyRatio > maxEmptyPageRatio {
			out.Warnings = append(out.Warnings, packet.Warning{
				Type: packet.WarningScannedPDF,
				Message: fmt.Sprintf("low text confidence: %.0f chars/page, %.0f%% empty pages; document may be scanned",
					avg, emptyRatio*100),
			})
		}
	}

	var b strings.Builder
	for i, text := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	out.TextContent = b.String()
	out.Markdown = pdfTextToMarkdown(out.TextContent)
	out.Excerpt = excerptOf(out.TextContent)

	if t, ok := pdfInfoDate(reader); ok {
		out.PublishedTime = t.Format(time.RFC3339)
		// The D: form carries no usable zone, so the moment is ambiguous.
		out.Warnings = append(out.Warnings, packet.Warning{
			Type:    packet.WarningLowConfidenceDate,
			Message: "PDF creation date has no reliable timezone",
		})
	}
	return out, nil
}

var pdfDateRe = regexp.MustCompile(`^D:(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})`)

// parsePDFDate accepts only the D:YYYYMMDDHHmmss form. The +HH'mm' timezone
// suffix is documented in the PDF spec but not honored here.
func parsePDFDate(s string) (time.Time, bool) {
	m := pdfDateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102150405", m[1]+m[2]+m[3]+m[4]+m[5]+m[6])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// pdfInfoDate reads CreationDate from the document info dictionary.
func pdfInfoDate(reader *pdf.Reader) (time.Time, bool) {
	defer func() {
		// The pdf library can panic on malformed trailers.
		_ = recover()
	}()
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return time.Time{}, false
	}
	for _, key := range []string{"CreationDate", "ModDate"} {
		v := info.Key(key)
		if v.IsNull() {
			continue
		}
		if t, ok := parsePDFDate(v.RawString()); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// pdfTextToMarkdown upgrades likely heading lines and keeps paragraphs.
func pdfTextToMarkdown(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if isAllCapsHeading(para) {
			b.WriteString("## " + titleCaseOf(para))
		} else {
			b.WriteString(para)
		}
	}
	return b.String()
}
