// Package normalize orchestrates extraction into the canonical content
// packet: it selects an extractor, runs injection detection and outline
// generation over the result, splits key blocks, and computes the content
// hashes and the stable source id.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webfetchd/internal/extract"
	"github.com/fyrsmithlabs/webfetchd/internal/injection"
	"github.com/fyrsmithlabs/webfetchd/internal/outline"
	"github.com/fyrsmithlabs/webfetchd/internal/packet"
	"github.com/fyrsmithlabs/webfetchd/internal/urlutil"
)

const rawExcerptLimit = 1000

// Input is a fetched (or caller-supplied) response to normalize.
type Input struct {
	// URL is the originally requested URL.
	URL string

	// FinalURL is the URL after redirects; defaults to URL.
	FinalURL string

	// Status is the HTTP status of the final response. Zero for raw input.
	Status int

	// ContentType is the declared MIME type without parameters.
	ContentType string

	// Body is the decoded response body.
	Body []byte

	// RetrievedAt defaults to now.
	RetrievedAt time.Time

	// DisablePDF rejects application/pdf bodies instead of parsing them.
	DisablePDF bool

	// IncludeRawExcerpt attaches the first kilobyte of the body.
	IncludeRawExcerpt bool
}

// Normalizer converts fetch results into packets.
type Normalizer struct {
	logger *zap.Logger
}

// New creates a normalizer.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize runs the full pipeline over one input.
func (n *Normalizer) Normalize(in Input) (*packet.Packet, error) {
	if in.FinalURL == "" {
		in.FinalURL = in.URL
	}
	if in.RetrievedAt.IsZero() {
		in.RetrievedAt = time.Now().UTC()
	}
	in.RetrievedAt = in.RetrievedAt.UTC()

	content, kind, err := extract.Extract(extract.Input{
		Body:        in.Body,
		ContentType: in.ContentType,
		URL:         in.FinalURL,
		DisablePDF:  in.DisablePDF,
	})
	if err != nil {
		return nil, err
	}

	md := content.Markdown
	warnings := append([]packet.Warning(nil), content.Warnings...)

	detections := injection.Detect(md)
	if len(detections) > 0 {
		warnings = append(warnings, packet.Warning{
			Type:    packet.WarningInjectionDetected,
			Message: fmt.Sprintf("%d prompt injection pattern(s) detected in content", len(detections)),
		})
	}

	outlineEntries := outline.Generate(md)
	blocks := SplitKeyBlocks(md)

	contentHash := sha256Hex([]byte(md))
	rawHash := sha256Hex(in.Body)
	canonical := urlutil.Normalize(in.FinalURL)
	sourceID := SourceID(canonical, in.RetrievedAt, contentHash)

	words := len(strings.Fields(md))
	p := &packet.Packet{
		SourceID:     sourceID,
		OriginalURL:  in.URL,
		CanonicalURL: canonical,
		RetrievedAt:  in.RetrievedAt,
		Status:       in.Status,
		ContentType:  in.ContentType,
		Metadata: packet.Metadata{
			Title:                   content.Title,
			SiteName:                content.SiteName,
			Author:                  content.Byline,
			PublishedAt:             content.PublishedTime,
			Language:                content.Lang,
			EstimatedReadingTimeMin: readingTimeMin(words),
		},
		Outline:                    outlineEntries,
		KeyBlocks:                  blocks,
		Content:                    md,
		SourceSummary:              buildSourceSummary(md, outlineEntries),
		Citations:                  []packet.Citation{},
		UnsafeInstructionsDetected: detections,
		Warnings:                   warnings,
		Hashes: packet.Hashes{
			ContentHash: contentHash,
			RawHash:     rawHash,
		},
	}

	if in.IncludeRawExcerpt {
		excerpt := in.Body
		if len(excerpt) > rawExcerptLimit {
			excerpt = excerpt[:rawExcerptLimit]
		}
		p.RawExcerpt = string(excerpt)
	}

	n.logger.Debug("normalized content",
		zap.String("source_id", p.SourceID),
		zap.String("kind", string(kind)),
		zap.Int("blocks", len(blocks)),
		zap.Int("warnings", len(warnings)))
	return p, nil
}

// SourceID derives the stable 16-hex-char identifier from the canonical URL,
// the UTC day of retrieval, and the content hash.
func SourceID(canonicalURL string, retrievedAt time.Time, contentHash string) string {
	day := retrievedAt.UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(canonicalURL + "|" + day + "|" + contentHash))
	return hex.EncodeToString(sum[:])[:16]
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
