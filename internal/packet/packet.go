// Package packet defines the canonical data model produced by the
// normalization pipeline: the content packet, its derived chunk and
// compaction views, and the warning vocabulary shared across components.
package packet

import "time"

// WarningType classifies non-fatal problems surfaced on a packet.
type WarningType string

const (
	WarningTruncated          WarningType = "truncated"
	WarningPaywalled          WarningType = "paywalled"
	WarningLowConfidenceDate  WarningType = "low_confidence_date"
	WarningScannedPDF         WarningType = "scanned_pdf"
	WarningRenderTimeout      WarningType = "render_timeout"
	WarningExtractionFallback WarningType = "extraction_fallback"
	WarningRateLimited        WarningType = "rate_limited"
	WarningRobotsBlocked      WarningType = "robots_blocked"
	WarningInjectionDetected  WarningType = "injection_detected"
)

// Warning is a non-fatal problem attached to a packet.
type Warning struct {
	Type    WarningType `json:"type"`
	Message string      `json:"message"`
}

// BlockKind is the semantic type of a key block.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockList      BlockKind = "list"
	BlockCode      BlockKind = "code"
	BlockTable     BlockKind = "table"
	BlockQuote     BlockKind = "quote"
	BlockMeta      BlockKind = "meta"
)

// OutlineEntry is a heading in document order. Path is the ancestor
// headings joined by " > ", including the entry itself.
type OutlineEntry struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Path  string `json:"path"`
}

// KeyBlock is a semantically typed contiguous range of markdown.
type KeyBlock struct {
	BlockID string    `json:"block_id"`
	Kind    BlockKind `json:"kind"`
	Text    string    `json:"text"`
	CharLen int       `json:"char_len"`
}

// Citation ties a block id to a character range in the normalized content.
type Citation struct {
	BlockID string       `json:"block_id"`
	Loc     CitationSpan `json:"loc"`
}

// CitationSpan is a half-open character range.
type CitationSpan struct {
	StartChar int `json:"start_char"`
	EndChar   int `json:"end_char"`
}

// InjectionDetection is a prompt-injection pattern hit with its context.
type InjectionDetection struct {
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// Metadata carries optional document-level facts.
type Metadata struct {
	Title                   string `json:"title,omitempty"`
	SiteName                string `json:"site_name,omitempty"`
	Author                  string `json:"author,omitempty"`
	PublishedAt             string `json:"published_at,omitempty"`
	Language                string `json:"language,omitempty"`
	EstimatedReadingTimeMin int    `json:"estimated_reading_time_min,omitempty"`
}

// Hashes holds SHA-256 hex digests of the normalized markdown and the raw body.
type Hashes struct {
	ContentHash string `json:"content_hash"`
	RawHash     string `json:"raw_hash"`
}

// Packet is the canonical output of normalization. Immutable after creation;
// the chunker and compactor produce new values.
type Packet struct {
	SourceID                  string               `json:"source_id"`
	OriginalURL               string               `json:"original_url"`
	CanonicalURL              string               `json:"canonical_url"`
	RetrievedAt               time.Time            `json:"retrieved_at"`
	Status                    int                  `json:"status"`
	ContentType               string               `json:"content_type"`
	Metadata                  Metadata             `json:"metadata"`
	Outline                   []OutlineEntry       `json:"outline"`
	KeyBlocks                 []KeyBlock           `json:"key_blocks"`
	Content                   string               `json:"content"`
	SourceSummary             []string             `json:"source_summary"`
	// Citations is empty at creation and never filled in afterward: packets
	// are immutable, and compacted views carry block attributions on their
	// own CitedText entries instead.
	Citations                 []Citation           `json:"citations"`
	UnsafeInstructionsDetected []InjectionDetection `json:"unsafe_instructions_detected"`
	Warnings                  []Warning            `json:"warnings"`
	Hashes                    Hashes               `json:"hashes"`
	RawExcerpt                string               `json:"raw_excerpt,omitempty"`
	ScreenshotBase64          string               `json:"screenshot_base64,omitempty"`
}

// Chunk is a token-bounded slice of a packet's content.
type Chunk struct {
	ChunkID      string `json:"chunk_id"`
	ChunkIndex   int    `json:"chunk_index"`
	HeadingsPath string `json:"headings_path"`
	EstTokens    int    `json:"est_tokens"`
	Text         string `json:"text"`
	CharLen      int    `json:"char_len"`
}

// ChunkSet is the full chunking of one packet.
type ChunkSet struct {
	SourceID       string  `json:"source_id"`
	MaxTokens      int     `json:"max_tokens"`
	TotalChunks    int     `json:"total_chunks"`
	TotalEstTokens int     `json:"total_est_tokens"`
	Chunks         []Chunk `json:"chunks"`
}

// CitedText is a sentence or quote with the block id it was found in.
// Citation is empty when the packet has no key blocks or no block matched.
type CitedText struct {
	Text     string `json:"text"`
	Citation string `json:"citation"`
}

// Compacted is the body of a compacted packet.
type Compacted struct {
	Summary         string      `json:"summary"`
	KeyPoints       []CitedText `json:"key_points"`
	ImportantQuotes []CitedText `json:"important_quotes"`
	Omissions       []string    `json:"omissions"`
	Warnings        []Warning   `json:"warnings"`
}

// CompactedPacket is the budget-bounded reduction of a packet or chunk set.
type CompactedPacket struct {
	SourceID    string    `json:"source_id"`
	OriginalURL string    `json:"original_url"`
	Compacted   Compacted `json:"compacted"`
	EstTokens   int       `json:"est_tokens"`
}
