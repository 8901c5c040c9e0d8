package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webfetchd/internal/chunk"
	"github.com/fyrsmithlabs/webfetchd/internal/compact"
	"github.com/fyrsmithlabs/webfetchd/internal/fetch"
	"github.com/fyrsmithlabs/webfetchd/internal/logging"
	"github.com/fyrsmithlabs/webfetchd/internal/normalize"
	"github.com/fyrsmithlabs/webfetchd/internal/packet"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

type fetchInput struct {
	URL               string            `json:"url" jsonschema:"required,URL to fetch"`
	As                string            `json:"as,omitempty" jsonschema:"Result shape: packet (default) normalized or raw"`
	MaxBytes          int64             `json:"max_bytes,omitempty" jsonschema:"Response body byte budget"`
	TimeoutMS         int               `json:"timeout_ms,omitempty" jsonschema:"Fetch deadline in milliseconds"`
	MaxRedirects      int               `json:"max_redirects,omitempty" jsonschema:"Redirect hop budget"`
	Headers           map[string]string `json:"headers,omitempty" jsonschema:"Additional request headers"`
	IncludeRawExcerpt bool              `json:"include_raw_excerpt,omitempty" jsonschema:"Attach the first kilobyte of the raw body"`
}

// normalizedView is the reduced packet shape returned for as=normalized.
type normalizedView struct {
	SourceID     string                `json:"source_id"`
	CanonicalURL string                `json:"canonical_url"`
	Content      string                `json:"content"`
	Outline      []packet.OutlineEntry `json:"outline"`
	Metadata     packet.Metadata       `json:"metadata"`
	Warnings     []packet.Warning      `json:"warnings"`
}

// rawView carries the undecoded body for as=raw.
type rawView struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	FinalURL    string `json:"final_url"`
	Body        string `json:"body,omitempty"`
	BodyBase64  string `json:"body_base64,omitempty"`
}

type fetchOutput struct {
	Packet     *packet.Packet  `json:"packet,omitempty" jsonschema:"Full content packet"`
	Normalized *normalizedView `json:"normalized,omitempty" jsonschema:"Reduced normalized view"`
	Raw        *rawView        `json:"raw,omitempty" jsonschema:"Raw response body"`
}

type extractInput struct {
	URL          string `json:"url,omitempty" jsonschema:"URL to fetch and extract"`
	RawBytes     string `json:"raw_bytes,omitempty" jsonschema:"Base64-encoded raw content (alternative to url)"`
	ContentType  string `json:"content_type,omitempty" jsonschema:"Declared MIME type of raw_bytes"`
	CanonicalURL string `json:"canonical_url,omitempty" jsonschema:"Canonical URL attributed to raw_bytes"`
}

type chunkInput struct {
	Packet      *packet.Packet `json:"packet,omitempty" jsonschema:"Packet to chunk (alternative to source_id)"`
	SourceID    string         `json:"source_id,omitempty" jsonschema:"Source id of a stored packet"`
	MaxTokens   int            `json:"max_tokens,omitempty" jsonschema:"Per-chunk token ceiling"`
	MarginRatio float64        `json:"margin_ratio,omitempty" jsonschema:"Budget margin below max_tokens (default 0.10)"`
	Strategy    string         `json:"strategy,omitempty" jsonschema:"headings_first (default) or balanced"`
}

type chunkOutput struct {
	Chunks *packet.ChunkSet `json:"chunks" jsonschema:"Chunked content"`
}

type compactInput struct {
	Packet    *packet.Packet   `json:"packet,omitempty" jsonschema:"Packet to compact"`
	ChunkSet  *packet.ChunkSet `json:"chunk_set,omitempty" jsonschema:"Chunk set to compact"`
	SourceID  string           `json:"source_id,omitempty" jsonschema:"Source id of a stored packet"`
	MaxTokens int              `json:"max_tokens,omitempty" jsonschema:"Summary token budget"`
	Mode      string           `json:"mode,omitempty" jsonschema:"structural (default) salience map_reduce or question_focused"`
	Question  string           `json:"question,omitempty" jsonschema:"Question driving question_focused mode"`
	Preserve  []string         `json:"preserve,omitempty" jsonschema:"Content classes to bias toward keeping"`
}

type compactOutput struct {
	Compacted *packet.CompactedPacket `json:"compacted" jsonschema:"Compacted content"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "fetch",
		Description: "Fetch a URL and return it as a normalized LLM-safe content packet",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args fetchInput) (*mcp.CallToolResult, fetchOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive()
		var toolErr error
		defer func() {
			s.metrics.DecrementActive()
			s.metrics.RecordInvocation("fetch", time.Since(start), toolErr)
		}()

		out, err := s.handleFetch(ctx, args)
		if err != nil {
			toolErr = err
			s.metrics.RecordFetch(werrors.CodeOf(err))
			return nil, fetchOutput{}, err
		}
		s.metrics.RecordFetch("ok")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: summaryLine(out)},
			},
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "extract",
		Description: "Normalize raw bytes (or a fetched URL) into a content packet without storing raw state",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args extractInput) (*mcp.CallToolResult, fetchOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive()
		var toolErr error
		defer func() {
			s.metrics.DecrementActive()
			s.metrics.RecordInvocation("extract", time.Since(start), toolErr)
		}()

		out, err := s.handleExtract(ctx, args)
		if err != nil {
			toolErr = err
			return nil, fetchOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: summaryLine(out)},
			},
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "chunk",
		Description: "Split a content packet into token-bounded chunks",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args chunkInput) (*mcp.CallToolResult, chunkOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive()
		var toolErr error
		defer func() {
			s.metrics.DecrementActive()
			s.metrics.RecordInvocation("chunk", time.Since(start), toolErr)
		}()

		p, err := s.resolvePacket(args.Packet, args.SourceID)
		if err != nil {
			toolErr = err
			return nil, chunkOutput{}, err
		}
		maxTokens := args.MaxTokens
		if maxTokens == 0 {
			maxTokens = s.cfg.DefaultMaxTokens
		}
		marginRatio := args.MarginRatio
		if marginRatio == 0 {
			marginRatio = s.cfg.ChunkMarginRatio
		}
		cs, err := chunk.Split(p, chunk.Options{
			MaxTokens:   maxTokens,
			MarginRatio: marginRatio,
			Strategy:    chunk.Strategy(args.Strategy),
		})
		if err != nil {
			toolErr = err
			return nil, chunkOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("%d chunks, %d estimated tokens", cs.TotalChunks, cs.TotalEstTokens)},
			},
		}, chunkOutput{Chunks: cs}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "compact",
		Description: "Reduce a packet or chunk set to a token budget",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args compactInput) (*mcp.CallToolResult, compactOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive()
		var toolErr error
		defer func() {
			s.metrics.DecrementActive()
			s.metrics.RecordInvocation("compact", time.Since(start), toolErr)
		}()

		in := compact.Input{Packet: args.Packet, ChunkSet: args.ChunkSet}
		if in.Packet == nil && in.ChunkSet == nil && args.SourceID != "" {
			p, err := s.resolvePacket(nil, args.SourceID)
			if err != nil {
				toolErr = err
				return nil, compactOutput{}, err
			}
			in.Packet = p
		}
		maxTokens := args.MaxTokens
		if maxTokens == 0 {
			maxTokens = s.cfg.DefaultMaxTokens
		}
		cp, err := compact.Compact(in, compact.Options{
			MaxTokens: maxTokens,
			Mode:      compact.Mode(args.Mode),
			Question:  args.Question,
			Preserve:  args.Preserve,
		})
		if err != nil {
			toolErr = err
			return nil, compactOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("compacted to %d estimated tokens", cp.EstTokens)},
			},
		}, compactOutput{Compacted: cp}, nil
	})
}

func (s *Server) handleFetch(ctx context.Context, args fetchInput) (fetchOutput, error) {
	if args.URL == "" {
		return fetchOutput{}, werrors.New(werrors.CodeInvalidInput, "url is required")
	}
	switch args.As {
	case "", "packet", "normalized", "raw":
	default:
		return fetchOutput{}, werrors.Newf(werrors.CodeInvalidInput, "unknown result shape %q", args.As)
	}

	opts := fetch.Options{
		UserAgent:     s.cfg.UserAgent,
		Headers:       args.Headers,
		MaxBytes:      s.cfg.MaxBytes,
		MaxRedirects:  s.cfg.MaxRedirects,
		Timeout:       s.cfg.Timeout(),
		RespectRobots: s.cfg.RespectRobots,
	}
	if args.MaxBytes > 0 {
		opts.MaxBytes = args.MaxBytes
	}
	if args.TimeoutMS > 0 {
		opts.Timeout = time.Duration(args.TimeoutMS) * time.Millisecond
	}
	if args.MaxRedirects > 0 {
		opts.MaxRedirects = args.MaxRedirects
	}

	res, err := s.fetcher.FetchWithRetry(ctx, args.URL, opts)
	if err != nil {
		return fetchOutput{}, err
	}

	if args.As == "raw" {
		return fetchOutput{Raw: rawViewOf(res)}, nil
	}

	p, err := s.normalizer.Normalize(normalize.Input{
		URL:               args.URL,
		FinalURL:          res.FinalURL,
		Status:            res.Status,
		ContentType:       res.ContentType,
		Body:              res.Body,
		DisablePDF:        !s.cfg.PDFEnabled,
		IncludeRawExcerpt: args.IncludeRawExcerpt,
	})
	if err != nil {
		return fetchOutput{}, err
	}

	if s.store.Set(p) {
		s.registerPacketResources(p)
	}
	s.logger.Info("fetched",
		logging.URL("url", args.URL),
		zap.String("source_id", p.SourceID),
		zap.Int("status", p.Status))

	if args.As == "normalized" {
		return fetchOutput{Normalized: normalizedViewOf(p)}, nil
	}
	return fetchOutput{Packet: p}, nil
}

func (s *Server) handleExtract(ctx context.Context, args extractInput) (fetchOutput, error) {
	if args.URL != "" {
		return s.handleFetch(ctx, fetchInput{URL: args.URL})
	}
	if args.RawBytes == "" {
		return fetchOutput{}, werrors.New(werrors.CodeInvalidInput, "either url or raw_bytes is required")
	}
	body, err := base64.StdEncoding.DecodeString(args.RawBytes)
	if err != nil {
		e := werrors.Wrap(werrors.CodeInvalidInput, err)
		e.Message = "raw_bytes is not valid base64"
		return fetchOutput{}, e
	}

	canonical := args.CanonicalURL
	if canonical == "" {
		canonical = "webfetch://extract/inline"
	}
	p, err := s.normalizer.Normalize(normalize.Input{
		URL:         canonical,
		ContentType: args.ContentType,
		Body:        body,
		DisablePDF:  !s.cfg.PDFEnabled,
	})
	if err != nil {
		return fetchOutput{}, err
	}
	if s.store.Set(p) {
		s.registerPacketResources(p)
	}
	return fetchOutput{Packet: p}, nil
}

// resolvePacket takes an inline packet or looks a stored one up by source id.
func (s *Server) resolvePacket(p *packet.Packet, sourceID string) (*packet.Packet, error) {
	if p != nil {
		return p, nil
	}
	if sourceID == "" {
		return nil, werrors.New(werrors.CodeInvalidInput, "either packet or source_id is required")
	}
	stored, ok := s.store.Get(sourceID)
	if !ok {
		return nil, werrors.Newf(werrors.CodeResourceNotFound, "no stored packet for source id %q", sourceID)
	}
	return stored, nil
}

func normalizedViewOf(p *packet.Packet) *normalizedView {
	return &normalizedView{
		SourceID:     p.SourceID,
		CanonicalURL: p.CanonicalURL,
		Content:      p.Content,
		Outline:      p.Outline,
		Metadata:     p.Metadata,
		Warnings:     p.Warnings,
	}
}

func rawViewOf(res *fetch.Result) *rawView {
	v := &rawView{
		Status:      res.Status,
		ContentType: res.ContentType,
		FinalURL:    res.FinalURL,
	}
	if utf8.Valid(res.Body) {
		v.Body = string(res.Body)
	} else {
		v.BodyBase64 = base64.StdEncoding.EncodeToString(res.Body)
	}
	return v
}

func summaryLine(out fetchOutput) string {
	switch {
	case out.Packet != nil:
		return fmt.Sprintf("packet %s: %d blocks, %d warnings",
			out.Packet.SourceID, len(out.Packet.KeyBlocks), len(out.Packet.Warnings))
	case out.Normalized != nil:
		return fmt.Sprintf("normalized %s: %d chars", out.Normalized.SourceID, len(out.Normalized.Content))
	case out.Raw != nil:
		return fmt.Sprintf("raw response: status %d, %s", out.Raw.Status, out.Raw.ContentType)
	default:
		return "empty result"
	}
}
