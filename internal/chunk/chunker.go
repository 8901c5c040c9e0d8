// Package chunk splits normalized content into token-bounded chunks that
// keep markdown structure intact: code fences are never broken open, lists
// split at item boundaries, and tables carry their header into every part.
package chunk

import (
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// Strategy selects how aggressively heading boundaries force new chunks.
type Strategy string

const (
	// StrategyHeadingsFirst starts a new chunk at every heading of level
	// three or shallower, even when the current chunk has budget left.
	StrategyHeadingsFirst Strategy = "headings_first"

	// StrategyBalanced fills each chunk to the budget regardless of
	// heading boundaries.
	StrategyBalanced Strategy = "balanced"
)

const (
	defaultMarginRatio = 0.10
	mergeSmallRatio    = 0.3
	mergeCombinedRatio = 0.8
	headingsFlushLevel = 3
)

// Options configures a chunking run.
type Options struct {
	// MaxTokens is the hard per-chunk token ceiling. Required.
	MaxTokens int

	// MarginRatio shrinks the working budget below MaxTokens to absorb
	// estimation error. Defaults to 0.10.
	MarginRatio float64

	// Strategy defaults to StrategyHeadingsFirst.
	Strategy Strategy
}

func (o *Options) normalize() error {
	if o.MaxTokens < 1 {
		return werrors.Newf(werrors.CodeInvalidInput, "max_tokens must be positive, got %d", o.MaxTokens)
	}
	if o.MarginRatio == 0 {
		o.MarginRatio = defaultMarginRatio
	}
	if o.MarginRatio < 0 || o.MarginRatio >= 1 {
		return werrors.Newf(werrors.CodeInvalidInput, "margin_ratio must be in [0, 1), got %g", o.MarginRatio)
	}
	switch o.Strategy {
	case "":
		o.Strategy = StrategyHeadingsFirst
	case StrategyHeadingsFirst, StrategyBalanced:
	default:
		return werrors.Newf(werrors.CodeInvalidInput, "unknown strategy %q", o.Strategy)
	}
	return nil
}

// Split chunks a packet's content. Chunks are packed from key blocks when
// the packet has them, otherwise from a line scan of the raw markdown. The
// result is densely indexed and every chunk stays at or under MaxTokens.
func Split(p *packet.Packet, opts Options) (*packet.ChunkSet, error) {
	if p == nil {
		return nil, werrors.New(werrors.CodeInvalidInput, "packet is required")
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	budget := int(float64(opts.MaxTokens) * (1 - opts.MarginRatio))
	if budget < 1 {
		budget = 1
	}

	blocks := p.KeyBlocks
	if len(blocks) == 0 {
		blocks = scanSegments(p.Content)
	}

	chunks := packBlocks(blocks, budget, opts.Strategy)
	chunks = mergeSmall(chunks, opts.MaxTokens)

	total := 0
	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].ChunkID = p.SourceID + ":c" + strconv.Itoa(i)
		total += chunks[i].EstTokens
	}
	return &packet.ChunkSet{
		SourceID:       p.SourceID,
		MaxTokens:      opts.MaxTokens,
		TotalChunks:    len(chunks),
		TotalEstTokens: total,
		Chunks:         chunks,
	}, nil
}

// headingFrame is one level of the active heading path.
type headingFrame struct {
	level int
	text  string
}

type packer struct {
	budget   int
	strategy Strategy

	stack  []headingFrame
	parts  []string
	tokens int
	path   string

	chunks []packet.Chunk
}

func packBlocks(blocks []packet.KeyBlock, budget int, strategy Strategy) []packet.Chunk {
	pk := &packer{budget: budget, strategy: strategy}
	for _, b := range blocks {
		pk.add(b)
	}
	pk.flush()
	return pk.chunks
}

func (pk *packer) add(b packet.KeyBlock) {
	if b.Kind == packet.BlockHeading {
		level := atxLevel(b.Text)
		if level > 0 {
			if pk.strategy == StrategyHeadingsFirst && level <= headingsFlushLevel {
				pk.flush()
			}
			pk.pushHeading(level, atxText(b.Text))
		}
	}

	bt := EstimateTokens(b.Text)
	if bt > pk.budget {
		pk.flush()
		path := pk.currentPath()
		for _, part := range splitBlockByKind(b, pk.budget) {
			pk.chunks = append(pk.chunks, packet.Chunk{
				HeadingsPath: path,
				EstTokens:    EstimateTokens(part),
				Text:         part,
				CharLen:      len(part),
			})
		}
		return
	}

	if len(pk.parts) > 0 && pk.tokens+bt+1 > pk.budget {
		pk.flush()
	}
	if len(pk.parts) == 0 {
		pk.path = pk.currentPath()
	}
	pk.parts = append(pk.parts, b.Text)
	pk.tokens += bt + 1 // joiner newlines
}

func (pk *packer) flush() {
	if len(pk.parts) == 0 {
		return
	}
	text := strings.Join(pk.parts, "\n\n")
	pk.chunks = append(pk.chunks, packet.Chunk{
		HeadingsPath: pk.path,
		EstTokens:    EstimateTokens(text),
		Text:         text,
		CharLen:      len(text),
	})
	pk.parts = nil
	pk.tokens = 0
}

func (pk *packer) pushHeading(level int, text string) {
	for len(pk.stack) > 0 && pk.stack[len(pk.stack)-1].level >= level {
		pk.stack = pk.stack[:len(pk.stack)-1]
	}
	pk.stack = append(pk.stack, headingFrame{level: level, text: text})
}

func (pk *packer) currentPath() string {
	if len(pk.stack) == 0 {
		return ""
	}
	parts := make([]string, len(pk.stack))
	for i, f := range pk.stack {
		parts[i] = f.text
	}
	return strings.Join(parts, " > ")
}

// scanSegments is the fallback for content without key blocks: a fence-aware
// line scan producing heading, code, and paragraph segments at heading
// lines, blank lines, and fence boundaries.
func scanSegments(md string) []packet.KeyBlock {
	var segs []packet.KeyBlock
	var buf []string
	kind := packet.BlockParagraph

	flush := func() {
		if len(buf) == 0 {
			return
		}
		text := strings.Join(buf, "\n")
		segs = append(segs, packet.KeyBlock{Kind: kind, Text: text, CharLen: len(text)})
		buf = nil
		kind = packet.BlockParagraph
	}

	var fenceChar byte
	var fenceWidth int
	inCode := false

	for _, line := range strings.Split(md, "\n") {
		if inCode {
			buf = append(buf, line)
			if c, w := codeFenceOf(line); c == fenceChar && w >= fenceWidth {
				inCode = false
				flush()
			}
			continue
		}
		if c, w := codeFenceOf(line); w >= 3 {
			flush()
			kind = packet.BlockCode
			fenceChar, fenceWidth = c, w
			inCode = true
			buf = append(buf, line)
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if atxLevel(trimmed) > 0 {
			flush()
			kind = packet.BlockHeading
			buf = append(buf, line)
			flush()
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return segs
}

// mergeSmall folds an undersized chunk into its successor when both share a
// heading path and the pair still fits comfortably under the ceiling.
func mergeSmall(chunks []packet.Chunk, maxTokens int) []packet.Chunk {
	if len(chunks) < 2 {
		return chunks
	}
	smallLimit := int(float64(maxTokens) * mergeSmallRatio)
	combinedLimit := int(float64(maxTokens) * mergeCombinedRatio)

	out := chunks[:0:0]
	for _, c := range chunks {
		if len(out) > 0 {
			prev := &out[len(out)-1]
			if prev.HeadingsPath == c.HeadingsPath && prev.EstTokens < smallLimit {
				merged := prev.Text + "\n\n" + c.Text
				if mt := EstimateTokens(merged); mt < combinedLimit {
					prev.Text = merged
					prev.EstTokens = mt
					prev.CharLen = len(merged)
					continue
				}
			}
		}
		out = append(out, c)
	}
	return out
}

func atxLevel(text string) int {
	trimmed := strings.TrimSpace(text)
	i := 0
	for i < len(trimmed) && i < 6 && trimmed[i] == '#' {
		i++
	}
	if i == 0 || i >= len(trimmed) || (trimmed[i] != ' ' && trimmed[i] != '\t') {
		return 0
	}
	return i
}

func atxText(text string) string {
	trimmed := strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimRight(strings.TrimLeft(trimmed, "#"), "#"))
}
