// Package compact reduces a packet or chunk set to a token budget. Four
// strategies are provided: structural section selection, salience-scored
// sentence extraction, per-chunk map/reduce, and question-focused scoring.
package compact

import (
	"sort"
	"strings"

	"github.com/fyrsmithlabs/webfetchd/internal/chunk"
	"github.com/fyrsmithlabs/webfetchd/internal/packet"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// Mode selects the compaction strategy.
type Mode string

const (
	ModeStructural      Mode = "structural"
	ModeSalience        Mode = "salience"
	ModeMapReduce       Mode = "map_reduce"
	ModeQuestionFocused Mode = "question_focused"
)

var recognizedPreserve = map[string]bool{
	"numbers":     true,
	"dates":       true,
	"names":       true,
	"definitions": true,
	"procedures":  true,
}

// Options configures one compaction run.
type Options struct {
	// MaxTokens is the summary token budget M. Required.
	MaxTokens int

	// Mode defaults to ModeStructural.
	Mode Mode

	// Question drives ModeQuestionFocused; ignored by other modes.
	Question string

	// Preserve lists content classes to bias toward keeping. Defaults to
	// numbers, dates, and names.
	Preserve []string
}

func (o *Options) normalize() (map[string]bool, error) {
	if o.MaxTokens < 1 {
		return nil, werrors.Newf(werrors.CodeInvalidInput, "max_tokens must be positive, got %d", o.MaxTokens)
	}
	switch o.Mode {
	case "":
		o.Mode = ModeStructural
	case ModeStructural, ModeSalience, ModeMapReduce, ModeQuestionFocused:
	default:
		return nil, werrors.Newf(werrors.CodeInvalidInput, "unknown compaction mode %q", o.Mode)
	}

	preserve := map[string]bool{}
	if len(o.Preserve) == 0 {
		preserve["numbers"] = true
		preserve["dates"] = true
		preserve["names"] = true
		return preserve, nil
	}
	for _, p := range o.Preserve {
		p = strings.ToLower(strings.TrimSpace(p))
		if !recognizedPreserve[p] {
			return nil, werrors.Newf(werrors.CodeInvalidInput, "unknown preserve class %q", p)
		}
		preserve[p] = true
	}
	return preserve, nil
}

// Input is the thing being compacted: exactly one of Packet or ChunkSet.
type Input struct {
	Packet   *packet.Packet
	ChunkSet *packet.ChunkSet
}

// Compact reduces the input to at most opts.MaxTokens summary tokens.
func Compact(in Input, opts Options) (*packet.CompactedPacket, error) {
	if (in.Packet == nil) == (in.ChunkSet == nil) {
		return nil, werrors.New(werrors.CodeInvalidInput, "exactly one of packet or chunk_set is required")
	}
	preserve, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	var content, sourceID, originalURL string
	var blocks []packet.KeyBlock
	var chunkTexts []string
	if in.Packet != nil {
		content = in.Packet.Content
		sourceID = in.Packet.SourceID
		originalURL = in.Packet.OriginalURL
		blocks = in.Packet.KeyBlocks
		chunkTexts = []string{content}
	} else {
		sourceID = in.ChunkSet.SourceID
		for _, c := range in.ChunkSet.Chunks {
			chunkTexts = append(chunkTexts, c.Text)
		}
		content = strings.Join(chunkTexts, "\n\n")
	}

	var summary string
	var omissions []string
	var warnings []packet.Warning

	switch opts.Mode {
	case ModeStructural:
		summary, omissions = structuralCompaction(content, opts.MaxTokens, preserve)
	case ModeSalience:
		summary = salienceCompaction(content, opts.MaxTokens, preserve)
	case ModeMapReduce:
		summary = mapReduceCompaction(chunkTexts, opts.MaxTokens, preserve)
	case ModeQuestionFocused:
		var fellBack bool
		summary, fellBack = questionFocusedCompaction(content, opts.Question, opts.MaxTokens, preserve)
		if fellBack {
			warnings = append(warnings, packet.Warning{
				Type:    packet.WarningExtractionFallback,
				Message: "no usable question terms matched; fell back to salience compaction",
			})
		}
	}

	if chunk.EstimateTokens(summary) > opts.MaxTokens {
		res := chunk.TruncateToTokens(summary, opts.MaxTokens)
		summary = res.Text
		warnings = append(warnings, packet.Warning{
			Type:    packet.WarningTruncated,
			Message: "summary exceeded the token budget and was truncated",
		})
	}

	keyPoints := extractKeyPoints(summary, preserve, blocks)
	quotes := extractQuotes(content, blocks)

	est := chunk.EstimateTokens(summary)
	for _, kp := range keyPoints {
		est += chunk.EstimateTokens(kp.Text)
	}
	for _, q := range quotes {
		est += chunk.EstimateTokens(q.Text)
	}

	return &packet.CompactedPacket{
		SourceID:    sourceID,
		OriginalURL: originalURL,
		Compacted: packet.Compacted{
			Summary:         summary,
			KeyPoints:       keyPoints,
			ImportantQuotes: quotes,
			Omissions:       omissions,
			Warnings:        warnings,
		},
		EstTokens: est,
	}, nil
}

// salienceCompaction greedily keeps the highest-scoring sentences within the
// budget, then restores document order and dedupes.
func salienceCompaction(content string, budget int, preserve map[string]bool) string {
	sentences := splitSentences(content)
	for i := range sentences {
		sentences[i].score = scoreSentenceSalience(sentences[i], preserve)
	}
	return formatSentences(selectWithinBudget(sentences, budget))
}

// mapReduceCompaction summarizes each chunk to floor(M/n) tokens, then drops
// the lowest-scored fifth of the combined sentences until under budget.
func mapReduceCompaction(chunkTexts []string, budget int, preserve map[string]bool) string {
	if len(chunkTexts) == 0 {
		return ""
	}
	perChunk := budget / len(chunkTexts)
	if perChunk < 1 {
		perChunk = 1
	}

	var combined []sentence
	for _, text := range chunkTexts {
		sentences := splitSentences(text)
		for i := range sentences {
			sentences[i].score = scoreSentenceSalience(sentences[i], preserve)
		}
		for _, s := range selectWithinBudget(sentences, perChunk) {
			s.index = len(combined)
			combined = append(combined, s)
		}
	}

	for chunk.EstimateTokens(formatSentences(combined)) > budget && len(combined) > 5 {
		drop := len(combined) / 5
		if drop < 1 {
			drop = 1
		}
		byScore := append([]sentence(nil), combined...)
		sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].score < byScore[j].score })
		dropped := map[int]bool{}
		for _, s := range byScore[:drop] {
			dropped[s.index] = true
		}
		var kept []sentence
		for _, s := range combined {
			if !dropped[s.index] {
				kept = append(kept, s)
			}
		}
		combined = kept
	}
	return formatSentences(combined)
}

// selectWithinBudget takes sentences by score (descending, original order on
// ties) until the token budget is exhausted, then restores document order.
func selectWithinBudget(sentences []sentence, budget int) []sentence {
	byScore := append([]sentence(nil), sentences...)
	sort.SliceStable(byScore, func(i, j int) bool {
		if byScore[i].score != byScore[j].score {
			return byScore[i].score > byScore[j].score
		}
		return byScore[i].index < byScore[j].index
	})

	used := 0
	var selected []sentence
	for _, s := range byScore {
		t := chunk.EstimateTokens(s.text) + 1
		if used+t > budget {
			continue
		}
		used += t
		selected = append(selected, s)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].index < selected[j].index })
	return selected
}

// formatSentences joins in document order, deduping by normalized form.
func formatSentences(sentences []sentence) string {
	var parts []string
	seen := map[string]bool{}
	for _, s := range sentences {
		key := normalizeSentence(s.text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, s.text)
	}
	return strings.Join(parts, "\n")
}
