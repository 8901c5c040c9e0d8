package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
)

func kindsOf(blocks []packet.KeyBlock) []packet.BlockKind {
	out := make([]packet.BlockKind, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

func TestSplitKeyBlocksMixedDocument(t *testing.T) {
	md := strings.Join([]string{
		"# Title",
		"",
		"A paragraph of prose.",
		"Continued on a second line.",
		"",
		"- item one",
		"- item two",
		"",
		"> a quoted line",
		"",
		"| a | b |",
		"| --- | --- |",
		"| 1 | 2 |",
		"",
		"```go",
		"x := 1",
		"```",
	}, "\n")

	blocks := SplitKeyBlocks(md)
	require.Len(t, blocks, 6)
	assert.Equal(t, []packet.BlockKind{
		packet.BlockHeading,
		packet.BlockParagraph,
		packet.BlockList,
		packet.BlockQuote,
		packet.BlockTable,
		packet.BlockCode,
	}, kindsOf(blocks))

	// Block IDs are sequential.
	for i, b := range blocks {
		assert.Equal(t, "b"+string(rune('0'+i)), b.BlockID)
		assert.Equal(t, len(b.Text), b.CharLen)
	}

	assert.Equal(t, "A paragraph of prose.\nContinued on a second line.", blocks[1].Text)
	assert.Equal(t, "```go\nx := 1\n```", blocks[5].Text)
}

func TestSplitKeyBlocksCodeFenceSpansBlankLines(t *testing.T) {
	md := "```\nline one\n\nline two\n```"
	blocks := SplitKeyBlocks(md)
	require.Len(t, blocks, 1)
	assert.Equal(t, packet.BlockCode, blocks[0].Kind)
	assert.Equal(t, md, blocks[0].Text)
}

func TestSplitKeyBlocksHeadingInsideFenceIsCode(t *testing.T) {
	md := "```md\n# not a heading\n```"
	blocks := SplitKeyBlocks(md)
	require.Len(t, blocks, 1)
	assert.Equal(t, packet.BlockCode, blocks[0].Kind)
}

func TestSplitKeyBlocksUnterminatedFence(t *testing.T) {
	md := "para\n\n```\ndangling code"
	blocks := SplitKeyBlocks(md)
	require.Len(t, blocks, 2)
	assert.Equal(t, packet.BlockParagraph, blocks[0].Kind)
	assert.Equal(t, packet.BlockCode, blocks[1].Kind)
	assert.Equal(t, "```\ndangling code", blocks[1].Text)
}

func TestSplitKeyBlocksFenceWidthMatch(t *testing.T) {
	// A shorter inner fence does not close a four-backtick fence.
	md := "````\n```\ninner\n```\n````"
	blocks := SplitKeyBlocks(md)
	require.Len(t, blocks, 1)
	assert.Equal(t, packet.BlockCode, blocks[0].Kind)
	assert.Equal(t, md, blocks[0].Text)
}

func TestSplitKeyBlocksListContinuation(t *testing.T) {
	md := "- item with\n  a continuation line\n- second item"
	blocks := SplitKeyBlocks(md)
	require.Len(t, blocks, 1)
	assert.Equal(t, packet.BlockList, blocks[0].Kind)
	assert.Equal(t, md, blocks[0].Text)
}

func TestSplitKeyBlocksOrderedList(t *testing.T) {
	md := "1. first\n2) second"
	blocks := SplitKeyBlocks(md)
	require.Len(t, blocks, 1)
	assert.Equal(t, packet.BlockList, blocks[0].Kind)
}

func TestSplitKeyBlocksKindChangeWithoutBlank(t *testing.T) {
	md := "prose line\n- list starts immediately"
	blocks := SplitKeyBlocks(md)
	require.Len(t, blocks, 2)
	assert.Equal(t, packet.BlockParagraph, blocks[0].Kind)
	assert.Equal(t, packet.BlockList, blocks[1].Kind)
}

func TestSplitKeyBlocksEmpty(t *testing.T) {
	assert.Empty(t, SplitKeyBlocks(""))
	assert.Empty(t, SplitKeyBlocks("\n\n\n"))
}

func TestHeadingHelpers(t *testing.T) {
	assert.Equal(t, 2, headingLevel("## Section"))
	assert.Equal(t, 0, headingLevel("plain"))
	assert.Equal(t, 0, headingLevel("#nospace"))
	assert.Equal(t, "Section", headingText("## Section ##"))
}
