package compact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
)

func TestExtractQuotesFromContent(t *testing.T) {
	content := `The CEO said "we expect the platform to double capacity this year" during the call.
A config value "max_retries=5;timeout=30;flags=0x7f" appeared in the logs.
Short quote: "too few words".
The report notes "customers in three regions adopted the rollout ahead of schedule" as well.`

	quotes := extractQuotes(content, nil)
	require.Len(t, quotes, 2)
	assert.Equal(t, "we expect the platform to double capacity this year", quotes[0].Text)
	assert.Equal(t, "customers in three regions adopted the rollout ahead of schedule", quotes[1].Text)
	assert.Empty(t, quotes[0].Citation)
}

func TestExtractQuotesSkipsCodeAndJSON(t *testing.T) {
	content := "```\n\"a quoted string living inside a code fence here\"\n```\n" +
		`{"field": "a quoted json value that is long enough to match"}` + "\n" +
		"Real prose with \"an actual spoken sentence worth keeping around\" at the end."

	quotes := extractQuotes(content, nil)
	require.Len(t, quotes, 1)
	assert.Equal(t, "an actual spoken sentence worth keeping around", quotes[0].Text)
}

func TestExtractQuotesRejectsURLsAndEscapes(t *testing.T) {
	content := `See "https://example.com/some/long/path/to/resource" for details.
Raw value "first line\nsecond line of the escaped text" was logged.
But "this plain sentence has no links or escapes inside" is fine.`

	quotes := extractQuotes(content, nil)
	require.Len(t, quotes, 1)
	assert.Equal(t, "this plain sentence has no links or escapes inside", quotes[0].Text)
}

func TestExtractQuotesCitesBlocks(t *testing.T) {
	blocks := []packet.KeyBlock{
		{BlockID: "b0", Kind: packet.BlockHeading, Text: "# Title"},
		{BlockID: "b1", Kind: packet.BlockParagraph, Text: `They said "the migration finished two weeks ahead of plan" yesterday.`},
		{BlockID: "b2", Kind: packet.BlockCode, Text: "```\n\"quoted but in code so never considered\"\n```"},
	}

	quotes := extractQuotes("", blocks)
	require.Len(t, quotes, 1)
	assert.Equal(t, "the migration finished two weeks ahead of plan", quotes[0].Text)
	assert.Equal(t, "b1", quotes[0].Citation)
}

func TestExtractKeyPoints(t *testing.T) {
	summary := `# Results
Revenue reached $4 million in 2026 according to the filing.
Just a plain connective sentence.
- Deliveries grew in March 2026 across two regions`

	blocks := []packet.KeyBlock{
		{BlockID: "b0", Kind: packet.BlockParagraph, Text: "Revenue reached $4 million in 2026 according to the filing."},
	}
	preserve := map[string]bool{"numbers": true, "dates": true, "names": true}

	points := extractKeyPoints(summary, preserve, blocks)
	require.NotEmpty(t, points)

	texts := make([]string, len(points))
	for i, p := range points {
		texts[i] = p.Text
	}
	assert.Contains(t, texts, "Revenue reached $4 million in 2026 according to the filing.")
	assert.NotContains(t, texts, "Just a plain connective sentence.")

	for _, p := range points {
		if p.Text == "Revenue reached $4 million in 2026 according to the filing." {
			assert.Equal(t, "b0", p.Citation)
		}
	}
}

func TestExtractKeyPointsDedupes(t *testing.T) {
	summary := "Revenue hit $9 million in 2026.\nRevenue hit $9 million in 2026."
	preserve := map[string]bool{"numbers": true, "dates": true}
	points := extractKeyPoints(summary, preserve, nil)
	assert.LessOrEqual(t, len(points), 1)
}

func TestIsNaturalLanguage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"good sentence", "customers adopted the rollout ahead of schedule", true},
		{"too short", "tiny words only", false},
		{"too few words", "supercalifragilisticexpialidocious word", false},
		{"symbol heavy", "x=1;y=2;z=3;{a:[b,c]};#!f() && ||??", false},
		{"contains url", "visit https://example.com for the full documentation", false},
		{"escaped newline", `line one\nline two continues with more words`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNaturalLanguage(tt.in), "input %q", tt.in)
		})
	}
}

func TestFindCitation(t *testing.T) {
	blocks := []packet.KeyBlock{
		{BlockID: "b0", Text: "Some other content entirely."},
		{BlockID: "b1", Text: "The answer appears in this block of text."},
	}
	assert.Equal(t, "b1", findCitation(blocks, "appears in this block"))
	// Normalized fallback: punctuation differences still match.
	assert.Equal(t, "b1", findCitation(blocks, "appears, in this BLOCK"))
	assert.Empty(t, findCitation(blocks, "absent text"))
	assert.Empty(t, findCitation(nil, "anything"))
}
