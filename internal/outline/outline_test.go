package outline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
)

func TestGenerateIgnoresFencedHeadings(t *testing.T) {
	md := "# Real\n\n```md\n# not a heading\n```\n\n## Section"
	got := Generate(md)
	require.Len(t, got, 2)
	assert.Equal(t, packet.OutlineEntry{Level: 1, Text: "Real", Path: "Real"}, got[0])
	assert.Equal(t, packet.OutlineEntry{Level: 2, Text: "Section", Path: "Real > Section"}, got[1])
}

func TestGeneratePaths(t *testing.T) {
	md := strings.Join([]string{
		"# A",
		"## B",
		"### C",
		"## D",
		"# E",
	}, "\n")
	got := Generate(md)
	require.Len(t, got, 5)

	paths := make([]string, len(got))
	for i, e := range got {
		paths[i] = e.Path
	}
	assert.Equal(t, []string{
		"A",
		"A > B",
		"A > B > C",
		"A > D",
		"E",
	}, paths)
}

func TestGenerateSkipsMalformedHeadings(t *testing.T) {
	md := strings.Join([]string{
		"#nospace",
		"####### seven hashes",
		"#   ",
		"## Good ##",
	}, "\n")
	got := Generate(md)
	require.Len(t, got, 1)
	assert.Equal(t, "Good", got[0].Text)
	assert.Equal(t, 2, got[0].Level)
}

func TestGenerateEmpty(t *testing.T) {
	assert.Empty(t, Generate(""))
	assert.Empty(t, Generate("plain prose without headings\nand more prose"))
}

func TestFenceStateTildesAndWidth(t *testing.T) {
	var f fenceState

	assert.True(t, f.Observe("~~~~"))
	assert.True(t, f.Inside())

	// A shorter or different-character fence does not close it.
	assert.False(t, f.Observe("~~~"))
	assert.False(t, f.Observe("````"))
	assert.True(t, f.Inside())

	assert.True(t, f.Observe("~~~~~"))
	assert.False(t, f.Inside())
}

func TestFenceStateInfoString(t *testing.T) {
	var f fenceState

	assert.True(t, f.Observe("```go"))
	assert.True(t, f.Inside())

	// A closing fence must not carry trailing text.
	assert.False(t, f.Observe("```go"))
	assert.True(t, f.Inside())

	assert.True(t, f.Observe("```"))
	assert.False(t, f.Inside())
}

func TestFindHeadingPath(t *testing.T) {
	md := "# A\n\nintro text\n\n## B\n\nbody under b\n\n# C\n\ntail"

	tests := []struct {
		name string
		pos  int
		want []string
	}{
		{"before any heading content", 0, []string{"A"}},
		{"inside intro", strings.Index(md, "intro"), []string{"A"}},
		{"under nested heading", strings.Index(md, "body"), []string{"A", "B"}},
		{"after sibling reset", strings.Index(md, "tail"), []string{"C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindHeadingPath(md, tt.pos))
		})
	}
}

func TestFindHeadingPathIgnoresFences(t *testing.T) {
	md := "# A\n\n```\n# fake\n```\n\nafter fence"
	got := FindHeadingPath(md, strings.Index(md, "after"))
	assert.Equal(t, []string{"A"}, got)
}
