package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMarkdownFrontmatter(t *testing.T) {
	in := Input{Text: `---
title: Release Notes
author: Dev Team
date: "2026-02-14"
description: What changed in 2.0
lang: en
---

# Release Notes

Body of the notes.`}

	out, err := ExtractMarkdown(in)
	require.NoError(t, err)
	assert.Equal(t, "Release Notes", out.Title)
	assert.Equal(t, "Dev Team", out.Byline)
	assert.Equal(t, "2026-02-14", out.PublishedTime)
	assert.Equal(t, "What changed in 2.0", out.Excerpt)
	assert.Equal(t, "en", out.Lang)
	assert.NotContains(t, out.Markdown, "---\ntitle:")
	assert.Contains(t, out.Markdown, "# Release Notes")
}

func TestExtractMarkdownTitleFromHeading(t *testing.T) {
	out, err := ExtractMarkdown(Input{Text: "intro line\n\n## First Heading ##\n\nbody"})
	require.NoError(t, err)
	assert.Equal(t, "First Heading", out.Title)
}

func TestExtractMarkdownStripsEmbeddedScripting(t *testing.T) {
	out, err := ExtractMarkdown(Input{Text: `# Doc

<script>alert(1)</script>

<p onclick="steal()">keep this text</p>

<iframe src="https://evil.example"></iframe>

trailing prose`})
	require.NoError(t, err)
	assert.NotContains(t, out.Markdown, "<script")
	assert.NotContains(t, out.Markdown, "onclick")
	assert.NotContains(t, out.Markdown, "<iframe")
	assert.Contains(t, out.Markdown, "keep this text")
	assert.Contains(t, out.Markdown, "trailing prose")
}

func TestExtractMarkdownMalformedFrontmatter(t *testing.T) {
	text := "---\n:bad yaml [\n---\n\n# Still Works"
	out, err := ExtractMarkdown(Input{Text: text})
	require.NoError(t, err)
	assert.Contains(t, out.Markdown, "# Still Works")
}

func TestNormalizeTildeFences(t *testing.T) {
	in := "~~~python\nprint(1)\n~~~\n\ntext"
	got := normalizeTildeFences(in)
	assert.Equal(t, "```python\nprint(1)\n```\n\ntext", got)
}

func TestNormalizeTildeFencesInsideBacktickFence(t *testing.T) {
	// Tilde lines inside an open backtick fence are content, not delimiters.
	in := "```\n~~~\nliteral tildes\n~~~\n```"
	assert.Equal(t, in, normalizeTildeFences(in))
}
