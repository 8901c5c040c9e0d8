package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

func TestExtractXMLRSSFeed(t *testing.T) {
	feed := `<?xml version="1.0"?>
<rss version="2.0">
<channel>
<title>Engineering Blog</title>
<description>Posts about systems</description>
<item>
<title>First Post</title>
<link>https://example.com/p/1</link>
<pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
<description>Summary of the first post.</description>
</item>
<item>
<title>Second Post</title>
<link>https://example.com/p/2</link>
</item>
</channel>
</rss>`

	out, err := ExtractXML(Input{Text: feed})
	require.NoError(t, err)
	assert.Equal(t, "Engineering Blog", out.Title)
	assert.Contains(t, out.Markdown, "# Engineering Blog")
	assert.Contains(t, out.Markdown, "Posts about systems")
	assert.Contains(t, out.Markdown, "## First Post")
	assert.Contains(t, out.Markdown, "*Mon, 02 Mar 2026 10:00:00 GMT*")
	assert.Contains(t, out.Markdown, "Summary of the first post.")
	assert.Contains(t, out.Markdown, "https://example.com/p/1")
	assert.Contains(t, out.Markdown, "## Second Post")
}

func TestExtractXMLAtomFeed(t *testing.T) {
	feed := `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Atom Updates</title>
<subtitle>Latest entries</subtitle>
<entry>
<title>Entry One</title>
<id>https://example.com/e/1</id>
<updated>2026-03-02T10:00:00Z</updated>
<summary>Entry summary text.</summary>
</entry>
</feed>`

	out, err := ExtractXML(Input{Text: feed})
	require.NoError(t, err)
	assert.Equal(t, "Atom Updates", out.Title)
	assert.Contains(t, out.Markdown, "## Entry One")
	assert.Contains(t, out.Markdown, "Entry summary text.")
	assert.Contains(t, out.Markdown, "https://example.com/e/1")
}

func TestExtractXMLGenericDocument(t *testing.T) {
	doc := `<config><server><host>localhost</host><port>8080</port></server></config>`
	out, err := ExtractXML(Input{Text: doc})
	require.NoError(t, err)
	assert.Equal(t, "XML Document", out.Title)
	assert.Contains(t, out.Markdown, "Root element: `config`")
	assert.Contains(t, out.Markdown, `<host> "localhost"`)
	assert.Contains(t, out.TextContent, "localhost")
}

func TestExtractXMLInvalid(t *testing.T) {
	_, err := ExtractXML(Input{Text: "no xml here"})
	require.Error(t, err)
	assert.Equal(t, werrors.CodeExtractionFailed, werrors.CodeOf(err))

	_, err = ExtractXML(Input{Text: ""})
	require.Error(t, err)
}

func TestExtractXMLUnterminatedRootTolerated(t *testing.T) {
	out, err := ExtractXML(Input{Text: "<root><child>value</child>"})
	require.NoError(t, err)
	assert.Contains(t, out.TextContent, "value")
}

func TestParseXMLTreeNesting(t *testing.T) {
	root, err := parseXMLTree("<a><b>one</b><b>two</b><c/></a>")
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, "a", root.name)
	require.Len(t, root.children, 3)
	assert.Equal(t, "one", root.childText("b"))
	assert.NotNil(t, root.child("c"))
	assert.Nil(t, root.child("missing"))
}
