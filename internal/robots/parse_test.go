package robots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGroups(t *testing.T) {
	body := `# comment
User-agent: SpecialBot
Disallow: /blocked
Crawl-delay: 2

User-agent: a
User-agent: b
Allow: /shared

User-agent: *
Allow: /
`
	r := parse(body)
	require.Len(t, r.groups, 3)

	assert.Equal(t, []string{"specialbot"}, r.groups[0].agents)
	assert.Len(t, r.groups[0].rules, 1)
	assert.True(t, r.groups[0].hasDelay)
	assert.Equal(t, 2.0, r.groups[0].crawlDelay)

	// Consecutive User-agent lines share one group.
	assert.Equal(t, []string{"a", "b"}, r.groups[1].agents)

	assert.Equal(t, []string{"*"}, r.groups[2].agents)
}

func TestNormalizeAgent(t *testing.T) {
	assert.Equal(t, "specialbot", normalizeAgent("SpecialBot/2.0 (+https://example.com/bot)"))
	assert.Equal(t, "specialbot", normalizeAgent("SpecialBot"))
	assert.Equal(t, "mybot", normalizeAgent("MyBot details here"))
}

func TestSelectGroup(t *testing.T) {
	body := `User-agent: SpecialBot
Disallow: /blocked

User-agent: *
Allow: /
`
	r := parse(body)

	// UA-specific group wins over the wildcard.
	g := r.selectGroup("SpecialBot/2.0")
	require.NotNil(t, g)
	assert.Equal(t, []string{"specialbot"}, g.agents)

	// Unknown agents get the wildcard group.
	g = r.selectGroup("OtherBot/1.0")
	require.NotNil(t, g)
	assert.Equal(t, []string{"*"}, g.agents)

	// No wildcard, no match: nil.
	r2 := parse("User-agent: onlybot\nDisallow: /x\n")
	assert.Nil(t, r2.selectGroup("OtherBot/1.0"))
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/blocked", "/blocked", true},
		{"/blocked", "/blocked/page", true},
		{"/blocked", "/open", false},
		{"/*.pdf", "/files/report.pdf", true},
		{"/*.pdf", "/files/report.html", false},
		{"/exact$", "/exact", true},
		{"/exact$", "/exact/more", false},
		{"/a*b$", "/aXXb", true},
		{"/a*b$", "/aXXbc", false},
		{"", "/anything", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchPattern(tt.pattern, tt.path),
			"pattern=%q path=%q", tt.pattern, tt.path)
	}
}

func TestGroupAllowed(t *testing.T) {
	t.Run("longest pattern wins", func(t *testing.T) {
		r := parse(`User-agent: *
Disallow: /dir
Allow: /dir/open
`)
		g := r.selectGroup("bot")
		assert.False(t, g.allowed("/dir/secret"))
		assert.True(t, g.allowed("/dir/open/page"))
	})

	t.Run("tie prefers allow", func(t *testing.T) {
		r := parse(`User-agent: *
Disallow: /path
Allow: /path
`)
		g := r.selectGroup("bot")
		assert.True(t, g.allowed("/path"))
	})

	t.Run("no match defaults to allow", func(t *testing.T) {
		r := parse(`User-agent: *
Disallow: /private
`)
		g := r.selectGroup("bot")
		assert.True(t, g.allowed("/public"))
	})

	t.Run("empty disallow permits everything", func(t *testing.T) {
		r := parse(`User-agent: *
Disallow:
`)
		g := r.selectGroup("bot")
		assert.True(t, g.allowed("/anything"))
	})
}
