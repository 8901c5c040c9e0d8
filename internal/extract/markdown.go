package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
)

// mdFrontmatter is the subset of frontmatter fields carried into packet
// metadata.
type mdFrontmatter struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Lang        string `yaml:"lang"`
}

var (
	mdScriptRe  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	mdStyleRe   = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	mdIframeRe  = regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe>|<iframe\b[^>]*/?>`)
	mdHandlerRe = regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	mdHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+?)\s*#*\s*$`)
)

// ExtractMarkdown normalizes a Markdown document: YAML frontmatter is parsed
// into metadata, embedded scripting is stripped, and tilde fences are
// normalized to backticks.
func ExtractMarkdown(in Input) (*Content, error) {
	var fm mdFrontmatter
	body, err := frontmatter.Parse(bytes.NewReader([]byte(in.Text)), &fm)
	if err != nil {
		// Malformed frontmatter is not fatal; treat the whole input as body.
		body = []byte(in.Text)
	}

	md := string(body)
	md = mdScriptRe.ReplaceAllString(md, "")
	md = mdStyleRe.ReplaceAllString(md, "")
	md = mdIframeRe.ReplaceAllString(md, "")
	md = mdHandlerRe.ReplaceAllString(md, "")
	md = normalizeTildeFences(md)
	md = strings.TrimSpace(md)

	title := fm.Title
	if title == "" {
		if m := mdHeadingRe.FindStringSubmatch(md); m != nil {
			title = m[1]
		}
	}

	return &Content{
		Title:         title,
		Markdown:      md,
		TextContent:   md,
		Excerpt:       firstNonEmpty(fm.Description, excerptOf(md)),
		Byline:        fm.Author,
		Lang:          fm.Lang,
		PublishedTime: fm.Date,
	}, nil
}

// normalizeTildeFences rewrites ~~~ fences to backtick fences, preserving the
// info string. Only fence delimiter lines are touched.
func normalizeTildeFences(md string) string {
	lines := strings.Split(md, "\n")
	inBacktick := false
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "```") {
			inBacktick = !inBacktick
			continue
		}
		if inBacktick {
			continue
		}
		if strings.HasPrefix(trimmed, "~~~") {
			n := 0
			for n < len(trimmed) && trimmed[n] == '~' {
				n++
			}
			indent := line[:len(line)-len(trimmed)]
			lines[i] = indent + strings.Repeat("`", n) + trimmed[n:]
		}
	}
	return strings.Join(lines, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
