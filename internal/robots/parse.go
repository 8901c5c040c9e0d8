package robots

import (
	"strconv"
	"strings"
)

// rule is a single Allow or Disallow directive.
type rule struct {
	allow   bool
	pattern string
}

// group is a block of directives for one or more user agents.
type group struct {
	agents     []string
	rules      []rule
	crawlDelay float64
	hasDelay   bool
}

// rules is a parsed robots.txt.
type rules struct {
	groups []group
}

// parse reads robots.txt line by line, grouping directives under the
// preceding User-agent lines. Unknown directives and comments are ignored.
func parse(body string) *rules {
	r := &rules{}
	var cur *group
	// Consecutive User-agent lines share the group that follows them.
	inAgents := false

	for _, raw := range strings.Split(body, "\n") {
		line := raw
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		field := strings.ToLower(strings.TrimSpace(line[:colon]))
		value := strings.TrimSpace(line[colon+1:])

		switch field {
		case "user-agent":
			if !inAgents {
				r.groups = append(r.groups, group{})
				cur = &r.groups[len(r.groups)-1]
				inAgents = true
			}
			cur.agents = append(cur.agents, strings.ToLower(value))
		case "allow", "disallow":
			if cur == nil {
				continue
			}
			inAgents = false
			cur.rules = append(cur.rules, rule{allow: field == "allow", pattern: value})
		case "crawl-delay":
			if cur == nil {
				continue
			}
			inAgents = false
			if d, err := strconv.ParseFloat(value, 64); err == nil && d >= 0 {
				cur.crawlDelay = d
				cur.hasDelay = true
			}
		default:
			if cur != nil {
				inAgents = false
			}
		}
	}
	return r
}

// normalizeAgent reduces a full User-Agent header to its product token,
// lowercased: "SpecialBot/2.0 (+https://...)" becomes "specialbot".
func normalizeAgent(ua string) string {
	tok := strings.TrimSpace(ua)
	if i := strings.IndexAny(tok, "/ "); i >= 0 {
		tok = tok[:i]
	}
	return strings.ToLower(tok)
}

// selectGroup picks the directive group for our user agent: a group naming
// our normalized token or full UA wins over the wildcard group. Returns nil
// when no group matches at all.
func (r *rules) selectGroup(ua string) *group {
	token := normalizeAgent(ua)
	full := strings.ToLower(strings.TrimSpace(ua))

	var wildcard *group
	for i := range r.groups {
		g := &r.groups[i]
		for _, a := range g.agents {
			if a == token || a == full {
				return g
			}
			if a == "*" && wildcard == nil {
				wildcard = g
			}
		}
	}
	return wildcard
}

// matchPattern matches a robots path pattern against a request path.
// "*" matches any run of characters; a trailing "$" anchors the end.
func matchPattern(pattern, path string) bool {
	if pattern == "" {
		return true
	}
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = pattern[:len(pattern)-1]
	}
	parts := strings.Split(pattern, "*")

	pos := 0
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 {
			if !strings.HasPrefix(path, part) {
				return false
			}
			pos = len(part)
			continue
		}
		idx := strings.Index(path[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}
	if anchored {
		// The last literal part must reach the end of the path.
		if len(parts) > 0 && parts[len(parts)-1] != "" {
			return pos == len(path)
		}
		// Pattern ended with "*$": anything matches to the end.
		return true
	}
	return true
}

// allowed decides whether path may be fetched under this group. The longest
// matching pattern wins; ties prefer Allow.
func (g *group) allowed(path string) bool {
	if path == "" {
		path = "/"
	}
	best := -1
	verdict := true
	for _, ru := range g.rules {
		if ru.pattern == "" {
			// "Disallow:" with an empty value permits everything.
			continue
		}
		if !matchPattern(ru.pattern, path) {
			continue
		}
		n := len(ru.pattern)
		if n > best || (n == best && ru.allow && !verdict) {
			best = n
			verdict = ru.allow
		}
	}
	return verdict
}
