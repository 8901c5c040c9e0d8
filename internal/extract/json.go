package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// Bounds for the schema summary and the raw sample.
const (
	maxObjectKeys   = 20
	maxArraySample  = 3
	maxStringLength = 200
	maxSchemaDepth  = 5
	maxRawSize      = 5000
)

// ExtractJSON documents the structure of a JSON payload rather than dumping
// it: a bounded schema summary plus a truncated pretty-printed sample.
func ExtractJSON(in Input) (*Content, error) {
	if !gjson.Valid(in.Text) {
		return nil, werrors.New(werrors.CodeExtractionFailed, "body is not valid JSON")
	}
	root := gjson.Parse(in.Text)

	var b strings.Builder
	b.WriteString("# JSON Document\n\n")
	b.WriteString(fmt.Sprintf("Top-level type: %s\n\n", jsonTypeName(root)))
	b.WriteString("## Structure\n\n```\n")
	writeSchema(&b, root, 0)
	b.WriteString("```\n\n## Sample\n\n```json\n")
	b.WriteString(jsonSample(in.Text))
	b.WriteString("\n```\n")

	return &Content{
		Title:       "JSON Document",
		Markdown:    b.String(),
		TextContent: jsonSample(in.Text),
		Excerpt:     excerptOf(jsonSample(in.Text)),
	}, nil
}

func jsonTypeName(v gjson.Result) string {
	switch {
	case v.IsObject():
		return "object"
	case v.IsArray():
		return "array"
	case v.Type == gjson.String:
		return "string"
	case v.Type == gjson.Number:
		return "number"
	case v.Type == gjson.True, v.Type == gjson.False:
		return "boolean"
	case v.Type == gjson.Null:
		return "null"
	default:
		return "unknown"
	}
}

// writeSchema renders a bounded tree description of the value. Objects list
// up to 20 keys and report a count only when truncated; arrays always report
// the full count and sample up to 3 elements.
func writeSchema(b *strings.Builder, v gjson.Result, depth int) {
	indent := strings.Repeat("  ", depth)
	if depth >= maxSchemaDepth {
		fmt.Fprintf(b, "%s...\n", indent)
		return
	}

	switch {
	case v.IsObject():
		keys := make([]string, 0, maxObjectKeys+1)
		total := 0
		v.ForEach(func(key, _ gjson.Result) bool {
			total++
			if len(keys) < maxObjectKeys {
				keys = append(keys, key.String())
			}
			return true
		})
		sort.Strings(keys)
		if total > maxObjectKeys {
			fmt.Fprintf(b, "%sobject (%d keys, showing %d):\n", indent, total, maxObjectKeys)
		} else {
			fmt.Fprintf(b, "%sobject:\n", indent)
		}
		for _, key := range keys {
			child := v.Get(escapeGJSONPath(key))
			if child.IsObject() || child.IsArray() {
				fmt.Fprintf(b, "%s  %s:\n", indent, key)
				writeSchema(b, child, depth+2)
			} else {
				fmt.Fprintf(b, "%s  %s: %s\n", indent, key, scalarSummary(child))
			}
		}
	case v.IsArray():
		elems := v.Array()
		fmt.Fprintf(b, "%sarray (%d elements):\n", indent, len(elems))
		n := len(elems)
		if n > maxArraySample {
			n = maxArraySample
		}
		for i := 0; i < n; i++ {
			if elems[i].IsObject() || elems[i].IsArray() {
				writeSchema(b, elems[i], depth+1)
			} else {
				fmt.Fprintf(b, "%s  [%d]: %s\n", indent, i, scalarSummary(elems[i]))
			}
		}
	default:
		fmt.Fprintf(b, "%s%s\n", indent, scalarSummary(v))
	}
}

func scalarSummary(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		s := v.String()
		if len(s) > maxStringLength {
			s = s[:maxStringLength] + "..."
		}
		return fmt.Sprintf("string %q", s)
	case gjson.Number:
		return "number " + v.Raw
	case gjson.True, gjson.False:
		return "boolean " + v.Raw
	case gjson.Null:
		return "null"
	default:
		return v.Raw
	}
}

// escapeGJSONPath escapes path syntax characters in a literal key.
func escapeGJSONPath(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "#", `\#`, "@", `\@`)
	return r.Replace(key)
}

// jsonSample pretty-prints the payload and truncates it to 5000 bytes.
func jsonSample(raw string) string {
	out := string(pretty.Pretty([]byte(raw)))
	out = strings.TrimRight(out, "\n")
	if len(out) > maxRawSize {
		out = out[:maxRawSize] + "\n... (truncated)"
	}
	return out
}
