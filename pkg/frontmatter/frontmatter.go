// Package frontmatter extracts the YAML header of a SKILL.md document.
//
// Parsing never fails: a missing or malformed header yields an empty map and
// callers treat that as an unscorable package. The structured parse goes
// through goldmark-meta; when the YAML is broken, a line-oriented
// `key: value` split recovers whatever flat fields it can.
package frontmatter

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

const bom = "\uFEFF"

const delimiter = "---"

// Frontmatter is the typed view of a SKILL.md header
type Frontmatter struct {
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Tools       []string `mapstructure:"-"`
	Metadata    Metadata `mapstructure:"metadata"`

	// HasMetadata is true when the header carries a nested metadata mapping
	HasMetadata bool `mapstructure:"-"`
}

// Metadata is the optional nested metadata block
type Metadata struct {
	Version string   `mapstructure:"version"`
	Author  string   `mapstructure:"author"`
	Tags    []string `mapstructure:"tags"`
}

// Split separates the header from the body. ok is false when the document
// does not open with a `---` line or the closing `---` line is missing; in
// that case body is the whole content.
func Split(content string) (header, body string, ok bool) {
	content = strings.TrimPrefix(content, bom)
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return "", content, false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			header = strings.Join(lines[1:i], "\n")
			body = strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n")
			return header, body, true
		}
	}

	return "", content, false
}

// HasDelimiters reports whether content opens and closes a header block
func HasDelimiters(content string) bool {
	_, _, ok := Split(content)
	return ok
}

// Body returns the document without its header
func Body(content string) string {
	_, body, _ := Split(content)
	return body
}

// Parse returns the header as a map, or an empty map when there is none.
func Parse(content string) map[string]any {
	header, _, ok := Split(content)
	if !ok {
		return map[string]any{}
	}

	if data, err := parseStructured(content); err == nil && len(data) > 0 {
		return data
	}

	return parseLines(header)
}

func parseStructured(content string) (map[string]any, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert([]byte(strings.TrimPrefix(content, bom)), &buf, parser.WithContext(pctx)); err != nil {
		return nil, err
	}

	data, err := meta.TryGet(pctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = normalize(v)
	}
	return out, nil
}

// normalize converts the map[interface{}]interface{} values produced by the
// YAML decoder into map[string]any so the result can be decoded and
// serialised uniformly.
func normalize(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return val
	}
}

var lineField = regexp.MustCompile(`^([A-Za-z_][\w-]*)\s*:\s*(.*)$`)

// parseLines is the fallback for headers the YAML decoder rejects. Only
// top-level scalar fields survive; indented lines are ignored.
func parseLines(header string) map[string]any {
	out := map[string]any{}
	for _, line := range strings.Split(header, "\n") {
		if line == "" || line[0] == ' ' || line[0] == '\t' || strings.HasPrefix(line, "#") {
			continue
		}
		m := lineField.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[2])
		value = strings.Trim(value, `"'`)
		if value == "" {
			continue
		}
		out[m[1]] = value
	}
	return out
}

// Decode converts a parsed header into a Frontmatter. Unknown keys are
// ignored and scalar types are coerced where possible.
func Decode(raw map[string]any) Frontmatter {
	var fm Frontmatter
	if len(raw) == 0 {
		return fm
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fm,
		WeaklyTypedInput: true,
	})
	if err == nil {
		// a type mismatch in one field must not discard the rest
		_ = decoder.Decode(raw)
	}

	if md, ok := raw["metadata"].(map[string]any); ok {
		fm.HasMetadata = true
		fm.Metadata.Tags = stringList(md["tags"])
	}

	tools := raw["tools"]
	if tools == nil {
		tools = raw["allowed-tools"]
	}
	fm.Tools = stringList(tools)

	fm.Name = strings.TrimSpace(fm.Name)
	fm.Description = strings.TrimSpace(fm.Description)
	return fm
}

// stringList accepts either a YAML sequence or a comma/space separated
// string, the two shapes seen for tools and tags in the wild.
func stringList(v any) []string {
	var out []string
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" && item != nil {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, item := range splitToolString(val) {
			out = append(out, item)
		}
	}
	return out
}

// splitToolString splits on commas and on whitespace outside parentheses,
// so `Bash(git status), Read` yields [Bash(git status) Read].
func splitToolString(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		depth int
	)
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			out = append(out, t)
		}
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case depth == 0 && (r == ',' || r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
