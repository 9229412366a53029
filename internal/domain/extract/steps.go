package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Step names, in pipeline order.
const (
	StepUnfence             = "unfence"
	StepTrimToBrackets      = "trim_to_brackets"
	StepKeepCompleteRecords = "keep_complete_records"
	StepStripNonASCII       = "strip_non_ascii"
	StepDropUnknownKeys     = "drop_unknown_keys"
	StepDropDanglingCommas  = "drop_dangling_commas"
	StepReassemble          = "reassemble"
)

var markdown = goldmark.New()

// Unfence returns the content of the first fenced code block that holds a
// bracket. Text without such a block is returned unchanged.
func Unfence(raw string) string {
	if !strings.Contains(raw, "```") && !strings.Contains(raw, "~~~") {
		return raw
	}
	src := []byte(raw)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var found string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		if strings.ContainsAny(b.String(), "[{") {
			found = b.String()
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})
	if found == "" {
		return raw
	}
	return found
}

// TrimToBrackets returns the span from the first opening bracket or brace to
// the last closing one.
func TrimToBrackets(s string) (string, bool) {
	start := strings.IndexAny(s, "[{")
	end := strings.LastIndexAny(s, "]}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// SplitRecords cuts s into one candidate per top-level object. Multi-line
// objects are collapsed onto a single line. An object left open when the
// next line starts with a brace is abandoned; the second return value counts
// abandoned and unterminated candidates.
func SplitRecords(s string) ([]string, int) {
	var (
		candidates []string
		current    strings.Builder
		depth      int
		inString   bool
		escaped    bool
		lineStart  = true
		abandoned  int
	)

	for _, r := range s {
		if r == '\n' || r == '\r' {
			// raw newlines never occur inside valid JSON strings
			inString, escaped = false, false
			lineStart = true
			if depth > 0 {
				current.WriteByte(' ')
			}
			continue
		}
		startsLine := lineStart && r != ' ' && r != '\t'
		if startsLine {
			lineStart = false
		}

		if inString {
			current.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth > 0 && startsLine {
				abandoned++
				current.Reset()
				depth = 0
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				current.WriteRune(r)
				candidates = append(candidates, collapse(current.String()))
				current.Reset()
				continue
			}
		}
		if depth > 0 {
			current.WriteRune(r)
		}
	}
	if depth > 0 {
		abandoned++
	}
	return candidates, abandoned
}

// KeepCompleteRecords keeps candidates that carry every required field as a
// quoted key.
func KeepCompleteRecords(candidates []string, required []string) ([]string, int) {
	kept := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if hasKeys(c, required) {
			kept = append(kept, c)
		}
	}
	return kept, len(candidates) - len(kept)
}

// StripNonASCII removes non-ASCII runes and control characters other than
// whitespace.
func StripNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20 || r >= 0x7f:
			return -1
		default:
			return r
		}
	}, s)
}

// DropUnknownKeys removes members of a single-object record whose key is not
// allowed. Members without a readable key are removed too.
func DropUnknownKeys(record string, allowed []string) string {
	trimmed := strings.TrimSpace(record)
	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return record
	}
	allow := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		allow[k] = struct{}{}
	}

	members := splitTopLevel(trimmed[1:len(trimmed)-1], ',')
	kept := make([]string, 0, len(members))
	for _, m := range members {
		m = strings.TrimSpace(m)
		key, ok := leadingKey(m)
		if !ok {
			continue
		}
		if _, ok := allow[key]; ok {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(members) {
		return record
	}
	return "{" + strings.Join(kept, ", ") + "}"
}

// DropDanglingCommas removes commas that directly precede a closing bracket
// or brace.
func DropDanglingCommas(s string) string {
	var (
		b        strings.Builder
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Reassemble joins records into a JSON array.
func Reassemble(records []string) string {
	return "[" + strings.Join(records, ",") + "]"
}

func hasKeys(candidate string, required []string) bool {
	for _, field := range required {
		if !hasKey(candidate, field) {
			return false
		}
	}
	return true
}

func hasKey(candidate, field string) bool {
	quoted := `"` + field + `"`
	rest := candidate
	for {
		idx := strings.Index(rest, quoted)
		if idx < 0 {
			return false
		}
		after := strings.TrimLeft(rest[idx+len(quoted):], " \t")
		if strings.HasPrefix(after, ":") {
			return true
		}
		rest = rest[idx+len(quoted):]
	}
}

// splitTopLevel splits s on sep outside strings and nested brackets.
func splitTopLevel(s string, sep byte) []string {
	var (
		parts    []string
		depth    int
		inString bool
		escaped  bool
		start    int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// leadingKey reads the quoted key of a "key": value member.
func leadingKey(member string) (string, bool) {
	if !strings.HasPrefix(member, `"`) {
		return "", false
	}
	escaped := false
	for i := 1; i < len(member); i++ {
		switch {
		case escaped:
			escaped = false
		case member[i] == '\\':
			escaped = true
		case member[i] == '"':
			if !strings.HasPrefix(strings.TrimLeft(member[i+1:], " \t"), ":") {
				return "", false
			}
			return member[1:i], true
		}
	}
	return "", false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
