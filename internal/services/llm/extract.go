package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON object out of model output. It tries a ```json fence,
// then any fence, then the first balanced {...} object, then the whole text.
// Only candidates that parse as JSON are returned.
func ExtractJSON(text string) (string, bool) {
	candidates := make([]string, 0, 4)
	if s, ok := fenced(text, "```json"); ok {
		candidates = append(candidates, s)
	}
	if s, ok := fenced(text, "```"); ok {
		candidates = append(candidates, s)
	}
	if s, ok := firstObject(text); ok {
		candidates = append(candidates, s)
	}
	candidates = append(candidates, strings.TrimSpace(text))

	for _, c := range candidates {
		if c != "" && json.Valid([]byte(c)) {
			return c, true
		}
	}
	return "", false
}

func fenced(text, open string) (string, bool) {
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	// skip an optional language tag on the fence line
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.Contains(rest[:nl], "{") {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// firstObject returns the first brace balanced object, honouring JSON strings.
func firstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
