// Package extract turns raw model completions into structured payloads.
//
// Model output is untrusted: it may wrap the JSON in prose or code fences,
// append commentary after it, or sprinkle // comments inside it. JSON finds
// the first balanced top-level object and parses it; anything else is
// reported as a failed extraction so the caller can fall back to treating
// the completion as plain text.
package extract

import (
	"encoding/json"
	"strings"
)

// JSON extracts the first top-level JSON object from raw. It returns false
// when no object could be parsed.
func JSON(raw string) (map[string]any, bool) {
	candidate, ok := balancedObject(raw)
	if !ok {
		candidate = strings.TrimSpace(raw)
	}
	candidate = stripLineComments(candidate)

	var payload map[string]any
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil || payload == nil {
		return nil, false
	}
	return payload, true
}

// String returns payload[key] when it is a string, or "".
func String(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

// Object returns payload[key] when it is a JSON object, or nil.
func Object(payload map[string]any, key string) map[string]any {
	m, _ := payload[key].(map[string]any)
	return m
}

// balancedObject returns the span from the first '{' to the brace that
// closes it. Braces inside string literals and "//" line comments are not
// counted.
//
// ASCII delimiters never appear inside multi-byte UTF-8 sequences, so a
// byte scan is safe.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				for i < len(s) && s[i] != '\n' {
					i++
				}
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// stripLineComments removes "//" fragments up to the end of their line when
// they appear outside string literals, so URLs in values survive.
func stripLineComments(s string) string {
	if !strings.Contains(s, "//") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
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
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '/' {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
