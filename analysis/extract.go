package analysis

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject isolates a JSON object from free-form model output.
//
// The trimmed text is returned unchanged when it already is a single object. Otherwise the
// first brace-matched {...} candidate that parses as JSON wins; if none parses, the first
// candidate is returned so the validator can report what is wrong with it. Braces inside
// JSON strings do not count. Applying ExtractJSONObject to its own output is a no-op.
func ExtractJSONObject(text string) (string, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", &ExtractionError{Length: 0}
	}

	first := ""
	for start := strings.IndexByte(s, '{'); start >= 0; {
		end := matchBrace(s, start)
		if end > start {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
			if first == "" {
				first = candidate
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	if first == "" {
		return "", &ExtractionError{Length: len(s)}
	}
	return first, nil
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
