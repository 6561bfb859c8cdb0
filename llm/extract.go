package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON recovers a JSON object from free-form model text. The
// strategy is deliberately two-step: first a strict parse of the whole
// text, then a scan for the first balanced object span. The boolean result
// is false when no object can be recovered; callers must handle that case
// rather than rely on a thrown error.
func ExtractJSON(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return json.RawMessage(trimmed), true
	}

	span, ok := firstObjectSpan(trimmed)
	if !ok {
		return nil, false
	}
	if !json.Valid([]byte(span)) {
		return nil, false
	}
	return json.RawMessage(span), true
}

// ExtractInto recovers a JSON object from text and unmarshals it into v.
// Returns false when no object is recoverable or it does not decode.
func ExtractInto(text string, v any) bool {
	raw, ok := ExtractJSON(text)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// firstObjectSpan returns the first balanced {...} span in s. Brace
// counting skips braces inside JSON strings, including escaped quotes.
func firstObjectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

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
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
