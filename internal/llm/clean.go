package llm

import (
	"strings"
)

// CleanContent normalizes a model response into the JSON object the prompt
// asked for: outer whitespace stripped, markdown code fences removed, and the
// first top-level JSON object extracted. Returns the cleaned string and
// whether a top-level object was found.
func CleanContent(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = stripCodeFences(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
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
				return s[start : i+1], true
			}
		}
	}
	return s, false
}

func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Language hint on the opening fence, e.g. ```json
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "" || isFenceLanguage(firstLine) {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isFenceLanguage(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
