package validator

import "strings"

// shortCommentLimit is the longest trailing comment kept in sanitized code.
// Longer comments are generation chatter, not code.
const shortCommentLimit = 30

// normalizeArtifacts removes generation-format wrappers that would defeat
// parsing: markdown code fences and a leading "CODE:" label. It runs before
// the parser; it never touches executable text.
func normalizeArtifacts(code string) string {
	lines := strings.Split(code, "\n")
	out := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		out = append(out, line)
	}
	result := strings.Join(out, "\n")
	result = strings.TrimSpace(result)

	for _, prefix := range []string{"CODE:", "code:", "Code:"} {
		if strings.HasPrefix(result, prefix) {
			result = strings.TrimSpace(strings.TrimPrefix(result, prefix))
			break
		}
	}
	return result
}

// stripTrailingArtifacts removes long comments from validated code. Short
// comments survive; full-line or trailing comments beyond the limit are
// display-only explanation and are dropped. Stripping only ever deletes
// text, so it cannot introduce a denylist token.
func stripTrailingArtifacts(code string) string {
	lines := strings.Split(code, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			out = append(out, line)
			continue
		}
		if strings.HasPrefix(trimmed, "//") {
			if len(trimmed) < shortCommentLimit+2 {
				out = append(out, line)
			}
			continue
		}

		if idx := commentStart(line); idx >= 0 {
			comment := line[idx:]
			if len(comment) >= shortCommentLimit {
				line = strings.TrimRight(line[:idx], " \t")
			}
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// commentStart returns the index of a trailing // comment, or -1. A // that
// sits inside a string literal is not a comment.
func commentStart(line string) int {
	var quote byte
	for i := 0; i+1 < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '/':
			if line[i+1] == '/' {
				return i
			}
		}
	}
	return -1
}
