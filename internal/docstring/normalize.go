package docstring

import "strings"

// Normalize strips the common leading indentation and the surrounding blank
// lines of a docstring. The first line is left-trimmed on its own and does not
// take part in the margin computation, so `"""Title\n    body"""` and a
// docstring opening on its own line both come out flush left.
func Normalize(text string) string {
	lines := splitLines(text)
	if len(lines) == 0 {
		return ""
	}

	margin := commonMargin(lines[1:])

	result := make([]string, 0, len(lines))
	result = append(result, strings.TrimLeft(lines[0], whitespace))
	for _, line := range lines[1:] {
		result = append(result, trimMargin(line, margin))
	}

	result = trimBlankEdges(result)
	if len(result) == 1 {
		return strings.TrimSpace(result[0])
	}
	return strings.Join(result, "\n")
}

// Dedent removes the common margin from every line, the first one included.
// Section bodies are dedented with it before they are split into fields.
func Dedent(text string) string {
	lines := splitLines(text)
	margin := commonMargin(lines)
	for i, line := range lines {
		lines[i] = trimMargin(line, margin)
	}
	return strings.Join(lines, "\n")
}

const whitespace = " \t\v\f\r"

// splitLines splits on "\n", dropping a trailing "\r" from each line and the
// empty line after a final newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// commonMargin returns the smallest indentation among the non-blank lines, or
// zero when every line is blank.
func commonMargin(lines []string) int {
	margin := -1
	for _, line := range lines {
		if isBlank(line) {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, whitespace))
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin < 0 {
		return 0
	}
	return margin
}

// trimMargin removes margin leading whitespace bytes. Lines shorter than the
// margin are blank by construction and are returned untouched.
func trimMargin(line string, margin int) string {
	if len(line) < margin {
		return line
	}
	n := 0
	for n < margin && strings.IndexByte(whitespace, line[n]) >= 0 {
		n++
	}
	return line[n:]
}

func trimBlankEdges(lines []string) []string {
	for len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && isBlank(lines[0]) {
		lines = lines[1:]
	}
	return lines
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
