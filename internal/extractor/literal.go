package extractor

import (
	"strconv"
	"strings"
)

// stringLiteral returns the value of a Python str literal as written in the
// source. It reports false for bytes and f-strings, which are never docstrings.
func stringLiteral(raw string) (string, bool) {
	i := 0
	for i < len(raw) && strings.IndexByte("rRuUbBfF", raw[i]) >= 0 {
		i++
	}
	prefix := strings.ToLower(raw[:i])
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}

	body := raw[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(q) && strings.HasPrefix(body, q) && strings.HasSuffix(body, q) {
			body = body[len(q) : len(body)-len(q)]
			if strings.Contains(prefix, "r") {
				return body, true
			}
			return unescape(body), true
		}
	}
	return "", false
}

// unescape decodes the escape sequences of a non-raw literal. Unknown escapes
// are kept verbatim, as Python does.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}

		i++
		switch s[i] {
		case '\n':
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'x':
			if i+2 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteRune(rune(v))
					i += 2
					continue
				}
			}
			b.WriteString(`\x`)
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
