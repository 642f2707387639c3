package docstring

import "strings"

// SectionKind identifies a labeled block of a docstring.
type SectionKind int

const (
	// body is the destination before any header line; it is not a section.
	body SectionKind = iota
	SectionArguments
	SectionPrivateArguments
	SectionReturns
	SectionRaises
)

func (k SectionKind) String() string {
	switch k {
	case SectionArguments:
		return "arguments"
	case SectionPrivateArguments:
		return "private_arguments"
	case SectionReturns:
		return "returns"
	case SectionRaises:
		return "raises"
	default:
		return "body"
	}
}

// headers are matched as literal, case-sensitive prefixes, first match wins.
var headers = []struct {
	prefix string
	kind   SectionKind
}{
	{"Args:", SectionArguments},
	{"Arguments:", SectionArguments},
	{"Private arguments:", SectionPrivateArguments},
	{"Returns:", SectionReturns},
	{"Raises:", SectionRaises},
}

// CodeMarker prefixes every line of a REPL-style example.
const CodeMarker = ">>> "

// Sections is the result of splitting a normalized docstring.
type Sections struct {
	Title string
	// Description is every body line, verbatim, trimmed as a whole.
	Description string
	Body        []BodyPart
	// Raw holds each section's lines with their original indentation, one
	// trailing newline per line.
	Raw map[SectionKind]string
}

// Split partitions a normalized docstring in a single forward pass. The title
// runs up to the first blank line; the remaining lines go to the body until a
// header line redirects them to a section.
func Split(normalized string) Sections {
	lines := splitLines(normalized)

	var titleLines []string
	rest := lines
	for i, line := range lines {
		if isBlank(line) {
			rest = lines[i+1:]
			break
		}
		titleLines = append(titleLines, line)
		rest = nil
	}

	var (
		dest        = body
		description []string
		parts       bodyParts
		raw         = make(map[SectionKind]*strings.Builder)
	)

	for _, line := range rest {
		if kind, ok := headerKind(line); ok {
			dest = kind
			continue
		}

		switch dest {
		case body:
			description = append(description, line)
			parts.add(line)
		default:
			b, ok := raw[dest]
			if !ok {
				b = &strings.Builder{}
				raw[dest] = b
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	sections := Sections{
		Title:       strings.Join(titleLines, " "),
		Description: strings.TrimSpace(strings.Join(description, "\n")),
		Body:        parts.finish(),
		Raw:         make(map[SectionKind]string, len(raw)),
	}
	for kind, b := range raw {
		sections.Raw[kind] = b.String()
	}
	return sections
}

func headerKind(line string) (SectionKind, bool) {
	for _, h := range headers {
		if strings.HasPrefix(line, h.prefix) {
			return h.kind, true
		}
	}
	return body, false
}

type partState int

const (
	partEmpty partState = iota
	partText
	partCode
)

// bodyParts groups body lines into alternating text and code parts.
type bodyParts struct {
	state partState
	lines []string
	parts []BodyPart
}

func (b *bodyParts) add(line string) {
	if code, ok := strings.CutPrefix(line, CodeMarker); ok {
		if b.state != partCode {
			b.flush()
			b.state = partCode
		}
		b.lines = append(b.lines, code)
		return
	}

	if b.state != partText {
		b.flush()
		b.state = partText
	}
	b.lines = append(b.lines, line)
}

// flush closes the open part. Text parts lose their leading and trailing
// blank lines and are dropped when nothing is left.
func (b *bodyParts) flush() {
	switch b.state {
	case partCode:
		b.parts = append(b.parts, CodeSnippet(strings.Join(b.lines, "\n")))
	case partText:
		if text := trimBlankEdges(b.lines); len(text) > 0 {
			b.parts = append(b.parts, Text(strings.Join(text, "\n")))
		}
	}
	b.state = partEmpty
	b.lines = nil
}

// finish flushes the open part. The result is never nil so an empty body
// encodes as [] like the other list fields.
func (b *bodyParts) finish() []BodyPart {
	b.flush()
	if b.parts == nil {
		return []BodyPart{}
	}
	return b.parts
}
