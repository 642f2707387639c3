package docstring

import "strings"

// field is one "key: description" entry of a section.
type field struct {
	key         string
	description *string
}

// parseFields groups the lines of a raw section into fields. A line holding a
// colon opens a field, split on the first colon; any other line continues the
// open field's description. Continuations seen before the first field are
// dropped.
func parseFields(raw string) []field {
	var (
		fields  []field
		current *field
	)

	for _, line := range splitLines(Dedent(raw)) {
		if key, rest, ok := strings.Cut(line, ":"); ok {
			if current != nil {
				fields = append(fields, *current)
			}
			description := strings.TrimSpace(rest)
			current = &field{key: strings.TrimSpace(key), description: &description}
			continue
		}

		if current == nil {
			continue
		}
		var description string
		if current.description != nil {
			description = *current.description
		}
		description = strings.TrimSpace(description + "\n" + line)
		current.description = &description
	}

	if current != nil {
		fields = append(fields, *current)
	}
	return fields
}

// ParseArguments parses an Args, Arguments or Private arguments section.
// Type and Default are left empty; they come from the signature.
func ParseArguments(raw string) []Argument {
	fields := parseFields(raw)
	arguments := make([]Argument, 0, len(fields))
	for _, f := range fields {
		arguments = append(arguments, Argument{Name: f.key, Description: f.description})
	}
	return arguments
}

// ParseRaises parses a Raises section.
func ParseRaises(raw string) []Raises {
	fields := parseFields(raw)
	raises := make([]Raises, 0, len(fields))
	for _, f := range fields {
		raises = append(raises, Raises{Exception: f.key, Description: f.description})
	}
	return raises
}
