// Package docstring parses Google-style Python docstrings into a structured
// model: title, description, body with code examples, and the Args, Private
// arguments, Returns and Raises sections.
//
// Every function in this package is total: malformed input degrades to empty
// fields, never to an error or a panic.
package docstring

import "strings"

// PartKind tags a BodyPart.
type PartKind string

const (
	PartText PartKind = "text"
	PartCode PartKind = "code"
)

// BodyPart is a run of narrative text or of REPL-style example code.
type BodyPart struct {
	Kind    PartKind `json:"kind"`
	Content string   `json:"content"`
}

// Text returns a text BodyPart.
func Text(s string) BodyPart { return BodyPart{Kind: PartText, Content: s} }

// CodeSnippet returns a code BodyPart, markers already stripped.
func CodeSnippet(s string) BodyPart { return BodyPart{Kind: PartCode, Content: s} }

// IsCode reports whether the part is an example snippet.
func (p BodyPart) IsCode() bool { return p.Kind == PartCode }

// Argument is a documented or signature-merged parameter.
type Argument struct {
	Name        string  `json:"name"`
	Type        *string `json:"type,omitempty"`
	Default     *string `json:"default,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Raises is one entry of a Raises section.
type Raises struct {
	Exception   string  `json:"exception"`
	Description *string `json:"description,omitempty"`
}

// Docstring is the structured form of a docstring.
type Docstring struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Body             []BodyPart `json:"body"`
	Returns          string     `json:"returns"`
	Arguments        []Argument `json:"arguments"`
	PrivateArguments []Argument `json:"private_arguments"`
	Raises           []Raises   `json:"raises"`
}

// Parse runs the whole pipeline on a raw docstring. The empty string yields a
// Docstring whose fields are all empty.
func Parse(raw string) Docstring {
	s := Split(Normalize(raw))

	return Docstring{
		Title:            s.Title,
		Description:      s.Description,
		Body:             s.Body,
		Returns:          strings.TrimSpace(Dedent(s.Raw[SectionReturns])),
		Arguments:        ParseArguments(s.Raw[SectionArguments]),
		PrivateArguments: ParseArguments(s.Raw[SectionPrivateArguments]),
		Raises:           ParseRaises(s.Raw[SectionRaises]),
	}
}

// IsEmpty reports whether nothing was documented.
func (d Docstring) IsEmpty() bool {
	return d.Title == "" && d.Description == "" && len(d.Body) == 0 && d.Returns == "" &&
		len(d.Arguments) == 0 && len(d.PrivateArguments) == 0 && len(d.Raises) == 0
}
