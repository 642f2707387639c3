package extractor

import "pydocod/internal/docstring"

// Module is everything extracted from one source file, functions in source order.
type Module struct {
	Path        string     `json:"path"`
	Language    string     `json:"language"`
	ContentHash string     `json:"content_hash"`
	Functions   []Function `json:"functions"`
}

// Function is the documentation record of one function definition.
type Function struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Docstring docstring.Docstring `json:"docstring"`
	// Arguments are the annotated parameters in signature order, carrying type,
	// default and documented description. They supersede Docstring.Arguments
	// for rendering.
	Arguments  []docstring.Argument `json:"arguments"`
	ReturnType *string              `json:"return_type,omitempty"`
	Signature  string               `json:"signature"`
	Decorators []string             `json:"decorators,omitempty"`
	Async      bool                 `json:"async,omitempty"`
	StartLine  int                  `json:"start_line"`
	EndLine    int                  `json:"end_line"`
}

// UnmatchedArguments lists documented argument names that match no merged
// argument, either because the parameter does not exist or is unannotated.
func (f Function) UnmatchedArguments() []string {
	known := make(map[string]bool, len(f.Arguments))
	for _, a := range f.Arguments {
		known[a.Name] = true
	}
	var out []string
	for _, a := range f.Docstring.Arguments {
		if !known[a.Name] {
			out = append(out, a.Name)
		}
	}
	return out
}
