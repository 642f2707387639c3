// Package signature merges documented arguments with a function's real
// parameter list.
package signature

import (
	"errors"
	"fmt"

	"pydocod/internal/docstring"
)

// ErrMalformedSignature reports a parameter list that breaks the producer's
// contract, such as more keyword defaults than keyword-only parameters.
var ErrMalformedSignature = errors.New("malformed signature")

// Parameter is one parameter as written in the source.
type Parameter struct {
	Name       string  `json:"name"`
	Annotation *string `json:"annotation,omitempty"`
	// Default is only read for positional parameters; keyword-only defaults
	// live in Signature.KwDefaults.
	Default *string `json:"default,omitempty"`
}

// Signature is the parameter list of a function definition.
//
// KwDefaults is right-aligned against KeywordOnly: the first
// len(KeywordOnly)-len(KwDefaults) keyword-only parameters have no default,
// the rest map to KwDefaults in order. A nil entry means that parameter has no
// default either.
type Signature struct {
	Positional  []Parameter `json:"positional"`
	KeywordOnly []Parameter `json:"keyword_only"`
	KwDefaults  []*string   `json:"kw_defaults"`
}

// Merge walks the real parameters in signature order and attaches the
// documented description of each one by exact name. Parameters without a type
// annotation are left out. Documented names that match no parameter are not
// emitted.
func Merge(documented []docstring.Argument, sig Signature) ([]docstring.Argument, error) {
	offset := len(sig.KeywordOnly) - len(sig.KwDefaults)
	if offset < 0 {
		return nil, fmt.Errorf("%w: %d keyword defaults for %d keyword-only parameters",
			ErrMalformedSignature, len(sig.KwDefaults), len(sig.KeywordOnly))
	}

	descriptions := make(map[string]*string, len(documented))
	for _, arg := range documented {
		if _, seen := descriptions[arg.Name]; !seen {
			descriptions[arg.Name] = arg.Description
		}
	}

	merged := make([]docstring.Argument, 0, len(sig.Positional)+len(sig.KeywordOnly))
	for _, p := range sig.Positional {
		if p.Annotation == nil {
			continue
		}
		merged = append(merged, docstring.Argument{
			Name:        p.Name,
			Type:        p.Annotation,
			Default:     p.Default,
			Description: descriptions[p.Name],
		})
	}

	for i, p := range sig.KeywordOnly {
		if p.Annotation == nil {
			continue
		}
		var def *string
		if i >= offset {
			def = sig.KwDefaults[i-offset]
		}
		merged = append(merged, docstring.Argument{
			Name:        p.Name,
			Type:        p.Annotation,
			Default:     def,
			Description: descriptions[p.Name],
		})
	}

	return merged, nil
}
