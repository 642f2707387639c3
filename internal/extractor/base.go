package extractor

import (
	"pydocod/internal/signature"

	sitter "github.com/smacker/go-tree-sitter"
)

// FunctionDef is what a language extractor reads off one function definition,
// before any docstring parsing.
type FunctionDef struct {
	Name         string
	RawDocstring string
	Signature    signature.Signature
	SignatureSrc string
	ReturnType   *string
	Decorators   []string
	Async        bool
	StartLine    int
	EndLine      int
	startByte    uint32
}

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	// GetQuery returns a query whose "func" captures are the function
	// definitions to document.
	GetQuery() string
	ExtractFunction(node *sitter.Node, sourceCode []byte) *FunctionDef
}
