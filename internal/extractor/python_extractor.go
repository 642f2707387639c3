package extractor

import (
	"strings"

	"pydocod/internal/signature"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonExtractor implements LanguageExtractor for Python.
type PythonExtractor struct{}

func (p *PythonExtractor) GetLanguage() *sitter.Language {
	return python.GetLanguage()
}

// GetQuery matches module-level functions only; methods and nested
// functions are not documented.
func (p *PythonExtractor) GetQuery() string {
	return `
		(module (function_definition) @func)
		(module (decorated_definition definition: (function_definition) @func))
	`
}

func (p *PythonExtractor) ExtractFunction(node *sitter.Node, sourceCode []byte) *FunctionDef {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	outer := node
	var decorators []string
	if parent := node.Parent(); parent != nil && parent.Type() == "decorated_definition" {
		outer = parent
		for i := 0; i < int(parent.NamedChildCount()); i++ {
			child := parent.NamedChild(i)
			if child.Type() == "decorator" {
				decorators = append(decorators, strings.TrimSpace(strings.TrimPrefix(child.Content(sourceCode), "@")))
			}
		}
	}

	def := &FunctionDef{
		Name:       nameNode.Content(sourceCode),
		Decorators: decorators,
		Async:      node.ChildCount() > 0 && node.Child(0).Type() == "async",
		StartLine:  int(outer.StartPoint().Row + 1),
		EndLine:    int(outer.EndPoint().Row + 1),
		startByte:  outer.StartByte(),
	}

	signatureEnd := nameNode.EndByte()
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		def.Signature = p.extractParams(paramsNode, sourceCode)
		signatureEnd = paramsNode.EndByte()
	}
	if returnNode := node.ChildByFieldName("return_type"); returnNode != nil {
		def.ReturnType = contentOf(returnNode, sourceCode)
		signatureEnd = returnNode.EndByte()
	}
	def.SignatureSrc = canonicalize(string(sourceCode[node.StartByte():signatureEnd]))

	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		def.RawDocstring = p.extractDocstring(bodyNode, sourceCode)
	}

	return def
}

// extractParams reads the parameter list the way the host AST lays it out:
// regular parameters until a bare "*" or "*args", keyword-only after it.
// "*args", "**kwargs" and "/" are not parameters themselves.
func (p *PythonExtractor) extractParams(paramsNode *sitter.Node, sourceCode []byte) signature.Signature {
	var (
		sig         signature.Signature
		kwDefaults  []*string
		keywordOnly bool
	)

	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		child := paramsNode.NamedChild(i)

		var param signature.Parameter
		switch child.Type() {
		case "identifier":
			param.Name = child.Content(sourceCode)
		case "typed_parameter":
			target := child.NamedChild(0)
			if target == nil {
				continue
			}
			switch target.Type() {
			case "list_splat_pattern":
				keywordOnly = true
				continue
			case "dictionary_splat_pattern":
				continue
			}
			param.Name = target.Content(sourceCode)
			param.Annotation = contentOf(child.ChildByFieldName("type"), sourceCode)
		case "default_parameter":
			nameNode := child.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			param.Name = nameNode.Content(sourceCode)
			param.Default = contentOf(child.ChildByFieldName("value"), sourceCode)
		case "typed_default_parameter":
			nameNode := child.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			param.Name = nameNode.Content(sourceCode)
			param.Annotation = contentOf(child.ChildByFieldName("type"), sourceCode)
			param.Default = contentOf(child.ChildByFieldName("value"), sourceCode)
		case "list_splat_pattern", "keyword_separator":
			keywordOnly = true
			continue
		default:
			continue
		}

		if keywordOnly {
			kwDefaults = append(kwDefaults, param.Default)
			param.Default = nil
			sig.KeywordOnly = append(sig.KeywordOnly, param)
		} else {
			sig.Positional = append(sig.Positional, param)
		}
	}

	// Keyword defaults are right-aligned: leading parameters without one are
	// implied by the length difference.
	for i, d := range kwDefaults {
		if d != nil {
			sig.KwDefaults = kwDefaults[i:]
			break
		}
	}

	return sig
}

// extractDocstring returns the body's first statement when it is a bare
// string literal. Comments before it are skipped; bytes and f-strings are not
// docstrings.
func (p *PythonExtractor) extractDocstring(block *sitter.Node, sourceCode []byte) string {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		stmt := block.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
			return ""
		}

		lit := stmt.NamedChild(0)
		switch lit.Type() {
		case "string":
			if s, ok := stringLiteral(lit.Content(sourceCode)); ok {
				return s
			}
		case "concatenated_string":
			var b strings.Builder
			for j := 0; j < int(lit.NamedChildCount()); j++ {
				s, ok := stringLiteral(lit.NamedChild(j).Content(sourceCode))
				if !ok {
					return ""
				}
				b.WriteString(s)
			}
			return b.String()
		}
		return ""
	}
	return ""
}

func contentOf(node *sitter.Node, sourceCode []byte) *string {
	if node == nil {
		return nil
	}
	s := node.Content(sourceCode)
	return &s
}

// firstErrorLine returns the 1-based line of the first ERROR or MISSING node.
func firstErrorLine(root *sitter.Node) int {
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	line := 0
	var visit func(*sitter.TreeCursor) bool
	visit = func(c *sitter.TreeCursor) bool {
		n := c.CurrentNode()
		if n.Type() == "ERROR" || n.IsMissing() {
			line = int(n.StartPoint().Row + 1)
			return true
		}
		if !n.HasError() {
			return false
		}
		if c.GoToFirstChild() {
			if visit(c) {
				return true
			}
			for c.GoToNextSibling() {
				if visit(c) {
					return true
				}
			}
			c.GoToParent()
		}
		return false
	}
	visit(cursor)
	return line
}
