package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"

	"pydocod/internal/docstring"
	"pydocod/internal/signature"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrSyntax means the source could not be parsed; no module is produced.
	ErrSyntax = errors.New("syntax error")
)

const (
	defaultWorkers   = 4
	defaultCacheSize = 1024
)

// Extractor orchestrates the extraction process using language-specific extractors.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
	workers       int
	cacheSize     int
	cache         *lru.Cache[string, docstring.Docstring]
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers bounds how many functions of one module are processed at once.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCacheSize sets how many parsed docstrings are kept, keyed by raw text.
// Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.cacheSize = n
		}
	}
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string, opts ...Option) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "python":
		langExt = &PythonExtractor{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	e := &Extractor{
		langExtractor: langExt,
		langName:      lang,
		workers:       defaultWorkers,
		cacheSize:     defaultCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.cacheSize > 0 {
		cache, err := lru.New[string, docstring.Docstring](e.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create docstring cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Language returns the language name the extractor was created for.
func (e *Extractor) Language() string {
	return e.langName
}

// ExtractFromFile reads and extracts a single source file.
func (e *Extractor) ExtractFromFile(ctx context.Context, filepath string) (*Module, error) {
	sourceCode, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filepath, err)
	}
	return e.Extract(ctx, filepath, sourceCode)
}

// Extract parses source code and returns one Function record per module-level
// function, in source order. Either every function is extracted or an error
// is returned.
func (e *Extractor) Extract(ctx context.Context, path string, sourceCode []byte) (*Module, error) {
	defs, err := e.functionDefs(ctx, path, sourceCode)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(sourceCode)
	module := &Module{
		Path:        path,
		Language:    e.langName,
		ContentHash: hex.EncodeToString(sum[:]),
		Functions:   make([]Function, len(defs)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, def := range defs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn, err := e.buildFunction(path, def)
			if err != nil {
				return err
			}
			module.Functions[i] = fn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return module, nil
}

func (e *Extractor) functionDefs(ctx context.Context, path string, sourceCode []byte) ([]*FunctionDef, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.langExtractor.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w in %s at line %d", ErrSyntax, path, firstErrorLine(root))
	}

	query, err := sitter.NewQuery([]byte(e.langExtractor.GetQuery()), e.langExtractor.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	defer query.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)

	var defs []*FunctionDef
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			if query.CaptureNameForId(c.Index) != "func" {
				continue
			}
			if def := e.langExtractor.ExtractFunction(c.Node, sourceCode); def != nil {
				defs = append(defs, def)
			}
		}
	}

	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].startByte < defs[j].startByte
	})
	return defs, nil
}

func (e *Extractor) buildFunction(path string, def *FunctionDef) (Function, error) {
	doc := e.parseDocstring(def.RawDocstring)

	arguments, err := signature.Merge(doc.Arguments, def.Signature)
	if err != nil {
		return Function{}, fmt.Errorf("function %s in %s: %w", def.Name, path, err)
	}

	fn := Function{
		Name:       def.Name,
		Docstring:  doc,
		Arguments:  arguments,
		ReturnType: def.ReturnType,
		Signature:  def.SignatureSrc,
		Decorators: def.Decorators,
		Async:      def.Async,
		StartLine:  def.StartLine,
		EndLine:    def.EndLine,
	}
	fn.ID = BuildFunctionID(e.langName, path, fn)
	return fn, nil
}

// parseDocstring memoizes docstring.Parse. The result is shared between
// callers and must not be modified.
func (e *Extractor) parseDocstring(raw string) docstring.Docstring {
	if e.cache == nil {
		return docstring.Parse(raw)
	}
	if doc, ok := e.cache.Get(raw); ok {
		return doc
	}
	doc := docstring.Parse(raw)
	e.cache.Add(raw, doc)
	return doc
}
