package storage

import (
	"context"
	"errors"

	"pydocod/internal/extractor"
)

// ErrModuleNotFound is returned when no module is stored under a path.
var ErrModuleNotFound = errors.New("module not found")

// ModuleSummary is the index row of a stored module.
type ModuleSummary struct {
	Path          string
	ContentHash   string
	FunctionCount int
}

// Store persists extracted modules keyed by source path.
type Store interface {
	// SaveModule replaces the stored module at m.Path, functions included.
	SaveModule(ctx context.Context, m *extractor.Module) error

	// LoadModule returns the module stored at path with functions in source order.
	LoadModule(ctx context.Context, path string) (*extractor.Module, error)

	// ListModules returns all stored modules ordered by path.
	ListModules(ctx context.Context) ([]ModuleSummary, error)

	// DeleteModule removes a module and its functions. Missing paths are ignored.
	DeleteModule(ctx context.Context, path string) error

	// ModuleHash returns the content hash recorded for path.
	ModuleHash(ctx context.Context, path string) (string, error)

	Close() error
}
