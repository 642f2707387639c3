package crawler

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pydocod/internal/extractor"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultIgnored lists directories never descended into.
var DefaultIgnored = []string{".git", ".venv", "venv", "__pycache__", "node_modules", ".tox", ".mypy_cache"}

// Crawler scans a directory for Python source files.
type Crawler struct {
	extractor *extractor.Extractor
	ignored   []string
	workers   int
	logger    *logrus.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithIgnored replaces the ignored directory names.
func WithIgnored(dirs ...string) Option {
	return func(c *Crawler) { c.ignored = dirs }
}

// WithWorkers bounds how many files are extracted at once.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor, logger *logrus.Logger, opts ...Option) *Crawler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Crawler{
		extractor: ext,
		ignored:   DefaultIgnored,
		workers:   4,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ignores reports whether a directory with this base name is skipped.
func (c *Crawler) Ignores(name string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}

// ScanReport summarizes one scan.
type ScanReport struct {
	// Files are all source files found, relative to the root, in walk order.
	Files []string
	// Failed are the files that could not be extracted.
	Failed []string
}

// ListFiles walks root and returns the Python files to extract, relative to
// root and in lexical order.
func (c *Crawler) ListFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != root && c.Ignores(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasSuffix(d.Name(), ".py") {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	return files, err
}

// ScanProject walks the root directory and extracts every Python file.
// Files are extracted concurrently; onModule is called from the calling
// goroutine in walk order. A file that fails to extract is logged and skipped.
func (c *Crawler) ScanProject(ctx context.Context, root string, onModule func(*extractor.Module) error) (*ScanReport, error) {
	files, err := c.ListFiles(root)
	if err != nil {
		return nil, err
	}
	return c.ScanFiles(ctx, root, files, onModule)
}

// ScanFiles extracts the given root-relative files, see ScanProject.
// Module paths are the relative paths.
func (c *Crawler) ScanFiles(ctx context.Context, root string, files []string, onModule func(*extractor.Module) error) (*ScanReport, error) {
	report := &ScanReport{Files: files}
	modules := make([]*extractor.Module, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			modules[i], errs[i] = c.extractFile(gctx, root, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, path := range files {
		if errs[i] != nil {
			// Log and continue instead of failing the whole scan
			c.logger.WithError(errs[i]).WithField("file", path).Warn("Skipping file")
			report.Failed = append(report.Failed, path)
			continue
		}
		if err := onModule(modules[i]); err != nil {
			return report, err
		}
	}

	return report, nil
}

func (c *Crawler) extractFile(ctx context.Context, root, rel string) (*extractor.Module, error) {
	src, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", rel, err)
	}
	return c.extractor.Extract(ctx, filepath.ToSlash(rel), src)
}
