package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"pydocod/internal/config"
	"pydocod/internal/extractor"
	"pydocod/internal/generator"
	"pydocod/internal/storage"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(dir, "docs")
	cfg.Output.DB = filepath.Join(dir, "pydocod.db")

	ext, err := extractor.NewExtractor("python")
	require.NoError(t, err)
	store, err := storage.NewSQLiteStore(cfg.Output.DB)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &app{
		cfg:       cfg,
		logger:    logger,
		extractor: ext,
		generator: generator.NewMarkdownGenerator(logger),
		store:     store,
	}
}

func TestHandleEvent_RemovedDirectoryForgetsModules(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	root := t.TempDir()

	for _, p := range []string{"pkg/a.py", "pkg/sub/b.py", "pkgx/c.py", "d.py"} {
		m := &extractor.Module{Path: p, Language: "python", ContentHash: "h"}
		require.NoError(t, a.store.SaveModule(ctx, m))
		require.NoError(t, a.generator.WriteModule(a.cfg.Output.Dir, m))
	}

	a.handleEvent(ctx, nil, nil, root, fsnotify.Event{Name: filepath.Join(root, "pkg"), Op: fsnotify.Remove})
	assert.Equal(t, []string{"d.py", "pkgx/c.py"}, storedPaths(t, a.cfg.Output.DB))
	assert.NoFileExists(t, filepath.Join(a.cfg.Output.Dir, "pkg", "sub", "b.py.md"))
	assert.FileExists(t, filepath.Join(a.cfg.Output.Dir, "pkgx", "c.py.md"))

	a.handleEvent(ctx, nil, nil, root, fsnotify.Event{Name: filepath.Join(root, "d.py"), Op: fsnotify.Rename})
	assert.Equal(t, []string{"pkgx/c.py"}, storedPaths(t, a.cfg.Output.DB))
}

func TestHandleEvent_WriteExtractsAndRenders(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	root := t.TempDir()

	path := filepath.Join(root, "m.py")
	require.NoError(t, os.WriteFile(path, []byte("def m(x: int):\n    \"\"\"Does m.\"\"\"\n"), 0644))

	a.handleEvent(ctx, nil, nil, root, fsnotify.Event{Name: path, Op: fsnotify.Write})

	assert.Equal(t, []string{"m.py"}, storedPaths(t, a.cfg.Output.DB))
	page, err := os.ReadFile(filepath.Join(a.cfg.Output.Dir, "m.py.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "## Does m.")
}
