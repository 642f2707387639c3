package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pydocod/internal/crawler"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-extract and re-render Python files as they change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		root := a.projectRoot(args)
		cr := a.crawler()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()

		if err := setupWatcher(watcher, cr, root); err != nil {
			return err
		}

		a.logger.WithField("root", root).Info("Watching for changes")
		return watchLoop(ctx, watcher, func(event fsnotify.Event) {
			a.handleEvent(ctx, watcher, cr, root, event)
		}, func(err error) {
			a.logger.WithError(err).Warn("Watcher error")
		})
	},
}

// setupWatcher adds root and every directory below it that is not ignored.
func setupWatcher(watcher *fsnotify.Watcher, cr *crawler.Crawler, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && cr.Ignores(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// watchLoop dispatches events until ctx is done or the watcher closes.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onEvent func(fsnotify.Event), onError func(error)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			onEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onError(err)
		}
	}
}

func (a *app) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, cr *crawler.Crawler, root string, event fsnotify.Event) {
	log := a.logger.WithField("file", event.Name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := setupWatcher(watcher, cr, event.Name); err != nil {
				log.WithError(err).Warn("Failed to watch directory")
			}
			return
		}
	}

	rel, ok := relPath(root, event.Name)
	if !ok {
		return
	}

	// A removed path may be a directory; it is gone, so it cannot be stat'ed.
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		n, err := a.forgetUnder(ctx, rel)
		if err != nil {
			log.WithError(err).Warn("Failed to remove modules")
			return
		}
		if n > 0 {
			log.WithField("modules", n).Info("Modules removed")
		}
		return
	}

	if filepath.Ext(event.Name) != ".py" {
		return
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	src, err := os.ReadFile(event.Name)
	if err != nil {
		log.WithError(err).Warn("Failed to read file")
		return
	}
	m, err := a.extractor.Extract(ctx, rel, src)
	if err != nil {
		// Files are often saved half-written; the next write retries.
		log.WithError(err).Debug("Skipping file")
		return
	}
	changed, err := a.persist(ctx, m)
	if err != nil {
		log.WithError(err).Warn("Failed to save module")
		return
	}
	if !changed {
		return
	}
	if err := a.generator.WriteModule(a.cfg.Output.Dir, m); err != nil {
		log.WithError(err).Warn("Failed to write page")
		return
	}
	log.WithField("functions", len(m.Functions)).Info("Module updated")
}

// forgetUnder forgets the module at rel and every module below it when rel
// is a directory. It returns how many modules were removed.
func (a *app) forgetUnder(ctx context.Context, rel string) (int, error) {
	stored, err := a.store.ListModules(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, ms := range stored {
		if rel != "." && ms.Path != rel && !strings.HasPrefix(ms.Path, rel+"/") {
			continue
		}
		if err := a.forget(ctx, ms.Path); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
