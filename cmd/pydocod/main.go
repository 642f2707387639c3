package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"pydocod/internal/config"
	"pydocod/internal/crawler"
	"pydocod/internal/extractor"
	"pydocod/internal/generator"
	"pydocod/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "pydocod",
		Short:         "Markdown documentation from Python docstrings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath string
	dbPath     string
	logLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pydocod.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the SQLite database (overrides output.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides log.level)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(watchCmd)
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// app holds the components shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	extractor *extractor.Extractor
	generator *generator.MarkdownGenerator
	store     *storage.SQLiteStore
}

// newApp loads the config, applies flag overrides and builds the components.
// The store is opened only when withStore is set.
func newApp(withStore bool) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Output.DB = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.Log.Level)

	ext, err := extractor.NewExtractor("python",
		extractor.WithWorkers(cfg.Extract.Workers),
		extractor.WithCacheSize(cfg.Extract.CacheSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		extractor: ext,
		generator: generator.NewMarkdownGenerator(logger),
	}

	if withStore {
		if err := os.MkdirAll(filepath.Dir(cfg.Output.DB), 0755); err != nil {
			return nil, err
		}
		store, err := storage.NewSQLiteStore(cfg.Output.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.store = store
	}
	return a, nil
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *app) crawler() *crawler.Crawler {
	opts := []crawler.Option{crawler.WithWorkers(a.cfg.Extract.Workers)}
	if len(a.cfg.Project.Ignore) > 0 {
		opts = append(opts, crawler.WithIgnored(a.cfg.Project.Ignore...))
	}
	return crawler.NewCrawler(a.extractor, a.logger, opts...)
}

// projectRoot returns the first argument or the configured root.
func (a *app) projectRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.Project.Root
}

// relPath returns path relative to root in slash form, or false when path
// lies outside root.
func relPath(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// persist saves m unless the stored content hash is unchanged.
func (a *app) persist(ctx context.Context, m *extractor.Module) (bool, error) {
	hash, err := a.store.ModuleHash(ctx, m.Path)
	if err == nil && hash == m.ContentHash {
		return false, nil
	}
	if err := a.store.SaveModule(ctx, m); err != nil {
		return false, err
	}
	return true, nil
}

// forget removes a module and its page.
func (a *app) forget(ctx context.Context, path string) error {
	if err := a.store.DeleteModule(ctx, path); err != nil {
		return err
	}
	return a.generator.RemoveModule(a.cfg.Output.Dir, path)
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Extract every Python file under the project root into the database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		root := a.projectRoot(args)
		a.logger.WithField("root", root).Info("Scanning project")

		saved, unchanged, functions := 0, 0, 0
		report, err := a.crawler().ScanProject(ctx, root, func(m *extractor.Module) error {
			functions += len(m.Functions)
			changed, err := a.persist(ctx, m)
			if err != nil {
				return fmt.Errorf("failed to save %s: %w", m.Path, err)
			}
			if changed {
				saved++
			} else {
				unchanged++
			}
			return nil
		})
		if err != nil {
			return err
		}

		// Remove modules whose file vanished since the last scan.
		seen := make(map[string]bool, len(report.Files))
		for _, f := range report.Files {
			seen[filepath.ToSlash(f)] = true
		}
		stored, err := a.store.ListModules(ctx)
		if err != nil {
			return err
		}
		removed := 0
		for _, ms := range stored {
			if seen[ms.Path] {
				continue
			}
			if err := a.forget(ctx, ms.Path); err != nil {
				return err
			}
			removed++
		}

		a.logger.WithFields(logrus.Fields{
			"files":     len(report.Files),
			"failed":    len(report.Failed),
			"saved":     saved,
			"unchanged": unchanged,
			"removed":   removed,
			"functions": functions,
			"db":        a.cfg.Output.DB,
		}).Info("Scan complete")
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render every stored module to Markdown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		stored, err := a.store.ListModules(ctx)
		if err != nil {
			return err
		}
		modules := make([]*extractor.Module, 0, len(stored))
		for _, ms := range stored {
			m, err := a.store.LoadModule(ctx, ms.Path)
			if err != nil {
				return err
			}
			modules = append(modules, m)
		}

		return a.generator.GenerateDocs(ctx, a.cfg.Output.Dir, modules)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <file.py>",
	Short: "Extract one file and print its Markdown to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}

		m, err := a.extractor.ExtractFromFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), generator.RenderModule(m))
		return err
	},
}
