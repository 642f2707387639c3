package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pydocod/internal/analysis"
	"pydocod/internal/extractor"
	"pydocod/internal/generator"
	"pydocod/internal/git"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var baseRef string

func init() {
	updateCmd.Flags().StringVar(&baseRef, "base", "HEAD", "Git ref to diff the working tree against")
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-extract and re-render Python files changed since a git ref",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		root, err := filepath.Abs(a.cfg.Project.Root)
		if err != nil {
			return err
		}
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			root = resolved
		}

		// 1. Get Local Git Changes
		repoRoot, err := git.RepoRoot(ctx, root)
		if err != nil {
			return err
		}
		diff, err := git.GetChangedFiles(ctx, root, baseRef)
		if err != nil {
			return err
		}

		changes, renamed := planChanges(root, repoRoot, diff)
		if len(changes) == 0 && len(renamed) == 0 {
			a.logger.Info("No changes detected")
			return nil
		}
		a.logger.WithField("files", len(changes)+len(renamed)).Info("Detected changed files")

		// Sources of renames no longer exist under their old path.
		for _, old := range renamed {
			if err := a.forget(ctx, old); err != nil {
				return err
			}
			a.logger.WithField("file", old).Info("Module removed after rename")
		}

		// 2. Remove deleted files, collect the rest for extraction
		var files []string
		for _, change := range changes {
			if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(change.Path))); change.Deleted || os.IsNotExist(err) {
				if err := a.forget(ctx, change.Path); err != nil {
					return err
				}
				a.logger.WithField("file", change.Path).Info("Module removed")
				continue
			}
			files = append(files, filepath.FromSlash(change.Path))
		}

		// 3. Re-extract and persist
		modules := make(map[string]*extractor.Module)
		var updated []*extractor.Module
		_, err = a.crawler().ScanFiles(ctx, root, files, func(m *extractor.Module) error {
			if err := a.store.SaveModule(ctx, m); err != nil {
				return fmt.Errorf("failed to save %s: %w", m.Path, err)
			}
			modules[m.Path] = m
			updated = append(updated, m)
			return nil
		})
		if err != nil {
			return err
		}

		// 4. Impact Analysis
		report := analysis.NewAnalyzer(modules).AnalyzeImpact(changes)
		for _, file := range report.Files {
			for _, fn := range file.Functions {
				a.logger.WithFields(logrus.Fields{
					"file":     file.Path,
					"function": fn.Name,
					"line":     fn.StartLine,
				}).Info("Function affected")
			}
		}
		a.logger.WithField("functions", report.Count()).Info("Impact analysis complete")

		// 5. Regenerate Documentation for the updated modules
		pipeline := generator.NewPipelineReport("update", a.cfg.Output.Dir)
		return a.generator.GenerateDocsWithReport(ctx, a.cfg.Output.Dir, updated, pipeline)
	},
}

// planChanges maps repository-relative diff entries onto project-relative
// Python changes. The second result lists the old paths of renamed Python
// files, which must be forgotten even when the new path is not Python.
func planChanges(root, repoRoot string, diff []git.ChangedFile) ([]git.ChangedFile, []string) {
	project := func(p string) (string, bool) {
		return relPath(root, filepath.Join(repoRoot, filepath.FromSlash(p)))
	}

	var (
		changes []git.ChangedFile
		renamed []string
	)
	for _, change := range git.FilterExt(diff, ".py") {
		if strings.HasSuffix(change.OldPath, ".py") && change.OldPath != change.Path {
			if old, ok := project(change.OldPath); ok {
				renamed = append(renamed, old)
			}
		}
		if !strings.HasSuffix(change.Path, ".py") {
			continue
		}
		rel, ok := project(change.Path)
		if !ok {
			continue
		}
		change.Path = rel
		change.OldPath = ""
		changes = append(changes, change)
	}
	return changes, renamed
}
