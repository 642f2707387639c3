package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pydocod/internal/docstring"
	"pydocod/internal/extractor"

	"github.com/sirupsen/logrus"
)

// MarkdownGenerator produces documentation in Markdown format.
type MarkdownGenerator struct {
	logger *logrus.Logger
}

func NewMarkdownGenerator(logger *logrus.Logger) *MarkdownGenerator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MarkdownGenerator{logger: logger}
}

// DocPath returns where the page of a module is written below outputDir.
func DocPath(outputDir, modulePath string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(modulePath))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("module path %s escapes the output directory", modulePath)
	}
	return filepath.Join(outputDir, rel+".md"), nil
}

// GenerateDocs writes one page per module and a pipeline_report.json.
func (g *MarkdownGenerator) GenerateDocs(ctx context.Context, outputDir string, modules []*extractor.Module) error {
	report := NewPipelineReport("generate", outputDir)
	return g.GenerateDocsWithReport(ctx, outputDir, modules, report)
}

// GenerateDocsWithReport is GenerateDocs with a caller-owned report, saved on return.
func (g *MarkdownGenerator) GenerateDocsWithReport(ctx context.Context, outputDir string, modules []*extractor.Module, report *PipelineReport) (retErr error) {
	if report == nil {
		report = NewPipelineReport("generate", outputDir)
	}
	reportPath := filepath.Join(outputDir, "pipeline_report.json")
	defer func() {
		if retErr != nil {
			report.AddSignal("generate_failed", "render", "critical", "Documentation generation failed.", 1)
		}
		if err := report.Save(reportPath); err != nil {
			g.logger.WithError(err).Warn("Failed to save pipeline report")
		}
	}()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	stage := report.BeginStage("render")
	written := 0
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			report.EndStage(stage, "canceled", map[string]float64{"pages": float64(written)}, nil, err)
			return err
		}
		if err := g.WriteModule(outputDir, m); err != nil {
			report.EndStage(stage, "error", map[string]float64{"pages": float64(written)}, nil, err)
			return err
		}
		report.AddModule(m)
		written++
	}
	report.EndStage(stage, "ok", map[string]float64{"pages": float64(written)}, nil, nil)

	g.logger.WithFields(logrus.Fields{"pages": written, "dir": outputDir}).Info("Documentation generated")
	return nil
}

// WriteModule renders m and writes it to its page below outputDir.
func (g *MarkdownGenerator) WriteModule(outputDir string, m *extractor.Module) error {
	path, err := DocPath(outputDir, m.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(RenderModule(m)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	g.logger.WithField("file", path).Debug("Page written")
	return nil
}

// RemoveModule deletes the page of a module that no longer exists.
func (g *MarkdownGenerator) RemoveModule(outputDir, modulePath string) error {
	path, err := DocPath(outputDir, modulePath)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RenderModule renders every function of m in source order.
func RenderModule(m *extractor.Module) string {
	var sb strings.Builder
	for i, fn := range m.Functions {
		if i > 0 {
			sb.WriteString("\n")
		}
		renderFunction(&sb, fn)
	}
	return sb.String()
}

func renderFunction(sb *strings.Builder, fn extractor.Function) {
	doc := fn.Docstring

	fmt.Fprintf(sb, "# %s\n\n", fn.Name)
	if doc.Title != "" {
		fmt.Fprintf(sb, "## %s\n\n", doc.Title)
	}

	// Body parts carry the description with code snippets separated out.
	if len(doc.Body) > 0 {
		for _, part := range doc.Body {
			if part.IsCode() {
				fmt.Fprintf(sb, "```python\n%s\n```\n\n", part.Content)
			} else {
				fmt.Fprintf(sb, "%s\n\n", part.Content)
			}
		}
	} else if doc.Description != "" {
		fmt.Fprintf(sb, "%s\n\n", doc.Description)
	}

	if len(fn.Arguments) > 0 {
		sb.WriteString("## Arguments\n\n")
		sb.WriteString("| Name | Type | Default | Description |\n")
		sb.WriteString("|------|------|---------|-------------|\n")
		for _, a := range fn.Arguments {
			fmt.Fprintf(sb, "| `%s` | %s | %s | %s |\n",
				a.Name, codeCell(a.Type), codeCell(a.Default), textCell(a.Description))
		}
		sb.WriteString("\n")
	}

	if returns := returnsText(fn.ReturnType, doc.Returns); returns != "" {
		fmt.Fprintf(sb, "## Returns\n\n%s\n\n", returns)
	}

	if len(doc.Raises) > 0 {
		sb.WriteString("## Raises\n\n")
		for _, r := range doc.Raises {
			renderRaises(sb, r)
		}
		sb.WriteString("\n")
	}
}

func renderRaises(sb *strings.Builder, r docstring.Raises) {
	if r.Description == nil || *r.Description == "" {
		fmt.Fprintf(sb, "- **%s**\n", r.Exception)
		return
	}
	fmt.Fprintf(sb, "- **%s**: %s\n", r.Exception, *r.Description)
}

func returnsText(annotation *string, text string) string {
	switch {
	case annotation != nil && text != "":
		return fmt.Sprintf("`%s`: %s", *annotation, text)
	case annotation != nil:
		return fmt.Sprintf("`%s`", *annotation)
	default:
		return text
	}
}

func codeCell(v *string) string {
	if v == nil {
		return ""
	}
	return "`" + escapeCell(*v) + "`"
}

func textCell(v *string) string {
	if v == nil {
		return ""
	}
	return escapeCell(*v)
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

func escapeCell(s string) string {
	return cellReplacer.Replace(s)
}
