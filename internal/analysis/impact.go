package analysis

import (
	"pydocod/internal/extractor"
	"pydocod/internal/git"
)

// FileImpact lists the functions of one changed file whose line range
// overlaps the changed lines.
type FileImpact struct {
	Path      string
	Deleted   bool
	Functions []extractor.Function
}

// ImpactReport summarizes the functions affected by changes.
type ImpactReport struct {
	Files []FileImpact
}

// Count returns the number of affected functions across all files.
func (r *ImpactReport) Count() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Functions)
	}
	return n
}

// Analyzer maps diff hunks onto extracted modules.
type Analyzer struct {
	modules map[string]*extractor.Module
}

// NewAnalyzer creates a new analyzer over modules keyed by the path used in
// the changes, usually repository relative.
func NewAnalyzer(modules map[string]*extractor.Module) *Analyzer {
	return &Analyzer{modules: modules}
}

// AnalyzeImpact identifies which functions are affected by the given changes.
// Deleted files are reported without functions; files without a module are skipped.
func (a *Analyzer) AnalyzeImpact(changes []git.ChangedFile) *ImpactReport {
	report := &ImpactReport{Files: []FileImpact{}}

	for _, change := range changes {
		if change.Deleted {
			report.Files = append(report.Files, FileImpact{Path: change.Path, Deleted: true})
			continue
		}
		module, ok := a.modules[change.Path]
		if !ok {
			continue
		}
		report.Files = append(report.Files, FileImpact{
			Path:      change.Path,
			Functions: AffectedFunctions(module, change.ChangedLines),
		})
	}

	return report
}

// AffectedFunctions returns the functions of module whose [StartLine, EndLine]
// contains any changed line, in source order and without duplicates.
func AffectedFunctions(module *extractor.Module, changedLines []int) []extractor.Function {
	out := []extractor.Function{}
	if module == nil {
		return out
	}
	for _, fn := range module.Functions {
		if isAffected(fn, changedLines) {
			out = append(out, fn)
		}
	}
	return out
}

func isAffected(fn extractor.Function, lines []int) bool {
	// Simple overlap check
	for _, line := range lines {
		if line >= fn.StartLine && line <= fn.EndLine {
			return true
		}
	}
	return false
}
