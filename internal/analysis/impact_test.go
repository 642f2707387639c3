package analysis

import (
	"testing"

	"pydocod/internal/extractor"
	"pydocod/internal/git"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModule() *extractor.Module {
	return &extractor.Module{
		Path: "pkg/mod.py",
		Functions: []extractor.Function{
			{Name: "a", StartLine: 1, EndLine: 5},
			{Name: "b", StartLine: 7, EndLine: 12},
			{Name: "c", StartLine: 14, EndLine: 14},
		},
	}
}

func names(fns []extractor.Function) []string {
	out := []string{}
	for _, fn := range fns {
		out = append(out, fn.Name)
	}
	return out
}

func TestAffectedFunctions(t *testing.T) {
	m := testModule()

	tests := []struct {
		name  string
		lines []int
		want  []string
	}{
		{"none", nil, []string{}},
		{"between functions", []int{6, 13}, []string{}},
		{"boundaries", []int{5, 14}, []string{"a", "c"}},
		{"source order and no duplicates", []int{10, 2, 8, 3}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(AffectedFunctions(m, tt.lines)))
		})
	}
}

func TestAffectedFunctions_NilModule(t *testing.T) {
	assert.Empty(t, AffectedFunctions(nil, []int{1}))
}

func TestAnalyzer_AnalyzeImpact(t *testing.T) {
	a := NewAnalyzer(map[string]*extractor.Module{"pkg/mod.py": testModule()})

	report := a.AnalyzeImpact([]git.ChangedFile{
		{Path: "pkg/mod.py", ChangedLines: []int{9}},
		{Path: "unknown.py", ChangedLines: []int{1}},
		{Path: "old.py", Deleted: true},
	})

	require.Len(t, report.Files, 2)
	assert.Equal(t, []string{"b"}, names(report.Files[0].Functions))
	assert.Equal(t, "old.py", report.Files[1].Path)
	assert.True(t, report.Files[1].Deleted)
	assert.Equal(t, 1, report.Count())
}
