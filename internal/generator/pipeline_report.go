package generator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pydocod/internal/extractor"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const reportSchemaURL = "pipeline_report.schema.json"

//go:embed pipeline_report.schema.json
var reportSchemaJSON []byte

var (
	reportSchemaOnce sync.Once
	reportSchema     *jsonschema.Schema
	reportSchemaErr  error
)

type ReportSignal struct {
	Code     string  `json:"code"`
	Stage    string  `json:"stage"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// ModuleMetric describes the documentation coverage of one module.
type ModuleMetric struct {
	Path               string `json:"path"`
	Functions          int    `json:"functions"`
	Documented         int    `json:"documented"`
	UnmatchedArguments int    `json:"unmatched_arguments"`
}

type ReportSummary struct {
	StageCount        int            `json:"stage_count"`
	ModuleCount       int            `json:"module_count"`
	FunctionCount     int            `json:"function_count"`
	FailedStages      int            `json:"failed_stages"`
	Coverage          float64        `json:"coverage"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

type PipelineReport struct {
	Version     string         `json:"version"`
	Mode        string         `json:"mode"`
	GeneratedAt string         `json:"generated_at"`
	OutputDir   string         `json:"output_dir"`
	Stages      []StageMetric  `json:"stages"`
	Modules     []ModuleMetric `json:"modules,omitempty"`
	Signals     []ReportSignal `json:"signals,omitempty"`
	Summary     ReportSummary  `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewPipelineReport(mode, outputDir string) *PipelineReport {
	return &PipelineReport{
		Version:     "v1",
		Mode:        mode,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		OutputDir:   outputDir,
		Stages:      []StageMetric{},
		Modules:     []ModuleMetric{},
		Signals:     []ReportSignal{},
	}
}

func (r *PipelineReport) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

func (r *PipelineReport) EndStage(h StageHandle, status string, counters map[string]float64, notes []string, err error) {
	if r == nil || strings.TrimSpace(h.name) == "" {
		return
	}
	if strings.TrimSpace(status) == "" {
		status = "ok"
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     status,
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
		Notes:      cleanNotes(notes),
	}
	if err != nil {
		m.Error = err.Error()
		if status == "ok" {
			m.Status = "error"
		}
	}
	r.Stages = append(r.Stages, m)
}

func (r *PipelineReport) AddSignal(code, stage, severity, message string, value float64) {
	if r == nil {
		return
	}
	s := ReportSignal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
		Value:    value,
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.Signals = append(r.Signals, s)
}

// AddModule records coverage for m and raises signals for functions without
// a docstring or with documented arguments that match no annotated parameter.
func (r *PipelineReport) AddModule(m *extractor.Module) {
	if r == nil || m == nil {
		return
	}
	metric := ModuleMetric{Path: m.Path, Functions: len(m.Functions)}
	for _, fn := range m.Functions {
		if fn.Docstring.IsEmpty() {
			r.AddSignal("missing_docstring", "render", "info",
				fmt.Sprintf("%s:%d %s has no docstring.", m.Path, fn.StartLine, fn.Name), 1)
		} else {
			metric.Documented++
		}
		for _, name := range fn.UnmatchedArguments() {
			metric.UnmatchedArguments++
			r.AddSignal("unmatched_argument", "render", "warning",
				fmt.Sprintf("%s:%d %s documents %q which is not an annotated parameter.", m.Path, fn.StartLine, fn.Name, name), 1)
		}
	}
	r.Modules = append(r.Modules, metric)
}

func (r *PipelineReport) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	severityCount := map[string]int{
		"critical": 0,
		"warning":  0,
		"info":     0,
	}
	sort.SliceStable(r.Signals, func(i, j int) bool {
		pi := signalPriority(r.Signals[i].Severity)
		pj := signalPriority(r.Signals[j].Severity)
		if pi == pj {
			if r.Signals[i].Stage == r.Signals[j].Stage {
				return r.Signals[i].Code < r.Signals[j].Code
			}
			return r.Signals[i].Stage < r.Signals[j].Stage
		}
		return pi > pj
	})
	for _, s := range r.Signals {
		severityCount[s.Severity]++
	}

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	functions, documented := 0, 0
	for _, m := range r.Modules {
		functions += m.Functions
		documented += m.Documented
	}
	coverage := 0.0
	if functions > 0 {
		coverage = float64(documented) / float64(functions)
	}

	r.Summary = ReportSummary{
		StageCount:        len(r.Stages),
		ModuleCount:       len(r.Modules),
		FunctionCount:     functions,
		FailedStages:      failed,
		Coverage:          coverage,
		SignalsBySeverity: severityCount,
	}
}

func (r *PipelineReport) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := ValidateReport(data); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

// ValidateReport checks an encoded report against the embedded JSON schema.
func ValidateReport(data []byte) error {
	schema, err := loadReportSchema()
	if err != nil {
		return fmt.Errorf("failed to compile pipeline report schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to decode pipeline report: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("pipeline report schema validation failed: %w", err)
	}
	return nil
}

func loadReportSchema() (*jsonschema.Schema, error) {
	reportSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(reportSchemaURL, bytes.NewReader(reportSchemaJSON)); err != nil {
			reportSchemaErr = err
			return
		}
		reportSchema, reportSchemaErr = compiler.Compile(reportSchemaURL)
	})
	return reportSchema, reportSchemaErr
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanNotes(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func signalPriority(severity string) int {
	switch severity {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}
