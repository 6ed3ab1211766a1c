package evals

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/roach88/askfit/internal/pipeline"
)

// AssertionResult is one evaluated assertion.
type AssertionResult struct {
	Type    string `json:"type"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// CaseResult is one evaluated case.
type CaseResult struct {
	Description      string            `json:"description"`
	Question         string            `json:"question"`
	GeneratedSQL     string            `json:"generated_sql"`
	Passed           bool              `json:"passed"`
	Assertions       []AssertionResult `json:"assertions"`
	PassedAssertions int               `json:"passed_assertions"`
	TotalAssertions  int               `json:"total_assertions"`
}

// SuiteResult aggregates one suite.
type SuiteResult struct {
	SuiteName string       `json:"suite_name"`
	Passed    int          `json:"passed"`
	Total     int          `json:"total"`
	PassRate  float64      `json:"pass_rate"`
	Results   []CaseResult `json:"results"`
}

// Report aggregates a whole run.
type Report struct {
	Timestamp string                  `json:"timestamp"`
	Summary   Summary                 `json:"summary"`
	BySuite   map[string]SuiteSummary `json:"by_suite"`
	Suites    []SuiteResult           `json:"suites"`
}

// Summary is the overall pass count.
type Summary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	PassRate float64 `json:"pass_rate"`
}

// SuiteSummary is the per-suite pass count.
type SuiteSummary struct {
	Passed   int     `json:"passed"`
	Total    int     `json:"total"`
	PassRate float64 `json:"pass_rate"`
}

// Runner drives suites through a pipeline.
type Runner struct {
	pipeline *pipeline.Pipeline
}

// NewRunner builds a runner around a pipeline (real or fake boundaries).
func NewRunner(p *pipeline.Pipeline) *Runner {
	return &Runner{pipeline: p}
}

// RunCase evaluates one case.
func (r *Runner) RunCase(ctx context.Context, c Case) CaseResult {
	outcome := r.pipeline.Run(ctx, c.Question)

	result := CaseResult{
		Description:     c.Description,
		Question:        c.Question,
		GeneratedSQL:    outcome.Statement,
		TotalAssertions: len(c.Assertions),
	}

	for _, spec := range c.Assertions {
		passed, message := Evaluate(outcome, spec)
		result.Assertions = append(result.Assertions, AssertionResult{
			Type:    spec.Type,
			Passed:  passed,
			Message: message,
		})
		if passed {
			result.PassedAssertions++
		}
	}

	result.Passed = result.PassedAssertions == result.TotalAssertions
	return result
}

// RunSuite evaluates all cases of one suite.
func (r *Runner) RunSuite(ctx context.Context, suite *Suite) SuiteResult {
	sr := SuiteResult{SuiteName: suite.Name, Total: len(suite.Cases)}

	for _, c := range suite.Cases {
		cr := r.RunCase(ctx, c)
		sr.Results = append(sr.Results, cr)
		if cr.Passed {
			sr.Passed++
		}
	}

	if sr.Total > 0 {
		sr.PassRate = float64(sr.Passed) / float64(sr.Total)
	}
	return sr
}

// RunAll evaluates suites and builds the report.
func (r *Runner) RunAll(ctx context.Context, suites []*Suite) *Report {
	report := &Report{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		BySuite:   map[string]SuiteSummary{},
	}

	for _, suite := range suites {
		sr := r.RunSuite(ctx, suite)
		report.Suites = append(report.Suites, sr)
		report.BySuite[sr.SuiteName] = SuiteSummary{
			Passed:   sr.Passed,
			Total:    sr.Total,
			PassRate: sr.PassRate,
		}
		report.Summary.Total += sr.Total
		report.Summary.Passed += sr.Passed
	}

	report.Summary.Failed = report.Summary.Total - report.Summary.Passed
	if report.Summary.Total > 0 {
		report.Summary.PassRate = float64(report.Summary.Passed) / float64(report.Summary.Total)
	}
	return report
}

// WriteJSON writes the report to path, creating parent directories.
func (r *Report) WriteJSON(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// LoadSuiteDir loads every *.yaml suite in a directory, sorted by name
// for deterministic run order.
func LoadSuiteDir(dir string) ([]*Suite, error) {
	pattern := filepath.Join(dir, "*.yaml")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob suites: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no suite files match %s", pattern)
	}
	sort.Strings(paths)

	suites := make([]*Suite, 0, len(paths))
	for _, path := range paths {
		suite, err := LoadSuite(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		suites = append(suites, suite)
	}
	return suites, nil
}
