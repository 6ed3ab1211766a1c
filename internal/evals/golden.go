package evals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/askfit/internal/pipeline"
)

// traceEntry is one case in a golden SQL trace.
type traceEntry struct {
	Description  string `json:"description"`
	Question     string `json:"question"`
	GeneratedSQL string `json:"generated_sql"`
	State        string `json:"state"`
	ErrorKind    string `json:"error_kind,omitempty"`
}

// traceSnapshot captures the generated SQL for every case of a suite.
// Tokens and durations are deliberately excluded so the snapshot stays
// byte-stable across runs.
type traceSnapshot struct {
	SuiteName string       `json:"suite_name"`
	Trace     []traceEntry `json:"trace"`
}

// RunWithGolden runs a suite through the pipeline and compares the
// generated-SQL trace against testdata/golden/{suite.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/evals -update
func RunWithGolden(t *testing.T, p *pipeline.Pipeline, suite *Suite) error {
	t.Helper()

	snapshot := traceSnapshot{SuiteName: suite.Name, Trace: []traceEntry{}}
	for _, c := range suite.Cases {
		outcome := p.Run(context.Background(), c.Question)
		entry := traceEntry{
			Description:  c.Description,
			Question:     outcome.Question,
			GeneratedSQL: outcome.Statement,
			State:        string(outcome.State),
		}
		if outcome.Err != nil {
			entry.ErrorKind = string(outcome.Err.Kind)
		}
		snapshot.Trace = append(snapshot.Trace, entry)
	}

	// SetEscapeHTML(false) keeps < and > readable in the golden files.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("marshal trace snapshot: %w", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, suite.Name, buf.Bytes())

	return nil
}
