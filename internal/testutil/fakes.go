// Package testutil provides deterministic fakes for the external
// boundaries, so the pipeline, server, and eval tests run without a live
// generation service or store.
package testutil

import (
	"context"
	"sync"

	"github.com/roach88/askfit/internal/execute"
	"github.com/roach88/askfit/internal/grammar"
)

// CannedGenerator returns a fixed candidate (or error) for every request
// and counts calls.
//
// Thread-safety: safe for concurrent use via internal mutex.
type CannedGenerator struct {
	mu        sync.Mutex
	SQL       string
	Err       error
	CallCount int
	Questions []string
}

// Generate implements generate.Generator.
func (g *CannedGenerator) Generate(ctx context.Context, question string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CallCount++
	g.Questions = append(g.Questions, question)
	if g.Err != nil {
		return "", g.Err
	}
	return g.SQL, nil
}

// Calls returns how many times Generate ran.
func (g *CannedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.CallCount
}

// ScriptedGenerator maps questions to candidates, for multi-case runs.
// Unknown questions return Fallback.
type ScriptedGenerator struct {
	mu       sync.Mutex
	Script   map[string]string
	Fallback string
}

// Generate implements generate.Generator.
func (g *ScriptedGenerator) Generate(ctx context.Context, question string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sql, ok := g.Script[question]; ok {
		return sql, nil
	}
	return g.Fallback, nil
}

// RecordingExecutor returns fixed rows (or an error) and records every
// statement it was asked to execute. The record is how tests observe the
// never-execute-unvalidated property: zero entries means zero store calls.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingExecutor struct {
	mu       sync.Mutex
	Results  *execute.ResultSet
	Err      error
	Executed []string
}

// Execute implements execute.Executor.
func (e *RecordingExecutor) Execute(ctx context.Context, stmt grammar.Statement) (*execute.ResultSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Executed = append(e.Executed, stmt.Text())
	if e.Err != nil {
		return nil, e.Err
	}
	if e.Results != nil {
		return e.Results, nil
	}
	return &execute.ResultSet{Columns: []string{}, Rows: [][]any{}}, nil
}

// Statements returns a copy of the executed statement texts.
func (e *RecordingExecutor) Statements() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.Executed))
	copy(out, e.Executed)
	return out
}

// FixedTokens returns predetermined request tokens in order, then wraps
// around. Deterministic tokens keep golden outputs stable.
type FixedTokens struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokens creates a generator cycling through tokens.
func NewFixedTokens(tokens ...string) *FixedTokens {
	if len(tokens) == 0 {
		tokens = []string{"test-request-token"}
	}
	return &FixedTokens{tokens: tokens}
}

// Generate implements pipeline.TokenGenerator.
func (f *FixedTokens) Generate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := f.tokens[f.idx%len(f.tokens)]
	f.idx++
	return tok
}
