// Package pipeline sequences one request through generation, validation,
// and execution, and classifies failures.
//
// The pipeline holds no per-request state between calls: every Run is
// independent, requests may be processed concurrently with no ordering
// guarantee, and the only shared state is the immutable grammar plus the
// long-lived generator and executor handles. No lock is held across a
// network call.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/askfit/internal/execute"
	"github.com/roach88/askfit/internal/generate"
	"github.com/roach88/askfit/internal/grammar"
)

// TokenGenerator mints request tokens.
//
// Production uses UUIDv7Generator; tests substitute a fixed sequence for
// deterministic outcomes.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator mints time-sortable UUIDv7 request tokens. Stateless
// and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// AuditSink receives terminal outcomes. Implementations must tolerate
// concurrent calls. A nil sink disables auditing.
type AuditSink interface {
	Record(ctx context.Context, outcome *Outcome)
}

// Outcome is the terminal artifact of one request. Created per request,
// never shared across requests, discarded after being returned.
type Outcome struct {
	// Token identifies the request (UUIDv7).
	Token string

	// Question is the NFC-normalized natural-language input.
	Question string

	// Statement is the generated SQL once validation accepted it; empty
	// for requests failing before or at validation.
	Statement string

	// Results holds the executed rows; nil unless State is Completed.
	Results *execute.ResultSet

	// State is the terminal state, Completed or Failed.
	State State

	// Err is the classified failure when State is Failed.
	Err *RequestError

	// Duration covers Received through the terminal state.
	Duration time.Duration
}

// Pipeline drives the request state machine. One instance serves all
// requests concurrently.
type Pipeline struct {
	spec      *grammar.Spec
	generator generate.Generator
	executor  execute.Executor
	tokens    TokenGenerator
	audit     AuditSink
	logger    *slog.Logger
}

// New wires a pipeline. spec, generator, and executor are required;
// tokens defaults to UUIDv7Generator and audit may be nil.
func New(spec *grammar.Spec, gen generate.Generator, exec execute.Executor, tokens TokenGenerator, audit AuditSink, logger *slog.Logger) *Pipeline {
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		spec:      spec,
		generator: gen,
		executor:  exec,
		tokens:    tokens,
		audit:     audit,
		logger:    logger,
	}
}

// Run walks one request through the state machine and returns its
// terminal outcome. The error in the outcome is also returned for
// callers that prefer the error path; both describe the same failure.
func (p *Pipeline) Run(ctx context.Context, question string) *Outcome {
	start := time.Now()
	outcome := &Outcome{
		Token:    p.tokens.Generate(),
		Question: generate.NormalizeQuestion(question),
		State:    StateReceived,
	}
	logger := p.logger.With("request", outcome.Token)

	defer func() {
		outcome.Duration = time.Since(start)
		if p.audit != nil {
			p.audit.Record(ctx, outcome)
		}
	}()

	// Received → Generating
	p.transition(outcome, StateGenerating)
	logger.Info("generating statement", "question", outcome.Question)

	candidate, err := p.generator.Generate(ctx, outcome.Question)
	if err != nil {
		p.fail(outcome, KindGenerationFailed, err)
		logger.Warn("generation failed", "error", err)
		return outcome
	}

	// Generating → Validating
	p.transition(outcome, StateValidating)

	stmt, rej := p.spec.Admit(candidate)
	if rej != nil {
		// The rejected candidate must never reach the executor. Failing
		// here ends the state machine before any store call exists.
		p.fail(outcome, KindGrammarRejected, rej)
		logger.Warn("candidate rejected by grammar",
			"candidate", candidate,
			"reason", rej.Reason,
			"offset", rej.Offset,
		)
		return outcome
	}
	outcome.Statement = stmt.Text()
	logger.Info("statement validated", "sql", outcome.Statement)

	// Validating → Executing
	p.transition(outcome, StateExecuting)

	results, err := p.executor.Execute(ctx, stmt)
	if err != nil {
		p.fail(outcome, KindExecutionFailed, err)
		logger.Error("execution failed", "sql", outcome.Statement, "error", err)
		return outcome
	}

	// Executing → Completed
	outcome.Results = results
	p.transition(outcome, StateCompleted)
	logger.Info("request completed", "rows", results.RowCount)
	return outcome
}

// transition moves the outcome along a legal state machine edge. An
// illegal edge is a pipeline bug and panics rather than corrupting the
// outcome.
func (p *Pipeline) transition(outcome *Outcome, to State) {
	if !allowedTransition(outcome.State, to) {
		panic("pipeline: illegal transition " + string(outcome.State) + " -> " + string(to))
	}
	outcome.State = to
}

// fail ends the state machine in Failed with a classified error.
func (p *Pipeline) fail(outcome *Outcome, kind ErrorKind, err error) {
	p.transition(outcome, StateFailed)
	outcome.Err = &RequestError{Kind: kind, Token: outcome.Token, Err: err}
}
