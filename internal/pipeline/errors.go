package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies terminal request failures by origin.
type ErrorKind string

const (
	// KindGenerationFailed: the generation service was unreachable, timed
	// out, or returned no/empty candidate.
	KindGenerationFailed ErrorKind = "GENERATION_FAILED"

	// KindGrammarRejected: the candidate failed grammar validation. The
	// rejection reason and offset are carried verbatim; the candidate
	// never reaches the executor.
	KindGrammarRejected ErrorKind = "GRAMMAR_REJECTED"

	// KindExecutionFailed: the store rejected the statement or was
	// unreachable. Since the statement passed the grammar, this usually
	// signals a grammar/store mismatch rather than a bad request.
	KindExecutionFailed ErrorKind = "EXECUTION_FAILED"
)

// RequestError is a classified terminal failure of one request.
//
// The underlying reason is surfaced verbatim to the caller; nothing is
// swallowed or downgraded. In particular a grammar rejection is never
// reported as an empty result set.
type RequestError struct {
	// Kind is the failure classification.
	Kind ErrorKind

	// Token identifies the request.
	Token string

	// Err is the underlying failure (generate.Failure, grammar.Reject,
	// or execute.Failure).
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v (request=%s)", e.Kind, e.Err, e.Token)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure classification from an error chain.
// Returns "" if the error is not a RequestError.
func KindOf(err error) ErrorKind {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsGrammarRejected reports whether the error chain carries a grammar
// rejection.
func IsGrammarRejected(err error) bool {
	return KindOf(err) == KindGrammarRejected
}
