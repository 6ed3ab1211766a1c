// Package generate drives an external text-generation service with the
// SQL grammar attached as a hard output constraint.
//
// This is the only package that calls the generation service. One call is
// made per request, parallel sampling is disabled so at most one
// candidate can exist, and the candidate is extracted from the structured
// response by item type rather than position. The constraint is
// cooperative, not guaranteed: the grammar package re-validates every
// candidate independently.
package generate

import (
	"context"
	"fmt"
)

// Generator produces one candidate SQL statement for one natural-language
// question.
//
// Implementations: OpenAIGenerator (production), testutil fakes (tests).
type Generator interface {
	// Generate calls the generation service exactly once and returns the
	// single candidate production, unvalidated. A timeout, transport
	// failure, missing constrained-output item, or empty candidate is a
	// *Failure; there is no retry at this layer.
	Generate(ctx context.Context, question string) (string, error)
}

// Failure reports that the generation service produced no usable
// candidate.
type Failure struct {
	// Reason is a human-readable description of what went wrong.
	Reason string

	// Err is the underlying transport or API error, if any.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", f.Reason, f.Err)
	}
	return fmt.Sprintf("generation failed: %s", f.Reason)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}

// failf builds a *Failure with a formatted reason.
func failf(err error, format string, args ...any) *Failure {
	return &Failure{Reason: fmt.Sprintf(format, args...), Err: err}
}
