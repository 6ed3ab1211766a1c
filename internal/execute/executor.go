// Package execute submits validated statements to the analytical store
// and returns typed rows.
//
// The executor accepts only grammar.Statement values, which can only be
// minted by the grammar package after acceptance. Submitting unvalidated
// text is therefore a compile-time impossibility for ordinary callers and
// a checked precondition violation for anyone smuggling a zero value.
package execute

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/askfit/internal/grammar"
)

// ErrUnvalidated reports an attempt to execute the zero Statement. This
// is a caller bug (a broken pipeline), not a recoverable request error.
var ErrUnvalidated = errors.New("execute: statement has not passed grammar validation")

// Executor runs one validated statement against the store.
//
// Implementations: Store (ClickHouse, production), testutil fakes (tests).
type Executor interface {
	// Execute submits the statement text verbatim and returns rows in the
	// store's native column order. Store-side failures (statement rejected,
	// connectivity, timeout) surface as *Failure.
	Execute(ctx context.Context, stmt grammar.Statement) (*ResultSet, error)
}

// ResultSet is the ordered row set one execution produced.
//
// Read-only to all consumers: rows appear in the order the store returned
// them, each row in the store's native column order.
type ResultSet struct {
	// Columns names the result columns in store order.
	Columns []string `json:"columns"`

	// Rows holds the scalar values, one inner slice per row.
	Rows [][]any `json:"rows"`

	// RowCount is len(Rows), carried explicitly for the API payload.
	RowCount int `json:"row_count"`
}

// Failure reports that the store rejected the statement or was
// unreachable. Distinct from generation and validation failures: a
// store-rejected statement that passed the grammar indicates a
// grammar/store mismatch worth alerting on, not a bad user request.
type Failure struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("execution failed: %s: %v", f.Reason, f.Err)
	}
	return fmt.Sprintf("execution failed: %s", f.Reason)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}
