// Package schema defines the fitness table schema and compiles it from an
// embedded CUE declaration.
//
// The schema is compiled exactly once at process start and is immutable
// thereafter. Both the SQL grammar vocabulary and the generation prompt
// are derived from it, so the two can never disagree about which table
// and columns exist.
package schema

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE []byte

// ColumnKind categorizes the values a column holds.
type ColumnKind string

const (
	// KindDate marks columns holding calendar dates. Date columns are
	// compared against relative-date expressions in the grammar.
	KindDate ColumnKind = "date"

	// KindInteger marks columns holding integer measurements.
	KindInteger ColumnKind = "integer"

	// KindString marks columns holding free-form text. The grammar has no
	// string literal production, so string columns cannot be filtered.
	KindString ColumnKind = "string"
)

// Column describes a single column of the fitness table.
type Column struct {
	// Name is the SQL identifier, lowercase snake_case.
	Name string `json:"name"`

	// Kind categorizes the column's values.
	Kind ColumnKind `json:"kind"`

	// Unit names the measurement unit ("meters", "seconds", ...).
	// Empty for non-numeric columns.
	Unit string `json:"unit"`

	// Filterable reports whether WHERE conditions on this column are
	// reachable in the grammar. String columns are not filterable because
	// the value production admits no string literals.
	Filterable bool `json:"filterable"`

	// Description is surfaced to the generation prompt.
	Description string `json:"description"`
}

// Schema is the compiled table schema.
//
// A Schema is immutable after Load returns. It is safe to share one
// instance across all concurrent requests.
type Schema struct {
	// Table is the single table name the grammar admits.
	Table string `json:"table"`

	// Columns is the closed column vocabulary, in declaration order.
	Columns []Column `json:"columns"`
}

// Load compiles the embedded CUE schema.
//
// Uses the CUE SDK's Go API directly (not a CLI subprocess). Returns an
// error if the declaration fails CUE validation or violates the
// structural rules below:
//   - table name must be non-empty
//   - at least one column
//   - column names must be unique
func Load() (*Schema, error) {
	ctx := cuecontext.New()

	v := ctx.CompileBytes(schemaCUE)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("validate schema: %w", err)
	}

	s := &Schema{}
	if err := v.Decode(s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	if err := s.check(); err != nil {
		return nil, err
	}
	return s, nil
}

// check enforces structural rules the CUE constraints cannot express.
func (s *Schema) check() error {
	if s.Table == "" {
		return fmt.Errorf("schema has no table name")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema has no columns")
	}

	seen := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if col.Name == "" {
			return fmt.Errorf("schema has a column with an empty name")
		}
		if seen[col.Name] {
			return fmt.Errorf("duplicate column %q in schema", col.Name)
		}
		seen[col.Name] = true
	}
	return nil
}

// ColumnNames returns the column identifiers in declaration order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the column with the given name, or false if the name is
// outside the vocabulary.
func (s *Schema) Column(name string) (Column, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}
