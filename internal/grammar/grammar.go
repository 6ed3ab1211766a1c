package grammar

import (
	"fmt"

	"github.com/roach88/askfit/internal/schema"
)

// AggFuncs is the closed set of aggregate function names the grammar
// admits, in grammar declaration order.
var AggFuncs = []string{"SUM", "AVG", "COUNT", "MAX", "MIN"}

// Operators is the closed set of comparison operators, longest first so
// the lexer can match ">=" before ">".
var Operators = []string{">=", "<=", "!=", "=", ">", "<"}

// Spec is the compiled grammar: the terminal vocabulary plus the
// production structure rendered by Lark and enforced by Validate.
//
// A Spec is immutable after New. One process-wide instance is shared by
// all requests; it owns no external resources and needs no teardown.
type Spec struct {
	table    string
	columns  []string
	columnOK map[string]bool
	aggOK    map[string]bool
}

// New compiles a Spec from the table schema.
//
// Every identifier terminal in the grammar is drawn from the schema's
// closed column set and table name; no production can generate an
// identifier outside them.
func New(s *schema.Schema) (*Spec, error) {
	if s == nil {
		return nil, fmt.Errorf("grammar: nil schema")
	}

	columns := s.ColumnNames()
	if len(columns) == 0 {
		return nil, fmt.Errorf("grammar: schema has no columns")
	}

	spec := &Spec{
		table:    s.Table,
		columns:  columns,
		columnOK: make(map[string]bool, len(columns)),
		aggOK:    make(map[string]bool, len(AggFuncs)),
	}
	for _, c := range columns {
		spec.columnOK[c] = true
	}
	for _, f := range AggFuncs {
		spec.aggOK[f] = true
	}
	return spec, nil
}

// Table returns the single table name the grammar admits.
func (s *Spec) Table() string {
	return s.table
}

// Columns returns the column vocabulary in declaration order.
// The returned slice must not be modified.
func (s *Spec) Columns() []string {
	return s.columns
}

// IsColumn reports whether name is in the column vocabulary.
func (s *Spec) IsColumn(name string) bool {
	return s.columnOK[name]
}

// IsAggFunc reports whether name is one of the aggregate function names.
func (s *Spec) IsAggFunc(name string) bool {
	return s.aggOK[name]
}
