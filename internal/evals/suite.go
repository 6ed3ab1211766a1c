// Package evals provides an evaluation harness for the question
// pipeline. Suites of natural-language cases live in YAML catalogs;
// each case runs through a pipeline and is checked by named assertions
// against the generated SQL and the returned rows.
//
// Unlike the unit tests, suites evaluate end-to-end quality: the same
// catalogs run against fake boundaries in CI and against the live
// generation service and store via `askfit eval`.
package evals

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Suite is a named collection of evaluation cases.
type Suite struct {
	// Name uniquely identifies the suite (used in reports and golden files).
	Name string `yaml:"name"`

	// Description explains what quality dimension the suite probes.
	Description string `yaml:"description,omitempty"`

	// Cases are the evaluation cases, run in order.
	Cases []Case `yaml:"cases"`
}

// Case is one natural-language question with its assertions.
type Case struct {
	// Description explains what this case validates.
	Description string `yaml:"description"`

	// Question is the natural-language input sent to the pipeline.
	Question string `yaml:"question"`

	// Assertions validate the outcome. All must pass for the case to pass.
	Assertions []AssertionSpec `yaml:"assertions"`
}

// AssertionSpec selects an assertion by type name plus its parameters.
// Which parameters apply depends on the type; unused ones stay zero.
type AssertionSpec struct {
	// Type is the assertion name, e.g. "sql_parseable" or "result_count".
	Type string `yaml:"type"`

	// Expected is the expected token (correct_aggregation, correct_sort).
	Expected string `yaml:"expected,omitempty"`

	// Columns are the expected selected columns (correct_columns).
	Columns []string `yaml:"columns,omitempty"`

	// Conditions are expected WHERE fragments (correct_where_clause).
	Conditions []string `yaml:"conditions,omitempty"`

	// Count is the exact expected row count (result_count).
	Count int `yaml:"count,omitempty"`

	// ColumnCount is the expected column count (result_shape).
	ColumnCount int `yaml:"column_count,omitempty"`

	// Column names the checked column (value_range).
	Column string `yaml:"column,omitempty"`

	// Min and Max bound the checked value (value_range). Nil means
	// unbounded on that side.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

// LoadSuite reads and parses a suite YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}

	return &suite, nil
}

// validateSuite checks that required fields are present and valid.
func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for i, c := range s.Cases {
		if c.Description == "" {
			return fmt.Errorf("cases[%d]: description is required", i)
		}
		if c.Question == "" {
			return fmt.Errorf("cases[%d]: question is required", i)
		}
		if len(c.Assertions) == 0 {
			return fmt.Errorf("cases[%d]: assertions list is required and must be non-empty", i)
		}
		for j, spec := range c.Assertions {
			if err := validateAssertionSpec(&spec); err != nil {
				return fmt.Errorf("cases[%d].assertions[%d]: %w", i, j, err)
			}
		}
	}

	return nil
}

// validateAssertionSpec validates one spec against its type's parameters.
func validateAssertionSpec(spec *AssertionSpec) error {
	if spec.Type == "" {
		return fmt.Errorf("type is required")
	}
	if _, ok := registry[spec.Type]; !ok {
		return fmt.Errorf("unknown assertion type %q", spec.Type)
	}

	switch spec.Type {
	case AssertCorrectAggregation, AssertCorrectSort:
		if spec.Expected == "" {
			return fmt.Errorf("expected is required for %s", spec.Type)
		}
	case AssertCorrectColumns:
		if len(spec.Columns) == 0 {
			return fmt.Errorf("columns list is required for %s", spec.Type)
		}
	case AssertResultCount:
		if spec.Count < 0 {
			return fmt.Errorf("count must be non-negative for %s", spec.Type)
		}
	case AssertResultShape:
		if spec.ColumnCount <= 0 {
			return fmt.Errorf("column_count must be positive for %s", spec.Type)
		}
	case AssertValueRange:
		if spec.Column == "" {
			return fmt.Errorf("column is required for %s", spec.Type)
		}
		if spec.Min == nil && spec.Max == nil {
			return fmt.Errorf("min or max is required for %s", spec.Type)
		}
	}

	return nil
}
