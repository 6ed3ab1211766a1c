package evals

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/askfit/internal/pipeline"
)

// Assertion type constants.
const (
	AssertSQLParseable       = "sql_parseable"
	AssertSQLExecutes        = "sql_executes"
	AssertValidTableName     = "valid_table_name"
	AssertValidColumns       = "valid_columns"
	AssertCorrectAggregation = "correct_aggregation"
	AssertCorrectColumns     = "correct_columns"
	AssertCorrectWhereClause = "correct_where_clause"
	AssertCorrectSort        = "correct_sort"
	AssertNonEmptyResults    = "non_empty_results"
	AssertEmptyResults       = "empty_results"
	AssertResultCount        = "result_count"
	AssertResultShape        = "result_shape"
	AssertValueRange         = "value_range"
)

// assertionFunc checks one outcome. Returns pass/fail plus a message
// explaining the verdict.
type assertionFunc func(outcome *pipeline.Outcome, spec AssertionSpec) (bool, string)

// registry maps assertion type names to implementations.
var registry = map[string]assertionFunc{
	AssertSQLParseable:       assertSQLParseable,
	AssertSQLExecutes:        assertSQLExecutes,
	AssertValidTableName:     assertValidTableName,
	AssertValidColumns:       assertValidColumns,
	AssertCorrectAggregation: assertCorrectAggregation,
	AssertCorrectColumns:     assertCorrectColumns,
	AssertCorrectWhereClause: assertCorrectWhereClause,
	AssertCorrectSort:        assertCorrectSort,
	AssertNonEmptyResults:    assertNonEmptyResults,
	AssertEmptyResults:       assertEmptyResults,
	AssertResultCount:        assertResultCount,
	AssertResultShape:        assertResultShape,
	AssertValueRange:         assertValueRange,
}

// Evaluate runs one assertion spec against an outcome.
func Evaluate(outcome *pipeline.Outcome, spec AssertionSpec) (bool, string) {
	fn, ok := registry[spec.Type]
	if !ok {
		return false, fmt.Sprintf("unknown assertion type: %s", spec.Type)
	}
	return fn(outcome, spec)
}

func assertSQLParseable(outcome *pipeline.Outcome, _ AssertionSpec) (bool, string) {
	if outcome.Err != nil && outcome.Err.Kind == pipeline.KindGrammarRejected {
		return false, fmt.Sprintf("candidate rejected by grammar: %v", outcome.Err)
	}
	sql := strings.TrimSpace(outcome.Statement)
	if sql == "" {
		return false, "no SQL generated"
	}
	if !strings.HasPrefix(strings.ToUpper(sql), "SELECT") {
		return false, fmt.Sprintf("generated text doesn't look like SQL: %.50s", sql)
	}
	return true, fmt.Sprintf("SQL parseable: %.80s", sql)
}

func assertSQLExecutes(outcome *pipeline.Outcome, _ AssertionSpec) (bool, string) {
	if outcome.Err != nil {
		return false, fmt.Sprintf("SQL execution error: %v", outcome.Err)
	}
	if outcome.Results == nil {
		return false, "SQL did not return results"
	}
	return true, "SQL executed successfully"
}

func assertValidTableName(outcome *pipeline.Outcome, _ AssertionSpec) (bool, string) {
	sql := strings.ToUpper(outcome.Statement)
	if !strings.Contains(sql, "GARMIN_ACTIVE_CAL_DATA") {
		return false, "SQL doesn't reference garmin_active_cal_data table"
	}
	return true, "SQL references correct table"
}

// sqlKeywords are tokens that may legitimately appear besides columns.
var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "ORDER": true, "BY": true,
	"LIMIT": true, "AND": true, "ASC": true, "DESC": true,
	"SUM": true, "AVG": true, "COUNT": true, "MAX": true, "MIN": true,
	"TODAY": true, "TOINTERVALDAY": true,
	"GARMIN_ACTIVE_CAL_DATA": true,
}

var validColumns = map[string]bool{
	"TIMESTAMP_DAY": true, "ACTIVE_CALORIES": true, "ACTIVE_TIME": true,
	"DISTANCE": true, "ACTIVITY_TYPE": true, "DURATION_MIN": true, "STEPS": true,
}

func assertValidColumns(outcome *pipeline.Outcome, _ AssertionSpec) (bool, string) {
	// Heuristic token walk, not a parse. The grammar already guarantees
	// vocabulary; this catches drift between grammar and catalog.
	for _, word := range strings.Fields(strings.ToUpper(outcome.Statement)) {
		word = strings.Trim(word, "(),")
		if word == "" || !isAlnumWord(word) {
			continue
		}
		if _, err := strconv.Atoi(word); err == nil {
			continue
		}
		if !sqlKeywords[word] && !validColumns[word] {
			return false, fmt.Sprintf("SQL may contain invalid column: %s", word)
		}
	}
	return true, "SQL uses valid columns"
}

func isAlnumWord(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

func assertCorrectAggregation(outcome *pipeline.Outcome, spec AssertionSpec) (bool, string) {
	sql := strings.ToUpper(outcome.Statement)
	expected := strings.ToUpper(spec.Expected)
	if !strings.Contains(sql, expected+"(") {
		return false, fmt.Sprintf("expected %s aggregation not found in SQL", spec.Expected)
	}
	return true, fmt.Sprintf("SQL correctly uses %s aggregation", spec.Expected)
}

func assertCorrectColumns(outcome *pipeline.Outcome, spec AssertionSpec) (bool, string) {
	sql := strings.ToUpper(outcome.Statement)
	for _, col := range spec.Columns {
		if !strings.Contains(sql, strings.ToUpper(col)) {
			return false, fmt.Sprintf("expected column %q not found in SQL", col)
		}
	}
	return true, fmt.Sprintf("SQL contains expected columns: %s", strings.Join(spec.Columns, ", "))
}

func assertCorrectWhereClause(outcome *pipeline.Outcome, spec AssertionSpec) (bool, string) {
	sql := strings.ToUpper(outcome.Statement)
	if len(spec.Conditions) == 0 {
		return true, "no WHERE conditions to check"
	}
	if !strings.Contains(sql, "WHERE") {
		return false, "expected WHERE clause not found in SQL"
	}
	for _, cond := range spec.Conditions {
		if !strings.Contains(sql, strings.ToUpper(cond)) {
			return false, fmt.Sprintf("expected condition %q not found in WHERE clause", cond)
		}
	}
	return true, "WHERE clause contains expected conditions"
}

func assertCorrectSort(outcome *pipeline.Outcome, spec AssertionSpec) (bool, string) {
	sql := strings.ToUpper(outcome.Statement)
	if !strings.Contains(sql, "ORDER BY") {
		return false, "no ORDER BY clause found"
	}
	if !strings.Contains(sql, strings.ToUpper(spec.Expected)) {
		return false, fmt.Sprintf("expected sort direction %q not found", spec.Expected)
	}
	return true, fmt.Sprintf("SQL sorts with %s", spec.Expected)
}

func assertNonEmptyResults(outcome *pipeline.Outcome, _ AssertionSpec) (bool, string) {
	if outcome.Results == nil || len(outcome.Results.Rows) == 0 {
		return false, "expected non-empty results but got no rows"
	}
	return true, fmt.Sprintf("results contain %d row(s)", len(outcome.Results.Rows))
}

func assertEmptyResults(outcome *pipeline.Outcome, _ AssertionSpec) (bool, string) {
	if outcome.Results != nil && len(outcome.Results.Rows) > 0 {
		return false, fmt.Sprintf("expected empty results but got %d rows", len(outcome.Results.Rows))
	}
	if outcome.Err != nil {
		// An impossible condition must complete with zero rows, not fail.
		return false, fmt.Sprintf("expected empty results but the request failed: %v", outcome.Err)
	}
	return true, "results correctly empty"
}

func assertResultCount(outcome *pipeline.Outcome, spec AssertionSpec) (bool, string) {
	if outcome.Results == nil {
		return false, "no results to count"
	}
	if outcome.Results.RowCount != spec.Count {
		return false, fmt.Sprintf("expected %d rows but got %d", spec.Count, outcome.Results.RowCount)
	}
	return true, fmt.Sprintf("correct row count: %d", spec.Count)
}

func assertResultShape(outcome *pipeline.Outcome, spec AssertionSpec) (bool, string) {
	if outcome.Results == nil || len(outcome.Results.Rows) == 0 {
		return false, "no rows to check column count"
	}
	actual := len(outcome.Results.Rows[0])
	if actual != spec.ColumnCount {
		return false, fmt.Sprintf("expected %d columns but got %d", spec.ColumnCount, actual)
	}
	return true, fmt.Sprintf("correct column count: %d", spec.ColumnCount)
}

func assertValueRange(outcome *pipeline.Outcome, spec AssertionSpec) (bool, string) {
	if outcome.Results == nil || len(outcome.Results.Rows) == 0 {
		return false, "no rows to check values"
	}

	idx := 0
	for i, col := range outcome.Results.Columns {
		if strings.Contains(strings.ToUpper(col), strings.ToUpper(spec.Column)) {
			idx = i
			break
		}
	}

	row := outcome.Results.Rows[0]
	if idx >= len(row) {
		return false, fmt.Sprintf("column %q not found in results", spec.Column)
	}

	value, ok := toFloat(row[idx])
	if !ok {
		return false, fmt.Sprintf("value %v is not numeric", row[idx])
	}

	if spec.Min != nil && value < *spec.Min {
		return false, fmt.Sprintf("value %.2f below minimum %.2f", value, *spec.Min)
	}
	if spec.Max != nil && value > *spec.Max {
		return false, fmt.Sprintf("value %.2f above maximum %.2f", value, *spec.Max)
	}
	return true, fmt.Sprintf("value %.2f within range", value)
}

// toFloat coerces the numeric types the driver may hand back.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
