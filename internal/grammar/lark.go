package grammar

import (
	"fmt"
	"strings"
)

// Lark renders the grammar in Lark syntax for use as a constrained-output
// payload at the generation boundary.
//
// The rendered text is the contract with the generation service: the
// service is expected to emit only strings this grammar derives. The
// validator enforces the same language independently, so a drifting or
// misbehaving service cannot push an out-of-language statement past the
// boundary.
func (s *Spec) Lark() string {
	var b strings.Builder

	b.WriteString("// ---------- Punctuation & operators ----------\n")
	b.WriteString("SP: \" \"\n")
	b.WriteString("COMMA: \",\"\n")
	b.WriteString("LPAREN: \"(\"\n")
	b.WriteString("RPAREN: \")\"\n")
	b.WriteString("STAR: \"*\"\n")
	b.WriteString("GT: \">\"\n")
	b.WriteString("LT: \"<\"\n")
	b.WriteString("EQ: \"=\"\n")
	b.WriteString("GTE: \">=\"\n")
	b.WriteString("LTE: \"<=\"\n")
	b.WriteString("NEQ: \"!=\"\n")
	b.WriteString("\n")

	b.WriteString("// ---------- Start ----------\n")
	b.WriteString("start: query\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "query: \"SELECT\" SP select_clause SP \"FROM\" SP %q where_clause? order_clause? limit_clause?\n", s.table)
	b.WriteString("\n")

	b.WriteString("// ---------- Select clause ----------\n")
	b.WriteString("select_clause: STAR\n")
	b.WriteString("             | column_list\n")
	b.WriteString("             | agg_clause\n")
	b.WriteString("\n")
	b.WriteString("column_list: column (COMMA SP column)*\n")
	b.WriteString("\n")
	b.WriteString("column: ")
	for i, col := range s.columns {
		if i > 0 {
			b.WriteString("\n      | ")
		}
		fmt.Fprintf(&b, "%q", col)
	}
	b.WriteString("\n\n")

	b.WriteString("// ---------- Aggregations ----------\n")
	b.WriteString("agg_clause: aggregation (COMMA SP (column | aggregation))*\n")
	b.WriteString("\n")
	b.WriteString("aggregation: agg_func LPAREN agg_target RPAREN\n")
	b.WriteString("\n")
	b.WriteString("agg_target: column | STAR\n")
	b.WriteString("\n")
	b.WriteString("agg_func: ")
	for i, f := range AggFuncs {
		if i > 0 {
			b.WriteString(" | ")
		}
		fmt.Fprintf(&b, "%q", f)
	}
	b.WriteString("\n\n")

	b.WriteString("// ---------- WHERE clause ----------\n")
	b.WriteString("where_clause: SP \"WHERE\" SP condition (SP \"AND\" SP condition)*\n")
	b.WriteString("\n")
	b.WriteString("condition: column SP operator SP value\n")
	b.WriteString("         | column SP operator SP \"today()\" SP \"-\" SP \"toIntervalDay\" LPAREN NUMBER RPAREN\n")
	b.WriteString("\n")
	b.WriteString("operator: EQ | GT | LT | GTE | LTE | NEQ\n")
	b.WriteString("\n")
	b.WriteString("value: NUMBER\n")
	b.WriteString("\n")

	b.WriteString("// ---------- ORDER BY clause ----------\n")
	b.WriteString("order_clause: SP \"ORDER\" SP \"BY\" SP column (SP order_dir)?\n")
	b.WriteString("\n")
	b.WriteString("order_dir: \"ASC\" | \"DESC\"\n")
	b.WriteString("\n")

	b.WriteString("// ---------- LIMIT clause ----------\n")
	b.WriteString("limit_clause: SP \"LIMIT\" SP NUMBER\n")
	b.WriteString("\n")

	b.WriteString("// ---------- Terminals ----------\n")
	b.WriteString("NUMBER: /[0-9]+/\n")

	return b.String()
}
