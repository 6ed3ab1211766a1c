package generate

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/askfit/internal/schema"
)

// BuildPrompt renders the instruction text sent alongside the grammar
// constraint.
//
// The schema section is derived from the same compiled schema the grammar
// vocabulary comes from, so the prompt can never describe a column the
// grammar does not admit. The question is embedded verbatim inside a
// delimiter tag after NFC normalization.
func BuildPrompt(sch *schema.Schema, question string) string {
	var b strings.Builder

	b.WriteString("You are a SQL query generator for a personal fitness database.\n\n")

	b.WriteString("Schema:\n")
	fmt.Fprintf(&b, "- Table: %s\n", sch.Table)
	b.WriteString("- Columns:\n")
	for _, col := range sch.Columns {
		desc := col.Description
		if col.Unit != "" {
			desc = fmt.Sprintf("%s (%s)", desc, col.Unit)
		}
		fmt.Fprintf(&b, "  - %s (%s): %s\n", col.Name, columnKindLabel(col.Kind), desc)
		if !col.Filterable {
			fmt.Fprintf(&b, "    Do not write WHERE conditions on %s; it has no comparable literal form.\n", col.Name)
		}
	}

	b.WriteString("\nImportant conversions:\n")
	b.WriteString("- \"kilometers\" or \"km\": multiply by 1000 for meters\n")
	b.WriteString("- \"minutes\" of active time: multiply by 60 for seconds\n")
	b.WriteString("- Time ranges: \"last X days\" becomes today() - toIntervalDay(X)\n")

	fmt.Fprintf(&b, "\n<english_query> %s </english_query>\n", NormalizeQuestion(question))

	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Use the sql_grammar tool to generate one query answering the english_query.\n")
	b.WriteString("- The query must obey the grammar exactly; emit nothing outside it.\n")

	return b.String()
}

// NormalizeQuestion returns the NFC-normalized, whitespace-trimmed form
// of a natural-language question. Normalizing here keeps the prompt and
// the audit log byte-identical for visually identical input.
func NormalizeQuestion(question string) string {
	return norm.NFC.String(strings.TrimSpace(question))
}

func columnKindLabel(kind schema.ColumnKind) string {
	switch kind {
	case schema.KindDate:
		return "Date"
	case schema.KindInteger:
		return "Integer"
	case schema.KindString:
		return "String"
	default:
		return string(kind)
	}
}
