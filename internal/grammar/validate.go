package grammar

import (
	"fmt"
	"strings"
)

// Reject describes why a candidate statement is not in the grammar's
// language.
//
// Offset is the byte offset of the offending token where determinable,
// and Token its text (empty at end of input). The reason is written for
// humans: it is the primary signal for diagnosing generator drift.
type Reject struct {
	Reason string
	Offset int
	Token  string
}

// Error implements the error interface so callers can wrap a rejection.
func (r *Reject) Error() string {
	if r.Token != "" {
		return fmt.Sprintf("%s (at %q, offset %d)", r.Reason, r.Token, r.Offset)
	}
	return fmt.Sprintf("%s (offset %d)", r.Reason, r.Offset)
}

// Validate decides whether candidate is a production of the grammar.
//
// Returns nil on acceptance, meaning the start symbol derives the entire
// candidate with no leftover input. Validation is deterministic,
// side-effect free, and single-pass: the same candidate always yields the
// same verdict, in time linear in its length.
func (s *Spec) Validate(candidate string) *Reject {
	p := &parser{spec: s, lex: newLexer(candidate)}
	if rej := p.advance(); rej != nil {
		return rej
	}
	return p.parseQuery()
}

// Admit validates candidate and, on acceptance, mints the Statement that
// the executor requires.
//
// This is the only way to construct a non-zero Statement, so text that
// has not passed validation cannot reach the storage boundary.
func (s *Spec) Admit(candidate string) (Statement, *Reject) {
	if rej := s.Validate(candidate); rej != nil {
		return Statement{}, rej
	}
	return Statement{text: candidate}, nil
}

// parser is a recursive-descent parser with one token of lookahead.
// The grammar is LL(1): every branch is decided by the current token,
// so no production ever backtracks.
type parser struct {
	spec *Spec
	lex  *lexer
	tok  token
}

// advance moves to the next token, converting lex errors to rejections.
func (p *parser) advance() *Reject {
	tok, err := p.lex.next()
	if err != nil {
		return &Reject{Reason: err.msg, Offset: err.offset}
	}
	p.tok = tok
	return nil
}

// reject builds a rejection at the current token.
func (p *parser) reject(format string, args ...any) *Reject {
	return &Reject{
		Reason: fmt.Sprintf(format, args...),
		Offset: p.tok.offset,
		Token:  p.tok.value,
	}
}

// expectWord consumes the current token if it is the exact keyword.
// Keywords are case-sensitive: the grammar's terminals are uppercase and
// the constrained generator can emit nothing else.
func (p *parser) expectWord(keyword string) *Reject {
	if p.tok.typ != tokenWord || p.tok.value != keyword {
		return p.reject("expected %q, found %s %q", keyword, p.tok.typ, p.tok.value)
	}
	return p.advance()
}

// parseQuery parses the start symbol:
//
//	query: "SELECT" select_clause "FROM" <table> where? order? limit?
func (p *parser) parseQuery() *Reject {
	if rej := p.expectWord("SELECT"); rej != nil {
		return rej
	}
	if rej := p.parseSelectClause(); rej != nil {
		return rej
	}
	if rej := p.expectWord("FROM"); rej != nil {
		return rej
	}
	if p.tok.typ != tokenWord || p.tok.value != p.spec.table {
		return p.reject("expected table %q, found %q", p.spec.table, p.tok.value)
	}
	if rej := p.advance(); rej != nil {
		return rej
	}

	if p.tok.typ == tokenWord && p.tok.value == "WHERE" {
		if rej := p.parseWhereClause(); rej != nil {
			return rej
		}
	}
	if p.tok.typ == tokenWord && p.tok.value == "ORDER" {
		if rej := p.parseOrderClause(); rej != nil {
			return rej
		}
	}
	if p.tok.typ == tokenWord && p.tok.value == "LIMIT" {
		if rej := p.parseLimitClause(); rej != nil {
			return rej
		}
	}

	if p.tok.typ != tokenEOF {
		return p.reject("trailing input after query: %q", p.tok.value)
	}
	return nil
}

// parseSelectClause parses one of:
//
//	select_clause: "*" | column_list | agg_clause
//
// The branch is decided by the first token: a star, a column name, or an
// aggregate function name. A column list admits only columns; an
// aggregation list starts with an aggregation and may then mix columns
// and aggregations.
func (p *parser) parseSelectClause() *Reject {
	switch {
	case p.tok.typ == tokenStar:
		return p.advance()

	case p.tok.typ == tokenWord && p.spec.IsAggFunc(p.tok.value):
		return p.parseAggClause()

	case p.tok.typ == tokenWord && p.spec.IsColumn(p.tok.value):
		return p.parseColumnList()

	case p.tok.typ == tokenWord:
		return p.reject("%q is not a column of %s", p.tok.value, p.spec.table)

	default:
		return p.reject("expected '*', a column, or an aggregate function, found %s %q", p.tok.typ, p.tok.value)
	}
}

// parseColumnList parses: column ("," column)*
func (p *parser) parseColumnList() *Reject {
	for {
		if rej := p.parseColumn(); rej != nil {
			return rej
		}
		if p.tok.typ != tokenComma {
			return nil
		}
		if rej := p.advance(); rej != nil {
			return rej
		}
	}
}

// parseAggClause parses: aggregation ("," (column | aggregation))*
func (p *parser) parseAggClause() *Reject {
	if rej := p.parseAggregation(); rej != nil {
		return rej
	}
	for p.tok.typ == tokenComma {
		if rej := p.advance(); rej != nil {
			return rej
		}
		if p.tok.typ == tokenWord && p.spec.IsAggFunc(p.tok.value) {
			if rej := p.parseAggregation(); rej != nil {
				return rej
			}
			continue
		}
		if rej := p.parseColumn(); rej != nil {
			return rej
		}
	}
	return nil
}

// parseAggregation parses: agg_func "(" (column | "*") ")"
func (p *parser) parseAggregation() *Reject {
	if p.tok.typ != tokenWord || !p.spec.IsAggFunc(p.tok.value) {
		return p.reject("expected aggregate function (%s), found %q", strings.Join(AggFuncs, "|"), p.tok.value)
	}
	if rej := p.advance(); rej != nil {
		return rej
	}
	if p.tok.typ != tokenLParen {
		return p.reject("expected '(' after aggregate function, found %s %q", p.tok.typ, p.tok.value)
	}
	if rej := p.advance(); rej != nil {
		return rej
	}

	if p.tok.typ == tokenStar {
		if rej := p.advance(); rej != nil {
			return rej
		}
	} else if rej := p.parseColumn(); rej != nil {
		return rej
	}

	if p.tok.typ != tokenRParen {
		return p.reject("expected ')' to close aggregation, found %s %q", p.tok.typ, p.tok.value)
	}
	return p.advance()
}

// parseColumn consumes a single column name from the closed vocabulary.
func (p *parser) parseColumn() *Reject {
	if p.tok.typ != tokenWord {
		return p.reject("expected a column name, found %s %q", p.tok.typ, p.tok.value)
	}
	if !p.spec.IsColumn(p.tok.value) {
		return p.reject("%q is not a column of %s", p.tok.value, p.spec.table)
	}
	return p.advance()
}

// parseWhereClause parses: "WHERE" condition ("AND" condition)*
func (p *parser) parseWhereClause() *Reject {
	if rej := p.expectWord("WHERE"); rej != nil {
		return rej
	}
	for {
		if rej := p.parseCondition(); rej != nil {
			return rej
		}
		if p.tok.typ != tokenWord || p.tok.value != "AND" {
			return nil
		}
		if rej := p.advance(); rej != nil {
			return rej
		}
	}
}

// parseCondition parses:
//
//	condition: column operator value
//	         | column operator "today()" "-" "toIntervalDay" "(" NUMBER ")"
//
// The alternative is decided by the token after the operator: a number
// is an integer literal, the word "today" starts the relative-date
// expression. No other value forms exist; in particular there are no
// string literals, which is what makes injection unexpressible.
func (p *parser) parseCondition() *Reject {
	if rej := p.parseColumn(); rej != nil {
		return rej
	}
	if p.tok.typ != tokenOperator {
		return p.reject("expected comparison operator (%s), found %s %q", strings.Join(Operators, " "), p.tok.typ, p.tok.value)
	}
	if rej := p.advance(); rej != nil {
		return rej
	}

	switch {
	case p.tok.typ == tokenNumber:
		return p.advance()

	case p.tok.typ == tokenWord && p.tok.value == "today":
		return p.parseRelativeDate()

	default:
		return p.reject("expected an integer or today() - toIntervalDay(N), found %s %q", p.tok.typ, p.tok.value)
	}
}

// parseRelativeDate parses the fixed relative-date expression shape:
//
//	"today" "(" ")" "-" "toIntervalDay" "(" NUMBER ")"
//
// The leading "today" has already been matched by the caller.
func (p *parser) parseRelativeDate() *Reject {
	if rej := p.advance(); rej != nil { // consume "today"
		return rej
	}
	if p.tok.typ != tokenLParen {
		return p.reject("expected '(' after today, found %s %q", p.tok.typ, p.tok.value)
	}
	if rej := p.advance(); rej != nil {
		return rej
	}
	if p.tok.typ != tokenRParen {
		return p.reject("expected ')' after today(, found %s %q", p.tok.typ, p.tok.value)
	}
	if rej := p.advance(); rej != nil {
		return rej
	}
	if p.tok.typ != tokenMinus {
		return p.reject("expected '-' after today(), found %s %q", p.tok.typ, p.tok.value)
	}
	if rej := p.advance(); rej != nil {
		return rej
	}
	if rej := p.expectWord("toIntervalDay"); rej != nil {
		return rej
	}
	if p.tok.typ != tokenLParen {
		return p.reject("expected '(' after toIntervalDay, found %s %q", p.tok.typ, p.tok.value)
	}
	if rej := p.advance(); rej != nil {
		return rej
	}
	if p.tok.typ != tokenNumber {
		return p.reject("expected a day count in toIntervalDay(...), found %s %q", p.tok.typ, p.tok.value)
	}
	if rej := p.advance(); rej != nil {
		return rej
	}
	if p.tok.typ != tokenRParen {
		return p.reject("expected ')' to close toIntervalDay, found %s %q", p.tok.typ, p.tok.value)
	}
	return p.advance()
}

// parseOrderClause parses: "ORDER" "BY" column ("ASC" | "DESC")?
func (p *parser) parseOrderClause() *Reject {
	if rej := p.expectWord("ORDER"); rej != nil {
		return rej
	}
	if rej := p.expectWord("BY"); rej != nil {
		return rej
	}
	if rej := p.parseColumn(); rej != nil {
		return rej
	}
	if p.tok.typ == tokenWord && (p.tok.value == "ASC" || p.tok.value == "DESC") {
		return p.advance()
	}
	return nil
}

// parseLimitClause parses: "LIMIT" NUMBER
func (p *parser) parseLimitClause() *Reject {
	if rej := p.expectWord("LIMIT"); rej != nil {
		return rej
	}
	if p.tok.typ != tokenNumber {
		return p.reject("expected a row count after LIMIT, found %s %q", p.tok.typ, p.tok.value)
	}
	return p.advance()
}
