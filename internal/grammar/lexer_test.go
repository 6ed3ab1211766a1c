package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, input string) []token {
	t.Helper()
	l := newLexer(input)
	var toks []token
	for {
		tok, err := l.next()
		require.Nil(t, err, "unexpected lex error in %q", input)
		if tok.typ == tokenEOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestLexer_WordsNumbersPunctuation(t *testing.T) {
	toks := lexAll(t, "SELECT SUM(active_calories), 42 FROM")

	expected := []struct {
		typ   tokenType
		value string
	}{
		{tokenWord, "SELECT"},
		{tokenWord, "SUM"},
		{tokenLParen, "("},
		{tokenWord, "active_calories"},
		{tokenRParen, ")"},
		{tokenComma, ","},
		{tokenNumber, "42"},
		{tokenWord, "FROM"},
	}

	require.Len(t, toks, len(expected))
	for i, exp := range expected {
		assert.Equal(t, exp.typ, toks[i].typ, "token %d type", i)
		assert.Equal(t, exp.value, toks[i].value, "token %d value", i)
	}
}

func TestLexer_Operators(t *testing.T) {
	toks := lexAll(t, "= > < >= <= !=")

	require.Len(t, toks, 6)
	values := make([]string, len(toks))
	for i, tok := range toks {
		assert.Equal(t, tokenOperator, tok.typ)
		values[i] = tok.value
	}
	assert.Equal(t, []string{"=", ">", "<", ">=", "<=", "!="}, values)
}

func TestLexer_TwoRuneOperatorsBindEagerly(t *testing.T) {
	// ">=" must lex as one operator, never as ">" then "=".
	toks := lexAll(t, "timestamp_day >= 7")

	require.Len(t, toks, 3)
	assert.Equal(t, ">=", toks[1].value)
}

func TestLexer_Offsets(t *testing.T) {
	input := "SELECT  *  FROM"
	toks := lexAll(t, input)

	require.Len(t, toks, 3)
	assert.Equal(t, 0, toks[0].offset)
	assert.Equal(t, 8, toks[1].offset)
	assert.Equal(t, 11, toks[2].offset)
}

func TestLexer_RelativeDateExpression(t *testing.T) {
	toks := lexAll(t, "today() - toIntervalDay(30)")

	var types []tokenType
	for _, tok := range toks {
		types = append(types, tok.typ)
	}
	assert.Equal(t, []tokenType{
		tokenWord, tokenLParen, tokenRParen,
		tokenMinus,
		tokenWord, tokenLParen, tokenNumber, tokenRParen,
	}, types)
}

func TestLexer_RejectsForeignRunes(t *testing.T) {
	cases := []struct {
		input  string
		offset int
	}{
		{"SELECT 'x'", 7},
		{"SELECT \"x\"", 7},
		{"distance; DROP", 8},
		{"steps ! 1", 6},
		{"a % b", 2},
	}

	for _, tc := range cases {
		l := newLexer(tc.input)
		var lastErr *lexError
		for {
			tok, err := l.next()
			if err != nil {
				lastErr = err
				break
			}
			if tok.typ == tokenEOF {
				break
			}
		}
		require.NotNil(t, lastErr, "expected lex error for %q", tc.input)
		assert.Equal(t, tc.offset, lastErr.offset, "offset for %q", tc.input)
	}
}

func TestLexer_EmptyInput(t *testing.T) {
	l := newLexer("")
	tok, err := l.next()
	require.Nil(t, err)
	assert.Equal(t, tokenEOF, tok.typ)
}
