package grammar

import "fmt"

// lexError reports a rune the dialect's alphabet does not contain.
type lexError struct {
	msg    string
	offset int
}

func (e *lexError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.msg, e.offset)
}

// tokenType classifies lexical tokens of the restricted dialect.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenWord           // keywords, column names, function names
	tokenNumber         // integer literal
	tokenOperator       // = > < >= <= !=
	tokenComma
	tokenLParen
	tokenRParen
	tokenStar
	tokenMinus
)

func (tt tokenType) String() string {
	switch tt {
	case tokenEOF:
		return "end of input"
	case tokenWord:
		return "word"
	case tokenNumber:
		return "number"
	case tokenOperator:
		return "operator"
	case tokenComma:
		return "','"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenStar:
		return "'*'"
	case tokenMinus:
		return "'-'"
	default:
		return "unknown"
	}
}

// token is a single lexical token with its byte offset in the candidate.
type token struct {
	typ    tokenType
	value  string
	offset int
}

// lexer splits a candidate statement into tokens in a single pass.
//
// Whitespace (runs of spaces, tabs, newlines) separates tokens and is
// otherwise insignificant; the parser enforces token order. Any rune
// outside the dialect's alphabet is a lex error carrying its offset.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

// next returns the next token, or a lexError for a rune the dialect does
// not contain.
func (l *lexer) next() (token, *lexError) {
	l.skipSpace()

	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, offset: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]

	switch {
	case isWordStart(c):
		for l.pos < len(l.input) && isWordPart(l.input[l.pos]) {
			l.pos++
		}
		return token{typ: tokenWord, value: l.input[start:l.pos], offset: start}, nil

	case isDigit(c):
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
		return token{typ: tokenNumber, value: l.input[start:l.pos], offset: start}, nil

	case c == ',':
		l.pos++
		return token{typ: tokenComma, value: ",", offset: start}, nil

	case c == '(':
		l.pos++
		return token{typ: tokenLParen, value: "(", offset: start}, nil

	case c == ')':
		l.pos++
		return token{typ: tokenRParen, value: ")", offset: start}, nil

	case c == '*':
		l.pos++
		return token{typ: tokenStar, value: "*", offset: start}, nil

	case c == '-':
		l.pos++
		return token{typ: tokenMinus, value: "-", offset: start}, nil

	case c == '>' || c == '<' || c == '!' || c == '=':
		// Two-rune operators first: >= <= !=
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2
			return token{typ: tokenOperator, value: l.input[start:l.pos], offset: start}, nil
		}
		if c == '!' {
			// '!' only exists as part of "!="
			return token{}, &lexError{msg: `unexpected character '!' (expected "!=")`, offset: start}
		}
		l.pos++
		return token{typ: tokenOperator, value: l.input[start:l.pos], offset: start}, nil

	default:
		return token{}, &lexError{msg: fmt.Sprintf("unexpected character %q", string(c)), offset: start}
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordPart(c byte) bool {
	return isWordStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
