// Package lexer tokenizes vyn source text into a flat sequence of spanned
// tokens for the parser. It is an external collaborator to the
// compilation core (spec): the core only consumes the token.Token stream
// this package produces.
package lexer

import (
	"strings"

	"github.com/vyn-lang/vync/pkg/source"
	"github.com/vyn-lang/vync/pkg/token"
)

// Lexer tokenizes vyn source code.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	column       int
}

// New creates a new Lexer over input.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespaceExceptNewlines() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// Tokenize returns every token in input, terminated by an EOF token.
func (l *Lexer) Tokenize() []token.Token {
	var tokens []token.Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}

// Next reads and returns the next token.
func (l *Lexer) Next() token.Token {
	l.skipWhitespaceExceptNewlines()

	if l.ch == '/' && l.peekChar() == '/' {
		l.skipComment()
		return l.Next()
	}

	line, col := l.line, l.column

	if l.ch == '\n' {
		l.readChar()
		l.line++
		l.column = 0
		return token.Token{Type: token.NEWLINE, Span: span1(line, col)}
	}

	if l.ch == 0 {
		return token.Token{Type: token.EOF, Span: span1(line, col)}
	}

	switch {
	case isDigit(l.ch):
		return l.readNumber(line, col)
	case isIdentStart(l.ch):
		return l.readIdentifier(line, col)
	case l.ch == '"':
		return l.readString(line, col)
	}

	tok := l.readOperator(line, col)
	l.readChar()
	return tok
}

func (l *Lexer) readOperator(line, col int) token.Token {
	ch := l.ch
	two := func(next byte, twoType, oneType token.Type) token.Token {
		if l.peekChar() == next {
			l.readChar()
			return token.Token{Type: twoType, Literal: string(ch) + string(next), Span: spanN(line, col, 2)}
		}
		return token.Token{Type: oneType, Literal: string(ch), Span: span1(line, col)}
	}

	switch ch {
	case '+':
		return token.Token{Type: token.PLUS, Literal: "+", Span: span1(line, col)}
	case '-':
		return token.Token{Type: token.MINUS, Literal: "-", Span: span1(line, col)}
	case '*':
		return token.Token{Type: token.STAR, Literal: "*", Span: span1(line, col)}
	case '/':
		return token.Token{Type: token.SLASH, Literal: "/", Span: span1(line, col)}
	case '^':
		return token.Token{Type: token.CARET, Literal: "^", Span: span1(line, col)}
	case '=':
		return two('=', token.EQEQ, token.EQ)
	case '!':
		return two('=', token.NOTEQ, token.BANG)
	case '<':
		return two('=', token.LTEQ, token.LT)
	case '>':
		return two('=', token.GTEQ, token.GT)
	case '(':
		return token.Token{Type: token.LPAREN, Literal: "(", Span: span1(line, col)}
	case ')':
		return token.Token{Type: token.RPAREN, Literal: ")", Span: span1(line, col)}
	case '{':
		return token.Token{Type: token.LBRACE, Literal: "{", Span: span1(line, col)}
	case '}':
		return token.Token{Type: token.RBRACE, Literal: "}", Span: span1(line, col)}
	case '[':
		return token.Token{Type: token.LBRACKET, Literal: "[", Span: span1(line, col)}
	case ']':
		return token.Token{Type: token.RBRACKET, Literal: "]", Span: span1(line, col)}
	case ',':
		return token.Token{Type: token.COMMA, Literal: ",", Span: span1(line, col)}
	case ':':
		return token.Token{Type: token.COLON, Literal: ":", Span: span1(line, col)}
	case ';':
		return token.Token{Type: token.SEMICOLON, Literal: ";", Span: span1(line, col)}
	default:
		return token.Token{Type: token.ILLEGAL, Literal: string(ch), Span: span1(line, col)}
	}
}

func (l *Lexer) readNumber(line, col int) token.Token {
	start := l.position
	isFloat := false
	for isDigit(l.ch) || (l.ch == '.' && !isFloat && isDigit(l.peekChar())) {
		if l.ch == '.' {
			isFloat = true
		}
		l.readChar()
	}
	lit := l.input[start:l.position]
	typ := token.INTEGER
	if isFloat {
		typ = token.FLOAT
	}
	return token.Token{Type: typ, Literal: lit, Span: spanN(line, col, len(lit))}
}

func (l *Lexer) readIdentifier(line, col int) token.Token {
	start := l.position
	for isIdentPart(l.ch) {
		l.readChar()
	}
	lit := l.input[start:l.position]
	if kw, ok := token.Keywords[lit]; ok {
		return token.Token{Type: kw, Literal: lit, Span: spanN(line, col, len(lit))}
	}
	return token.Token{Type: token.IDENT, Literal: lit, Span: spanN(line, col, len(lit))}
}

func (l *Lexer) readString(line, col int) token.Token {
	l.readChar() // skip opening quote
	var b strings.Builder
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' && l.peekChar() != 0 {
			l.readChar()
			b.WriteByte(escape(l.ch))
			l.readChar()
			continue
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	if l.ch == 0 {
		// Unterminated string literal: testable property (spec.md §8).
		return token.Token{Type: token.ILLEGAL, Literal: "\"", Span: span1(line, col)}
	}
	width := l.column - col + 1
	tok := token.Token{Type: token.STRING, Literal: b.String(), Span: spanN(line, col, width)}
	l.readChar() // consume closing quote
	return tok
}

func escape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '"':
		return '"'
	case '\\':
		return '\\'
	default:
		return ch
	}
}

func isDigit(ch byte) bool      { return ch >= '0' && ch <= '9' }
func isIdentStart(ch byte) bool { return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') }
func isIdentPart(ch byte) bool  { return isIdentStart(ch) || isDigit(ch) }

func span1(line, col int) source.Span { return source.Span{Line: line, StartColumn: col, EndColumn: col} }
func spanN(line, col, width int) source.Span {
	return source.Span{Line: line, StartColumn: col, EndColumn: col + width - 1}
}
