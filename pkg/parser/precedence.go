package parser

import "github.com/vyn-lang/vync/pkg/token"

// precedence levels, low to high. Mirrors the language's documented
// binding order: or, and, equality, comparison, additive,
// multiplicative, exponent (right-associative), then postfix indexing.
type precedence int

const (
	lowest precedence = iota
	logicalOr
	logicalAnd
	equals
	comparison
	additive
	multiplicative
	exponent
	unary
	index
)

var binaryPrecedence = map[token.Type]precedence{
	token.OR:       logicalOr,
	token.AND:      logicalAnd,
	token.EQEQ:     equals,
	token.NOTEQ:    equals,
	token.LT:       comparison,
	token.LTEQ:     comparison,
	token.GT:       comparison,
	token.GTEQ:     comparison,
	token.PLUS:     additive,
	token.MINUS:    additive,
	token.STAR:     multiplicative,
	token.SLASH:    multiplicative,
	token.CARET:    exponent,
	token.LBRACKET: index,
}

func precedenceOf(t token.Type) precedence {
	if p, ok := binaryPrecedence[t]; ok {
		return p
	}
	return lowest
}
