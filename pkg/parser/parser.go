// Package parser implements a recursive-descent, precedence-climbing
// parser that turns a token stream into an ast.Program. Local syntax
// errors are appended to a diag.Collector and the parser resynchronizes
// at the next statement delimiter rather than aborting, so a single
// `check` invocation can report every syntax error in one pass.
package parser

import (
	"strconv"

	"github.com/vyn-lang/vync/pkg/ast"
	"github.com/vyn-lang/vync/pkg/diag"
	"github.com/vyn-lang/vync/pkg/source"
	"github.com/vyn-lang/vync/pkg/token"
)

// Parser converts a flat token stream into an ast.Program.
type Parser struct {
	tokens []token.Token
	pos    int
	c      *diag.Collector
}

// New creates a Parser over tokens, reporting syntax errors into c.
func New(tokens []token.Token, c *diag.Collector) *Parser {
	return &Parser{tokens: tokens, c: c}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF sentinel
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(t token.Type) bool { return p.cur().Type == t }

func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) isAtEnd() bool { return p.cur().Type == token.EOF }

func (p *Parser) expect(t token.Type) (token.Token, bool) {
	if p.check(t) {
		return p.advance(), true
	}
	p.c.Add(diag.New(diag.ExpectedToken, p.cur().Span, "expected %s, found %s", t, p.cur().Type))
	return token.Token{}, false
}

func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.advance()
	}
}

// expectDelimiter consumes a statement terminator: newline, ';' or EOF.
func (p *Parser) expectDelimiter() {
	switch p.cur().Type {
	case token.NEWLINE, token.SEMICOLON:
		p.advance()
	case token.EOF:
	default:
		p.c.Add(diag.New(diag.ExpectedToken, p.cur().Span, "expected end of statement, found %s", p.cur().Type))
	}
}

// resync advances past tokens until the next statement boundary, used
// to recover after a syntax error so parsing can continue.
func (p *Parser) resync() {
	for !p.isAtEnd() {
		switch p.cur().Type {
		case token.NEWLINE, token.SEMICOLON:
			p.advance()
			return
		}
		p.advance()
	}
}

// ParseProgram parses every statement in the token stream.
func (p *Parser) ParseProgram() *ast.Program {
	var stmts []ast.Statement
	p.skipNewlines()
	for !p.isAtEnd() {
		before := p.pos
		stmt, ok := p.parseStatement()
		if ok {
			stmts = append(stmts, stmt)
		} else {
			p.resync()
		}
		p.skipNewlines()
		if p.pos == before {
			// Guard against a parse function that consumed nothing.
			p.advance()
		}
	}
	return &ast.Program{Statements: stmts}
}

func (p *Parser) parseStatement() (ast.Statement, bool) {
	switch p.cur().Type {
	case token.LET:
		return p.parseVarDecl()
	case token.STATIC:
		return p.parseStaticDecl()
	case token.TYPE:
		return p.parseTypeAliasDecl()
	case token.STDOUT:
		return p.parseStdoutStmt()
	case token.LBRACE:
		return p.parseScopeStmt()
	case token.LPAREN:
		return p.parseInstructionBlock()
	case token.IF:
		return p.parseIfStmt()
	case token.LOOP:
		return p.parseLoopStmt()
	case token.BREAK:
		span := p.advance().Span
		p.expectDelimiter()
		return source.With[ast.Stmt](ast.BreakStmt{}, span), true
	case token.CONTINUE:
		span := p.advance().Span
		p.expectDelimiter()
		return source.With[ast.Stmt](ast.ContinueStmt{}, span), true
	default:
		return p.parseExpressionStmt()
	}
}

func (p *Parser) parseBlockBody() ([]ast.Statement, bool) {
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil, false
	}
	p.skipNewlines()

	var body []ast.Statement
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		before := p.pos
		stmt, ok := p.parseStatement()
		if ok {
			body = append(body, stmt)
		} else {
			p.resync()
		}
		p.skipNewlines()
		if p.pos == before {
			p.advance()
		}
	}

	if _, ok := p.expect(token.RBRACE); !ok {
		return body, false
	}
	return body, true
}

func (p *Parser) parseScopeStmt() (ast.Statement, bool) {
	start := p.cur().Span
	body, ok := p.parseBlockBody()
	return source.With[ast.Stmt](ast.ScopeStmt{Body: body}, start), ok
}

// parseInstructionBlock parses `( stmt; stmt; ... )`: a statement
// sequence grouped without introducing a fresh lexical scope.
func (p *Parser) parseInstructionBlock() (ast.Statement, bool) {
	start, _ := p.expect(token.LPAREN)
	p.skipNewlines()

	var body []ast.Statement
	for !p.check(token.RPAREN) && !p.isAtEnd() {
		before := p.pos
		stmt, ok := p.parseStatement()
		if ok {
			body = append(body, stmt)
		} else {
			p.resync()
		}
		p.skipNewlines()
		if p.pos == before {
			p.advance()
		}
	}

	ok := true
	if _, closed := p.expect(token.RPAREN); !closed {
		ok = false
	}
	return source.With[ast.Stmt](ast.InstructionBlock{Body: body}, start.Span), ok
}

func (p *Parser) parseIfStmt() (ast.Statement, bool) {
	start := p.advance().Span // consume 'if'
	cond, ok := p.parseExpression(lowest)
	if !ok {
		return ast.Statement{}, false
	}
	p.skipNewlines()

	thenBody, ok := p.parseBlockBody()
	if !ok {
		return source.With[ast.Stmt](ast.IfStmt{Condition: cond, Then: thenBody}, start), false
	}

	var elseBody []ast.Statement
	save := p.pos
	p.skipNewlines()
	if p.match(token.ELSE) {
		p.skipNewlines()
		if p.check(token.IF) {
			elseIf, innerOK := p.parseIfStmt()
			elseBody = []ast.Statement{elseIf}
			ok = ok && innerOK
		} else {
			elseBody, ok = p.parseBlockBody()
		}
	} else {
		p.pos = save
	}

	return source.With[ast.Stmt](ast.IfStmt{Condition: cond, Then: thenBody, Else: elseBody}, start), ok
}

func (p *Parser) parseLoopStmt() (ast.Statement, bool) {
	start := p.advance().Span // consume 'loop'
	body, ok := p.parseBlockBody()
	return source.With[ast.Stmt](ast.LoopStmt{Body: body}, start), ok
}

func (p *Parser) parseStdoutStmt() (ast.Statement, bool) {
	start := p.advance().Span // consume 'stdout'
	value, ok := p.parseExpression(lowest)
	if !ok {
		return ast.Statement{}, false
	}
	p.expectDelimiter()
	return source.With[ast.Stmt](ast.StdoutStmt{Value: value}, source.Join(start, value.Span)), true
}

func (p *Parser) parseVarDecl() (ast.Statement, bool) {
	start := p.advance().Span // consume 'let'
	mutable := p.match(token.MUT)

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.Statement{}, false
	}

	var annotation ast.TypeAnnotation
	if p.match(token.COLON) {
		annotation, ok = p.parseTypeAnnotation()
		if !ok {
			return ast.Statement{}, false
		}
	}

	if _, ok := p.expect(token.EQ); !ok {
		return ast.Statement{}, false
	}

	value, ok := p.parseExpression(lowest)
	if !ok {
		return ast.Statement{}, false
	}
	p.expectDelimiter()

	decl := ast.VarDecl{Name: nameTok.Literal, Mutable: mutable, Annotation: annotation, Value: value}
	return source.With[ast.Stmt](decl, source.Join(start, value.Span)), true
}

func (p *Parser) parseStaticDecl() (ast.Statement, bool) {
	start := p.advance().Span // consume 'static'

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.Statement{}, false
	}

	var annotation ast.TypeAnnotation
	if p.match(token.COLON) {
		annotation, ok = p.parseTypeAnnotation()
		if !ok {
			return ast.Statement{}, false
		}
	}

	if _, ok := p.expect(token.EQ); !ok {
		return ast.Statement{}, false
	}

	value, ok := p.parseExpression(lowest)
	if !ok {
		return ast.Statement{}, false
	}
	p.expectDelimiter()

	decl := ast.StaticDecl{Name: nameTok.Literal, Annotation: annotation, Value: value}
	return source.With[ast.Stmt](decl, source.Join(start, value.Span)), true
}

func (p *Parser) parseTypeAliasDecl() (ast.Statement, bool) {
	start := p.advance().Span // consume 'type'

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.Statement{}, false
	}
	if _, ok := p.expect(token.EQ); !ok {
		return ast.Statement{}, false
	}

	ann, ok := p.parseTypeAnnotation()
	if !ok {
		return ast.Statement{}, false
	}
	p.expectDelimiter()

	decl := ast.TypeAliasDecl{Name: nameTok.Literal, Type: ann}
	return source.With[ast.Stmt](decl, start), true
}

func (p *Parser) parseExpressionStmt() (ast.Statement, bool) {
	start := p.cur().Span
	expr, ok := p.parseExpression(lowest)
	if !ok {
		return ast.Statement{}, false
	}
	p.expectDelimiter()
	return source.With[ast.Stmt](ast.ExpressionStmt{Expr: expr}, source.Join(start, expr.Span)), true
}

// parseTypeAnnotation parses Integer | Float | Bool | String | Nil |
// UserAlias | []Elem | [N]Elem.
func (p *Parser) parseTypeAnnotation() (ast.TypeAnnotation, bool) {
	if p.match(token.LBRACKET) {
		if p.match(token.RBRACKET) {
			elem, ok := p.parseTypeAnnotation()
			if !ok {
				return nil, false
			}
			return ast.SequenceType{Element: elem}, true
		}

		size, ok := p.parseExpression(lowest)
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.RBRACKET); !ok {
			return nil, false
		}
		elem, ok := p.parseTypeAnnotation()
		if !ok {
			return nil, false
		}
		return ast.FixedArrayType{Element: elem, Size: size}, true
	}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil, false
	}
	return ast.NamedType{Name: nameTok.Literal}, true
}

// parseExpression is the Pratt-style entry point: it parses a prefix
// term, then climbs the precedence table for infix/postfix operators,
// and finally checks for a trailing `=` to form an assignment, which is
// lowest-precedence and right-associative.
func (p *Parser) parseExpression(minPrec precedence) (ast.Expression, bool) {
	left, ok := p.parseUnary()
	if !ok {
		return ast.Expression{}, false
	}

	for {
		opTok := p.cur()
		prec := precedenceOf(opTok.Type)
		if prec <= minPrec {
			break
		}

		if opTok.Type == token.LBRACKET {
			var ok2 bool
			left, ok2 = p.parseIndex(left)
			if !ok2 {
				return left, false
			}
			continue
		}

		p.advance()
		nextMin := prec
		if opTok.Type == token.CARET {
			nextMin = prec - 1 // right-associative
		}
		right, ok2 := p.parseExpression(nextMin)
		if !ok2 {
			return left, false
		}
		left = source.With[ast.Expr](ast.BinaryExpr{
			Left:     left,
			Operator: opName(opTok.Type),
			Right:    right,
		}, source.Join(left.Span, right.Span))
	}

	if p.check(token.EQ) {
		p.advance()
		value, ok := p.parseExpression(lowest)
		if !ok {
			return left, false
		}
		span := source.Join(left.Span, value.Span)

		switch t := left.Node.(type) {
		case ast.Identifier:
			return source.With[ast.Expr](ast.AssignExpr{Target: left, Value: value}, span), true
		case ast.IndexExpr:
			return source.With[ast.Expr](ast.IndexAssignExpr{Target: t.Target, Index: t.Index, Value: value}, span), true
		default:
			p.c.Add(diag.New(diag.LeftHandAssignment, left.Span, "left-hand side of assignment must be a variable or index expression"))
			return left, false
		}
	}

	return left, true
}

func (p *Parser) parseIndex(target ast.Expression) (ast.Expression, bool) {
	start, _ := p.expect(token.LBRACKET)
	idx, ok := p.parseExpression(lowest)
	if !ok {
		return target, false
	}
	end, ok := p.expect(token.RBRACKET)
	if !ok {
		return target, false
	}
	return source.With[ast.Expr](ast.IndexExpr{Target: target, Index: idx}, source.Join(start.Span, end.Span)), true
}

func (p *Parser) parseUnary() (ast.Expression, bool) {
	switch p.cur().Type {
	case token.MINUS, token.PLUS, token.BANG, token.NOT:
		opTok := p.advance()
		operand, ok := p.parseExpression(unary)
		if !ok {
			return ast.Expression{}, false
		}
		expr := ast.UnaryExpr{Operator: opName(opTok.Type), Operand: operand}
		return source.With[ast.Expr](expr, source.Join(opTok.Span, operand.Span)), true
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (ast.Expression, bool) {
	tok := p.cur()
	switch tok.Type {
	case token.INTEGER:
		p.advance()
		n, err := strconv.ParseInt(tok.Literal, 10, 32)
		if err != nil {
			p.c.Add(diag.New(diag.UnexpectedToken, tok.Span, "invalid integer literal %q", tok.Literal))
			return ast.Expression{}, false
		}
		return source.With[ast.Expr](ast.IntegerLiteral{Value: int32(n)}, tok.Span), true

	case token.FLOAT:
		p.advance()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.c.Add(diag.New(diag.UnexpectedToken, tok.Span, "invalid float literal %q", tok.Literal))
			return ast.Expression{}, false
		}
		return source.With[ast.Expr](ast.FloatLiteral{Value: f}, tok.Span), true

	case token.TRUE:
		p.advance()
		return source.With[ast.Expr](ast.BoolLiteral{Value: true}, tok.Span), true

	case token.FALSE:
		p.advance()
		return source.With[ast.Expr](ast.BoolLiteral{Value: false}, tok.Span), true

	case token.NIL:
		p.advance()
		return source.With[ast.Expr](ast.NilLiteral{}, tok.Span), true

	case token.STRING:
		p.advance()
		return source.With[ast.Expr](ast.StringLiteral{Value: tok.Literal}, tok.Span), true

	case token.IDENT:
		p.advance()
		return source.With[ast.Expr](ast.Identifier{Name: tok.Literal}, tok.Span), true

	case token.LPAREN:
		p.advance()
		expr, ok := p.parseExpression(lowest)
		if !ok {
			return expr, false
		}
		if _, ok := p.expect(token.RPAREN); !ok {
			return expr, false
		}
		return expr, true

	case token.LBRACKET:
		return p.parseArrayLiteral()

	default:
		p.c.Add(diag.New(diag.UnexpectedToken, tok.Span, "unexpected token %s in expression", tok.Type))
		return ast.Expression{}, false
	}
}

func (p *Parser) parseArrayLiteral() (ast.Expression, bool) {
	start := p.advance().Span // consume '['
	var elements []ast.Expression

	for !p.check(token.RBRACKET) && !p.isAtEnd() {
		el, ok := p.parseExpression(lowest)
		if !ok {
			return ast.Expression{}, false
		}
		elements = append(elements, el)
		if !p.match(token.COMMA) {
			break
		}
	}

	end, ok := p.expect(token.RBRACKET)
	if !ok {
		return ast.Expression{}, false
	}
	return source.With[ast.Expr](ast.ArrayLiteral{Elements: elements}, source.Join(start, end.Span)), true
}

func opName(t token.Type) string {
	switch t {
	case token.PLUS:
		return "+"
	case token.MINUS:
		return "-"
	case token.STAR:
		return "*"
	case token.SLASH:
		return "/"
	case token.CARET:
		return "^"
	case token.EQEQ:
		return "=="
	case token.NOTEQ:
		return "!="
	case token.LT:
		return "<"
	case token.LTEQ:
		return "<="
	case token.GT:
		return ">"
	case token.GTEQ:
		return ">="
	case token.BANG:
		return "!"
	case token.AND:
		return "and"
	case token.OR:
		return "or"
	case token.NOT:
		return "not"
	default:
		return t.String()
	}
}
