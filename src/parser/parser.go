// Package parser builds an *ast.Program from a token stream using
// recursive descent for statements and precedence climbing for
// expressions.
package parser

import (
	"hydrogen/src/ast"
	"hydrogen/src/lexer"
	"hydrogen/src/util"
)

// Parser holds the state for a single parse pass over a token slice.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse consumes the full token stream and returns the resulting program,
// or the first util.ParseError encountered.
func Parse(tokens []lexer.Token) (*ast.Program, error) {
	p := &Parser{tokens: tokens}
	prog := &ast.Program{}
	for p.peek().Kind != lexer.EOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

// ---------------------
// ----- Cursor --------
// ---------------------

// peek returns the current token without consuming it.
func (p *Parser) peek() lexer.Token {
	return p.peekAt(0)
}

// peekAt returns the token offset positions ahead of the cursor, or an
// EOF token if that position runs past the end of the stream.
func (p *Parser) peekAt(offset int) lexer.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.tokens[idx]
}

// consume returns the current token and advances the cursor.
func (p *Parser) consume() lexer.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// tryConsume consumes and returns the current token if it has kind k,
// otherwise leaves the cursor untouched and returns ok=false.
func (p *Parser) tryConsume(k lexer.Kind) (lexer.Token, bool) {
	if p.peek().Kind == k {
		return p.consume(), true
	}
	return lexer.Token{}, false
}

// expect consumes a token of kind k or fails with a util.ParseError
// naming what was wanted, reported against the previously consumed
// token's line.
func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	if tok, ok := p.tryConsume(k); ok {
		return tok, nil
	}
	return lexer.Token{}, p.errExpected(k.String())
}

// errExpected builds a util.ParseError reporting msg against the line of
// the token just behind the cursor, matching the convention that a parse
// failure is blamed on the token that should have been followed by what
// was expected.
func (p *Parser) errExpected(msg string) error {
	line := p.peek().Line
	if p.pos > 0 {
		line = p.tokens[p.pos-1].Line
	}
	return util.ParseError{Msg: msg, Line: line}
}

// ---------------------
// ----- Statements ----
// ---------------------

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch {
	case p.peek().Kind == lexer.KwExit && p.peekAt(1).Kind == lexer.LParen:
		return p.parseExitStmt()
	case p.peek().Kind == lexer.KwLet && p.peekAt(1).Kind == lexer.Ident && p.peekAt(2).Kind == lexer.Eq:
		return p.parseLetStmt()
	case p.peek().Kind == lexer.Ident && p.peekAt(1).Kind == lexer.Eq:
		return p.parseAssignStmt()
	case p.peek().Kind == lexer.LBrace:
		return p.parseScopeStmt()
	case p.peek().Kind == lexer.KwIf:
		return p.parseIfStmt()
	case p.peek().Kind == lexer.KwPrint && p.peekAt(1).Kind == lexer.LParen:
		return p.parsePrintStmt()
	default:
		return nil, p.errExpected("statement")
	}
}

func (p *Parser) parseExitStmt() (ast.Stmt, error) {
	line := p.consume().Line // exit
	p.consume()              // (
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return &ast.ExitStmt{Line: line, Expr: expr}, nil
}

func (p *Parser) parseLetStmt() (ast.Stmt, error) {
	line := p.consume().Line // let
	name := p.consume().Lexeme
	p.consume() // =
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return &ast.LetStmt{Line: line, Name: name, Expr: expr}, nil
}

func (p *Parser) parseAssignStmt() (ast.Stmt, error) {
	ident := p.consume()
	p.consume() // =
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Line: ident.Line, Name: ident.Lexeme, Expr: expr}, nil
}

func (p *Parser) parseScopeStmt() (ast.Stmt, error) {
	line := p.peek().Line
	scope, err := p.parseScope()
	if err != nil {
		return nil, err
	}
	return &ast.ScopeStmt{Line: line, Scope: scope}, nil
}

func (p *Parser) parseIfStmt() (ast.Stmt, error) {
	line := p.consume().Line // if
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	then, err := p.parseScope()
	if err != nil {
		return nil, err
	}
	pred, err := p.parseIfPred()
	if err != nil {
		return nil, err
	}
	return &ast.IfStmt{Line: line, Cond: cond, Then: then, Pred: pred}, nil
}

func (p *Parser) parsePrintStmt() (ast.Stmt, error) {
	line := p.consume().Line // print
	p.consume()              // (
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi); err != nil {
		return nil, err
	}
	return &ast.PrintStmt{Line: line, Expr: expr}, nil
}

// parseScope consumes a brace-delimited statement list. The opening brace
// is required at the cursor; an empty scope (consecutive braces) is valid.
func (p *Parser) parseScope() (*ast.Scope, error) {
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	scope := &ast.Scope{}
	for p.peek().Kind != lexer.RBrace && p.peek().Kind != lexer.EOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		scope.Stmts = append(scope.Stmts, stmt)
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return scope, nil
}

// parseIfPred optionally consumes a trailing elif or else clause. It
// returns a nil IfPred, with no error, when neither is present.
func (p *Parser) parseIfPred() (ast.IfPred, error) {
	switch p.peek().Kind {
	case lexer.KwElif:
		line := p.consume().Line
		if _, err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		then, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		pred, err := p.parseIfPred()
		if err != nil {
			return nil, err
		}
		return &ast.ElifPred{Line: line, Cond: cond, Then: then, Pred: pred}, nil
	case lexer.KwElse:
		line := p.consume().Line
		then, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		return &ast.ElsePred{Line: line, Then: then}, nil
	default:
		return nil, nil
	}
}

// ---------------------
// ----- Expressions ---
// ---------------------

// binPrec returns the binding precedence of a binary operator token, and
// whether the token is one at all. Comparisons and +/- share the lower
// level; * and / bind tighter.
func binPrec(k lexer.Kind) (int, bool) {
	switch k {
	case lexer.Plus, lexer.Minus, lexer.Gt, lexer.Ge, lexer.Lt, lexer.Le, lexer.EqEq:
		return 0, true
	case lexer.Star, lexer.Slash:
		return 1, true
	default:
		return 0, false
	}
}

func binOp(k lexer.Kind) ast.BinOp {
	switch k {
	case lexer.Plus:
		return ast.Add
	case lexer.Minus:
		return ast.Sub
	case lexer.Star:
		return ast.Mul
	case lexer.Slash:
		return ast.Div
	case lexer.Gt:
		return ast.Gt
	case lexer.Ge:
		return ast.Ge
	case lexer.Lt:
		return ast.Lt
	case lexer.Le:
		return ast.Le
	case lexer.EqEq:
		return ast.EqEq
	default:
		panic("binOp: not a binary operator token")
	}
}

// parseExpr implements precedence climbing: it parses one term, then
// repeatedly folds in a binary operator and its right-hand side as long
// as the operator's precedence is at least minPrec, recursing with the
// operator's own precedence plus one so that equal-precedence chains
// associate to the left.
func (p *Parser) parseExpr(minPrec int) (ast.Expr, error) {
	lhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	var expr ast.Expr = lhs

	for {
		prec, ok := binPrec(p.peek().Kind)
		if !ok || prec < minPrec {
			break
		}
		opTok := p.consume()
		rhs, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, p.errExpected("expression")
		}
		expr = &ast.BinExpr{Line: opTok.Line, Op: binOp(opTok.Kind), Lhs: expr, Rhs: rhs}
	}
	return expr, nil
}

// parseTerm parses a single term: an int literal, an identifier, a
// parenthesized expression, or a unary-minus'd term.
func (p *Parser) parseTerm() (ast.Term, error) {
	switch p.peek().Kind {
	case lexer.IntLit:
		tok := p.consume()
		return &ast.IntLit{Line: tok.Line, Lexeme: tok.Lexeme}, nil
	case lexer.Ident:
		tok := p.consume()
		return &ast.Ident{Line: tok.Line, Name: tok.Lexeme}, nil
	case lexer.LParen:
		line := p.consume().Line
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, p.errExpected("expression")
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return &ast.Paren{Line: line, Inner: expr}, nil
	case lexer.Minus:
		line := p.consume().Line
		inner, err := p.parseTerm()
		if err != nil {
			return nil, p.errExpected("term after unary '-'")
		}
		return &ast.Neg{Line: line, Term: inner}, nil
	default:
		return nil, p.errExpected("term")
	}
}
