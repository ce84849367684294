package parser

import (
	"testing"

	"hydrogen/src/ast"
	"hydrogen/src/lexer"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q) failed: %s", src, err)
	}
	prog, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %s", src, err)
	}
	return prog
}

func TestParseExitLiteral(t *testing.T) {
	prog := mustParse(t, "exit(0);")
	if len(prog.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Stmts))
	}
	stmt, ok := prog.Stmts[0].(*ast.ExitStmt)
	if !ok {
		t.Fatalf("expected *ast.ExitStmt, got %T", prog.Stmts[0])
	}
	lit, ok := stmt.Expr.(*ast.IntLit)
	if !ok || lit.Lexeme != "0" {
		t.Fatalf("expected int_lit 0, got %#v", stmt.Expr)
	}
}

// TestParseMulBindsTighterThanAdd checks that `a + b * c` parses as
// Add(a, Mul(b, c)), not Mul(Add(a, b), c).
func TestParseMulBindsTighterThanAdd(t *testing.T) {
	prog := mustParse(t, "exit(a + b * c);")
	expr := prog.Stmts[0].(*ast.ExitStmt).Expr
	add, ok := expr.(*ast.BinExpr)
	if !ok || add.Op != ast.Add {
		t.Fatalf("expected top-level Add, got %#v", expr)
	}
	if _, ok := add.Lhs.(*ast.Ident); !ok {
		t.Fatalf("expected lhs to be a bare identifier, got %#v", add.Lhs)
	}
	mul, ok := add.Rhs.(*ast.BinExpr)
	if !ok || mul.Op != ast.Mul {
		t.Fatalf("expected rhs to be Mul, got %#v", add.Rhs)
	}
}

// TestParseSubIsLeftAssociative checks that `a - b - c` parses as
// Sub(Sub(a, b), c).
func TestParseSubIsLeftAssociative(t *testing.T) {
	prog := mustParse(t, "exit(a - b - c);")
	expr := prog.Stmts[0].(*ast.ExitStmt).Expr
	outer, ok := expr.(*ast.BinExpr)
	if !ok || outer.Op != ast.Sub {
		t.Fatalf("expected top-level Sub, got %#v", expr)
	}
	inner, ok := outer.Lhs.(*ast.BinExpr)
	if !ok || inner.Op != ast.Sub {
		t.Fatalf("expected lhs to be Sub, got %#v", outer.Lhs)
	}
	if _, ok := outer.Rhs.(*ast.Ident); !ok {
		t.Fatalf("expected rhs to be a bare identifier, got %#v", outer.Rhs)
	}
}

func TestParseUnaryMinusOnTerm(t *testing.T) {
	prog := mustParse(t, "exit(-a * b);")
	expr := prog.Stmts[0].(*ast.ExitStmt).Expr
	mul, ok := expr.(*ast.BinExpr)
	if !ok || mul.Op != ast.Mul {
		t.Fatalf("expected top-level Mul, got %#v", expr)
	}
	if _, ok := mul.Lhs.(*ast.Neg); !ok {
		t.Fatalf("expected lhs to be Neg, got %#v", mul.Lhs)
	}
}

func TestParseIfElifElse(t *testing.T) {
	prog := mustParse(t, "if (a > b) { print(a); } elif (a == b) { print(b); } else { exit(1); }")
	stmt, ok := prog.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", prog.Stmts[0])
	}
	elif, ok := stmt.Pred.(*ast.ElifPred)
	if !ok {
		t.Fatalf("expected *ast.ElifPred, got %T", stmt.Pred)
	}
	if _, ok := elif.Pred.(*ast.ElsePred); !ok {
		t.Fatalf("expected *ast.ElsePred, got %T", elif.Pred)
	}
}

func TestParseMissingSemicolonIsError(t *testing.T) {
	toks, err := lexer.Lex("let x = 5")
	if err != nil {
		t.Fatalf("Lex failed: %s", err)
	}
	if _, err := Parse(toks); err == nil {
		t.Fatalf("expected a parse error for a missing semicolon, got none")
	}
}

func TestParseUnopenedScopeIsError(t *testing.T) {
	toks, err := lexer.Lex("if (a) print(a); }")
	if err != nil {
		t.Fatalf("Lex failed: %s", err)
	}
	if _, err := Parse(toks); err == nil {
		t.Fatalf("expected a parse error for a missing scope, got none")
	}
}
