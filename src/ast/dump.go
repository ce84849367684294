package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented, line-oriented rendering of prog to w, for the
// -ast flag: one node per line, children indented two spaces under their
// parent. An if statement's elif/else clauses are printed at the if's own
// depth rather than under it.
func Dump(w io.Writer, prog *Program) {
	for _, stmt := range prog.Stmts {
		dumpStmt(w, stmt, 0)
	}
}

func indent(w io.Writer, depth int) {
	_, _ = fmt.Fprint(w, strings.Repeat("  ", depth))
}

func dumpStmt(w io.Writer, stmt Stmt, depth int) {
	indent(w, depth)
	switch s := stmt.(type) {
	case *ExitStmt:
		_, _ = fmt.Fprintf(w, "Exit (line %d)\n", s.Line)
		dumpExpr(w, s.Expr, depth+1)
	case *LetStmt:
		_, _ = fmt.Fprintf(w, "Let %s (line %d)\n", s.Name, s.Line)
		dumpExpr(w, s.Expr, depth+1)
	case *AssignStmt:
		_, _ = fmt.Fprintf(w, "Assign %s (line %d)\n", s.Name, s.Line)
		dumpExpr(w, s.Expr, depth+1)
	case *ScopeStmt:
		_, _ = fmt.Fprintf(w, "Scope (line %d)\n", s.Line)
		dumpScope(w, s.Scope, depth+1)
	case *IfStmt:
		_, _ = fmt.Fprintf(w, "If (line %d)\n", s.Line)
		dumpExpr(w, s.Cond, depth+1)
		dumpScope(w, s.Then, depth+1)
		if s.Pred != nil {
			dumpIfPred(w, s.Pred, depth)
		}
	case *PrintStmt:
		_, _ = fmt.Fprintf(w, "Print (line %d)\n", s.Line)
		dumpExpr(w, s.Expr, depth+1)
	default:
		_, _ = fmt.Fprintf(w, "<unknown statement %T>\n", s)
	}
}

func dumpScope(w io.Writer, scope *Scope, depth int) {
	for _, stmt := range scope.Stmts {
		dumpStmt(w, stmt, depth)
	}
}

func dumpIfPred(w io.Writer, pred IfPred, depth int) {
	indent(w, depth)
	switch p := pred.(type) {
	case *ElifPred:
		_, _ = fmt.Fprintf(w, "Elif (line %d)\n", p.Line)
		dumpExpr(w, p.Cond, depth+1)
		dumpScope(w, p.Then, depth+1)
		if p.Pred != nil {
			dumpIfPred(w, p.Pred, depth)
		}
	case *ElsePred:
		_, _ = fmt.Fprintf(w, "Else (line %d)\n", p.Line)
		dumpScope(w, p.Then, depth+1)
	default:
		_, _ = fmt.Fprintf(w, "<unknown predicate %T>\n", p)
	}
}

func dumpExpr(w io.Writer, expr Expr, depth int) {
	indent(w, depth)
	switch e := expr.(type) {
	case *BinExpr:
		_, _ = fmt.Fprintf(w, "BinExpr %s (line %d)\n", e.Op, e.Line)
		dumpExpr(w, e.Lhs, depth+1)
		dumpExpr(w, e.Rhs, depth+1)
	case *IntLit:
		_, _ = fmt.Fprintf(w, "IntLit %s (line %d)\n", e.Lexeme, e.Line)
	case *Ident:
		_, _ = fmt.Fprintf(w, "Ident %s (line %d)\n", e.Name, e.Line)
	case *Paren:
		_, _ = fmt.Fprintf(w, "Paren (line %d)\n", e.Line)
		dumpExpr(w, e.Inner, depth+1)
	case *Neg:
		_, _ = fmt.Fprintf(w, "Neg (line %d)\n", e.Line)
		dumpExpr(w, e.Term, depth+1)
	default:
		_, _ = fmt.Fprintf(w, "<unknown expression %T>\n", e)
	}
}
