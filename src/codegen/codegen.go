// Package codegen lowers an *ast.Program into freestanding x86-64 assembly
// in Intel/NASM syntax, targeting the Linux kernel ABI directly: every
// exit, and the print routine's writes, go through raw syscalls, and the
// emitted file never links against libc.
package codegen

import (
	"fmt"

	"hydrogen/src/ast"
	"hydrogen/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// variable records a named local's slot within the virtual stack, counted
// in machine words from the bottom of the stack.
type variable struct {
	name     string
	stackLoc int
}

// Generator walks a program's statements once, in order, emitting one
// instruction at a time. It tracks the virtual stack depth, the live
// variable table, and a stack of scope marks so a scope exit can pop every
// local declared within it in a single instruction.
type Generator struct {
	w         util.Writer
	labeler   util.Labeler
	stackSize int
	vars      []variable
	scopes    util.Stack[int]
}

// ---------------------
// ----- Functions -----
// ---------------------

// Generate lowers prog to assembly text, or returns the first
// util.CodegenError encountered (an undeclared identifier or a
// redeclaration within the currently open scope).
func Generate(prog *ast.Program) (string, error) {
	g := &Generator{}
	g.w.Raw("global _start\n_start:\n")
	for _, stmt := range prog.Stmts {
		if err := g.genStmt(stmt); err != nil {
			return "", err
		}
	}
	g.w.Ins2("mov", "rax", "60")
	g.w.Ins2("mov", "rdi", "0")
	g.w.Ins0("syscall")
	g.w.Raw(printIntRoutine)
	return g.w.String(), nil
}

// ---------------------
// ----- Statements ----
// ---------------------

func (g *Generator) genStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.ExitStmt:
		return g.genExitStmt(s)
	case *ast.LetStmt:
		return g.genLetStmt(s)
	case *ast.AssignStmt:
		return g.genAssignStmt(s)
	case *ast.ScopeStmt:
		g.w.Raw("\t;; scope\n")
		if err := g.genScope(s.Scope); err != nil {
			return err
		}
		g.w.Raw("\t;; /scope\n")
		return nil
	case *ast.IfStmt:
		return g.genIfStmt(s)
	case *ast.PrintStmt:
		return g.genPrintStmt(s)
	default:
		return fmt.Errorf("codegen: unhandled statement type %T", s)
	}
}

func (g *Generator) genExitStmt(s *ast.ExitStmt) error {
	if err := g.genExpr(s.Expr); err != nil {
		return err
	}
	g.w.Ins2("mov", "rax", "60")
	g.pop("rdi")
	g.w.Ins0("syscall")
	return nil
}

func (g *Generator) genLetStmt(s *ast.LetStmt) error {
	if g.findVarInScope(s.Name) != nil {
		return util.ErrRedeclared(s.Name)
	}
	g.vars = append(g.vars, variable{name: s.Name, stackLoc: g.stackSize})
	return g.genExpr(s.Expr)
}

func (g *Generator) genAssignStmt(s *ast.AssignStmt) error {
	v := g.findVar(s.Name)
	if v == nil {
		return util.ErrUndeclared(s.Name)
	}
	if err := g.genExpr(s.Expr); err != nil {
		return err
	}
	g.pop("rax")
	g.w.Ins2("mov", g.slot(v.stackLoc), "rax")
	return nil
}

func (g *Generator) genPrintStmt(s *ast.PrintStmt) error {
	if err := g.genExpr(s.Expr); err != nil {
		return err
	}
	g.pop("rdi")
	g.w.Ins1("call", "print_int")
	return nil
}

func (g *Generator) genIfStmt(s *ast.IfStmt) error {
	if err := g.genExpr(s.Cond); err != nil {
		return err
	}
	g.pop("rax")
	skip := g.labeler.New()
	g.w.Ins2("test", "rax", "rax")
	g.w.Ins1("jz", skip)
	if err := g.genScope(s.Then); err != nil {
		return err
	}

	if s.Pred != nil {
		end := g.labeler.New()
		g.w.Ins1("jmp", end)
		g.w.Label(skip)
		if err := g.genIfPred(s.Pred, end); err != nil {
			return err
		}
		g.w.Label(end)
	} else {
		g.w.Label(skip)
	}
	return nil
}

func (g *Generator) genIfPred(pred ast.IfPred, end string) error {
	switch p := pred.(type) {
	case *ast.ElifPred:
		g.w.Raw("\t;; elif\n")
		if err := g.genExpr(p.Cond); err != nil {
			return err
		}
		g.pop("rax")
		skip := g.labeler.New()
		g.w.Ins2("test", "rax", "rax")
		g.w.Ins1("jz", skip)
		if err := g.genScope(p.Then); err != nil {
			return err
		}
		g.w.Ins1("jmp", end)
		if p.Pred != nil {
			g.w.Label(skip)
			return g.genIfPred(p.Pred, end)
		}
		g.w.Label(skip)
		return nil
	case *ast.ElsePred:
		return g.genScope(p.Then)
	default:
		return fmt.Errorf("codegen: unhandled if-predicate type %T", p)
	}
}

// genScope pushes a new scope mark, generates every statement within it,
// then releases every local declared since the mark with a single
// stack-pointer adjustment rather than one pop per variable.
func (g *Generator) genScope(scope *ast.Scope) error {
	g.scopes.Push(len(g.vars))
	for _, stmt := range scope.Stmts {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	mark := g.scopes.Pop()
	popCount := len(g.vars) - mark
	if popCount > 0 {
		g.w.Ins2("add", "rsp", fmt.Sprintf("%d", popCount*8))
	}
	g.stackSize -= popCount
	g.vars = g.vars[:mark]
	return nil
}

// ----------------------
// ----- Expressions -----
// ----------------------

func (g *Generator) genExpr(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.BinExpr:
		return g.genBinExpr(e)
	case ast.Term:
		return g.genTerm(e)
	default:
		return fmt.Errorf("codegen: unhandled expression type %T", e)
	}
}

func (g *Generator) genTerm(term ast.Term) error {
	switch t := term.(type) {
	case *ast.IntLit:
		g.w.Ins2("mov", "rax", t.Lexeme)
		g.push("rax")
		return nil
	case *ast.Ident:
		v := g.findVar(t.Name)
		if v == nil {
			return util.ErrUndeclared(t.Name)
		}
		g.push(g.slot(v.stackLoc))
		return nil
	case *ast.Neg:
		if err := g.genTerm(t.Term); err != nil {
			return err
		}
		g.pop("rax")
		g.w.Ins1("neg", "rax")
		g.push("rax")
		return nil
	case *ast.Paren:
		return g.genExpr(t.Inner)
	default:
		return fmt.Errorf("codegen: unhandled term type %T", t)
	}
}

// genBinExpr lowers a binary operator, pushing its result back onto the
// virtual stack. Evaluation order matches the grammar's intent rather
// than C's left-to-right rule: +, -, *, / evaluate their right operand
// first, while the comparisons evaluate their left operand first — each
// operator only cares that both halves land in rax/rbx in the order its
// instruction needs, not which one the CPU touches first.
func (g *Generator) genBinExpr(e *ast.BinExpr) error {
	switch e.Op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div:
		if err := g.genExpr(e.Rhs); err != nil {
			return err
		}
		if err := g.genExpr(e.Lhs); err != nil {
			return err
		}
		g.pop("rax")
		g.pop("rbx")
		switch e.Op {
		case ast.Add:
			g.w.Ins2("add", "rax", "rbx")
		case ast.Sub:
			g.w.Ins2("sub", "rax", "rbx")
		case ast.Mul:
			g.w.Ins1("mul", "rbx")
		case ast.Div:
			g.w.Ins2("xor", "rdx", "rdx")
			g.w.Ins1("div", "rbx")
		}
		g.push("rax")
		return nil
	default:
		if err := g.genExpr(e.Lhs); err != nil {
			return err
		}
		if err := g.genExpr(e.Rhs); err != nil {
			return err
		}
		g.pop("rbx")
		g.pop("rax")
		g.w.Ins2("cmp", "rax", "rbx")
		set, ok := setInstr[e.Op]
		if !ok {
			return fmt.Errorf("codegen: unhandled comparison operator %v", e.Op)
		}
		g.w.Ins1(set, "al")
		g.w.Ins2("movzx", "rax", "al")
		g.push("rax")
		return nil
	}
}

var setInstr = map[ast.BinOp]string{
	ast.Gt:   "setg",
	ast.Ge:   "setge",
	ast.Lt:   "setl",
	ast.Le:   "setle",
	ast.EqEq: "sete",
}

// ---------------------
// ----- Helpers -------
// ---------------------

func (g *Generator) push(reg string) {
	g.w.Ins1("push", reg)
	g.stackSize++
}

func (g *Generator) pop(reg string) {
	g.w.Ins1("pop", reg)
	g.stackSize--
}

// findVar resolves a reference to name, searching the whole live variable
// table from the most recent declaration backward so an inner scope's
// shadow of an outer name takes precedence.
func (g *Generator) findVar(name string) *variable {
	for i := len(g.vars) - 1; i >= 0; i-- {
		if g.vars[i].name == name {
			return &g.vars[i]
		}
	}
	return nil
}

// findVarInScope reports whether name is already declared in the
// currently open scope only: redeclaration is checked per scope, not
// against the whole live table, so a nested `let` may shadow a name that
// is still live in an enclosing scope.
func (g *Generator) findVarInScope(name string) *variable {
	mark := 0
	if g.scopes.Len() > 0 {
		mark = g.scopes.Peek()
	}
	for i := len(g.vars) - 1; i >= mark; i-- {
		if g.vars[i].name == name {
			return &g.vars[i]
		}
	}
	return nil
}

// slot renders the stack-relative operand for the variable at stackLoc,
// given the current virtual stack depth.
func (g *Generator) slot(stackLoc int) string {
	offset := (g.stackSize - stackLoc - 1) * 8
	return fmt.Sprintf("QWORD [rsp + %d]", offset)
}

// printIntRoutine writes a signed 64-bit integer, held in rdi at call
// time, to stdout in decimal followed by a newline, using only raw write
// syscalls. It divides unsigned by 10 after negating rdi up front for
// negative inputs, since an unsigned divide with a sign already peeled off
// is simpler than threading sign handling through the digit loop.
const printIntRoutine = `
print_int:
	push rbp
	mov rbp, rsp
	sub rsp, 32
	test rdi, rdi
	jns .positive
	mov byte [rsp], '-'
	mov rax, 1
	mov rsi, rsp
	mov rdx, 1
	push rdi
	mov rdi, 1
	syscall
	pop rdi
	neg rdi
.positive:
	test rdi, rdi
	jnz .non_zero
	mov byte [rsp], '0'
	mov rsi, rsp
	mov rcx, 1
	jmp .print
.non_zero:
	mov rax, rdi
	lea rsi, [rsp+31]
	mov rcx, 0
.convert_loop:
	xor rdx, rdx
	mov r10, 10
	div r10
	add dl, '0'
	dec rsi
	mov [rsi], dl
	inc rcx
	test rax, rax
	jnz .convert_loop
.print:
	mov rax, 1
	mov rdi, 1
	mov rdx, rcx
	syscall
	mov byte [rsp], 10
	mov rax, 1
	mov rdi, 1
	mov rsi, rsp
	mov rdx, 1
	syscall
	mov rsp, rbp
	pop rbp
	ret
`
