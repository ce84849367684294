// Package llvmdump is a diagnostic alternate backend: instead of emitting
// freestanding x86-64 assembly, it lowers a program straight to LLVM IR
// using tinygo.org/x/go-llvm, for comparing codegen.Generator's output
// against what a standard compiler backend would produce for the same
// tree. It declares printf and exit as hosted externals, since LLVM IR
// has no notion of a bare syscall the way the native backend does.
package llvmdump

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"hydrogen/src/ast"
)

// i64 is the integer type used for every value in the language: there is
// no type system to speak of, so one width suffices.
var i64 = llvm.Int64Type()

// variable records where a name's value lives: the stack slot allocated
// for it by CreateAlloca.
type variable struct {
	name string
	addr llvm.Value
}

// generator mirrors codegen.Generator's scope-stack symbol table, but
// drives the LLVM builder instead of a text buffer.
type generator struct {
	b      llvm.Builder
	fn     llvm.Value
	vars   []variable
	scopes []int
	printf llvm.Value
	exitFn llvm.Value
}

// Dump lowers prog to an LLVM IR module and returns its textual
// representation.
func Dump(prog *ast.Program) (string, error) {
	ctx := llvm.NewContext()
	b := ctx.NewBuilder()
	m := ctx.NewModule("hydrogen")

	printfType := llvm.FunctionType(llvm.Int32Type(), []llvm.Type{llvm.PointerType(llvm.Int8Type(), 0)}, true)
	printf := llvm.AddFunction(m, "printf", printfType)

	exitType := llvm.FunctionType(ctx.VoidType(), []llvm.Type{i64}, false)
	exitFn := llvm.AddFunction(m, "exit", exitType)

	mainType := llvm.FunctionType(i64, []llvm.Type{}, false)
	mainFn := llvm.AddFunction(m, "main", mainType)
	entry := llvm.AddBasicBlock(mainFn, "entry")
	b.SetInsertPointAtEnd(entry)

	g := &generator{b: b, fn: mainFn, printf: printf, exitFn: exitFn}
	terminated := false
	for _, stmt := range prog.Stmts {
		var err error
		terminated, err = g.genStmt(stmt)
		if err != nil {
			return "", err
		}
		if terminated {
			break
		}
	}
	if !terminated {
		b.CreateRet(llvm.ConstInt(i64, 0, false))
	}

	return m.String(), nil
}

// genStmt lowers a single statement and reports whether it terminated the
// current basic block (an *ast.ExitStmt, or a scope/if-chain every branch
// of which did): callers must not emit anything into the block, including
// a branch to a continuation block, once terminated is true.
func (g *generator) genStmt(stmt ast.Stmt) (terminated bool, err error) {
	switch s := stmt.(type) {
	case *ast.ExitStmt:
		v, err := g.genExpr(s.Expr)
		if err != nil {
			return false, err
		}
		g.b.CreateCall(g.exitFn, []llvm.Value{v}, "")
		g.b.CreateUnreachable()
		return true, nil
	case *ast.LetStmt:
		v, err := g.genExpr(s.Expr)
		if err != nil {
			return false, err
		}
		addr := g.b.CreateAlloca(i64, s.Name)
		g.b.CreateStore(v, addr)
		g.vars = append(g.vars, variable{name: s.Name, addr: addr})
		return false, nil
	case *ast.AssignStmt:
		v, err := g.genExpr(s.Expr)
		if err != nil {
			return false, err
		}
		vr := g.findVar(s.Name)
		if vr == nil {
			return false, fmt.Errorf("undeclared identifier: %s", s.Name)
		}
		g.b.CreateStore(v, vr.addr)
		return false, nil
	case *ast.ScopeStmt:
		return g.genScope(s.Scope)
	case *ast.IfStmt:
		return g.genIfStmt(s)
	case *ast.PrintStmt:
		if err := g.genPrintStmt(s); err != nil {
			return false, err
		}
		return false, nil
	default:
		return false, fmt.Errorf("llvmdump: unhandled statement type %T", s)
	}
}

func (g *generator) genPrintStmt(s *ast.PrintStmt) error {
	v, err := g.genExpr(s.Expr)
	if err != nil {
		return err
	}
	fstr := g.b.CreateGlobalStringPtr("%lld\n", ".fmt")
	g.b.CreateCall(g.printf, []llvm.Value{fstr, v}, "")
	return nil
}

// genIfStmt lowers an if/elif/else chain and reports whether every branch
// (then, and the elif/else tail if present) terminated on its own, which
// makes the whole statement terminated too. A branch only gets a trailing
// CreateBr into the continuation block when it did not already terminate
// itself (e.g. every path through it ended in exit()): a block may carry
// exactly one terminator, so a branch that already emitted one must not
// get a second.
func (g *generator) genIfStmt(s *ast.IfStmt) (terminated bool, err error) {
	cond, err := g.genExpr(s.Cond)
	if err != nil {
		return false, err
	}
	boolCond := g.b.CreateICmp(llvm.IntNE, cond, llvm.ConstInt(i64, 0, false), "")

	thenBB := llvm.AddBasicBlock(g.fn, "then")
	elseBB := llvm.AddBasicBlock(g.fn, "else")
	contBB := llvm.AddBasicBlock(g.fn, "cont")
	g.b.CreateCondBr(boolCond, thenBB, elseBB)

	g.b.SetInsertPointAtEnd(thenBB)
	thenTerm, err := g.genScope(s.Then)
	if err != nil {
		return false, err
	}
	if !thenTerm {
		g.b.CreateBr(contBB)
	}

	g.b.SetInsertPointAtEnd(elseBB)
	elseTerm := false
	if s.Pred != nil {
		elseTerm, err = g.genIfPred(s.Pred, contBB)
		if err != nil {
			return false, err
		}
	}
	if !elseTerm {
		g.b.CreateBr(contBB)
	}

	g.b.SetInsertPointAtEnd(contBB)
	if thenTerm && elseTerm {
		// No branch feeds cont; it would otherwise be left with no
		// terminator of its own, which is invalid IR even for a block
		// with no predecessors.
		g.b.CreateUnreachable()
		return true, nil
	}
	return false, nil
}

// genIfPred lowers an elif/else tail and reports whether every path
// through it terminated the block it ran in, so genIfStmt (and a calling
// elif frame) knows whether a trailing branch into cont is still needed.
func (g *generator) genIfPred(pred ast.IfPred, cont llvm.BasicBlock) (terminated bool, err error) {
	switch p := pred.(type) {
	case *ast.ElifPred:
		cond, err := g.genExpr(p.Cond)
		if err != nil {
			return false, err
		}
		boolCond := g.b.CreateICmp(llvm.IntNE, cond, llvm.ConstInt(i64, 0, false), "")

		thenBB := llvm.AddBasicBlock(g.fn, "elif.then")
		elseBB := llvm.AddBasicBlock(g.fn, "elif.else")
		g.b.CreateCondBr(boolCond, thenBB, elseBB)

		g.b.SetInsertPointAtEnd(thenBB)
		thenTerm, err := g.genScope(p.Then)
		if err != nil {
			return false, err
		}
		if !thenTerm {
			g.b.CreateBr(cont)
		}

		g.b.SetInsertPointAtEnd(elseBB)
		if p.Pred != nil {
			tailTerm, err := g.genIfPred(p.Pred, cont)
			if err != nil {
				return false, err
			}
			if tailTerm && !thenTerm {
				// The tail's block is closed, but this then-branch still
				// reaches cont: hand the caller an empty block to close
				// with its own branch, so cont is not taken as unreachable.
				g.b.SetInsertPointAtEnd(llvm.AddBasicBlock(g.fn, "elif.join"))
				return false, nil
			}
			return tailTerm, nil
		}
		return false, nil
	case *ast.ElsePred:
		return g.genScope(p.Then)
	default:
		return false, fmt.Errorf("llvmdump: unhandled if-predicate type %T", p)
	}
}

// genScope lowers every statement in scope in order and reports whether
// the last one terminated the block, which callers use to decide whether
// a trailing branch out of the scope is still reachable.
func (g *generator) genScope(scope *ast.Scope) (terminated bool, err error) {
	g.scopes = append(g.scopes, len(g.vars))
	for _, stmt := range scope.Stmts {
		terminated, err = g.genStmt(stmt)
		if err != nil {
			return false, err
		}
		if terminated {
			// Nothing past this point is reachable, and the current
			// block already carries its terminator: stop rather than
			// try to insert further instructions into it.
			break
		}
	}
	mark := g.scopes[len(g.scopes)-1]
	g.scopes = g.scopes[:len(g.scopes)-1]
	g.vars = g.vars[:mark]
	return terminated, nil
}

func (g *generator) genExpr(expr ast.Expr) (llvm.Value, error) {
	switch e := expr.(type) {
	case *ast.BinExpr:
		return g.genBinExpr(e)
	case *ast.IntLit:
		return g.genIntLit(e)
	case *ast.Ident:
		return g.genIdent(e)
	case *ast.Neg:
		v, err := g.genTerm(e.Term)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.b.CreateSub(llvm.ConstInt(i64, 0, true), v, ""), nil
	case *ast.Paren:
		return g.genExpr(e.Inner)
	default:
		return llvm.Value{}, fmt.Errorf("llvmdump: unhandled expression type %T", e)
	}
}

func (g *generator) genTerm(term ast.Term) (llvm.Value, error) {
	return g.genExpr(term)
}

func (g *generator) genIntLit(lit *ast.IntLit) (llvm.Value, error) {
	var n int64
	if _, err := fmt.Sscanf(lit.Lexeme, "%d", &n); err != nil {
		return llvm.Value{}, fmt.Errorf("llvmdump: malformed int literal %q", lit.Lexeme)
	}
	return llvm.ConstInt(i64, uint64(n), true), nil
}

func (g *generator) genIdent(id *ast.Ident) (llvm.Value, error) {
	v := g.findVar(id.Name)
	if v == nil {
		return llvm.Value{}, fmt.Errorf("undeclared identifier: %s", id.Name)
	}
	return g.b.CreateLoad(i64, v.addr, ""), nil
}

func (g *generator) genBinExpr(e *ast.BinExpr) (llvm.Value, error) {
	lhs, err := g.genExpr(e.Lhs)
	if err != nil {
		return llvm.Value{}, err
	}
	rhs, err := g.genExpr(e.Rhs)
	if err != nil {
		return llvm.Value{}, err
	}
	switch e.Op {
	case ast.Add:
		return g.b.CreateAdd(lhs, rhs, ""), nil
	case ast.Sub:
		return g.b.CreateSub(lhs, rhs, ""), nil
	case ast.Mul:
		return g.b.CreateMul(lhs, rhs, ""), nil
	case ast.Div:
		return g.b.CreateSDiv(lhs, rhs, ""), nil
	case ast.Gt:
		return g.extBool(g.b.CreateICmp(llvm.IntSGT, lhs, rhs, "")), nil
	case ast.Ge:
		return g.extBool(g.b.CreateICmp(llvm.IntSGE, lhs, rhs, "")), nil
	case ast.Lt:
		return g.extBool(g.b.CreateICmp(llvm.IntSLT, lhs, rhs, "")), nil
	case ast.Le:
		return g.extBool(g.b.CreateICmp(llvm.IntSLE, lhs, rhs, "")), nil
	case ast.EqEq:
		return g.extBool(g.b.CreateICmp(llvm.IntEQ, lhs, rhs, "")), nil
	default:
		return llvm.Value{}, fmt.Errorf("llvmdump: unhandled binary operator %v", e.Op)
	}
}

// extBool widens an i1 comparison result to i64, since the language has
// no boolean type of its own: every value, including a condition, is a
// 64-bit integer.
func (g *generator) extBool(cmp llvm.Value) llvm.Value {
	return g.b.CreateZExt(cmp, i64, "")
}

func (g *generator) findVar(name string) *variable {
	for i := len(g.vars) - 1; i >= 0; i-- {
		if g.vars[i].name == name {
			return &g.vars[i]
		}
	}
	return nil
}
