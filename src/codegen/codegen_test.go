package codegen

import (
	"strings"
	"testing"

	"hydrogen/src/lexer"
	"hydrogen/src/parser"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q) failed: %s", src, err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %s", src, err)
	}
	asm, err := Generate(prog)
	if err != nil {
		t.Fatalf("Generate(%q) failed: %s", src, err)
	}
	return asm
}

func TestGenerateExitLiteral(t *testing.T) {
	asm := generate(t, "exit(42);")
	if !strings.Contains(asm, "mov rax, 42") {
		t.Errorf("expected literal 42 to be moved into rax, got:\n%s", asm)
	}
	if !strings.Contains(asm, "mov rax, 60") {
		t.Errorf("expected the exit syscall number 60 to be loaded, got:\n%s", asm)
	}
	if !strings.Contains(asm, "syscall") {
		t.Errorf("expected a syscall instruction, got:\n%s", asm)
	}
}

func TestGenerateArithmeticPrecedence(t *testing.T) {
	asm := generate(t, "let x = 2; let y = 3; exit(x + y * 4);")
	if !strings.Contains(asm, "mul rbx") {
		t.Errorf("expected a mul instruction for y * 4, got:\n%s", asm)
	}
	if !strings.Contains(asm, "add rax, rbx") {
		t.Errorf("expected an add instruction, got:\n%s", asm)
	}
}

func TestGenerateDivisionClearsRdx(t *testing.T) {
	asm := generate(t, "exit(10 / 2);")
	idx := strings.Index(asm, "div rbx")
	if idx == -1 {
		t.Fatalf("expected a div instruction, got:\n%s", asm)
	}
	if !strings.Contains(asm[:idx], "xor rdx, rdx") {
		t.Errorf("expected rdx to be cleared before div, got:\n%s", asm)
	}
}

func TestGenerateComparisonUsesSetCC(t *testing.T) {
	asm := generate(t, "if (1 > 0) { exit(1); }")
	if !strings.Contains(asm, "setg al") {
		t.Errorf("expected a setg instruction for '>', got:\n%s", asm)
	}
}

func TestGenerateIfElifElse(t *testing.T) {
	asm := generate(t, "let x = 1; if (x > 1) { exit(1); } elif (x == 1) { exit(2); } else { exit(3); }")
	if !strings.Contains(asm, ";; elif") {
		t.Errorf("expected an elif marker, got:\n%s", asm)
	}
	if strings.Count(asm, "jz") < 2 {
		t.Errorf("expected at least two conditional jumps for an if/elif chain, got:\n%s", asm)
	}
}

func TestGeneratePrintCallsPrintInt(t *testing.T) {
	asm := generate(t, "print(7);")
	if !strings.Contains(asm, "call print_int") {
		t.Errorf("expected a call to print_int, got:\n%s", asm)
	}
	if !strings.Contains(asm, "print_int:") {
		t.Errorf("expected the print_int routine to be emitted, got:\n%s", asm)
	}
}

func TestGenerateScopeReleasesLocalsInOneInstruction(t *testing.T) {
	asm := generate(t, "{ let a = 1; let b = 2; }")
	if !strings.Contains(asm, "add rsp, 16") {
		t.Errorf("expected a single stack-pointer adjustment releasing both locals, got:\n%s", asm)
	}
}

func TestGenerateUndeclaredIdentifierIsError(t *testing.T) {
	toks, err := lexer.Lex("exit(x);")
	if err != nil {
		t.Fatalf("Lex failed: %s", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	_, err = Generate(prog)
	if err == nil {
		t.Fatalf("expected an undeclared identifier error, got none")
	}
	if err.Error() != "Undeclared identifier: x" {
		t.Errorf("expected %q, got %q", "Undeclared identifier: x", err.Error())
	}
}

func TestGenerateRedeclaredIdentifierIsError(t *testing.T) {
	toks, err := lexer.Lex("let x = 1; let x = 2;")
	if err != nil {
		t.Fatalf("Lex failed: %s", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	_, err = Generate(prog)
	if err == nil {
		t.Fatalf("expected a redeclared identifier error, got none")
	}
	if err.Error() != "Identifier already used: x" {
		t.Errorf("expected %q, got %q", "Identifier already used: x", err.Error())
	}
}

// TestGenerateNestedLetShadowsLiveOuterName checks that redeclaring a name
// in a nested scope shadows, rather than conflicts with, a binding of the
// same name that is still live in an enclosing scope: redeclaration is
// checked per scope, not against the whole live table.
func TestGenerateNestedLetShadowsLiveOuterName(t *testing.T) {
	asm := generate(t, "let a = 10; { let a = 1; } exit(a);")
	if !strings.Contains(asm, "mov rax, 10") {
		t.Errorf("expected the outer a's literal 10 to be moved into rax, got:\n%s", asm)
	}
}

// TestGenerateSameScopeRedeclareIsStillRejected checks that shadowing is
// only permitted across a scope boundary: redeclaring a name a second time
// within the same scope is still an error.
func TestGenerateSameScopeRedeclareIsStillRejected(t *testing.T) {
	toks, err := lexer.Lex("{ let y = 2; let y = 3; }")
	if err != nil {
		t.Fatalf("Lex failed: %s", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	_, err = Generate(prog)
	if err == nil {
		t.Fatalf("expected a same-scope redeclaration to be rejected")
	}
	if err.Error() != "Identifier already used: y" {
		t.Errorf("expected %q, got %q", "Identifier already used: y", err.Error())
	}
}

// TestGenerateNameUsableAgainAfterEnclosingScopeEnds checks that once a
// scope exits and its locals are released, its names become free again.
func TestGenerateNameUsableAgainAfterEnclosingScopeEnds(t *testing.T) {
	generate(t, "{ let x = 1; } let x = 2; exit(x);")
}
