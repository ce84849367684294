package main

import (
	"fmt"
	"os"

	"hydrogen/src/ast"
	"hydrogen/src/codegen"
	"hydrogen/src/lexer"
	"hydrogen/src/llvmdump"
	"hydrogen/src/parser"
	"hydrogen/src/util"
)

func main() {
	// Parse command line arguments.
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Command line argument error: %s\n", err)
		os.Exit(1)
	}

	// Read source code.
	src, err := util.ReadSource(opt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not read source code: %s\n", err)
		os.Exit(1)
	}

	// Lex source code into a token stream.
	toks, err := lexer.Lex(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Syntax error: %s\n", err)
		os.Exit(1)
	}

	if opt.Verbose {
		dumpTokens(toks)
	}

	// Parse the token stream into a syntax tree.
	prog, err := parser.Parse(toks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	if opt.Verbose {
		ast.Dump(os.Stderr, prog)
	}

	if opt.AST {
		ast.Dump(os.Stdout, prog)
		os.Exit(0)
	}

	if opt.EmitLLVM {
		ir, err := llvmdump.Dump(prog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reported by LLVM backend: %s\n", err)
			os.Exit(1)
		}
		if err := writeOutput(opt, ir); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write output: %s\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Generate assembly from the syntax tree.
	asm, err := codegen.Generate(prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	if err := writeOutput(opt, asm); err != nil {
		fmt.Fprintf(os.Stderr, "Could not write output: %s\n", err)
		os.Exit(1)
	}
}

// writeOutput writes text to opt.Out, or to stdout if no output path was
// given.
func writeOutput(opt util.Options, text string) error {
	if len(opt.Out) == 0 {
		_, err := fmt.Print(text)
		return err
	}
	f, err := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(text)
	return err
}

// dumpTokens writes a column-aligned token listing to stderr, in the verbose
// (-vb) dump format.
func dumpTokens(toks []lexer.Token) {
	for _, t := range toks {
		lexeme := t.Lexeme
		if lexeme == "" {
			lexeme = "-"
		}
		fmt.Fprintf(os.Stderr, "%-12s %-14s line %d\n", lexeme, t.Kind, t.Line)
	}
}
