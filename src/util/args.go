package util

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds the parsed command line configuration for a single
// compilation job.
type Options struct {
	Src      string // Path to source file. Empty means read from stdin.
	Out      string // Path to output file. Empty means write to stdout.
	Verbose  bool   // Set true if the compiler should dump tokens and the AST before code generation.
	AST      bool   // Set true if the compiler should dump the parsed AST and exit before code generation.
	EmitLLVM bool   // Set true if the compiler should route through the diagnostic LLVM backend instead of src/codegen.
}

// ---------------------
// ----- Constants -----
// ---------------------

const appVersion = "hydrogen compiler 1.0"

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses command line arguments into an Options value.
func ParseArgs() (Options, error) {
	opt := Options{}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			// Help and usage.
			printHelp()
			os.Exit(0)
		case "-v", "--v", "-version", "--version":
			// Application version.
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			// Verbose mode: dump tokens and the AST before code generation.
			opt.Verbose = true
		case "-ast":
			// Dump the parsed AST and exit before code generation.
			opt.AST = true
		case "-emit-llvm":
			// Route through the diagnostic LLVM backend.
			opt.EmitLLVM = true
		case "-o":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected path to output file, got new flag %s", args[i1+1])
			}
			opt.Out = args[i1+1]
			i1++
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			opt.Src = args[i1]
		}
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-ast\tDump the parsed AST and exit before code generation.")
	_, _ = fmt.Fprintln(w, "-emit-llvm\tRoute through the diagnostic LLVM backend instead of the native x86-64 backend.")
	_, _ = fmt.Fprintln(w, "-o\tPath and name of the output file. Defaults to stdout.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: dump tokens and the AST to stderr before code generation.")
	_ = w.Flush()
}
