package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `stage0 - A small language that compiles to x86-64 assembly

Usage:
    stage0 <command> [arguments]

Commands:
    run <file>      Compile and execute a .s0 file
    build <file>    Compile a .s0 file to a native executable
    asm <file>      Print the generated NASM assembly
    eval <code>     Compile and execute inline stage0 code
    check <file>    Parse and type-check a .s0 file
    help            Show this help message

Examples:
    stage0 run examples/hello.s0
    stage0 build -o hello hello.s0
    stage0 asm hello.s0 > hello.asm
    stage0 eval 'fn main(): int => { printf("%%d\n", 6 * 7); return 0; }'

Environment:
    STAGE0_NASM     assembler to use (default: nasm)
    STAGE0_CC       linker driver to use (default: gcc)

Use "stage0 <command> -h" for more information about a command.
`)
}

// readSource reads filename or exits with a message.
func readSource(filename string) string {
	sourceBytes, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}
	return string(sourceBytes)
}

// parseFileArg parses fs and returns its single positional argument.
func parseFileArg(fs *flag.FlagSet, args []string, what string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one %s argument\n", what)
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func newFlagSet(name, usage, description string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		fmt.Fprintf(os.Stderr, "%s\n\n", description)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	return fs
}

func runCommand(args []string) {
	fs := newFlagSet("run", "stage0 run [-v] <file>", "Compile and execute a .s0 file")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	filename := parseFileArg(fs, args, "file")

	if *verbose {
		fmt.Printf("Compiling %s...\n", filename)
	}
	source := readSource(filename)
	runSource(source, *verbose)
}

func evalCommand(args []string) {
	fs := newFlagSet("eval", "stage0 eval [-v] <code>", "Compile and execute inline stage0 code")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	code := parseFileArg(fs, args, "code")

	if *verbose {
		fmt.Printf("Evaluating: %s\n", code)
	}
	runSource(code, *verbose)
}

func runSource(source string, verbose bool) {
	asm, err := compileProgram(source, verbose)
	if err != nil {
		fmt.Fprint(os.Stderr, FormatDiagnostic(source, err))
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "stage0-run-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating temporary directory: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	exe := filepath.Join(dir, "program")
	if err := DefaultToolchain().Build(asm, exe); err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.RemoveAll(dir)
		os.Exit(1)
	}

	if verbose {
		fmt.Printf("Executing...\n")
	}
	cmd := exec.Command(exe)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.RemoveAll(dir)
		os.Exit(1)
	}
}

func buildCommand(args []string) {
	fs := newFlagSet("build", "stage0 build [-o output] [-S] [-v] <file>", "Compile a .s0 file to a native executable")
	output := fs.String("o", "", "Output file path (default: <filename> without extension, or <filename>.out)")
	asmOnly := fs.Bool("S", false, "Stop after writing the .asm file")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	filename := parseFileArg(fs, args, "file")

	outputFile := *output
	if outputFile == "" {
		outputFile = defaultOutputPath(filename, *asmOnly)
	}
	if err := checkOutputPaths(filename, outputFile, *asmOnly); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Compiling %s to %s...\n", filename, outputFile)
	}

	source := readSource(filename)
	asm, err := compileProgram(source, *verbose)
	if err != nil {
		fmt.Fprint(os.Stderr, FormatDiagnostic(source, err))
		os.Exit(1)
	}

	if err := writeBuild(DefaultToolchain(), asm, outputFile, *asmOnly); err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	if *asmOnly {
		fmt.Printf("Generated %s (%d bytes)\n", outputFile, len(asm))
	} else {
		fmt.Printf("Generated %s\n", outputFile)
	}
}

// defaultOutputPath strips the extension from filename. A name without an
// extension gets ".out" so the source is not overwritten.
func defaultOutputPath(filename string, asmOnly bool) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if asmOnly {
		return base + ".asm"
	}
	if base == filename {
		return base + ".out"
	}
	return base
}

// checkOutputPaths fails if building to outputFile would write over
// filename, including through the intermediate .asm and .o files.
func checkOutputPaths(filename, outputFile string, asmOnly bool) error {
	written := []string{outputFile}
	if !asmOnly {
		asmPath, objPath := artifactPaths(outputFile)
		written = append(written, asmPath, objPath)
	}
	for _, path := range written {
		if samePath(path, filename) {
			return fmt.Errorf("output %s would overwrite the source file %s", path, filename)
		}
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// writeBuild writes asm to outputFile, or assembles and links it there.
func writeBuild(tc Toolchain, asm, outputFile string, asmOnly bool) error {
	if asmOnly {
		if err := os.WriteFile(outputFile, []byte(asm), 0644); err != nil {
			return fmt.Errorf("writing assembly file %s: %w", outputFile, err)
		}
		return nil
	}
	return tc.Build(asm, outputFile)
}

func asmCommand(args []string) {
	fs := newFlagSet("asm", "stage0 asm <file>", "Print the generated NASM assembly")
	filename := parseFileArg(fs, args, "file")

	source := readSource(filename)
	asm, err := Compile(source)
	if err != nil {
		fmt.Fprint(os.Stderr, FormatDiagnostic(source, err))
		os.Exit(1)
	}
	fmt.Print(asm)
}

func checkCommand(args []string) {
	fs := newFlagSet("check", "stage0 check [-v] <file>", "Parse and type-check a .s0 file")
	verbose := fs.Bool("v", false, "Show verbose checking details")
	filename := parseFileArg(fs, args, "file")

	if *verbose {
		fmt.Printf("Checking %s...\n", filename)
	}

	source := readSource(filename)
	globals, err := Check(source)
	if err != nil {
		fmt.Fprint(os.Stderr, FormatDiagnostic(source, err))
		os.Exit(1)
	}

	fmt.Printf("%s: no errors found\n", filename)

	if *verbose {
		for _, sym := range globals {
			if sym.Extern {
				continue
			}
			if sym.IsFunction() {
				fmt.Printf("  fn %s: %s\n", sym.Name, sym.ReturnKind)
			} else {
				fmt.Printf("  %s: %s\n", sym.Name, sym.Kind)
			}
		}
	}
}

// Helper function to compile a program
func compileProgram(source string, verbose bool) (string, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return "", err
	}
	if verbose {
		fmt.Printf("Tokens: %d\n", len(tokens))
	}

	program, err := (&Parser{tokens: tokens}).ParseProgram()
	if err != nil {
		return "", err
	}
	if verbose {
		fmt.Printf("AST: %s\n", ToSExpr(program))
	}

	g := NewGenerator()
	if verbose {
		g.Trace = os.Stdout
	}
	asm, err := g.Generate(program)
	if err != nil {
		return "", err
	}
	if verbose {
		fmt.Printf("Generated %d bytes of assembly\n", len(asm))
	}
	return asm, nil
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		runCommand(args)
	case "build":
		buildCommand(args)
	case "asm":
		asmCommand(args)
	case "eval":
		evalCommand(args)
	case "check":
		checkCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
