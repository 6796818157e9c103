// Command watrun parses, instantiates, and runs WebAssembly text-format
// modules. It exists to exercise the parser/ast/interp pipeline end to end
// from the command line, the way cmd/wazero exercises wazero's compiled
// pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/interp"
	"github.com/gowasm/wat/internal/token"
	"github.com/gowasm/wat/parser"
	"github.com/gowasm/wat/values"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr))
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut, stdErr io.Writer) int {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "Prints usage.")
	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		return 0
	}

	switch subCmd := flag.Arg(0); subCmd {
	case "parse":
		return doParse(flag.Args()[1:], stdOut, stdErr)
	case "dump":
		return doDump(flag.Args()[1:], stdOut, stdErr)
	case "run":
		return doRun(flag.Args()[1:], stdOut, stdErr)
	default:
		fmt.Fprintln(stdErr, "invalid command:", subCmd)
		printUsage(stdErr)
		return 1
	}
}

func parseFile(path string) (*ast.Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	tokens, err := token.Lex(source)
	if err != nil {
		return nil, err
	}
	return parser.Parse(tokens, source)
}

func doParse(args []string, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("parse", flag.ExitOnError)
	flags.SetOutput(stdErr)
	_ = flags.Parse(args)

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to .wat file")
		return 1
	}
	if _, err := parseFile(flags.Arg(0)); err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}
	fmt.Fprintln(stdOut, "ok")
	return 0
}

func doDump(args []string, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("dump", flag.ExitOnError)
	flags.SetOutput(stdErr)
	_ = flags.Parse(args)

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to .wat file")
		return 1
	}
	prog, err := parseFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}
	for _, node := range prog.Body {
		fmt.Fprintln(stdOut, ast.Dump(node))
	}
	return 0
}

func doRun(args []string, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var invoke string
	flags.StringVar(&invoke, "invoke", "", "Name of the exported function to call after instantiation.")

	var callArgs sliceFlag
	flags.Var(&callArgs, "arg", "i32/i64/f32/f64-typed argument for -invoke, e.g. i32:42. May be repeated.")

	_ = flags.Parse(args)

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to .wat file")
		return 1
	}

	prog, err := parseFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	var mod *ast.Module
	for _, node := range prog.Body {
		if m, ok := node.(*ast.Module); ok {
			mod = m
			break
		}
	}
	if mod == nil {
		fmt.Fprintln(stdErr, "no (module ...) form found")
		return 1
	}

	ctx := context.Background()
	alloc := interp.NewAllocator()
	moduleAddr, err := interp.Instantiate(ctx, alloc, mod, hostImports(stdOut, stdErr))
	if err != nil {
		fmt.Fprintln(stdErr, "error instantiating module:", err)
		return 1
	}
	mi := alloc.Module(moduleAddr)

	if mi.Start != nil {
		if _, err := invokeByAddr(ctx, alloc, *mi.Start, nil); err != nil {
			fmt.Fprintln(stdErr, "error running start function:", err)
			return 1
		}
	}

	if invoke == "" {
		return 0
	}

	export, ok := mi.Export(invoke)
	if !ok || export.Kind != interp.ExportFunc {
		fmt.Fprintf(stdErr, "no exported function named %q\n", invoke)
		return 1
	}

	parsedArgs, err := parseCallArgs(callArgs)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	results, err := invokeByAddr(ctx, alloc, export.Addr, parsedArgs)
	if err != nil {
		fmt.Fprintln(stdErr, "error calling", invoke+":", err)
		return 1
	}
	for _, v := range results {
		fmt.Fprintln(stdOut, v.String())
	}
	return 0
}

// invokeByAddr calls a function instance directly, bypassing AST-level
// call/call_indirect dispatch — the CLI has no caller frame of its own.
func invokeByAddr(ctx context.Context, alloc *interp.Allocator, addr interp.Addr, args []values.Value) ([]values.Value, error) {
	return interp.Invoke(ctx, alloc, addr, args)
}

func parseCallArgs(raw []string) ([]values.Value, error) {
	vals := make([]values.Value, 0, len(raw))
	for _, a := range raw {
		typ, lit, ok := strings.Cut(a, ":")
		if !ok {
			return nil, fmt.Errorf("invalid -arg %q, want TYPE:VALUE", a)
		}
		n, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -arg %q: %w", a, err)
		}
		t, ok := values.ParseType(typ)
		if !ok {
			return nil, fmt.Errorf("invalid -arg %q: unknown type %q", a, typ)
		}
		vals = append(vals, values.CreateValue(t, n))
	}
	return vals, nil
}

// hostImports wires a handful of logging-style host functions so example
// modules that import one have something to bind against, mirroring the
// spectest "print*" host module wazero's own test suite imports.
func hostImports(stdOut, stdErr io.Writer) map[string]interp.ExternalFunc {
	print1 := func(ctx context.Context, args []values.Value) ([]values.Value, *interp.Trap) {
		if len(args) > 0 {
			fmt.Fprintln(stdOut, args[0].String())
		} else {
			fmt.Fprintln(stdOut)
		}
		return nil, nil
	}
	return map[string]interp.ExternalFunc{
		"spectest.print":     print1,
		"spectest.print_i32": print1,
		"spectest.print_f64": print1,
	}
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "watrun CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  watrun <command> <path to .wat file>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  parse\t\tParses the file and reports success or the first error")
	fmt.Fprintln(stdErr, "  dump\t\tParses the file and prints its AST")
	fmt.Fprintln(stdErr, "  run\t\tInstantiates the file, runs its start function, and optionally invokes an export")
}

type sliceFlag []string

func (f *sliceFlag) String() string { return strings.Join(*f, ",") }

func (f *sliceFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}
