// Command drtcc reads a source file, compiles it, and runs it on the
// bytecode VM: drtcc [-trace] [-dump] <path> [guest args...].
//
// This mirrors the teacher's main.go (flag.Bool switches alongside
// positional arguments, flag.NArg() to find where the positionals start)
// with the positionals repurposed from a list of assembly files to one
// source path plus the arguments handed to the guest program's argv.
package main

import (
	"flag"
	"fmt"
	"os"

	"drtcc/codegen"
	"drtcc/lexer"
	"drtcc/parser"
	"drtcc/vm"
)

const defaultHeapPages = 256

var (
	traceFlag = flag.Bool("trace", false, "trace VM instruction execution to stderr")
	dumpFlag  = flag.Bool("dump", false, "print disassembled text segment before running")
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: drtcc [-trace] [-dump] <path> [args...]")
		os.Exit(1)
	}

	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	text, data, mainEntry, err := compile(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *dumpFlag {
		dumpText(text)
	}

	m := vm.New(text, data, defaultHeapPages)
	m.SetTrace(*traceFlag)

	status, err := m.Run(mainEntry, args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(int(status))
}

// compile runs the lexer, parser, and codegen stages in sequence. Lexical
// errors (§7 band 1) are non-fatal and reported alongside whatever fatal
// parse or codegen error stopped compilation, per the spec's error bands.
func compile(src string) (text []int32, data []byte, mainEntry int32, err error) {
	lx := lexer.New(src)
	root, pool, perr := parser.Parse(lx)

	for _, e := range lx.Errors {
		fmt.Fprintln(os.Stderr, e)
	}
	if perr != nil {
		return nil, nil, 0, perr
	}

	return codegen.Compile(root, pool)
}

// dumpText disassembles the text segment using each opcode's own word
// count (vm.Op.WordCount) to stay in sync with isa.go as operands are
// added, rather than hand-decoding widths here.
func dumpText(text []int32) {
	for i := 0; i < len(text); {
		op := vm.Op(text[i])
		if !op.Valid() {
			fmt.Fprintf(os.Stderr, "%6d: ??? (%d)\n", i, text[i])
			i++
			continue
		}
		n := int(op.WordCount())
		switch {
		case n <= 1:
			fmt.Fprintf(os.Stderr, "%6d: %s\n", i, op)
		case op == vm.IMX && i+2 < len(text):
			fmt.Fprintf(os.Stderr, "%6d: %s %d %d\n", i, op, text[i+1], text[i+2])
		default:
			if i+1 < len(text) {
				fmt.Fprintf(os.Stderr, "%6d: %s %d\n", i, op, text[i+1])
			} else {
				fmt.Fprintf(os.Stderr, "%6d: %s\n", i, op)
			}
		}
		if n <= 0 {
			n = 1
		}
		i += n
	}
}
