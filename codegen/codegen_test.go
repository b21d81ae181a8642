package codegen

import (
	"bytes"
	"strings"
	"testing"

	"drtcc/lexer"
	"drtcc/parser"
	"drtcc/vm"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// compileAndRun runs source through the full pipeline and returns the
// guest's stdout and exit status, mirroring the teacher's
// compileAndCheck/runAndEnsureSpecificShutdown helpers in vm/vm_test.go
// collapsed into one step since drtcc has no bare-assembly input form.
func compileAndRun(t *testing.T, source string) (string, int32) {
	t.Helper()
	lx := lexer.New(source)
	root, pool, err := parser.Parse(lx)
	assert(t, err == nil, "parse error: %s", err)
	assert(t, len(lx.Errors) == 0, "unexpected lexical errors: %v", lx.Errors)

	text, data, mainEntry, err := Compile(root, pool)
	assert(t, err == nil, "codegen error: %s", err)

	m := vm.New(text, data, 16)
	var out bytes.Buffer
	m.Stdout = &out

	status, err := m.Run(mainEntry, nil)
	assert(t, err == nil, "vm error: %s", err)
	return out.String(), status
}

func TestArithmeticPrecedence(t *testing.T) {
	_, status := compileAndRun(t, `int main(){ return 1+2*3; }`)
	assert(t, status == 7, "got exit %d, want 7", status)
}

func TestFibonacciRecursion(t *testing.T) {
	out, status := compileAndRun(t, `
		int fib(int i){ if (i<=1) return 1; return fib(i-1)+fib(i-2); }
		int main(){ printf("%d",fib(10)); return 0; }
	`)
	assert(t, out == "89", "got stdout %q, want %q", out, "89")
	assert(t, status == 0, "got exit %d, want 0", status)
}

func TestWhileLoopPrint(t *testing.T) {
	out, status := compileAndRun(t, `
		int main(){ int i; i=0; while(i<3){ printf("%d\n",i); i=i+1; } return i; }
	`)
	assert(t, out == "0\n1\n2\n", "got stdout %q, want %q", out, "0\n1\n2\n")
	assert(t, status == 3, "got exit %d, want 3", status)
}

func TestStringIndexing(t *testing.T) {
	out, status := compileAndRun(t, `
		int main(){ char *s; s = "hi"; printf("%s",s); return s[1]; }
	`)
	assert(t, out == "hi", "got stdout %q, want %q", out, "hi")
	assert(t, status == 'i', "got exit %d, want %d", status, int32('i'))
}

func TestEnumArithmetic(t *testing.T) {
	_, status := compileAndRun(t, `
		enum { A=1, B, C=10, D };
		int main(){ return A+B+C+D; }
	`)
	assert(t, status == 24, "got exit %d, want 24", status)
}

func TestMallocAndPointerIndexing(t *testing.T) {
	_, status := compileAndRun(t, `
		int main(){ int *p; p = malloc(8); *p = 42; p[1] = 7; return *p + p[1]; }
	`)
	assert(t, status == 49, "got exit %d, want 49", status)
}

// TestPointerScalingEmitsMulForWordPointers checks §8's ∀ pointer
// arithmetic property directly against the emitted stream: a word pointer
// plus an integer must scale the integer by 4 before adding.
func TestPointerScalingEmitsMulForWordPointers(t *testing.T) {
	lx := lexer.New(`int main(){ int *p; return (int)(p+1); }`)
	root, pool, err := parser.Parse(lx)
	assert(t, err == nil, "parse error: %s", err)
	text, _, _, err := Compile(root, pool)
	assert(t, err == nil, "codegen error: %s", err)

	found := false
	for i := 0; i+2 < len(text); i++ {
		if vm.Op(text[i]) == vm.PUSH && vm.Op(text[i+1]) == vm.IMM && text[i+2] == 4 {
			if i+3 < len(text) && vm.Op(text[i+3]) == vm.MUL {
				found = true
				break
			}
		}
	}
	assert(t, found, "expected PUSH; IMM 4; MUL scaling sequence in emitted text, got %v", text)
}

// TestByteScalingHasNoMul checks the byte-pointer half of the same
// invariant: indexing through a char* must not scale.
func TestByteScalingHasNoMul(t *testing.T) {
	lx := lexer.New(`int main(){ char *p; return p[1]; }`)
	root, pool, err := parser.Parse(lx)
	assert(t, err == nil, "parse error: %s", err)
	text, _, _, err := Compile(root, pool)
	assert(t, err == nil, "codegen error: %s", err)

	for i := 0; i+2 < len(text); i++ {
		if vm.Op(text[i]) == vm.IMM && text[i+1] == 4 && i+2 < len(text) && vm.Op(text[i+2]) == vm.MUL {
			t.Fatalf("unexpected element-size scaling for a byte pointer in %v", text)
		}
	}
}

// TestEveryFunctionEndsInLEV checks §8's "final instruction is LEV"
// invariant across a program with several functions.
func TestEveryFunctionEndsInLEV(t *testing.T) {
	lx := lexer.New(`
		int add(int a, int b){ return a+b; }
		int square(int x){ return x*x; }
		int main(){ return add(square(2), square(3)); }
	`)
	root, pool, err := parser.Parse(lx)
	assert(t, err == nil, "parse error: %s", err)
	text, _, _, err := Compile(root, pool)
	assert(t, err == nil, "codegen error: %s", err)

	// Walking the stream instruction by instruction, the instruction just
	// before every ENT after the first must be a LEV (the previous
	// function's terminal LEV), and the very last instruction in the
	// stream must be a LEV (main is generated last in a single
	// top-to-bottom pass).
	prev := vm.Op(-1)
	for i := 0; i < len(text); i += int(vm.Op(text[i]).WordCount()) {
		op := vm.Op(text[i])
		if op == vm.ENT && i > 0 {
			assert(t, prev == vm.LEV, "instruction before ENT at %d is %s, want LEV", i, prev)
		}
		prev = op
	}
	lastOp := vm.Op(text[len(text)-1])
	assert(t, lastOp == vm.LEV, "expected text to end in LEV, got %s", lastOp)
}

// TestCallSitesAreFollowedByADJ checks §8's "instruction after CALL k (or
// a built-in) is ADJ n" invariant.
func TestCallSitesAreFollowedByADJ(t *testing.T) {
	lx := lexer.New(`
		int add(int a, int b){ return a+b; }
		int main(){ printf("%d", add(1,2)); return 0; }
	`)
	root, pool, err := parser.Parse(lx)
	assert(t, err == nil, "parse error: %s", err)
	text, _, _, err := Compile(root, pool)
	assert(t, err == nil, "codegen error: %s", err)

	for i := 0; i < len(text); i += int(vm.Op(text[i]).WordCount()) {
		op := vm.Op(text[i])
		if op == vm.CALL || op.IsBuiltin() {
			next := int(i) + int(op.WordCount())
			assert(t, next < len(text), "call/builtin at %d has no instruction after it", i)
			assert(t, vm.Op(text[next]) == vm.ADJ, "instruction after %s at %d is %s, want ADJ", op, i, vm.Op(text[next]))
		}
	}
}

// TestFloatArithmeticRejected checks the resolved open question: floating
// values are legal but arithmetic on them is a hard codegen error, not a
// silently-wrong integer op.
func TestFloatArithmeticRejected(t *testing.T) {
	lx := lexer.New(`int main(){ float f; f = 1.5; f = f + f; return 0; }`)
	root, pool, err := parser.Parse(lx)
	assert(t, err == nil, "parse error: %s", err)
	_, _, _, err = Compile(root, pool)
	assert(t, err != nil, "expected a codegen error for float arithmetic")
	assert(t, strings.Contains(err.Error(), "floating-point"), "got error %q, want it to mention floating-point", err.Error())
}

// TestShortCircuitLeavesRawOperandValue checks §4.2's lowering recipe for
// &&/||: ax holds whichever operand was last evaluated, not a normalized
// 0/1 — `5 && 10` evaluates the right operand and leaves its raw value 10
// in ax, since the left operand 5 was truthy and did not short-circuit.
func TestShortCircuitLeavesRawOperandValue(t *testing.T) {
	_, status := compileAndRun(t, `int main(){ return 5 && 10; }`)
	assert(t, status == 10, "got exit %d, want 10 (raw right operand, not normalized to 1)", status)
}

// TestShortCircuitAndSkipsRightOperand checks the short-circuit path
// itself: when the left operand of && is falsy, the right operand is never
// evaluated and its (falsy) left value is left in ax.
func TestShortCircuitAndSkipsRightOperand(t *testing.T) {
	_, status := compileAndRun(t, `int main(){ return 0 && 10; }`)
	assert(t, status == 0, "got exit %d, want 0", status)
}

// TestShortCircuitOrLeavesTruthyLeftValue mirrors the above for ||: a
// truthy left operand short-circuits and its own raw value is left in ax.
func TestShortCircuitOrLeavesTruthyLeftValue(t *testing.T) {
	_, status := compileAndRun(t, `int main(){ return 5 || 10; }`)
	assert(t, status == 5, "got exit %d, want 5 (raw left operand, short-circuited)", status)
}

// TestPostIncDecScalesByElemSize exercises §4.2's three-way post-inc/dec
// step rule directly at runtime against a char*, an int*, and an int**:
// the address delta after p++ must equal ElemSize() of p's type (1 for
// char*, 4 for int* and int**, since a pointer's own storage width is
// always 4 regardless of its pointee).
func TestPostIncDecScalesByElemSize(t *testing.T) {
	_, status := compileAndRun(t, `
		int main(){ char *p; char *q; p = malloc(8); q = p; p++; return (int)p - (int)q; }
	`)
	assert(t, status == 1, "char* post-inc: got step %d, want 1", status)

	_, status = compileAndRun(t, `
		int main(){ int *p; int *q; p = malloc(8); q = p; p++; return (int)p - (int)q; }
	`)
	assert(t, status == 4, "int* post-inc: got step %d, want 4", status)

	_, status = compileAndRun(t, `
		int main(){ int **p; int **q; p = malloc(16); q = p; p++; return (int)p - (int)q; }
	`)
	assert(t, status == 4, "int** post-inc: got step %d, want 4", status)
}

// TestNoMainIsAnError exercises the errors.New("no main function defined")
// path wired through github.com/pkg/errors.
func TestNoMainIsAnError(t *testing.T) {
	lx := lexer.New(`int add(int a, int b){ return a+b; }`)
	root, pool, err := parser.Parse(lx)
	assert(t, err == nil, "parse error: %s", err)
	_, _, _, err = Compile(root, pool)
	assert(t, err != nil, "expected an error when no main is defined")
	assert(t, strings.Contains(err.Error(), "no main"), "got error %q", err.Error())
}
