package vm

import (
	"bytes"
	"errors"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// asm is a tiny hand-assembler for building raw text segments in tests
// without going through package codegen, mirroring how the teacher's
// vm_test.go drove the VM from literal instruction text rather than
// compiled source.
type asm struct {
	words []int32
}

func (a *asm) op(o Op) { a.words = append(a.words, int32(o)) }

func (a *asm) imm(o Op, v int32) { a.words = append(a.words, int32(o), v) }

func runProgram(t *testing.T, text []int32, data []byte, heapPages int) (*VM, int32, error) {
	t.Helper()
	m := New(text, data, heapPages)
	var out bytes.Buffer
	m.Stdout = &out
	status, err := m.Run(0, nil)
	return m, status, err
}

func TestArithmeticAndReturn(t *testing.T) {
	var a asm
	a.imm(ENT, 0)
	a.imm(IMM, 2)
	a.op(PUSH)
	a.imm(IMM, 3)
	a.op(MUL)
	a.op(LEV)

	_, status, err := runProgram(t, a.words, nil, 1)
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, status == 6, "got status %d, want 6", status)
}

func TestDivisionByZeroFaults(t *testing.T) {
	var a asm
	a.imm(ENT, 0)
	a.imm(IMM, 1)
	a.op(PUSH)
	a.imm(IMM, 0)
	a.op(DIV)
	a.op(LEV)

	_, _, err := runProgram(t, a.words, nil, 1)
	assert(t, err == ErrDivisionByZero, "got error %v, want ErrDivisionByZero", err)
}

func TestModByZeroFaults(t *testing.T) {
	var a asm
	a.imm(ENT, 0)
	a.imm(IMM, 1)
	a.op(PUSH)
	a.imm(IMM, 0)
	a.op(MOD)
	a.op(LEV)

	_, _, err := runProgram(t, a.words, nil, 1)
	assert(t, err == ErrDivisionByZero, "got error %v, want ErrDivisionByZero", err)
}

func TestUnknownOpcodeFaults(t *testing.T) {
	text := []int32{int32(ENT), 0, 999999, int32(LEV)}
	_, _, err := runProgram(t, text, nil, 1)
	assert(t, err != nil, "expected a fault for an unrecognized opcode")
}

func TestBuiltinWithoutADJFaults(t *testing.T) {
	var a asm
	a.imm(ENT, 0)
	a.op(MALC) // not followed by ADJ
	a.op(LEV)

	_, _, err := runProgram(t, a.words, nil, 1)
	assert(t, errors.Is(err, ErrBuiltinNeedsAdj), "got error %v, want ErrBuiltinNeedsAdj", err)
}

// TestLocalStoreLoadRoundTrip exercises a local variable's word stored
// through LEA/SI and read back through LEA/LI, confirming §8's paging
// round-trip invariant for the stack segment.
func TestLocalStoreLoadRoundTrip(t *testing.T) {
	var a asm
	a.imm(ENT, 1) // one local at bp-4
	a.imm(LEA, -4)
	a.op(PUSH)
	a.imm(IMM, 123)
	a.op(SI)
	a.imm(LEA, -4)
	a.op(LI)
	a.op(LEV)

	_, status, err := runProgram(t, a.words, nil, 1)
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, status == 123, "got status %d, want 123", status)
}

// TestHeapPageFaultsInLazily writes directly into the heap segment with
// zero heap pages eagerly mapped, confirming a miss allocates a frame and
// the write (and a subsequent read) both succeed without a fatal fault.
func TestHeapPageFaultsInLazily(t *testing.T) {
	heap := HeapBase
	var a asm
	a.imm(ENT, 0)
	a.imm(IMM, int32(heap))
	a.op(PUSH)
	a.imm(IMM, 77)
	a.op(SI)
	a.imm(IMM, int32(heap))
	a.op(LI)
	a.op(LEV)

	_, status, err := runProgram(t, a.words, nil, 0)
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, status == 77, "got status %d, want 77", status)
}

// TestPrintfBuiltin drives the PRTF built-in directly, exercising the
// all-args-on-stack calling convention every built-in uses (§4.4/§4.5):
// every argument, including what would be the last, is pushed before the
// opcode and popped generically by the trailing ADJ.
func TestPrintfBuiltin(t *testing.T) {
	data := []byte("%d\n\x00")
	dataBase := DataBase
	var a asm
	a.imm(ENT, 0)
	a.imm(IMM, int32(dataBase))
	a.op(PUSH)
	a.imm(IMM, 5)
	a.op(PUSH)
	a.op(PRTF)
	a.imm(ADJ, 2)
	a.op(LEV)

	m := New(a.words, data, 1)
	var out bytes.Buffer
	m.Stdout = &out
	status, err := m.Run(0, nil)
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, out.String() == "5\n", "got stdout %q, want %q", out.String(), "5\n")
	assert(t, status == 2, "got status %d, want the byte count 2", status)
}

// TestMemsetMemcmp exercises both memory built-ins together: fill one
// heap region, leave a second unfilled, and confirm memcmp reports the
// mismatch through its signed-difference convention.
func TestMemsetMemcmp(t *testing.T) {
	a0 := HeapBase
	a1 := HeapBase + 64

	var a asm
	a.imm(ENT, 0)
	// memset(a0, 'A', 4)
	a.imm(IMM, int32(a0))
	a.op(PUSH)
	a.imm(IMM, 'A')
	a.op(PUSH)
	a.imm(IMM, 4)
	a.op(PUSH)
	a.op(MSET)
	a.imm(ADJ, 3)
	// memset(a1, 'B', 4)
	a.imm(IMM, int32(a1))
	a.op(PUSH)
	a.imm(IMM, 'B')
	a.op(PUSH)
	a.imm(IMM, 4)
	a.op(PUSH)
	a.op(MSET)
	a.imm(ADJ, 3)
	// memcmp(a0, a1, 4)
	a.imm(IMM, int32(a0))
	a.op(PUSH)
	a.imm(IMM, int32(a1))
	a.op(PUSH)
	a.imm(IMM, 4)
	a.op(PUSH)
	a.op(MCMP)
	a.imm(ADJ, 3)
	a.op(LEV)

	_, status, err := runProgram(t, a.words, nil, 4)
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, status == int32('A')-int32('B'), "got status %d, want %d", status, int32('A')-int32('B'))
}

// TestTranslateBuiltin drives the TRAN built-in directly, confirming its
// one-argument (va) calling convention per §4.5's table and SPEC_FULL.md's
// resolution: it reads the NUL-terminated string at va and returns its
// length, not a 3-argument strcpy.
func TestTranslateBuiltin(t *testing.T) {
	data := []byte("hello\x00")
	dataBase := DataBase
	var a asm
	a.imm(ENT, 0)
	a.imm(IMM, int32(dataBase))
	a.op(PUSH)
	a.op(TRAN)
	a.imm(ADJ, 1)
	a.op(LEV)

	_, status, err := runProgram(t, a.words, data, 1)
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, status == 5, "got status %d, want strlen 5", status)
}

// TestExitEpilogueDeliversReturnValue confirms the fabricated PUSH; EXIT;
// ADJ 0 epilogue (Run) correctly carries main's ax out as the process
// status, even for a body with no explicit arithmetic beyond ENT/LEV.
func TestExitEpilogueDeliversReturnValue(t *testing.T) {
	var a asm
	a.imm(ENT, 0)
	a.imm(IMM, 42)
	a.op(LEV)

	_, status, err := runProgram(t, a.words, nil, 1)
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, status == 42, "got status %d, want 42", status)
}
