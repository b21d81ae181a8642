package vm

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// runBuiltin executes a host-serviced opcode (§4.5) given its argument
// words in source order. It mirrors the teacher's consoleIO.TrySend
// command dispatch (vm/devices.go in gvm) collapsed to a synchronous call:
// drtcc has no interrupt bus or background goroutines, since built-ins run
// to completion on the VM's single thread before the next instruction
// fetches (the spec names no concurrency model for the VM itself).
func (vm *VM) runBuiltin(op Op, args []int32) (int32, error) {
	switch op {
	case OPEN:
		return vm.biOpen(args)
	case READ:
		return vm.biRead(args)
	case CLOS:
		return vm.biClose(args)
	case PRTF:
		return vm.biPrintf(args)
	case MALC:
		return vm.biMalloc(args)
	case MSET:
		return vm.biMemset(args)
	case MCMP:
		return vm.biMemcmp(args)
	case TRAC:
		return vm.biTrace(args)
	case TRAN:
		return vm.biTranslate(args)
	default:
		return 0, fmt.Errorf("%w: built-in %s", ErrUnknownInstruction, op)
	}
}

// biOpen implements open(name): name is a guest pointer to a NUL-terminated
// path. Failures are reported as -1 in ax (§7: built-ins surface failure
// through their return value, never as a fatal fault).
func (vm *VM) biOpen(args []int32) (int32, error) {
	path := vm.mem.ReadCString(uint32(args[0]), 4096)
	f, err := os.Open(path)
	if err != nil {
		return -1, nil
	}
	fd := vm.nextFD
	vm.nextFD++
	vm.files[fd] = f
	return fd, nil
}

// biRead implements read(fd, buf, count): reads up to count bytes from fd
// into guest memory at buf, returning the number read or -1 on error.
func (vm *VM) biRead(args []int32) (int32, error) {
	fd, buf, count := args[0], uint32(args[1]), args[2]
	f, ok := vm.files[fd]
	if !ok {
		return -1, nil
	}
	tmp := make([]byte, count)
	n, err := f.Read(tmp)
	if err != nil && n == 0 {
		return -1, nil
	}
	vm.mem.WriteBytes(buf, tmp[:n])
	return int32(n), nil
}

// biClose implements close(fd).
func (vm *VM) biClose(args []int32) (int32, error) {
	fd := args[0]
	f, ok := vm.files[fd]
	if !ok {
		return -1, nil
	}
	delete(vm.files, fd)
	if err := f.Close(); err != nil {
		return -1, nil
	}
	return 0, nil
}

// biPrintf implements a minimal printf(fmt, ...up to 5 args): %d %s %c %x
// and %%. args[0] is the format string pointer; args[1:] are raw words,
// each either an integer or (for %s) a guest pointer into the data or heap
// segment. The conversion letter alone decides how a word is read: a %s
// argument is read as a NUL-terminated string at whatever address it holds.
func (vm *VM) biPrintf(args []int32) (int32, error) {
	format := vm.mem.ReadCString(uint32(args[0]), 8192)
	rest := args[1:]
	var out []byte
	argi := 0
	next := func() int32 {
		if argi >= len(rest) {
			return 0
		}
		v := rest[argi]
		argi++
		return v
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			out = append(out, c)
			continue
		}
		i++
		switch format[i] {
		case 'd':
			out = append(out, []byte(fmt.Sprintf("%d", next()))...)
		case 'x':
			out = append(out, []byte(fmt.Sprintf("%x", uint32(next())))...)
		case 'c':
			out = append(out, byte(next()))
		case 's':
			addr := uint32(next())
			out = append(out, []byte(vm.mem.ReadCString(addr, 65536))...)
		case '%':
			out = append(out, '%')
		default:
			out = append(out, '%', format[i])
		}
	}
	n, err := vm.Stdout.Write(out)
	if err != nil {
		return -1, errors.Wrap(err, "printf: write to stdout")
	}
	return int32(n), nil
}

// biMalloc implements malloc(size): a bump allocator over the heap segment
// (§4.4 design notes: no free-list, no reclamation — matches the original's
// own simplistic allocator). Exhausting the eagerly mapped heap region is a
// fatal runtime fault (§7): it returns an "out of heap memory" error, which
// stops the VM, rather than handing a null pointer back to the guest.
func (vm *VM) biMalloc(args []int32) (int32, error) {
	size := uint32(args[0])
	size = (size + 3) &^ 3
	if vm.heapBump+size > vm.heapLimit {
		return 0, errors.New("out of heap memory")
	}
	va := vm.heapBump
	vm.heapBump += size
	return int32(va), nil
}

// biMemset implements memset(ptr, value, count).
func (vm *VM) biMemset(args []int32) (int32, error) {
	ptr, value, count := uint32(args[0]), byte(args[1]), args[2]
	for i := int32(0); i < count; i++ {
		vm.mem.WriteByte(ptr+uint32(i), value)
	}
	return int32(ptr), nil
}

// biMemcmp implements memcmp(a, b, count): returns 0 if equal, else the
// signed difference of the first mismatching byte pair.
func (vm *VM) biMemcmp(args []int32) (int32, error) {
	a, b, count := uint32(args[0]), uint32(args[1]), args[2]
	for i := int32(0); i < count; i++ {
		ba := vm.mem.ReadByte(a + uint32(i))
		bb := vm.mem.ReadByte(b + uint32(i))
		if ba != bb {
			return int32(ba) - int32(bb), nil
		}
	}
	return 0, nil
}

// biTrace implements the trace(on) built-in, toggling instruction tracing
// to Stderr at runtime in addition to the -trace CLI flag.
func (vm *VM) biTrace(args []int32) (int32, error) {
	vm.trace = args[0] != 0
	return 0, nil
}

// biTranslate implements tran(va), reading the guest string the same way
// PRTF's %s handling does (Memory.ReadCString) (§4.5's table documents TRAN
// as a one-argument VA -> readable-string translation). Since the VM has no way to hand a host
// pointer back to guest code meaningfully, TRAN instead validates the guest
// VA by reading the NUL-terminated string there and returns its length
// (strlen-style), per SPEC_FULL.md's resolution of this open question.
func (vm *VM) biTranslate(args []int32) (int32, error) {
	va := uint32(args[0])
	s := vm.mem.ReadCString(va, 65536)
	return int32(len(s)), nil
}
