// Package codegen walks the complete AST (§3) built by package parser and
// emits drtcc bytecode for package vm in a single top-to-bottom pass (§4.2).
// It is the core of the pipeline: unlike the lexer and parser, which are
// mechanical collaborators, every lowering here is meaningful and every
// invariant in §4.2/§7/§8 must hold.
//
// The only compile-time state codegen threads through an expression is its
// full ast.TypeSpec (base type + pointer depth) plus a float flag. This
// replaces the spec's flattened (expr_level, ptr_level) pair: keeping the
// whole TypeSpec around and deriving widths on demand via
// TypeSpec.Size()/ElemSize() avoids re-deriving the wrong quantity at each
// call site (the two methods already encode the split the flattened pair
// was built from — see ast.go).
package codegen

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"drtcc/ast"
	"drtcc/symtab"
	"drtcc/vm"
)

// Error is a fatal codegen fault (§7 band 2).
type Error struct {
	Line, Col int
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d:%d] ERROR: %s", e.Line, e.Col, e.Msg)
}

// exprInfo is the live type state codegen carries for the value currently
// sitting in ax after emitting some expression.
type exprInfo struct {
	typ     ast.TypeSpec
	isFloat bool
}

var intInfo = exprInfo{typ: ast.TypeSpec{Base: ast.TInt}}

// Generator walks one compilation unit's AST and assembles bytecode plus a
// data segment for it.
type Generator struct {
	pool *ast.Pool
	syms *symtab.Table

	text []int32
	data []byte

	mainEntry  int32
	localCount int
}

// builtinOpcodes names every host-serviced call the generator emits
// directly as its own opcode rather than through CALL (§4.4, §4.5).
var builtinOpcodes = map[string]vm.Op{
	"open": vm.OPEN, "read": vm.READ, "close": vm.CLOS, "printf": vm.PRTF,
	"malloc": vm.MALC, "memset": vm.MSET, "memcmp": vm.MCMP, "trace": vm.TRAC,
	"tran": vm.TRAN, "exit": vm.EXIT,
}

func New() *Generator {
	g := &Generator{syms: symtab.New(), mainEntry: -1}
	for name, op := range builtinOpcodes {
		g.syms.RegisterBuiltin(name, int64(op))
	}
	return g
}

// Compile generates text and data for the whole program rooted at root.
func Compile(root ast.NodeID, pool *ast.Pool) (text []int32, data []byte, mainEntry int32, err error) {
	g := New()
	g.pool = pool
	for _, child := range pool.Children(root) {
		if err := g.genTopLevel(child); err != nil {
			return nil, nil, 0, err
		}
	}
	if g.mainEntry < 0 {
		return nil, nil, 0, errors.New("no main function defined")
	}
	return g.text, g.data, g.mainEntry, nil
}

func (g *Generator) errorf(n *ast.Node, format string, args ...any) error {
	return &Error{Line: n.Line, Col: n.Col, Msg: fmt.Sprintf(format, args...)}
}

func (g *Generator) emit(op vm.Op) { g.text = append(g.text, int32(op)) }

func (g *Generator) emitImm(op vm.Op, imm int32) { g.text = append(g.text, int32(op), imm) }

func (g *Generator) lastOp() vm.Op { return vm.Op(g.text[len(g.text)-1]) }

func (g *Generator) emitLoadForSize(size int) {
	if size == 1 {
		g.emit(vm.LC)
	} else {
		g.emit(vm.LI)
	}
}

func isFloatBase(b ast.BaseType) bool { return b == ast.TFloat || b == ast.TDouble }

// incDecStep is the amount ++/-- add: 1 for a plain scalar (incrementing the
// *value*, not an address), else the pointee's own size (stepping to the
// next element) — §4.2's three-way rule, expressed directly against
// ElemSize now that it already distinguishes "one pointer hop away".
func incDecStep(t ast.TypeSpec) int {
	if t.PtrDepth == 0 {
		return 1
	}
	return t.ElemSize()
}

// ---- top level -------------------------------------------------------

func (g *Generator) genTopLevel(id ast.NodeID) error {
	n := g.pool.Node(id)
	switch n.Tag {
	case ast.Enum:
		return g.genEnumDecl(id)
	case ast.VarGlobal:
		return g.genGlobalVar(n)
	case ast.Func:
		return g.genFuncDef(id)
	default:
		return g.errorf(n, "unsupported top-level declaration")
	}
}

// genEnumDecl assigns each member a value: the declared one if present,
// else the previous member's value plus one, starting from 0 (§8).
func (g *Generator) genEnumDecl(id ast.NodeID) error {
	value := int64(0)
	for _, unitID := range g.pool.Children(id) {
		u := g.pool.Node(unitID)
		if u.HasInit {
			value = u.IntVal
		}
		sym := &symtab.Symbol{Node: unitID, Class: symtab.ClassEnum, Data: value, Type: ast.TypeSpec{Base: ast.TInt}}
		if err := g.syms.Declare(u.Name, sym); err != nil {
			return g.errorf(u, "%s", err)
		}
		value++
	}
	return nil
}

// genGlobalVar reserves size zero-initialized bytes in the data segment and
// records the variable's byte offset into it.
func (g *Generator) genGlobalVar(n *ast.Node) error {
	size := n.TypeSpec.Size()
	offset := int64(len(g.data))
	g.data = append(g.data, make([]byte, size)...)
	sym := &symtab.Symbol{Class: symtab.ClassVarGlobal, Data: offset, Type: n.TypeSpec}
	if err := g.syms.Declare(n.Name, sym); err != nil {
		return g.errorf(n, "%s", err)
	}
	return nil
}

// genFuncDef emits one function. Per parser's convention the node's last
// two children are always the Empty frame-size marker followed by the body
// Block; everything before that is an ordered parameter list.
//
// Parameters get their bp-relative word offset in a single reverse pass
// here, closest-to-bp for the *last* declared parameter (offset 2, past the
// saved bp and return address) out to the first (offset len(params)+1).
// This sidesteps §9's flagged ebp_local/ebp over-counting bug by never
// mixing params and locals into one running counter: locals get their own
// counter (g.localCount), reset per function and used only to size ENT's
// frame once the whole body has been walked.
func (g *Generator) genFuncDef(id ast.NodeID) error {
	n := g.pool.Node(id)
	children := g.pool.Children(id)
	if len(children) < 2 {
		return g.errorf(n, "malformed function definition")
	}
	body := children[len(children)-1]
	params := children[:len(children)-2]

	entry := int32(len(g.text))
	sym := &symtab.Symbol{Node: id, Class: symtab.ClassFunc, Data: int64(entry), Type: n.TypeSpec}
	if err := g.syms.Declare(n.Name, sym); err != nil {
		return g.errorf(n, "%s", err)
	}
	if n.Name == "main" {
		g.mainEntry = entry
	}

	g.syms.PushScope()
	defer g.syms.PopScope()

	for i, paramID := range params {
		pn := g.pool.Node(paramID)
		wordOffset := int64(len(params) - i + 1)
		psym := &symtab.Symbol{Node: paramID, Class: symtab.ClassVarParam, Data: wordOffset, Type: pn.TypeSpec}
		if err := g.syms.Declare(pn.Name, psym); err != nil {
			return g.errorf(pn, "%s", err)
		}
	}

	g.emitImm(vm.ENT, 0)
	entPatchIdx := len(g.text) - 1

	savedLocalCount := g.localCount
	g.localCount = 0
	if err := g.genBlockBody(body); err != nil {
		return err
	}
	g.emit(vm.LEV)
	g.text[entPatchIdx] = int32(g.localCount)
	g.localCount = savedLocalCount

	return nil
}

// genBlockBody walks a Block's children in source order, registering local
// declarations into the current (already open) scope and emitting code for
// everything else. Used both for a function's own body (which shares the
// scope already pushed for its parameters) and, via genBlock, for any
// nested compound statement.
func (g *Generator) genBlockBody(id ast.NodeID) error {
	for _, child := range g.pool.Children(id) {
		cn := g.pool.Node(child)
		if cn.Tag == ast.VarLocal {
			if err := g.declareLocal(child); err != nil {
				return err
			}
			continue
		}
		if err := g.genStmt(child); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) declareLocal(id ast.NodeID) error {
	n := g.pool.Node(id)
	g.localCount++
	sym := &symtab.Symbol{Node: id, Class: symtab.ClassVarLocal, Data: int64(g.localCount), Type: n.TypeSpec}
	if err := g.syms.Declare(n.Name, sym); err != nil {
		return g.errorf(n, "%s", err)
	}
	return nil
}

// genBlock is a *nested* compound statement (if/while bodies, explicit
// braces): unlike a function's own body, it pushes its own scope.
func (g *Generator) genBlock(id ast.NodeID) error {
	g.syms.PushScope()
	defer g.syms.PopScope()
	return g.genBlockBody(id)
}

// ---- statements --------------------------------------------------------

func (g *Generator) genStmt(id ast.NodeID) error {
	n := g.pool.Node(id)
	switch n.Tag {
	case ast.Block:
		return g.genBlock(id)
	case ast.Empty:
		return nil
	case ast.If:
		return g.genIf(id)
	case ast.While:
		return g.genWhile(id)
	case ast.Return:
		return g.genReturn(id)
	case ast.Stmt:
		_, err := g.genExpr(g.pool.Children(id)[0])
		return err
	default:
		return g.errorf(n, "unsupported statement")
	}
}

func (g *Generator) genReturn(id ast.NodeID) error {
	children := g.pool.Children(id)
	if len(children) > 0 {
		if _, err := g.genExpr(children[0]); err != nil {
			return err
		}
	}
	g.emit(vm.LEV)
	return nil
}

func (g *Generator) genIf(id ast.NodeID) error {
	children := g.pool.Children(id)
	if _, err := g.genExpr(children[0]); err != nil {
		return err
	}
	g.emit(vm.JZ)
	elseIdx := len(g.text)
	g.text = append(g.text, 0)

	if err := g.genStmt(children[1]); err != nil {
		return err
	}

	if len(children) == 3 {
		g.emit(vm.JMP)
		endIdx := len(g.text)
		g.text = append(g.text, 0)
		g.text[elseIdx] = int32(len(g.text))
		if err := g.genStmt(children[2]); err != nil {
			return err
		}
		g.text[endIdx] = int32(len(g.text))
		return nil
	}

	g.text[elseIdx] = int32(len(g.text))
	return nil
}

// genWhile emits the loop condition exactly once (test; JZ exit; body; JMP
// test; exit:), the fix §9 calls for over a layout that would otherwise
// duplicate it.
func (g *Generator) genWhile(id ast.NodeID) error {
	children := g.pool.Children(id)
	loopStart := int32(len(g.text))
	if _, err := g.genExpr(children[0]); err != nil {
		return err
	}
	g.emit(vm.JZ)
	exitIdx := len(g.text)
	g.text = append(g.text, 0)

	if err := g.genStmt(children[1]); err != nil {
		return err
	}
	g.emitImm(vm.JMP, loopStart)
	g.text[exitIdx] = int32(len(g.text))
	return nil
}

// ---- expressions --------------------------------------------------------

func (g *Generator) genExpr(id ast.NodeID) (exprInfo, error) {
	n := g.pool.Node(id)
	switch n.Tag {
	case ast.LitChar, ast.LitUChar, ast.LitShort, ast.LitUShort,
		ast.LitInt, ast.LitUInt, ast.LitLong, ast.LitULong, ast.LitFloat, ast.LitDouble:
		return g.genLiteral(n)
	case ast.String:
		return g.genString(n)
	case ast.Id:
		return g.genIdent(n)
	case ast.Exp:
		return g.genExpr(g.pool.Children(id)[0])
	case ast.Cast:
		return g.genCast(id)
	case ast.SinOp:
		return g.genSinOp(id)
	case ast.BinOp:
		return g.genBinOp(id)
	case ast.TriOp:
		return g.genTriOp(id)
	case ast.Invoke:
		return g.genInvoke(id)
	default:
		return exprInfo{}, g.errorf(n, "unsupported expression")
	}
}

func litBase(tag ast.Tag) ast.BaseType {
	switch tag {
	case ast.LitChar:
		return ast.TChar
	case ast.LitUChar:
		return ast.TUChar
	case ast.LitShort:
		return ast.TShort
	case ast.LitUShort:
		return ast.TUShort
	case ast.LitUInt:
		return ast.TUInt
	case ast.LitLong:
		return ast.TLong
	case ast.LitULong:
		return ast.TULong
	case ast.LitFloat:
		return ast.TFloat
	case ast.LitDouble:
		return ast.TDouble
	default:
		return ast.TInt
	}
}

func (g *Generator) genLiteral(n *ast.Node) (exprInfo, error) {
	base := litBase(n.Tag)
	if isFloatBase(base) {
		bits := math.Float64bits(n.FloatVal)
		g.emit(vm.IMX)
		g.text = append(g.text, int32(uint32(bits)), int32(uint32(bits>>32)))
		return exprInfo{typ: ast.TypeSpec{Base: base}, isFloat: true}, nil
	}
	g.emitImm(vm.IMM, int32(n.IntVal))
	return exprInfo{typ: ast.TypeSpec{Base: base}}, nil
}

// genString appends the NUL-terminated, word-padded bytes to the data
// segment and emits code that turns the stored offset into a live address
// (§4.2): IMM addr; LOAD. The element size downstream is a plain char (1),
// not the pointer's own word width — ElemSize already returns that.
func (g *Generator) genString(n *ast.Node) (exprInfo, error) {
	content := append([]byte(n.Name), 0)
	for len(content)%4 != 0 {
		content = append(content, 0)
	}
	addr := int32(len(g.data))
	g.data = append(g.data, content...)
	g.emitImm(vm.IMM, addr)
	g.emit(vm.LOAD)
	return exprInfo{typ: ast.TypeSpec{Base: ast.TChar, PtrDepth: 1}}, nil
}

// genIdent resolves name and loads its stored value. The LC-vs-LI choice
// uses TypeSpec.Size (the *variable's own* storage width — 4 for any
// pointer, regardless of what it points to), not ElemSize.
func (g *Generator) genIdent(n *ast.Node) (exprInfo, error) {
	sym, ok := g.syms.Find(n.Name)
	if !ok {
		return exprInfo{}, g.errorf(n, "undefined identifier: %s", n.Name)
	}
	switch sym.Class {
	case symtab.ClassEnum:
		g.emitImm(vm.IMM, int32(sym.Data))
		return intInfo, nil
	case symtab.ClassVarGlobal:
		g.emitImm(vm.IMM, int32(sym.Data))
		g.emit(vm.LOAD)
		g.emitLoadForSize(sym.Type.Size())
		return exprInfo{typ: sym.Type, isFloat: isFloatBase(sym.Type.Base) && sym.Type.PtrDepth == 0}, nil
	case symtab.ClassVarParam:
		g.emitImm(vm.LEA, int32(sym.Data*4))
		g.emitLoadForSize(sym.Type.Size())
		return exprInfo{typ: sym.Type, isFloat: isFloatBase(sym.Type.Base) && sym.Type.PtrDepth == 0}, nil
	case symtab.ClassVarLocal:
		g.emitImm(vm.LEA, int32(-sym.Data*4))
		g.emitLoadForSize(sym.Type.Size())
		return exprInfo{typ: sym.Type, isFloat: isFloatBase(sym.Type.Base) && sym.Type.PtrDepth == 0}, nil
	case symtab.ClassFunc, symtab.ClassBuiltin:
		return exprInfo{}, g.errorf(n, "%s used as a value is not supported", n.Name)
	default:
		return exprInfo{}, g.errorf(n, "unsupported identifier class")
	}
}

func (g *Generator) genCast(id ast.NodeID) (exprInfo, error) {
	n := g.pool.Node(id)
	operand := g.pool.Children(id)[0]
	if _, err := g.genExpr(operand); err != nil {
		return exprInfo{}, err
	}
	return exprInfo{typ: n.TypeSpec, isFloat: isFloatBase(n.TypeSpec.Base) && n.TypeSpec.PtrDepth == 0}, nil
}

func (g *Generator) genSinOp(id ast.NodeID) (exprInfo, error) {
	n := g.pool.Node(id)
	operand := g.pool.Children(id)[0]
	switch n.Op {
	case ast.OpAddr:
		return g.genAddr(operand)
	case ast.OpDeref:
		return g.genDeref(operand)
	case ast.OpInc, ast.OpDec:
		return g.genIncDec(id)
	case ast.OpPos:
		return g.genExpr(operand)
	case ast.OpNeg:
		g.emitImm(vm.IMM, 0)
		g.emit(vm.PUSH)
		info, err := g.genExpr(operand)
		if err != nil {
			return exprInfo{}, err
		}
		if info.isFloat {
			return exprInfo{}, g.errorf(n, "floating-point arithmetic is not supported")
		}
		g.emit(vm.SUB)
		return info, nil
	case ast.OpNot:
		if _, err := g.genExpr(operand); err != nil {
			return exprInfo{}, err
		}
		g.emit(vm.PUSH)
		g.emitImm(vm.IMM, 0)
		g.emit(vm.EQ)
		return intInfo, nil
	case ast.OpBitNot:
		info, err := g.genExpr(operand)
		if err != nil {
			return exprInfo{}, err
		}
		if info.isFloat {
			return exprInfo{}, g.errorf(n, "floating-point arithmetic is not supported")
		}
		g.emit(vm.PUSH)
		g.emitImm(vm.IMM, -1)
		g.emit(vm.XOR)
		return intInfo, nil
	default:
		return exprInfo{}, g.errorf(n, "unsupported unary operator")
	}
}

// genAddr emits the operand as an lvalue, then pops the trailing LC/LI it
// must end with (§4.2): the address it was about to load through is
// already sitting in ax, so dropping the load instruction is enough.
func (g *Generator) genAddr(operand ast.NodeID) (exprInfo, error) {
	info, err := g.genExpr(operand)
	if err != nil {
		return exprInfo{}, err
	}
	if len(g.text) == 0 {
		return exprInfo{}, g.errorf(g.pool.Node(operand), "invalid lvalue: cannot take address")
	}
	last := g.lastOp()
	if last != vm.LC && last != vm.LI {
		return exprInfo{}, g.errorf(g.pool.Node(operand), "invalid lvalue: cannot take address")
	}
	g.text = g.text[:len(g.text)-1]
	return exprInfo{typ: ast.TypeSpec{Base: info.typ.Base, PtrDepth: info.typ.PtrDepth + 1}}, nil
}

func (g *Generator) genDeref(operand ast.NodeID) (exprInfo, error) {
	info, err := g.genExpr(operand)
	if err != nil {
		return exprInfo{}, err
	}
	if info.typ.PtrDepth == 0 {
		return exprInfo{}, g.errorf(g.pool.Node(operand), "dereferenced value is not a pointer")
	}
	result := ast.TypeSpec{Base: info.typ.Base, PtrDepth: info.typ.PtrDepth - 1}
	g.emitLoadForSize(result.Size())
	return exprInfo{typ: result, isFloat: isFloatBase(result.Base) && result.PtrDepth == 0}, nil
}

// genIncDec implements pre/post ++/-- with the classic instruction-doubling
// trick (grounded directly in the original's bytecode shape, §9): the
// trailing load is rewritten to PUSH (saving the address), then re-emitted
// once more to actually fetch the value. After computing and storing the
// new value, a postfix op pushes the stored result and undoes the step
// against it (PUSH; IMM step; SUB|ADD) to recover the original value.
func (g *Generator) genIncDec(id ast.NodeID) (exprInfo, error) {
	n := g.pool.Node(id)
	operand := g.pool.Children(id)[0]
	info, err := g.genExpr(operand)
	if err != nil {
		return exprInfo{}, err
	}
	if len(g.text) == 0 {
		return exprInfo{}, g.errorf(n, "invalid lvalue in increment/decrement")
	}
	ld := g.lastOp()
	if ld != vm.LC && ld != vm.LI {
		return exprInfo{}, g.errorf(n, "invalid lvalue in increment/decrement")
	}

	width := info.typ.Size()
	step := incDecStep(info.typ)
	var storeOp vm.Op
	if width == 1 {
		storeOp = vm.SC
	} else {
		storeOp = vm.SI
	}

	g.text[len(g.text)-1] = int32(vm.PUSH)
	g.emit(ld)
	g.emit(vm.PUSH)
	g.emitImm(vm.IMM, int32(step))

	isInc := n.Op == ast.OpInc
	if isInc {
		g.emit(vm.ADD)
	} else {
		g.emit(vm.SUB)
	}
	g.emit(storeOp)

	if !n.Prefix {
		g.emit(vm.PUSH)
		g.emitImm(vm.IMM, int32(step))
		if isInc {
			g.emit(vm.SUB)
		} else {
			g.emit(vm.ADD)
		}
	}
	return info, nil
}

var binOpcodes = map[ast.Operator]vm.Op{
	ast.OpBitOr: vm.OR, ast.OpBitXor: vm.XOR, ast.OpBitAnd: vm.AND,
	ast.OpEq: vm.EQ, ast.OpNe: vm.NE,
	ast.OpLt: vm.LT, ast.OpGt: vm.GT, ast.OpLe: vm.LE, ast.OpGe: vm.GE,
	ast.OpShl: vm.SHL, ast.OpShr: vm.SHR,
	ast.OpAdd: vm.ADD, ast.OpSub: vm.SUB, ast.OpMul: vm.MUL, ast.OpDiv: vm.DIV, ast.OpMod: vm.MOD,
}

func (g *Generator) genBinOp(id ast.NodeID) (exprInfo, error) {
	n := g.pool.Node(id)
	children := g.pool.Children(id)
	switch n.Op {
	case ast.OpAssign:
		return g.genAssign(children[0], children[1])
	case ast.OpIndex:
		return g.genIndex(children[0], children[1])
	case ast.OpLogAnd:
		return g.genLogAnd(children[0], children[1])
	case ast.OpLogOr:
		return g.genLogOr(children[0], children[1])
	}

	leftInfo, err := g.genExpr(children[0])
	if err != nil {
		return exprInfo{}, err
	}
	if leftInfo.isFloat {
		return exprInfo{}, g.errorf(n, "floating-point arithmetic is not supported")
	}
	g.emit(vm.PUSH)
	rightInfo, err := g.genExpr(children[1])
	if err != nil {
		return exprInfo{}, err
	}
	if rightInfo.isFloat {
		return exprInfo{}, g.errorf(n, "floating-point arithmetic is not supported")
	}

	// Pointer arithmetic scales the right-hand operand by the left's
	// pointee size. Matches the original's left-operand-only rule: `int +
	// ptr` is not special-cased, exactly as in the source this was
	// distilled from.
	isPtrArith := (n.Op == ast.OpAdd || n.Op == ast.OpSub) && leftInfo.typ.PtrDepth > 0
	if isPtrArith {
		stride := leftInfo.typ.ElemSize()
		if stride > 1 {
			g.emit(vm.PUSH)
			g.emitImm(vm.IMM, int32(stride))
			g.emit(vm.MUL)
		}
	}

	opc, ok := binOpcodes[n.Op]
	if !ok {
		return exprInfo{}, g.errorf(n, "unsupported binary operator")
	}
	g.emit(opc)

	if isPtrArith {
		return exprInfo{typ: leftInfo.typ}, nil
	}
	return intInfo, nil
}

// genAssign rewrites the lvalue's trailing LC/LI to PUSH (keeping the
// address on the stack) then evaluates the right-hand side and stores it;
// SC/SI leave ax holding the stored value, matching C's assignment-as-
// expression semantics.
func (g *Generator) genAssign(lhs, rhs ast.NodeID) (exprInfo, error) {
	lhsInfo, err := g.genExpr(lhs)
	if err != nil {
		return exprInfo{}, err
	}
	if len(g.text) == 0 {
		return exprInfo{}, g.errorf(g.pool.Node(lhs), "invalid lvalue in assignment")
	}
	last := g.lastOp()
	if last != vm.LC && last != vm.LI {
		return exprInfo{}, g.errorf(g.pool.Node(lhs), "invalid lvalue in assignment")
	}
	width := lhsInfo.typ.Size()
	g.text[len(g.text)-1] = int32(vm.PUSH)

	rhsInfo, err := g.genExpr(rhs)
	if err != nil {
		return exprInfo{}, err
	}
	if width == 1 {
		g.emit(vm.SC)
	} else {
		g.emit(vm.SI)
	}
	return rhsInfo, nil
}

func (g *Generator) genIndex(baseNode, idxNode ast.NodeID) (exprInfo, error) {
	baseInfo, err := g.genExpr(baseNode)
	if err != nil {
		return exprInfo{}, err
	}
	if baseInfo.typ.PtrDepth == 0 {
		return exprInfo{}, g.errorf(g.pool.Node(baseNode), "indexed value is not a pointer")
	}
	g.emit(vm.PUSH)
	if _, err := g.genExpr(idxNode); err != nil {
		return exprInfo{}, err
	}
	stride := baseInfo.typ.ElemSize()
	if stride > 1 {
		g.emit(vm.PUSH)
		g.emitImm(vm.IMM, int32(stride))
		g.emit(vm.MUL)
	}
	g.emit(vm.ADD)
	result := ast.TypeSpec{Base: baseInfo.typ.Base, PtrDepth: baseInfo.typ.PtrDepth - 1}
	g.emitLoadForSize(result.Size())
	return exprInfo{typ: result, isFloat: isFloatBase(result.Base) && result.PtrDepth == 0}, nil
}

// genLogAnd/genLogOr emit short-circuiting boolean operators per §4.2's
// recipe exactly: emit left, emit a single placeholder jump, emit right,
// patch the placeholder to the current text index. ax is left holding
// whichever operand value was last evaluated, not normalized to 0/1 — a
// short-circuited `&&` leaves the falsy left operand in ax, and a
// short-circuited `||` leaves the truthy left operand in ax, matching
// genLogAnd/genLogOr in the original's GenCode.cpp.
func (g *Generator) genLogAnd(left, right ast.NodeID) (exprInfo, error) {
	if _, err := g.genExpr(left); err != nil {
		return exprInfo{}, err
	}
	g.emit(vm.JZ)
	placeholder := len(g.text)
	g.text = append(g.text, 0)

	if _, err := g.genExpr(right); err != nil {
		return exprInfo{}, err
	}
	g.text[placeholder] = int32(len(g.text))
	return intInfo, nil
}

func (g *Generator) genLogOr(left, right ast.NodeID) (exprInfo, error) {
	if _, err := g.genExpr(left); err != nil {
		return exprInfo{}, err
	}
	g.emit(vm.JNZ)
	placeholder := len(g.text)
	g.text = append(g.text, 0)

	if _, err := g.genExpr(right); err != nil {
		return exprInfo{}, err
	}
	g.text[placeholder] = int32(len(g.text))
	return intInfo, nil
}

func (g *Generator) genTriOp(id ast.NodeID) (exprInfo, error) {
	children := g.pool.Children(id)
	if _, err := g.genExpr(children[0]); err != nil {
		return exprInfo{}, err
	}
	g.emit(vm.JZ)
	elseIdx := len(g.text)
	g.text = append(g.text, 0)

	thenInfo, err := g.genExpr(children[1])
	if err != nil {
		return exprInfo{}, err
	}
	g.emit(vm.JMP)
	endIdx := len(g.text)
	g.text = append(g.text, 0)

	g.text[elseIdx] = int32(len(g.text))
	if _, err := g.genExpr(children[2]); err != nil {
		return exprInfo{}, err
	}
	g.text[endIdx] = int32(len(g.text))

	// No unification between the two branches' types (§4.2 design notes);
	// the then-branch's type describes the result.
	return thenInfo, nil
}

func (g *Generator) genInvoke(id ast.NodeID) (exprInfo, error) {
	n := g.pool.Node(id)
	sym, ok := g.syms.Find(n.Name)
	if !ok {
		return exprInfo{}, g.errorf(n, "undefined function: %s", n.Name)
	}

	argc := 0
	for _, wrap := range g.pool.Children(id) {
		argExpr := g.pool.Children(wrap)[0]
		if _, err := g.genExpr(argExpr); err != nil {
			return exprInfo{}, err
		}
		g.emit(vm.PUSH)
		argc++
	}

	switch sym.Class {
	case symtab.ClassFunc:
		g.emitImm(vm.CALL, int32(sym.Data))
		g.emitImm(vm.ADJ, int32(argc))
		return exprInfo{typ: sym.Type, isFloat: isFloatBase(sym.Type.Base) && sym.Type.PtrDepth == 0}, nil
	case symtab.ClassBuiltin:
		g.emit(vm.Op(sym.Data))
		g.emitImm(vm.ADJ, int32(argc))
		return intInfo, nil
	default:
		return exprInfo{}, g.errorf(n, "%s is not callable", n.Name)
	}
}
