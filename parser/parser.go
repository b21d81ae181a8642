// Package parser is a recursive-descent, single-token-lookahead (plus one
// token of peek for cast detection) parser over package lexer's token
// stream. It is a mechanical, external collaborator of the core pipeline
// (§1): it carries no deep invariants beyond standard precedence-climbing,
// and its only real contract is the AST shape it hands to codegen (§3).
package parser

import (
	"fmt"

	"drtcc/ast"
	"drtcc/lexer"
	"drtcc/token"
)

// Error is a fatal parse fault (§7 band 2: parse/codegen errors always
// terminate compilation).
type Error struct {
	Line, Col int
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d:%d] ERROR: %s", e.Line, e.Col, e.Msg)
}

// Parser holds the token stream and the AST arena being built.
type Parser struct {
	lx   *lexer.Lexer
	tok  token.Token
	la   *token.Token
	pool *ast.Pool
}

// New creates a Parser over an already-constructed Lexer. The caller keeps
// the Lexer so it can inspect lx.Errors (lexical faults, §7 band 1) once
// parsing finishes.
func New(lx *lexer.Lexer) *Parser {
	p := &Parser{lx: lx, pool: ast.NewPool()}
	p.tok = lx.Next()
	return p
}

// Parse consumes the whole token stream and returns the Root node together
// with the pool it lives in.
func Parse(lx *lexer.Lexer) (ast.NodeID, *ast.Pool, error) {
	p := New(lx)
	root := p.pool.New(ast.Root, p.tok.Line, p.tok.Col)
	for p.tok.Kind != token.EOF {
		if err := p.parseTopLevelInto(root); err != nil {
			return ast.Nil, nil, err
		}
	}
	return root, p.pool, nil
}

func (p *Parser) peek() token.Token {
	if p.la == nil {
		t := p.lx.Next()
		p.la = &t
	}
	return *p.la
}

func (p *Parser) advance() {
	if p.la != nil {
		p.tok = *p.la
		p.la = nil
		return
	}
	p.tok = p.lx.Next()
}

func (p *Parser) errf(format string, args ...any) error {
	return &Error{Line: p.tok.Line, Col: p.tok.Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.tok.Kind != k {
		return token.Token{}, p.errf("expected %s, got %s", k, p.tok.Kind)
	}
	t := p.tok
	p.advance()
	return t, nil
}

func isTypeStart(k token.Kind) bool {
	switch k {
	case token.KwChar, token.KwShort, token.KwInt, token.KwLong,
		token.KwUnsigned, token.KwFloat, token.KwDouble, token.KwVoid:
		return true
	default:
		return false
	}
}

// parseBaseType consumes an optional 'unsigned' followed by a base-type
// keyword. A bare 'unsigned' with no following type keyword defaults to
// unsigned int, matching ordinary C practice.
func (p *Parser) parseBaseType() (ast.TypeSpec, error) {
	unsigned := false
	if p.tok.Kind == token.KwUnsigned {
		unsigned = true
		p.advance()
	}

	var base ast.BaseType
	switch p.tok.Kind {
	case token.KwChar:
		base = ast.TChar
		if unsigned {
			base = ast.TUChar
		}
		p.advance()
	case token.KwShort:
		base = ast.TShort
		if unsigned {
			base = ast.TUShort
		}
		p.advance()
	case token.KwInt:
		base = ast.TInt
		if unsigned {
			base = ast.TUInt
		}
		p.advance()
	case token.KwLong:
		base = ast.TLong
		if unsigned {
			base = ast.TULong
		}
		p.advance()
	case token.KwFloat:
		base = ast.TFloat
		p.advance()
	case token.KwDouble:
		base = ast.TDouble
		p.advance()
	case token.KwVoid:
		base = ast.TVoid
		p.advance()
	default:
		if unsigned {
			return ast.TypeSpec{Base: ast.TUInt}, nil
		}
		return ast.TypeSpec{}, p.errf("expected a type, got %s", p.tok.Kind)
	}
	return ast.TypeSpec{Base: base}, nil
}

func (p *Parser) parseStars() int {
	n := 0
	for p.tok.Kind == token.Star {
		n++
		p.advance()
	}
	return n
}

func (p *Parser) parseTypeName() (ast.TypeSpec, error) {
	base, err := p.parseBaseType()
	if err != nil {
		return ast.TypeSpec{}, err
	}
	base.PtrDepth = p.parseStars()
	return base, nil
}

// parseTopLevelInto parses one top-level declaration (enum, function
// definition, or global variable list) and appends the resulting node(s)
// directly to root, since a `T a, b;` declarator list produces several
// sibling nodes from a single production.
func (p *Parser) parseTopLevelInto(root ast.NodeID) error {
	if p.tok.Kind == token.KwEnum {
		node, err := p.parseEnum()
		if err != nil {
			return err
		}
		p.pool.AddChild(root, node)
		return nil
	}

	base, err := p.parseBaseType()
	if err != nil {
		return err
	}
	ptr := p.parseStars()
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return err
	}

	if p.tok.Kind == token.LParen {
		fn, err := p.parseFuncDef(base, ptr, nameTok)
		if err != nil {
			return err
		}
		p.pool.AddChild(root, fn)
		return nil
	}
	return p.parseDeclListInto(root, ast.VarGlobal, base, ptr, nameTok)
}

// parseDeclListInto parses the remainder of a `T *name {, *name}* ;`
// declaration, appending one node of the given tag per declared name.
func (p *Parser) parseDeclListInto(parent ast.NodeID, tag ast.Tag, base ast.TypeSpec, ptr int, nameTok token.Token) error {
	for {
		n := p.pool.New(tag, nameTok.Line, nameTok.Col)
		node := p.pool.Node(n)
		node.Name = nameTok.Str
		node.TypeSpec = ast.TypeSpec{Base: base.Base, PtrDepth: ptr}
		p.pool.AddChild(parent, n)

		if p.tok.Kind != token.Comma {
			break
		}
		p.advance()
		ptr = p.parseStars()
		var err error
		nameTok, err = p.expect(token.Ident)
		if err != nil {
			return err
		}
	}
	_, err := p.expect(token.Semi)
	return err
}

// parseEnum parses `enum [tag] { id [= [-]int] , ... } ;`. The tag name is
// optional (§4's supplemented "enum with/without tag name" feature); the
// initializer, when present, must be a constant integer since the AST has
// no general constant-folding facility — codegen assigns the running value
// to each EnumUnit directly from HasInit/IntVal (§8's increment-by-one
// rule).
func (p *Parser) parseEnum() (ast.NodeID, error) {
	line, col := p.tok.Line, p.tok.Col
	p.advance() // 'enum'

	name := ""
	if p.tok.Kind == token.Ident {
		name = p.tok.Str
		p.advance()
	}

	if _, err := p.expect(token.LBrace); err != nil {
		return ast.Nil, err
	}

	node := p.pool.New(ast.Enum, line, col)
	p.pool.Node(node).Name = name

	for p.tok.Kind != token.RBrace {
		memberTok, err := p.expect(token.Ident)
		if err != nil {
			return ast.Nil, err
		}
		unit := p.pool.New(ast.EnumUnit, memberTok.Line, memberTok.Col)
		un := p.pool.Node(unit)
		un.Name = memberTok.Str

		if p.tok.Kind == token.Assign {
			p.advance()
			neg := false
			if p.tok.Kind == token.Minus {
				neg = true
				p.advance()
			}
			lit, err := p.expect(token.IntLit)
			if err != nil {
				return ast.Nil, err
			}
			v := lit.Int
			if neg {
				v = -v
			}
			un.HasInit = true
			un.IntVal = v
		}
		p.pool.AddChild(node, unit)

		if p.tok.Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}

	if _, err := p.expect(token.RBrace); err != nil {
		return ast.Nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return ast.Nil, err
	}
	return node, nil
}

// parseFuncDef parses a function's parameter list and body. Per §4.2, the
// parser appends a dedicated Empty marker node as the child directly
// before the body block: codegen uses its position to know where the
// `ENT` frame-size placeholder belongs once it has seen every local.
func (p *Parser) parseFuncDef(base ast.TypeSpec, ptr int, nameTok token.Token) (ast.NodeID, error) {
	fn := p.pool.New(ast.Func, nameTok.Line, nameTok.Col)
	fnode := p.pool.Node(fn)
	fnode.Name = nameTok.Str
	fnode.TypeSpec = ast.TypeSpec{Base: base.Base, PtrDepth: ptr}

	if _, err := p.expect(token.LParen); err != nil {
		return ast.Nil, err
	}
	for p.tok.Kind != token.RParen {
		pbase, err := p.parseBaseType()
		if err != nil {
			return ast.Nil, err
		}
		pptr := p.parseStars()
		pname, err := p.expect(token.Ident)
		if err != nil {
			return ast.Nil, err
		}
		param := p.pool.New(ast.Param, pname.Line, pname.Col)
		pn := p.pool.Node(param)
		pn.Name = pname.Str
		pn.TypeSpec = ast.TypeSpec{Base: pbase.Base, PtrDepth: pptr}
		p.pool.AddChild(fn, param)

		if p.tok.Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.Nil, err
	}

	marker := p.pool.New(ast.Empty, p.tok.Line, p.tok.Col)
	p.pool.AddChild(fn, marker)

	body, err := p.parseBlock()
	if err != nil {
		return ast.Nil, err
	}
	p.pool.AddChild(fn, body)
	return fn, nil
}

func (p *Parser) parseBlock() (ast.NodeID, error) {
	open, err := p.expect(token.LBrace)
	if err != nil {
		return ast.Nil, err
	}
	node := p.pool.New(ast.Block, open.Line, open.Col)

	for p.tok.Kind != token.RBrace {
		if p.tok.Kind == token.EOF {
			return ast.Nil, p.errf("unexpected end of input in block")
		}
		if isTypeStart(p.tok.Kind) {
			base, err := p.parseBaseType()
			if err != nil {
				return ast.Nil, err
			}
			ptr := p.parseStars()
			nameTok, err := p.expect(token.Ident)
			if err != nil {
				return ast.Nil, err
			}
			if err := p.parseDeclListInto(node, ast.VarLocal, base, ptr, nameTok); err != nil {
				return ast.Nil, err
			}
			continue
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return ast.Nil, err
		}
		p.pool.AddChild(node, stmt)
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return ast.Nil, err
	}
	return node, nil
}

func (p *Parser) parseStmt() (ast.NodeID, error) {
	switch p.tok.Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.Semi:
		n := p.pool.New(ast.Empty, p.tok.Line, p.tok.Col)
		p.advance()
		return n, nil
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwReturn:
		return p.parseReturn()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseIf() (ast.NodeID, error) {
	line, col := p.tok.Line, p.tok.Col
	p.advance() // 'if'
	if _, err := p.expect(token.LParen); err != nil {
		return ast.Nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return ast.Nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.Nil, err
	}
	thenStmt, err := p.parseStmt()
	if err != nil {
		return ast.Nil, err
	}

	node := p.pool.New(ast.If, line, col)
	p.pool.AddChild(node, cond)
	p.pool.AddChild(node, thenStmt)

	if p.tok.Kind == token.KwElse {
		p.advance()
		elseStmt, err := p.parseStmt()
		if err != nil {
			return ast.Nil, err
		}
		p.pool.AddChild(node, elseStmt)
	}
	return node, nil
}

func (p *Parser) parseWhile() (ast.NodeID, error) {
	line, col := p.tok.Line, p.tok.Col
	p.advance() // 'while'
	if _, err := p.expect(token.LParen); err != nil {
		return ast.Nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return ast.Nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.Nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return ast.Nil, err
	}

	node := p.pool.New(ast.While, line, col)
	p.pool.AddChild(node, cond)
	p.pool.AddChild(node, body)
	return node, nil
}

func (p *Parser) parseReturn() (ast.NodeID, error) {
	line, col := p.tok.Line, p.tok.Col
	p.advance() // 'return'
	node := p.pool.New(ast.Return, line, col)
	if p.tok.Kind != token.Semi {
		e, err := p.parseExpr()
		if err != nil {
			return ast.Nil, err
		}
		p.pool.AddChild(node, e)
	}
	if _, err := p.expect(token.Semi); err != nil {
		return ast.Nil, err
	}
	return node, nil
}

func (p *Parser) parseExprStmt() (ast.NodeID, error) {
	e, err := p.parseExpr()
	if err != nil {
		return ast.Nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return ast.Nil, err
	}
	node := p.pool.New(ast.Stmt, p.pool.Node(e).Line, p.pool.Node(e).Col)
	p.pool.AddChild(node, e)
	return node, nil
}

func (p *Parser) parseExpr() (ast.NodeID, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (ast.NodeID, error) {
	lhs, err := p.parseTernary()
	if err != nil {
		return ast.Nil, err
	}
	if p.tok.Kind == token.Assign {
		line, col := p.tok.Line, p.tok.Col
		p.advance()
		rhs, err := p.parseAssignment()
		if err != nil {
			return ast.Nil, err
		}
		node := p.pool.New(ast.BinOp, line, col)
		p.pool.Node(node).Op = ast.OpAssign
		p.pool.AddChild(node, lhs)
		p.pool.AddChild(node, rhs)
		return node, nil
	}
	return lhs, nil
}

func (p *Parser) parseTernary() (ast.NodeID, error) {
	cond, err := p.parseLogOr()
	if err != nil {
		return ast.Nil, err
	}
	if p.tok.Kind != token.Question {
		return cond, nil
	}
	line, col := p.tok.Line, p.tok.Col
	p.advance()
	thenE, err := p.parseExpr()
	if err != nil {
		return ast.Nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return ast.Nil, err
	}
	elseE, err := p.parseTernary()
	if err != nil {
		return ast.Nil, err
	}
	node := p.pool.New(ast.TriOp, line, col)
	p.pool.Node(node).Op = ast.OpCond
	p.pool.AddChild(node, cond)
	p.pool.AddChild(node, thenE)
	p.pool.AddChild(node, elseE)
	return node, nil
}

// binaryLevel is the shared shape of every binary-precedence level: parse
// one operand with next, then fold in zero or more (op, operand) pairs
// whose token matches one of ops.
func (p *Parser) binaryLevel(next func() (ast.NodeID, error), ops map[token.Kind]ast.Operator) (ast.NodeID, error) {
	left, err := next()
	if err != nil {
		return ast.Nil, err
	}
	for {
		op, ok := ops[p.tok.Kind]
		if !ok {
			return left, nil
		}
		line, col := p.tok.Line, p.tok.Col
		p.advance()
		right, err := next()
		if err != nil {
			return ast.Nil, err
		}
		node := p.pool.New(ast.BinOp, line, col)
		p.pool.Node(node).Op = op
		p.pool.AddChild(node, left)
		p.pool.AddChild(node, right)
		left = node
	}
}

var logOrOps = map[token.Kind]ast.Operator{token.LogOr: ast.OpLogOr}
var logAndOps = map[token.Kind]ast.Operator{token.LogAnd: ast.OpLogAnd}
var bitOrOps = map[token.Kind]ast.Operator{token.BitOr: ast.OpBitOr}
var bitXorOps = map[token.Kind]ast.Operator{token.BitXor: ast.OpBitXor}
var bitAndOps = map[token.Kind]ast.Operator{token.BitAnd: ast.OpBitAnd}
var equalityOps = map[token.Kind]ast.Operator{token.Eq: ast.OpEq, token.Ne: ast.OpNe}
var relationalOps = map[token.Kind]ast.Operator{
	token.Lt: ast.OpLt, token.Gt: ast.OpGt, token.Le: ast.OpLe, token.Ge: ast.OpGe,
}
var shiftOps = map[token.Kind]ast.Operator{token.Shl: ast.OpShl, token.Shr: ast.OpShr}
var additiveOps = map[token.Kind]ast.Operator{token.Plus: ast.OpAdd, token.Minus: ast.OpSub}
var multiplicativeOps = map[token.Kind]ast.Operator{
	token.Star: ast.OpMul, token.Slash: ast.OpDiv, token.Percent: ast.OpMod,
}

func (p *Parser) parseLogOr() (ast.NodeID, error) { return p.binaryLevel(p.parseLogAnd, logOrOps) }
func (p *Parser) parseLogAnd() (ast.NodeID, error) { return p.binaryLevel(p.parseBitOr, logAndOps) }
func (p *Parser) parseBitOr() (ast.NodeID, error)  { return p.binaryLevel(p.parseBitXor, bitOrOps) }
func (p *Parser) parseBitXor() (ast.NodeID, error) { return p.binaryLevel(p.parseBitAnd, bitXorOps) }
func (p *Parser) parseBitAnd() (ast.NodeID, error) { return p.binaryLevel(p.parseEquality, bitAndOps) }
func (p *Parser) parseEquality() (ast.NodeID, error) {
	return p.binaryLevel(p.parseRelational, equalityOps)
}
func (p *Parser) parseRelational() (ast.NodeID, error) {
	return p.binaryLevel(p.parseShift, relationalOps)
}
func (p *Parser) parseShift() (ast.NodeID, error) { return p.binaryLevel(p.parseAdditive, shiftOps) }
func (p *Parser) parseAdditive() (ast.NodeID, error) {
	return p.binaryLevel(p.parseMultiplicative, additiveOps)
}
func (p *Parser) parseMultiplicative() (ast.NodeID, error) {
	return p.binaryLevel(p.parseUnary, multiplicativeOps)
}

var unaryPrefixOps = map[token.Kind]ast.Operator{
	token.Plus:  ast.OpPos,
	token.Minus: ast.OpNeg,
	token.Not:   ast.OpNot,
	token.BitNot: ast.OpBitNot,
	token.Star:  ast.OpDeref,
	token.BitAnd: ast.OpAddr,
}

func (p *Parser) parseUnary() (ast.NodeID, error) {
	if op, ok := unaryPrefixOps[p.tok.Kind]; ok {
		line, col := p.tok.Line, p.tok.Col
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return ast.Nil, err
		}
		node := p.pool.New(ast.SinOp, line, col)
		n := p.pool.Node(node)
		n.Op = op
		n.Prefix = true
		p.pool.AddChild(node, operand)
		return node, nil
	}

	switch p.tok.Kind {
	case token.Inc, token.Dec:
		line, col := p.tok.Line, p.tok.Col
		op := ast.OpInc
		if p.tok.Kind == token.Dec {
			op = ast.OpDec
		}
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return ast.Nil, err
		}
		node := p.pool.New(ast.SinOp, line, col)
		n := p.pool.Node(node)
		n.Op = op
		n.Prefix = true
		p.pool.AddChild(node, operand)
		return node, nil

	case token.KwSizeof:
		return p.parseSizeof()

	case token.LParen:
		if isTypeStart(p.peek().Kind) {
			line, col := p.tok.Line, p.tok.Col
			p.advance() // '('
			ts, err := p.parseTypeName()
			if err != nil {
				return ast.Nil, err
			}
			if _, err := p.expect(token.RParen); err != nil {
				return ast.Nil, err
			}
			operand, err := p.parseUnary()
			if err != nil {
				return ast.Nil, err
			}
			node := p.pool.New(ast.Cast, line, col)
			p.pool.Node(node).TypeSpec = ts
			p.pool.AddChild(node, operand)
			return node, nil
		}
	}

	return p.parsePostfix()
}

// parseSizeof folds `sizeof(type [*...])` to an unsigned-int literal at
// parse time: §3's node tag set has no dedicated Sizeof tag, so this is
// the only place the value can be computed.
func (p *Parser) parseSizeof() (ast.NodeID, error) {
	line, col := p.tok.Line, p.tok.Col
	p.advance() // 'sizeof'
	if _, err := p.expect(token.LParen); err != nil {
		return ast.Nil, err
	}
	ts, err := p.parseTypeName()
	if err != nil {
		return ast.Nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.Nil, err
	}
	node := p.pool.New(ast.LitUInt, line, col)
	p.pool.Node(node).IntVal = int64(ts.Size())
	return node, nil
}

func (p *Parser) parsePostfix() (ast.NodeID, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return ast.Nil, err
	}
	for {
		switch p.tok.Kind {
		case token.LBracket:
			line, col := p.tok.Line, p.tok.Col
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return ast.Nil, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return ast.Nil, err
			}
			node := p.pool.New(ast.BinOp, line, col)
			p.pool.Node(node).Op = ast.OpIndex
			p.pool.AddChild(node, e)
			p.pool.AddChild(node, idx)
			e = node

		case token.LParen:
			if p.pool.Node(e).Tag != ast.Id {
				return ast.Nil, p.errf("called object is not a function")
			}
			line, col := p.tok.Line, p.tok.Col
			p.advance()
			invoke := p.pool.New(ast.Invoke, line, col)
			p.pool.Node(invoke).Name = p.pool.Node(e).Name
			for p.tok.Kind != token.RParen {
				arg, err := p.parseAssignment()
				if err != nil {
					return ast.Nil, err
				}
				wrap := p.pool.New(ast.ExpParam, p.pool.Node(arg).Line, p.pool.Node(arg).Col)
				p.pool.AddChild(wrap, arg)
				p.pool.AddChild(invoke, wrap)
				if p.tok.Kind == token.Comma {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expect(token.RParen); err != nil {
				return ast.Nil, err
			}
			e = invoke

		case token.Inc, token.Dec:
			line, col := p.tok.Line, p.tok.Col
			op := ast.OpInc
			if p.tok.Kind == token.Dec {
				op = ast.OpDec
			}
			p.advance()
			node := p.pool.New(ast.SinOp, line, col)
			n := p.pool.Node(node)
			n.Op = op
			n.Prefix = false
			p.pool.AddChild(node, e)
			e = node

		default:
			return e, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.NodeID, error) {
	tok := p.tok
	switch tok.Kind {
	case token.IntLit:
		p.advance()
		n := p.pool.New(ast.LitInt, tok.Line, tok.Col)
		p.pool.Node(n).IntVal = tok.Int
		return n, nil
	case token.UIntLit:
		p.advance()
		n := p.pool.New(ast.LitUInt, tok.Line, tok.Col)
		p.pool.Node(n).IntVal = tok.Int
		return n, nil
	case token.LongLit:
		p.advance()
		n := p.pool.New(ast.LitLong, tok.Line, tok.Col)
		p.pool.Node(n).IntVal = tok.Int
		return n, nil
	case token.ULongLit:
		p.advance()
		n := p.pool.New(ast.LitULong, tok.Line, tok.Col)
		p.pool.Node(n).IntVal = tok.Int
		return n, nil
	case token.FloatLit:
		p.advance()
		n := p.pool.New(ast.LitFloat, tok.Line, tok.Col)
		p.pool.Node(n).FloatVal = tok.Flt
		return n, nil
	case token.DoubleLit:
		p.advance()
		n := p.pool.New(ast.LitDouble, tok.Line, tok.Col)
		p.pool.Node(n).FloatVal = tok.Flt
		return n, nil
	case token.CharLit:
		p.advance()
		n := p.pool.New(ast.LitChar, tok.Line, tok.Col)
		p.pool.Node(n).IntVal = tok.Int
		return n, nil
	case token.StringLit:
		content := tok.Str
		p.advance()
		for p.tok.Kind == token.StringLit {
			content += p.tok.Str
			p.advance()
		}
		n := p.pool.New(ast.String, tok.Line, tok.Col)
		p.pool.Node(n).Name = content
		return n, nil
	case token.Ident:
		p.advance()
		n := p.pool.New(ast.Id, tok.Line, tok.Col)
		p.pool.Node(n).Name = tok.Str
		return n, nil
	case token.LParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return ast.Nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.Nil, err
		}
		n := p.pool.New(ast.Exp, tok.Line, tok.Col)
		p.pool.AddChild(n, e)
		return n, nil
	default:
		return ast.Nil, p.errf("unexpected token %s", tok.Kind)
	}
}
