package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// argRegisters are the System V integer argument registers, in order.
var argRegisters = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// externFunc describes a libc routine the generated program links against.
type externFunc struct {
	name       string
	returnKind ValueKind
}

var externs = []externFunc{
	{"malloc", KindInt},
	{"free", KindVoid},
	{"memcpy", KindInt},
	{"strlen", KindInt},
	{"strcat", KindString},
	{"strcpy", KindString},
	{"printf", KindInt},
}

// isReservedName reports whether a global or function name would collide
// with a generated label. $ makes NASM read "$concat" as "concat".
func isReservedName(name string) bool {
	return name == "concat" || strings.HasPrefix(name, "__")
}

// Generator lowers a Program AST to NASM x86-64 assembly.
type Generator struct {
	symbols *SymbolTable
	regs    *RegisterAllocator

	global Section
	data   Section
	bss    Section
	text   Section
	// init collects top-level executable statements; it becomes __init.
	init Section
	out  *Section

	inFunction  bool
	fnName      string
	fnReturn    ValueKind
	stackOffset int // bytes of stack slots allocated in the current frame
	pushed      int // transient 8-byte pushes outstanding

	labelCount  int
	stringCount int

	// Trace, if set, receives one line per lowered node and declared symbol.
	Trace io.Writer
}

func NewGenerator() *Generator {
	g := &Generator{}
	g.reset()
	return g
}

func (g *Generator) reset() {
	g.symbols = NewSymbolTable()
	g.regs = NewRegisterAllocator()
	g.global.Reset()
	g.data.Reset()
	g.bss.Reset()
	g.text.Reset()
	g.init.Reset()
	g.out = &g.init
	g.inFunction = false
	g.fnName = ""
	g.fnReturn = KindUnknown
	g.stackOffset = 0
	g.pushed = 0
	g.labelCount = 0
	g.stringCount = 0
}

// Symbols returns the symbol table of the last generation run.
func (g *Generator) Symbols() *SymbolTable {
	return g.symbols
}

// Registers returns the register allocator of the last generation run.
func (g *Generator) Registers() *RegisterAllocator {
	return g.regs
}

func (g *Generator) tracef(format string, args ...any) {
	if g.Trace != nil {
		fmt.Fprintf(g.Trace, format+"\n", args...)
	}
}

// Generate lowers program and returns the complete assembly text. All
// generator state is reset first, so a Generator can be reused.
func (g *Generator) Generate(program *ASTNode) (string, error) {
	g.reset()

	g.global.Emit("default rel")
	for _, ext := range externs {
		g.global.Emitf("extern %s", ext.name)
		sym, err := g.symbols.Declare(ext.name, StorageGlobal)
		if err != nil {
			return "", err
		}
		sym.Kind = KindFunction
		sym.ReturnKind = ext.returnKind
		sym.Variadic = true
		sym.Extern = true
	}

	if err := g.declareGlobals(program); err != nil {
		return "", err
	}

	g.bss.Emit("section .bss")
	g.data.Emit("section .data")
	g.text.Emit("section .text")
	g.emitConcatHelper()

	for _, body := range program.Children {
		for _, stmt := range body.Children {
			if err := g.genStatement(stmt); err != nil {
				return "", err
			}
		}
	}

	if g.init.Len() > 0 {
		g.text.Emit("__init:")
		g.text.Ins("push rbp")
		g.text.Ins("mov rbp, rsp")
		g.init.AppendTo(&g.text.buf)
		g.text.Ins("mov rsp, rbp")
		g.text.Ins("pop rbp")
		g.text.Ins("ret")
		g.data.Emit("section .init_array")
		g.data.Ins("dq __init")
	}

	if !g.regs.Balanced() {
		locks, unlocks := g.regs.Counts()
		return "", internalError("unbalanced registers after generation: %d locks, %d unlocks", locks, unlocks)
	}

	var out bytes.Buffer
	g.global.AppendTo(&out)
	g.data.AppendTo(&out)
	g.bss.AppendTo(&out)
	g.text.AppendTo(&out)
	return out.String(), nil
}

// declareGlobals registers every top-level function, then every top-level
// variable in source order, so later code may refer to them before their
// definition is emitted.
func (g *Generator) declareGlobals(program *ASTNode) error {
	for _, body := range program.Children {
		for _, stmt := range body.Children {
			if stmt.Kind != NodeDeclFn {
				continue
			}
			name := stmt.Children[0]
			if isReservedName(name.String) {
				return nodeError(name, "'%s' is a reserved name", name.String)
			}
			sym, err := g.symbols.Declare(name.String, StorageGlobal)
			if err != nil {
				return withSpan(err, name)
			}
			sym.Kind = KindFunction
			sym.ReturnKind = stmt.ReturnType
			for _, p := range stmt.Params {
				sym.Params = append(sym.Params, p.Kind)
			}
			g.tracef("declare fn %s(%d params): %s", sym.Name, len(sym.Params), sym.ReturnKind)
		}
	}

	for _, body := range program.Children {
		for _, stmt := range body.Children {
			if stmt.Kind != NodeAssign || stmt.Children[0].Kind != NodeDeclVar {
				continue
			}
			decl := stmt.Children[0]
			name := decl.Children[0]
			if isReservedName(name.String) {
				return nodeError(name, "'%s' is a reserved name", name.String)
			}
			kind, err := g.symbols.InferType(stmt.Children[1])
			if err != nil {
				return err
			}
			if err := checkStorable(stmt.Children[1], kind); err != nil {
				return err
			}
			sym, err := g.symbols.Declare(name.String, StorageGlobal)
			if err != nil {
				return withSpan(err, name)
			}
			sym.IsConst = decl.IsConst
			if err := sym.Memoize(kind); err != nil {
				return withSpan(err, decl)
			}
			g.tracef("declare global %s: %s", sym.Name, sym.Kind)
		}
	}
	return nil
}

// checkStorable rejects values that cannot live in a variable.
func checkStorable(rhs *ASTNode, kind ValueKind) error {
	switch kind {
	case KindVoid:
		return nodeError(rhs, "cannot assign a void value")
	case KindFunction:
		return nodeError(rhs, "cannot use function '%s' as a value", rhs.String)
	}
	return nil
}

// checkBalanced verifies that a statement left no register claimed and no
// transient push on the stack.
func (g *Generator) checkBalanced(stmt *ASTNode) error {
	if held := g.regs.Held(); len(held) > 0 {
		return withSpan(internalError("registers %v still held after %s", held, stmt.Kind), stmt)
	}
	if g.pushed != 0 {
		return withSpan(internalError("%d stack words still pushed after %s", g.pushed, stmt.Kind), stmt)
	}
	return nil
}

func (g *Generator) genStatement(node *ASTNode) error {
	g.tracef("lower %s", node.Kind)
	var err error
	switch node.Kind {
	case NodeDeclFn:
		err = g.genFunction(node)
	case NodeAssign:
		err = g.genAssign(node)
	case NodeReturn:
		err = g.genReturn(node)
	case NodeIf:
		err = g.genIf(node)
	case NodeBlock:
		err = g.genBlock(node)
	case NodeCall:
		if _, err = g.symbols.InferType(node); err == nil {
			_, err = g.genCall(node)
		}
	default:
		return nodeError(node, "unexpected %s in statement position", node.Kind)
	}
	if err != nil {
		return err
	}
	return g.checkBalanced(node)
}

func (g *Generator) genBlock(node *ASTNode) error {
	g.symbols.PushScope()
	for _, stmt := range node.Children {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}
	return g.symbols.PopScope()
}

// frameState is the per-function generator state saved around a function
// body.
type frameState struct {
	inFunction  bool
	fnName      string
	fnReturn    ValueKind
	stackOffset int
	pushed      int
	out         *Section
}

func (g *Generator) saveFrame() frameState {
	return frameState{g.inFunction, g.fnName, g.fnReturn, g.stackOffset, g.pushed, g.out}
}

func (g *Generator) restoreFrame(f frameState) {
	g.inFunction, g.fnName, g.fnReturn = f.inFunction, f.fnName, f.fnReturn
	g.stackOffset, g.pushed, g.out = f.stackOffset, f.pushed, f.out
}

func (g *Generator) genFunction(node *ASTNode) error {
	name := node.Children[0]
	if g.inFunction || !g.symbols.AtGlobalScope() {
		return nodeError(node, "function '%s' must be declared at the top level", name.String)
	}
	sym := g.symbols.Lookup(name.String)
	if sym == nil || !sym.IsFunction() {
		return withSpan(internalError("function '%s' was not pre-declared", name.String), name)
	}

	saved := g.saveFrame()
	g.inFunction = true
	g.fnName = name.String
	g.fnReturn = node.ReturnType
	g.stackOffset = 0
	g.pushed = 0
	g.out = &g.text

	g.global.Emitf("global %s", sym.Label())
	g.text.Emitf("%s:", sym.Label())
	g.text.Ins("push rbp")
	g.text.Ins("mov rbp, rsp")

	g.symbols.PushScope()
	for i, p := range node.Params {
		param, err := g.symbols.Declare(p.Name, StorageLocal)
		if err != nil {
			return withSpan(err, node)
		}
		param.Kind = p.Kind
		if i < len(argRegisters) {
			g.allocSlot(param)
			g.out.Ins("mov %s, %s", param.Operand(), argRegisters[i])
		} else {
			// Above the saved rbp and the return address.
			param.Offset = 16 + 8*(i-len(argRegisters))
		}
	}
	if err := g.genBlock(node.Children[1]); err != nil {
		return err
	}
	if err := g.symbols.PopScope(); err != nil {
		return err
	}

	g.text.Ins("xor rax, rax")
	g.emitEpilogue()
	g.restoreFrame(saved)
	return nil
}

func (g *Generator) emitEpilogue() {
	g.out.Ins("mov rsp, rbp")
	g.out.Ins("pop rbp")
	g.out.Ins("ret")
}

// allocSlot gives sym the next 8-byte stack slot of the current frame.
func (g *Generator) allocSlot(sym *Symbol) {
	g.stackOffset += 8
	sym.Offset = -g.stackOffset
	g.out.Ins("sub rsp, 8")
	g.tracef("declare local %s at %s", sym.Name, sym.Operand())
}

func (g *Generator) genAssign(node *ASTNode) error {
	lhs, rhs := node.Children[0], node.Children[1]

	kind, err := g.symbols.InferType(rhs)
	if err != nil {
		return err
	}
	if err := checkStorable(rhs, kind); err != nil {
		return err
	}
	val, err := g.genExpr(rhs)
	if err != nil {
		return err
	}

	var sym *Symbol
	switch lhs.Kind {
	case NodeDeclVar:
		name := lhs.Children[0].String
		if g.symbols.AtGlobalScope() {
			sym = g.symbols.Lookup(name)
			if sym == nil {
				return withSpan(internalError("global '%s' was not pre-declared", name), lhs)
			}
			g.data.Ins("%s: dq 0", sym.Label())
		} else {
			sym, err = g.symbols.Declare(name, StorageLocal)
			if err != nil {
				return withSpan(err, lhs)
			}
			sym.IsConst = lhs.IsConst
			g.allocSlot(sym)
		}
	case NodeIdent:
		sym, err = g.symbols.Resolve(lhs.String)
		if err != nil {
			return withSpan(err, lhs)
		}
		if sym.IsFunction() {
			return nodeError(lhs, "cannot assign to function '%s'", lhs.String)
		}
		if sym.IsConst {
			return nodeError(lhs, "cannot assign to constant '%s'", lhs.String)
		}
	default:
		return nodeError(lhs, "cannot assign to %s", lhs.Kind)
	}

	if err := sym.Memoize(kind); err != nil {
		return withSpan(err, node)
	}
	g.out.Ins("mov %s, %s", sym.Operand(), val.reg)
	return g.release(val)
}

func (g *Generator) genReturn(node *ASTNode) error {
	if !g.inFunction {
		return nodeError(node, "return outside of a function")
	}

	if len(node.Children) == 0 {
		if g.fnReturn != KindVoid {
			return nodeError(node, "function '%s' must return a value of type %s", g.fnName, g.fnReturn)
		}
		g.emitEpilogue()
		return nil
	}

	expr := node.Children[0]
	if g.fnReturn == KindVoid {
		return nodeError(expr, "void function '%s' cannot return a value", g.fnName)
	}
	kind, err := g.symbols.InferType(expr)
	if err != nil {
		return err
	}
	if kind != g.fnReturn {
		return nodeError(expr, "type mismatch: function '%s' returns %s, got %s", g.fnName, g.fnReturn, kind)
	}
	val, err := g.genExpr(expr)
	if err != nil {
		return err
	}
	if val.reg != "rax" {
		g.out.Ins("mov rax, %s", val.reg)
	}
	if err := g.release(val); err != nil {
		return err
	}
	g.emitEpilogue()
	return nil
}

func (g *Generator) genIf(node *ASTNode) error {
	cond := node.Children[0]
	kind, err := g.symbols.InferType(cond)
	if err != nil {
		return err
	}
	if kind != KindBool {
		return nodeError(cond, "if condition must be bool, got %s", kind)
	}
	val, err := g.genExpr(cond)
	if err != nil {
		return err
	}
	g.out.Ins("cmp %s, 0", val.reg)
	if err := g.release(val); err != nil {
		return err
	}

	id := g.labelCount
	g.labelCount++
	endLabel := fmt.Sprintf(".if_end_%d", id)
	entryOffset := g.stackOffset

	if len(node.Children) < 3 {
		g.out.Ins("je %s", endLabel)
		if err := g.genBlock(node.Children[1]); err != nil {
			return err
		}
	} else {
		elseLabel := fmt.Sprintf(".if_else_%d", id)
		g.out.Ins("je %s", elseLabel)
		if err := g.genBlock(node.Children[1]); err != nil {
			return err
		}
		g.out.Ins("jmp %s", endLabel)
		g.out.Emitf("%s:", elseLabel)
		g.syncStack(entryOffset)

		elseNode := node.Children[2]
		if elseNode.Kind == NodeIf {
			err = g.genIf(elseNode)
		} else {
			err = g.genBlock(elseNode)
		}
		if err != nil {
			return err
		}
	}

	g.out.Emitf("%s:", endLabel)
	g.syncStack(entryOffset)
	return nil
}

// syncStack moves rsp to the bottom of the current frame when slots were
// allocated since entryOffset, so every path into a label agrees on rsp.
func (g *Generator) syncStack(entryOffset int) {
	if g.stackOffset != entryOffset {
		g.out.Ins("lea rsp, [rbp-%d]", g.stackOffset)
	}
}

// emitConcatHelper emits concat(lhs, rhs): a fresh heap buffer holding lhs
// followed by rhs.
func (g *Generator) emitConcatHelper() {
	t := &g.text
	t.Emit("concat:")
	t.Ins("push rbp")
	t.Ins("mov rbp, rsp")
	t.Ins("sub rsp, 48")
	t.Ins("mov [rbp-8], rdi")
	t.Ins("mov [rbp-16], rsi")
	t.Ins("call strlen")
	t.Ins("mov [rbp-24], rax")
	t.Ins("mov rdi, [rbp-16]")
	t.Ins("call strlen")
	t.Ins("add rax, [rbp-24]")
	t.Ins("add rax, 1")
	t.Ins("mov rdi, rax")
	t.Ins("call malloc")
	t.Ins("mov [rbp-32], rax")
	t.Ins("mov rdi, rax")
	t.Ins("mov rsi, [rbp-8]")
	t.Ins("call strcpy")
	t.Ins("mov rdi, [rbp-32]")
	t.Ins("mov rsi, [rbp-16]")
	t.Ins("call strcat")
	t.Ins("mov rax, [rbp-32]")
	t.Ins("mov rsp, rbp")
	t.Ins("pop rbp")
	t.Ins("ret")
}
