package main

import (
	"fmt"
	"strings"
)

// operand is where an evaluated expression's value lives. A held operand
// owns a register claimed from the allocator; an unheld one is the call
// result in rax.
type operand struct {
	reg  string
	held bool
}

func (g *Generator) release(op operand) error {
	if !op.held {
		return nil
	}
	return g.regs.Release(op.reg)
}

func (g *Generator) lock() (string, error) {
	return g.regs.Lock()
}

// pin moves an unheld value into a register of its own so a later call
// cannot clobber it.
func (g *Generator) pin(op operand, node *ASTNode) (operand, error) {
	if op.held {
		return op, nil
	}
	reg, err := g.lock()
	if err != nil {
		return operand{}, withSpan(err, node)
	}
	g.out.Ins("mov %s, %s", reg, op.reg)
	return operand{reg: reg, held: true}, nil
}

// genExpr emits code evaluating node. Callers must have type checked node
// with InferType.
func (g *Generator) genExpr(node *ASTNode) (operand, error) {
	switch node.Kind {
	case NodeConstant:
		reg, err := g.lock()
		if err != nil {
			return operand{}, withSpan(err, node)
		}
		switch node.ConstKind {
		case KindInt:
			g.out.Ins("mov %s, %d", reg, node.Integer)
		case KindBool:
			if node.Boolean {
				g.out.Ins("mov %s, 1", reg)
			} else {
				g.out.Ins("mov %s, 0", reg)
			}
		case KindString:
			label := g.emitString(node.String)
			g.out.Ins("lea %s, [%s]", reg, label)
		default:
			return operand{}, withSpan(internalError("constant of kind %s", node.ConstKind), node)
		}
		return operand{reg: reg, held: true}, nil

	case NodeIdent:
		sym, err := g.symbols.Resolve(node.String)
		if err != nil {
			return operand{}, withSpan(err, node)
		}
		if sym.IsFunction() {
			return operand{}, nodeError(node, "cannot use function '%s' as a value", node.String)
		}
		reg, err := g.lock()
		if err != nil {
			return operand{}, withSpan(err, node)
		}
		g.out.Ins("mov %s, %s", reg, sym.Operand())
		return operand{reg: reg, held: true}, nil

	case NodeBinary:
		return g.genBinary(node)

	case NodeCall:
		return g.genCall(node)
	}
	return operand{}, nodeError(node, "%s is not an expression", node.Kind)
}

var compareMoves = map[string]string{
	"==": "cmove",
	">":  "cmovg",
	"<":  "cmovl",
}

func (g *Generator) genBinary(node *ASTNode) (operand, error) {
	if _, err := g.symbols.InferType(node); err != nil {
		return operand{}, err
	}
	leftKind, err := g.symbols.InferType(node.Children[0])
	if err != nil {
		return operand{}, err
	}
	if node.Op == "+" && leftKind == KindString {
		return g.genConcat(node)
	}

	// The left operand's register doubles as the result register. Only the
	// right register is released, so the bank stays LIFO and the value
	// never needs a move into a third register.
	left, err := g.genExpr(node.Children[0])
	if err != nil {
		return operand{}, err
	}
	if left, err = g.pin(left, node); err != nil {
		return operand{}, err
	}
	right, err := g.genExpr(node.Children[1])
	if err != nil {
		return operand{}, err
	}
	if node.Op == "/" {
		// idiv needs rax for the dividend.
		if right, err = g.pin(right, node); err != nil {
			return operand{}, err
		}
	}

	out := left.reg
	switch node.Op {
	case "+":
		g.out.Ins("add %s, %s", out, right.reg)
	case "-":
		g.out.Ins("sub %s, %s", out, right.reg)
	case "*":
		g.out.Ins("imul %s, %s", out, right.reg)
	case "/":
		g.out.Ins("mov rax, %s", out)
		g.out.Ins("cqo")
		g.out.Ins("idiv %s", right.reg)
		g.out.Ins("mov %s, rax", out)
	case "==", ">", "<":
		g.out.Ins("cmp %s, %s", out, right.reg)
	default:
		return operand{}, nodeError(node, "unknown operator '%s'", node.Op)
	}
	if err := g.release(right); err != nil {
		return operand{}, err
	}

	if cmov, ok := compareMoves[node.Op]; ok {
		// mov leaves the flags from cmp intact.
		g.out.Ins("mov %s, 0", out)
		tmp, err := g.lock()
		if err != nil {
			return operand{}, withSpan(err, node)
		}
		g.out.Ins("mov %s, 1", tmp)
		g.out.Ins("%s %s, %s", cmov, out, tmp)
		if err := g.regs.Release(tmp); err != nil {
			return operand{}, err
		}
	}
	return left, nil
}

// genConcat lowers string + string to a call of the concat helper.
func (g *Generator) genConcat(node *ASTNode) (operand, error) {
	if _, err := g.emitCall("concat", node.Children); err != nil {
		return operand{}, err
	}
	dest, err := g.lock()
	if err != nil {
		return operand{}, withSpan(err, node)
	}
	g.out.Ins("mov %s, rax", dest)
	return operand{reg: dest, held: true}, nil
}

func (g *Generator) genCall(node *ASTNode) (operand, error) {
	callee := node.Children[0]
	args := node.Children[1:]

	sym, err := g.symbols.Resolve(callee.String)
	if err != nil {
		return operand{}, withSpan(err, callee)
	}
	if !sym.IsFunction() {
		return operand{}, nodeError(callee, "'%s' is not a function", callee.String)
	}
	if !sym.Variadic && len(args) != len(sym.Params) {
		return operand{}, nodeError(node, "'%s' expects %d arguments, got %d", callee.String, len(sym.Params), len(args))
	}
	for i, arg := range args {
		kind, err := g.symbols.InferType(arg)
		if err != nil {
			return operand{}, err
		}
		if err := checkStorable(arg, kind); err != nil {
			return operand{}, err
		}
		if !sym.Variadic && kind != sym.Params[i] {
			return operand{}, nodeError(arg, "type mismatch: argument %d of '%s' must be %s, got %s", i+1, callee.String, sym.Params[i], kind)
		}
	}
	return g.emitCall(sym.Label(), args)
}

// emitCall evaluates args and calls label following the System V
// convention. The result is left in rax.
func (g *Generator) emitCall(label string, args []*ASTNode) (operand, error) {
	// Caller-saved: every register holding a live value.
	saved := g.regs.Held()
	for _, reg := range saved {
		g.out.Ins("push %s", reg)
		g.pushed++
	}

	nReg := len(args)
	if nReg > len(argRegisters) {
		nReg = len(argRegisters)
	}
	nStack := len(args) - nReg

	// rsp must be 16-byte aligned at the call instruction.
	pad := (g.stackOffset+8*(g.pushed+nStack))%16 != 0
	if pad {
		g.out.Ins("sub rsp, 8")
		g.pushed++
	}

	pushArg := func(arg *ASTNode) error {
		val, err := g.genExpr(arg)
		if err != nil {
			return err
		}
		g.out.Ins("push %s", val.reg)
		g.pushed++
		return g.release(val)
	}
	for i := len(args) - 1; i >= nReg; i-- {
		if err := pushArg(args[i]); err != nil {
			return operand{}, err
		}
	}
	for i := 0; i < nReg; i++ {
		if err := pushArg(args[i]); err != nil {
			return operand{}, err
		}
	}
	for i := nReg - 1; i >= 0; i-- {
		g.out.Ins("pop %s", argRegisters[i])
		g.pushed--
	}

	g.out.Ins("xor rax, rax")
	g.out.Ins("call %s", label)
	if nStack > 0 {
		g.out.Ins("add rsp, %d", 8*nStack)
		g.pushed -= nStack
	}
	if pad {
		g.out.Ins("add rsp, 8")
		g.pushed--
	}
	for i := len(saved) - 1; i >= 0; i-- {
		g.out.Ins("pop %s", saved[i])
		g.pushed--
	}
	return operand{reg: "rax"}, nil
}

// emitString places s in the data section under a fresh label, as an
// explicit zero-terminated byte list.
func (g *Generator) emitString(s string) string {
	label := fmt.Sprintf("__str_%d", g.stringCount)
	g.stringCount++
	parts := make([]string, 0, len(s)+1)
	for i := 0; i < len(s); i++ {
		parts = append(parts, fmt.Sprintf("0x%02x", s[i]))
	}
	parts = append(parts, "0")
	g.data.Ins("%s: db %s", label, strings.Join(parts, ", "))
	return label
}
