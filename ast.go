package main

import (
	"strconv"
	"strings"
)

// NodeKind represents different types of AST nodes
type NodeKind string

const (
	NodeProgram  NodeKind = "NodeProgram"
	NodeBody     NodeKind = "NodeBody"
	NodeBlock    NodeKind = "NodeBlock"
	NodeIdent    NodeKind = "NodeIdent"
	NodeConstant NodeKind = "NodeConstant"
	NodeDeclVar  NodeKind = "NodeDeclVar"
	NodeDeclFn   NodeKind = "NodeDeclFn"
	NodeAssign   NodeKind = "NodeAssign"
	NodeBinary   NodeKind = "NodeBinary"
	NodeCall     NodeKind = "NodeCall"
	NodeReturn   NodeKind = "NodeReturn"
	NodeIf       NodeKind = "NodeIf"
)

// ValueKind is the static type of an expression or symbol.
type ValueKind int

const (
	KindUnknown ValueKind = iota
	KindVoid
	KindBool
	KindInt
	KindString
	KindFunction
)

func (k ValueKind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// typeNames maps source type annotations to value kinds.
var typeNames = map[string]ValueKind{
	"void":   KindVoid,
	"bool":   KindBool,
	"int":    KindInt,
	"string": KindString,
}

// Param is one declared function parameter.
type Param struct {
	Name string
	Kind ValueKind
}

// ASTNode represents a node in the Abstract Syntax Tree
//
// Children layout per kind:
//
//	NodeProgram:  bodies
//	NodeBody:     statements
//	NodeBlock:    statements
//	NodeDeclVar:  [ident]
//	NodeDeclFn:   [ident, block]
//	NodeAssign:   [lhs (ident or declvar), rhs]
//	NodeBinary:   [left, right]
//	NodeCall:     [ident, args...]
//	NodeReturn:   [] or [expr]
//	NodeIf:       [cond, then-block] or [cond, then-block, else (block or if)]
type ASTNode struct {
	Kind NodeKind
	// NodeIdent, NodeConstant (string):
	String string
	// NodeConstant:
	ConstKind ValueKind
	Integer   int64
	Boolean   bool
	// NodeBinary:
	Op string // "+", "-", "*", "/", "==", ">", "<"
	// NodeDeclVar:
	IsConst bool
	// NodeDeclFn:
	Params     []Param
	ReturnType ValueKind

	Children []*ASTNode

	// Byte span in the source, for diagnostics.
	Start, End int
}

// ToSExpr converts an AST node to s-expression string representation
func ToSExpr(node *ASTNode) string {
	switch node.Kind {
	case NodeProgram:
		return "(program" + childrenSExpr(node.Children) + ")"
	case NodeBody:
		return "(body" + childrenSExpr(node.Children) + ")"
	case NodeBlock:
		return "(block" + childrenSExpr(node.Children) + ")"
	case NodeIdent:
		return "(var " + quote(node.String) + ")"
	case NodeConstant:
		switch node.ConstKind {
		case KindInt:
			return strconv.FormatInt(node.Integer, 10)
		case KindBool:
			return "(boolean " + strconv.FormatBool(node.Boolean) + ")"
		default:
			return "(string " + quote(node.String) + ")"
		}
	case NodeDeclVar:
		keyword := "let"
		if node.IsConst {
			keyword = "const"
		}
		return "(" + keyword + " " + quote(node.Children[0].String) + ")"
	case NodeDeclFn:
		var params []string
		for _, p := range node.Params {
			params = append(params, "(param "+quote(p.Name)+" "+p.Kind.String()+")")
		}
		return "(fn " + quote(node.Children[0].String) + " [" + strings.Join(params, " ") + "] " +
			node.ReturnType.String() + " " + ToSExpr(node.Children[1]) + ")"
	case NodeAssign:
		return "(assign " + ToSExpr(node.Children[0]) + " " + ToSExpr(node.Children[1]) + ")"
	case NodeBinary:
		left := ToSExpr(node.Children[0])
		right := ToSExpr(node.Children[1])
		return "(binary " + quote(node.Op) + " " + left + " " + right + ")"
	case NodeCall:
		var args []string
		for _, arg := range node.Children[1:] {
			args = append(args, ToSExpr(arg))
		}
		return "(call " + quote(node.Children[0].String) + " [" + strings.Join(args, " ") + "])"
	case NodeReturn:
		if len(node.Children) == 0 {
			return "(return)"
		}
		return "(return " + ToSExpr(node.Children[0]) + ")"
	case NodeIf:
		return "(if" + childrenSExpr(node.Children) + ")"
	default:
		return ""
	}
}

func childrenSExpr(children []*ASTNode) string {
	var sb strings.Builder
	for _, child := range children {
		sb.WriteString(" ")
		sb.WriteString(ToSExpr(child))
	}
	return sb.String()
}

// quote writes s as an s-expression string literal. Only backslash and
// double quote are escaped; other bytes are written as-is.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
