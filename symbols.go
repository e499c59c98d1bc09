package main

import "fmt"

// StorageClass says where a symbol's value lives at run time.
type StorageClass int

const (
	StorageGlobal StorageClass = iota
	StorageLocal
)

func (s StorageClass) String() string {
	if s == StorageLocal {
		return "local"
	}
	return "global"
}

// Symbol is the compile-time record of a declared name.
type Symbol struct {
	Name    string
	Storage StorageClass
	// Kind is KindUnknown until the first assignment fixes it.
	Kind ValueKind
	// Offset from rbp, for locals. Negative for stack slots, positive for
	// parameters passed on the stack.
	Offset  int
	IsConst bool

	// Functions only.
	ReturnKind ValueKind
	Params     []ValueKind
	Variadic   bool
	Extern     bool
}

func (s *Symbol) IsFunction() bool {
	return s.Kind == KindFunction
}

// Memoize fixes the symbol's value kind on first use and rejects any later
// kind that differs.
func (s *Symbol) Memoize(kind ValueKind) error {
	if s.Kind == KindUnknown {
		s.Kind = kind
		return nil
	}
	if s.Kind != kind {
		return errorf(SemanticError, "type mismatch: '%s' has type %s, cannot assign %s", s.Name, s.Kind, kind)
	}
	return nil
}

// Label returns the assembly name of a global symbol. User names carry
// NASM's $ prefix so that names like add or div are not read as mnemonics.
func (s *Symbol) Label() string {
	if s.Extern {
		return s.Name
	}
	return "$" + s.Name
}

// Operand returns the assembly memory operand addressing the symbol.
func (s *Symbol) Operand() string {
	if s.Storage == StorageGlobal {
		return "[" + s.Label() + "]"
	}
	if s.Offset < 0 {
		return fmt.Sprintf("[rbp-%d]", -s.Offset)
	}
	return fmt.Sprintf("[rbp+%d]", s.Offset)
}

// Scope holds the symbols of one lexical region, in declaration order.
type Scope struct {
	symbols []*Symbol
	parent  *Scope
}

func (s *Scope) lookupLocal(name string) *Symbol {
	for _, sym := range s.symbols {
		if sym.Name == name {
			return sym
		}
	}
	return nil
}

// SymbolTable is a chain of scopes rooted at the global scope.
type SymbolTable struct {
	global  *Scope
	current *Scope
}

func NewSymbolTable() *SymbolTable {
	global := &Scope{}
	return &SymbolTable{global: global, current: global}
}

// PushScope enters a new nested scope.
func (st *SymbolTable) PushScope() {
	st.current = &Scope{parent: st.current}
}

// PopScope leaves the current scope. Popping the global scope fails.
func (st *SymbolTable) PopScope() error {
	if st.current.parent == nil {
		return errorf(ResourceError, "scope underflow: cannot pop the global scope")
	}
	st.current = st.current.parent
	return nil
}

func (st *SymbolTable) AtGlobalScope() bool {
	return st.current == st.global
}

// Declare adds a symbol to the current scope. A name already declared in the
// current scope is rejected; shadowing an outer scope is allowed.
func (st *SymbolTable) Declare(name string, storage StorageClass) (*Symbol, error) {
	if st.current.lookupLocal(name) != nil {
		return nil, errorf(SemanticError, "'%s' is already declared in this scope", name)
	}
	sym := &Symbol{Name: name, Storage: storage}
	st.current.symbols = append(st.current.symbols, sym)
	return sym, nil
}

// Resolve finds name in the innermost scope that declares it.
func (st *SymbolTable) Resolve(name string) (*Symbol, error) {
	if sym := st.Lookup(name); sym != nil {
		return sym, nil
	}
	return nil, errorf(SemanticError, "undefined symbol '%s'", name)
}

// Lookup is Resolve without the error.
func (st *SymbolTable) Lookup(name string) *Symbol {
	for s := st.current; s != nil; s = s.parent {
		if sym := s.lookupLocal(name); sym != nil {
			return sym
		}
	}
	return nil
}

// Globals returns the global symbols in declaration order.
func (st *SymbolTable) Globals() []*Symbol {
	return append([]*Symbol(nil), st.global.symbols...)
}

// InferType computes the static kind of an expression under the current
// scopes. It does not modify any symbol.
func (st *SymbolTable) InferType(node *ASTNode) (ValueKind, error) {
	switch node.Kind {
	case NodeConstant:
		return node.ConstKind, nil

	case NodeIdent:
		sym, err := st.Resolve(node.String)
		if err != nil {
			return KindUnknown, withSpan(err, node)
		}
		if sym.Kind == KindUnknown {
			return KindUnknown, nodeError(node, "'%s' is used before it is assigned", node.String)
		}
		return sym.Kind, nil

	case NodeBinary:
		left, err := st.InferType(node.Children[0])
		if err != nil {
			return KindUnknown, err
		}
		right, err := st.InferType(node.Children[1])
		if err != nil {
			return KindUnknown, err
		}
		switch node.Op {
		case "+":
			if left == KindString && right == KindString {
				return KindString, nil
			}
			if left == KindInt && right == KindInt {
				return KindInt, nil
			}
		case "-", "*", "/":
			if left == KindInt && right == KindInt {
				return KindInt, nil
			}
		case "==":
			if left == right && left != KindVoid && left != KindFunction {
				return KindBool, nil
			}
		case ">", "<":
			if left == KindInt && right == KindInt {
				return KindBool, nil
			}
		default:
			return KindUnknown, nodeError(node, "unknown operator '%s'", node.Op)
		}
		return KindUnknown, nodeError(node, "type mismatch: invalid operands to '%s': %s and %s", node.Op, left, right)

	case NodeCall:
		callee := node.Children[0]
		sym, err := st.Resolve(callee.String)
		if err != nil {
			return KindUnknown, withSpan(err, callee)
		}
		if !sym.IsFunction() {
			return KindUnknown, nodeError(callee, "'%s' is not a function", callee.String)
		}
		return sym.ReturnKind, nil
	}
	return KindUnknown, nodeError(node, "%s is not an expression", node.Kind)
}
