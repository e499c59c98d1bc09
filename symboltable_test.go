package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestNewSymbolTable(t *testing.T) {
	st := NewSymbolTable()
	be.True(t, st.AtGlobalScope())
	be.Equal(t, len(st.Globals()), 0)
}

func TestDeclareAndResolve(t *testing.T) {
	st := NewSymbolTable()

	sym, err := st.Declare("x", StorageGlobal)
	be.Err(t, err, nil)
	be.Equal(t, sym.Name, "x")
	be.Equal(t, sym.Storage, StorageGlobal)
	be.Equal(t, sym.Kind, KindUnknown)

	found, err := st.Resolve("x")
	be.Err(t, err, nil)
	be.True(t, found == sym)

	_, err = st.Resolve("y")
	be.Err(t, err, "undefined symbol 'y'")
	be.True(t, st.Lookup("y") == nil)
}

func TestDeclareDuplicate(t *testing.T) {
	st := NewSymbolTable()

	_, err := st.Declare("x", StorageGlobal)
	be.Err(t, err, nil)

	_, err = st.Declare("x", StorageGlobal)
	be.Err(t, err, "'x' is already declared in this scope")
}

func TestShadowingInNestedScope(t *testing.T) {
	st := NewSymbolTable()
	outer, err := st.Declare("x", StorageGlobal)
	be.Err(t, err, nil)

	st.PushScope()
	be.True(t, !st.AtGlobalScope())
	inner, err := st.Declare("x", StorageLocal)
	be.Err(t, err, nil)
	be.True(t, st.Lookup("x") == inner)

	be.Err(t, st.PopScope(), nil)
	be.True(t, st.Lookup("x") == outer)
}

func TestLocalsDoNotOutliveTheirScope(t *testing.T) {
	st := NewSymbolTable()

	st.PushScope()
	first, err := st.Declare("tmp", StorageLocal)
	be.Err(t, err, nil)
	be.Err(t, st.PopScope(), nil)

	_, err = st.Resolve("tmp")
	be.Err(t, err, "undefined symbol 'tmp'")

	// A sibling scope gets a distinct symbol.
	st.PushScope()
	second, err := st.Declare("tmp", StorageLocal)
	be.Err(t, err, nil)
	be.True(t, first != second)
	be.Err(t, st.PopScope(), nil)
}

func TestPopGlobalScope(t *testing.T) {
	st := NewSymbolTable()
	err := st.PopScope()
	be.Err(t, err, "cannot pop the global scope")

	ce, ok := err.(*CompileError)
	be.True(t, ok)
	be.Equal(t, ce.Kind, ResourceError)
}

func TestMemoize(t *testing.T) {
	sym := &Symbol{Name: "x"}

	be.Err(t, sym.Memoize(KindInt), nil)
	be.Equal(t, sym.Kind, KindInt)

	// Same kind again is fine.
	be.Err(t, sym.Memoize(KindInt), nil)

	err := sym.Memoize(KindString)
	be.Err(t, err, "type mismatch: 'x' has type int, cannot assign string")
	be.Equal(t, sym.Kind, KindInt)
}

func TestSymbolOperand(t *testing.T) {
	be.Equal(t, (&Symbol{Name: "g", Storage: StorageGlobal}).Operand(), "[$g]")
	be.Equal(t, (&Symbol{Name: "l", Storage: StorageLocal, Offset: -16}).Operand(), "[rbp-16]")
	be.Equal(t, (&Symbol{Name: "p", Storage: StorageLocal, Offset: 24}).Operand(), "[rbp+24]")
}

func TestSymbolLabel(t *testing.T) {
	be.Equal(t, (&Symbol{Name: "add", Storage: StorageGlobal}).Label(), "$add")
	be.Equal(t, (&Symbol{Name: "printf", Storage: StorageGlobal, Extern: true}).Label(), "printf")
}

func declareKind(t *testing.T, st *SymbolTable, name string, kind ValueKind) *Symbol {
	t.Helper()
	sym, err := st.Declare(name, StorageGlobal)
	be.Err(t, err, nil)
	be.Err(t, sym.Memoize(kind), nil)
	return sym
}

func TestInferType(t *testing.T) {
	st := NewSymbolTable()
	declareKind(t, st, "i", KindInt)
	declareKind(t, st, "s", KindString)
	declareKind(t, st, "b", KindBool)
	fn := declareKind(t, st, "f", KindFunction)
	fn.ReturnKind = KindString

	tests := []struct {
		input string
		want  ValueKind
	}{
		{"1", KindInt},
		{`"x"`, KindString},
		{"true", KindBool},
		{"i", KindInt},
		{"i + 1", KindInt},
		{"s + s", KindString},
		{"i - i * i / i", KindInt},
		{"i == 1", KindBool},
		{"s == s", KindBool},
		{"b == true", KindBool},
		{"i > 1", KindBool},
		{"i < 1", KindBool},
		{"f()", KindString},
		{"f() + s", KindString},
		{"f", KindFunction},
	}
	for _, tt := range tests {
		kind, err := st.InferType(parseExpr(t, tt.input))
		be.Err(t, err, nil)
		be.Equal(t, kind, tt.want)
	}
}

func TestInferTypeErrors(t *testing.T) {
	st := NewSymbolTable()
	declareKind(t, st, "i", KindInt)
	declareKind(t, st, "s", KindString)
	_, err := st.Declare("pending", StorageGlobal)
	be.Err(t, err, nil)

	tests := []struct {
		input string
		want  string
	}{
		{"i + s", "invalid operands to '+': int and string"},
		{"s - s", "invalid operands to '-': string and string"},
		{"true * 2", "invalid operands to '*': bool and int"},
		{"i == s", "invalid operands to '==': int and string"},
		{"s > s", "invalid operands to '>': string and string"},
		{"nope", "undefined symbol 'nope'"},
		{"pending", "'pending' is used before it is assigned"},
		{"i()", "'i' is not a function"},
		{"g()", "undefined symbol 'g'"},
	}
	for _, tt := range tests {
		_, err := st.InferType(parseExpr(t, tt.input))
		be.Err(t, err, tt.want)
	}
}

func TestInferTypeErrorsCarrySpans(t *testing.T) {
	st := NewSymbolTable()
	_, err := st.InferType(parseExpr(t, "1 + missing"))
	ce, ok := err.(*CompileError)
	be.True(t, ok)
	be.True(t, ce.HasSpan)
	be.Equal(t, ce.Start, 4)
	be.Equal(t, ce.End, 11)
}
