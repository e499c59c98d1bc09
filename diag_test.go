package main

import (
	"fmt"
	"testing"

	"github.com/nalgeon/be"
)

func TestErrorKindPrefix(t *testing.T) {
	be.Equal(t, errorf(LexicalError, "x").Error(), "lexical error: x")
	be.Equal(t, errorf(SyntaxError, "x").Error(), "syntax error: x")
	be.Equal(t, errorf(SemanticError, "x").Error(), "error: x")
	be.Equal(t, errorf(ResourceError, "x").Error(), "resource error: x")
	be.Equal(t, internalError("x").Error(), "internal compiler error: x")
}

func TestIsInternal(t *testing.T) {
	be.True(t, IsInternal(internalError("broken")))
	be.True(t, !IsInternal(errorf(SemanticError, "bad program")))
	be.True(t, !IsInternal(fmt.Errorf("plain")))
	be.True(t, IsInternal(fmt.Errorf("wrapped: %w", internalError("broken"))))
}

func TestWithSpanKeepsExistingSpan(t *testing.T) {
	node := &ASTNode{Start: 10, End: 12}

	err := withSpan(errorf(SemanticError, "x"), node)
	ce := err.(*CompileError)
	be.True(t, ce.HasSpan)
	be.Equal(t, ce.Start, 10)

	err = withSpan(errorAt(SemanticError, 1, 2, "x"), node)
	ce = err.(*CompileError)
	be.Equal(t, ce.Start, 1)
	be.Equal(t, ce.End, 2)
}

func TestFormatDiagnostic(t *testing.T) {
	source := "let a = 1;\nlet b = a + c;\n"
	_, err := Compile(source)
	be.Err(t, err, "undefined symbol 'c'")

	got := FormatDiagnostic(source, err)
	want := "2:13: error: undefined symbol 'c'\n" +
		"let b = a + c;\n" +
		"            ^\n"
	be.Equal(t, got, want)
}

func TestFormatDiagnosticKeepsTabs(t *testing.T) {
	source := "fn f(): int => {\n\treturn @;\n}"
	_, err := Compile(source)

	got := FormatDiagnostic(source, err)
	want := "2:9: lexical error: unexpected character '@'\n" +
		"\treturn @;\n" +
		"\t       ^\n"
	be.Equal(t, got, want)
}

func TestFormatDiagnosticWithoutSpan(t *testing.T) {
	got := FormatDiagnostic("x", internalError("broken"))
	be.Equal(t, got, "internal compiler error: broken\n")
}
