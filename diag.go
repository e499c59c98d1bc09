package main

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a compilation failed.
type ErrorKind int

const (
	LexicalError ErrorKind = iota
	SyntaxError
	SemanticError
	ResourceError
	InternalError
)

func (k ErrorKind) String() string {
	switch k {
	case LexicalError:
		return "lexical error"
	case SyntaxError:
		return "syntax error"
	case SemanticError:
		return "error"
	case ResourceError:
		return "resource error"
	case InternalError:
		return "internal compiler error"
	default:
		return "error"
	}
}

// CompileError is the single error type returned by every compiler phase.
type CompileError struct {
	Kind    ErrorKind
	Message string
	// Byte span of the offending source, if HasSpan.
	Start, End int
	HasSpan    bool
}

func (e *CompileError) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func errorAt(kind ErrorKind, start, end int, format string, args ...any) *CompileError {
	return &CompileError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Start:   start,
		End:     end,
		HasSpan: true,
	}
}

func errorf(kind ErrorKind, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// nodeError reports a semantic error located at node.
func nodeError(node *ASTNode, format string, args ...any) *CompileError {
	if node == nil {
		return errorf(SemanticError, format, args...)
	}
	return errorAt(SemanticError, node.Start, node.End, format, args...)
}

// internalError reports a broken compiler invariant.
func internalError(format string, args ...any) *CompileError {
	return errorf(InternalError, format, args...)
}

// IsInternal reports whether err is a broken compiler invariant rather than
// a problem with the input program.
func IsInternal(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Kind == InternalError
}

// withSpan attaches a source span to a span-less CompileError.
func withSpan(err error, node *ASTNode) error {
	var ce *CompileError
	if node != nil && errors.As(err, &ce) && !ce.HasSpan {
		ce.Start, ce.End, ce.HasSpan = node.Start, node.End, true
	}
	return err
}

// FormatDiagnostic renders err with the offending source line and a caret
// under the error's column. Errors without a span render as a single line.
func FormatDiagnostic(source string, err error) string {
	var ce *CompileError
	if !errors.As(err, &ce) || !ce.HasSpan {
		return err.Error() + "\n"
	}

	start := ce.Start
	if start > len(source) {
		start = len(source)
	}
	lineStart := strings.LastIndexByte(source[:start], '\n') + 1
	lineEnd := strings.IndexByte(source[start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(source)
	} else {
		lineEnd += start
	}
	lineNum := strings.Count(source[:lineStart], "\n") + 1
	col := start - lineStart

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:%d: %s\n", lineNum, col+1, ce.Error())
	line := source[lineStart:lineEnd]
	sb.WriteString(line)
	sb.WriteString("\n")
	// Keep tabs so the caret lines up with the printed line.
	for i := 0; i < col; i++ {
		if line[i] == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
	}
	sb.WriteString("^\n")
	return sb.String()
}
