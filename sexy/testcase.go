package sexy

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputType is the language tag of a test's input fence.
type InputType string

const (
	InputTypeExpr    InputType = "stage0-expr"
	InputTypeProgram InputType = "stage0"
)

// AssertionType is the language tag of an assertion fence.
type AssertionType string

const (
	AssertionTypeAST          AssertionType = "ast"
	AssertionTypeTypes        AssertionType = "types"
	AssertionTypeASM          AssertionType = "asm"
	AssertionTypeExecute      AssertionType = "execute"
	AssertionTypeCompileError AssertionType = "compile-error"
)

type Assertion struct {
	Type    AssertionType
	Content string
	// ParsedSexy is set for ast and types assertions only.
	ParsedSexy *Node
}

// TestCase is one "Test: <name>" heading with its input and assertions.
type TestCase struct {
	Name       string
	Input      string
	InputType  InputType
	Assertions []Assertion
}

const testHeadingPrefix = "Test: "

// extractor collects test cases while walking a Markdown document.
type extractor struct {
	source  []byte
	cases   []TestCase
	current *TestCase
}

// ExtractTestCases reads every test case in a Markdown document. Fences
// with a known language outside a test, and unknown languages anywhere,
// are errors. Fences without a language are ignored.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	x := &extractor{source: []byte(markdownContent)}
	doc := goldmark.New().Parser().Parse(text.NewReader(x.source))

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var err error
		switch n := node.(type) {
		case *ast.Heading:
			err = x.heading(n)
		case *ast.FencedCodeBlock:
			err = x.fence(n)
		}
		if err != nil {
			return ast.WalkStop, err
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}
	if err := x.finish(); err != nil {
		return nil, err
	}
	return x.cases, nil
}

func (x *extractor) heading(n *ast.Heading) error {
	title := headingText(n, x.source)
	if !strings.HasPrefix(title, testHeadingPrefix) {
		return nil
	}
	if err := x.finish(); err != nil {
		return err
	}
	x.current = &TestCase{
		Name:       strings.TrimPrefix(title, testHeadingPrefix),
		Assertions: []Assertion{},
	}
	return nil
}

func (x *extractor) fence(n *ast.FencedCodeBlock) error {
	language := string(n.Language(x.source))
	if language == "" {
		return nil
	}
	line := lineOf(n, x.source)
	known := isInputFence(language) || isAssertionFence(language)

	tc := x.current
	if tc == nil {
		if known {
			return fmt.Errorf("line %d: %s fence found outside of test case", line, language)
		}
		return fmt.Errorf("line %d: unknown fence language '%s' found outside of test case", line, language)
	}
	if !known {
		return fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, language, tc.Name)
	}

	content := strings.TrimRight(fenceContent(n, x.source), "\n")
	if isInputFence(language) {
		if tc.Input != "" {
			return fmt.Errorf("line %d: multiple input fences found in test '%s'", line, tc.Name)
		}
		tc.Input = content
		tc.InputType = InputType(language)
		return nil
	}

	assertion := Assertion{Type: AssertionType(language), Content: content}
	if assertion.Type == AssertionTypeAST || assertion.Type == AssertionTypeTypes {
		parsed, err := Parse(content)
		if err != nil {
			return fmt.Errorf("line %d: failed to parse Sexy assertion in test '%s': %w", line, tc.Name, err)
		}
		assertion.ParsedSexy = parsed
	}
	tc.Assertions = append(tc.Assertions, assertion)
	return nil
}

// finish validates and stores the test case being built, if any.
func (x *extractor) finish() error {
	tc := x.current
	if tc == nil {
		return nil
	}
	if tc.Input == "" {
		return fmt.Errorf("test '%s' has no input fence", tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", tc.Name)
	}
	x.cases = append(x.cases, *tc)
	x.current = nil
	return nil
}

func headingText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); entering && ok {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func isInputFence(language string) bool {
	switch InputType(language) {
	case InputTypeExpr, InputTypeProgram:
		return true
	}
	return false
}

func isAssertionFence(language string) bool {
	switch AssertionType(language) {
	case AssertionTypeAST, AssertionTypeTypes, AssertionTypeASM, AssertionTypeExecute, AssertionTypeCompileError:
		return true
	}
	return false
}

// lineOf returns the 1-based line of the node's first content line.
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	if start > len(source) {
		start = len(source)
	}
	return 1 + bytes.Count(source[:start], []byte{'\n'})
}
