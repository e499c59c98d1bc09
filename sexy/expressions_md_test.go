package sexy

import (
	"os"
	"testing"

	"github.com/nalgeon/be"
)

func loadCorpus(t *testing.T, name string) []TestCase {
	t.Helper()
	content, err := os.ReadFile("../test/" + name)
	be.Err(t, err, nil)
	testCases, err := ExtractTestCases(string(content))
	be.Err(t, err, nil)
	return testCases
}

func findCase(testCases []TestCase, name string) *TestCase {
	for i := range testCases {
		if testCases[i].Name == name {
			return &testCases[i]
		}
	}
	return nil
}

func TestExpressionCorpus(t *testing.T) {
	testCases := loadCorpus(t, "expressions_test.md")
	be.True(t, len(testCases) > 5)

	plus := findCase(testCases, "+")
	be.True(t, plus != nil)
	be.Equal(t, plus.Input, "1 + 2")
	be.Equal(t, plus.Assertions[0].ParsedSexy.String(), `(binary "+" 1 2)`)

	prec := findCase(testCases, "operator precedence + *")
	be.True(t, prec != nil)
	be.Equal(t, prec.Input, "1 + 2 * 3")
	tree := prec.Assertions[0].ParsedSexy
	be.Equal(t, len(tree.Items), 4)
	be.Equal(t, tree.Items[1].Text, "+")
	be.Equal(t, tree.Items[3].String(), `(binary "*" 2 3)`)

	// The expression corpus only holds expression inputs with AST checks.
	for _, tc := range testCases {
		be.Equal(t, tc.InputType, InputTypeExpr)
		for _, a := range tc.Assertions {
			be.Equal(t, a.Type, AssertionTypeAST)
			be.True(t, a.ParsedSexy != nil)
		}
	}
}

func TestWholeCorpusParses(t *testing.T) {
	names := []string{
		"codegen_test.md",
		"errors_test.md",
		"execute_test.md",
		"expressions_test.md",
		"statements_test.md",
		"types_test.md",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			testCases := loadCorpus(t, name)
			be.True(t, len(testCases) > 0)
		})
	}
}
