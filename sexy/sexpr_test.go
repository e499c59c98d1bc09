package sexy

import (
	"testing"

	"github.com/nalgeon/be"
)

func mustParse(t *testing.T, input string) *Node {
	t.Helper()
	node, err := Parse(input)
	be.Err(t, err, nil)
	return node
}

func TestParseAtoms(t *testing.T) {
	tests := []struct {
		input string
		typ   NodeType
		text  string
	}{
		{"binary", NodeSymbol, "binary"},
		{"func-name", NodeSymbol, "func-name"},
		{"+", NodeSymbol, "+"},
		{"==", NodeSymbol, "=="},
		{"42", NodeInteger, "42"},
		{"-123", NodeInteger, "-123"},
		{"+7", NodeInteger, "+7"},
		{`"hello world"`, NodeString, "hello world"},
		{`""`, NodeString, ""},
		{`"a\"b"`, NodeString, `a"b`},
		{`"a\\b"`, NodeString, `a\b`},
	}

	for _, tt := range tests {
		node := mustParse(t, tt.input)
		be.Equal(t, node.Type, tt.typ)
		be.Equal(t, node.Text, tt.text)
		be.True(t, node.IsAtom())
	}
}

func TestParseStringKeepsRawNewline(t *testing.T) {
	node := mustParse(t, "\"a\nb\"")
	be.Equal(t, node.Text, "a\nb")
}

func TestParseCollections(t *testing.T) {
	list := mustParse(t, `(call "f" [1 (var "x")])`)
	be.Equal(t, list.Type, NodeList)
	be.Equal(t, len(list.Items), 3)
	be.Equal(t, list.Items[2].Type, NodeArray)
	be.Equal(t, list.Items[2].Items[1].Type, NodeList)
	be.True(t, !list.IsAtom())

	m := mustParse(t, `{x: int, msg: string}`)
	be.Equal(t, m.Type, NodeMap)
	be.Equal(t, m.Keys, []string{"x", "msg"})
	be.Equal(t, m.Get("msg").Text, "string")
	be.True(t, m.Get("nope") == nil)

	empty := mustParse(t, "{}")
	be.Equal(t, empty.Type, NodeMap)
	be.Equal(t, len(empty.Keys), 0)

	be.Equal(t, len(mustParse(t, "()").Items), 0)
	be.Equal(t, len(mustParse(t, "[]").Items), 0)
}

func TestStringNormalizesLayout(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"(binary  \"+\"\n  1\n  2)", `(binary "+" 1 2)`},
		{"[ 1   2 ]", "[1 2]"},
		{"{x:int,y:  bool}", "{x: int, y: bool}"},
		{`(string "say \"hi\"")`, `(string "say \"hi\"")`},
		{"(a ... b)", "(a ... b)"},
	}
	for _, tt := range tests {
		be.Equal(t, mustParse(t, tt.input).String(), tt.want)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		`(program (body (assign (let "x") 1)))`,
		`(fn "f" [(param "a" int)] int (block (return (var "a"))))`,
		`{a: int, b: (list 1 2)}`,
		`(if (boolean true) (block) (block (call "g" [])))`,
	}
	for _, input := range inputs {
		first := mustParse(t, input)
		second := mustParse(t, first.String())
		be.Equal(t, second.String(), first.String())
		be.Equal(t, first.String(), input)
	}
}

func TestParseComments(t *testing.T) {
	node := mustParse(t, `
; the tree for 1 + 2
(binary "+" ; operator
  1 2)`)
	be.Equal(t, node.String(), `(binary "+" 1 2)`)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "unexpected end of input"},
		{"(a b", "expected ')', got end of input"},
		{"[1 2", "expected ']', got end of input"},
		{"{x: 1", "expected '}', got end of input"},
		{"{x 1}", "expected ':' after map key x"},
		{"{x: 1 y: 2}", "expected ',' or '}' in map"},
		{`{"x": 1}`, "map key must be a symbol"},
		{`"open`, "unterminated string"},
		{`"bad\n"`, `invalid escape sequence \n`},
		{"(a) b", "expected end of input"},
		{"a.b", "expected end of input"},
		{"@", "unexpected character '@'"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.input)
		be.Err(t, err, tt.want)
	}
}

func TestMatchExact(t *testing.T) {
	pattern := mustParse(t, `(binary "+" 1 (var "x"))`)
	be.True(t, Match(pattern, mustParse(t, `(binary "+" 1 (var "x"))`)))
	be.True(t, !Match(pattern, mustParse(t, `(binary "+" 1 (var "y"))`)))
	be.True(t, !Match(pattern, mustParse(t, `(binary "+" 1)`)))
	be.True(t, !Match(pattern, mustParse(t, `[binary "+" 1 (var "x")]`)))

	// Symbols and strings with the same text differ.
	be.True(t, !Match(mustParse(t, `x`), mustParse(t, `"x"`)))

	be.True(t, Match(mustParse(t, `42`), mustParse(t, `42`)))
	be.True(t, !Match(mustParse(t, `42`), mustParse(t, `43`)))
	be.True(t, !Match(mustParse(t, `int`), mustParse(t, `(int)`)))
	be.True(t, Match(mustParse(t, `[]`), mustParse(t, `[]`)))
	be.True(t, !Match(mustParse(t, `{}`), mustParse(t, `[]`)))
}

func TestMatchEllipsis(t *testing.T) {
	actual := mustParse(t, `(program (body (fn "f" [] int (block)) (assign (let "x") 1) (call "f" [])))`)

	tests := []struct {
		pattern string
		want    bool
	}{
		{`...`, true},
		{`(program ...)`, true},
		{`(program (body ...))`, true},
		{`(program (body ... (call "f" [])))`, true},
		{`(program (body (fn "f" ...) ...))`, true},
		{`(program (body ... (assign (let "x") 1) ...))`, true},
		{`(program (body ... (assign (let "y") 1) ...))`, false},
		{`(program (body (assign ...) ...))`, false},
		{`(program (body ... (fn "f" ...)))`, false},
	}
	for _, tt := range tests {
		be.Equal(t, Match(mustParse(t, tt.pattern), actual), tt.want)
	}
}

func TestMatchMapSubset(t *testing.T) {
	actual := mustParse(t, `{x: int, s: string, f: function}`)
	be.True(t, Match(mustParse(t, `{s: string}`), actual))
	be.True(t, Match(mustParse(t, `{f: function, x: int}`), actual))
	be.True(t, !Match(mustParse(t, `{x: bool}`), actual))
	be.True(t, !Match(mustParse(t, `{y: int}`), actual))
}

func TestNodeTypeString(t *testing.T) {
	be.Equal(t, NodeList.String(), "list")
	be.Equal(t, NodeMap.String(), "map")
	be.Equal(t, NodeType(0).String(), "NodeType(0)")
}
