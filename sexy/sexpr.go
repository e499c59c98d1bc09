package sexy

import (
	"fmt"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota + 1
	NodeString
	NodeInteger
	NodeEllipsis
	NodeList
	NodeMap
	NodeArray
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeEllipsis:
		return "ellipsis"
	case NodeList:
		return "list"
	case NodeMap:
		return "map"
	case NodeArray:
		return "array"
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node is one datum of a Sexy document.
//
//	symbol   binary
//	string   "+"
//	integer  -12
//	ellipsis ...           (matches any run of items, see Match)
//	list     (binary "+" 1 2)
//	array    [1 2]
//	map      {x: int, y: string}
type Node struct {
	Type  NodeType
	Text  string   // atoms
	Items []*Node  // lists, arrays, and map values
	Keys  []string // maps only, parallel to Items
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		return quote(n.Text)
	case NodeEllipsis:
		return "..."
	case NodeList:
		return "(" + joinItems(n.Items) + ")"
	case NodeArray:
		return "[" + joinItems(n.Items) + "]"
	case NodeMap:
		parts := make([]string, len(n.Keys))
		for i, key := range n.Keys {
			parts[i] = key + ": " + n.Items[i].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("<%s>", n.Type)
}

func joinItems(items []*Node) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// IsAtom reports whether n has no children.
func (n *Node) IsAtom() bool {
	return n.Type == NodeSymbol || n.Type == NodeString || n.Type == NodeInteger || n.Type == NodeEllipsis
}

// Parse reads exactly one datum from input. Whitespace and ';' line
// comments are ignored.
func Parse(input string) (*Node, error) {
	r := &reader{src: input}
	node, err := r.datum()
	if err != nil {
		return nil, err
	}
	r.skipSpace()
	if !r.eof() {
		return nil, r.errorf("expected end of input, got %q", r.peek())
	}
	return node, nil
}

// Match reports whether actual has the shape of pattern. Inside a list or
// array, an ellipsis stands for zero or more items; a lone ellipsis
// matches any datum. Maps match when every pattern key is present in
// actual with a matching value.
func Match(pattern, actual *Node) bool {
	if pattern.Type == NodeEllipsis {
		return true
	}
	if pattern.Type != actual.Type {
		return false
	}
	if pattern.IsAtom() {
		return pattern.Text == actual.Text
	}
	switch pattern.Type {
	case NodeList, NodeArray:
		return matchItems(pattern.Items, actual.Items)
	case NodeMap:
		for i, key := range pattern.Keys {
			value := actual.Get(key)
			if value == nil || !Match(pattern.Items[i], value) {
				return false
			}
		}
		return true
	}
	return false
}

func matchItems(pattern, actual []*Node) bool {
	if len(pattern) == 0 {
		return len(actual) == 0
	}
	if pattern[0].Type == NodeEllipsis {
		for skip := 0; skip <= len(actual); skip++ {
			if matchItems(pattern[1:], actual[skip:]) {
				return true
			}
		}
		return false
	}
	if len(actual) == 0 || !Match(pattern[0], actual[0]) {
		return false
	}
	return matchItems(pattern[1:], actual[1:])
}

// Get returns the value stored under key in a map node, or nil.
func (n *Node) Get(key string) *Node {
	for i, k := range n.Keys {
		if k == key {
			return n.Items[i]
		}
	}
	return nil
}

type reader struct {
	src string
	pos int
}

func (r *reader) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", r.pos, fmt.Sprintf(format, args...))
}

func (r *reader) eof() bool {
	return r.pos >= len(r.src)
}

func (r *reader) peek() byte {
	if r.eof() {
		return 0
	}
	return r.src[r.pos]
}

func (r *reader) skipSpace() {
	for !r.eof() {
		c := r.src[r.pos]
		if c == ';' {
			for !r.eof() && r.src[r.pos] != '\n' {
				r.pos++
			}
			continue
		}
		if !unicode.IsSpace(rune(c)) {
			return
		}
		r.pos++
	}
}

func (r *reader) datum() (*Node, error) {
	r.skipSpace()
	if r.eof() {
		return nil, r.errorf("unexpected end of input")
	}
	c := r.peek()
	switch {
	case c == '(':
		items, err := r.sequence('(', ')')
		if err != nil {
			return nil, err
		}
		return &Node{Type: NodeList, Items: items}, nil
	case c == '[':
		items, err := r.sequence('[', ']')
		if err != nil {
			return nil, err
		}
		return &Node{Type: NodeArray, Items: items}, nil
	case c == '{':
		return r.mapping()
	case c == '"':
		return r.str()
	case strings.HasPrefix(r.src[r.pos:], "..."):
		r.pos += 3
		return &Node{Type: NodeEllipsis}, nil
	case isDigit(c), (c == '-' || c == '+') && isDigit(r.byteAt(r.pos+1)):
		start := r.pos
		r.pos++
		for isDigit(r.peek()) {
			r.pos++
		}
		return &Node{Type: NodeInteger, Text: r.src[start:r.pos]}, nil
	case isSymbolChar(c):
		start := r.pos
		for !r.eof() && isSymbolChar(r.peek()) {
			r.pos++
		}
		return &Node{Type: NodeSymbol, Text: r.src[start:r.pos]}, nil
	}
	return nil, r.errorf("unexpected character %q", c)
}

func (r *reader) byteAt(i int) byte {
	if i >= len(r.src) {
		return 0
	}
	return r.src[i]
}

// sequence reads items up to the closing delimiter.
func (r *reader) sequence(open, close byte) ([]*Node, error) {
	r.pos++ // open
	var items []*Node
	for {
		r.skipSpace()
		if r.eof() {
			return nil, r.errorf("expected %q, got end of input", close)
		}
		if r.peek() == close {
			r.pos++
			return items, nil
		}
		item, err := r.datum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (r *reader) mapping() (*Node, error) {
	r.pos++ // {
	node := &Node{Type: NodeMap}
	for {
		r.skipSpace()
		if r.eof() {
			return nil, r.errorf("expected '}', got end of input")
		}
		if r.peek() == '}' {
			r.pos++
			return node, nil
		}
		if len(node.Keys) > 0 {
			if r.peek() != ',' {
				return nil, r.errorf("expected ',' or '}' in map, got %q", r.peek())
			}
			r.pos++
			r.skipSpace()
		}

		key, err := r.datum()
		if err != nil {
			return nil, err
		}
		if key.Type != NodeSymbol {
			return nil, r.errorf("map key must be a symbol, got %s", key.Type)
		}
		r.skipSpace()
		if r.peek() != ':' {
			return nil, r.errorf("expected ':' after map key %s", key.Text)
		}
		r.pos++
		value, err := r.datum()
		if err != nil {
			return nil, err
		}
		node.Keys = append(node.Keys, key.Text)
		node.Items = append(node.Items, value)
	}
}

func (r *reader) str() (*Node, error) {
	start := r.pos
	r.pos++ // "
	var sb strings.Builder
	for {
		if r.eof() {
			r.pos = start
			return nil, r.errorf("unterminated string")
		}
		c := r.src[r.pos]
		r.pos++
		switch c {
		case '"':
			return &Node{Type: NodeString, Text: sb.String()}, nil
		case '\\':
			esc := r.peek()
			if esc != '"' && esc != '\\' {
				return nil, r.errorf("invalid escape sequence \\%c", esc)
			}
			sb.WriteByte(esc)
			r.pos++
		default:
			sb.WriteByte(c)
		}
	}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isSymbolChar(c byte) bool {
	return c == '_' || c == '-' || c == '+' || c == '*' || c == '/' ||
		c == '<' || c == '>' || c == '=' || c == '!' || c == '?' ||
		isDigit(c) || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
