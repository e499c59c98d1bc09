package main

import (
	"strconv"
)

// TokenType is the type of token (identifier, operator, literal, etc.).
type TokenType string

// Definition of token types
const (
	// Special tokens
	EOF TokenType = "EOF"

	// Identifiers + literals
	IDENT  TokenType = "IDENT" // main, foo, _bar
	INT    TokenType = "INT"   // 12345
	STRING TokenType = "STRING"

	// Operators
	ASSIGN   TokenType = "="
	EQ       TokenType = "=="
	ARROW    TokenType = "=>"
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"
	LT       TokenType = "<"
	GT       TokenType = ">"

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	COLON     TokenType = ":"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"

	// Keywords
	LET    TokenType = "LET"
	CONST  TokenType = "CONST"
	FN     TokenType = "FN"
	RETURN TokenType = "RETURN"
	IF     TokenType = "IF"
	ELSE   TokenType = "ELSE"
	TRUE   TokenType = "TRUE"
	FALSE  TokenType = "FALSE"
)

var keywords = map[string]TokenType{
	"let":    LET,
	"const":  CONST,
	"fn":     FN,
	"return": RETURN,
	"if":     IF,
	"else":   ELSE,
	"true":   TRUE,
	"false":  FALSE,
}

// Token is one lexeme with its byte span in the source.
// For STRING tokens, Literal holds the decoded value.
type Token struct {
	Type     TokenType
	Literal  string
	IntValue int64 // only meaningful when Type == INT
	Start    int
	End      int
}

// Lexer scans a source buffer into tokens.
type Lexer struct {
	input []byte
	pos   int
}

func NewLexer(source string) *Lexer {
	return &Lexer{input: []byte(source)}
}

// Tokenize scans the whole source. The result always ends with an EOF token.
func Tokenize(source string) ([]Token, error) {
	l := NewLexer(source)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

// NextToken scans the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	start := l.pos
	if l.pos >= len(l.input) {
		return Token{Type: EOF, Start: start, End: start}, nil
	}

	c := l.input[l.pos]
	single := func(t TokenType) (Token, error) {
		l.pos++
		return Token{Type: t, Literal: string(c), Start: start, End: l.pos}, nil
	}

	if c == '=' {
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Type: EQ, Literal: "==", Start: start, End: l.pos}, nil
		} else if l.peek(1) == '>' {
			l.pos += 2
			return Token{Type: ARROW, Literal: "=>", Start: start, End: l.pos}, nil
		}
		return single(ASSIGN)
	} else if c == '+' {
		return single(PLUS)
	} else if c == '-' {
		return single(MINUS)
	} else if c == '*' {
		return single(ASTERISK)
	} else if c == '/' {
		return single(SLASH)
	} else if c == '<' {
		return single(LT)
	} else if c == '>' {
		return single(GT)
	} else if c == ',' {
		return single(COMMA)
	} else if c == ';' {
		return single(SEMICOLON)
	} else if c == ':' {
		return single(COLON)
	} else if c == '(' {
		return single(LPAREN)
	} else if c == ')' {
		return single(RPAREN)
	} else if c == '{' {
		return single(LBRACE)
	} else if c == '}' {
		return single(RBRACE)
	} else if c == '"' {
		lit, err := l.readString()
		if err != nil {
			return Token{}, err
		}
		return Token{Type: STRING, Literal: lit, Start: start, End: l.pos}, nil
	} else if isLetter(c) {
		lit := l.readIdentifier()
		typ, ok := keywords[lit]
		if !ok {
			typ = IDENT
		}
		return Token{Type: typ, Literal: lit, Start: start, End: l.pos}, nil
	} else if isDigit(c) {
		lit := l.readNumber()
		val, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return Token{}, errorAt(LexicalError, start, l.pos, "integer literal %s out of range", lit)
		}
		return Token{Type: INT, Literal: lit, IntValue: val, Start: start, End: l.pos}, nil
	}

	return Token{}, errorAt(LexicalError, start, start+1, "unexpected character %q", c)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return
		}
		l.pos++
	}
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for l.pos < len(l.input) && (isLetter(l.input[l.pos]) || isDigit(l.input[l.pos])) {
		l.pos++
	}
	return string(l.input[start:l.pos])
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	return string(l.input[start:l.pos])
}

// readString consumes a quoted literal and returns its decoded bytes.
func (l *Lexer) readString() (string, error) {
	start := l.pos
	l.pos++ // skip opening "
	var out []byte
	for {
		if l.pos >= len(l.input) {
			return "", errorAt(LexicalError, start, start+1, "unterminated string literal")
		}
		c := l.input[l.pos]
		if c == '"' {
			l.pos++
			return string(out), nil
		}
		if c != '\\' {
			out = append(out, c)
			l.pos++
			continue
		}

		escStart := l.pos
		switch l.peek(1) {
		case 'n':
			out = append(out, '\n')
			l.pos += 2
		case 'r':
			out = append(out, '\r')
			l.pos += 2
		case 't':
			out = append(out, '\t')
			l.pos += 2
		case '\\':
			out = append(out, '\\')
			l.pos += 2
		case '"':
			out = append(out, '"')
			l.pos += 2
		case 'x':
			hi, okHi := hexValue(l.peek(2))
			lo, okLo := hexValue(l.peek(3))
			if !okHi || !okLo {
				return "", errorAt(LexicalError, escStart, escStart+2, "invalid \\x escape in string literal")
			}
			out = append(out, hi<<4|lo)
			l.pos += 4
		case 0:
			return "", errorAt(LexicalError, start, start+1, "unterminated string literal")
		default:
			return "", errorAt(LexicalError, escStart, escStart+2, "unknown escape sequence \\%c", l.peek(1))
		}
	}
}

func hexValue(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
