package main

// Parser is a recursive-descent parser over a token slice.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser tokenizes source and returns a parser positioned at the first
// token.
func NewParser(source string) (*Parser, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	return &Parser{tokens: tokens}, nil
}

// ParseProgram parses a whole translation unit.
func ParseProgram(source string) (*ASTNode, error) {
	p, err := NewParser(source)
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}

// ParseExpressionSource parses a single expression spanning all of source.
func ParseExpressionSource(source string) (*ASTNode, error) {
	p, err := NewParser(source)
	if err != nil {
		return nil, err
	}
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if p.curr().Type != EOF {
		return nil, p.unexpected("end of input")
	}
	return expr, nil
}

func (p *Parser) curr() Token {
	return p.tokens[p.pos]
}

// PeekToken returns the type of the token after the current one.
func (p *Parser) PeekToken() TokenType {
	if p.pos+1 >= len(p.tokens) {
		return EOF
	}
	return p.tokens[p.pos+1].Type
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

// SkipToken consumes a token of the expected type or fails.
func (p *Parser) SkipToken(expected TokenType) (Token, error) {
	if p.curr().Type != expected {
		return Token{}, p.unexpected(describe(expected))
	}
	return p.advance(), nil
}

func (p *Parser) unexpected(want string) error {
	tok := p.curr()
	got := "'" + tok.Literal + "'"
	if tok.Type == EOF {
		got = "end of input"
	}
	end := tok.End
	if end == tok.Start {
		end++
	}
	return errorAt(SyntaxError, tok.Start, end, "expected %s, got %s", want, got)
}

func describe(t TokenType) string {
	switch t {
	case IDENT:
		return "identifier"
	case INT:
		return "integer"
	case STRING:
		return "string"
	case EOF:
		return "end of input"
	}
	for word, kw := range keywords {
		if kw == t {
			return "'" + word + "'"
		}
	}
	return "'" + string(t) + "'"
}

func (p *Parser) ParseProgram() (*ASTNode, error) {
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &ASTNode{
		Kind:     NodeProgram,
		Children: []*ASTNode{body},
		Start:    body.Start,
		End:      body.End,
	}, nil
}

func (p *Parser) parseBody() (*ASTNode, error) {
	body := &ASTNode{Kind: NodeBody, Start: p.curr().Start}
	for p.curr().Type != EOF {
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}
		body.Children = append(body.Children, stmt)
	}
	body.End = p.curr().End
	return body, nil
}

func (p *Parser) parseBlock() (*ASTNode, error) {
	open, err := p.SkipToken(LBRACE)
	if err != nil {
		return nil, err
	}
	block := &ASTNode{Kind: NodeBlock, Start: open.Start}
	for p.curr().Type != RBRACE {
		if p.curr().Type == EOF {
			return nil, p.unexpected("'}'")
		}
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}
		block.Children = append(block.Children, stmt)
	}
	block.End = p.advance().End
	return block, nil
}

// ParseStatement parses one statement, dispatching on the leading token.
func (p *Parser) ParseStatement() (*ASTNode, error) {
	switch p.curr().Type {
	case FN:
		return p.parseFunction()
	case RETURN:
		return p.parseReturn()
	case IF:
		return p.parseIf()
	case LET, CONST:
		return p.parseDeclAssign()
	case IDENT:
		switch p.PeekToken() {
		case ASSIGN:
			return p.parseAssign()
		case LPAREN:
			call, err := p.parseCall()
			if err != nil {
				return nil, err
			}
			if _, err := p.SkipToken(SEMICOLON); err != nil {
				return nil, err
			}
			return call, nil
		}
		p.advance()
		return nil, p.unexpected("'=' or '('")
	}
	return nil, p.unexpected("statement")
}

func (p *Parser) parseIdent() (*ASTNode, error) {
	tok, err := p.SkipToken(IDENT)
	if err != nil {
		return nil, err
	}
	return &ASTNode{Kind: NodeIdent, String: tok.Literal, Start: tok.Start, End: tok.End}, nil
}

func (p *Parser) parseType() (ValueKind, error) {
	tok := p.curr()
	if tok.Type == IDENT {
		if kind, ok := typeNames[tok.Literal]; ok {
			p.advance()
			return kind, nil
		}
	}
	return KindUnknown, p.unexpected("type name")
}

// fn name(a, b: string): int => { ... }
func (p *Parser) parseFunction() (*ASTNode, error) {
	fnTok := p.advance()
	name, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.SkipToken(LPAREN); err != nil {
		return nil, err
	}

	var params []Param
	for p.curr().Type != RPAREN {
		if len(params) > 0 {
			if _, err := p.SkipToken(COMMA); err != nil {
				return nil, err
			}
		}
		paramTok, err := p.SkipToken(IDENT)
		if err != nil {
			return nil, err
		}
		kind := KindInt
		if p.curr().Type == COLON {
			p.advance()
			typeTok := p.curr()
			kind, err = p.parseType()
			if err != nil {
				return nil, err
			}
			if kind == KindVoid {
				return nil, errorAt(SyntaxError, typeTok.Start, typeTok.End, "parameter %s cannot have type void", paramTok.Literal)
			}
		}
		params = append(params, Param{Name: paramTok.Literal, Kind: kind})
	}
	p.advance() // )

	if _, err := p.SkipToken(COLON); err != nil {
		return nil, err
	}
	returnType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.SkipToken(ARROW); err != nil {
		return nil, err
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ASTNode{
		Kind:       NodeDeclFn,
		Params:     params,
		ReturnType: returnType,
		Children:   []*ASTNode{name, block},
		Start:      fnTok.Start,
		End:        block.End,
	}, nil
}

func (p *Parser) parseReturn() (*ASTNode, error) {
	retTok := p.advance()
	node := &ASTNode{Kind: NodeReturn, Start: retTok.Start}
	if p.curr().Type != SEMICOLON {
		expr, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		node.Children = []*ASTNode{expr}
	}
	semi, err := p.SkipToken(SEMICOLON)
	if err != nil {
		return nil, err
	}
	node.End = semi.End
	return node, nil
}

func (p *Parser) parseIf() (*ASTNode, error) {
	ifTok := p.advance()
	cond, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	node := &ASTNode{
		Kind:     NodeIf,
		Children: []*ASTNode{cond, then},
		Start:    ifTok.Start,
		End:      then.End,
	}

	if p.curr().Type == ELSE {
		p.advance()
		var elseNode *ASTNode
		if p.curr().Type == IF {
			elseNode, err = p.parseIf()
		} else {
			elseNode, err = p.parseBlock()
		}
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, elseNode)
		node.End = elseNode.End
	}
	return node, nil
}

// let x = expr;
func (p *Parser) parseDeclAssign() (*ASTNode, error) {
	kwTok := p.advance()
	ident, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	decl := &ASTNode{
		Kind:     NodeDeclVar,
		IsConst:  kwTok.Type == CONST,
		Children: []*ASTNode{ident},
		Start:    kwTok.Start,
		End:      ident.End,
	}
	return p.finishAssign(decl)
}

// x = expr;
func (p *Parser) parseAssign() (*ASTNode, error) {
	ident, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	return p.finishAssign(ident)
}

func (p *Parser) finishAssign(lhs *ASTNode) (*ASTNode, error) {
	if _, err := p.SkipToken(ASSIGN); err != nil {
		return nil, err
	}
	rhs, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	semi, err := p.SkipToken(SEMICOLON)
	if err != nil {
		return nil, err
	}
	return &ASTNode{
		Kind:     NodeAssign,
		Children: []*ASTNode{lhs, rhs},
		Start:    lhs.Start,
		End:      semi.End,
	}, nil
}

func (p *Parser) parseCall() (*ASTNode, error) {
	ident, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	p.advance() // (
	call := &ASTNode{Kind: NodeCall, Children: []*ASTNode{ident}, Start: ident.Start}
	for p.curr().Type != RPAREN {
		if len(call.Children) > 1 {
			if _, err := p.SkipToken(COMMA); err != nil {
				return nil, err
			}
		}
		arg, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		call.Children = append(call.Children, arg)
	}
	call.End = p.advance().End
	return call, nil
}

// ParseExpression parses at the lowest precedence level.
func (p *Parser) ParseExpression() (*ASTNode, error) {
	return p.parseEquality()
}

// parseBinaryLevel parses a left-associative chain of ops over next.
func (p *Parser) parseBinaryLevel(next func() (*ASTNode, error), ops ...TokenType) (*ASTNode, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for isOneOf(p.curr().Type, ops) {
		op := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ASTNode{
			Kind:     NodeBinary,
			Op:       op.Literal,
			Children: []*ASTNode{left, right},
			Start:    left.Start,
			End:      right.End,
		}
	}
	return left, nil
}

func isOneOf(t TokenType, set []TokenType) bool {
	for _, s := range set {
		if t == s {
			return true
		}
	}
	return false
}

func (p *Parser) parseEquality() (*ASTNode, error) {
	return p.parseBinaryLevel(p.parseComparison, EQ)
}

func (p *Parser) parseComparison() (*ASTNode, error) {
	return p.parseBinaryLevel(p.parseAdditive, GT, LT)
}

func (p *Parser) parseAdditive() (*ASTNode, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, PLUS, MINUS)
}

func (p *Parser) parseMultiplicative() (*ASTNode, error) {
	return p.parseBinaryLevel(p.parseFactor, ASTERISK, SLASH)
}

func (p *Parser) parseFactor() (*ASTNode, error) {
	tok := p.curr()
	switch tok.Type {
	case INT:
		p.advance()
		return &ASTNode{Kind: NodeConstant, ConstKind: KindInt, Integer: tok.IntValue, Start: tok.Start, End: tok.End}, nil
	case STRING:
		p.advance()
		return &ASTNode{Kind: NodeConstant, ConstKind: KindString, String: tok.Literal, Start: tok.Start, End: tok.End}, nil
	case TRUE, FALSE:
		p.advance()
		return &ASTNode{Kind: NodeConstant, ConstKind: KindBool, Boolean: tok.Type == TRUE, Start: tok.Start, End: tok.End}, nil
	case IDENT:
		if p.PeekToken() == LPAREN {
			return p.parseCall()
		}
		return p.parseIdent()
	case LPAREN:
		p.advance()
		expr, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.SkipToken(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.unexpected("expression")
}
