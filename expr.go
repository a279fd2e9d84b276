package plume

import (
	"strconv"
	"strings"
)

// Expr is the closed set of expression tree nodes. Expressions are built once
// at parse time and never mutated.
type Expr interface {
	exprNode()
}

// LiteralExpr holds a constant: number, string, bool, or nil.
type LiteralExpr struct {
	Value interface{}
}

// VarExpr references a context variable by name.
type VarExpr struct {
	Name string
}

// BinaryExpr applies Op to Left and Right.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

// UnaryExpr applies Op ("-", "!" or "not") to its operand.
type UnaryExpr struct {
	Op      string
	Operand Expr
}

// MemberExpr accesses a property of Object. For a.b the Property is a string
// LiteralExpr; for a[b] it is the bracketed expression.
type MemberExpr struct {
	Object   Expr
	Property Expr
}

// CallExpr invokes Callee with Args.
type CallExpr struct {
	Callee Expr
	Args   []Expr
}

func (*LiteralExpr) exprNode() {}
func (*VarExpr) exprNode()     {}
func (*BinaryExpr) exprNode()  {}
func (*UnaryExpr) exprNode()   {}
func (*MemberExpr) exprNode()  {}
func (*CallExpr) exprNode()    {}

// exprParser is a recursive-descent, precedence-climbing parser over an
// immutable token slice. The position only ever moves forward.
type exprParser struct {
	tokens []token
	pos    int
}

// parseExprString tokenizes and parses src as a complete expression. line and
// col locate src within the template for error reporting.
func parseExprString(src string, line, col int) (Expr, error) {
	tokens, err := tokenizeExpr(src, line, col)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, parseErrorf(tok.line, tok.col, "unexpected %q after expression", tok.text)
	}
	return expr, nil
}

func (p *exprParser) peek() token {
	return p.tokens[p.pos]
}

func (p *exprParser) advance() token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// matchOperator consumes and returns true if the current token is one of the
// given operator spellings.
func (p *exprParser) matchOperator(kind tokenKind, ops ...string) (string, bool) {
	tok := p.peek()
	if tok.kind != kind {
		return "", false
	}
	for _, op := range ops {
		if tok.text == op {
			p.advance()
			return op, true
		}
	}
	return "", false
}

// Each binary level folds left-associatively while the current token belongs
// to that level's operator set.

func (p *exprParser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOperator(tokenKeyword, "or")
		if !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parseAnd() (Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOperator(tokenKeyword, "and")
		if !ok {
			return left, nil
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parseEquality() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOperator(tokenOperator, "==", "!=")
		if !ok {
			return left, nil
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOperator(tokenOperator, "<", "<=", ">", ">=")
		if !ok {
			return left, nil
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOperator(tokenOperator, "+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOperator(tokenOperator, "*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parseUnary() (Expr, error) {
	tok := p.peek()
	if (tok.kind == tokenOperator && (tok.text == "-" || tok.text == "!")) ||
		(tok.kind == tokenKeyword && tok.text == "not") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: tok.text, Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix folds member access (.name, [expr]) and calls ((args...)) onto
// a primary expression.
func (p *exprParser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenPunct {
			return expr, nil
		}
		switch tok.text {
		case ".":
			p.advance()
			name := p.peek()
			if name.kind != tokenIdent && name.kind != tokenKeyword {
				return nil, parseErrorf(name.line, name.col, "expected property name after '.'")
			}
			p.advance()
			expr = &MemberExpr{Object: expr, Property: &LiteralExpr{Value: name.text}}
		case "[":
			p.advance()
			key, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if _, ok := p.matchPunct("]"); !ok {
				tok := p.peek()
				return nil, parseErrorf(tok.line, tok.col, "expected ']', found %q", tok.text)
			}
			expr = &MemberExpr{Object: expr, Property: key}
		case "(":
			p.advance()
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			expr = &CallExpr{Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *exprParser) matchPunct(text string) (token, bool) {
	tok := p.peek()
	if tok.kind == tokenPunct && tok.text == text {
		p.advance()
		return tok, true
	}
	return token{}, false
}

func (p *exprParser) parseCallArgs() ([]Expr, error) {
	var args []Expr
	if _, ok := p.matchPunct(")"); ok {
		return args, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if _, ok := p.matchPunct(")"); ok {
			return args, nil
		}
		if _, ok := p.matchPunct(","); !ok {
			tok := p.peek()
			return nil, parseErrorf(tok.line, tok.col, "expected ',' or ')', found %q", tok.text)
		}
	}
}

// parsePrimary parses a literal, identifier, or parenthesized expression. Any
// other token here is a fatal parse error.
func (p *exprParser) parsePrimary() (Expr, error) {
	tok := p.advance()
	switch tok.kind {
	case tokenNumber:
		if strings.Contains(tok.text, ".") {
			f, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return nil, parseErrorf(tok.line, tok.col, "invalid number %q", tok.text)
			}
			return &LiteralExpr{Value: f}, nil
		}
		n, err := strconv.Atoi(tok.text)
		if err != nil {
			return nil, parseErrorf(tok.line, tok.col, "invalid number %q", tok.text)
		}
		return &LiteralExpr{Value: n}, nil
	case tokenString:
		return &LiteralExpr{Value: tok.text}, nil
	case tokenIdent:
		return &VarExpr{Name: tok.text}, nil
	case tokenKeyword:
		switch tok.text {
		case "true":
			return &LiteralExpr{Value: true}, nil
		case "false":
			return &LiteralExpr{Value: false}, nil
		case "null":
			return &LiteralExpr{Value: nil}, nil
		}
		return nil, parseErrorf(tok.line, tok.col, "unexpected keyword %q in expression", tok.text)
	case tokenPunct:
		if tok.text == "(" {
			expr, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if _, ok := p.matchPunct(")"); !ok {
				next := p.peek()
				return nil, parseErrorf(next.line, next.col, "expected ')', found %q", next.text)
			}
			return expr, nil
		}
	case tokenEOF:
		return nil, parseErrorf(tok.line, tok.col, "unexpected end of expression")
	}
	return nil, parseErrorf(tok.line, tok.col, "unexpected %q in expression", tok.text)
}
