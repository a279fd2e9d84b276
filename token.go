package plume

import "strings"

// tokenKind classifies expression tokens.
type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenKeyword
	tokenNumber
	tokenString
	tokenOperator
	tokenPunct
)

// token is one lexical unit of a tag or variable segment's content. For
// string tokens Text holds the decoded (unescaped, unquoted) value; for all
// other kinds it holds the source text.
type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

// Reserved words. Anything else that looks like a word lexes as an identifier.
var keywords = map[string]struct{}{
	"if": {}, "else": {}, "elif": {}, "endif": {},
	"for": {}, "endfor": {}, "in": {},
	"block": {}, "endblock": {}, "extends": {}, "include": {},
	"true": {}, "false": {}, "null": {},
	"and": {}, "or": {}, "not": {},
}

// exprLexer re-tokenizes the raw content of a single segment into classic
// expression tokens.
type exprLexer struct {
	input string
	pos   int
	line  int
	col   int
}

// tokenizeExpr scans src into tokens, terminated by an explicit EOF token.
// line and col locate the start of src within the enclosing template and seed
// the positions reported on tokens and errors.
func tokenizeExpr(src string, line, col int) ([]token, error) {
	l := &exprLexer{input: src, line: line, col: col}
	tokens := make([]token, 0, len(src)/3+4)
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.bump(1)
		case c == '\'' || c == '"':
			tok, err := l.scanString()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case c >= '0' && c <= '9':
			tokens = append(tokens, l.scanNumber())
		case isWordStart(c):
			tokens = append(tokens, l.scanWord())
		case strings.IndexByte(".,|()[]", c) != -1:
			tokens = append(tokens, l.emit(tokenPunct, string(c)))
		case c == '=' || c == '!' || c == '<' || c == '>':
			text := string(c)
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
				text += "="
			}
			tokens = append(tokens, l.emit(tokenOperator, text))
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%':
			tokens = append(tokens, l.emit(tokenOperator, string(c)))
		default:
			return nil, parseErrorf(l.line, l.col, "unexpected character %q in expression", c)
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, line: l.line, col: l.col})
	return tokens, nil
}

// emit records a token of len(text) source bytes at the current position.
func (l *exprLexer) emit(kind tokenKind, text string) token {
	tok := token{kind: kind, text: text, line: l.line, col: l.col}
	l.bump(len(text))
	return tok
}

// bump advances n bytes, tracking line and column.
func (l *exprLexer) bump(n int) {
	for i := 0; i < n && l.pos < len(l.input); i++ {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

// scanString consumes a single- or double-quoted string literal, decoding
// backslash escapes. The token text is the decoded content without quotes.
func (l *exprLexer) scanString() (token, error) {
	quote := l.input[l.pos]
	tok := token{kind: tokenString, line: l.line, col: l.col}
	l.bump(1)
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == quote {
			l.bump(1)
			tok.text = sb.String()
			return tok, nil
		}
		if c == '\\' && l.pos+1 < len(l.input) {
			l.bump(1)
			sb.WriteByte(unescapeChar(l.input[l.pos]))
			l.bump(1)
			continue
		}
		sb.WriteByte(c)
		l.bump(1)
	}
	return token{}, parseErrorf(tok.line, tok.col, "unterminated string literal")
}

func unescapeChar(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		// \', \", \\ and anything else map to the character itself.
		return c
	}
}

// scanNumber consumes a decimal number with at most one dot.
func (l *exprLexer) scanNumber() token {
	tok := token{kind: tokenNumber, line: l.line, col: l.col}
	start := l.pos
	sawDot := false
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c >= '0' && c <= '9' {
			l.bump(1)
			continue
		}
		if c == '.' && !sawDot && l.pos+1 < len(l.input) && isDigitByte(l.input[l.pos+1]) {
			sawDot = true
			l.bump(1)
			continue
		}
		break
	}
	tok.text = l.input[start:l.pos]
	return tok
}

// scanWord consumes an identifier and reclassifies it as a keyword when it
// exactly matches a reserved word.
func (l *exprLexer) scanWord() token {
	tok := token{line: l.line, col: l.col}
	start := l.pos
	for l.pos < len(l.input) && isWordPart(l.input[l.pos]) {
		l.bump(1)
	}
	tok.text = l.input[start:l.pos]
	if _, ok := keywords[tok.text]; ok {
		tok.kind = tokenKeyword
	} else {
		tok.kind = tokenIdent
	}
	return tok
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordPart(c byte) bool {
	return isWordStart(c) || isDigitByte(c)
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}
