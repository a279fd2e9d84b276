package plume

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	pathRe    = regexp.MustCompile(`^[A-Za-z_]\w*(\.[A-Za-z_]\w*)*$`)
	filterRe  = regexp.MustCompile(`(?s)^([A-Za-z_]\w*)\s*(?:\((.*)\))?$`)
	forRe     = regexp.MustCompile(`(?s)^for\s+([A-Za-z_]\w*)\s*(?:,\s*([A-Za-z_]\w*))?\s+in\s+(.+)$`)
	refRe     = regexp.MustCompile(`^(include|extends)\s+(?:'([^']*)'|"([^"]*)")$`)
	blockRe   = regexp.MustCompile(`^block\s+([A-Za-z_]\w*)$`)
	wordsOnly = map[string]bool{"else": true, "endif": true, "endfor": true, "endblock": true}
)

// parseTemplate runs the front half of the pipeline: segment lexing and
// structural parsing into a template AST.
func parseTemplate(src string, delims Delims) ([]Node, error) {
	p := &templateParser{segs: scanSegments(src, delims)}
	nodes, stop, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	if stop != nil {
		return nil, parseErrorf(stop.Line, stop.Col, "unexpected tag %q outside its construct", firstWord(stop.Content))
	}
	return nodes, nil
}

// templateParser consumes the flat segment stream, recursing for nested
// constructs. The segment position never moves backwards.
type templateParser struct {
	segs []Segment
	pos  int
}

// parseNodes builds nodes until end-of-input or until a tag whose leading
// word is in stops; the stopping segment is consumed and returned so the
// caller can validate it. A nil return segment means end-of-input.
func (p *templateParser) parseNodes(stops []string) ([]Node, *Segment, error) {
	var nodes []Node
	for p.pos < len(p.segs) {
		seg := p.segs[p.pos]
		p.pos++
		switch seg.Kind {
		case SegmentText:
			nodes = append(nodes, &TextNode{Text: seg.Content})
		case SegmentVariable:
			node, err := parseVariable(seg)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, node)
		case SegmentTag:
			word := firstWord(seg.Content)
			for _, stop := range stops {
				if word == stop {
					return nodes, &seg, nil
				}
			}
			node, err := p.parseTag(seg, word)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, node)
		}
	}
	return nodes, nil, nil
}

// parseTag dispatches on the tag's leading word. Unknown tag names are a
// parse error rather than being silently dropped.
func (p *templateParser) parseTag(seg Segment, word string) (Node, error) {
	switch word {
	case "if":
		return p.parseIf(seg)
	case "for":
		return p.parseFor(seg)
	case "include", "extends":
		return parseReference(seg)
	case "block":
		return p.parseBlock(seg)
	case "elif", "else", "endif", "endfor", "endblock":
		return nil, parseErrorf(seg.Line, seg.Col, "unexpected tag %q outside its construct", word)
	default:
		return nil, parseErrorf(seg.Line, seg.Col, "unknown tag %q", word)
	}
}

// parseIf consumes the consequent, any elif clauses, and an optional
// alternate, up to the matching endif. Nested constructs consume their own
// terminators, so only terminators at this nesting depth are seen here.
func (p *templateParser) parseIf(seg Segment) (Node, error) {
	cond, err := tagExpr(seg, "if")
	if err != nil {
		return nil, err
	}
	node := &IfNode{Cond: cond}

	var stop Segment
	node.Then, stop, err = p.requireStop(seg, []string{"elif", "else", "endif"})
	if err != nil {
		return nil, err
	}
	for firstWord(stop.Content) == "elif" {
		clause := ElifClause{}
		clause.Cond, err = tagExpr(stop, "elif")
		if err != nil {
			return nil, err
		}
		clause.Body, stop, err = p.requireStop(stop, []string{"elif", "else", "endif"})
		if err != nil {
			return nil, err
		}
		node.Elifs = append(node.Elifs, clause)
	}
	if firstWord(stop.Content) == "else" {
		if err := exactTag(stop); err != nil {
			return nil, err
		}
		node.Else, stop, err = p.requireStop(stop, []string{"endif"})
		if err != nil {
			return nil, err
		}
	}
	if err := exactTag(stop); err != nil {
		return nil, err
	}
	return node, nil
}

// parseFor requires the exact shape "for NAME[, NAME] in EXPR".
func (p *templateParser) parseFor(seg Segment) (Node, error) {
	m := forRe.FindStringSubmatch(seg.Content)
	if m == nil {
		return nil, parseErrorf(seg.Line, seg.Col, "malformed for tag %q, want 'for name[, name] in expr'", seg.Content)
	}
	line, col := contentPos(seg, len(seg.Content)-len(m[3]))
	iterable, err := parseExprString(m[3], line, col)
	if err != nil {
		return nil, err
	}
	node := &ForNode{Var: m[1], IndexVar: m[2], Iterable: iterable}
	body, stop, err := p.requireStop(seg, []string{"endfor"})
	if err != nil {
		return nil, err
	}
	if err := exactTag(stop); err != nil {
		return nil, err
	}
	node.Body = body
	return node, nil
}

// parseBlock consumes a named block body up to its endblock.
func (p *templateParser) parseBlock(seg Segment) (Node, error) {
	m := blockRe.FindStringSubmatch(seg.Content)
	if m == nil {
		return nil, parseErrorf(seg.Line, seg.Col, "malformed block tag %q, want 'block name'", seg.Content)
	}
	body, stop, err := p.requireStop(seg, []string{"endblock"})
	if err != nil {
		return nil, err
	}
	if err := exactTag(stop); err != nil {
		return nil, err
	}
	return &BlockNode{Name: m[1], Body: body}, nil
}

// parseReference handles include and extends, which take exactly one quoted
// template name.
func parseReference(seg Segment) (Node, error) {
	m := refRe.FindStringSubmatch(seg.Content)
	if m == nil {
		return nil, parseErrorf(seg.Line, seg.Col, "malformed %s tag %q, want a single quoted template name", firstWord(seg.Content), seg.Content)
	}
	name := m[2]
	if name == "" {
		name = m[3]
	}
	if m[1] == "include" {
		return &IncludeNode{Name: name}, nil
	}
	return &ExtendsNode{Name: name}, nil
}

// requireStop parses child nodes and fails if end-of-input arrives before one
// of the stop tags. open is the construct's opening tag, used for error
// positions.
func (p *templateParser) requireStop(open Segment, stops []string) ([]Node, Segment, error) {
	nodes, stop, err := p.parseNodes(stops)
	if err != nil {
		return nil, Segment{}, err
	}
	if stop == nil {
		return nil, Segment{}, parseErrorf(open.Line, open.Col, "unterminated %q tag", firstWord(open.Content))
	}
	return nodes, *stop, nil
}

// exactTag rejects terminator tags that carry arguments, e.g. {% endif x %}.
func exactTag(seg Segment) error {
	if wordsOnly[seg.Content] {
		return nil
	}
	return parseErrorf(seg.Line, seg.Col, "tag %q does not take arguments", firstWord(seg.Content))
}

// tagExpr parses the expression that follows the tag's leading keyword,
// positioned at the expression's first character.
func tagExpr(seg Segment, word string) (Expr, error) {
	rest := strings.TrimPrefix(seg.Content, word)
	lead := len(rest) - len(strings.TrimLeft(rest, " \t\n\r"))
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil, parseErrorf(seg.Line, seg.Col, "%s tag requires a condition", word)
	}
	line, col := contentPos(seg, len(word)+lead)
	return parseExprString(rest, line, col)
}

// contentPos locates the character at offset within the segment's trimmed
// content.
func contentPos(seg Segment, offset int) (int, int) {
	line, col := seg.ContentLine, seg.ContentCol
	for i := 0; i < offset && i < len(seg.Content); i++ {
		if seg.Content[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// parseVariable splits a variable segment on top-level pipes into the dotted
// lookup path and its filter chain.
func parseVariable(seg Segment) (Node, error) {
	parts := splitPipes(seg.Content)
	path := strings.TrimSpace(parts[0])
	if path != "" && !pathRe.MatchString(path) {
		return nil, parseErrorf(seg.ContentLine, seg.ContentCol, "invalid variable name %q", path)
	}
	node := &VariableNode{Path: path, Line: seg.Line, Col: seg.Col}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, parseErrorf(seg.ContentLine, seg.ContentCol, "empty filter in chain %q", seg.Content)
		}
		fc, err := parseFilterCall(part, seg)
		if err != nil {
			return nil, err
		}
		node.Filters = append(node.Filters, fc)
	}
	return node, nil
}

// parseFilterCall matches "name" or "name(args)". Arguments are bare literal
// tokens only, never sub-expressions; the restriction is part of the grammar.
func parseFilterCall(s string, seg Segment) (FilterCall, error) {
	m := filterRe.FindStringSubmatch(s)
	if m == nil {
		return FilterCall{}, parseErrorf(seg.ContentLine, seg.ContentCol, "malformed filter %q", s)
	}
	fc := FilterCall{Name: m[1]}
	argsStr := strings.TrimSpace(m[2])
	if argsStr == "" {
		return fc, nil
	}
	for _, raw := range splitCommas(argsStr) {
		arg, err := parseFilterArg(strings.TrimSpace(raw), seg)
		if err != nil {
			return FilterCall{}, err
		}
		fc.Args = append(fc.Args, arg)
	}
	return fc, nil
}

// parseFilterArg evaluates one literal argument: a number, a quoted string,
// true/false/null, or a bare word taken as its literal text.
func parseFilterArg(s string, seg Segment) (interface{}, error) {
	if s == "" {
		return nil, parseErrorf(seg.ContentLine, seg.ContentCol, "empty filter argument in %q", seg.Content)
	}
	tokens, err := tokenizeExpr(s, seg.ContentLine, seg.ContentCol)
	if err != nil {
		return nil, err
	}
	neg := false
	if tokens[0].kind == tokenOperator && tokens[0].text == "-" {
		neg = true
		tokens = tokens[1:]
	}
	if len(tokens) != 2 || tokens[1].kind != tokenEOF {
		return nil, parseErrorf(seg.ContentLine, seg.ContentCol, "filter argument %q must be a single literal", s)
	}
	tok := tokens[0]
	switch tok.kind {
	case tokenNumber:
		if strings.Contains(tok.text, ".") {
			f, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return nil, parseErrorf(seg.ContentLine, seg.ContentCol, "invalid number %q", tok.text)
			}
			if neg {
				f = -f
			}
			return f, nil
		}
		n, err := strconv.Atoi(tok.text)
		if err != nil {
			return nil, parseErrorf(seg.ContentLine, seg.ContentCol, "invalid number %q", tok.text)
		}
		if neg {
			n = -n
		}
		return n, nil
	case tokenString:
		if neg {
			return nil, parseErrorf(seg.ContentLine, seg.ContentCol, "invalid filter argument %q", s)
		}
		return tok.text, nil
	case tokenIdent, tokenKeyword:
		if neg {
			return nil, parseErrorf(seg.ContentLine, seg.ContentCol, "invalid filter argument %q", s)
		}
		switch tok.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		return tok.text, nil
	}
	return nil, parseErrorf(seg.ContentLine, seg.ContentCol, "filter argument %q must be a literal", s)
}

// splitPipes splits on '|' outside quoted strings.
func splitPipes(s string) []string {
	return splitOutsideQuotes(s, '|')
}

// splitCommas splits on ',' outside quoted strings.
func splitCommas(s string) []string {
	return splitOutsideQuotes(s, ',')
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t\n\r"); i != -1 {
		return s[:i]
	}
	return s
}
