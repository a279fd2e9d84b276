package plume

// Node is the closed set of template AST nodes. Trees are built once per
// parse and never mutated afterwards.
type Node interface {
	templateNode()
}

// TextNode emits its text verbatim.
type TextNode struct {
	Text string
}

// VariableNode is one {{ ... }} site: a dotted lookup path followed by an
// ordered filter chain. Line and Col locate the opening delimiter.
type VariableNode struct {
	Path    string
	Filters []FilterCall
	Line    int
	Col     int
}

// FilterCall is one link of a variable's filter chain. Args hold literal
// values only; the filter-argument grammar deliberately excludes
// sub-expressions.
type FilterCall struct {
	Name string
	Args []interface{}
}

// IfNode selects exactly one of its branches at render time.
type IfNode struct {
	Cond  Expr
	Then  []Node
	Elifs []ElifClause
	Else  []Node
}

// ElifClause is one elif branch of an IfNode.
type ElifClause struct {
	Cond Expr
	Body []Node
}

// ForNode renders Body once per element of the coerced iterable. IndexVar is
// empty unless the two-variable form was used.
type ForNode struct {
	Var      string
	IndexVar string
	Iterable Expr
	Body     []Node
}

// IncludeNode splices the rendered output of a named template.
type IncludeNode struct {
	Name string
}

// BlockNode is a named region that a child template may override.
type BlockNode struct {
	Name string
	Body []Node
}

// ExtendsNode declares the named parent this template inherits from.
type ExtendsNode struct {
	Name string
}

func (*TextNode) templateNode()     {}
func (*VariableNode) templateNode() {}
func (*IfNode) templateNode()       {}
func (*ForNode) templateNode()      {}
func (*IncludeNode) templateNode()  {}
func (*BlockNode) templateNode()    {}
func (*ExtendsNode) templateNode()  {}
