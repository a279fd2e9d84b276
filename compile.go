package plume

import (
	"fmt"
	"strings"
)

// renderFunc is the compiled form of a node sequence: it appends its output
// to the state's builder.
type renderFunc func(st *renderState) error

// renderState carries everything one render call needs. Loop iterations swap
// in a layered context via withContext; the output builder and block
// overrides are shared down the tree.
type renderState struct {
	eng    *Engine
	ctx    map[string]interface{}
	out    *strings.Builder
	blocks map[string]renderFunc
}

func (st *renderState) withContext(ctx map[string]interface{}) *renderState {
	dup := *st
	dup.ctx = ctx
	return &dup
}

// compileTemplate walks the AST once and produces the template's render
// closure, its compiled block bodies, and the parent name when the template
// extends another.
func compileTemplate(eng *Engine, nodes []Node) *Template {
	t := &Template{eng: eng, nodes: nodes, blocks: map[string]renderFunc{}}
	collectBlocks(eng, nodes, t.blocks)
	for _, n := range nodes {
		if ext, ok := n.(*ExtendsNode); ok {
			t.extends = ext.Name
			break
		}
	}
	t.root = compileNodes(eng, nodes)
	return t
}

// collectBlocks registers compiled block bodies by name, recursing through
// nested constructs so a block is found wherever it is declared.
func collectBlocks(eng *Engine, nodes []Node, out map[string]renderFunc) {
	for _, n := range nodes {
		switch node := n.(type) {
		case *BlockNode:
			if _, ok := out[node.Name]; !ok {
				out[node.Name] = compileNodes(eng, node.Body)
			}
			collectBlocks(eng, node.Body, out)
		case *IfNode:
			collectBlocks(eng, node.Then, out)
			for _, clause := range node.Elifs {
				collectBlocks(eng, clause.Body, out)
			}
			collectBlocks(eng, node.Else, out)
		case *ForNode:
			collectBlocks(eng, node.Body, out)
		}
	}
}

// compileNodes compiles a node sequence into a closure that renders each
// node in document order.
func compileNodes(eng *Engine, nodes []Node) renderFunc {
	steps := make([]renderFunc, len(nodes))
	for i, n := range nodes {
		steps[i] = compileNode(eng, n)
	}
	return func(st *renderState) error {
		for _, step := range steps {
			if err := step(st); err != nil {
				return err
			}
		}
		return nil
	}
}

// compileNode dispatches exhaustively over the closed node set.
func compileNode(eng *Engine, n Node) renderFunc {
	switch node := n.(type) {
	case *TextNode:
		return compileText(node)
	case *VariableNode:
		return compileVariable(node)
	case *IfNode:
		return compileIf(eng, node)
	case *ForNode:
		return compileFor(eng, node)
	case *IncludeNode:
		return compileInclude(node)
	case *BlockNode:
		return compileBlock(eng, node)
	case *ExtendsNode:
		// Resolved at template level; emits nothing in place.
		return func(*renderState) error { return nil }
	}
	return func(*renderState) error {
		return fmt.Errorf("unhandled template node %T", n)
	}
}

func compileText(node *TextNode) renderFunc {
	return func(st *renderState) error {
		st.out.WriteString(node.Text)
		return nil
	}
}

// compileVariable produces the one place a value reaches output: dotted
// lookup, the filter chain left to right, then exactly one escaping decision.
func compileVariable(node *VariableNode) renderFunc {
	return func(st *renderState) error {
		value, found := lookupPath(st.ctx, node.Path)
		if !found && st.eng.strict {
			return runtimeErrorf("undefined variable %q", node.Path)
		}
		for _, fc := range node.Filters {
			fn, ok := st.eng.filters.get(fc.Name)
			if !ok {
				if st.eng.strict {
					return runtimeErrorf("unknown filter %q", fc.Name)
				}
				// Lenient mode: unknown filters pass the value through.
				continue
			}
			var err error
			value, err = fn(value, fc.Args...)
			if err != nil {
				return fmt.Errorf("filter %q: %w", fc.Name, err)
			}
		}
		st.out.WriteString(ensureSafe(value, st.eng.autoEscape))
		return nil
	}
}

// compileIf renders exactly one branch: the consequent, the first truthy
// elif, the alternate, or nothing.
func compileIf(eng *Engine, node *IfNode) renderFunc {
	cond := node.Cond
	then := compileNodes(eng, node.Then)
	elifs := make([]struct {
		cond Expr
		body renderFunc
	}, len(node.Elifs))
	for i, clause := range node.Elifs {
		elifs[i].cond = clause.Cond
		elifs[i].body = compileNodes(eng, clause.Body)
	}
	var alt renderFunc
	if node.Else != nil {
		alt = compileNodes(eng, node.Else)
	}
	return func(st *renderState) error {
		v, err := evalExpr(cond, st.ctx)
		if err != nil {
			return err
		}
		if IsTruthy(v) {
			return then(st)
		}
		for _, clause := range elifs {
			v, err := evalExpr(clause.cond, st.ctx)
			if err != nil {
				return err
			}
			if IsTruthy(v) {
				return clause.body(st)
			}
		}
		if alt != nil {
			return alt(st)
		}
		return nil
	}
}

// compileFor renders the body once per coerced element against a layered
// context: the parent bindings plus the loop variable, the optional index
// variable, and the synthesized loop record.
func compileFor(eng *Engine, node *ForNode) renderFunc {
	body := compileNodes(eng, node.Body)
	return func(st *renderState) error {
		v, err := evalExpr(node.Iterable, st.ctx)
		if err != nil {
			return err
		}
		items := iterableOf(v)
		for i, item := range items {
			ctx := make(map[string]interface{}, len(st.ctx)+3)
			for k, val := range st.ctx {
				ctx[k] = val
			}
			ctx[node.Var] = item
			if node.IndexVar != "" {
				ctx[node.IndexVar] = i
			}
			ctx["loop"] = map[string]interface{}{
				"index":  i,
				"index1": i + 1,
				"first":  i == 0,
				"last":   i == len(items)-1,
				"length": len(items),
			}
			if err := body(st.withContext(ctx)); err != nil {
				return err
			}
		}
		return nil
	}
}

// compileInclude splices the named template's rendered output. Without a
// loader it emits nothing in lenient mode and fails in strict mode.
func compileInclude(node *IncludeNode) renderFunc {
	return func(st *renderState) error {
		if st.eng.loader == nil {
			if st.eng.strict {
				return runtimeErrorf("include %q: no template loader configured", node.Name)
			}
			return nil
		}
		tpl, err := st.eng.compileNamed(node.Name)
		if err != nil {
			return fmt.Errorf("include %q: %w", node.Name, err)
		}
		return tpl.renderInto(st.out, st.ctx, nil)
	}
}

// compileBlock emits the child override for the block name when one is in
// effect, otherwise the block's own body.
func compileBlock(eng *Engine, node *BlockNode) renderFunc {
	body := compileNodes(eng, node.Body)
	return func(st *renderState) error {
		if override, ok := st.blocks[node.Name]; ok {
			return override(st)
		}
		return body(st)
	}
}
