// Package plume is a small text templating engine: literal output mixed with
// {{ expr }} interpolation and {% tag %} control flow (conditionals, loops,
// includes, and block/extends inheritance), with a filter pipeline,
// HTML auto-escaping, and an LRU-bounded compiled-template cache.
package plume

import (
	"strings"
	"sync"
)

// DefaultCacheSize bounds the compiled-template cache unless configured.
const DefaultCacheSize = 128

// Engine holds one independent engine configuration: delimiters, escaping
// and strictness settings, the filter and helper registries, the loader, and
// the template cache. Engines share nothing with each other.
type Engine struct {
	delims     Delims
	autoEscape bool
	strict     bool
	cache      *templateCache
	filters    *filterRegistry
	loader     Loader

	helperMu sync.RWMutex
	helpers  map[string]HelperFunc
}

// Option configures an Engine at construction time.
type Option func(*engineOptions)

type engineOptions struct {
	delims     Delims
	autoEscape bool
	strict     bool
	cacheSize  int
	noCache    bool
	filters    map[string]FilterFunc
	helpers    map[string]HelperFunc
	loader     Loader
}

// WithDelims sets custom variable delimiters. Tag delimiters stay {% %}.
func WithDelims(left, right string) Option {
	return func(o *engineOptions) { o.delims = Delims{Left: left, Right: right} }
}

// WithAutoEscape toggles HTML auto-escaping. It defaults to on.
func WithAutoEscape(on bool) Option {
	return func(o *engineOptions) { o.autoEscape = on }
}

// WithStrict toggles strict mode, in which undefined variables and unknown
// filters fail the render call. It defaults to off.
func WithStrict(on bool) Option {
	return func(o *engineOptions) { o.strict = on }
}

// WithCacheSize sets the compiled-template cache capacity.
func WithCacheSize(n int) Option {
	return func(o *engineOptions) { o.cacheSize = n }
}

// WithoutCache disables the compiled-template cache entirely.
func WithoutCache() Option {
	return func(o *engineOptions) { o.noCache = true }
}

// WithFilters seeds the engine's filter registry on top of the builtins.
func WithFilters(filters map[string]FilterFunc) Option {
	return func(o *engineOptions) { o.filters = filters }
}

// WithHelpers seeds the engine's helper registry.
func WithHelpers(helpers map[string]HelperFunc) Option {
	return func(o *engineOptions) { o.helpers = helpers }
}

// WithLoader supplies the collaborator that resolves template names for
// RenderNamed, include, and extends.
func WithLoader(l Loader) Option {
	return func(o *engineOptions) { o.loader = l }
}

// New creates an engine. Defaults: {{ }} delimiters, auto-escape on, strict
// off, cache on with DefaultCacheSize entries, builtin filters, no helpers,
// no loader.
func New(opts ...Option) *Engine {
	o := engineOptions{
		delims:     DefaultDelims,
		autoEscape: true,
		cacheSize:  DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	eng := &Engine{
		delims:     o.delims,
		autoEscape: o.autoEscape,
		strict:     o.strict,
		filters:    newFilterRegistry(o.filters),
		loader:     o.loader,
		helpers:    make(map[string]HelperFunc, len(o.helpers)),
	}
	for name, fn := range o.helpers {
		eng.helpers[name] = fn
	}
	if !o.noCache {
		eng.cache = newTemplateCache(o.cacheSize)
	}
	return eng
}

// AddFilter registers a filter on this engine only.
func (e *Engine) AddFilter(name string, fn FilterFunc) {
	e.filters.add(name, fn)
}

// AddHelper registers a helper callable from template expressions on this
// engine only.
func (e *Engine) AddHelper(name string, fn HelperFunc) {
	e.helperMu.Lock()
	defer e.helperMu.Unlock()
	e.helpers[name] = fn
}

// Compile parses and compiles source into a reusable template. Results are
// cached by raw source text; parse failures produce and cache nothing.
func (e *Engine) Compile(source string) (*Template, error) {
	if e.cache != nil {
		if tpl, ok := e.cache.Get(source); ok {
			return tpl, nil
		}
	}
	nodes, err := parseTemplate(source, e.delims)
	if err != nil {
		return nil, err
	}
	tpl := compileTemplate(e, nodes)
	if e.cache != nil {
		e.cache.Set(source, tpl)
	}
	return tpl, nil
}

// Render compiles source (through the cache) and renders it against context.
func (e *Engine) Render(source string, context map[string]interface{}) (string, error) {
	tpl, err := e.Compile(source)
	if err != nil {
		return "", err
	}
	return tpl.Render(context)
}

// RenderNamed resolves a template name through the configured loader and
// renders it. Without a loader it always fails.
func (e *Engine) RenderNamed(name string, context map[string]interface{}) (string, error) {
	tpl, err := e.compileNamed(name)
	if err != nil {
		return "", err
	}
	return tpl.Render(context)
}

// CacheLen reports the number of compiled templates currently cached.
func (e *Engine) CacheLen() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}

// ClearCache drops every cached compiled template.
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

// compileNamed loads a template by name and compiles it through the cache.
func (e *Engine) compileNamed(name string) (*Template, error) {
	if e.loader == nil {
		return nil, runtimeErrorf("no template loader configured")
	}
	src, err := e.loader.Load(name)
	if err != nil {
		return nil, err
	}
	return e.Compile(src)
}

// baseContext layers the caller's bindings over the engine's helpers without
// mutating the caller's map.
func (e *Engine) baseContext(context map[string]interface{}) map[string]interface{} {
	e.helperMu.RLock()
	defer e.helperMu.RUnlock()
	ctx := make(map[string]interface{}, len(context)+len(e.helpers))
	for name, fn := range e.helpers {
		ctx[name] = fn
	}
	for k, v := range context {
		ctx[k] = v
	}
	return ctx
}

// Template is a compiled render closure together with the AST it was derived
// from. It is immutable and safe for concurrent renders.
type Template struct {
	eng     *Engine
	nodes   []Node
	root    renderFunc
	blocks  map[string]renderFunc
	extends string
}

// Render produces the template's output for one context.
func (t *Template) Render(context map[string]interface{}) (string, error) {
	var out strings.Builder
	if err := t.renderInto(&out, t.eng.baseContext(context), nil); err != nil {
		return "", err
	}
	return out.String(), nil
}

// renderInto runs the compiled closure. A template that extends a parent
// renders the parent instead, with this template's blocks (and any overrides
// accumulated from nearer descendants, which win) overriding the parent's
// blocks by name.
func (t *Template) renderInto(out *strings.Builder, ctx map[string]interface{}, overrides map[string]renderFunc) error {
	if t.extends != "" {
		if t.eng.loader == nil {
			if t.eng.strict {
				return runtimeErrorf("extends %q: no template loader configured", t.extends)
			}
			return nil
		}
		merged := make(map[string]renderFunc, len(overrides)+len(t.blocks))
		for name, fn := range overrides {
			merged[name] = fn
		}
		for name, fn := range t.blocks {
			if _, ok := merged[name]; !ok {
				merged[name] = fn
			}
		}
		parent, err := t.eng.compileNamed(t.extends)
		if err != nil {
			return err
		}
		return parent.renderInto(out, ctx, merged)
	}
	st := &renderState{eng: t.eng, ctx: ctx, out: out, blocks: overrides}
	return t.root(st)
}

// defaultEngine backs the package-level convenience functions.
var defaultEngine = New()

// Render renders source against context using a shared default engine.
func Render(source string, context map[string]interface{}) (string, error) {
	return defaultEngine.Render(source, context)
}

// Compile compiles source using a shared default engine.
func Compile(source string) (*Template, error) {
	return defaultEngine.Compile(source)
}
