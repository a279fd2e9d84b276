package plume

import (
	"errors"
	"fmt"
)

// ErrTemplateNotFound is reported by Loader implementations when a template
// name does not resolve to any source text. Use errors.Is to detect it.
var ErrTemplateNotFound = errors.New("template not found")

// ParseError describes malformed template syntax. It is always fatal: no
// partial template is produced or cached when parsing fails.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("parse error: %s", e.Msg)
}

func parseErrorf(line, col int, format string, args ...interface{}) *ParseError {
	return &ParseError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

// RuntimeError describes a failure during a single render call: an undefined
// variable or unknown filter in strict mode, or calling a value that is not
// invocable. It never corrupts the engine, its cache, or other renders.
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string {
	return "render error: " + e.Msg
}

func runtimeErrorf(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}
