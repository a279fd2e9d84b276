package plume

import (
	"fmt"
	"strings"
)

// Safe wraps text that must be emitted without escaping regardless of the
// engine's auto-escape setting. The safe filter produces it; callers may also
// place Safe values directly in the context.
type Safe string

// escapeReplacer covers the five usual HTML metacharacters plus '/'.
var escapeReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"/", "&#x2F;",
)

// EscapeHTML entity-encodes the characters & < > " ' /.
func EscapeHTML(s string) string {
	return escapeReplacer.Replace(s)
}

// ensureSafe is the single escaping decision every variable value passes
// through before emission: Safe values pass unchanged, everything else is
// stringified and escaped when autoEscape is on.
func ensureSafe(v interface{}, autoEscape bool) string {
	if s, ok := v.(Safe); ok {
		return string(s)
	}
	s := stringify(v)
	if autoEscape {
		return EscapeHTML(s)
	}
	return s
}

// stringify renders a value for output. nil (and therefore undefined) is the
// empty string.
func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case Safe:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
