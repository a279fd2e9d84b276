package plume

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// FilterFunc transforms an interpolated value. input is the value flowing
// through the pipe; args are the literal arguments from the template.
type FilterFunc func(input interface{}, args ...interface{}) (interface{}, error)

// filterRegistry is owned by exactly one Engine. Registering a filter on one
// engine never leaks into another.
type filterRegistry struct {
	mu sync.RWMutex
	m  map[string]FilterFunc
}

func newFilterRegistry(initial map[string]FilterFunc) *filterRegistry {
	r := &filterRegistry{m: builtinFilters()}
	for name, fn := range initial {
		r.m[name] = fn
	}
	return r
}

func (r *filterRegistry) add(name string, fn FilterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[name] = fn
}

func (r *filterRegistry) get(name string) (FilterFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.m[name]
	return fn, ok
}

// builtinFilters returns a fresh copy of the default filter set.
func builtinFilters() map[string]FilterFunc {
	return map[string]FilterFunc{
		"default":    defaultFilter,
		"join":       joinFilter,
		"upper":      upperFilter,
		"lower":      lowerFilter,
		"capitalize": capitalizeFilter,
		"title":      titleFilter,
		"trim":       trimFilter,
		"replace":    replaceFilter,
		"length":     lengthFilter,
		"first":      firstFilter,
		"last":       lastFilter,
		"truncate":   truncateFilter,
		"escape":     escapeHTMLFilter,
		"safe":       safeFilter,
	}
}

// defaultFilter substitutes its argument when the input is nil, false, an
// empty string, or an empty collection. Numbers, including 0, are never
// substituted.
func defaultFilter(input interface{}, args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("default filter requires an argument")
	}
	if input == nil {
		return args[0], nil
	}
	val := reflect.ValueOf(input)
	switch val.Kind() {
	case reflect.Bool:
		if !val.Bool() {
			return args[0], nil
		}
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		if val.Len() == 0 {
			return args[0], nil
		}
	}
	return input, nil
}

// joinFilter joins the elements of a sequence with a delimiter.
func joinFilter(input interface{}, args ...interface{}) (interface{}, error) {
	delimiter := ""
	if len(args) > 0 {
		d, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("join filter delimiter must be a string")
		}
		delimiter = d
	}
	if input == nil {
		return "", nil
	}
	val := reflect.ValueOf(input)
	switch val.Kind() {
	case reflect.Slice, reflect.Array:
		elements := make([]string, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			elements = append(elements, stringify(val.Index(i).Interface()))
		}
		return strings.Join(elements, delimiter), nil
	case reflect.String:
		return input, nil
	default:
		return nil, fmt.Errorf("join filter requires a sequence, got %T", input)
	}
}

func upperFilter(input interface{}, args ...interface{}) (interface{}, error) {
	return strings.ToUpper(stringify(input)), nil
}

func lowerFilter(input interface{}, args ...interface{}) (interface{}, error) {
	return strings.ToLower(stringify(input)), nil
}

// capitalizeFilter uppercases the first rune and lowercases the rest.
func capitalizeFilter(input interface{}, args ...interface{}) (interface{}, error) {
	return capitalizeWord(stringify(input)), nil
}

// titleFilter capitalizes the first rune of every space-separated word.
func titleFilter(input interface{}, args ...interface{}) (interface{}, error) {
	words := strings.Split(stringify(input), " ")
	for i, w := range words {
		words[i] = capitalizeWord(w)
	}
	return strings.Join(words, " "), nil
}

func capitalizeWord(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// trimFilter removes surrounding whitespace, or the characters of an
// explicit cutset argument.
func trimFilter(input interface{}, args ...interface{}) (interface{}, error) {
	s := stringify(input)
	if len(args) == 0 {
		return strings.TrimSpace(s), nil
	}
	cutset, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("trim filter cutset must be a string")
	}
	return strings.Trim(s, cutset), nil
}

// replaceFilter substitutes occurrences of a substring; a third numeric
// argument caps the number of replacements.
func replaceFilter(input interface{}, args ...interface{}) (interface{}, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("replace filter requires old and new substrings")
	}
	old, ok1 := args[0].(string)
	new, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("replace filter arguments must be strings")
	}
	count := -1
	if len(args) > 2 {
		if n, ok := args[2].(int); ok {
			count = n
		}
	}
	return strings.Replace(stringify(input), old, new, count), nil
}

// lengthFilter reports the element count of a sequence, mapping, or string;
// anything else has length 0.
func lengthFilter(input interface{}, args ...interface{}) (interface{}, error) {
	if input == nil {
		return 0, nil
	}
	val := reflect.ValueOf(input)
	switch val.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return val.Len(), nil
	}
	return 0, nil
}

func firstFilter(input interface{}, args ...interface{}) (interface{}, error) {
	if s, ok := input.(string); ok {
		if s == "" {
			return nil, nil
		}
		_, size := utf8.DecodeRuneInString(s)
		return s[:size], nil
	}
	items := iterableOf(input)
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func lastFilter(input interface{}, args ...interface{}) (interface{}, error) {
	if s, ok := input.(string); ok {
		if s == "" {
			return nil, nil
		}
		_, size := utf8.DecodeLastRuneInString(s)
		return s[len(s)-size:], nil
	}
	items := iterableOf(input)
	if len(items) == 0 {
		return nil, nil
	}
	return items[len(items)-1], nil
}

// truncateFilter cuts a string to at most n runes.
func truncateFilter(input interface{}, args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return input, nil
	}
	n, ok := args[0].(int)
	if !ok || n < 0 {
		return nil, fmt.Errorf("truncate filter requires a non-negative integer")
	}
	s := stringify(input)
	count := 0
	for i := range s {
		if count == n {
			return s[:i], nil
		}
		count++
	}
	return s, nil
}

// escapeHTMLFilter forces entity encoding and marks the result safe so the
// automatic pass does not double-escape it.
func escapeHTMLFilter(input interface{}, args ...interface{}) (interface{}, error) {
	return Safe(EscapeHTML(stringify(input))), nil
}

// safeFilter exempts the value from auto-escaping.
func safeFilter(input interface{}, args ...interface{}) (interface{}, error) {
	return Safe(stringify(input)), nil
}
