package plume

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// HelperFunc is a function callable from template expressions. Helpers are
// seeded into the context by the engine before each render.
type HelperFunc func(args ...interface{}) (interface{}, error)

// evalExpr computes the value of an expression tree against a context.
// Undefined variables evaluate to nil here; strictness about undefined values
// is enforced at variable output sites, not inside expressions.
func evalExpr(expr Expr, ctx map[string]interface{}) (interface{}, error) {
	switch e := expr.(type) {
	case *LiteralExpr:
		return e.Value, nil
	case *VarExpr:
		v, _ := lookupPath(ctx, e.Name)
		return v, nil
	case *UnaryExpr:
		return evalUnary(e, ctx)
	case *BinaryExpr:
		return evalBinary(e, ctx)
	case *MemberExpr:
		return evalMember(e, ctx)
	case *CallExpr:
		return evalCall(e, ctx)
	}
	return nil, fmt.Errorf("unhandled expression node %T", expr)
}

func evalUnary(e *UnaryExpr, ctx map[string]interface{}) (interface{}, error) {
	v, err := evalExpr(e.Operand, ctx)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "!", "not":
		return !IsTruthy(v), nil
	case "-":
		if n, ok := toFloat(v); ok {
			if i, isInt := toInt(v); isInt {
				return -i, nil
			}
			return -n, nil
		}
		return nil, runtimeErrorf("cannot negate %T value", v)
	}
	return nil, fmt.Errorf("unhandled unary operator %q", e.Op)
}

func evalBinary(e *BinaryExpr, ctx map[string]interface{}) (interface{}, error) {
	left, err := evalExpr(e.Left, ctx)
	if err != nil {
		return nil, err
	}

	// and/or short-circuit and return one of the operand values, not a bool.
	switch e.Op {
	case "and":
		if !IsTruthy(left) {
			return left, nil
		}
		return evalExpr(e.Right, ctx)
	case "or":
		if IsTruthy(left) {
			return left, nil
		}
		return evalExpr(e.Right, ctx)
	}

	right, err := evalExpr(e.Right, ctx)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	case "<", "<=", ">", ">=":
		return orderValues(e.Op, left, right)
	case "+":
		return addValues(left, right)
	case "-", "*", "/", "%":
		return arithmetic(e.Op, left, right)
	}
	return nil, fmt.Errorf("unhandled binary operator %q", e.Op)
}

func evalMember(e *MemberExpr, ctx map[string]interface{}) (interface{}, error) {
	obj, err := evalExpr(e.Object, ctx)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		// Short-circuit: member access on null/undefined is undefined.
		return nil, nil
	}
	prop, err := evalExpr(e.Property, ctx)
	if err != nil {
		return nil, err
	}
	if idx, ok := toInt(prop); ok {
		v, _ := indexValue(obj, idx)
		return v, nil
	}
	v, _ := member(obj, stringify(prop))
	return v, nil
}

// evalCall invokes a helper value. A non-invocable callee is always a fatal
// error, in lenient mode too: it points at a broken helper, not at absent
// user data.
func evalCall(e *CallExpr, ctx map[string]interface{}) (interface{}, error) {
	callee, err := evalExpr(e.Callee, ctx)
	if err != nil {
		return nil, err
	}
	args := make([]interface{}, len(e.Args))
	for i, a := range e.Args {
		if args[i], err = evalExpr(a, ctx); err != nil {
			return nil, err
		}
	}
	if fn, ok := callee.(HelperFunc); ok {
		return fn(args...)
	}
	if fn, ok := callee.(func(args ...interface{}) (interface{}, error)); ok {
		return fn(args...)
	}
	return callReflect(callee, args)
}

// callReflect invokes an arbitrary Go function value. The last return value
// may be an error; exactly one non-error result is returned to the template.
func callReflect(callee interface{}, args []interface{}) (interface{}, error) {
	fv := reflect.ValueOf(callee)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, runtimeErrorf("cannot call non-function value of type %T", callee)
	}
	ft := fv.Type()
	if !ft.IsVariadic() && ft.NumIn() != len(args) {
		return nil, runtimeErrorf("call expects %d arguments, got %d", ft.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if ft.IsVariadic() && i >= ft.NumIn()-1 {
			want = ft.In(ft.NumIn() - 1).Elem()
		} else {
			want = ft.In(i)
		}
		av := reflect.ValueOf(arg)
		if !av.IsValid() {
			av = reflect.Zero(want)
		} else if av.Type() != want {
			if !av.Type().ConvertibleTo(want) {
				return nil, runtimeErrorf("call argument %d: cannot use %T as %s", i, arg, want)
			}
			av = av.Convert(want)
		}
		in[i] = av
	}
	out := fv.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return reflectResult(out[0])
	default:
		if errv := out[len(out)-1]; errv.Type() == reflect.TypeOf((*error)(nil)).Elem() {
			if !errv.IsNil() {
				return nil, errv.Interface().(error)
			}
			return reflectResult(out[0])
		}
		return reflectResult(out[0])
	}
}

func reflectResult(v reflect.Value) (interface{}, error) {
	if v.Type() == reflect.TypeOf((*error)(nil)).Elem() {
		if v.IsNil() {
			return nil, nil
		}
		return nil, v.Interface().(error)
	}
	return v.Interface(), nil
}

// lookupPath walks a dotted name through the context, short-circuiting to
// undefined as soon as any intermediate value is nil or missing. It never
// fails on a missing path.
func lookupPath(ctx map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	cur, ok := ctx[parts[0]]
	if !ok {
		return nil, false
	}
	for _, part := range parts[1:] {
		if cur == nil {
			return nil, false
		}
		cur, ok = member(cur, part)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// member resolves one property step against a map, struct, or pointer.
func member(obj interface{}, name string) (interface{}, bool) {
	if obj == nil {
		return nil, false
	}
	if m, ok := obj.(map[string]interface{}); ok {
		v, ok := m[name]
		return v, ok
	}
	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, false
		}
		return member(rv.Elem().Interface(), name)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(name))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		fv := rv.FieldByName(name)
		if !fv.IsValid() || !fv.CanInterface() {
			return nil, false
		}
		return fv.Interface(), true
	}
	return nil, false
}

// indexValue resolves obj[i] for sequences. Out-of-range is undefined, not an
// error.
func indexValue(obj interface{}, idx int) (interface{}, bool) {
	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	}
	return nil, false
}

// IsTruthy converts a value to a boolean for if/elif tests. False only for
// nil, false, an empty sequence, or an empty mapping. Numeric 0 and "" are
// true; that boundary is intentional and must not be "fixed".
func IsTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// iterableOf coerces a value for for-loop iteration: sequences pass through,
// mappings become [key, value] pairs (sorted by key so repeated renders are
// byte-identical), a non-negative integer n becomes 0..n-1, anything else is
// empty.
func iterableOf(v interface{}) []interface{} {
	if v == nil {
		return nil
	}
	if s, ok := v.([]interface{}); ok {
		return s
	}
	if n, ok := toInt(v); ok {
		if n < 0 {
			return nil
		}
		out := make([]interface{}, n)
		for i := 0; i < n; i++ {
			out[i] = i
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		out := make([]interface{}, 0, len(keys))
		for _, k := range keys {
			out = append(out, []interface{}{k.Interface(), rv.MapIndex(k).Interface()})
		}
		return out
	}
	return nil
}

// looseEqual is coercive equality: numbers compare numerically across kinds,
// nil equals only nil, everything else compares by string form.
func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// orderValues applies an ordered comparison using the natural ordering of the
// operands: numeric when both are numbers, otherwise lexicographic on their
// string forms.
func orderValues(op string, a, b interface{}) (interface{}, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch op {
		case "<":
			return af < bf, nil
		case "<=":
			return af <= bf, nil
		case ">":
			return af > bf, nil
		case ">=":
			return af >= bf, nil
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch op {
	case "<":
		return as < bs, nil
	case "<=":
		return as <= bs, nil
	case ">":
		return as > bs, nil
	case ">=":
		return as >= bs, nil
	}
	return nil, fmt.Errorf("unhandled comparison operator %q", op)
}

// addValues implements +: concatenation when both operands are strings,
// numeric addition otherwise.
func addValues(a, b interface{}) (interface{}, error) {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return as + bs, nil
		}
	}
	return arithmetic("+", a, b)
}

// arithmetic applies a numeric operator, preserving int results when both
// operands are integers.
func arithmetic(op string, a, b interface{}) (interface{}, error) {
	ai, aIsInt := toInt(a)
	bi, bIsInt := toInt(b)
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, runtimeErrorf("operator %q needs numeric operands, got %T and %T", op, a, b)
	}
	if aIsInt && bIsInt {
		switch op {
		case "+":
			return ai + bi, nil
		case "-":
			return ai - bi, nil
		case "*":
			return ai * bi, nil
		case "/":
			if bi == 0 {
				return nil, runtimeErrorf("division by zero")
			}
			if ai%bi == 0 {
				return ai / bi, nil
			}
			return af / bf, nil
		case "%":
			if bi == 0 {
				return nil, runtimeErrorf("division by zero")
			}
			return ai % bi, nil
		}
	}
	switch op {
	case "+":
		return af + bf, nil
	case "-":
		return af - bf, nil
	case "*":
		return af * bf, nil
	case "/":
		if bf == 0 {
			return nil, runtimeErrorf("division by zero")
		}
		return af / bf, nil
	case "%":
		if bf == 0 {
			return nil, runtimeErrorf("division by zero")
		}
		return math.Mod(af, bf), nil
	}
	return nil, fmt.Errorf("unhandled arithmetic operator %q", op)
}

// toInt reports integer-kind values as an int. Floats are excluded so that
// int preservation in arithmetic only fires for true integers.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	if n, ok := toInt(v); ok {
		return float64(n), true
	}
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
