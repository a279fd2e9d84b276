package plume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"empty slice", []interface{}{}, false},
		{"nonempty slice", []interface{}{1}, true},
		{"empty map", map[string]interface{}{}, false},
		{"nonempty map", map[string]interface{}{"k": 1}, true},
		{"empty typed slice", []string{}, false},
		{"nonempty typed slice", []string{"x"}, true},

		// Zero and the empty string count as present values.
		{"zero int", 0, true},
		{"zero float", 0.0, true},
		{"empty string", "", true},

		{"nonzero int", 7, true},
		{"negative int", -1, true},
		{"string", "x", true},
		{"struct", struct{}{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTruthy(tc.value))
		})
	}
}

func TestIterableOf(t *testing.T) {
	t.Run("slice passes through", func(t *testing.T) {
		s := []interface{}{"a", "b"}
		assert.Equal(t, s, iterableOf(s))
	})
	t.Run("typed slice converts", func(t *testing.T) {
		assert.Equal(t, []interface{}{1, 2, 3}, iterableOf([]int{1, 2, 3}))
	})
	t.Run("nonnegative int counts up", func(t *testing.T) {
		assert.Equal(t, []interface{}{0, 1, 2}, iterableOf(3))
		assert.Equal(t, []interface{}{}, iterableOf(0))
	})
	t.Run("negative int is empty", func(t *testing.T) {
		assert.Empty(t, iterableOf(-5))
	})
	t.Run("map becomes sorted pairs", func(t *testing.T) {
		m := map[string]interface{}{"b": 2, "a": 1, "c": 3}
		assert.Equal(t, []interface{}{
			[]interface{}{"a", 1},
			[]interface{}{"b", 2},
			[]interface{}{"c", 3},
		}, iterableOf(m))
	})
	t.Run("scalars are empty", func(t *testing.T) {
		assert.Empty(t, iterableOf(nil))
		assert.Empty(t, iterableOf(true))
		assert.Empty(t, iterableOf(3.5))
		// Strings are scalars here, not character sequences.
		assert.Empty(t, iterableOf("abc"))
	})
}

func TestLookupPath(t *testing.T) {
	type address struct {
		City string
	}
	ctx := map[string]interface{}{
		"name": "ada",
		"user": map[string]interface{}{
			"profile": map[string]interface{}{"email": "ada@example.com"},
			"none":    nil,
		},
		"addr":  address{City: "London"},
		"paddr": &address{City: "Oslo"},
		"zero":  0,
	}

	tests := []struct {
		path      string
		want      interface{}
		wantFound bool
	}{
		{"name", "ada", true},
		{"zero", 0, true},
		{"user.profile.email", "ada@example.com", true},
		{"addr.City", "London", true},
		{"paddr.City", "Oslo", true},
		{"user.none", nil, true},
		{"user.none.deeper", nil, false},
		{"user.missing", nil, false},
		{"missing", nil, false},
		{"missing.deeper.still", nil, false},
		{"name.length", nil, false},
	}
	for _, tc := range tests {
		v, found := lookupPath(ctx, tc.path)
		assert.Equal(t, tc.wantFound, found, tc.path)
		assert.Equal(t, tc.want, v, tc.path)
	}
}

func TestLooseEqual(t *testing.T) {
	tests := []struct {
		a, b interface{}
		want bool
	}{
		{1, 1, true},
		{1, 1.0, true},
		{int64(5), 5, true},
		{"5", 5, true}, // numeric strings compare numerically
		{1, 2, false},
		{"a", "a", true},
		{"a", "b", false},
		{nil, nil, true},
		{nil, 0, false},
		{nil, "", false},
		{true, true, true},
		{true, false, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, looseEqual(tc.a, tc.b), "%v == %v", tc.a, tc.b)
	}
}

func TestOrderValues(t *testing.T) {
	v, err := orderValues("<", 2, 10)
	assert.NoError(t, err)
	assert.Equal(t, true, v)

	// Non-numeric operands fall back to lexicographic ordering.
	v, err = orderValues("<", "apple", "banana")
	assert.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = orderValues(">=", 3.5, 3.5)
	assert.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestMemberStructAndMap(t *testing.T) {
	type point struct {
		X int
		y int
	}
	v, ok := member(point{X: 1, y: 2}, "X")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	// Unexported fields are invisible.
	_, ok = member(point{X: 1, y: 2}, "y")
	assert.False(t, ok)

	v, ok = member(map[string]int{"n": 7}, "n")
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = member(42, "anything")
	assert.False(t, ok)
}

func TestIndexValue(t *testing.T) {
	v, ok := indexValue([]interface{}{"a", "b"}, 1)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = indexValue([]interface{}{"a"}, 5)
	assert.False(t, ok)
	_, ok = indexValue([]interface{}{"a"}, -1)
	assert.False(t, ok)
	_, ok = indexValue("not a sequence", 0)
	assert.False(t, ok)
}
