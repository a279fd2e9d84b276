package plume

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Rendering arbitrary input may fail with a parse or render error, but it
// must never panic and never produce different output for the same input.
func TestRenderArbitraryInputNeverPanics(t *testing.T) {
	f := fuzz.New().NumElements(0, 8)
	eng := New()
	for i := 0; i < 500; i++ {
		var src string
		f.Fuzz(&src)
		assert.NotPanics(t, func() {
			_, _ = eng.Render(src, nil)
		}, "source %q", src)
	}
}

func TestRenderArbitraryContextNeverPanics(t *testing.T) {
	f := fuzz.New().NilChance(0.2).NumElements(0, 6)
	eng := New()
	srcs := []string{
		"{{ a }} {{ a.b.c }}",
		"{% if a %}{{ b }}{% endif %}",
		"{% for x in a %}{{ x }}{{ loop.index }}{% endfor %}",
		"{{ a | upper | default('x') | join(',') }}",
	}
	for i := 0; i < 200; i++ {
		ctx := map[string]interface{}{}
		var a map[string]string
		var b []int
		f.Fuzz(&a)
		f.Fuzz(&b)
		ctx["a"] = a
		ctx["b"] = b
		for _, src := range srcs {
			assert.NotPanics(t, func() {
				_, _ = eng.Render(src, ctx)
			}, "source %q context %v", src, ctx)
		}
	}
}

func TestRenderArbitraryContextDeterministic(t *testing.T) {
	f := fuzz.New().NumElements(0, 10)
	eng := New()
	src := "{% for pair in m %}{{ pair | first }}:{{ pair | last }} {% endfor %}"
	for i := 0; i < 100; i++ {
		var m map[string]int
		f.Fuzz(&m)
		ctx := map[string]interface{}{"m": m}
		first, err := eng.Render(src, ctx)
		require.NoError(t, err)
		again, err := eng.Render(src, ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again, "context %v", m)
	}
}
