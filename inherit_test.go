package plume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderInclude(t *testing.T) {
	eng := New(WithLoader(MapLoader{
		"header": "== {{ title }} ==\n",
		"footer": "-- end --",
	}))
	out, err := eng.Render("{% include 'header' %}body\n{% include 'footer' %}",
		map[string]interface{}{"title": "Docs"})
	require.NoError(t, err)
	assert.Equal(t, "== Docs ==\nbody\n-- end --", out)
}

func TestRenderIncludeSharesContext(t *testing.T) {
	eng := New(WithLoader(MapLoader{"partial": "{{ inner }}"}))
	out, err := eng.Render("{% for inner in items %}{% include 'partial' %}{% endfor %}",
		map[string]interface{}{"items": []interface{}{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "ab", out)
}

func TestRenderIncludeMissing(t *testing.T) {
	eng := New(WithLoader(MapLoader{}))
	_, err := eng.Render("{% include 'ghost' %}", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRenderIncludeWithoutLoader(t *testing.T) {
	// Lenient: no loader means the include emits nothing.
	out, err := New().Render("a{% include 'x' %}b", nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", out)

	// Strict: the missing loader is an error.
	_, err = New(WithStrict(true)).Render("a{% include 'x' %}b", nil)
	require.Error(t, err)
}

func TestRenderExtends(t *testing.T) {
	eng := New(WithLoader(MapLoader{
		"base": "<header>{% block title %}Untitled{% endblock %}</header>" +
			"{% block body %}default body{% endblock %}",
	}))

	// Overridden blocks replace the parent's; the rest keep defaults.
	out, err := eng.Render("{% extends 'base' %}{% block title %}Home{% endblock %}", nil)
	require.NoError(t, err)
	assert.Equal(t, "<header>Home</header>default body", out)

	// Non-block content in the child is discarded.
	out, err = eng.Render("ignored {% extends 'base' %} also ignored"+
		"{% block body %}real body{% endblock %}", nil)
	require.NoError(t, err)
	assert.Equal(t, "<header>Untitled</header>real body", out)
}

func TestRenderExtendsChain(t *testing.T) {
	eng := New(WithLoader(MapLoader{
		"grand": "[{% block a %}GA{% endblock %}|{% block b %}GB{% endblock %}|{% block c %}GC{% endblock %}]",
		"parent": "{% extends 'grand' %}" +
			"{% block a %}PA{% endblock %}{% block b %}PB{% endblock %}",
	}))

	// The nearest descendant's override wins for each block name.
	out, err := eng.Render("{% extends 'parent' %}{% block a %}CA{% endblock %}", nil)
	require.NoError(t, err)
	assert.Equal(t, "[CA|PB|GC]", out)
}

func TestRenderExtendsBlockUsesContext(t *testing.T) {
	eng := New(WithLoader(MapLoader{
		"base": "{% block greet %}hi{% endblock %}",
	}))
	out, err := eng.Render("{% extends 'base' %}{% block greet %}hi {{ name }}{% endblock %}",
		map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "hi Ada", out)
}

func TestRenderExtendsMissingParent(t *testing.T) {
	eng := New(WithLoader(MapLoader{}))
	_, err := eng.Render("{% extends 'ghost' %}", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRenderExtendsWithoutLoader(t *testing.T) {
	out, err := New().Render("{% extends 'base' %}{% block x %}y{% endblock %}", nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)

	_, err = New(WithStrict(true)).Render("{% extends 'base' %}", nil)
	require.Error(t, err)
}

func TestRenderNamed(t *testing.T) {
	eng := New(WithLoader(MapLoader{
		"page": "Hello {{ name }}",
	}))
	out, err := eng.RenderNamed("page", map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", out)

	_, err = eng.RenderNamed("ghost", nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = New().RenderNamed("page", nil)
	require.Error(t, err)
}

func TestRenderIncludeInsideBlock(t *testing.T) {
	eng := New(WithLoader(MapLoader{
		"base":    "{% block main %}{% endblock %}",
		"snippet": "S",
	}))
	out, err := eng.Render("{% extends 'base' %}{% block main %}<{% include 'snippet' %}>{% endblock %}", nil)
	require.NoError(t, err)
	assert.Equal(t, "<S>", out)
}
