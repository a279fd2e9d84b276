package plume

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/k14s/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture files under filetests/ hold a template and its expected output
// separated by a +++ line. An expected section starting with "ERR: " asserts
// the exact error string instead.
func TestFileTemplates(t *testing.T) {
	files, err := os.ReadDir("filetests")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	eng := New(WithLoader(MapLoader{
		"base.html": "<title>{% block title %}Site{% endblock %}</title>\n" +
			"<main>{% block main %}empty{% endblock %}</main>",
	}))
	ctx := map[string]interface{}{
		"title": "Release <Notes>",
		"items": []interface{}{
			map[string]interface{}{"name": "alpha"},
			map[string]interface{}{"name": "beta"},
		},
		"user":   map[string]interface{}{"name": "ada", "admin": true},
		"counts": map[string]interface{}{"a": 1, "b": 2},
	}

	for _, file := range files {
		file := file
		t.Run(file.Name(), func(t *testing.T) {
			contents, err := os.ReadFile(filepath.Join("filetests", file.Name()))
			require.NoError(t, err)

			pieces := strings.SplitN(string(contents), "\n+++\n", 2)
			require.Len(t, pieces, 2, "fixture must contain a +++ separator line")
			source, expected := pieces[0], pieces[1]

			result, renderErr := eng.Render(source, ctx)

			if strings.HasPrefix(expected, "ERR: ") {
				require.Error(t, renderErr)
				assert.Equal(t, strings.TrimPrefix(expected, "ERR: "), renderErr.Error())
				return
			}
			require.NoError(t, renderErr)
			if result != expected {
				t.Errorf("output mismatch, diff expected...actual:\n%s",
					difflib.PPDiff(strings.Split(expected, "\n"), strings.Split(result, "\n")))
			}
		})
	}
}
