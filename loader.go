package plume

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loader resolves a template name to its source text. Loading happens at the
// boundary, before or alongside compilation; the core pipeline never does
// I/O itself. Implementations report unknown names via ErrTemplateNotFound.
type Loader interface {
	Load(name string) (string, error)
}

// DirLoader serves templates from files under a root directory.
type DirLoader struct {
	Root string
}

// Load reads the named template file. Names that escape the root directory
// are rejected as not found.
func (l DirLoader) Load(name string) (string, error) {
	clean := filepath.Clean("/" + name)
	path := filepath.Join(l.Root, clean)
	if rel, err := filepath.Rel(l.Root, path); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%q: %w", name, ErrTemplateNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%q: %w", name, ErrTemplateNotFound)
		}
		return "", fmt.Errorf("loading template %q: %w", name, err)
	}
	return string(data), nil
}

// MapLoader serves templates from an in-memory name to source mapping.
type MapLoader map[string]string

func (l MapLoader) Load(name string) (string, error) {
	src, ok := l[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrTemplateNotFound)
	}
	return src, nil
}
