package asset

import (
	"path/filepath"
	"strings"
)

// Loader turns a model path into a Bundle.
type Loader interface {
	Load(path string) (*Bundle, error)
}

// FileLoader loads models from the local filesystem.
type FileLoader struct {
	// Root is the asset directory. Model paths starting with "/" are
	// relative to it, like URLs under a web server root.
	Root string
}

// Resolve maps a model path to a filesystem path.
func (l FileLoader) Resolve(path string) string {
	if strings.HasPrefix(path, "/") {
		return filepath.Join(l.Root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
	}
	if filepath.IsAbs(path) || l.Root == "" {
		return path
	}
	return filepath.Join(l.Root, filepath.FromSlash(path))
}

// Load implements Loader.
func (l FileLoader) Load(path string) (*Bundle, error) {
	return Load(l.Resolve(path))
}
