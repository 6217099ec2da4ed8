package dataset

import (
	"path"
	"strings"
)

// Source declares one extract to load.
type Source struct {
	// ID names the source in diagnostics. Defaults to the file name.
	ID string `json:"id" yaml:"id"`
	// Path is the slash-separated location of the extract inside the data filesystem.
	Path string `json:"path" yaml:"path"`
	// Namespace is appended to value columns that collide with columns
	// already merged.
	Namespace string `json:"namespace,omitempty" yaml:"namespace"`
}

// Name returns the ID, or the file name when no ID is declared.
func (s Source) Name() string {
	if s.ID != "" {
		return s.ID
	}
	return path.Base(s.Path)
}

// CollisionToken returns the declared namespace, falling back to the file
// name up to its first '-' (or without its extension when it has none).
func (s Source) CollisionToken() string {
	if s.Namespace != "" {
		return s.Namespace
	}
	base := path.Base(s.Path)
	if i := strings.IndexByte(base, '-'); i > 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// Extract is one source table, read once and immutable thereafter.
type Extract struct {
	Source Source
	*Table
}
