package workspacefs

import (
	"path"
	"strings"
	"time"
)

// FileStat describes a single filesystem entry.
// It doubles as the parent directory descriptor used by name validation
type FileStat struct {
	Path  string // absolute slash separated path
	Name  string // last path component; "" for "/"
	IsDir bool
	Size  int64
	Mtime time.Time

	// Children holds the direct children of a directory. nil means not resolved
	Children []*FileStat
}

// ChildNames returns the names of the resolved children
func (s *FileStat) ChildNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Children))
	for _, ch := range s.Children {
		names = append(names, ch.Name)
	}
	return names
}

// Child returns the resolved child with the given name
func (s *FileStat) Child(name string) (*FileStat, bool) {
	if s == nil {
		return nil, false
	}
	for _, ch := range s.Children {
		if ch.Name == name {
			return ch, true
		}
	}
	return nil, false
}

// Clean normalizes p into an absolute slash separated path.
// Backslashes are treated as separators
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean("/" + p)
}

// Join resolves name against the parent directory path
func Join(parent, name string) string {
	return Clean(path.Join(parent, name))
}

// Parent returns the parent directory of p. The parent of "/" is "/"
func Parent(p string) string {
	return path.Dir(Clean(p))
}

// Base returns the last component of p; "" for "/"
func Base(p string) string {
	p = Clean(p)
	if p == "/" {
		return ""
	}
	return path.Base(p)
}

// IsAncestor reports whether ancestor strictly contains p
func IsAncestor(ancestor, p string) bool {
	ancestor, p = Clean(ancestor), Clean(p)
	if ancestor == p {
		return false
	}
	if ancestor == "/" {
		return true
	}
	return strings.HasPrefix(p, ancestor+"/")
}
