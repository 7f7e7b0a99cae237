package naming

import (
	"fmt"
	"path"
	"strings"

	"github.com/xpomul/workspacefs"
)

// SplitExt splits base into name and extension.
// Dot-files such as ".gitignore" have no extension
func SplitExt(base string) (name, ext string) {
	ext = path.Ext(base)
	if ext == base {
		return base, ""
	}
	return strings.TrimSuffix(base, ext), ext
}

// UniqueName returns name+ext if no child has it, otherwise the first free
// name_N+ext for N = 1, 2, ...
func UniqueName(children []string, name, ext string) string {
	return uniqueName(children, name, ext, false)
}

// UniqueChildName is [UniqueName] over the resolved children of parent
func UniqueChildName(parent *workspacefs.FileStat, name, ext string) string {
	return uniqueName(parent.ChildNames(), name, ext, false)
}

// CopyName returns the name for a duplicate of base: "name copy.ext", then
// "name copy 2.ext", "name copy 3.ext", ... Directories keep dots in their name
func CopyName(children []string, base string, isDir bool) string {
	return copyName(children, base, isDir, false)
}

func uniqueName(children []string, name, ext string, fold bool) string {
	taken := takenSet(children, fold)
	candidate := name + ext
	for i := 1; taken.has(candidate); i++ {
		candidate = fmt.Sprintf("%s_%d%s", name, i, ext)
	}
	return candidate
}

func copyName(children []string, base string, isDir, fold bool) string {
	name, ext := base, ""
	if !isDir {
		name, ext = SplitExt(base)
	}
	taken := takenSet(children, fold)
	candidate := name + " copy" + ext
	for i := 2; taken.has(candidate); i++ {
		candidate = fmt.Sprintf("%s copy %d%s", name, i, ext)
	}
	return candidate
}

type nameSet struct {
	names map[string]struct{}
	fold  bool
}

func takenSet(children []string, fold bool) nameSet {
	s := nameSet{names: make(map[string]struct{}, len(children)), fold: fold}
	for _, ch := range children {
		s.names[s.key(ch)] = struct{}{}
	}
	return s
}

func (s nameSet) key(name string) string {
	if s.fold {
		return strings.ToLower(name)
	}
	return name
}

func (s nameSet) has(name string) bool {
	_, ok := s.names[s.key(name)]
	return ok
}
