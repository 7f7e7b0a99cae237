// Package labels renders workspace paths for menus, prompts and confirmations
package labels

import (
	"fmt"
	"strings"

	"github.com/xpomul/workspacefs"
)

// RootSource provides the current workspace roots
type RootSource interface {
	Roots() []string
}

type Provider struct {
	roots RootSource
}

func NewProvider(roots RootSource) *Provider {
	return &Provider{roots: roots}
}

// Name is the last path segment, "/" for the filesystem root
func (p *Provider) Name(path string) string {
	if name := workspacefs.Base(path); name != "" {
		return name
	}
	return "/"
}

// LongName is path relative to its deepest containing root, prefixed with
// that root's name. Paths outside every root are returned cleaned
func (p *Provider) LongName(path string) string {
	path = workspacefs.Clean(path)
	root, ok := p.containingRoot(path)
	if !ok {
		return path
	}
	name := p.Name(root)
	if root == path {
		return name
	}
	if root == "/" {
		return path
	}
	rel := strings.TrimPrefix(path, root)
	return name + "/" + strings.TrimPrefix(rel, "/")
}

func (p *Provider) containingRoot(path string) (string, bool) {
	if p.roots == nil {
		return "", false
	}
	best := ""
	for _, r := range p.roots.Roots() {
		r = workspacefs.Clean(r)
		if (r == path || workspacefs.IsAncestor(r, path)) && len(r) > len(best) {
			best = r
		}
	}
	return best, best != ""
}

// ConfirmList renders paths as a bullet list of long names. Past max entries
// the remainder is summarized; max < 1 lists everything
func (p *Provider) ConfirmList(paths []string, max int) string {
	shown := paths
	if max > 0 && len(paths) > max {
		shown = paths[:max]
	}
	var b strings.Builder
	for i, path := range shown {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(p.LongName(path))
	}
	if rest := len(paths) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n... and %d more", rest)
	}
	return b.String()
}
