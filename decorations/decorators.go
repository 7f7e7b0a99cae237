package decorations

import (
	"context"
	"sync"
	"time"

	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/workspace"
)

const (
	RootDecoratorID   = "workspace-roots"
	ChangeDecoratorID = "file-changes"
)

// RootDecorator marks workspace roots
type RootDecorator struct {
	ws      *workspace.Service
	dispose func()
}

// NewRootDecorator refires svc whenever the roots of ws change
func NewRootDecorator(ws *workspace.Service, svc *Service) *RootDecorator {
	return &RootDecorator{
		ws:      ws,
		dispose: ws.OnDidChangeRoots(func(workspace.RootsChange) { svc.Fire() }),
	}
}

func (r *RootDecorator) ID() string { return RootDecoratorID }

func (r *RootDecorator) Decorate(_ context.Context, paths []string) (map[string]Decoration, error) {
	out := map[string]Decoration{}
	for _, p := range paths {
		if r.ws.IsRoot(p) {
			out[p] = Decoration{Badge: "R", Color: "blue", Tooltip: "Workspace root", Priority: 10}
		}
	}
	return out, nil
}

// Close stops following root changes
func (r *RootDecorator) Close() {
	r.dispose()
}

type changeEntry struct {
	op workspace.ChangeOp
	at time.Time
}

// ChangeDecorator badges recently changed paths with A, M or D. Entries
// expire after the configured TTL
type ChangeDecorator struct {
	svc *Service
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	changes map[string]changeEntry
}

func NewChangeDecorator(svc *Service, ttl time.Duration) *ChangeDecorator {
	return &ChangeDecorator{
		svc:     svc,
		ttl:     ttl,
		now:     time.Now,
		changes: map[string]changeEntry{},
	}
}

func (c *ChangeDecorator) ID() string { return ChangeDecoratorID }

// Record stores change and notifies the service. A create followed by writes
// stays "added"
func (c *ChangeDecorator) Record(change workspace.FileChange) {
	p := workspacefs.Clean(change.Path)
	c.mu.Lock()
	op := change.Op
	if prev, ok := c.changes[p]; ok && prev.op == workspace.Created && op == workspace.Changed && !c.expired(prev) {
		op = workspace.Created
	}
	c.changes[p] = changeEntry{op: op, at: c.now()}
	c.mu.Unlock()
	c.svc.Fire()
}

func (c *ChangeDecorator) expired(e changeEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.at) >= c.ttl
}

func (c *ChangeDecorator) Decorate(_ context.Context, paths []string) (map[string]Decoration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for p, e := range c.changes {
		if c.expired(e) {
			delete(c.changes, p)
		}
	}

	out := map[string]Decoration{}
	for _, p := range paths {
		e, ok := c.changes[workspacefs.Clean(p)]
		if !ok {
			continue
		}
		out[p] = changeDecoration(e.op)
	}
	return out, nil
}

func changeDecoration(op workspace.ChangeOp) Decoration {
	switch op {
	case workspace.Created:
		return Decoration{Badge: "A", Color: "green", Tooltip: "Added", Priority: 5}
	case workspace.Deleted:
		return Decoration{Badge: "D", Color: "red", Tooltip: "Deleted", Priority: 5}
	default:
		return Decoration{Badge: "M", Color: "yellow", Tooltip: "Modified", Priority: 5}
	}
}
