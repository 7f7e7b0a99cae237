package workspace

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/internal/util"
)

type ChangeOp int

const (
	Created ChangeOp = iota + 1
	Changed
	Deleted
)

func (op ChangeOp) String() string {
	switch op {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("ChangeOp(%d)", int(op))
	}
}

// FileChange is a change below a workspace root, in workspace paths
type FileChange struct {
	Path string
	Op   ChangeOp
}

// PathMapper translates between workspace paths and host paths.
// [adapters.LocalFS] implements it
type PathMapper interface {
	LocalPath(p string) string
	WorkspacePath(local string) (string, bool)
}

// Watcher watches the root directories of a [Service] and follows root
// changes. Only entries directly inside a root are reported
type Watcher struct {
	svc    *Service
	mapper PathMapper
	fsw    *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]struct{}

	subs    *xsync.Map[uint64, func(FileChange)]
	nextID  atomic.Uint64
	dispose func()
}

func NewWatcher(svc *Service, mapper PathMapper) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		svc:     svc,
		mapper:  mapper,
		fsw:     fsw,
		watched: map[string]struct{}{},
		subs:    xsync.NewMap[uint64, func(FileChange)](),
	}
	w.dispose = svc.OnDidChangeRoots(func(RootsChange) { w.sync() })
	w.sync()
	return w, nil
}

// Subscribe registers fn for file changes. Call the returned func to
// unregister
func (w *Watcher) Subscribe(fn func(FileChange)) (dispose func()) {
	id := w.nextID.Add(1)
	w.subs.Store(id, fn)
	return func() { w.subs.Delete(id) }
}

// Watched lists the host directories currently watched
func (w *Watcher) Watched() []string {
	return w.fsw.WatchList()
}

// sync adds and removes watches so they mirror the current roots
func (w *Watcher) sync() {
	logger := util.GetLogger("Watcher.sync")

	want := map[string]struct{}{}
	for _, r := range w.svc.Roots() {
		want[w.mapper.LocalPath(r)] = struct{}{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for local := range w.watched {
		if _, ok := want[local]; ok {
			continue
		}
		if err := w.fsw.Remove(local); err != nil {
			logger.Debug().Err(err).Str("dir", local).Msg("Failed to remove watch")
		}
		delete(w.watched, local)
	}
	for local := range want {
		if _, ok := w.watched[local]; ok {
			continue
		}
		if err := w.fsw.Add(local); err != nil {
			logger.Warn().Err(err).Str("dir", local).Msg("Failed to watch root")
			continue
		}
		w.watched[local] = struct{}{}
	}
}

// Run delivers changes to subscribers until ctx ends or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	logger := util.GetLogger("Watcher.Run")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			change, ok := w.translate(ev)
			if !ok {
				continue
			}
			logger.Trace().Str("path", change.Path).Stringer("op", change.Op).Msg("File change")
			w.subs.Range(func(_ uint64, fn func(FileChange)) bool {
				fn(change)
				return true
			})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Watch error")
		}
	}
}

func (w *Watcher) translate(ev fsnotify.Event) (FileChange, bool) {
	p, ok := w.mapper.WorkspacePath(ev.Name)
	if !ok {
		return FileChange{}, false
	}
	p = workspacefs.Clean(p)
	switch {
	case ev.Has(fsnotify.Create):
		return FileChange{Path: p, Op: Created}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return FileChange{Path: p, Op: Deleted}, true
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Chmod):
		return FileChange{Path: p, Op: Changed}, true
	default:
		return FileChange{}, false
	}
}

// Close stops following roots and releases the watches
func (w *Watcher) Close() error {
	w.dispose()
	return w.fsw.Close()
}
