// Package workspace tracks the root folders of the open workspace and
// persists them to a workspace file
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/internal/util"
)

var (
	ErrNoWorkspaceFile = errors.New("no workspace file is open")
	ErrInvalidFile     = errors.New("invalid workspace file")
)

// RootsChange describes one update of the root set
type RootsChange struct {
	Roots   []string
	Added   []string
	Removed []string
}

type folderEntry struct {
	Path string `json:"path"`
}

// Service manages the roots of the current workspace. It is safe for
// concurrent use
type Service struct {
	fs workspacefs.FileService

	mu            sync.RWMutex
	roots         []string
	workspaceFile string

	listeners *xsync.Map[uint64, func(RootsChange)]
	nextID    atomic.Uint64
}

func NewService(fs workspacefs.FileService) *Service {
	return &Service{
		fs:        fs,
		listeners: xsync.NewMap[uint64, func(RootsChange)](),
	}
}

// OpenFolder makes dir the only root and closes any workspace file
func (s *Service) OpenFolder(ctx context.Context, dir string) error {
	logger := util.GetLogger("Workspace.OpenFolder")

	dir = workspacefs.Clean(dir)
	if err := s.checkDir(ctx, dir); err != nil {
		return fmt.Errorf("open folder: %w", err)
	}

	s.mu.Lock()
	s.workspaceFile = ""
	change := s.replaceLocked([]string{dir})
	s.mu.Unlock()

	logger.Info().Str("root", dir).Msg("Opened folder")
	s.fire(change)
	return nil
}

// Open reads a workspace file of the form {"folders":[{"path":"..."}]}.
// Relative folder paths resolve against the file's directory
func (s *Service) Open(ctx context.Context, workspaceFile string) error {
	logger := util.GetLogger("Workspace.Open")

	workspaceFile = workspacefs.Clean(workspaceFile)
	raw, err := s.fs.ReadFile(ctx, workspaceFile)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	roots, err := parseFolders(raw, workspacefs.Parent(workspaceFile))
	if err != nil {
		return fmt.Errorf("open workspace %s: %w", workspaceFile, err)
	}

	s.mu.Lock()
	s.workspaceFile = workspaceFile
	change := s.replaceLocked(roots)
	s.mu.Unlock()

	logger.Info().Str("file", workspaceFile).Strs("roots", roots).Msg("Opened workspace")
	s.fire(change)
	return nil
}

func parseFolders(raw []byte, base string) ([]string, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidFile
	}
	folders := gjson.GetBytes(raw, "folders")
	if folders.Exists() && !folders.IsArray() {
		return nil, fmt.Errorf("%w: \"folders\" must be an array", ErrInvalidFile)
	}

	var roots []string
	folders.ForEach(func(_, folder gjson.Result) bool {
		p := folder.Get("path").String()
		if p == "" {
			return true
		}
		p = strings.ReplaceAll(p, "\\", "/")
		if !path.IsAbs(p) {
			p = workspacefs.Join(base, p)
		}
		p = workspacefs.Clean(p)
		if !slices.Contains(roots, p) {
			roots = append(roots, p)
		}
		return true
	})
	return roots, nil
}

func (s *Service) checkDir(ctx context.Context, dir string) error {
	stat, err := s.fs.Stat(ctx, dir)
	if err != nil {
		return err
	}
	if !stat.IsDir {
		return fmt.Errorf("%s: %w", dir, workspacefs.ErrNotDir)
	}
	return nil
}

// Roots returns a copy of the current roots in workspace order
func (s *Service) Roots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roots)
}

func (s *Service) IsRoot(p string) bool {
	p = workspacefs.Clean(p)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.roots, p)
}

// RootFor returns the deepest root containing p, p itself included
func (s *Service) RootFor(p string) (string, bool) {
	p = workspacefs.Clean(p)
	s.mu.RLock()
	defer s.mu.RUnlock()
	best := ""
	for _, r := range s.roots {
		if (r == p || workspacefs.IsAncestor(r, p)) && len(r) > len(best) {
			best = r
		}
	}
	return best, best != ""
}

// WorkspaceFile returns the open workspace file, "" for a folder workspace
func (s *Service) WorkspaceFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspaceFile
}

// AddRoots appends existing directories to the roots. Duplicates are ignored.
// Directories that cannot be added are reported in the joined error
func (s *Service) AddRoots(ctx context.Context, dirs ...string) ([]string, error) {
	logger := util.GetLogger("Workspace.AddRoots")

	var errs []error
	valid := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = workspacefs.Clean(d)
		if err := s.checkDir(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("add root: %w", err))
			continue
		}
		valid = append(valid, d)
	}

	s.mu.Lock()
	var added []string
	for _, d := range valid {
		if !slices.Contains(s.roots, d) {
			s.roots = append(s.roots, d)
			added = append(added, d)
		}
	}
	change := RootsChange{Roots: slices.Clone(s.roots), Added: added}
	s.mu.Unlock()

	if len(added) > 0 {
		logger.Info().Strs("added", added).Msg("Added roots")
		s.fire(change)
	}
	return added, errors.Join(errs...)
}

// RemoveRoots drops the given roots and returns the ones that were present
func (s *Service) RemoveRoots(dirs ...string) []string {
	logger := util.GetLogger("Workspace.RemoveRoots")

	drop := make([]string, 0, len(dirs))
	for _, d := range dirs {
		drop = append(drop, workspacefs.Clean(d))
	}

	s.mu.Lock()
	var removed []string
	kept := s.roots[:0:0]
	for _, r := range s.roots {
		if slices.Contains(drop, r) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	s.roots = kept
	change := RootsChange{Roots: slices.Clone(kept), Removed: removed}
	s.mu.Unlock()

	if len(removed) > 0 {
		logger.Info().Strs("removed", removed).Msg("Removed roots")
		s.fire(change)
	}
	return removed
}

// Save writes the roots into the open workspace file. Only "folders" is
// rewritten; other keys are preserved. Roots inside the file's directory are
// stored relative to it
func (s *Service) Save(ctx context.Context) error {
	logger := util.GetLogger("Workspace.Save")

	s.mu.RLock()
	file, roots := s.workspaceFile, slices.Clone(s.roots)
	s.mu.RUnlock()

	if file == "" {
		return ErrNoWorkspaceFile
	}

	raw, err := s.fs.ReadFile(ctx, file)
	if err != nil || !gjson.ValidBytes(raw) {
		logger.Debug().Err(err).Str("file", file).Msg("Starting from an empty workspace document")
		raw = []byte("{}")
	}

	base := workspacefs.Parent(file)
	folders := make([]folderEntry, 0, len(roots))
	for _, r := range roots {
		folders = append(folders, folderEntry{Path: relativeTo(base, r)})
	}
	raw, err = sjson.SetBytes(raw, "folders", folders)
	if err != nil {
		return fmt.Errorf("save workspace %s: %w", file, err)
	}
	if err := s.fs.WriteFile(ctx, file, raw); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	logger.Debug().Str("file", file).Int("folders", len(folders)).Msg("Saved workspace")
	return nil
}

func relativeTo(base, p string) string {
	switch {
	case base == p:
		return "."
	case workspacefs.IsAncestor(base, p):
		return strings.TrimPrefix(strings.TrimPrefix(p, base), "/")
	default:
		return p
	}
}

// OnDidChangeRoots registers fn for root changes. Call the returned func to
// unregister
func (s *Service) OnDidChangeRoots(fn func(RootsChange)) (dispose func()) {
	id := s.nextID.Add(1)
	s.listeners.Store(id, fn)
	return func() { s.listeners.Delete(id) }
}

func (s *Service) replaceLocked(roots []string) RootsChange {
	change := RootsChange{Roots: slices.Clone(roots)}
	for _, r := range s.roots {
		if !slices.Contains(roots, r) {
			change.Removed = append(change.Removed, r)
		}
	}
	for _, r := range roots {
		if !slices.Contains(s.roots, r) {
			change.Added = append(change.Added, r)
		}
	}
	s.roots = slices.Clone(roots)
	return change
}

func (s *Service) fire(change RootsChange) {
	if len(change.Added) == 0 && len(change.Removed) == 0 {
		return
	}
	s.listeners.Range(func(_ uint64, fn func(RootsChange)) bool {
		fn(change)
		return true
	})
}
