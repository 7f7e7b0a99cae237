package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/internal/util"
)

// LocalFS implements [workspacefs.FileService] on the host filesystem.
// Workspace path "/a/b" maps to <root>/a/b
type LocalFS struct {
	root string
}

// NewLocalFS opens root, which must be an existing directory. An empty root
// means "/"
func NewLocalFS(root string) (*LocalFS, error) {
	if root == "" {
		root = "/"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open root %s: %w", abs, mapErr(err))
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open root %s: %w", abs, workspacefs.ErrNotDir)
	}
	return &LocalFS{root: abs}, nil
}

// Root returns the host directory backing "/"
func (l *LocalFS) Root() string {
	return l.root
}

// LocalPath returns the host path for workspace path p
func (l *LocalFS) LocalPath(p string) string {
	return filepath.Join(l.root, filepath.FromSlash(workspacefs.Clean(p)))
}

// WorkspacePath maps a host path back into the workspace. ok is false for
// paths outside the root
func (l *LocalFS) WorkspacePath(local string) (string, bool) {
	rel, err := filepath.Rel(l.root, local)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return workspacefs.Clean(filepath.ToSlash(rel)), true
}

// mapErr attaches the matching sentinel to host errors
func mapErr(err error) error {
	var sentinel error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, iofs.ErrNotExist):
		sentinel = workspacefs.ErrNotFound
	case errors.Is(err, iofs.ErrExist):
		sentinel = workspacefs.ErrExists
	case errors.Is(err, syscall.ENOTDIR):
		sentinel = workspacefs.ErrNotDir
	case errors.Is(err, syscall.EISDIR):
		sentinel = workspacefs.ErrIsDir
	case errors.Is(err, syscall.ENOTEMPTY):
		sentinel = workspacefs.ErrNotEmpty
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func (l *LocalFS) Exists(_ context.Context, p string) (bool, error) {
	_, err := os.Lstat(l.LocalPath(p))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, iofs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return false, nil
	default:
		return false, fmt.Errorf("exists %s: %w", p, err)
	}
}

func (l *LocalFS) Stat(_ context.Context, p string) (*workspacefs.FileStat, error) {
	logger := util.GetLogger("LocalFS.Stat")

	p = workspacefs.Clean(p)
	info, err := os.Stat(l.LocalPath(p))
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, mapErr(err))
	}
	stat := toStat(p, info)
	if !stat.IsDir {
		return stat, nil
	}

	entries, err := os.ReadDir(l.LocalPath(p))
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, mapErr(err))
	}
	stat.Children = make([]*workspacefs.FileStat, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			logger.Trace().Err(err).Str("entry", e.Name()).Msg("Skipping entry")
			continue
		}
		stat.Children = append(stat.Children, toStat(workspacefs.Join(p, e.Name()), info))
	}
	return stat, nil
}

func toStat(p string, info iofs.FileInfo) *workspacefs.FileStat {
	return &workspacefs.FileStat{
		Path:  p,
		Name:  workspacefs.Base(p),
		IsDir: info.IsDir(),
		Size:  info.Size(),
		Mtime: info.ModTime(),
	}
}

func (l *LocalFS) ReadFile(_ context.Context, p string) ([]byte, error) {
	data, err := os.ReadFile(l.LocalPath(p))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, mapErr(err))
	}
	return data, nil
}

func (l *LocalFS) WriteFile(_ context.Context, p string, data []byte) error {
	if err := os.WriteFile(l.LocalPath(p), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, mapErr(err))
	}
	return nil
}

func (l *LocalFS) CreateFile(_ context.Context, p string, data []byte) error {
	p = workspacefs.Clean(p)
	if p == "/" {
		return fmt.Errorf("create %s: %w", p, workspacefs.ErrInvalidPath)
	}
	local := l.LocalPath(p)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", p, mapErr(err))
	}
	f, err := os.OpenFile(local, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, mapErr(err))
	}
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	return nil
}

func (l *LocalFS) CreateFolder(_ context.Context, p string) error {
	local := l.LocalPath(p)
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return fmt.Errorf("mkdir %s: %w", p, workspacefs.ErrExists)
	}
	if err := os.MkdirAll(local, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", p, mapErr(err))
	}
	return nil
}

// checkTransfer validates a move or copy from src to dst
func (l *LocalFS) checkTransfer(src, dst string) error {
	if src == "/" || dst == "/" || workspacefs.IsAncestor(src, dst) {
		return workspacefs.ErrInvalidPath
	}
	if _, err := os.Lstat(l.LocalPath(src)); err != nil {
		return mapErr(err)
	}
	if _, err := os.Lstat(l.LocalPath(dst)); err == nil {
		return workspacefs.ErrExists
	}
	info, err := os.Stat(l.LocalPath(workspacefs.Parent(dst)))
	if err != nil {
		return mapErr(err)
	}
	if !info.IsDir() {
		return workspacefs.ErrNotDir
	}
	return nil
}

func (l *LocalFS) Move(_ context.Context, src, dst string) error {
	src, dst = workspacefs.Clean(src), workspacefs.Clean(dst)
	if src == dst {
		return nil
	}
	if err := l.checkTransfer(src, dst); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	if err := os.Rename(l.LocalPath(src), l.LocalPath(dst)); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, mapErr(err))
	}
	return nil
}

func (l *LocalFS) Copy(_ context.Context, src, dst string) error {
	src, dst = workspacefs.Clean(src), workspacefs.Clean(dst)
	if err := l.checkTransfer(src, dst); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := copyTree(l.LocalPath(src), l.LocalPath(dst)); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, mapErr(err))
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.Mkdir(target, info.Mode().Perm())
		case d.Type()&iofs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(p, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm iofs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (l *LocalFS) Delete(_ context.Context, p string, opts workspacefs.DeleteOptions) error {
	p = workspacefs.Clean(p)
	if p == "/" {
		return fmt.Errorf("delete %s: %w", p, workspacefs.ErrInvalidPath)
	}
	local := l.LocalPath(p)
	info, err := os.Lstat(local)
	if err != nil {
		return fmt.Errorf("delete %s: %w", p, mapErr(err))
	}
	if info.IsDir() && !opts.Recursive {
		entries, err := os.ReadDir(local)
		if err != nil {
			return fmt.Errorf("delete %s: %w", p, mapErr(err))
		}
		if len(entries) > 0 {
			return fmt.Errorf("delete %s: %w", p, workspacefs.ErrNotEmpty)
		}
	}
	if err := os.RemoveAll(local); err != nil {
		return fmt.Errorf("delete %s: %w", p, mapErr(err))
	}
	return nil
}

var _ workspacefs.FileService = (*LocalFS)(nil)
