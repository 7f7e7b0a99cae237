package filesystem

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/internal/util"
)

// FileSystem is an in-memory [workspacefs.FileService].
// Lookups are lock-free over the xsync children maps; structural
// mutations are serialized by mu
type FileSystem struct {
	root    *Node         // Root of node tree
	lastIno atomic.Uint64 // Last fuse Attr.Ino assigned; incremented when new nodes are created
	mu      sync.Mutex
}

var _ workspacefs.FileService = (*FileSystem)(nil)

func NewFS() *FileSystem {
	rootAttr := newDefaultAttr(fuse.FUSE_ROOT_ID)
	rootAttr.Mode = uint32(syscall.S_IFDIR | 0o755)

	rootNode, _ := NewNode("", NewInode(rootAttr))

	fs := FileSystem{root: rootNode}
	fs.lastIno.Store(fuse.FUSE_ROOT_ID)
	return &fs
}

// lookup walks the tree to p
func (fs *FileSystem) lookup(p string) (*Node, error) {
	p = workspacefs.Clean(p)
	cur := fs.root
	if p == "/" {
		return cur, nil
	}
	for _, name := range strings.Split(p[1:], "/") {
		if !cur.IsDir() {
			return nil, workspacefs.ErrNotDir
		}
		child, ok := cur.GetChild(name)
		if !ok {
			return nil, workspacefs.ErrNotFound
		}
		cur = child
	}
	return cur, nil
}

func (fs *FileSystem) Exists(_ context.Context, p string) (bool, error) {
	if _, err := fs.lookup(p); err != nil {
		return false, nil
	}
	return true, nil
}

func (fs *FileSystem) Stat(_ context.Context, p string) (*workspacefs.FileStat, error) {
	node, err := fs.lookup(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	stat := toStat(workspacefs.Clean(p), node)
	if stat.IsDir {
		children := node.Children()
		stat.Children = make([]*workspacefs.FileStat, 0, len(children))
		for _, ch := range children {
			stat.Children = append(stat.Children, toStat(workspacefs.Join(stat.Path, ch.Name()), ch))
		}
	}
	return stat, nil
}

func (fs *FileSystem) ReadFile(_ context.Context, p string) ([]byte, error) {
	node, err := fs.lookup(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	if node.IsDir() {
		return nil, fmt.Errorf("read %s: %w", p, workspacefs.ErrIsDir)
	}
	return node.Data(), nil
}

func (fs *FileSystem) WriteFile(_ context.Context, p string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = workspacefs.Clean(p)
	parent, err := fs.lookup(workspacefs.Parent(p))
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	if !parent.IsDir() {
		return fmt.Errorf("write %s: %w", p, workspacefs.ErrNotDir)
	}
	if existing, ok := parent.GetChild(workspacefs.Base(p)); ok {
		if existing.IsDir() {
			return fmt.Errorf("write %s: %w", p, workspacefs.ErrIsDir)
		}
		existing.SetData(data)
		return nil
	}
	fs.newFileLocked(parent, workspacefs.Base(p), data)
	return nil
}

// CreateFile adds a new file node, creating any missing directories in the path.
// If a node already exists at the requested path, it will return an error
func (fs *FileSystem) CreateFile(_ context.Context, p string, data []byte) error {
	logger := util.GetLogger("MemFS.CreateFile")

	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = workspacefs.Clean(p)
	if p == "/" {
		return fmt.Errorf("create %s: %w", p, workspacefs.ErrInvalidPath)
	}
	parent, err := fs.mkdirAllLocked(workspacefs.Parent(p))
	if err != nil {
		logger.Debug().Err(err).Str("path", p).Msg("Failed to create file's ancestor directory(s)")
		return fmt.Errorf("create %s: %w", p, err)
	}
	if _, ok := parent.GetChild(workspacefs.Base(p)); ok {
		return fmt.Errorf("create %s: %w", p, workspacefs.ErrExists)
	}
	fs.newFileLocked(parent, workspacefs.Base(p), data)
	logger.Trace().Str("path", p).Msg("Added new file node")
	return nil
}

// CreateFolder recursively adds all missing directories in p.
// It is equivalent to calling `mkdir -p` from a shell
func (fs *FileSystem) CreateFolder(_ context.Context, p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.mkdirAllLocked(p); err != nil {
		return fmt.Errorf("mkdir %s: %w", p, err)
	}
	return nil
}

func (fs *FileSystem) Move(_ context.Context, src, dst string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	src, dst = workspacefs.Clean(src), workspacefs.Clean(dst)
	if src == dst {
		return nil
	}
	node, dstParent, err := fs.prepareTransferLocked(src, dst)
	if err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}

	srcParent, _ := fs.lookup(workspacefs.Parent(src))
	srcParent.RemoveChild(node.Name())
	srcParent.Touch(true)
	node.rename(workspacefs.Base(dst))
	node.Touch(false)
	dstParent.AddChild(node)
	dstParent.Touch(true)
	return nil
}

func (fs *FileSystem) Copy(_ context.Context, src, dst string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	src, dst = workspacefs.Clean(src), workspacefs.Clean(dst)
	node, dstParent, err := fs.prepareTransferLocked(src, dst)
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	dstParent.AddChild(fs.cloneLocked(node, workspacefs.Base(dst)))
	dstParent.Touch(true)
	return nil
}

func (fs *FileSystem) Delete(_ context.Context, p string, opts workspacefs.DeleteOptions) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = workspacefs.Clean(p)
	if p == "/" {
		return fmt.Errorf("delete %s: %w", p, workspacefs.ErrInvalidPath)
	}
	node, err := fs.lookup(p)
	if err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	if node.IsDir() && node.NumChildren() > 0 && !opts.Recursive {
		return fmt.Errorf("delete %s: %w", p, workspacefs.ErrNotEmpty)
	}
	parent, _ := fs.lookup(workspacefs.Parent(p))
	parent.RemoveChild(node.Name())
	parent.Touch(true)
	node.Del()
	return nil
}

// prepareTransferLocked validates a move or copy of src to dst and returns the
// source node and the destination parent
func (fs *FileSystem) prepareTransferLocked(src, dst string) (*Node, *Node, error) {
	if src == "/" || dst == "/" || workspacefs.IsAncestor(src, dst) {
		return nil, nil, workspacefs.ErrInvalidPath
	}
	node, err := fs.lookup(src)
	if err != nil {
		return nil, nil, err
	}
	if _, err := fs.lookup(dst); err == nil {
		return nil, nil, workspacefs.ErrExists
	}
	dstParent, err := fs.lookup(workspacefs.Parent(dst))
	if err != nil {
		return nil, nil, err
	}
	if !dstParent.IsDir() {
		return nil, nil, workspacefs.ErrNotDir
	}
	return node, dstParent, nil
}

// mkdirAllLocked traverses p creating any missing directories and returns the leaf
func (fs *FileSystem) mkdirAllLocked(p string) (*Node, error) {
	logger := util.GetLogger("MemFS.mkdirAll")

	p = workspacefs.Clean(p)
	cur := fs.root
	if p == "/" {
		return cur, nil
	}
	newCnt := 0
	names := strings.Split(p[1:], "/")
	for i, name := range names {
		if child, ok := cur.GetChild(name); ok {
			if !child.IsDir() {
				if i == len(names)-1 {
					return nil, workspacefs.ErrExists
				}
				return nil, workspacefs.ErrNotDir
			}
			cur = child
			continue
		}
		attr := newDefaultAttr(fs.lastIno.Add(1))
		attr.Mode = uint32(syscall.S_IFDIR | 0o755)
		node, _ := NewNode(name, NewInode(attr))
		cur.AddChild(node)
		cur.Touch(true)
		newCnt++
		cur = node
	}
	if newCnt > 0 {
		logger.Trace().Str("path", p).Int("created", newCnt).Msg("Created new dir(s)")
	}
	return cur, nil
}

func (fs *FileSystem) newFileLocked(parent *Node, name string, data []byte) *Node {
	attr := newDefaultAttr(fs.lastIno.Add(1))
	attr.Mode = uint32(syscall.S_IFREG | 0o644)
	inode := NewInode(attr)
	inode.SetData(data)
	node, _ := NewNode(name, inode)
	parent.AddChild(node)
	parent.Touch(true)
	return node
}

// cloneLocked deep copies node under a new name with fresh inodes
func (fs *FileSystem) cloneLocked(node *Node, name string) *Node {
	attr := node.CopyAttr()
	attr.Ino = fs.lastIno.Add(1)
	inode := NewInode(&attr)
	if !node.IsDir() {
		inode.SetData(node.Data())
	}
	clone, _ := NewNode(name, inode)
	for _, ch := range node.Children() {
		clone.AddChild(fs.cloneLocked(ch, ch.Name()))
	}
	return clone
}

func toStat(p string, node *Node) *workspacefs.FileStat {
	attr := node.CopyAttr()
	return &workspacefs.FileStat{
		Path:  p,
		Name:  workspacefs.Base(p),
		IsDir: node.IsDir(),
		Size:  int64(attr.Size),
		Mtime: node.Mtime(),
	}
}

// newDefaultAttr returns the default attributes for a new node
// NOTE: Make sure to set the Mode field appropriately
func newDefaultAttr(ino uint64) *fuse.Attr {
	now := time.Now()
	return &fuse.Attr{
		Ino:   ino,
		Nlink: 1,
		Owner: fuse.Owner{
			Uid: uint32(os.Getuid()),
			Gid: uint32(os.Getgid()),
		},
		Atime:     uint64(now.Unix()),
		Mtime:     uint64(now.Unix()),
		Ctime:     uint64(now.Unix()),
		Atimensec: uint32(now.Nanosecond()),
		Mtimensec: uint32(now.Nanosecond()),
		Ctimensec: uint32(now.Nanosecond()),
		Blksize:   4096,
	}
}
