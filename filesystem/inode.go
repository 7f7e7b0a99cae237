package filesystem

import (
	"sync"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// Inode holds the attributes and content of a single entry
type Inode struct {
	// Low-level fuse attributes; Only access directly if handling locks manually
	fuseAttr *fuse.Attr
	data     []byte // file content; nil for directories
	mu       sync.RWMutex
}

func NewInode(attr *fuse.Attr) *Inode {
	return &Inode{fuseAttr: attr}
}

// CopyAttr returns a thread-safe copy of the inode's attributes
func (n *Inode) CopyAttr() fuse.Attr {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return *n.fuseAttr
}

// IsDir reports whether the inode mode marks a directory
func (n *Inode) IsDir() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.fuseAttr.Mode&syscall.S_IFMT == syscall.S_IFDIR
}

// Data returns a copy of the file content
func (n *Inode) Data() []byte {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out
}

// SetData replaces the file content and updates size and mtime
func (n *Inode) SetData(data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.data = append([]byte(nil), data...)
	n.fuseAttr.Size = uint64(len(n.data))
	touch(n.fuseAttr, time.Now(), true)
}

// Touch updates ctime, and mtime when modified is set
func (n *Inode) Touch(modified bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	touch(n.fuseAttr, time.Now(), modified)
}

func touch(attr *fuse.Attr, now time.Time, modified bool) {
	attr.Ctime = uint64(now.Unix())
	attr.Ctimensec = uint32(now.Nanosecond())
	if modified {
		attr.Mtime = uint64(now.Unix())
		attr.Mtimensec = uint32(now.Nanosecond())
	}
}

// Mtime returns the modification time
func (n *Inode) Mtime() time.Time {
	attr := n.CopyAttr()
	return time.Unix(int64(attr.Mtime), int64(attr.Mtimensec))
}
