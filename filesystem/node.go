package filesystem

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

type Node struct {
	name     string                    // Name of the node (last part of the path). Protected by mu
	parent   *Node                     // Protected by mu
	mu       sync.RWMutex              // Protects the fields above
	children *xsync.Map[string, *Node] // thread-safe map of child nodes by name
	isDel    atomic.Bool
	*Inode
}

// NewNode creates a new detached Node for inode
//
// NOTE: Parent node is responsible for adding itself to the returned Node's
// Parent ref when linking as its child
func NewNode(name string, inode *Inode) (*Node, error) {
	if inode == nil {
		return nil, fmt.Errorf("cannot create node with nil inode")
	}
	return &Node{
		Inode:    inode,
		name:     name,
		children: xsync.NewMap[string, *Node](),
	}, nil
}

// Path returns the absolute path of the node. The root is "/".
//
// Returns an error if the node or an ancestor is detached or deleted
func (n *Node) Path() (string, error) {
	n.mu.RLock()
	name, parent := n.name, n.parent
	n.mu.RUnlock()

	if n.isDel.Load() {
		return "", fmt.Errorf("deleted node: %s", name)
	}
	if parent == nil {
		if name == "" {
			return "/", nil
		}
		return name, fmt.Errorf("detached node: %s", name)
	}
	pPath, err := parent.Path()
	if pPath == "/" {
		return "/" + name, err
	}
	return pPath + "/" + name, err
}

// AddChild adds a child node to the node's children map
// and sets the child's parent to this node.
// A previous child with the same name is replaced and detached
func (n *Node) AddChild(child *Node) {
	child.mu.Lock()
	child.parent = n
	name := child.name
	child.mu.Unlock()

	if prev, loaded := n.children.LoadAndStore(name, child); loaded && prev != child {
		prev.mu.Lock()
		prev.parent = nil
		prev.mu.Unlock()
	}
}

// GetChild returns a child node.
// Safe to call when Node is already locked
func (n *Node) GetChild(name string) (child *Node, ok bool) {
	return n.children.Load(name)
}

// RemoveChild detaches and returns the named child
func (n *Node) RemoveChild(name string) (*Node, bool) {
	child, exists := n.children.LoadAndDelete(name)
	if !exists {
		return nil, false
	}
	child.mu.Lock()
	defer child.mu.Unlock()
	child.parent = nil
	return child, true
}

// Children returns the child nodes sorted by name
func (n *Node) Children() []*Node {
	children := make([]*Node, 0, n.children.Size())
	n.children.Range(func(_ string, ch *Node) bool {
		children = append(children, ch)
		return true
	})
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })
	return children
}

// NumChildren returns the number of direct children
func (n *Node) NumChildren() int {
	return n.children.Size()
}

// Name returns the node's current name
func (n *Node) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

// rename changes the node's name. The node must be detached
func (n *Node) rename(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.name = name
}

func (n *Node) IsDel() bool {
	return n.isDel.Load()
}

// Del marks the node and its subtree as deleted
func (n *Node) Del() {
	n.isDel.Store(true)
	n.children.Range(func(_ string, ch *Node) bool {
		ch.Del()
		return true
	})
}
