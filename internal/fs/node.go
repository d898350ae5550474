package fs

import "time"

// Kind discriminates node behavior. Operations switch exhaustively on it; the
// behavioral differences between kinds are data-shape differences, so a tagged
// value beats virtual dispatch here.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
	KindSymlink   Kind = "symlink"
)

// DirectorySize is the fixed nominal size reported for directories.
const DirectorySize = 4096

// Default permission strings. Display-only: nothing enforces them.
const (
	FileMode      = "-rw-r--r--"
	DirectoryMode = "drwxr-xr-x"
	SymlinkMode   = "lrwxrwxrwx"
)

// Node is one entry in the namespace tree. A directory exclusively owns its
// children; there are no parent pointers, so detaching a subtree is the whole
// of deletion.
type Node struct {
	Name        string
	Kind        Kind
	Permissions string
	Owner       string
	Group       string
	Modified    time.Time

	// Content is set only for files.
	Content string

	// Target is set only for symlinks and is never followed during traversal.
	Target string

	children map[string]*Node
	order    []string
}

// NewFile creates a file node.
func NewFile(name, content string, now time.Time) *Node {
	return &Node{
		Name:        name,
		Kind:        KindFile,
		Permissions: FileMode,
		Owner:       "user",
		Group:       "user",
		Modified:    now,
		Content:     content,
	}
}

// NewDirectory creates an empty directory node.
func NewDirectory(name string, now time.Time) *Node {
	return &Node{
		Name:        name,
		Kind:        KindDirectory,
		Permissions: DirectoryMode,
		Owner:       "user",
		Group:       "user",
		Modified:    now,
		children:    make(map[string]*Node),
	}
}

// NewSymlink creates a symlink node pointing at target.
func NewSymlink(name, target string, now time.Time) *Node {
	return &Node{
		Name:        name,
		Kind:        KindSymlink,
		Permissions: SymlinkMode,
		Owner:       "user",
		Group:       "user",
		Modified:    now,
		Target:      target,
	}
}

// Size reports content length for files, the fixed nominal size for
// directories, and the target length for symlinks.
func (n *Node) Size() int {
	switch n.Kind {
	case KindFile:
		return len(n.Content)
	case KindDirectory:
		return DirectorySize
	case KindSymlink:
		return len(n.Target)
	}
	return 0
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.Kind == KindDirectory }

// Child returns the named child of a directory node.
func (n *Node) Child(name string) (*Node, bool) {
	if n.children == nil {
		return nil, false
	}
	c, ok := n.children[name]
	return c, ok
}

// Children returns the directory's children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.children[name])
	}
	return out
}

// Len returns the number of children.
func (n *Node) Len() int { return len(n.children) }

// attach inserts or replaces a child, preserving insertion order for new names.
func (n *Node) attach(child *Node) {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if _, exists := n.children[child.Name]; !exists {
		n.order = append(n.order, child.Name)
	}
	n.children[child.Name] = child
}

// detach removes and returns the named child.
func (n *Node) detach(name string) (*Node, bool) {
	c, ok := n.children[name]
	if !ok {
		return nil, false
	}
	delete(n.children, name)
	for i, existing := range n.order {
		if existing == name {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	return c, true
}

// clone deep-copies a subtree, stamping every node with a fresh modified time.
// Content and metadata carry over; child identity does not.
func (n *Node) clone(name string, now time.Time) *Node {
	out := &Node{
		Name:        name,
		Kind:        n.Kind,
		Permissions: n.Permissions,
		Owner:       n.Owner,
		Group:       n.Group,
		Modified:    now,
		Content:     n.Content,
		Target:      n.Target,
	}
	if n.Kind == KindDirectory {
		out.children = make(map[string]*Node, len(n.children))
		for _, childName := range n.order {
			out.attach(n.children[childName].clone(childName, now))
		}
	}
	return out
}
