package fs

import (
	"errors"
	"sync"
	"time"
)

// Expected filesystem conditions. Shell commands report these as ordinary
// command failures, so they are sentinel errors rather than panics.
var (
	ErrNotFound          = errors.New("no such file or directory")
	ErrNotDirectory      = errors.New("not a directory")
	ErrIsDirectory       = errors.New("is a directory")
	ErrExists            = errors.New("file exists")
	ErrDirectoryNotEmpty = errors.New("directory not empty")
)

// Entry is a flattened snapshot of one node, captured while the tree lock is
// held so the bridge can mirror it asynchronously without racing later
// mutations.
type Entry struct {
	Path        string
	Kind        Kind
	Content     string
	Permissions string
	Owner       string
	Modified    time.Time
	Size        int
}

// Notifier observes committed tree mutations. Calls happen after the
// in-memory change is complete, under the tree lock, so implementations must
// hand off quickly (the bridge enqueues and returns).
type Notifier interface {
	Upserted(entries []Entry)
	Removed(paths []string)
}

// Filesystem owns the node tree for one process. All operations are
// synchronous against the tree and safe for concurrent use.
type Filesystem struct {
	mu       sync.RWMutex
	root     *Node
	notifier Notifier
	clock    func() time.Time
}

// New creates a filesystem seeded with the default layout.
func New() *Filesystem {
	f := &Filesystem{clock: time.Now}
	f.root = defaultLayout(f.clock())
	return f
}

// SetNotifier registers the mutation observer. Pass nil to detach.
func (f *Filesystem) SetNotifier(n Notifier) {
	f.mu.Lock()
	f.notifier = n
	f.mu.Unlock()
}

// SetClock overrides the timestamp source, for tests.
func (f *Filesystem) SetClock(clock func() time.Time) {
	f.mu.Lock()
	f.clock = clock
	f.mu.Unlock()
}

// Lookup walks the tree to the node at a normalized absolute path. Symlinks
// are returned as-is, never followed.
func (f *Filesystem) Lookup(path string) (*Node, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lookup(path)
}

func (f *Filesystem) lookup(path string) (*Node, error) {
	node := f.root
	for _, seg := range Split(Resolve(path, "/")) {
		if !node.IsDir() {
			return nil, ErrNotDirectory
		}
		child, ok := node.Child(seg)
		if !ok {
			return nil, ErrNotFound
		}
		node = child
	}
	return node, nil
}

// lookupParent locates the directory that contains (or would contain) the
// leaf of path. Every mutating operation resolves its insertion point here.
func (f *Filesystem) lookupParent(path string) (*Node, string, error) {
	abs := Resolve(path, "/")
	if abs == "/" {
		return nil, "", ErrExists
	}
	parent, err := f.lookup(Dir(abs))
	if err != nil {
		return nil, "", err
	}
	if !parent.IsDir() {
		return nil, "", ErrNotDirectory
	}
	return parent, Base(abs), nil
}

// Exists reports whether a node exists at path.
func (f *Filesystem) Exists(path string) bool {
	_, err := f.Lookup(path)
	return err == nil
}

// IsDirectory reports whether path names an existing directory.
func (f *Filesystem) IsDirectory(path string) bool {
	node, err := f.Lookup(path)
	return err == nil && node.Kind == KindDirectory
}

// IsFile reports whether path names an existing file.
func (f *Filesystem) IsFile(path string) bool {
	node, err := f.Lookup(path)
	return err == nil && node.Kind == KindFile
}

// ReadFile returns the content of the file at path.
func (f *Filesystem) ReadFile(path string) (string, error) {
	node, err := f.Lookup(path)
	if err != nil {
		return "", err
	}
	if node.Kind == KindDirectory {
		return "", ErrIsDirectory
	}
	return node.Content, nil
}

// WriteFile creates or overwrites the file at path. It fails with
// ErrIsDirectory if a directory already occupies the path, and with the
// parent lookup's error if the parent chain is missing or not a directory.
func (f *Filesystem) WriteFile(path, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	abs := Resolve(path, "/")
	parent, leaf, err := f.lookupParent(abs)
	if err != nil {
		return err
	}
	now := f.clock()
	if existing, ok := parent.Child(leaf); ok {
		if existing.Kind == KindDirectory {
			return ErrIsDirectory
		}
		existing.Kind = KindFile
		existing.Content = content
		existing.Target = ""
		existing.Modified = now
		f.notifyUpsert(abs, existing)
		return nil
	}
	node := NewFile(leaf, content, now)
	parent.attach(node)
	parent.Modified = now
	f.notifyUpsert(abs, node)
	return nil
}

// Mkdir creates the directory at path. Non-recursive mode fails if the parent
// is missing or the leaf exists; recursive mode creates every missing
// intermediate and succeeds idempotently when the full chain already exists
// as directories.
func (f *Filesystem) Mkdir(path string, recursive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	abs := Resolve(path, "/")
	if abs == "/" {
		if recursive {
			return nil
		}
		return ErrExists
	}
	now := f.clock()

	if recursive {
		node := f.root
		walked := ""
		for _, seg := range Split(abs) {
			if !node.IsDir() {
				return ErrNotDirectory
			}
			walked = Join(walked, seg)
			child, ok := node.Child(seg)
			if !ok {
				child = NewDirectory(seg, now)
				node.attach(child)
				node.Modified = now
				f.notifyUpsert(walked, child)
			}
			node = child
		}
		if !node.IsDir() {
			return ErrNotDirectory
		}
		return nil
	}

	parent, leaf, err := f.lookupParent(abs)
	if err != nil {
		return err
	}
	if _, ok := parent.Child(leaf); ok {
		return ErrExists
	}
	node := NewDirectory(leaf, now)
	parent.attach(node)
	parent.Modified = now
	f.notifyUpsert(abs, node)
	return nil
}

// Touch creates an empty file at path if absent, else refreshes its modified
// timestamp.
func (f *Filesystem) Touch(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	abs := Resolve(path, "/")
	now := f.clock()
	if node, err := f.lookup(abs); err == nil {
		node.Modified = now
		f.notifyUpsert(abs, node)
		return nil
	}
	parent, leaf, err := f.lookupParent(abs)
	if err != nil {
		return err
	}
	node := NewFile(leaf, "", now)
	parent.attach(node)
	parent.Modified = now
	f.notifyUpsert(abs, node)
	return nil
}

// Remove detaches the node at path. A non-empty directory requires recursive;
// on success a delete is issued for every persisted path in the subtree.
func (f *Filesystem) Remove(path string, recursive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	abs := Resolve(path, "/")
	if abs == "/" {
		return ErrExists
	}
	parent, leaf, err := f.lookupParent(abs)
	if err != nil {
		return err
	}
	node, ok := parent.Child(leaf)
	if !ok {
		return ErrNotFound
	}
	if node.Kind == KindDirectory && node.Len() > 0 && !recursive {
		return ErrDirectoryNotEmpty
	}
	removed := collectPaths(abs, node, nil)
	parent.detach(leaf)
	parent.Modified = f.clock()
	f.notifyRemove(removed)
	return nil
}

// Copy deep-clones the subtree at src and inserts it at dest. New nodes get
// fresh modified timestamps; content carries over.
func (f *Filesystem) Copy(src, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyLocked(src, dest)
}

func (f *Filesystem) copyLocked(src, dest string) error {
	srcAbs := Resolve(src, "/")
	destAbs := Resolve(dest, "/")

	source, err := f.lookup(srcAbs)
	if err != nil {
		return err
	}
	parent, leaf, err := f.lookupParent(destAbs)
	if err != nil {
		return err
	}
	// cp semantics: copying onto an existing directory places the source
	// inside it under its own name.
	if existing, ok := parent.Child(leaf); ok && existing.Kind == KindDirectory && source.Kind != KindDirectory {
		parent = existing
		leaf = source.Name
		destAbs = Join(destAbs, leaf)
	}
	if existing, ok := parent.Child(leaf); ok {
		if existing.Kind == KindDirectory {
			return ErrIsDirectory
		}
	}
	now := f.clock()
	cloned := source.clone(leaf, now)
	parent.attach(cloned)
	parent.Modified = now
	f.notifySubtree(destAbs, cloned)
	return nil
}

// Move relocates the subtree at src to dest: copy then remove source, so it
// inherits both operations' failure modes.
func (f *Filesystem) Move(src, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.copyLocked(src, dest); err != nil {
		return err
	}
	srcAbs := Resolve(src, "/")
	parent, leaf, err := f.lookupParent(srcAbs)
	if err != nil {
		return err
	}
	node, ok := parent.Child(leaf)
	if !ok {
		return ErrNotFound
	}
	removed := collectPaths(srcAbs, node, nil)
	parent.detach(leaf)
	parent.Modified = f.clock()
	f.notifyRemove(removed)
	return nil
}

// ValidateDirectory reports whether path names an existing directory, for use
// by changeDirectory: the caller owns its working-directory string and no
// node is mutated.
func (f *Filesystem) ValidateDirectory(path, cwd string) (string, error) {
	abs := Resolve(path, cwd)
	node, err := f.Lookup(abs)
	if err != nil {
		return "", err
	}
	if node.Kind != KindDirectory {
		return "", ErrNotDirectory
	}
	return abs, nil
}

// List returns the children of the directory at path in insertion order.
func (f *Filesystem) List(path string) ([]*Node, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	node, err := f.lookup(path)
	if err != nil {
		return nil, err
	}
	if node.Kind != KindDirectory {
		return nil, ErrNotDirectory
	}
	return node.Children(), nil
}

// Overlay inserts a restored entry without notifying the bridge, creating
// missing directory ancestors on the way down. Restore calls it once per
// persisted record in whatever order the store returns them; creating
// ancestors here is what makes that order-independent and idempotent.
func (f *Filesystem) Overlay(e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	abs := Resolve(e.Path, "/")
	if abs == "/" {
		return nil
	}
	node := f.root
	segs := Split(abs)
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node.Child(seg)
		if !ok {
			child = NewDirectory(seg, e.Modified)
			node.attach(child)
		}
		if !child.IsDir() {
			return ErrNotDirectory
		}
		node = child
	}
	leaf := segs[len(segs)-1]
	var restored *Node
	switch e.Kind {
	case KindDirectory:
		if existing, ok := node.Child(leaf); ok && existing.IsDir() {
			existing.Permissions = e.Permissions
			existing.Owner = e.Owner
			existing.Modified = e.Modified
			return nil
		}
		restored = NewDirectory(leaf, e.Modified)
	case KindSymlink:
		restored = NewSymlink(leaf, e.Content, e.Modified)
	default:
		restored = NewFile(leaf, e.Content, e.Modified)
	}
	if e.Permissions != "" {
		restored.Permissions = e.Permissions
	}
	if e.Owner != "" {
		restored.Owner = e.Owner
		restored.Group = e.Owner
	}
	node.attach(restored)
	return nil
}

// Walk visits every node under path in depth-first insertion order.
func (f *Filesystem) Walk(path string, visit func(abs string, node *Node)) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	abs := Resolve(path, "/")
	node, err := f.lookup(abs)
	if err != nil {
		return err
	}
	walk(abs, node, visit)
	return nil
}

func walk(abs string, node *Node, visit func(string, *Node)) {
	visit(abs, node)
	if node.IsDir() {
		for _, child := range node.Children() {
			walk(Join(abs, child.Name), child, visit)
		}
	}
}

// snapshot captures an Entry for the node at abs while the lock is held.
func snapshot(abs string, node *Node) Entry {
	content := node.Content
	if node.Kind == KindSymlink {
		content = node.Target
	}
	return Entry{
		Path:        abs,
		Kind:        node.Kind,
		Content:     content,
		Permissions: node.Permissions,
		Owner:       node.Owner,
		Modified:    node.Modified,
		Size:        node.Size(),
	}
}

func (f *Filesystem) notifyUpsert(abs string, node *Node) {
	if f.notifier != nil {
		f.notifier.Upserted([]Entry{snapshot(abs, node)})
	}
}

func (f *Filesystem) notifySubtree(abs string, node *Node) {
	if f.notifier == nil {
		return
	}
	var entries []Entry
	walk(abs, node, func(p string, n *Node) {
		entries = append(entries, snapshot(p, n))
	})
	f.notifier.Upserted(entries)
}

func (f *Filesystem) notifyRemove(paths []string) {
	if f.notifier != nil && len(paths) > 0 {
		f.notifier.Removed(paths)
	}
}

// collectPaths gathers every absolute path in a subtree, leaf-last.
func collectPaths(abs string, node *Node, acc []string) []string {
	acc = append(acc, abs)
	if node.IsDir() {
		for _, child := range node.Children() {
			acc = collectPaths(Join(abs, child.Name), child, acc)
		}
	}
	return acc
}
