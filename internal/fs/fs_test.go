package fs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLayout(t *testing.T) {
	fsys := New()

	assert.True(t, fsys.IsDirectory("/home/user"))
	assert.True(t, fsys.IsDirectory("/tmp"))
	assert.True(t, fsys.IsDirectory("/etc"))
	assert.True(t, fsys.IsFile("/etc/motd"))
	assert.True(t, fsys.IsFile("/home/user/readme.txt"))

	node, err := fsys.Lookup("/etc/hostname")
	require.NoError(t, err)
	assert.Equal(t, "root", node.Owner)
	assert.Equal(t, FileMode, node.Permissions)
}

func TestWriteAndReadFile(t *testing.T) {
	fsys := New()

	require.NoError(t, fsys.WriteFile("/home/user/a.txt", "hello"))
	content, err := fsys.ReadFile("/home/user/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	// Overwrite
	require.NoError(t, fsys.WriteFile("/home/user/a.txt", "goodbye"))
	content, err = fsys.ReadFile("/home/user/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "goodbye", content)
}

func TestWriteFileFailures(t *testing.T) {
	fsys := New()

	// Directory at target
	err := fsys.WriteFile("/home/user", "x")
	assert.ErrorIs(t, err, ErrIsDirectory)

	// Missing parent
	err = fsys.WriteFile("/home/nobody/a.txt", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	// File as intermediate
	require.NoError(t, fsys.WriteFile("/home/user/f", "x"))
	err = fsys.WriteFile("/home/user/f/child", "x")
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestMkdir(t *testing.T) {
	fsys := New()

	require.NoError(t, fsys.Mkdir("/home/user/projects", false))
	assert.True(t, fsys.IsDirectory("/home/user/projects"))

	// Existing leaf
	assert.ErrorIs(t, fsys.Mkdir("/home/user/projects", false), ErrExists)

	// Missing parent, non-recursive
	assert.ErrorIs(t, fsys.Mkdir("/home/user/a/b/c", false), ErrNotFound)

	// Recursive creates the chain
	require.NoError(t, fsys.Mkdir("/home/user/a/b/c", true))
	assert.True(t, fsys.IsDirectory("/home/user/a/b/c"))

	// Recursive is idempotent over an existing chain
	require.NoError(t, fsys.Mkdir("/home/user/a/b/c", true))

	// Recursive fails across a file intermediate
	require.NoError(t, fsys.WriteFile("/home/user/blocker", ""))
	assert.ErrorIs(t, fsys.Mkdir("/home/user/blocker/sub", true), ErrNotDirectory)
}

func TestRemove(t *testing.T) {
	fsys := New()
	require.NoError(t, fsys.Mkdir("/home/user/dir", false))
	require.NoError(t, fsys.WriteFile("/home/user/dir/a.txt", "a"))
	require.NoError(t, fsys.Mkdir("/home/user/dir/sub", false))
	require.NoError(t, fsys.WriteFile("/home/user/dir/sub/b.txt", "b"))

	// Non-recursive on non-empty fails and leaves the tree unchanged
	assert.ErrorIs(t, fsys.Remove("/home/user/dir", false), ErrDirectoryNotEmpty)
	assert.True(t, fsys.IsFile("/home/user/dir/sub/b.txt"))

	// Recursive empties regardless of depth
	require.NoError(t, fsys.Remove("/home/user/dir", true))
	assert.False(t, fsys.Exists("/home/user/dir"))

	// Missing target
	assert.ErrorIs(t, fsys.Remove("/home/user/dir", false), ErrNotFound)
}

func TestRemoveEmptyDirectoryNonRecursive(t *testing.T) {
	fsys := New()
	require.NoError(t, fsys.Mkdir("/home/user/empty", false))
	require.NoError(t, fsys.Remove("/home/user/empty", false))
	assert.False(t, fsys.Exists("/home/user/empty"))
}

func TestCopy(t *testing.T) {
	fsys := New()
	require.NoError(t, fsys.Mkdir("/home/user/src", false))
	require.NoError(t, fsys.WriteFile("/home/user/src/a.txt", "a"))
	require.NoError(t, fsys.Mkdir("/home/user/src/nested", false))
	require.NoError(t, fsys.WriteFile("/home/user/src/nested/b.txt", "b"))

	require.NoError(t, fsys.Copy("/home/user/src", "/home/user/dst"))

	// Deep clone: content carries, structure matches
	content, err := fsys.ReadFile("/home/user/dst/nested/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", content)

	// Source untouched and independent of the clone
	require.NoError(t, fsys.WriteFile("/home/user/dst/a.txt", "changed"))
	content, err = fsys.ReadFile("/home/user/src/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a", content)

	// Missing source
	assert.ErrorIs(t, fsys.Copy("/home/user/ghost", "/home/user/x"), ErrNotFound)
}

func TestCopyTimestamps(t *testing.T) {
	fsys := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fsys.SetClock(func() time.Time { return base })
	require.NoError(t, fsys.WriteFile("/home/user/orig.txt", "x"))

	later := base.Add(time.Hour)
	fsys.SetClock(func() time.Time { return later })
	require.NoError(t, fsys.Copy("/home/user/orig.txt", "/home/user/copy.txt"))

	orig, err := fsys.Lookup("/home/user/orig.txt")
	require.NoError(t, err)
	clone, err := fsys.Lookup("/home/user/copy.txt")
	require.NoError(t, err)
	assert.Equal(t, base, orig.Modified)
	assert.Equal(t, later, clone.Modified)
}

func TestMove(t *testing.T) {
	fsys := New()
	require.NoError(t, fsys.Mkdir("/home/user/dir", false))
	require.NoError(t, fsys.WriteFile("/home/user/dir/a.txt", "a"))

	require.NoError(t, fsys.Move("/home/user/dir", "/home/user/renamed"))
	assert.False(t, fsys.Exists("/home/user/dir"))
	content, err := fsys.ReadFile("/home/user/renamed/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a", content)

	assert.ErrorIs(t, fsys.Move("/home/user/ghost", "/home/user/x"), ErrNotFound)
}

func TestTouch(t *testing.T) {
	fsys := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fsys.SetClock(func() time.Time { return base })

	require.NoError(t, fsys.Touch("/home/user/new.txt"))
	node, err := fsys.Lookup("/home/user/new.txt")
	require.NoError(t, err)
	assert.Equal(t, KindFile, node.Kind)
	assert.Equal(t, "", node.Content)

	later := base.Add(time.Minute)
	fsys.SetClock(func() time.Time { return later })
	require.NoError(t, fsys.Touch("/home/user/new.txt"))
	node, err = fsys.Lookup("/home/user/new.txt")
	require.NoError(t, err)
	assert.Equal(t, later, node.Modified)
}

func TestValidateDirectory(t *testing.T) {
	fsys := New()

	abs, err := fsys.ValidateDirectory("..", "/home/user")
	require.NoError(t, err)
	assert.Equal(t, "/home", abs)

	_, err = fsys.ValidateDirectory("/etc/motd", "/")
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = fsys.ValidateDirectory("/nowhere", "/")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListInsertionOrder(t *testing.T) {
	fsys := New()
	require.NoError(t, fsys.Mkdir("/home/user/d", false))
	for _, name := range []string{"zebra", "apple", "mango"} {
		require.NoError(t, fsys.WriteFile("/home/user/d/"+name, ""))
	}

	nodes, err := fsys.List("/home/user/d")
	require.NoError(t, err)
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	assert.Equal(t, []string{"zebra", "apple", "mango"}, names)

	_, err = fsys.List("/etc/motd")
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestSymlinkNotFollowed(t *testing.T) {
	fsys := New()
	now := time.Now()
	require.NoError(t, fsys.Overlay(Entry{
		Path:     "/home/user/link",
		Kind:     KindSymlink,
		Content:  "/etc/motd",
		Modified: now,
	}))

	node, err := fsys.Lookup("/home/user/link")
	require.NoError(t, err)
	assert.Equal(t, KindSymlink, node.Kind)
	assert.Equal(t, "/etc/motd", node.Target)

	// Traversal through a symlink fails rather than dereferencing it.
	_, err = fsys.Lookup("/home/user/link/anything")
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestOverlay(t *testing.T) {
	fsys := New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Leaf arrives before its ancestors exist; they are created on the way.
	require.NoError(t, fsys.Overlay(Entry{
		Path:        "/home/user/deep/nested/file.txt",
		Kind:        KindFile,
		Content:     "restored",
		Permissions: FileMode,
		Owner:       "user",
		Modified:    now,
	}))
	content, err := fsys.ReadFile("/home/user/deep/nested/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "restored", content)

	// Re-applying is idempotent.
	require.NoError(t, fsys.Overlay(Entry{
		Path:     "/home/user/deep/nested/file.txt",
		Kind:     KindFile,
		Content:  "restored",
		Modified: now,
	}))

	// A directory record over an existing directory refreshes metadata only.
	require.NoError(t, fsys.Overlay(Entry{
		Path:        "/home/user/deep",
		Kind:        KindDirectory,
		Permissions: "drwx------",
		Modified:    now,
	}))
	node, err := fsys.Lookup("/home/user/deep")
	require.NoError(t, err)
	assert.Equal(t, "drwx------", node.Permissions)
	assert.True(t, fsys.IsFile("/home/user/deep/nested/file.txt"))
}

func TestNodeSize(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 5, NewFile("f", "hello", now).Size())
	assert.Equal(t, DirectorySize, NewDirectory("d", now).Size())
	assert.Equal(t, 9, NewSymlink("l", "/etc/motd", now).Size())
}

type captureNotifier struct {
	upserts []Entry
	removes []string
}

func (c *captureNotifier) Upserted(entries []Entry) { c.upserts = append(c.upserts, entries...) }
func (c *captureNotifier) Removed(paths []string)   { c.removes = append(c.removes, paths...) }

func TestNotifierObservesMutations(t *testing.T) {
	fsys := New()
	capture := &captureNotifier{}
	fsys.SetNotifier(capture)

	require.NoError(t, fsys.WriteFile("/home/user/a.txt", "hello"))
	require.Len(t, capture.upserts, 1)
	assert.Equal(t, "/home/user/a.txt", capture.upserts[0].Path)
	assert.Equal(t, "hello", capture.upserts[0].Content)

	require.NoError(t, fsys.Mkdir("/home/user/x/y", true))
	var created []string
	for _, e := range capture.upserts[1:] {
		created = append(created, e.Path)
	}
	assert.Equal(t, []string{"/home/user/x", "/home/user/x/y"}, created)

	require.NoError(t, fsys.Remove("/home/user/x", true))
	assert.Equal(t, []string{"/home/user/x", "/home/user/x/y"}, capture.removes)
}

func TestNotifierObservesCopySubtree(t *testing.T) {
	fsys := New()
	require.NoError(t, fsys.Mkdir("/home/user/src", false))
	require.NoError(t, fsys.WriteFile("/home/user/src/a.txt", "a"))

	capture := &captureNotifier{}
	fsys.SetNotifier(capture)

	require.NoError(t, fsys.Copy("/home/user/src", "/home/user/dst"))
	var paths []string
	for _, e := range capture.upserts {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"/home/user/dst", "/home/user/dst/a.txt"}, paths)
}
