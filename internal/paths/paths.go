// Package paths provides the standardized virtual namespace layout shared by the
// filesystem, the durable-store bridge, and the HTTP surface.
//
// Mount points come in two flavors: persisted subtrees are mirrored to the durable
// store and survive restarts, ephemeral subtrees are reseeded from the default
// layout on every boot.
package paths

import "strings"

// Mount points
const (
	Home = "/home"
	Tmp  = "/tmp"
	Etc  = "/etc"
	Usr  = "/usr"
	Var  = "/var"
	Bin  = "/bin"
)

// User subdirectories
const (
	UserHome      = "/home/user"
	UserDocuments = "/home/user/documents"
	UserDownloads = "/home/user/downloads"
)

// persistedMounts lists the subtrees mirrored to the durable store. Everything
// else is regenerated from the default layout at boot and is never stale.
var persistedMounts = []string{Home, Tmp}

// Persisted reports whether a normalized absolute path falls under a persisted
// mount point.
func Persisted(path string) bool {
	for _, mount := range persistedMounts {
		if path == mount || strings.HasPrefix(path, mount+"/") {
			return true
		}
	}
	return false
}

// PersistedMounts returns the persisted mount roots.
func PersistedMounts() []string {
	out := make([]string, len(persistedMounts))
	copy(out, persistedMounts)
	return out
}
