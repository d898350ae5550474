// Package fs implements the in-memory virtual filesystem: a hierarchical node
// tree with POSIX-flavored paths, path resolution, and the full set of mutating
// operations consumed by the shell and HTTP layers.
//
// The tree is authoritative within one process. Durability is layered on top by
// the bridge package, which observes mutations through the Notifier interface
// and mirrors persisted mount points into the durable store.
//
// Expected failure conditions (missing path, wrong node kind, non-empty
// directory) are returned as sentinel errors checked with errors.Is; panics are
// reserved for programming-contract violations such as resolving an empty path.
package fs
