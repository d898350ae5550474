package fs

import "strings"

// Resolve normalizes path against the caller-supplied working directory,
// producing a canonical /-rooted path with no redundant separators and no
// "." or ".." segments. Resolving above the root clamps to "/".
//
// Resolve is idempotent: Resolve(Resolve(p, cwd), cwd) == Resolve(p, cwd).
// It panics on an empty path, which is a caller contract violation.
func Resolve(path, cwd string) string {
	if path == "" {
		panic("fs: resolve called with empty path")
	}
	if !strings.HasPrefix(path, "/") {
		if cwd == "" {
			cwd = "/"
		}
		path = cwd + "/" + path
	}

	var stack []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	if len(stack) == 0 {
		return "/"
	}
	return "/" + strings.Join(stack, "/")
}

// Split breaks a normalized absolute path into its segments. The root path
// yields no segments.
func Split(path string) []string {
	if path == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}

// Base returns the final segment of a normalized absolute path, or "/" for
// the root.
func Base(path string) string {
	segs := Split(path)
	if len(segs) == 0 {
		return "/"
	}
	return segs[len(segs)-1]
}

// Dir returns the parent of a normalized absolute path. The root is its own
// parent.
func Dir(path string) string {
	segs := Split(path)
	if len(segs) <= 1 {
		return "/"
	}
	return "/" + strings.Join(segs[:len(segs)-1], "/")
}

// Join concatenates a normalized absolute base with one segment.
func Join(base, name string) string {
	if base == "/" {
		return "/" + name
	}
	return base + "/" + name
}
