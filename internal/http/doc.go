// Package http provides the REST surface over the virtual filesystem.
//
// This package implements all HTTP endpoints using the Gin framework: node
// tree reads and mutations, workspace export/import, lease inspection and
// takeover, and the storage-pressure signal.
//
// Endpoints:
//   - Health: / and /health
//   - Filesystem: /fs/read, /fs/write, /fs/mkdir, /fs/remove, /fs/copy,
//     /fs/move, /fs/touch, /fs/list, /fs/stat, /fs/resolve
//   - Workspace: /workspace/export, /workspace/import (JSON and gzip archive)
//   - Lease: /lease, /lease/takeover, /lease/poke, /lease/reset
//   - Storage: /storage/stats
//
// Expected filesystem failures map to 404 (missing), 409 (collision or
// non-empty directory), and 400 (wrong node kind); they are ordinary command
// failures, not server errors.
package http
