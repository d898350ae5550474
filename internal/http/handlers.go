package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/webtermos/backend/internal/bridge"
	"github.com/webtermos/backend/internal/fs"
	"github.com/webtermos/backend/internal/lease"
	"github.com/webtermos/backend/internal/logging"
	"github.com/webtermos/backend/internal/store"
	"github.com/webtermos/backend/internal/workspace"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	fs        *fs.Filesystem
	bridge    *bridge.Bridge
	lease     *lease.Manager
	workspace *workspace.Manager
	store     store.Store
	log       *logging.Logger
	started   time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(
	fsys *fs.Filesystem,
	br *bridge.Bridge,
	lm *lease.Manager,
	ws *workspace.Manager,
	s store.Store,
	log *logging.Logger,
) *Handlers {
	return &Handlers{
		fs:        fsys,
		bridge:    br,
		lease:     lm,
		workspace: ws,
		store:     s,
		log:       log,
		started:   time.Now(),
	}
}

// nodeView is the wire shape of one node.
type nodeView struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Permissions string `json:"permissions"`
	Owner       string `json:"owner"`
	Group       string `json:"group"`
	Size        int    `json:"size"`
	Modified    int64  `json:"modified"`
	Target      string `json:"target,omitempty"`
}

func viewOf(n *fs.Node) nodeView {
	return nodeView{
		Name:        n.Name,
		Kind:        string(n.Kind),
		Permissions: n.Permissions,
		Owner:       n.Owner,
		Group:       n.Group,
		Size:        n.Size(),
		Modified:    n.Modified.Unix(),
		Target:      n.Target,
	}
}

// statusFor maps expected filesystem conditions to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fs.ErrExists), errors.Is(err, fs.ErrDirectoryNotEmpty):
		return http.StatusConflict
	case errors.Is(err, fs.ErrNotDirectory), errors.Is(err, fs.ErrIsDirectory):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// Root handles the basic liveness check.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "webterm-backend",
		"version": "1.0.0",
	})
}

// Health handles the detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"persistence":    gin.H{"enabled": h.bridge.Enabled(), "read_only": h.bridge.ReadOnly()},
		"lease":          gin.H{"state": h.lease.State().String()},
	})
}

// ReadFile returns file content.
func (h *Handlers) ReadFile(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path parameter required"})
		return
	}
	content, err := h.fs.ReadFile(path)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": fs.Resolve(path, "/"), "content": content, "size": len(content)})
}

type writeRequest struct {
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"`
}

// WriteFile creates or overwrites a file.
func (h *Handlers) WriteFile(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.fs.WriteFile(req.Path, req.Content); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"written": true, "path": fs.Resolve(req.Path, "/"), "size": len(req.Content)})
}

type pathRequest struct {
	Path      string `json:"path" binding:"required"`
	Recursive bool   `json:"recursive"`
}

// Mkdir creates a directory.
func (h *Handlers) Mkdir(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.fs.Mkdir(req.Path, req.Recursive); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": true, "path": fs.Resolve(req.Path, "/")})
}

// Remove detaches a subtree.
func (h *Handlers) Remove(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.fs.Remove(req.Path, req.Recursive); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true, "path": fs.Resolve(req.Path, "/")})
}

// Touch creates a file if absent, else refreshes its timestamp.
func (h *Handlers) Touch(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.fs.Touch(req.Path); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"touched": true, "path": fs.Resolve(req.Path, "/")})
}

type transferRequest struct {
	Src  string `json:"src" binding:"required"`
	Dest string `json:"dest" binding:"required"`
}

// Copy deep-clones a subtree.
func (h *Handlers) Copy(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.fs.Copy(req.Src, req.Dest); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"copied": true, "src": req.Src, "dest": req.Dest})
}

// Move relocates a subtree.
func (h *Handlers) Move(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.fs.Move(req.Src, req.Dest); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": true, "src": req.Src, "dest": req.Dest})
}

// List returns directory children in insertion order.
func (h *Handlers) List(c *gin.Context) {
	path := c.DefaultQuery("path", "/")
	nodes, err := h.fs.List(path)
	if err != nil {
		fail(c, err)
		return
	}
	views := make([]nodeView, len(nodes))
	for i, n := range nodes {
		views[i] = viewOf(n)
	}
	c.JSON(http.StatusOK, gin.H{"path": fs.Resolve(path, "/"), "entries": views})
}

// Stat returns metadata for one node.
func (h *Handlers) Stat(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path parameter required"})
		return
	}
	node, err := h.fs.Lookup(path)
	if err != nil {
		fail(c, err)
		return
	}
	view := viewOf(node)
	c.JSON(http.StatusOK, gin.H{"path": fs.Resolve(path, "/"), "node": view})
}

type resolveRequest struct {
	Path string `json:"path" binding:"required"`
	Cwd  string `json:"cwd"`
}

// Resolve normalizes a path against a working directory and, when it names a
// directory, validates it as a changeDirectory target.
func (h *Handlers) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	abs := fs.Resolve(req.Path, req.Cwd)
	c.JSON(http.StatusOK, gin.H{
		"path":      abs,
		"exists":    h.fs.Exists(abs),
		"directory": h.fs.IsDirectory(abs),
	})
}

// ExportWorkspace returns a snapshot as JSON. Repeated prefix parameters
// restrict the file records included.
func (h *Handlers) ExportWorkspace(c *gin.Context) {
	snap, err := h.workspace.Export(c.Request.Context(), c.QueryArray("prefix"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ExportArchive streams a gzip-compressed snapshot for download.
func (h *Handlers) ExportArchive(c *gin.Context) {
	snap, err := h.workspace.Export(c.Request.Context(), c.QueryArray("prefix"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	name := fmt.Sprintf("workspace-%s.json.gz", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Content-Type", "application/gzip")
	c.Status(http.StatusOK)
	if err := workspace.WriteArchive(c.Writer, snap); err != nil {
		h.log.Error("failed to stream snapshot archive", zap.Error(err))
	}
}

type importRequest struct {
	Snapshot  *workspace.Snapshot `json:"snapshot" binding:"required"`
	Overwrite bool                `json:"overwrite"`
}

// ImportWorkspace applies a snapshot and refreshes the tree from the store.
func (h *Handlers) ImportWorkspace(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyImport(c, req.Snapshot, workspace.ImportOptions{Overwrite: req.Overwrite})
}

// ImportArchive applies a gzip-compressed snapshot uploaded in the request
// body.
func (h *Handlers) ImportArchive(c *gin.Context) {
	snap, err := workspace.ReadArchive(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	overwrite := c.Query("overwrite") == "true"
	h.applyImport(c, snap, workspace.ImportOptions{Overwrite: overwrite})
}

func (h *Handlers) applyImport(c *gin.Context, snap *workspace.Snapshot, opts workspace.ImportOptions) {
	result, err := h.workspace.Import(c.Request.Context(), snap, opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Overlay the imported records so the live tree reflects the restore.
	if _, err := h.bridge.Restore(c.Request.Context(), h.fs); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("tree refresh: %v", err))
	}
	c.JSON(http.StatusOK, result)
}

// LeaseStatus reports this context's lease view and the persisted record.
func (h *Handlers) LeaseStatus(c *gin.Context) {
	rec, err := h.lease.Snapshot(c.Request.Context())
	resp := gin.H{
		"state":      h.lease.State().String(),
		"holder_id":  h.lease.HolderID(),
		"context_id": h.lease.ContextID(),
	}
	if err == nil {
		resp["record"] = rec
	}
	c.JSON(http.StatusOK, resp)
}

// LeaseTakeover unconditionally claims the lease for this context.
func (h *Handlers) LeaseTakeover(c *gin.Context) {
	if err := h.lease.ForceAcquire(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.lease.State().String()})
}

// LeasePoke renews the lease on regained foreground visibility.
func (h *Handlers) LeasePoke(c *gin.Context) {
	h.lease.Poke(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"state": h.lease.State().String()})
}

// LeaseReset deletes the lease record.
func (h *Handlers) LeaseReset(c *gin.Context) {
	if err := h.lease.Reset(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// StorageStats surfaces the usage/quota estimate. Advisory only: nothing
// enforces the quota.
func (h *Handlers) StorageStats(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	warn := stats.QuotaBytes > 0 && stats.UsedBytes*10 >= stats.QuotaBytes*9
	c.JSON(http.StatusOK, gin.H{
		"enabled":     true,
		"used_bytes":  stats.UsedBytes,
		"quota_bytes": stats.QuotaBytes,
		"warn":        warn,
	})
}
