package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apimw "github.com/webtermos/backend/internal/api/middleware"
	"github.com/webtermos/backend/internal/bridge"
	"github.com/webtermos/backend/internal/config"
	"github.com/webtermos/backend/internal/fs"
	"github.com/webtermos/backend/internal/http"
	"github.com/webtermos/backend/internal/lease"
	"github.com/webtermos/backend/internal/logging"
	"github.com/webtermos/backend/internal/migrate"
	"github.com/webtermos/backend/internal/monitoring"
	"github.com/webtermos/backend/internal/store"
	"github.com/webtermos/backend/internal/workspace"
)

// Server wraps the HTTP server and the persistence stack behind it.
type Server struct {
	router *gin.Engine
	cfg    *config.Config
	log    *logging.Logger

	fs     *fs.Filesystem
	bridge *bridge.Bridge
	lease  *lease.Manager
}

// New builds the full stack: store, migrations, tree, bridge, lease, router.
// A failing store degrades to a memory-only namespace; a failing migration is
// fatal so a retried boot can resume from the last consistent version.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.NewDefault()
	}

	var backing store.Store
	if !cfg.Storage.Disabled {
		disk, err := store.NewDisk(cfg.Storage.DataDir, cfg.Storage.QuotaBytes)
		if err != nil {
			log.Warn("durable store unavailable, running memory-only", zap.Error(err))
		} else {
			backing = disk
		}
	}

	if backing != nil {
		runner := migrate.NewRunner(backing, migrate.TargetVersion, migrate.Registered, log)
		if err := runner.Run(context.Background()); err != nil {
			return nil, fmt.Errorf("schema migration failed: %w", err)
		}
	}

	metrics := monitoring.New(prometheus.DefaultRegisterer)

	fsys := fs.New()
	br := bridge.New(backing, log, metrics)
	if _, err := br.Restore(context.Background(), fsys); err != nil {
		return nil, fmt.Errorf("restore failed: %w", err)
	}
	fsys.SetNotifier(br)

	lm := lease.NewManager(backing, lease.Options{
		ContextID: contextID(cfg.Storage.DataDir),
		Staleness: cfg.Lease.Staleness,
		Interval:  cfg.Lease.Renewal,
		Logger:    log,
		OnState: func(s lease.State) {
			br.SetReadOnly(s == lease.ReadOnly)
			metrics.LeaseState.Set(float64(s))
		},
	})
	state, err := lm.Acquire(context.Background())
	if err != nil {
		log.Warn("lease acquisition failed, conceding writes", zap.Error(err))
		br.SetReadOnly(true)
	} else if state == lease.ReadOnly {
		br.SetReadOnly(true)
	}

	ws := workspace.NewManager(backing, migrate.TargetVersion, log, metrics)
	handlers := http.NewHandlers(fsys, br, lm, ws, backing, log)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(apimw.RequestLogger(log))
	router.Use(apimw.CORS(apimw.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(apimw.RateLimit(apimw.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Filesystem
	router.GET("/fs/read", handlers.ReadFile)
	router.GET("/fs/list", handlers.List)
	router.GET("/fs/stat", handlers.Stat)
	router.POST("/fs/write", handlers.WriteFile)
	router.POST("/fs/mkdir", handlers.Mkdir)
	router.POST("/fs/remove", handlers.Remove)
	router.POST("/fs/copy", handlers.Copy)
	router.POST("/fs/move", handlers.Move)
	router.POST("/fs/touch", handlers.Touch)
	router.POST("/fs/resolve", handlers.Resolve)

	// Workspace snapshots
	router.GET("/workspace/export", handlers.ExportWorkspace)
	router.GET("/workspace/export/archive", handlers.ExportArchive)
	router.POST("/workspace/import", handlers.ImportWorkspace)
	router.POST("/workspace/import/archive", handlers.ImportArchive)

	// Session lease
	router.GET("/lease", handlers.LeaseStatus)
	router.POST("/lease/takeover", handlers.LeaseTakeover)
	router.POST("/lease/poke", handlers.LeasePoke)
	router.POST("/lease/reset", handlers.LeaseReset)

	// Storage-pressure signal
	router.GET("/storage/stats", handlers.StorageStats)

	return &Server{
		router: router,
		cfg:    cfg,
		log:    log,
		fs:     fsys,
		bridge: br,
		lease:  lm,
	}, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.log.Info("starting server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close stops the lease renewal and drains the write-through queue.
func (s *Server) Close() error {
	s.lease.Close()
	s.bridge.Close()
	return nil
}

// contextID loads or creates the stable per-execution-context identifier,
// kept next to the data so a reboot of the same installation reclaims its
// own lease.
func contextID(dataDir string) string {
	path := filepath.Join(dataDir, "context_id")
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}
	id := uuid.NewString()
	_ = os.MkdirAll(dataDir, 0o755)
	_ = os.WriteFile(path, []byte(id+"\n"), 0o644)
	return id
}
