// Package migrate upgrades persisted records across schema versions before
// the tree is rehydrated at boot.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/webtermos/backend/internal/logging"
	"github.com/webtermos/backend/internal/store"
)

// VersionKey is the config-collection key holding the persisted schema version.
const VersionKey = "schema_version"

// Context is the narrow store view handed to migrations.
type Context interface {
	GetConfig(ctx context.Context, key string) ([]byte, error)
	SetConfig(ctx context.Context, key string, value []byte) error
	ListFiles(ctx context.Context) ([]string, error)
	LoadFile(ctx context.Context, path string) (store.FileRecord, error)
	SaveFile(ctx context.Context, rec store.FileRecord) error
	DeleteFile(ctx context.Context, path string) error
}

// Migration transforms persisted data up to one target version. Migrations
// must tolerate being re-run from their starting version: a failed boot
// leaves the version at the last completed step and retries from there.
type Migration func(ctx context.Context, m Context) error

// Runner applies registered migrations in version order.
type Runner struct {
	store      store.Store
	log        *logging.Logger
	target     int
	migrations map[int]Migration
}

// NewRunner creates a runner targeting the given version with a sparse
// version->migration mapping.
func NewRunner(s store.Store, target int, migrations map[int]Migration, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.NewNop()
	}
	return &Runner{store: s, log: log, target: target, migrations: migrations}
}

// Version reads the persisted schema version, defaulting to 0 for a fresh
// store.
func (r *Runner) Version(ctx context.Context) (int, error) {
	data, err := r.store.Get(ctx, store.Config, VersionKey)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("corrupt schema version %q: %w", data, err)
	}
	return v, nil
}

// Run applies every registered migration strictly between the persisted
// version and the target, in increasing order. A failing migration aborts
// with the version left at the last completed step; success advances the
// version to the target in one final write.
func (r *Runner) Run(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	current, err := r.Version(ctx)
	if err != nil {
		return err
	}
	if current > r.target {
		return fmt.Errorf("store schema version %d is newer than this build's %d", current, r.target)
	}
	if current == r.target {
		return nil
	}

	mctx := &runnerContext{store: r.store}
	for v := current + 1; v <= r.target; v++ {
		fn, ok := r.migrations[v]
		if !ok {
			continue
		}
		r.log.Info("applying schema migration", zap.Int("version", v))
		if err := fn(ctx, mctx); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", v, err)
		}
		// Checkpoint so a later failure resumes here instead of re-running.
		if err := r.writeVersion(ctx, v); err != nil {
			return err
		}
	}
	return r.writeVersion(ctx, r.target)
}

func (r *Runner) writeVersion(ctx context.Context, v int) error {
	if err := r.store.Put(ctx, store.Config, VersionKey, []byte(strconv.Itoa(v))); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}
	return nil
}

// runnerContext adapts the store to the migration Context interface.
type runnerContext struct {
	store store.Store
}

func (c *runnerContext) GetConfig(ctx context.Context, key string) ([]byte, error) {
	return c.store.Get(ctx, store.Config, key)
}

func (c *runnerContext) SetConfig(ctx context.Context, key string, value []byte) error {
	return c.store.Put(ctx, store.Config, key, value)
}

func (c *runnerContext) ListFiles(ctx context.Context) ([]string, error) {
	return c.store.Keys(ctx, store.Files)
}

func (c *runnerContext) LoadFile(ctx context.Context, path string) (store.FileRecord, error) {
	return store.GetFile(ctx, c.store, path)
}

func (c *runnerContext) SaveFile(ctx context.Context, rec store.FileRecord) error {
	return store.PutFile(ctx, c.store, rec)
}

func (c *runnerContext) DeleteFile(ctx context.Context, path string) error {
	return c.store.Delete(ctx, store.Files, path)
}
