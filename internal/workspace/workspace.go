// Package workspace serializes and restores whole-namespace snapshots: the
// backup/restore interchange format for persisted files, key/values, packages,
// and configuration.
package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webtermos/backend/internal/logging"
	"github.com/webtermos/backend/internal/monitoring"
	"github.com/webtermos/backend/internal/store"
)

// internalConfigKeys are excluded from export: they describe this store
// instance, not user state.
var internalConfigKeys = map[string]bool{
	"schema_version": true,
	"fs_in_kv":       true,
}

// Snapshot is the self-contained export artifact. It is immutable once
// produced; import never mutates it. Importers must reject snapshots whose
// SchemaVersion exceeds their own target rather than mis-load them.
type Snapshot struct {
	SchemaVersion int                   `json:"schemaVersion"`
	ExportedAt    time.Time             `json:"exportedAt"`
	Files         []store.FileRecord    `json:"files"`
	KeyValues     []store.KVRecord      `json:"keyValues"`
	Packages      []store.PackageRecord `json:"packages"`
	Config        map[string]string     `json:"config"`
}

// ImportOptions governs collision handling, per category.
type ImportOptions struct {
	Overwrite bool `json:"overwrite"`
}

// ImportResult is the aggregate partial-success report.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Manager runs exports and imports against one store.
type Manager struct {
	store   store.Store
	log     *logging.Logger
	metrics *monitoring.Metrics
	target  int
}

// NewManager creates a workspace manager for the given schema target version.
func NewManager(s store.Store, target int, log *logging.Logger, metrics *monitoring.Metrics) *Manager {
	if log == nil {
		log = logging.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewNop()
	}
	return &Manager{store: s, log: log, metrics: metrics, target: target}
}

// Export produces a snapshot holding every persisted file record whose path
// matches one of prefixes, plus all key/value and package records and all
// non-internal configuration. Empty prefixes export every file record.
func (m *Manager) Export(ctx context.Context, prefixes []string) (*Snapshot, error) {
	if m.store == nil {
		return nil, fmt.Errorf("no durable store attached")
	}
	snap := &Snapshot{
		SchemaVersion: m.target,
		ExportedAt:    time.Now().UTC(),
		Config:        make(map[string]string),
	}

	fileKeys, err := m.store.Keys(ctx, store.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate files: %w", err)
	}
	for _, key := range fileKeys {
		if !matchesPrefix(key, prefixes) {
			continue
		}
		rec, err := store.GetFile(ctx, m.store, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		snap.Files = append(snap.Files, rec)
	}

	kvKeys, err := m.store.Keys(ctx, store.KeyValues)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate key/values: %w", err)
	}
	for _, key := range kvKeys {
		var rec store.KVRecord
		if err := m.get(ctx, store.KeyValues, key, &rec); err != nil {
			return nil, err
		}
		snap.KeyValues = append(snap.KeyValues, rec)
	}

	pkgKeys, err := m.store.Keys(ctx, store.Packages)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate packages: %w", err)
	}
	for _, key := range pkgKeys {
		var rec store.PackageRecord
		if err := m.get(ctx, store.Packages, key, &rec); err != nil {
			return nil, err
		}
		snap.Packages = append(snap.Packages, rec)
	}

	cfgKeys, err := m.store.Keys(ctx, store.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate config: %w", err)
	}
	for _, key := range cfgKeys {
		if internalConfigKeys[key] {
			continue
		}
		data, err := m.store.Get(ctx, store.Config, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", key, err)
		}
		snap.Config[key] = string(data)
	}

	m.metrics.SnapshotExports.Inc()
	m.log.Info("exported workspace snapshot",
		zap.Int("files", len(snap.Files)),
		zap.Int("key_values", len(snap.KeyValues)),
		zap.Int("packages", len(snap.Packages)))
	return snap, nil
}

// Import applies the four category imports independently. Without overwrite,
// existing entities are counted as skipped and left untouched; with it they
// are unconditionally replaced. Per-entity failures are collected, never
// fatal, so the caller gets a complete partial-success report.
func (m *Manager) Import(ctx context.Context, snap *Snapshot, opts ImportOptions) (*ImportResult, error) {
	if m.store == nil {
		return nil, fmt.Errorf("no durable store attached")
	}
	if snap.SchemaVersion > m.target {
		return nil, fmt.Errorf("snapshot schema version %d is newer than supported version %d", snap.SchemaVersion, m.target)
	}

	result := &ImportResult{}

	for _, rec := range snap.Files {
		m.importOne(ctx, result, store.Files, rec.Path, rec, opts)
	}
	for _, rec := range snap.KeyValues {
		m.importOne(ctx, result, store.KeyValues, rec.Key, rec, opts)
	}
	for _, rec := range snap.Packages {
		m.importOne(ctx, result, store.Packages, rec.Name, rec, opts)
	}
	for key, value := range snap.Config {
		if internalConfigKeys[key] {
			result.Skipped++
			continue
		}
		if !opts.Overwrite {
			if _, err := m.store.Get(ctx, store.Config, key); err == nil {
				result.Skipped++
				continue
			}
		}
		if err := m.store.Put(ctx, store.Config, key, []byte(value)); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("config %s: %v", key, err))
			continue
		}
		result.Imported++
	}

	m.metrics.SnapshotImports.Inc()
	m.log.Info("imported workspace snapshot",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (m *Manager) importOne(ctx context.Context, result *ImportResult, col store.Collection, key string, rec interface{}, opts ImportOptions) {
	if !opts.Overwrite {
		if _, err := m.store.Get(ctx, col, key); err == nil {
			result.Skipped++
			return
		}
	}
	data, err := store.Encode(rec)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", col, key, err))
		return
	}
	if err := m.store.Put(ctx, col, key, data); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", col, key, err))
		return
	}
	result.Imported++
}

func (m *Manager) get(ctx context.Context, col store.Collection, key string, v interface{}) error {
	data, err := m.store.Get(ctx, col, key)
	if err != nil {
		return fmt.Errorf("failed to read %s %s: %w", col, key, err)
	}
	if err := store.Decode(data, v); err != nil {
		return fmt.Errorf("corrupt %s record %s: %w", col, key, err)
	}
	return nil
}

func matchesPrefix(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}
