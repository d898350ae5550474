package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Disk is a durable Store keeping one document per record under a collection
// directory. Keys are escaped into filenames, so arbitrary virtual paths are
// valid keys. Writes go through a temp file and rename.
type Disk struct {
	root  string
	quota int64
}

// NewDisk opens (creating if needed) a disk store rooted at dir.
func NewDisk(dir string, quota int64) (*Disk, error) {
	for _, col := range Collections {
		if err := os.MkdirAll(filepath.Join(dir, string(col)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	if quota <= 0 {
		quota = 256 << 20
	}
	return &Disk{root: dir, quota: quota}, nil
}

func (d *Disk) recordPath(col Collection, key string) string {
	return filepath.Join(d.root, string(col), url.PathEscape(key)+".json")
}

// Get implements Store.
func (d *Disk) Get(_ context.Context, col Collection, key string) ([]byte, error) {
	data, err := os.ReadFile(d.recordPath(col, key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return data, nil
}

// Put implements Store.
func (d *Disk) Put(_ context.Context, col Collection, key string, value []byte) error {
	target := d.recordPath(col, key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to commit record: %w", err)
	}
	return nil
}

// Delete implements Store. Deleting a missing key is a no-op.
func (d *Disk) Delete(_ context.Context, col Collection, key string) error {
	err := os.Remove(d.recordPath(col, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Keys implements Store.
func (d *Disk) Keys(_ context.Context, col Collection) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.root, string(col)))
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Count implements Store.
func (d *Disk) Count(ctx context.Context, col Collection) (int, error) {
	keys, err := d.Keys(ctx, col)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Stats implements Store.
func (d *Disk) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{QuotaBytes: d.quota, RecordCounts: make(map[Collection]int)}
	for _, col := range Collections {
		entries, err := os.ReadDir(filepath.Join(d.root, string(col)))
		if err != nil {
			return stats, fmt.Errorf("failed to scan collection: %w", err)
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || entry.IsDir() {
				continue
			}
			stats.RecordCounts[col]++
			stats.UsedBytes += info.Size()
		}
	}
	return stats, nil
}
