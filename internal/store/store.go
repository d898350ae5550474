// Package store defines the durable-store collaborator: an asynchronous,
// transactional key/object store over a small fixed set of named collections.
// The core assumes read-your-writes consistency within one context and nothing
// stronger across contexts; cross-context coordination lives in the lease
// package.
package store

import (
	"context"
	"errors"

	"github.com/bytedance/sonic"
)

// Collection names the fixed record namespaces.
type Collection string

const (
	Files     Collection = "files"
	KeyValues Collection = "kv"
	Packages  Collection = "packages"
	Config    Collection = "config"
	Session   Collection = "session"
)

// Collections lists every collection, for full-store operations.
var Collections = []Collection{Files, KeyValues, Packages, Config, Session}

// ErrNotFound is returned when a key has no record in the collection.
var ErrNotFound = errors.New("store: record not found")

// Stats is the storage-pressure signal: a read-only usage estimate surfaced
// to the user, never enforced as a hard quota.
type Stats struct {
	UsedBytes    int64 `json:"used_bytes"`
	QuotaBytes   int64 `json:"quota_bytes"`
	RecordCounts map[Collection]int
}

// Store is the durable store contract. Implementations must be safe for
// concurrent use; per-key write order follows call order within one context.
type Store interface {
	Get(ctx context.Context, col Collection, key string) ([]byte, error)
	Put(ctx context.Context, col Collection, key string, value []byte) error
	Delete(ctx context.Context, col Collection, key string) error
	Keys(ctx context.Context, col Collection) ([]string, error)
	Count(ctx context.Context, col Collection) (int, error)
	Stats(ctx context.Context) (Stats, error)
}

// FileRecord is the persisted representation of one filesystem node, keyed by
// its full normalized path.
type FileRecord struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	Kind        string `json:"kind"`
	Permissions string `json:"permissions"`
	Owner       string `json:"owner"`
	Modified    int64  `json:"modified"`
	Size        int    `json:"size"`
}

// KVRecord is one auxiliary key/value entry.
type KVRecord struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Updated int64  `json:"updated"`
}

// PackageRecord describes one installed package.
type PackageRecord struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Installed int64  `json:"installed"`
}

// Encode serializes a record value with the shared JSON codec.
func Encode(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

// Decode deserializes a record value.
func Decode(data []byte, v interface{}) error {
	return sonic.Unmarshal(data, v)
}

// GetFile reads and decodes one file record.
func GetFile(ctx context.Context, s Store, path string) (FileRecord, error) {
	var rec FileRecord
	data, err := s.Get(ctx, Files, path)
	if err != nil {
		return rec, err
	}
	if err := Decode(data, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// PutFile encodes and writes one file record keyed by its path.
func PutFile(ctx context.Context, s Store, rec FileRecord) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	return s.Put(ctx, Files, rec.Path, data)
}
