// Package bridge keeps a best-effort asynchronous mirror of persisted mount
// points in the durable store and reconstructs them into the tree at boot.
//
// Mutations are handed to a single background worker through a FIFO queue, so
// per-key durable order follows in-memory issuance order as long as the store
// applies calls in call order. The triggering filesystem operation never waits
// on the store: there is a window in which a mutation is visible in-process
// but not yet durable.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/webtermos/backend/internal/fs"
	"github.com/webtermos/backend/internal/logging"
	"github.com/webtermos/backend/internal/monitoring"
	"github.com/webtermos/backend/internal/paths"
	"github.com/webtermos/backend/internal/store"
)

const queueCapacity = 1024

type opKind int

const (
	opUpsert opKind = iota
	opDelete
	opSync
)

type event struct {
	op     opKind
	record store.FileRecord
	path   string
	ack    chan struct{}
}

// Bridge mirrors persisted-mount mutations into the durable store. A nil
// store yields a disabled bridge: the namespace stays memory-only and every
// call is a no-op, so boot never fails on storage trouble.
type Bridge struct {
	store   store.Store
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu       sync.Mutex
	queue    chan event
	closed   bool
	readOnly bool

	wg sync.WaitGroup
}

// New creates a bridge over the given store and starts its worker. Pass a nil
// store to run memory-only.
func New(s store.Store, log *logging.Logger, metrics *monitoring.Metrics) *Bridge {
	if log == nil {
		log = logging.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewNop()
	}
	b := &Bridge{store: s, log: log, metrics: metrics}
	if s == nil {
		log.Warn("durable store unavailable, namespace is memory-only")
		return b
	}
	b.queue = make(chan event, queueCapacity)
	b.wg.Add(1)
	go b.worker()
	return b
}

// Enabled reports whether a durable store is attached.
func (b *Bridge) Enabled() bool { return b.store != nil }

// SetReadOnly toggles write-through suppression. While read-only, in-memory
// mutations keep flowing but nothing reaches the store; the lease manager
// flips this when another context holds the lease.
func (b *Bridge) SetReadOnly(ro bool) {
	b.mu.Lock()
	b.readOnly = ro
	b.mu.Unlock()
}

// ReadOnly reports whether write-through is currently suppressed.
func (b *Bridge) ReadOnly() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readOnly
}

// Restore reads every persisted file record and overlays it onto the tree,
// creating missing directory ancestors per record so the result is the same
// regardless of enumeration order. Returns the number of records applied.
func (b *Bridge) Restore(ctx context.Context, fsys *fs.Filesystem) (int, error) {
	if b.store == nil {
		return 0, nil
	}
	keys, err := b.store.Keys(ctx, store.Files)
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate persisted records: %w", err)
	}
	restored := 0
	for _, key := range keys {
		rec, err := store.GetFile(ctx, b.store, key)
		if err != nil {
			b.log.Warn("skipping unreadable record", zap.String("path", key), zap.Error(err))
			continue
		}
		if err := fsys.Overlay(entryFromRecord(rec)); err != nil {
			b.log.Warn("skipping unrestorable record", zap.String("path", key), zap.Error(err))
			continue
		}
		restored++
	}
	b.metrics.RestoredRecords.Add(float64(restored))
	b.log.Info("restored persisted namespace", zap.Int("records", restored))
	return restored, nil
}

// Upserted implements fs.Notifier. Entries outside persisted mount points are
// dropped; the rest are queued for the worker. Enqueueing blocks when the
// queue is full, which is the backpressure bound for write bursts.
func (b *Bridge) Upserted(entries []fs.Entry) {
	for _, e := range entries {
		if !paths.Persisted(e.Path) {
			continue
		}
		b.enqueue(event{op: opUpsert, record: recordFromEntry(e)})
	}
}

// Removed implements fs.Notifier.
func (b *Bridge) Removed(removed []string) {
	for _, p := range removed {
		if !paths.Persisted(p) {
			continue
		}
		b.enqueue(event{op: opDelete, path: p})
	}
}

// Flush blocks until every event queued before the call has been applied.
// Tests use it as the "no write-through in flight" barrier.
func (b *Bridge) Flush() {
	b.mu.Lock()
	if b.store == nil || b.closed {
		b.mu.Unlock()
		return
	}
	ack := make(chan struct{})
	b.queue <- event{op: opSync, ack: ack}
	b.mu.Unlock()
	<-ack
}

// Close drains the queue and stops the worker.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.store == nil || b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bridge) enqueue(ev event) {
	b.mu.Lock()
	if b.store == nil || b.closed || b.readOnly {
		b.mu.Unlock()
		return
	}
	b.queue <- ev
	b.mu.Unlock()
	b.metrics.QueueDepth.Set(float64(len(b.queue)))
}

// worker drains the queue in FIFO order. Failures are logged and counted but
// never propagate: the in-memory tree is already ahead of the store and a
// later write to the same key supersedes the lost one.
func (b *Bridge) worker() {
	defer b.wg.Done()
	ctx := context.Background()
	for ev := range b.queue {
		switch ev.op {
		case opUpsert:
			b.metrics.WriteThroughTotal.WithLabelValues("put").Inc()
			if err := store.PutFile(ctx, b.store, ev.record); err != nil {
				b.metrics.WriteThroughErrors.WithLabelValues("put").Inc()
				b.log.Error("write-through failed", zap.String("path", ev.record.Path), zap.Error(err))
			}
		case opDelete:
			b.metrics.WriteThroughTotal.WithLabelValues("delete").Inc()
			if err := b.store.Delete(ctx, store.Files, ev.path); err != nil {
				b.metrics.WriteThroughErrors.WithLabelValues("delete").Inc()
				b.log.Error("delete-through failed", zap.String("path", ev.path), zap.Error(err))
			}
		case opSync:
			close(ev.ack)
		}
		b.metrics.QueueDepth.Set(float64(len(b.queue)))
	}
}

func recordFromEntry(e fs.Entry) store.FileRecord {
	return store.FileRecord{
		Path:        e.Path,
		Content:     e.Content,
		Kind:        string(e.Kind),
		Permissions: e.Permissions,
		Owner:       e.Owner,
		Modified:    e.Modified.Unix(),
		Size:        e.Size,
	}
}

func entryFromRecord(rec store.FileRecord) fs.Entry {
	return fs.Entry{
		Path:        rec.Path,
		Kind:        fs.Kind(rec.Kind),
		Content:     rec.Content,
		Permissions: rec.Permissions,
		Owner:       rec.Owner,
		Modified:    time.Unix(rec.Modified, 0),
		Size:        rec.Size,
	}
}
