// Package lease arbitrates write access across execution contexts sharing one
// durable store. The store has no mutual-exclusion primitive, so leadership is
// approximated with a renewable, staleness-timeout lease record: distributed
// soft leader election scaled down to a handful of cooperating contexts.
package lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webtermos/backend/internal/logging"
	"github.com/webtermos/backend/internal/store"
)

// RecordKey is the well-known session-collection key holding the lease.
const RecordKey = "lease"

// State is the lease state machine: Unacquired at construction, then Held or
// ReadOnly after Acquire, with ReadOnly -> Held only through ForceAcquire.
type State int

const (
	Unacquired State = iota
	Held
	ReadOnly
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Held:
		return "held"
	case ReadOnly:
		return "read-only"
	}
	return "unacquired"
}

// Record is the single persisted lease document.
type Record struct {
	HolderID  string `json:"holderId"`
	ContextID string `json:"contextId"`
	Timestamp int64  `json:"timestamp"`
}

// Manager owns this context's view of the lease.
type Manager struct {
	store     store.Store
	log       *logging.Logger
	contextID string
	holderID  string
	staleness time.Duration
	interval  time.Duration
	clock     func() time.Time

	mu       sync.Mutex
	state    State
	onState  func(State)
	stop     chan struct{}
	renewing bool

	wg sync.WaitGroup
}

// Options configures a Manager.
type Options struct {
	// ContextID is the stable identifier of this execution context. Empty
	// generates a fresh one, which makes every boot look like a new context.
	ContextID string
	Staleness time.Duration
	Interval  time.Duration
	Clock     func() time.Time
	Logger    *logging.Logger

	// OnState is invoked on every state change, after the change is visible.
	OnState func(State)
}

// NewManager creates a lease manager. The holder id is random per boot; the
// context id is stable across reboots of the same context.
func NewManager(s store.Store, opts Options) *Manager {
	if opts.ContextID == "" {
		opts.ContextID = uuid.NewString()
	}
	if opts.Staleness <= 0 {
		opts.Staleness = 30 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Manager{
		store:     s,
		log:       opts.Logger,
		contextID: opts.ContextID,
		holderID:  uuid.NewString(),
		staleness: opts.Staleness,
		interval:  opts.Interval,
		clock:     opts.Clock,
		onState:   opts.OnState,
		state:     Unacquired,
	}
}

// State returns the current lease state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HolderID returns this boot's random writer identity.
func (m *Manager) HolderID() string { return m.holderID }

// ContextID returns the stable execution-context identifier.
func (m *Manager) ContextID() string { return m.contextID }

// Acquire runs the boot-time transition out of Unacquired. The lease is taken
// when no record exists, when the recorded timestamp is older than the
// staleness threshold, or when the record belongs to this same context (a
// reboot). Otherwise the manager enters ReadOnly.
//
// The read-then-write sequence is not atomic against the store; two contexts
// booting at the same instant can both observe a stale lease and both write.
// The store offers no conditional write, so this race is a known, accepted
// bound rather than something this layer pretends to close.
func (m *Manager) Acquire(ctx context.Context) (State, error) {
	if m.store == nil {
		m.setState(Held)
		return Held, nil
	}

	current, err := m.read(ctx)
	switch {
	case err == nil:
		age := m.clock().Sub(time.UnixMilli(current.Timestamp))
		if current.ContextID != m.contextID && age < m.staleness {
			m.log.Info("lease held elsewhere, entering read-only",
				zap.String("holder", current.HolderID),
				zap.Duration("age", age))
			m.setState(ReadOnly)
			return ReadOnly, nil
		}
	case !errors.Is(err, store.ErrNotFound):
		return Unacquired, fmt.Errorf("failed to read lease: %w", err)
	}

	if err := m.write(ctx); err != nil {
		return Unacquired, fmt.Errorf("failed to take lease: %w", err)
	}
	m.setState(Held)
	m.startRenewal()
	m.log.Info("lease acquired", zap.String("holder", m.holderID))
	return Held, nil
}

// ForceAcquire unconditionally rewrites the lease with this context's
// identity: the explicit user-initiated takeover.
func (m *Manager) ForceAcquire(ctx context.Context) error {
	if m.store != nil {
		if err := m.write(ctx); err != nil {
			return fmt.Errorf("failed to force lease: %w", err)
		}
	}
	m.setState(Held)
	m.startRenewal()
	m.log.Info("lease taken over", zap.String("holder", m.holderID))
	return nil
}

// Poke renews the lease immediately if held. The host page calls it when the
// context regains foreground visibility.
func (m *Manager) Poke(ctx context.Context) {
	if m.State() != Held || m.store == nil {
		return
	}
	if err := m.write(ctx); err != nil {
		m.log.Warn("lease renewal failed", zap.Error(err))
	}
}

// Reset deletes the lease record. Nothing recreates it until the next boot or
// takeover.
func (m *Manager) Reset(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Delete(ctx, store.Session, RecordKey)
}

// Close stops the renewal task. The lease record is left behind for the
// staleness threshold to expire.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.renewing {
		close(m.stop)
		m.renewing = false
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Snapshot returns the persisted lease record, if any.
func (m *Manager) Snapshot(ctx context.Context) (Record, error) {
	if m.store == nil {
		return Record{HolderID: m.holderID, ContextID: m.contextID, Timestamp: m.clock().UnixMilli()}, nil
	}
	return m.read(ctx)
}

func (m *Manager) read(ctx context.Context) (Record, error) {
	var rec Record
	data, err := m.store.Get(ctx, store.Session, RecordKey)
	if err != nil {
		return rec, err
	}
	if err := store.Decode(data, &rec); err != nil {
		return rec, fmt.Errorf("corrupt lease record: %w", err)
	}
	return rec, nil
}

func (m *Manager) write(ctx context.Context) error {
	data, err := store.Encode(Record{
		HolderID:  m.holderID,
		ContextID: m.contextID,
		Timestamp: m.clock().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return m.store.Put(ctx, store.Session, RecordKey, data)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	cb := m.onState
	m.mu.Unlock()
	if changed && cb != nil {
		cb(s)
	}
}

func (m *Manager) startRenewal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renewing || m.store == nil {
		return
	}
	m.renewing = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if m.State() != Held {
					continue
				}
				if err := m.write(context.Background()); err != nil {
					m.log.Warn("lease renewal failed", zap.Error(err))
				}
			case <-stop:
				return
			}
		}
	}()
}
