package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
	"github.com/aretw0/fixpath/pkg/wizard"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a crashed replica can hold a session.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Observer receives the change of a session after every save.
type Observer func(ctx context.Context, diff *domain.SnapshotDiff)

// Manager orchestrates session access, ensuring safe concurrent operations.
// It restores a wizard from the store for each operation and saves it back,
// so any replica sharing the store can serve any session.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store  ports.WizardStore
	engine ports.TreeEngine

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger

	wizardOpts []wizard.Option
	observers  []Observer
	drafts     sync.WaitGroup
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL for the distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithWizardOptions are applied to every wizard the manager creates or restores.
// wizard.WithSynchronousDrafts must not be passed: draft results are written
// back under the same session lock.
func WithWizardOptions(opts ...wizard.Option) Option {
	return func(m *Manager) {
		m.wizardOpts = append(m.wizardOpts, opts...)
	}
}

// WithObserver registers a callback for session changes.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, o)
	}
}

// NewManager creates a new Session Manager over a store and a tree engine.
func NewManager(store ports.WizardStore, engine ports.TreeEngine, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		engine:  engine,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}

	// Draft results arrive after the operation that triggered them has been
	// saved; they are written back under the session lock.
	m.wizardOpts = append(m.wizardOpts,
		wizard.WithLogger(m.logger),
		wizard.WithHooks(domain.LifecycleHooks{
			OnDraftRequested: func(context.Context, *domain.DraftEvent) { m.drafts.Add(1) },
			OnDraftResult:    m.replayDraft,
		}),
	)
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Engine returns the tree engine sessions are restored against.
func (m *Manager) Engine() ports.TreeEngine {
	return m.engine
}

// Store returns the underlying wizard store.
func (m *Manager) Store() ports.WizardStore {
	return m.store
}

// Start creates a session positioned on the root, or returns the existing
// one. An empty sessionID gets a generated id.
func (m *Manager) Start(ctx context.Context, sessionID string, opts ...wizard.Option) (*wizard.Wizard, error) {
	if sessionID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate session id: %w", err)
		}
		sessionID = id.String()
	}

	var w *wizard.Wizard
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		snap, err := m.store.Load(ctx, sessionID)
		if err == nil {
			w, err = wizard.Restore(m.engine, snap, m.options(opts)...)
			return err
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		w = wizard.New(m.engine, sessionID, m.options(opts)...)
		// Persist immediately to reserve the ID
		return m.save(ctx, nil, w.Snapshot())
	})
	return w, err
}

// Do restores the session, applies fn and saves the result, all under the
// session lock. The wizard must not be retained after fn returns.
// The state is saved even when fn fails, so halted sessions and accepted
// transitions before the failure are not lost.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(ctx context.Context, w *wizard.Wizard) error) (*domain.Snapshot, error) {
	var out *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		before, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		w, err := wizard.Restore(m.engine, before, m.options(nil)...)
		if err != nil {
			return err
		}

		fnErr := fn(ctx, w)
		out = w.Snapshot()
		if err := m.save(ctx, before, out); err != nil {
			return errors.Join(fnErr, err)
		}
		return fnErr
	})
	return out, err
}

// Load retrieves the stored snapshot of a session.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, sessionID)
		return err
	})
	return snap, err
}

// Restore loads a session into a wizard for read-only use.
func (m *Manager) Restore(ctx context.Context, sessionID string) (*wizard.Wizard, error) {
	snap, err := m.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return wizard.Restore(m.engine, snap, m.options(nil)...)
}

// Save persists a snapshot.
func (m *Manager) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, snap)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Wait blocks until every dispatched draft has been written back.
func (m *Manager) Wait() {
	m.drafts.Wait()
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// replayDraft writes a draft result into the stored session.
func (m *Manager) replayDraft(ctx context.Context, evt *domain.DraftEvent) {
	defer m.drafts.Done()

	_, err := m.Do(ctx, evt.SessionID, func(_ context.Context, w *wizard.Wizard) error {
		w.RecordDraft(evt)
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		m.logger.Debug("draft result for deleted session dropped", "session_id", evt.SessionID)
	case err != nil:
		m.logger.Error("failed to record draft result", "session_id", evt.SessionID, "err", err)
	}
}

func (m *Manager) save(ctx context.Context, before, after *domain.Snapshot) error {
	if err := m.store.Save(ctx, after.SessionID, after); err != nil {
		return fmt.Errorf("save session %s: %w", after.SessionID, err)
	}
	if len(m.observers) == 0 {
		return nil
	}
	diff := domain.Diff(before, after)
	if diff == nil {
		return nil
	}
	for _, o := range m.observers {
		o(ctx, diff)
	}
	return nil
}

func (m *Manager) options(extra []wizard.Option) []wizard.Option {
	out := make([]wizard.Option, 0, len(m.wizardOpts)+len(extra))
	out = append(out, m.wizardOpts...)
	return append(out, extra...)
}
