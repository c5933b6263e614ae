package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/fixpath/internal/runtime"
	"github.com/aretw0/fixpath/internal/testutils"
	"github.com/aretw0/fixpath/pkg/adapters/memory"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
	"github.com/aretw0/fixpath/pkg/session"
	"github.com/aretw0/fixpath/pkg/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Snapshot
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Snapshot)
	}
	s.data[sessionID] = snap.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap, ok := s.data[sessionID]; ok {
		return snap.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func newManager(t *testing.T, store ports.WizardStore, opts ...session.Option) *session.Manager {
	t.Helper()
	return session.NewManager(store, runtime.NewEngine(testutils.SampleTree(t)), opts...)
}

func TestManager_Locking(t *testing.T) {
	manager := newManager(t, &SlowStore{})
	ctx := context.Background()
	id := "race-test"

	_, err := manager.Start(ctx, id)
	require.NoError(t, err)

	// Each operation toggles between root and heating. Lost updates would
	// leave the history out of step with the position.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Do(ctx, id, func(ctx context.Context, w *wizard.Wizard) error {
				if w.Current().ID == "root" {
					_, err := w.Select(ctx, testutils.Heating)
					return err
				}
				_, err := w.GoBack(ctx)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, snap.Path)
	assert.Empty(t, snap.History)
}

func TestManager_Start(t *testing.T) {
	// Verify atomic creation
	manager := newManager(t, &SlowStore{})
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := manager.Start(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, w)
		}()
	}
	wg.Wait()

	snap, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, snap.SessionID)
	assert.Equal(t, "portal", snap.TreeID)
	assert.Empty(t, snap.Path)
}

func TestManager_StartGeneratesID(t *testing.T) {
	manager := newManager(t, memory.NewStore())

	w, err := manager.Start(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, w.SessionID())

	ids, err := manager.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{w.SessionID()}, ids)
}

func TestManager_StartResumesExisting(t *testing.T) {
	manager := newManager(t, memory.NewStore())
	ctx := context.Background()

	_, err := manager.Start(ctx, "s-1")
	require.NoError(t, err)
	_, err = manager.Do(ctx, "s-1", func(ctx context.Context, w *wizard.Wizard) error {
		_, err := w.Select(ctx, testutils.Bathroom)
		return err
	})
	require.NoError(t, err)

	w, err := manager.Start(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, testutils.Bathroom, w.Current().ID)
}

func TestManager_DoUnknownSession(t *testing.T) {
	manager := newManager(t, memory.NewStore())

	_, err := manager.Do(context.Background(), "ghost", func(context.Context, *wizard.Wizard) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_DraftResultIsWrittenBack(t *testing.T) {
	tickets := memory.NewTicketStore()
	var mu sync.Mutex
	var diffs []*domain.SnapshotDiff
	manager := newManager(t, memory.NewStore(),
		session.WithWizardOptions(wizard.WithTicketDrafter(tickets)),
		session.WithObserver(func(_ context.Context, d *domain.SnapshotDiff) {
			mu.Lock()
			defer mu.Unlock()
			diffs = append(diffs, d)
		}),
	)
	ctx := context.Background()

	_, err := manager.Start(ctx, "s-1")
	require.NoError(t, err)
	_, err = manager.Do(ctx, "s-1", func(ctx context.Context, w *wizard.Wizard) error {
		if _, err := w.Select(ctx, testutils.Bathroom); err != nil {
			return err
		}
		_, err := w.Select(ctx, testutils.TapLeak)
		return err
	})
	require.NoError(t, err)
	manager.Wait()

	snap, err := manager.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.NotEmpty(t, snap.TicketID)
	require.Len(t, snap.Notices, 1)
	assert.Equal(t, domain.NoticeDraftReady, snap.Notices[0].Kind)
	assert.Equal(t, 1, tickets.Len())

	mu.Lock()
	defer mu.Unlock()
	last := diffs[len(diffs)-1]
	require.NotNil(t, last.TicketID)
	assert.Equal(t, snap.TicketID, *last.TicketID)
}

func TestManager_HaltIsPersisted(t *testing.T) {
	manager := session.NewManager(memory.NewStore(), runtime.NewEngine(testutils.BrokenVideoTree(t)))
	ctx := context.Background()

	_, err := manager.Start(ctx, "s-1")
	require.NoError(t, err)
	_, err = manager.Do(ctx, "s-1", func(ctx context.Context, w *wizard.Wizard) error {
		if _, err := w.Select(ctx, "broken"); err != nil {
			return err
		}
		_, err := w.HandleVideoOutcome(ctx, domain.OutcomeNo)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrTreeIntegrity)

	_, err = manager.Do(ctx, "s-1", func(ctx context.Context, w *wizard.Wizard) error {
		_, err := w.GoBack(ctx)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrWizardHalted)
}

type countingLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	lastTTL time.Duration
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locks++
	l.lastTTL = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &countingLocker{}
	manager := newManager(t, memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	_, err := manager.Start(ctx, "s-1")
	require.NoError(t, err)
	_, err = manager.Load(ctx, "s-1")
	require.NoError(t, err)

	assert.Equal(t, 2, locker.locks)
	assert.Equal(t, 2, locker.unlocks)
	assert.Equal(t, 5*time.Second, locker.lastTTL)
}
