package wizard_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/fixpath/internal/testutils"
	"github.com/aretw0/fixpath/pkg/adapters/memory"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
	"github.com/aretw0/fixpath/pkg/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDrafter records every request before delegating.
type countingDrafter struct {
	mu       sync.Mutex
	requests []domain.DraftRequest
	next     ports.TicketDrafter
	err      error
}

func (c *countingDrafter) CreateDraft(ctx context.Context, req domain.DraftRequest) (domain.DraftTicket, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.err != nil {
		return domain.DraftTicket{}, c.err
	}
	return c.next.CreateDraft(ctx, req)
}

func (c *countingDrafter) calls() []domain.DraftRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.DraftRequest(nil), c.requests...)
}

func TestWizard_RepeatedStartTicketVisitsPersistOneDraft(t *testing.T) {
	store := memory.NewTicketStore()
	drafter := &countingDrafter{next: store}
	w := newWizard(t, wizard.WithTicketDrafter(drafter))
	ctx := context.Background()

	mustSelect(t, w, testutils.Bathroom, testutils.TapLeak)
	_, err := w.GoBack(ctx)
	require.NoError(t, err)
	mustSelect(t, w, testutils.TapLeak)
	w.Wait()

	calls := drafter.calls()
	require.Len(t, calls, 2, "the wizard does not suppress repeat visits")
	assert.Equal(t, calls[0], calls[1])
	assert.Equal(t, 1, store.Len(), "the collaborator deduplicates")

	assert.Equal(t, domain.TreeRef{
		ID:         "portal",
		Version:    "1",
		NodeID:     testutils.TapLeak,
		LeafType:   domain.LeafStartTicket,
		LeafReason: domain.LeafReasonStandardWizard,
	}, calls[0].Tree)
	assert.Equal(t, "session-1", calls[0].SessionID)

	assert.NotEmpty(t, w.TicketID())
	notices := w.Notices()
	require.Len(t, notices, 1, "only the first creation is announced")
	assert.Equal(t, domain.NoticeDraftReady, notices[0].Kind)
}

func TestWizard_VideoLeafDraftsEveryVisit(t *testing.T) {
	store := memory.NewTicketStore()
	drafter := &countingDrafter{next: store}
	w := newWizard(t, wizard.WithTicketDrafter(drafter), wizard.WithSynchronousDrafts(), wizard.WithProfile("p-1"))
	ctx := context.Background()

	mustSelect(t, w, testutils.Bathroom, testutils.Clogged)
	for range 2 {
		ok, err := w.HandleVideoOutcome(ctx, domain.OutcomeNo)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = w.GoBack(ctx)
		require.NoError(t, err)
	}

	calls := drafter.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "bathroom.clogged.no", calls[0].Tree.NodeID)
	assert.Equal(t, "p-1", calls[0].ProfileID)
	assert.Equal(t, 1, store.Len())
}

func TestWizard_NoTicketLeafDoesNotDraft(t *testing.T) {
	drafter := &countingDrafter{next: memory.NewTicketStore()}
	w := newWizard(t, wizard.WithTicketDrafter(drafter), wizard.WithSynchronousDrafts())

	mustSelect(t, w, testutils.Bathroom, testutils.SeatBroken)
	assert.Empty(t, drafter.calls())
}

// gatedDrafter blocks until released.
type gatedDrafter struct {
	release chan struct{}
	entered chan struct{}
}

func (g *gatedDrafter) CreateDraft(ctx context.Context, req domain.DraftRequest) (domain.DraftTicket, error) {
	close(g.entered)
	<-g.release
	return domain.DraftTicket{TicketID: "ticket-42", Created: true}, nil
}

func TestWizard_DraftDoesNotBlockNavigation(t *testing.T) {
	g := &gatedDrafter{release: make(chan struct{}), entered: make(chan struct{})}
	w := newWizard(t, wizard.WithTicketDrafter(g))
	ctx, cancel := context.WithCancel(context.Background())

	mustSelect(t, w, testutils.Heating, testutils.Boiler)
	<-g.entered

	// The request context ending must not abort the call.
	cancel()
	ok, err := w.GoBack(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, w.TicketID())

	close(g.release)
	w.Wait()
	assert.Empty(t, w.TicketID(), "the draft belongs to the leaf, not the session")
	assert.Equal(t, "ticket-42", w.TicketFor(testutils.Boiler))
}

func TestWizard_DraftFailureBecomesNotice(t *testing.T) {
	drafter := &countingDrafter{err: errors.New("edge function unavailable")}
	w := newWizard(t, wizard.WithTicketDrafter(drafter))

	mustSelect(t, w, testutils.Bathroom, testutils.TapLeak)
	w.Wait()

	assert.Equal(t, testutils.TapLeak, w.Current().ID, "navigation is kept")
	assert.Empty(t, w.TicketID())

	notices := w.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeDraftFailed, notices[0].Kind)
	assert.Equal(t, testutils.TapLeak, notices[0].NodeID)

	assert.False(t, w.DismissNotice(notices[0].ID+1))
	assert.True(t, w.DismissNotice(notices[0].ID))
	assert.Empty(t, w.Notices())
}

func TestWizard_Hooks(t *testing.T) {
	var mu sync.Mutex
	var entered, rejected []string
	var results []*domain.DraftEvent

	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			mu.Lock()
			defer mu.Unlock()
			entered = append(entered, e.NodeID)
		},
		OnTransitionRejected: func(_ context.Context, e *domain.RejectEvent) {
			mu.Lock()
			defer mu.Unlock()
			rejected = append(rejected, e.Op+":"+e.Target)
		},
		OnDraftResult: func(_ context.Context, e *domain.DraftEvent) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, e)
		},
	}

	w := newWizard(t,
		wizard.WithHooks(hooks),
		wizard.WithTicketDrafter(memory.NewTicketStore()),
		wizard.WithSynchronousDrafts(),
	)
	ctx := context.Background()

	mustSelect(t, w, testutils.Bathroom)
	_, _ = w.Select(ctx, "ghost")
	mustSelect(t, w, testutils.TapLeak)

	assert.Equal(t, []string{testutils.Bathroom, testutils.TapLeak}, entered)
	assert.Equal(t, []string{"select:ghost"}, rejected)
	require.Len(t, results, 1)
	assert.Equal(t, domain.EventDraftResult, results[0].Type)
	assert.True(t, results[0].Created)
	assert.Equal(t, w.TicketID(), results[0].TicketID)
}

func TestWizard_RecordDraftReplay(t *testing.T) {
	w := newWizard(t)

	w.RecordDraft(&domain.DraftEvent{
		Request:  domain.DraftRequest{Tree: domain.TreeRef{NodeID: testutils.Boiler}},
		TicketID: "ticket-7",
	})
	assert.Equal(t, "ticket-7", w.TicketFor(testutils.Boiler))
	assert.Empty(t, w.TicketID(), "root is not a ticket leaf")
	assert.Empty(t, w.Notices())

	w.RecordDraft(&domain.DraftEvent{
		Request: domain.DraftRequest{Tree: domain.TreeRef{NodeID: testutils.Boiler}},
		Err:     errors.New("boom"),
	})
	assert.Equal(t, "ticket-7", w.TicketFor(testutils.Boiler))
	assert.Len(t, w.Notices(), 1)
}

func TestWizard_DraftsAreKeptPerLeaf(t *testing.T) {
	drafter := &leafFailingDrafter{next: memory.NewTicketStore(), fail: testutils.Boiler}
	w := newWizard(t, wizard.WithTicketDrafter(drafter), wizard.WithSynchronousDrafts())
	ctx := context.Background()

	mustSelect(t, w, testutils.Bathroom, testutils.TapLeak)
	tapTicket := w.TicketID()
	require.NotEmpty(t, tapTicket)

	_, err := w.NavigateToPath(ctx, []string{testutils.Heating, testutils.Boiler})
	require.NoError(t, err)
	assert.Empty(t, w.TicketID(), "a failed draft leaves the new leaf without a ticket")
	assert.Equal(t, tapTicket, w.TicketFor(testutils.TapLeak))

	_, err = w.NavigateToPath(ctx, []string{testutils.Bathroom, testutils.TapLeak})
	require.NoError(t, err)
	assert.Equal(t, tapTicket, w.TicketID())
}

func TestWizard_LateDraftResultKeepsCurrentLeaf(t *testing.T) {
	w := newWizard(t)
	ctx := context.Background()
	_, err := w.NavigateToPath(ctx, []string{testutils.Heating, testutils.Boiler})
	require.NoError(t, err)

	w.RecordDraft(&domain.DraftEvent{
		Request:  domain.DraftRequest{Tree: domain.TreeRef{NodeID: testutils.Boiler}},
		TicketID: "ticket-boiler",
	})
	// The result for a leaf visited earlier arrives last.
	w.RecordDraft(&domain.DraftEvent{
		Request:  domain.DraftRequest{Tree: domain.TreeRef{NodeID: testutils.TapLeak}},
		TicketID: "ticket-tap",
	})

	assert.Equal(t, "ticket-boiler", w.TicketID())
	assert.Equal(t, "ticket-tap", w.TicketFor(testutils.TapLeak))

	snap := w.Snapshot()
	assert.Equal(t, "ticket-boiler", snap.TicketID)
	assert.Equal(t, map[string]string{
		testutils.Boiler:  "ticket-boiler",
		testutils.TapLeak: "ticket-tap",
	}, snap.Tickets)
}

// leafFailingDrafter fails for one leaf and delegates for the others.
type leafFailingDrafter struct {
	next ports.TicketDrafter
	fail string
}

func (d *leafFailingDrafter) CreateDraft(ctx context.Context, req domain.DraftRequest) (domain.DraftTicket, error) {
	if req.Tree.NodeID == d.fail {
		return domain.DraftTicket{}, errors.New("edge function unavailable")
	}
	return d.next.CreateDraft(ctx, req)
}
