package ports

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWizardStoreContract runs a suite of tests to verify that a WizardStore implementation
// adheres to the defined interface contract.
func RunWizardStoreContract(t *testing.T, store WizardStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newSnap := func(id string) *domain.Snapshot {
		return &domain.Snapshot{
			SessionID:   id,
			TreeID:      "portal",
			TreeVersion: "1",
			Path:        []string{},
			History:     [][]string{},
			UpdatedAt:   time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnap(sessionID)
		snap.Path = []string{"bathroom", "bathroom.tap_leak"}
		snap.History = [][]string{{}, {"bathroom"}}
		snap.SelectedChoice = "bathroom.tap_leak"
		snap.TicketID = "ticket-1"
		snap.Tickets = map[string]string{"bathroom.tap_leak": "ticket-1", "heating.boiler": "ticket-0"}

		err := store.Save(ctx, sessionID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.Path, loaded.Path)
		assert.Len(t, loaded.History, 2)
		assert.Equal(t, []string{"bathroom"}, loaded.History[1])
		assert.Equal(t, "bathroom.tap_leak", loaded.SelectedChoice)
		assert.Equal(t, "ticket-1", loaded.TicketID)
		assert.Equal(t, snap.Tickets, loaded.Tickets)
		assert.Equal(t, "1", loaded.TreeVersion)
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		snap := newSnap(sessionID)
		snap.Path = []string{"kitchen"}
		require.NoError(t, store.Save(ctx, sessionID, snap))

		snap.Path[0] = "mutated"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, []string{"kitchen"}, loaded.Path)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, newSnap(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, newSnap(id1))
		_ = store.Save(ctx, id2, newSnap(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunTicketServiceContract verifies draft idempotency, draft-only updates,
// finalize validation and media signing of a TicketService implementation.
// The service must accept the "standard_wizard" leaf reason with a minimum
// description length of 20 characters.
func RunTicketServiceContract(t *testing.T, svc TicketService) {
	ctx := context.Background()
	suffix := time.Now().Format("150405.000000")

	req := domain.DraftRequest{
		SessionID: "contract-" + suffix,
		Tree: domain.TreeRef{
			ID:         "portal",
			Version:    "1",
			NodeID:     "bathroom.tap_leak",
			LeafType:   domain.LeafStartTicket,
			LeafReason: domain.LeafReasonStandardWizard,
		},
	}

	t.Run("Draft Is Idempotent", func(t *testing.T) {
		first, err := svc.CreateDraft(ctx, req)
		require.NoError(t, err)
		require.NotEmpty(t, first.TicketID)
		assert.True(t, first.Created)

		second, err := svc.CreateDraft(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first.TicketID, second.TicketID)
		assert.False(t, second.Created)

		other := req
		other.Tree.NodeID = "bathroom.seat_broken"
		third, err := svc.CreateDraft(ctx, other)
		require.NoError(t, err)
		assert.NotEqual(t, first.TicketID, third.TicketID)
	})

	t.Run("Update Unknown Ticket", func(t *testing.T) {
		desc := "x"
		err := svc.Update(ctx, "does-not-exist", domain.TicketPatch{Description: &desc})
		assert.ErrorIs(t, err, domain.ErrTicketNotFound)
	})

	t.Run("Finalize Lifecycle", func(t *testing.T) {
		draft, err := svc.CreateDraft(ctx, req)
		require.NoError(t, err)

		short := "too short"
		require.NoError(t, svc.Update(ctx, draft.TicketID, domain.TicketPatch{Description: &short}))

		err = svc.Finalize(ctx, draft.TicketID)
		require.Error(t, err, "short description must be rejected for standard_wizard")
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)

		if reader, ok := svc.(TicketReader); ok {
			ticket, err := reader.Get(ctx, draft.TicketID)
			require.NoError(t, err)
			assert.Equal(t, domain.TicketDraft, ticket.Status, "failed finalize keeps the draft")
		}

		long := strings.Repeat("water drips from the tap ", 2)
		require.NoError(t, svc.Update(ctx, draft.TicketID, domain.TicketPatch{
			Description: &long,
			Contact:     &domain.Contact{Name: "Sam", Email: "sam@example.org"},
			Answers:     map[string]any{"since": "yesterday"},
		}))
		require.NoError(t, svc.Finalize(ctx, draft.TicketID))

		err = svc.Update(ctx, draft.TicketID, domain.TicketPatch{Description: &long})
		assert.ErrorIs(t, err, domain.ErrTicketNotDraft)
		assert.ErrorIs(t, svc.Finalize(ctx, draft.TicketID), domain.ErrTicketNotDraft)

		again, err := svc.CreateDraft(ctx, req)
		require.NoError(t, err)
		assert.NotEqual(t, draft.TicketID, again.TicketID, "a submitted ticket no longer holds the draft key")
	})

	t.Run("Sign Upload", func(t *testing.T) {
		signReq := req
		signReq.Tree.NodeID = "kitchen.fridge"
		draft, err := svc.CreateDraft(ctx, signReq)
		require.NoError(t, err)

		signed, err := svc.SignUpload(ctx, draft.TicketID, []domain.FileSpec{
			{Name: "leak.jpg", Size: 2048, ContentType: "image/jpeg"},
			{Name: "leak.mp4", Size: 4096, ContentType: "video/mp4"},
		})
		require.NoError(t, err)
		require.Len(t, signed.Uploads, 2)
		for _, u := range signed.Uploads {
			assert.NotEmpty(t, u.MediaID)
			assert.NotEmpty(t, u.PutURL)
			assert.Contains(t, u.StoragePath, draft.TicketID)
		}

		_, err = svc.SignUpload(ctx, draft.TicketID, []domain.FileSpec{
			{Name: "run.exe", Size: 10, ContentType: "application/x-msdownload"},
		})
		assert.Error(t, err)

		_, err = svc.SignUpload(ctx, "does-not-exist", []domain.FileSpec{
			{Name: "leak.jpg", Size: 2048, ContentType: "image/jpeg"},
		})
		assert.ErrorIs(t, err, domain.ErrTicketNotFound)
	})
}
