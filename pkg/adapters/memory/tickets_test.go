package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/fixpath/pkg/adapters/memory"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStore_Contract(t *testing.T) {
	ports.RunTicketServiceContract(t, memory.NewTicketStore())
}

func TestTicketStore_ConcurrentDraftsCollapse(t *testing.T) {
	store := memory.NewTicketStore()
	req := domain.DraftRequest{
		SessionID: "s-1",
		Tree:      domain.TreeRef{ID: "portal", Version: "1", NodeID: "bathroom.tap_leak", LeafType: domain.LeafStartTicket},
	}

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := store.CreateDraft(context.Background(), req)
			assert.NoError(t, err)
			ids[i] = d.TicketID
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 10, store.Requests())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestTicketStore_ProfileOwnsDraftAcrossSessions(t *testing.T) {
	store := memory.NewTicketStore()
	ctx := context.Background()
	ref := domain.TreeRef{ID: "portal", Version: "1", NodeID: "heating.boiler", LeafType: domain.LeafStartTicket}

	a, err := store.CreateDraft(ctx, domain.DraftRequest{SessionID: "tab-1", ProfileID: "p-7", Tree: ref})
	require.NoError(t, err)
	b, err := store.CreateDraft(ctx, domain.DraftRequest{SessionID: "tab-2", ProfileID: "p-7", Tree: ref})
	require.NoError(t, err)
	assert.Equal(t, a.TicketID, b.TicketID)

	anon, err := store.CreateDraft(ctx, domain.DraftRequest{SessionID: "tab-3", Tree: ref})
	require.NoError(t, err)
	assert.NotEqual(t, a.TicketID, anon.TicketID)

	ticket, err := store.Get(ctx, a.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "p-7", ticket.Owner)
	assert.Equal(t, "tab-1", ticket.SessionID)
}
