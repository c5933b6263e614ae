package session

import (
	"context"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
	"github.com/aretw0/fixpath/pkg/tickets"
	"github.com/aretw0/fixpath/pkg/wizard"
)

// Ticket opens a flow on the draft of the current leaf and runs fn under the
// session lock. The session must sit on a start_ticket leaf whose own draft
// id is already known, otherwise domain.ErrNoTicket is returned. Drafts of
// leaves visited earlier are never used.
func (m *Manager) Ticket(ctx context.Context, sessionID string, svc ports.TicketService, fn func(ctx context.Context, f *tickets.Flow) error, opts ...tickets.FlowOption) error {
	_, err := m.Do(ctx, sessionID, func(ctx context.Context, w *wizard.Wizard) error {
		ref, required, ok := w.TicketLeaf()
		if !ok {
			return domain.ErrNoTicket
		}
		ticketID := w.TicketFor(ref.NodeID)
		if ticketID == "" {
			return domain.ErrNoTicket
		}

		flowOpts := append([]tickets.FlowOption{tickets.WithFlowLogger(m.logger)}, opts...)
		flow := tickets.NewFlow(svc, ticketID, ref, required, flowOpts...)
		if err := flow.Seed(ctx); err != nil {
			return err
		}
		return fn(ctx, flow)
	})
	return err
}
