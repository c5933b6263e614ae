package ports

import (
	"context"

	"github.com/aretw0/fixpath/pkg/domain"
)

// TicketDrafter creates draft tickets.
// CreateDraft must be idempotent on DraftRequest.IdempotencyKey: repeated
// identical calls return the same ticket id.
type TicketDrafter interface {
	CreateDraft(ctx context.Context, req domain.DraftRequest) (domain.DraftTicket, error)
}

// TicketUpdater patches draft tickets.
// It returns domain.ErrTicketNotDraft once the ticket has been submitted.
type TicketUpdater interface {
	Update(ctx context.Context, ticketID string, patch domain.TicketPatch) error
}

// TicketFinalizer submits draft tickets.
// A failed finalize leaves the ticket in draft status.
type TicketFinalizer interface {
	Finalize(ctx context.Context, ticketID string) error
}

// MediaSigner issues signed upload slots for a draft ticket.
type MediaSigner interface {
	SignUpload(ctx context.Context, ticketID string, files []domain.FileSpec) (domain.SignedUploads, error)
}

// TicketService is the full ticket backend.
type TicketService interface {
	TicketDrafter
	TicketUpdater
	TicketFinalizer
	MediaSigner
}

// TicketReader is implemented by backends that can return a ticket record.
type TicketReader interface {
	Get(ctx context.Context, ticketID string) (domain.Ticket, error)
}
