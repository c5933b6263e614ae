package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
)

// Flow drives one draft from description to submission.
// It keeps a local copy of what it sent so finalize validation runs
// synchronously, before the backend is called.
type Flow struct {
	svc            ports.TicketService
	ticket         domain.Ticket
	required       []string
	minDescription int
	logger         *slog.Logger
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithMinDescription overrides MinDescriptionLength.
func WithMinDescription(n int) FlowOption {
	return func(f *Flow) {
		f.minDescription = n
	}
}

// WithFlowLogger sets a custom structured logger.
func WithFlowLogger(logger *slog.Logger) FlowOption {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFlow starts a flow for ticketID, produced by the leaf ref.
// The required fields are the leaf's plus BackendRequired.
func NewFlow(svc ports.TicketService, ticketID string, ref domain.TreeRef, leafRequired []string, opts ...FlowOption) *Flow {
	f := &Flow{
		svc: svc,
		ticket: domain.Ticket{
			ID:     ticketID,
			Tree:   ref,
			Status: domain.TicketDraft,
		},
		required: append(slices.Clone(BackendRequired), leafRequired...),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("ticket_id", ticketID)
	return f
}

// Seed loads the current backend copy of the ticket when the service can read it.
// A ticket drafted for another leaf than the flow's is refused.
func (f *Flow) Seed(ctx context.Context) error {
	reader, ok := f.svc.(ports.TicketReader)
	if !ok {
		return nil
	}
	t, err := reader.Get(ctx, f.ticket.ID)
	if err != nil {
		return fmt.Errorf("seed ticket %s: %w", f.ticket.ID, err)
	}
	if t.Tree.NodeID != "" && t.Tree.NodeID != f.ticket.Tree.NodeID {
		return fmt.Errorf("seed ticket %s: drafted for %s, not %s: %w",
			f.ticket.ID, t.Tree.NodeID, f.ticket.Tree.NodeID, domain.ErrTicketLeafMismatch)
	}
	f.ticket = t
	return nil
}

// Ticket returns the local copy of the ticket.
func (f *Flow) Ticket() domain.Ticket {
	return f.ticket
}

// Update sanitizes and sends a patch, then merges it locally.
func (f *Flow) Update(ctx context.Context, patch domain.TicketPatch) error {
	clean, err := SanitizePatch(patch)
	if err != nil {
		return err
	}
	if clean.IsEmpty() {
		return nil
	}
	if err := f.svc.Update(ctx, f.ticket.ID, clean); err != nil {
		return fmt.Errorf("update ticket %s: %w", f.ticket.ID, err)
	}
	f.ticket.Apply(clean)
	return nil
}

// Validate reports what is missing before Finalize can succeed.
func (f *Flow) Validate() error {
	return ValidateForFinalize(f.ticket, f.required, f.minDescription)
}

// Finalize validates locally and then submits. A validation failure never
// reaches the backend; a backend failure leaves the ticket in draft.
func (f *Flow) Finalize(ctx context.Context) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := f.svc.Finalize(ctx, f.ticket.ID); err != nil {
		f.logger.Warn("finalize failed", "err", err)
		return fmt.Errorf("finalize ticket %s: %w", f.ticket.ID, err)
	}
	f.ticket.Status = domain.TicketSubmitted
	f.logger.Info("ticket submitted")
	return nil
}

// Submit applies a final patch and finalizes.
// The merged ticket is validated before anything is sent.
func (f *Flow) Submit(ctx context.Context, patch domain.TicketPatch) error {
	clean, err := SanitizePatch(patch)
	if err != nil {
		return err
	}

	preview := f.ticket
	preview.Answers = cloneAnswers(f.ticket.Answers)
	preview.Apply(clean)
	if err := ValidateForFinalize(preview, f.required, f.minDescription); err != nil {
		return err
	}

	if err := f.Update(ctx, clean); err != nil {
		return err
	}
	return f.Finalize(ctx)
}

// AttachMedia requests signed upload slots for the draft.
func (f *Flow) AttachMedia(ctx context.Context, files []domain.FileSpec) (domain.SignedUploads, error) {
	signed, err := f.svc.SignUpload(ctx, f.ticket.ID, files)
	if err != nil {
		return domain.SignedUploads{}, fmt.Errorf("sign uploads for %s: %w", f.ticket.ID, err)
	}
	f.ticket.Media = append(f.ticket.Media, signed.Uploads...)
	return signed, nil
}

func cloneAnswers(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
