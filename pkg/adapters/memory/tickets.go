package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/media"
	"github.com/aretw0/fixpath/pkg/tickets"
	"github.com/google/uuid"
)

// TicketStore implements ports.TicketService and ports.TicketReader in memory.
// Drafts are deduplicated on domain.DraftRequest.IdempotencyKey.
// Safe for concurrent use.
type TicketStore struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	drafts   map[string]string // idempotency key -> ticket id
	signer   *media.Signer
	minDesc  int
	now      func() time.Time
	requests int
}

// TicketOption configures a TicketStore.
type TicketOption func(*TicketStore)

// WithSigner sets the media signer used by SignUpload.
func WithSigner(s *media.Signer) TicketOption {
	return func(ts *TicketStore) {
		ts.signer = s
	}
}

// WithMinDescription overrides tickets.MinDescriptionLength.
func WithMinDescription(n int) TicketOption {
	return func(ts *TicketStore) {
		ts.minDesc = n
	}
}

// NewTicketStore creates an empty ticket backend.
func NewTicketStore(opts ...TicketOption) *TicketStore {
	ts := &TicketStore{
		tickets: make(map[string]*domain.Ticket),
		drafts:  make(map[string]string),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(ts)
	}
	if ts.signer == nil {
		ts.signer = media.NewSigner([]byte("fixpath-memory"), "memory://uploads")
	}
	return ts
}

// CreateDraft returns the existing draft for the request key or creates one.
func (s *TicketStore) CreateDraft(ctx context.Context, req domain.DraftRequest) (domain.DraftTicket, error) {
	key := req.IdempotencyKey()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	if id, ok := s.drafts[key]; ok {
		return domain.DraftTicket{TicketID: id, Created: false}, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.DraftTicket{}, fmt.Errorf("ticket id: %w", err)
	}
	now := s.now().UTC()
	s.tickets[id.String()] = &domain.Ticket{
		ID:        id.String(),
		Owner:     req.Owner(),
		SessionID: req.SessionID,
		Tree:      req.Tree,
		Status:    domain.TicketDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.drafts[key] = id.String()
	return domain.DraftTicket{TicketID: id.String(), Created: true}, nil
}

// Update merges a patch into a draft.
func (s *TicketStore) Update(ctx context.Context, ticketID string, patch domain.TicketPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.draft(ticketID)
	if err != nil {
		return err
	}
	t.Apply(patch)
	t.UpdatedAt = s.now().UTC()
	return nil
}

// Finalize validates and submits a draft. The draft key is released so a
// later visit to the same leaf starts a new ticket.
func (s *TicketStore) Finalize(ctx context.Context, ticketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.draft(ticketID)
	if err != nil {
		return err
	}
	if err := tickets.ValidateForFinalize(*t, tickets.BackendRequired, s.minDesc); err != nil {
		return err
	}

	now := s.now().UTC()
	t.Status = domain.TicketSubmitted
	t.SubmittedAt = &now
	t.UpdatedAt = now
	for key, id := range s.drafts {
		if id == ticketID {
			delete(s.drafts, key)
		}
	}
	return nil
}

// SignUpload issues upload slots for a draft.
func (s *TicketStore) SignUpload(ctx context.Context, ticketID string, files []domain.FileSpec) (domain.SignedUploads, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.draft(ticketID)
	if err != nil {
		return domain.SignedUploads{}, err
	}
	if limit := s.signer.Policy().MaxFiles; limit > 0 && len(t.Media)+len(files) > limit {
		return domain.SignedUploads{}, &domain.ValidationError{
			Key:    "files",
			Reason: fmt.Sprintf("ticket already has %d of %d files", len(t.Media), limit),
		}
	}

	signed, err := s.signer.Sign(ticketID, files)
	if err != nil {
		return domain.SignedUploads{}, err
	}
	t.Media = append(t.Media, signed.Uploads...)
	return signed, nil
}

// Get returns a copy of a ticket.
func (s *TicketStore) Get(ctx context.Context, ticketID string) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return domain.Ticket{}, fmt.Errorf("%w: %s", domain.ErrTicketNotFound, ticketID)
	}
	out := *t
	out.Answers = make(map[string]any, len(t.Answers))
	for k, v := range t.Answers {
		out.Answers[k] = v
	}
	out.Media = append([]domain.Upload(nil), t.Media...)
	return out, nil
}

// Len returns the number of persisted tickets, drafts included.
func (s *TicketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

// Requests returns the number of CreateDraft calls received.
func (s *TicketStore) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *TicketStore) draft(ticketID string) (*domain.Ticket, error) {
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTicketNotFound, ticketID)
	}
	if t.Status != domain.TicketDraft {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrTicketNotDraft, ticketID, t.Status)
	}
	return t, nil
}
