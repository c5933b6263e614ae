package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultDraftTTL is how long a draft id is remembered.
const DefaultDraftTTL = 24 * time.Hour

// DraftCache wraps a ports.TicketService and remembers the ticket id of each
// draft idempotency key, so repeat visits from any replica skip the backend.
// The backend stays the source of truth for dedup.
type DraftCache struct {
	ports.TicketService
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// NewDraftCache wraps next. A non-positive ttl selects DefaultDraftTTL.
func NewDraftCache(client *backend.Client, next ports.TicketService, prefix string, ttl time.Duration) *DraftCache {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &DraftCache{TicketService: next, client: client, prefix: prefix, ttl: ttl}
}

func (c *DraftCache) draftKey(req domain.DraftRequest) string {
	return c.prefix + "draft:" + req.IdempotencyKey()
}

func (c *DraftCache) ticketKey(ticketID string) string {
	return c.prefix + "draft-ticket:" + ticketID
}

// CreateDraft returns the cached id or delegates and caches the result.
func (c *DraftCache) CreateDraft(ctx context.Context, req domain.DraftRequest) (domain.DraftTicket, error) {
	key := c.draftKey(req)

	id, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return domain.DraftTicket{TicketID: id}, nil
	case !errors.Is(err, backend.Nil):
		return domain.DraftTicket{}, fmt.Errorf("draft cache lookup: %w", err)
	}

	ticket, err := c.TicketService.CreateDraft(ctx, req)
	if err != nil {
		return domain.DraftTicket{}, err
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, ticket.TicketID, c.ttl)
	pipe.Set(ctx, c.ticketKey(ticket.TicketID), key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.DraftTicket{}, fmt.Errorf("draft cache store: %w", err)
	}
	return ticket, nil
}

// Finalize delegates and, on success, forgets the draft key so the next
// visit to the same leaf opens a new ticket.
func (c *DraftCache) Finalize(ctx context.Context, ticketID string) error {
	if err := c.TicketService.Finalize(ctx, ticketID); err != nil {
		return err
	}

	tk := c.ticketKey(ticketID)
	key, err := c.client.Get(ctx, tk).Result()
	if errors.Is(err, backend.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("draft cache lookup: %w", err)
	}
	return c.client.Del(ctx, key, tk).Err()
}
