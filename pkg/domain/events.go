package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter        EventType = "node_enter"
	EventTransitionReject EventType = "transition_rejected"
	EventDraftRequested   EventType = "draft_requested"
	EventDraftResult      EventType = "draft_result"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent represents entry into a node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeType NodeType `json:"node_type"`
	Phase    Phase    `json:"phase"`
}

// RejectEvent represents a transition the wizard refused.
type RejectEvent struct {
	EventBase
	Op     string `json:"op"`
	Target string `json:"target"`
}

// DraftEvent represents a draft creation request or its result.
type DraftEvent struct {
	EventBase
	Request  DraftRequest  `json:"request"`
	TicketID string        `json:"ticket_id,omitempty"`
	Created  bool          `json:"created,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for wizard observability.
// Hooks run synchronously; OnDraftResult runs on the dispatch goroutine.
type LifecycleHooks struct {
	OnNodeEnter          func(context.Context, *NodeEvent)
	OnTransitionRejected func(context.Context, *RejectEvent)
	OnDraftRequested     func(context.Context, *DraftEvent)
	OnDraftResult        func(context.Context, *DraftEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:          chain(h.OnNodeEnter, other.OnNodeEnter),
		OnTransitionRejected: chain(h.OnTransitionRejected, other.OnTransitionRejected),
		OnDraftRequested:     chain(h.OnDraftRequested, other.OnDraftRequested),
		OnDraftResult:        chain(h.OnDraftResult, other.OnDraftResult),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
