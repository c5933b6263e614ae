package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/fixpath/pkg/domain"
)

// LogHooks returns lifecycle hooks that write structured records to logger.
// Node entries and rejections log at debug; draft failures at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"type", e.NodeType,
				"phase", e.Phase,
			)
		},
		OnTransitionRejected: func(ctx context.Context, e *domain.RejectEvent) {
			logger.DebugContext(ctx, "transition_rejected",
				"session_id", e.SessionID,
				"op", e.Op,
				"target", e.Target,
			)
		},
		OnDraftRequested: func(ctx context.Context, e *domain.DraftEvent) {
			logger.InfoContext(ctx, "draft_requested",
				"session_id", e.SessionID,
				"node_id", e.Request.Tree.NodeID,
			)
		},
		OnDraftResult: func(ctx context.Context, e *domain.DraftEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "draft_failed",
					"session_id", e.SessionID,
					"node_id", e.Request.Tree.NodeID,
					"err", e.Err,
				)
				return
			}
			logger.InfoContext(ctx, "draft_ready",
				"session_id", e.SessionID,
				"ticket_id", e.TicketID,
				"created", e.Created,
				"elapsed", e.Duration,
			)
		},
	}
}
