package wizard

import (
	"context"
	"slices"
	"time"

	"github.com/aretw0/fixpath/pkg/domain"
)

// Notice messages shown to the tenant.
const (
	MsgDraftFailed = "We could not save your request yet. You can keep going; it will be retried when you return to this step."
	MsgDraftReady  = "Your request has been started."
)

// dispatchDraft invokes the ticket collaborator for a start_ticket leaf.
// It fires on every landing; deduplication is the collaborator's job.
func (w *Wizard) dispatchDraft(ctx context.Context, leaf *domain.Node) {
	req := domain.DraftRequest{
		SessionID: w.sessionID,
		ProfileID: w.profileID,
		Tree:      w.refOf(leaf),
	}

	if w.drafter == nil {
		w.logger.Debug("no ticket drafter configured", "node_id", leaf.ID)
		return
	}
	if w.hooks.OnDraftRequested != nil {
		w.hooks.OnDraftRequested(ctx, &domain.DraftEvent{
			EventBase: w.event(domain.EventDraftRequested),
			Request:   req,
		})
	}

	run := func(ctx context.Context) {
		start := w.now()
		ticket, err := w.drafter.CreateDraft(ctx, req)

		evt := &domain.DraftEvent{
			EventBase: w.event(domain.EventDraftResult),
			Request:   req,
			TicketID:  ticket.TicketID,
			Created:   ticket.Created,
			Err:       err,
			Duration:  w.now().Sub(start),
		}
		if err != nil {
			w.logger.Warn("draft creation failed", "node_id", req.Tree.NodeID, "err", err)
		} else {
			w.logger.Info("draft ticket ready", "node_id", req.Tree.NodeID, "ticket_id", ticket.TicketID, "created", ticket.Created)
		}

		w.RecordDraft(evt)
		if w.hooks.OnDraftResult != nil {
			w.hooks.OnDraftResult(ctx, evt)
		}
	}

	if w.syncDrafts {
		run(ctx)
		return
	}

	// Navigation never waits on the collaborator, and a finished request
	// must not cancel the call.
	bg := context.WithoutCancel(ctx)
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		run(bg)
	}()
}

func (w *Wizard) refOf(leaf *domain.Node) domain.TreeRef {
	tree := w.engine.Tree()
	return domain.TreeRef{
		ID:         tree.ID,
		Version:    tree.Version,
		NodeID:     leaf.ID,
		LeafType:   leaf.LeafType,
		LeafReason: leaf.LeafReason,
	}
}

// TicketLeaf returns the tree reference and required fields of the current
// node when it is a start_ticket leaf.
func (w *Wizard) TicketLeaf() (domain.TreeRef, []string, bool) {
	node := w.state.CurrentNode
	if !isTicketLeaf(node) {
		return domain.TreeRef{}, nil, false
	}
	return w.refOf(node), slices.Clone(node.RequiredFields), true
}

func isTicketLeaf(n *domain.Node) bool {
	return n != nil && n.Type == domain.NodeTypeLeaf && n.LeafType == domain.LeafStartTicket
}

// RecordDraft applies the outcome of a draft request: a ticket id for the
// requesting leaf on success, a dismissible notice on failure. A newly
// created draft also yields a ready notice. Results may arrive in any order;
// each only touches the leaf it was requested for.
// It is used by dispatch and by callers replaying results into a restored
// session.
func (w *Wizard) RecordDraft(evt *domain.DraftEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	at := evt.Timestamp
	if at.IsZero() {
		at = w.now()
	}

	switch {
	case evt.Err != nil:
		w.addNotice(domain.NoticeDraftFailed, evt.Request.Tree.NodeID, MsgDraftFailed, at)
	case evt.TicketID != "":
		w.tickets[evt.Request.Tree.NodeID] = evt.TicketID
		if evt.Created {
			w.addNotice(domain.NoticeDraftReady, evt.Request.Tree.NodeID, MsgDraftReady, at)
		}
	}
}

func (w *Wizard) addNotice(kind domain.NoticeKind, nodeID, msg string, at time.Time) {
	w.notices = append(w.notices, domain.Notice{
		ID:      w.nextNotice,
		Kind:    kind,
		NodeID:  nodeID,
		Message: msg,
		At:      at.UTC(),
	})
	w.nextNotice++
}

// TicketID returns the draft id of the current start_ticket leaf, or "" when
// the session is elsewhere or the draft is not known yet.
func (w *Wizard) TicketID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ticketFor(w.state.CurrentNode)
}

// TicketFor returns the draft id recorded for a leaf, or "".
func (w *Wizard) TicketFor(nodeID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tickets[nodeID]
}

func (w *Wizard) ticketFor(n *domain.Node) string {
	if !isTicketLeaf(n) {
		return ""
	}
	return w.tickets[n.ID]
}

// Notices returns the pending notices, oldest first.
func (w *Wizard) Notices() []domain.Notice {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.notices)
}

// DismissNotice removes a notice. It reports whether the id existed.
func (w *Wizard) DismissNotice(id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := slices.IndexFunc(w.notices, func(n domain.Notice) bool { return n.ID == id })
	if i < 0 {
		return false
	}
	w.notices = slices.Delete(w.notices, i, i+1)
	return true
}

// Wait blocks until every dispatched draft request has completed.
func (w *Wizard) Wait() {
	w.inflight.Wait()
}
