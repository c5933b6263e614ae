package wizard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/fixpath/pkg/domain"
)

// Operation names reported in RejectEvent.Op.
const (
	OpSelect   = "select"
	OpNavigate = "navigate"
	OpVideo    = "video_outcome"
	OpBack     = "back"
)

// SyntheticID is the node id of the leaf synthesized from a video outcome.
func SyntheticID(videoNodeID string, outcome domain.VideoOutcome) string {
	return videoNodeID + "." + string(outcome)
}

// Select moves to the child childID of the current branch.
// It returns false, leaving the state untouched, when the engine rejects the
// choice (unknown child, or the current node is not a branch).
func (w *Wizard) Select(ctx context.Context, childID string) (bool, error) {
	if err := w.checkHalted(); err != nil {
		return false, err
	}

	next := w.engine.NextNode(w.state.Path, childID)
	if next == nil {
		w.reject(ctx, OpSelect, childID)
		return false, nil
	}

	// The history push commits together with the move.
	path := append(slices.Clone(w.state.Path), next.ID)
	w.commit(path, next, next.ID, true)
	return true, w.enter(ctx)
}

// NavigateToPath jumps to the node at path, as used by search results and
// breadcrumb clicks. The prior path is pushed so a single GoBack undoes it.
func (w *Wizard) NavigateToPath(ctx context.Context, path []string) (bool, error) {
	if err := w.checkHalted(); err != nil {
		return false, err
	}

	target, err := w.resolve(path)
	if err != nil {
		return false, w.halt(err)
	}
	if target == nil {
		w.reject(ctx, OpNavigate, strings.Join(path, "/"))
		return false, nil
	}

	w.commit(slices.Clone(path), target, lastSegment(path), true)
	return true, w.enter(ctx)
}

// HandleVideoOutcome resolves the current video_check node and moves to a
// leaf synthesized from the chosen outcome. Calling it on any other node
// returns domain.ErrNotAtVideoCheck.
func (w *Wizard) HandleVideoOutcome(ctx context.Context, outcome domain.VideoOutcome) (bool, error) {
	if err := w.checkHalted(); err != nil {
		return false, err
	}

	video := w.state.CurrentNode
	if video.Type != domain.NodeTypeVideoCheck {
		w.reject(ctx, OpVideo, string(outcome))
		return false, fmt.Errorf("%w: at %s", domain.ErrNotAtVideoCheck, video.ID)
	}

	spec, err := w.engine.HandleVideoOutcome(video, outcome)
	if err != nil {
		if errors.Is(err, domain.ErrTreeIntegrity) {
			return false, w.halt(err)
		}
		w.reject(ctx, OpVideo, string(outcome))
		return false, err
	}

	leaf := synthesize(video, outcome, spec)
	path := append(slices.Clone(w.state.Path), leaf.ID)
	w.commit(path, leaf, leaf.ID, true)
	return true, w.enter(ctx)
}

// GoBack restores the previous path. It returns false when the history is empty.
func (w *Wizard) GoBack(ctx context.Context) (bool, error) {
	if err := w.checkHalted(); err != nil {
		return false, err
	}

	depth := len(w.state.History)
	if depth == 0 {
		return false, nil
	}

	prev := w.state.History[depth-1]
	node, err := w.resolve(prev)
	if err != nil {
		return false, w.halt(err)
	}
	if node == nil {
		// History only ever holds committed paths of an immutable tree.
		return false, w.halt(&domain.TreeIntegrityError{
			NodeID: lastSegment(prev),
			Reason: fmt.Sprintf("history path %v no longer resolves", prev),
		})
	}

	// The popped segment is what had been picked at the restored level.
	selected := ""
	if len(w.state.Path) == len(prev)+1 && slices.Equal(w.state.Path[:len(prev)], prev) {
		selected = lastSegment(w.state.Path)
	}

	w.state.History = w.state.History[:depth-1]
	w.commit(slices.Clone(prev), node, selected, false)
	return true, w.enter(ctx)
}

func (w *Wizard) commit(path []string, node *domain.Node, selected string, push bool) {
	if path == nil {
		path = []string{}
	}
	if push {
		w.state.History = append(w.state.History, slices.Clone(w.state.Path))
	}
	w.state.Path = path
	w.state.CurrentNode = node
	w.state.SelectedChoice = selected
}

// enter runs the side effects of landing on the current node.
func (w *Wizard) enter(ctx context.Context) error {
	node := w.state.CurrentNode
	phase, err := node.Phase()
	if err != nil {
		return w.halt(err)
	}

	w.logger.Debug("node entered", "node_id", node.ID, "phase", phase)
	if w.hooks.OnNodeEnter != nil {
		w.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: w.event(domain.EventNodeEnter),
			NodeID:    node.ID,
			NodeType:  node.Type,
			Phase:     phase,
		})
	}

	if phase == domain.PhaseStartTicket {
		w.dispatchDraft(ctx, node)
	}
	return nil
}

func (w *Wizard) reject(ctx context.Context, op, target string) {
	w.logger.Debug("transition rejected", "op", op, "target", target, "node_id", w.state.CurrentNode.ID)
	if w.hooks.OnTransitionRejected != nil {
		w.hooks.OnTransitionRejected(ctx, &domain.RejectEvent{
			EventBase: w.event(domain.EventTransitionReject),
			Op:        op,
			Target:    target,
		})
	}
}

func (w *Wizard) halt(err error) error {
	w.halted = err
	w.logger.Error("wizard halted", "node_id", w.state.CurrentNode.ID, "err", err)
	return err
}

func (w *Wizard) checkHalted() error {
	if w.halted != nil {
		return fmt.Errorf("%w: %w", domain.ErrWizardHalted, w.halted)
	}
	return nil
}

func (w *Wizard) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: w.now(), Type: t, SessionID: w.sessionID}
}

// resolve maps a path to a node, re-synthesizing a trailing video outcome
// segment. A nil node with a nil error means the path does not exist.
func (w *Wizard) resolve(path []string) (*domain.Node, error) {
	if n := w.engine.GetNodeByPath(path); n != nil {
		return n, nil
	}
	if len(path) == 0 {
		return nil, nil
	}

	parent := w.engine.GetNodeByPath(path[:len(path)-1])
	if parent == nil || parent.Type != domain.NodeTypeVideoCheck {
		return nil, nil
	}
	last := path[len(path)-1]
	for _, o := range []domain.VideoOutcome{domain.OutcomeYes, domain.OutcomeNo} {
		if last != SyntheticID(parent.ID, o) {
			continue
		}
		spec, err := w.engine.HandleVideoOutcome(parent, o)
		if err != nil {
			return nil, err
		}
		return synthesize(parent, o, spec), nil
	}
	return nil, nil
}

func synthesize(video *domain.Node, outcome domain.VideoOutcome, spec domain.OutcomeSpec) *domain.Node {
	return &domain.Node{
		ID:          SyntheticID(video.ID, outcome),
		Type:        domain.NodeTypeLeaf,
		Title:       video.Title,
		OutcomeSpec: spec,
		Synthetic:   true,
	}
}

func lastSegment(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}
