package runtime

import (
	"fmt"

	"github.com/aretw0/fixpath/pkg/domain"
)

// GetNodeByPath consumes path segments starting at the root.
// It returns nil as soon as the current node is not a branch or the next
// segment does not match one of its children. An empty path returns the root.
func (e *Engine) GetNodeByPath(path []string) *domain.Node {
	current := e.tree.Root
	for _, segment := range path {
		if current.Type != domain.NodeTypeBranch {
			return nil
		}
		next := current.Child(segment)
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}

// NextNode is the single gate for forward navigation: it resolves the node at
// currentPath and returns its child chosenID. It returns nil when the node at
// currentPath does not exist, is not a branch, or has no such child.
func (e *Engine) NextNode(currentPath []string, chosenID string) *domain.Node {
	current := e.GetNodeByPath(currentPath)
	if current == nil || current.Type != domain.NodeTypeBranch {
		return nil
	}
	return current.Child(chosenID)
}

// HasLeafChildren reports whether node is a branch with at least one direct
// leaf child. Grandchildren are not inspected.
func (e *Engine) HasLeafChildren(node *domain.Node) bool {
	return HasLeafChildren(node)
}

// HasLeafChildren is the package-level form of Engine.HasLeafChildren.
func HasLeafChildren(node *domain.Node) bool {
	if node == nil || node.Type != domain.NodeTypeBranch {
		return false
	}
	for _, c := range node.Children {
		if c != nil && c.Type == domain.NodeTypeLeaf {
			return true
		}
	}
	return false
}

// HandleVideoOutcome returns the outcome spec of a video_check node verbatim.
// A missing outcome is a bad tree publish and yields a *domain.TreeIntegrityError.
// The returned spec does not share slices with the tree.
func (e *Engine) HandleVideoOutcome(node *domain.Node, outcome domain.VideoOutcome) (domain.OutcomeSpec, error) {
	if node == nil || node.Type != domain.NodeTypeVideoCheck {
		return domain.OutcomeSpec{}, domain.ErrNotAtVideoCheck
	}
	if outcome != domain.OutcomeYes && outcome != domain.OutcomeNo {
		return domain.OutcomeSpec{}, fmt.Errorf("%w: %q", domain.ErrInvalidOutcome, outcome)
	}

	spec := node.Outcomes.Get(outcome)
	if spec == nil {
		e.logger.Error("video outcome missing from tree", "node_id", node.ID, "outcome", outcome)
		return domain.OutcomeSpec{}, &domain.TreeIntegrityError{
			NodeID: node.ID,
			Reason: fmt.Sprintf("missing outcome %q", outcome),
		}
	}
	return spec.Clone(), nil
}
