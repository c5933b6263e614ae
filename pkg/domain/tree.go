package domain

import (
	"encoding/json"
	"fmt"
)

// DecisionTree is an immutable, versioned tree of nodes with exactly one root.
// Editing a tree means publishing a new version.
type DecisionTree struct {
	ID      string `json:"tree_id" yaml:"tree_id"`
	Version string `json:"version" yaml:"version"`
	Root    *Node  `json:"root" yaml:"root"`

	index map[string]*Node
	paths map[string][]string
}

// NewTree validates the structure rooted at root and indexes it.
// It rejects missing or duplicate node ids, unknown type tags and invalid
// leaf types. Incomplete video outcomes are not rejected here; they surface
// through Validate or when the outcome is chosen.
func NewTree(id, version string, root *Node) (*DecisionTree, error) {
	if id == "" {
		return nil, &TreeIntegrityError{Reason: "tree id is required"}
	}
	if root == nil {
		return nil, &TreeIntegrityError{Reason: "tree has no root"}
	}

	t := &DecisionTree{
		ID:      id,
		Version: version,
		Root:    root,
		index:   make(map[string]*Node),
		paths:   make(map[string][]string),
	}
	if err := t.indexNode(root, nil); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *DecisionTree) indexNode(n *Node, path []string) error {
	if n.ID == "" {
		return &TreeIntegrityError{NodeID: lastOf(path), Reason: "child without node_id"}
	}
	if _, dup := t.index[n.ID]; dup {
		return &TreeIntegrityError{NodeID: n.ID, Reason: "duplicate node_id"}
	}

	switch n.Type {
	case NodeTypeBranch, NodeTypeVideoCheck:
	case NodeTypeLeaf:
		if n.LeafType != LeafStartTicket && n.LeafType != LeafEndNoTicket {
			return &TreeIntegrityError{NodeID: n.ID, Reason: fmt.Sprintf("unknown leaf_type %q", n.LeafType)}
		}
	default:
		return &TreeIntegrityError{NodeID: n.ID, Reason: fmt.Sprintf("type %q", n.Type), Err: ErrUnknownNodeType}
	}

	t.index[n.ID] = n
	t.paths[n.ID] = path

	if n.Type != NodeTypeBranch {
		return nil
	}
	for _, c := range n.Children {
		if c == nil {
			return &TreeIntegrityError{NodeID: n.ID, Reason: "nil child"}
		}
		childPath := make([]string, len(path), len(path)+1)
		copy(childPath, path)
		if err := t.indexNode(c, append(childPath, c.ID)); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the node with the given id anywhere in the tree.
func (t *DecisionTree) Lookup(id string) (*Node, bool) {
	n, ok := t.index[id]
	return n, ok
}

// PathOf returns the root-exclusive path of a node.
func (t *DecisionTree) PathOf(id string) ([]string, bool) {
	p, ok := t.paths[id]
	if !ok {
		return nil, false
	}
	return cloneStrings(p), true
}

// Len returns the number of nodes.
func (t *DecisionTree) Len() int {
	return len(t.index)
}

// Walk visits every node in pre-order (a node before its children, children
// in declaration order). path is root-exclusive and ends with the visited
// node (empty for the root). Returning false stops the walk.
func (t *DecisionTree) Walk(fn func(n *Node, path []string) bool) {
	walk(t.Root, nil, fn)
}

func walk(n *Node, path []string, fn func(*Node, []string) bool) bool {
	if !fn(n, path) {
		return false
	}
	if n.Type != NodeTypeBranch {
		return true
	}
	for _, c := range n.Children {
		childPath := make([]string, len(path), len(path)+1)
		copy(childPath, path)
		if !walk(c, append(childPath, c.ID), fn) {
			return false
		}
	}
	return true
}

// Validate performs the strict publish checks that NewTree leaves to lookup
// time: video nodes need a url and both outcomes, branches need children.
// All findings are returned as an *AggregateError of *TreeIntegrityError.
func (t *DecisionTree) Validate() error {
	var errs []error
	t.Walk(func(n *Node, _ []string) bool {
		switch n.Type {
		case NodeTypeBranch:
			if len(n.Children) == 0 {
				errs = append(errs, &TreeIntegrityError{NodeID: n.ID, Reason: "branch has no children"})
			}
		case NodeTypeVideoCheck:
			if n.VideoURL == "" {
				errs = append(errs, &TreeIntegrityError{NodeID: n.ID, Reason: "video_check without video_url"})
			}
			for _, o := range []VideoOutcome{OutcomeYes, OutcomeNo} {
				spec := n.Outcomes.Get(o)
				if spec == nil {
					errs = append(errs, &TreeIntegrityError{NodeID: n.ID, Reason: fmt.Sprintf("missing outcome %q", o)})
					continue
				}
				if spec.LeafType != LeafStartTicket && spec.LeafType != LeafEndNoTicket {
					errs = append(errs, &TreeIntegrityError{NodeID: n.ID, Reason: fmt.Sprintf("outcome %q has unknown leaf_type %q", o, spec.LeafType)})
				}
			}
		case NodeTypeLeaf:
			if n.LeafReason == "" {
				errs = append(errs, &TreeIntegrityError{NodeID: n.ID, Reason: "leaf without leaf_reason"})
			}
		}
		if n.Title.IsZero() {
			errs = append(errs, &TreeIntegrityError{NodeID: n.ID, Reason: "missing title"})
		}
		return true
	})
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// UnmarshalJSON decodes the nested representation and re-runs NewTree.
func (t *DecisionTree) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string `json:"tree_id"`
		Version string `json:"version"`
		Root    *Node  `json:"root"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := NewTree(raw.ID, raw.Version, raw.Root)
	if err != nil {
		return err
	}
	*t = *built
	return nil
}

func lastOf(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}
