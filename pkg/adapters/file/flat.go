package file

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/fixpath/pkg/domain"
)

type flatDocument struct {
	ID         string              `json:"tree_id"`
	Version    string              `json:"version"`
	RootNodeID string              `json:"root_node_id"`
	Nodes      map[string]flatNode `json:"nodes"`
}

type flatNode struct {
	Type     domain.NodeType      `json:"type"`
	Title    domain.LocalizedText `json:"title"`
	Children []string             `json:"children,omitempty"`
	VideoURL string               `json:"video_url,omitempty"`
	Outcomes *domain.Outcomes     `json:"outcomes,omitempty"`
	domain.OutcomeSpec
}

func decodeFlat(data []byte) (*domain.DecisionTree, error) {
	var doc flatDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	b := newLinker(len(doc.Nodes))
	for id, fn := range doc.Nodes {
		b.add(id, &domain.Node{
			ID:          id,
			Type:        fn.Type,
			Title:       fn.Title,
			VideoURL:    fn.VideoURL,
			Outcomes:    fn.Outcomes,
			OutcomeSpec: fn.OutcomeSpec,
		}, fn.Children)
	}
	root, err := b.link(doc.RootNodeID)
	if err != nil {
		return nil, err
	}
	return domain.NewTree(doc.ID, doc.Version, root)
}

// linker assembles a nested tree from nodes that reference children by id.
type linker struct {
	nodes    map[string]*domain.Node
	children map[string][]string
	linked   map[string]bool
}

func newLinker(n int) *linker {
	return &linker{
		nodes:    make(map[string]*domain.Node, n),
		children: make(map[string][]string, n),
		linked:   make(map[string]bool, n),
	}
}

func (l *linker) add(id string, n *domain.Node, children []string) {
	l.nodes[id] = n
	l.children[id] = children
}

// link attaches children from rootID down. A node referenced twice, a
// dangling reference or a node not reachable from the root is an error.
func (l *linker) link(rootID string) (*domain.Node, error) {
	root, ok := l.nodes[rootID]
	if !ok {
		return nil, &domain.TreeIntegrityError{NodeID: rootID, Reason: "root node not defined"}
	}
	if err := l.attach(root); err != nil {
		return nil, err
	}

	var orphans []string
	for id := range l.nodes {
		if !l.linked[id] {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		errs := make([]error, len(orphans))
		for i, id := range orphans {
			errs[i] = &domain.TreeIntegrityError{NodeID: id, Reason: "unreachable from root"}
		}
		return nil, &domain.AggregateError{Errors: errs}
	}
	return root, nil
}

func (l *linker) attach(n *domain.Node) error {
	if l.linked[n.ID] {
		return &domain.TreeIntegrityError{NodeID: n.ID, Reason: "node has more than one parent"}
	}
	l.linked[n.ID] = true

	refs := l.children[n.ID]
	if len(refs) > 0 && n.Type != domain.NodeTypeBranch {
		return &domain.TreeIntegrityError{NodeID: n.ID, Reason: fmt.Sprintf("%s node cannot have children", n.Type)}
	}
	for _, ref := range refs {
		child, ok := l.nodes[ref]
		if !ok {
			return &domain.TreeIntegrityError{NodeID: n.ID, Reason: fmt.Sprintf("child %q not defined", ref)}
		}
		n.Children = append(n.Children, child)
		if err := l.attach(child); err != nil {
			return err
		}
	}
	return nil
}
