package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/fixpath/pkg/domain"
)

// Loader implements ports.TreeLoader over a tree held in memory.
type Loader struct {
	tree *domain.DecisionTree
	raw  []byte
}

// NewLoader serves an already built tree.
func NewLoader(tree *domain.DecisionTree) *Loader {
	return &Loader{tree: tree}
}

// NewFromJSON serves a nested tree document. The document is decoded on
// every Load, so each caller gets its own tree.
func NewFromJSON(data []byte) *Loader {
	return &Loader{raw: append([]byte(nil), data...)}
}

// NewFromNodes builds a tree from a root node.
// This handles validation and indexing, improving DX for tests.
func NewFromNodes(id, version string, root *domain.Node) (*Loader, error) {
	tree, err := domain.NewTree(id, version, root)
	if err != nil {
		return nil, fmt.Errorf("build tree %s: %w", id, err)
	}
	return &Loader{tree: tree}, nil
}

// Load returns the tree.
func (l *Loader) Load(ctx context.Context) (*domain.DecisionTree, error) {
	if l.tree != nil {
		return l.tree, nil
	}
	var tree domain.DecisionTree
	if err := json.Unmarshal(l.raw, &tree); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return &tree, nil
}
