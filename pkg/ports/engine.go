package ports

import "github.com/aretw0/fixpath/pkg/domain"

// TreeEngine answers structural questions about a single DecisionTree.
// Implementations hold no session state and are safe for concurrent use.
type TreeEngine interface {
	// Tree returns the tree the engine was built with.
	Tree() *domain.DecisionTree

	// GetNodeByPath resolves a root-exclusive path. An empty path returns the root.
	// It returns nil when any segment does not match a child of a branch.
	GetNodeByPath(path []string) *domain.Node

	// NextNode returns the child chosenID of the branch at path, or nil.
	NextNode(path []string, chosenID string) *domain.Node

	// HasLeafChildren reports whether node is a branch with a direct leaf child.
	HasLeafChildren(node *domain.Node) bool

	// HandleVideoOutcome returns the outcome spec of a video_check node.
	HandleVideoOutcome(node *domain.Node, outcome domain.VideoOutcome) (domain.OutcomeSpec, error)

	// SearchNodes matches titles in the engine's default language.
	SearchNodes(query string) []domain.SearchResult

	// Search matches titles resolved in lang.
	Search(query, lang string) []domain.SearchResult

	// CreateInitialState positions a fresh walk on the root.
	CreateInitialState() domain.WizardState
}
