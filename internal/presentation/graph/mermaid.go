package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/fixpath/pkg/domain"
)

// GraphOverlay contains session state to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromPath marks every segment of path as visited and the last one
// (or the root, for an empty path) as current.
func OverlayFromPath(tree *domain.DecisionTree, path []string) *GraphOverlay {
	current := tree.Root.ID
	if len(path) > 0 {
		current = path[len(path)-1]
	}
	return &GraphOverlay{
		VisitedNodes: append([]string{tree.Root.ID}, path...),
		CurrentNode:  current,
	}
}

// GenerateMermaid produces a Mermaid flowchart of the tree in pre-order.
// It applies semantic styling:
// - Root: ((Circle))
// - Video check: {{Hexagon}}
// - Leaf that starts a ticket: [/Parallelogram/]
// - Leaf that ends without a ticket: ([Stadium])
// - Branch: [Rectangle]
// Video outcomes are drawn as synthetic leaves on "yes"/"no" edges.
// Titles are resolved in lang.
func GenerateMermaid(tree *domain.DecisionTree, lang string, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	tree.Walk(func(n *domain.Node, _ []string) bool {
		safeID := sanitizeMermaidID(n.ID)
		writeNode(&sb, safeID, n.Title.Resolve(lang), shapeOf(n, n == tree.Root, n.OutcomeSpec))

		switch n.Type {
		case domain.NodeTypeBranch:
			for _, c := range n.Children {
				fmt.Fprintf(&sb, "    %s --> %s\n", safeID, sanitizeMermaidID(c.ID))
			}
		case domain.NodeTypeVideoCheck:
			for _, outcome := range []domain.VideoOutcome{domain.OutcomeYes, domain.OutcomeNo} {
				spec := n.Outcomes.Get(outcome)
				if spec == nil {
					// Missing outcomes are drawn so broken trees are visible.
					fmt.Fprintf(&sb, "    %s -. \"%s ⚠\" .-> %s_missing_%s[\"missing\"]\n", safeID, outcome, safeID, outcome)
					continue
				}
				outID := sanitizeMermaidID(n.ID + "." + string(outcome))
				label := spec.LeafReason
				if label == "" {
					label = string(spec.LeafType)
				}
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, outcome, outID)
				writeNode(&sb, outID, label, shapeOf(&domain.Node{Type: domain.NodeTypeLeaf}, false, *spec))
			}
		}
		return true
	})

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

type shape struct{ opener, closer string }

func shapeOf(n *domain.Node, root bool, spec domain.OutcomeSpec) shape {
	switch {
	case root:
		return shape{"((", "))"}
	case n.Type == domain.NodeTypeVideoCheck:
		return shape{"{{", "}}"}
	case n.Type == domain.NodeTypeLeaf && spec.LeafType == domain.LeafStartTicket:
		return shape{"[/", "/]"}
	case n.Type == domain.NodeTypeLeaf:
		return shape{"([", "])"}
	}
	return shape{"[", "]"}
}

func writeNode(sb *strings.Builder, safeID, label string, s shape) {
	fmt.Fprintf(sb, "    %s%s\"%s\"%s\n", safeID, s.opener, escapeLabel(label), s.closer)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
