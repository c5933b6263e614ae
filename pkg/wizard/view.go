package wizard

import (
	"slices"

	"github.com/aretw0/fixpath/pkg/domain"
)

// Breadcrumb is one step of the trail from the root to the current node.
// Path is the jump target for NavigateToPath.
type Breadcrumb struct {
	Label  string   `json:"label"`
	NodeID string   `json:"node_id"`
	Path   []string `json:"path"`
}

// Choice is a selectable child of the current branch.
type Choice struct {
	NodeID   string          `json:"node_id"`
	Title    string          `json:"title"`
	Type     domain.NodeType `json:"type"`
	Selected bool            `json:"selected,omitempty"`
}

// NodeView is the display form of a node in the wizard's language.
type NodeView struct {
	ID        string          `json:"node_id"`
	Type      domain.NodeType `json:"type"`
	Title     string          `json:"title"`
	VideoURL  string          `json:"video_url,omitempty"`
	Synthetic bool            `json:"synthetic,omitempty"`

	domain.OutcomeSpec
}

// View is everything a UI needs to render the current step.
type View struct {
	SessionID      string          `json:"session_id"`
	Phase          domain.Phase    `json:"phase"`
	Node           NodeView        `json:"node"`
	Path           []string        `json:"path"`
	Breadcrumbs    []Breadcrumb    `json:"breadcrumbs"`
	Options        []Choice        `json:"options"`
	OptionMissing  bool            `json:"option_missing"`
	SelectedChoice string          `json:"selected_choice,omitempty"`
	CanGoBack      bool            `json:"can_go_back"`
	TicketID       string          `json:"ticket_id,omitempty"`
	Notices        []domain.Notice `json:"notices"`
}

// Breadcrumbs derives the trail [Start, title(p1), ..., title(pn)].
// A segment that no longer resolves falls back to its node id.
func (w *Wizard) Breadcrumbs() []Breadcrumb {
	root := w.engine.Tree().Root
	crumbs := make([]Breadcrumb, 0, len(w.state.Path)+1)
	crumbs = append(crumbs, Breadcrumb{Label: StartLabel, NodeID: root.ID, Path: []string{}})

	for i, id := range w.state.Path {
		label := id
		if n, _ := w.resolve(w.state.Path[:i+1]); n != nil {
			label = n.Title.Resolve(w.lang)
		}
		crumbs = append(crumbs, Breadcrumb{
			Label:  label,
			NodeID: id,
			Path:   slices.Clone(w.state.Path[:i+1]),
		})
	}
	return crumbs
}

// Choices lists the children of the current branch in declaration order.
// The child picked last time at this level is marked Selected.
func (w *Wizard) Choices() []Choice {
	node := w.state.CurrentNode
	if node.Type != domain.NodeTypeBranch {
		return []Choice{}
	}
	out := make([]Choice, 0, len(node.Children))
	for _, c := range node.Children {
		out = append(out, Choice{
			NodeID:   c.ID,
			Title:    c.Title.Resolve(w.lang),
			Type:     c.Type,
			Selected: c.ID == w.state.SelectedChoice,
		})
	}
	return out
}

// OptionMissing reports whether the "my option is not listed" escape hatch
// applies to the current node.
func (w *Wizard) OptionMissing() bool {
	return w.engine.HasLeafChildren(w.state.CurrentNode)
}

// CanGoBack reports whether GoBack would move.
func (w *Wizard) CanGoBack() bool {
	return len(w.state.History) > 0
}

// Search matches node titles in the wizard's language. Each result path can
// be passed to NavigateToPath.
func (w *Wizard) Search(query string) []domain.SearchResult {
	return w.engine.Search(query, w.lang)
}

// View renders the current step. A halted wizard returns its error.
func (w *Wizard) View() (View, error) {
	if err := w.checkHalted(); err != nil {
		return View{}, err
	}
	node := w.state.CurrentNode
	phase, err := node.Phase()
	if err != nil {
		return View{}, w.halt(err)
	}

	notices := w.Notices()
	if notices == nil {
		notices = []domain.Notice{}
	}

	return View{
		SessionID: w.sessionID,
		Phase:     phase,
		Node: NodeView{
			ID:          node.ID,
			Type:        node.Type,
			Title:       node.Title.Resolve(w.lang),
			VideoURL:    node.VideoURL,
			OutcomeSpec: node.OutcomeSpec.Clone(),
			Synthetic:   node.Synthetic,
		},
		Path:           slices.Clone(w.state.Path),
		Breadcrumbs:    w.Breadcrumbs(),
		Options:        w.Choices(),
		OptionMissing:  w.OptionMissing(),
		SelectedChoice: w.state.SelectedChoice,
		CanGoBack:      w.CanGoBack(),
		TicketID:       w.TicketID(),
		Notices:        notices,
	}, nil
}
