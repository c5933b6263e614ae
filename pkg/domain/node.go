package domain

import "fmt"

// NodeType is the discriminator of the Node tagged union.
type NodeType string

const (
	// NodeTypeBranch has navigable children and no terminal outcome.
	NodeTypeBranch NodeType = "branch"
	// NodeTypeVideoCheck shows a self-help video gated by a yes/no outcome.
	// It has no navigable children.
	NodeTypeVideoCheck NodeType = "video_check"
	// NodeTypeLeaf is terminal and carries a LeafType classification.
	NodeTypeLeaf NodeType = "leaf"
)

// LeafType classifies how a walk ends.
type LeafType string

const (
	// LeafEndNoTicket means the issue is resolved or needs no support ticket.
	LeafEndNoTicket LeafType = "end_no_ticket"
	// LeafStartTicket means a support ticket must be produced.
	LeafStartTicket LeafType = "start_ticket"
)

// LeafReasonStandardWizard is the leaf reason of the regular ticket flow.
// Finalizing such a ticket requires a minimum description length.
const LeafReasonStandardWizard = "standard_wizard"

// VideoOutcome is the user signal that resolves a video_check node.
type VideoOutcome string

const (
	OutcomeYes VideoOutcome = "yes"
	OutcomeNo  VideoOutcome = "no"
)

// ParseVideoOutcome accepts "yes" or "no" (case-sensitive).
func ParseVideoOutcome(s string) (VideoOutcome, error) {
	switch VideoOutcome(s) {
	case OutcomeYes, OutcomeNo:
		return VideoOutcome(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// OutcomeSpec holds the terminal classification of a leaf.
// Video outcomes embed the same shape without a node id of their own.
type OutcomeSpec struct {
	LeafType       LeafType `json:"leaf_type,omitempty" yaml:"leaf_type,omitempty"`
	LeafReason     string   `json:"leaf_reason,omitempty" yaml:"leaf_reason,omitempty"`
	RequiredFields []string `json:"required_fields,omitempty" yaml:"required_fields,omitempty"`
	Flow           []string `json:"flow,omitempty" yaml:"flow,omitempty"`
	QuestionGroups []string `json:"question_groups,omitempty" yaml:"question_groups,omitempty"`
}

// Clone returns a copy that shares no slices with the receiver.
func (o OutcomeSpec) Clone() OutcomeSpec {
	o.RequiredFields = cloneStrings(o.RequiredFields)
	o.Flow = cloneStrings(o.Flow)
	o.QuestionGroups = cloneStrings(o.QuestionGroups)
	return o
}

// Outcomes are the two branches of a video_check node.
// A nil entry is a tree integrity error detected when the outcome is chosen.
type Outcomes struct {
	Yes *OutcomeSpec `json:"yes,omitempty" yaml:"yes,omitempty"`
	No  *OutcomeSpec `json:"no,omitempty" yaml:"no,omitempty"`
}

// Get returns the definition of the outcome, or nil if it is missing.
func (o *Outcomes) Get(outcome VideoOutcome) *OutcomeSpec {
	if o == nil {
		return nil
	}
	switch outcome {
	case OutcomeYes:
		return o.Yes
	case OutcomeNo:
		return o.No
	}
	return nil
}

// Node is one point of the decision tree.
// Type selects which of the variant fields are meaningful:
//   - branch: Children
//   - video_check: VideoURL, Outcomes
//   - leaf: the embedded OutcomeSpec
//
// Nodes reachable from a DecisionTree must not be mutated.
type Node struct {
	ID    string        `json:"node_id" yaml:"node_id"`
	Type  NodeType      `json:"type" yaml:"type"`
	Title LocalizedText `json:"title" yaml:"title"`

	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`

	VideoURL string    `json:"video_url,omitempty" yaml:"video_url,omitempty"`
	Outcomes *Outcomes `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`

	OutcomeSpec `yaml:",inline"`

	// Synthetic marks a leaf built from a video outcome at traversal time.
	Synthetic bool `json:"synthetic,omitempty" yaml:"-"`
}

// Child returns the direct child with the given id, or nil.
func (n *Node) Child(id string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c != nil && c.ID == id {
			return c
		}
	}
	return nil
}

// Phase derives the wizard phase for a node positioned as the current node.
func (n *Node) Phase() (Phase, error) {
	if n == nil {
		return "", &TreeIntegrityError{Reason: "nil node"}
	}
	switch n.Type {
	case NodeTypeBranch:
		return PhaseBranch, nil
	case NodeTypeVideoCheck:
		return PhaseVideoCheck, nil
	case NodeTypeLeaf:
		switch n.LeafType {
		case LeafStartTicket:
			return PhaseStartTicket, nil
		case LeafEndNoTicket:
			return PhaseNoTicket, nil
		}
		return "", &TreeIntegrityError{NodeID: n.ID, Reason: fmt.Sprintf("unknown leaf_type %q", n.LeafType)}
	default:
		return "", &TreeIntegrityError{NodeID: n.ID, Reason: fmt.Sprintf("type %q", n.Type), Err: ErrUnknownNodeType}
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
