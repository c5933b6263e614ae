package domain

import (
	"maps"
	"time"
)

// Phase is the wizard state derived from the current node.
// It is never stored; it is computed from the node type and leaf type.
type Phase string

const (
	PhaseBranch      Phase = "at_branch"
	PhaseVideoCheck  Phase = "at_video_check"
	PhaseNoTicket    Phase = "at_terminal_no_ticket"
	PhaseStartTicket Phase = "at_terminal_start_ticket"
)

// IsTerminal reports whether no forward selection is possible.
func (p Phase) IsTerminal() bool {
	return p == PhaseNoTicket || p == PhaseStartTicket
}

// WizardState is the session-scoped position of a walk through the tree.
type WizardState struct {
	// CurrentNode is the node the user is looking at.
	CurrentNode *Node

	// Path holds the node ids from the root (exclusive) to CurrentNode.
	Path []string

	// History is a stack of prior Path values; the top is the last entry.
	History [][]string

	// SelectedChoice is the child picked at the previous level.
	SelectedChoice string
}

// Clone returns a deep copy of the path data. CurrentNode is shared.
func (s WizardState) Clone() WizardState {
	out := s
	out.Path = cloneStrings(s.Path)
	if s.History != nil {
		out.History = make([][]string, len(s.History))
		for i, p := range s.History {
			out.History[i] = cloneStrings(p)
		}
	}
	return out
}

// NoticeKind categorizes a dismissible notice.
type NoticeKind string

const (
	NoticeDraftFailed NoticeKind = "draft_failed"
	NoticeDraftReady  NoticeKind = "draft_ready"
)

// Notice is a non-blocking message surfaced to the user, such as a failed
// draft creation. Navigation is never rolled back because of it.
type Notice struct {
	ID      int        `json:"id"`
	Kind    NoticeKind `json:"kind"`
	NodeID  string     `json:"node_id,omitempty"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// Snapshot is the serializable form of a wizard session.
// CurrentNode is not stored; it is re-resolved from Path on restore.
// Tickets maps each start_ticket leaf to its draft id, and TicketID repeats
// the entry of the leaf at the end of Path.
type Snapshot struct {
	SessionID      string            `json:"session_id"`
	ProfileID      string            `json:"profile_id,omitempty"`
	TreeID         string            `json:"tree_id"`
	TreeVersion    string            `json:"tree_version"`
	Language       string            `json:"language,omitempty"`
	Path           []string          `json:"path"`
	History        [][]string        `json:"history"`
	SelectedChoice string            `json:"selected_choice,omitempty"`
	TicketID       string            `json:"ticket_id,omitempty"`
	Tickets        map[string]string `json:"tickets,omitempty"`
	Notices        []Notice          `json:"notices,omitempty"`
	Halted         string            `json:"halted,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`

	// Sealed holds the encrypted snapshot when a store encrypts at rest.
	// Every other field except the identifiers is empty in that case.
	Sealed string `json:"sealed,omitempty"`
}

// SearchResult is one hit of a title search.
type SearchResult struct {
	NodeID string   `json:"node_id"`
	Title  string   `json:"title"`
	Type   NodeType `json:"type"`
	// Path is root-exclusive and ends with NodeID, so it can be passed
	// straight to a path jump. It is empty when the root matched.
	Path    []string `json:"path"`
	Matched bool     `json:"matched"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Path = cloneStrings(s.Path)
	if s.History != nil {
		out.History = make([][]string, len(s.History))
		for i, p := range s.History {
			out.History[i] = cloneStrings(p)
		}
	}
	if s.Notices != nil {
		out.Notices = append([]Notice(nil), s.Notices...)
	}
	out.Tickets = maps.Clone(s.Tickets)
	return &out
}
