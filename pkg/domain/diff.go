package domain

import "slices"

// SnapshotDiff represents the changes between two snapshots of a session.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Path is set when the position changed.
	Path *[]string `json:"path,omitempty"`

	// HistoryDepth is set when the back stack grew or shrank.
	HistoryDepth *int `json:"history_depth,omitempty"`

	// TicketID is set when a draft id became known.
	TicketID *string `json:"ticket_id,omitempty"`

	// Notices contains notices added since the old snapshot.
	Notices []Notice `json:"notices,omitempty"`
}

// Diff calculates the difference between old and new.
// If old is nil, it returns a diff representing the entire new snapshot.
// It returns nil when nothing changed.
func Diff(old, new *Snapshot) *SnapshotDiff {
	if new == nil {
		return nil
	}

	diff := &SnapshotDiff{SessionID: new.SessionID}

	if old == nil || !slices.Equal(old.Path, new.Path) {
		p := slices.Clone(new.Path)
		if p == nil {
			p = []string{}
		}
		diff.Path = &p
	}
	if old == nil || len(old.History) != len(new.History) {
		depth := len(new.History)
		diff.HistoryDepth = &depth
	}
	if (old == nil && new.TicketID != "") || (old != nil && old.TicketID != new.TicketID) {
		id := new.TicketID
		diff.TicketID = &id
	}
	diff.Notices = diffNotices(old, new)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffNotices(old, new *Snapshot) []Notice {
	seen := make(map[int]bool)
	if old != nil {
		for _, n := range old.Notices {
			seen[n.ID] = true
		}
	}
	var added []Notice
	for _, n := range new.Notices {
		if !seen[n.ID] {
			added = append(added, n)
		}
	}
	return added
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.Path == nil &&
		d.HistoryDepth == nil &&
		d.TicketID == nil &&
		len(d.Notices) == 0
}
