package domain

import (
	"strings"
	"time"
)

// TicketStatus is the lifecycle of a support ticket.
type TicketStatus string

const (
	TicketDraft     TicketStatus = "draft"
	TicketSubmitted TicketStatus = "submitted"
)

// TreeRef identifies the leaf of a specific tree publish that produced a ticket.
type TreeRef struct {
	ID         string   `json:"id"`
	Version    string   `json:"version"`
	NodeID     string   `json:"node_id"`
	LeafType   LeafType `json:"leaf_type"`
	LeafReason string   `json:"leaf_reason"`
}

// DraftRequest asks the ticket backend to create or return a draft.
type DraftRequest struct {
	SessionID string  `json:"sessionId"`
	ProfileID string  `json:"profile_id,omitempty"`
	Tree      TreeRef `json:"tree"`
}

// Owner returns the identity the draft belongs to: the profile when known,
// otherwise the anonymous session.
func (r DraftRequest) Owner() string {
	if r.ProfileID != "" {
		return r.ProfileID
	}
	return "session:" + r.SessionID
}

// IdempotencyKey is the dedup key of a draft: owner, tree, version, leaf, draft status.
func (r DraftRequest) IdempotencyKey() string {
	return strings.Join([]string{r.Owner(), r.Tree.ID, r.Tree.Version, r.Tree.NodeID, string(TicketDraft)}, "|")
}

// DraftTicket is the backend response to a DraftRequest.
type DraftTicket struct {
	TicketID string `json:"ticket_id"`
	// Created is false when an existing draft was returned.
	Created bool `json:"created"`
}

// Contact describes how the tenant can be reached.
type Contact struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Preferred string `json:"preferred,omitempty"`
}

// IsZero reports whether no contact detail is set.
func (c Contact) IsZero() bool {
	return c == Contact{}
}

// TicketPatch is a partial update of a draft. Nil fields are left untouched.
type TicketPatch struct {
	Description *string        `json:"description,omitempty"`
	Contact     *Contact       `json:"contact,omitempty"`
	Answers     map[string]any `json:"answers,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TicketPatch) IsEmpty() bool {
	return p.Description == nil && p.Contact == nil && len(p.Answers) == 0
}

// Ticket is a support request record as held by the backend.
type Ticket struct {
	ID          string         `json:"ticket_id"`
	Owner       string         `json:"owner"`
	SessionID   string         `json:"session_id"`
	Tree        TreeRef        `json:"tree"`
	Status      TicketStatus   `json:"status"`
	Description string         `json:"description,omitempty"`
	Contact     Contact        `json:"contact"`
	Answers     map[string]any `json:"answers,omitempty"`
	Media       []Upload       `json:"media,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
}

// Apply merges a patch into the ticket. Answers are merged key by key.
func (t *Ticket) Apply(p TicketPatch) {
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Contact != nil {
		t.Contact = *p.Contact
	}
	if len(p.Answers) > 0 {
		if t.Answers == nil {
			t.Answers = make(map[string]any, len(p.Answers))
		}
		for k, v := range p.Answers {
			t.Answers[k] = v
		}
	}
}

// FileSpec describes a file the client wants to upload.
type FileSpec struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Upload is a signed, single-use upload slot for one file.
type Upload struct {
	MediaID     string `json:"media_id"`
	PutURL      string `json:"put_url"`
	StoragePath string `json:"storage_path"`
}

// SignedUploads is the Media-Sign collaborator response.
type SignedUploads struct {
	Uploads []Upload `json:"uploads"`
}
