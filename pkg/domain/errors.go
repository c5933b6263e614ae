package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTreeIntegrity matches every *TreeIntegrityError via errors.Is.
	ErrTreeIntegrity = errors.New("tree integrity violation")

	// ErrUnknownNodeType is wrapped when a node carries an unrecognized type tag.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrNotAtVideoCheck is returned when a video outcome is submitted while
	// the wizard is not positioned on a video_check node.
	ErrNotAtVideoCheck = errors.New("current node is not a video check")

	// ErrInvalidOutcome is returned for outcome values other than yes/no.
	ErrInvalidOutcome = errors.New("invalid video outcome")

	// ErrWizardHalted is returned by every operation of a wizard that hit a
	// tree integrity error earlier in the session.
	ErrWizardHalted = errors.New("wizard halted")

	// ErrTreeVersionMismatch is returned when restoring a snapshot taken
	// against another tree or tree version.
	ErrTreeVersionMismatch = errors.New("snapshot belongs to a different tree version")

	// ErrTicketNotFound is returned when a ticket ID is unknown to the backend.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrTicketNotDraft is returned when mutating a ticket that is no longer a draft.
	ErrTicketNotDraft = errors.New("ticket is not a draft")

	// ErrNoTicket is returned when a ticket action is requested for a session
	// that has not produced a draft yet.
	ErrNoTicket = errors.New("session has no draft ticket")

	// ErrTicketLeafMismatch is returned when a draft belongs to another leaf
	// than the one the session is on.
	ErrTicketLeafMismatch = errors.New("ticket belongs to a different leaf")
)

// TreeIntegrityError reports a malformed tree publish.
// It is a data bug, never a user-input condition.
type TreeIntegrityError struct {
	NodeID string
	Reason string
	Err    error
}

func (e *TreeIntegrityError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("tree integrity: %s", e.Reason)
	}
	return fmt.Sprintf("tree integrity: node %q: %s", e.NodeID, e.Reason)
}

func (e *TreeIntegrityError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTreeIntegrity) true for any TreeIntegrityError.
func (e *TreeIntegrityError) Is(target error) bool { return target == ErrTreeIntegrity }

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Key    string // Field name
	Reason string // Human-readable reason for failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual failures to errors.Is/As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
