// Package wizard implements the per-session state machine that walks a
// decision tree.
//
// A Wizard owns one domain.WizardState and mediates every transition through
// a ports.TreeEngine. The phase is never stored; it is derived from the
// current node. Landing on a start_ticket leaf dispatches a draft request to
// the configured ports.TicketDrafter without blocking navigation.
//
// A Wizard is not safe for concurrent use by multiple goroutines, except for
// the draft bookkeeping (TicketID, Notices, Wait) which may race with
// in-flight dispatches.
package wizard
