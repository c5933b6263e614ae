/*
Package domain contains the core models of the Fixpath maintenance portal.

It defines the decision tree that drives the repair wizard, the session state
of a wizard walk, and the ticket records produced when a walk ends on a leaf
that requires support. This package is kept pure and free of I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - DecisionTree: An immutable, versioned tree of Nodes with a single root.
  - Node: A tagged union of branch, video_check and leaf variants.
  - OutcomeSpec: The terminal classification carried by leaves and video outcomes.
  - WizardState: The runtime snapshot of one session walking the tree.
  - Ticket: The draft (and later submitted) support request created from a leaf.
*/
package domain
