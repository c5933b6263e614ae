/*
Package ports defines the driven ports (interfaces) of the Fixpath core.

These interfaces decouple the wizard from external implementations, allowing
it to work with various tree sources, session stores and ticket backends.

# Key Interfaces

  - TreeLoader: Produces a DecisionTree (e.g., from a JSON/YAML file or memory).
  - TreeEngine: Stateless structural queries over one tree.
  - WizardStore: Persists and loads wizard session snapshots.
  - DistributedLocker: Provides distributed locking for concurrent session access.
  - TicketService: The ticket backend (draft, update, finalize, media signing).
*/
package ports
