/*
Package fixpath is a tenant maintenance portal built on a decision tree.

A tenant walks the tree from its root, one choice at a time, until the path
ends in a leaf or a video check. Leaves either close the conversation
("end_no_ticket") or open a maintenance ticket ("start_ticket"). Video checks
show a self-help video and branch on whether it solved the problem.

# Architecture

The portal is split the hexagonal way:

  - pkg/domain holds the tree, snapshots and errors.
  - internal/runtime is the engine: lookup, resolution and search over one tree.
  - pkg/wizard is the per-session state machine driving the engine.
  - pkg/session serializes wizard operations per session and persists them.
  - pkg/tickets validates and submits the ticket form.
  - pkg/adapters provides the stores, ticket backends and the HTTP and MCP surfaces.

# Usage

	cfg, err := config.Load("fixpath.yaml")
	if err != nil {
		log.Fatal(err)
	}
	portal, err := fixpath.Open(ctx, cfg, fixpath.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	defer portal.Close()

	srv, err := portal.HTTPServer()
	if err != nil {
		log.Fatal(err)
	}
	handler, err := srv.Handler()
	if err != nil {
		log.Fatal(err)
	}
	log.Fatal(http.ListenAndServe(cfg.Listen, handler))

The fixpath command wraps the same wiring: "fixpath run" walks the tree in the
terminal, "fixpath serve" exposes the HTTP API and "fixpath mcp" the MCP tools.
*/
package fixpath
