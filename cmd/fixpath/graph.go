package main

import (
	"fmt"

	"github.com/aretw0/fixpath/internal/presentation/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the decision tree as a Mermaid diagram",
		Long: `Prints a Mermaid flowchart of the tree. With --path the nodes along that
path are highlighted, as a session at that path would see them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, cfg, err := loadTree(cmd)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetStringSlice("path")

			var overlay *graph.GraphOverlay
			if len(path) > 0 {
				overlay = graph.OverlayFromPath(tree, path)
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(tree, cfg.Language, overlay))
			return nil
		},
	}

	cmd.Flags().StringSlice("path", nil, "Comma separated node ids to highlight")
	return cmd
}
