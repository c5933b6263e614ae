package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/fixpath/internal/runtime"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search node titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, cfg, err := loadTree(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			engine := runtime.NewEngine(tree, runtime.WithLanguage(cfg.Language), runtime.WithSearchLimit(limit))

			results := engine.SearchNodes(strings.Join(args, " "))
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NODE\tTYPE\tTITLE\tPATH")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.NodeID, r.Type, r.Title, strings.Join(r.Path, "/"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int("limit", runtime.DefaultSearchLimit, "Maximum number of results")
	return cmd
}
