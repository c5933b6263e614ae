package main

import (
	"fmt"

	"github.com/aretw0/fixpath"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of fixpath",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fixpath version %s\n", fixpath.Version)
		},
	}
}
