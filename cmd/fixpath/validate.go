package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the decision tree",
		Long: `Validates the configuration and loads the tree, then checks every node:
ids are unique, leaves carry an outcome and video checks define both answers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			tree, _, err := loadTree(cmd)
			if err != nil {
				return err
			}
			if err := tree.Validate(); err != nil {
				out := cmd.ErrOrStderr()
				if problems := domain.ValidationErrors(err); problems != nil {
					for _, p := range problems {
						fmt.Fprintf(out, "  - %v\n", p)
					}
				}
				return errors.New("tree is invalid")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tree %s@%s is valid (%d nodes).\n", tree.ID, tree.Version, tree.Len())
			return nil
		},
	}
}
