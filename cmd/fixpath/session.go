package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage stored wizard sessions",
		Long:  `List, inspect and remove sessions in the configured session store.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := openPortal(cmd)
			if err != nil {
				return err
			}
			defer portal.Close()

			sessions, err := portal.Manager.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No stored sessions.")
				return nil
			}
			fmt.Fprintln(out, "Sessions:")
			for _, s := range sessions {
				fmt.Fprintln(out, "- "+s)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "inspect <session-id>",
		Short: "Print the snapshot of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := openPortal(cmd)
			if err != nil {
				return err
			}
			defer portal.Close()

			snap, err := portal.Manager.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load session '%s': %w", args[0], err)
			}
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <session-id>...",
		Short: "Remove one or more sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := openPortal(cmd)
			if err != nil {
				return err
			}
			defer portal.Close()

			var errs []error
			for _, id := range args {
				if err := portal.Manager.Delete(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("remove '%s': %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
			}
			return errors.Join(errs...)
		},
	})
	return cmd
}
