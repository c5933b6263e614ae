package main

import (
	"os"

	"github.com/aretw0/fixpath/internal/cli"
	"github.com/aretw0/fixpath/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Walk the decision tree in the terminal",
		Long: `Starts an interactive wizard session. Choose options by number, search
with /text, answer video checks with y or n, go back with b and quit with q.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := openPortal(cmd)
			if err != nil {
				return err
			}
			defer portal.Close()

			sessionID, _ := cmd.Flags().GetString("session")
			fresh, _ := cmd.Flags().GetBool("fresh")
			plain, _ := cmd.Flags().GetBool("plain")
			quiet, _ := cmd.Flags().GetBool("quiet")
			lang := ""
			if cmd.Flags().Changed("lang") {
				lang = portal.Config.Language
			}

			renderer := tui.PlainRenderer
			if !plain && cli.IsTerminal(os.Stdout) {
				renderer = tui.NewRenderer(cli.TerminalWidth(os.Stdout))
			}

			sigCtx := cli.NewSignalContext(contextOf(cmd))
			defer sigCtx.Cancel()

			return cli.Run(sigCtx, portal, cmd.InOrStdin(), cmd.OutOrStdout(), cli.RunOptions{
				SessionID: sessionID,
				Language:  lang,
				Fresh:     fresh,
				Quiet:     quiet,
				Renderer:  renderer,
			})
		},
	}

	cmd.Flags().StringP("session", "s", "", "Session id to create or resume (generated when empty)")
	cmd.Flags().Bool("fresh", false, "Discard the stored session before starting")
	cmd.Flags().Bool("plain", false, "Print raw markdown instead of styled output")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress the banner and system messages")
	return cmd
}
