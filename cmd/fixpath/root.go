package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/fixpath"
	"github.com/aretw0/fixpath/internal/cli"
	"github.com/aretw0/fixpath/internal/config"
	"github.com/aretw0/fixpath/pkg/adapters/file"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/spf13/cobra"
)

// newRootCmd assembles the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fixpath",
		Short: "Fixpath is a tenant maintenance portal driven by a decision tree",
		Long: `Fixpath walks tenants through a decision tree of household problems.
A path ends in self-help, a video check or a maintenance ticket.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "Config file (default fixpath.yaml when present)")
	flags.StringP("tree", "t", "", "Decision tree file (.json, .jsonc, .yaml)")
	flags.String("lang", "", "Display language (en, nl)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newMCPCmd(),
		newGraphCmd(),
		newValidateCmd(),
		newSearchCmd(),
		newSessionCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies the
// global flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	override := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	override("tree", &cfg.Tree)
	override("lang", &cfg.Language)
	override("log-level", &cfg.LogLevel)
	override("log-format", &cfg.LogFormat)
	return cfg, nil
}

// openPortal loads the configuration and wires a portal, logging to stderr.
func openPortal(cmd *cobra.Command) (*fixpath.Portal, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cli.NewLogger(cfg, cmd.ErrOrStderr())
	return fixpath.Open(contextOf(cmd), cfg, fixpath.WithLogger(logger))
}

// loadTree reads only the decision tree named by the configuration.
func loadTree(cmd *cobra.Command) (*domain.DecisionTree, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}
	logger := cli.NewLogger(cfg, cmd.ErrOrStderr())
	tree, err := file.NewLoader(cfg.Tree, file.WithLogger(logger)).Load(contextOf(cmd))
	return tree, cfg, err
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
