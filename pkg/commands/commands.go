// Package commands provides the faucetctl command groups.
//
// There are two ways to use commands from this package:
//
// 1. Via the Commands factory (recommended for most use cases):
//
//	cmds := commands.New(lggr)
//	root.AddCommand(cmds.Actions(commands.ActionsConfig{})...)
//	root.AddCommand(cmds.Manifest())
//
// 2. Via direct package imports (for advanced DI/testing):
//
//	import "github.com/flashfaucet/faucet-kit/pkg/commands/actions"
//
//	root.AddCommand(actions.NewCommands(actions.Config{
//	    Logger: lggr,
//	    Deps:   actions.Deps{...}, // inject fakes for testing
//	})...)
package commands

import (
	"github.com/spf13/cobra"

	"github.com/flashfaucet/faucet-kit/pkg/commands/actions"
	"github.com/flashfaucet/faucet-kit/pkg/commands/flags"
	"github.com/flashfaucet/faucet-kit/pkg/commands/manifest"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

// Commands provides a factory for creating CLI commands with shared configuration.
// This allows setting the logger once and reusing it across all commands.
type Commands struct {
	lggr logger.Logger
}

// New creates a new Commands factory with the given logger.
// The logger will be shared across all commands created by this factory.
func New(lggr logger.Logger) *Commands {
	return &Commands{lggr: lggr}
}

// ActionsConfig holds configuration for the faucet action commands.
type ActionsConfig struct {
	// Deps overrides how the config is loaded and the wallet connected. Nil fields use the
	// production defaults.
	Deps actions.Deps
}

// Actions creates the faucet action commands: balance, limits, info, status, request,
// transfer and add-token. The root command must define the --config flag, see [Root].
func (c *Commands) Actions(cfg ActionsConfig) []*cobra.Command {
	return actions.NewCommands(actions.Config{
		Logger: c.lggr,
		Deps:   cfg.Deps,
	})
}

// Manifest creates the manifest command group.
func (c *Commands) Manifest() *cobra.Command {
	return manifest.NewCommand(manifest.Config{
		Logger: c.lggr,
	})
}

// Root creates the faucetctl root command carrying the --config flag and every command group.
func (c *Commands) Root(cfg ActionsConfig) *cobra.Command {
	root := &cobra.Command{
		Use:           "faucetctl",
		Short:         "Request and transfer faucet tokens on EVM and Tron networks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.Config(root)

	root.AddCommand(c.Actions(cfg)...)
	root.AddCommand(c.Manifest())

	return root
}
