// Package manifest provides the faucetctl commands inspecting deployment manifests and the
// contract addresses resolved from them.
package manifest

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/config"
	"github.com/flashfaucet/faucet-kit/datastore"
	"github.com/flashfaucet/faucet-kit/pkg/commands/flags"
	"github.com/flashfaucet/faucet-kit/pkg/commands/text"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

// Config holds the configuration of the manifest commands.
type Config struct {
	// Logger is the logger of the address resolver. Required.
	Logger logger.Logger

	// ConfigLoader loads the faucet config. Default: config.Load
	ConfigLoader func(path string) (*config.Config, error)

	// Client fetches remote manifests. Default: a resty client with datastore.DefaultManifestTimeout.
	Client *resty.Client
}

func (c *Config) applyDefaults() {
	if c.ConfigLoader == nil {
		c.ConfigLoader = config.Load
	}
	if c.Client == nil {
		c.Client = resty.New().SetTimeout(datastore.DefaultManifestTimeout)
	}
}

var (
	showLong = text.LongDesc(`
		Load a deployment manifest and print the contract addresses it lists.

		The source is an http(s) URL or a file path; JSON and YAML are accepted. Entries with
		malformed addresses are reported and skipped, as the address resolver does.
	`)
	showExample = text.Examples(`
		faucetctl manifest show https://faucet.example.com/deployment-info.json
		faucetctl manifest show ./deployment-info.json
	`)

	addressesLong = text.LongDesc(`
		Print the contract addresses the faucet would use: the compiled-in defaults, overridden
		by the config and then by the configured deployment manifest. With --family only that
		chain family is printed.
	`)
	addressesExample = text.Examples(`
		faucetctl manifest addresses
		faucetctl manifest addresses --family tron
	`)
)

// NewCommand returns the manifest command group.
func NewCommand(cfg Config) *cobra.Command {
	cfg.applyDefaults()

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Deployment manifest commands",
	}
	cmd.AddCommand(newShowCmd(cfg), newAddressesCmd(cfg))

	return cmd
}

func newShowCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:     "show <source>",
		Short:   "Print the contract addresses of a manifest",
		Long:    showLong,
		Example: showExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), datastore.DefaultManifestTimeout)
			defer cancel()

			m, err := datastore.LoadManifest(ctx, cfg.Client, args[0])
			if err != nil {
				return err
			}

			refs, invalid := m.Refs()
			if invalid != nil {
				cmd.PrintErrf("Skipped malformed entries: %v\n", invalid)
			}

			return printYAML(cmd, refs)
		},
	}
}

func newAddressesCmd(cfg Config) *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:     "addresses",
		Short:   "Print the resolved contract addresses",
		Long:    addressesLong,
		Example: addressesExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			families := chain.Families
			if family != "" {
				f, err := chain.ParseFamily(family)
				if err != nil {
					return err
				}
				families = []chain.Family{f}
			}

			conf, err := cfg.ConfigLoader(flags.MustString(cmd.Flags().GetString("config")))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			resolver, err := datastore.NewResolver(
				datastore.WithManifestSource(conf.Manifest.URL),
				datastore.WithOverrides(conf.AddressOverrides()),
				datastore.WithLogger(cfg.Logger),
			)
			if err != nil {
				return err
			}
			if err := resolver.Refresh(cmd.Context()); err != nil {
				cmd.PrintErrf("Manifest not loaded, showing fallback addresses: %v\n", err)
			}

			resolved := make(map[chain.Family]datastore.Addresses, len(families))
			for _, f := range families {
				resolved[f] = resolver.Resolve(f)
			}

			return printYAML(cmd, resolved)
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "only print the addresses of this chain family (evm or tron)")

	return cmd
}

func printYAML(cmd *cobra.Command, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode addresses: %w", err)
	}
	cmd.Print(string(out))

	return nil
}
