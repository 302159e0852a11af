package actions

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flashfaucet/faucet-kit/chain/contract"
	"github.com/flashfaucet/faucet-kit/faucet"
	"github.com/flashfaucet/faucet-kit/pkg/commands/flags"
	"github.com/flashfaucet/faucet-kit/pkg/commands/text"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

// Config holds the configuration of the action commands.
type Config struct {
	// Logger is the logger passed to the faucet runtime. Required.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// NewCommands returns the faucet action commands. They read the --config flag, which the
// root command is expected to define with flags.Config.
func NewCommands(cfg Config) []*cobra.Command {
	cfg.deps()

	return []*cobra.Command{
		newBalanceCmd(cfg),
		newLimitsCmd(cfg),
		newInfoCmd(cfg),
		newStatusCmd(cfg),
		newRequestCmd(cfg),
		newTransferCmd(cfg),
		newAddTokenCmd(cfg),
	}
}

var (
	balanceExample = text.Examples(`
		# Balance of the configured wallet
		faucetctl balance

		# Balance of another account
		faucetctl balance TXktmJ2n7aY2Tv4mj3Pf5Po2i3r9iKYEhx
	`)

	requestLong = text.LongDesc(`
		Ask the faucet for tokens.

		The request is checked on chain against the cooldown, the maximum request amount
		and the daily cap. Without --wait the command returns once the transaction is
		broadcast.
	`)
	requestExample = text.Examples(`
		# Request 100 tokens and wait for the outcome
		faucetctl request 100 --wait
	`)

	transferExample = text.Examples(`
		faucetctl transfer 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 2.5 --wait
	`)
)

func newBalanceCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:     "balance [account]",
		Short:   "Show the token balance of an account",
		Example: balanceExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, func(ctx context.Context, s *faucet.Service) error {
				balance, err := s.Balance(ctx, optionalArg(args))
				if err != nil {
					return err
				}
				cmd.Printf("Balance: %s %s\n", balance, faucet.TokenSymbol)

				return nil
			})
		},
	}
}

func newLimitsCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Show the faucet request limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfg, func(ctx context.Context, s *faucet.Service) error {
				maxAmount, err := s.MaxRequestAmount(ctx)
				if err != nil {
					return err
				}
				dailyCap, err := s.DailyCap(ctx)
				if err != nil {
					return err
				}
				cooldown, err := s.Cooldown(ctx)
				if err != nil {
					return err
				}

				cmd.Printf("Max request amount: %s %s\n", maxAmount, faucet.TokenSymbol)
				cmd.Printf("Daily cap: %s %s\n", dailyCap, faucet.TokenSymbol)
				cmd.Printf("Cooldown: %s\n", cooldown)

				return nil
			})
		},
	}
}

func newInfoCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "info [account]",
		Short: "Show the faucet usage of an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, func(ctx context.Context, s *faucet.Service) error {
				info, err := s.UserInfo(ctx, optionalArg(args))
				if err != nil {
					return err
				}

				cmd.Printf("Claimed today: %s %s\n", info.ClaimedToday, faucet.TokenSymbol)
				cmd.Printf("Remaining cap: %s %s\n", info.RemainingCap, faucet.TokenSymbol)
				cmd.Printf("Requests: %d\n", info.RequestCount)
				if info.TimeUntilNextRequest > 0 {
					cmd.Printf("Next request in: %s\n", info.TimeUntilNextRequest)
				} else {
					cmd.Println("Next request: now")
				}

				return nil
			})
		},
	}
}

func newStatusCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status [account]",
		Short: "Show whether the faucet accepts requests from an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, func(ctx context.Context, s *faucet.Service) error {
				status, err := s.Status(ctx, optionalArg(args))
				if err != nil {
					return err
				}

				cmd.Printf("Paused: %t\n", status.Paused)
				cmd.Printf("Blacklisted: %t\n", status.Blacklisted)

				return nil
			})
		},
	}
}

func newRequestCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "request <amount>",
		Short:   "Request tokens from the faucet",
		Long:    requestLong,
		Example: requestExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, func(ctx context.Context, s *faucet.Service) error {
				pending, err := s.RequestTokens(ctx, args[0])
				if err != nil {
					return err
				}

				return report(ctx, cmd, pending)
			})
		},
	}
	flags.Wait(cmd)

	return cmd
}

func newTransferCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transfer <recipient> <amount>",
		Short:   "Transfer tokens to another account",
		Example: transferExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, func(ctx context.Context, s *faucet.Service) error {
				pending, err := s.TransferTokens(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				return report(ctx, cmd, pending)
			})
		},
	}
	flags.Wait(cmd)

	return cmd
}

func newAddTokenCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add-token",
		Short: "Ask the wallet to track the faucet token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfg, func(ctx context.Context, s *faucet.Service) error {
				added, err := s.WatchToken(ctx)
				if err != nil {
					return err
				}
				if added {
					cmd.Printf("%s added to the wallet\n", faucet.TokenSymbol)
				} else {
					cmd.Printf("Could not add %s, check the network and try again\n", faucet.TokenSymbol)
				}

				return nil
			})
		},
	}
}

// run loads the config, connects the runtime and runs fn with its service. Failures of fn are
// prefixed with the message shown to wallet users.
func run(cmd *cobra.Command, cfg Config, fn func(ctx context.Context, s *faucet.Service) error) error {
	deps := cfg.deps()

	conf, err := deps.ConfigLoader(flags.MustString(cmd.Flags().GetString("config")))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rt, err := deps.RuntimeLoader(cmd.Context(), conf, cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect wallet: %w", err)
	}
	defer rt.Close()

	if err := fn(cmd.Context(), rt.Service); err != nil {
		return fmt.Errorf("%s: %w", faucet.Message(err), err)
	}

	return nil
}

func report(ctx context.Context, cmd *cobra.Command, pending *contract.PendingTransaction) error {
	cmd.Printf("Transaction sent: %s\n", pending.ID)
	if !flags.MustBool(cmd.Flags().GetBool("wait")) {
		return nil
	}

	outcome, err := pending.AwaitOutcome(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Transaction %s: %s\n", outcome.TransactionID, outcome.Status)

	return outcome.Err()
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}
