// Command faucetctl requests and transfers faucet tokens on EVM and Tron networks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/flashfaucet/faucet-kit/config"
	"github.com/flashfaucet/faucet-kit/pkg/commands"
	"github.com/flashfaucet/faucet-kit/pkg/commands/flags"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

var (
	loadDotenv = func() error { return godotenv.Load() }
	loadConfig = config.Load
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// a missing .env is the common case
	_ = loadDotenv()

	lggr, err := newLogger(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		return 1
	}
	defer func() { _ = lggr.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := commands.New(lggr).Root(commands.ActionsConfig{})
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	return 0
}

// newLogger builds the logger the config named on the command line asks for. A config that fails
// to load logs JSON at info; the command reports the load error itself.
func newLogger(args []string) (logger.Logger, error) {
	cfg := logger.Config{}
	if conf, err := loadConfig(flags.PeekConfig(args)); err == nil {
		cfg.Level, _ = conf.LogLevel()
		cfg.Format = conf.Log.Format
	}

	lggr, err := cfg.New()
	if err != nil && cfg.Format != "" {
		cfg.Format = ""
		return cfg.New()
	}

	return lggr, err
}
