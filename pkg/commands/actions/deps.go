// Package actions provides the faucetctl commands running the faucet actions of a wallet.
package actions

import (
	"context"

	"github.com/flashfaucet/faucet-kit/config"
	"github.com/flashfaucet/faucet-kit/faucet"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

// Runtime is a faucet service connected to a wallet session.
type Runtime struct {
	Service *faucet.Service
	// Close releases the node connections and background workers of the runtime.
	Close func()
}

// ConfigLoaderFunc loads the config from the file at path.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// RuntimeLoaderFunc connects a faucet service for cfg.
type RuntimeLoaderFunc func(ctx context.Context, cfg *config.Config, lggr logger.Logger) (*Runtime, error)

// Deps holds the injectable dependencies of the action commands.
// All fields are optional; nil values use production defaults.
type Deps struct {
	// ConfigLoader loads the config.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// RuntimeLoader connects the faucet service.
	// Default: NewRuntime
	RuntimeLoader RuntimeLoaderFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.RuntimeLoader == nil {
		d.RuntimeLoader = NewRuntime
	}
}
