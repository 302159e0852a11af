// Package config loads the faucet kit configuration from a file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/evm"
	"github.com/flashfaucet/faucet-kit/chain/tron"
	"github.com/flashfaucet/faucet-kit/chain/tron/rpcclient"
	"github.com/flashfaucet/faucet-kit/datastore"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

type ChainConfig struct {
	Selector uint64 `mapstructure:"selector" yaml:"selector"` // The chain selector of the network to connect to. Selects the chain family.
}

type EVMConfig struct {
	RPCURL        string   `mapstructure:"rpc_url" yaml:"rpc_url"`                 // The JSON-RPC endpoint of the EVM node
	BackupRPCURLs []string `mapstructure:"backup_rpc_urls" yaml:"backup_rpc_urls"` // Endpoints tried in order when the primary fails
	PrivateKey    string   `mapstructure:"private_key" yaml:"private_key"`         // Secret: The private key of the account requesting tokens.
}

type TronConfig struct {
	FullHost   string        `mapstructure:"full_host" yaml:"full_host"`     // The base URL of the Tron node HTTP API
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`         // Secret: Sent as the TRON-PRO-API-KEY header
	PrivateKey string        `mapstructure:"private_key" yaml:"private_key"` // Secret: The private key of the account requesting tokens.
	FeeLimit   int64         `mapstructure:"fee_limit" yaml:"fee_limit"`     // Maximum fee in SUN of a transaction. Zero selects the default.
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`         // Timeout of a single node request. Zero selects the default.
}

type ManifestConfig struct {
	URL             string        `mapstructure:"url" yaml:"url"`                           // URL or file path of the deployment manifest
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"` // Zero loads the manifest once
}

type ConfirmConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"` // Tron receipt poll interval
	MaxAttempts  uint          `mapstructure:"max_attempts" yaml:"max_attempts"`   // Tron receipt poll ceiling
	EVMTimeout   time.Duration `mapstructure:"evm_timeout" yaml:"evm_timeout"`     // Longest wait for an EVM receipt
}

type AddressesConfig struct {
	EVM  datastore.Addresses `mapstructure:"evm" yaml:"evm"`
	Tron datastore.Addresses `mapstructure:"tron" yaml:"tron"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or console
}

type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"` // Serve /metrics on this address when set
}

type Config struct {
	Chain     ChainConfig     `mapstructure:"chain" yaml:"chain"`
	EVM       EVMConfig       `mapstructure:"evm" yaml:"evm"`
	Tron      TronConfig      `mapstructure:"tron" yaml:"tron"`
	Manifest  ManifestConfig  `mapstructure:"manifest" yaml:"manifest"`
	Confirm   ConfirmConfig   `mapstructure:"confirm" yaml:"confirm"`
	Addresses AddressesConfig `mapstructure:"addresses" yaml:"addresses"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// Load loads the config from the file at filePath, overlaid by environment variables. A missing
// file is not an error; the config is then read from the environment only.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadEnv loads the config from environment variables only.
func LoadEnv() (*Config, error) {
	v := viper.New()

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadFile loads the config from the file at filePath, ignoring the environment.
func LoadFile(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

var (
	// envBindings maps config keys to environment variables, preferred name first.
	envBindings = map[string][]string{
		"chain.selector":            {"FAUCET_CHAIN_SELECTOR", "CHAIN_SELECTOR"},
		"evm.rpc_url":               {"FAUCET_EVM_RPC_URL", "RPC_URL"},
		"evm.backup_rpc_urls":       {"FAUCET_EVM_BACKUP_RPC_URLS"},
		"evm.private_key":           {"FAUCET_EVM_PRIVATE_KEY", "PRIVATE_KEY"},
		"tron.full_host":            {"FAUCET_TRON_FULL_HOST", "TRON_FULL_HOST"},
		"tron.api_key":              {"FAUCET_TRON_API_KEY", "TRON_PRO_API_KEY"},
		"tron.private_key":          {"FAUCET_TRON_PRIVATE_KEY", "TRON_PRIVATE_KEY"},
		"tron.fee_limit":            {"FAUCET_TRON_FEE_LIMIT"},
		"tron.timeout":              {"FAUCET_TRON_TIMEOUT"},
		"manifest.url":              {"FAUCET_MANIFEST_URL", "DEPLOYMENT_INFO_URL"},
		"manifest.refresh_interval": {"FAUCET_MANIFEST_REFRESH_INTERVAL"},
		"confirm.poll_interval":     {"FAUCET_CONFIRM_POLL_INTERVAL"},
		"confirm.max_attempts":      {"FAUCET_CONFIRM_MAX_ATTEMPTS"},
		"confirm.evm_timeout":       {"FAUCET_CONFIRM_EVM_TIMEOUT"},
		"addresses.evm.token":       {"FAUCET_EVM_TOKEN_ADDRESS"},
		"addresses.evm.faucet":      {"FAUCET_EVM_FAUCET_ADDRESS"},
		"addresses.tron.token":      {"FAUCET_TRON_TOKEN_ADDRESS"},
		"addresses.tron.faucet":     {"FAUCET_TRON_FAUCET_ADDRESS"},
		"log.level":                 {"FAUCET_LOG_LEVEL", "LOG_LEVEL"},
		"log.format":                {"FAUCET_LOG_FORMAT"},
		"metrics.listen_addr":       {"FAUCET_METRICS_LISTEN_ADDR"},
	}
)

func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(envs, 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}

// Family returns the chain family of the configured chain selector.
func (c *Config) Family() (chain.Family, error) {
	if c.Chain.Selector == 0 {
		return "", errors.New("chain.selector is not set")
	}
	family, err := chain.Network{Selector: c.Chain.Selector}.Family()
	if err != nil {
		return "", fmt.Errorf("chain.selector %d: %w", c.Chain.Selector, err)
	}

	return family, nil
}

// Validate checks that the settings required by the configured chain family are present.
func (c *Config) Validate() error {
	family, err := c.Family()
	if err != nil {
		return err
	}

	var errs []error
	switch family {
	case chain.FamilyEVM:
		if c.EVM.RPCURL == "" {
			errs = append(errs, errors.New("evm.rpc_url is required"))
		}
		if c.EVM.PrivateKey == "" {
			errs = append(errs, errors.New("evm.private_key is required"))
		}
	case chain.FamilyTron:
		if c.Tron.FullHost == "" {
			errs = append(errs, errors.New("tron.full_host is required"))
		}
		if c.Tron.PrivateKey == "" {
			errs = append(errs, errors.New("tron.private_key is required"))
		}
		if c.Tron.FeeLimit < 0 {
			errs = append(errs, errors.New("tron.fee_limit must not be negative"))
		}
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", logger.FormatJSON, logger.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("log.format must be %q or %q", logger.FormatJSON, logger.FormatConsole))
	}

	return errors.Join(errs...)
}

// LogLevel parses log.level, defaulting to info.
func (c *Config) LogLevel() (zapcore.Level, error) {
	if c.Log.Level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log.level: %w", err)
	}

	return lvl, nil
}

// EVMRPCURLs returns the primary EVM endpoint followed by the backups.
func (c *Config) EVMRPCURLs() []string {
	return append([]string{c.EVM.RPCURL}, c.EVM.BackupRPCURLs...)
}

// AddressOverrides returns the configured addresses keyed by family.
func (c *Config) AddressOverrides() map[chain.Family]datastore.Addresses {
	return map[chain.Family]datastore.Addresses{
		chain.FamilyEVM:  c.Addresses.EVM,
		chain.FamilyTron: c.Addresses.Tron,
	}
}

// TronNode returns the node endpoint of the Tron wallet.
func (c *Config) TronNode() tron.Node {
	headers := map[string]string{}
	if c.Tron.APIKey != "" {
		headers[rpcclient.APIKeyHeader] = c.Tron.APIKey
	}

	return tron.Node{FullHost: c.Tron.FullHost, Headers: headers}
}

// TronBackendOpts returns the Tron backend options of the configured fee limit and polling.
func (c *Config) TronBackendOpts() []tron.BackendOpt {
	opts := []tron.BackendOpt{
		tron.WithConfirmConfig(tron.ConfirmConfig{
			RetryAttempts: c.Confirm.MaxAttempts,
			RetryDelay:    c.Confirm.PollInterval,
		}),
	}
	if c.Tron.FeeLimit > 0 {
		opts = append(opts, tron.WithFeeLimit(c.Tron.FeeLimit))
	}

	return opts
}

// EVMBackendOpts returns the EVM backend options of the configured receipt wait.
func (c *Config) EVMBackendOpts() []evm.BackendOpt {
	confirm := evm.DefaultConfirmConfig
	if c.Confirm.EVMTimeout > 0 {
		confirm.WaitMinedTimeout = c.Confirm.EVMTimeout
	}

	return []evm.BackendOpt{evm.WithConfirmConfig(confirm)}
}
