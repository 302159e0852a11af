package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/tron"
	"github.com/flashfaucet/faucet-kit/chain/tron/rpcclient"
	"github.com/flashfaucet/faucet-kit/datastore"
)

var (
	nileSelector = chainsel.TRON_TESTNET_NILE.Selector
	gethSelector = chainsel.GETH_TESTNET.Selector

	fileYAML = fmt.Sprintf(`chain:
  selector: %d
tron:
  full_host: https://nile.trongrid.io
  api_key: key-1
  private_key: "0xabc"
  fee_limit: 50000000
  timeout: 20s
manifest:
  url: https://faucet.example.com/deployment-info.json
  refresh_interval: 5m
confirm:
  poll_interval: 3s
  max_attempts: 60
  evm_timeout: 3m
addresses:
  tron:
    faucet: TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH
log:
  level: debug
  format: console
metrics:
  listen_addr: ":9102"
`, nileSelector)

	fileCfg = &Config{
		Chain: ChainConfig{Selector: nileSelector},
		Tron: TronConfig{
			FullHost:   "https://nile.trongrid.io",
			APIKey:     "key-1",
			PrivateKey: "0xabc",
			FeeLimit:   50_000_000,
			Timeout:    20 * time.Second,
		},
		Manifest: ManifestConfig{
			URL:             "https://faucet.example.com/deployment-info.json",
			RefreshInterval: 5 * time.Minute,
		},
		Confirm: ConfirmConfig{
			PollInterval: 3 * time.Second,
			MaxAttempts:  60,
			EVMTimeout:   3 * time.Minute,
		},
		Addresses: AddressesConfig{
			Tron: datastore.Addresses{Faucet: "TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH"},
		},
		Log:     LogConfig{Level: "debug", Format: "console"},
		Metrics: MetricsConfig{ListenAddr: ":9102"},
	}

	// envVars is the environment variables that used to set the config.
	envVars = map[string]string{
		"FAUCET_CHAIN_SELECTOR":      fmt.Sprint(gethSelector),
		"FAUCET_EVM_RPC_URL":         "http://127.0.0.1:8545",
		"FAUCET_EVM_BACKUP_RPC_URLS": "http://127.0.0.1:8546,http://127.0.0.1:8547",
		"FAUCET_EVM_PRIVATE_KEY":     "0x123",
		"FAUCET_EVM_FAUCET_ADDRESS":  "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
		"FAUCET_TRON_API_KEY":        "key-2",
		"FAUCET_CONFIRM_EVM_TIMEOUT": "1m",
		"FAUCET_LOG_LEVEL":           "warn",
	}

	legacyEnvVars = map[string]string{
		"CHAIN_SELECTOR":             fmt.Sprint(gethSelector),
		"RPC_URL":                    "http://127.0.0.1:8545",
		"PRIVATE_KEY":                "0x123",
		"FAUCET_EVM_FAUCET_ADDRESS":  "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
		"TRON_PRO_API_KEY":           "key-2",
		// These values do not have a legacy equivalent
		"FAUCET_EVM_BACKUP_RPC_URLS": "http://127.0.0.1:8546,http://127.0.0.1:8547",
		"FAUCET_CONFIRM_EVM_TIMEOUT": "1m",
		"LOG_LEVEL":                  "warn",
	}

	// envCfg is the config that is loaded from the environment variables.
	envCfg = &Config{
		Chain: ChainConfig{Selector: gethSelector},
		EVM: EVMConfig{
			RPCURL:        "http://127.0.0.1:8545",
			BackupRPCURLs: []string{"http://127.0.0.1:8546", "http://127.0.0.1:8547"},
			PrivateKey:    "0x123",
		},
		Tron:    TronConfig{APIKey: "key-2"},
		Confirm: ConfirmConfig{EVMTimeout: time.Minute},
		Addresses: AddressesConfig{
			EVM: datastore.Addresses{Faucet: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"},
		},
		Log: LogConfig{Level: "warn"},
	}
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func Test_Load(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	tests := []struct {
		name       string
		beforeFunc func(t *testing.T)
		givePath   func(t *testing.T) string
		want       *Config
		wantErr    string
	}{
		{
			name:     "load from file",
			givePath: func(t *testing.T) string { t.Helper(); return writeConfig(t, fileYAML) },
			want:     fileCfg,
		},
		{
			name:     "load from empty file",
			givePath: func(t *testing.T) string { t.Helper(); return writeConfig(t, "") },
			want:     &Config{},
		},
		{
			name: "fallback to env when file not found",
			beforeFunc: func(t *testing.T) {
				t.Helper()

				setupEnvVars(t, envVars)
			},
			givePath: func(t *testing.T) string { t.Helper(); return filepath.Join(t.TempDir(), "missing.yml") },
			want:     envCfg,
		},
		{
			name: "env overrides file",
			beforeFunc: func(t *testing.T) {
				t.Helper()

				t.Setenv("FAUCET_TRON_API_KEY", "key-3")
			},
			givePath: func(t *testing.T) string { t.Helper(); return writeConfig(t, fileYAML) },
			want: func() *Config {
				cfg := *fileCfg
				cfg.Tron.APIKey = "key-3"

				return &cfg
			}(),
		},
		{
			name:     "malformed file",
			givePath: func(t *testing.T) string { t.Helper(); return writeConfig(t, "chain: [") },
			wantErr:  "While parsing config",
		},
	}

	for _, tt := range tests { //nolint:paralleltest // see comment in setupEnvVars
		t.Run(tt.name, func(t *testing.T) {
			if tt.beforeFunc != nil {
				tt.beforeFunc(t)
			}

			got, err := Load(tt.givePath(t))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func Test_LoadFile(t *testing.T) {
	t.Parallel()

	got, err := LoadFile(writeConfig(t, fileYAML))
	require.NoError(t, err)
	assert.Equal(t, fileCfg, got)

	_, err = LoadFile(filepath.Join(t.TempDir(), "invalid.yml"))
	require.ErrorContains(t, err, "no such file or directory")
}

func Test_LoadEnv(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	setupEnvVars(t, envVars)

	got, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, envCfg, got)
}

func Test_LoadEnv_Legacy(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	setupEnvVars(t, legacyEnvVars)

	got, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, envCfg, got)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    Config
		wantErr string
	}{
		{name: "tron", give: *fileCfg},
		{name: "evm", give: *envCfg},
		{name: "no selector", give: Config{}, wantErr: "chain.selector is not set"},
		{
			name:    "unsupported family",
			give:    Config{Chain: ChainConfig{Selector: chainsel.SOLANA_DEVNET.Selector}},
			wantErr: "unsupported chain family",
		},
		{
			name:    "evm without endpoint",
			give:    Config{Chain: ChainConfig{Selector: gethSelector}, EVM: EVMConfig{PrivateKey: "0x1"}},
			wantErr: "evm.rpc_url is required",
		},
		{
			name:    "tron without key",
			give:    Config{Chain: ChainConfig{Selector: nileSelector}, Tron: TronConfig{FullHost: "https://nile.trongrid.io"}},
			wantErr: "tron.private_key is required",
		},
		{
			name: "bad log level",
			give: Config{
				Chain: ChainConfig{Selector: gethSelector},
				EVM:   EVMConfig{RPCURL: "http://127.0.0.1:8545", PrivateKey: "0x1"},
				Log:   LogConfig{Level: "loud"},
			},
			wantErr: "log.level",
		},
		{
			name: "bad log format",
			give: Config{
				Chain: ChainConfig{Selector: gethSelector},
				EVM:   EVMConfig{RPCURL: "http://127.0.0.1:8545", PrivateKey: "0x1"},
				Log:   LogConfig{Format: "xml"},
			},
			wantErr: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.give.Validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfig_Derived(t *testing.T) {
	t.Parallel()

	cfg := *fileCfg

	family, err := cfg.Family()
	require.NoError(t, err)
	assert.Equal(t, chain.FamilyTron, family)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	assert.Equal(t, tron.Node{
		FullHost: "https://nile.trongrid.io",
		Headers:  map[string]string{rpcclient.APIKeyHeader: "key-1"},
	}, cfg.TronNode())
	assert.Equal(t, "TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH", cfg.AddressOverrides()[chain.FamilyTron].Faucet)
	assert.Len(t, cfg.TronBackendOpts(), 2)
	assert.Len(t, cfg.EVMBackendOpts(), 1)
	assert.Equal(t, []string{""}, cfg.EVMRPCURLs())

	envOnly := *envCfg
	assert.Equal(t, []string{"http://127.0.0.1:8545", "http://127.0.0.1:8546", "http://127.0.0.1:8547"}, envOnly.EVMRPCURLs())

	_, err = datastore.NewResolver(datastore.WithOverrides(cfg.AddressOverrides()))
	require.NoError(t, err)
}

// setupEnvVars sets up the environment variables for the test.
//
// CAUTION: Because this function uses t.Setenv which affects the entire process, tests which call
// this function cannot be run in parallel.
func setupEnvVars(t *testing.T, envVars map[string]string) {
	t.Helper()

	for key, value := range envVars {
		t.Setenv(key, value)
	}
}
