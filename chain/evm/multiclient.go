package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

const (
	// Default retry configuration for RPC calls
	RPCDefaultRetryAttempts = 1
	RPCDefaultRetryDelay    = 1000 * time.Millisecond
	RPCDefaultRetryTimeout  = 10 * time.Second

	// Default retry configuration for dialing RPC endpoints
	RPCDefaultDialRetryAttempts = 1
	RPCDefaultDialRetryDelay    = 1000 * time.Millisecond
	RPCDefaultDialTimeout       = 10 * time.Second

	// Default timeout for health checks
	RPCDefaultHealthCheckTimeout = 2 * time.Second
)

type RetryConfig struct {
	Attempts     uint
	Delay        time.Duration
	Timeout      time.Duration
	DialAttempts uint
	DialDelay    time.Duration
	DialTimeout  time.Duration
}

func defaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     RPCDefaultRetryAttempts,
		Delay:        RPCDefaultRetryDelay,
		Timeout:      RPCDefaultRetryTimeout,
		DialAttempts: RPCDefaultDialRetryAttempts,
		DialDelay:    RPCDefaultDialRetryDelay,
		DialTimeout:  RPCDefaultDialTimeout,
	}
}

// WithRetryConfig overrides the retry configuration of a MultiClient.
func WithRetryConfig(cfg RetryConfig) func(*MultiClient) {
	return func(mc *MultiClient) { mc.RetryConfig = cfg }
}

// MultiClient should comply with the OnchainClient interface
var _ OnchainClient = &MultiClient{}

// MultiClient is an OnchainClient over a primary JSON-RPC endpoint and its backups. Calls are
// retried on the current primary and then on each backup in turn; the first endpoint that
// succeeds becomes the primary.
type MultiClient struct {
	*ethclient.Client
	Backups     []*ethclient.Client
	RetryConfig RetryConfig
	lggr        logger.Logger
	network     chain.Network
	mu          sync.RWMutex
}

// rpcHealthCheck performs a basic health check on the RPC client by calling eth_blockNumber
func rpcHealthCheck(ctx context.Context, client *ethclient.Client) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, RPCDefaultHealthCheckTimeout)
	defer cancel()

	if _, err := client.BlockNumber(timeoutCtx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}

// NewMultiClient dials every url, keeping the endpoints that pass a health check in the given
// order. It fails when none does.
func NewMultiClient(ctx context.Context, lggr logger.Logger, selector uint64, urls []string, opts ...func(client *MultiClient)) (*MultiClient, error) {
	if len(urls) == 0 {
		return nil, errors.New("no RPCs provided, need at least one")
	}

	mc := MultiClient{
		lggr:        lggr.Named("multiclient"),
		network:     chain.Network{Selector: selector},
		RetryConfig: defaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(&mc)
	}

	clients := make([]*ethclient.Client, 0, len(urls))
	for i, url := range urls {
		client, err := mc.connect(ctx, url)
		if err != nil {
			mc.lggr.Warnw("Skipping unusable RPC endpoint", "index", i, "chain", mc.network.String(), "err", err)

			continue
		}
		clients = append(clients, client)
	}

	if len(clients) == 0 {
		return nil, errors.New("no valid RPC clients created")
	}

	mc.Client = clients[0]
	mc.Backups = clients[1:]

	return &mc, nil
}

func (mc *MultiClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := withBackups(ctx, mc, "SendTransaction", func(ctx context.Context, c *ethclient.Client) (struct{}, error) {
		return struct{}{}, c.SendTransaction(ctx, tx)
	})

	return err
}

func (mc *MultiClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return withBackups(ctx, mc, "CallContract", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.CallContract(ctx, msg, blockNumber)
	})
}

func (mc *MultiClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return withBackups(ctx, mc, "CodeAt", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.CodeAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return withBackups(ctx, mc, "PendingCodeAt", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.PendingCodeAt(ctx, account)
	})
}

func (mc *MultiClient) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	return withBackups(ctx, mc, "NonceAt", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.NonceAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return withBackups(ctx, mc, "PendingNonceAt", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.PendingNonceAt(ctx, account)
	})
}

func (mc *MultiClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return withBackups(ctx, mc, "BalanceAt", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.BalanceAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return withBackups(ctx, mc, "HeaderByNumber", func(ctx context.Context, c *ethclient.Client) (*types.Header, error) {
		return c.HeaderByNumber(ctx, number)
	})
}

func (mc *MultiClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return withBackups(ctx, mc, "SuggestGasPrice", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.SuggestGasPrice(ctx)
	})
}

func (mc *MultiClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return withBackups(ctx, mc, "SuggestGasTipCap", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.SuggestGasTipCap(ctx)
	})
}

func (mc *MultiClient) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return withBackups(ctx, mc, "EstimateGas", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.EstimateGas(ctx, call)
	})
}

func (mc *MultiClient) ChainID(ctx context.Context) (*big.Int, error) {
	return withBackups(ctx, mc, "ChainID", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.ChainID(ctx)
	})
}

// TransactionReceipt asks the primary only. The confirmation loop polls again on failure.
func (mc *MultiClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return mc.primary().TransactionReceipt(ctx, txHash)
}

// Close closes the primary and every backup connection.
func (mc *MultiClient) Close() {
	for _, client := range mc.clients() {
		client.Close()
	}
}

// withBackups runs op on the primary and then on each backup until one succeeds. Each endpoint
// gets RetryConfig.Attempts tries. Execution errors end the loop at once.
func withBackups[T any](ctx context.Context, mc *MultiClient, opName string, op func(context.Context, *ethclient.Client) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	traceID := uuid.New()
	lggr := mc.lggr.With("traceID", traceID.String(), "chain", mc.network.String(), "op", opName)

	for rpcIndex, client := range mc.clients() {
		attempts := 0
		err = retry.Do(func() error {
			attempts++
			callCtx, cancel := ensureTimeout(ctx, mc.RetryConfig.Timeout)
			defer cancel()

			var opErr error
			result, opErr = op(callCtx, client)
			if isExecutionError(opErr) {
				return retry.Unrecoverable(opErr)
			}

			return opErr
		}, retry.Context(ctx), retry.Attempts(mc.RetryConfig.Attempts), retry.Delay(mc.RetryConfig.Delay),
			retry.LastErrorOnly(true))
		if err == nil {
			mc.reorderRPCs(rpcIndex)
			if attempts > 1 || rpcIndex > 0 {
				lggr.Infow("RPC call succeeded", "client", rpcIndex, "attempts", attempts)
			}

			return result, nil
		}
		if ctx.Err() != nil || isExecutionError(err) {
			return result, err
		}
		lggr.Warnw("RPC call failed, trying next client", "client", rpcIndex, "err", maybeDataErr(err))
	}

	return result, err
}

// connect dials url and checks that the endpoint answers eth_blockNumber, retrying both per
// RetryConfig.DialAttempts.
func (mc *MultiClient) connect(ctx context.Context, url string) (*ethclient.Client, error) {
	lggr := mc.lggr.With("traceID", uuid.NewString(), "chain", mc.network.String(), "url", url)

	var client *ethclient.Client
	err := retry.Do(func() error {
		dialCtx, cancel := context.WithTimeout(ctx, mc.RetryConfig.DialTimeout)
		defer cancel()

		c, err := ethclient.DialContext(dialCtx, url)
		if err != nil {
			return err
		}
		if err := rpcHealthCheck(ctx, c); err != nil {
			c.Close()
			return err
		}
		client = c

		return nil
	}, retry.Context(ctx), retry.Attempts(mc.RetryConfig.DialAttempts), retry.Delay(mc.RetryConfig.DialDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			lggr.Debugw("Retrying RPC endpoint", "attempt", n+1, "err", err)
		}))
	if err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", url, err)
	}

	return client, nil
}

// ensureTimeout checks if the parent context has a deadline.
// If it does, it returns a new cancelable context using the parent's deadline.
// If it doesn't, it creates a new context with the specified timeout.
func ensureTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := parent.Deadline(); hasDeadline {
		return context.WithCancel(parent)
	}

	return context.WithTimeout(parent, timeout)
}

// reorderRPCs rotates the endpoint list so the client at rpcIndex becomes the primary. The
// endpoints that failed before it move to the end in the order they were tried.
func (mc *MultiClient) reorderRPCs(rpcIndex int) {
	if rpcIndex < 1 {
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	all := append([]*ethclient.Client{mc.Client}, mc.Backups...)
	if rpcIndex >= len(all) {
		return
	}
	rotated := append(all[rpcIndex:len(all):len(all)], all[:rpcIndex]...)

	mc.Client = rotated[0]
	mc.Backups = rotated[1:]
}

func (mc *MultiClient) primary() *ethclient.Client {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return mc.Client
}

func (mc *MultiClient) clients() []*ethclient.Client {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return append([]*ethclient.Client{mc.Client}, mc.Backups...)
}

// isExecutionError reports whether the node executed the call and rejected it with revert data.
// Other endpoints would answer the same.
func isExecutionError(err error) bool {
	var d rpc.DataError

	return errors.As(err, &d) && d.ErrorData() != nil
}

func maybeDataErr(err error) error {
	var d rpc.DataError
	if errors.As(err, &d) {
		return fmt.Errorf("%s: %v", d.Error(), d.ErrorData())
	}

	return err
}
