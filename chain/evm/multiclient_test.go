package evm_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/evm"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

var fastRetries = evm.WithRetryConfig(evm.RetryConfig{
	Attempts:     1,
	Delay:        time.Millisecond,
	Timeout:      2 * time.Second,
	DialAttempts: 1,
	DialDelay:    time.Millisecond,
	DialTimeout:  2 * time.Second,
})

// rpcNode is a JSON-RPC endpoint answering the few methods the tests need.
type rpcNode struct {
	srv     *httptest.Server
	balance string
	down    atomic.Bool
	reverts bool
	calls   atomic.Int32
}

func newRPCNode(t *testing.T, balance string) *rpcNode {
	t.Helper()

	n := &rpcNode{balance: balance}
	n.srv = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.srv.Close)

	return n
}

func (n *rpcNode) serve(w http.ResponseWriter, r *http.Request) {
	n.calls.Add(1)
	if n.down.Load() {
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "eth_blockNumber":
		resp["result"] = "0x10"
	case "eth_chainId":
		resp["result"] = "0x539"
	case "eth_getBalance":
		resp["result"] = n.balance
	case "eth_call":
		if n.reverts {
			resp["error"] = map[string]any{"code": 3, "message": "execution reverted", "data": "0x08c379a0"}
		} else {
			resp["result"] = "0x01"
		}
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestNewMultiClient(t *testing.T) {
	t.Parallel()

	t.Run("no urls", func(t *testing.T) {
		t.Parallel()

		_, err := evm.NewMultiClient(t.Context(), logger.Test(t), 0, nil)
		require.ErrorContains(t, err, "no RPCs provided")
	})

	t.Run("unhealthy endpoints are skipped", func(t *testing.T) {
		t.Parallel()

		down := newRPCNode(t, "0x1")
		down.down.Store(true)
		up := newRPCNode(t, "0x64")

		mc, err := evm.NewMultiClient(t.Context(), logger.Test(t), 0, []string{down.srv.URL, up.srv.URL}, fastRetries)
		require.NoError(t, err)
		t.Cleanup(mc.Close)
		assert.Empty(t, mc.Backups)

		balance, err := mc.BalanceAt(t.Context(), common.Address{}, nil)
		require.NoError(t, err)
		assert.Equal(t, "100", balance.String())
	})

	t.Run("all unhealthy", func(t *testing.T) {
		t.Parallel()

		down := newRPCNode(t, "0x1")
		down.down.Store(true)

		_, err := evm.NewMultiClient(t.Context(), logger.Test(t), 0, []string{down.srv.URL}, fastRetries)
		require.ErrorContains(t, err, "no valid RPC clients created")
	})
}

func TestMultiClient_Failover(t *testing.T) {
	t.Parallel()

	primary := newRPCNode(t, "0x1")
	backup := newRPCNode(t, "0x2")

	mc, err := evm.NewMultiClient(t.Context(), logger.Test(t), 0, []string{primary.srv.URL, backup.srv.URL}, fastRetries)
	require.NoError(t, err)
	t.Cleanup(mc.Close)
	require.Len(t, mc.Backups, 1)

	balance, err := mc.BalanceAt(t.Context(), common.Address{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", balance.String())

	primary.down.Store(true)
	balance, err = mc.BalanceAt(t.Context(), common.Address{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2", balance.String())

	// the backup that answered is the primary now
	primary.down.Store(false)
	before := primary.calls.Load()
	balance, err = mc.BalanceAt(t.Context(), common.Address{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2", balance.String())
	assert.Equal(t, before, primary.calls.Load())

	backup.down.Store(true)
	primary.down.Store(true)
	_, err = mc.BalanceAt(t.Context(), common.Address{}, nil)
	require.Error(t, err)
}

func TestMultiClient_RevertIsNotFailedOver(t *testing.T) {
	t.Parallel()

	primary := newRPCNode(t, "0x1")
	primary.reverts = true
	backup := newRPCNode(t, "0x2")

	mc, err := evm.NewMultiClient(t.Context(), logger.Test(t), 0, []string{primary.srv.URL, backup.srv.URL}, fastRetries)
	require.NoError(t, err)
	t.Cleanup(mc.Close)

	before := backup.calls.Load()
	_, err = mc.CallContract(t.Context(), ethereum.CallMsg{To: &common.Address{}}, nil)
	require.Error(t, err)

	var dataErr rpc.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "0x08c379a0", dataErr.ErrorData())
	assert.Equal(t, before, backup.calls.Load())
}

func TestDial(t *testing.T) {
	t.Parallel()

	const hardhatKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	t.Run("connects and signs for the node chain id", func(t *testing.T) {
		t.Parallel()

		node := newRPCNode(t, "0x1")
		session, err := evm.Dial(t.Context(), logger.Test(t), 7, []string{node.srv.URL}, hardhatKey, fastRetries)
		require.NoError(t, err)

		assert.Equal(t, uint64(7), session.Selector)
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", session.ActiveAddress())
		require.NoError(t, session.Validate())

		mc, ok := session.Client.(*evm.MultiClient)
		require.True(t, ok)
		mc.Close()
	})

	tests := []struct {
		name     string
		urls     []string
		withNode bool
		key      string
	}{
		{name: "no url", key: hardhatKey},
		{name: "empty primary", urls: []string{""}, key: hardhatKey},
		{name: "bad key", withNode: true, key: "0xzz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			urls := tt.urls
			if tt.withNode {
				urls = []string{newRPCNode(t, "0x1").srv.URL}
			}

			_, err := evm.Dial(t.Context(), logger.Test(t), 7, urls, tt.key, fastRetries)
			require.ErrorIs(t, err, chain.ErrSessionUnavailable)
		})
	}

	t.Run("node down", func(t *testing.T) {
		t.Parallel()

		node := newRPCNode(t, "0x1")
		node.down.Store(true)

		_, err := evm.Dial(t.Context(), logger.Test(t), 7, []string{node.srv.URL}, hardhatKey, fastRetries)
		require.ErrorIs(t, err, chain.ErrSessionUnavailable)
		assert.False(t, errors.Is(err, chain.ErrUnknown))
	})
}
