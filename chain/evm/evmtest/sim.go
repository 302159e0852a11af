// Package evmtest provides a simulated EVM chain and tiny hand assembled contracts for tests.
package evmtest

import (
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/flashfaucet/faucet-kit/chain/evm"
)

var simChainID = params.AllDevChainProtocolChanges.ChainID

// SimClient is a wrapper struct around a simulated backend which implements OnchainClient but
// also exposes backend methods.
type SimClient struct {
	mu sync.Mutex

	// Embed the simulated.Client to provide access to its methods and adhere to the OnchainClient interface.
	simulated.Client
	// sim is the underlying simulated backend that this client wraps.
	sim *simulated.Backend
}

var _ evm.OnchainClient = (*SimClient)(nil)

// Commit mines the pending transactions into a new block.
func (b *SimClient) Commit() common.Hash {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sim.Commit()
}

// Chain is a simulated chain with a funded signer.
type Chain struct {
	Client *SimClient
	Key    *ecdsa.PrivateKey
	Signer *bind.TransactOpts
}

// Session returns an EVM session signing with the funded key.
func (c *Chain) Session() *evm.Session {
	return &evm.Session{Client: c.Client, Signer: c.Signer}
}

// NewChain starts a simulated chain with the given contracts deployed at genesis and a freshly
// generated signer funded with 1000 ETH. Pass fund=false to leave the signer without balance.
func NewChain(t *testing.T, contracts map[common.Address][]byte, fund bool) *Chain {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signer, err := bind.NewKeyedTransactorWithChainID(key, simChainID)
	require.NoError(t, err)

	genesis := types.GenesisAlloc{}
	if fund {
		balance, ok := new(big.Int).SetString("1000000000000000000000", 10)
		require.True(t, ok)
		genesis[signer.From] = types.Account{Balance: balance}
	}
	for addr, code := range contracts {
		genesis[addr] = types.Account{Code: code, Balance: big.NewInt(0)}
	}

	backend := simulated.NewBackend(genesis, simulated.WithBlockGasLimit(50000000))
	backend.Commit() // Commit the genesis block

	t.Cleanup(func() {
		require.NoError(t, backend.Close())
	})

	return &Chain{
		Client: &SimClient{Client: backend.Client(), sim: backend},
		Key:    key,
		Signer: signer,
	}
}

// ReturningContract returns runtime code that answers every call with data.
func ReturningContract(data []byte) []byte {
	return dataContract(data, 0xf3) // RETURN
}

// RevertingContract returns runtime code that reverts every call with data.
func RevertingContract(data []byte) []byte {
	return dataContract(data, 0xfd) // REVERT
}

// StoppingContract returns runtime code that accepts every call and returns nothing.
func StoppingContract() []byte {
	return []byte{0x00} // STOP
}

// RevertReason ABI encodes Error(string) revert data.
func RevertReason(t *testing.T, reason string) []byte {
	t.Helper()

	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)

	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	require.NoError(t, err)

	return append(crypto.Keccak256([]byte("Error(string)"))[:4], packed...)
}

// Words ABI encodes values as consecutive uint256 words.
func Words(values ...*big.Int) []byte {
	out := make([]byte, 0, 32*len(values))
	for _, v := range values {
		out = append(out, common.LeftPadBytes(v.Bytes(), 32)...)
	}

	return out
}

// dataContract assembles: CODECOPY(0, offset, len) followed by RETURN or REVERT of the copied
// bytes. The payload is appended after the 14 byte prologue.
func dataContract(data []byte, op byte) []byte {
	const prologue = 14
	n := len(data)
	code := []byte{
		0x61, byte(n >> 8), byte(n), // PUSH2 len
		0x60, prologue, // PUSH1 offset
		0x60, 0x00, // PUSH1 0
		0x39,                        // CODECOPY
		0x61, byte(n >> 8), byte(n), // PUSH2 len
		0x60, 0x00, // PUSH1 0
		op,
	}

	return append(code, data...)
}
