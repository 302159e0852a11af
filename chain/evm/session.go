package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

// OnchainClient is an EVM chain client.
// For EVM specifically we can use existing geth interface to abstract chain clients.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
}

// Session is an authorized EVM wallet session: a provider connection plus the signer of the
// active account.
type Session struct {
	// Selector is the chain selector of the connected network. Zero when unknown.
	Selector uint64
	Client   OnchainClient
	// Note the Signer can be abstract supporting a variety of key storage mechanisms.
	Signer *bind.TransactOpts
}

// Family returns chain.FamilyEVM.
func (s *Session) Family() chain.Family { return chain.FamilyEVM }

// ActiveAddress returns the checksummed address of the signer, or "" without a signer.
func (s *Session) ActiveAddress() string {
	if s == nil || s.Signer == nil {
		return ""
	}

	return s.Signer.From.Hex()
}

// Validate fails with a KindSessionUnavailable error when the session has no provider
// connection or no authorized signer.
func (s *Session) Validate() error {
	switch {
	case s == nil:
		return chain.Errorf(chain.KindSessionUnavailable, "no EVM session")
	case s.Client == nil:
		return chain.Errorf(chain.KindSessionUnavailable, "EVM session has no provider connection")
	case s.Signer == nil || s.Signer.Signer == nil:
		return chain.Errorf(chain.KindSessionUnavailable, "EVM session has no authorized signer")
	case s.Signer.From == (common.Address{}):
		return chain.Errorf(chain.KindSessionUnavailable, "EVM session has no active account")
	}

	return nil
}

// TransactorFromRaw parses a hex encoded private key and returns the bind transactor options
// for chainID.
func TransactorFromRaw(privKey string, chainID *big.Int) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
	}

	return bind.NewKeyedTransactorWithChainID(key, chainID)
}

// Dial connects to the endpoints in rpcURLs, the first being the primary and the rest
// backups, and returns a session signing with privKey. The chain id is read from the node.
func Dial(ctx context.Context, lggr logger.Logger, selector uint64, rpcURLs []string, privKey string, opts ...func(*MultiClient)) (*Session, error) {
	if len(rpcURLs) == 0 || rpcURLs[0] == "" {
		return nil, chain.Errorf(chain.KindSessionUnavailable, "no EVM RPC URL configured")
	}

	client, err := NewMultiClient(ctx, lggr, selector, rpcURLs, opts...)
	if err != nil {
		return nil, chain.NewError(chain.KindSessionUnavailable, "failed to connect to the EVM node", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()

		return nil, chain.NewError(chain.KindSessionUnavailable, "failed to read chain id", err)
	}

	signer, err := TransactorFromRaw(privKey, chainID)
	if err != nil {
		client.Close()

		return nil, chain.NewError(chain.KindSessionUnavailable, "invalid EVM signer key", err)
	}

	return &Session{Selector: selector, Client: client, Signer: signer}, nil
}
