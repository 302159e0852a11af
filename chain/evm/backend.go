package evm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

// Backend dispatches contract calls and transactions for an EVM session through go-ethereum
// bindings and waits for their receipts.
type Backend struct {
	session *Session
	confirm ConfirmConfig
	lggr    logger.Logger

	mu   sync.Mutex
	sent map[common.Hash]sentTx
}

type sentTx struct {
	tx   *types.Transaction
	desc chain.ContractDescriptor
}

// BackendOpt configures a Backend.
type BackendOpt func(*Backend)

// WithConfirmConfig overrides the receipt wait configuration.
func WithConfirmConfig(cfg ConfirmConfig) BackendOpt {
	return func(b *Backend) {
		b.confirm = cfg
	}
}

// WithLogger sets the logger of the backend.
func WithLogger(lggr logger.Logger) BackendOpt {
	return func(b *Backend) {
		b.lggr = lggr
	}
}

// NewBackend returns a Backend for session. The session must pass [Session.Validate].
func NewBackend(session *Session, opts ...BackendOpt) (*Backend, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{
		session: session,
		confirm: DefaultConfirmConfig,
		lggr:    logger.Nop(),
		sent:    make(map[common.Hash]sentTx),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Call performs a read only call and returns the decoded outputs as a positional []any.
//
// An empty response from an address without code fails with KindContractNotDeployed.
func (b *Backend) Call(ctx context.Context, desc chain.ContractDescriptor, method string, args []any) (any, error) {
	bound, err := b.bind(desc)
	if err != nil {
		return nil, err
	}

	var out []any
	opts := &bind.CallOpts{Context: ctx, From: b.session.Signer.From}
	if err := bound.Call(opts, &out, method, args...); err != nil {
		return nil, classify(err, desc)
	}

	return out, nil
}

// Send signs and broadcasts a transaction invoking method, returning the transaction hash
// without waiting for it to be mined.
func (b *Backend) Send(ctx context.Context, desc chain.ContractDescriptor, method string, args []any) (string, error) {
	bound, err := b.bind(desc)
	if err != nil {
		return "", err
	}

	opts := *b.session.Signer
	opts.Context = ctx

	tx, err := bound.Transact(&opts, method, args...)
	if err != nil {
		return "", classify(err, desc)
	}

	b.mu.Lock()
	b.sent[tx.Hash()] = sentTx{tx: tx, desc: desc}
	b.mu.Unlock()

	b.lggr.Infow("Transaction broadcast", "txHash", tx.Hash().Hex(), "method", method, "contract", desc.Address)

	return tx.Hash().Hex(), nil
}

// AwaitOutcome waits for the receipt of txID. Receipts with a failed status are REVERTED with
// the reason recovered by replaying the transaction. Exceeding the wait timeout or cancelling
// ctx yields TIMED_OUT.
func (b *Backend) AwaitOutcome(ctx context.Context, txID string) (chain.TransactionOutcome, error) {
	hash := common.HexToHash(txID)
	outcome := chain.TransactionOutcome{TransactionID: txID}

	ctxTimeout, cancel := context.WithTimeout(ctx, b.confirm.WaitMinedTimeout)
	defer cancel()

	receipt, err := waitReceipt(ctxTimeout, b.confirm.TickInterval, b.session.Client, hash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			b.lggr.Warnw("Transaction not mined in time", "txHash", txID, "timeout", b.confirm.WaitMinedTimeout)
			outcome.Status = chain.StatusTimedOut

			return outcome, nil
		}

		return outcome, fmt.Errorf("tx %s failed to confirm: %w", txID, err)
	}
	if receipt == nil {
		return outcome, fmt.Errorf("receipt was nil for tx %s", txID)
	}

	if receipt.BlockNumber != nil {
		outcome.BlockNumber = receipt.BlockNumber.Uint64()
	}

	b.mu.Lock()
	sent, known := b.sent[hash]
	delete(b.sent, hash)
	b.mu.Unlock()

	if receipt.Status == types.ReceiptStatusSuccessful {
		outcome.Status = chain.StatusSuccess

		return outcome, nil
	}

	outcome.Status = chain.StatusReverted
	if known {
		outcome.Reason = replayRevertReason(ctxTimeout, b.session.Client, b.session.Signer.From, sent.tx, receipt, sent.desc)
	}
	b.lggr.Warnw("Transaction reverted", "txHash", txID, "reason", outcome.Reason)

	return outcome, nil
}

func (b *Backend) bind(desc chain.ContractDescriptor) (*bind.BoundContract, error) {
	addr, err := ParseAddress(desc.Address)
	if err != nil {
		return nil, err
	}

	return bind.NewBoundContract(addr, desc.ABI, b.session.Client, b.session.Client, b.session.Client), nil
}

// classify maps go-ethereum call and transact failures to chain errors.
func classify(err error, desc chain.ContractDescriptor) error {
	if errors.Is(err, bind.ErrNoCode) {
		return chain.NewError(chain.KindContractNotDeployed, "no contract code at "+desc.Address, err)
	}
	if reason, ok := decodeRevert(err, desc); ok {
		classified := chain.ClassifyReason(reason)
		classified.Err = err

		return classified
	}

	return chain.Classify(err)
}
