package evm

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/flashfaucet/faucet-kit/chain"
)

// ConfirmConfig bounds the wait for a receipt.
type ConfirmConfig struct {
	// WaitMinedTimeout is the longest AwaitOutcome waits before reporting TIMED_OUT.
	WaitMinedTimeout time.Duration
	// TickInterval is the receipt polling interval.
	TickInterval time.Duration
}

// DefaultConfirmConfig waits as long as the Tron poller so both families time out alike.
var DefaultConfirmConfig = ConfirmConfig{
	WaitMinedTimeout: 3 * time.Minute,
	TickInterval:     time.Second, // matches bind.WaitMined
}

type receiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type callReplayer interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// waitReceipt polls for the receipt of hash until one is returned or ctx is done. Lookup errors
// mean the transaction is not mined yet.
func waitReceipt(ctx context.Context, tick time.Duration, r receiptReader, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if receipt, err := r.TransactionReceipt(ctx, hash); err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// replayRevertReason re-executes a reverted transaction as a call at its block and returns the
// reason the node reports. Empty when the replay succeeds.
func replayRevertReason(
	ctx context.Context, r callReplayer, from common.Address, tx *types.Transaction, receipt *types.Receipt,
	desc chain.ContractDescriptor,
) string {
	_, err := r.CallContract(ctx, ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Data:     tx.Data(),
		Value:    tx.Value(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
	}, receipt.BlockNumber)
	if err == nil {
		return ""
	}
	if reason, ok := decodeRevert(err, desc); ok {
		return reason
	}

	return chain.Classify(err).Reason
}

// decodeRevert reads the revert payload attached to a JSON-RPC error: an Error(string) message
// or one of the custom errors of desc. ok is true for an empty payload, a bare revert.
func decodeRevert(err error, desc chain.ContractDescriptor) (reason string, ok bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return "", false
	}
	data, isStr := dataErr.ErrorData().(string)
	if !isStr {
		return "", false
	}

	raw, err := hexutil.Decode(data)
	switch {
	case err != nil:
		return "", false
	case len(raw) == 0:
		return "", true
	}

	if msg, err := abi.UnpackRevert(raw); err == nil {
		return msg, true
	}

	return desc.DecodeCustomError(raw)
}
