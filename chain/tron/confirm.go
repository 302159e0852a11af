package tron

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/tron/rpcclient"
)

// ConfirmConfig defines the configuration for confirming transactions.
type ConfirmConfig struct {
	// RetryAttempts sets a fixed number of receipt lookups before reporting TIMED_OUT.
	RetryAttempts uint
	// RetryDelay is the duration to wait between lookups.
	RetryDelay time.Duration
}

// DefaultConfirmConfig polls every 3 seconds for at most 60 attempts, about three minutes.
var DefaultConfirmConfig = ConfirmConfig{
	RetryAttempts: 60,
	RetryDelay:    3 * time.Second,
}

// retryOpts returns the retry options for confirming transactions.
func (c ConfirmConfig) retryOpts(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.RetryAttempts),
		retry.Delay(c.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	}
}

// receiptSource looks up transaction receipts by id.
type receiptSource interface {
	GetTransactionInfoByID(ctx context.Context, txID string) (*rpcclient.TransactionInfo, error)
}

// confirmTx checks the transaction receipt by its ID, retrying until it is confirmed or fails.
// Lookup errors and undecided receipts use up an attempt. The returned receipt is nil unless a
// decisive status was observed.
func confirmTx(
	ctx context.Context,
	source receiptSource,
	txID string,
	retryOpts ...retry.Option,
) (*rpcclient.TransactionInfo, error) {
	var receipt *rpcclient.TransactionInfo

	err := retry.Do(func() error {
		info, err := source.GetTransactionInfoByID(ctx, txID)
		if err != nil {
			// Node temporarily unreachable
			return fmt.Errorf("error fetching tx info: %w", err)
		}

		switch result := info.Status(); result {
		case rpcclient.ReceiptSuccess:
			receipt = info

			return nil
		case "", rpcclient.ReceiptDefault, rpcclient.ReceiptUnknown:
			return fmt.Errorf("transaction %s is not yet confirmed, result: %q", txID, result) // Retry
		default:
			receipt = info

			return retry.Unrecoverable(fmt.Errorf("transaction %s failed, result: %v", txID, result)) // Fail
		}
	}, retryOpts...)

	if err != nil {
		return receipt, fmt.Errorf("error confirming transaction: %w", err)
	}

	return receipt, nil
}

// receiptReason extracts the revert reason of a failed receipt: the decoded revert data when the
// contract returned any, the node's result message otherwise, and the bare status as a last resort.
func receiptReason(info *rpcclient.TransactionInfo, desc *chain.ContractDescriptor) string {
	for _, data := range info.ContractResult {
		raw, err := hex.DecodeString(data)
		if err != nil || len(raw) == 0 {
			continue
		}
		if reason, ok := decodeRevertData(raw, desc); ok {
			return reason
		}
	}
	if msg := rpcclient.DecodeMessage(info.ResMessage); msg != "" {
		return chain.Truncate(msg, chain.MaxReasonLength)
	}

	return info.Status()
}

// decodeRevertData reads an Error(string) payload or one of the custom errors of desc.
func decodeRevertData(raw []byte, desc *chain.ContractDescriptor) (string, bool) {
	if reason, err := abi.UnpackRevert(raw); err == nil {
		return reason, true
	}
	if desc != nil {
		return desc.DecodeCustomError(raw)
	}

	return "", false
}
