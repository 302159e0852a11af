package tron

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/tron/rpcclient"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

// DefaultFeeLimit is the energy fee ceiling of a transaction in sun (100 TRX).
const DefaultFeeLimit int64 = 100_000_000

// Backend dispatches contract calls and transactions for a Tron wallet session through the full
// node HTTP API and polls for their receipts.
type Backend struct {
	session  *Session
	bridge   BridgeConfig
	client   *rpcclient.Client
	confirm  ConfirmConfig
	feeLimit int64
	lggr     logger.Logger

	mu   sync.Mutex
	sent map[string]chain.ContractDescriptor
}

// BackendOpt configures a Backend.
type BackendOpt func(*Backend)

// WithConfirmConfig overrides the receipt polling configuration. Zero fields keep the defaults.
func WithConfirmConfig(cfg ConfirmConfig) BackendOpt {
	return func(b *Backend) {
		if cfg.RetryAttempts > 0 {
			b.confirm.RetryAttempts = cfg.RetryAttempts
		}
		if cfg.RetryDelay > 0 {
			b.confirm.RetryDelay = cfg.RetryDelay
		}
	}
}

// WithFeeLimit sets the fee limit of transactions in sun.
func WithFeeLimit(feeLimit int64) BackendOpt {
	return func(b *Backend) {
		if feeLimit > 0 {
			b.feeLimit = feeLimit
		}
	}
}

// WithLogger sets the logger of the backend.
func WithLogger(lggr logger.Logger) BackendOpt {
	return func(b *Backend) {
		b.lggr = lggr
	}
}

// NewBackend returns a Backend for session. It fails with KindSessionUnavailable when the session
// is not ready or its node endpoint cannot be determined.
func NewBackend(session *Session, opts ...BackendOpt) (*Backend, error) {
	bridge, err := session.Bridge()
	if err != nil {
		return nil, err
	}

	b := &Backend{
		session:  session,
		bridge:   bridge,
		client:   bridge.Client(),
		confirm:  DefaultConfirmConfig,
		feeLimit: DefaultFeeLimit,
		lggr:     logger.Nop(),
		sent:     make(map[string]chain.ContractDescriptor),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Bridge returns the node endpoint descriptor the backend was built with.
func (b *Backend) Bridge() BridgeConfig { return b.bridge }

// Call performs a read only call. Methods whose outputs are all named decode to a
// map[string]any keyed by output name; others decode to a positional []any.
func (b *Backend) Call(ctx context.Context, desc chain.ContractDescriptor, method string, args []any) (any, error) {
	req, m, err := b.triggerRequest(desc, method, args)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.TriggerConstantContract(ctx, req)
	if err != nil {
		return nil, chain.Classify(err)
	}

	var raw []byte
	if len(resp.ConstantResult) > 0 {
		raw, err = hex.DecodeString(resp.ConstantResult[0])
		if err != nil {
			return nil, chain.NewError(chain.KindUnknown, "malformed constant result of "+method, err)
		}
	}

	// ABI encoded outputs are whole words; revert data carries a 4 byte selector in front.
	reverted := resp.Transaction != nil && resp.Transaction.Reverted()
	if reverted || len(raw)%32 == 4 {
		if reason, ok := decodeRevertData(raw, &desc); ok {
			return nil, chain.ClassifyReason(reason)
		}
	}
	if resp.Result.Failed() || reverted {
		return nil, classifyReturn(resp.Result)
	}

	if len(raw) == 0 && len(m.Outputs) > 0 {
		return nil, chain.Errorf(chain.KindContractNotDeployed, "no contract code at %s", desc.Address)
	}

	return decodeOutputs(m, raw)
}

// Send builds the transaction through the node, has the wallet sign it and broadcasts it,
// returning the transaction id without waiting for inclusion.
func (b *Backend) Send(ctx context.Context, desc chain.ContractDescriptor, method string, args []any) (string, error) {
	req, _, err := b.triggerRequest(desc, method, args)
	if err != nil {
		return "", err
	}
	req.FeeLimit = b.feeLimit

	resp, err := b.client.TriggerSmartContract(ctx, req)
	if err != nil {
		return "", chain.Classify(err)
	}
	if resp.Result.Failed() {
		return "", classifyReturn(resp.Result)
	}
	if resp.Transaction == nil || resp.Transaction.TxID == "" {
		return "", chain.Errorf(chain.KindUnknown, "node returned no transaction for %s", method)
	}

	signed, err := b.session.Wallet.Sign(ctx, resp.Transaction)
	if err != nil {
		return "", chain.Classify(err)
	}

	br, err := b.client.BroadcastTransaction(ctx, signed)
	if err != nil {
		return "", chain.Classify(err)
	}
	if ret := br.Return(); ret.Failed() {
		return "", classifyReturn(ret)
	}

	b.mu.Lock()
	b.sent[signed.TxID] = desc
	b.mu.Unlock()

	b.lggr.Infow("Transaction broadcast", "txID", signed.TxID, "method", method, "contract", desc.Address)

	return signed.TxID, nil
}

// AwaitOutcome polls the receipt of txID until a decisive status is reported or the attempt
// ceiling is reached. Lookup failures count as used attempts. Running out of attempts or
// cancelling ctx yields TIMED_OUT.
func (b *Backend) AwaitOutcome(ctx context.Context, txID string) (chain.TransactionOutcome, error) {
	outcome := chain.TransactionOutcome{TransactionID: txID}

	b.mu.Lock()
	desc, known := b.sent[txID]
	delete(b.sent, txID)
	b.mu.Unlock()

	receipt, err := confirmTx(ctx, b.client, txID, b.confirm.retryOpts(ctx)...)
	if receipt == nil {
		b.lggr.Warnw("Transaction not confirmed in time", "txID", txID, "attempts", b.confirm.RetryAttempts, "err", err)
		outcome.Status = chain.StatusTimedOut

		return outcome, nil
	}

	outcome.BlockNumber = receipt.BlockNumber
	if err == nil {
		outcome.Status = chain.StatusSuccess

		return outcome, nil
	}

	var descPtr *chain.ContractDescriptor
	if known {
		descPtr = &desc
	}
	outcome.Status = chain.StatusReverted
	outcome.Reason = receiptReason(receipt, descPtr)
	b.lggr.Warnw("Transaction reverted", "txID", txID, "result", receipt.Status(), "reason", outcome.Reason)

	return outcome, nil
}

func (b *Backend) triggerRequest(desc chain.ContractDescriptor, method string, args []any) (rpcclient.TriggerRequest, abi.Method, error) {
	m, ok := desc.ABI.Methods[method]
	if !ok {
		return rpcclient.TriggerRequest{}, abi.Method{}, chain.Errorf(chain.KindUnknownMethod, "%s has no method %q", desc.Role, method)
	}

	contract, err := ParseAddress(desc.Address)
	if err != nil {
		return rpcclient.TriggerRequest{}, abi.Method{}, err
	}

	packed, err := m.Inputs.Pack(args...)
	if err != nil {
		return rpcclient.TriggerRequest{}, abi.Method{}, fmt.Errorf("failed to encode arguments of %s: %w", method, err)
	}

	return rpcclient.TriggerRequest{
		OwnerAddress:     b.session.ActiveAddress(),
		ContractAddress:  contract.String(),
		FunctionSelector: m.Sig,
		Parameter:        hex.EncodeToString(packed),
		Visible:          true,
	}, m, nil
}

func decodeOutputs(m abi.Method, raw []byte) (any, error) {
	named := len(m.Outputs) > 0
	for _, out := range m.Outputs {
		if out.Name == "" {
			named = false
		}
	}

	if named {
		values := make(map[string]any, len(m.Outputs))
		if err := m.Outputs.UnpackIntoMap(values, raw); err != nil {
			return nil, chain.NewError(chain.KindUnknown, "failed to decode outputs of "+m.Name, err)
		}

		return values, nil
	}

	values, err := m.Outputs.Unpack(raw)
	if err != nil {
		return nil, chain.NewError(chain.KindUnknown, "failed to decode outputs of "+m.Name, err)
	}

	return values, nil
}

// classifyReturn maps a failed node result to a chain error from its code and message.
func classifyReturn(ret rpcclient.Return) error {
	return chain.Classify(errors.New(ret.Text()))
}
