package contract

import (
	"context"
	"errors"
	"time"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
	"github.com/flashfaucet/faucet-kit/pkg/metrics"
)

const (
	modeCall = "call"
	modeSend = "send"
)

// PendingTransaction is a broadcast transaction whose outcome has not been observed yet.
type PendingTransaction struct {
	ID     string
	Method string

	handle  *Handle
	invoker *Invoker
}

// AwaitOutcome waits for the transaction outcome. TIMED_OUT is an outcome, not an error.
func (p *PendingTransaction) AwaitOutcome(ctx context.Context) (chain.TransactionOutcome, error) {
	return p.invoker.AwaitOutcome(ctx, p.handle, p.ID)
}

// InvokerOpt configures an Invoker.
type InvokerOpt func(*Invoker)

// WithLogger sets the logger of the invoker.
func WithLogger(lggr logger.Logger) InvokerOpt {
	return func(i *Invoker) {
		i.lggr = lggr
	}
}

// WithMetrics records invocations and outcomes on m.
func WithMetrics(m *metrics.Metrics) InvokerOpt {
	return func(i *Invoker) {
		i.metrics = m
	}
}

// Invoker calls contract methods through handles, independently of the chain family.
//
// Before any network request the invoker checks that the method is declared by the handle's
// descriptor (KindUnknownMethod), that the handle is still current (KindStaleHandle) and that
// every argument encodes (KindInvalidAddress, KindInvalidAmount). Dispatch failures are returned
// as classified *chain.Error values.
type Invoker struct {
	addresses AddressSource
	lggr      logger.Logger
	metrics   *metrics.Metrics
}

// NewInvoker returns an invoker that rejects handles whose address generation no longer matches
// addresses. A nil addresses disables the address check.
func NewInvoker(addresses AddressSource, opts ...InvokerOpt) *Invoker {
	i := &Invoker{
		addresses: addresses,
		lggr:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.lggr = i.lggr.Named("invoker")

	return i
}

// Call performs a read only call of method and returns its outputs in declared order.
func (i *Invoker) Call(ctx context.Context, h *Handle, method string, args ...any) (Values, error) {
	m, encoded, err := i.prepare(h, method, args)
	if err != nil {
		i.observe(h, method, modeCall, err)
		return nil, err
	}

	raw, err := h.backend.Call(ctx, h.Descriptor, method, encoded)
	if err != nil {
		err = classified(err)
		i.observe(h, method, modeCall, err)

		return nil, err
	}

	values, err := normalizeOutputs(h.Family(), m, raw)
	if err != nil {
		err = chain.NewError(chain.KindUnknown, chain.Truncate(err.Error(), chain.MaxReasonLength), err)
	}
	i.observe(h, method, modeCall, err)
	if err != nil {
		return nil, err
	}

	return values, nil
}

// Send broadcasts a transaction invoking method and returns as soon as the node accepted it.
// Read only methods are rejected with KindUnknownMethod.
func (i *Invoker) Send(ctx context.Context, h *Handle, method string, args ...any) (*PendingTransaction, error) {
	m, encoded, err := i.prepare(h, method, args)
	if err == nil && m.Mutability.ReadOnly() {
		err = chain.Errorf(chain.KindUnknownMethod, "%s is read only and cannot be sent", method)
	}
	if err != nil {
		i.observe(h, method, modeSend, err)
		return nil, err
	}

	txID, err := h.backend.Send(ctx, h.Descriptor, method, encoded)
	if err != nil {
		err = classified(err)
		i.observe(h, method, modeSend, err)
		i.lggr.Warnw("Transaction failed", "family", h.Family(), "method", method, "contract", h.Address(), "err", err)

		return nil, err
	}
	i.observe(h, method, modeSend, nil)

	return &PendingTransaction{ID: txID, Method: method, handle: h, invoker: i}, nil
}

// AwaitOutcome waits for the outcome of a transaction sent through h.
func (i *Invoker) AwaitOutcome(ctx context.Context, h *Handle, txID string) (chain.TransactionOutcome, error) {
	start := time.Now()

	outcome, err := h.backend.AwaitOutcome(ctx, txID)
	if err != nil {
		return outcome, classified(err)
	}
	i.metrics.ObserveOutcome(h.Family().String(), string(outcome.Status), time.Since(start))
	i.lggr.Infow("Transaction outcome", "family", h.Family(), "txID", txID, "status", outcome.Status, "reason", outcome.Reason)

	return outcome, nil
}

func (i *Invoker) prepare(h *Handle, method string, args []any) (chain.Method, []any, error) {
	if h == nil {
		return chain.Method{}, nil, chain.Errorf(chain.KindSessionUnavailable, "no contract handle")
	}
	m, ok := h.Descriptor.Method(method)
	if !ok {
		return chain.Method{}, nil, chain.Errorf(chain.KindUnknownMethod, "%s has no method %q", h.Role(), method)
	}
	if err := h.checkCurrent(i.addresses); err != nil {
		return chain.Method{}, nil, err
	}

	encoded, err := encodeArgs(h.Family(), m, args)
	if err != nil {
		return chain.Method{}, nil, err
	}

	return m, encoded, nil
}

func (i *Invoker) observe(h *Handle, method, mode string, err error) {
	if i.metrics == nil || h == nil {
		return
	}
	result := metrics.ResultOK
	if err != nil {
		result = chain.KindOf(err).String()
	}
	i.metrics.ObserveInvocation(h.Family().String(), method, mode, result)
}

func classified(err error) error {
	var e *chain.Error
	if errors.As(err, &e) {
		return err
	}

	return chain.Classify(err)
}
