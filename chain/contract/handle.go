package contract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/evm"
	"github.com/flashfaucet/faucet-kit/chain/tron"
	"github.com/flashfaucet/faucet-kit/datastore"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
)

// Backend dispatches contract invocations for a single wallet session.
type Backend interface {
	// Call performs a read only call. The result is a positional []any or, when the transport
	// returns named fields, a map keyed by output name.
	Call(ctx context.Context, desc chain.ContractDescriptor, method string, args []any) (any, error)
	// Send signs and broadcasts a transaction and returns its id without waiting for inclusion.
	Send(ctx context.Context, desc chain.ContractDescriptor, method string, args []any) (string, error)
	// AwaitOutcome waits for the terminal state of a transaction sent through this backend.
	AwaitOutcome(ctx context.Context, txID string) (chain.TransactionOutcome, error)
}

var (
	_ Backend = (*evm.Backend)(nil)
	_ Backend = (*tron.Backend)(nil)
)

// Session is an authorized wallet session of one chain family.
type Session interface {
	Family() chain.Family
	// ActiveAddress is the chain native address of the account that signs.
	ActiveAddress() string
	// Validate fails with a KindSessionUnavailable error when the session cannot be used.
	Validate() error
}

var (
	_ Session = (*evm.Session)(nil)
	_ Session = (*tron.Session)(nil)
)

// AddressSource resolves contract addresses and the generation they were resolved at.
type AddressSource interface {
	Lookup(family chain.Family, role chain.Role) (datastore.AddressRef, uint64, error)
	Generation(family chain.Family, role chain.Role) uint64
}

var _ AddressSource = (*datastore.Resolver)(nil)

// Handle binds a contract descriptor to a wallet session. Handles are immutable; when the
// session's account or node or the resolved address changes, the handle goes stale and a new one
// has to be created.
type Handle struct {
	Descriptor chain.ContractDescriptor
	// Bridge is the node endpoint of Tron handles, nil for other families.
	Bridge *tron.BridgeConfig

	session    Session
	backend    Backend
	generation uint64
	account    string
}

// NewHandle binds desc to session and backend. Generation is the address generation desc was
// resolved at. Factory.CreateHandle is the usual way to obtain a handle.
func NewHandle(desc chain.ContractDescriptor, session Session, backend Backend, generation uint64) (*Handle, error) {
	if session == nil {
		return nil, chain.Errorf(chain.KindSessionUnavailable, "no wallet session")
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if session.Family() != desc.Family {
		return nil, chain.Errorf(chain.KindSessionUnavailable, "%s session cannot drive a %s contract", session.Family(), desc.Family)
	}
	if backend == nil {
		return nil, errors.New("no backend")
	}

	h := &Handle{
		Descriptor: desc,
		session:    session,
		backend:    backend,
		generation: generation,
		account:    session.ActiveAddress(),
	}

	if ts, ok := session.(*tron.Session); ok {
		bridge, err := ts.Bridge()
		if err != nil {
			return nil, err
		}
		if tb, ok := backend.(*tron.Backend); ok && !tb.Bridge().Equal(bridge) {
			return nil, chain.Errorf(chain.KindStaleHandle, "backend targets %s but the wallet node is %s",
				tb.Bridge().FullHost, bridge.FullHost)
		}
		h.Bridge = &bridge
	}

	return h, nil
}

// Family returns the chain family of the handle.
func (h *Handle) Family() chain.Family { return h.Descriptor.Family }

// Role returns the contract role of the handle.
func (h *Handle) Role() chain.Role { return h.Descriptor.Role }

// Address returns the contract address in chain native form.
func (h *Handle) Address() string { return h.Descriptor.Address }

// Account returns the active address of the session at handle creation.
func (h *Handle) Account() string { return h.account }

// Generation returns the address generation the handle was created at.
func (h *Handle) Generation() uint64 { return h.generation }

// checkCurrent fails with KindStaleHandle when the handle no longer matches the session or the
// resolved address.
func (h *Handle) checkCurrent(addresses AddressSource) error {
	if err := h.session.Validate(); err != nil {
		return err
	}
	if current := h.session.ActiveAddress(); current != h.account {
		return chain.Errorf(chain.KindStaleHandle, "active account changed from %s to %s", h.account, current)
	}
	if h.Bridge != nil {
		ts, _ := h.session.(*tron.Session)
		bridge, err := ts.Bridge()
		if err != nil {
			return err
		}
		if !bridge.Equal(*h.Bridge) {
			return chain.Errorf(chain.KindStaleHandle, "wallet node changed from %s to %s", h.Bridge.FullHost, bridge.FullHost)
		}
	}
	if addresses != nil {
		if gen := addresses.Generation(h.Family(), h.Role()); gen != h.generation {
			return chain.Errorf(chain.KindStaleHandle, "%s address of %s was refreshed (generation %d, handle %d)",
				h.Role(), h.Family(), gen, h.generation)
		}
	}

	return nil
}

// FactoryOpt configures a Factory.
type FactoryOpt func(*Factory)

// WithEVMBackendOpts sets the options of EVM backends created by the factory.
func WithEVMBackendOpts(opts ...evm.BackendOpt) FactoryOpt {
	return func(f *Factory) {
		f.evmOpts = opts
	}
}

// WithTronBackendOpts sets the options of Tron backends created by the factory.
func WithTronBackendOpts(opts ...tron.BackendOpt) FactoryOpt {
	return func(f *Factory) {
		f.tronOpts = opts
	}
}

// WithFactoryLogger sets the logger of the factory and the backends it creates.
func WithFactoryLogger(lggr logger.Logger) FactoryOpt {
	return func(f *Factory) {
		f.lggr = lggr
	}
}

// Factory creates contract handles from the currently resolved addresses. The backend of the
// latest session of each family is reused across handles; a new session or a Tron wallet that
// switched node replaces it.
type Factory struct {
	addresses AddressSource
	evmOpts   []evm.BackendOpt
	tronOpts  []tron.BackendOpt
	lggr      logger.Logger

	mu       sync.Mutex
	backends map[chain.Family]cachedBackend
}

type cachedBackend struct {
	session Session
	backend Backend
}

// NewFactory returns a factory resolving addresses through addresses.
func NewFactory(addresses AddressSource, opts ...FactoryOpt) *Factory {
	f := &Factory{
		addresses: addresses,
		lggr:      logger.Nop(),
		backends:  make(map[chain.Family]cachedBackend),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateHandle binds the contract of role on the session's chain family to session.
//
// It fails with KindSessionUnavailable when the session is missing, not authorized or its node
// endpoint cannot be determined, and with KindContractNotDeployed when no address is resolved for
// the role. No network request is made.
func (f *Factory) CreateHandle(_ context.Context, role chain.Role, session Session) (*Handle, error) {
	if session == nil {
		return nil, chain.Errorf(chain.KindSessionUnavailable, "no wallet session")
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	family := session.Family()

	ref, generation, err := f.addresses.Lookup(family, role)
	if err != nil {
		if errors.Is(err, datastore.ErrAddressRefNotFound) {
			return nil, chain.NewError(chain.KindContractNotDeployed, fmt.Sprintf("no %s address resolved for %s", role, family), err)
		}

		return nil, err
	}

	desc, err := chain.DescriptorFor(family, role, ref.Address)
	if err != nil {
		return nil, err
	}

	backend, err := f.backend(session)
	if err != nil {
		return nil, err
	}

	return NewHandle(desc, session, backend, generation)
}

func (f *Factory) backend(session Session) (Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	family := session.Family()
	if c, ok := f.backends[family]; ok && c.session == session {
		current, err := targetsCurrentNode(c.backend, session)
		if err != nil {
			return nil, err
		}
		if current {
			return c.backend, nil
		}
		f.lggr.Infow("Wallet node changed, rebuilding backend", "family", family)
	}

	var (
		b   Backend
		err error
	)
	switch s := session.(type) {
	case *evm.Session:
		b, err = evm.NewBackend(s, append([]evm.BackendOpt{evm.WithLogger(f.lggr.Named("evm"))}, f.evmOpts...)...)
	case *tron.Session:
		b, err = tron.NewBackend(s, append([]tron.BackendOpt{tron.WithLogger(f.lggr.Named("tron"))}, f.tronOpts...)...)
	default:
		return nil, chain.Errorf(chain.KindSessionUnavailable, "unsupported %s session type %T", family, session)
	}
	if err != nil {
		return nil, err
	}
	f.backends[family] = cachedBackend{session: session, backend: b}

	return b, nil
}

// targetsCurrentNode reports whether b still talks to the node the session's wallet is connected
// to. Only Tron backends are bound to a wallet chosen node.
func targetsCurrentNode(b Backend, session Session) (bool, error) {
	tb, ok := b.(*tron.Backend)
	if !ok {
		return true, nil
	}
	bridge, err := session.(*tron.Session).Bridge()
	if err != nil {
		return false, err
	}

	return tb.Bridge().Equal(bridge), nil
}
