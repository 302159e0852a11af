package datastore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/pkg/logger"
	"github.com/flashfaucet/faucet-kit/pkg/metrics"
)

// DefaultManifestTimeout bounds a single manifest fetch.
const DefaultManifestTimeout = 10 * time.Second

// Resolver resolves the contract addresses of each chain family. It starts from the compiled in
// defaults, applies configured overrides and upgrades to the deployment manifest whenever one
// loads. Every change of an address bumps the generation of its (family, role), which lets
// handles built from an older address detect that they went stale.
//
// A Resolver is safe for concurrent use.
type Resolver struct {
	source  string
	client  *resty.Client
	lggr    logger.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	entries map[AddressRefKey]entry
}

type entry struct {
	address    string
	generation uint64
}

// ResolverOpt configures a Resolver.
type ResolverOpt func(*resolverConfig)

type resolverConfig struct {
	source    string
	timeout   time.Duration
	overrides map[chain.Family]Addresses
	lggr      logger.Logger
	metrics   *metrics.Metrics
}

// WithManifestSource sets the manifest URL or file path. Without one Refresh is a no-op.
func WithManifestSource(source string) ResolverOpt {
	return func(c *resolverConfig) {
		c.source = source
	}
}

// WithManifestTimeout overrides DefaultManifestTimeout.
func WithManifestTimeout(timeout time.Duration) ResolverOpt {
	return func(c *resolverConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithOverrides replaces compiled in defaults. Empty fields keep the default.
func WithOverrides(overrides map[chain.Family]Addresses) ResolverOpt {
	return func(c *resolverConfig) {
		c.overrides = overrides
	}
}

// WithLogger sets the logger of the resolver.
func WithLogger(lggr logger.Logger) ResolverOpt {
	return func(c *resolverConfig) {
		c.lggr = lggr
	}
}

// WithMetrics records manifest loads on m.
func WithMetrics(m *metrics.Metrics) ResolverOpt {
	return func(c *resolverConfig) {
		c.metrics = m
	}
}

// NewResolver returns a resolver serving the defaults and overrides. It fails when an override
// is malformed.
func NewResolver(opts ...ResolverOpt) (*Resolver, error) {
	cfg := resolverConfig{
		timeout: DefaultManifestTimeout,
		lggr:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Resolver{
		source:  cfg.source,
		client:  resty.New().SetTimeout(cfg.timeout),
		lggr:    cfg.lggr.Named("resolver"),
		metrics: cfg.metrics,
		entries: make(map[AddressRefKey]entry),
	}

	for _, ref := range defaultRefs() {
		if _, err := r.Set(ref); err != nil {
			return nil, fmt.Errorf("invalid default address: %w", err)
		}
	}
	for family, addrs := range cfg.overrides {
		for _, ref := range addrs.Refs(family) {
			if _, err := r.Set(ref); err != nil {
				return nil, fmt.Errorf("invalid address override: %w", err)
			}
		}
	}

	return r, nil
}

// Resolve returns the addresses currently resolved for family. It never fails; roles without a
// known address are empty.
func (r *Resolver) Resolve(family chain.Family) Addresses {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Addresses{
		Token:  r.entries[NewAddressRefKey(family, chain.RoleToken)].address,
		Faucet: r.entries[NewAddressRefKey(family, chain.RoleFaucet)].address,
	}
}

// Lookup returns the address of role on family together with its generation.
func (r *Resolver) Lookup(family chain.Family, role chain.Role) (AddressRef, uint64, error) {
	key := NewAddressRefKey(family, role)

	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()

	if !ok || e.address == "" {
		return AddressRef{}, 0, fmt.Errorf("%w: %s", ErrAddressRefNotFound, key)
	}

	return AddressRef{Family: family, Role: role, Address: e.address}, e.generation, nil
}

// Generation returns the generation of the address of role on family. It starts at 1 for a
// known address and is 0 while none is known.
func (r *Resolver) Generation(family chain.Family, role chain.Role) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.entries[NewAddressRefKey(family, role)].generation
}

// Set stores ref and reports whether the resolved address changed. A change bumps the
// generation of the key.
func (r *Resolver) Set(ref AddressRef) (bool, error) {
	ref, err := ref.Normalized()
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[ref.Key()]
	if e.address == ref.Address {
		return false, nil
	}
	r.entries[ref.Key()] = entry{address: ref.Address, generation: e.generation + 1}

	return true, nil
}

// Refresh loads the manifest and applies its addresses. On failure the current addresses are
// kept, a warning is logged and the error is returned for callers that care.
func (r *Resolver) Refresh(ctx context.Context) error {
	if r.source == "" {
		return nil
	}

	m, err := LoadManifest(ctx, r.client, r.source)
	r.metrics.ObserveManifestLoad(err)
	if err != nil {
		r.lggr.Warnw("Failed to load deployment manifest, using current contract addresses",
			"source", r.source, "err", err)

		return err
	}

	refs, invalid := m.Refs()
	if invalid != nil {
		r.lggr.Warnw("Skipping malformed manifest addresses", "source", r.source, "err", invalid)
	}

	for _, ref := range refs {
		changed, err := r.Set(ref)
		if err != nil {
			// refs are normalized already
			return err
		}
		if changed {
			r.lggr.Infow("Contract address updated", "family", ref.Family, "role", ref.Role, "address", ref.Address)
		}
	}

	return nil
}

// Start refreshes once and then every interval until ctx is done. It returns immediately; the
// returned channel is closed when the refresh loop exits. A non positive interval refreshes
// only once.
func (r *Resolver) Start(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = r.Refresh(ctx)
		if interval <= 0 {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = r.Refresh(ctx)
			}
		}
	}()

	return done
}
