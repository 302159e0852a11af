package tron

import (
	"context"
	"maps"
	"net/url"
	"time"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/tron/rpcclient"
)

// DefaultNodeTimeout bounds every node request when the session does not set a timeout.
const DefaultNodeTimeout = 30 * time.Second

// BridgeVersion is the layout version of BridgeConfig.
const BridgeVersion = 1

// Node is the network endpoint a wallet is connected to.
type Node struct {
	FullHost string
	Headers  map[string]string
}

// Wallet is the resource VM wallet a session signs through, typically a browser extension bridge
// or a local keystore.
type Wallet interface {
	// Ready reports whether the wallet is unlocked and authorized for this client.
	Ready() bool
	// DefaultAddress is the base58 address of the active account, "" when none is selected.
	DefaultAddress() string
	// Node returns the endpoint the wallet is connected to.
	Node() Node
	// Sign returns a copy of tx carrying the signature of the active account.
	Sign(ctx context.Context, tx *rpcclient.Transaction) (*rpcclient.Transaction, error)
}

// BridgeConfig is the node endpoint descriptor attached to every Tron contract handle. All fields
// are populated when the handle is created; downstream consumers never fill in defaults.
type BridgeConfig struct {
	Version  int
	FullHost string
	Headers  map[string]string
	Timeout  time.Duration
}

// NewBridgeConfig builds a fully populated bridge descriptor from the wallet's node. A zero
// timeout selects DefaultNodeTimeout.
func NewBridgeConfig(node Node, timeout time.Duration) (BridgeConfig, error) {
	if timeout <= 0 {
		timeout = DefaultNodeTimeout
	}

	headers := make(map[string]string, len(node.Headers))
	maps.Copy(headers, node.Headers)

	cfg := BridgeConfig{
		Version:  BridgeVersion,
		FullHost: node.FullHost,
		Headers:  headers,
		Timeout:  timeout,
	}
	if err := cfg.Validate(); err != nil {
		return BridgeConfig{}, err
	}

	return cfg, nil
}

// Validate fails with KindSessionUnavailable when any field is missing or malformed.
func (c BridgeConfig) Validate() error {
	if c.Version != BridgeVersion {
		return chain.Errorf(chain.KindSessionUnavailable, "unsupported bridge config version %d", c.Version)
	}
	if c.FullHost == "" {
		return chain.Errorf(chain.KindSessionUnavailable, "Tron node endpoint cannot be determined")
	}
	u, err := url.Parse(c.FullHost)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return chain.Errorf(chain.KindSessionUnavailable, "invalid Tron node endpoint %q", c.FullHost)
	}
	if c.Headers == nil {
		return chain.Errorf(chain.KindSessionUnavailable, "bridge config has no headers")
	}
	if c.Timeout <= 0 {
		return chain.Errorf(chain.KindSessionUnavailable, "bridge config has no timeout")
	}

	return nil
}

// Equal reports whether c and o describe the same endpoint.
func (c BridgeConfig) Equal(o BridgeConfig) bool {
	return c.Version == o.Version &&
		c.FullHost == o.FullHost &&
		c.Timeout == o.Timeout &&
		maps.Equal(c.Headers, o.Headers)
}

// Client returns a node client for the endpoint.
func (c BridgeConfig) Client() *rpcclient.Client {
	return rpcclient.New(c.FullHost, c.Headers, c.Timeout)
}

// Session is an authorized Tron wallet session.
type Session struct {
	// Selector is the chain selector of the connected network. Zero when unknown.
	Selector uint64
	Wallet   Wallet
	// Timeout bounds node requests. Zero selects DefaultNodeTimeout.
	Timeout time.Duration
}

// Family returns chain.FamilyTron.
func (s *Session) Family() chain.Family { return chain.FamilyTron }

// ActiveAddress returns the base58 address of the active account.
func (s *Session) ActiveAddress() string {
	if s == nil || s.Wallet == nil {
		return ""
	}

	return s.Wallet.DefaultAddress()
}

// Validate fails with a KindSessionUnavailable error when the wallet is missing, not authorized
// or has no well formed active address.
func (s *Session) Validate() error {
	switch {
	case s == nil || s.Wallet == nil:
		return chain.Errorf(chain.KindSessionUnavailable, "no Tron wallet session")
	case !s.Wallet.Ready():
		return chain.Errorf(chain.KindSessionUnavailable, "Tron wallet is not ready")
	}

	addr := s.Wallet.DefaultAddress()
	if addr == "" {
		return chain.Errorf(chain.KindSessionUnavailable, "Tron wallet has no active account")
	}
	if !IsWellFormed(addr) {
		return chain.Errorf(chain.KindSessionUnavailable, "Tron wallet reports malformed address %q", addr)
	}

	return nil
}

// Bridge validates the session and builds the bridge descriptor of its node.
func (s *Session) Bridge() (BridgeConfig, error) {
	if err := s.Validate(); err != nil {
		return BridgeConfig{}, err
	}

	return NewBridgeConfig(s.Wallet.Node(), s.Timeout)
}
