package chain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

// Family selects the codec and transport branch used for a session. It is immutable for the
// lifetime of a session.
type Family string

const (
	// FamilyEVM is an Ethereum style chain driven through a JSON-RPC provider and a signer.
	FamilyEVM Family = chainsel.FamilyEVM
	// FamilyTron is the resource limited Tron VM driven through a node HTTP API and a wallet.
	FamilyTron Family = chainsel.FamilyTron
)

// Families lists every supported family in a stable order.
var Families = []Family{FamilyEVM, FamilyTron}

var ErrUnsupportedFamily = errors.New("unsupported chain family")

func (f Family) String() string { return string(f) }

// Validate returns ErrUnsupportedFamily when f is not one of [Families].
func (f Family) Validate() error {
	switch f {
	case FamilyEVM, FamilyTron:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFamily, string(f))
	}
}

// ParseFamily parses a family name, case-insensitively.
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}

	return f, nil
}

// Network identifies the chain a session is bound to by its chain selector.
type Network struct {
	Selector uint64
}

// Family returns the family of the network, failing for selectors of families other than EVM
// and Tron.
func (n Network) Family() (Family, error) {
	family, err := chainsel.GetSelectorFamily(n.Selector)
	if err != nil {
		return "", err
	}

	f := Family(family)
	if err := f.Validate(); err != nil {
		return "", err
	}

	return f, nil
}

// ChainID returns the chain id of the network as a decimal string.
func (n Network) ChainID() (string, error) {
	return chainsel.GetChainIDFromSelector(n.Selector)
}

// Name returns the name of the network, or the selector when the name is unknown.
func (n Network) Name() string {
	details, err := n.details()
	if err != nil || details.ChainName == "" {
		return strconv.FormatUint(n.Selector, 10)
	}

	return details.ChainName
}

// String returns network name and selector "<name> (<selector>)"
func (n Network) String() string {
	return fmt.Sprintf("%s (%d)", n.Name(), n.Selector)
}

func (n Network) details() (chainsel.ChainDetails, error) {
	id, err := chainsel.GetChainIDFromSelector(n.Selector)
	if err != nil {
		return chainsel.ChainDetails{}, err
	}
	family, err := chainsel.GetSelectorFamily(n.Selector)
	if err != nil {
		return chainsel.ChainDetails{}, err
	}

	return chainsel.GetChainDetailsByChainIDAndFamily(id, family)
}
