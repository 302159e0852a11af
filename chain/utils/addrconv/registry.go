package addrconv

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/evm"
	"github.com/flashfaucet/faucet-kit/chain/tron"
)

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *addressConverterRegistry
)

func registry() *addressConverterRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = newAddressConverterRegistry()
	})

	return defaultRegistry
}

// For returns the converter registered for family.
func For(family chain.Family) (Converter, error) {
	return registry().converter(family)
}

// ToChainFormat returns the chain native form of address.
//
// Usage:
//
//	native, err := addrconv.ToChainFormat(chain.FamilyEVM, "0x5fbdb2315678afecb367f032d93f642f64180aa3")
func ToChainFormat(family chain.Family, address string) (string, error) {
	c, err := For(family)
	if err != nil {
		return "", err
	}

	return c.ToChainFormat(address)
}

// IsWellFormed reports whether address is a well formed address of family. It returns false for
// unsupported families.
func IsWellFormed(family chain.Family, address string) bool {
	c, err := For(family)
	if err != nil {
		return false
	}

	return c.IsWellFormed(address)
}

// ToCanonicalHex returns the hex form of address.
func ToCanonicalHex(family chain.Family, address string) (string, error) {
	c, err := For(family)
	if err != nil {
		return "", err
	}

	return c.ToCanonicalHex(address)
}

// ToABIAddress returns the 20 byte address used when ABI encoding address arguments.
func ToABIAddress(family chain.Family, address string) (common.Address, error) {
	c, err := For(family)
	if err != nil {
		return common.Address{}, err
	}

	return c.ToABIAddress(address)
}

// FromABIAddress renders an ABI decoded address in the native form of family.
func FromABIAddress(family chain.Family, addr common.Address) (string, error) {
	c, err := For(family)
	if err != nil {
		return "", err
	}

	return c.FromABIAddress(addr), nil
}

// addressConverterRegistry manages address conversion strategies for different chain families.
type addressConverterRegistry struct {
	converters map[chain.Family]Converter
}

// newAddressConverterRegistry creates a new registry with all supported chain converters pre-registered.
func newAddressConverterRegistry() *addressConverterRegistry {
	return &addressConverterRegistry{
		converters: map[chain.Family]Converter{
			chain.FamilyEVM:  evm.AddressConverter{},
			chain.FamilyTron: tron.AddressConverter{},
		},
	}
}

func (r *addressConverterRegistry) converter(family chain.Family) (Converter, error) {
	c, exists := r.converters[family]
	if !exists {
		return nil, fmt.Errorf("no address converter registered for family: %s", family)
	}

	return c, nil
}
