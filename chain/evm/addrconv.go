package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/flashfaucet/faucet-kit/chain"
)

// IsWellFormed reports whether address is "0x" followed by exactly 40 hex characters.
// Checksums are not enforced.
func IsWellFormed(address string) bool {
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// ParseAddress validates address and returns it as a go-ethereum address.
func ParseAddress(address string) (common.Address, error) {
	if !IsWellFormed(address) {
		return common.Address{}, chain.Errorf(chain.KindInvalidAddress, "invalid EVM address %q", address)
	}

	return common.HexToAddress(address), nil
}

// AddressConverter implements address conversion for EVM chains.
type AddressConverter struct{}

// ToChainFormat returns the EIP-55 checksummed form of address.
func (AddressConverter) ToChainFormat(address string) (string, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return "", err
	}

	return addr.Hex(), nil
}

// IsWellFormed reports whether address is a well formed EVM address.
func (AddressConverter) IsWellFormed(address string) bool {
	return IsWellFormed(address)
}

// ToCanonicalHex returns the lower case "0x" prefixed form of address.
func (AddressConverter) ToCanonicalHex(address string) (string, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return "", err
	}

	return strings.ToLower(addr.Hex()), nil
}

// ToABIAddress returns the 20 byte address used in ABI encoding.
func (AddressConverter) ToABIAddress(address string) (common.Address, error) {
	return ParseAddress(address)
}

// FromABIAddress renders an ABI decoded address in chain format.
func (AddressConverter) FromABIAddress(addr common.Address) string {
	return addr.Hex()
}
