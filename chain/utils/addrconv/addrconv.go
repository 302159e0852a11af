package addrconv

import (
	"github.com/ethereum/go-ethereum/common"
)

// Converter defines the strategy interface for address conversion.
// Each chain family implements this interface to provide its specific address handling.
type Converter interface {
	// ToChainFormat returns the chain native form of address.
	ToChainFormat(address string) (string, error)
	// IsWellFormed reports whether address is already in chain native form.
	IsWellFormed(address string) bool
	// ToCanonicalHex returns the hex form of address.
	ToCanonicalHex(address string) (string, error)
	// ToABIAddress returns the 20 byte address used in ABI encoding.
	ToABIAddress(address string) (common.Address, error)
	// FromABIAddress renders an ABI decoded address in chain native form.
	FromABIAddress(addr common.Address) string
}
