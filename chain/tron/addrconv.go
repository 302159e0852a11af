package tron

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fbsobreira/gotron-sdk/pkg/address"

	"github.com/flashfaucet/faucet-kit/chain"
)

const (
	// AddressPrefix is the version byte of every Tron account and contract address.
	AddressPrefix byte = 0x41
	// AddressLength is the length of a decoded Tron address including the version byte.
	AddressLength = 21
	// Base58Length is the length of a base58check encoded Tron address.
	Base58Length = 34
)

// ParseAddress decodes a Tron address given either in base58check form
// ("TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH") or as 42 hex characters starting with the version byte,
// optionally "0x" prefixed.
func ParseAddress(s string) (address.Address, error) {
	if len(s) == Base58Length {
		addr, err := address.Base58ToAddress(s)
		if err != nil {
			return nil, chain.NewError(chain.KindInvalidAddress, "invalid Tron address "+quote(s), err)
		}
		if !validBytes(addr.Bytes()) {
			return nil, chain.Errorf(chain.KindInvalidAddress, "invalid Tron address %q", s)
		}

		return addr, nil
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil || !validBytes(raw) {
		return nil, chain.Errorf(chain.KindInvalidAddress, "invalid Tron address %q", s)
	}

	return address.Address(raw), nil
}

// IsWellFormed reports whether s is a base58check Tron address carrying the Tron version byte.
func IsWellFormed(s string) bool {
	if len(s) != Base58Length {
		return false
	}
	_, err := ParseAddress(s)

	return err == nil
}

// AddressConverter implements address conversion for Tron chains.
type AddressConverter struct{}

// ToChainFormat returns the base58check form of s.
func (AddressConverter) ToChainFormat(s string) (string, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}

	return addr.String(), nil
}

// IsWellFormed reports whether s is a well formed base58check Tron address.
func (AddressConverter) IsWellFormed(s string) bool {
	return IsWellFormed(s)
}

// ToCanonicalHex returns the 42 character lower case hex form of s, starting with "41".
func (AddressConverter) ToCanonicalHex(s string) (string, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(addr.Bytes()), nil
}

// ToABIAddress strips the version byte and returns the 20 byte address used by the Tron VM in
// ABI encoding.
func (AddressConverter) ToABIAddress(s string) (common.Address, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return common.Address{}, err
	}

	return common.BytesToAddress(addr.Bytes()[1:]), nil
}

// FromABIAddress renders an ABI decoded address in base58check form.
func (AddressConverter) FromABIAddress(addr common.Address) string {
	raw := append([]byte{AddressPrefix}, addr.Bytes()...)

	return address.Address(raw).String()
}

func validBytes(b []byte) bool {
	return len(b) == AddressLength && b[0] == AddressPrefix
}

func quote(s string) string {
	return `"` + chain.Truncate(s, 64) + `"`
}
