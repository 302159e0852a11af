/*
Package addrconv converts and validates addresses of the chain families supported by the faucet
kit. A converter is registered per family and selected by [chain.Family]; every function fails
with a [chain.KindInvalidAddress] error on malformed input and never returns an empty result.

# Usage

	hexAddr, err := addrconv.ToCanonicalHex(chain.FamilyTron, "TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH")
	if err != nil {
		return err
	}
	native, err := addrconv.ToChainFormat(chain.FamilyTron, hexAddr) // "TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH"

# Supported Chain Families

	EVM:
	  - Chain format: "0x" followed by 40 hex characters, rendered EIP-55 checksummed
	  - Canonical hex: lower case "0x" prefixed
	  - Sample: "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	TRON:
	  - Chain format: base58check, 34 characters, version byte 0x41
	  - Canonical hex: 42 lower case hex characters starting with "41"
	  - Sample: "TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH"

Conversions are pure functions of their input; converting an address that is already in the
requested form returns the identical string.
*/
package addrconv
