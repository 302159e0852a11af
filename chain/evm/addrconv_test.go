package evm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashfaucet/faucet-kit/chain"
)

func TestIsWellFormed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give string
		want bool
	}{
		{give: "0x5FbDB2315678afecb367f032d93F642f64180aa3", want: true},
		{give: "0x5fbdb2315678afecb367f032d93f642f64180aa3", want: true},
		{give: "0x5FBDB2315678AFECB367F032D93F642F64180AA3", want: true},
		{give: "5FbDB2315678afecb367f032d93F642f64180aa3", want: false},
		{give: "0x5FbDB2315678afecb367f032d93F642f64180aa", want: false},
		{give: "0x5FbDB2315678afecb367f032d93F642f64180aa30", want: false},
		{give: "0x5FbDB2315678afecb367f032d93F642f64180aZ3", want: false},
		{give: "0x" + strings.Repeat("g", 40), want: false},
		{give: "", want: false},
		{give: "TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsWellFormed(tt.give))
		})
	}
}

func TestAddressConverter(t *testing.T) {
	t.Parallel()

	converter := AddressConverter{}
	lower := "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	checksummed := "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	t.Run("ToChainFormat", func(t *testing.T) {
		t.Parallel()

		got, err := converter.ToChainFormat(lower)
		require.NoError(t, err)
		assert.Equal(t, checksummed, got)

		again, err := converter.ToChainFormat(got)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	})

	t.Run("ToCanonicalHex", func(t *testing.T) {
		t.Parallel()

		got, err := converter.ToCanonicalHex(checksummed)
		require.NoError(t, err)
		assert.Equal(t, lower, got)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := converter.ToChainFormat("0x1234")
		require.ErrorIs(t, err, chain.ErrInvalidAddress)

		_, err = converter.ToCanonicalHex("")
		require.ErrorIs(t, err, chain.ErrInvalidAddress)

		_, err = converter.ToABIAddress("nope")
		require.ErrorIs(t, err, chain.ErrInvalidAddress)
	})

	t.Run("ABI address", func(t *testing.T) {
		t.Parallel()

		addr, err := converter.ToABIAddress(lower)
		require.NoError(t, err)
		assert.Equal(t, checksummed, converter.FromABIAddress(addr))
		assert.Equal(t, lower, strings.ToLower(addr.Hex()))
	})
}
