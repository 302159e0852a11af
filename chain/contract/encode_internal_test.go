package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFits(t *testing.T) {
	t.Parallel()

	pow2 := func(n uint) *big.Int { return new(big.Int).Lsh(big.NewInt(1), n) }
	minus := func(a *big.Int, b int64) *big.Int { return new(big.Int).Sub(a, big.NewInt(b)) }

	uint256, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	int256, err := abi.NewType("int256", "", nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		typ  abi.Type
		give *big.Int
		want bool
	}{
		{name: "uint zero", typ: uint256, give: big.NewInt(0), want: true},
		{name: "uint max", typ: uint256, give: minus(pow2(256), 1), want: true},
		{name: "uint max+1", typ: uint256, give: pow2(256), want: false},
		{name: "int max", typ: int256, give: minus(pow2(255), 1), want: true},
		{name: "int max+1", typ: int256, give: pow2(255), want: false},
		{name: "int min", typ: int256, give: new(big.Int).Neg(pow2(255)), want: true},
		{name: "int min-1", typ: int256, give: minus(new(big.Int).Neg(pow2(255)), 1), want: false},
		{name: "int minus one", typ: int256, give: big.NewInt(-1), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, fits(tt.typ, tt.give))
		})
	}
}
