// Package amount converts between human decimal token amounts and the fixed point integers
// stored on chain.
package amount

import (
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/flashfaucet/faucet-kit/chain"
)

// TokenDecimals is the number of fractional digits of the faucet token.
const TokenDecimals = 6

// Codec converts amounts for a token with a fixed number of decimals.
type Codec struct {
	Decimals int32
}

// Default is the codec of the faucet token.
var Default = Codec{Decimals: TokenDecimals}

// ToBaseUnits parses a non negative decimal string into base units, truncating any digits
// beyond the codec precision toward zero.
func (c Codec) ToBaseUnits(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, chain.Errorf(chain.KindInvalidAmount, "empty amount")
	}
	if isNonFinite(trimmed) {
		return nil, chain.Errorf(chain.KindInvalidAmount, "non-finite amount %q", s)
	}
	if strings.HasPrefix(trimmed, "-") {
		return nil, chain.Errorf(chain.KindInvalidAmount, "negative amount %q", s)
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, chain.NewError(chain.KindInvalidAmount, "not a number: "+chain.Truncate(s, 40), err)
	}

	return c.fromDecimal(d)
}

// FloatToBaseUnits converts a float amount into base units. NaN, infinities and negative
// values are rejected.
func (c Codec) FloatToBaseUnits(f float64) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, chain.Errorf(chain.KindInvalidAmount, "non-finite amount %v", f)
	}
	if f < 0 {
		return nil, chain.Errorf(chain.KindInvalidAmount, "negative amount %v", f)
	}

	return c.fromDecimal(decimal.NewFromFloat(f))
}

// MaxBaseUnits is the largest amount a uint256 contract argument holds.
var MaxBaseUnits = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// maxIntegerDigits is the number of decimal digits of MaxBaseUnits.
var maxIntegerDigits = len(MaxBaseUnits.String())

func (c Codec) fromDecimal(d decimal.Decimal) (*big.Int, error) {
	if d.Sign() < 0 {
		return nil, chain.Errorf(chain.KindInvalidAmount, "negative amount %s", chain.Truncate(d.String(), 40))
	}
	if d.Sign() == 0 {
		return new(big.Int), nil
	}

	// Digits left of the point once scaled to base units, computed without expanding the
	// exponent.
	digits := int64(d.NumDigits()) + int64(d.Exponent()) + int64(c.Decimals)
	switch {
	case digits <= 0:
		return new(big.Int), nil
	case digits > int64(maxIntegerDigits):
		return nil, chain.Errorf(chain.KindInvalidAmount, "amount exceeds the largest on-chain value")
	}

	units := d.Shift(c.Decimals).Truncate(0).BigInt()
	if units.Cmp(MaxBaseUnits) > 0 {
		return nil, chain.Errorf(chain.KindInvalidAmount, "amount exceeds the largest on-chain value")
	}

	return units, nil
}

// ToDisplayString renders base units as a decimal string without trailing fractional zeros.
// A nil amount renders as "0".
func (c Codec) ToDisplayString(units *big.Int) string {
	if units == nil {
		return "0"
	}

	return decimal.NewFromBigInt(units, -c.Decimals).String()
}

// ToBaseUnits converts s using the [Default] codec.
func ToBaseUnits(s string) (*big.Int, error) { return Default.ToBaseUnits(s) }

// ToDisplayString renders units using the [Default] codec.
func ToDisplayString(units *big.Int) string { return Default.ToDisplayString(units) }

// Must is a helper that panics when err is non nil. Intended for constants in tests and
// defaults.
func Must(v *big.Int, err error) *big.Int {
	if err != nil {
		panic(err)
	}

	return v
}

func isNonFinite(s string) bool {
	l := strings.ToLower(strings.TrimLeft(s, "+-"))

	return l == "nan" || l == "inf" || l == "infinity"
}
