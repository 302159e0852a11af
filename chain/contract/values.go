package contract

import (
	"fmt"
	"math/big"
)

// Values are the decoded outputs of a call in declared order. Addresses are chain native strings.
type Values []any

// BigInt returns output i as a *big.Int, widening smaller integer outputs.
func (v Values) BigInt(i int) (*big.Int, error) {
	x, err := v.at(i)
	if err != nil {
		return nil, err
	}

	switch n := x.(type) {
	case *big.Int:
		return new(big.Int).Set(n), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case int64:
		return big.NewInt(n), nil
	default:
		return nil, fmt.Errorf("output %d is %T, not an integer", i, x)
	}
}

// String returns output i as a string. Address outputs are strings already.
func (v Values) String(i int) (string, error) {
	x, err := v.at(i)
	if err != nil {
		return "", err
	}
	s, ok := x.(string)
	if !ok {
		return "", fmt.Errorf("output %d is %T, not a string", i, x)
	}

	return s, nil
}

// Bool returns output i as a bool.
func (v Values) Bool(i int) (bool, error) {
	x, err := v.at(i)
	if err != nil {
		return false, err
	}
	b, ok := x.(bool)
	if !ok {
		return false, fmt.Errorf("output %d is %T, not a bool", i, x)
	}

	return b, nil
}

func (v Values) at(i int) (any, error) {
	if i < 0 || i >= len(v) {
		return nil, fmt.Errorf("output %d out of range, call returned %d values", i, len(v))
	}

	return v[i], nil
}
