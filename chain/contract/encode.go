package contract

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/utils/addrconv"
)

// encodeArgs converts caller arguments to the Go values the ABI packer expects. Address
// arguments may be chain native strings; integer arguments may be *big.Int, Go integers or
// base unit decimal strings. Malformed values fail before any network request.
func encodeArgs(family chain.Family, m chain.Method, args []any) ([]any, error) {
	inputs := m.ABI.Inputs
	if len(args) != len(inputs) {
		return nil, chain.Errorf(chain.KindUnknown, "%s takes %d arguments, got %d", m.Name, len(inputs), len(args))
	}

	out := make([]any, len(args))
	for i, arg := range args {
		v, err := encodeArg(family, inputs[i].Type, arg)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

func encodeArg(family chain.Family, typ abi.Type, arg any) (any, error) {
	switch typ.T {
	case abi.AddressTy:
		switch v := arg.(type) {
		case string:
			return addrconv.ToABIAddress(family, v)
		case common.Address:
			return v, nil
		default:
			return nil, chain.Errorf(chain.KindInvalidAddress, "unsupported address argument of type %T", arg)
		}
	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(arg)
		if err != nil {
			return nil, err
		}
		if typ.T == abi.UintTy && n.Sign() < 0 {
			return nil, chain.Errorf(chain.KindInvalidAmount, "negative value %s for %s", n, typ)
		}
		if typ.Size > 64 {
			if !fits(typ, n) {
				return nil, chain.Errorf(chain.KindInvalidAmount, "value %s overflows %s", n, typ)
			}

			return n, nil
		}

		return sizedInt(typ, n)
	default:
		return arg, nil
	}
}

func toBigInt(arg any) (*big.Int, error) {
	switch v := arg.(type) {
	case *big.Int:
		if v == nil {
			return nil, chain.Errorf(chain.KindInvalidAmount, "nil amount")
		}

		return new(big.Int).Set(v), nil
	case string:
		n, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
		if !ok {
			return nil, chain.Errorf(chain.KindInvalidAmount, "invalid integer %q", v)
		}

		return n, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	default:
		return nil, chain.Errorf(chain.KindInvalidAmount, "unsupported integer argument of type %T", arg)
	}
}

// fits reports whether n is representable in the bit width of typ. The ABI packer would
// otherwise wrap wider values modulo 2^256.
func fits(typ abi.Type, n *big.Int) bool {
	if typ.T == abi.UintTy {
		return n.BitLen() <= typ.Size
	}
	if n.Sign() >= 0 {
		return n.BitLen() < typ.Size
	}
	// -2^(size-1) is the smallest value, so |n|-1 needs at most size-1 bits.
	return new(big.Int).Sub(new(big.Int).Neg(n), big.NewInt(1)).BitLen() < typ.Size
}

// sizedInt converts n to the fixed size Go integer type go-ethereum uses for typ.
func sizedInt(typ abi.Type, n *big.Int) (any, error) {
	goType := typ.GetType()
	v := reflect.New(goType).Elem()

	if typ.T == abi.UintTy {
		if !n.IsUint64() || v.OverflowUint(n.Uint64()) {
			return nil, chain.Errorf(chain.KindInvalidAmount, "value %s overflows %s", n, typ)
		}
		v.SetUint(n.Uint64())
	} else {
		if !n.IsInt64() || v.OverflowInt(n.Int64()) {
			return nil, chain.Errorf(chain.KindInvalidAmount, "value %s overflows %s", n, typ)
		}
		v.SetInt(n.Int64())
	}

	return v.Interface(), nil
}

// normalizeOutputs maps a positional or name keyed call result to the declared output order and
// renders addresses in chain native form. Key enumeration order of a keyed result is never used.
func normalizeOutputs(family chain.Family, m chain.Method, raw any) ([]any, error) {
	outputs := m.ABI.Outputs

	var values []any
	switch r := raw.(type) {
	case []any:
		if len(r) != len(outputs) {
			return nil, fmt.Errorf("%s returned %d values, expected %d", m.Name, len(r), len(outputs))
		}
		values = append([]any(nil), r...)
	case map[string]any:
		values = make([]any, len(outputs))
		for i, name := range m.OutputNames() {
			if name == "" {
				return nil, fmt.Errorf("%s returned named values but output %d is unnamed", m.Name, i)
			}
			v, ok := r[name]
			if !ok {
				return nil, fmt.Errorf("%s result has no %q value", m.Name, name)
			}
			values[i] = v
		}
	case nil:
		if len(outputs) != 0 {
			return nil, fmt.Errorf("%s returned no values, expected %d", m.Name, len(outputs))
		}

		return []any{}, nil
	default:
		return nil, fmt.Errorf("%s returned unsupported result type %T", m.Name, raw)
	}

	for i, v := range values {
		addr, ok := v.(common.Address)
		if !ok {
			continue
		}
		native, err := addrconv.FromABIAddress(family, addr)
		if err != nil {
			return nil, err
		}
		values[i] = native
	}

	return values, nil
}
