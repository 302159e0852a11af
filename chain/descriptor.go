package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Role names the contract a handle targets.
type Role string

const (
	RoleToken  Role = "token"
	RoleFaucet Role = "faucet"
)

// Roles lists every contract role in a stable order.
var Roles = []Role{RoleToken, RoleFaucet}

func (r Role) String() string { return string(r) }

// Validate returns an error when r is not a known role.
func (r Role) Validate() error {
	switch r {
	case RoleToken, RoleFaucet:
		return nil
	default:
		return fmt.Errorf("unknown contract role %q", string(r))
	}
}

// ABIFor returns the JSON ABI of the given role.
func ABIFor(role Role) (string, error) {
	switch role {
	case RoleToken:
		return TokenABI, nil
	case RoleFaucet:
		return FaucetABI, nil
	default:
		return "", role.Validate()
	}
}

// Mutability is the state mutability of a contract method.
type Mutability string

const (
	MutabilityView       Mutability = "view"
	MutabilityPure       Mutability = "pure"
	MutabilityNonPayable Mutability = "nonpayable"
	MutabilityPayable    Mutability = "payable"
)

// ReadOnly reports whether invoking a method of this mutability never changes state.
func (m Mutability) ReadOnly() bool {
	return m == MutabilityView || m == MutabilityPure
}

// Method describes a single contract method.
type Method struct {
	Name       string
	Inputs     []string
	Outputs    []string
	Mutability Mutability
	// ABI is the parsed method used for encoding and decoding.
	ABI abi.Method
}

// OutputNames returns the declared output names in order. Unnamed outputs are empty strings.
func (m Method) OutputNames() []string {
	names := make([]string, len(m.ABI.Outputs))
	for i, out := range m.ABI.Outputs {
		names[i] = out.Name
	}

	return names
}

// ContractDescriptor binds a role on a chain family to an address and its ordered method
// surface.
type ContractDescriptor struct {
	Family  Family
	Role    Role
	Address string
	ABI     abi.ABI
	// Methods are ordered as declared in the ABI.
	Methods []Method
}

// NewContractDescriptor parses abiJSON and builds a descriptor for the given role.
func NewContractDescriptor(family Family, role Role, address, abiJSON string) (ContractDescriptor, error) {
	if err := family.Validate(); err != nil {
		return ContractDescriptor{}, err
	}
	if err := role.Validate(); err != nil {
		return ContractDescriptor{}, err
	}

	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return ContractDescriptor{}, fmt.Errorf("parse ABI for %s: %w", role, err)
	}

	order, err := declaredMethodOrder(abiJSON)
	if err != nil {
		return ContractDescriptor{}, fmt.Errorf("parse ABI for %s: %w", role, err)
	}

	methods := make([]Method, 0, len(order))
	for _, name := range order {
		m, ok := parsed.Methods[name]
		if !ok {
			continue
		}
		methods = append(methods, Method{
			Name:       name,
			Inputs:     argumentTypes(m.Inputs),
			Outputs:    argumentTypes(m.Outputs),
			Mutability: Mutability(m.StateMutability),
			ABI:        m,
		})
	}

	return ContractDescriptor{
		Family:  family,
		Role:    role,
		Address: address,
		ABI:     parsed,
		Methods: methods,
	}, nil
}

// DescriptorFor builds the descriptor of role on family at address using the built-in ABIs.
func DescriptorFor(family Family, role Role, address string) (ContractDescriptor, error) {
	abiJSON, err := ABIFor(role)
	if err != nil {
		return ContractDescriptor{}, err
	}

	return NewContractDescriptor(family, role, address, abiJSON)
}

// Method looks up a method by name.
func (d ContractDescriptor) Method(name string) (Method, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}

	return Method{}, false
}

// DecodeCustomError returns the name of the custom error whose selector prefixes data.
func (d ContractDescriptor) DecodeCustomError(data []byte) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	for name, e := range d.ABI.Errors {
		if string(e.ID[:4]) == string(data[:4]) {
			return name, true
		}
	}

	return "", false
}

func argumentTypes(args abi.Arguments) []string {
	types := make([]string, len(args))
	for i, a := range args {
		types[i] = a.Type.String()
	}

	return types
}

// declaredMethodOrder returns function names in the order they appear in abiJSON, since
// abi.ABI keeps methods in a map.
func declaredMethodOrder(abiJSON string) ([]string, error) {
	var entries []struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(abiJSON), &entries); err != nil {
		return nil, err
	}

	var names []string
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.Type != "function" || seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		names = append(names, e.Name)
	}
	if len(names) == 0 {
		return nil, errors.New("ABI declares no functions")
	}

	return names, nil
}
