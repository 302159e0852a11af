package datastore

import (
	"errors"
	"fmt"

	"github.com/flashfaucet/faucet-kit/chain"
	"github.com/flashfaucet/faucet-kit/chain/utils/addrconv"
)

var (
	ErrAddressRefNotFound = errors.New("no address ref found")
	ErrInvalidAddressRef  = errors.New("invalid address ref")
)

// AddressRefKey identifies the address of a contract role on a chain family.
type AddressRefKey struct {
	Family chain.Family
	Role   chain.Role
}

// NewAddressRefKey creates a new AddressRefKey instance.
func NewAddressRefKey(family chain.Family, role chain.Role) AddressRefKey {
	return AddressRefKey{Family: family, Role: role}
}

func (k AddressRefKey) String() string {
	return fmt.Sprintf("%s:%s", k.Family, k.Role)
}

// AddressRef is the address currently resolved for a contract role on a chain family.
type AddressRef struct {
	Family chain.Family `json:"family" yaml:"family"`
	Role   chain.Role   `json:"role" yaml:"role"`
	// Address is in chain native form.
	Address string `json:"address" yaml:"address"`
}

// Key returns the AddressRefKey of the record.
func (r AddressRef) Key() AddressRefKey {
	return NewAddressRefKey(r.Family, r.Role)
}

// Validate checks family and role and that the address is well formed for the family.
func (r AddressRef) Validate() error {
	if err := r.Family.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddressRef, err)
	}
	if err := r.Role.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddressRef, err)
	}
	if !addrconv.IsWellFormed(r.Family, r.Address) {
		return fmt.Errorf("%w: malformed %s address %q for %s", ErrInvalidAddressRef, r.Family, r.Address, r.Role)
	}

	return nil
}

// Normalized returns a copy of r with the address in its canonical chain native rendering.
func (r AddressRef) Normalized() (AddressRef, error) {
	if err := r.Validate(); err != nil {
		return AddressRef{}, err
	}
	native, err := addrconv.ToChainFormat(r.Family, r.Address)
	if err != nil {
		return AddressRef{}, fmt.Errorf("%w: %w", ErrInvalidAddressRef, err)
	}
	r.Address = native

	return r, nil
}

// Addresses are the token and faucet addresses of one chain family. Empty fields are unknown.
type Addresses struct {
	Token  string `json:"token" yaml:"token" mapstructure:"token"`
	Faucet string `json:"faucet" yaml:"faucet" mapstructure:"faucet"`
}

// For returns the address of role.
func (a Addresses) For(role chain.Role) string {
	switch role {
	case chain.RoleToken:
		return a.Token
	case chain.RoleFaucet:
		return a.Faucet
	default:
		return ""
	}
}

// Refs returns the non-empty addresses as records of family.
func (a Addresses) Refs(family chain.Family) []AddressRef {
	var refs []AddressRef
	for _, role := range chain.Roles {
		if addr := a.For(role); addr != "" {
			refs = append(refs, AddressRef{Family: family, Role: role, Address: addr})
		}
	}

	return refs
}
