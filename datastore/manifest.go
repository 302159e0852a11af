package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/flashfaucet/faucet-kit/chain"
)

// Manifest is a deployment document listing contract addresses per chain family.
//
// Two layouts are accepted. The deployment script output names the EVM contracts at the top level:
//
//	{"network": "localhost", "contracts": {"FlashToken": "0x...", "FlashFaucetSecure": "0x..."}}
//
// The per-family layout nests the same shape under the family name:
//
//	{"evm": {"contracts": {...}}, "tron": {"contracts": {...}}}
//
// When both are present the per-family EVM entry wins.
type Manifest struct {
	Network   string            `json:"network,omitempty" yaml:"network,omitempty" toml:"network,omitempty"`
	Contracts map[string]string `json:"contracts,omitempty" yaml:"contracts,omitempty" toml:"contracts,omitempty"`

	EVM  *ManifestEntry `json:"evm,omitempty" yaml:"evm,omitempty" toml:"evm,omitempty"`
	Tron *ManifestEntry `json:"tron,omitempty" yaml:"tron,omitempty" toml:"tron,omitempty"`
}

// ManifestEntry lists the contracts deployed on one family.
type ManifestEntry struct {
	Network   string            `json:"network,omitempty" yaml:"network,omitempty" toml:"network,omitempty"`
	Contracts map[string]string `json:"contracts" yaml:"contracts" toml:"contracts"`
}

// contractRoles maps manifest contract names, lower cased, to roles.
var contractRoles = map[string]chain.Role{
	"flashtoken":        chain.RoleToken,
	"token":             chain.RoleToken,
	"flashfaucetsecure": chain.RoleFaucet,
	"flashfaucet":       chain.RoleFaucet,
	"faucet":            chain.RoleFaucet,
}

// RoleForContract returns the role a manifest contract name stands for.
func RoleForContract(name string) (chain.Role, bool) {
	role, ok := contractRoles[strings.ToLower(strings.TrimSpace(name))]

	return role, ok
}

// ParseManifest decodes a JSON or YAML manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return m, errors.New("manifest is empty")
	}

	var err error
	if trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &m)
	} else {
		err = yaml.Unmarshal(trimmed, &m)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to decode manifest: %w", err)
	}

	return m, nil
}

// ParseTOMLManifest decodes a TOML manifest, the per-family layout written as tables:
//
//	[evm.contracts]
//	FlashToken = "0x..."
func ParseTOMLManifest(data []byte) (Manifest, error) {
	var m Manifest
	if len(bytes.TrimSpace(data)) == 0 {
		return m, errors.New("manifest is empty")
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to unmarshal toml: %w", err)
	}

	return m, nil
}

// Refs returns the valid address records of the manifest in a stable order. Unknown contract
// names are ignored. Malformed addresses are left out and reported in the joined error, which is
// non-nil even when some records are valid.
func (m Manifest) Refs() ([]AddressRef, error) {
	byKey := make(map[AddressRefKey]AddressRef)
	var errs []error

	collect := func(family chain.Family, contracts map[string]string) {
		names := make([]string, 0, len(contracts))
		for name := range contracts {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			role, ok := RoleForContract(name)
			if !ok {
				continue
			}
			ref, err := AddressRef{Family: family, Role: role, Address: strings.TrimSpace(contracts[name])}.Normalized()
			if err != nil {
				errs = append(errs, fmt.Errorf("contract %s: %w", name, err))
				continue
			}
			byKey[ref.Key()] = ref
		}
	}

	collect(chain.FamilyEVM, m.Contracts)
	if m.EVM != nil {
		collect(chain.FamilyEVM, m.EVM.Contracts)
	}
	if m.Tron != nil {
		collect(chain.FamilyTron, m.Tron.Contracts)
	}

	refs := make([]AddressRef, 0, len(byKey))
	for _, family := range chain.Families {
		for _, role := range chain.Roles {
			if ref, ok := byKey[NewAddressRefKey(family, role)]; ok {
				refs = append(refs, ref)
			}
		}
	}

	return refs, errors.Join(errs...)
}

// LoadManifest reads the manifest at source, which is either an http(s) URL fetched with client
// or a local file path. Sources ending in .toml are decoded as TOML, others as JSON or YAML.
func LoadManifest(ctx context.Context, client *resty.Client, source string) (Manifest, error) {
	data, err := readManifest(ctx, client, source)
	if err != nil {
		return Manifest{}, err
	}
	if isTOML(source) {
		return ParseTOMLManifest(data)
	}

	return ParseManifest(data)
}

func readManifest(ctx context.Context, client *resty.Client, source string) ([]byte, error) {
	if !isURL(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}

		return data, nil
	}

	if client == nil {
		client = resty.New()
	}
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, application/yaml").
		Get(source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest %s: %w", source, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch manifest %s: HTTP %d", source, resp.StatusCode())
	}

	return resp.Body(), nil
}

func isTOML(source string) bool {
	p := source
	if u, err := url.Parse(source); err == nil && isURL(source) {
		p = u.Path
	}

	return strings.EqualFold(path.Ext(p), ".toml")
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
