package datastore

import "github.com/flashfaucet/faucet-kit/chain"

// DefaultAddresses are compiled in so addresses are available before any manifest loads. The EVM
// entries are the first two deployments of a fresh local hardhat node; the Tron token is the
// Shasta deployment. No Tron faucet deployment is known, so that role resolves empty until a
// manifest or an override provides one.
var DefaultAddresses = map[chain.Family]Addresses{
	chain.FamilyEVM: {
		Token:  "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Faucet: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
	},
	chain.FamilyTron: {
		Token: "TX8umnfcZpJnHnmXWmiVrNE21ZJaQaQMhP",
	},
}

func defaultRefs() []AddressRef {
	var refs []AddressRef
	for _, family := range chain.Families {
		refs = append(refs, DefaultAddresses[family].Refs(family)...)
	}

	return refs
}
