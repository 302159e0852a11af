package tron

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"

	"github.com/fbsobreira/gotron-sdk/pkg/address"

	"github.com/flashfaucet/faucet-kit/chain/tron/keystore"
	"github.com/flashfaucet/faucet-kit/chain/tron/rpcclient"
)

// KeyWallet is a Wallet signing with a key held in a local keystore.
type KeyWallet struct {
	keystore *keystore.Keystore
	address  address.Address
	node     Node
}

var _ Wallet = (*KeyWallet)(nil)

// NewKeyWallet returns a wallet for the hex encoded private key connected to node.
func NewKeyWallet(privKey string, node Node) (*KeyWallet, error) {
	ks, addr, err := keystore.FromHex(privKey)
	if err != nil {
		return nil, err
	}

	return &KeyWallet{keystore: ks, address: addr, node: node}, nil
}

// Ready reports whether the keystore still holds the key for the wallet address.
func (w *KeyWallet) Ready() bool {
	return w != nil && w.keystore != nil && w.keystore.Has(w.address.String())
}

// DefaultAddress returns the base58 address of the key.
func (w *KeyWallet) DefaultAddress() string { return w.address.String() }

// Node returns the configured node endpoint.
func (w *KeyWallet) Node() Node {
	return Node{FullHost: w.node.FullHost, Headers: maps.Clone(w.node.Headers)}
}

// Sign verifies that the transaction id is the digest of the raw data and returns a copy of tx
// with the signature appended.
func (w *KeyWallet) Sign(ctx context.Context, tx *rpcclient.Transaction) (*rpcclient.Transaction, error) {
	digest, err := hex.DecodeString(tx.TxID)
	if err != nil || len(digest) != sha256.Size {
		return nil, fmt.Errorf("malformed transaction id %q", tx.TxID)
	}

	raw, err := hex.DecodeString(tx.RawDataHex)
	if err != nil {
		return nil, fmt.Errorf("malformed raw data of transaction %s: %w", tx.TxID, err)
	}
	if sum := sha256.Sum256(raw); !bytes.Equal(sum[:], digest) {
		return nil, fmt.Errorf("transaction id %s does not match its raw data", tx.TxID)
	}

	sig, err := w.keystore.Sign(ctx, w.address.String(), digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction %s: %w", tx.TxID, err)
	}

	signed := *tx
	signed.Signature = append(slices.Clone(tx.Signature), hex.EncodeToString(sig))

	return &signed, nil
}
